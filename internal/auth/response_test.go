package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTokenResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    TokenResponse
		wantErr bool
	}{
		{
			name: "success",
			body: `{"token_type":"Bearer","scope":"Mail.Read","expires_in":3599,"access_token":"a","refresh_token":"r","id_token":"i"}`,
			want: &TokenSuccess{TokenType: "Bearer", Scope: "Mail.Read", ExpiresIn: 3599, AccessToken: "a", RefreshToken: "r", IDToken: "i"},
		},
		{
			name: "failure",
			body: `{"error":"invalid_grant","error_description":"Token revoked","error_codes":[50173],"trace_id":"t","correlation_id":"c","error_uri":"u"}`,
			want: &TokenFailure{Code: "invalid_grant", Description: "Token revoked", ErrorCodes: []int{50173}, TraceID: "t", CorrelationID: "c", ErrorURI: "u"},
		},
		{
			name:    "neither shape",
			body:    `{"access_token":"a"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `<html>bad gateway</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTokenResponse([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppRegistrationEndpoint(t *testing.T) {
	ep := AppRegistration{ClientID: "x"}.Endpoint()
	assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/devicecode", ep.DeviceAuthURL)
	assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/token", ep.TokenURL)

	ep = AppRegistration{Tenant: "contoso.onmicrosoft.com", Authority: "https://login.example.com/"}.Endpoint()
	assert.Equal(t, "https://login.example.com/contoso.onmicrosoft.com/oauth2/v2.0/token", ep.TokenURL)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: ErrRefreshFailed, Code: "invalid_grant", Description: "Token revoked"}
	assert.Equal(t, "token refresh failed: Token revoked", err.Error())

	err = &Error{Kind: ErrDeviceCodeExpired, Code: "expired_token"}
	assert.Equal(t, "device code has expired: expired_token", err.Error())
}
