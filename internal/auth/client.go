package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// serverClient talks to the authorization server. 4xx answers are returned as
// payloads; only transport failures and 5xx answers are errors.
type serverClient struct {
	http          *resty.Client
	app           AppRegistration
	deviceCodeURL string
	tokenURL      string
}

func newServerClient(app AppRegistration, hc *http.Client, log *zap.SugaredLogger) *serverClient {
	endpoint := app.Endpoint()
	rc := resty.NewWithClient(hc).
		SetHeader("Accept", "application/json").
		SetLogger(log)
	return &serverClient{
		http:          rc,
		app:           app,
		deviceCodeURL: endpoint.DeviceAuthURL,
		tokenURL:      endpoint.TokenURL,
	}
}

// requestDeviceCode starts a device code flow
func (c *serverClient) requestDeviceCode(ctx context.Context) (*deviceCodeResponse, error) {
	body, err := c.postForm(ctx, c.deviceCodeURL, map[string]string{
		"client_id": c.app.ClientID,
		"scope":     c.app.Scope,
	})
	if err != nil {
		return nil, err
	}

	var payload deviceCodeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, transportFault("failed to decode device code response", err)
	}
	if payload.Error != "" {
		return nil, &Error{Kind: ErrDeviceCodeExpired, Code: payload.Error, Description: payload.ErrorDescription}
	}
	if payload.DeviceCode == "" {
		return nil, transportFault("device code response has no device_code", nil)
	}
	return &payload, nil
}

// pollToken asks whether the user has completed the device code flow
func (c *serverClient) pollToken(ctx context.Context, deviceCode string) (TokenResponse, error) {
	return c.token(ctx, map[string]string{
		"grant_type":  deviceCodeGrantType,
		"client_id":   c.app.ClientID,
		"device_code": deviceCode,
	})
}

// refresh exchanges a refresh token for a new token
func (c *serverClient) refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	return c.token(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.app.ClientID,
		"scope":         c.app.Scope,
		"refresh_token": refreshToken,
	})
}

func (c *serverClient) token(ctx context.Context, form map[string]string) (TokenResponse, error) {
	body, err := c.postForm(ctx, c.tokenURL, form)
	if err != nil {
		return nil, err
	}
	resp, err := decodeTokenResponse(body)
	if err != nil {
		return nil, transportFault("unexpected token response", err)
	}
	return resp, nil
}

func (c *serverClient) postForm(ctx context.Context, url string, form map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportFault(fmt.Sprintf("POST %s", url), err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, transportFault(fmt.Sprintf("POST %s returned status %d: %s", url, resp.StatusCode(), resp.String()), nil)
	}
	return resp.Body(), nil
}
