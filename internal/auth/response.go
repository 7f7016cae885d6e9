package auth

import (
	"encoding/json"
	"errors"
	"fmt"
)

// deviceCodeResponse is the devicecode endpoint payload
type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
	Message         string `json:"message"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// instructions returns the text shown to the user to complete sign in
func (d *deviceCodeResponse) instructions() string {
	if d.Message != "" {
		return d.Message
	}
	return fmt.Sprintf("To sign in, use a web browser to open the page %s and enter the code %s to authenticate.",
		d.VerificationURI, d.UserCode)
}

// TokenResponse is the decoded token endpoint payload: either *TokenSuccess or *TokenFailure
type TokenResponse interface {
	isTokenResponse()
}

// TokenSuccess is a token endpoint response carrying a new token
type TokenSuccess struct {
	TokenType    string
	Scope        string
	ExpiresIn    int
	AccessToken  string
	RefreshToken string
	IDToken      string
}

// TokenFailure is a token endpoint response carrying an OAuth2 error
type TokenFailure struct {
	Code          string
	Description   string
	ErrorCodes    []int
	TraceID       string
	CorrelationID string
	ErrorURI      string
}

func (*TokenSuccess) isTokenResponse() {}
func (*TokenFailure) isTokenResponse() {}

// rawTokenResponse holds every field of both response shapes
type rawTokenResponse struct {
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCodes       []int  `json:"error_codes"`
	TraceID          string `json:"trace_id"`
	CorrelationID    string `json:"correlation_id"`
	ErrorURI         string `json:"error_uri"`
}

var errUnrecognizedResponse = errors.New("response has neither token_type nor error")

// decodeTokenResponse decides once whether a payload is a success or a failure
func decodeTokenResponse(body []byte) (TokenResponse, error) {
	var raw rawTokenResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	switch {
	case raw.TokenType != "":
		return &TokenSuccess{
			TokenType:    raw.TokenType,
			Scope:        raw.Scope,
			ExpiresIn:    raw.ExpiresIn,
			AccessToken:  raw.AccessToken,
			RefreshToken: raw.RefreshToken,
			IDToken:      raw.IDToken,
		}, nil
	case raw.Error != "":
		return &TokenFailure{
			Code:          raw.Error,
			Description:   raw.ErrorDescription,
			ErrorCodes:    raw.ErrorCodes,
			TraceID:       raw.TraceID,
			CorrelationID: raw.CorrelationID,
			ErrorURI:      raw.ErrorURI,
		}, nil
	default:
		return nil, errUnrecognizedResponse
	}
}
