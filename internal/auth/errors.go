package auth

import (
	"errors"
	"strings"
)

// Error kinds. Use errors.Is against these to classify an authentication failure.
var (
	// ErrDeviceCodeExpired means the device code flow ended without a token
	ErrDeviceCodeExpired = errors.New("device code has expired")

	// ErrRefreshFailed means the authorization server rejected the refresh token
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrTransportFault means the authorization server could not be reached or
	// answered with a server error
	ErrTransportFault = errors.New("authorization server request failed")
)

// Error is an authentication failure carrying the server's explanation
type Error struct {
	Kind        error
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	switch {
	case e.Description != "":
		b.WriteString(": ")
		b.WriteString(e.Description)
	case e.Code != "":
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the error kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying transport error, if any
func (e *Error) Unwrap() error {
	return e.Err
}

func transportFault(description string, err error) *Error {
	return &Error{Kind: ErrTransportFault, Description: description, Err: err}
}
