package auth

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	// DefaultAuthority is the Microsoft identity platform host
	DefaultAuthority = "https://login.microsoftonline.com"

	// DefaultTenant accepts both work and personal accounts
	DefaultTenant = "common"

	// DefaultScope is what the forwarder needs; offline_access yields a refresh token
	DefaultScope = "offline_access user.read mail.read"
)

// AppRegistration identifies the application registered with the authorization server
type AppRegistration struct {
	ClientID string
	// ClientSecret is not sent by the device code grant
	ClientSecret string
	Tenant       string
	Scope        string
	Authority    string
}

// Endpoint returns the tenant's OAuth2 endpoints
func (a AppRegistration) Endpoint() oauth2.Endpoint {
	authority := a.Authority
	if authority == "" {
		authority = DefaultAuthority
	}
	tenant := a.Tenant
	if tenant == "" {
		tenant = DefaultTenant
	}
	base := strings.TrimRight(authority, "/") + "/" + tenant + "/oauth2/v2.0"
	return oauth2.Endpoint{
		AuthURL:       base + "/authorize",
		DeviceAuthURL: base + "/devicecode",
		TokenURL:      base + "/token",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
}
