// Package auth signs the CLI in to the Microsoft identity platform with the
// OAuth2 device code grant and keeps the resulting token usable across runs:
// the token record is persisted in a credential store and refreshed lazily
// whenever a caller asks for an access token after it has expired.
package auth
