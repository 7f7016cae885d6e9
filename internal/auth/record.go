package auth

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// TokenRecord is the cached credential state for one app registration
type TokenRecord struct {
	AccessToken  string
	ExpireAt     time.Time
	RefreshToken string
}

// storedRecord is the persisted layout; expireDate is epoch milliseconds
type storedRecord struct {
	AccessToken  string `json:"accessToken"`
	ExpireDate   int64  `json:"expireDate"`
	RefreshToken string `json:"refreshToken"`
}

// MarshalJSON encodes the record with the expiry as epoch milliseconds
func (r TokenRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedRecord{
		AccessToken:  r.AccessToken,
		ExpireDate:   r.ExpireAt.UnixMilli(),
		RefreshToken: r.RefreshToken,
	})
}

// UnmarshalJSON decodes a record written by MarshalJSON
func (r *TokenRecord) UnmarshalJSON(data []byte) error {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	r.AccessToken = stored.AccessToken
	r.ExpireAt = time.UnixMilli(stored.ExpireDate)
	r.RefreshToken = stored.RefreshToken
	return nil
}

// Expired reports whether the access token must be refreshed before use
func (r *TokenRecord) Expired(now time.Time, skew time.Duration) bool {
	return !now.Before(r.ExpireAt.Add(-skew))
}

// usable reports whether the record is internally consistent
func (r *TokenRecord) usable() bool {
	return r != nil && r.AccessToken != "" && r.RefreshToken != ""
}

// OAuth2 converts the record for use with golang.org/x/oauth2 transports
func (r *TokenRecord) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpireAt,
	}
}

// newRecord builds a record acquired at now, valid for expiresIn seconds
func newRecord(now time.Time, s *TokenSuccess) *TokenRecord {
	return &TokenRecord{
		AccessToken:  s.AccessToken,
		ExpireAt:     time.UnixMilli(now.UnixMilli() + int64(s.ExpiresIn)*1000),
		RefreshToken: s.RefreshToken,
	}
}
