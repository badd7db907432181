package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTokenType is used when the provider omits token_type.
const DefaultTokenType = "Bearer"

// Credential is the OAuth2 credential record held per user session.
//
// The sync engine never checks expiry itself; it reacts to the provider's "expired" signal.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
	IssuedAt     int64  `json:"issued_at"`  // unix seconds
}

// Merge returns a copy of c with every field replaced by refreshed, except RefreshToken,
// which is kept when refreshed carries none.
func (c Credential) Merge(refreshed Credential) Credential {
	merged := refreshed
	if merged.RefreshToken == "" {
		merged.RefreshToken = c.RefreshToken
	}
	return merged
}

// Authorization returns the value for the Authorization header.
func (c Credential) Authorization() string {
	tokenType := c.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, DefaultTokenType) {
		tokenType = DefaultTokenType
	}
	return tokenType + " " + c.AccessToken
}

// ExpiresAt returns when the access token stops being valid according to the issuer.
func (c Credential) ExpiresAt() time.Time {
	return time.Unix(c.IssuedAt+c.ExpiresIn, 0)
}

// Expired reports whether the access token is past its advertised lifetime at now.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresIn > 0 && !now.Before(c.ExpiresAt())
}

// Scopes splits the space separated scope string.
func (c Credential) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Validate checks the fields required to call the provider.
func (c Credential) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	if c.ExpiresIn < 0 {
		return fmt.Errorf("expires_in must not be negative")
	}
	return nil
}
