package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenClaims are the access-token claims the client cares about. The token
// is decoded without signature verification; the server is the trust boundary
// and verifies every request itself.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresAt returns the embedded expiry, or the zero time when absent.
func (c *TokenClaims) ExpiresAt() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// Expired reports whether the embedded expiry has passed. A token without an
// expiry claim is treated as expired.
func (c *TokenClaims) Expired(now time.Time) bool {
	exp := c.ExpiresAt()
	return exp.IsZero() || now.After(exp)
}

// DecodeToken parses token claims without verifying the signature.
func DecodeToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "decoding token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user_id claim")
	}
	return claims, nil
}
