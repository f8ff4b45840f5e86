package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by access and refresh tokens.
// Both kinds carry only the account ID; which kind a given string is
// can only be established by the secret it verifies against.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the account ID the token was issued for.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// ActivationClaims are the claims carried by an activation token. The
// embedded PendingUser is the entire registration payload; no pending
// record exists anywhere else.
type ActivationClaims struct {
	jwt.RegisteredClaims
	NewUser *PendingUser `json:"new_user,omitempty"`
}
