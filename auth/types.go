package auth

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface this package needs. Wire your
// own implementation; the default writes to stdout.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the narrow persistence surface the orchestrator depends
// on. Lookups that find nothing return an error satisfying
// errors.IsNotFound. Create enforces identifier uniqueness and is the
// authoritative guard: it returns ErrDuplicateAccount on violation
// regardless of any pre-checks the caller ran.
type UserStore interface {
	GetByAccount(ctx context.Context, account string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	// SetRefreshToken overwrites the account's single refresh token
	// slot; an empty token clears it.
	SetRefreshToken(ctx context.Context, id string, token string) error
	SetPasswordHash(ctx context.Context, id string, hash string) error
}

// Notifier delivers a verification or reset link to a destination. The
// contract is identical for email and SMS transports; delivery is
// fire-and-forget with no retry policy.
type Notifier interface {
	SendVerificationLink(ctx context.Context, destination, url, label string) error
}

// OneTimeCodeService is the external collaborator that owns SMS
// one-time codes. This package keeps no local copy of a code and
// trusts the boolean verdict. A wrong or expired code is a normal
// negative outcome, not an error.
type OneTimeCodeService interface {
	Request(ctx context.Context, phone string) (string, error)
	Verify(ctx context.Context, phone, code string) (bool, error)
}

// ProviderProfile is the identity attested by the federated provider.
type ProviderProfile struct {
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityTokenVerifier validates a federated provider's ID token and
// returns the profile it attests.
type IdentityTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*ProviderProfile, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
