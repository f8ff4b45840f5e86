package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenKind names the three token kinds the service issues. Kinds are
// never interchangeable: each kind signs with its own secret, so a
// token presented against another kind fails signature verification.
type TokenKind string

const (
	TokenKindActivation TokenKind = "activation"
	TokenKindAccess     TokenKind = "access"
	TokenKindRefresh    TokenKind = "refresh"
)

// Default lifetimes. The activation window is deliberately generous: it
// has to outlive a user getting around to checking their email or phone.
const (
	DefaultActivationTTL = 24 * time.Hour
	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 720 * time.Hour
)

// TokenOptions configures the token service. The three secrets must be
// distinct and non-empty.
type TokenOptions struct {
	ActivationSecret []byte
	AccessSecret     []byte
	RefreshSecret    []byte

	ActivationTTL time.Duration
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	Issuer string
}

// TokenService issues and verifies the three token kinds as signed,
// expiring HS256 claims. Expiry is compared strictly against the
// current time, with no leeway for clock skew.
type TokenService struct {
	opts   TokenOptions
	logger Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(opts TokenOptions, logger Logger) (*TokenService, error) {
	if len(opts.ActivationSecret) == 0 || len(opts.AccessSecret) == 0 || len(opts.RefreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty", errors.CategoryBadInput)
	}

	secrets := map[string]TokenKind{
		string(opts.ActivationSecret): TokenKindActivation,
		string(opts.AccessSecret):     TokenKindAccess,
		string(opts.RefreshSecret):    TokenKindRefresh,
	}
	if len(secrets) != 3 {
		return nil, errors.New("token secrets must be distinct per kind", errors.CategoryBadInput)
	}

	if opts.ActivationTTL == 0 {
		opts.ActivationTTL = DefaultActivationTTL
	}
	if opts.AccessTTL == 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}

	if logger == nil {
		logger = defLogger{}
	}

	return &TokenService{opts: opts, logger: logger}, nil
}

// IssueActivation signs a draft account into an activation token. The
// token is the only place the draft exists until it is exchanged for a
// real account.
func (ts *TokenService) IssueActivation(pending *PendingUser) (string, error) {
	if pending == nil {
		return "", errors.New("pending user must not be nil", errors.CategoryInternal)
	}

	claims := &ActivationClaims{
		RegisteredClaims: ts.registered(pending.Account, ts.opts.ActivationTTL),
		NewUser:          pending,
	}
	return ts.sign(claims, ts.opts.ActivationSecret)
}

// IssueAccess signs a short-lived access token for the account.
func (ts *TokenService) IssueAccess(userID string) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: ts.registered(userID, ts.opts.AccessTTL),
		UID:              userID,
	}
	return ts.sign(claims, ts.opts.AccessSecret)
}

// IssueRefresh signs a refresh token for the account. The caller is
// responsible for mirroring it into the account's active slot.
func (ts *TokenService) IssueRefresh(userID string) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: ts.registered(userID, ts.opts.RefreshTTL),
		UID:              userID,
	}
	return ts.sign(claims, ts.opts.RefreshSecret)
}

// VerifyActivation validates an activation token and returns the draft
// account it carries.
func (ts *TokenService) VerifyActivation(raw string) (*PendingUser, error) {
	claims := &ActivationClaims{}
	if err := ts.parse(raw, ts.opts.ActivationSecret, claims); err != nil {
		return nil, err
	}

	if claims.NewUser == nil || claims.NewUser.Account == "" {
		return nil, ErrTokenMalformed.Clone()
	}

	return claims.NewUser, nil
}

// VerifyAccess validates an access token. Verification is stateless:
// the store is never consulted.
func (ts *TokenService) VerifyAccess(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := ts.parse(raw, ts.opts.AccessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token's signature and expiry. The
// stateful equality check against the account's stored slot is the
// orchestrator's job.
func (ts *TokenService) VerifyRefresh(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := ts.parse(raw, ts.opts.RefreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// registered assigns a fresh jti to every token so two tokens issued
// for the same subject in the same second are still distinct. Refresh
// rotation depends on that: the stored slot must identify one exact
// token.
func (ts *TokenService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    ts.opts.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (ts *TokenService) sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (ts *TokenService) parse(raw string, secret []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			clone := ErrTokenExpired.Clone()
			clone.Source = err
			return clone
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			clone := ErrTokenBadSignature.Clone()
			clone.Source = err
			return clone
		default:
			return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	if !token.Valid {
		return ErrTokenMalformed.Clone()
	}

	return nil
}
