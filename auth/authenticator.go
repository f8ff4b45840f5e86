package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Authenticator orchestrates the account and session lifecycle:
// register, activate, login, logout, refresh, google login, sms login,
// and password recovery. It is safe for concurrent use; all state
// lives in the store and in the signed tokens themselves.
//
// Session-wise there is exactly one active refresh token per account.
// Login and refresh overwrite it, logout clears it; concurrent calls
// for the same account race freely and the last write wins.
type Authenticator struct {
	store  UserStore
	tokens *TokenService
	email  Notifier
	sms    Notifier
	otp    OneTimeCodeService
	google IdentityTokenVerifier

	baseURL string
	logger  Logger
}

// AuthenticatorOption configures the authenticator.
type AuthenticatorOption func(*Authenticator)

// WithEmailNotifier sets the transport for email-shaped identifiers.
func WithEmailNotifier(n Notifier) AuthenticatorOption {
	return func(a *Authenticator) { a.email = n }
}

// WithSMSNotifier sets the transport for phone-shaped identifiers.
func WithSMSNotifier(n Notifier) AuthenticatorOption {
	return func(a *Authenticator) { a.sms = n }
}

// WithOneTimeCodeService sets the external OTP collaborator.
func WithOneTimeCodeService(s OneTimeCodeService) AuthenticatorOption {
	return func(a *Authenticator) { a.otp = s }
}

// WithIdentityTokenVerifier sets the federated provider verifier.
func WithIdentityTokenVerifier(v IdentityTokenVerifier) AuthenticatorOption {
	return func(a *Authenticator) { a.google = v }
}

// WithBaseURL sets the client base URL used to build activation and
// reset links.
func WithBaseURL(url string) AuthenticatorOption {
	return func(a *Authenticator) { a.baseURL = url }
}

// WithLogger overrides the default logger.
func WithLogger(l Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAuthenticator returns a new authenticator
func NewAuthenticator(store UserStore, tokens *TokenService, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		store:   store,
		tokens:  tokens,
		baseURL: "http://localhost:3000",
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Register hashes the password, wraps the draft account into an
// activation token, and delivers the activation link through the
// channel matching the identifier's shape. No account exists in the
// store until Activate is called with that token.
//
// The duplicate pre-check here is best effort; the store's unique
// constraint at Activate time is the authoritative guard.
func (a *Authenticator) Register(ctx context.Context, name, account, password string) (Channel, error) {
	// Normalize once here: the classified, checked, and persisted
	// identifier must be the same string, or a padded variant would
	// slip past uniqueness and materialize a twin account.
	account = strings.TrimSpace(account)

	channel := Classify(account)
	if channel == ChannelUnknown {
		return ChannelUnknown, ErrUnknownChannel.Clone()
	}

	if _, err := a.store.GetByAccount(ctx, account); err == nil {
		return channel, ErrDuplicateAccount.Clone()
	} else if !errors.IsNotFound(err) {
		return channel, internalError(err, "failed to check for existing account")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return channel, internalError(err, "failed to hash password")
	}

	token, err := a.tokens.IssueActivation(&PendingUser{
		Name:         name,
		Account:      account,
		PasswordHash: hash,
	})
	if err != nil {
		return channel, internalError(err, "failed to issue activation token")
	}

	a.deliver(ctx, channel, account, a.baseURL+"/active/"+token, "verify your account")

	return channel, nil
}

// Activate exchanges an activation token for a real account. Terminal
// success leaves the account active with no session; the user still has
// to log in.
func (a *Authenticator) Activate(ctx context.Context, activationToken string) (*User, error) {
	pending, err := a.tokens.VerifyActivation(activationToken)
	if err != nil {
		return nil, invalidCredential(err)
	}

	// Second uniqueness guard: the identifier may have been taken while
	// the token sat in someone's inbox.
	if _, err := a.store.GetByAccount(ctx, pending.Account); err == nil {
		return nil, ErrDuplicateAccount.Clone()
	} else if !errors.IsNotFound(err) {
		return nil, internalError(err, "failed to check for existing account")
	}

	user, err := a.store.Create(ctx, &User{
		Name:         pending.Name,
		Account:      pending.Account,
		PasswordHash: pending.PasswordHash,
		Origin:       OriginRegister,
	})
	if err != nil {
		if IsDuplicateAccount(err) {
			return nil, err
		}
		return nil, internalError(err, "failed to create account")
	}

	return user, nil
}

// Login authenticates a password against the stored hash and issues a
// fresh session, overwriting any previously active refresh token.
func (a *Authenticator) Login(ctx context.Context, account, password string) (*Session, error) {
	account = strings.TrimSpace(account)

	user, err := a.store.GetByAccount(ctx, account)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound.Clone()
		}
		return nil, internalError(err, "failed to load account")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if user.Origin != OriginRegister {
			clone := invalidCredential(err)
			clone.Message = fmt.Sprintf("password mismatch; this account signs in with %s", user.Origin)
			return nil, clone.WithMetadata(map[string]any{"origin": user.Origin})
		}
		return nil, invalidCredential(err)
	}

	return a.issueSession(ctx, user)
}

// Logout clears the account's refresh token slot, revoking the active
// session. Safe to call when no session is active.
func (a *Authenticator) Logout(ctx context.Context, userID string) error {
	if err := a.store.SetRefreshToken(ctx, userID, ""); err != nil {
		return internalError(err, "failed to clear refresh token")
	}
	return nil
}

// Refresh exchanges a refresh token for a new access/refresh pair. The
// presented token must equal the account's stored slot exactly: a
// stale token that survived a later login or refresh is rejected even
// though its signature and expiry are still valid. Success rotates the
// slot again, so a refresh token is single use.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, invalidCredential(err)
	}

	user, err := a.store.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound.Clone()
		}
		return nil, internalError(err, "failed to load account")
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return nil, ErrInvalidCredential.Clone()
	}

	return a.issueSession(ctx, user)
}

// GoogleLogin verifies a Google ID token and either logs the matching
// account in or creates it on the spot as active, with origin=google.
// No activation step: the provider already proved channel ownership.
// The password comparison is skipped entirely; the provider's verdict
// is the credential.
func (a *Authenticator) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if a.google == nil {
		return nil, errors.New("no identity provider configured", errors.CategoryInternal)
	}

	profile, err := a.google.Verify(ctx, idToken)
	if err != nil {
		return nil, invalidCredential(err)
	}

	if !profile.EmailVerified {
		return nil, ErrUnverifiedIdentity.Clone()
	}

	return a.loginOrCreate(ctx, &User{
		Name:      trimName(profile.Name),
		Account:   profile.Email,
		AvatarURL: profile.Picture,
		Origin:    OriginGoogle,
	})
}

// SMSLoginStart asks the OTP collaborator to send a one-time code to
// the phone number. The returned handle is opaque.
func (a *Authenticator) SMSLoginStart(ctx context.Context, phone string) (string, error) {
	if a.otp == nil {
		return "", errors.New("no one-time code service configured", errors.CategoryInternal)
	}

	handle, err := a.otp.Request(ctx, strings.TrimSpace(phone))
	if err != nil {
		return "", internalError(err, "failed to request one-time code")
	}

	return handle, nil
}

// SMSLoginVerify checks the one-time code with the OTP collaborator
// and, on a positive verdict, logs in or creates the phone-keyed
// account with origin=sms. A negative verdict fails with the uniform
// credential error and leaves no trace in the store.
func (a *Authenticator) SMSLoginVerify(ctx context.Context, phone, code string) (*Session, error) {
	if a.otp == nil {
		return nil, errors.New("no one-time code service configured", errors.CategoryInternal)
	}

	phone = strings.TrimSpace(phone)

	valid, err := a.otp.Verify(ctx, phone, code)
	if err != nil {
		return nil, internalError(err, "one-time code verification failed")
	}
	if !valid {
		return nil, ErrInvalidCredential.Clone()
	}

	return a.loginOrCreate(ctx, &User{
		Name:    phone,
		Account: phone,
		Origin:  OriginSMS,
	})
}

// ForgotPassword issues a short-lived reset credential and delivers the
// reset link through the channel matching the identifier's shape. Only
// password-registered accounts qualify: google and sms accounts always
// re-authenticate through their origin channel instead.
func (a *Authenticator) ForgotPassword(ctx context.Context, account string) (Channel, error) {
	account = strings.TrimSpace(account)

	user, err := a.store.GetByAccount(ctx, account)
	if err != nil {
		if errors.IsNotFound(err) {
			return ChannelUnknown, ErrAccountNotFound.Clone()
		}
		return ChannelUnknown, internalError(err, "failed to load account")
	}

	if user.Origin != OriginRegister {
		clone := ErrUnsupportedOrigin.Clone()
		clone.Message = fmt.Sprintf("%s quick-login accounts cannot use this feature", user.Origin)
		return ChannelUnknown, clone.WithMetadata(map[string]any{"origin": user.Origin})
	}

	// The access token doubles as the reset credential; its short
	// expiry is the point.
	token, err := a.tokens.IssueAccess(user.ID.String())
	if err != nil {
		return ChannelUnknown, internalError(err, "failed to issue reset token")
	}

	channel := Classify(account)
	a.deliver(ctx, channel, account, a.baseURL+"/reset_password/"+token, "forgot your password?")

	return channel, nil
}

// ResetPassword stores a new password hash for the authenticated
// account. The caller authenticates with the reset credential issued by
// ForgotPassword (or any live access token).
func (a *Authenticator) ResetPassword(ctx context.Context, userID, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, ErrNoEmptyString) {
			return err
		}
		return internalError(err, "failed to hash password")
	}

	if err := a.store.SetPasswordHash(ctx, userID, hash); err != nil {
		return internalError(err, "failed to store password hash")
	}

	return nil
}

// loginOrCreate is the shared branch for the google and sms flows: the
// external verification already happened, so an existing account gets a
// session directly and a missing one is created as active first.
func (a *Authenticator) loginOrCreate(ctx context.Context, draft *User) (*Session, error) {
	user, err := a.store.GetByAccount(ctx, draft.Account)
	if err == nil {
		return a.issueSession(ctx, user)
	}
	if !errors.IsNotFound(err) {
		return nil, internalError(err, "failed to load account")
	}

	// The stored hash is random, never derived from the identifier:
	// password login against this account cannot succeed.
	draft.PasswordHash = RandomPasswordHash()
	if id, err := hashid.NewUUID(draft.Account); err == nil {
		draft.ID = id
	}

	created, err := a.store.Create(ctx, draft)
	if err != nil {
		if IsDuplicateAccount(err) {
			// Lost a creation race; the account exists now, log it in.
			if user, err := a.store.GetByAccount(ctx, draft.Account); err == nil {
				return a.issueSession(ctx, user)
			}
		}
		return nil, internalError(err, "failed to create account")
	}

	return a.issueSession(ctx, created)
}

// issueSession mints a fresh access/refresh pair and overwrites the
// account's refresh slot. This is the single revocation point: whatever
// refresh token was live before is dead after.
func (a *Authenticator) issueSession(ctx context.Context, user *User) (*Session, error) {
	access, err := a.tokens.IssueAccess(user.ID.String())
	if err != nil {
		return nil, internalError(err, "failed to issue access token")
	}

	refresh, err := a.tokens.IssueRefresh(user.ID.String())
	if err != nil {
		return nil, internalError(err, "failed to issue refresh token")
	}

	if err := a.store.SetRefreshToken(ctx, user.ID.String(), refresh); err != nil {
		return nil, internalError(err, "failed to persist refresh token")
	}
	user.RefreshToken = refresh

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// deliver sends a link through the channel's transport. Delivery is
// best effort: failures are logged and never surfaced, so a flaky
// SMTP relay cannot fail a registration that already succeeded.
func (a *Authenticator) deliver(ctx context.Context, channel Channel, destination, url, label string) {
	var n Notifier
	switch channel {
	case ChannelEmail:
		n = a.email
	case ChannelPhone:
		n = a.sms
	}

	if n == nil {
		a.logger.Error("no notifier configured for channel %s", channel)
		return
	}

	if err := n.SendVerificationLink(ctx, destination, url, label); err != nil {
		a.logger.Error("failed to deliver link to %s: %v", destination, err)
	}
}

func trimName(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	if len(runes) > MaxNameLength {
		return string(runes[:MaxNameLength])
	}
	return name
}
