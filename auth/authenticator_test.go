package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrj2233/blog-app-api/auth"
)

const testBaseURL = "https://blog.example.com"

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()

	tokens, err := auth.NewTokenService(auth.TokenOptions{
		ActivationSecret: []byte("test-activation-secret"),
		AccessSecret:     []byte("test-access-secret"),
		RefreshSecret:    []byte("test-refresh-secret"),
	}, nil)
	require.NoError(t, err)

	return tokens
}

// capturedLink wires a MockNotifier that records the last delivered URL.
func capturedLink(notifier *MockNotifier) *string {
	var link string
	notifier.On("SendVerificationLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			link = args.String(2)
		}).
		Return(nil)
	return &link
}

func activationToken(t *testing.T, link string) string {
	t.Helper()
	require.Contains(t, link, "/active/")
	return strings.TrimPrefix(link, testBaseURL+"/active/")
}

func TestRegisterActivateLogin(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	channel, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, auth.ChannelEmail, channel)

	// Nothing persisted until the activation token comes back.
	_, err = store.GetByAccount(ctx, "tester@example.com")
	assert.Error(t, err)

	// Password login before activation cannot work either.
	_, err = auther.Login(ctx, "tester@example.com", "secret123")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAccountNotFound))

	user, err := auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)
	assert.Equal(t, "tester", user.Name)
	assert.Equal(t, auth.OriginRegister, user.Origin)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.Equal(t, auth.DefaultAvatarURL, user.AvatarURL)

	session, err := auther.Login(ctx, "tester@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := store.GetByAccount(ctx, "tester@example.com")
	require.NoError(t, err)
	assert.Equal(t, session.RefreshToken, stored.RefreshToken)
}

func TestRegisterRejectsUnknownIdentifier(t *testing.T) {
	auther := auth.NewAuthenticator(newMemStore(), newTestTokens(t))

	_, err := auther.Register(context.Background(), "tester", "not-an-identifier", "secret123")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUnknownChannel))
}

func TestRegisterTrimsIdentifier(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "  padded@example.com  ", "secret123")
	require.NoError(t, err)

	user, err := auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)
	assert.Equal(t, "padded@example.com", user.Account)

	// A padded variant of a taken identifier is the same identifier,
	// not a second account.
	_, err = auther.Register(ctx, "twin", " padded@example.com ", "secret123")
	assert.True(t, auth.IsDuplicateAccount(err))

	// Login accepts the padded form too.
	_, err = auther.Login(ctx, " padded@example.com ", "secret123")
	assert.NoError(t, err)
}

func TestRegisterRejectsExistingAccount(t *testing.T) {
	store := newMemStore()
	_, err := store.Create(context.Background(), &auth.User{
		Name:         "taken",
		Account:      "taken@example.com",
		PasswordHash: auth.RandomPasswordHash(),
	})
	require.NoError(t, err)

	auther := auth.NewAuthenticator(store, newTestTokens(t))

	_, err = auther.Register(context.Background(), "tester", "taken@example.com", "secret123")
	assert.True(t, auth.IsDuplicateAccount(err))
}

func TestActivateRejectsTakenIdentifier(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "race@example.com", "secret123")
	require.NoError(t, err)
	token := activationToken(t, *link)

	// The identifier gets taken while the token sits unused.
	_, err = store.Create(ctx, &auth.User{
		Name:         "someone else",
		Account:      "race@example.com",
		PasswordHash: auth.RandomPasswordHash(),
	})
	require.NoError(t, err)

	_, err = auther.Activate(ctx, token)
	assert.True(t, auth.IsDuplicateAccount(err))
}

func TestActivateRejectsExpiredToken(t *testing.T) {
	tokens, err := auth.NewTokenService(auth.TokenOptions{
		ActivationSecret: []byte("test-activation-secret"),
		AccessSecret:     []byte("test-access-secret"),
		RefreshSecret:    []byte("test-refresh-secret"),
		ActivationTTL:    -time.Minute,
	}, nil)
	require.NoError(t, err)

	expired, err := tokens.IssueActivation(&auth.PendingUser{
		Name:         "tester",
		Account:      "tester@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	auther := auth.NewAuthenticator(newMemStore(), newTestTokens(t))

	_, err = auther.Activate(context.Background(), expired)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	_, err = auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)

	_, err = auther.Login(ctx, "tester@example.com", "wrong-password")
	assert.True(t, auth.IsInvalidCredential(err))

	_, err = auther.Login(ctx, "nobody@example.com", "secret123")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAccountNotFound))
}

func TestLoginHintsOriginForQuickLoginAccounts(t *testing.T) {
	store := newMemStore()
	_, err := store.Create(context.Background(), &auth.User{
		Name:         "google person",
		Account:      "gperson@example.com",
		PasswordHash: auth.RandomPasswordHash(),
		Origin:       auth.OriginGoogle,
	})
	require.NoError(t, err)

	auther := auth.NewAuthenticator(store, newTestTokens(t))

	_, err = auther.Login(context.Background(), "gperson@example.com", "whatever")
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredential(err))
	assert.Contains(t, err.Error(), auth.OriginGoogle)
}

func TestRefreshRotation(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	_, err = auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)

	first, err := auther.Login(ctx, "tester@example.com", "secret123")
	require.NoError(t, err)

	second, err := auther.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The rotated-out token is dead even though it has not expired.
	_, err = auther.Refresh(ctx, first.RefreshToken)
	assert.True(t, auth.IsInvalidCredential(err))

	// The current one still works.
	_, err = auther.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestLoginRevokesPreviousSession(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	_, err = auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)

	first, err := auther.Login(ctx, "tester@example.com", "secret123")
	require.NoError(t, err)

	_, err = auther.Login(ctx, "tester@example.com", "secret123")
	require.NoError(t, err)

	_, err = auther.Refresh(ctx, first.RefreshToken)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestLogout(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	_, err = auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)

	session, err := auther.Login(ctx, "tester@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, auther.Logout(ctx, session.User.ID.String()))

	stored, err := store.GetByAccount(ctx, "tester@example.com")
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)

	_, err = auther.Refresh(ctx, session.RefreshToken)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestGoogleLogin(t *testing.T) {
	store := newMemStore()
	verifier := &MockIdentityTokenVerifier{}
	verifier.On("Verify", mock.Anything, "good-token").Return(&auth.ProviderProfile{
		Email:         "gperson@example.com",
		EmailVerified: true,
		Name:          "Google Person",
		Picture:       "https://example.com/avatar.png",
	}, nil)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithIdentityTokenVerifier(verifier),
	)

	ctx := context.Background()

	session, err := auther.GoogleLogin(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, auth.OriginGoogle, session.User.Origin)
	assert.Equal(t, "https://example.com/avatar.png", session.User.AvatarURL)
	assert.NotEmpty(t, session.User.PasswordHash)

	// Second login reuses the account instead of creating another one.
	again, err := auther.GoogleLogin(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)

	// The random credential hash makes password login impossible.
	_, err = auther.Login(ctx, "gperson@example.com", "gperson@example.com")
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestGoogleLoginRejectsUnverifiedEmail(t *testing.T) {
	store := newMemStore()
	verifier := &MockIdentityTokenVerifier{}
	verifier.On("Verify", mock.Anything, "unverified-token").Return(&auth.ProviderProfile{
		Email:         "unverified@example.com",
		EmailVerified: false,
	}, nil)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithIdentityTokenVerifier(verifier),
	)

	_, err := auther.GoogleLogin(context.Background(), "unverified-token")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUnverifiedIdentity))

	_, err = store.GetByAccount(context.Background(), "unverified@example.com")
	assert.Error(t, err)
}

func TestSMSLogin(t *testing.T) {
	store := newMemStore()
	otp := &MockOneTimeCodeService{}
	otp.On("Request", mock.Anything, "+14155552671").Return("req-1", nil)
	otp.On("Verify", mock.Anything, "+14155552671", "123456").Return(true, nil)
	otp.On("Verify", mock.Anything, "+14155552671", "999999").Return(false, nil)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithOneTimeCodeService(otp),
	)

	ctx := context.Background()

	_, err := auther.SMSLoginStart(ctx, "+14155552671")
	require.NoError(t, err)

	// Wrong code: uniform rejection, nothing persisted.
	_, err = auther.SMSLoginVerify(ctx, "+14155552671", "999999")
	assert.True(t, auth.IsInvalidCredential(err))
	_, err = store.GetByAccount(ctx, "+14155552671")
	assert.Error(t, err)

	session, err := auther.SMSLoginVerify(ctx, "+14155552671", "123456")
	require.NoError(t, err)
	assert.Equal(t, auth.OriginSMS, session.User.Origin)
	assert.Equal(t, "+14155552671", session.User.Account)

	// Second verification logs into the same account.
	again, err := auther.SMSLoginVerify(ctx, "+14155552671", "123456")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)
}

func TestForgotPassword(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	_, err = auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)

	channel, err := auther.ForgotPassword(ctx, "tester@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.ChannelEmail, channel)
	assert.Contains(t, *link, testBaseURL+"/reset_password/")

	_, err = auther.ForgotPassword(ctx, "nobody@example.com")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAccountNotFound))
}

func TestForgotPasswordRejectsQuickLoginOrigins(t *testing.T) {
	store := newMemStore()
	_, err := store.Create(context.Background(), &auth.User{
		Name:         "google person",
		Account:      "gperson@example.com",
		PasswordHash: auth.RandomPasswordHash(),
		Origin:       auth.OriginGoogle,
	})
	require.NoError(t, err)

	auther := auth.NewAuthenticator(store, newTestTokens(t))

	_, err = auther.ForgotPassword(context.Background(), "gperson@example.com")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUnsupportedOrigin))
	assert.Contains(t, err.Error(), auth.OriginGoogle)
}

func TestResetPassword(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	link := capturedLink(email)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	ctx := context.Background()

	_, err := auther.Register(ctx, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	user, err := auther.Activate(ctx, activationToken(t, *link))
	require.NoError(t, err)

	require.NoError(t, auther.ResetPassword(ctx, user.ID.String(), "fresh-password"))

	_, err = auther.Login(ctx, "tester@example.com", "secret123")
	assert.True(t, auth.IsInvalidCredential(err))

	_, err = auther.Login(ctx, "tester@example.com", "fresh-password")
	assert.NoError(t, err)
}

func TestDeliveryFailureDoesNotFailRegistration(t *testing.T) {
	store := newMemStore()
	email := &MockNotifier{}
	email.On("SendVerificationLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	auther := auth.NewAuthenticator(store, newTestTokens(t),
		auth.WithBaseURL(testBaseURL),
		auth.WithEmailNotifier(email),
	)

	_, err := auther.Register(context.Background(), "tester", "tester@example.com", "secret123")
	assert.NoError(t, err)
}
