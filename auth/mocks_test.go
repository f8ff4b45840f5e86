package auth_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/mock"

	"github.com/hrj2233/blog-app-api/auth"
)

// memStore is an in-memory auth.UserStore. Flow tests need real state
// so rotation and revocation behave like they would against a database.
type memStore struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*auth.User{}}
}

func notFound() error {
	return errors.New("record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

func (s *memStore) GetByAccount(_ context.Context, account string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[account]
	if !ok {
		return nil, notFound()
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID.String() == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, notFound()
}

func (s *memStore) Create(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Account]; ok {
		return nil, auth.ErrDuplicateAccount.Clone()
	}

	user.EnsureDefaults()
	clone := *user
	s.users[user.Account] = &clone

	out := clone
	return &out, nil
}

func (s *memStore) SetRefreshToken(_ context.Context, id string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID.String() == id {
			user.RefreshToken = token
			return nil
		}
	}
	return notFound()
}

func (s *memStore) SetPasswordHash(_ context.Context, id string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID.String() == id {
			user.PasswordHash = hash
			return nil
		}
	}
	return notFound()
}

// MockNotifier implements auth.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerificationLink(ctx context.Context, destination, url, label string) error {
	args := m.Called(ctx, destination, url, label)
	return args.Error(0)
}

// MockOneTimeCodeService implements auth.OneTimeCodeService
type MockOneTimeCodeService struct {
	mock.Mock
}

func (m *MockOneTimeCodeService) Request(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *MockOneTimeCodeService) Verify(ctx context.Context, phone, code string) (bool, error) {
	args := m.Called(ctx, phone, code)
	return args.Bool(0), args.Error(1)
}

// MockIdentityTokenVerifier implements auth.IdentityTokenVerifier
type MockIdentityTokenVerifier struct {
	mock.Mock
}

func (m *MockIdentityTokenVerifier) Verify(ctx context.Context, idToken string) (*auth.ProviderProfile, error) {
	args := m.Called(ctx, idToken)
	if profile, ok := args.Get(0).(*auth.ProviderProfile); ok {
		return profile, args.Error(1)
	}
	return nil, args.Error(1)
}
