package gatekeeper_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	gatekeeper "github.com/pixelmorph/go-gatekeeper"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAuthenticator implements gatekeeper.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) LoginWithMagicToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (gatekeeper.Session, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gatekeeper.Session), args.Error(1)
}

func (m *MockAuthenticator) IdentityFromSession(ctx context.Context, session gatekeeper.Session) (gatekeeper.Identity, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gatekeeper.Identity), args.Error(1)
}

// MockHTTPAuthenticator implements gatekeeper.HTTPAuthenticator
type MockHTTPAuthenticator struct {
	mock.Mock
}

func (m *MockHTTPAuthenticator) Login(c router.Context, payload gatekeeper.LoginPayload) error {
	args := m.Called(c, payload)
	return args.Error(0)
}

func (m *MockHTTPAuthenticator) LoginWithMagicToken(c router.Context, token string) error {
	args := m.Called(c, token)
	return args.Error(0)
}

func (m *MockHTTPAuthenticator) Logout(c router.Context) {
	m.Called(c)
}

func (m *MockHTTPAuthenticator) SetRedirect(c router.Context) {
	m.Called(c)
}

func (m *MockHTTPAuthenticator) GetRedirect(c router.Context, def ...string) string {
	args := m.Called(c, def)
	return args.String(0)
}

func (m *MockHTTPAuthenticator) GetRedirectOrDefault(c router.Context) string {
	args := m.Called(c)
	return args.String(0)
}

// noopLogger keeps handler error paths quiet in tests
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// stubUsersRepo overrides only the calls a test needs; anything else panics
// through the embedded nil interface.
type stubUsersRepo struct {
	gatekeeper.Users

	registerTx      func(ctx context.Context, tx bun.IDB, user *gatekeeper.User) (*gatekeeper.User, error)
	updateWhitelist func(ctx context.Context, id uuid.UUID, whitelisted bool) (*gatekeeper.User, error)
	updateRole      func(ctx context.Context, id uuid.UUID, role gatekeeper.Role) (*gatekeeper.User, error)
	deleteByID      func(ctx context.Context, id uuid.UUID) error
	list            func(ctx context.Context, opts gatekeeper.ListOptions) ([]*gatekeeper.User, int, error)
}

func (s *stubUsersRepo) RegisterTx(ctx context.Context, tx bun.IDB, user *gatekeeper.User) (*gatekeeper.User, error) {
	return s.registerTx(ctx, tx, user)
}

func (s *stubUsersRepo) UpdateWhitelist(ctx context.Context, id uuid.UUID, whitelisted bool) (*gatekeeper.User, error) {
	return s.updateWhitelist(ctx, id, whitelisted)
}

func (s *stubUsersRepo) UpdateRole(ctx context.Context, id uuid.UUID, role gatekeeper.Role) (*gatekeeper.User, error) {
	return s.updateRole(ctx, id, role)
}

func (s *stubUsersRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, id)
}

func (s *stubUsersRepo) List(ctx context.Context, opts gatekeeper.ListOptions) ([]*gatekeeper.User, int, error) {
	return s.list(ctx, opts)
}

// stubRepoManager hands out the stub users repository and runs transaction
// bodies directly without a database.
type stubRepoManager struct {
	gatekeeper.RepositoryManager
	users gatekeeper.Users
}

func (s stubRepoManager) Users() gatekeeper.Users { return s.users }

func (s stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}
