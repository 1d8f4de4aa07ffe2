package gatekeeper_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	gatekeeper "github.com/pixelmorph/go-gatekeeper"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserStore implements gatekeeper.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*gatekeeper.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.User), args.Error(1)
}

func storedUser(t *testing.T, password string, whitelisted bool, role gatekeeper.Role) *gatekeeper.User {
	t.Helper()
	hash, err := gatekeeper.HashPassword(password)
	require.NoError(t, err)

	return &gatekeeper.User{
		ID:            uuid.New(),
		Email:         "test@example.com",
		PasswordHash:  hash,
		IsWhitelisted: whitelisted,
		Role:          role,
	}
}

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials for whitelisted user", func(t *testing.T) {
		store := new(MockUserStore)
		user := storedUser(t, "correct-password", true, gatekeeper.RoleCoOwner)
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		provider := gatekeeper.NewUserProvider(store)

		identity, err := provider.VerifyIdentity(ctx, "Test@Example.com", "correct-password")
		require.NoError(t, err)

		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "test@example.com", identity.Email())
		assert.Equal(t, gatekeeper.RoleCoOwner, identity.Role())
		assert.True(t, identity.Whitelisted())
		store.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := new(MockUserStore)
		user := storedUser(t, "correct-password", true, gatekeeper.RoleUser)
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		provider := gatekeeper.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong-password")
		assert.ErrorIs(t, err, gatekeeper.ErrMismatchedHashAndPassword)
	})

	t.Run("unknown user yields the same error as wrong password", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByEmail", ctx, "nobody@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		provider := gatekeeper.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, gatekeeper.ErrMismatchedHashAndPassword)
	})

	t.Run("valid credentials but not whitelisted", func(t *testing.T) {
		store := new(MockUserStore)
		user := storedUser(t, "correct-password", false, gatekeeper.RoleUser)
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		provider := gatekeeper.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "correct-password")
		assert.ErrorIs(t, err, gatekeeper.ErrNotWhitelisted)
	})

	t.Run("store failure surfaces as internal error", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByEmail", ctx, "test@example.com").
			Return(nil, errors.New("connection refused")).Once()

		provider := gatekeeper.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "whatever")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, gatekeeper.ErrMismatchedHashAndPassword)
	})
}

func TestUserProviderFindIdentityByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("whitelisted user resolves", func(t *testing.T) {
		store := new(MockUserStore)
		user := storedUser(t, "pwd-not-checked", true, gatekeeper.RoleAdmin)
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		provider := gatekeeper.NewUserProvider(store)

		identity, err := provider.FindIdentityByEmail(ctx, "test@example.com")
		require.NoError(t, err)
		assert.Equal(t, gatekeeper.RoleAdmin, identity.Role())
	})

	t.Run("unknown user", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByEmail", ctx, "nobody@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		provider := gatekeeper.NewUserProvider(store)

		_, err := provider.FindIdentityByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, gatekeeper.ErrIdentityNotFound)
	})

	t.Run("de-whitelisted user is rejected", func(t *testing.T) {
		store := new(MockUserStore)
		user := storedUser(t, "pwd-not-checked", false, gatekeeper.RoleUser)
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		provider := gatekeeper.NewUserProvider(store)

		_, err := provider.FindIdentityByEmail(ctx, "test@example.com")
		assert.ErrorIs(t, err, gatekeeper.ErrNotWhitelisted)
	})
}

func TestUserProviderUnknownRoleFallsBack(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserStore)
	user := storedUser(t, "correct-password", true, "superuser")
	store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

	provider := gatekeeper.NewUserProvider(store)

	identity, err := provider.VerifyIdentity(ctx, "test@example.com", "correct-password")
	require.NoError(t, err)
	assert.Equal(t, gatekeeper.RoleUser, identity.Role())
}
