package gatekeeper_test

import (
	"context"
	"testing"
	"time"

	gatekeeper "github.com/pixelmorph/go-gatekeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStoreSaveAndConsume(t *testing.T) {
	ctx := context.Background()
	store := gatekeeper.NewMemoryTokenStore()

	err := store.Save(ctx, "tok-1", "User@Example.com", time.Now().Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	email, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryTokenStoreConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := gatekeeper.NewMemoryTokenStore()

	require.NoError(t, store.Save(ctx, "tok-1", "user@example.com", time.Now().Add(15*time.Minute)))

	_, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "tok-1")
	assert.ErrorIs(t, err, gatekeeper.ErrMagicTokenInvalid)
}

func TestMemoryTokenStoreConsumeUnknownToken(t *testing.T) {
	store := gatekeeper.NewMemoryTokenStore()

	_, err := store.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, gatekeeper.ErrMagicTokenInvalid)
}

func TestMemoryTokenStoreRejectsExpired(t *testing.T) {
	ctx := context.Background()

	now := time.Now()
	store := gatekeeper.NewMemoryTokenStore().WithClock(func() time.Time { return now })

	require.NoError(t, store.Save(ctx, "tok-1", "user@example.com", now.Add(15*time.Minute)))

	// move past the expiry without waiting for the eviction timer
	now = now.Add(16 * time.Minute)

	_, err := store.Consume(ctx, "tok-1")
	assert.ErrorIs(t, err, gatekeeper.ErrMagicTokenInvalid)
	assert.Equal(t, 0, store.Len())
}

func TestTokenExpiryBoundary(t *testing.T) {
	ctx := context.Background()

	issued := time.Now()
	expiresAt := issued.Add(15 * time.Minute)

	t.Run("token is dead exactly at its expiry", func(t *testing.T) {
		now := expiresAt
		store := gatekeeper.NewMemoryTokenStore().WithClock(func() time.Time { return now })

		require.NoError(t, store.Save(ctx, "tok-1", "user@example.com", expiresAt))

		_, err := store.Consume(ctx, "tok-1")
		assert.ErrorIs(t, err, gatekeeper.ErrMagicTokenInvalid)
	})

	t.Run("token is live just before its expiry", func(t *testing.T) {
		now := expiresAt.Add(-time.Nanosecond)
		store := gatekeeper.NewMemoryTokenStore().WithClock(func() time.Time { return now })

		require.NoError(t, store.Save(ctx, "tok-1", "user@example.com", expiresAt))

		email, err := store.Consume(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", email)
	})

	t.Run("model agrees with the store", func(t *testing.T) {
		record := &gatekeeper.MagicToken{ExpiresAt: expiresAt}

		assert.False(t, record.Expired(expiresAt.Add(-time.Nanosecond)))
		assert.True(t, record.Expired(expiresAt))
		assert.True(t, record.Expired(expiresAt.Add(time.Nanosecond)))
	})
}

func TestMemoryTokenStoreSaveReplacesToken(t *testing.T) {
	ctx := context.Background()
	store := gatekeeper.NewMemoryTokenStore()

	require.NoError(t, store.Save(ctx, "tok-1", "first@example.com", time.Now().Add(15*time.Minute)))
	require.NoError(t, store.Save(ctx, "tok-1", "second@example.com", time.Now().Add(15*time.Minute)))
	assert.Equal(t, 1, store.Len())

	email, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", email)
}
