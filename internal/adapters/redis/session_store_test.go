package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/applyflow/applyflow-api/internal/domain/auth"
	"github.com/applyflow/applyflow-api/internal/testutil"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := testutil.NewTestRedis(t)

	store := NewSessionStore(client)
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "test-session-1",
		UserID:    "user-123",
		Username:  "ada",
		Email:     "user@example.com",
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	err := store.Save(ctx, session)
	require.NoError(t, err)

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, session.UserID, retrieved.UserID)
	assert.Equal(t, session.Username, retrieved.Username)
	assert.Equal(t, session.Email, retrieved.Email)
	assert.WithinDuration(t, session.ExpiresAt, retrieved.ExpiresAt, time.Second)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	client := testutil.NewTestRedis(t)

	store := NewSessionStore(client)
	_, err := store.Get(context.Background(), "non-existent")
	assert.Equal(t, ErrNotFound, err)
}

func TestSessionStore_RejectsExpired(t *testing.T) {
	client := testutil.NewTestRedis(t)

	store := NewSessionStore(client)
	ctx := context.Background()

	err := store.Save(ctx, domainauth.Session{
		ID:        "expired",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSessionStore_Delete(t *testing.T) {
	client := testutil.NewTestRedis(t)

	store := NewSessionStore(client)
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "to-delete",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	require.NoError(t, store.Delete(ctx, "to-delete"))
	_, err := store.Get(ctx, "to-delete")
	assert.Equal(t, ErrNotFound, err)

	// Deleting a missing session is a no-op.
	require.NoError(t, store.Delete(ctx, "to-delete"))
	require.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_CustomPrefix(t *testing.T) {
	client := testutil.NewTestRedis(t)

	store := NewSessionStoreWithPrefix(client, "applyflow:sess:")
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "prefixed",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "prefixed")
	require.NoError(t, err)
	assert.Equal(t, "user-123", got.UserID)

	exists, err := client.Exists(ctx, "applyflow:sess:prefixed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
