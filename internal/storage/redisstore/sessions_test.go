package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

func skipIfNoRedis(t *testing.T) *SessionStore {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	store, err := NewSessionStore(context.Background(), &config.RedisConfig{
		Address:   addr,
		KeyPrefix: "xsf_test:" + uuid.NewString() + ":",
	}, nil)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
		return nil
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := skipIfNoRedis(t)
	ctx := context.Background()

	s := domain.NewSession(time.Minute)
	s.UserID = "u-1"
	s.Attributes["color"] = "blue"
	require.NoError(t, store.Save(ctx, s))

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u-1"), got.UserID)
	assert.Equal(t, "blue", got.Attributes["color"])

	ttl, err := store.client.TTL(ctx, store.sessionKey(s.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting twice is fine
	assert.NoError(t, store.Delete(ctx, s.ID))
}

func TestSessionStore_ExpiredSaveDeletes(t *testing.T) {
	store := skipIfNoRedis(t)
	ctx := context.Background()

	s := domain.NewSession(time.Minute)
	require.NoError(t, store.Save(ctx, s))

	s.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Save(ctx, s))

	_, err := store.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionStore_InvalidInput(t *testing.T) {
	store := skipIfNoRedis(t)

	err := store.Save(context.Background(), &domain.Session{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	store := skipIfNoRedis(t)

	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
