package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	revoked, err := r.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "tok", now.Add(time.Hour)))
	revoked, _ = r.IsRevoked(ctx, "tok")
	assert.True(t, revoked)

	revoked, _ = r.IsRevoked(ctx, "other")
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, _ = r.IsRevoked(ctx, "tok")
	assert.False(t, revoked)
}

func TestMemoryRevoker_PastExpiryIgnored(t *testing.T) {
	r := NewMemoryRevoker()
	require.NoError(t, r.Revoke(context.Background(), "tok", time.Now().Add(-time.Minute)))
	assert.Empty(t, r.revoked)
}

func TestRedisRevoker(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	r := NewRedisRevoker(client, "test:revoked")

	require.NoError(t, r.Revoke(ctx, "secret-token", time.Now().Add(time.Hour)))

	revoked, err := r.IsRevoked(ctx, "secret-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	key := "test:revoked:" + tokenDigest("secret-token")
	assert.True(t, mr.Exists(key))
	assert.NotContains(t, key, "secret-token")

	mr.FastForward(2 * time.Hour)
	revoked, err = r.IsRevoked(ctx, "secret-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	r := NewRedisRevoker(client, "")
	mr.Close()

	_, err := r.IsRevoked(context.Background(), "tok")
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr, _ := setupTestRedis(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	_, err = ConnectRedis(context.Background(), "::not a url")
	assert.Error(t, err)
}
