package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(Limit{Attempts: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "reset:ana@example.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "reset:ana@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)

	other, err := l.Allow(ctx, "reset:bob@example.com")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "reset:ana@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	l := NewRedisLimiter(client, "test:limit", Limit{Attempts: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Minute)
	assert.True(t, mr.Exists("test:limit:ip:10.0.0.1"))

	mr.FastForward(2 * time.Minute)
	res, err = l.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLimiter(client, "", DefaultResetLimit)
	mr.Close()

	_, err := l.Allow(context.Background(), "ip:10.0.0.1")
	assert.Error(t, err)
}
