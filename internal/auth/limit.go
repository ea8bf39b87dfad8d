package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limit allows Attempts per key in each fixed Window
type Limit struct {
	Attempts int
	Window   time.Duration
}

// DefaultResetLimit bounds password resets per account and per client
var DefaultResetLimit = Limit{Attempts: 5, Window: 15 * time.Minute}

// LimitResult is the outcome of one attempt
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts attempts against a Limit
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitResult, error)
}

type window struct {
	count int
	reset time.Time
}

// MemoryLimiter counts attempts in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   Limit
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(limit Limit) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (LimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, w := range m.windows {
		if !now.Before(w.reset) {
			delete(m.windows, k)
		}
	}

	w, ok := m.windows[key]
	if !ok {
		w = &window{reset: now.Add(m.limit.Window)}
		m.windows[key] = w
	}
	w.count++
	if w.count > m.limit.Attempts {
		return LimitResult{RetryAfter: w.reset.Sub(now)}, nil
	}
	return LimitResult{Allowed: true}, nil
}

// RedisLimiter shares attempt counters between storefront instances
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     Limit
}

func NewRedisLimiter(client *redis.Client, keyPrefix string, limit Limit) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "storefront:limit"
	}
	return &RedisLimiter{client: client, keyPrefix: keyPrefix, limit: limit}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (LimitResult, error) {
	k := r.keyPrefix + ":" + key
	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return LimitResult{}, fmt.Errorf("failed to count attempt: %w", err)
	}
	if n == 1 {
		if err := r.client.PExpire(ctx, k, r.limit.Window).Err(); err != nil {
			return LimitResult{}, fmt.Errorf("failed to start limit window: %w", err)
		}
	}
	if n <= int64(r.limit.Attempts) {
		return LimitResult{Allowed: true}, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = r.limit.Window
	}
	return LimitResult{RetryAfter: ttl}, nil
}
