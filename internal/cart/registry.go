package cart

import (
	"context"
	"log"
	"sync"
	"time"
)

const janitorInterval = time.Minute

// Registry hands out one Store per user and drops stores nobody has used
// for idleTTL. Stores are never shared between users.
type Registry struct {
	svc     Service
	idleTTL time.Duration
	opts    []Option

	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry(svc Service, idleTTL time.Duration, opts ...Option) *Registry {
	return &Registry{
		svc:     svc,
		idleTTL: idleTTL,
		opts:    opts,
		stores:  make(map[string]*Store),
	}
}

// For returns the store of userID, creating it on first use
func (r *Registry) For(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = NewStore(r.svc, userID, r.opts...)
		r.stores[userID] = s
	}
	s.touch()
	return s
}

// Forget drops the store of userID, e.g. on logout
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Run evicts idle stores until ctx is done
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.evictIdle(now); n > 0 {
				log.Printf("[Cart] evicted %d idle cart stores", n)
			}
		}
	}
}

// evictIdle removes stores idle longer than idleTTL that have no subscribers
func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, s := range r.stores {
		if now.Sub(s.idleSince()) < r.idleTTL || s.subscriberCount() > 0 {
			continue
		}
		delete(r.stores, userID)
		evicted++
	}
	return evicted
}
