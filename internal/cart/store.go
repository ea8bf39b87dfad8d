package cart

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
)

// Service is the remote cart API. *backend.CartService implements it.
type Service interface {
	GetCart(ctx context.Context, userID string) (*readmodel.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) error
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) error
	Checkout(ctx context.Context, userID string) error
}

type Option func(*Store)

// WithRecorder appends checkout events to es
func WithRecorder(es store.EventStoreInterface) Option {
	return func(s *Store) { s.recorder = es }
}

// Store caches one user's server cart. Every mutation goes to the server
// first and is followed by a re-fetch; the cache only ever holds a server
// response.
type Store struct {
	svc      Service
	userID   string
	recorder store.EventStoreInterface

	mu          sync.Mutex
	cart        *readmodel.Cart
	email       string
	fullName    string
	inflight    int
	nextVersion uint64
	applied     uint64
	nextSubID   int
	subscribers map[int]func(*readmodel.Cart)
	controls    map[int64]*QuantityControl
	lastUsed    time.Time
}

func NewStore(svc Service, userID string, opts ...Option) *Store {
	s := &Store{
		svc:         svc,
		userID:      userID,
		subscribers: make(map[int]func(*readmodel.Cart)),
		controls:    make(map[int64]*QuantityControl),
		lastUsed:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) UserID() string {
	return s.userID
}

// Identify sets the contact details carried by checkout events
func (s *Store) Identify(email, fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
	s.fullName = fullName
}

// Cart returns a copy of the cached cart, or nil before the first successful load
func (s *Store) Cart() *readmodel.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Loading reports whether a fetch is in flight
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Subscribe registers fn to receive the cart after every applied change
func (s *Store) Subscribe(fn func(*readmodel.Cart)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Store) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// LoadCart fetches the cart and replaces the cache with the response.
// On failure the cache is left as it was and the error is returned.
func (s *Store) LoadCart(ctx context.Context) error {
	s.mu.Lock()
	s.nextVersion++
	version := s.nextVersion
	s.inflight++
	s.lastUsed = time.Now()
	s.mu.Unlock()

	cart, err := s.svc.GetCart(ctx, s.userID)

	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.mu.Unlock()
		log.Printf("[Cart] load failed for user %s: %v", s.userID, err)
		return err
	}
	if version <= s.applied {
		// A newer fetch already landed.
		s.mu.Unlock()
		return nil
	}
	s.applied = version
	s.cart = cart
	s.syncControlsLocked()
	subs := make([]func(*readmodel.Cart), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cart.Clone())
	}
	return nil
}

// AddProduct adds one unit of productID, then re-fetches
func (s *Store) AddProduct(ctx context.Context, productID int64) error {
	if err := s.svc.AddItem(ctx, s.userID, productID, 1); err != nil {
		log.Printf("[Cart] add product %d failed for user %s: %v", productID, s.userID, err)
		return err
	}
	return s.LoadCart(ctx)
}

// RemoveItem deletes a cart line, then re-fetches
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	if err := s.svc.RemoveItem(ctx, itemID); err != nil {
		log.Printf("[Cart] remove item %d failed for user %s: %v", itemID, s.userID, err)
		return err
	}
	return s.LoadCart(ctx)
}

// UpdateQuantity sets a line's quantity, then re-fetches.
// Quantities below 1 are ignored without contacting the server.
func (s *Store) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}
	if err := s.svc.UpdateQuantity(ctx, itemID, quantity); err != nil {
		log.Printf("[Cart] update item %d to %d failed for user %s: %v", itemID, quantity, s.userID, err)
		return err
	}
	return s.LoadCart(ctx)
}

// Control returns the quantity control for item, creating it on first use
func (s *Store) Control(item readmodel.CartItem) *QuantityControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controls[item.ID]; ok {
		return c
	}
	c := newQuantityControl(s, item.ID, item.Quantity)
	s.controls[item.ID] = c
	return c
}

// ControlFor looks up itemID in the cached cart and returns its control
func (s *Store) ControlFor(itemID int64) (*QuantityControl, bool) {
	s.mu.Lock()
	item, ok := s.cart.Item(itemID)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.Control(item), true
}

func (s *Store) syncControlsLocked() {
	for id, c := range s.controls {
		item, ok := s.cart.Item(id)
		if !ok {
			delete(s.controls, id)
			continue
		}
		c.Sync(item.Quantity)
	}
}

func (s *Store) record(ctx context.Context, eventType string, data any) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Append(ctx, s.userID, AggregateType, eventType, data); err != nil {
		log.Printf("[Cart] failed to record %s for user %s: %v", eventType, s.userID, err)
	}
}
