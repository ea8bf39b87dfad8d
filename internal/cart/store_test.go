package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/infrastructure/store/mocks"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService is an in-memory cart server
type fakeService struct {
	mu     sync.Mutex
	items  []readmodel.CartItem
	nextID int64
	prices map[int64]decimal.Decimal
	calls  map[string]int

	getErr      error
	addErr      error
	removeErr   error
	updateErr   error
	checkoutErr error

	// getGates[n] blocks the n-th GetCart call (0-based) after it has read state
	getGates map[int]chan struct{}
}

func newFakeService() *fakeService {
	return &fakeService{
		nextID:   100,
		prices:   map[int64]decimal.Decimal{1: decimal.NewFromInt(250), 2: decimal.RequireFromString("19.99")},
		calls:    map[string]int{},
		getGates: map[int]chan struct{}{},
	}
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) snapshotLocked() *readmodel.Cart {
	cart := &readmodel.Cart{Items: []readmodel.CartItem{}}
	total := decimal.Zero
	for _, item := range f.items {
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
		cart.Items = append(cart.Items, item)
	}
	cart.Total = total
	return cart
}

func (f *fakeService) GetCart(_ context.Context, _ string) (*readmodel.Cart, error) {
	f.mu.Lock()
	n := f.calls["get"]
	f.calls["get"]++
	if f.getErr != nil {
		err := f.getErr
		f.mu.Unlock()
		return nil, err
	}
	cart := f.snapshotLocked()
	gate := f.getGates[n]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return cart, nil
}

func (f *fakeService) AddItem(_ context.Context, _ string, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["add"]++
	if f.addErr != nil {
		return f.addErr
	}
	for i := range f.items {
		if f.items[i].ProductID == productID {
			f.items[i].Quantity += quantity
			return nil
		}
	}
	f.nextID++
	f.items = append(f.items, readmodel.CartItem{
		ID:          f.nextID,
		ProductID:   productID,
		ProductName: "product",
		Price:       f.prices[productID],
		Quantity:    quantity,
	})
	return nil
}

func (f *fakeService) RemoveItem(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["remove"]++
	if f.removeErr != nil {
		return f.removeErr
	}
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: 404, Message: "item not found"}
}

func (f *fakeService) UpdateQuantity(_ context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Quantity = quantity
			return nil
		}
	}
	return &backend.APIError{Status: 404, Message: "item not found"}
}

func (f *fakeService) Checkout(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["checkout"]++
	if f.checkoutErr != nil {
		return f.checkoutErr
	}
	f.items = nil
	return nil
}

func loadedStore(t *testing.T, svc *fakeService, opts ...Option) *Store {
	t.Helper()
	s := NewStore(svc, "user-1", opts...)
	require.NoError(t, s.LoadCart(context.Background()))
	return s
}

// ============================================
// LoadCart Tests
// ============================================

func TestStore_CartNilBeforeLoad(t *testing.T) {
	s := NewStore(newFakeService(), "user-1")
	assert.Nil(t, s.Cart())
	assert.False(t, s.Loading())
}

func TestStore_LoadCart(t *testing.T) {
	svc := newFakeService()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 2))

	s := loadedStore(t, svc)

	cart := s.Cart()
	require.NotNil(t, cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(500).Equal(cart.Total))
}

func TestStore_LoadCart_FailureKeepsCache(t *testing.T) {
	svc := newFakeService()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 1))
	s := loadedStore(t, svc)
	before := s.Cart()

	svc.getErr = &backend.APIError{Status: 0, Message: "connection refused"}
	err := s.LoadCart(context.Background())

	assert.True(t, backend.IsNetwork(err))
	assert.Equal(t, before, s.Cart())
	assert.False(t, s.Loading())
}

func TestStore_LoadingWhileInFlight(t *testing.T) {
	svc := newFakeService()
	gate := make(chan struct{})
	svc.getGates[0] = gate
	s := NewStore(svc, "user-1")

	done := make(chan error)
	go func() { done <- s.LoadCart(context.Background()) }()

	assert.Eventually(t, s.Loading, time.Second, time.Millisecond)
	close(gate)
	require.NoError(t, <-done)
	assert.False(t, s.Loading())
}

func TestStore_StaleResponseNeverOverwritesNewer(t *testing.T) {
	svc := newFakeService()
	gate := make(chan struct{})
	svc.getGates[0] = gate
	s := NewStore(svc, "user-1")
	ctx := context.Background()

	// First fetch reads the empty cart, then stalls.
	first := make(chan error)
	go func() { first <- s.LoadCart(ctx) }()
	assert.Eventually(t, func() bool { return svc.count("get") == 1 }, time.Second, time.Millisecond)

	// Second fetch sees the added item and lands first.
	require.NoError(t, svc.AddItem(ctx, "user-1", 1, 3))
	require.NoError(t, s.LoadCart(ctx))
	require.Len(t, s.Cart().Items, 1)

	close(gate)
	require.NoError(t, <-first)

	cart := s.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

// ============================================
// Mutation Tests
// ============================================

func TestStore_MutationsMatchServer(t *testing.T) {
	svc := newFakeService()
	s := loadedStore(t, svc)
	ctx := context.Background()

	require.NoError(t, s.AddProduct(ctx, 1))
	require.NoError(t, s.AddProduct(ctx, 2))
	require.NoError(t, s.AddProduct(ctx, 1))
	itemID := s.Cart().Items[1].ID
	require.NoError(t, s.UpdateQuantity(ctx, itemID, 5))
	require.NoError(t, s.RemoveItem(ctx, s.Cart().Items[0].ID))

	afterMutations := s.Cart()
	fresh := NewStore(svc, "user-1")
	require.NoError(t, fresh.LoadCart(ctx))

	assert.Equal(t, fresh.Cart(), afterMutations)
	require.Len(t, afterMutations.Items, 1)
	assert.Equal(t, 5, afterMutations.Items[0].Quantity)
}

func TestStore_AddProductAddsOneUnit(t *testing.T) {
	svc := newFakeService()
	s := loadedStore(t, svc)

	require.NoError(t, s.AddProduct(context.Background(), 2))

	cart := s.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestStore_UpdateQuantityBelowOneIsNoop(t *testing.T) {
	svc := newFakeService()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 2))
	s := loadedStore(t, svc)
	before := s.Cart()
	gets := svc.count("get")

	for _, q := range []int{0, -1, -50} {
		require.NoError(t, s.UpdateQuantity(context.Background(), before.Items[0].ID, q))
	}

	assert.Equal(t, 0, svc.count("update"))
	assert.Equal(t, gets, svc.count("get"))
	assert.Equal(t, before, s.Cart())
}

func TestStore_WriteFailureSkipsRefetch(t *testing.T) {
	svc := newFakeService()
	s := loadedStore(t, svc)
	gets := svc.count("get")
	svc.addErr = &backend.APIError{Status: 400, Message: "out of stock"}

	err := s.AddProduct(context.Background(), 1)

	assert.True(t, backend.IsStatus(err, 400))
	assert.Equal(t, gets, svc.count("get"))
	assert.Empty(t, s.Cart().Items)
}

func TestStore_RefetchFailureIsReturned(t *testing.T) {
	svc := newFakeService()
	s := loadedStore(t, svc)
	svc.getErr = &backend.APIError{Status: 500, Message: "HTTP 500"}

	err := s.AddProduct(context.Background(), 1)

	assert.True(t, backend.IsStatus(err, 500))
	assert.Equal(t, 1, svc.count("add"))
}

func TestStore_SubscribersNotified(t *testing.T) {
	svc := newFakeService()
	s := NewStore(svc, "user-1")

	var mu sync.Mutex
	var seen []int
	cancel := s.Subscribe(func(c *readmodel.Cart) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.ItemCount())
	})

	ctx := context.Background()
	require.NoError(t, s.LoadCart(ctx))
	require.NoError(t, s.AddProduct(ctx, 1))
	cancel()
	require.NoError(t, s.AddProduct(ctx, 2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1}, seen)
}

func TestStore_CartReturnsCopy(t *testing.T) {
	svc := newFakeService()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 1))
	s := loadedStore(t, svc)

	c := s.Cart()
	c.Items[0].Quantity = 99

	assert.Equal(t, 1, s.Cart().Items[0].Quantity)
}

// ============================================
// Checkout Tests
// ============================================

func TestStore_Checkout_Success(t *testing.T) {
	svc := newFakeService()
	recorder := mocks.NewMockEventStore()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 2))
	s := loadedStore(t, svc, WithRecorder(recorder))
	s.Identify("ana@example.com", "Ana")

	result, err := s.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/orders", result.Redirect)
	assert.True(t, s.Cart().IsEmpty())

	calls := recorder.CallsOfType(EventCheckoutCompleted)
	require.Len(t, calls, 1)
	assert.Equal(t, "user-1", calls[0].AggregateID)
	assert.Equal(t, AggregateType, calls[0].AggregateType)
	event := calls[0].Data.(CheckoutCompleted)
	assert.Equal(t, "ana@example.com", event.Email)
	assert.Equal(t, 1, event.ItemCount)
	assert.True(t, decimal.NewFromInt(500).Equal(event.Total))
	require.Len(t, event.Items, 1)
	assert.Equal(t, 2, event.Items[0].Quantity)
}

func TestStore_Checkout_FailureKeepsCart(t *testing.T) {
	svc := newFakeService()
	recorder := mocks.NewMockEventStore()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 2))
	s := loadedStore(t, svc, WithRecorder(recorder))
	before := s.Cart()
	svc.checkoutErr = &backend.APIError{
		Status:  409,
		Message: "Insufficient stock",
		Body:    map[string]any{"message": "Insufficient stock"},
	}

	result, err := s.Checkout(context.Background())

	require.Error(t, err)
	assert.Empty(t, result.Redirect)
	assert.Equal(t, before, s.Cart())
	assert.Equal(t, "Insufficient stock", CheckoutMessage(err))

	calls := recorder.CallsOfType(EventCheckoutFailed)
	require.Len(t, calls, 1)
	assert.Equal(t, 409, calls[0].Data.(CheckoutFailed).Status)
}

func TestStore_Checkout_RecorderFailureIgnored(t *testing.T) {
	svc := newFakeService()
	recorder := mocks.NewMockEventStore()
	recorder.AppendErr = errors.New("db down")
	s := loadedStore(t, svc, WithRecorder(recorder))

	_, err := s.Checkout(context.Background())

	assert.NoError(t, err)
}

func TestStore_Checkout_ReadFailureStillSucceeds(t *testing.T) {
	svc := newFakeService()
	recorder := mocks.NewMockEventStore()
	s := loadedStore(t, svc, WithRecorder(recorder))
	svc.getErr = errors.New("timeout")

	result, err := s.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OrdersPath, result.Redirect)
	assert.Equal(t, 1, svc.count("checkout"))
	// nothing trustworthy to put in the event
	assert.Empty(t, recorder.CallsOfType(EventCheckoutCompleted))
}

func TestStore_Checkout_WithoutPriorLoad(t *testing.T) {
	svc := newFakeService()
	recorder := mocks.NewMockEventStore()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 2, 3))
	s := NewStore(svc, "user-1", WithRecorder(recorder))
	s.Identify("ana@example.com", "Ana")
	require.Nil(t, s.Cart())

	_, err := s.Checkout(context.Background())
	require.NoError(t, err)

	calls := recorder.CallsOfType(EventCheckoutCompleted)
	require.Len(t, calls, 1)
	event := calls[0].Data.(CheckoutCompleted)
	assert.Equal(t, 1, event.ItemCount)
	assert.True(t, decimal.RequireFromString("59.97").Equal(event.Total))
	require.Len(t, event.Items, 1)
	assert.Equal(t, int64(2), event.Items[0].ProductID)
	assert.Equal(t, 3, event.Items[0].Quantity)
}

func TestStore_Checkout_StaleCacheNotRecorded(t *testing.T) {
	svc := newFakeService()
	recorder := mocks.NewMockEventStore()
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 1, 1))
	s := loadedStore(t, svc, WithRecorder(recorder))

	// another tab adds a product behind this store's back
	require.NoError(t, svc.AddItem(context.Background(), "user-1", 2, 1))

	_, err := s.Checkout(context.Background())
	require.NoError(t, err)

	calls := recorder.CallsOfType(EventCheckoutCompleted)
	require.Len(t, calls, 1)
	event := calls[0].Data.(CheckoutCompleted)
	assert.Equal(t, 2, event.ItemCount)
	assert.True(t, decimal.RequireFromString("269.99").Equal(event.Total))
}

func TestCheckoutMessage(t *testing.T) {
	assert.Empty(t, CheckoutMessage(nil))
	assert.Equal(t, DefaultCheckoutError, CheckoutMessage(errors.New("boom")))
	assert.Equal(t, DefaultCheckoutError, CheckoutMessage(&backend.APIError{Status: 500, Message: "HTTP 500"}))
	assert.Equal(t, "Cart is empty", CheckoutMessage(&backend.APIError{Status: 400, Body: map[string]any{"error": "Cart is empty"}}))
}
