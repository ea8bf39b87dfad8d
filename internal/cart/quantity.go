package cart

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

var ErrUpdateInFlight = errors.New("quantity update already in progress")

// QuantityControl holds the editable quantity of one cart line. Typing only
// changes the local value; the server is called on Commit.
type QuantityControl struct {
	store  *Store
	itemID int64

	mu        sync.Mutex
	value     int
	confirmed int
	updating  bool
}

func newQuantityControl(s *Store, itemID int64, quantity int) *QuantityControl {
	return &QuantityControl{
		store:     s,
		itemID:    itemID,
		value:     quantity,
		confirmed: quantity,
	}
}

func (q *QuantityControl) ItemID() int64 {
	return q.itemID
}

// Value is the local, possibly uncommitted quantity
func (q *QuantityControl) Value() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.value
}

// Confirmed is the last quantity the server accepted
func (q *QuantityControl) Confirmed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.confirmed
}

func (q *QuantityControl) Updating() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.updating
}

// Input applies a keystroke-level edit. Empty input becomes 1; anything that
// is not a positive integer keeps the previous value.
func (q *QuantityControl) Input(raw string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.updating {
		return ErrUpdateInFlight
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		q.value = 1
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil
	}
	q.value = n
	return nil
}

// Commit sends the local value to the server when it differs from the
// confirmed one. On failure the local value reverts.
func (q *QuantityControl) Commit(ctx context.Context) error {
	q.mu.Lock()
	if q.updating {
		q.mu.Unlock()
		return ErrUpdateInFlight
	}
	return q.commitLocked(ctx)
}

// Increase adds one and commits
func (q *QuantityControl) Increase(ctx context.Context) error {
	q.mu.Lock()
	if q.updating {
		q.mu.Unlock()
		return ErrUpdateInFlight
	}
	q.value++
	return q.commitLocked(ctx)
}

// Decrease removes one and commits; it does nothing at 1
func (q *QuantityControl) Decrease(ctx context.Context) error {
	q.mu.Lock()
	if q.updating {
		q.mu.Unlock()
		return ErrUpdateInFlight
	}
	if q.value <= 1 {
		q.mu.Unlock()
		return nil
	}
	q.value--
	return q.commitLocked(ctx)
}

// commitLocked must be called with q.mu held; it releases it
func (q *QuantityControl) commitLocked(ctx context.Context) error {
	if q.value < 1 {
		q.value = 1
	}
	if q.value == q.confirmed {
		q.mu.Unlock()
		return nil
	}
	target := q.value
	q.updating = true
	q.mu.Unlock()

	err := q.store.UpdateQuantity(ctx, q.itemID, target)

	// Read the store before taking q.mu; the store locks controls while syncing.
	serverQty := target
	if err == nil {
		if item, ok := q.store.Cart().Item(q.itemID); ok {
			serverQty = item.Quantity
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.updating = false
	if err != nil {
		q.value = q.confirmed
		return err
	}
	q.value = serverQty
	q.confirmed = serverQty
	return nil
}

// Sync adopts a quantity observed on the server unless an update is in flight
func (q *QuantityControl) Sync(quantity int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.updating || quantity == q.confirmed {
		return
	}
	q.value = quantity
	q.confirmed = quantity
}
