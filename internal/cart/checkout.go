package cart

import (
	"context"
	"log"
	"time"

	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/readmodel"
)

const (
	OrdersPath           = "/orders"
	DefaultCheckoutError = "Could not place the order. Please try again."
)

// CheckoutResult tells the caller where to send the user after a successful checkout
type CheckoutResult struct {
	Redirect string `json:"redirect"`
}

// Checkout places the order for the current server cart. Totals and stock
// are validated by the server only. A failed checkout leaves the cache as it was.
//
// The CheckoutCompleted event is built from the server cart read just before
// the order is placed, never from the cache, which may be empty or stale.
// When that read fails the order is still placed but no event is recorded.
func (s *Store) Checkout(ctx context.Context) (CheckoutResult, error) {
	s.touch()
	snapshot, err := s.svc.GetCart(ctx, s.userID)
	if err != nil {
		log.Printf("[Cart] could not read cart of user %s before checkout: %v", s.userID, err)
	}

	if err := s.svc.Checkout(ctx, s.userID); err != nil {
		log.Printf("[Cart] checkout failed for user %s: %v", s.userID, err)
		s.record(ctx, EventCheckoutFailed, CheckoutFailed{
			UserID:   s.userID,
			Status:   backend.StatusOf(err),
			Message:  CheckoutMessage(err),
			FailedAt: time.Now(),
		})
		return CheckoutResult{}, err
	}

	if snapshot != nil {
		s.record(ctx, EventCheckoutCompleted, s.completedEvent(snapshot))
	}

	// The order exists; a failed refresh is not a failed checkout.
	if err := s.LoadCart(ctx); err != nil {
		log.Printf("[Cart] reload after checkout failed for user %s: %v", s.userID, err)
	}

	log.Printf("[Cart] checkout completed for user %s", s.userID)
	return CheckoutResult{Redirect: OrdersPath}, nil
}

func (s *Store) completedEvent(snapshot *readmodel.Cart) CheckoutCompleted {
	s.mu.Lock()
	email, fullName := s.email, s.fullName
	s.mu.Unlock()

	e := CheckoutCompleted{
		UserID:      s.userID,
		Email:       email,
		FullName:    fullName,
		Items:       []CheckoutLine{},
		CompletedAt: time.Now(),
	}
	e.ItemCount = snapshot.ItemCount()
	e.Total = snapshot.DisplayTotal()
	for _, item := range snapshot.Items {
		e.Items = append(e.Items, CheckoutLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.DisplaySubtotal(),
		})
	}
	return e
}

// CheckoutMessage is the text shown after a failed checkout: the server's
// own message when it sent one, otherwise a generic one.
func CheckoutMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := backend.ServerMessage(err); msg != "" {
		return msg
	}
	return DefaultCheckoutError
}
