package order

import (
	"errors"
	"fmt"

	"github.com/example/ec-storefront/internal/readmodel"
)

var (
	ErrInvalidStatus  = errors.New("invalid order status transition")
	ErrUnknownStatus  = errors.New("unknown order status")
	ErrOrderCancelled = errors.New("order is already cancelled")
)

// validTransitions mirrors what the admin screen offers. The backend
// remains the authority; this only saves a doomed round trip.
var validTransitions = map[readmodel.OrderStatus][]readmodel.OrderStatus{
	readmodel.OrderPending:    {readmodel.OrderProcessing, readmodel.OrderCancelled},
	readmodel.OrderProcessing: {readmodel.OrderShipped, readmodel.OrderCancelled},
	readmodel.OrderShipped:    {readmodel.OrderDelivered, readmodel.OrderCancelled},
	readmodel.OrderDelivered:  {readmodel.OrderCancelled},
	readmodel.OrderCancelled:  {}, // terminal state
}

// AllowedTransitions returns the statuses current may move to
func AllowedTransitions(current readmodel.OrderStatus) []readmodel.OrderStatus {
	return append([]readmodel.OrderStatus(nil), validTransitions[current]...)
}

func CanTransition(from, to readmodel.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition explains why from -> to is not allowed
func ValidateTransition(from, to readmodel.OrderStatus) error {
	switch {
	case !from.Valid() || !to.Valid():
		return fmt.Errorf("%w: %d -> %d", ErrUnknownStatus, from, to)
	case from == readmodel.OrderCancelled:
		return ErrOrderCancelled
	case !CanTransition(from, to):
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, to)
	}
	return nil
}
