package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/ec-storefront/internal/cart"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/store"
)

// Handler processes storefront events for sending notifications
type Handler struct {
	sender email.Sender
}

// NewHandler creates a new notification handler
func NewHandler(sender email.Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	// Only completed checkouts send mail
	if event.EventType == cart.EventCheckoutCompleted {
		return h.handleCheckoutCompleted(event)
	}

	return nil
}

func (h *Handler) handleCheckoutCompleted(event store.Event) error {
	var e cart.CheckoutCompleted
	if err := event.Decode(&e); err != nil {
		log.Printf("[Notifier] %v", err)
		return err
	}

	log.Printf("[Notifier] Processing CheckoutCompleted for user %s (%d lines)", e.UserID, e.ItemCount)

	if e.Email == "" {
		log.Printf("[Notifier] No e-mail known for user %s, skipping confirmation", e.UserID)
		return nil
	}
	if len(e.Items) == 0 {
		log.Printf("[Notifier] Checkout of user %s has no lines, skipping confirmation", e.UserID)
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, line := range e.Items {
		items[i] = email.OrderItem{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Subtotal:  line.Subtotal,
		}
	}

	if err := h.sender.SendCheckoutConfirmation(e.Email, e.FullName, e.Total, items); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", e.Email, err)
		return err
	}

	log.Printf("[Notifier] Checkout confirmation sent to %s", e.Email)
	return nil
}
