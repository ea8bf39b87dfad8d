package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Checkout"

const (
	EventCheckoutCompleted = "CheckoutCompleted"
	EventCheckoutFailed    = "CheckoutFailed"
)

type CheckoutLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CheckoutCompleted struct {
	UserID      string          `json:"user_id"`
	Email       string          `json:"email,omitempty"`
	FullName    string          `json:"full_name,omitempty"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	Items       []CheckoutLine  `json:"items"`
	CompletedAt time.Time       `json:"completed_at"`
}

type CheckoutFailed struct {
	UserID   string    `json:"user_id"`
	Status   int       `json:"status"`
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}
