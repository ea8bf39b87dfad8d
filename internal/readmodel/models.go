package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the backend's integer role id
type Role int

const (
	RoleAdmin    Role = 1
	RoleVendor   Role = 2
	RoleCustomer Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleVendor:
		return "vendor"
	case RoleCustomer:
		return "customer"
	}
	return "unknown"
}

func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleCustomer
}

// CartItem is a single cart line as returned by the backend.
// Subtotal is whatever the server sent; it is not assumed to equal Price*Quantity.
type CartItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// DisplaySubtotal returns the server subtotal, falling back to Price*Quantity
// when the server left it empty.
func (i CartItem) DisplaySubtotal() decimal.Decimal {
	if !i.Subtotal.IsZero() {
		return i.Subtotal
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the server-held cart for a user
type Cart struct {
	ID     int64           `json:"id,omitempty"`
	UserID string          `json:"userId,omitempty"`
	Items  []CartItem      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Cart) IsEmpty() bool {
	return c.ItemCount() == 0
}

// Item looks up a line by its cart-item id
func (c *Cart) Item(id int64) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// DisplayTotal returns the server total, or the sum of display subtotals
// when the server total is zero.
func (c *Cart) DisplayTotal() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	if !c.Total.IsZero() {
		return c.Total
	}
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.DisplaySubtotal())
	}
	return sum
}

// Clone returns a deep copy so subscribers cannot mutate cached state
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]CartItem(nil), c.Items...)
	return &cp
}

// ProductImage is an image attached to a product
type ProductImage struct {
	ID       int64  `json:"id"`
	ImageURL string `json:"imageUrl"`
}

// Product is a catalog entry. Stock is read-only from the storefront's point of view.
type Product struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Stock              int             `json:"stock"`
	CategoryID         int64           `json:"categoryId"`
	StoreID            int64           `json:"storeId,omitempty"`
	DiscountPercentage *int            `json:"discountPercentage"`
	Images             []ProductImage  `json:"images"`
}

// Category is a product category
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OrderStatus mirrors the backend order status enum
type OrderStatus int

const (
	OrderPending    OrderStatus = 1
	OrderProcessing OrderStatus = 2
	OrderShipped    OrderStatus = 3
	OrderDelivered  OrderStatus = 4
	OrderCancelled  OrderStatus = 5
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderProcessing:
		return "processing"
	case OrderShipped:
		return "shipped"
	case OrderDelivered:
		return "delivered"
	case OrderCancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s OrderStatus) Valid() bool {
	return s >= OrderPending && s <= OrderCancelled
}

// OrderItem is a line of a placed order
type OrderItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is the read-only view of a backend order
type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	UserID      string          `json:"userId"`
	UserName    string          `json:"userName"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RoleRef is the nested role object in user payloads
type RoleRef struct {
	ID   Role   `json:"id"`
	Name string `json:"name"`
}

// User is the backend's user representation
type User struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	LastName        *string `json:"lastName"`
	Email           string  `json:"email"`
	PhoneNumber     string  `json:"phoneNumber"`
	BillingAddress  string  `json:"billingAddress"`
	BillingAddress2 string  `json:"billingAddress2"`
	PostalCode      *string `json:"postalCode"`
	Role            RoleRef `json:"role"`
}

// UserInput is the body used to create or update a user
type UserInput struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	LastName        string `json:"lastName,omitempty"`
	Email           string `json:"email"`
	Password        string `json:"password,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	BillingAddress  string `json:"billingAddress,omitempty"`
	BillingAddress2 string `json:"billingAddress2,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	IDCountry       int    `json:"idCountry,omitempty"`
	IDProvince      int    `json:"idProvince,omitempty"`
	IDCity          int    `json:"idCity,omitempty"`
	IDRole          Role   `json:"idRole,omitempty"`
}
