package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/cart"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/shopspring/decimal"
)

// Handlers serves the signed-in shopper: cart and own orders
type Handlers struct {
	carts  *cart.Registry
	orders *backend.OrderService
}

func NewHandlers(carts *cart.Registry, orders *backend.OrderService) *Handlers {
	return &Handlers{
		carts:  carts,
		orders: orders,
	}
}

// CartResponse is the cart as sent to the browser
type CartResponse struct {
	Items     []readmodel.CartItem `json:"items"`
	Total     decimal.Decimal      `json:"total"`
	ItemCount int                  `json:"itemCount"`
}

func newCartResponse(c *readmodel.Cart) CartResponse {
	resp := CartResponse{Items: []readmodel.CartItem{}, Total: decimal.Zero}
	if c == nil {
		return resp
	}
	for _, item := range c.Items {
		item.Subtotal = item.DisplaySubtotal()
		resp.Items = append(resp.Items, item)
	}
	resp.Total = c.DisplayTotal()
	resp.ItemCount = c.ItemCount()
	return resp
}

// storeFor returns the cart store of the signed-in user
func (h *Handlers) storeFor(r *http.Request) *cart.Store {
	session, _ := middleware.GetSession(r.Context())
	s := h.carts.For(session.ID)
	s.Identify(session.Email, session.FullName)
	return s
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.storeFor(r)
	if err := s.LoadCart(r.Context()); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(s.Cart()))
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"productId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ProductID <= 0 {
		respondJSONError(w, "productId is required", http.StatusBadRequest)
		return
	}

	s := h.storeFor(r)
	if err := s.AddProduct(r.Context(), req.ProductID); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(s.Cart()))
}

// ownsItem reports whether itemID is a line of the user's cart, reloading
// the cart once when the cache does not know the line
func ownsItem(ctx context.Context, s *cart.Store, itemID int64) (bool, error) {
	if _, ok := s.Cart().Item(itemID); ok {
		return true, nil
	}
	if err := s.LoadCart(ctx); err != nil {
		return false, err
	}
	_, ok := s.Cart().Item(itemID)
	return ok, nil
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r.URL.Path, "/api/cart/items/")
	if err != nil {
		respondJSONError(w, "invalid cart item id", http.StatusBadRequest)
		return
	}

	s := h.storeFor(r)
	owned, err := ownsItem(r.Context(), s, itemID)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	if !owned {
		respondJSONError(w, "cart item not found", http.StatusNotFound)
		return
	}
	if err := s.RemoveItem(r.Context(), itemID); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(s.Cart()))
}

// quantityInput accepts the quantity either as a JSON number or as the raw
// text of the input field
func quantityInput(v any) string {
	switch q := v.(type) {
	case nil:
		return ""
	case string:
		return q
	case float64:
		if q != float64(int64(q)) {
			return fmt.Sprint(q)
		}
		return strconv.FormatInt(int64(q), 10)
	}
	return fmt.Sprint(v)
}

// UpdateCartItem commits a new quantity for one line. While a previous
// update of the same line is in flight it answers 409.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r.URL.Path, "/api/cart/items/")
	if err != nil {
		respondJSONError(w, "invalid cart item id", http.StatusBadRequest)
		return
	}
	var req struct {
		Quantity any `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := h.storeFor(r)
	owned, err := ownsItem(r.Context(), s, itemID)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	ctrl, ok := s.ControlFor(itemID)
	if !owned || !ok {
		respondJSONError(w, "cart item not found", http.StatusNotFound)
		return
	}

	err = ctrl.Input(quantityInput(req.Quantity))
	if err == nil {
		err = ctrl.Commit(r.Context())
	}

	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, newCartResponse(s.Cart()))
	case errors.Is(err, cart.ErrUpdateInFlight):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":    err.Error(),
			"quantity": ctrl.Value(),
		})
	default:
		// quantity is the reverted value the field should show again
		respondJSON(w, backendStatus(err), map[string]any{
			"error":    backend.FriendlyMessage(err),
			"quantity": ctrl.Value(),
		})
	}
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	s := h.storeFor(r)
	result, err := s.Checkout(r.Context())
	if err != nil {
		respondJSONError(w, cart.CheckoutMessage(err), backendStatus(err))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
