package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
)

const maxUploadSize = 10 << 20

// AdminHandlers serves the admin and vendor dashboard
type AdminHandlers struct {
	products  *backend.ProductService
	orders    *backend.OrderService
	users     *backend.UserService
	checkouts store.EventStoreInterface
}

func NewAdminHandlers(products *backend.ProductService, orders *backend.OrderService, users *backend.UserService, checkouts store.EventStoreInterface) *AdminHandlers {
	return &AdminHandlers{
		products:  products,
		orders:    orders,
		users:     users,
		checkouts: checkouts,
	}
}

// Product Handlers

func validateProduct(p readmodel.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("name is required")
	case p.Price.IsNegative():
		return errors.New("price must not be negative")
	case p.Stock < 0:
		return errors.New("stock must not be negative")
	case p.DiscountPercentage != nil && (*p.DiscountPercentage < 0 || *p.DiscountPercentage > 100):
		return errors.New("discountPercentage must be between 0 and 100")
	}
	return nil
}

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p readmodel.Product
	if err := decodeJSON(r, &p); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateProduct(p); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.products.Create(r.Context(), p)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	log.Printf("[Storefront] product %d created by %s", created.ID, middleware.GetUserID(r.Context()))
	respondJSON(w, http.StatusCreated, created)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/admin/products/")
	if err != nil {
		respondJSONError(w, "invalid product id", http.StatusBadRequest)
		return
	}
	var p readmodel.Product
	if err := decodeJSON(r, &p); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateProduct(p); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.ID = id

	if err := h.products.Update(r.Context(), id, p); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/admin/products/")
	if err != nil {
		respondJSONError(w, "invalid product id", http.StatusBadRequest)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *AdminHandlers) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/admin/products/")
	if err != nil {
		respondJSONError(w, "invalid product id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSONError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := h.products.UploadImage(r.Context(), id, header.Filename, file)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, img)
}

func (h *AdminHandlers) DeleteProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/admin/products/images/")
	if err != nil {
		respondJSONError(w, "invalid image id", http.StatusBadRequest)
		return
	}
	if err := h.products.DeleteImage(r.Context(), id); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Image deleted"})
}

// Order Handlers

func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// CheckoutRecord is one entry of a customer's checkout history
type CheckoutRecord struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Version int             `json:"version"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data"`
}

// CheckoutHistory lists the checkout attempts the storefront recorded for
// one user, oldest first
func (h *AdminHandlers) CheckoutHistory(w http.ResponseWriter, r *http.Request) {
	userID := extractPathParam(r.URL.Path, "/api/admin/checkouts/")
	if userID == "" || strings.Contains(userID, "/") {
		respondJSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if h.checkouts == nil {
		respondJSON(w, http.StatusOK, []CheckoutRecord{})
		return
	}

	records := []CheckoutRecord{}
	for _, e := range h.checkouts.GetEvents(userID) {
		records = append(records, CheckoutRecord{
			ID:      e.ID,
			Type:    e.EventType,
			Version: e.Version,
			At:      e.Timestamp,
			Data:    e.Data,
		})
	}
	respondJSON(w, http.StatusOK, records)
}

// UpdateOrderStatus checks the transition against the current status
// before forwarding it
func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/admin/orders/")
	if err != nil {
		respondJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}
	var req struct {
		Status readmodel.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		respondJSONError(w, order.ErrUnknownStatus.Error(), http.StatusBadRequest)
		return
	}

	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	var current *readmodel.Order
	for i := range orders {
		if orders[i].ID == id {
			current = &orders[i]
			break
		}
	}
	if current == nil {
		respondJSONError(w, "order not found", http.StatusNotFound)
		return
	}
	if err := order.ValidateTransition(current.Status, req.Status); err != nil {
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":   err.Error(),
			"allowed": order.AllowedTransitions(current.Status),
		})
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		respondBackendError(w, err)
		return
	}
	log.Printf("[Storefront] order %d moved %s -> %s by %s", id, current.Status, req.Status, middleware.GetUserID(r.Context()))
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

// User Handlers

func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *AdminHandlers) CountUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.Count(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *AdminHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/users/")
	if id == "" {
		respondJSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *AdminHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in readmodel.UserInput
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateNewUser(in); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !in.IDRole.Valid() {
		respondJSONError(w, "idRole is invalid", http.StatusBadRequest)
		return
	}

	if err := h.users.Create(r.Context(), in); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "User created"})
}

func (h *AdminHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/users/")
	if id == "" {
		respondJSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var in readmodel.UserInput
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.IDRole != 0 && !in.IDRole.Valid() {
		respondJSONError(w, "idRole is invalid", http.StatusBadRequest)
		return
	}
	in.ID = id

	if err := h.users.Update(r.Context(), in); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "User updated"})
}
