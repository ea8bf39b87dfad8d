package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/backend"
)

// CatalogHandlers serves the public product catalog
type CatalogHandlers struct {
	products *backend.ProductService
}

func NewCatalogHandlers(products *backend.ProductService) *CatalogHandlers {
	return &CatalogHandlers{products: products}
}

func (h *CatalogHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/products/")
	if err != nil {
		respondJSONError(w, "invalid product id", http.StatusBadRequest)
		return
	}
	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}
