package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/cart"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig wires the storefront's HTTP surface
type RouterConfig struct {
	Backend    *backend.Client
	Carts      *cart.Registry
	Verifier   *auth.TokenVerifier
	Sealer     *auth.Sealer
	Revoker    auth.Revoker
	Resets     auth.Limiter
	Checkouts  store.EventStoreInterface
	Policy     auth.Policy
	SessionTTL time.Duration
	WebDir     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	products := backend.NewProductService(cfg.Backend)
	orders := backend.NewOrderService(cfg.Backend)
	users := backend.NewUserService(cfg.Backend)

	handlers := NewHandlers(cfg.Carts, orders)
	catalog := NewCatalogHandlers(products)
	admin := NewAdminHandlers(products, orders, users, cfg.Checkouts)
	authHandlers := NewAuthHandlers(backend.NewAuthService(cfg.Backend), users, cfg.Carts, cfg.Sealer, cfg.Revoker, cfg.Resets, cfg.SessionTTL)

	shopper := middleware.RequireClass(cfg.Policy, auth.RouteCart)
	staff := middleware.RequireClass(cfg.Policy, auth.RouteAdmin)
	// vendors pass staff but not user management
	adminOnly := func(h http.Handler) http.Handler {
		return staff(middleware.RequireRole(readmodel.RoleAdmin)(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		authHandlers.Login(w, r)
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		authHandlers.Logout(w, r)
	})

	mux.Handle("/api/auth/me", middleware.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		authHandlers.Me(w, r)
	})))

	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		authHandlers.Register(w, r)
	})

	mux.HandleFunc("/api/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		authHandlers.ResetPassword(w, r)
	})

	// Cart
	mux.Handle("/api/cart", shopper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/cart/items", shopper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.AddToCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/cart/items/", shopper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			handlers.RemoveFromCart(w, r)
		case http.MethodPut:
			handlers.UpdateCartItem(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/cart/checkout", shopper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		handlers.Checkout(w, r)
	})))

	mux.Handle("/api/cart/events", shopper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		handlers.CartEvents(w, r)
	})))

	// Orders
	mux.Handle("/api/orders", shopper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		handlers.GetOrders(w, r)
	})))

	// Catalog
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		catalog.ListProducts(w, r)
	})

	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		catalog.GetProduct(w, r)
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		catalog.ListCategories(w, r)
	})

	// Admin
	mux.Handle("/api/admin/products", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			catalog.ListProducts(w, r)
		case http.MethodPost:
			admin.CreateProduct(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/admin/products/", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasPrefix(path, "/api/admin/products/images/") && r.Method == http.MethodDelete:
			admin.DeleteProductImage(w, r)
		case strings.HasSuffix(path, "/images") && r.Method == http.MethodPost:
			admin.UploadProductImage(w, r)
		case r.Method == http.MethodPut:
			admin.UpdateProduct(w, r)
		case r.Method == http.MethodDelete:
			admin.DeleteProduct(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/admin/orders", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		admin.ListOrders(w, r)
	})))

	mux.Handle("/api/admin/orders/", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/status") || r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		admin.UpdateOrderStatus(w, r)
	})))

	mux.Handle("/api/admin/checkouts/", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		admin.CheckoutHistory(w, r)
	})))

	mux.Handle("/api/admin/users", adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin.ListUsers(w, r)
		case http.MethodPost:
			admin.CreateUser(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/admin/users/count", adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		admin.CountUsers(w, r)
	})))

	mux.Handle("/api/admin/users/", adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin.GetUser(w, r)
		case http.MethodPut:
			admin.UpdateUser(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "not found", http.StatusNotFound)
	})

	// Static files (web UI), behind the page guard
	if cfg.WebDir != "" {
		mux.Handle("/", middleware.PageGuard(cfg.Policy)(http.FileServer(http.Dir(cfg.WebDir))))
	}

	var h http.Handler = mux
	h = middleware.SessionMiddleware(cfg.Verifier, cfg.Sealer, cfg.Revoker)(h)
	h = middleware.Logging(h)
	return otelhttp.NewHandler(h, "storefront")
}
