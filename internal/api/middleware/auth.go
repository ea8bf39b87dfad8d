package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/readmodel"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts the session token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie(auth.TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// WithSession stores s in ctx and forwards its token on backend calls
func WithSession(ctx context.Context, s *auth.Session) context.Context {
	ctx = context.WithValue(ctx, SessionContextKey, s)
	return backend.WithToken(ctx, s.Token)
}

// SessionMiddleware resolves the session cookies into a verified session.
// Requests without a usable session continue anonymously; broken or
// tampered cookies are cleared.
func SessionMiddleware(verifier *auth.TokenVerifier, sealer *auth.Sealer, revoker auth.Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sealer.SessionFromRequest(r)
			if err != nil {
				if !errors.Is(err, auth.ErrNoSession) {
					log.Printf("[HTTP] discarding session cookies: %v", err)
					auth.ClearSessionCookies(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			if _, err := verifier.VerifySession(session); err != nil {
				log.Printf("[HTTP] rejecting session of user %s: %v", session.ID, err)
				auth.ClearSessionCookies(w)
				next.ServeHTTP(w, r)
				return
			}

			if revoker != nil {
				revoked, err := revoker.IsRevoked(r.Context(), session.Token)
				if err != nil {
					log.Printf("[HTTP] revocation check failed: %v", err)
					next.ServeHTTP(w, r)
					return
				}
				if revoked {
					auth.ClearSessionCookies(w)
					next.ServeHTTP(w, r)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireSession rejects anonymous requests with 401
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSession(r.Context()); !ok {
			respondError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole checks if the session has one of the required roles
func RequireRole(roles ...readmodel.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r.Context())
			if !ok {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !auth.HasRole(session, roles...) {
				respondError(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireClass applies the page policy of class to an API route, answering
// with the decision's status instead of redirecting
func RequireClass(policy auth.Policy, class auth.RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, _ := GetSession(r.Context())
			d := policy.Decide(class, session)
			if !d.Allow {
				respondError(w, strings.ToLower(http.StatusText(d.Status)), d.Status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession retrieves the session from the request context
func GetSession(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*auth.Session)
	return s, ok && s != nil
}

// GetUserID is a helper to get just the user ID from context
func GetUserID(ctx context.Context) string {
	s, ok := GetSession(ctx)
	if !ok {
		return ""
	}
	return s.ID
}
