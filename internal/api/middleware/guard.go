package middleware

import (
	"net/http"

	"github.com/example/ec-storefront/internal/auth"
)

// PageGuard redirects page requests the policy does not allow.
// It must run after SessionMiddleware.
func PageGuard(policy auth.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, _ := GetSession(r.Context())
			d := policy.Authorize(r.URL.Path, session)
			if d.Allow || d.Redirect == "" || d.Redirect == r.URL.Path {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, d.Redirect, http.StatusFound)
		})
	}
}
