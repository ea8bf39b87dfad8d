package auth

import (
	"net/http"
	"strings"

	"github.com/example/ec-storefront/internal/readmodel"
)

// RouteClass groups paths that share an access rule
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteAuthPage
	RouteCart
	RouteAdmin
)

func (c RouteClass) String() string {
	switch c {
	case RouteAuthPage:
		return "auth-page"
	case RouteCart:
		return "cart"
	case RouteAdmin:
		return "admin"
	}
	return "public"
}

func matchesPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Classify maps a request path to its route class. Matching is case-insensitive.
func Classify(path string) RouteClass {
	p := strings.ToLower(path)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}

	switch {
	case p == "/login" || p == "/register":
		return RouteAuthPage
	case matchesPrefix(p, "/dashboard/cart"), matchesPrefix(p, "/cart"), matchesPrefix(p, "/orders"):
		return RouteCart
	case matchesPrefix(p, "/dashboard"):
		return RouteAdmin
	}
	return RoutePublic
}

// Decision is the outcome of a policy check. Redirect is where a page
// request should go when Allow is false; Status is what an API request gets.
type Decision struct {
	Allow    bool
	Redirect string
	Status   int
}

// Policy holds the redirect targets used by every guard
type Policy struct {
	LoginPath        string
	DashboardPath    string
	CustomerHomePath string
}

func DefaultPolicy() Policy {
	return Policy{
		LoginPath:        "/login",
		DashboardPath:    "/dashboard",
		CustomerHomePath: "/",
	}
}

// Decide applies the role rules to a route class
func (p Policy) Decide(class RouteClass, s *Session) Decision {
	switch class {
	case RouteAdmin:
		if s == nil {
			return Decision{Redirect: p.LoginPath, Status: http.StatusUnauthorized}
		}
		if !s.IsAdmin() {
			return Decision{Redirect: p.CustomerHomePath, Status: http.StatusForbidden}
		}
	case RouteCart:
		if s == nil {
			return Decision{Redirect: p.LoginPath, Status: http.StatusUnauthorized}
		}
	case RouteAuthPage:
		if s != nil {
			target := p.CustomerHomePath
			if s.IsAdmin() {
				target = p.DashboardPath
			}
			return Decision{Redirect: target, Status: http.StatusFound}
		}
	}
	return Decision{Allow: true, Status: http.StatusOK}
}

// Authorize classifies path and decides in one step
func (p Policy) Authorize(path string, s *Session) Decision {
	return p.Decide(Classify(path), s)
}

// HasRole reports whether s holds any of roles
func HasRole(s *Session, roles ...readmodel.Role) bool {
	if s == nil {
		return false
	}
	for _, role := range roles {
		if s.IDRole == role {
			return true
		}
	}
	return false
}
