package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/example/ec-storefront/internal/readmodel"
)

const (
	TokenCookie = "auth_token"
	UserCookie  = "auth_user"

	// DefaultSessionTTL is the fixed cookie lifetime; sessions are never refreshed
	DefaultSessionTTL = 7 * 24 * time.Hour
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

// Session is the authenticated user as seen by the storefront
type Session struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	FullName string         `json:"fullName,omitempty"`
	IDRole   readmodel.Role `json:"idRole"`
	Token    string         `json:"-"`
}

// IsAdmin reports whether the session may use the admin dashboard
func (s *Session) IsAdmin() bool {
	return s != nil && (s.IDRole == readmodel.RoleAdmin || s.IDRole == readmodel.RoleVendor)
}

// EncodeUser renders the non-secret part of the session for the auth_user cookie
func EncodeUser(s *Session) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode session user: %w", err)
	}
	return url.QueryEscape(string(data)), nil
}

// DecodeUser parses an auth_user cookie value
func DecodeUser(value string) (*Session, error) {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if s.ID == "" || !s.IDRole.Valid() {
		return nil, ErrInvalidSession
	}
	return &s, nil
}

// SetSessionCookies writes the session cookies with a fixed expiry
func (k *Sealer) SetSessionCookies(w http.ResponseWriter, r *http.Request, s *Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	user, err := EncodeUser(s)
	if err != nil {
		return err
	}
	seal, err := k.Seal(s)
	if err != nil {
		return err
	}

	expires := time.Now().Add(ttl)
	secure := r != nil && r.TLS != nil
	cookie := func(name, value string, httpOnly bool) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Expires:  expires,
			MaxAge:   int(ttl.Seconds()),
			HttpOnly: httpOnly,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		}
	}

	http.SetCookie(w, cookie(TokenCookie, s.Token, true))
	// Page scripts read the user cookie, so it is not HttpOnly.
	http.SetCookie(w, cookie(UserCookie, user, false))
	http.SetCookie(w, cookie(SealCookie, seal, true))
	return nil
}

// ClearSessionCookies expires all session cookies
func ClearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{TokenCookie, UserCookie, SealCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name != UserCookie,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// SessionFromRequest rebuilds the session from the request cookies and
// checks the seal. It does not verify the token.
func (k *Sealer) SessionFromRequest(r *http.Request) (*Session, error) {
	tokenCookie, err := r.Cookie(TokenCookie)
	if err != nil || tokenCookie.Value == "" {
		return nil, ErrNoSession
	}
	userCookie, err := r.Cookie(UserCookie)
	if err != nil || userCookie.Value == "" {
		return nil, ErrInvalidSession
	}
	s, err := DecodeUser(userCookie.Value)
	if err != nil {
		return nil, err
	}
	s.Token = tokenCookie.Value

	sealCookie, err := r.Cookie(SealCookie)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if err := k.Check(s, sealCookie.Value); err != nil {
		return nil, err
	}
	return s, nil
}
