package api

import (
	"errors"
	"log"
	"math"
	"net"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/cart"
	"github.com/example/ec-storefront/internal/readmodel"
)

const minPasswordLength = 6

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	auth       *backend.AuthService
	users      *backend.UserService
	carts      *cart.Registry
	sealer     *auth.Sealer
	revoker    auth.Revoker
	resets     auth.Limiter
	sessionTTL time.Duration
}

// NewAuthHandlers creates a new AuthHandlers instance. A nil resets limiter
// leaves password resets unthrottled.
func NewAuthHandlers(authSvc *backend.AuthService, users *backend.UserService, carts *cart.Registry, sealer *auth.Sealer, revoker auth.Revoker, resets auth.Limiter, sessionTTL time.Duration) *AuthHandlers {
	if sessionTTL <= 0 {
		sessionTTL = auth.DefaultSessionTTL
	}
	return &AuthHandlers{
		auth:       authSvc,
		users:      users,
		carts:      carts,
		sealer:     sealer,
		revoker:    revoker,
		resets:     resets,
		sessionTTL: sessionTTL,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User    *auth.Session `json:"user"`
	Message string        `json:"message,omitempty"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateNewUser(in readmodel.UserInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return errors.New("name is required")
	case !validEmail(strings.TrimSpace(in.Email)):
		return errors.New("email is not valid")
	case len(in.Password) < minPasswordLength:
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// Login authenticates against the backend and stores the session in cookies
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		respondJSONError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	if resp.Token == "" || !resp.IDRole.Valid() {
		log.Printf("[Storefront] login for %s returned an unusable session", req.Email)
		respondJSONError(w, "Login failed", http.StatusBadGateway)
		return
	}

	session := &auth.Session{
		ID:       resp.ID,
		Email:    resp.Email,
		FullName: resp.FullName,
		IDRole:   resp.IDRole,
		Token:    resp.Token,
	}
	if err := h.sealer.SetSessionCookies(w, r, session, h.sessionTTL); err != nil {
		respondJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	h.carts.For(session.ID).Identify(session.Email, session.FullName)

	respondJSON(w, http.StatusOK, AuthResponse{
		User:    session,
		Message: "Login successful",
	})
}

// Logout clears the session cookies and revokes the token
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session, ok := middleware.GetSession(r.Context()); ok {
		h.carts.Forget(session.ID)
		if h.revoker != nil {
			if err := h.revoker.Revoke(r.Context(), session.Token, time.Now().Add(h.sessionTTL)); err != nil {
				log.Printf("[Storefront] failed to revoke token of user %s: %v", session.ID, err)
			}
		}
	} else if token := middleware.ExtractToken(r); token != "" && h.revoker != nil {
		_ = h.revoker.Revoke(r.Context(), token, time.Now().Add(h.sessionTTL))
	}

	auth.ClearSessionCookies(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Me returns the current session
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: session})
}

// RegisterRequest is a new customer account. EmailConfirmed must repeat Email.
type RegisterRequest struct {
	readmodel.UserInput
	EmailConfirmed string `json:"emailConfirmed"`
}

// Register creates a customer account. The role is always Customer.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in := req.UserInput
	in.Email = strings.TrimSpace(in.Email)
	if err := validateNewUser(in); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.EmailConfirmed != "" && strings.TrimSpace(req.EmailConfirmed) != in.Email {
		respondJSONError(w, "Emails do not match", http.StatusBadRequest)
		return
	}
	in.ID = ""
	in.IDRole = readmodel.RoleCustomer

	if err := h.users.Create(r.Context(), in); err != nil {
		respondBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration successful",
	})
}

// ResetPasswordRequest represents the password reset request body
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword looks the account up by e-mail and sets a new password
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case !validEmail(req.Email):
		respondJSONError(w, "email is not valid", http.StatusBadRequest)
		return
	case len(req.Password) < minPasswordLength:
		respondJSONError(w, "password must be at least 6 characters", http.StatusBadRequest)
		return
	case req.Password != req.ConfirmPassword:
		respondJSONError(w, "Passwords do not match", http.StatusBadRequest)
		return
	}
	if !h.allowReset(w, r, req.Email) {
		return
	}

	user, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	if err := h.users.ResetPassword(r.Context(), user.ID, req.Password); err != nil {
		respondBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated",
	})
}

// allowReset counts the attempt against both the account and the client
// address, answering 429 once either is spent
func (h *AuthHandlers) allowReset(w http.ResponseWriter, r *http.Request, email string) bool {
	if h.resets == nil {
		return true
	}
	for _, key := range []string{"reset:email:" + strings.ToLower(email), "reset:ip:" + clientIP(r)} {
		res, err := h.resets.Allow(r.Context(), key)
		if err != nil {
			log.Printf("[Storefront] reset limiter unavailable: %v", err)
			respondJSONError(w, "Please try again later", http.StatusServiceUnavailable)
			return false
		}
		if !res.Allowed {
			log.Printf("[Storefront] password reset throttled for %s", key)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			respondJSONError(w, "Too many attempts, please try again later", http.StatusTooManyRequests)
			return false
		}
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
