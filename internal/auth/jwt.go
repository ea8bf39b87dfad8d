package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrTokenSubject = errors.New("token belongs to another user")
)

// Claims is the subset of backend token claims the storefront reads
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks backend-issued tokens before a session is trusted.
// The storefront never issues tokens; the backend does at login.
type TokenVerifier struct {
	secretKey []byte
	now       func() time.Time
}

// NewTokenVerifier creates a verifier. An empty secret disables signature
// checks: JWTs are still checked for expiry, opaque tokens pass on presence.
func NewTokenVerifier(secretKey string) *TokenVerifier {
	return &TokenVerifier{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

// VerifiesSignature reports whether a signing secret is configured
func (v *TokenVerifier) VerifiesSignature() bool {
	return len(v.secretKey) > 0
}

// Verify validates a token and returns its claims. Claims are nil for an
// accepted opaque token.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	if v.VerifiesSignature() {
		return v.verifySigned(tokenString)
	}
	return v.verifyUnsigned(tokenString)
}

// VerifySession verifies the session token and, when signatures are
// checked, that the token names the session's user
func (v *TokenVerifier) VerifySession(s *Session) (*Claims, error) {
	claims, err := v.Verify(s.Token)
	if err != nil {
		return nil, err
	}
	if v.VerifiesSignature() && !claims.Names(s.ID) {
		return nil, ErrTokenSubject
	}
	return claims, nil
}

// Names reports whether the claims identify userID. Claims without a
// user id name nobody.
func (c *Claims) Names(userID string) bool {
	if c == nil {
		return false
	}
	if c.UserID != "" {
		return c.UserID == userID
	}
	return c.Subject != "" && c.Subject == userID
}

func (v *TokenVerifier) verifySigned(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secretKey, nil
	}, jwt.WithTimeFunc(v.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (v *TokenVerifier) verifyUnsigned(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		// Not a JWT at all: the backend may hand out opaque tokens.
		return nil, nil
	}
	if claims.ExpiresAt != nil && !v.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
