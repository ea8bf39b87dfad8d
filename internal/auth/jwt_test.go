package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: "user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "user-123",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenVerifier_Signed_Valid(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	claims, err := verifier.Verify(token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.True(t, verifier.VerifiesSignature())
}

func TestTokenVerifier_Signed_Expired(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	token := signToken(t, testSecret, time.Now().Add(-time.Minute))

	claims, err := verifier.Verify(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestTokenVerifier_Signed_WrongSecret(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	token := signToken(t, "another-secret-key-that-is-long-enough", time.Now().Add(time.Hour))

	claims, err := verifier.Verify(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestTokenVerifier_Signed_Invalid(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenVerifier_Unsigned(t *testing.T) {
	verifier := NewTokenVerifier("")
	assert.False(t, verifier.VerifiesSignature())

	t.Run("opaque token accepted", func(t *testing.T) {
		claims, err := verifier.Verify("opaque-session-token")
		assert.NoError(t, err)
		assert.Nil(t, claims)
	})

	t.Run("jwt with future expiry accepted", func(t *testing.T) {
		token := signToken(t, "whatever-the-backend-uses", time.Now().Add(time.Hour))
		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject)
	})

	t.Run("expired jwt rejected", func(t *testing.T) {
		token := signToken(t, "whatever-the-backend-uses", time.Now().Add(-time.Hour))
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := verifier.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenVerifier_VerifySession(t *testing.T) {
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	t.Run("token names the session user", func(t *testing.T) {
		claims, err := NewTokenVerifier(testSecret).VerifySession(&Session{ID: "user-123", Token: token})
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
	})

	t.Run("token for another user", func(t *testing.T) {
		_, err := NewTokenVerifier(testSecret).VerifySession(&Session{ID: "user-victim", Token: token})
		assert.ErrorIs(t, err, ErrTokenSubject)
	})

	t.Run("signed token without a user id", func(t *testing.T) {
		bare, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = NewTokenVerifier(testSecret).VerifySession(&Session{ID: "user-123", Token: bare})
		assert.ErrorIs(t, err, ErrTokenSubject)
	})

	t.Run("unsigned mode relies on the seal", func(t *testing.T) {
		_, err := NewTokenVerifier("").VerifySession(&Session{ID: "user-victim", Token: "opaque"})
		assert.NoError(t, err)
	})
}

func TestClaims_Names(t *testing.T) {
	assert.True(t, (&Claims{UserID: "u1"}).Names("u1"))
	assert.False(t, (&Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"}}).Names("u2"))
	assert.True(t, (&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"}}).Names("u2"))
	assert.False(t, (&Claims{}).Names(""))
	assert.False(t, (*Claims)(nil).Names("u1"))
}
