package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Client Tests
// ============================================

func TestClient_URLJoining(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		path     string
		expected string
	}{
		{"plain", "http://api.local/api", "Cart/GetCart/1", "http://api.local/api/Cart/GetCart/1"},
		{"trailing slash on base", "http://api.local/api/", "Cart/GetCart/1", "http://api.local/api/Cart/GetCart/1"},
		{"leading slash on path", "http://api.local/api", "/products", "http://api.local/api/products"},
		{"both", "http://api.local/api//", "//products", "http://api.local/api/products"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewClient(tt.base).URL(tt.path))
		})
	}
}

func TestClient_SendsJSONAndBearerToken(t *testing.T) {
	var gotAuth, gotContentType, gotRequestID string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := WithToken(context.Background(), "tok-123")

	var out map[string]bool
	err := c.Post(ctx, "things", map[string]int{"n": 1}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, float64(1), gotBody["n"])
	assert.True(t, out["ok"])
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Get(context.Background(), "x", nil)

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_EmptySuccessBodyLeavesOutUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := map[string]string{"keep": "me"}
	err := NewClient(srv.URL).Delete(context.Background(), "x", &out)

	require.NoError(t, err)
	assert.Equal(t, "me", out["keep"])
}

// ============================================
// Error Normalization Tests
// ============================================

func TestClient_StatusErrorUsesBodyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"out of stock"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Post(context.Background(), "Cart/Checkout/u1", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "out of stock", apiErr.Message)
	assert.Equal(t, "out of stock", apiErr.Body["message"])
}

func TestClient_StatusErrorFallsBackToErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"User already exists"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Post(context.Background(), "User/CreateUser", nil, nil)

	assert.True(t, IsStatus(err, http.StatusUnprocessableEntity))
	assert.Contains(t, err.Error(), "User already exists")
}

func TestClient_StatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Get(context.Background(), "x", nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "HTTP 500", apiErr.Message)
	assert.Nil(t, apiErr.Body)
}

func TestClient_NetworkErrorHasStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url).Get(context.Background(), "x", nil)

	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	apiErr, _ := AsAPIError(err)
	assert.NotNil(t, errors.Unwrap(apiErr))
}

func TestClient_InvalidJSONOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient(srv.URL).Get(context.Background(), "x", &out)

	require.Error(t, err)
	assert.Equal(t, http.StatusOK, StatusOf(err))
}

func TestClient_Upload(t *testing.T) {
	var gotField, gotName, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotField = "file"
		gotName = header.Filename
		gotContent = string(data)
		_, _ = w.Write([]byte(`{"id":5,"imageUrl":"/img/5.png"}`))
	}))
	defer srv.Close()

	products := NewProductService(NewClient(srv.URL))
	img, err := products.UploadImage(context.Background(), 3, "shirt.png", strings.NewReader("PNGDATA"))

	require.NoError(t, err)
	assert.Equal(t, "file", gotField)
	assert.Equal(t, "shirt.png", gotName)
	assert.Equal(t, "PNGDATA", gotContent)
	assert.Equal(t, int64(5), img.ID)
}

// ============================================
// FriendlyMessage Tests
// ============================================

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), "boom"},
		{"400 with body", &APIError{Status: 400, Body: map[string]any{"error": "name required"}}, "name required"},
		{"400 without body", &APIError{Status: 400}, msgBadRequest},
		{"401", &APIError{Status: 401}, msgUnauthorized},
		{"403", &APIError{Status: 403}, msgForbidden},
		{"404", &APIError{Status: 404}, msgNotFound},
		{"422 user exists", &APIError{Status: 422, Body: map[string]any{"error": "User already exists"}}, msgUserExists},
		{"422 email", &APIError{Status: 422, Body: map[string]any{"error": "Invalid email"}}, msgEmailInvalid},
		{"422 password", &APIError{Status: 422, Body: map[string]any{"error": "Password too weak"}}, msgPassword},
		{"422 other", &APIError{Status: 422, Body: map[string]any{"error": "bad postal code"}}, "bad postal code"},
		{"500", &APIError{Status: 500}, msgServer},
		{"503", &APIError{Status: 503}, msgUnavailable},
		{"other with message", &APIError{Status: 409, Message: "conflict on cart"}, "conflict on cart"},
		{"other with bare status", &APIError{Status: 409, Message: "HTTP 409"}, "An error occurred (409). Please try again."},
		{"network", &APIError{Status: 0, Message: "connection refused"}, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FriendlyMessage(tt.err))
		})
	}
}

func TestServerMessage(t *testing.T) {
	assert.Equal(t, "stock", ServerMessage(&APIError{Status: 409, Body: map[string]any{"message": "stock"}}))
	assert.Equal(t, "nope", ServerMessage(&APIError{Status: 400, Body: map[string]any{"error": "nope"}}))
	assert.Empty(t, ServerMessage(&APIError{Status: 500, Message: "HTTP 500"}))
	assert.Empty(t, ServerMessage(errors.New("x")))
}
