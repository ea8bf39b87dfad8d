package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/ec-storefront/internal/backend"
)

var errInvalidID = errors.New("invalid id")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] failed to encode response: %v", err)
	}
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// backendStatus maps a backend error onto the status the browser sees.
// Unreachable backend is 502; errors that never reached the backend are 500.
func backendStatus(err error) int {
	switch status := backend.StatusOf(err); {
	case status == 0:
		return http.StatusBadGateway
	case status < 0:
		return http.StatusInternalServerError
	default:
		return status
	}
}

func respondBackendError(w http.ResponseWriter, err error) {
	respondJSONError(w, backend.FriendlyMessage(err), backendStatus(err))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func extractPathParam(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

// pathID parses the numeric id following prefix
func pathID(path, prefix string) (int64, error) {
	raw := extractPathParam(path, prefix)
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
}
