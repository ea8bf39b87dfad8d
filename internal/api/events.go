package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/example/ec-storefront/internal/readmodel"
)

const sseKeepAlive = 30 * time.Second

// CartEvents streams the shopper's cart as server-sent events. Every page
// showing the cart subscribes here, so all of them see the same state.
func (h *Handlers) CartEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s := h.storeFor(r)

	// Only the latest snapshot matters; older pending ones are dropped.
	updates := make(chan *readmodel.Cart, 1)
	cancel := s.Subscribe(func(c *readmodel.Cart) {
		select {
		case updates <- c:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- c:
			default:
			}
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if current := s.Cart(); current != nil {
		if err := writeCartEvent(w, current); err != nil {
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-updates:
			if err := writeCartEvent(w, c); err != nil {
				log.Printf("[HTTP] cart stream for user %s closed: %v", s.UserID(), err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeCartEvent(w http.ResponseWriter, c *readmodel.Cart) error {
	data, err := json.Marshal(newCartResponse(c))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}
