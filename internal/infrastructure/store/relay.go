package store

import (
	"context"
	"log"
	"time"
)

// RunRelay calls Redeliver every interval until ctx is cancelled
func RunRelay(ctx context.Context, relay Relay, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := relay.Redeliver(ctx)
			if n > 0 {
				log.Printf("[Store] redelivered %d events", n)
			}
			if err != nil && ctx.Err() == nil {
				log.Printf("[Store] redelivery stopped: %v", err)
			}
		}
	}
}
