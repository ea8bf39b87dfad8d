package store

import "context"

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(aggregateID string) []Event
}

// Publisher forwards appended events to a broker.
// *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Relay re-publishes events whose publish failed when they were appended
type Relay interface {
	Redeliver(ctx context.Context) (int, error)
}
