package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is an entry of the storefront event log
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// Decode unmarshals the event payload into v
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", e.EventType, err)
	}
	return nil
}

func newEvent(aggregateID, aggregateType, eventType string, data any, version int) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       version,
	}, nil
}

// EventStore keeps events in memory and publishes them when a publisher is set.
// Events the publisher rejected wait in pending for Redeliver.
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	pending   []Event
	relayMu   sync.Mutex
	publisher Publisher
}

// NewEventStore creates an in-memory store. publisher may be nil.
func NewEventStore(publisher Publisher) *EventStore {
	return &EventStore{
		events:    make(map[string][]Event),
		publisher: publisher,
	}
}

// Append stores an event and publishes it. A failed publish is logged and
// left for Redeliver; the event is stored either way.
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	es.mu.Lock()
	event, err := newEvent(aggregateID, aggregateType, eventType, data, len(es.events[aggregateID])+1)
	if err != nil {
		es.mu.Unlock()
		return nil, err
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.mu.Unlock()

	if es.publisher != nil {
		if err := es.publisher.Publish(ctx, aggregateID, event); err != nil {
			log.Printf("[Store] publish of %s %s deferred: %v", eventType, event.ID, err)
			es.mu.Lock()
			es.pending = append(es.pending, event)
			es.mu.Unlock()
		}
	}

	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(aggregateID string) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return append([]Event(nil), es.events[aggregateID]...)
}

// Redeliver publishes pending events in append order, stopping at the
// first failure
func (es *EventStore) Redeliver(ctx context.Context) (int, error) {
	if es.publisher == nil {
		return 0, nil
	}
	es.relayMu.Lock()
	defer es.relayMu.Unlock()

	es.mu.RLock()
	batch := append([]Event(nil), es.pending...)
	es.mu.RUnlock()

	delivered := 0
	var err error
	for _, e := range batch {
		if err = es.publisher.Publish(ctx, e.AggregateID, e); err != nil {
			err = fmt.Errorf("failed to publish %s: %w", e.EventType, err)
			break
		}
		delivered++
	}

	es.mu.Lock()
	es.pending = es.pending[delivered:]
	es.mu.Unlock()
	return delivered, err
}
