package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id             UUID PRIMARY KEY,
	aggregate_id   TEXT        NOT NULL,
	aggregate_type TEXT        NOT NULL,
	event_type     TEXT        NOT NULL,
	data           JSONB       NOT NULL,
	version        INTEGER     NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	pending        BOOLEAN     NOT NULL DEFAULT FALSE,
	UNIQUE (aggregate_id, version)
);
CREATE INDEX IF NOT EXISTS idx_events_pending ON events (created_at) WHERE pending;
`

const selectEvents = `SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at FROM events`

// The next version is computed in the insert itself; concurrent appends to
// one aggregate can still collide on (aggregate_id, version) and are retried.
const insertEvent = `
INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at, pending)
SELECT $1::uuid, $2::text, $3::text, $4::text, $5::jsonb, COALESCE(MAX(version), 0) + 1, $6::timestamptz, $7::boolean
FROM events WHERE aggregate_id = $2::text
RETURNING version`

const (
	maxAppendAttempts = 3
	redeliverBatch    = 100
)

// PostgresEventStore stores events in PostgreSQL
type PostgresEventStore struct {
	db        *sql.DB
	publisher Publisher
}

func NewPostgresEventStore(db *sql.DB, publisher Publisher) *PostgresEventStore {
	return &PostgresEventStore{
		db:        db,
		publisher: publisher,
	}
}

// EnsureSchema creates the events table when missing
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create events schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Append stores an event in PostgreSQL and publishes it. Rows are written
// pending when a publisher is set and cleared once the broker accepts them.
func (es *PostgresEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	event, err := newEvent(aggregateID, aggregateType, eventType, data, 0)
	if err != nil {
		return nil, err
	}
	pending := es.publisher != nil

	for attempt := 1; ; attempt++ {
		err = es.db.QueryRowContext(ctx, insertEvent,
			event.ID,
			event.AggregateID,
			event.AggregateType,
			event.EventType,
			[]byte(event.Data),
			event.Timestamp,
			pending,
		).Scan(&event.Version)
		if err == nil {
			break
		}
		if !isUniqueViolation(err) || attempt == maxAppendAttempts {
			return nil, fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if pending {
		if err := es.publish(ctx, event); err != nil {
			log.Printf("[Store] publish of %s %s deferred: %v", eventType, event.ID, err)
		}
	}

	return &event, nil
}

func (es *PostgresEventStore) publish(ctx context.Context, e Event) error {
	if err := es.publisher.Publish(ctx, e.AggregateID, e); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.EventType, err)
	}
	if _, err := es.db.ExecContext(ctx, `UPDATE events SET pending = FALSE WHERE id = $1`, e.ID); err != nil {
		return fmt.Errorf("failed to mark event %s delivered: %w", e.ID, err)
	}
	return nil
}

// Redeliver publishes the oldest pending events, stopping at the first failure
func (es *PostgresEventStore) Redeliver(ctx context.Context) (int, error) {
	if es.publisher == nil {
		return 0, nil
	}
	events, err := es.query(ctx, selectEvents+` WHERE pending ORDER BY created_at ASC LIMIT $1`, redeliverBatch)
	if err != nil {
		return 0, err
	}
	for i, e := range events {
		if err := es.publish(ctx, e); err != nil {
			return i, err
		}
	}
	return len(events), nil
}

// GetEvents returns all events for an aggregate from PostgreSQL
func (es *PostgresEventStore) GetEvents(aggregateID string) []Event {
	events, err := es.query(context.Background(), selectEvents+` WHERE aggregate_id = $1 ORDER BY version ASC`, aggregateID)
	if err != nil {
		log.Printf("[Store] %v", err)
	}
	return events
}

func (es *PostgresEventStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &data, &e.Version, &e.Timestamp); err != nil {
			log.Printf("[Store] scan failed: %v", err)
			continue
		}
		e.Data = data
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return events, fmt.Errorf("query failed: %w", err)
	}
	return events, nil
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
