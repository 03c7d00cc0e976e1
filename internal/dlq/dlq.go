// Package dlq is the dead-letter store for outbox messages the relay
// could not deliver after exhausting retry.
package dlq

import (
	"context"
	"database/sql"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/config"
)

// Record mirrors the dead_letter_queue table. ID is the originating
// outbox row's id, not a freshly generated one.
type Record struct {
	ID            string
	AggregateID   string
	EventType     string
	Payload       []byte
	ErrorMessage  string
	FailureCount  int
	FirstFailedAt time.Time
	LastFailedAt  time.Time
	CreatedAt     time.Time
}

// Stats is the summary returned by Store.Stats: a total and a
// per-event-type breakdown (see DESIGN.md).
type Stats struct {
	Total       int64
	ByEventType map[string]int64
}

// Store persists and queries dead-lettered messages.
type Store struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

func NewStore(db *sql.DB, cbCfg config.CircuitBreakerConfig) *Store {
	return &Store{db: db, cb: config.NewCircuitBreaker("DLQ-PostgreSQL", cbCfg)}
}

// Add inserts a DLQ record. Errors here are logged and counted by the
// caller (the relay) but must never propagate back into its delivery
// path — a DLQ write failure is acceptable loss, not a relay failure.
func (s *Store) Add(ctx context.Context, rec Record) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO dead_letter_queue
			 (id, aggregate_id, event_type, payload, error_message, failure_count, first_failed_at, last_failed_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.AggregateID, rec.EventType, rec.Payload, rec.ErrorMessage,
			rec.FailureCount, rec.FirstFailedAt, rec.LastFailedAt, rec.CreatedAt,
		)
		return nil, err
	})
	return err
}

// List returns up to limit recent records, most recently created first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, aggregate_id, event_type, payload, error_message, failure_count, first_failed_at, last_failed_at, created_at
			 FROM dead_letter_queue ORDER BY created_at DESC LIMIT $1`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var records []Record
		for rows.Next() {
			var rec Record
			if err := rows.Scan(&rec.ID, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.ErrorMessage,
				&rec.FailureCount, &rec.FirstFailedAt, &rec.LastFailedAt, &rec.CreatedAt); err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return records, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

// Stats returns the total row count and a per-event-type breakdown.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		stats := Stats{ByEventType: map[string]int64{}}

		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&stats.Total); err != nil {
			return Stats{}, err
		}

		rows, err := s.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM dead_letter_queue GROUP BY event_type`)
		if err != nil {
			return Stats{}, err
		}
		defer rows.Close()

		for rows.Next() {
			var eventType string
			var count int64
			if err := rows.Scan(&eventType, &count); err != nil {
				return Stats{}, err
			}
			stats.ByEventType[eventType] = count
		}
		return stats, rows.Err()
	})
	if err != nil {
		return Stats{}, err
	}
	return result.(Stats), nil
}
