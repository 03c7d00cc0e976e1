package eventsourcing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/config"
)

// Store is the generic event store: append-with-concurrency-check
// plus an atomic outbox write, and history replay. It is instantiated
// once per aggregate type, carrying that type's name and outbox topic,
// so each instantiation gets its own compiled queries rather than
// dispatching on a type tag at runtime.
//
// Logical schema, adapted to PostgreSQL (see DESIGN.md for why
// PostgreSQL stands in for a wide-column store):
//
//	event_store(aggregate_id, sequence_number, event_id, event_type,
//	            event_version, event_data, causation_id, correlation_id,
//	            timestamp) -- PK (aggregate_id, sequence_number)
//	aggregate_sequence(aggregate_id, current_sequence, updated_at) -- PK (aggregate_id)
//	outbox_messages(id, aggregate_id, aggregate_type, event_id, event_type,
//	                event_version, payload, topic, partition_key,
//	                causation_id, correlation_id, created_at, attempts) -- PK (id)
type Store[A Aggregate] struct {
	db                *sql.DB
	cb                *gobreaker.CircuitBreaker
	aggregateTypeName string
	topic             string
	decode            EventDecoder
	newFn             func() A
}

// NewStore constructs a Store for one aggregate type. aggregateTypeName
// and topic are injected here, not discovered at runtime.
func NewStore[A Aggregate](db *sql.DB, aggregateTypeName, topic string, decode EventDecoder, newFn func() A, cbCfg config.CircuitBreakerConfig) *Store[A] {
	return &Store[A]{
		db: db,
		cb: config.NewCircuitBreaker("EventStore-"+aggregateTypeName, cbCfg, func(err error) bool {
			// An optimistic-concurrency conflict means the database is
			// healthy and doing exactly what it should under
			// contention; it must never count toward tripping the
			// breaker open.
			var conflict *ConcurrencyConflict
			return !errors.As(err, &conflict)
		}),
		aggregateTypeName: aggregateTypeName,
		topic:             topic,
		decode:            decode,
		newFn:             newFn,
	}
}

// AppendEvents assigns sequence numbers, writes the event-store rows,
// optionally mirrors each into the outbox, and upserts the aggregate's
// sequence record, all in one transaction scoped to aggregateID.
func (s *Store[A]) AppendEvents(ctx context.Context, aggregateID string, expectedVersion int64, envelopes []Envelope, publishToOutbox bool) (int64, error) {
	if len(envelopes) == 0 {
		return 0, &StorageError{Op: "AppendEvents", Err: errors.New("envelopes must not be empty")}
	}

	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.appendEventsTx(ctx, aggregateID, expectedVersion, envelopes, publishToOutbox)
	})
	if err != nil {
		var conflict *ConcurrencyConflict
		if errors.As(err, &conflict) {
			return 0, conflict
		}
		return 0, &StorageError{Op: "AppendEvents", Err: err}
	}
	return result.(int64), nil
}

func (s *Store[A]) appendEventsTx(ctx context.Context, aggregateID string, expectedVersion int64, envelopes []Envelope, publishToOutbox bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT current_sequence FROM aggregate_sequence WHERE aggregate_id = $1`, aggregateID,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	currentVersion := current.Int64 // zero value when absent, matching "0 if absent"

	if currentVersion != expectedVersion {
		return 0, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: currentVersion}
	}

	newVersion := expectedVersion + int64(len(envelopes))

	for i, env := range envelopes {
		seq := expectedVersion + int64(i) + 1

		_, err := tx.ExecContext(ctx,
			`INSERT INTO event_store
			 (aggregate_id, sequence_number, event_id, event_type, event_version, event_data, causation_id, correlation_id, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			aggregateID, seq, env.EventID, env.EventType, env.EventVersion, env.EventData,
			nullableString(env.CausationID), env.CorrelationID, timestampOr(env.Timestamp),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: currentVersion}
			}
			return 0, err
		}

		if publishToOutbox {
			outboxID := uuid.NewString()
			_, err := tx.ExecContext(ctx,
				`INSERT INTO outbox_messages
				 (id, aggregate_id, aggregate_type, event_id, event_type, event_version, payload, topic, partition_key, causation_id, correlation_id, created_at, attempts)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0)`,
				outboxID, aggregateID, s.aggregateTypeName, env.EventID, env.EventType, env.EventVersion,
				env.EventData, s.topic, aggregateID, nullableString(env.CausationID), env.CorrelationID, time.Now().UTC(),
			)
			if err != nil {
				return 0, err
			}
		}
	}

	// Optimistic upsert: only succeeds if the row is absent (birth) or
	// still at expectedVersion, turning a read-then-write race into a
	// detectable conflict instead of a lost update.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO aggregate_sequence (aggregate_id, current_sequence, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (aggregate_id) DO UPDATE
		   SET current_sequence = EXCLUDED.current_sequence, updated_at = EXCLUDED.updated_at
		   WHERE aggregate_sequence.current_sequence = $4`,
		aggregateID, newVersion, time.Now().UTC(), expectedVersion,
	)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: currentVersion}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// LoadEvents returns every envelope for aggregateID in ascending
// sequence order.
func (s *Store[A]) LoadEvents(ctx context.Context, aggregateID string) ([]Envelope, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT sequence_number, event_id, event_type, event_version, event_data, causation_id, correlation_id, timestamp
			 FROM event_store WHERE aggregate_id = $1 ORDER BY sequence_number ASC`, aggregateID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var envelopes []Envelope
		for rows.Next() {
			var env Envelope
			var causationID sql.NullString
			env.AggregateID = aggregateID
			if err := rows.Scan(&env.SequenceNumber, &env.EventID, &env.EventType, &env.EventVersion,
				&env.EventData, &causationID, &env.CorrelationID, &env.Timestamp); err != nil {
				return nil, err
			}
			env.CausationID = causationID.String
			envelopes = append(envelopes, env)
		}
		return envelopes, rows.Err()
	})
	if err != nil {
		return nil, &StorageError{Op: "LoadEvents", Err: err}
	}
	return result.([]Envelope), nil
}

// GetCurrentVersion returns 0 when aggregateID has no recorded sequence.
func (s *Store[A]) GetCurrentVersion(ctx context.Context, aggregateID string) (int64, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		var current sql.NullInt64
		err := s.db.QueryRowContext(ctx,
			`SELECT current_sequence FROM aggregate_sequence WHERE aggregate_id = $1`, aggregateID,
		).Scan(&current)
		if err != nil && err != sql.ErrNoRows {
			return int64(0), err
		}
		return current.Int64, nil
	})
	if err != nil {
		return 0, &StorageError{Op: "GetCurrentVersion", Err: err}
	}
	return result.(int64), nil
}

// AggregateExists reports whether aggregateID has any committed history.
func (s *Store[A]) AggregateExists(ctx context.Context, aggregateID string) (bool, error) {
	version, err := s.GetCurrentVersion(ctx, aggregateID)
	if err != nil {
		return false, err
	}
	return version > 0, nil
}

// LoadAggregate loads an aggregate's full event history and folds it
// into an instance via LoadFromEvents. A missing aggregate is an error.
func (s *Store[A]) LoadAggregate(ctx context.Context, aggregateID string) (A, error) {
	var zero A
	envelopes, err := s.LoadEvents(ctx, aggregateID)
	if err != nil {
		return zero, err
	}
	if len(envelopes) == 0 {
		return zero, &AggregateNotFound{AggregateID: aggregateID}
	}
	return LoadFromEvents(s.newFn, envelopes)
}

// DecodeEvent turns a stored envelope's raw payload back into the
// concrete DomainEvent using the aggregate type's injected EventDecoder.
func (s *Store[A]) DecodeEvent(env Envelope) (DomainEvent, error) {
	evt, err := s.decode(env.EventType, env.EventData)
	if err != nil {
		return nil, &DeserializationError{EventType: env.EventType, Err: err}
	}
	return evt, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timestampOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
