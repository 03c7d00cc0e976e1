// Package cdc is the outbox-to-broker relay: a streaming consumer of
// the database's change log for the outbox_messages table, publishing
// each row to the broker under retry and a circuit breaker, with
// exhausted messages routed to the dead-letter queue. A legacy polling
// variant is included for completeness but is not the recommended path.
package cdc

import (
	"context"
	"time"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/dlq"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/health"
)

// OutboxRow is one outbox_messages row as extracted from the CDC
// stream (or, for the polling variant, a plain SELECT).
type OutboxRow struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Topic         string
	PartitionKey  string
	CreatedAt     time.Time
}

// Publisher is the port the relay publishes through.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// DLQSink is the port exhausted messages are routed to.
type DLQSink interface {
	Add(ctx context.Context, rec dlq.Record) error
}

// HealthReporter is the port the relay self-reports liveness to.
type HealthReporter interface {
	UpdateHealth(component string, status health.Status, message string, details map[string]string)
}
