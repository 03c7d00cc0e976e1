package cdc

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/health"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/resilience"
)

const (
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	outboxChannelName            = "outbox_channel"

	eventProcessTimeout  = 30 * time.Second
	periodicPingInterval = 90 * time.Second
	retryOperationName   = "cdc_publish"
)

// Relay is the streaming CDC consumer: it listens on outbox_channel for
// PostgreSQL NOTIFY signals (one per outbox insert) and republishes each
// row to the broker, routing delivery failures to a dead-letter sink
// instead of silently marking bad payloads processed.
type Relay struct {
	db     *sql.DB
	dbURL  string
	health HealthReporter
	deliverer
}

// NewRelay constructs the streaming relay. policy is typically
// resilience.AggressivePolicy.
func NewRelay(db *sql.DB, dbURL string, publisher Publisher, dlqSink DLQSink, reporter HealthReporter, policy resilience.Policy) *Relay {
	return &Relay{
		db:        db,
		dbURL:     dbURL,
		health:    reporter,
		deliverer: deliverer{publisher: publisher, dlqSink: dlqSink, policy: policy},
	}
}

// Start listens for notifications and processes rows until ctx is
// cancelled. It is a blocking call, run in its own goroutine by the
// coordinator.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("cdc relay: listener error: %v", err)
		}
	}

	listener := pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(outboxChannelName); err != nil {
		return err
	}
	log.Printf("cdc relay: listening on %q for notifications", outboxChannelName)

	// The streaming relay is stateless across restarts: it resumes from
	// "now" rather than sweeping for a backlog, since outbox_messages
	// carries no processed-state column for it to catch up against.
	r.reportHealthy()

	for {
		select {
		case <-ctx.Done():
			log.Println("cdc relay: shutting down")
			return ctx.Err()

		case notification := <-listener.Notify:
			if notification == nil {
				log.Println("cdc relay: nil notification (reconnecting)")
				r.health.UpdateHealth("cdc_processor", health.Degraded, "listener reconnecting", nil)
				continue
			}
			r.processRowByID(ctx, notification.Extra)
			r.reportHealthy()

		case <-time.After(periodicPingInterval):
			go listener.Ping()
		}
	}
}

func (r *Relay) reportHealthy() {
	r.health.UpdateHealth("cdc_processor", health.Healthy, "", nil)
}

// processRowByID handles one outbox row end to end, never propagating
// an error upward: every row either succeeds or is handed to the DLQ.
func (r *Relay) processRowByID(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	row, ok, err := r.fetchRow(ctx, id)
	if err != nil {
		log.Printf("cdc relay: failed to fetch outbox row %s: %v", id, err)
		return
	}
	if !ok {
		return // row no longer present (garbage-collected out of band)
	}

	r.deliver(ctx, row)
}

func (r *Relay) fetchRow(ctx context.Context, id string) (OutboxRow, bool, error) {
	var row OutboxRow
	err := r.db.QueryRowContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, payload, topic, partition_key, created_at
		 FROM outbox_messages WHERE id = $1`, id,
	).Scan(&row.ID, &row.AggregateID, &row.AggregateType, &row.EventType, &row.Payload, &row.Topic, &row.PartitionKey, &row.CreatedAt)
	if err == sql.ErrNoRows {
		return OutboxRow{}, false, nil
	}
	if err != nil {
		return OutboxRow{}, false, err
	}
	return row, true, nil
}

// Ordering is preserved because one relay instance processes one row at
// a time with in-process-serial retries; delivery itself is handled by
// the shared deliverer.
