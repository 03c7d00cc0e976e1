package cdc

import (
	"context"
	"database/sql"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/config"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/health"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/resilience"
)

const defaultPollInterval = 5 * time.Second

// PollingRelay is the legacy polling variant, included for completeness
// but not the recommended path. Duplicate suppression is a Redis key
// per event id with a TTL rather than an in-memory set bounded by an
// entry-count cap, which can re-publish already-delivered events once
// the cap clears the set (an acknowledged defect in an earlier design,
// see DESIGN.md); the Redis client is wrapped in the same
// circuit-breaker pattern used elsewhere for external dependencies.
type PollingRelay struct {
	db           *sql.DB
	redisClient  *redis.Client
	redisCB      *gobreaker.CircuitBreaker
	health       HealthReporter
	consumerID   string
	tableName    string
	pollInterval time.Duration
	dedupTTL     time.Duration
	deliverer
}

// NewPollingRelay constructs the legacy relay. dedupTTL should exceed
// the longest plausible gap between a publish and its CDC-visible
// commit; the configuration surface defaults it to 24h.
func NewPollingRelay(db *sql.DB, redisClient *redis.Client, publisher Publisher, dlqSink DLQSink, reporter HealthReporter, policy resilience.Policy, consumerID, tableName string, dedupTTL time.Duration) *PollingRelay {
	return &PollingRelay{
		db:           db,
		redisClient:  redisClient,
		redisCB:      config.NewCircuitBreaker("Redis-CDC-Dedup", config.DefaultDatabaseCircuit),
		health:       reporter,
		consumerID:   consumerID,
		tableName:    tableName,
		pollInterval: defaultPollInterval,
		dedupTTL:     dedupTTL,
		deliverer:    deliverer{publisher: publisher, dlqSink: dlqSink, policy: policy},
	}
}

// Start runs the poll loop until ctx is cancelled.
func (p *PollingRelay) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				log.Printf("cdc polling relay: poll failed: %v", err)
				p.health.UpdateHealth("cdc_processor", health.Degraded, err.Error(), nil)
				continue
			}
			p.health.UpdateHealth("cdc_processor", health.Healthy, "", nil)
		}
	}
}

func (p *PollingRelay) pollOnce(ctx context.Context) error {
	checkpoint, err := p.loadCheckpoint(ctx)
	if err != nil {
		return err
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, payload, topic, partition_key, created_at
		 FROM outbox_messages
		 WHERE created_at > $1 OR (created_at = $1 AND id > $2)
		 ORDER BY created_at ASC, id ASC
		 LIMIT 100`, checkpoint.lastProcessedTime, checkpoint.lastEventID)
	if err != nil {
		return err
	}

	var batch []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.AggregateID, &row.AggregateType, &row.EventType, &row.Payload, &row.Topic, &row.PartitionKey, &row.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, row := range batch {
		if p.alreadySeen(ctx, row.ID) {
			continue
		}
		p.deliver(ctx, row)
		p.markSeen(ctx, row.ID)
	}

	if len(batch) > 0 {
		last := batch[len(batch)-1]
		return p.saveCheckpoint(ctx, last.CreatedAt, last.ID)
	}
	return nil
}

// alreadySeen consults the Redis dedup set. A circuit-open or error
// response fails open (treats the event as unseen) so a Redis outage
// degrades to at-least-once-with-possible-duplicates rather than
// stalling the relay.
func (p *PollingRelay) alreadySeen(ctx context.Context, outboxID string) bool {
	result, err := p.redisCB.Execute(func() (interface{}, error) {
		return p.redisClient.Exists(ctx, dedupKey(outboxID)).Result()
	})
	if err != nil {
		return false
	}
	return result.(int64) > 0
}

func (p *PollingRelay) markSeen(ctx context.Context, outboxID string) {
	_, _ = p.redisCB.Execute(func() (interface{}, error) {
		return nil, p.redisClient.Set(ctx, dedupKey(outboxID), "1", p.dedupTTL).Err()
	})
}

func dedupKey(outboxID string) string { return "cdc:dedup:" + outboxID }

type pollingCheckpoint struct {
	lastProcessedTime time.Time
	lastEventID       string
}

func (p *PollingRelay) loadCheckpoint(ctx context.Context) (pollingCheckpoint, error) {
	var cp pollingCheckpoint
	err := p.db.QueryRowContext(ctx,
		`SELECT last_processed_time, last_event_id FROM cdc_offsets WHERE consumer_id = $1 AND table_name = $2`,
		p.consumerID, p.tableName,
	).Scan(&cp.lastProcessedTime, &cp.lastEventID)
	if err == sql.ErrNoRows {
		return pollingCheckpoint{}, nil
	}
	return cp, err
}

func (p *PollingRelay) saveCheckpoint(ctx context.Context, lastProcessedTime time.Time, lastEventID string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO cdc_offsets (consumer_id, table_name, last_processed_time, last_event_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (consumer_id, table_name) DO UPDATE
		   SET last_processed_time = EXCLUDED.last_processed_time,
		       last_event_id = EXCLUDED.last_event_id,
		       updated_at = EXCLUDED.updated_at`,
		p.consumerID, p.tableName, lastProcessedTime, lastEventID, time.Now().UTC(),
	)
	return err
}
