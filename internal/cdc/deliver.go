package cdc

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/dlq"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/metrics"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/resilience"
)

// deliverer is the publish-under-retry-or-DLQ logic both the streaming
// and legacy polling relays share.
type deliverer struct {
	publisher Publisher
	dlqSink   DLQSink
	policy    resilience.Policy
}

// deliver publishes one row under the configured retry policy and
// routes exhaustion to the DLQ; it never returns an error, matching the
// relay's "never fails upward" propagation policy.
func (d deliverer) deliver(ctx context.Context, row OutboxRow) {
	start := time.Now()

	result := d.policy.RunOnTransient(ctx, func(attempt int) error {
		metrics.RetryAttemptsTotal.WithLabelValues(retryOperationName, strconv.Itoa(attempt)).Inc()
		return d.publisher.Publish(ctx, row.Topic, row.ID, row.Payload)
	})

	metrics.CDCProcessingDuration.WithLabelValues(row.EventType).Observe(time.Since(start).Seconds())

	switch result.Outcome {
	case resilience.OutcomeSuccess:
		metrics.RetrySuccessTotal.WithLabelValues(retryOperationName).Inc()
		metrics.CDCEventsProcessedTotal.WithLabelValues(row.EventType).Inc()

	default:
		metrics.RetryFailureTotal.WithLabelValues(retryOperationName).Inc()
		reason := "exhausted"
		if result.Outcome == resilience.OutcomePermanentFailure {
			reason = "unavailable"
		}
		metrics.CDCEventsFailedTotal.WithLabelValues(row.EventType, reason).Inc()
		d.sendToDLQ(ctx, row, result, start)
	}
}

func (d deliverer) sendToDLQ(ctx context.Context, row OutboxRow, result resilience.Result, firstAttemptAt time.Time) {
	now := time.Now().UTC()
	rec := dlq.Record{
		ID:            row.ID,
		AggregateID:   row.AggregateID,
		EventType:     row.EventType,
		Payload:       row.Payload,
		ErrorMessage:  result.Err.Error(),
		FailureCount:  d.policy.MaxAttempts,
		FirstFailedAt: firstAttemptAt.UTC(),
		LastFailedAt:  now,
		CreatedAt:     now,
	}
	if err := d.dlqSink.Add(ctx, rec); err != nil {
		log.Printf("cdc relay: failed to write DLQ record for %s: %v", row.ID, err)
		return
	}
	metrics.DLQMessagesTotal.Inc()
	metrics.DLQMessagesByEventType.WithLabelValues(row.EventType).Inc()
}
