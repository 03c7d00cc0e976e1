// Package broker is a circuit-breaker-guarded publisher to a
// Kafka-compatible broker, speaking the Kafka wire protocol via
// github.com/twmb/franz-go/pkg/kgo.
package broker

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/config"
)

// sendTimeout bounds a single publish attempt.
const sendTimeout = 5 * time.Second

const breakerName = "Broker-Kafka"

// Client publishes key/payload records to named topics, guarded by a
// circuit breaker.
type Client struct {
	producer *kgo.Client
	cbCfg    config.CircuitBreakerConfig

	mu sync.RWMutex
	cb *gobreaker.CircuitBreaker
}

// NewClient dials the configured broker bootstrap and wraps publishes in
// a circuit breaker tuned from cfg.BrokerCircuit.
func NewClient(bootstrap string, cfg config.CircuitBreakerConfig) (*Client, error) {
	producer, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(bootstrap, ",")...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		producer: producer,
		cbCfg:    cfg,
		cb:       config.NewCircuitBreaker(breakerName, cfg),
	}, nil
}

// Close releases the underlying producer connection.
func (c *Client) Close() {
	c.producer.Close()
}

// Publish sends payload under key to topic, guarded by the circuit
// breaker. On an open circuit it returns *ErrUnavailable; on a send
// failure it returns *ErrTransient so callers can distinguish the two for
// retry purposes.
func (c *Client) Publish(ctx context.Context, topic, key string, payload []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := c.breaker().Execute(func() (interface{}, error) {
		record := &kgo.Record{
			Topic: topic,
			Key:   []byte(key),
			Value: payload,
		}
		results := c.producer.ProduceSync(sendCtx, record)
		return nil, results.FirstErr()
	})

	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		log.Printf("broker: circuit open, rejecting publish to %q", topic)
		return &ErrUnavailable{Topic: topic}
	default:
		return &ErrTransient{Topic: topic, Err: err}
	}
}

func (c *Client) breaker() *gobreaker.CircuitBreaker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cb
}

// CircuitState reports the current breaker state, consumed by the health
// monitor and exposed to operators.
func (c *Client) CircuitState() gobreaker.State {
	return c.breaker().State()
}

// ResetCircuit forces the breaker back to Closed by swapping in a fresh
// breaker instance; gobreaker exposes no in-place reset.
func (c *Client) ResetCircuit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.Printf("broker: manual circuit reset for %q (was %s)", breakerName, c.cb.State())
	c.cb = config.NewCircuitBreaker(breakerName, c.cbCfg)
}
