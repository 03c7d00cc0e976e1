package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration surface for the event-sourcing engine,
// the CDC relay, and the coordinator tick intervals.
type Config struct {
	BrokerBootstrap      string
	DatabaseContactPoint string
	Keyspace             string
	MetricsPort          int
	HealthTick           time.Duration
	CoordinatorTick      time.Duration
	BrokerCircuit        CircuitBreakerConfig
	DatabaseCircuit      CircuitBreakerConfig
	DedupTTL             time.Duration
}

// Load reads the configuration surface from the environment, applying the
// documented defaults where a variable is unset.
func Load() *Config {
	return &Config{
		BrokerBootstrap:      getEnv("BROKER_BOOTSTRAP", "127.0.0.1:9092"),
		DatabaseContactPoint: getEnv("DATABASE_CONTACT_POINT", "127.0.0.1:9042"),
		Keyspace:             getEnv("KEYSPACE", "orders_ks"),
		MetricsPort:          getEnvInt("METRICS_PORT", 9090),
		HealthTick:           10 * time.Second,
		CoordinatorTick:      30 * time.Second,
		BrokerCircuit:        DefaultBrokerCircuit,
		DatabaseCircuit:      DefaultDatabaseCircuit,
		DedupTTL:             24 * time.Hour,
	}
}

// DatabaseURL returns the libpq connection string backing the event store,
// outbox, and DLQ tables. PostgreSQL stands in for a wide-column store
// here (see DESIGN.md for the grounding).
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return "postgres://" + c.DatabaseContactPoint + "/" + c.Keyspace + "?sslmode=disable"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
