package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/broker"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/cdc"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/config"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/coordinator"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/dlq"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/health"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/metrics"
	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/resilience"
)

func main() {
	log.Println("server: starting event-sourcing engine...")

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("server: failed to open database: %v", err)
	}
	defer db.Close()
	log.Println("server: database connection initialized - circuit breakers validate on first operation")

	brokerClient, err := broker.NewClient(cfg.BrokerBootstrap, cfg.BrokerCircuit)
	if err != nil {
		log.Fatalf("server: failed to create broker client: %v", err)
	}
	defer brokerClient.Close()
	log.Println("server: broker client connected")

	dlqStore := dlq.NewStore(db, cfg.DatabaseCircuit)

	monitor := health.NewMonitor(cfg.HealthTick, brokerClient.CircuitState)

	relay := newRelay(cfg, db, brokerClient, dlqStore, monitor)

	coord := coordinator.New(monitor, relay, cfg.CoordinatorTick)

	metricsServer := metrics.NewServer(metrics.Addr(cfg.MetricsPort), "event-sourcing-engine")
	go func() {
		log.Printf("server: starting metrics/health server on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server: metrics server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := coord.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("server: received signal %v, initiating shutdown...", sig)
		cancel()
	case err := <-errChan:
		log.Printf("server: fatal error, shutting down: %v", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: error shutting down metrics server: %v", err)
	}

	log.Println("server: shutdown complete")
}

// newRelay builds the streaming relay by default and the legacy polling
// variant (with its Redis dedup set) when CDC_MODE=polling, per the two
// variants the CDC component supports.
func newRelay(cfg *config.Config, db *sql.DB, publisher cdc.Publisher, dlqStore *dlq.Store, monitor *health.Monitor) coordinator.Relay {
	policy := resilience.AggressivePolicy

	if os.Getenv("CDC_MODE") == "polling" {
		redisClient := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "127.0.0.1:6379")})
		log.Println("server: using legacy polling CDC relay")
		return cdc.NewPollingRelay(db, redisClient, publisher, dlqStore, monitor, policy, "cdc-polling-relay", "outbox_messages", cfg.DedupTTL)
	}

	log.Println("server: using streaming CDC relay")
	return cdc.NewRelay(db, cfg.DatabaseURL(), publisher, dlqStore, monitor, policy)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
