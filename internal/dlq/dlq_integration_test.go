package dlq

// Integration tests for Store against a real PostgreSQL instance.
//
// RUNNING THESE TESTS:
// 1. Point TEST_DB_CONNECTION_STRING at a scratch Postgres database.
// 2. Run: go test ./internal/dlq/...

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/config"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	dbURL := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dbURL == "" {
		fmt.Println("Skipping dlq integration tests: TEST_DB_CONNECTION_STRING not set")
		os.Exit(0)
	}

	var err error
	testDB, err = sql.Open("postgres", dbURL)
	if err != nil {
		fmt.Printf("failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	defer testDB.Close()

	if err := testDB.Ping(); err != nil {
		fmt.Printf("failed to ping test database: %v\n", err)
		os.Exit(1)
	}

	if err := setupDLQTestSchema(testDB); err != nil {
		fmt.Printf("failed to set up test schema: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func setupDLQTestSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dead_letter_queue (
			id              VARCHAR(36) PRIMARY KEY,
			aggregate_id    VARCHAR(36) NOT NULL,
			event_type      VARCHAR(100) NOT NULL,
			payload         JSONB NOT NULL,
			error_message   TEXT NOT NULL,
			failure_count   INT NOT NULL,
			first_failed_at TIMESTAMP NOT NULL,
			last_failed_at  TIMESTAMP NOT NULL,
			created_at      TIMESTAMP NOT NULL DEFAULT now()
		);
	`)
	return err
}

func cleanupDLQTestData(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, _ = testDB.Exec(`DELETE FROM dead_letter_queue WHERE id = $1`, id)
	}
}

func newTestDLQStore() *Store {
	return NewStore(testDB, config.DefaultDatabaseCircuit)
}

func TestStore_AddAndList(t *testing.T) {
	if testDB == nil {
		t.Skip("requires TEST_DB_CONNECTION_STRING")
	}
	store := newTestDLQStore()
	ctx := context.Background()

	rec := Record{
		ID:            "dlq-it-add-1",
		AggregateID:   "order-1",
		EventType:     "OrderShipped",
		Payload:       []byte(`{"orderId":"order-1"}`),
		ErrorMessage:  "broker unreachable",
		FailureCount:  3,
		FirstFailedAt: time.Now().UTC().Add(-time.Minute),
		LastFailedAt:  time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	defer cleanupDLQTestData(t, rec.ID)

	if err := store.Add(ctx, rec); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Adding the same id again must be a no-op, not a duplicate row.
	if err := store.Add(ctx, rec); err != nil {
		t.Fatalf("Add (duplicate): %v", err)
	}

	records, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var found *Record
	for i := range records {
		if records[i].ID == rec.ID {
			found = &records[i]
		}
	}
	if found == nil {
		t.Fatalf("expected record %s in List results, got %+v", rec.ID, records)
	}
	if found.EventType != rec.EventType || found.FailureCount != rec.FailureCount {
		t.Fatalf("List returned mismatched record: %+v", found)
	}
}

func TestStore_Stats_BreaksDownByEventType(t *testing.T) {
	if testDB == nil {
		t.Skip("requires TEST_DB_CONNECTION_STRING")
	}
	store := newTestDLQStore()
	ctx := context.Background()

	now := time.Now().UTC()
	recs := []Record{
		{ID: "dlq-it-stats-1", AggregateID: "order-1", EventType: "OrderShipped", Payload: []byte(`{}`), ErrorMessage: "x", FailureCount: 1, FirstFailedAt: now, LastFailedAt: now, CreatedAt: now},
		{ID: "dlq-it-stats-2", AggregateID: "order-2", EventType: "OrderShipped", Payload: []byte(`{}`), ErrorMessage: "x", FailureCount: 1, FirstFailedAt: now, LastFailedAt: now, CreatedAt: now},
		{ID: "dlq-it-stats-3", AggregateID: "cust-1", EventType: "CustomerRegistered", Payload: []byte(`{}`), ErrorMessage: "x", FailureCount: 1, FirstFailedAt: now, LastFailedAt: now, CreatedAt: now},
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	defer cleanupDLQTestData(t, ids...)

	for _, r := range recs {
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add(%s): %v", r.ID, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total < 3 {
		t.Fatalf("expected total >= 3, got %d", stats.Total)
	}
	if stats.ByEventType["OrderShipped"] < 2 {
		t.Fatalf("expected at least 2 OrderShipped records, got %d", stats.ByEventType["OrderShipped"])
	}
	if stats.ByEventType["CustomerRegistered"] < 1 {
		t.Fatalf("expected at least 1 CustomerRegistered record, got %d", stats.ByEventType["CustomerRegistered"])
	}
}
