package order_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func testEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// setupDB connects to the test database, applies the schema and truncates
// all engine tables. Tests that need Postgres are skipped when no database
// is reachable.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		testEnv("TEST_DB_HOST", "localhost"),
		testEnv("TEST_DB_PORT", "5432"),
		testEnv("TEST_DB_USER", "postgres"),
		testEnv("TEST_DB_PASSWORD", "postgres"),
		testEnv("TEST_DB_NAME", "order_engine_test"),
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		t.Skipf("skipping: failed to create test database pool: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		t.Skipf("skipping: test database not reachable: %v", err)
	}

	applySchema(t, pool)

	truncate := func() {
		_, err := pool.Exec(context.Background(),
			"TRUNCATE TABLE low_stock_alerts, order_items, orders, inventory_lots, customers CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}
	truncate()

	t.Cleanup(func() {
		truncate()
		pool.Close()
	})

	return pool
}

func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_init.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read schema file: %v", err)
	}

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("Failed to apply schema statement: %v", err)
		}
	}
}
