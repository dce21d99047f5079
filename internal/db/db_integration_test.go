//go:build integration

package db

import (
	"context"
	"os"
	"testing"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	if err := Migrate(ctx, dsn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Contract tests use companies prefixed with "Contract Test".
	_, _ = db.pool.Exec(ctx, "DELETE FROM jobs WHERE company LIKE 'Contract Test%'")
	t.Cleanup(func() {
		_, _ = db.pool.Exec(ctx, "DELETE FROM jobs WHERE company LIKE 'Contract Test%'")
		db.Close()
	})
	return db
}

func TestIntegration_PostgresStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return getTestDB(t) })
}

func TestIntegration_Migrate_Idempotent(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	for i := 0; i < 2; i++ {
		if err := Migrate(context.Background(), dsn); err != nil {
			t.Fatalf("Migrate run %d failed: %v", i+1, err)
		}
	}
}
