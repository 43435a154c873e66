package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/parla/internal/progress/postgres"
	"github.com/MrWong99/parla/internal/progress/storetest"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if PARLA_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PARLA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PARLA_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

func TestStore_Conformance(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS progress_records"); err != nil {
		t.Fatalf("drop: %v", err)
	}

	s, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate is not idempotent: %v", err)
	}
	storetest.Run(t, s)
}

func TestNewStore_BadDSN(t *testing.T) {
	t.Parallel()
	if _, err := postgres.NewStore(context.Background(), "::not a dsn::"); err == nil {
		t.Error("NewStore with malformed DSN succeeded, want error")
	}
}
