// Package databasetest starts a throwaway PostgreSQL for integration tests.
package databasetest

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-tutor/internal/platform/database"
)

const image = "postgres:16-alpine"

// NewPool runs a PostgreSQL container, applies the migrations and returns a
// pool against it. The test is skipped in short mode or without a container
// provider.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("tutor"),
		postgres.WithUsername("tutor"),
		postgres.WithPassword("tutor"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	db, err := database.New(ctx, url, 5, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := database.Migrate(ctx, db.Pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db.Pool
}
