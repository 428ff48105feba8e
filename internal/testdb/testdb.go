// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests using it are skipped unless DATABASE_URL is set.
package testdb

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/guardianes/internal/config"
	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds setup and cleanup statements.
const TestTimeout = 10 * time.Second

// DatabaseURL returns the integration database URL, or "" when unset.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// ShouldSkipDatabaseTest reports whether no integration database is configured.
func ShouldSkipDatabaseTest() bool {
	return DatabaseURL() == ""
}

// Open connects to DATABASE_URL, applies the migrations and closes the pool
// when the test ends. The test is skipped when DATABASE_URL is not set.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set; skipping database integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	log, _ := logger.NewTestLogger()
	db, err := postgres.Open(ctx, config.DatabaseConfig{
		Driver:       "postgres",
		URL:          DatabaseURL(),
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}, log)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, log), "failed to migrate test database")
	return db
}

// GuardianID returns an ID unlikely to collide with other test runs and
// deletes every row belonging to it when the test ends.
func GuardianID(t *testing.T, db *sql.DB) domain.GuardianID {
	t.Helper()
	id := domain.GuardianID(rand.Int64N(1<<40) + 1)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
		defer cancel()
		for _, table := range []string{"energy_transactions", "daily_step_aggregates", "step_records"} {
			if _, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE guardian_id = $1", id.Int64()); err != nil {
				t.Logf("cleanup of %s failed: %v", table, err)
			}
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM guardians WHERE id = $1", id.Int64()); err != nil {
			t.Logf("cleanup of guardians failed: %v", err)
		}
	})
	return id
}
