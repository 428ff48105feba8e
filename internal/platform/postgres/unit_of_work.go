package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/store"
)

// UnitOfWork implements store.UnitOfWork on PostgreSQL. Each Run executes in
// its own transaction and takes a transaction-scoped advisory lock keyed by
// the guardian ID, so concurrent submissions for one guardian are applied
// one after another while different guardians proceed in parallel.
type UnitOfWork struct {
	db        *sql.DB
	logger    *slog.Logger
	steps     *PostgresStepStore
	energy    *PostgresEnergyStore
	guardians *PostgresGuardianStore
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates a UnitOfWork over db.
func NewUnitOfWork(db *sql.DB, logger *slog.Logger) *UnitOfWork {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitOfWork{
		db:        db,
		logger:    logger.With(slog.String("component", "unit_of_work")),
		steps:     NewPostgresStepStore(db, logger),
		energy:    NewPostgresEnergyStore(db, logger),
		guardians: NewPostgresGuardianStore(db, logger),
	}
}

// Stores returns stores bound to the connection pool.
func (u *UnitOfWork) Stores() store.Stores {
	return store.Stores{
		Steps:     u.steps,
		Energy:    u.energy,
		Guardians: u.guardians,
	}
}

// Run implements store.UnitOfWork.Run.
func (u *UnitOfWork) Run(
	ctx context.Context,
	guardianID domain.GuardianID,
	fn func(ctx context.Context, s store.Stores) error,
) error {
	return store.RunInTransaction(ctx, u.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", guardianID.Int64()); err != nil {
			logger.FromContextOrDefault(ctx, u.logger).Error("failed to acquire guardian lock",
				slog.String("error", err.Error()),
				slog.Int64("guardian_id", guardianID.Int64()))
			return fmt.Errorf("%w: failed to lock guardian %d: %w",
				store.ErrTransactionFailed, guardianID, err)
		}

		return fn(ctx, store.Stores{
			Steps:     u.steps.WithTx(tx),
			Energy:    u.energy.WithTx(tx),
			Guardians: u.guardians.WithTx(tx),
		})
	})
}
