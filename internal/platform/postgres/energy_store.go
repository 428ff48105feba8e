package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/store"
)

// PostgresEnergyStore implements the store.EnergyStore interface
// using a PostgreSQL database as the storage backend.
type PostgresEnergyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEnergyStore creates a new PostgreSQL implementation of the EnergyStore interface.
func NewPostgresEnergyStore(db store.DBTX, logger *slog.Logger) *PostgresEnergyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEnergyStore{
		db:     db,
		logger: logger.With(slog.String("component", "energy_store")),
	}
}

// Ensure PostgresEnergyStore implements store.EnergyStore interface
var _ store.EnergyStore = (*PostgresEnergyStore)(nil)

// WithTx returns a new PostgresEnergyStore bound to tx.
func (s *PostgresEnergyStore) WithTx(tx *sql.Tx) *PostgresEnergyStore {
	return &PostgresEnergyStore{db: tx, logger: s.logger}
}

const transactionColumns = `id, guardian_id, type, amount, source, occurred_at`

// AppendTransaction implements store.EnergyStore.AppendTransaction
func (s *PostgresEnergyStore) AppendTransaction(ctx context.Context, tx *domain.EnergyTransaction) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tx.Validate(); err != nil {
		log.Warn("energy transaction validation failed",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO energy_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.GuardianID.Int64(),
		string(tx.Type),
		tx.Amount.Int64(),
		string(tx.Source),
		tx.OccurredAt.UTC(),
	)
	if err != nil {
		log.Error("failed to append energy transaction",
			slog.String("error", err.Error()),
			slog.String("transaction_id", tx.ID.String()),
			slog.Int64("guardian_id", tx.GuardianID.Int64()))
		return store.NewStoreError("energy_transaction", "append", "insert failed", MapError(err))
	}

	log.Debug("energy transaction appended",
		slog.String("transaction_id", tx.ID.String()),
		slog.String("type", string(tx.Type)),
		slog.Int64("amount", tx.Amount.Int64()))
	return nil
}

// TransactionsFor implements store.EnergyStore.TransactionsFor
func (s *PostgresEnergyStore) TransactionsFor(
	ctx context.Context,
	guardianID domain.GuardianID,
) ([]*domain.EnergyTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM energy_transactions
		WHERE guardian_id = $1
		ORDER BY occurred_at, seq
	`
	return s.query(ctx, "list", query, guardianID.Int64())
}

// TransactionsForDateRange implements store.EnergyStore.TransactionsForDateRange
func (s *PostgresEnergyStore) TransactionsForDateRange(
	ctx context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]*domain.EnergyTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM energy_transactions
		WHERE guardian_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
		ORDER BY occurred_at, seq
	`
	return s.query(ctx, "list_range", query, guardianID.Int64(), from.UTC(), to.UTC())
}

// RecentTransactions implements store.EnergyStore.RecentTransactions
func (s *PostgresEnergyStore) RecentTransactions(
	ctx context.Context,
	guardianID domain.GuardianID,
	limit int,
) ([]*domain.EnergyTransaction, error) {
	if limit <= 0 {
		query := `
			SELECT ` + transactionColumns + `
			FROM energy_transactions
			WHERE guardian_id = $1
			ORDER BY occurred_at DESC, seq DESC
		`
		return s.query(ctx, "recent", query, guardianID.Int64())
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM energy_transactions
		WHERE guardian_id = $1
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $2
	`
	return s.query(ctx, "recent", query, guardianID.Int64(), limit)
}

// Balance implements store.EnergyStore.Balance. It is always computed from
// the log.
func (s *PostgresEnergyStore) Balance(ctx context.Context, guardianID domain.GuardianID) (domain.Energy, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'EARNED' THEN amount ELSE -amount END), 0)
		FROM energy_transactions
		WHERE guardian_id = $1
	`
	var balance int64
	if err := s.db.QueryRowContext(ctx, query, guardianID.Int64()).Scan(&balance); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to compute balance",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", guardianID.Int64()))
		return 0, store.NewStoreError("energy_transaction", "balance", "query failed", MapError(err))
	}
	return domain.Energy(balance), nil
}

func (s *PostgresEnergyStore) query(
	ctx context.Context,
	operation, query string,
	args ...any,
) ([]*domain.EnergyTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query energy transactions",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("energy_transaction", operation, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.EnergyTransaction
	for rows.Next() {
		var (
			tx         domain.EnergyTransaction
			guardianID int64
			txType     string
			amount     int64
			source     string
		)
		if err := rows.Scan(&tx.ID, &guardianID, &txType, &amount, &source, &tx.OccurredAt); err != nil {
			return nil, store.NewStoreError("energy_transaction", operation, "scan failed", err)
		}
		tx.GuardianID = domain.GuardianID(guardianID)
		tx.Type = domain.TransactionType(txType)
		tx.Amount = domain.Energy(amount)
		tx.Source = domain.EnergySource(source)
		out = append(out, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("energy_transaction", operation, "row iteration failed", MapError(err))
	}
	return out, nil
}
