package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/store"
)

// PostgresStepStore implements the store.StepStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStepStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStepStore creates a new PostgreSQL implementation of the StepStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresStepStore(db store.DBTX, logger *slog.Logger) *PostgresStepStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStepStore{
		db:     db,
		logger: logger.With(slog.String("component", "step_store")),
	}
}

// Ensure PostgresStepStore implements store.StepStore interface
var _ store.StepStore = (*PostgresStepStore)(nil)

// WithTx returns a new PostgresStepStore bound to tx.
func (s *PostgresStepStore) WithTx(tx *sql.Tx) *PostgresStepStore {
	return &PostgresStepStore{db: tx, logger: s.logger}
}

// Save implements store.StepStore.Save
func (s *PostgresStepStore) Save(ctx context.Context, record *domain.StepRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("step record validation failed during save",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO step_records (id, guardian_id, steps, recorded_at, flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.GuardianID.Int64(),
		record.Steps.Int(),
		record.RecordedAt.UTC(),
		record.Flagged,
		record.CreatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to save step record",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()),
			slog.Int64("guardian_id", record.GuardianID.Int64()))
		return store.NewStoreError("step_record", "save", "insert failed", MapError(err))
	}

	log.Debug("step record saved",
		slog.String("record_id", record.ID.String()),
		slog.Int64("guardian_id", record.GuardianID.Int64()),
		slog.Int("steps", record.Steps.Int()))
	return nil
}

// FindByGuardianAndDate implements store.StepStore.FindByGuardianAndDate
func (s *PostgresStepStore) FindByGuardianAndDate(
	ctx context.Context,
	guardianID domain.GuardianID,
	date time.Time,
) ([]*domain.StepRecord, error) {
	day := domain.CalendarDate(date, time.UTC)
	query := `
		SELECT id, guardian_id, steps, recorded_at, flagged, created_at
		FROM step_records
		WHERE guardian_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at
	`
	return s.queryRecords(ctx, "find_by_date", query, guardianID.Int64(), day, day.AddDate(0, 0, 1))
}

// FindByGuardianAndDateRange implements store.StepStore.FindByGuardianAndDateRange
func (s *PostgresStepStore) FindByGuardianAndDateRange(
	ctx context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]*domain.StepRecord, error) {
	query := `
		SELECT id, guardian_id, steps, recorded_at, flagged, created_at
		FROM step_records
		WHERE guardian_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at
	`
	return s.queryRecords(ctx, "find_by_range", query, guardianID.Int64(), from.UTC(), to.UTC())
}

func (s *PostgresStepStore) queryRecords(
	ctx context.Context,
	operation, query string,
	args ...any,
) ([]*domain.StepRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query step records",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("step_record", operation, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.StepRecord
	for rows.Next() {
		var (
			r          domain.StepRecord
			guardianID int64
			steps      int
		)
		if err := rows.Scan(&r.ID, &guardianID, &steps, &r.RecordedAt, &r.Flagged, &r.CreatedAt); err != nil {
			return nil, store.NewStoreError("step_record", operation, "scan failed", err)
		}
		r.GuardianID = domain.GuardianID(guardianID)
		r.Steps = domain.StepCount(steps)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("step_record", operation, "row iteration failed", MapError(err))
	}
	return records, nil
}

// CountSubmissionsInWindow implements store.StepStore.CountSubmissionsInWindow
func (s *PostgresStepStore) CountSubmissionsInWindow(
	ctx context.Context,
	guardianID domain.GuardianID,
	start, end time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM step_records
		WHERE guardian_id = $1 AND recorded_at > $2 AND recorded_at < $3
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, guardianID.Int64(), start.UTC(), end.UTC()).Scan(&count); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count submissions",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", guardianID.Int64()))
		return 0, store.NewStoreError("step_record", "count_window", "query failed", MapError(err))
	}
	return count, nil
}

// UpsertDailyAggregate implements store.StepStore.UpsertDailyAggregate.
// The (guardian_id, day) unique constraint guarantees one row per day.
func (s *PostgresStepStore) UpsertDailyAggregate(ctx context.Context, aggregate domain.DailyStepAggregate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := aggregate.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO daily_step_aggregates (guardian_id, day, total_steps, submission_count, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guardian_id, day) DO UPDATE
		SET total_steps = EXCLUDED.total_steps,
			submission_count = EXCLUDED.submission_count,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		aggregate.GuardianID.Int64(),
		domain.CalendarDate(aggregate.Date, time.UTC),
		aggregate.TotalSteps.Int(),
		aggregate.SubmissionCount,
		aggregate.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to upsert daily aggregate",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", aggregate.GuardianID.Int64()))
		return store.NewStoreError("daily_aggregate", "upsert", "upsert failed", MapError(err))
	}
	return nil
}

// FindDailyAggregate implements store.StepStore.FindDailyAggregate
func (s *PostgresStepStore) FindDailyAggregate(
	ctx context.Context,
	guardianID domain.GuardianID,
	date time.Time,
) (*domain.DailyStepAggregate, error) {
	query := `
		SELECT guardian_id, day, total_steps, submission_count, updated_at
		FROM daily_step_aggregates
		WHERE guardian_id = $1 AND day = $2
	`
	row := s.db.QueryRowContext(ctx, query, guardianID.Int64(), domain.CalendarDate(date, time.UTC))
	agg, err := scanAggregate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDailyAggregateNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load daily aggregate",
			slog.String("error", err.Error()),
			slog.Int64("guardian_id", guardianID.Int64()))
		return nil, store.NewStoreError("daily_aggregate", "find", "query failed", MapError(err))
	}
	return &agg, nil
}

// FindDailyAggregatesInRange implements store.StepStore.FindDailyAggregatesInRange
func (s *PostgresStepStore) FindDailyAggregatesInRange(
	ctx context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]domain.DailyStepAggregate, error) {
	query := `
		SELECT guardian_id, day, total_steps, submission_count, updated_at
		FROM daily_step_aggregates
		WHERE guardian_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day
	`
	rows, err := s.db.QueryContext(ctx, query,
		guardianID.Int64(),
		domain.CalendarDate(from, time.UTC),
		domain.CalendarDate(to, time.UTC),
	)
	if err != nil {
		return nil, store.NewStoreError("daily_aggregate", "find_range", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []domain.DailyStepAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, store.NewStoreError("daily_aggregate", "find_range", "scan failed", err)
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("daily_aggregate", "find_range", "row iteration failed", MapError(err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row scanner) (domain.DailyStepAggregate, error) {
	var (
		agg        domain.DailyStepAggregate
		guardianID int64
		total      int
	)
	if err := row.Scan(&guardianID, &agg.Date, &total, &agg.SubmissionCount, &agg.UpdatedAt); err != nil {
		return domain.DailyStepAggregate{}, err
	}
	agg.GuardianID = domain.GuardianID(guardianID)
	agg.TotalSteps = domain.StepCount(total)
	agg.Date = domain.CalendarDate(agg.Date, time.UTC)
	return agg, nil
}
