package store

import (
	"context"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
)

// StepStore persists raw step records and per-day aggregates.
type StepStore interface {
	// Save appends a step record.
	// Returns ErrInvalidEntity if the record fails validation.
	Save(ctx context.Context, record *domain.StepRecord) error

	// FindByGuardianAndDate returns the records whose RecordedAt falls on the
	// given UTC calendar date, ordered by RecordedAt.
	FindByGuardianAndDate(ctx context.Context, guardianID domain.GuardianID, date time.Time) ([]*domain.StepRecord, error)

	// FindByGuardianAndDateRange returns records with from <= RecordedAt <= to,
	// ordered by RecordedAt.
	FindByGuardianAndDateRange(
		ctx context.Context,
		guardianID domain.GuardianID,
		from, to time.Time,
	) ([]*domain.StepRecord, error)

	// CountSubmissionsInWindow counts records with start < RecordedAt < end.
	CountSubmissionsInWindow(ctx context.Context, guardianID domain.GuardianID, start, end time.Time) (int, error)

	// UpsertDailyAggregate creates or replaces the aggregate for
	// (GuardianID, Date). There is never more than one per pair.
	UpsertDailyAggregate(ctx context.Context, aggregate domain.DailyStepAggregate) error

	// FindDailyAggregate returns the aggregate for a guardian and date.
	// Returns ErrDailyAggregateNotFound if none exists.
	FindDailyAggregate(ctx context.Context, guardianID domain.GuardianID, date time.Time) (*domain.DailyStepAggregate, error)

	// FindDailyAggregatesInRange returns the aggregates with from <= Date <= to,
	// ordered by Date.
	FindDailyAggregatesInRange(
		ctx context.Context,
		guardianID domain.GuardianID,
		from, to time.Time,
	) ([]domain.DailyStepAggregate, error)
}

// EnergyStore is the append-only energy transaction log.
type EnergyStore interface {
	// AppendTransaction adds an entry to the log. Entries are never updated.
	AppendTransaction(ctx context.Context, tx *domain.EnergyTransaction) error

	// TransactionsFor returns every entry for a guardian, oldest first.
	TransactionsFor(ctx context.Context, guardianID domain.GuardianID) ([]*domain.EnergyTransaction, error)

	// TransactionsForDateRange returns entries with from <= OccurredAt <= to, oldest first.
	TransactionsForDateRange(
		ctx context.Context,
		guardianID domain.GuardianID,
		from, to time.Time,
	) ([]*domain.EnergyTransaction, error)

	// RecentTransactions returns at most limit entries, newest first.
	// A non-positive limit returns every entry.
	RecentTransactions(ctx context.Context, guardianID domain.GuardianID, limit int) ([]*domain.EnergyTransaction, error)

	// Balance returns the signed sum of all entries for a guardian.
	Balance(ctx context.Context, guardianID domain.GuardianID) (domain.Energy, error)
}

// GuardianStore persists guardians.
type GuardianStore interface {
	// Create registers a guardian. Returns ErrDuplicate if the ID is taken.
	Create(ctx context.Context, guardian *domain.Guardian) error

	// Load returns a guardian. Returns ErrGuardianNotFound if it does not exist.
	Load(ctx context.Context, id domain.GuardianID) (*domain.Guardian, error)

	// Save persists the guardian's progression state and active flag.
	// Returns ErrGuardianNotFound if it does not exist.
	Save(ctx context.Context, guardian *domain.Guardian) error
}

// Stores bundles the stores that take part in one unit of work.
type Stores struct {
	Steps     StepStore
	Energy    EnergyStore
	Guardians GuardianStore
}

// UnitOfWork runs a function with stores bound to one atomic, per-guardian
// serialized transaction.
type UnitOfWork interface {
	// Stores returns stores that operate outside any transaction, for reads.
	Stores() Stores

	// Run executes fn while holding the guardian's lock. Writes made through
	// the Stores passed to fn are committed if fn returns nil and discarded
	// otherwise. Calls for different guardians do not block each other.
	Run(ctx context.Context, guardianID domain.GuardianID, fn func(ctx context.Context, s Stores) error) error
}
