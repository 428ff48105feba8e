package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/store"
)

// MockStepStore overrides selected store.StepStore methods. Methods without
// a function field delegate to the embedded StepStore.
type MockStepStore struct {
	store.StepStore

	SaveFn                     func(ctx context.Context, record *domain.StepRecord) error
	CountSubmissionsInWindowFn func(ctx context.Context, id domain.GuardianID, start, end time.Time) (int, error)
	UpsertDailyAggregateFn     func(ctx context.Context, aggregate domain.DailyStepAggregate) error
	FindDailyAggregateFn       func(ctx context.Context, id domain.GuardianID, date time.Time) (*domain.DailyStepAggregate, error)
}

// Save implements store.StepStore.Save
func (m *MockStepStore) Save(ctx context.Context, record *domain.StepRecord) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, record)
	}
	return m.StepStore.Save(ctx, record)
}

// CountSubmissionsInWindow implements store.StepStore.CountSubmissionsInWindow
func (m *MockStepStore) CountSubmissionsInWindow(
	ctx context.Context,
	id domain.GuardianID,
	start, end time.Time,
) (int, error) {
	if m.CountSubmissionsInWindowFn != nil {
		return m.CountSubmissionsInWindowFn(ctx, id, start, end)
	}
	return m.StepStore.CountSubmissionsInWindow(ctx, id, start, end)
}

// UpsertDailyAggregate implements store.StepStore.UpsertDailyAggregate
func (m *MockStepStore) UpsertDailyAggregate(ctx context.Context, aggregate domain.DailyStepAggregate) error {
	if m.UpsertDailyAggregateFn != nil {
		return m.UpsertDailyAggregateFn(ctx, aggregate)
	}
	return m.StepStore.UpsertDailyAggregate(ctx, aggregate)
}

// FindDailyAggregate implements store.StepStore.FindDailyAggregate
func (m *MockStepStore) FindDailyAggregate(
	ctx context.Context,
	id domain.GuardianID,
	date time.Time,
) (*domain.DailyStepAggregate, error) {
	if m.FindDailyAggregateFn != nil {
		return m.FindDailyAggregateFn(ctx, id, date)
	}
	return m.StepStore.FindDailyAggregate(ctx, id, date)
}

// MockEnergyStore overrides selected store.EnergyStore methods.
type MockEnergyStore struct {
	store.EnergyStore

	AppendTransactionFn func(ctx context.Context, tx *domain.EnergyTransaction) error
	BalanceFn           func(ctx context.Context, id domain.GuardianID) (domain.Energy, error)
}

// AppendTransaction implements store.EnergyStore.AppendTransaction
func (m *MockEnergyStore) AppendTransaction(ctx context.Context, tx *domain.EnergyTransaction) error {
	if m.AppendTransactionFn != nil {
		return m.AppendTransactionFn(ctx, tx)
	}
	return m.EnergyStore.AppendTransaction(ctx, tx)
}

// Balance implements store.EnergyStore.Balance
func (m *MockEnergyStore) Balance(ctx context.Context, id domain.GuardianID) (domain.Energy, error) {
	if m.BalanceFn != nil {
		return m.BalanceFn(ctx, id)
	}
	return m.EnergyStore.Balance(ctx, id)
}

// MockGuardianStore overrides selected store.GuardianStore methods.
type MockGuardianStore struct {
	store.GuardianStore

	LoadFn func(ctx context.Context, id domain.GuardianID) (*domain.Guardian, error)
	SaveFn func(ctx context.Context, guardian *domain.Guardian) error
}

// Load implements store.GuardianStore.Load
func (m *MockGuardianStore) Load(ctx context.Context, id domain.GuardianID) (*domain.Guardian, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx, id)
	}
	return m.GuardianStore.Load(ctx, id)
}

// Save implements store.GuardianStore.Save
func (m *MockGuardianStore) Save(ctx context.Context, guardian *domain.Guardian) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, guardian)
	}
	return m.GuardianStore.Save(ctx, guardian)
}

// MockUnitOfWork wraps a real store.UnitOfWork. WrapFn, when set, replaces
// the stores handed to each Run and returned by Stores.
type MockUnitOfWork struct {
	Base   store.UnitOfWork
	WrapFn func(s store.Stores) store.Stores
	RunErr error

	Runs int
}

// Stores implements store.UnitOfWork.Stores
func (m *MockUnitOfWork) Stores() store.Stores {
	return m.wrap(m.Base.Stores())
}

// Run implements store.UnitOfWork.Run. A non-nil RunErr is returned without
// calling fn.
func (m *MockUnitOfWork) Run(
	ctx context.Context,
	guardianID domain.GuardianID,
	fn func(ctx context.Context, s store.Stores) error,
) error {
	m.Runs++
	if m.RunErr != nil {
		return m.RunErr
	}
	return m.Base.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		return fn(ctx, m.wrap(s))
	})
}

func (m *MockUnitOfWork) wrap(s store.Stores) store.Stores {
	if m.WrapFn == nil {
		return s
	}
	return m.WrapFn(s)
}
