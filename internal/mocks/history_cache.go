package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/stretchr/testify/mock"
)

// TestifyMockHistoryCache is a mock of service.HistoryCache for use with testify/mock
type TestifyMockHistoryCache struct {
	mock.Mock
}

// Generation is a mock implementation of service.HistoryCache.Generation
func (m *TestifyMockHistoryCache) Generation(ctx context.Context, guardianID domain.GuardianID) (int64, error) {
	args := m.Called(ctx, guardianID)
	gen, _ := args.Get(0).(int64)
	return gen, args.Error(1)
}

// GetHistory is a mock implementation of service.HistoryCache.GetHistory
func (m *TestifyMockHistoryCache) GetHistory(
	ctx context.Context,
	guardianID domain.GuardianID,
	generation int64,
	from, to time.Time,
) ([]domain.DailyStepAggregate, bool, error) {
	args := m.Called(ctx, guardianID, generation, from, to)
	aggs, _ := args.Get(0).([]domain.DailyStepAggregate)
	return aggs, args.Bool(1), args.Error(2)
}

// SetHistory is a mock implementation of service.HistoryCache.SetHistory
func (m *TestifyMockHistoryCache) SetHistory(
	ctx context.Context,
	guardianID domain.GuardianID,
	generation int64,
	from, to time.Time,
	aggregates []domain.DailyStepAggregate,
) error {
	args := m.Called(ctx, guardianID, generation, from, to, aggregates)
	return args.Error(0)
}

// Invalidate is a mock implementation of service.HistoryCache.Invalidate
func (m *TestifyMockHistoryCache) Invalidate(ctx context.Context, guardianID domain.GuardianID) error {
	args := m.Called(ctx, guardianID)
	return args.Error(0)
}
