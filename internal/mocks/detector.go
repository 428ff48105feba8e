package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/stretchr/testify/mock"
)

// TestifyMockDetector is a mock of anomaly.Detector for use with testify/mock
type TestifyMockDetector struct {
	mock.Mock
}

// IsAnomalous is a mock implementation of anomaly.Detector.IsAnomalous
func (m *TestifyMockDetector) IsAnomalous(
	ctx context.Context,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	at time.Time,
) (bool, error) {
	args := m.Called(ctx, guardianID, steps, at)
	return args.Bool(0), args.Error(1)
}
