package mocks

import (
	"sync"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/service"
)

// MockMetrics records every measurement it receives. Safe for concurrent use.
type MockMetrics struct {
	mu sync.Mutex

	Accepted     int
	Flagged      int
	Rejected     map[service.ErrorKind]int
	Validations  int
	Earned       domain.Energy
	Spent        domain.Energy
	LevelUps     []domain.Level
	StepsCounted domain.StepCount
}

// NewMockMetrics creates an empty MockMetrics.
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Rejected: make(map[service.ErrorKind]int)}
}

var _ service.Metrics = (*MockMetrics)(nil)

// SubmissionAccepted records an accepted submission.
func (m *MockMetrics) SubmissionAccepted(steps domain.StepCount, _ domain.Energy, flagged bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accepted++
	m.StepsCounted += steps
	if flagged {
		m.Flagged++
	}
}

// SubmissionRejected records a rejection by kind.
func (m *MockMetrics) SubmissionRejected(kind service.ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[kind]++
}

// ValidationDuration counts validations.
func (m *MockMetrics) ValidationDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Validations++
}

// EnergyEarned sums earned energy.
func (m *MockMetrics) EnergyEarned(_ domain.EnergySource, amount domain.Energy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Earned += amount
}

// EnergySpent sums spent energy.
func (m *MockMetrics) EnergySpent(_ domain.EnergySource, amount domain.Energy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spent += amount
}

// LevelUp records the new level.
func (m *MockMetrics) LevelUp(to domain.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LevelUps = append(m.LevelUps, to)
}

// RejectedCount returns the number of rejections of kind.
func (m *MockMetrics) RejectedCount(kind service.ErrorKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Rejected[kind]
}
