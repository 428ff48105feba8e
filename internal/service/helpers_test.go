package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/domain/anomaly"
	"github.com/phrazzld/guardianes/internal/domain/progression"
	"github.com/phrazzld/guardianes/internal/mocks"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/platform/memstore"
	"github.com/phrazzld/guardianes/internal/service"
	"github.com/phrazzld/guardianes/internal/store"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

const testGuardian = domain.GuardianID(42)

type fixture struct {
	mem      *memstore.Store
	steps    *service.StepService
	ledger   *service.EnergyLedger
	progress *service.ProgressionService
	metrics  *mocks.MockMetrics
	emitter  *mocks.MockEventEmitter
	logs     *logger.TestLogBuffer
}

type fixtureConfig struct {
	uow      func(mem *memstore.Store) store.UnitOfWork
	cfg      service.StepServiceConfig
	detector anomaly.Detector
	extra    []service.Option
}

func newFixture(t *testing.T, configure ...func(*fixtureConfig)) *fixture {
	t.Helper()

	fc := fixtureConfig{
		uow:      func(mem *memstore.Store) store.UnitOfWork { return mem },
		cfg:      service.DefaultStepServiceConfig(),
		detector: anomaly.NewThresholdDetector(anomaly.DefaultThreshold),
	}
	for _, c := range configure {
		c(&fc)
	}

	mem := memstore.New()
	uow := fc.uow(mem)
	log, buf := logger.NewTestLogger()
	metrics := mocks.NewMockMetrics()
	emitter := &mocks.MockEventEmitter{}

	opts := append([]service.Option{
		service.WithClock(func() time.Time { return testNow }),
		service.WithMetrics(metrics),
		service.WithEventEmitter(emitter),
	}, fc.extra...)

	ledger, err := service.NewEnergyLedger(uow, log, opts...)
	require.NoError(t, err)
	progressSvc, err := service.NewProgressionService(uow, progression.NewDefaultService(), log, opts...)
	require.NoError(t, err)
	steps, err := service.NewStepService(uow, ledger, progression.NewDefaultService(), fc.detector, fc.cfg, log, opts...)
	require.NoError(t, err)

	// Registration goes straight to memstore so wrapped units of work only
	// see the calls made by the test itself.
	g, err := domain.NewGuardian(testGuardian, "lucia", testNow.Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, mem.Stores().Guardians.Create(context.Background(), g))

	return &fixture{
		mem:      mem,
		steps:    steps,
		ledger:   ledger,
		progress: progressSvc,
		metrics:  metrics,
		emitter:  emitter,
		logs:     buf,
	}
}

// at returns a timestamp offset from testNow, valid against testNow.
func at(t *testing.T, offset time.Duration) domain.Timestamp {
	t.Helper()
	ts, err := domain.NewTimestamp(testNow.Add(offset), testNow)
	require.NoError(t, err)
	return ts
}

func (f *fixture) submit(t *testing.T, steps int, offset time.Duration) (*service.SubmissionResult, error) {
	t.Helper()
	return f.steps.SubmitSteps(context.Background(), testGuardian, domain.StepCount(steps), at(t, offset))
}

func (f *fixture) mustSubmit(t *testing.T, steps int, offset time.Duration) *service.SubmissionResult {
	t.Helper()
	result, err := f.submit(t, steps, offset)
	require.NoError(t, err)
	return result
}

func (f *fixture) records(t *testing.T) []*domain.StepRecord {
	t.Helper()
	records, err := f.mem.Stores().Steps.FindByGuardianAndDateRange(
		context.Background(), testGuardian, testNow.Add(-72*time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)
	return records
}

func (f *fixture) balance(t *testing.T) domain.Energy {
	t.Helper()
	balance, err := f.mem.Stores().Energy.Balance(context.Background(), testGuardian)
	require.NoError(t, err)
	return balance
}

func (f *fixture) guardian(t *testing.T) *domain.Guardian {
	t.Helper()
	g, err := f.mem.Stores().Guardians.Load(context.Background(), testGuardian)
	require.NoError(t, err)
	return g
}
