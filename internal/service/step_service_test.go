package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/domain/anomaly"
	"github.com/phrazzld/guardianes/internal/domain/progression"
	"github.com/phrazzld/guardianes/internal/events"
	"github.com/phrazzld/guardianes/internal/mocks"
	"github.com/phrazzld/guardianes/internal/platform/memstore"
	"github.com/phrazzld/guardianes/internal/service"
	"github.com/phrazzld/guardianes/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewStepService_RequiresDependencies(t *testing.T) {
	mem := memstore.New()
	ledger, err := service.NewEnergyLedger(mem, nil)
	require.NoError(t, err)
	detector := anomaly.NewThresholdDetector(0)
	prog := progression.NewDefaultService()
	cfg := service.DefaultStepServiceConfig()

	_, err = service.NewStepService(nil, ledger, prog, detector, cfg, nil)
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = service.NewStepService(mem, nil, prog, detector, cfg, nil)
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = service.NewStepService(mem, ledger, nil, detector, cfg, nil)
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = service.NewStepService(mem, ledger, prog, nil, cfg, nil)
	assert.ErrorIs(t, err, service.ErrValidation)

	cfg.StepsPerEnergy = 0
	_, err = service.NewStepService(mem, ledger, prog, detector, cfg, nil)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestSubmitSteps_AccumulatesDailyTotal(t *testing.T) {
	f := newFixture(t)

	first := f.mustSubmit(t, 1000, -30*time.Minute)
	second := f.mustSubmit(t, 2500, -10*time.Minute)

	assert.Equal(t, domain.StepCount(1000), first.Aggregate.TotalSteps)
	assert.Equal(t, domain.StepCount(3500), second.Aggregate.TotalSteps)
	assert.Equal(t, 2, second.Aggregate.SubmissionCount)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), second.Aggregate.Date)

	stored, err := f.steps.DailyAggregate(context.Background(), testGuardian, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCount(3500), stored.TotalSteps)
	assert.Len(t, f.records(t), 2)
}

func TestSubmitSteps_EnergyIsDeterministic(t *testing.T) {
	f := newFixture(t)
	before := f.balance(t)

	result := f.mustSubmit(t, 1000, -5*time.Minute)

	assert.Equal(t, domain.Energy(100), result.EnergyGenerated)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, domain.TransactionEarned, result.Transaction.Type)
	assert.Equal(t, domain.SourceSteps, result.Transaction.Source)
	assert.Equal(t, domain.Energy(100), result.Transaction.Amount)
	assert.Equal(t, before+100, f.balance(t))
	assert.Equal(t, domain.Energy(100), f.metrics.Earned)
}

func TestSubmitSteps_DailyCapLeavesNoPartialWrites(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, 15000, -50*time.Minute)
	f.mustSubmit(t, 15000, -40*time.Minute)
	f.mustSubmit(t, 15000, -30*time.Minute)
	balanceBefore := f.balance(t)
	guardianBefore := f.guardian(t).State()

	_, err := f.submit(t, 10000, -20*time.Minute)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrDailyCapExceeded)
	assert.Equal(t, service.KindDailyCapExceeded, service.Kind(err))
	var capErr *service.DailyCapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, domain.StepCount(45000), capErr.CurrentTotal)
	assert.Equal(t, domain.StepCount(10000), capErr.Requested)

	agg, err := f.steps.DailyAggregate(context.Background(), testGuardian, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCount(45000), agg.TotalSteps)
	assert.Len(t, f.records(t), 3)
	assert.Equal(t, balanceBefore, f.balance(t))
	assert.Equal(t, guardianBefore, f.guardian(t).State())
	assert.Equal(t, 1, f.metrics.RejectedCount(service.KindDailyCapExceeded))
}

func TestSubmitSteps_FillsCapExactly(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, 15000, -50*time.Minute)
	f.mustSubmit(t, 15000, -40*time.Minute)
	f.mustSubmit(t, 15000, -30*time.Minute)

	result := f.mustSubmit(t, 5000, -20*time.Minute)
	assert.Equal(t, domain.StepCount(domain.DailyStepCap), result.Aggregate.TotalSteps)
	assert.Equal(t, 0, result.Aggregate.RemainingSteps())

	_, err := f.submit(t, 1, -10*time.Minute)
	assert.ErrorIs(t, err, service.ErrDailyCapExceeded)
}

func TestSubmitSteps_RateLimit(t *testing.T) {
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.cfg.MaxSubmissionsPerHour = 3
	})
	f.mustSubmit(t, 100, -50*time.Minute)
	f.mustSubmit(t, 100, -40*time.Minute)
	f.mustSubmit(t, 100, -30*time.Minute)

	_, err := f.submit(t, 100, -20*time.Minute)

	assert.Equal(t, service.KindRateLimitExceeded, service.Kind(err))
	var rateErr *service.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 3, rateErr.Count)
	assert.Equal(t, 3, rateErr.Limit)
	assert.Equal(t, time.Hour, rateErr.Window)
	assert.Len(t, f.records(t), 3)
	assert.Equal(t, 1, f.metrics.RejectedCount(service.KindRateLimitExceeded))
}

func TestSubmitSteps_RateLimitWindowExcludesOlderSubmissions(t *testing.T) {
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.cfg.MaxSubmissionsPerHour = 2
	})
	f.mustSubmit(t, 100, -3*time.Hour)
	f.mustSubmit(t, 100, -2*time.Hour)

	// The window is (ts-1h, ts); the submission exactly one hour earlier is outside it.
	f.mustSubmit(t, 100, -time.Hour)
	f.mustSubmit(t, 100, -30*time.Minute)
}

func TestSubmitSteps_ValidationFailures(t *testing.T) {
	f := newFixture(t)

	stale, err := domain.NewTimestamp(testNow.Add(-25*time.Hour), testNow.Add(-25*time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name       string
		guardianID domain.GuardianID
		steps      domain.StepCount
		ts         domain.Timestamp
	}{
		{"non-positive guardian", 0, 100, at(t, 0)},
		{"negative steps", testGuardian, -1, at(t, 0)},
		{"steps above submission ceiling", testGuardian, domain.MaxStepsPerSubmission + 1, at(t, 0)},
		{"missing timestamp", testGuardian, 100, domain.Timestamp{}},
		{"stale timestamp", testGuardian, 100, stale},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.steps.SubmitSteps(context.Background(), tc.guardianID, tc.steps, tc.ts)
			assert.ErrorIs(t, err, service.ErrValidation)
			assert.Equal(t, service.KindValidation, service.Kind(err))
			var vErr *domain.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
	assert.Empty(t, f.records(t))
}

func TestSubmitSteps_GuardianPreconditions(t *testing.T) {
	f := newFixture(t)

	_, err := f.steps.SubmitSteps(context.Background(), 99, 100, at(t, 0))
	assert.ErrorIs(t, err, service.ErrGuardianNotFound)
	assert.Equal(t, service.KindGuardianNotFound, service.Kind(err))

	require.NoError(t, f.progress.Deactivate(context.Background(), testGuardian))
	_, err = f.submit(t, 100, 0)
	assert.ErrorIs(t, err, service.ErrGuardianInactive)
	assert.Equal(t, service.KindGuardianInactive, service.Kind(err))
	assert.Empty(t, f.records(t))
}

func TestSubmitSteps_ZeroStepsWritesNoTransaction(t *testing.T) {
	f := newFixture(t)

	result := f.mustSubmit(t, 0, -time.Minute)

	assert.True(t, result.EnergyGenerated.IsZero())
	assert.Nil(t, result.Transaction)
	assert.Equal(t, 1, result.Aggregate.SubmissionCount)
	assert.Equal(t, domain.Energy(0), f.balance(t))
	assert.NotContains(t, f.emitter.Types(), events.TypeEnergyEarned)
}

func TestSubmitSteps_FlagsAnomaliesWithoutRejecting(t *testing.T) {
	f := newFixture(t)

	result := f.mustSubmit(t, 20000, -time.Minute)

	assert.True(t, result.Record.Flagged)
	assert.Equal(t, domain.StepCount(20000), result.Aggregate.TotalSteps)
	assert.Contains(t, f.emitter.Types(), events.TypeAnomalyDetected)
	assert.Equal(t, 1, f.metrics.Flagged)
	assert.True(t, f.records(t)[0].Flagged)
}

func TestSubmitSteps_ProgressionAndLevelUp(t *testing.T) {
	f := newFixture(t)

	result := f.mustSubmit(t, 10000, -time.Minute)

	assert.Equal(t, 100, result.Experience)
	assert.Equal(t, domain.LevelApprentice, result.Level)
	assert.True(t, result.LevelChange.LeveledUp())
	assert.Equal(t, domain.LevelInitiate, result.LevelChange.From)

	g := f.guardian(t)
	assert.Equal(t, int64(10000), g.TotalSteps())
	assert.Equal(t, int64(1000), g.TotalEnergyGenerated())
	assert.Equal(t, domain.LevelApprentice, g.Level())
	assert.Equal(t, testNow, g.LastActiveAt())

	assert.Equal(t, []domain.Level{domain.LevelApprentice}, f.metrics.LevelUps)
	assert.Equal(t,
		[]string{events.TypeStepsSubmitted, events.TypeEnergyEarned, events.TypeLevelUp},
		f.emitter.Types())
}

func TestSubmitSteps_UsesConfiguredCalendarDay(t *testing.T) {
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.cfg.Location = time.FixedZone("UTC+14", 14*3600)
	})

	// 11:00 UTC on the 14th is 01:00 on the 15th at UTC+14.
	result := f.mustSubmit(t, 100, -time.Hour)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), result.Aggregate.Date)
}

// unboundReader fails every read, so a detector built on it only works once
// bound to the unit of work's stores.
type unboundReader struct{}

func (unboundReader) FindByGuardianAndDateRange(
	context.Context, domain.GuardianID, time.Time, time.Time,
) ([]*domain.StepRecord, error) {
	return nil, errors.New("history read outside the unit of work")
}

func TestSubmitSteps_VelocityCheckSeesConcurrentSubmissions(t *testing.T) {
	velocity, err := anomaly.NewVelocityDetector(unboundReader{}, anomaly.DefaultMaxStepsPerMinute)
	require.NoError(t, err)
	f := newFixture(t, func(fc *fixtureConfig) { fc.detector = velocity })

	const n = 6
	ts := at(t, -10*time.Minute)
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.steps.SubmitSteps(context.Background(), testGuardian, 100, ts)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Only the first submission to take the guardian's lock sees no earlier
	// record at the same instant.
	records := f.records(t)
	require.Len(t, records, n)
	flagged := 0
	for _, r := range records {
		if r.Flagged {
			flagged++
		}
	}
	assert.Equal(t, n-1, flagged)
}

func TestSubmitSteps_ConcurrentSubmissionsNeverExceedCap(t *testing.T) {
	f := newFixture(t)
	const (
		n     = 6
		steps = 10000
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		capped   int
	)
	ts := at(t, -10*time.Minute)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.steps.SubmitSteps(context.Background(), testGuardian, steps, ts)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, service.ErrDailyCapExceeded):
				capped++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, domain.DailyStepCap/steps, accepted)
	assert.Equal(t, n-domain.DailyStepCap/steps, capped)

	agg, err := f.steps.DailyAggregate(context.Background(), testGuardian, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCount(domain.DailyStepCap), agg.TotalSteps)
	assert.Len(t, f.records(t), accepted)
	assert.Equal(t, domain.Energy(accepted*steps/10), f.balance(t))
}

func TestSubmitSteps_StorageFailureRollsBack(t *testing.T) {
	boom := errors.New("connection reset by peer")
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.uow = func(mem *memstore.Store) store.UnitOfWork {
			return &mocks.MockUnitOfWork{
				Base: mem,
				WrapFn: func(s store.Stores) store.Stores {
					s.Guardians = &mocks.MockGuardianStore{
						GuardianStore: s.Guardians,
						SaveFn: func(ctx context.Context, g *domain.Guardian) error {
							return boom
						},
					}
					return s
				},
			}
		}
	})

	_, err := f.submit(t, 1000, -time.Minute)

	require.Error(t, err)
	assert.Equal(t, service.KindInfrastructure, service.Kind(err))
	assert.ErrorIs(t, err, boom)
	var infraErr *service.InfrastructureError
	require.ErrorAs(t, err, &infraErr)
	assert.Equal(t, "submit_steps", infraErr.Op)

	assert.Empty(t, f.records(t))
	assert.Equal(t, domain.Energy(0), f.balance(t))
	_, err = f.mem.Stores().Steps.FindDailyAggregate(context.Background(), testGuardian, testNow)
	assert.ErrorIs(t, err, store.ErrDailyAggregateNotFound)
	assert.Empty(t, f.emitter.Events)
}

func TestSubmitSteps_CountFailureIsInfrastructure(t *testing.T) {
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.uow = func(mem *memstore.Store) store.UnitOfWork {
			return &mocks.MockUnitOfWork{
				Base: mem,
				WrapFn: func(s store.Stores) store.Stores {
					s.Steps = &mocks.MockStepStore{
						StepStore: s.Steps,
						CountSubmissionsInWindowFn: func(context.Context, domain.GuardianID, time.Time, time.Time) (int, error) {
							return 0, context.DeadlineExceeded
						},
					}
					return s
				},
			}
		}
	})

	_, err := f.submit(t, 1000, -time.Minute)
	assert.Equal(t, service.KindInfrastructure, service.Kind(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.metrics.RejectedCount(service.KindInfrastructure))
}

func TestSubmitSteps_DetectorFailureWritesNothing(t *testing.T) {
	detector := &mocks.TestifyMockDetector{}
	detector.On("IsAnomalous", mock.Anything, testGuardian, domain.StepCount(1000), mock.Anything).
		Return(false, errors.New("history unavailable"))
	f := newFixture(t, func(fc *fixtureConfig) { fc.detector = detector })

	_, err := f.submit(t, 1000, -time.Minute)

	assert.Equal(t, service.KindInfrastructure, service.Kind(err))
	assert.Empty(t, f.records(t))
	detector.AssertExpectations(t)
}

func TestSubmitSteps_SideEffectFailuresDoNotFailSubmission(t *testing.T) {
	cache := &mocks.TestifyMockHistoryCache{}
	cache.On("Invalidate", mock.Anything, testGuardian).Return(errors.New("redis down"))
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.extra = []service.Option{service.WithHistoryCache(cache)}
	})
	f.emitter.EmitErr = errors.New("broker unavailable")

	result, err := f.submit(t, 1000, -time.Minute)

	require.NoError(t, err)
	assert.Equal(t, domain.Energy(100), result.EnergyGenerated)
	assert.Len(t, f.records(t), 1)
	assert.Contains(t, f.logs.String(), "failed to invalidate step history cache")
	assert.Contains(t, f.logs.String(), "failed to emit event")
	cache.AssertExpectations(t)
}

func TestStepHistory_UsesCache(t *testing.T) {
	cache := &mocks.TestifyMockHistoryCache{}
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.extra = []service.Option{service.WithHistoryCache(cache)}
	})

	cache.On("Invalidate", mock.Anything, testGuardian).Return(nil)
	f.mustSubmit(t, 4000, -time.Minute)

	from := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	cache.On("Generation", mock.Anything, testGuardian).Return(int64(3), nil)
	cache.On("GetHistory", mock.Anything, testGuardian, int64(3), from, to).Return(nil, false, nil).Once()
	cache.On("SetHistory", mock.Anything, testGuardian, int64(3), from, to, mock.Anything).Return(nil).Once()

	history, err := f.steps.StepHistory(context.Background(), testGuardian, testNow.Add(-24*time.Hour), testNow)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StepCount(4000), history[0].TotalSteps)

	cached := []domain.DailyStepAggregate{{GuardianID: testGuardian, Date: to, TotalSteps: 1}}
	cache.On("GetHistory", mock.Anything, testGuardian, int64(3), from, to).Return(cached, true, nil).Once()

	history, err = f.steps.StepHistory(context.Background(), testGuardian, testNow.Add(-24*time.Hour), testNow)
	require.NoError(t, err)
	assert.Equal(t, cached, history)
	cache.AssertExpectations(t)
}

func TestStepHistory_SkipsCacheWithoutGeneration(t *testing.T) {
	cache := &mocks.TestifyMockHistoryCache{}
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.extra = []service.Option{service.WithHistoryCache(cache)}
	})
	cache.On("Invalidate", mock.Anything, testGuardian).Return(nil)
	f.mustSubmit(t, 2500, -time.Minute)

	cache.On("Generation", mock.Anything, testGuardian).Return(int64(0), errors.New("redis down"))

	history, err := f.steps.StepHistory(context.Background(), testGuardian, testNow, testNow)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StepCount(2500), history[0].TotalSteps)
	assert.Contains(t, f.logs.String(), "step history cache unavailable")
	cache.AssertNotCalled(t, "GetHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "SetHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// generationCache is an in-memory HistoryCache. beforeSet runs once, just
// before the next SetHistory stores its entry.
type generationCache struct {
	mu          sync.Mutex
	generations map[domain.GuardianID]int64
	entries     map[string][]domain.DailyStepAggregate
	beforeSet   func()
}

func newGenerationCache() *generationCache {
	return &generationCache{
		generations: make(map[domain.GuardianID]int64),
		entries:     make(map[string][]domain.DailyStepAggregate),
	}
}

func generationKey(id domain.GuardianID, generation int64, from, to time.Time) string {
	return fmt.Sprintf("%d:%d:%s:%s", id, generation, from.Format(time.DateOnly), to.Format(time.DateOnly))
}

func (c *generationCache) Generation(_ context.Context, id domain.GuardianID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id], nil
}

func (c *generationCache) GetHistory(
	_ context.Context, id domain.GuardianID, generation int64, from, to time.Time,
) ([]domain.DailyStepAggregate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	aggs, ok := c.entries[generationKey(id, generation, from, to)]
	return aggs, ok, nil
}

func (c *generationCache) SetHistory(
	_ context.Context, id domain.GuardianID, generation int64, from, to time.Time, aggs []domain.DailyStepAggregate,
) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[generationKey(id, generation, from, to)] = aggs
	return nil
}

func (c *generationCache) Invalidate(_ context.Context, id domain.GuardianID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[id]++
	return nil
}

func TestStepHistory_SubmissionDuringCacheFillIsNotServedLater(t *testing.T) {
	cache := newGenerationCache()
	f := newFixture(t, func(fc *fixtureConfig) {
		fc.extra = []service.Option{service.WithHistoryCache(cache)}
	})
	ctx := context.Background()
	f.mustSubmit(t, 1000, -2*time.Hour)

	cache.beforeSet = func() { f.mustSubmit(t, 2000, -time.Hour) }

	history, err := f.steps.StepHistory(ctx, testGuardian, testNow, testNow)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StepCount(1000), history[0].TotalSteps, "read before the submission committed")

	history, err = f.steps.StepHistory(ctx, testGuardian, testNow, testNow)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StepCount(3000), history[0].TotalSteps)

	day := history[0].Date
	generation, err := cache.Generation(ctx, testGuardian)
	require.NoError(t, err)
	cached, ok, err := cache.GetHistory(ctx, testGuardian, generation, day, day)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StepCount(3000), cached[0].TotalSteps)
}

func TestStepHistory_RejectsReversedRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.steps.StepHistory(context.Background(), testGuardian, testNow, testNow.Add(-48*time.Hour))
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDailyAggregate_EmptyDay(t *testing.T) {
	f := newFixture(t)

	agg, err := f.steps.DailyAggregate(context.Background(), testGuardian, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCount(0), agg.TotalSteps)
	assert.Equal(t, domain.DailyStepCap, agg.RemainingSteps())
}

func TestSubmissionsOn(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, 100, -13*time.Hour) // 23:00 on the 13th
	f.mustSubmit(t, 200, -2*time.Hour)
	f.mustSubmit(t, 300, -time.Hour)

	records, err := f.steps.SubmissionsOn(context.Background(), testGuardian, testNow)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.StepCount(200), records[0].Steps)
	assert.Equal(t, domain.StepCount(300), records[1].Steps)
}

func TestIsReasonableStepSubmission(t *testing.T) {
	f := newFixture(t)

	ok, err := f.steps.IsReasonableStepSubmission(context.Background(), testGuardian, 14000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.steps.IsReasonableStepSubmission(context.Background(), testGuardian, 16000)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.steps.IsReasonableStepSubmission(context.Background(), testGuardian, -5)
	assert.ErrorIs(t, err, service.ErrValidation)

	assert.Empty(t, f.records(t))
}
