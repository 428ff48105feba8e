package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/domain/anomaly"
	"github.com/phrazzld/guardianes/internal/domain/progression"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/platform/postgres"
	"github.com/phrazzld/guardianes/internal/service"
	"github.com/phrazzld/guardianes/internal/store"
	"github.com/phrazzld/guardianes/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_ConcurrentSubmissionsRespectDailyCap(t *testing.T) {
	db := testdb.Open(t)
	guardianID := testdb.GuardianID(t, db)
	log, _ := logger.NewTestLogger()
	uow := postgres.NewUnitOfWork(db, log)
	ctx := context.Background()

	ledger, err := service.NewEnergyLedger(uow, log)
	require.NoError(t, err)
	progressSvc, err := service.NewProgressionService(uow, progression.NewDefaultService(), log)
	require.NoError(t, err)
	steps, err := service.NewStepService(uow, ledger, progression.NewDefaultService(),
		anomaly.NewThresholdDetector(0), service.DefaultStepServiceConfig(), log)
	require.NoError(t, err)

	_, err = progressSvc.Register(ctx, guardianID, "integration")
	require.NoError(t, err)

	now := time.Now()
	ts, err := domain.NewTimestamp(now.Add(-time.Minute), now)
	require.NoError(t, err)

	const attempts = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := steps.SubmitSteps(ctx, guardianID, 10000, ts)
			if err != nil {
				if !errors.Is(err, service.ErrDailyCapExceeded) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	agg, err := steps.DailyAggregate(ctx, guardianID, ts.Time())
	require.NoError(t, err)
	assert.Equal(t, domain.StepCount(domain.DailyStepCap), agg.TotalSteps)

	balance, err := ledger.Balance(ctx, guardianID)
	require.NoError(t, err)
	assert.Equal(t, domain.Energy(5000), balance)

	progress, err := progressSvc.Progress(ctx, guardianID)
	require.NoError(t, err)
	assert.Equal(t, int64(domain.DailyStepCap), progress.TotalSteps)
}

func TestIntegration_FailedUnitOfWorkLeavesNoRows(t *testing.T) {
	db := testdb.Open(t)
	guardianID := testdb.GuardianID(t, db)
	log, _ := logger.NewTestLogger()
	uow := postgres.NewUnitOfWork(db, log)
	ctx := context.Background()

	g, err := domain.NewGuardian(guardianID, "rollback", time.Now())
	require.NoError(t, err)
	require.NoError(t, uow.Stores().Guardians.Create(ctx, g))

	boom := errors.New("abort")
	err = uow.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		tx, err := domain.NewEarnedTransaction(guardianID, 50, domain.SourceBonus, time.Now())
		if err != nil {
			return err
		}
		if err := s.Energy.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := uow.Stores().Energy.Balance(ctx, guardianID)
	require.NoError(t, err)
	assert.Equal(t, domain.Energy(0), balance)
}
