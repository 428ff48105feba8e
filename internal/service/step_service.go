package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/domain/anomaly"
	"github.com/phrazzld/guardianes/internal/domain/progression"
	"github.com/phrazzld/guardianes/internal/events"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/redact"
	"github.com/phrazzld/guardianes/internal/store"
)

const stepServiceName = "step"

// RateLimitWindow is the trailing window checked by the submission rate limit.
const RateLimitWindow = time.Hour

// StepServiceConfig holds the tunables of the submission engine.
type StepServiceConfig struct {
	// MaxSubmissionsPerHour is the number of submissions a guardian may have
	// in the trailing RateLimitWindow before further ones are rejected.
	MaxSubmissionsPerHour int

	// StepsPerEnergy is the conversion ratio from steps to energy.
	StepsPerEnergy int

	// Location decides which calendar day a timestamp belongs to.
	Location *time.Location
}

// DefaultStepServiceConfig returns the reference limits: 100 submissions per
// hour, 1 energy per 10 steps, UTC days.
func DefaultStepServiceConfig() StepServiceConfig {
	return StepServiceConfig{
		MaxSubmissionsPerHour: 100,
		StepsPerEnergy:        10,
		Location:              time.UTC,
	}
}

// Validate checks the configuration.
func (c StepServiceConfig) Validate() error {
	if c.MaxSubmissionsPerHour <= 0 {
		return domain.NewValidationError("max_submissions_per_hour", c.MaxSubmissionsPerHour, "must be positive")
	}
	if c.StepsPerEnergy <= 0 {
		return domain.NewValidationError("steps_per_energy", c.StepsPerEnergy, "must be positive")
	}
	return nil
}

// SubmissionResult is the outcome of an accepted submission.
type SubmissionResult struct {
	Record          *domain.StepRecord        `json:"record"`
	EnergyGenerated domain.Energy             `json:"energy_generated"`
	Aggregate       domain.DailyStepAggregate `json:"aggregate"`
	// Transaction is nil when the submission generated no energy.
	Transaction *domain.EnergyTransaction `json:"transaction,omitempty"`
	Level       domain.Level              `json:"level"`
	Experience  int                       `json:"experience"`
	LevelChange progression.LevelChange   `json:"level_change"`
}

// StepService accepts step submissions and serves step history.
type StepService struct {
	uow         store.UnitOfWork
	ledger      *EnergyLedger
	progression progression.Service
	detector    anomaly.Detector
	cfg         StepServiceConfig
	logger      *slog.Logger
	opts        options
}

// NewStepService creates a new StepService.
// It returns an error if any of the required dependencies are nil or cfg is invalid.
func NewStepService(
	uow store.UnitOfWork,
	ledger *EnergyLedger,
	progressionSvc progression.Service,
	detector anomaly.Detector,
	cfg StepServiceConfig,
	logger *slog.Logger,
	opts ...Option,
) (*StepService, error) {
	if uow == nil {
		return nil, domain.NewValidationError("uow", nil, "cannot be nil")
	}
	if ledger == nil {
		return nil, domain.NewValidationError("ledger", nil, "cannot be nil")
	}
	if progressionSvc == nil {
		return nil, domain.NewValidationError("progression", nil, "cannot be nil")
	}
	if detector == nil {
		return nil, domain.NewValidationError("detector", nil, "cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StepService{
		uow:         uow,
		ledger:      ledger,
		progression: progressionSvc,
		detector:    detector,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "step_service")),
		opts:        newOptions(opts),
	}, nil
}

// SubmitSteps records a step submission.
//
// Validation, the rate limit and the daily cap are checked before anything
// is written. The step record, the daily aggregate, the energy transaction
// and the guardian's progression are then committed together, or not at all.
// Submissions for the same guardian are serialized.
func (s *StepService) SubmitSteps(
	ctx context.Context,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	ts domain.Timestamp,
) (*SubmissionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.Int64("guardian_id", guardianID.Int64()),
		slog.Int("steps", steps.Int()),
	)

	result, err := s.submit(ctx, log, guardianID, steps, ts)
	if err != nil {
		s.opts.metrics.SubmissionRejected(Kind(err))
		logRejection(log, "step submission rejected", err)
		return nil, err
	}

	s.afterSubmit(ctx, log, result)
	return result, nil
}

func (s *StepService) submit(
	ctx context.Context,
	log *slog.Logger,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	ts domain.Timestamp,
) (*SubmissionResult, error) {
	start := s.opts.now()

	if err := s.sanitize(guardianID, steps, ts, start); err != nil {
		return nil, err
	}

	var result *SubmissionResult
	err := s.uow.Run(ctx, guardianID, func(ctx context.Context, st store.Stores) error {
		// History-based policies read through the unit of work so they see
		// every submission committed ahead of this one.
		flagged, err := anomaly.Bind(s.detector, st.Steps).IsAnomalous(ctx, guardianID, steps, ts.Time())
		if err != nil {
			return NewInfrastructureError(stepServiceName, "anomaly_check", err)
		}
		s.opts.metrics.ValidationDuration(s.opts.now().Sub(start))
		if flagged {
			log.Warn("anomalous step submission", slog.Time("recorded_at", ts.Time()))
		}

		result, err = s.apply(ctx, st, guardianID, steps, ts, flagged)
		return err
	})
	if err != nil {
		return nil, classify(stepServiceName, "submit_steps", err)
	}
	return result, nil
}

// sanitize re-checks the value objects against the current clock. Values
// outside policy are rejected, never clamped.
func (s *StepService) sanitize(
	guardianID domain.GuardianID,
	steps domain.StepCount,
	ts domain.Timestamp,
	now time.Time,
) error {
	if _, err := domain.NewGuardianID(guardianID.Int64()); err != nil {
		return err
	}
	if _, err := domain.NewStepCount(steps.Int()); err != nil {
		return err
	}
	if ts.IsZero() {
		return domain.NewValidationError("timestamp", ts.Time(), "is required")
	}
	if _, err := domain.NewTimestamp(ts.Time(), now); err != nil {
		return err
	}
	return nil
}

// apply runs inside the guardian's unit of work.
func (s *StepService) apply(
	ctx context.Context,
	st store.Stores,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	ts domain.Timestamp,
	flagged bool,
) (*SubmissionResult, error) {
	now := s.opts.now()

	guardian, err := loadActiveGuardian(ctx, st.Guardians, guardianID)
	if err != nil {
		return nil, err
	}

	count, err := st.Steps.CountSubmissionsInWindow(ctx, guardianID, ts.Time().Add(-RateLimitWindow), ts.Time())
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.MaxSubmissionsPerHour {
		return nil, &RateLimitError{
			GuardianID: guardianID,
			Count:      count,
			Limit:      s.cfg.MaxSubmissionsPerHour,
			Window:     RateLimitWindow,
		}
	}

	date := ts.Date(s.cfg.Location)
	current, err := st.Steps.FindDailyAggregate(ctx, guardianID, date)
	switch {
	case errors.Is(err, store.ErrDailyAggregateNotFound):
		empty := domain.EmptyDailyAggregate(guardianID, date)
		current = &empty
	case err != nil:
		return nil, err
	}

	next, err := current.AddSteps(steps, now)
	if err != nil {
		if errors.Is(err, domain.ErrDailyCapExceeded) {
			return nil, &DailyCapError{
				GuardianID:   guardianID,
				Date:         date,
				CurrentTotal: current.TotalSteps,
				Requested:    steps,
			}
		}
		return nil, err
	}

	record, err := domain.NewStepRecord(guardianID, steps, ts, flagged, now)
	if err != nil {
		return nil, err
	}
	if err := st.Steps.Save(ctx, record); err != nil {
		return nil, err
	}
	if err := st.Steps.UpsertDailyAggregate(ctx, next); err != nil {
		return nil, err
	}

	energy := domain.EnergyFromSteps(steps, s.cfg.StepsPerEnergy)
	var tx *domain.EnergyTransaction
	if !energy.IsZero() {
		tx, err = s.ledger.earnWithin(ctx, st, guardianID, energy, domain.SourceSteps, ts.Time())
		if err != nil {
			return nil, err
		}
	}

	change, err := s.progression.Apply(guardian, steps, energy)
	if err != nil {
		return nil, err
	}
	guardian.Touch(now)
	if err := st.Guardians.Save(ctx, guardian); err != nil {
		return nil, err
	}

	return &SubmissionResult{
		Record:          record,
		EnergyGenerated: energy,
		Aggregate:       next,
		Transaction:     tx,
		Level:           guardian.Level(),
		Experience:      guardian.Experience(),
		LevelChange:     change,
	}, nil
}

// afterSubmit runs once the submission has committed. Nothing here can fail
// the submission.
func (s *StepService) afterSubmit(ctx context.Context, log *slog.Logger, result *SubmissionResult) {
	guardianID := result.Record.GuardianID

	if s.opts.cache != nil {
		if err := s.opts.cache.Invalidate(ctx, guardianID); err != nil {
			log.Warn("failed to invalidate step history cache",
				slog.String("error", redact.Error(err)))
		}
	}

	s.opts.metrics.SubmissionAccepted(result.Record.Steps, result.EnergyGenerated, result.Record.Flagged)
	s.opts.emit(ctx, log, events.TypeStepsSubmitted, guardianID, events.StepsSubmittedPayload{
		RecordID:        result.Record.ID,
		Steps:           result.Record.Steps.Int(),
		DailyTotal:      result.Aggregate.TotalSteps.Int(),
		EnergyGenerated: result.EnergyGenerated.Int64(),
		Flagged:         result.Record.Flagged,
		RecordedAt:      result.Record.RecordedAt,
	})
	if result.Record.Flagged {
		s.opts.emit(ctx, log, events.TypeAnomalyDetected, guardianID, events.AnomalyPayload{
			RecordID:   result.Record.ID,
			Steps:      result.Record.Steps.Int(),
			RecordedAt: result.Record.RecordedAt,
		})
	}
	if result.Transaction != nil {
		s.ledger.afterEarn(ctx, log, result.Transaction)
	}
	if result.LevelChange.LeveledUp() {
		s.opts.metrics.LevelUp(result.LevelChange.To)
		s.opts.emit(ctx, log, events.TypeLevelUp, guardianID, events.LevelUpPayload{
			From:       result.LevelChange.From,
			To:         result.LevelChange.To,
			Experience: result.Experience,
		})
		log.Info("guardian leveled up",
			slog.String("from", string(result.LevelChange.From)),
			slog.String("to", string(result.LevelChange.To)))
	}

	log.Info("step submission accepted",
		slog.String("record_id", result.Record.ID.String()),
		slog.Int("daily_total", result.Aggregate.TotalSteps.Int()),
		slog.Int64("energy_generated", result.EnergyGenerated.Int64()),
		slog.Bool("flagged", result.Record.Flagged))
}

// IsReasonableStepSubmission reports whether a submission of steps made now
// would pass the anomaly policy. Nothing is written.
func (s *StepService) IsReasonableStepSubmission(
	ctx context.Context,
	guardianID domain.GuardianID,
	steps domain.StepCount,
) (bool, error) {
	if _, err := domain.NewStepCount(steps.Int()); err != nil {
		return false, err
	}
	anomalous, err := s.detector.IsAnomalous(ctx, guardianID, steps, s.opts.now())
	if err != nil {
		return false, NewInfrastructureError(stepServiceName, "reasonable_check", err)
	}
	return !anomalous, nil
}

// StepHistory returns the daily aggregates between the calendar days of from
// and to, inclusive, ordered by date.
func (s *StepService) StepHistory(
	ctx context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]domain.DailyStepAggregate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.Int64("guardian_id", guardianID.Int64()))

	fromDate := domain.CalendarDate(from, s.cfg.Location)
	toDate := domain.CalendarDate(to, s.cfg.Location)
	if toDate.Before(fromDate) {
		return nil, domain.NewValidationError("range", to.Format(time.DateOnly), "ends before it starts")
	}

	// The generation is read before the store so a submission committing
	// in between invalidates whatever this call writes back.
	cache := s.opts.cache
	var generation int64
	if cache != nil {
		gen, err := cache.Generation(ctx, guardianID)
		if err != nil {
			log.Warn("step history cache unavailable", slog.String("error", redact.Error(err)))
			cache = nil
		} else {
			generation = gen
		}
	}

	if cache != nil {
		cached, ok, err := cache.GetHistory(ctx, guardianID, generation, fromDate, toDate)
		if err != nil {
			log.Warn("step history cache read failed", slog.String("error", redact.Error(err)))
		} else if ok {
			log.Debug("step history served from cache")
			return cached, nil
		}
	}

	aggregates, err := s.uow.Stores().Steps.FindDailyAggregatesInRange(ctx, guardianID, fromDate, toDate)
	if err != nil {
		err = classify(stepServiceName, "step_history", err)
		logRejection(log, "step history query failed", err)
		return nil, err
	}

	if cache != nil {
		if err := cache.SetHistory(ctx, guardianID, generation, fromDate, toDate, aggregates); err != nil {
			log.Warn("step history cache write failed", slog.String("error", redact.Error(err)))
		}
	}
	return aggregates, nil
}

// DailyAggregate returns the aggregate for the calendar day of date. A day
// without submissions yields an empty aggregate.
func (s *StepService) DailyAggregate(
	ctx context.Context,
	guardianID domain.GuardianID,
	date time.Time,
) (domain.DailyStepAggregate, error) {
	day := domain.CalendarDate(date, s.cfg.Location)
	agg, err := s.uow.Stores().Steps.FindDailyAggregate(ctx, guardianID, day)
	if err != nil {
		if errors.Is(err, store.ErrDailyAggregateNotFound) {
			return domain.EmptyDailyAggregate(guardianID, day), nil
		}
		return domain.DailyStepAggregate{}, classify(stepServiceName, "daily_aggregate", err)
	}
	return *agg, nil
}

// SubmissionsOn returns the step records whose timestamps fall on the
// calendar day of date, ordered by timestamp.
func (s *StepService) SubmissionsOn(
	ctx context.Context,
	guardianID domain.GuardianID,
	date time.Time,
) ([]*domain.StepRecord, error) {
	y, m, d := date.In(s.cfg.Location).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	records, err := s.uow.Stores().Steps.FindByGuardianAndDateRange(ctx, guardianID, start, end)
	if err != nil {
		return nil, classify(stepServiceName, "submissions_on", err)
	}
	return records, nil
}
