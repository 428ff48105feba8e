package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/domain/progression"
	"github.com/phrazzld/guardianes/internal/events"
	"github.com/phrazzld/guardianes/internal/platform/logger"
	"github.com/phrazzld/guardianes/internal/store"
)

const progressionServiceName = "progression"

// Progress is a read model of a guardian's progression.
type Progress struct {
	GuardianID            domain.GuardianID `json:"guardian_id"`
	Username              string            `json:"username"`
	Level                 domain.Level      `json:"level"`
	LevelName             string            `json:"level_name"`
	Experience            int               `json:"experience"`
	ExperienceToNextLevel int               `json:"experience_to_next_level"`
	TotalSteps            int64             `json:"total_steps"`
	TotalEnergyGenerated  int64             `json:"total_energy_generated"`
	Active                bool              `json:"active"`
	LastActiveAt          time.Time         `json:"last_active_at"`
}

// ProgressionService manages guardian registration, activation and
// experience outside of step submissions.
type ProgressionService struct {
	uow         store.UnitOfWork
	progression progression.Service
	logger      *slog.Logger
	opts        options
}

// NewProgressionService creates a new ProgressionService.
// It returns an error if any of the required dependencies are nil.
func NewProgressionService(
	uow store.UnitOfWork,
	progressionSvc progression.Service,
	logger *slog.Logger,
	opts ...Option,
) (*ProgressionService, error) {
	if uow == nil {
		return nil, domain.NewValidationError("uow", nil, "cannot be nil")
	}
	if progressionSvc == nil {
		return nil, domain.NewValidationError("progression", nil, "cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressionService{
		uow:         uow,
		progression: progressionSvc,
		logger:      logger.With(slog.String("component", "progression_service")),
		opts:        newOptions(opts),
	}, nil
}

// Register creates a new active guardian at the lowest level.
func (p *ProgressionService) Register(
	ctx context.Context,
	guardianID domain.GuardianID,
	username string,
) (*domain.Guardian, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(slog.Int64("guardian_id", guardianID.Int64()))

	guardian, err := domain.NewGuardian(guardianID, username, p.opts.now())
	if err != nil {
		return nil, err
	}

	err = p.uow.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		return s.Guardians.Create(ctx, guardian)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewValidationError("guardian_id", guardianID, "is already registered")
		}
		err = classify(progressionServiceName, "register", err)
		logRejection(log, "guardian registration failed", err)
		return nil, err
	}

	log.Info("guardian registered")
	return guardian, nil
}

// Progress returns the guardian's current progression.
func (p *ProgressionService) Progress(ctx context.Context, guardianID domain.GuardianID) (*Progress, error) {
	g, err := loadGuardian(ctx, p.uow.Stores().Guardians, guardianID)
	if err != nil {
		return nil, classify(progressionServiceName, "progress", err)
	}
	return &Progress{
		GuardianID:            g.ID(),
		Username:              g.Username(),
		Level:                 g.Level(),
		LevelName:             g.Level().DisplayName(),
		Experience:            g.Experience(),
		ExperienceToNextLevel: p.progression.ExperienceToNextLevel(g.Level(), g.Experience()),
		TotalSteps:            g.TotalSteps(),
		TotalEnergyGenerated:  g.TotalEnergyGenerated(),
		Active:                g.IsActive(),
		LastActiveAt:          g.LastActiveAt(),
	}, nil
}

// AwardExperience grants bonus experience to an active guardian.
func (p *ProgressionService) AwardExperience(
	ctx context.Context,
	guardianID domain.GuardianID,
	points int,
) (progression.LevelChange, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(slog.Int64("guardian_id", guardianID.Int64()))

	if points <= 0 {
		return progression.LevelChange{}, domain.NewValidationError("points", points, "must be positive")
	}

	var (
		change     progression.LevelChange
		experience int
	)
	err := p.uow.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		g, err := loadActiveGuardian(ctx, s.Guardians, guardianID)
		if err != nil {
			return err
		}
		change, err = p.progression.AddExperience(g, points)
		if err != nil {
			return err
		}
		g.Touch(p.opts.now())
		experience = g.Experience()
		return s.Guardians.Save(ctx, g)
	})
	if err != nil {
		err = classify(progressionServiceName, "award_experience", err)
		logRejection(log, "experience award rejected", err)
		return progression.LevelChange{}, err
	}

	if change.LeveledUp() {
		p.opts.metrics.LevelUp(change.To)
		p.opts.emit(ctx, log, events.TypeLevelUp, guardianID, events.LevelUpPayload{
			From:       change.From,
			To:         change.To,
			Experience: experience,
		})
	}
	log.Info("experience awarded",
		slog.Int("points", points),
		slog.String("level", string(change.To)))
	return change, nil
}

// Deactivate stops a guardian from receiving writes.
func (p *ProgressionService) Deactivate(ctx context.Context, guardianID domain.GuardianID) error {
	return p.setActive(ctx, guardianID, false)
}

// Activate lets a deactivated guardian receive writes again.
func (p *ProgressionService) Activate(ctx context.Context, guardianID domain.GuardianID) error {
	return p.setActive(ctx, guardianID, true)
}

func (p *ProgressionService) setActive(ctx context.Context, guardianID domain.GuardianID, active bool) error {
	err := p.uow.Run(ctx, guardianID, func(ctx context.Context, s store.Stores) error {
		g, err := loadGuardian(ctx, s.Guardians, guardianID)
		if err != nil {
			return err
		}
		if active {
			g.Activate()
		} else {
			g.Deactivate()
		}
		return s.Guardians.Save(ctx, g)
	})
	if err != nil {
		return classify(progressionServiceName, "set_active", err)
	}
	logger.FromContextOrDefault(ctx, p.logger).Info("guardian activation changed",
		slog.Int64("guardian_id", guardianID.Int64()),
		slog.Bool("active", active))
	return nil
}
