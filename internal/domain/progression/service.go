// Package progression maps experience onto the level table and applies
// experience awards to a Guardian. Level changes are a pure function of the
// resulting experience total.
package progression

import (
	"errors"

	"github.com/phrazzld/guardianes/internal/domain"
)

// ErrNilGuardian is returned when an operation receives no guardian.
var ErrNilGuardian = errors.New("guardian cannot be nil")

// LevelChange describes the level transition produced by an award.
type LevelChange struct {
	From             domain.Level `json:"from"`
	To               domain.Level `json:"to"`
	ExperienceGained int          `json:"experience_gained"`
}

// LeveledUp reports whether the award moved the guardian to a higher level.
func (c LevelChange) LeveledUp() bool {
	return c.From != c.To
}

// Service defines the progression operations
type Service interface {
	// LevelFor returns the level for an experience total
	LevelFor(experience int) domain.Level

	// ExperienceFor converts a submission's steps into experience points
	ExperienceFor(steps domain.StepCount) int

	// Apply records a submission's steps and energy on the guardian and
	// awards the experience they are worth
	Apply(g *domain.Guardian, steps domain.StepCount, energy domain.Energy) (LevelChange, error)

	// AddExperience awards points directly, e.g. for bonuses
	AddExperience(g *domain.Guardian, points int) (LevelChange, error)

	// ExperienceToNextLevel returns the experience missing for the next level
	ExperienceToNextLevel(level domain.Level, currentExperience int) int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new progression service with default parameters
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a new progression service with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{params: params}, nil
}

func (s *defaultService) LevelFor(experience int) domain.Level {
	return domain.LevelFor(experience)
}

func (s *defaultService) ExperienceFor(steps domain.StepCount) int {
	return steps.Int() / s.params.StepsPerExperiencePoint
}

func (s *defaultService) Apply(
	g *domain.Guardian,
	steps domain.StepCount,
	energy domain.Energy,
) (LevelChange, error) {
	if g == nil {
		return LevelChange{}, ErrNilGuardian
	}
	g.AddSteps(steps)
	g.AddEnergyGenerated(energy)
	return s.AddExperience(g, s.ExperienceFor(steps))
}

func (s *defaultService) AddExperience(g *domain.Guardian, points int) (LevelChange, error) {
	if g == nil {
		return LevelChange{}, ErrNilGuardian
	}
	from, to, err := g.AddExperience(points)
	if err != nil {
		return LevelChange{}, err
	}
	return LevelChange{From: from, To: to, ExperienceGained: points}, nil
}

func (s *defaultService) ExperienceToNextLevel(level domain.Level, currentExperience int) int {
	return domain.ExperienceToNextLevel(level, currentExperience)
}
