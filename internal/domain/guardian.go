package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrGuardianInconsistent is returned by RestoreGuardian when a persisted
// snapshot violates the Guardian invariants.
var ErrGuardianInconsistent = errors.New("guardian snapshot is inconsistent")

// Guardian is the account and progression state of a player. Its fields are
// only changed through the methods below; level always equals
// LevelFor(experience).
type Guardian struct {
	id                   GuardianID
	username             string
	level                Level
	experience           int
	totalSteps           int64
	totalEnergyGenerated int64
	active               bool
	createdAt            time.Time
	lastActiveAt         time.Time
}

// GuardianState is the persisted form of a Guardian.
type GuardianState struct {
	ID                   GuardianID `json:"id"`
	Username             string     `json:"username"`
	Level                Level      `json:"level"`
	Experience           int        `json:"experience"`
	TotalSteps           int64      `json:"total_steps"`
	TotalEnergyGenerated int64      `json:"total_energy_generated"`
	Active               bool       `json:"active"`
	CreatedAt            time.Time  `json:"created_at"`
	LastActiveAt         time.Time  `json:"last_active_at"`
}

// NewGuardian registers a new active guardian at the lowest level.
func NewGuardian(id GuardianID, username string, now time.Time) (*Guardian, error) {
	if id <= 0 {
		return nil, NewValidationError("guardian.id", id, "must be positive")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, NewValidationError("guardian.username", username, "cannot be empty")
	}
	now = now.UTC()
	return &Guardian{
		id:           id,
		username:     username,
		level:        LevelInitiate,
		active:       true,
		createdAt:    now,
		lastActiveAt: now,
	}, nil
}

// RestoreGuardian rebuilds a Guardian from its persisted state. The level is
// recomputed from experience; a stored level that disagrees is rejected.
func RestoreGuardian(s GuardianState) (*Guardian, error) {
	if s.ID <= 0 || s.Experience < 0 || s.TotalSteps < 0 || s.TotalEnergyGenerated < 0 {
		return nil, ErrGuardianInconsistent
	}
	level := LevelFor(s.Experience)
	if s.Level != "" && s.Level != level {
		return nil, ErrGuardianInconsistent
	}
	return &Guardian{
		id:                   s.ID,
		username:             s.Username,
		level:                level,
		experience:           s.Experience,
		totalSteps:           s.TotalSteps,
		totalEnergyGenerated: s.TotalEnergyGenerated,
		active:               s.Active,
		createdAt:            s.CreatedAt,
		lastActiveAt:         s.LastActiveAt,
	}, nil
}

// State returns a snapshot suitable for persistence.
func (g *Guardian) State() GuardianState {
	return GuardianState{
		ID:                   g.id,
		Username:             g.username,
		Level:                g.level,
		Experience:           g.experience,
		TotalSteps:           g.totalSteps,
		TotalEnergyGenerated: g.totalEnergyGenerated,
		Active:               g.active,
		CreatedAt:            g.createdAt,
		LastActiveAt:         g.lastActiveAt,
	}
}

// ID returns the guardian's identifier.
func (g *Guardian) ID() GuardianID { return g.id }

// Username returns the trimmed display name.
func (g *Guardian) Username() string { return g.username }

// Level returns the level derived from the current experience.
func (g *Guardian) Level() Level { return g.level }

// Experience returns the accumulated experience points.
func (g *Guardian) Experience() int { return g.experience }

// TotalSteps returns the lifetime step count.
func (g *Guardian) TotalSteps() int64 { return g.totalSteps }

// TotalEnergyGenerated returns the lifetime energy earned from steps.
func (g *Guardian) TotalEnergyGenerated() int64 { return g.totalEnergyGenerated }

// IsActive reports whether the guardian may submit steps and move energy.
func (g *Guardian) IsActive() bool { return g.active }

// CreatedAt returns when the guardian was registered.
func (g *Guardian) CreatedAt() time.Time { return g.createdAt }

// LastActiveAt returns the time of the guardian's last committed write.
func (g *Guardian) LastActiveAt() time.Time { return g.lastActiveAt }

// AddExperience increments experience and recomputes the level. It returns
// the level before and after the change. Negative points are rejected.
func (g *Guardian) AddExperience(points int) (from, to Level, err error) {
	if points < 0 {
		return g.level, g.level, NewValidationError("experience", points, "cannot be negative")
	}
	from = g.level
	g.experience += points
	g.level = LevelFor(g.experience)
	return from, g.level, nil
}

// AddSteps adds to the lifetime step total.
func (g *Guardian) AddSteps(steps StepCount) {
	g.totalSteps += int64(steps)
}

// AddEnergyGenerated adds to the lifetime energy total.
func (g *Guardian) AddEnergyGenerated(energy Energy) {
	g.totalEnergyGenerated += energy.Int64()
}

// Touch records activity at now.
func (g *Guardian) Touch(now time.Time) {
	if now.After(g.lastActiveAt) {
		g.lastActiveAt = now.UTC()
	}
}

// Deactivate marks the guardian inactive. Guardians are never deleted.
func (g *Guardian) Deactivate() { g.active = false }

// Activate marks the guardian active.
func (g *Guardian) Activate() { g.active = true }
