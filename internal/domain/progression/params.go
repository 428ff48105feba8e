package progression

import "errors"

// ErrInvalidParams is returned when progression parameters cannot produce
// a meaningful experience award.
var ErrInvalidParams = errors.New("invalid progression parameters")

// Params defines the configurable ratios of the progression engine
type Params struct {
	// StepsPerExperiencePoint is how many steps earn one experience point.
	StepsPerExperiencePoint int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		StepsPerExperiencePoint: 100,
	}
}

// Validate checks that the parameters are usable.
func (p *Params) Validate() error {
	if p == nil || p.StepsPerExperiencePoint <= 0 {
		return ErrInvalidParams
	}
	return nil
}
