package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
)

// Sentinel errors for every failure kind a caller can receive. Each kind is
// distinct; callers match them with errors.Is or switch on Kind(err).
//
// None of these are retried by the services. Domain rejections are final for
// the given input; infrastructure failures are left to the caller to retry.
var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = domain.ErrValidation

	// ErrRateLimitExceeded marks a submission beyond the hourly limit.
	ErrRateLimitExceeded = errors.New("submission rate limit exceeded")

	// ErrDailyCapExceeded marks a submission that would take the day's total
	// above domain.DailyStepCap.
	ErrDailyCapExceeded = domain.ErrDailyCapExceeded

	// ErrInsufficientEnergy marks a spend larger than the current balance.
	ErrInsufficientEnergy = errors.New("insufficient energy")

	// ErrGuardianNotFound marks an operation on an unknown guardian.
	ErrGuardianNotFound = errors.New("guardian not found")

	// ErrGuardianInactive marks a write for a deactivated guardian.
	ErrGuardianInactive = errors.New("guardian is inactive")

	// ErrInfrastructure marks a storage or connectivity failure. The request
	// may have been valid.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// ErrorKind is the closed set of failure categories.
type ErrorKind string

// Error kinds, one per sentinel above.
const (
	KindNone               ErrorKind = ""
	KindValidation         ErrorKind = "validation"
	KindRateLimitExceeded  ErrorKind = "rate_limit_exceeded"
	KindDailyCapExceeded   ErrorKind = "daily_cap_exceeded"
	KindInsufficientEnergy ErrorKind = "insufficient_energy"
	KindGuardianNotFound   ErrorKind = "guardian_not_found"
	KindGuardianInactive   ErrorKind = "guardian_inactive"
	KindInfrastructure     ErrorKind = "infrastructure"
)

// Kind classifies err. Anything that is not a recognized domain rejection
// is an infrastructure failure.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInfrastructure):
		return KindInfrastructure
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimitExceeded
	case errors.Is(err, ErrDailyCapExceeded):
		return KindDailyCapExceeded
	case errors.Is(err, ErrInsufficientEnergy):
		return KindInsufficientEnergy
	case errors.Is(err, ErrGuardianNotFound):
		return KindGuardianNotFound
	case errors.Is(err, ErrGuardianInactive):
		return KindGuardianInactive
	default:
		return KindInfrastructure
	}
}

// RateLimitError carries the details of a rate-limited submission.
type RateLimitError struct {
	GuardianID domain.GuardianID
	Count      int           // Submissions already in the window
	Limit      int           // Configured maximum per window
	Window     time.Duration // Window length
}

// Error implements the error interface for RateLimitError.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("guardian %d: %s: %d submissions in the last %s (limit %d)",
		e.GuardianID, ErrRateLimitExceeded, e.Count, e.Window, e.Limit)
}

// Unwrap returns ErrRateLimitExceeded.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// DailyCapError carries the details of a submission rejected by the daily cap.
type DailyCapError struct {
	GuardianID   domain.GuardianID
	Date         time.Time
	CurrentTotal domain.StepCount
	Requested    domain.StepCount
}

// Error implements the error interface for DailyCapError.
func (e *DailyCapError) Error() string {
	return fmt.Sprintf("guardian %d: %s on %s: %d + %d > %d",
		e.GuardianID, ErrDailyCapExceeded, e.Date.Format(time.DateOnly),
		e.CurrentTotal, e.Requested, domain.DailyStepCap)
}

// Unwrap returns ErrDailyCapExceeded.
func (e *DailyCapError) Unwrap() error {
	return ErrDailyCapExceeded
}

// InsufficientEnergyError carries the details of a rejected spend.
type InsufficientEnergyError struct {
	GuardianID domain.GuardianID
	Balance    domain.Energy
	Requested  domain.Energy
}

// Error implements the error interface for InsufficientEnergyError.
func (e *InsufficientEnergyError) Error() string {
	return fmt.Sprintf("guardian %d: %s: balance %d, requested %d",
		e.GuardianID, ErrInsufficientEnergy, e.Balance, e.Requested)
}

// Unwrap returns ErrInsufficientEnergy.
func (e *InsufficientEnergyError) Unwrap() error {
	return ErrInsufficientEnergy
}

// InfrastructureError wraps a failure of a collaborator (storage, cache,
// anomaly policy) that prevented an operation from completing.
type InfrastructureError struct {
	Service string // Service name (e.g., "step", "energy")
	Op      string // Operation that failed (e.g., "submit_steps")
	Err     error  // Underlying error, passed through unmodified
}

// Error implements the error interface for InfrastructureError.
func (e *InfrastructureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap exposes both ErrInfrastructure and the underlying error to
// errors.Is and errors.As.
func (e *InfrastructureError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInfrastructure}
	}
	return []error{ErrInfrastructure, e.Err}
}

// NewInfrastructureError creates a new InfrastructureError.
func NewInfrastructureError(service, op string, err error) *InfrastructureError {
	return &InfrastructureError{Service: service, Op: op, Err: err}
}

// guardianNotFound builds the error returned for an unknown guardian.
func guardianNotFound(id domain.GuardianID) error {
	return fmt.Errorf("%w: %d", ErrGuardianNotFound, id)
}

// guardianInactive builds the error returned for a deactivated guardian.
func guardianInactive(id domain.GuardianID) error {
	return fmt.Errorf("%w: %d", ErrGuardianInactive, id)
}

// classify returns domain rejections unchanged and wraps everything else as
// an InfrastructureError.
func classify(service, op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInfrastructure {
		return err
	}
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return err
	}
	return NewInfrastructureError(service, op, err)
}
