package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Activity limits shared by the value objects and the submission engine.
const (
	// MaxStepsPerSubmission is the sanitization ceiling for a single submission.
	MaxStepsPerSubmission = 50_000

	// DailyStepCap is the maximum total steps a guardian may record on one calendar day.
	DailyStepCap = 50_000

	// MaxClockSkew is how far in the future a timestamp may be.
	MaxClockSkew = 5 * time.Minute

	// MaxSubmissionAge is how old a timestamp may be.
	MaxSubmissionAge = 24 * time.Hour
)

// GuardianID identifies a guardian. Always positive.
type GuardianID int64

// NewGuardianID validates and returns a GuardianID.
func NewGuardianID(value int64) (GuardianID, error) {
	if value <= 0 {
		return 0, NewValidationError("guardian_id", value, "must be positive")
	}
	return GuardianID(value), nil
}

// Int64 returns the raw identifier.
func (id GuardianID) Int64() int64 { return int64(id) }

// String implements fmt.Stringer.
func (id GuardianID) String() string { return strconv.FormatInt(int64(id), 10) }

// StepCount is a quantity of steps in a single submission or daily total.
type StepCount int

// NewStepCount validates and returns a StepCount.
func NewStepCount(value int) (StepCount, error) {
	if value < 0 {
		return 0, NewValidationError("step_count", value, "cannot be negative")
	}
	if value > MaxStepsPerSubmission {
		return 0, NewValidationError(
			"step_count",
			value,
			fmt.Sprintf("exceeds the per-submission maximum of %d", MaxStepsPerSubmission),
		)
	}
	return StepCount(value), nil
}

// Int returns the raw step count.
func (s StepCount) Int() int { return int(s) }

// IsZero reports whether the count is zero.
func (s StepCount) IsZero() bool { return s == 0 }

// WouldExceedDailyCap reports whether adding s to currentTotal passes DailyStepCap.
func (s StepCount) WouldExceedDailyCap(currentTotal StepCount) bool {
	return int(currentTotal)+int(s) > DailyStepCap
}

// Energy is the spendable currency earned from steps. Never negative.
type Energy int64

// NewEnergy validates and returns an Energy amount.
func NewEnergy(value int64) (Energy, error) {
	if value < 0 {
		return 0, NewValidationError("energy", value, "cannot be negative")
	}
	return Energy(value), nil
}

// EnergyFromSteps converts steps using a fixed ratio, rounding down.
// 1000 steps at 10 steps per energy yields 100 energy.
func EnergyFromSteps(steps StepCount, stepsPerEnergy int) Energy {
	if stepsPerEnergy <= 0 {
		return 0
	}
	return Energy(int64(steps) / int64(stepsPerEnergy))
}

// Int64 returns the raw amount.
func (e Energy) Int64() int64 { return int64(e) }

// IsZero reports whether the amount is zero.
func (e Energy) IsZero() bool { return e == 0 }

// SufficientFor reports whether e covers the required amount.
func (e Energy) SufficientFor(required Energy) bool { return e >= required }

// Timestamp is a validated submission time.
type Timestamp struct {
	value time.Time
}

// NewTimestamp validates t against now: at most MaxClockSkew in the future
// and at most MaxSubmissionAge in the past.
func NewTimestamp(t, now time.Time) (Timestamp, error) {
	if t.IsZero() {
		return Timestamp{}, NewValidationError("timestamp", t, "is required")
	}
	if t.After(now.Add(MaxClockSkew)) {
		return Timestamp{}, NewValidationError(
			"timestamp",
			t.Format(time.RFC3339),
			fmt.Sprintf("more than %s in the future", MaxClockSkew),
		)
	}
	if t.Before(now.Add(-MaxSubmissionAge)) {
		return Timestamp{}, NewValidationError(
			"timestamp",
			t.Format(time.RFC3339),
			fmt.Sprintf("older than %s", MaxSubmissionAge),
		)
	}
	return Timestamp{value: t}, nil
}

// Time returns the underlying time.
func (ts Timestamp) Time() time.Time { return ts.value }

// IsZero reports whether the timestamp was never constructed.
func (ts Timestamp) IsZero() bool { return ts.value.IsZero() }

// Date returns the calendar date of the timestamp in loc.
func (ts Timestamp) Date(loc *time.Location) time.Time {
	return CalendarDate(ts.value, loc)
}

// CalendarDate returns the calendar day of t in loc, normalized to midnight UTC
// so dates compare and key consistently regardless of the configured location.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
