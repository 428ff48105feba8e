package domain

import (
	"fmt"
	"time"
)

// DailyStepAggregate is the running step total for one guardian on one
// calendar day. There is at most one per (GuardianID, Date).
type DailyStepAggregate struct {
	GuardianID      GuardianID `json:"guardian_id"`
	Date            time.Time  `json:"date"`
	TotalSteps      StepCount  `json:"total_steps"`
	SubmissionCount int        `json:"submission_count"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EmptyDailyAggregate returns the zero-total aggregate used when a guardian
// has not submitted anything on date yet.
func EmptyDailyAggregate(guardianID GuardianID, date time.Time) DailyStepAggregate {
	return DailyStepAggregate{
		GuardianID: guardianID,
		Date:       CalendarDate(date, time.UTC),
	}
}

// AddSteps returns a copy of the aggregate with steps added. The receiver is
// not modified. Fails with ErrDailyCapExceeded when the new total would pass
// DailyStepCap.
func (a DailyStepAggregate) AddSteps(steps StepCount, now time.Time) (DailyStepAggregate, error) {
	if steps.WouldExceedDailyCap(a.TotalSteps) {
		return a, fmt.Errorf("%w: current %d + %d > %d",
			ErrDailyCapExceeded, a.TotalSteps, steps, DailyStepCap)
	}
	next := a
	next.TotalSteps = a.TotalSteps + steps
	next.SubmissionCount = a.SubmissionCount + 1
	next.UpdatedAt = now.UTC()
	return next, nil
}

// RemainingSteps returns how many more steps fit under the daily cap.
func (a DailyStepAggregate) RemainingSteps() int {
	remaining := DailyStepCap - a.TotalSteps.Int()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Energy returns the energy this day's steps produced at the given ratio.
func (a DailyStepAggregate) Energy(stepsPerEnergy int) Energy {
	return EnergyFromSteps(a.TotalSteps, stepsPerEnergy)
}

// Validate checks the aggregate's invariants.
func (a DailyStepAggregate) Validate() error {
	if a.GuardianID <= 0 {
		return NewValidationError("daily_aggregate.guardian_id", a.GuardianID, "must be positive")
	}
	if a.Date.IsZero() {
		return NewValidationError("daily_aggregate.date", a.Date, "is required")
	}
	if a.TotalSteps < 0 || a.TotalSteps > DailyStepCap {
		return NewValidationError("daily_aggregate.total_steps", a.TotalSteps, "out of range")
	}
	if a.SubmissionCount < 0 {
		return NewValidationError("daily_aggregate.submission_count", a.SubmissionCount, "cannot be negative")
	}
	return nil
}
