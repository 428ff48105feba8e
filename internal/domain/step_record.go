package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepRecord is one accepted step submission. Immutable once created.
type StepRecord struct {
	ID         uuid.UUID  `json:"id"`
	GuardianID GuardianID `json:"guardian_id"`
	Steps      StepCount  `json:"steps"`
	RecordedAt time.Time  `json:"recorded_at"`
	// Flagged is the anomaly verdict at submission time. Advisory only.
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStepRecord creates a StepRecord with a fresh ID.
// Returns an error if validation fails.
func NewStepRecord(
	guardianID GuardianID,
	steps StepCount,
	recordedAt Timestamp,
	flagged bool,
	now time.Time,
) (*StepRecord, error) {
	record := &StepRecord{
		ID:         uuid.New(),
		GuardianID: guardianID,
		Steps:      steps,
		RecordedAt: recordedAt.Time(),
		Flagged:    flagged,
		CreatedAt:  now.UTC(),
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the StepRecord has valid data.
func (r *StepRecord) Validate() error {
	if r.ID == uuid.Nil {
		return NewValidationError("step_record.id", r.ID, "cannot be empty")
	}
	if r.GuardianID <= 0 {
		return NewValidationError("step_record.guardian_id", r.GuardianID, "must be positive")
	}
	if r.Steps < 0 || r.Steps > MaxStepsPerSubmission {
		return NewValidationError("step_record.steps", r.Steps, "out of range")
	}
	if r.RecordedAt.IsZero() {
		return NewValidationError("step_record.recorded_at", r.RecordedAt, "is required")
	}
	return nil
}
