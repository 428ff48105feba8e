package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/guardianes/internal/domain"
)

// Event types.
const (
	TypeStepsSubmitted  = "steps.submitted"
	TypeAnomalyDetected = "steps.anomaly_detected"
	TypeEnergyEarned    = "energy.earned"
	TypeEnergySpent     = "energy.spent"
	TypeLevelUp         = "guardian.level_up"
)

// Event is one activity notification about a single guardian.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       string            `json:"type"`
	GuardianID domain.GuardianID `json:"guardian_id"`
	Payload    json.RawMessage   `json:"payload"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewEvent creates an Event with a fresh ID and payload serialized as JSON.
func NewEvent(eventType string, guardianID domain.GuardianID, payload any, at time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		GuardianID: guardianID,
		Payload:    payloadBytes,
		CreatedAt:  at.UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// StepsSubmittedPayload accompanies TypeStepsSubmitted.
type StepsSubmittedPayload struct {
	RecordID        uuid.UUID `json:"record_id"`
	Steps           int       `json:"steps"`
	DailyTotal      int       `json:"daily_total"`
	EnergyGenerated int64     `json:"energy_generated"`
	Flagged         bool      `json:"flagged"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// AnomalyPayload accompanies TypeAnomalyDetected.
type AnomalyPayload struct {
	RecordID   uuid.UUID `json:"record_id"`
	Steps      int       `json:"steps"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EnergyPayload accompanies TypeEnergyEarned and TypeEnergySpent.
type EnergyPayload struct {
	TransactionID uuid.UUID           `json:"transaction_id"`
	Amount        int64               `json:"amount"`
	Source        domain.EnergySource `json:"source"`
}

// LevelUpPayload accompanies TypeLevelUp.
type LevelUpPayload struct {
	From       domain.Level `json:"from"`
	To         domain.Level `json:"to"`
	Experience int          `json:"experience"`
}

// EventHandler processes events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events without knowledge of the handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
