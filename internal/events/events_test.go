package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	payload := StepsSubmittedPayload{
		RecordID:        uuid.New(),
		Steps:           1000,
		DailyTotal:      4000,
		EnergyGenerated: 100,
	}

	event, err := NewEvent(TypeStepsSubmitted, 42, payload, at)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeStepsSubmitted, event.Type)
	assert.Equal(t, domain.GuardianID(42), event.GuardianID)
	assert.Equal(t, time.UTC, event.CreatedAt.Location())

	var decoded StepsSubmittedPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload.RecordID, decoded.RecordID)
	assert.Equal(t, int64(100), decoded.EnergyGenerated)
}

func TestNewEvent_UnserializablePayload(t *testing.T) {
	_, err := NewEvent(TypeLevelUp, 1, make(chan int), time.Now())
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandlerFunc(t *testing.T) {
	var got *Event
	handler := EventHandlerFunc(func(ctx context.Context, event *Event) error {
		got = event
		return errors.New("rejected")
	})

	event, err := NewEvent(TypeEnergySpent, 7, EnergyPayload{Amount: 5, Source: domain.SourceShop}, time.Now())
	require.NoError(t, err)

	assert.EqualError(t, handler.HandleEvent(context.Background(), event), "rejected")
	assert.Same(t, event, got)
}
