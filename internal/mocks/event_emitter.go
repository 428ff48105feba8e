package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/guardianes/internal/events"
)

// MockEventEmitter records emitted events and returns EmitErr.
type MockEventEmitter struct {
	mu      sync.Mutex
	Events  []*events.Event
	EmitErr error
}

// EmitEvent implements events.EventEmitter.
func (m *MockEventEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.EmitErr
}

// Types returns the types of the recorded events in emission order.
func (m *MockEventEmitter) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
