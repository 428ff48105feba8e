package memstore

import (
	"context"
	"fmt"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/store"
)

type guardianStore struct {
	s  *Store
	tx *staged
}

var _ store.GuardianStore = (*guardianStore)(nil)

func (g *guardianStore) Create(_ context.Context, guardian *domain.Guardian) error {
	if guardian == nil {
		return store.ErrInvalidEntity
	}
	state := guardian.State()

	if _, ok := g.state(state.ID); ok {
		return fmt.Errorf("%w: guardian %d", store.ErrDuplicate, state.ID)
	}

	if g.tx != nil {
		g.tx.guardians[state.ID] = state
		return nil
	}
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if _, ok := g.s.guardians[state.ID]; ok {
		return fmt.Errorf("%w: guardian %d", store.ErrDuplicate, state.ID)
	}
	g.s.guardians[state.ID] = state
	return nil
}

func (g *guardianStore) state(id domain.GuardianID) (domain.GuardianState, bool) {
	if g.tx != nil {
		if state, ok := g.tx.guardians[id]; ok {
			return state, true
		}
	}
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	state, ok := g.s.guardians[id]
	return state, ok
}

func (g *guardianStore) Load(_ context.Context, id domain.GuardianID) (*domain.Guardian, error) {
	state, ok := g.state(id)
	if !ok {
		return nil, store.ErrGuardianNotFound
	}
	return domain.RestoreGuardian(state)
}

func (g *guardianStore) Save(_ context.Context, guardian *domain.Guardian) error {
	if guardian == nil {
		return store.ErrInvalidEntity
	}
	state := guardian.State()
	if _, ok := g.state(state.ID); !ok {
		return store.ErrGuardianNotFound
	}

	if g.tx != nil {
		g.tx.guardians[state.ID] = state
		return nil
	}
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	g.s.guardians[state.ID] = state
	return nil
}
