// Package memstore implements the store contracts in memory. It is used for
// local development and tests, and honors the same per-guardian serialization
// and all-or-nothing commit semantics as the Postgres implementation.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/store"
)

type aggregateKey struct {
	guardianID domain.GuardianID
	date       time.Time
}

func keyFor(guardianID domain.GuardianID, date time.Time) aggregateKey {
	return aggregateKey{guardianID: guardianID, date: domain.CalendarDate(date, time.UTC)}
}

// Store holds all in-memory state. The zero value is not usable; call New.
type Store struct {
	mu         sync.RWMutex
	records    map[domain.GuardianID][]*domain.StepRecord
	aggregates map[aggregateKey]domain.DailyStepAggregate
	ledger     map[domain.GuardianID][]*domain.EnergyTransaction
	guardians  map[domain.GuardianID]domain.GuardianState

	locks guardianLocks
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records:    make(map[domain.GuardianID][]*domain.StepRecord),
		aggregates: make(map[aggregateKey]domain.DailyStepAggregate),
		ledger:     make(map[domain.GuardianID][]*domain.EnergyTransaction),
		guardians:  make(map[domain.GuardianID]domain.GuardianState),
		locks:      guardianLocks{held: make(map[domain.GuardianID]chan struct{})},
	}
}

var _ store.UnitOfWork = (*Store)(nil)

// Stores returns stores that write directly, outside any unit of work.
func (s *Store) Stores() store.Stores {
	return s.bind(nil)
}

func (s *Store) bind(tx *staged) store.Stores {
	return store.Stores{
		Steps:     &stepStore{s: s, tx: tx},
		Energy:    &energyStore{s: s, tx: tx},
		Guardians: &guardianStore{s: s, tx: tx},
	}
}

// Run executes fn holding guardianID's lock. Writes are staged and applied
// together only when fn returns nil.
func (s *Store) Run(
	ctx context.Context,
	guardianID domain.GuardianID,
	fn func(ctx context.Context, stores store.Stores) error,
) error {
	unlock, err := s.locks.acquire(ctx, guardianID)
	if err != nil {
		return err
	}
	defer unlock()

	tx := newStaged()
	if err := fn(ctx, s.bind(tx)); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *staged) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range tx.records {
		s.records[r.GuardianID] = append(s.records[r.GuardianID], r)
	}
	for k, a := range tx.aggregates {
		s.aggregates[k] = a
	}
	for _, t := range tx.ledger {
		s.ledger[t.GuardianID] = append(s.ledger[t.GuardianID], t)
	}
	for id, g := range tx.guardians {
		s.guardians[id] = g
	}
}

// staged collects the writes of one unit of work.
type staged struct {
	records    []*domain.StepRecord
	aggregates map[aggregateKey]domain.DailyStepAggregate
	ledger     []*domain.EnergyTransaction
	guardians  map[domain.GuardianID]domain.GuardianState
}

func newStaged() *staged {
	return &staged{
		aggregates: make(map[aggregateKey]domain.DailyStepAggregate),
		guardians:  make(map[domain.GuardianID]domain.GuardianState),
	}
}

// guardianLocks is a set of per-guardian mutexes that can be abandoned when
// the context is cancelled while waiting.
type guardianLocks struct {
	mu   sync.Mutex
	held map[domain.GuardianID]chan struct{}
}

func (l *guardianLocks) acquire(ctx context.Context, id domain.GuardianID) (func(), error) {
	l.mu.Lock()
	ch, ok := l.held[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.held[id] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
