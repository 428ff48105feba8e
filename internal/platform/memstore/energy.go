package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/store"
)

type energyStore struct {
	s  *Store
	tx *staged
}

var _ store.EnergyStore = (*energyStore)(nil)

func (e *energyStore) AppendTransaction(_ context.Context, tx *domain.EnergyTransaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	t := *tx
	if e.tx != nil {
		e.tx.ledger = append(e.tx.ledger, &t)
		return nil
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.ledger[t.GuardianID] = append(e.s.ledger[t.GuardianID], &t)
	return nil
}

// entries returns copies of the committed and staged entries in append
// order, sorted oldest first.
func (e *energyStore) entries(guardianID domain.GuardianID) []*domain.EnergyTransaction {
	var out []*domain.EnergyTransaction
	e.s.mu.RLock()
	for _, t := range e.s.ledger[guardianID] {
		c := *t
		out = append(out, &c)
	}
	e.s.mu.RUnlock()

	if e.tx != nil {
		for _, t := range e.tx.ledger {
			if t.GuardianID == guardianID {
				c := *t
				out = append(out, &c)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b *domain.EnergyTransaction) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})
	return out
}

func (e *energyStore) TransactionsFor(
	_ context.Context,
	guardianID domain.GuardianID,
) ([]*domain.EnergyTransaction, error) {
	return e.entries(guardianID), nil
}

func (e *energyStore) TransactionsForDateRange(
	_ context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]*domain.EnergyTransaction, error) {
	var out []*domain.EnergyTransaction
	for _, t := range e.entries(guardianID) {
		if !t.OccurredAt.Before(from) && !t.OccurredAt.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (e *energyStore) RecentTransactions(
	_ context.Context,
	guardianID domain.GuardianID,
	limit int,
) ([]*domain.EnergyTransaction, error) {
	all := e.entries(guardianID)
	slices.Reverse(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (e *energyStore) Balance(_ context.Context, guardianID domain.GuardianID) (domain.Energy, error) {
	return domain.Energy(domain.BalanceOf(e.entries(guardianID))), nil
}
