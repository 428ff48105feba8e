package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/store"
)

type stepStore struct {
	s  *Store
	tx *staged
}

var _ store.StepStore = (*stepStore)(nil)

func (st *stepStore) Save(_ context.Context, record *domain.StepRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	r := *record
	if st.tx != nil {
		st.tx.records = append(st.tx.records, &r)
		return nil
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	st.s.records[r.GuardianID] = append(st.s.records[r.GuardianID], &r)
	return nil
}

// records returns copies of the committed and staged records matching keep.
func (st *stepStore) records(guardianID domain.GuardianID, keep func(*domain.StepRecord) bool) []*domain.StepRecord {
	var out []*domain.StepRecord
	add := func(r *domain.StepRecord) {
		if r.GuardianID == guardianID && keep(r) {
			c := *r
			out = append(out, &c)
		}
	}

	st.s.mu.RLock()
	for _, r := range st.s.records[guardianID] {
		add(r)
	}
	st.s.mu.RUnlock()

	if st.tx != nil {
		for _, r := range st.tx.records {
			add(r)
		}
	}

	slices.SortStableFunc(out, func(a, b *domain.StepRecord) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	return out
}

func (st *stepStore) FindByGuardianAndDate(
	_ context.Context,
	guardianID domain.GuardianID,
	date time.Time,
) ([]*domain.StepRecord, error) {
	day := domain.CalendarDate(date, time.UTC)
	return st.records(guardianID, func(r *domain.StepRecord) bool {
		return domain.CalendarDate(r.RecordedAt, time.UTC).Equal(day)
	}), nil
}

func (st *stepStore) FindByGuardianAndDateRange(
	_ context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]*domain.StepRecord, error) {
	return st.records(guardianID, func(r *domain.StepRecord) bool {
		return !r.RecordedAt.Before(from) && !r.RecordedAt.After(to)
	}), nil
}

func (st *stepStore) CountSubmissionsInWindow(
	_ context.Context,
	guardianID domain.GuardianID,
	start, end time.Time,
) (int, error) {
	return len(st.records(guardianID, func(r *domain.StepRecord) bool {
		return r.RecordedAt.After(start) && r.RecordedAt.Before(end)
	})), nil
}

func (st *stepStore) UpsertDailyAggregate(_ context.Context, aggregate domain.DailyStepAggregate) error {
	if err := aggregate.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	key := keyFor(aggregate.GuardianID, aggregate.Date)
	aggregate.Date = key.date

	if st.tx != nil {
		st.tx.aggregates[key] = aggregate
		return nil
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	st.s.aggregates[key] = aggregate
	return nil
}

func (st *stepStore) FindDailyAggregate(
	_ context.Context,
	guardianID domain.GuardianID,
	date time.Time,
) (*domain.DailyStepAggregate, error) {
	key := keyFor(guardianID, date)

	if st.tx != nil {
		if a, ok := st.tx.aggregates[key]; ok {
			return &a, nil
		}
	}

	st.s.mu.RLock()
	a, ok := st.s.aggregates[key]
	st.s.mu.RUnlock()
	if !ok {
		return nil, store.ErrDailyAggregateNotFound
	}
	return &a, nil
}

func (st *stepStore) FindDailyAggregatesInRange(
	_ context.Context,
	guardianID domain.GuardianID,
	from, to time.Time,
) ([]domain.DailyStepAggregate, error) {
	from = domain.CalendarDate(from, time.UTC)
	to = domain.CalendarDate(to, time.UTC)

	merged := make(map[aggregateKey]domain.DailyStepAggregate)
	st.s.mu.RLock()
	for k, a := range st.s.aggregates {
		if k.guardianID == guardianID {
			merged[k] = a
		}
	}
	st.s.mu.RUnlock()
	if st.tx != nil {
		for k, a := range st.tx.aggregates {
			if k.guardianID == guardianID {
				merged[k] = a
			}
		}
	}

	out := make([]domain.DailyStepAggregate, 0, len(merged))
	for k, a := range merged {
		if !k.date.Before(from) && !k.date.After(to) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.DailyStepAggregate) int {
		return a.Date.Compare(b.Date)
	})
	return out, nil
}
