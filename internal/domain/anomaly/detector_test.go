package anomaly

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	records []*domain.StepRecord
	err     error
}

func (s *stubReader) FindByGuardianAndDateRange(
	_ context.Context,
	_ domain.GuardianID,
	from, to time.Time,
) ([]*domain.StepRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.StepRecord
	for _, r := range s.records {
		if !r.RecordedAt.Before(from) && !r.RecordedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestThresholdDetector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := NewThresholdDetector(0)
	assert.Equal(t, DefaultThreshold, d.Threshold)

	tests := []struct {
		steps domain.StepCount
		want  bool
	}{
		{0, false},
		{15000, false},
		{15001, true},
		{50000, true},
	}
	for _, tc := range tests {
		got, err := d.IsAnomalous(ctx, 1, tc.steps, now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "steps %d", tc.steps)
	}
}

func TestVelocityDetector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := &stubReader{records: []*domain.StepRecord{
		{GuardianID: 1, Steps: 500, RecordedAt: now.Add(-3 * time.Hour)},
		{GuardianID: 1, Steps: 800, RecordedAt: now.Add(-10 * time.Minute)},
	}}
	d, err := NewVelocityDetector(reader, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxStepsPerMinute, d.MaxStepsPerMinute)

	// 10 minutes since the last submission allows 2000 steps.
	got, err := d.IsAnomalous(ctx, 1, 2000, now)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = d.IsAnomalous(ctx, 1, 2001, now)
	require.NoError(t, err)
	assert.True(t, got)

	// Submitting at the same instant as the previous record is implausible.
	got, err = d.IsAnomalous(ctx, 1, 10, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = d.IsAnomalous(ctx, 1, 0, now)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestVelocityDetectorWithoutHistory(t *testing.T) {
	t.Parallel()

	d, err := NewVelocityDetector(&stubReader{}, 200)
	require.NoError(t, err)

	got, err := d.IsAnomalous(context.Background(), 1, 40000, now)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = NewVelocityDetector(nil, 200)
	assert.Error(t, err)
}

func TestVelocityDetectorReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	d, err := NewVelocityDetector(&stubReader{err: boom}, 200)
	require.NoError(t, err)

	_, err = d.IsAnomalous(context.Background(), 1, 100, now)
	assert.ErrorIs(t, err, boom)
}

func TestComposite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	never := DetectorFunc(func(context.Context, domain.GuardianID, domain.StepCount, time.Time) (bool, error) {
		return false, nil
	})
	failing := DetectorFunc(func(context.Context, domain.GuardianID, domain.StepCount, time.Time) (bool, error) {
		return false, errors.New("unavailable")
	})

	c := Composite{never, NewThresholdDetector(DefaultThreshold)}

	got, err := c.IsAnomalous(ctx, 1, 20000, now)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = c.IsAnomalous(ctx, 1, 100, now)
	require.NoError(t, err)
	assert.False(t, got)

	// The threshold verdict short-circuits before the failing detector runs.
	got, err = Composite{NewThresholdDetector(10), failing}.IsAnomalous(ctx, 1, 20, now)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = Composite{failing}.IsAnomalous(ctx, 1, 20, now)
	assert.Error(t, err)

	got, err = Composite{}.IsAnomalous(ctx, 1, 50000, now)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestBind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	unbound, err := NewVelocityDetector(&stubReader{err: errors.New("not bound")}, 200)
	require.NoError(t, err)
	history := &stubReader{records: []*domain.StepRecord{
		{GuardianID: 1, Steps: 100, RecordedAt: now.Add(-time.Minute)},
	}}

	bound := Bind(unbound, history)
	got, err := bound.IsAnomalous(ctx, 1, 500, now)
	require.NoError(t, err)
	assert.True(t, got)

	// Binding copies; the original keeps its reader.
	_, err = unbound.IsAnomalous(ctx, 1, 500, now)
	assert.Error(t, err)

	composite := Bind(Composite{NewThresholdDetector(DefaultThreshold), unbound}, history)
	got, err = composite.IsAnomalous(ctx, 1, 500, now)
	require.NoError(t, err)
	assert.True(t, got)

	threshold := NewThresholdDetector(10)
	assert.Same(t, threshold, Bind(threshold, history))
	assert.Same(t, unbound, Bind(unbound, nil))
}
