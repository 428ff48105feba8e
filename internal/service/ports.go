package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/events"
)

// Metrics records business measurements. Implementations must be safe for
// concurrent use and must not block.
type Metrics interface {
	SubmissionAccepted(steps domain.StepCount, energy domain.Energy, flagged bool)
	SubmissionRejected(kind ErrorKind)
	ValidationDuration(d time.Duration)
	EnergyEarned(source domain.EnergySource, amount domain.Energy)
	EnergySpent(source domain.EnergySource, amount domain.Energy)
	LevelUp(to domain.Level)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

// SubmissionAccepted implements Metrics.
func (NoopMetrics) SubmissionAccepted(domain.StepCount, domain.Energy, bool) {}

// SubmissionRejected implements Metrics.
func (NoopMetrics) SubmissionRejected(ErrorKind) {}

// ValidationDuration implements Metrics.
func (NoopMetrics) ValidationDuration(time.Duration) {}

// EnergyEarned implements Metrics.
func (NoopMetrics) EnergyEarned(domain.EnergySource, domain.Energy) {}

// EnergySpent implements Metrics.
func (NoopMetrics) EnergySpent(domain.EnergySource, domain.Energy) {}

// LevelUp implements Metrics.
func (NoopMetrics) LevelUp(domain.Level) {}

// HistoryCache caches step history ranges. The store stays authoritative;
// a cache failure is logged and never fails an operation.
//
// Entries are scoped to a per-guardian generation. Invalidate advances the
// generation, so an entry filled from a read that raced a submission is
// written under a generation that is no longer served.
type HistoryCache interface {
	// Generation returns the guardian's current cache generation.
	Generation(ctx context.Context, guardianID domain.GuardianID) (int64, error)

	// GetHistory returns the aggregates cached for a range under generation
	// and whether the range was cached.
	GetHistory(
		ctx context.Context,
		guardianID domain.GuardianID,
		generation int64,
		from, to time.Time,
	) ([]domain.DailyStepAggregate, bool, error)

	// SetHistory caches the aggregates for a range under generation.
	SetHistory(
		ctx context.Context,
		guardianID domain.GuardianID,
		generation int64,
		from, to time.Time,
		aggregates []domain.DailyStepAggregate,
	) error

	// Invalidate advances the guardian's generation.
	Invalidate(ctx context.Context, guardianID domain.GuardianID) error
}

// Option configures the optional collaborators of a service.
type Option func(*options)

type options struct {
	cache   HistoryCache
	emitter events.EventEmitter
	metrics Metrics
	now     func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		metrics: NoopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHistoryCache serves step history through cache.
func WithHistoryCache(cache HistoryCache) Option {
	return func(o *options) { o.cache = cache }
}

// WithEventEmitter publishes activity events through emitter after each
// committed write.
func WithEventEmitter(emitter events.EventEmitter) Option {
	return func(o *options) { o.emitter = emitter }
}

// WithMetrics records business metrics through m.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// emit builds and publishes an event. Failures are logged only; the write
// the event describes has already committed.
func (o options) emit(
	ctx context.Context,
	log *slog.Logger,
	eventType string,
	guardianID domain.GuardianID,
	payload any,
) {
	if o.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, guardianID, payload, o.now())
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := o.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}
