// Package metrics exposes the activity engine's business counters to
// Prometheus.
package metrics

import (
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "guardianes"

// ActivityMetrics implements service.Metrics with Prometheus instruments.
type ActivityMetrics struct {
	submissions        *prometheus.CounterVec
	stepsRecorded      prometheus.Counter
	validationDuration prometheus.Histogram
	energyEarned       *prometheus.CounterVec
	energySpent        *prometheus.CounterVec
	levelUps           *prometheus.CounterVec
}

var _ service.Metrics = (*ActivityMetrics)(nil)

// New creates the instruments and registers them with registerer. A nil
// registerer means prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) (*ActivityMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &ActivityMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_submissions_total",
			Help:      "Step submissions by outcome.",
		}, []string{"outcome"}),
		stepsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_recorded_total",
			Help:      "Steps accepted across all guardians.",
		}),
		validationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_validation_duration_seconds",
			Help:      "Time spent validating a step submission before the write.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		energyEarned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "energy_earned_total",
			Help:      "Energy earned by source.",
		}, []string{"source"}),
		energySpent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "energy_spent_total",
			Help:      "Energy spent by source.",
		}, []string{"source"}),
		levelUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guardian_level_ups_total",
			Help:      "Level transitions by the level reached.",
		}, []string{"level"}),
	}

	for _, c := range []prometheus.Collector{
		m.submissions,
		m.stepsRecorded,
		m.validationDuration,
		m.energyEarned,
		m.energySpent,
		m.levelUps,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SubmissionAccepted counts an accepted submission, separating flagged ones.
func (m *ActivityMetrics) SubmissionAccepted(steps domain.StepCount, _ domain.Energy, flagged bool) {
	outcome := "accepted"
	if flagged {
		outcome = "flagged"
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.stepsRecorded.Add(float64(steps.Int()))
}

// SubmissionRejected counts a rejection under its error kind.
func (m *ActivityMetrics) SubmissionRejected(kind service.ErrorKind) {
	m.submissions.WithLabelValues(string(kind)).Inc()
}

// ValidationDuration observes how long sanitizing and anomaly checks took.
func (m *ActivityMetrics) ValidationDuration(d time.Duration) {
	m.validationDuration.Observe(d.Seconds())
}

// EnergyEarned adds amount to the earned counter of source.
func (m *ActivityMetrics) EnergyEarned(source domain.EnergySource, amount domain.Energy) {
	m.energyEarned.WithLabelValues(string(source)).Add(float64(amount.Int64()))
}

// EnergySpent adds amount to the spent counter of source.
func (m *ActivityMetrics) EnergySpent(source domain.EnergySource, amount domain.Energy) {
	m.energySpent.WithLabelValues(string(source)).Add(float64(amount.Int64()))
}

// LevelUp counts a promotion to level to.
func (m *ActivityMetrics) LevelUp(to domain.Level) {
	m.levelUps.WithLabelValues(string(to)).Inc()
}
