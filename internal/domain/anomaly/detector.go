// Package anomaly provides the policies that decide whether a step submission
// looks suspicious. Verdicts are advisory: callers record and report them but
// never reject a submission because of them.
package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
)

// DefaultThreshold is the single-submission step count above which a
// submission is considered anomalous.
const DefaultThreshold = 15_000

// DefaultMaxStepsPerMinute is the fastest plausible walking pace.
const DefaultMaxStepsPerMinute = 200

// Detector decides whether a submission is anomalous.
type Detector interface {
	IsAnomalous(ctx context.Context, guardianID domain.GuardianID, steps domain.StepCount, at time.Time) (bool, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, guardianID domain.GuardianID, steps domain.StepCount, at time.Time) (bool, error)

// IsAnomalous calls f.
func (f DetectorFunc) IsAnomalous(
	ctx context.Context,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	at time.Time,
) (bool, error) {
	return f(ctx, guardianID, steps, at)
}

// ThresholdDetector flags any submission above Threshold steps.
type ThresholdDetector struct {
	Threshold int
}

// NewThresholdDetector returns a ThresholdDetector. A non-positive threshold
// falls back to DefaultThreshold.
func NewThresholdDetector(threshold int) *ThresholdDetector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ThresholdDetector{Threshold: threshold}
}

// IsAnomalous implements Detector.
func (d *ThresholdDetector) IsAnomalous(
	_ context.Context,
	_ domain.GuardianID,
	steps domain.StepCount,
	_ time.Time,
) (bool, error) {
	return steps.Int() > d.Threshold, nil
}

// SubmissionReader reads a guardian's past submissions. store.StepStore
// satisfies it.
type SubmissionReader interface {
	FindByGuardianAndDateRange(
		ctx context.Context,
		guardianID domain.GuardianID,
		from, to time.Time,
	) ([]*domain.StepRecord, error)
}

// ReaderBinder is implemented by detectors that read submission history.
// WithReader returns a detector that reads through reader instead.
type ReaderBinder interface {
	WithReader(reader SubmissionReader) Detector
}

// Bind returns d reading history through reader when d supports it, and d
// unchanged otherwise.
func Bind(d Detector, reader SubmissionReader) Detector {
	if b, ok := d.(ReaderBinder); ok && reader != nil {
		return b.WithReader(reader)
	}
	return d
}

// VelocityDetector flags submissions that imply walking faster than
// MaxStepsPerMinute since the guardian's previous submission within Lookback.
type VelocityDetector struct {
	reader            SubmissionReader
	MaxStepsPerMinute int
	Lookback          time.Duration
}

// NewVelocityDetector returns a VelocityDetector reading history from reader.
func NewVelocityDetector(reader SubmissionReader, maxStepsPerMinute int) (*VelocityDetector, error) {
	if reader == nil {
		return nil, fmt.Errorf("submission reader cannot be nil")
	}
	if maxStepsPerMinute <= 0 {
		maxStepsPerMinute = DefaultMaxStepsPerMinute
	}
	return &VelocityDetector{
		reader:            reader,
		MaxStepsPerMinute: maxStepsPerMinute,
		Lookback:          domain.MaxSubmissionAge,
	}, nil
}

// WithReader implements ReaderBinder.
func (d *VelocityDetector) WithReader(reader SubmissionReader) Detector {
	bound := *d
	bound.reader = reader
	return &bound
}

// IsAnomalous implements Detector. A first submission in the lookback window
// is never anomalous; a non-empty submission at or before the previous one is.
func (d *VelocityDetector) IsAnomalous(
	ctx context.Context,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	at time.Time,
) (bool, error) {
	if steps.IsZero() {
		return false, nil
	}

	records, err := d.reader.FindByGuardianAndDateRange(ctx, guardianID, at.Add(-d.Lookback), at.Add(domain.MaxClockSkew))
	if err != nil {
		return false, fmt.Errorf("failed to read submission history: %w", err)
	}

	var previous *domain.StepRecord
	for _, r := range records {
		if previous == nil || r.RecordedAt.After(previous.RecordedAt) {
			previous = r
		}
	}
	if previous == nil {
		return false, nil
	}

	minutes := at.Sub(previous.RecordedAt).Minutes()
	if minutes <= 0 {
		return true, nil
	}
	return float64(steps.Int()) > minutes*float64(d.MaxStepsPerMinute), nil
}

// Composite flags a submission when any of its detectors does.
type Composite []Detector

// WithReader implements ReaderBinder by binding every member that reads
// history.
func (c Composite) WithReader(reader SubmissionReader) Detector {
	bound := make(Composite, len(c))
	for i, d := range c {
		bound[i] = Bind(d, reader)
	}
	return bound
}

// IsAnomalous implements Detector. Detectors run in order and the first
// positive verdict or error short-circuits.
func (c Composite) IsAnomalous(
	ctx context.Context,
	guardianID domain.GuardianID,
	steps domain.StepCount,
	at time.Time,
) (bool, error) {
	for _, d := range c {
		anomalous, err := d.IsAnomalous(ctx, guardianID, steps, at)
		if err != nil {
			return false, err
		}
		if anomalous {
			return true, nil
		}
	}
	return false, nil
}
