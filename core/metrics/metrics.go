package metrics

import (
	"errors"
	"time"
)

// EpochResult captures the outcome of one processed epoch for observability.
type EpochResult struct {
	Component     string
	EpochNumber   int64
	RequestedKW   float64
	AchievedKW    float64
	StateOfCharge float64
	DurationHours float64
	// Constrained is true when the device could not meet the requested
	// setpoint and the achieved power was recomputed.
	Constrained bool
	Time        time.Time
}

// MetricsSink records epoch results for observability purposes.
type MetricsSink interface {
	RecordEpochResult(ev EpochResult) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordEpochResult(EpochResult) error { return nil }

// MultiSink fans out every record call to a list of sinks.
type MultiSink struct {
	sinks []MetricsSink
}

// NewMultiSink combines several sinks into one.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordEpochResult forwards the event to every sink and joins the errors.
func (m *MultiSink) RecordEpochResult(ev EpochResult) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordEpochResult(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
