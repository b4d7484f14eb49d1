package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/storagesim/core/metrics"
)

// PromSink records epoch results in Prometheus metrics.
type PromSink struct {
	epochs      *prometheus.CounterVec
	constrained *prometheus.CounterVec
	soc         *prometheus.GaugeVec
	achieved    *prometheus.GaugeVec
	duration    *prometheus.HistogramVec
}

// NewPromSink registers storage metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	epochs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_epochs_processed_total",
		Help: "Total number of epochs processed per component",
	}, []string{"component", "constrained"})
	constrained := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_constrained_epochs_total",
		Help: "Epochs where the achieved power differed from the requested setpoint",
	}, []string{"component"})
	soc := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storage_state_of_charge_percent",
		Help: "State of charge after the latest epoch",
	}, []string{"component"})
	achieved := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storage_achieved_power_kw",
		Help: "Achieved real power for the latest epoch",
	}, []string{"component"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storage_epoch_duration_hours",
		Help:    "Length of processed epochs in hours",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 24},
	}, []string{"component"})

	collectors := []prometheus.Collector{epochs, constrained, soc, achieved, duration}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	return &PromSink{
		epochs:      collectors[0].(*prometheus.CounterVec),
		constrained: collectors[1].(*prometheus.CounterVec),
		soc:         collectors[2].(*prometheus.GaugeVec),
		achieved:    collectors[3].(*prometheus.GaugeVec),
		duration:    collectors[4].(*prometheus.HistogramVec),
	}, nil
}

// RecordEpochResult updates the counters and gauges for one epoch.
func (s *PromSink) RecordEpochResult(ev coremetrics.EpochResult) error {
	s.epochs.WithLabelValues(ev.Component, strconv.FormatBool(ev.Constrained)).Inc()
	if ev.Constrained {
		s.constrained.WithLabelValues(ev.Component).Inc()
	}
	s.soc.WithLabelValues(ev.Component).Set(ev.StateOfCharge)
	s.achieved.WithLabelValues(ev.Component).Set(ev.AchievedKW)
	s.duration.WithLabelValues(ev.Component).Observe(ev.DurationHours)
	return nil
}
