// Package metrics records report runs on a private Prometheus registry that
// is pushed to a Pushgateway once the CLI run is over.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"taxreport/internal/taxreport"
)

const (
	metricPrefix = "taxreport_"

	// JobName is the Pushgateway job label.
	JobName = "taxreport"
)

// RunMetrics observes pipeline runs.
type RunMetrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	charges       prometheus.Counter
	skipped       prometheus.Counter
	duration      *prometheus.HistogramVec
	lastSuccessTS prometheus.Gauge
}

// NewRunMetrics creates the run collectors on a private registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total report runs by result",
			},
			[]string{"result"},
		),
		charges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "charges_aggregated_total",
				Help: "Charges included in generated reports",
			},
		),
		skipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "charges_skipped_total",
				Help: "Charges excluded from reports because they have no owner",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_duration_seconds",
				Help:    "Report run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		lastSuccessTS: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_success_timestamp_seconds",
				Help: "Unix time of the last successful report run",
			},
		),
	}

	m.registry.MustRegister(m.runs, m.charges, m.skipped, m.duration, m.lastSuccessTS)
	return m
}

// Registry returns the registry the run metrics live on.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one finished run.
func (m *RunMetrics) ObserveRun(stats taxreport.RunStats) {
	m.runs.WithLabelValues(stats.Result).Inc()
	m.duration.WithLabelValues(stats.Result).Observe(stats.Duration.Seconds())
	m.charges.Add(float64(stats.Charges))
	m.skipped.Add(float64(stats.Skipped))
	if stats.Result == taxreport.ResultSuccess {
		m.lastSuccessTS.SetToCurrentTime()
	}
}

// Push sends all run metrics to the Pushgateway at url.
func (m *RunMetrics) Push(ctx context.Context, url string) error {
	const op = "Push"

	err := push.New(url, JobName).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to push metrics to %s: %w", op, url, err)
	}
	return nil
}
