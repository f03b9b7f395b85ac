package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ssl-backtest/internal/model"
	"ssl-backtest/internal/strategy"
)

// Metrics holds the Prometheus metrics of SSL runs on a private registry.
type Metrics struct {
	RunsTotal     prometheus.Counter
	RunFailures   *prometheus.CounterVec // labels: kind=schema|parameter|other
	BarsProcessed prometheus.Counter
	SignalsTotal  *prometheus.CounterVec // labels: signal=buy|sell|hold
	RunDuration   prometheus.Histogram
	LastTraded    prometheus.Gauge

	reg *prometheus.Registry
}

var _ strategy.Recorder = (*Metrics)(nil)

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssl_runs_total",
			Help: "Completed SSL runs",
		}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ssl_run_failures_total",
			Help: "SSL runs rejected before computation (by error kind)",
		}, []string{"kind"}),
		BarsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssl_bars_processed_total",
			Help: "Bars annotated across all runs",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ssl_signals_total",
			Help: "Rows emitted by the signal generator (by signal)",
		}, []string{"signal"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ssl_run_duration_seconds",
			Help:    "Wall time of one SSL run",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		LastTraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ssl_last_run_traded",
			Help: "Sum of position sizes of the most recent run",
		}),
		reg: prometheus.NewRegistry(),
	}

	m.reg.MustRegister(
		m.RunsTotal,
		m.RunFailures,
		m.BarsProcessed,
		m.SignalsTotal,
		m.RunDuration,
		m.LastTraded,
	)
	return m
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(s strategy.Summary, elapsed time.Duration) {
	m.RunsTotal.Inc()
	m.BarsProcessed.Add(float64(s.Bars))
	m.SignalsTotal.WithLabelValues(model.Buy.String()).Add(float64(s.Buys))
	m.SignalsTotal.WithLabelValues(model.Sell.String()).Add(float64(s.Sells))
	m.SignalsTotal.WithLabelValues(model.Hold.String()).Add(float64(s.Holds))
	m.RunDuration.Observe(elapsed.Seconds())
	m.LastTraded.Set(s.Traded)
}

// ObserveFailure records a rejected run by error kind.
func (m *Metrics) ObserveFailure(err error) {
	m.RunFailures.WithLabelValues(FailureKind(err)).Inc()
}

// FailureKind classifies err as schema, parameter or other.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, model.ErrSchema):
		return "schema"
	case errors.Is(err, model.ErrInvalidParameter):
		return "parameter"
	}
	return "other"
}

// Push sends the current metrics to a Prometheus pushgateway under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("pushgateway %s: %w", url, err)
	}
	return nil
}
