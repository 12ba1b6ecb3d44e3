package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal   *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	indicatorValue *prometheus.GaugeVec
	indicatorTrend *prometheus.GaugeVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_fetches_total",
				Help: "Provider fetch attempts by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_fetch_retries_total",
				Help: "Rate-limited fetches that were retried",
			},
			[]string{"endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breadth_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		indicatorValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "breadth_indicator_value",
				Help: "Latest value of a breadth composite",
			},
			[]string{"indicator"},
		),
		indicatorTrend: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "breadth_indicator_ascending",
				Help: "1 if the short moving average is above the long one, else 0",
			},
			[]string{"indicator"},
		),
	}
}

// RecordFetch records one fetch attempt (or cache hit) for an endpoint.
func (r *Recorder) RecordFetch(endpoint, outcome string) {
	r.fetchesTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordRetry records a scheduled retry.
func (r *Recorder) RecordRetry(endpoint string) {
	r.retriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordIndicator records the latest value and trend of a composite.
func (r *Recorder) RecordIndicator(name string, value float64, ascending bool) {
	r.indicatorValue.WithLabelValues(name).Set(value)
	trend := 0.0
	if ascending {
		trend = 1
	}
	r.indicatorTrend.WithLabelValues(name).Set(trend)
}
