package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rfm_dashboard"

// PromRegistry holds the Prometheus collectors served on /metrics/prometheus
type PromRegistry struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	ScoringRuns     *prometheus.CounterVec
	ScoringDuration prometheus.Histogram
	ScoredCustomers prometheus.Gauge
	DatasetLoads    *prometheus.CounterVec
	Exports         *prometheus.CounterVec
	RateLimited     prometheus.Counter
}

// NewPromRegistry creates a registry with process and Go runtime collectors
// plus the dashboard metrics
func NewPromRegistry() *PromRegistry {
	r := &PromRegistry{
		registry: prometheus.NewRegistry(),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and status",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "route", "status"},
		),

		ScoringRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rfm_scoring_runs_total",
				Help:      "Quintile scoring runs by outcome",
			},
			[]string{"outcome"},
		),

		ScoringDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rfm_scoring_duration_seconds",
				Help:      "Time spent computing quintile scores",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),

		ScoredCustomers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rfm_scored_customers",
				Help:      "Customers in the most recent successful scoring run",
			},
		),

		DatasetLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_loads_total",
				Help:      "Dataset loads by kind, source and result",
			},
			[]string{"kind", "source", "result"},
		),

		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "File downloads by format",
			},
			[]string{"format"},
		),

		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the per-IP limiter",
			},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestDuration,
		r.ScoringRuns,
		r.ScoringDuration,
		r.ScoredCustomers,
		r.DatasetLoads,
		r.Exports,
		r.RateLimited,
	)

	return r
}

// Registry exposes the underlying registry, mainly for tests
func (r *PromRegistry) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *PromRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request
func (r *PromRegistry) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveScoring records one scoring run
func (r *PromRegistry) ObserveScoring(outcome string, customers int, duration time.Duration) {
	r.ScoringRuns.WithLabelValues(outcome).Inc()
	r.ScoringDuration.Observe(duration.Seconds())
	if outcome == OutcomeScored {
		r.ScoredCustomers.Set(float64(customers))
	}
}

// ObserveDatasetLoad records one dataset load
func (r *PromRegistry) ObserveDatasetLoad(kind, source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.DatasetLoads.WithLabelValues(kind, source, result).Inc()
}

// ObserveExport records one download
func (r *PromRegistry) ObserveExport(format string) {
	r.Exports.WithLabelValues(format).Inc()
}
