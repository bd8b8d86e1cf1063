// Package metrics defines the Prometheus collectors for query evaluation and
// the HTTP services, and exposes a handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes used as the "outcome" label.
const (
	OutcomeOK         = "ok"
	OutcomeEmpty      = "empty"
	OutcomeParseError = "parse_error"
	OutcomeFailed     = "failed"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	QueriesTotal      *prometheus.CounterVec
	EvalLatency       *prometheus.HistogramVec
	ResultsCount      *prometheus.HistogramVec
	PostingsFetched   *prometheus.CounterVec
	ProximityMatches  *prometheus.CounterVec
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	BatchQueriesTotal *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	CircuitState      *prometheus.GaugeVec
}

// New registers all collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_queries_total",
				Help: "Queries evaluated by retrieval model and outcome.",
			},
			[]string{"model", "outcome"},
		),
		EvalLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_eval_latency_seconds",
				Help:    "Time to parse, evaluate and rank one query.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
			[]string{"model"},
		),
		ResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_results_count",
				Help:    "Number of ranked documents returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"model"},
		),
		PostingsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_postings_fetched_total",
				Help: "Postings read from the index during evaluation.",
			},
			[]string{"model"},
		),
		ProximityMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_proximity_matches_total",
				Help: "Positions emitted by #NEAR and #WINDOW operators.",
			},
			[]string{"model"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "retrieval_cache_hits_total",
				Help: "Result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "retrieval_cache_misses_total",
				Help: "Result cache misses.",
			},
		),
		BatchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_batch_queries_total",
				Help: "Queries read from batch query files by outcome.",
			},
			[]string{"outcome"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_query_events_total",
				Help: "Query analytics events by publish status.",
			},
			[]string{"status"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.EvalLatency,
		m.ResultsCount,
		m.PostingsFetched,
		m.ProximityMatches,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.BatchQueriesTotal,
		m.EventsPublished,
		m.CircuitState,
	)
	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
