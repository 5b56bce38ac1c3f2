package metrics

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "questionnaire"

// Submission outcomes
const (
	OutcomeNewVote    = "new_vote"
	OutcomeRevote     = "revote"
	OutcomeTampered   = "tampered"
	OutcomeNoCookie   = "missing_cookie"
	OutcomeIneligible = "ineligible"
	OutcomeError      = "error"
)

// Metrics holds the Prometheus metrics of the service in their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	Submissions      *prometheus.CounterVec
	SchemaLoads      *prometheus.CounterVec
	DBConnPoolStats  *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Questionnaire submissions by outcome",
			},
			[]string{"outcome"},
		),
		SchemaLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_loads_total",
				Help:      "Questionnaire schema loads by result",
			},
			[]string{"result"},
		),
		DBConnPoolStats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
	}

	m.Registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.RequestsInFlight,
		m.Submissions,
		m.SchemaLoads,
		m.DBConnPoolStats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware counts and times every request by its chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		snoop := httpsnoop.CaptureMetrics(next, w, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(snoop.Code)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(snoop.Duration.Seconds())
	})
}

// RecordDBPoolStats copies the pool statistics of db into the gauges.
func (m *Metrics) RecordDBPoolStats(stats sql.DBStats) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(stats.Idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(stats.WaitDuration.Milliseconds()))
}

// Handler serves the registry, refreshing the pool statistics of db on each scrape.
func (m *Metrics) Handler(db *sql.DB) http.Handler {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			m.RecordDBPoolStats(db.Stats())
		}
		h.ServeHTTP(w, r)
	})
}
