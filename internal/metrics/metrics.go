// Package metrics exposes Prometheus collectors for catalog queries and the HTTP API.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
)

const namespace = "movapp"

// outcomeSuccess labels successful queries; failures are labeled with their kind.
const outcomeSuccess = "success"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a registry with catalog, HTTP, process and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "queries_total",
				Help:      "Total number of catalog queries by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "query_duration_seconds",
				Help:      "Duration of catalog queries including the network round-trip.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
			},
			[]string{"op"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
	}

	m.Registry.MustRegister(
		m.queries,
		m.queryDuration,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one finished catalog query.
func (m *Metrics) ObserveQuery(op string, failure *catalog.Failure, duration time.Duration) {
	outcome := outcomeSuccess
	if failure != nil {
		outcome = string(failure.Kind)
	}
	m.queries.WithLabelValues(op, outcome).Inc()
	m.queryDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// InstrumentRoute wraps next with HTTP metrics labeled by route pattern.
func (m *Metrics) InstrumentRoute(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// instrumentedRepository records every query made through the wrapped repository.
type instrumentedRepository struct {
	next    catalog.Repository
	metrics *Metrics
}

// InstrumentRepository wraps repo so that every query is counted and timed.
func InstrumentRepository(repo catalog.Repository, m *Metrics) catalog.Repository {
	return &instrumentedRepository{next: repo, metrics: m}
}

func (r *instrumentedRepository) Trending(ctx context.Context) catalog.Outcome[[]normalize.Movie] {
	start := time.Now()
	out := r.next.Trending(ctx)
	r.metrics.ObserveQuery("trending", out.Failure(), time.Since(start))
	return out
}

func (r *instrumentedRepository) Popular(ctx context.Context) catalog.Outcome[[]normalize.Movie] {
	start := time.Now()
	out := r.next.Popular(ctx)
	r.metrics.ObserveQuery("popular", out.Failure(), time.Since(start))
	return out
}

func (r *instrumentedRepository) Upcoming(ctx context.Context, q catalog.UpcomingQuery) catalog.Outcome[[]normalize.Movie] {
	start := time.Now()
	out := r.next.Upcoming(ctx, q)
	r.metrics.ObserveQuery("upcoming", out.Failure(), time.Since(start))
	return out
}

func (r *instrumentedRepository) Details(ctx context.Context, q catalog.DetailsQuery) catalog.Outcome[normalize.Movie] {
	start := time.Now()
	out := r.next.Details(ctx, q)
	r.metrics.ObserveQuery("details", out.Failure(), time.Since(start))
	return out
}

func (r *instrumentedRepository) Search(ctx context.Context, q catalog.SearchQuery) catalog.Outcome[[]normalize.Movie] {
	start := time.Now()
	out := r.next.Search(ctx, q)
	r.metrics.ObserveQuery("search", out.Failure(), time.Since(start))
	return out
}
