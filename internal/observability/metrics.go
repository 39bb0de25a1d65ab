package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/listgrid/internal/grid"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reloadsTotal    *prometheus.CounterVec
	reloadDuration  *prometheus.HistogramVec
	activeGrids     prometheus.Gauge
}

// NewMetrics builds the registry with the HTTP and grid metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listgrid_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listgrid_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listgrid_grid_reloads_total",
		Help: "Grid reloads by outcome.",
	}, []string{"outcome"})
	reloadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listgrid_grid_reload_duration_seconds",
		Help:    "Query service round trip per grid reload.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "listgrid_active_grids",
		Help: "Open grid sessions.",
	})
	registry.MustRegister(requests, duration, reloads, reloadDuration, active)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reloadsTotal:    reloads,
		reloadDuration:  reloadDuration,
		activeGrids:     active,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveReload implements grid.ReloadObserver. Unconfigured grids never
// reach the query service, so no duration is recorded for them.
func (m *Metrics) ObserveReload(outcome grid.ReloadOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reloadsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome != grid.OutcomeNotReady {
		m.reloadDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
	}
}

// GridOpened counts a new grid session.
func (m *Metrics) GridOpened() {
	if m != nil {
		m.activeGrids.Inc()
	}
}

// GridClosed counts a released grid session.
func (m *Metrics) GridClosed() {
	if m != nil {
		m.activeGrids.Dec()
	}
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
