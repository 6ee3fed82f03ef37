package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/pvpobserver/pkg/engine"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Recovery metrics
	recoveriesTotal        *prometheus.CounterVec
	recoveryDuration       *prometheus.HistogramVec
	recoveryInputBytes     prometheus.Histogram
	recoveredMatchesTotal  prometheus.Counter
	recoveredPlayersTotal  prometheus.Counter
	recoveryFallbacksTotal *prometheus.CounterVec
	skippedMarkersTotal    prometheus.Counter

	// Archive metrics
	archiveOperationsTotal *prometheus.CounterVec
	archivedMatches        prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics on a fresh registry, so several
// servers can live in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpobs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pvpobs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pvpobs_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		// Recovery metrics
		recoveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpobs_recoveries_total",
				Help: "Total number of recovery runs",
			},
			[]string{"kind", "status"},
		),

		recoveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pvpobs_recovery_duration_seconds",
				Help:    "Time spent recovering one input",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"kind"},
		),

		recoveryInputBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pvpobs_recovery_input_bytes",
				Help:    "Size of recovered inputs after decompression",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),

		recoveredMatchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pvpobs_recovered_matches_total",
				Help: "Total number of match records recovered",
			},
		),

		recoveredPlayersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pvpobs_recovered_players_total",
				Help: "Total number of player records recovered",
			},
		),

		recoveryFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpobs_recovery_fallbacks_total",
				Help: "Recoveries that needed field-level scanning",
			},
			[]string{"path"},
		),

		skippedMarkersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pvpobs_skipped_markers_total",
				Help: "Marker hits that did not yield a document",
			},
		),

		// Archive metrics
		archiveOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpobs_archive_operations_total",
				Help: "Total number of archive operations",
			},
			[]string{"operation", "status"},
		),

		archivedMatches: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pvpobs_archived_matches",
				Help: "Number of matches in the archive",
			},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpobs_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpobs_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func status(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecovery records one engine run. res is nil when the input could
// not be processed.
func (m *Metrics) RecordRecovery(kind string, inputBytes int, res *engine.Result, duration time.Duration) {
	m.recoveriesTotal.WithLabelValues(kind, status(res != nil)).Inc()
	m.recoveryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.recoveryInputBytes.Observe(float64(inputBytes))
	if res == nil {
		return
	}

	m.recoveredMatchesTotal.Add(float64(res.Stats.Matches))
	m.recoveredPlayersTotal.Add(float64(res.Stats.Players))
	m.skippedMarkersTotal.Add(float64(res.Stats.Extract.Skipped()))
	if res.Stats.DocumentFallbacks > 0 {
		m.recoveryFallbacksTotal.WithLabelValues("document").Add(float64(res.Stats.DocumentFallbacks))
	}
	if res.Stats.BinaryFallback {
		m.recoveryFallbacksTotal.WithLabelValues("binary").Inc()
	}
}

// RecordArchiveOperation records an archive operation
func (m *Metrics) RecordArchiveOperation(operation string, success bool) {
	m.archiveOperationsTotal.WithLabelValues(operation, status(success)).Inc()
}

// UpdateArchiveStats updates the archived match gauge
func (m *Metrics) UpdateArchiveStats(matches int) {
	m.archivedMatches.Set(float64(matches))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(status(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(status(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Capture the status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get(apiKeyHeader) != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
