package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Upstream call API metrics
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	// Session metrics
	sessionTransitionsTotal *prometheus.CounterVec
	loginAttemptsTotal      *prometheus.CounterVec

	// Aggregation metrics
	aggregationDuration    prometheus.Histogram
	aggregationErrorsTotal prometheus.Counter

	// WebSocket metrics
	websocketActiveConnections prometheus.Gauge
	notificationsTotal         *prometheus.CounterVec

	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an independent metrics set, used directly by tests
func New() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monti_insights_http_requests_total",
		Help: "HTTP requests served, by route and status code",
	}, []string{"route", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monti_insights_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	m.upstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monti_insights_upstream_requests_total",
		Help: "Requests made to the call API, by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	m.upstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monti_insights_upstream_request_duration_seconds",
		Help:    "Call API latency by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	m.sessionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monti_insights_session_transitions_total",
		Help: "Session state transitions",
	}, []string{"from", "to"})
	m.loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monti_insights_login_attempts_total",
		Help: "Login attempts by method and result",
	}, []string{"method", "result"})

	m.aggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "monti_insights_aggregation_duration_seconds",
		Help:    "Time to fetch, scope and aggregate one dashboard",
		Buckets: prometheus.DefBuckets,
	})
	m.aggregationErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monti_insights_aggregation_errors_total",
		Help: "Dashboard builds that failed",
	})

	m.websocketActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monti_insights_websocket_active_connections",
		Help: "Connected notification sockets",
	})
	m.notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monti_insights_notifications_total",
		Help: "Notifications pushed to view clients, by type",
	}, []string{"type"})

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "monti_insights_uptime_seconds",
		Help: "Seconds since the process started",
	}, func() float64 { return time.Since(m.startTime).Seconds() })

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.upstreamRequestsTotal,
		m.upstreamRequestDuration,
		m.sessionTransitionsTotal,
		m.loginAttemptsTotal,
		m.aggregationDuration,
		m.aggregationErrorsTotal,
		m.websocketActiveConnections,
		m.notificationsTotal,
		uptime,
		collectors.NewGoCollector(),
	)

	return m
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordUpstream records one request to the call API
func (m *Metrics) RecordUpstream(endpoint, outcome string, duration time.Duration) {
	m.upstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSessionTransition counts a session state change
func (m *Metrics) RecordSessionTransition(from, to string) {
	m.sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordLogin counts a login attempt
func (m *Metrics) RecordLogin(method string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	m.loginAttemptsTotal.WithLabelValues(method, result).Inc()
}

// RecordAggregation records a successful dashboard build
func (m *Metrics) RecordAggregation(duration time.Duration) {
	m.aggregationDuration.Observe(duration.Seconds())
}

// RecordAggregationError increments the aggregation error counter
func (m *Metrics) RecordAggregationError() {
	m.aggregationErrorsTotal.Inc()
}

// RecordWebSocketConnect increments the active socket gauge
func (m *Metrics) RecordWebSocketConnect() {
	m.websocketActiveConnections.Inc()
}

// RecordWebSocketDisconnect decrements the active socket gauge
func (m *Metrics) RecordWebSocketDisconnect() {
	m.websocketActiveConnections.Dec()
}

// RecordNotification counts a pushed notification
func (m *Metrics) RecordNotification(kind string) {
	m.notificationsTotal.WithLabelValues(kind).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
