package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGetReturnsSingleton(t *testing.T) {
	if Get() != Get() {
		t.Fatal("expected Get to return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New()

	m.RecordHTTPRequest("/api/dashboard", http.StatusOK, 20*time.Millisecond)
	m.RecordHTTPRequest("/api/dashboard", http.StatusOK, 30*time.Millisecond)
	m.RecordHTTPRequest("/api/dashboard", http.StatusUnauthorized, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/dashboard", "200")); got != 2 {
		t.Errorf("expected 2 OK requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/dashboard", "401")); got != 1 {
		t.Errorf("expected 1 unauthorized request, got %v", got)
	}
}

func TestRecordSessionAndLogin(t *testing.T) {
	m := New()

	m.RecordSessionTransition("anonymous", "authenticated")
	m.RecordLogin("password", true)
	m.RecordLogin("password", false)
	m.RecordLogin("password", false)

	if got := testutil.ToFloat64(m.sessionTransitionsTotal.WithLabelValues("anonymous", "authenticated")); got != 1 {
		t.Errorf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.loginAttemptsTotal.WithLabelValues("password", "failure")); got != 2 {
		t.Errorf("expected 2 failed logins, got %v", got)
	}
}

func TestWebSocketGauge(t *testing.T) {
	m := New()

	m.RecordWebSocketConnect()
	m.RecordWebSocketConnect()
	m.RecordWebSocketDisconnect()

	if got := testutil.ToFloat64(m.websocketActiveConnections); got != 1 {
		t.Errorf("expected 1 active connection, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordUpstream("/calls/metrics", "ok", 5*time.Millisecond)
	m.RecordAggregationError()
	m.RecordNotification("session")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"monti_insights_upstream_requests_total",
		"monti_insights_aggregation_errors_total 1",
		"monti_insights_notifications_total",
		"monti_insights_uptime_seconds",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %q in metrics output", name)
		}
	}
}
