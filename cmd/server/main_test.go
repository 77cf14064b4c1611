package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/api"
	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/config"
	"github.com/dennisdiepolder/monti/insights/internal/gateway"
	"github.com/dennisdiepolder/monti/insights/internal/mockapi"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/storage"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/dennisdiepolder/monti/insights/internal/websocket"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	// Check status code
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	// Check content type
	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("expected status ok, got %s", response["status"])
	}
	if response["service"] != "monti-insights" {
		t.Errorf("expected service monti-insights, got %s", response["service"])
	}
}

// stack wires the dashboard server against an in-process mock call API
type stack struct {
	router   http.Handler
	sessions *session.Store
	auth     *gateway.AuthService
	persist  *storage.MemoryStore
}

func newStack(t *testing.T) *stack {
	t.Helper()

	data, err := mockapi.DefaultDataset()
	if err != nil {
		t.Fatalf("failed to load dataset: %v", err)
	}
	upstream := mux.NewRouter()
	mockapi.NewAPI(data, auth.NewIssuer("integration-secret-0123", time.Hour), zerolog.Nop()).SetupRoutes(upstream)
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := websocket.NewHub(zerolog.Nop())
	go hub.Run(ctx)

	persist := storage.NewMemoryStore()
	sessions := session.NewStore(persist, hub, zerolog.Nop())
	client := gateway.NewClient(srv.URL, sessions, gateway.WithTimeout(5*time.Second))

	router := newRouter(routes{
		sessions:       sessions,
		views:          aggregator.NewAggregator(gateway.NewDataService(client), zerolog.Nop()),
		settings:       config.Settings{APIBaseURL: srv.URL, SessionBackend: "memory"},
		limiter:        api.NewLoginLimiter(0, 1),
		ws:             websocket.NewHandler(hub, sessions, websocket.Timeouts{WriteWait: time.Second, PongWait: time.Minute, PingPeriod: 50 * time.Second, MaxMessageSize: 512}, nil, zerolog.Nop()),
		allowedOrigins: []string{"http://localhost:5173"},
		logger:         zerolog.Nop(),
	})

	return &stack{router: router, sessions: sessions, auth: gateway.NewAuthService(client), persist: persist}
}

func (s *stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestViewsWaitForSessionRestore(t *testing.T) {
	s := newStack(t)

	rec := s.do(t, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After while loading")
	}

	if err := s.sessions.Init(context.Background(), s.auth); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	rec = s.do(t, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when anonymous, got %d", rec.Code)
	}
	var body api.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Redirect != "/login" {
		t.Errorf("expected redirect /login, got %q", body.Redirect)
	}
}

func TestClientSessionEndToEnd(t *testing.T) {
	s := newStack(t)
	if err := s.sessions.Init(context.Background(), s.auth); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/api/session/login", types.LoginRequest{Email: "client@dabur.com", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong password, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/session/login", types.LoginRequest{Email: "client@dabur.com", Password: "client123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap session.Snapshot
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.State != session.StateAuthenticated || snap.User == nil || snap.User.Email != "client@dabur.com" {
		t.Fatalf("unexpected session after login: %+v", snap)
	}

	rec = s.do(t, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected dashboard, got %d: %s", rec.Code, rec.Body.String())
	}
	var view types.DashboardView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to parse dashboard: %v", err)
	}
	// dabur.com owns agents 1, 2, 4 and calls 1, 2, 4
	if view.KPIs.TotalAgents != 3 || view.KPIs.TotalCallsAnalysed != 3 {
		t.Errorf("expected scoped KPIs 3/3, got %d/%d", view.KPIs.TotalAgents, view.KPIs.TotalCallsAnalysed)
	}
	if view.Metrics != nil {
		t.Error("clients must not receive global call metrics")
	}

	rec = s.do(t, http.MethodGet, "/api/calls/logs?disposition=Answered", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected call logs, got %d", rec.Code)
	}
	var page types.CallLogPage
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 || page.Rows[0].DurationLabel != "3:00" {
		t.Errorf("unexpected call log page: %+v", page)
	}

	rec = s.do(t, http.MethodGet, "/api/calls/3/transcript", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected transcript, got %d", rec.Code)
	}
	var transcriptView types.TranscriptView
	json.Unmarshal(rec.Body.Bytes(), &transcriptView)
	if len(transcriptView.Turns) != 6 || transcriptView.Turns[0].Speaker != types.SpeakerAgent {
		t.Errorf("unexpected transcript: %+v", transcriptView.Turns)
	}

	rec = s.do(t, http.MethodGet, "/api/calls/5/transcript", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected another organization's call to be hidden, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected settings to be admin only, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/session/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected logout, got %d", rec.Code)
	}
	if _, err := s.persist.Get(context.Background(), storage.SessionKey); err != storage.ErrNotFound {
		t.Errorf("expected persisted session to be removed, got %v", err)
	}
	rec = s.do(t, http.MethodGet, "/api/agents", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestAdminSeesEverything(t *testing.T) {
	s := newStack(t)
	if err := s.sessions.Init(context.Background(), s.auth); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	rec := s.do(t, http.MethodPost, "/api/session/login", types.LoginRequest{Email: "admin@enterprise.com", Password: "admin123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/dashboard", nil)
	var view types.DashboardView
	json.Unmarshal(rec.Body.Bytes(), &view)
	if view.KPIs.TotalAgents != 5 || view.KPIs.TotalCallsAnalysed != 5 {
		t.Errorf("expected unscoped KPIs 5/5, got %d/%d", view.KPIs.TotalAgents, view.KPIs.TotalCallsAnalysed)
	}
	if view.KPIs.AverageScore != 82 {
		t.Errorf("expected average score 82, got %d", view.KPIs.AverageScore)
	}
	if view.Metrics == nil || view.ActiveCalls != 2 {
		t.Errorf("expected call metrics with 2 active calls, got %+v", view.Metrics)
	}

	rec = s.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected settings for admin, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/calls/recent?limit=2", nil)
	var recent []types.Call
	json.Unmarshal(rec.Body.Bytes(), &recent)
	if len(recent) != 2 {
		t.Errorf("expected 2 recent calls, got %d", len(recent))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newStack(t)

	s.do(t, http.MethodGet, "/health", nil)
	rec := s.do(t, http.MethodGet, "/metrics", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("monti_insights_http_requests_total")) {
		t.Error("expected http request counter in metrics output")
	}
}
