package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxRecentLimit = 100

// Views builds the view models of the dashboard pages
type Views interface {
	Dashboard(ctx context.Context, user *types.User) (*types.DashboardView, error)
	Agents(ctx context.Context, user *types.User) ([]types.Agent, error)
	RecentCalls(ctx context.Context, user *types.User, limit int) ([]types.Call, error)
	CallLogs(ctx context.Context, user *types.User, q aggregator.CallLogQuery) (*types.CallLogPage, error)
	Transcript(ctx context.Context, user *types.User, callID string) (*types.TranscriptView, error)
}

// DashboardHandler serves the data views. It must sit behind RequireSession.
type DashboardHandler struct {
	views  Views
	logger zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(views Views, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		views:  views,
		logger: logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboard returns KPIs, charts and recent calls
// GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	view, err := h.views.Dashboard(r.Context(), user)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetAgents returns the agents visible to the user
// GET /api/agents
func (h *DashboardHandler) GetAgents(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	agents, err := h.views.Agents(r.Context(), user)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if agents == nil {
		agents = []types.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// GetRecentCalls returns the newest calls
// GET /api/calls/recent?limit=N
func (h *DashboardHandler) GetRecentCalls(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRecentLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxRecentLimit), "")
			return
		}
		limit = n
	}

	calls, err := h.views.RecentCalls(r.Context(), user, limit)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if calls == nil {
		calls = []types.Call{}
	}
	writeJSON(w, http.StatusOK, calls)
}

// GetCallLogs returns the call-log table
// GET /api/calls/logs?search=&disposition=
func (h *DashboardHandler) GetCallLogs(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	q := aggregator.CallLogQuery{
		Search:      r.URL.Query().Get("search"),
		Disposition: r.URL.Query().Get("disposition"),
	}
	if !validDisposition(q.Disposition) {
		writeError(w, http.StatusBadRequest, "unknown disposition "+strconv.Quote(q.Disposition), "")
		return
	}

	page, err := h.views.CallLogs(r.Context(), user, q)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetTranscript returns the transcript of one call
// GET /api/calls/{id}/transcript
func (h *DashboardHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	callID := chi.URLParam(r, "id")

	view, err := h.views.Transcript(r.Context(), user, callID)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func validDisposition(d string) bool {
	if d == "" || d == aggregator.DispositionAll {
		return true
	}
	for _, known := range types.Dispositions {
		if string(known) == d {
			return true
		}
	}
	return false
}
