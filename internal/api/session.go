package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// Sessions is the session slot the view layer drives
type Sessions interface {
	Authorizer
	Current() session.Snapshot
	Login(ctx context.Context, email, password string) (*types.User, error)
	LoginWithExternalProvider(ctx context.Context, idToken string) (*types.User, error)
	Logout(ctx context.Context) error
}

// SessionHandler exposes the session state and its transitions
type SessionHandler struct {
	sessions Sessions
	logger   zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions Sessions, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// GetSession returns the current session snapshot
// GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

// Login signs in with email and password
// POST /api/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "A valid email and a password are required", "")
		return
	}

	if _, err := h.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		h.logger.Info().Err(err).Str("email", req.Email).Msg("login failed")
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

// LoginWithGoogle signs in with a Google ID token
// POST /api/session/google
func (h *SessionHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req types.GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "id_token is required", "")
		return
	}

	if _, err := h.sessions.LoginWithExternalProvider(r.Context(), req.IDToken); err != nil {
		h.logger.Info().Err(err).Msg("google login failed")
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

// Logout ends the session. The session is cleared even when persistence
// fails; the failure is reported to the caller.
// POST /api/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("logout did not clear persisted session")
		writeJSON(w, http.StatusOK, map[string]any{
			"session":  h.sessions.Current(),
			"warning":  "Signed out, but the stored session could not be removed",
			"redirect": LoginRedirect,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  h.sessions.Current(),
		"redirect": LoginRedirect,
	})
}
