package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/gateway"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/rs/zerolog"
)

// LoginRedirect is where the view goes when the session is gone
const LoginRedirect = "/login"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, redirect string) {
	writeJSON(w, status, ErrorResponse{Error: message, Redirect: redirect})
}

// writeFailure maps err onto a status code and an error body
func writeFailure(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var apiErr *gateway.APIError

	switch {
	case errors.Is(err, session.ErrSessionLoading), errors.Is(err, session.ErrNotStarted):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Session is loading", "")
	case errors.Is(err, session.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Not signed in", LoginRedirect)
	case errors.Is(err, session.ErrForbidden):
		writeError(w, http.StatusForbidden, "You do not have access to this page", "")
	case errors.Is(err, session.ErrStale):
		writeError(w, http.StatusConflict, "Session changed, please retry", "")
	case errors.Is(err, aggregator.ErrCallNotFound), errors.Is(err, gateway.ErrNotFound):
		writeError(w, http.StatusNotFound, "Call not found", "")
	case errors.Is(err, gateway.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, gateway.Message(err), "")
	case errors.Is(err, gateway.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, gateway.Message(err), LoginRedirect)
	case errors.Is(err, gateway.ErrValidation):
		logger.Warn().Err(err).Msg("upstream response rejected")
		writeError(w, http.StatusBadGateway, gateway.Message(err), "")
	case errors.Is(err, gateway.ErrNetwork):
		logger.Warn().Err(err).Msg("upstream unreachable")
		writeError(w, http.StatusGatewayTimeout, gateway.Message(err), "")
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		logger.Warn().Err(err).Int("upstream_status", apiErr.StatusCode).Msg("upstream request failed")
		writeError(w, status, apiErr.Message, "")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", "")
	}
}
