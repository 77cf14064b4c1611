package websocket

import (
	"net/http"
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SnapshotSource provides the session state a new client starts from
type SnapshotSource interface {
	Current() session.Snapshot
}

// Handler handles WebSocket upgrade requests
type Handler struct {
	hub      *Hub
	sessions SnapshotSource
	timeouts Timeouts
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. Only the listed origins may
// connect; "*" allows any.
func NewHandler(hub *Hub, sessions SnapshotSource, timeouts Timeouts, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		timeouts: timeouts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients such as the CLI
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(h.hub, conn, h.timeouts, h.logger)

	// the current session goes first so the view can route immediately
	if msg, err := encode(TypeSession, h.sessions.Current()); err == nil {
		client.send <- msg
	}

	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	client.Start()
}
