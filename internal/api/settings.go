package api

import (
	"net/http"

	"github.com/dennisdiepolder/monti/insights/internal/config"
)

// SettingsHandler shows the running configuration to admins
type SettingsHandler struct {
	settings config.Settings
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings config.Settings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings returns the configuration without secrets
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings)
}
