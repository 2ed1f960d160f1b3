package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/httputil"
	"canopy/internal/service/persist"
	"canopy/internal/service/session"
)

// StatusHandler exposes observability status values. None of these
// affect the authoritative in-memory tree.
type StatusHandler struct {
	session *session.Service
	logger  *slog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(session *session.Service, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		session: session,
		logger:  logger,
	}
}

// PersistenceResponse reports the snapshot gateway status.
type PersistenceResponse struct {
	Status persist.Status `json:"status"`
}

// Persistence returns the latest snapshot write status.
// GET /api/persistence/status
func (h *StatusHandler) Persistence(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, PersistenceResponse{Status: h.session.PersistenceStatus()})
}

// Analysis reports whether an analysis request is in flight; the UI
// uses it as a loading indicator.
// GET /api/analysis/status
func (h *StatusHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"busy": h.session.AnalysisBusy()})
}
