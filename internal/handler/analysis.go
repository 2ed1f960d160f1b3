package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/httputil"
	"canopy/internal/service/session"
)

// AnalysisHandler handles document analysis requests.
type AnalysisHandler struct {
	session *session.Service
	logger  *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(session *session.Service, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		session: session,
		logger:  logger,
	}
}

// Analyze returns the AI analysis for a file, computing and caching
// it on first request.
// POST /api/files/{id}/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.session.Analyze(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
