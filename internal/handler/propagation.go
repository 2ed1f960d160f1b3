package handler

import (
	"log/slog"
	"net/http"
	"time"

	"canopy/internal/handler/sse"
	"canopy/internal/httputil"
	"canopy/internal/service/session"
)

// PropagationHandler handles smart tag propagation requests and the
// progress feed.
type PropagationHandler struct {
	session *session.Service
	logger  *slog.Logger
}

// NewPropagationHandler creates a new propagation handler
func NewPropagationHandler(session *session.Service, logger *slog.Logger) *PropagationHandler {
	return &PropagationHandler{
		session: session,
		logger:  logger,
	}
}

// PropagateResponse reports the outcome of a propagation run.
type PropagateResponse struct {
	Tag    string `json:"tag"`
	Tagged int    `json:"tagged"`
}

// Propagate applies a smart tag to the source image and extends it to
// matching images. Returns 409 while another run is active.
// POST /api/files/{id}/tags
func (h *PropagationHandler) Propagate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Tag string `json:"tag"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tagged, err := h.session.PropagateTag(r.Context(), id, req.Tag)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, PropagateResponse{Tag: req.Tag, Tagged: tagged})
}

// Status returns the engine's progress snapshot.
// GET /api/propagation/status
func (h *PropagationHandler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.session.PropagationStatus())
}

// Events streams propagation progress as server-sent events until the
// client disconnects.
// GET /api/propagation/events
func (h *PropagationHandler) Events(w http.ResponseWriter, r *http.Request) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	statuses, cancel := h.session.SubscribePropagation()
	defer cancel()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}
		case status, ok := <-statuses:
			if !ok {
				return
			}
			if err := writer.WriteEvent("status", status); err != nil {
				h.logger.Debug("progress stream closed", "error", err)
				return
			}
		}
	}
}
