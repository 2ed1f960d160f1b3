package handler

import (
	"io"
	"log/slog"
	"net/http"

	"canopy/internal/config"
	"canopy/internal/httputil"
	"canopy/internal/service/session"
)

// WorkspaceHandler handles HTTP requests for the workspace tree.
type WorkspaceHandler struct {
	session *session.Service
	logger  *slog.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(session *session.Service, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		session: session,
		logger:  logger,
	}
}

// HealthCheck reports liveness.
// GET /health
func (h *WorkspaceHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetTree returns the whole workspace tree.
// GET /api/workspace/tree
func (h *WorkspaceHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.session.Tree())
}

// UploadFile adds a file to the workspace root.
// POST /api/workspace/files (multipart field "file")
func (h *WorkspaceHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "form field 'file' is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	// Optional override; defaults to the uploaded file name.
	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	mimeType := header.Header.Get("Content-Type")

	node, err := h.session.Upload(name, mimeType, content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// RenameNode updates a node's display name.
// PATCH /api/workspace/nodes/{id}
func (h *WorkspaceHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, err := h.session.Rename(id, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode removes a node and, for folders, its entire subtree.
// DELETE /api/workspace/nodes/{id}
func (h *WorkspaceHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.session.Delete(id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reset replaces the workspace with the seed tree.
// POST /api/workspace/reset
func (h *WorkspaceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.session.Reset())
}
