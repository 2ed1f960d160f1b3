package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/capabilities"
	"canopy/internal/httputil"
)

// ModelsHandler exposes the model capability registry so clients can
// show which analyzer and comparator models are usable.
type ModelsHandler struct {
	registry *capabilities.Registry
	logger   *slog.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(registry *capabilities.Registry, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{
		registry: registry,
		logger:   logger,
	}
}

// GetCapabilities returns the capabilities of all known models.
// GET /api/models/capabilities
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	models, err := h.registry.ListProviderModels("openai")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"models": models})
}
