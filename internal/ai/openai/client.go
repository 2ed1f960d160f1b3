package openai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"canopy/internal/capabilities"
	"canopy/internal/domain"
)

// Client implements the DocumentAnalyzer and ImageComparator
// capabilities on top of the OpenAI chat completions API.
type Client struct {
	api             *openai.Client
	analyzerModel   string
	comparatorModel string
	logger          *slog.Logger
}

// NewClient creates a provider client. The comparator model must
// support vision input; this is validated against the capability
// registry at construction time, not on first use.
func NewClient(apiKey, analyzerModel, comparatorModel string, registry *capabilities.Registry, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if err := registry.RequireVision("openai", comparatorModel); err != nil {
		return nil, fmt.Errorf("comparator model: %w", err)
	}
	if _, err := registry.GetModelCapabilities("openai", analyzerModel); err != nil {
		return nil, fmt.Errorf("analyzer model: %w", err)
	}

	return &Client{
		api:             openai.NewClient(apiKey),
		analyzerModel:   analyzerModel,
		comparatorModel: comparatorModel,
		logger:          logger,
	}, nil
}

// dataURL encodes image bytes as a base64 data URL for vision input.
func dataURL(mimeType string, content []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(content))
}

// isTextMime reports whether content with this mime type can be sent
// to the model as plain text.
func isTextMime(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/yaml":
		return true
	}
	return false
}

// classifyError maps provider failures onto the analysis error
// taxonomy: rate limits are quota errors, anything transport-level is
// a network error.
func classifyError(err error) *domain.AnalysisError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return &domain.AnalysisError{Reason: domain.ReasonQuotaExceeded, Err: err}
		}
		return &domain.AnalysisError{Reason: domain.ReasonNetwork, Err: err}
	}
	return &domain.AnalysisError{Reason: domain.ReasonNetwork, Err: err}
}
