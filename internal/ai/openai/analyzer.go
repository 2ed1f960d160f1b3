package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"canopy/internal/domain"
	"canopy/internal/workspace"
)

const analyzerSystemPrompt = `You are a document analysis assistant. ` +
	`Given a document or image, respond with a JSON object with exactly these fields: ` +
	`"summary" (2-3 sentence summary), "suggested_name" (a concise file name including extension), ` +
	`"tags" (array of 3-8 lowercase keyword strings), "document_type" (a short label such as ` +
	`"invoice", "photo", "report", "note").`

// maxInlineTextBytes caps how much document text is sent to the model.
const maxInlineTextBytes = 32 << 10

// analysisPayload is the JSON shape the model is instructed to return.
type analysisPayload struct {
	Summary       string   `json:"summary"`
	SuggestedName string   `json:"suggested_name"`
	Tags          []string `json:"tags"`
	DocumentType  string   `json:"document_type"`
}

// AnalyzeDocument sends the document to the model and parses the
// structured analysis. On any failure the error carries a reason from
// the analysis taxonomy and no partial result is returned.
func (c *Client) AnalyzeDocument(ctx context.Context, name string, content []byte, mimeType string) (*workspace.Analysis, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}

	switch {
	case len(content) > 0 && isImageMime(mimeType):
		user.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("Analyze this image. File name: %q.", name),
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(mimeType, content),
					Detail: openai.ImageURLDetailLow,
				},
			},
		}
	case len(content) > 0 && isTextMime(mimeType):
		text := content
		if len(text) > maxInlineTextBytes {
			text = text[:maxInlineTextBytes]
		}
		user.Content = fmt.Sprintf("Analyze this document. File name: %q, mime type: %s.\n\n%s",
			name, mimeType, text)
	default:
		user.Content = fmt.Sprintf("Analyze this document from its metadata only. File name: %q, mime type: %s, size: %d bytes.",
			name, mimeType, len(content))
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.analyzerModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzerSystemPrompt},
			user,
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.AnalysisError{Reason: domain.ReasonMalformed, Err: fmt.Errorf("empty completion")}
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, &domain.AnalysisError{Reason: domain.ReasonMalformed, Err: err}
	}
	if payload.Summary == "" || payload.SuggestedName == "" {
		return nil, &domain.AnalysisError{Reason: domain.ReasonMalformed, Err: fmt.Errorf("incomplete analysis fields")}
	}

	c.logger.Debug("document analyzed",
		"name", name,
		"document_type", payload.DocumentType,
		"tag_count", len(payload.Tags),
	)

	return &workspace.Analysis{
		Summary:       payload.Summary,
		SuggestedName: payload.SuggestedName,
		Tags:          workspace.TagSet{}.Add(payload.Tags...),
		DocumentType:  payload.DocumentType,
	}, nil
}

func isImageMime(mimeType string) bool {
	return len(mimeType) > 6 && mimeType[:6] == "image/"
}
