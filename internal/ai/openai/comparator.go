package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"canopy/internal/workspace"
)

const comparatorSystemPrompt = `You compare two images and decide whether they show the same ` +
	`visual subject (the same person, animal, object or scene). Respond with exactly one word: ` +
	`"yes" or "no".`

// CompareImages asks the model whether two images share the same
// subject. Errors are returned to the caller, which treats any
// failure as a non-match for that pair; a comparison failure never
// aborts a propagation run.
func (c *Client) CompareImages(ctx context.Context, a, b *workspace.Node) (bool, error) {
	if !a.IsImage() || !b.IsImage() {
		return false, fmt.Errorf("compare images: both nodes must be image files")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.comparatorModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: comparatorSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Do these two images show the same subject?"},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL(a.MimeType, a.Content),
							Detail: openai.ImageURLDetailLow,
						},
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL(b.MimeType, b.Content),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		Temperature: 0,
		MaxTokens:   3,
	})
	if err != nil {
		return false, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("compare images: empty completion")
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	match := strings.HasPrefix(answer, "yes")

	c.logger.Debug("images compared",
		"a", a.ID,
		"b", b.ID,
		"match", match,
	)

	return match, nil
}
