package generation

import (
	"context"
	"fmt"
	"strings"

	"brdchat/internal/brderr"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// LegacyGeminiClient implements Client on the older generative-ai-go SDK, for
// deployments pinned to it.
type LegacyGeminiClient struct {
	client *genai.Client
	model  string
}

func NewLegacyGeminiClient(ctx context.Context, apiKey string, modelName string) (*LegacyGeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &LegacyGeminiClient{
		client: client,
		model:  modelName,
	}, nil
}

func (c *LegacyGeminiClient) Close() error {
	return c.client.Close()
}

func (c *LegacyGeminiClient) Invoke(ctx context.Context, prompt string, maxTokens int) (string, error) {
	model := c.client.GenerativeModel(c.model)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", brderr.Wrap(brderr.GenerationFailed, err, "gemini generation failed")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return finish("gemini", "")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return finish("gemini", sb.String())
}
