package generation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client turns a prompt into model text. Implementations fail with
// brderr.GenerationEmptyResponse when the model returns nothing.
type Client interface {
	Invoke(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

func (f ClientFunc) Invoke(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the client for opts.Provider: "gemini" (default), "gemini-legacy" or "openai".
func New(ctx context.Context, opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		return NewGeminiClient(ctx, opts.APIKey, opts.Model)
	case "gemini-legacy":
		return NewLegacyGeminiClient(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAIClient(opts.APIKey, opts.Model, opts.BaseURL, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", opts.Provider)
	}
}
