package llm

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Options selects and configures a provider.
type Options struct {
	Provider     string // openai | anthropic | gemini; auto-detected when empty
	Model        string
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string
}

// New returns a Client for the configured provider. When nothing is
// configured it falls back to the mock client so the server still runs.
func New(ctx context.Context, opts Options) Client {
	switch opts.Provider {
	case "openai":
		if opts.OpenAIKey != "" {
			return &OpenAIClient{APIKey: opts.OpenAIKey, Model: modelOr(opts.Model, "gpt-4o-mini")}
		}
	case "anthropic":
		if opts.AnthropicKey != "" {
			return &AnthropicClient{APIKey: opts.AnthropicKey, Model: modelOr(opts.Model, "claude-3-5-haiku-latest")}
		}
	case "gemini":
		if opts.GoogleKey != "" {
			if c, err := NewGeminiClient(ctx, opts.GoogleKey, modelOr(opts.Model, "gemini-1.5-flash")); err == nil {
				return c
			} else {
				log.Warn().Err(err).Msg("gemini client init failed, falling back")
			}
		}
	}

	// Auto-detect by key presence when no provider was named.
	if opts.OpenAIKey != "" {
		return &OpenAIClient{APIKey: opts.OpenAIKey, Model: modelOr(opts.Model, "gpt-4o-mini")}
	}
	if opts.AnthropicKey != "" {
		return &AnthropicClient{APIKey: opts.AnthropicKey, Model: modelOr(opts.Model, "claude-3-5-haiku-latest")}
	}
	if opts.GoogleKey != "" {
		if c, err := NewGeminiClient(ctx, opts.GoogleKey, modelOr(opts.Model, "gemini-1.5-flash")); err == nil {
			return c
		}
	}

	log.Warn().Msg("no generation backend configured, using mock client")
	return &MockClient{}
}

func modelOr(model, def string) string {
	if model != "" {
		return model
	}
	return def
}
