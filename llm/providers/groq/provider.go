// Package groq implements the Groq adapter. Groq speaks the OpenAI
// chat-completions dialect under /openai, with JSON-mode structured output.
package groq

import (
	"go.uber.org/zap"

	"github.com/mindlink-ai/mindlink/llm/providers"
	"github.com/mindlink-ai/mindlink/llm/providers/openaicompat"
)

const (
	// Name is the registry identifier for this adapter.
	Name = "groq"

	defaultBaseURL = "https://api.groq.com/openai"
	defaultModel   = "llama-3.1-8b-instant"
)

// Provider is the Groq adapter.
type Provider struct {
	*openaicompat.Provider
}

// New creates a Groq adapter.
func New(cfg providers.GroqConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:     Name,
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			DefaultModel:     cfg.Model,
			Timeout:          cfg.Timeout,
			StructuredFormat: openaicompat.StructuredJSONMode,
		}, logger),
	}
}
