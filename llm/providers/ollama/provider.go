// Package ollama implements the Ollama adapter. Ollama serves an OpenAI-
// compatible API on a local host; the credential is the host URL rather
// than an API key, and it must be configured explicitly — there is no
// implicit localhost fallback, so a missing host surfaces as a
// configuration error on first use.
package ollama

import (
	"go.uber.org/zap"

	"github.com/mindlink-ai/mindlink/llm/providers"
	"github.com/mindlink-ai/mindlink/llm/providers/openaicompat"
)

const (
	// Name is the registry identifier for this adapter.
	Name = "ollama"

	defaultModel = "llama3.2"
)

// Provider is the Ollama adapter.
type Provider struct {
	*openaicompat.Provider
}

// New creates an Ollama adapter. cfg.BaseURL is the host URL credential
// (e.g. "http://localhost:11434").
func New(cfg providers.OllamaConfig, logger *zap.Logger) *Provider {
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
			APIKeyOptional:   true,
		}, logger),
	}
}
