// Package openai implements the OpenAI adapter on top of the shared
// chat-completions base. OpenAI enforces structured output server-side via
// response_format json_schema, so no client-side prompt shaping is needed.
package openai

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mindlink-ai/mindlink/llm/providers"
	"github.com/mindlink-ai/mindlink/llm/providers/openaicompat"
)

const (
	// Name is the registry identifier for this adapter.
	Name = "openai"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// Provider is the OpenAI adapter.
type Provider struct {
	*openaicompat.Provider
}

// New creates an OpenAI adapter. Construction only captures configuration;
// the credential is validated on first use.
func New(cfg providers.OpenAIConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	p := &Provider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:     Name,
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			DefaultModel:     cfg.Model,
			Timeout:          cfg.Timeout,
			StructuredFormat: openaicompat.StructuredJSONSchema,
		}, logger),
	}

	if cfg.Organization != "" {
		org := cfg.Organization
		p.SetBuildHeaders(func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
			req.Header.Set("OpenAI-Organization", org)
			req.Header.Set("Content-Type", "application/json")
		})
	}

	return p
}
