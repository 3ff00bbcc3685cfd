package factory

import (
	"time"

	"go.uber.org/zap"

	"github.com/mindlink-ai/mindlink/llm"
	"github.com/mindlink-ai/mindlink/llm/providers"
	"github.com/mindlink-ai/mindlink/llm/providers/anthropic"
	"github.com/mindlink-ai/mindlink/llm/providers/gemini"
	"github.com/mindlink-ai/mindlink/llm/providers/groq"
	"github.com/mindlink-ai/mindlink/llm/providers/ollama"
	"github.com/mindlink-ai/mindlink/llm/providers/openai"
)

// ProviderConfig is the generic configuration accepted by the factory. It
// is a flat structure with an Extra map for provider-specific fields
// ("organization" for openai, "version" for anthropic).
type ProviderConfig struct {
	APIKey  string         `json:"api_key" yaml:"api_key"`
	BaseURL string         `json:"base_url" yaml:"base_url"`
	Model   string         `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewProvider creates the adapter for name from a generic ProviderConfig.
// Construction never performs network I/O; credentials are validated by the
// adapter on first use. An unknown name yields an ErrConfiguration error.
func NewProvider(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	switch name {
	case openai.Name:
		oc := providers.OpenAIConfig{BaseProviderConfig: base}
		if v, ok := cfg.Extra["organization"].(string); ok {
			oc.Organization = v
		}
		return openai.New(oc, logger), nil

	case anthropic.Name, "claude":
		ac := providers.AnthropicConfig{BaseProviderConfig: base}
		if v, ok := cfg.Extra["version"].(string); ok {
			ac.Version = v
		}
		return anthropic.New(ac, logger), nil

	case gemini.Name:
		return gemini.New(providers.GeminiConfig{BaseProviderConfig: base}, logger), nil

	case groq.Name:
		return groq.New(providers.GroqConfig{BaseProviderConfig: base}, logger), nil

	case ollama.Name:
		return ollama.New(providers.OllamaConfig{BaseProviderConfig: base}, logger), nil

	default:
		return nil, llm.NewConfigurationError("", "unknown provider %q", name)
	}
}

// SupportedProviders returns the built-in provider names.
func SupportedProviders() []string {
	return []string{openai.Name, anthropic.Name, gemini.Name, groq.Name, ollama.Name}
}

// NewRegistry builds a Registry with a lazy builder per configured
// provider. Adapters are constructed on first Get, not here.
func NewRegistry(cfg RegistryConfig, logger *zap.Logger) (*llm.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := llm.NewRegistry()
	for name, pcfg := range cfg.Providers {
		name, pcfg := name, pcfg
		reg.RegisterBuilder(name, func() (llm.Provider, error) {
			return NewProvider(name, pcfg, logger)
		})
		logger.Info("provider registered", zap.String("provider", name))
	}

	if cfg.Default != "" {
		if err := reg.SetDefault(cfg.Default); err != nil {
			return reg, err
		}
	}
	return reg, nil
}

// NewEnvRegistry builds a Registry with lazy builders for every built-in
// provider, resolving credentials from the environment at first use via
// llm.EnvCredentials. Providers whose credential is absent still resolve;
// they fail with ErrConfiguration on first operation.
func NewEnvRegistry(logger *zap.Logger) *llm.Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := llm.NewRegistry()
	creds := llm.EnvCredentials{}
	for _, name := range SupportedProviders() {
		name := name
		reg.RegisterBuilder(name, func() (llm.Provider, error) {
			cfg := ProviderConfig{}
			credential, _ := creds.Lookup(name)
			if name == ollama.Name {
				cfg.BaseURL = credential
			} else {
				cfg.APIKey = credential
			}
			return NewProvider(name, cfg, logger)
		})
	}
	return reg
}
