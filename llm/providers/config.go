package providers

import "time"

// BaseProviderConfig holds the configuration fields every adapter shares.
// Embedding it gives each provider's Config the APIKey, BaseURL, Model and
// Timeout fields without repetition.
//
// An empty APIKey (or, for URL-credential providers, an empty BaseURL) is
// legal at construction time; the adapter reports the missing credential as
// an ErrConfiguration failure on first use.
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// AnthropicConfig configures the Anthropic adapter.
type AnthropicConfig struct {
	BaseProviderConfig `yaml:",inline"`
	// Version is the anthropic-version header value. Defaults to
	// "2023-06-01".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// GroqConfig configures the Groq adapter.
type GroqConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OllamaConfig configures the Ollama adapter. The credential is the host
// URL (BaseURL) rather than an API key.
type OllamaConfig struct {
	BaseProviderConfig `yaml:",inline"`
}
