package factory

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RegistryConfig describes a set of providers and which one is the
// default.
//
// Example:
//
//	default: openai
//	providers:
//	  openai:
//	    api_key: ${OPENAI_API_KEY}
//	    model: gpt-4o-mini
//	  ollama:
//	    base_url: http://localhost:11434
type RegistryConfig struct {
	// Default names the default provider; must match a key in Providers.
	Default string `json:"default" yaml:"default"`
	// Providers maps provider names to their configurations.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

// LoadConfig reads a RegistryConfig from a YAML file. A .env file next to
// the working directory is loaded first when present, and ${VAR}
// references in the file are expanded from the environment, so credentials
// stay out of the config file itself.
func LoadConfig(path string) (RegistryConfig, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	var cfg RegistryConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
