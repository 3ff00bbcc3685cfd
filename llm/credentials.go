package llm

import (
	"os"
	"strings"
)

// CredentialSource resolves the credential for a provider: an API key for
// hosted backends, a host URL for local ones. A false second return means
// the credential is missing; adapters treat that as an ErrConfiguration
// failure at first client use, never at construction.
type CredentialSource interface {
	Lookup(provider string) (string, bool)
}

// credentialEnvVars maps provider names whose credential does not follow
// the <NAME>_API_KEY convention.
var credentialEnvVars = map[string]string{
	"ollama": "OLLAMA_HOST_URL",
}

// EnvCredentials resolves credentials from the process environment using
// the <PROVIDER>_API_KEY convention (OPENAI_API_KEY, GROQ_API_KEY, ...),
// with per-provider exceptions for URL-style credentials.
type EnvCredentials struct{}

// Lookup implements CredentialSource.
func (EnvCredentials) Lookup(provider string) (string, bool) {
	name, ok := credentialEnvVars[provider]
	if !ok {
		name = strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

// StaticCredentials is a fixed in-memory CredentialSource, mainly for tests
// and embedding configuration.
type StaticCredentials map[string]string

// Lookup implements CredentialSource.
func (s StaticCredentials) Lookup(provider string) (string, bool) {
	v, ok := s[provider]
	return v, ok && v != ""
}

// MaskCredential renders a credential safe for logs, keeping only a short
// prefix.
func MaskCredential(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}
