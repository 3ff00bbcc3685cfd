// Package mindlink provides a convenience surface over the default
// provider registry, for callers who want one-line access to a backend
// without wiring a registry themselves.
//
// Usage:
//
//	text, err := mindlink.GenerateText(ctx, "openai", "Say hello.")
//
//	conv := mindlink.NewConversation().AddText(llm.RoleUser, "Hi there")
//	reply, err := mindlink.SendConversation(ctx, "anthropic", conv)
//
// Credentials are resolved from the environment (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, GEMINI_API_KEY, GROQ_API_KEY, OLLAMA_HOST_URL) on
// first use of each provider. For explicit configuration, build a registry
// through llm/factory instead.
package mindlink

import (
	"context"
	"sync"

	"github.com/mindlink-ai/mindlink/llm"
	"github.com/mindlink-ai/mindlink/llm/factory"
)

var (
	defaultOnce sync.Once
	defaultReg  *llm.Registry
)

// DefaultRegistry returns the process-wide registry, built lazily with all
// built-in providers and environment-resolved credentials.
func DefaultRegistry() *llm.Registry {
	defaultOnce.Do(func() {
		defaultReg = factory.NewEnvRegistry(nil)
	})
	return defaultReg
}

// NewConversation creates an empty conversation.
func NewConversation() *llm.Conversation {
	return llm.NewConversation()
}

// SendConversation submits a conversation to the named provider and
// returns the assistant reply.
func SendConversation(ctx context.Context, provider string, conv *llm.Conversation) (*llm.Message, error) {
	p, err := DefaultRegistry().Get(provider)
	if err != nil {
		return nil, err
	}
	return p.SendConversation(ctx, conv)
}

// GenerateText performs a single-turn completion against the named
// provider.
func GenerateText(ctx context.Context, provider, prompt string, opts ...llm.RequestOption) (string, error) {
	p, err := DefaultRegistry().Get(provider)
	if err != nil {
		return "", err
	}
	return p.GenerateText(ctx, prompt, opts...)
}

// GenerateStreamText performs a single-turn streaming completion against
// the named provider. The caller must drain or Close the stream.
func GenerateStreamText(ctx context.Context, provider, prompt string, opts ...llm.RequestOption) (*llm.TextStream, error) {
	p, err := DefaultRegistry().Get(provider)
	if err != nil {
		return nil, err
	}
	return p.GenerateStreamText(ctx, prompt, opts...)
}

// Structured requests a schema-validated response decoded into T from the
// named provider.
func Structured[T any](ctx context.Context, provider, prompt string, opts ...llm.RequestOption) (*T, error) {
	p, err := DefaultRegistry().Get(provider)
	if err != nil {
		return nil, err
	}
	return llm.Structured[T](ctx, p, prompt, opts...)
}
