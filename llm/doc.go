/*
Package llm provides a uniform client layer over multiple large-language-model
backends. It hides the differences in wire format, authentication, error
semantics, and streaming protocol behind one provider contract, so callers can
switch backends without changing call sites.

# Provider contract

The core interface is [Provider]. Every adapter implements the same four
operations:

  - SendConversation — submit a multi-turn conversation, receive the
    assistant reply as a canonical [Message].
  - GenerateText — single-turn free-text completion.
  - StructuredResponse — single-turn completion decoded against a JSON
    Schema. Use the generic [Structured] helper to go straight to a typed
    Go value.
  - GenerateStreamText — optional streaming completion, exposed as a
    pull-based [TextStream]. Adapters report support via
    SupportsStreaming.

# Canonical types

[Message] and [Conversation] are the shapes shared across all adapters.
Adapters read conversations but never mutate them; each generation operation
returns a new assistant Message carrying the untouched backend payload in
Raw for audit and debugging.

# Errors

All failures surface as *[Error] with one of three codes: [ErrConfiguration]
(missing credentials, unknown provider), [ErrInvalidInput] (precondition
violations, raised before any transport call), and [ErrProviderRequest]
(any transport-level failure, wrapping the original cause). Raw transport
error types never escape an adapter. Nothing is retried internally; the
Retryable flag is diagnostic only.

# Sub-packages

  - llm/providers — shared adapter helpers and per-provider configuration.
  - llm/providers/openaicompat — base adapter for OpenAI-compatible APIs.
  - llm/providers/{openai,anthropic,gemini,groq,ollama} — concrete adapters.
  - llm/factory — name-to-constructor dispatch and config-driven registries.
*/
package llm
