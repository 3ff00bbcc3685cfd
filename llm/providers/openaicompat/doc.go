// Package openaicompat provides a shared base adapter for all backends
// speaking the OpenAI chat-completions dialect.
//
// Backends like Groq and Ollama expose the same wire format as OpenAI.
// Instead of duplicating the HTTP handling, SSE parsing, message
// conversion, and error mapping in each adapter, they embed
// openaicompat.Provider and only configure what differs:
//
//   - Provider name and default model
//   - Base URL and endpoint path
//   - Whether the credential is an API key or a host URL
//   - Which structured-output mode the backend supports
//     (server-enforced json_schema vs. plain JSON mode)
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "groq",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.groq.com/openai",
//	    DefaultModel: "llama-3.1-8b-instant",
//	}, logger)
package openaicompat
