package llm

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Provider is the capability contract every backend adapter implements.
//
// Adapters are synchronous and safe for concurrent use. The only shared
// mutation inside an adapter is its one-time lazy transport-client
// construction, which is guarded so at most one underlying session is built
// per instance. Credentials are validated on first use, not at
// construction; constructing an adapter never performs network I/O.
//
// Every operation returns failures in the canonical *Error taxonomy and
// never leaks a backend-specific error type.
type Provider interface {
	// Name returns the unique provider identifier, recorded in every
	// Message this adapter produces.
	Name() string

	// DefaultModel returns the model used when neither the conversation
	// nor the call options override it.
	DefaultModel() string

	// SupportsStreaming reports whether GenerateStreamText is available.
	SupportsStreaming() bool

	// SendConversation submits a non-empty conversation and returns the
	// assistant reply. The returned Message always has Role ==
	// RoleAssistant, Raw set to the unmodified transport response, and
	// Model/Provider filled in. The conversation itself is never mutated.
	SendConversation(ctx context.Context, conv *Conversation) (*Message, error)

	// GenerateText performs a single-turn unstructured completion and
	// returns only the text payload.
	GenerateText(ctx context.Context, prompt string, opts ...RequestOption) (string, error)

	// StructuredResponse performs a single-turn completion constrained by
	// the given JSON Schema and returns the raw JSON payload. Use the
	// generic Structured helper to obtain a validated, typed value.
	StructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...RequestOption) (json.RawMessage, error)

	// GenerateStreamText performs a single-turn completion streamed as a
	// TextStream. Adapters that do not support streaming return an
	// ErrConfiguration error and report SupportsStreaming() == false.
	GenerateStreamText(ctx context.Context, prompt string, opts ...RequestOption) (*TextStream, error)
}
