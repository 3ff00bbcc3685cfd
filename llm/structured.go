package llm

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Structured requests a completion decoded into T. The JSON Schema is
// derived from T, sent to the provider's schema-constrained client, and the
// reply is validated against the schema before unmarshaling, so the result
// is never partially typed: either a fully validated *T comes back or an
// error in the canonical taxonomy does.
func Structured[T any](ctx context.Context, p Provider, prompt string, opts ...RequestOption) (*T, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, NewInvalidInputError("cannot derive JSON schema: %v", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, NewInvalidInputError("cannot resolve JSON schema: %v", err)
	}

	raw, err := p.StructuredResponse(ctx, prompt, schema, opts...)
	if err != nil {
		return nil, err
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, &Error{
			Code:     ErrProviderRequest,
			Message:  "structured response is not valid JSON: " + err.Error(),
			Provider: p.Name(),
			Cause:    err,
		}
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, &Error{
			Code:     ErrProviderRequest,
			Message:  "structured response does not conform to schema: " + err.Error(),
			Provider: p.Name(),
			Cause:    err,
		}
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, &Error{
			Code:     ErrProviderRequest,
			Message:  "cannot decode structured response: " + err.Error(),
			Provider: p.Name(),
			Cause:    err,
		}
	}
	return out, nil
}
