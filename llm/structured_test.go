package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cannedProvider returns a fixed structured payload.
type cannedProvider struct {
	stubProvider
	payload json.RawMessage
	schema  *jsonschema.Schema
}

func (c *cannedProvider) StructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...RequestOption) (json.RawMessage, error) {
	c.schema = schema
	return c.payload, nil
}

type poem struct {
	Title string `json:"title"`
	Lines int    `json:"lines"`
}

func TestStructuredDecodesValidPayload(t *testing.T) {
	p := &cannedProvider{
		stubProvider: stubProvider{name: "canned"},
		payload:      json.RawMessage(`{"title":"Ode to Go","lines":14}`),
	}

	got, err := Structured[poem](context.Background(), p, "write a poem")
	require.NoError(t, err)
	assert.Equal(t, "Ode to Go", got.Title)
	assert.Equal(t, 14, got.Lines)
	require.NotNil(t, p.schema, "schema derived from the target type must reach the adapter")
}

func TestStructuredRejectsInvalidJSON(t *testing.T) {
	p := &cannedProvider{
		stubProvider: stubProvider{name: "canned"},
		payload:      json.RawMessage(`{"title": oops`),
	}

	_, err := Structured[poem](context.Background(), p, "write a poem")
	require.Error(t, err)
	assert.True(t, IsProviderRequest(err))
}

func TestStructuredRejectsSchemaViolation(t *testing.T) {
	// lines must be an integer; a string payload fails validation even
	// though it is valid JSON.
	p := &cannedProvider{
		stubProvider: stubProvider{name: "canned"},
		payload:      json.RawMessage(`{"title":"Ode to Go","lines":"fourteen"}`),
	}

	_, err := Structured[poem](context.Background(), p, "write a poem")
	require.Error(t, err)
	assert.True(t, IsProviderRequest(err), "a non-conforming payload must never come back partially typed")
}

func TestStructuredPropagatesAdapterError(t *testing.T) {
	p := &failingProvider{}
	_, err := Structured[poem](context.Background(), p, "write a poem")
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
}

type failingProvider struct {
	stubProvider
}

func (f *failingProvider) StructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...RequestOption) (json.RawMessage, error) {
	return nil, NewConfigurationError("failing", "no API key configured")
}
