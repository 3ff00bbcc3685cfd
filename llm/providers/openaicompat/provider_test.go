package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mindlink-ai/mindlink/llm"
	"github.com/mindlink-ai/mindlink/llm/providers"
)

func completionResponse(model, content string) providers.OpenAICompatResponse {
	return providers.OpenAICompatResponse{
		ID:    "resp-1",
		Model: model,
		Choices: []providers.OpenAICompatChoice{{
			Index:        0,
			FinishReason: "stop",
			Message:      providers.OpenAICompatMessage{Role: "assistant", Content: content},
		}},
	}
}

// fakeBackend records the requests an adapter makes.
type fakeBackend struct {
	*httptest.Server
	calls    atomic.Int32
	lastBody atomic.Pointer[providers.OpenAICompatRequest]
}

func newFakeBackend(t *testing.T, content string) *fakeBackend {
	fb := &fakeBackend{}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		var req providers.OpenAICompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fb.lastBody.Store(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionResponse(req.Model, content))
	}))
	t.Cleanup(fb.Close)
	return fb
}

func newTestProvider(t *testing.T, cfg Config) *Provider {
	if cfg.ProviderName == "" {
		cfg.ProviderName = "test"
	}
	if cfg.APIKey == "" && !cfg.APIKeyOptional {
		cfg.APIKey = "test-key"
	}
	return New(cfg, zap.NewNop())
}

func TestNewDefaults(t *testing.T) {
	p := New(Config{ProviderName: "test"}, nil)
	assert.Equal(t, "test", p.Name())
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, StructuredJSONMode, p.Cfg.StructuredFormat)
	assert.Equal(t, 60*time.Second, p.Cfg.Timeout)
	assert.True(t, p.SupportsStreaming())
	assert.NotNil(t, p.Logger)
}

func TestSendConversation(t *testing.T) {
	backend := newFakeBackend(t, "Hello!")
	p := newTestProvider(t, Config{BaseURL: backend.URL, DefaultModel: "m1"})

	conv := llm.NewConversation().
		AddText(llm.RoleSystem, "be brief").
		AddText(llm.RoleUser, "hi")

	msg, err := p.SendConversation(context.Background(), conv)
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello!", msg.Text)
	assert.Equal(t, "test", msg.Provider)
	assert.Equal(t, "m1", msg.Model)
	assert.NotEmpty(t, msg.Raw, "raw transport payload must be preserved")

	sent := backend.lastBody.Load()
	require.NotNil(t, sent)
	assert.Equal(t, "m1", sent.Model)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Equal(t, "hi", sent.Messages[1].Content)

	// Conversation is read, never mutated.
	assert.Equal(t, 2, conv.Len())
}

func TestSendConversationModelOverride(t *testing.T) {
	backend := newFakeBackend(t, "ok")
	p := newTestProvider(t, Config{BaseURL: backend.URL, DefaultModel: "m1"})

	conv := llm.NewConversation().AddText(llm.RoleUser, "hi")
	conv.Model = "m2"

	msg, err := p.SendConversation(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, "m2", msg.Model)
	assert.Equal(t, "m2", backend.lastBody.Load().Model)
}

func TestSendConversationEmptyIsRejectedBeforeTransport(t *testing.T) {
	backend := newFakeBackend(t, "unused")
	p := newTestProvider(t, Config{BaseURL: backend.URL, DefaultModel: "m1"})

	_, err := p.SendConversation(context.Background(), llm.NewConversation())
	require.Error(t, err)
	assert.True(t, llm.IsInvalidInput(err))
	assert.Equal(t, int32(0), backend.calls.Load(), "precondition violations must not reach the transport")
}

func TestMissingAPIKeySurfacesOnFirstUse(t *testing.T) {
	// Construction succeeds without a credential.
	p := New(Config{ProviderName: "test", BaseURL: "http://unused"}, zap.NewNop())

	_, err := p.GenerateText(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, llm.IsConfiguration(err))

	// The structured handle derives from the same credential check.
	_, err = p.StructuredResponse(context.Background(), "hi", &jsonschema.Schema{Type: "object"})
	require.Error(t, err)
	assert.True(t, llm.IsConfiguration(err))
}

func TestLazyClientBuiltOnceUnderConcurrency(t *testing.T) {
	backend := newFakeBackend(t, "ok")

	var built atomic.Int32
	p := newTestProvider(t, Config{
		BaseURL:      backend.URL,
		DefaultModel: "m1",
		ClientHook:   func(*http.Client) { built.Add(1) },
	})

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := p.GenerateText(context.Background(), "hi")
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), built.Load(), "at most one transport session per adapter instance")
}

func TestGenerateTextModelOverride(t *testing.T) {
	backend := newFakeBackend(t, "ok")
	p := newTestProvider(t, Config{BaseURL: backend.URL, DefaultModel: "m1"})

	_, err := p.GenerateText(context.Background(), "hi", llm.WithModel("m2"), llm.WithMaxTokens(64))
	require.NoError(t, err)

	sent := backend.lastBody.Load()
	assert.Equal(t, "m2", sent.Model)
	assert.Equal(t, 64, sent.MaxTokens)
}

func TestGenerateTextEmptyPrompt(t *testing.T) {
	backend := newFakeBackend(t, "unused")
	p := newTestProvider(t, Config{BaseURL: backend.URL})

	_, err := p.GenerateText(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, llm.IsInvalidInput(err))
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestGenerateTextAuthHeader(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(completionResponse("m1", "ok"))
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "sk-secret", BaseURL: server.URL, DefaultModel: "m1"}, zap.NewNop())
	_, err := p.GenerateText(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-secret", gotAuth.Load())
}

func TestHTTPErrorMapsToProviderRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	}))
	t.Cleanup(server.Close)

	p := newTestProvider(t, Config{BaseURL: server.URL, DefaultModel: "m1"})
	_, err := p.GenerateText(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, llm.IsProviderRequest(err))

	var le *llm.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, http.StatusTooManyRequests, le.HTTPStatus)
	assert.True(t, le.Retryable)
	assert.Contains(t, le.Message, "slow down")
}

func TestMalformedResponseMapsToProviderRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	t.Cleanup(server.Close)

	p := newTestProvider(t, Config{BaseURL: server.URL, DefaultModel: "m1"})
	_, err := p.GenerateText(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, llm.IsProviderRequest(err))
}

func TestStructuredResponseJSONMode(t *testing.T) {
	backend := newFakeBackend(t, `{"answer":42}`)
	p := newTestProvider(t, Config{BaseURL: backend.URL, DefaultModel: "m1"})

	schema := &jsonschema.Schema{Type: "object"}
	raw, err := p.StructuredResponse(context.Background(), "answer?", schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(raw))

	sent := backend.lastBody.Load()
	require.NotNil(t, sent.ResponseFormat)
	assert.Equal(t, StructuredJSONMode, sent.ResponseFormat.Type)
	// JSON mode carries the schema in a leading system turn.
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Contains(t, sent.Messages[0].Content, `"object"`)
	assert.Equal(t, "answer?", sent.Messages[1].Content)
}

func TestStructuredResponseJSONSchemaMode(t *testing.T) {
	backend := newFakeBackend(t, `{"answer":42}`)
	p := newTestProvider(t, Config{
		BaseURL:          backend.URL,
		DefaultModel:     "m1",
		StructuredFormat: StructuredJSONSchema,
	})

	_, err := p.StructuredResponse(context.Background(), "answer?", &jsonschema.Schema{Type: "object"})
	require.NoError(t, err)

	sent := backend.lastBody.Load()
	require.NotNil(t, sent.ResponseFormat)
	assert.Equal(t, StructuredJSONSchema, sent.ResponseFormat.Type)
	require.NotNil(t, sent.ResponseFormat.JSONSchema)
	assert.Equal(t, "structured_response", sent.ResponseFormat.JSONSchema.Name)
	assert.True(t, sent.ResponseFormat.JSONSchema.Strict)
	// Schema enforced server-side; the prompt is the only message.
	require.Len(t, sent.Messages, 1)
}

func TestStructuredResponseNilSchema(t *testing.T) {
	p := newTestProvider(t, Config{BaseURL: "http://unused"})
	_, err := p.StructuredResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.True(t, llm.IsInvalidInput(err))
}

func TestGenerateStreamText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req providers.OpenAICompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"Hel", "lo"} {
			chunk := providers.OpenAICompatResponse{Choices: []providers.OpenAICompatChoice{{
				Delta: &providers.OpenAICompatMessage{Role: "assistant", Content: delta},
			}}}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	p := newTestProvider(t, Config{BaseURL: server.URL, DefaultModel: "m1"})
	stream, err := p.GenerateStreamText(context.Background(), "hi")
	require.NoError(t, err)
	defer stream.Close()

	var got []string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)
	assert.Equal(t, "Hello", strings.Join(got, ""))
}

func TestGenerateStreamTextHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	t.Cleanup(server.Close)

	p := newTestProvider(t, Config{BaseURL: server.URL, DefaultModel: "m1"})
	_, err := p.GenerateStreamText(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, llm.IsProviderRequest(err))
}

func TestDecodeStreamChunk(t *testing.T) {
	text, done, err := DecodeStreamChunk([]byte("[DONE]"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, text)

	text, done, err = DecodeStreamChunk([]byte(`{"choices":[{"delta":{"content":"hi"}}]}`))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "hi", text)

	_, _, err = DecodeStreamChunk([]byte("{broken"))
	assert.Error(t, err)
}
