package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindlink-ai/mindlink/internal/tlsutil"
	"github.com/mindlink-ai/mindlink/llm"
	"github.com/mindlink-ai/mindlink/llm/providers"
)

// Structured-output modes. StructuredJSONSchema asks the backend to enforce
// the schema server-side; StructuredJSONMode only forces valid JSON and
// carries the schema in a system turn, with validation happening in
// llm.Structured.
const (
	StructuredJSONSchema = "json_schema"
	StructuredJSONMode   = "json_object"
)

// Config holds the configuration for an OpenAI-compatible adapter.
type Config struct {
	// ProviderName is the unique identifier (e.g. "groq", "ollama").
	ProviderName string

	// APIKey is the credential. May be empty at construction; the adapter
	// fails with ErrConfiguration on first use when it is required.
	APIKey string

	// BaseURL is the API base (e.g. "https://api.groq.com/openai"). For
	// host-URL-credential backends (ollama) this is the credential itself.
	BaseURL string

	// DefaultModel is used when neither the conversation nor the call
	// options name a model.
	DefaultModel string

	// Timeout is the fixed transport timeout. Defaults to 60s.
	Timeout time.Duration

	// EndpointPath is the chat completions path. Defaults to
	// "/v1/chat/completions".
	EndpointPath string

	// StructuredFormat selects the structured-output mode. Defaults to
	// StructuredJSONMode.
	StructuredFormat string

	// APIKeyOptional marks backends whose credential is the host URL
	// rather than an API key; no Authorization header is sent when the
	// key is empty.
	APIKeyOptional bool

	// BuildHeaders optionally replaces the default
	// "Authorization: Bearer <key>" header set.
	BuildHeaders func(req *http.Request, apiKey string)

	// ClientHook is invoked once, when the lazy transport client is
	// built. Tests use it to observe construction.
	ClientHook func(c *http.Client)
}

// structuredClient is the schema-constrained transport handle: the shared
// HTTP client plus the resolved request-shaping mode. Built lazily, once,
// from the same validated credential as the raw handle.
type structuredClient struct {
	http   *http.Client
	format string
}

// Provider is the base implementation for OpenAI-compatible adapters.
// Embed it and configure; all four contract operations come for free.
type Provider struct {
	Cfg    Config
	Logger *zap.Logger

	rawOnce   sync.Once
	rawClient *http.Client
	rawErr    error

	structOnce   sync.Once
	structClient *structuredClient
}

// New creates an OpenAI-compatible adapter. Construction never performs
// network I/O and never validates the credential; both happen on first use.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.StructuredFormat == "" {
		cfg.StructuredFormat = StructuredJSONMode
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{Cfg: cfg, Logger: logger}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// DefaultModel returns the configured default model.
func (p *Provider) DefaultModel() string { return p.Cfg.DefaultModel }

// SupportsStreaming reports true: every chat-completions backend we front
// streams via SSE.
func (p *Provider) SupportsStreaming() bool { return true }

// raw returns the lazily-built transport client. The credential is
// validated here, exactly once per adapter instance, under the once guard;
// concurrent first callers observe a single construction.
func (p *Provider) raw() (*http.Client, error) {
	p.rawOnce.Do(func() {
		if strings.TrimSpace(p.Cfg.BaseURL) == "" {
			p.rawErr = llm.NewConfigurationError(p.Name(), "no base URL configured")
			return
		}
		if !p.Cfg.APIKeyOptional && strings.TrimSpace(p.Cfg.APIKey) == "" {
			p.rawErr = llm.NewConfigurationError(p.Name(), "no API key configured")
			return
		}
		c := tlsutil.SecureHTTPClient(p.Cfg.Timeout)
		if p.Cfg.ClientHook != nil {
			p.Cfg.ClientHook(c)
		}
		p.Logger.Debug("transport client initialized",
			zap.String("provider", p.Name()),
			zap.String("base_url", p.Cfg.BaseURL),
			zap.String("api_key", llm.MaskCredential(p.Cfg.APIKey)))
		p.rawClient = c
	})
	return p.rawClient, p.rawErr
}

// structured returns the lazily-built schema-constrained handle, derived
// from the same validated credential as the raw handle.
func (p *Provider) structured() (*structuredClient, error) {
	c, err := p.raw()
	if err != nil {
		return nil, err
	}
	p.structOnce.Do(func() {
		p.structClient = &structuredClient{http: c, format: p.Cfg.StructuredFormat}
	})
	return p.structClient, nil
}

// SetBuildHeaders installs a custom header builder. Call before first use.
func (p *Provider) SetBuildHeaders(fn func(req *http.Request, apiKey string)) {
	p.Cfg.BuildHeaders = fn
}

func (p *Provider) buildHeaders(req *http.Request, apiKey string) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, apiKey)
		return
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.Cfg.BaseURL, "/") + p.Cfg.EndpointPath
}

// do sends a chat completions request and returns the raw response body
// alongside the parsed form. All failure modes come back in the canonical
// taxonomy.
func (p *Provider) do(ctx context.Context, client *http.Client, body providers.OpenAICompatRequest) (json.RawMessage, *providers.OpenAICompatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, llm.NewInvalidInputError("cannot encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, llm.NewInvalidInputError("cannot build request: %v", err)
	}
	p.buildHeaders(httpReq, p.Cfg.APIKey)

	p.Logger.Debug("chat completion request",
		zap.String("provider", p.Name()),
		zap.String("request_id", uuid.NewString()),
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)))

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, providers.WrapTransport(p.Name(), err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, providers.WrapTransport(p.Name(), err)
	}
	var out providers.OpenAICompatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, nil, providers.WrapMalformed(p.Name(), err)
	}
	return data, &out, nil
}

// SendConversation submits the whole conversation in one request — the
// chat-completions dialect is stateless, so no turn-by-turn seeding is
// needed.
func (p *Provider) SendConversation(ctx context.Context, conv *llm.Conversation) (*llm.Message, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	client, err := p.raw()
	if err != nil {
		return nil, err
	}

	model := providers.ResolveModel(conv, p.Cfg.DefaultModel)
	raw, resp, err := p.do(ctx, client, providers.OpenAICompatRequest{
		Model:    model,
		Messages: providers.ConvertMessagesToOpenAI(conv.Messages),
	})
	if err != nil {
		return nil, err
	}

	return &llm.Message{
		Role:     llm.RoleAssistant,
		Text:     providers.FirstChoiceText(*resp),
		Raw:      raw,
		Model:    model,
		Provider: p.Name(),
	}, nil
}

// GenerateText performs a single-turn completion and returns the text
// payload only.
func (p *Provider) GenerateText(ctx context.Context, prompt string, opts ...llm.RequestOption) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", llm.NewInvalidInputError("prompt must not be empty")
	}
	client, err := p.raw()
	if err != nil {
		return "", err
	}

	o := llm.NewRequestOptions(opts...)
	_, resp, err := p.do(ctx, client, providers.OpenAICompatRequest{
		Model:       o.ResolveModel(p.Cfg.DefaultModel),
		Messages:    []providers.OpenAICompatMessage{{Role: string(llm.RoleUser), Content: prompt}},
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return providers.FirstChoiceText(*resp), nil
}

// StructuredResponse performs a single-turn schema-constrained completion
// and returns the raw JSON payload of the reply.
func (p *Provider) StructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...llm.RequestOption) (json.RawMessage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, llm.NewInvalidInputError("prompt must not be empty")
	}
	if schema == nil {
		return nil, llm.NewInvalidInputError("schema must not be nil")
	}
	sc, err := p.structured()
	if err != nil {
		return nil, err
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, llm.NewInvalidInputError("cannot encode schema: %v", err)
	}

	o := llm.NewRequestOptions(opts...)
	req := providers.OpenAICompatRequest{
		Model:       o.ResolveModel(p.Cfg.DefaultModel),
		Messages:    []providers.OpenAICompatMessage{{Role: string(llm.RoleUser), Content: prompt}},
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	}
	switch sc.format {
	case StructuredJSONSchema:
		req.ResponseFormat = &providers.OpenAICompatResponseFormat{
			Type: StructuredJSONSchema,
			JSONSchema: &providers.OpenAICompatJSONSchema{
				Name:   "structured_response",
				Schema: schemaJSON,
				Strict: true,
			},
		}
	default:
		// JSON mode: the backend only guarantees syntactically valid
		// JSON, so the schema travels in a system turn.
		req.ResponseFormat = &providers.OpenAICompatResponseFormat{Type: StructuredJSONMode}
		req.Messages = append([]providers.OpenAICompatMessage{{
			Role:    string(llm.RoleSystem),
			Content: "Reply with a single JSON object conforming to this JSON Schema:\n" + string(schemaJSON),
		}}, req.Messages...)
	}

	_, resp, err := p.do(ctx, sc.http, req)
	if err != nil {
		return nil, err
	}
	text := providers.FirstChoiceText(*resp)
	if strings.TrimSpace(text) == "" {
		return nil, &llm.Error{
			Code:     llm.ErrProviderRequest,
			Message:  "empty structured response",
			Provider: p.Name(),
		}
	}
	return json.RawMessage(text), nil
}

// GenerateStreamText performs a single-turn streaming completion. The
// returned TextStream owns the connection; the caller must drain it or
// Close it.
func (p *Provider) GenerateStreamText(ctx context.Context, prompt string, opts ...llm.RequestOption) (*llm.TextStream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, llm.NewInvalidInputError("prompt must not be empty")
	}
	client, err := p.raw()
	if err != nil {
		return nil, err
	}

	o := llm.NewRequestOptions(opts...)
	body := providers.OpenAICompatRequest{
		Model:       o.ResolveModel(p.Cfg.DefaultModel),
		Messages:    []providers.OpenAICompatMessage{{Role: string(llm.RoleUser), Content: prompt}},
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
		Stream:      true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewInvalidInputError("cannot encode request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewInvalidInputError("cannot build request: %v", err)
	}
	p.buildHeaders(httpReq, p.Cfg.APIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, providers.WrapTransport(p.Name(), err)
	}
	if resp.StatusCode >= 400 {
		defer providers.SafeCloseBody(resp.Body)
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	return llm.NewTextStream(p.Name(), resp.Body, DecodeStreamChunk), nil
}

// DecodeStreamChunk decodes one chat-completions SSE payload into its text
// delta. The "[DONE]" sentinel terminates the stream.
func DecodeStreamChunk(data []byte) (string, bool, error) {
	if bytes.Equal(data, []byte("[DONE]")) {
		return "", true, nil
	}
	var chunk providers.OpenAICompatResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false, err
	}
	var b strings.Builder
	for _, c := range chunk.Choices {
		if c.Delta != nil {
			b.WriteString(c.Delta.Content)
		}
	}
	return b.String(), false, nil
}
