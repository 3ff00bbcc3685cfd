// Package anthropic implements the Anthropic adapter against the native
// /v1/messages API. Differences from the chat-completions dialect:
//
//   - x-api-key / anthropic-version headers instead of a Bearer token
//   - system turns travel in a dedicated request field, not the message list
//   - max_tokens is mandatory
//   - structured output is obtained through a forced tool call carrying
//     the JSON Schema as the tool's input schema
//   - streaming events are typed (content_block_delta / message_stop)
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

const (
	// Name is the registry identifier for this adapter.
	Name = "anthropic"

	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-sonnet-latest"
	defaultVersion = "2023-06-01"

	// The messages API requires max_tokens on every request.
	defaultMaxTokens = 1024

	// structuredToolName is the synthetic tool whose input schema carries
	// the caller's JSON Schema.
	structuredToolName = "structured_response"
)

// Provider is the Anthropic adapter.
type Provider struct {
	cfg    providers.AnthropicConfig
	logger *zap.Logger

	rawOnce   sync.Once
	rawClient *http.Client
	rawErr    error

	structOnce   sync.Once
	structClient *http.Client
}

// New creates an Anthropic adapter. Construction only captures
// configuration; the credential is validated on first use.
func New(cfg providers.AnthropicConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, logger: logger}
}

// Name returns "anthropic".
func (p *Provider) Name() string { return Name }

// DefaultModel returns the configured default model.
func (p *Provider) DefaultModel() string { return p.cfg.Model }

// SupportsStreaming reports true.
func (p *Provider) SupportsStreaming() bool { return true }

func (p *Provider) raw() (*http.Client, error) {
	p.rawOnce.Do(func() {
		if strings.TrimSpace(p.cfg.APIKey) == "" {
			p.rawErr = llm.NewConfigurationError(Name, "no API key configured")
			return
		}
		p.rawClient = tlsutil.SecureHTTPClient(p.cfg.Timeout)
		p.logger.Debug("transport client initialized",
			zap.String("provider", Name),
			zap.String("api_key", llm.MaskCredential(p.cfg.APIKey)))
	})
	return p.rawClient, p.rawErr
}

func (p *Provider) structured() (*http.Client, error) {
	c, err := p.raw()
	if err != nil {
		return nil, err
	}
	p.structOnce.Do(func() {
		p.structClient = c
	})
	return p.structClient, nil
}

// --- wire types ---

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Temperature float32              `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

// convertConversation splits canonical messages into the system field and
// the user/assistant message list, preserving turn order.
func convertConversation(msgs []llm.Message) (system string, out []anthropicMessage) {
	var sys []string
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			sys = append(sys, m.Text)
			continue
		}
		out = append(out, anthropicMessage{Role: string(m.Role), Content: m.Text})
	}
	return strings.Join(sys, "\n"), out
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", p.cfg.Version)
	req.Header.Set("Content-Type", "application/json")
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
}

func maxTokensOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return defaultMaxTokens
}

func (p *Provider) do(ctx context.Context, client *http.Client, body anthropicRequest) (json.RawMessage, *anthropicResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, llm.NewInvalidInputError("cannot encode request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, llm.NewInvalidInputError("cannot build request: %v", err)
	}
	p.buildHeaders(httpReq)

	p.logger.Debug("messages request",
		zap.String("provider", Name),
		zap.String("request_id", uuid.NewString()),
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)))

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, providers.WrapTransport(Name, err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, nil, providers.MapHTTPError(resp.StatusCode, msg, Name)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, providers.WrapTransport(Name, err)
	}
	var out anthropicResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, nil, providers.WrapMalformed(Name, err)
	}
	return data, &out, nil
}

// responseText concatenates the text content blocks of a reply.
func responseText(resp *anthropicResponse) string {
	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// SendConversation submits the whole conversation in one request; the
// messages API is stateless, with system turns lifted into the system
// field.
func (p *Provider) SendConversation(ctx context.Context, conv *llm.Conversation) (*llm.Message, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	client, err := p.raw()
	if err != nil {
		return nil, err
	}

	model := providers.ResolveModel(conv, p.cfg.Model)
	system, msgs := convertConversation(conv.Messages)
	raw, resp, err := p.do(ctx, client, anthropicRequest{
		Model:     model,
		MaxTokens: defaultMaxTokens,
		System:    system,
		Messages:  msgs,
	})
	if err != nil {
		return nil, err
	}

	return &llm.Message{
		Role:     llm.RoleAssistant,
		Text:     responseText(resp),
		Raw:      raw,
		Model:    model,
		Provider: Name,
	}, nil
}

// GenerateText performs a single-turn completion.
func (p *Provider) GenerateText(ctx context.Context, prompt string, opts ...llm.RequestOption) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", llm.NewInvalidInputError("prompt must not be empty")
	}
	client, err := p.raw()
	if err != nil {
		return "", err
	}

	o := llm.NewRequestOptions(opts...)
	_, resp, err := p.do(ctx, client, anthropicRequest{
		Model:       o.ResolveModel(p.cfg.Model),
		MaxTokens:   maxTokensOrDefault(o.MaxTokens),
		Messages:    []anthropicMessage{{Role: string(llm.RoleUser), Content: prompt}},
		Temperature: o.Temperature,
	})
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// StructuredResponse forces a call to a synthetic tool whose input schema
// is the caller's JSON Schema; the tool call arguments are the structured
// payload.
func (p *Provider) StructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...llm.RequestOption) (json.RawMessage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, llm.NewInvalidInputError("prompt must not be empty")
	}
	if schema == nil {
		return nil, llm.NewInvalidInputError("schema must not be nil")
	}
	client, err := p.structured()
	if err != nil {
		return nil, err
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, llm.NewInvalidInputError("cannot encode schema: %v", err)
	}

	o := llm.NewRequestOptions(opts...)
	_, resp, err := p.do(ctx, client, anthropicRequest{
		Model:       o.ResolveModel(p.cfg.Model),
		MaxTokens:   maxTokensOrDefault(o.MaxTokens),
		Messages:    []anthropicMessage{{Role: string(llm.RoleUser), Content: prompt}},
		Temperature: o.Temperature,
		Tools: []anthropicTool{{
			Name:        structuredToolName,
			Description: "Record the structured response.",
			InputSchema: schemaJSON,
		}},
		ToolChoice: &anthropicToolChoice{Type: "tool", Name: structuredToolName},
	})
	if err != nil {
		return nil, err
	}

	for _, c := range resp.Content {
		if c.Type == "tool_use" && c.Name == structuredToolName {
			return c.Input, nil
		}
	}
	return nil, &llm.Error{
		Code:     llm.ErrProviderRequest,
		Message:  fmt.Sprintf("reply carries no %s tool call", structuredToolName),
		Provider: Name,
	}
}

// GenerateStreamText performs a single-turn streaming completion over the
// typed messages event stream.
func (p *Provider) GenerateStreamText(ctx context.Context, prompt string, opts ...llm.RequestOption) (*llm.TextStream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, llm.NewInvalidInputError("prompt must not be empty")
	}
	client, err := p.raw()
	if err != nil {
		return nil, err
	}

	o := llm.NewRequestOptions(opts...)
	body := anthropicRequest{
		Model:       o.ResolveModel(p.cfg.Model),
		MaxTokens:   maxTokensOrDefault(o.MaxTokens),
		Messages:    []anthropicMessage{{Role: string(llm.RoleUser), Content: prompt}},
		Temperature: o.Temperature,
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
	p.buildHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, providers.WrapTransport(Name, err)
	}
	if resp.StatusCode >= 400 {
		defer providers.SafeCloseBody(resp.Body)
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, Name)
	}

	return llm.NewTextStream(Name, resp.Body, decodeStreamEvent), nil
}

// decodeStreamEvent decodes one messages-API SSE payload. Only
// content_block_delta events carry text; message_stop terminates the
// stream, and error events surface as stream failures.
func decodeStreamEvent(data []byte) (string, bool, error) {
	var event struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return "", false, err
	}
	switch event.Type {
	case "content_block_delta":
		if event.Delta.Type == "text_delta" {
			return event.Delta.Text, false, nil
		}
		return "", false, nil
	case "message_stop":
		return "", true, nil
	case "error":
		return "", false, fmt.Errorf("stream error: %s: %s", event.Error.Type, event.Error.Message)
	default:
		return "", false, nil
	}
}
