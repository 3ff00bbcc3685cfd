// Package gemini implements the Google Gemini adapter against the native
// generateContent API. Differences from the chat-completions dialect:
//
//   - x-goog-api-key header authentication
//   - the model name is part of the URL, not the request body
//   - roles are user/model, with system turns in systemInstruction
//   - the chat transport is seeded turn-by-turn: prior user turns are
//     replayed against the backend (capturing the interleaved replies as
//     context) before the final turn's reply is returned
//   - structured output via responseMimeType + responseSchema
package gemini

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
	Name = "gemini"

	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"
)

// Provider is the Gemini adapter.
type Provider struct {
	cfg    providers.GeminiConfig
	logger *zap.Logger

	rawOnce   sync.Once
	rawClient *http.Client
	rawErr    error

	structOnce   sync.Once
	structClient *http.Client
}

// New creates a Gemini adapter. Construction only captures configuration;
// the credential is validated on first use.
func New(cfg providers.GeminiConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, logger: logger}
}

// Name returns "gemini".
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

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user or model
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float32         `json:"temperature,omitempty"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

func toGeminiRole(r llm.Role) string {
	if r == llm.RoleAssistant {
		return "model"
	}
	return "user"
}

func textContent(role string, text string) geminiContent {
	return geminiContent{Role: role, Parts: []geminiPart{{Text: text}}}
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

func (p *Provider) endpoint(model, method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), model, method)
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func (p *Provider) do(ctx context.Context, client *http.Client, model string, body geminiRequest) (json.RawMessage, *geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, llm.NewInvalidInputError("cannot encode request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(model, "generateContent"), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, llm.NewInvalidInputError("cannot build request: %v", err)
	}
	p.buildHeaders(httpReq)

	p.logger.Debug("generateContent request",
		zap.String("provider", Name),
		zap.String("request_id", uuid.NewString()),
		zap.String("model", model),
		zap.Int("contents", len(body.Contents)))

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
	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, nil, providers.WrapMalformed(Name, err)
	}
	return data, &out, nil
}

// SendConversation seeds a chat session turn by turn. Prior user turns are
// each sent to the backend with the accumulated context and the returned
// reply is folded back in; prior assistant turns are folded in directly as
// model context. The final turn's reply is returned as the canonical
// assistant Message.
func (p *Provider) SendConversation(ctx context.Context, conv *llm.Conversation) (*llm.Message, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	client, err := p.raw()
	if err != nil {
		return nil, err
	}

	model := providers.ResolveModel(conv, p.cfg.Model)

	var system []string
	var turns []llm.Message
	for _, m := range conv.Messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Text)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return nil, llm.NewInvalidInputError("conversation contains only system messages")
	}

	var sysContent *geminiContent
	if len(system) > 0 {
		c := textContent("", strings.Join(system, "\n"))
		sysContent = &c
	}

	contents := make([]geminiContent, 0, len(turns)*2)
	for _, m := range turns[:len(turns)-1] {
		if m.Role == llm.RoleAssistant {
			contents = append(contents, textContent("model", m.Text))
			continue
		}
		contents = append(contents, textContent("user", m.Text))
		_, resp, err := p.do(ctx, client, model, geminiRequest{
			Contents:          contents,
			SystemInstruction: sysContent,
		})
		if err != nil {
			return nil, err
		}
		contents = append(contents, textContent("model", candidateText(resp)))
	}

	last := turns[len(turns)-1]
	contents = append(contents, textContent(toGeminiRole(last.Role), last.Text))
	raw, resp, err := p.do(ctx, client, model, geminiRequest{
		Contents:          contents,
		SystemInstruction: sysContent,
	})
	if err != nil {
		return nil, err
	}

	return &llm.Message{
		Role:     llm.RoleAssistant,
		Text:     candidateText(resp),
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
	model := o.ResolveModel(p.cfg.Model)
	_, resp, err := p.do(ctx, client, model, geminiRequest{
		Contents: []geminiContent{textContent("user", prompt)},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     o.Temperature,
			MaxOutputTokens: o.MaxTokens,
		},
	})
	if err != nil {
		return "", err
	}
	return candidateText(resp), nil
}

// StructuredResponse requests a JSON reply constrained by responseSchema.
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
	model := o.ResolveModel(p.cfg.Model)
	_, resp, err := p.do(ctx, client, model, geminiRequest{
		Contents: []geminiContent{textContent("user", prompt)},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      o.Temperature,
			MaxOutputTokens:  o.MaxTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   schemaJSON,
		},
	})
	if err != nil {
		return nil, err
	}
	text := candidateText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, &llm.Error{
			Code:     llm.ErrProviderRequest,
			Message:  "empty structured response",
			Provider: Name,
		}
	}
	return json.RawMessage(text), nil
}

// GenerateStreamText performs a single-turn streaming completion via
// streamGenerateContent with SSE framing.
func (p *Provider) GenerateStreamText(ctx context.Context, prompt string, opts ...llm.RequestOption) (*llm.TextStream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, llm.NewInvalidInputError("prompt must not be empty")
	}
	client, err := p.raw()
	if err != nil {
		return nil, err
	}

	o := llm.NewRequestOptions(opts...)
	model := o.ResolveModel(p.cfg.Model)
	body := geminiRequest{
		Contents: []geminiContent{textContent("user", prompt)},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     o.Temperature,
			MaxOutputTokens: o.MaxTokens,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewInvalidInputError("cannot encode request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint(model, "streamGenerateContent")+"?alt=sse", bytes.NewReader(payload))
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

	return llm.NewTextStream(Name, resp.Body, decodeStreamChunk), nil
}

// decodeStreamChunk decodes one streamGenerateContent SSE payload. The
// stream has no end sentinel; EOF terminates it.
func decodeStreamChunk(data []byte) (string, bool, error) {
	var chunk geminiResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false, err
	}
	return candidateText(&chunk), false, nil
}
