// Package providers holds the helpers shared by every adapter: HTTP error
// mapping into the canonical taxonomy, error-body parsing, model
// resolution, and the OpenAI-compatible wire types several backends speak.
package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mindlink-ai/mindlink/llm"
)

// MapHTTPError maps a non-2xx status into a canonical llm.Error with an
// appropriate retryable flag. Every adapter routes its HTTP failures
// through here so that no adapter reinvents the mapping with slightly
// different semantics.
func MapHTTPError(status int, msg, provider string) *llm.Error {
	return &llm.Error{
		Code:       llm.ErrProviderRequest,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  retryableStatus(status),
		Provider:   provider,
	}
}

// retryableStatus reports whether a status is worth a caller-side retry:
// rate limits, model overload (529, used by some backends), and upstream
// 5xx failures.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, 529:
		return true
	}
	return status >= 500
}

// WrapTransport wraps a network-level failure (dial error, timeout, body
// read error) into a retryable ErrProviderRequest error, preserving the
// cause.
func WrapTransport(provider string, err error) *llm.Error {
	e := llm.WrapProviderError(provider, err)
	if e != nil && e.Cause == err {
		e.Retryable = true
		e.HTTPStatus = http.StatusBadGateway
	}
	return e
}

// WrapMalformed wraps a decode failure of a 2xx response body.
func WrapMalformed(provider string, err error) *llm.Error {
	return &llm.Error{
		Code:     llm.ErrProviderRequest,
		Message:  "malformed response payload: " + err.Error(),
		Provider: provider,
		Cause:    err,
	}
}

// ReadErrorMessage extracts a human-readable error message from an error
// response body. It tries the common {"error": {"message": ...}} envelope
// first and falls back to the raw text.
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}

	return string(data)
}

// ResolveModel picks the model for a conversation request: the
// conversation's override when set, the adapter default otherwise.
func ResolveModel(conv *llm.Conversation, defaultModel string) string {
	if conv != nil && conv.Model != "" {
		return conv.Model
	}
	return defaultModel
}

// SafeCloseBody closes an HTTP response body, ignoring errors.
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
