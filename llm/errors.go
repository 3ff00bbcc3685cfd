package llm

import (
	"errors"
	"fmt"
)

// ErrorCode classifies adapter failures into the three categories callers
// are expected to handle.
type ErrorCode string

const (
	// ErrConfiguration covers missing or invalid credentials, unknown
	// provider names, and requests for capabilities an adapter does not
	// offer. Never retriable.
	ErrConfiguration ErrorCode = "LLM_CONFIGURATION"

	// ErrInvalidInput covers precondition violations such as an empty
	// conversation or prompt. Raised before any transport call is made.
	ErrInvalidInput ErrorCode = "LLM_INVALID_INPUT"

	// ErrProviderRequest covers every transport-level failure: network
	// errors, non-2xx responses, malformed payloads, and schema decoding
	// failures. The original cause is preserved via Unwrap.
	ErrProviderRequest ErrorCode = "LLM_PROVIDER_REQUEST"
)

// Error is the single error type returned by all adapter operations.
type Error struct {
	Code       ErrorCode
	Message    string
	Provider   string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the original transport error for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewConfigurationError builds an ErrConfiguration error.
func NewConfigurationError(provider, format string, args ...any) *Error {
	return &Error{
		Code:     ErrConfiguration,
		Message:  fmt.Sprintf(format, args...),
		Provider: provider,
	}
}

// NewInvalidInputError builds an ErrInvalidInput error.
func NewInvalidInputError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapProviderError wraps a transport failure into an ErrProviderRequest
// error, preserving the cause. It is a no-op passthrough when err is
// already an *Error, so adapters can wrap at their boundary without
// double-wrapping helper results.
func WrapProviderError(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	return &Error{
		Code:     ErrProviderRequest,
		Message:  err.Error(),
		Provider: provider,
		Cause:    err,
	}
}

func isCode(err error, code ErrorCode) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == code
}

// IsConfiguration reports whether err is an ErrConfiguration error.
func IsConfiguration(err error) bool { return isCode(err, ErrConfiguration) }

// IsInvalidInput reports whether err is an ErrInvalidInput error.
func IsInvalidInput(err error) bool { return isCode(err, ErrInvalidInput) }

// IsProviderRequest reports whether err is an ErrProviderRequest error.
func IsProviderRequest(err error) bool { return isCode(err, ErrProviderRequest) }
