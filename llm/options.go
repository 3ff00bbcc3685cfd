package llm

// RequestOptions carries the per-call knobs shared by all single-turn
// operations. Zero values mean "use the adapter default". Options apply to
// one call only and never mutate adapter state.
type RequestOptions struct {
	// Model overrides the adapter's default model for this call.
	Model string
	// Temperature sets the sampling temperature when non-zero.
	Temperature float32
	// MaxTokens caps the completion length when non-zero.
	MaxTokens int
}

// RequestOption mutates RequestOptions.
type RequestOption func(*RequestOptions)

// WithModel overrides the model for a single call.
func WithModel(model string) RequestOption {
	return func(o *RequestOptions) { o.Model = model }
}

// WithTemperature sets the sampling temperature for a single call.
func WithTemperature(t float32) RequestOption {
	return func(o *RequestOptions) { o.Temperature = t }
}

// WithMaxTokens caps the completion length for a single call.
func WithMaxTokens(n int) RequestOption {
	return func(o *RequestOptions) { o.MaxTokens = n }
}

// NewRequestOptions folds a list of options into a RequestOptions value.
func NewRequestOptions(opts ...RequestOption) RequestOptions {
	var o RequestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ResolveModel returns the per-call override when set, the fallback
// otherwise.
func (o RequestOptions) ResolveModel(fallback string) string {
	if o.Model != "" {
		return o.Model
	}
	return fallback
}
