package llm

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string              { return s.name }
func (s *stubProvider) DefaultModel() string      { return "stub-model" }
func (s *stubProvider) SupportsStreaming() bool   { return false }
func (s *stubProvider) SendConversation(ctx context.Context, conv *Conversation) (*Message, error) {
	return &Message{Role: RoleAssistant, Provider: s.name, Model: "stub-model"}, nil
}
func (s *stubProvider) GenerateText(ctx context.Context, prompt string, opts ...RequestOption) (string, error) {
	return "", nil
}
func (s *stubProvider) StructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...RequestOption) (json.RawMessage, error) {
	return nil, nil
}
func (s *stubProvider) GenerateStreamText(ctx context.Context, prompt string, opts ...RequestOption) (*TextStream, error) {
	return nil, NewConfigurationError(s.name, "streaming not supported")
}

func TestRegistryUnknownProvider(t *testing.T) {
	reg := NewRegistry()

	var built atomic.Int32
	reg.RegisterBuilder("known", func() (Provider, error) {
		built.Add(1)
		return &stubProvider{name: "known"}, nil
	})

	_, err := reg.Get("nope")
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "nope")
	assert.Equal(t, int32(0), built.Load(), "unknown name must construct nothing")
}

func TestRegistryMemoizesConstruction(t *testing.T) {
	reg := NewRegistry()

	var built atomic.Int32
	reg.RegisterBuilder("p", func() (Provider, error) {
		built.Add(1)
		return &stubProvider{name: "p"}, nil
	})

	first, err := reg.Get("p")
	require.NoError(t, err)
	second, err := reg.Get("p")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), built.Load())
}

func TestRegistryConcurrentGetBuildsOnce(t *testing.T) {
	reg := NewRegistry()

	var built atomic.Int32
	reg.RegisterBuilder("p", func() (Provider, error) {
		built.Add(1)
		return &stubProvider{name: "p"}, nil
	})

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			_, err := reg.Get("p")
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), built.Load())
}

func TestRegistryDefault(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterBuilder("a", func() (Provider, error) { return &stubProvider{name: "a"}, nil })

	_, err := reg.Default()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	require.Error(t, reg.SetDefault("missing"))
	require.NoError(t, reg.SetDefault("a"))

	p, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name())
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterBuilder("b", func() (Provider, error) { return &stubProvider{name: "b"}, nil })
	reg.Register("a", &stubProvider{name: "a"})

	assert.Equal(t, []string{"a", "b"}, reg.List())
	assert.Equal(t, 2, reg.Len())
}
