package llm

import (
	"sort"
	"sync"
)

// Builder constructs a provider adapter. Builders only resolve
// configuration; they must not perform network I/O or validate credentials
// (both happen lazily inside the adapter, on first use).
type Builder func() (Provider, error)

// Registry maps provider names to adapter instances. Adapters are
// constructed on first request through their registered builder and
// memoized for the registry's lifetime — first caller wins, and there is no
// provision for swapping an adapter at runtime. Callers needing different
// credentials build a new registry.
type Registry struct {
	mu        sync.Mutex
	builders  map[string]Builder
	providers map[string]Provider
	defName   string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		builders:  make(map[string]Builder),
		providers: make(map[string]Provider),
	}
}

// RegisterBuilder registers a lazy constructor for the given name. A
// builder registered after the adapter has been constructed is ignored.
func (r *Registry) RegisterBuilder(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
}

// Register adds a pre-built adapter under the given name, replacing any
// builder registered for it.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get returns the adapter for name, constructing and memoizing it on first
// request. An unknown name yields an ErrConfiguration error and constructs
// nothing.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	b, ok := r.builders[name]
	if !ok {
		return nil, NewConfigurationError("", "unknown provider %q", name)
	}
	p, err := b()
	if err != nil {
		return nil, err
	}
	r.providers[name] = p
	return p, nil
}

// Default returns the adapter designated via SetDefault.
func (r *Registry) Default() (Provider, error) {
	r.mu.Lock()
	name := r.defName
	r.mu.Unlock()
	if name == "" {
		return nil, NewConfigurationError("", "no default provider set")
	}
	return r.Get(name)
}

// SetDefault designates a registered name as the default. The name must
// have a builder or instance registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		if _, ok := r.builders[name]; !ok {
			return NewConfigurationError("", "provider %q not registered", name)
		}
	}
	r.defName = name
	return nil
}

// List returns the sorted names of all registered providers, constructed
// or not.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{}, len(r.builders)+len(r.providers))
	for name := range r.builders {
		seen[name] = struct{}{}
	}
	for name := range r.providers {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered provider names.
func (r *Registry) Len() int {
	return len(r.List())
}
