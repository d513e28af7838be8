package provider

import (
	"fmt"
	"sync"
)

// Registry lazily constructs one adapter per provider and memoizes it.
type Registry struct {
	mu       sync.Mutex
	opts     Options
	adapters map[ID]Adapter
}

// NewRegistry creates a registry whose adapters share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts.withDefaults(),
		adapters: make(map[ID]Adapter),
	}
}

// Get returns the adapter for id, constructing it on first use.
func (r *Registry) Get(id ID) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[id]; ok {
		return a, nil
	}
	desc, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, id)
	}
	a := newAdapter(desc, r.opts)
	r.adapters[id] = a
	return a, nil
}

// newAdapter dispatches on the vendor dialect.
func newAdapter(desc Descriptor, opts Options) Adapter {
	switch desc.Dialect {
	case DialectAnthropic:
		return NewAnthropicAdapter(opts)
	case DialectGoogle:
		return NewGoogleAdapter(opts)
	case DialectOpenRouter:
		return NewOpenRouterAdapter(opts)
	default:
		return NewOpenAICompatibleAdapter(desc, opts)
	}
}
