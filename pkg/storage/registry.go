package storage

import (
	"fmt"
	"sync"
)

// Registry manages the registration and retrieval of engine adapters.
type Registry struct {
	adapters map[EngineKind]EngineAdapter
	mu       sync.RWMutex
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[EngineKind]EngineAdapter),
	}
}

// Register registers an engine adapter. An adapter already registered for
// the same engine kind is replaced.
func (r *Registry) Register(adapter EngineAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[adapter.Kind()] = adapter
}

// Get retrieves a registered adapter by engine kind.
// Returns ErrAdapterNotFound if the adapter is not registered.
func (r *Registry) Get(kind EngineKind) (EngineAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, kind)
	}

	return adapter, nil
}

// GetByName retrieves a registered adapter by engine name or alias.
func (r *Registry) GetByName(name string) (EngineAdapter, error) {
	kind, ok := ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine kind %q", ErrAdapterNotFound, name)
	}

	return r.Get(kind)
}

// IsRegistered checks if an adapter is registered for the given engine kind.
func (r *Registry) IsRegistered(kind EngineKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.adapters[kind]
	return exists
}

// ListRegistered returns all registered engine kinds.
func (r *Registry) ListRegistered() []EngineKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]EngineKind, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}

	return kinds
}

// globalRegistry is the default global adapter registry.
var globalRegistry = NewRegistry()

// Register registers an adapter in the global registry.
func Register(adapter EngineAdapter) {
	globalRegistry.Register(adapter)
}

// GetAdapter retrieves an adapter from the global registry.
func GetAdapter(kind EngineKind) (EngineAdapter, error) {
	return globalRegistry.Get(kind)
}

// IsRegistered checks if an adapter is registered in the global registry.
func IsRegistered(kind EngineKind) bool {
	return globalRegistry.IsRegistered(kind)
}

// GlobalRegistry returns the global adapter registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
