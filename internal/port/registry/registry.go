// Package registry provides the name-to-factory registry shared by the
// self-registering adapters of each port.
package registry

import (
	"fmt"
	"slices"
	"sync"
)

// Factory constructs a T from a flat configuration map.
type Factory[T any] func(config map[string]string) (T, error)

// Registry maps provider names to factories. The zero value is not usable;
// create one with New.
type Registry[T any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// New creates an empty registry. kind prefixes error messages
// (e.g. "tracker", "codehost").
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, factories: make(map[string]Factory[T])}
}

// Register makes a factory available by name.
// It is typically called from an init() function in the adapter package.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("%s: duplicate registration for %q", r.kind, name))
	}
	r.factories[name] = factory
}

// New creates an instance by name using the registered factory.
func (r *Registry[T]) New(name string, config map[string]string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unknown provider %q", r.kind, name)
	}
	return factory(config)
}

// Available returns the sorted names of all registered providers.
func (r *Registry[T]) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
