package adapters

import (
	"fmt"
	"sort"
)

// Registry maps method names to adapters. It is populated once at startup
// and read-only afterwards, so it needs no locking.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its method name. Registering the same
// name twice is a programming error.
func (r *Registry) Register(a Adapter) error {
	if _, exists := r.adapters[a.Name()]; exists {
		return fmt.Errorf("adapter already registered: %s", a.Name())
	}
	r.adapters[a.Name()] = a
	return nil
}

// Get returns the adapter registered under the method name.
func (r *Registry) Get(method string) (Adapter, bool) {
	a, ok := r.adapters[method]
	return a, ok
}

// Names returns all registered method names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry builds the standard registry: every system package
// manager, the language package managers, and a release-artifact fetcher
// rooted at cacheRoot.
func NewDefaultRegistry(cacheRoot string, artifacts map[string]ArtifactSource) (*Registry, error) {
	r := NewRegistry()
	for _, a := range SystemAdapters() {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	if err := r.Register(NewNpmAdapter()); err != nil {
		return nil, err
	}
	if err := r.Register(NewPipAdapter()); err != nil {
		return nil, err
	}
	if err := r.Register(NewArtifactAdapter(cacheRoot, artifacts)); err != nil {
		return nil, err
	}
	return r, nil
}
