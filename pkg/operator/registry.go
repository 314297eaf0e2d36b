package operator

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps operator URIs to operators.
type Registry struct {
	mu        sync.RWMutex
	operators map[string]Operator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{operators: make(map[string]Operator)}
}

// Register adds op under its configured name.
func (r *Registry) Register(op Operator) error {
	return r.RegisterAs(op.Config().Name, op)
}

// RegisterAs adds op under uri.
func (r *Registry) RegisterAs(uri string, op Operator) error {
	if uri == "" {
		return fmt.Errorf("operator name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operators[uri]; exists {
		return fmt.Errorf("operator %q is already registered", uri)
	}
	r.operators[uri] = op
	return nil
}

// Unregister removes uri. Unknown URIs are ignored.
func (r *Registry) Unregister(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.operators, uri)
}

// Get returns the operator registered under uri.
func (r *Registry) Get(uri string) (Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operators[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, uri)
	}
	return op, nil
}

// Entry is a registered operator and its URI.
type Entry struct {
	URI      string
	Operator Operator
}

// List returns all operators sorted by URI.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.operators))
	for uri, op := range r.operators {
		entries = append(entries, Entry{URI: uri, Operator: op})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].URI < entries[j].URI
	})
	return entries
}
