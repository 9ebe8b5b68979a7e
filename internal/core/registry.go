package core

import (
	"sort"
	"sync"
)

// Registry maps system ids to values (actors) for a whole actor system.
// It is the only structure shared by actors and is safe for concurrent use.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry creates an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Register adds v under id. A second registration of the same id fails with
// ErrDuplicateSystemID and leaves the first entry in place.
func (r *Registry[T]) Register(id string, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return Errorf(CodeDuplicateSystemID, id, "system id %q is already registered", id)
	}
	r.entries[id] = v
	return nil
}

// Lookup returns the value registered under id.
func (r *Registry[T]) Lookup(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[id]
	return v, ok
}

// Unregister removes id when match reports the stored value is the caller's.
func (r *Registry[T]) Unregister(id string, match func(T) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.entries[id]; ok && (match == nil || match(v)) {
		delete(r.entries, id)
	}
}

// Keys returns the registered ids, sorted.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
