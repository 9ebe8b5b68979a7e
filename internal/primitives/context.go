package primitives

import "maps"

// Context is the extended state of a machine actor.
//
// A Context is treated as immutable once it has been handed to an actor:
// assignments produce a new map through Merge, so snapshots taken earlier keep
// the values they were taken with.
type Context map[string]any

// NewContext creates an empty Context.
func NewContext() Context {
	return Context{}
}

// Get retrieves a value by key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// Clone returns a shallow copy. A nil Context clones to an empty one.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	maps.Copy(out, c)
	return out
}

// Merge returns a copy of c with every key of patch applied on top.
func (c Context) Merge(patch Context) Context {
	out := c.Clone()
	maps.Copy(out, patch)
	return out
}

// Snapshot returns a plain map copy suitable for serialization.
func (c Context) Snapshot() map[string]any {
	return map[string]any(c.Clone())
}
