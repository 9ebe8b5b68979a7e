// Package primitives provides the declarative data structures a machine is
// described with: events, context, state and transition configs.
//
// Configs are plain values. They can be written as Go literals, assembled with
// the builder package, or decoded from YAML. Nothing here interprets them; the
// core package compiles a MachineConfig into an executable model.
//
// Core invariants:
//   - Events are values and are never mutated after construction
//   - Context is copied on write, never shared between actors
//   - Children keep declaration order (document order matters for resolution)
package primitives
