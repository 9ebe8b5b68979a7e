// Package builder assembles MachineConfig values with functional options.
//
//	cfg := builder.Machine("toggle",
//		builder.State("inactive", builder.On("toggle", "active")),
//		builder.State("active", builder.On("toggle", "inactive")),
//	)
package builder

import (
	"time"

	"github.com/comalice/actorx"
)

// Option configures a state.
type Option func(*actorx.StateConfig)

// TransOption configures a transition candidate.
type TransOption func(*actorx.TransitionConfig)

// Machine builds a compound machine whose first state is the initial one.
func Machine(id string, states ...*actorx.StateConfig) actorx.MachineConfig {
	cfg := actorx.MachineConfig{ID: id, States: states}
	if len(states) > 0 {
		cfg.Initial = states[0].ID
	}
	return cfg
}

// ParallelMachine builds a machine whose top-level states are regions.
func ParallelMachine(id string, regions ...*actorx.StateConfig) actorx.MachineConfig {
	return actorx.MachineConfig{ID: id, Type: actorx.Parallel, States: regions}
}

// State creates a state. It is atomic unless Children are added.
func State(id string, opts ...Option) *actorx.StateConfig {
	s := &actorx.StateConfig{ID: id}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Composite creates a compound state with children in order (first = initial).
func Composite(id string, children ...*actorx.StateConfig) *actorx.StateConfig {
	s := State(id)
	s.Children = children
	if len(children) > 0 {
		s.Initial = children[0].ID
	}
	return s
}

// Parallel creates a parallel state with one region per child.
func Parallel(id string, regions ...*actorx.StateConfig) *actorx.StateConfig {
	s := State(id)
	s.Type = actorx.Parallel
	s.Children = regions
	return s
}

// Final creates a final state.
func Final(id string, opts ...Option) *actorx.StateConfig {
	s := State(id, opts...)
	s.Type = actorx.Final
	return s
}

// HistoryState creates a history pseudo-state with an optional default target.
func HistoryState(id string, kind actorx.HistoryType, target ...string) *actorx.StateConfig {
	return &actorx.StateConfig{ID: id, Type: actorx.History, History: kind, Target: target}
}

// Children appends child states; the first becomes initial unless one was set.
func Children(children ...*actorx.StateConfig) Option {
	return func(s *actorx.StateConfig) {
		s.Children = append(s.Children, children...)
		if s.Initial == "" && s.Type != actorx.Parallel && len(s.Children) > 0 {
			s.Initial = s.Children[0].ID
		}
	}
}

// Initial overrides the initial child.
func Initial(id string) Option {
	return func(s *actorx.StateConfig) { s.Initial = id }
}

// OnEntry adds an action to a state that executes when the state is entered.
func OnEntry(actions ...actorx.ActionRef) Option {
	return func(s *actorx.StateConfig) { s.Entry = append(s.Entry, actions...) }
}

// OnExit adds an action to a state that executes when the state is exited.
func OnExit(actions ...actorx.ActionRef) Option {
	return func(s *actorx.StateConfig) { s.Exit = append(s.Exit, actions...) }
}

// On adds a transition candidate for event. An empty target makes it
// targetless.
func On(event, target string, opts ...TransOption) Option {
	return func(s *actorx.StateConfig) {
		s.AddTransition(event, transition(target, opts))
	}
}

// Always adds an eventless transition.
func Always(target string, opts ...TransOption) Option {
	return func(s *actorx.StateConfig) {
		s.Always = append(s.Always, transition(target, opts))
	}
}

// After adds a delayed transition.
func After(d time.Duration, target string, opts ...TransOption) Option {
	return func(s *actorx.StateConfig) {
		s.After = append(s.After, actorx.DelayedTransitionConfig{
			Duration:         d,
			TransitionConfig: transition(target, opts),
		})
	}
}

// OnDone adds a transition taken when the compound or parallel state completes.
func OnDone(target string, opts ...TransOption) Option {
	return func(s *actorx.StateConfig) {
		s.OnDone = append(s.OnDone, transition(target, opts))
	}
}

// Invoke binds an actor to the state.
func Invoke(inv actorx.InvokeConfig) Option {
	return func(s *actorx.StateConfig) { s.Invoke = append(s.Invoke, inv) }
}

// Tags adds tags.
func Tags(tags ...string) Option {
	return func(s *actorx.StateConfig) { s.Tags = append(s.Tags, tags...) }
}

// Meta sets a metadata key.
func Meta(key string, value any) Option {
	return func(s *actorx.StateConfig) {
		if s.Meta == nil {
			s.Meta = map[string]any{}
		}
		s.Meta[key] = value
	}
}

// Output sets the done data of a final state.
func Output(v any) Option {
	return func(s *actorx.StateConfig) { s.Output = v }
}

// WithGuard sets the guard: a Guard, a registered name or an expression.
func WithGuard(g actorx.GuardRef) TransOption {
	return func(t *actorx.TransitionConfig) { t.Guard = g }
}

// WithAction appends transition actions.
func WithAction(actions ...actorx.ActionRef) TransOption {
	return func(t *actorx.TransitionConfig) { t.Actions = append(t.Actions, actions...) }
}

// Reenter makes a self-transition exit and re-enter its source.
func Reenter() TransOption {
	return func(t *actorx.TransitionConfig) { t.Reenter = true }
}

func transition(target string, opts []TransOption) actorx.TransitionConfig {
	var t actorx.TransitionConfig
	if target != "" {
		t.Target = actorx.Targets{target}
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}
