package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// StateType defines the possible types of states in the statechart.
type StateType string

const (
	Atomic   StateType = "atomic"
	Compound StateType = "compound"
	Parallel StateType = "parallel"
	Final    StateType = "final"
	History  StateType = "history"
)

// HistoryType selects what a history state remembers.
type HistoryType string

const (
	Shallow HistoryType = "shallow"
	Deep    HistoryType = "deep"
)

// ActionRef references an action: a string naming an implementation, or an
// action value understood by the core package.
type ActionRef any

// GuardRef references a guard: a string naming an implementation or holding
// an expression such as "count > 3", or a guard value.
type GuardRef any

// StateConfig defines a state configuration, supporting hierarchical nesting.
// Children are kept in declaration order.
type StateConfig struct {
	ID          string                    `json:"id" yaml:"id"`
	Type        StateType                 `json:"type,omitempty" yaml:"type,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Initial     string                    `json:"initial,omitempty" yaml:"initial,omitempty"`
	History     HistoryType               `json:"history,omitempty" yaml:"history,omitempty"`
	Target      Targets                   `json:"target,omitempty" yaml:"target,omitempty"` // default for history states
	On          map[string]TransitionList `json:"on,omitempty" yaml:"on,omitempty"`
	Always      TransitionList            `json:"always,omitempty" yaml:"always,omitempty"`
	After       []DelayedTransitionConfig `json:"after,omitempty" yaml:"after,omitempty"`
	OnDone      TransitionList            `json:"onDone,omitempty" yaml:"onDone,omitempty"`
	Entry       []ActionRef               `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit        []ActionRef               `json:"exit,omitempty" yaml:"exit,omitempty"`
	Invoke      []InvokeConfig            `json:"invoke,omitempty" yaml:"invoke,omitempty"`
	Tags        []string                  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Meta        map[string]any            `json:"meta,omitempty" yaml:"meta,omitempty"`
	Output      any                       `json:"output,omitempty" yaml:"output,omitempty"` // final states only
	Children    []*StateConfig            `json:"states,omitempty" yaml:"states,omitempty"`
}

// InvokeConfig describes an actor whose lifetime is bound to the invoking
// state. Src is a logic value or the name of a registered implementation.
type InvokeConfig struct {
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	SystemID   string         `json:"systemId,omitempty" yaml:"systemId,omitempty"`
	Src        any            `json:"src" yaml:"src"`
	Input      any            `json:"input,omitempty" yaml:"input,omitempty"`
	OnDone     TransitionList `json:"onDone,omitempty" yaml:"onDone,omitempty"`
	OnError    TransitionList `json:"onError,omitempty" yaml:"onError,omitempty"`
	OnSnapshot TransitionList `json:"onSnapshot,omitempty" yaml:"onSnapshot,omitempty"`
}

// NewStateConfig creates a new StateConfig with ID and Type.
func NewStateConfig(id string, typ StateType) *StateConfig {
	return &StateConfig{
		ID:   id,
		Type: typ,
	}
}

// EffectiveType returns Type, inferring compound or atomic when it is unset.
func (s *StateConfig) EffectiveType() StateType {
	if s.Type != "" {
		return s.Type
	}
	if len(s.Children) > 0 {
		return Compound
	}
	return Atomic
}

// WithInitial sets the initial child state ID (for compound).
func (s *StateConfig) WithInitial(initial string) *StateConfig {
	s.Initial = initial
	return s
}

// AddTransition adds a transition for an event.
func (s *StateConfig) AddTransition(event string, trans TransitionConfig) *StateConfig {
	if s.On == nil {
		s.On = make(map[string]TransitionList)
	}
	s.On[event] = append(s.On[event], trans)
	return s
}

// AddEntry adds an entry action.
func (s *StateConfig) AddEntry(action ActionRef) *StateConfig {
	s.Entry = append(s.Entry, action)
	return s
}

// AddExit adds an exit action.
func (s *StateConfig) AddExit(action ActionRef) *StateConfig {
	s.Exit = append(s.Exit, action)
	return s
}

// AddChild adds a child state.
func (s *StateConfig) AddChild(child *StateConfig) *StateConfig {
	s.Children = append(s.Children, child)
	return s
}

// State creates and adds a child state (atomic by default, or specified type).
// Returns the child for fluent chaining: parent.State("child").Transition("evt", "target").
func (s *StateConfig) State(id string, typ ...StateType) *StateConfig {
	t := Atomic
	if len(typ) > 0 {
		t = typ[0]
	}
	child := NewStateConfig(id, t)
	s.AddChild(child)
	return child
}

// Transition adds a simple transition from event to target.
func (s *StateConfig) Transition(event, target string) *StateConfig {
	return s.AddTransition(event, TransitionConfig{Target: Targets{target}})
}

// Child returns the direct child with the given id.
func (s *StateConfig) Child(id string) *StateConfig {
	for _, c := range s.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Validate performs recursive structural validation of the StateConfig tree.
// Target resolution is left to the compiler.
func (s *StateConfig) Validate() error {
	if s.ID == "" {
		return errors.New("state ID is required")
	}
	if strings.ContainsAny(s.ID, ".#") {
		return fmt.Errorf("state ID %q must not contain '.' or '#'", s.ID)
	}

	typ := s.EffectiveType()
	switch typ {
	case Atomic, Final:
		if s.Initial != "" {
			return fmt.Errorf("%s state %s cannot have Initial", typ, s.ID)
		}
		if len(s.Children) > 0 {
			return fmt.Errorf("%s state %s cannot have Children", typ, s.ID)
		}
	case Compound:
		if len(s.Children) == 0 {
			return fmt.Errorf("compound state %s requires Children", s.ID)
		}
	case Parallel:
		if len(s.Children) == 0 {
			return fmt.Errorf("parallel state %s requires Children", s.ID)
		}
		if s.Initial != "" {
			return fmt.Errorf("parallel state %s cannot have Initial (all regions are entered)", s.ID)
		}
	case History:
		if len(s.Children) > 0 {
			return fmt.Errorf("history state %s cannot have Children (restored at runtime)", s.ID)
		}
		if s.History != "" && s.History != Shallow && s.History != Deep {
			return fmt.Errorf("invalid history type %q for state %s", s.History, s.ID)
		}
	default:
		return fmt.Errorf("invalid state type %q for state %s", s.Type, s.ID)
	}

	if s.Output != nil && typ != Final {
		return fmt.Errorf("only final states can declare output (state %s)", s.ID)
	}

	for event := range s.On {
		if strings.TrimSpace(event) == "" {
			return fmt.Errorf("empty event name in On map for state %s", s.ID)
		}
	}

	seen := make(map[string]struct{}, len(s.Children))
	for i, child := range s.Children {
		if child == nil {
			return fmt.Errorf("child %d of %s is nil", i, s.ID)
		}
		if _, dup := seen[child.ID]; dup {
			return fmt.Errorf("duplicate child %q in %s", child.ID, s.ID)
		}
		seen[child.ID] = struct{}{}
		if err := child.Validate(); err != nil {
			return fmt.Errorf("child %d (%s) of %s failed validation: %w", i, child.ID, s.ID, err)
		}
	}

	return nil
}
