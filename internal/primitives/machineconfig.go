package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// MachineConfig defines the complete statechart configuration. The machine
// itself is the root state: it is compound (default) or parallel and owns the
// top-level States.
type MachineConfig struct {
	ID          string                    `json:"id" yaml:"id"`
	Version     string                    `json:"version,omitempty" yaml:"version,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        StateType                 `json:"type,omitempty" yaml:"type,omitempty"`
	Initial     string                    `json:"initial,omitempty" yaml:"initial,omitempty"`
	Context     Context                   `json:"context,omitempty" yaml:"context,omitempty"`
	ContextFunc func(input any) Context   `json:"-" yaml:"-"`
	States      []*StateConfig            `json:"states" yaml:"states"`
	On          map[string]TransitionList `json:"on,omitempty" yaml:"on,omitempty"`
	Always      TransitionList            `json:"always,omitempty" yaml:"always,omitempty"`
	After       []DelayedTransitionConfig `json:"after,omitempty" yaml:"after,omitempty"`
	Entry       []ActionRef               `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit        []ActionRef               `json:"exit,omitempty" yaml:"exit,omitempty"`
	Invoke      []InvokeConfig            `json:"invoke,omitempty" yaml:"invoke,omitempty"`
	Tags        []string                  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Meta        map[string]any            `json:"meta,omitempty" yaml:"meta,omitempty"`
	Output      any                       `json:"output,omitempty" yaml:"output,omitempty"`
}

// Root returns the machine as a StateConfig whose children are the top-level
// states. The returned value shares slices with m.
func (m *MachineConfig) Root() *StateConfig {
	typ := m.Type
	if typ == "" {
		typ = Compound
	}
	return &StateConfig{
		ID:          m.ID,
		Type:        typ,
		Description: m.Description,
		Initial:     m.Initial,
		On:          m.On,
		Always:      m.Always,
		After:       m.After,
		Entry:       m.Entry,
		Exit:        m.Exit,
		Invoke:      m.Invoke,
		Tags:        m.Tags,
		Meta:        m.Meta,
		Children:    m.States,
	}
}

// InitialContext returns the starting context for the given input.
func (m *MachineConfig) InitialContext(input any) Context {
	if m.ContextFunc != nil {
		return m.ContextFunc(input).Clone()
	}
	return m.Context.Clone()
}

// Validate validates the structure of the machine configuration:
// - Non-empty ID and at least one state
// - Root type is compound or parallel
// - Initial, when given, names a top-level state
// - All states validate (recursive), transition targets are well formed
func (m *MachineConfig) Validate() error {
	if m.ID == "" {
		return errors.New("machine ID is required")
	}
	if strings.ContainsAny(m.ID, ".#") {
		return fmt.Errorf("machine ID %q must not contain '.' or '#'", m.ID)
	}
	if len(m.States) == 0 {
		return errors.New("states are required and cannot be empty")
	}
	switch m.Type {
	case "", Compound, Parallel:
	default:
		return fmt.Errorf("machine type must be compound or parallel, got %q", m.Type)
	}
	if m.Type == Parallel && m.Initial != "" {
		return errors.New("parallel machine cannot have an initial state")
	}

	root := m.Root()
	if err := root.Validate(); err != nil {
		return err
	}
	if m.Initial != "" && root.Child(m.Initial) == nil {
		return fmt.Errorf("initial state %q not found in states", m.Initial)
	}

	return walkTransitions(root, func(owner string, tc *TransitionConfig) error {
		if err := tc.Validate(); err != nil {
			return fmt.Errorf("state %q: %w", owner, err)
		}
		return nil
	})
}

// walkTransitions visits every transition candidate in the tree.
func walkTransitions(s *StateConfig, fn func(owner string, tc *TransitionConfig) error) error {
	visit := func(list TransitionList) error {
		for i := range list {
			if err := fn(s.ID, &list[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, list := range s.On {
		if err := visit(list); err != nil {
			return err
		}
	}
	if err := visit(s.Always); err != nil {
		return err
	}
	if err := visit(s.OnDone); err != nil {
		return err
	}
	for i := range s.After {
		if err := fn(s.ID, &s.After[i].TransitionConfig); err != nil {
			return err
		}
	}
	for _, inv := range s.Invoke {
		for _, list := range []TransitionList{inv.OnDone, inv.OnError, inv.OnSnapshot} {
			if err := visit(list); err != nil {
				return err
			}
		}
	}
	for _, child := range s.Children {
		if err := walkTransitions(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// FindState resolves a state by hierarchical path (e.g. "parent.child.grandchild").
func (m *MachineConfig) FindState(path string) (*StateConfig, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}
	segments := strings.Split(path, ".")
	current := m.Root()
	for i, seg := range segments {
		next := current.Child(seg)
		if next == nil {
			if i == 0 {
				return nil, fmt.Errorf("state %q not found", seg)
			}
			prefix := strings.Join(segments[:i], ".")
			return nil, fmt.Errorf("child %q not found in %q", seg, prefix)
		}
		current = next
	}
	return current, nil
}
