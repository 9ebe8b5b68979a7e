package core

import (
	"fmt"
	"sort"

	"github.com/comalice/actorx/internal/primitives"
)

// Status is the lifecycle status of an actor snapshot.
type Status string

const (
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusStopped Status = "stopped"
)

// State is the resolver's view of a machine at rest: the active nodes, the
// context and the history table. It is a value; resolving never modifies
// the State passed in.
type State struct {
	Context primitives.Context
	History History
	Status  Status
	Output  any

	model  *Model
	active nodeSet
}

// Model returns the model the state belongs to.
func (s State) Model() *Model { return s.model }

// Nodes returns every active node (root included) in document order.
func (s State) Nodes() []*StateNode { return s.active.sorted() }

// IDs returns the ids of active non-root nodes in document order.
func (s State) IDs() []string {
	nodes := s.Nodes()
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Parent != nil {
			out = append(out, n.ID)
		}
	}
	return out
}

// Leaves returns the ids of active atomic and final nodes.
func (s State) Leaves() []string {
	var out []string
	for _, n := range s.Nodes() {
		if n.IsLeaf() {
			out = append(out, n.ID)
		}
	}
	return out
}

// Active reports whether the node with the given id is active.
func (s State) Active(id string) bool {
	n, ok := s.model.nodes[id]
	return ok && s.active.has(n)
}

// Value renders the configuration as a nested state value: a string for a
// compound whose active child is a leaf, a map otherwise.
func (s State) Value() any {
	if s.model == nil {
		return nil
	}
	return s.value(s.model.Root)
}

func (s State) value(n *StateNode) any {
	switch n.Type {
	case primitives.Compound:
		for _, c := range n.Regions() {
			if !s.active.has(c) {
				continue
			}
			if c.IsLeaf() {
				return c.Key
			}
			return map[string]any{c.Key: s.value(c)}
		}
		return nil
	case primitives.Parallel:
		out := map[string]any{}
		for _, c := range n.Regions() {
			if c.IsLeaf() {
				out[c.Key] = map[string]any{}
				continue
			}
			out[c.Key] = s.value(c)
		}
		return out
	}
	return n.Key
}

// Tags returns the sorted union of tags on active nodes.
func (s State) Tags() []string {
	set := map[string]struct{}{}
	for n := range s.active {
		for _, t := range n.Tags {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Meta returns the meta of active nodes keyed by node label.
func (s State) Meta() map[string]map[string]any {
	out := map[string]map[string]any{}
	for n := range s.active {
		if len(n.Meta) > 0 {
			out[n.Label()] = n.Meta
		}
	}
	return out
}

// Validate checks the configuration invariants: the root is active, every
// active node's parent is active, every active compound node has exactly one
// active child and every active parallel node has all regions active.
func (s State) Validate() error {
	if s.model == nil || !s.active.has(s.model.Root) {
		return fmt.Errorf("root is not active")
	}
	for n := range s.active {
		if n.Type == primitives.History {
			return fmt.Errorf("history state %q cannot be active", n.ID)
		}
		if n.Parent != nil && !s.active.has(n.Parent) {
			return fmt.Errorf("%q is active but its parent is not", n.ID)
		}
		switch n.Type {
		case primitives.Compound:
			count := 0
			for _, c := range n.Regions() {
				if s.active.has(c) {
					count++
				}
			}
			if count != 1 {
				return fmt.Errorf("compound %q has %d active children", n.Label(), count)
			}
		case primitives.Parallel:
			for _, c := range n.Regions() {
				if !s.active.has(c) {
					return fmt.Errorf("parallel %q region %q is not active", n.Label(), c.Key)
				}
			}
		}
	}
	return nil
}

// Restore rebuilds a State from persisted node ids. Ancestors of the given
// ids are activated implicitly; the result must satisfy Validate.
func (m *Model) Restore(ids []string, ctx primitives.Context, history History, status Status) (State, error) {
	active := nodeSet{m.Root: {}}
	for _, id := range ids {
		n, ok := m.nodes[id]
		if !ok || n.Parent == nil {
			return State{}, fmt.Errorf("unknown state %q", id)
		}
		for p := n; p != nil; p = p.Parent {
			active.add(p)
		}
	}
	if status == "" {
		status = StatusActive
	}
	st := State{Context: ctx.Clone(), History: history.Clone(), Status: status, model: m, active: active}
	if err := st.Validate(); err != nil {
		return State{}, fmt.Errorf("restore %s: %w", m.ID, err)
	}
	return st, nil
}
