package actorx

import (
	"slices"

	"github.com/comalice/actorx/internal/core"
)

// Snapshot is the immutable view of an actor after a settled step. Context
// is shared with the engine and must be treated as read-only.
type Snapshot struct {
	Status   Status
	Value    any
	Context  Context
	Output   any
	Error    error
	Tags     []string
	Children map[string]*Actor

	state   core.State
	machine *Machine
}

// Started reports whether the actor has been started.
func (s Snapshot) Started() bool { return s.Status != "" && s.Status != StatusNotStarted }

func (s Snapshot) hasState() bool { return s.machine != nil && s.state.Model() != nil }

// Matches reports whether the state node with the given id is active. Ids
// are dotted paths from the root, e.g. "playing.normal".
func (s Snapshot) Matches(id string) bool {
	if !s.hasState() {
		return false
	}
	return s.state.Active(id)
}

// HasTag reports whether an active node carries tag.
func (s Snapshot) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// Can reports whether ev would take a transition. Guards are evaluated,
// no action runs.
func (s Snapshot) Can(ev Event) bool {
	if !s.hasState() || s.Status != StatusActive {
		return false
	}
	ts, err := s.machine.model.Enabled(s.state, ev)
	return err == nil && len(ts) > 0
}

// Meta returns the metadata of active nodes keyed by node id.
func (s Snapshot) Meta() map[string]map[string]any {
	if !s.hasState() {
		return nil
	}
	return s.state.Meta()
}

// StateIDs returns the active node ids in document order.
func (s Snapshot) StateIDs() []string {
	if !s.hasState() {
		return nil
	}
	return s.state.IDs()
}

func (s Snapshot) summary() *core.SnapshotSummary {
	sum := &core.SnapshotSummary{Status: s.Status, Value: s.Value, Output: s.Output}
	if s.Context != nil {
		sum.Context = s.Context.Snapshot()
	}
	if s.Error != nil {
		sum.Error = s.Error.Error()
	}
	return sum
}
