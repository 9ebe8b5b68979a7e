package core

import "github.com/comalice/actorx/internal/primitives"

// validateModel runs the semantic checks that need resolved references.
func validateModel(m *Model) error {
	for _, n := range m.Nodes {
		switch n.Type {
		case primitives.Compound:
			if n.Initial == nil {
				return Errorf(CodeInvalidModel, n.Label(), "compound state has no initial state")
			}
		case primitives.History:
			if err := validateHistory(n); err != nil {
				return err
			}
		}
		for _, t := range n.Always {
			if err := validateEventless(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateHistory rejects history states whose default entry would loop back
// into themselves or merely repeat the parent's initial state.
func validateHistory(h *StateNode) error {
	parent := h.Parent
	if parent == nil {
		return Errorf(CodeInvalidModel, h.Label(), "history state needs a compound or parallel parent")
	}
	if h.HistoryDefault == nil {
		if parent.Initial == h {
			return Errorf(CodeInvalidModel, h.Label(), "history state is its parent's initial state and has no default target")
		}
		if parent.Type == primitives.Compound && parent.Initial == nil {
			return Errorf(CodeInvalidModel, h.Label(), "history state has no default target and its parent has no initial state")
		}
		return nil
	}
	for _, target := range h.HistoryDefault.Targets {
		if target == h || !isDescendant(target, parent) {
			return Errorf(CodeInvalidModel, h.Label(), "history default target %q must be a descendant of %q other than the history state", target.Label(), parent.Label())
		}
		if target.Type == primitives.History {
			return Errorf(CodeInvalidModel, h.Label(), "history default target %q is itself a history state", target.Label())
		}
		if target == parent.Initial {
			return Errorf(CodeInvalidModel, h.Label(), "history default target %q is already the initial state of %q", target.Label(), parent.Label())
		}
	}
	return nil
}

// validateEventless rejects unguarded eventless transitions that cannot leave
// their source.
func validateEventless(t *Transition) error {
	if t.Guard != nil {
		return nil
	}
	if len(t.Targets) == 0 {
		return Errorf(CodeInvalidModel, t.Source.Label(), "unguarded eventless transition without target never settles")
	}
	for _, target := range t.Targets {
		if target == t.Source {
			return Errorf(CodeInvalidModel, t.Source.Label(), "unguarded eventless transition targets its own source")
		}
	}
	return nil
}
