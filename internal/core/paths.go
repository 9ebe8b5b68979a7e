package core

import (
	"sort"

	"github.com/comalice/actorx/internal/primitives"
)

// properAncestors returns the ancestors of n from its parent upward, stopping
// before stop (exclusive). A nil stop walks to the root.
func properAncestors(n, stop *StateNode) []*StateNode {
	var out []*StateNode
	for p := n.Parent; p != nil && p != stop; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// isDescendant reports whether n is strictly below ancestor.
func isDescendant(n, ancestor *StateNode) bool {
	if ancestor == nil {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// findLCCA returns the least common compound ancestor of the given nodes.
// The root counts as compound even when it is parallel.
func findLCCA(nodes []*StateNode) *StateNode {
	head := nodes[0]
	for _, anc := range properAncestors(head, nil) {
		if anc.Type != primitives.Compound && anc.Parent != nil {
			continue
		}
		all := true
		for _, n := range nodes[1:] {
			if !isDescendant(n, anc) {
				all = false
				break
			}
		}
		if all {
			return anc
		}
	}
	return head.model.Root
}

// documentOrder sorts nodes for entry: ancestors before descendants, earlier
// siblings first.
func documentOrder(nodes []*StateNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
}

// exitOrder sorts nodes for exit: descendants before ancestors.
func exitOrder(nodes []*StateNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order > nodes[j].Order })
}

// nodeSet is an insertion-agnostic set of nodes.
type nodeSet map[*StateNode]struct{}

func (s nodeSet) has(n *StateNode) bool {
	_, ok := s[n]
	return ok
}

func (s nodeSet) add(n *StateNode) { s[n] = struct{}{} }

func (s nodeSet) sorted() []*StateNode {
	out := make([]*StateNode, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	documentOrder(out)
	return out
}

func (s nodeSet) clone() nodeSet {
	out := make(nodeSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// isInFinalState reports whether a compound node has an active final child,
// or whether every region of a parallel node is in a final state.
func isInFinalState(n *StateNode, active nodeSet) bool {
	switch n.Type {
	case primitives.Compound:
		for _, c := range n.Children {
			if c.Type == primitives.Final && active.has(c) {
				return true
			}
		}
	case primitives.Parallel:
		for _, c := range n.Regions() {
			if !isInFinalState(c, active) {
				return false
			}
		}
		return true
	case primitives.Final:
		return active.has(n)
	}
	return false
}
