package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/comalice/actorx/internal/core"
	"github.com/comalice/actorx/internal/primitives"
)

// DefaultVisualizer renders compiled machines as Graphviz DOT.
type DefaultVisualizer struct{}

// ExportDOT generates DOT source for the machine. Active leaves are filled,
// active compound and parallel clusters are outlined.
func (v *DefaultVisualizer) ExportDOT(model *core.Model, current []string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", model.ID)
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	active := make(map[string]bool, len(current))
	for _, id := range current {
		active[id] = true
	}

	for _, child := range model.Root.Children {
		renderNode(&buf, child, active, "  ")
	}
	for _, edge := range collectEdges(model) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", edge.From, edge.To, edge.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the machine config to JSON. Configs holding Go
// functions fail to encode.
func (v *DefaultVisualizer) ExportJSON(config primitives.MachineConfig) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

// Edge represents a transition edge.
type Edge struct {
	From  string
	To    string
	Label string
}

// collectEdges lists transitions in document order, events sorted per node.
func collectEdges(model *core.Model) []Edge {
	var edges []Edge
	for _, n := range model.Nodes {
		for _, ev := range n.Events() {
			for _, t := range n.On[ev] {
				edges = appendEdges(edges, n, t, edgeLabel(n, ev))
			}
		}
		for _, t := range n.Always {
			edges = appendEdges(edges, n, t, "always")
		}
	}
	return edges
}

func appendEdges(edges []Edge, n *core.StateNode, t *core.Transition, label string) []Edge {
	from := n.ID
	if n.Parent == nil {
		from = n.Key
	}
	for _, target := range t.Targets {
		edges = append(edges, Edge{From: from, To: target.ID, Label: label})
	}
	return edges
}

func edgeLabel(n *core.StateNode, ev string) string {
	if rest, ok := strings.CutPrefix(ev, primitives.PrefixAfter); ok {
		return "after " + strings.TrimSuffix(rest, "."+n.Label())
	}
	return ev
}

func renderNode(buf *bytes.Buffer, n *core.StateNode, active map[string]bool, indent string) {
	switch {
	case n.Type == primitives.History:
		label := "H"
		if n.HistoryType == primitives.Deep {
			label = "H*"
		}
		fmt.Fprintf(buf, "%s%q [label=%q shape=circle];\n", indent, n.ID, label)

	case n.IsLeaf():
		attrs := []string{fmt.Sprintf("label=%q", n.Key)}
		if n.Type == primitives.Final {
			attrs = append(attrs, "shape=doublecircle")
		}
		if active[n.ID] {
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightgreen")
		}
		fmt.Fprintf(buf, "%s%q [%s];\n", indent, n.ID, strings.Join(attrs, " "))

	default:
		inner := indent + "  "
		label, style := n.Key, "rounded"
		if n.Type == primitives.Parallel {
			label, style = n.Key+" (parallel)", "dashed"
		}
		fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, "cluster_"+n.ID)
		fmt.Fprintf(buf, "%slabel=%q;\n", inner, label)
		fmt.Fprintf(buf, "%sstyle=%s;\n", inner, style)
		if active[n.ID] {
			fmt.Fprintf(buf, "%scolor=orange;\n", inner)
		}
		// edges into and out of a cluster attach to this node
		fmt.Fprintf(buf, "%s%q [label=%q shape=ellipse];\n", inner, n.ID, n.Key)
		for _, child := range n.Children {
			renderNode(buf, child, active, inner)
		}
		fmt.Fprintf(buf, "%s}\n", indent)
	}
}
