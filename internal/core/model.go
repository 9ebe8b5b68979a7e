// Package core provides the runtime core tier of the engine: the compiled
// state node model, the pure transition resolver, history bookkeeping, the
// error taxonomy, and the interfaces pluggable components implement.
package core

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/comalice/actorx/internal/primitives"
)

// DefaultMaxMicrosteps caps eventless and internal-event chains in one macrostep.
const DefaultMaxMicrosteps = 100

// StateNode is a compiled, immutable node of a machine.
type StateNode struct {
	// ID is the dotted path from the root ("" for the root itself).
	ID          string
	Key         string
	Type        primitives.StateType
	HistoryType primitives.HistoryType
	Description string
	Parent      *StateNode
	Children    []*StateNode
	Initial     *StateNode
	On          map[string][]*Transition
	Always      []*Transition
	After       []*DelayedTransition
	Entry       []Action
	Exit        []Action
	Invoke      []*InvokeDef
	Tags        []string
	Meta        map[string]any
	Output      OutputFunc

	// HistoryDefault is entered when a history state has nothing recorded.
	HistoryDefault *Transition

	// Order is the node's position in document order; Depth is 0 at the root.
	Order int
	Depth int

	model *Model
}

// Label is the node id, or the machine id for the root.
func (n *StateNode) Label() string {
	if n.Parent == nil {
		return n.Key
	}
	return n.ID
}

// DoneEvent is the event raised when this node reaches a final configuration.
func (n *StateNode) DoneEvent() string {
	return primitives.PrefixDoneState + n.Label()
}

// IsLeaf reports whether the node is atomic or final.
func (n *StateNode) IsLeaf() bool {
	return n.Type == primitives.Atomic || n.Type == primitives.Final
}

// Regions returns the children that take part in configurations (history
// pseudo-states excluded).
func (n *StateNode) Regions() []*StateNode {
	out := make([]*StateNode, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Type != primitives.History {
			out = append(out, c)
		}
	}
	return out
}

// Events lists the event types this node reacts to, sorted.
func (n *StateNode) Events() []string {
	out := make([]string, 0, len(n.On))
	for ev := range n.On {
		out = append(out, ev)
	}
	sort.Strings(out)
	return out
}

// Transition is a compiled transition candidate.
type Transition struct {
	Source  *StateNode
	Event   string // "" for eventless
	Targets []*StateNode
	Guard   Guard
	Actions []Action
	Reenter bool
	// Order is the declaration index within the owning list.
	Order int
}

// DelayedTransition arms a timer on entry to its node. When the timer fires
// the node receives Event, whose candidates live in the node's On map.
type DelayedTransition struct {
	Event string
	Delay DelayFunc
}

// InvokeDef describes an invoked actor bound to a state.
type InvokeDef struct {
	ID       string
	SystemID string
	Src      any
	Input    InputFunc
	Node     *StateNode
}

// Implementations resolves string references found in configs.
type Implementations struct {
	Actions map[string]Action
	Guards  map[string]Guard
	Delays  map[string]DelayFunc
	// Expression compiles a string guard that is not a registered name.
	Expression func(expr string) (Guard, error)
}

// Options control compilation.
type Options struct {
	Implementations
	MaxMicrosteps int
}

// Model is the compiled, immutable blueprint of a machine. It is safe to share
// between any number of actors.
type Model struct {
	ID            string
	Version       string
	Root          *StateNode
	Nodes         []*StateNode // document order
	Config        primitives.MachineConfig
	Output        OutputFunc
	MaxMicrosteps int

	nodes map[string]*StateNode
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (*StateNode, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Compile validates cfg and builds its Model. Every failure is an
// ErrInvalidModel.
func Compile(cfg primitives.MachineConfig, opts Options) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Code: CodeInvalidModel, Message: err.Error(), Cause: err}
	}

	m := &Model{
		ID:            cfg.ID,
		Version:       primitives.ComputeVersion(&cfg),
		Config:        cfg,
		MaxMicrosteps: opts.MaxMicrosteps,
		nodes:         make(map[string]*StateNode),
	}
	if m.MaxMicrosteps <= 0 {
		m.MaxMicrosteps = DefaultMaxMicrosteps
	}

	c := &compiler{model: m, impl: opts.Implementations}
	rootCfg := cfg.Root()
	root, err := c.build(rootCfg, nil)
	if err != nil {
		return nil, err
	}
	m.Root = root
	if m.Output, err = toOutput(cfg.Output); err != nil {
		return nil, Errorf(CodeInvalidModel, cfg.ID, "machine output: %v", err)
	}

	for _, n := range m.Nodes {
		if err := c.link(n, c.configs[n]); err != nil {
			return nil, err
		}
	}
	if err := validateModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

type compiler struct {
	model   *Model
	impl    Implementations
	configs map[*StateNode]*primitives.StateConfig
}

func (c *compiler) build(sc *primitives.StateConfig, parent *StateNode) (*StateNode, error) {
	n := &StateNode{
		Key:         sc.ID,
		Type:        sc.EffectiveType(),
		HistoryType: sc.History,
		Description: sc.Description,
		Parent:      parent,
		Tags:        sc.Tags,
		Meta:        sc.Meta,
		On:          make(map[string][]*Transition),
		Order:       len(c.model.Nodes),
		model:       c.model,
	}
	if parent != nil {
		n.ID = joinPath(parent.ID, sc.ID)
		n.Depth = parent.Depth + 1
	}
	if n.Type == primitives.History && n.HistoryType == "" {
		n.HistoryType = primitives.Shallow
	}
	if c.configs == nil {
		c.configs = make(map[*StateNode]*primitives.StateConfig)
	}
	c.configs[n] = sc
	c.model.Nodes = append(c.model.Nodes, n)
	c.model.nodes[n.ID] = n

	var err error
	if n.Entry, err = c.actions(n, sc.Entry); err != nil {
		return nil, err
	}
	if n.Exit, err = c.actions(n, sc.Exit); err != nil {
		return nil, err
	}
	if n.Output, err = toOutput(sc.Output); err != nil {
		return nil, Errorf(CodeInvalidModel, n.Label(), "output: %v", err)
	}

	for _, child := range sc.Children {
		cn, err := c.build(child, n)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cn)
	}
	return n, nil
}

// link resolves everything that may reference other nodes.
func (c *compiler) link(n *StateNode, sc *primitives.StateConfig) error {
	if sc.Initial != "" {
		for _, child := range n.Children {
			if child.Key == sc.Initial {
				n.Initial = child
			}
		}
		if n.Initial == nil {
			return Errorf(CodeInvalidModel, n.Label(), "initial state %q is not a child", sc.Initial)
		}
	}

	for _, ev := range sortedKeys(sc.On) {
		ts, err := c.transitions(n, ev, sc.On[ev])
		if err != nil {
			return err
		}
		n.On[ev] = append(n.On[ev], ts...)
	}

	var err error
	if n.Always, err = c.transitions(n, "", sc.Always); err != nil {
		return err
	}

	if len(sc.OnDone) > 0 {
		ts, err := c.transitions(n, n.DoneEvent(), sc.OnDone)
		if err != nil {
			return err
		}
		n.On[n.DoneEvent()] = ts
	}

	if err := c.delayed(n, sc.After); err != nil {
		return err
	}
	if err := c.invokes(n, sc.Invoke); err != nil {
		return err
	}

	if n.Type == primitives.History && len(sc.Target) > 0 {
		t := &Transition{Source: n}
		for _, ref := range sc.Target {
			target, err := c.model.resolveTarget(n, ref)
			if err != nil {
				return err
			}
			t.Targets = append(t.Targets, target)
		}
		n.HistoryDefault = t
	}
	return nil
}

func (c *compiler) transitions(n *StateNode, event string, list primitives.TransitionList) ([]*Transition, error) {
	out := make([]*Transition, 0, len(list))
	for i, tc := range list {
		t := &Transition{Source: n, Event: event, Reenter: tc.Reenter, Order: i}
		for _, ref := range tc.Target {
			target, err := c.model.resolveTarget(n, ref)
			if err != nil {
				return nil, err
			}
			t.Targets = append(t.Targets, target)
		}
		var err error
		if t.Guard, err = c.guard(n, tc.Guard); err != nil {
			return nil, err
		}
		if t.Actions, err = c.actions(n, tc.Actions); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *compiler) delayed(n *StateNode, after []primitives.DelayedTransitionConfig) error {
	byKey := map[string]*DelayedTransition{}
	for _, d := range after {
		key := d.Key()
		dt, ok := byKey[key]
		if !ok {
			dt = &DelayedTransition{Event: primitives.PrefixAfter + key + "." + n.Label()}
			if fixed, isFixed := d.FixedDelay(); isFixed {
				dt.Delay = func(primitives.Context, primitives.Event) time.Duration { return fixed }
			} else if fn, found := c.impl.Delays[d.Delay]; found {
				dt.Delay = fn
			} else {
				return Errorf(CodeInvalidModel, n.Label(), "unknown delay %q", d.Delay)
			}
			byKey[key] = dt
			n.After = append(n.After, dt)
		}
		ts, err := c.transitions(n, dt.Event, primitives.TransitionList{d.TransitionConfig})
		if err != nil {
			return err
		}
		ts[0].Order = len(n.On[dt.Event])
		n.On[dt.Event] = append(n.On[dt.Event], ts...)
	}
	return nil
}

func (c *compiler) invokes(n *StateNode, invokes []primitives.InvokeConfig) error {
	for i, ic := range invokes {
		if ic.Src == nil {
			return Errorf(CodeInvalidModel, n.Label(), "invoke %d has no src", i)
		}
		def := &InvokeDef{
			ID:       ic.ID,
			SystemID: ic.SystemID,
			Src:      ic.Src,
			Input:    toInput(ic.Input),
			Node:     n,
		}
		if def.ID == "" {
			def.ID = n.Label() + ":invocation[" + strconv.Itoa(i) + "]"
		}
		n.Invoke = append(n.Invoke, def)

		for _, h := range []struct {
			prefix string
			list   primitives.TransitionList
		}{
			{primitives.PrefixDoneActor, ic.OnDone},
			{primitives.PrefixError, ic.OnError},
			{primitives.PrefixSnapshot, ic.OnSnapshot},
		} {
			if len(h.list) == 0 {
				continue
			}
			ev := h.prefix + def.ID
			ts, err := c.transitions(n, ev, h.list)
			if err != nil {
				return err
			}
			n.On[ev] = append(n.On[ev], ts...)
		}
	}
	return nil
}

func (c *compiler) actions(n *StateNode, refs []primitives.ActionRef) ([]Action, error) {
	out := make([]Action, 0, len(refs))
	for _, ref := range refs {
		switch a := ref.(type) {
		case Action:
			out = append(out, a)
		case string:
			impl, ok := c.impl.Actions[a]
			if !ok {
				return nil, Errorf(CodeInvalidModel, n.Label(), "unknown action %q", a)
			}
			out = append(out, impl)
		case func(primitives.Context, primitives.Event):
			out = append(out, ExecAction{Fn: func(ctx primitives.Context, ev primitives.Event) error {
				a(ctx, ev)
				return nil
			}})
		case func(primitives.Context, primitives.Event) error:
			out = append(out, ExecAction{Fn: a})
		default:
			return nil, Errorf(CodeInvalidModel, n.Label(), "unsupported action reference %T", ref)
		}
	}
	return out, nil
}

func (c *compiler) guard(n *StateNode, ref primitives.GuardRef) (Guard, error) {
	switch g := ref.(type) {
	case nil:
		return nil, nil
	case Guard:
		return g, nil
	case string:
		if impl, ok := c.impl.Guards[g]; ok {
			return impl, nil
		}
		if c.impl.Expression != nil && strings.ContainsAny(g, "<>=!") {
			expr, err := c.impl.Expression(g)
			if err != nil {
				return nil, &Error{Code: CodeInvalidModel, Node: n.Label(), Message: err.Error(), Cause: err}
			}
			return expr, nil
		}
		return nil, Errorf(CodeInvalidModel, n.Label(), "unknown guard %q", g)
	case func(primitives.Context, primitives.Event) bool:
		return GuardFunc(g), nil
	}
	return nil, Errorf(CodeInvalidModel, n.Label(), "unsupported guard reference %T", ref)
}

// resolveTarget implements target reference syntax: "#abs.path", ".child",
// "sibling", "sibling.child", falling back to an absolute path.
func (m *Model) resolveTarget(source *StateNode, ref string) (*StateNode, error) {
	var candidates []string
	switch {
	case strings.HasPrefix(ref, "#"):
		path := ref[1:]
		if path == m.ID {
			return m.Root, nil
		}
		candidates = append(candidates, path, strings.TrimPrefix(path, m.ID+"."))
	case strings.HasPrefix(ref, "."):
		candidates = append(candidates, joinPath(source.ID, ref[1:]))
	default:
		if source.Parent != nil {
			candidates = append(candidates, joinPath(source.Parent.ID, ref))
		} else {
			candidates = append(candidates, ref)
		}
		candidates = append(candidates, ref)
	}
	for _, id := range candidates {
		if n, ok := m.nodes[id]; ok && n.Parent != nil {
			return n, nil
		}
	}
	return nil, Errorf(CodeInvalidModel, source.Label(), "unknown target %q", ref)
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toOutput(v any) (OutputFunc, error) {
	switch o := v.(type) {
	case nil:
		return nil, nil
	case OutputFunc:
		return o, nil
	case func(primitives.Context, primitives.Event) any:
		return o, nil
	case func(primitives.Context) any:
		return func(ctx primitives.Context, _ primitives.Event) any { return o(ctx) }, nil
	}
	if isFunc(v) {
		return nil, fmt.Errorf("unsupported output function %T", v)
	}
	return func(primitives.Context, primitives.Event) any { return v }, nil
}

func toInput(v any) InputFunc {
	switch in := v.(type) {
	case nil:
		return nil
	case InputFunc:
		return in
	case func(primitives.Context, primitives.Event) any:
		return in
	}
	return func(primitives.Context, primitives.Event) any { return v }
}

func isFunc(v any) bool {
	return reflect.TypeOf(v).Kind() == reflect.Func
}
