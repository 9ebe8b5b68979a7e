package core

import (
	"github.com/comalice/actorx/internal/primitives"
)

// Result is the outcome of resolving one macrostep.
type Result struct {
	State State
	// Actions are the side effects to execute, in order.
	Actions []Executable
	// Changed is false when the event enabled no transition.
	Changed bool
}

// Initial enters the initial configuration and settles it. input is carried
// as the data of the init event.
func (m *Model) Initial(ctx primitives.Context, input any) (Result, error) {
	st := &step{
		model:   m,
		active:  nodeSet{},
		ctx:     ctx.Clone(),
		history: NewHistory(),
		status:  StatusActive,
		event:   primitives.NewEvent(primitives.EventInit, input),
	}
	if err := st.microstep([]*Transition{{Targets: []*StateNode{m.Root}}}); err != nil {
		return Result{State: st.state()}, err
	}
	if err := st.settle(); err != nil {
		return Result{State: st.state()}, err
	}
	return Result{State: st.state(), Actions: st.execs, Changed: true}, nil
}

// Transition resolves ev against s. It is a pure function of its inputs:
// guards and assigners run, every other action is returned unexecuted.
func (m *Model) Transition(s State, ev primitives.Event) (Result, error) {
	if s.Status != StatusActive {
		return Result{State: s}, nil
	}
	st := &step{
		model:   m,
		active:  s.active.clone(),
		ctx:     s.Context,
		history: s.History.Clone(),
		status:  StatusActive,
		event:   ev,
	}
	enabled, err := st.selectTransitions(ev)
	if err != nil {
		return Result{State: s}, err
	}
	if len(enabled) == 0 {
		return Result{State: s}, nil
	}
	if err := st.microstep(enabled); err != nil {
		return Result{State: s}, err
	}
	if err := st.settle(); err != nil {
		return Result{State: s}, err
	}
	return Result{State: st.state(), Actions: st.execs, Changed: true}, nil
}

// Enabled returns the transitions ev would take from s, without side effects.
func (m *Model) Enabled(s State, ev primitives.Event) ([]*Transition, error) {
	if s.Status != StatusActive {
		return nil, nil
	}
	st := &step{model: m, active: s.active, ctx: s.Context, event: ev}
	return st.selectTransitions(ev)
}

// step holds the working state of one macrostep.
type step struct {
	model    *Model
	active   nodeSet
	ctx      primitives.Context
	history  History
	status   Status
	output   any
	event    primitives.Event
	internal []primitives.Event
	execs    []Executable
}

func (st *step) state() State {
	return State{
		Context: st.ctx,
		History: st.history,
		Status:  st.status,
		Output:  st.output,
		model:   st.model,
		active:  st.active,
	}
}

// settle runs eventless transitions and drains internal events until neither
// enables anything. The chain is capped by the model's MaxMicrosteps.
func (st *step) settle() error {
	steps := 0
	for st.status == StatusActive {
		enabled, err := st.selectEventless()
		if err != nil {
			return err
		}
		if len(enabled) == 0 {
			if len(st.internal) == 0 {
				break
			}
			st.event, st.internal = st.internal[0], st.internal[1:]
			if enabled, err = st.selectTransitions(st.event); err != nil {
				return err
			}
			if len(enabled) == 0 {
				continue
			}
		}
		steps++
		if steps > st.model.MaxMicrosteps {
			return Errorf(CodeRuntimeFault, st.model.ID, "exceeded %d microsteps while settling %q", st.model.MaxMicrosteps, st.event.Type)
		}
		if err := st.microstep(enabled); err != nil {
			return err
		}
	}
	if st.status == StatusDone {
		return st.exitAll()
	}
	return nil
}

func (st *step) atomics() []*StateNode {
	var out []*StateNode
	for _, n := range st.active.sorted() {
		if n.IsLeaf() {
			out = append(out, n)
		}
	}
	return out
}

// selectTransitions collects, for every active leaf in document order, the
// first enabled candidate found walking from the leaf to the root.
func (st *step) selectTransitions(ev primitives.Event) ([]*Transition, error) {
	return st.collect(func(n *StateNode) (*Transition, error) {
		t, err := st.firstEnabled(n.On[ev.Type], ev)
		if t != nil || err != nil || ev.Type == primitives.EventInit {
			return t, err
		}
		return st.firstEnabled(n.On[primitives.EventWildcard], ev)
	})
}

func (st *step) selectEventless() ([]*Transition, error) {
	return st.collect(func(n *StateNode) (*Transition, error) {
		return st.firstEnabled(n.Always, st.event)
	})
}

func (st *step) collect(pick func(*StateNode) (*Transition, error)) ([]*Transition, error) {
	var enabled []*Transition
	seen := map[*Transition]bool{}
	for _, leaf := range st.atomics() {
		for n := leaf; n != nil; n = n.Parent {
			t, err := pick(n)
			if err != nil {
				return nil, err
			}
			if t != nil {
				if !seen[t] {
					seen[t] = true
					enabled = append(enabled, t)
				}
				break
			}
		}
	}
	return st.removeConflicting(enabled), nil
}

func (st *step) firstEnabled(candidates []*Transition, ev primitives.Event) (*Transition, error) {
	for _, t := range candidates {
		ok, err := st.check(t, ev)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}

func (st *step) check(t *Transition, ev primitives.Event) (ok bool, err error) {
	if t.Guard == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, recovered(CodeGuardEvaluation, t.Source.Label(), r)
		}
	}()
	ok, err = t.Guard.Check(GuardArgs{
		Context: st.ctx,
		Event:   ev,
		In: func(id string) bool {
			n, found := st.model.nodes[id]
			return found && st.active.has(n)
		},
	})
	if err != nil {
		return false, Wrap(CodeGuardEvaluation, t.Source.Label(), err)
	}
	return ok, nil
}

// removeConflicting drops transitions whose exit sets intersect an earlier
// one, preferring transitions whose source is deeper.
func (st *step) removeConflicting(enabled []*Transition) []*Transition {
	if len(enabled) < 2 {
		return enabled
	}
	var filtered []*Transition
	for _, t1 := range enabled {
		preempted := false
		var remove []*Transition
		exit1 := st.exitSet([]*Transition{t1})
		for _, t2 := range filtered {
			if !intersects(exit1, st.exitSet([]*Transition{t2})) {
				continue
			}
			if isDescendant(t1.Source, t2.Source) {
				remove = append(remove, t2)
			} else {
				preempted = true
				break
			}
		}
		if preempted {
			continue
		}
		for _, r := range remove {
			for i, f := range filtered {
				if f == r {
					filtered = append(filtered[:i], filtered[i+1:]...)
					break
				}
			}
		}
		filtered = append(filtered, t1)
	}
	return filtered
}

func intersects(a, b []*StateNode) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// domain returns the node whose descendants a transition exits and enters.
// Targetless transitions have no domain.
func (st *step) domain(t *Transition) *StateNode {
	targets := st.effectiveTargets(t)
	if len(targets) == 0 || t.Source == nil {
		return nil
	}
	if !t.Reenter {
		inside := true
		for _, n := range targets {
			if n != t.Source && !isDescendant(n, t.Source) {
				inside = false
				break
			}
		}
		if inside {
			return t.Source
		}
	}
	return findLCCA(append([]*StateNode{t.Source}, targets...))
}

// effectiveTargets replaces history targets with what they would restore.
func (st *step) effectiveTargets(t *Transition) []*StateNode {
	var out []*StateNode
	for _, n := range t.Targets {
		if n.Type != primitives.History {
			out = append(out, n)
			continue
		}
		if ids, ok := st.history.Restore(n.ID); ok {
			for _, id := range ids {
				if rn, found := st.model.nodes[id]; found {
					out = append(out, rn)
				}
			}
		} else if n.HistoryDefault != nil {
			out = append(out, st.effectiveTargets(n.HistoryDefault)...)
		} else {
			out = append(out, historyFallback(n)...)
		}
	}
	return out
}

// historyFallback is entered for a history state with no record and no
// default: the parent's initial state, or every region of a parallel parent.
func historyFallback(h *StateNode) []*StateNode {
	if h.Parent.Initial != nil {
		return []*StateNode{h.Parent.Initial}
	}
	return h.Parent.Regions()
}

func (st *step) exitSet(ts []*Transition) []*StateNode {
	set := nodeSet{}
	for _, t := range ts {
		d := st.domain(t)
		if d == nil {
			continue
		}
		for n := range st.active {
			if isDescendant(n, d) {
				set.add(n)
			}
		}
	}
	out := make([]*StateNode, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	exitOrder(out)
	return out
}

func (st *step) microstep(ts []*Transition) error {
	if err := st.exitStates(ts); err != nil {
		return err
	}
	for _, t := range ts {
		label := ""
		if t.Source != nil {
			label = t.Source.Label()
		}
		if err := st.execute(t.Actions, label); err != nil {
			return err
		}
	}
	return st.enterStates(ts)
}

func (st *step) exitStates(ts []*Transition) error {
	exits := st.exitSet(ts)
	for _, s := range exits {
		for _, h := range s.Children {
			if h.Type != primitives.History {
				continue
			}
			var ids []string
			for _, n := range st.active.sorted() {
				if h.HistoryType == primitives.Deep {
					if n.IsLeaf() && isDescendant(n, s) {
						ids = append(ids, n.ID)
					}
				} else if n.Parent == s {
					ids = append(ids, n.ID)
				}
			}
			st.history.RecordExit(h.ID, ids)
		}
	}
	for _, s := range exits {
		if err := st.exitNode(s); err != nil {
			return err
		}
		delete(st.active, s)
	}
	return nil
}

func (st *step) exitNode(s *StateNode) error {
	if err := st.execute(s.Exit, s.Label()); err != nil {
		return err
	}
	for _, d := range s.After {
		st.emit(CancelAction{ID: d.Event}, s.Label())
	}
	for _, def := range s.Invoke {
		st.emit(StopInvokeAction{ID: def.ID}, s.Label())
	}
	return nil
}

// exitAll runs exit work for every active node once the machine is done.
// The configuration itself is kept so the final value stays observable.
func (st *step) exitAll() error {
	nodes := st.active.sorted()
	exitOrder(nodes)
	for _, s := range nodes {
		if err := st.exitNode(s); err != nil {
			return err
		}
	}
	return nil
}

type entrySet struct {
	states         nodeSet
	defaultEntry   nodeSet
	historyContent map[*StateNode][]Action
}

func (st *step) computeEntrySet(ts []*Transition) entrySet {
	es := entrySet{states: nodeSet{}, defaultEntry: nodeSet{}, historyContent: map[*StateNode][]Action{}}
	for _, t := range ts {
		for _, s := range t.Targets {
			st.addDescendants(s, &es)
		}
		d := st.domain(t)
		for _, s := range st.effectiveTargets(t) {
			st.addAncestors(s, d, &es)
		}
		if d != nil && d.Type == primitives.Parallel {
			st.fillRegions(d, &es)
		}
	}
	return es
}

func (st *step) addDescendants(s *StateNode, es *entrySet) {
	if s.Type == primitives.History {
		var targets []*StateNode
		if ids, ok := st.history.Restore(s.ID); ok {
			for _, id := range ids {
				if n, found := st.model.nodes[id]; found {
					targets = append(targets, n)
				}
			}
		} else if s.HistoryDefault != nil {
			es.historyContent[s.Parent] = s.HistoryDefault.Actions
			targets = s.HistoryDefault.Targets
		} else {
			targets = historyFallback(s)
		}
		for _, n := range targets {
			st.addDescendants(n, es)
		}
		for _, n := range targets {
			st.addAncestors(n, s.Parent, es)
		}
		return
	}

	es.states.add(s)
	switch s.Type {
	case primitives.Compound:
		es.defaultEntry.add(s)
		if st.coveredBelow(s, es) {
			return
		}
		st.addDescendants(s.Initial, es)
		st.addAncestors(s.Initial, s, es)
	case primitives.Parallel:
		st.fillRegions(s, es)
	}
}

// coveredBelow reports whether some node already chosen for entry, or kept
// active, lies inside s.
func (st *step) coveredBelow(s *StateNode, es *entrySet) bool {
	for n := range es.states {
		if isDescendant(n, s) {
			return true
		}
	}
	for n := range st.active {
		if isDescendant(n, s) {
			return true
		}
	}
	return false
}

func (st *step) fillRegions(p *StateNode, es *entrySet) {
	for _, region := range p.Regions() {
		if es.states.has(region) || st.active.has(region) || st.coveredBelow(region, es) {
			continue
		}
		st.addDescendants(region, es)
	}
}

func (st *step) addAncestors(s, stop *StateNode, es *entrySet) {
	for _, anc := range properAncestors(s, stop) {
		es.states.add(anc)
		if anc.Type == primitives.Parallel {
			st.fillRegions(anc, es)
		}
	}
}

func (st *step) enterStates(ts []*Transition) error {
	es := st.computeEntrySet(ts)
	for _, s := range es.states.sorted() {
		if st.active.has(s) {
			continue
		}
		st.active.add(s)

		for _, d := range s.After {
			delay := d.Delay(st.ctx, st.event)
			st.emit(ScheduleAction{ID: d.Event, Delay: delay, Event: primitives.NewEvent(d.Event, nil)}, s.Label())
		}
		if err := st.execute(s.Entry, s.Label()); err != nil {
			return err
		}
		if actions, ok := es.historyContent[s]; ok {
			if err := st.execute(actions, s.Label()); err != nil {
				return err
			}
		}
		for _, def := range s.Invoke {
			var input any
			if def.Input != nil {
				input = def.Input(st.ctx, st.event)
			}
			st.emit(InvokeAction{Def: def, Input: input}, s.Label())
		}

		if s.Type == primitives.Final {
			st.completed(s)
		}
	}
	return nil
}

// completed raises done events after a final state was entered.
func (st *step) completed(s *StateNode) {
	parent := s.Parent
	if parent.Type == primitives.Parallel {
		// A final region only completes its parallel parent once every
		// sibling region is final too.
		st.parallelDone(parent)
		return
	}
	if parent.Parent == nil {
		st.finish(s)
		return
	}
	var out any
	if s.Output != nil {
		out = s.Output(st.ctx, st.event)
	}
	st.internal = append(st.internal, primitives.NewEvent(parent.DoneEvent(), out))
	st.parallelDone(parent.Parent)
}

// parallelDone walks up through parallel ancestors, raising done events for
// each one whose regions are all final.
func (st *step) parallelDone(p *StateNode) {
	for ; p != nil && p.Type == primitives.Parallel; p = p.Parent {
		if !isInFinalState(p, st.active) {
			return
		}
		if p.Parent == nil {
			st.finish(nil)
			return
		}
		st.internal = append(st.internal, primitives.NewEvent(p.DoneEvent(), nil))
	}
}

func (st *step) finish(final *StateNode) {
	st.status = StatusDone
	switch {
	case st.model.Output != nil:
		st.output = st.model.Output(st.ctx, st.event)
	case final != nil && final.Output != nil:
		st.output = final.Output(st.ctx, st.event)
	}
}

func (st *step) emit(a Action, node string) {
	st.execs = append(st.execs, Executable{Action: a, Context: st.ctx, Event: st.event, Node: node})
}

// execute applies assign and raise actions in place and queues the rest.
func (st *step) execute(actions []Action, node string) error {
	for _, a := range actions {
		switch act := a.(type) {
		case AssignAction:
			patch, err := st.assign(act, node)
			if err != nil {
				return err
			}
			st.ctx = st.ctx.Merge(patch)
		case RaiseAction:
			ev, err := st.raise(act, node)
			if err != nil {
				return err
			}
			st.internal = append(st.internal, ev)
		default:
			st.emit(a, node)
		}
	}
	return nil
}

func (st *step) assign(a AssignAction, node string) (patch primitives.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(CodeActionExecution, node, r)
		}
	}()
	patch, err = a.Fn(st.ctx, st.event)
	if err != nil {
		return nil, Wrap(CodeActionExecution, node, err)
	}
	return patch, nil
}

func (st *step) raise(a RaiseAction, node string) (ev primitives.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(CodeActionExecution, node, r)
		}
	}()
	ev, err = a.Fn(st.ctx, st.event)
	if err != nil {
		return ev, Wrap(CodeActionExecution, node, err)
	}
	return ev, nil
}
