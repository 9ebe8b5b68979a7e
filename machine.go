package actorx

import (
	"fmt"

	"github.com/comalice/actorx/internal/core"
	"github.com/comalice/actorx/internal/extensibility"
	"github.com/comalice/actorx/internal/primitives"
)

// Implementations resolves the string references of a MachineConfig.
type Implementations struct {
	Actions map[string]Action
	Guards  map[string]Guard
	Actors  map[string]Logic
	Delays  map[string]DelayFunc
}

func (i Implementations) merge(o Implementations) Implementations {
	return Implementations{
		Actions: mergeMap(i.Actions, o.Actions),
		Guards:  mergeMap(i.Guards, o.Guards),
		Actors:  mergeMap(i.Actors, o.Actors),
		Delays:  mergeMap(i.Delays, o.Delays),
	}
}

func mergeMap[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// MachineOption configures DefineMachine.
type MachineOption func(*machineOptions)

type machineOptions struct {
	impl          Implementations
	maxMicrosteps int
}

// WithImplementations provides named actions, guards, actors and delays.
// Repeated options are merged, later names win.
func WithImplementations(impl Implementations) MachineOption {
	return func(o *machineOptions) { o.impl = o.impl.merge(impl) }
}

// WithMaxMicrosteps caps eventless and raised-event chains within one step.
// Exceeding the cap is a runtime fault.
func WithMaxMicrosteps(n int) MachineOption {
	return func(o *machineOptions) { o.maxMicrosteps = n }
}

// Machine is a compiled statechart. It is immutable and may back any number
// of actors.
type Machine struct {
	config        MachineConfig
	model         *core.Model
	impl          Implementations
	maxMicrosteps int
}

// DefineMachine validates cfg, resolves its references and compiles it.
// String guards that are not registered names are compiled as comparison
// expressions such as "count >= 3" or "event.ok == true".
func DefineMachine(cfg MachineConfig, opts ...MachineOption) (*Machine, error) {
	var o machineOptions
	for _, opt := range opts {
		opt(&o)
	}
	expr := extensibility.NewExpressionGuardEvaluator()
	model, err := core.Compile(cfg, core.Options{
		Implementations: core.Implementations{
			Actions:    o.impl.Actions,
			Guards:     o.impl.Guards,
			Delays:     o.impl.Delays,
			Expression: expr.Compile,
		},
		MaxMicrosteps: o.maxMicrosteps,
	})
	if err != nil {
		return nil, err
	}
	m := &Machine{config: cfg, model: model, impl: o.impl, maxMicrosteps: o.maxMicrosteps}
	for _, n := range model.Nodes {
		for _, def := range n.Invoke {
			if _, _, err := m.resolveLogic(def.Src); err != nil {
				return nil, core.Wrap(core.CodeInvalidModel, n.Label(), err)
			}
		}
	}
	return m, nil
}

// MustDefineMachine is DefineMachine for package-level definitions; it
// panics on an invalid model.
func MustDefineMachine(cfg MachineConfig, opts ...MachineOption) *Machine {
	m, err := DefineMachine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Provide returns a copy of the machine with impl merged over its current
// implementations.
func (m *Machine) Provide(impl Implementations) (*Machine, error) {
	return DefineMachine(m.config, WithImplementations(m.impl.merge(impl)), WithMaxMicrosteps(m.maxMicrosteps))
}

// ID returns the machine id.
func (m *Machine) ID() string { return m.model.ID }

// Version returns the structural hash of the definition.
func (m *Machine) Version() string { return m.model.Version }

// Config returns the definition the machine was compiled from.
func (m *Machine) Config() MachineConfig { return m.config }

// Model returns the compiled model, for visualizers and tooling.
func (m *Machine) Model() *core.Model { return m.model }

// Kind implements Logic.
func (m *Machine) Kind() string { return "machine" }

// InitialSnapshot resolves the initial state without creating an actor.
// Side-effect actions are not executed.
func (m *Machine) InitialSnapshot(input any) (Snapshot, error) {
	res, err := m.model.Initial(m.config.InitialContext(input), input)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshotOf(res.State), nil
}

// Transition resolves ev against snap without creating an actor. It runs
// guards and assignments only; the returned snapshot is what an actor would
// hold after the step.
func (m *Machine) Transition(snap Snapshot, ev Event) (Snapshot, error) {
	if snap.machine != m || snap.state.Model() == nil {
		return snap, fmt.Errorf("snapshot does not belong to machine %s", m.ID())
	}
	res, err := m.model.Transition(snap.state, ev)
	if err != nil {
		return snap, err
	}
	return m.snapshotOf(res.State), nil
}

func (m *Machine) resolveLogic(src any) (Logic, string, error) {
	switch s := src.(type) {
	case Logic:
		return s, "", nil
	case string:
		l, ok := m.impl.Actors[s]
		if !ok {
			return nil, "", fmt.Errorf("unknown actor logic %q", s)
		}
		return l, s, nil
	}
	return nil, "", fmt.Errorf("unsupported actor source %T", src)
}

func (m *Machine) snapshotOf(s core.State) Snapshot {
	status := s.Status
	if status == "" {
		status = StatusActive
	}
	return Snapshot{
		Status:  status,
		Value:   s.Value(),
		Context: s.Context,
		Output:  s.Output,
		Tags:    s.Tags(),
		state:   s,
		machine: m,
	}
}

func (m *Machine) newRuntime() logicRuntime {
	return &machineRuntime{machine: m}
}

type machineRuntime struct {
	machine *Machine
	state   core.State
}

func (r *machineRuntime) start(a *Actor, restore *PersistedSnapshot) (Snapshot, error) {
	if restore != nil {
		return r.restore(a, restore)
	}
	m := r.machine
	res, err := m.model.Initial(m.config.InitialContext(a.input), a.input)
	if err != nil {
		return Snapshot{}, err
	}
	r.state = res.State
	snap := m.snapshotOf(r.state)
	a.setSnapshot(snap)
	return snap, a.execute(res.Actions)
}

func (r *machineRuntime) receive(a *Actor, ev Event) (Snapshot, bool, error) {
	res, err := r.machine.model.Transition(r.state, ev)
	if err != nil {
		return r.machine.snapshotOf(r.state), false, err
	}
	if !res.Changed {
		return r.machine.snapshotOf(r.state), false, nil
	}
	r.state = res.State
	snap := r.machine.snapshotOf(r.state)
	a.setSnapshot(snap)
	return snap, true, a.execute(res.Actions)
}

func (r *machineRuntime) stop(*Actor) {}

func (r *machineRuntime) persist(snap Snapshot, ps *PersistedSnapshot) {
	s := snap.state
	if s.Model() == nil {
		return
	}
	ps.MachineID = s.Model().ID
	ps.Version = s.Model().Version
	ps.States = s.Leaves()
	ps.Context = s.Context.Snapshot()
	ps.History = s.History.Entries()
	ps.Value = s.Value()
	ps.Output = s.Output
}

// restore rebuilds the configuration without running entry actions, then
// re-arms the delayed transitions and invocations of the active nodes.
func (r *machineRuntime) restore(a *Actor, ps *PersistedSnapshot) (Snapshot, error) {
	m := r.machine
	if ps.Version != "" && ps.Version != m.model.Version {
		a.log.WithField("persisted_version", ps.Version).Warn("persisted snapshot was taken from a different machine definition")
	}
	status := ps.Status
	if status == StatusStopped || status == StatusNotStarted {
		status = StatusActive
	}
	st, err := m.model.Restore(ps.States, primitives.Context(ps.Context), core.HistoryFrom(ps.History), status)
	if err != nil {
		return Snapshot{}, err
	}
	st.Output = ps.Output
	r.state = st
	snap := m.snapshotOf(st)
	a.setSnapshot(snap)
	if st.Status != StatusActive {
		return snap, nil
	}

	init := NewEvent(EventInit, a.input)
	invoked := map[string]bool{}
	for _, n := range st.Nodes() {
		for _, d := range n.After {
			a.schedule(d.Event, d.Delay(st.Context, init), mail{event: NewEvent(d.Event, nil)})
		}
		for _, def := range n.Invoke {
			invoked[def.ID] = true
			var input any
			if def.Input != nil {
				input = def.Input(st.Context, init)
			}
			a.startInvoke(def, input, ps.Children[def.ID])
		}
	}
	for id, child := range ps.Children {
		if invoked[id] || child == nil || child.Src == "" {
			continue
		}
		logic, src, err := m.resolveLogic(child.Src)
		if err != nil {
			a.log.WithError(err).WithField("child", id).Warn("persisted child dropped")
			continue
		}
		opts := []ActorOption{WithID(id), WithSnapshot(*child)}
		if child.SystemID != "" {
			opts = append(opts, WithSystemID(child.SystemID))
		}
		if _, _, err := a.spawnChild(logic, src, nil, opts...); err != nil {
			a.log.WithError(err).WithField("child", id).Warn("persisted child could not be restored")
		}
	}
	return snap, nil
}
