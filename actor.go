package actorx

import (
	"errors"
	"sync"

	"github.com/aidarkhanov/nanoid/v2"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx/internal/core"
)

type lifecycle int

const (
	lifecycleCreated lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

type mail struct {
	event Event
	from  *Actor

	// Timer mail is dropped at dequeue when its timer was cancelled or
	// replaced after firing. fire, when set, runs instead of processing event.
	timer string
	gen   uint64
	fire  func()
}

// Actor is a running instance of a Logic. It owns its snapshot, its mailbox,
// its children and its timers. Events are processed one at a time, in the
// order they were sent.
type Actor struct {
	id        string
	sessionID string
	systemID  string
	src       string
	logic     Logic
	rt        logicRuntime
	parent    *Actor
	system    *System
	input     any
	restore   *PersistedSnapshot
	invoked   *core.InvokeDef
	runner    ActionRunner
	log       *logrus.Entry

	mu            sync.Mutex
	state         lifecycle
	processing    bool
	stopRequested bool
	mailbox       []mail
	snapshot      Snapshot
	observers     []observerEntry
	nextObserver  int
	children      map[string]*Actor
	childOrder    []string
	timers        map[string]timerEntry
	timerGen      uint64
}

// CreateActor creates the root actor of a new system. The actor does nothing
// until Start is called.
func CreateActor(logic Logic, opts ...ActorOption) *Actor {
	o := defaultActorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.fill(nil)
	sys := newSystem(o)
	a := newActor(logic, nil, sys, o)
	sys.root = a
	return a
}

func newActor(logic Logic, parent *Actor, sys *System, o actorOptions) *Actor {
	id := o.id
	if id == "" {
		if parent == nil {
			id = logicID(logic)
		} else {
			id = generateID()
		}
	}
	a := &Actor{
		id:        id,
		sessionID: uuid.NewString(),
		systemID:  o.systemID,
		src:       o.src,
		logic:     logic,
		rt:        logic.newRuntime(),
		parent:    parent,
		system:    sys,
		input:     o.input,
		restore:   o.snapshot,
		runner:    o.runner,
		snapshot:  Snapshot{Status: StatusNotStarted},
		children:  make(map[string]*Actor),
		timers:    make(map[string]timerEntry),
	}
	fields := logrus.Fields{"actor": id, "session": a.sessionID}
	if a.systemID != "" {
		fields["system_id"] = a.systemID
	}
	a.log = o.logger.WithFields(fields)
	return a
}

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func generateID() string {
	id, err := nanoid.GenerateString(idAlphabet, 12)
	if err != nil {
		return ulid.Make().String()
	}
	return id
}

func logicID(l Logic) string {
	if m, ok := l.(*Machine); ok {
		return m.ID()
	}
	return l.Kind()
}

// ID returns the actor id, unique among its siblings.
func (a *Actor) ID() string { return a.id }

// SessionID returns the globally unique id of this actor instance.
func (a *Actor) SessionID() string { return a.sessionID }

// SystemID returns the id the actor is registered under, if any.
func (a *Actor) SystemID() string { return a.systemID }

// Parent returns the parent actor, nil for the root.
func (a *Actor) Parent() *Actor { return a.parent }

// System returns the system the actor belongs to.
func (a *Actor) System() *System { return a.system }

// Logic returns the logic the actor runs.
func (a *Actor) Logic() Logic { return a.logic }

// GetSnapshot returns the current snapshot. Before Start it has status
// StatusNotStarted.
func (a *Actor) GetSnapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// Start enters the initial state (or the persisted one), registers the actor
// and emits the first snapshot. Calling Start again is a no-op.
//
// The returned error is the failure that put the actor in error status
// during start, or ErrDuplicateSystemID when registration failed.
func (a *Actor) Start() error {
	a.mu.Lock()
	if a.state != lifecycleCreated {
		a.mu.Unlock()
		return nil
	}
	a.state = lifecycleRunning
	a.processing = true
	a.mu.Unlock()

	if a.systemID != "" {
		if err := a.system.register(a.systemID, a); err != nil {
			a.mu.Lock()
			a.state = lifecycleStopped
			a.processing = false
			a.mu.Unlock()
			return err
		}
	}
	a.inspect(core.InspectRegister, nil, nil, nil)
	a.log.Debug("actor started")

	snap, err := a.rt.start(a, a.restore)
	if err != nil {
		a.fail(err)
		a.drain()
		return err
	}
	a.emit(snap)
	a.settle(snap)
	a.drain()
	return nil
}

// Send enqueues ev. Unless another goroutine is already processing this
// actor's mailbox, the mailbox is drained before Send returns. Events sent
// before Start or after the actor stopped are dropped.
func (a *Actor) Send(ev Event) {
	a.deliver(ev, nil)
}

// Stop stops the root actor and with it the whole system. Children are
// stopped by their parent; calling Stop on a child only logs a warning.
//
// When another goroutine is processing the actor's mailbox, Stop only
// marks the actor and returns at once: that goroutine stops it after the
// current macrostep, and mail still queued behind it is discarded. Stop
// called from inside an action behaves the same way.
func (a *Actor) Stop() {
	if a.parent != nil {
		a.log.Warn("stop ignored: only the root actor can be stopped directly, children are stopped by their parent")
		return
	}
	a.stopInternal()
}

func (a *Actor) deliver(ev Event, from *Actor) {
	a.enqueue(mail{event: ev, from: from})
}

func (a *Actor) enqueue(m mail) {
	a.mu.Lock()
	if a.state != lifecycleRunning {
		a.mu.Unlock()
		a.log.WithField("event", m.event.Type).Debug("event dropped: actor is not running")
		return
	}
	a.mailbox = append(a.mailbox, m)
	if a.processing {
		a.mu.Unlock()
		return
	}
	a.processing = true
	a.mu.Unlock()
	a.drain()
}

// drain processes mail until the mailbox is empty. The caller must have set
// processing.
func (a *Actor) drain() {
	for {
		a.mu.Lock()
		if a.stopRequested && a.state == lifecycleRunning {
			a.stopRequested = false
			a.state = lifecycleStopped
			a.processing = false
			a.mu.Unlock()
			a.shutdown()
			return
		}
		if a.state != lifecycleRunning || len(a.mailbox) == 0 {
			a.processing = false
			if a.state != lifecycleRunning {
				a.mailbox = nil
			}
			a.mu.Unlock()
			return
		}
		m := a.mailbox[0]
		a.mailbox = a.mailbox[1:]
		if m.timer != "" {
			cur, ok := a.timers[m.timer]
			if !ok || cur.gen != m.gen {
				a.mu.Unlock()
				a.log.WithField("timer", m.timer).Debug("stale timer dropped")
				continue
			}
			delete(a.timers, m.timer)
		}
		a.mu.Unlock()
		if m.fire != nil {
			m.fire()
			continue
		}
		a.process(m)
	}
}

func (a *Actor) process(m mail) {
	ev := m.event
	if selfOnly(ev.Type) && m.from != a {
		a.log.WithField("event", ev.Type).Warn("internal event from another sender ignored")
		return
	}
	a.inspect(core.InspectEvent, &ev, m.from, nil)
	snap, changed, err := a.rt.receive(a, ev)
	if err != nil {
		a.fail(err)
		return
	}
	if changed {
		a.emit(snap)
	}
	a.settle(snap)
}

func (a *Actor) settle(snap Snapshot) {
	switch snap.Status {
	case StatusDone:
		a.finish(snap)
	case StatusError:
		a.fail(snap.Error)
	}
}

// setSnapshot records snap without notifying anyone.
func (a *Actor) setSnapshot(snap Snapshot) {
	a.mu.Lock()
	snap.Children = a.childMap()
	a.snapshot = snap
	a.mu.Unlock()
}

func (a *Actor) emit(snap Snapshot) {
	a.mu.Lock()
	snap.Children = a.childMap()
	a.snapshot = snap
	observers := append([]observerEntry(nil), a.observers...)
	a.mu.Unlock()

	for _, o := range observers {
		a.notify(func() { o.observer.Next(snap) })
	}
	a.inspect(core.InspectState, nil, nil, &snap)

	if a.parent != nil && a.invoked != nil {
		ev := PrefixSnapshot + a.id
		if _, ok := a.invoked.Node.On[ev]; ok {
			a.parent.deliver(NewEvent(ev, snap), a)
		}
	}
}

// notify calls into observer code, which must not take the actor down.
func (a *Actor) notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("observer panicked")
		}
	}()
	fn()
}

// finish ends the actor after it reached its done status.
func (a *Actor) finish(snap Snapshot) {
	a.mu.Lock()
	if a.state == lifecycleStopped {
		a.mu.Unlock()
		return
	}
	a.state = lifecycleStopped
	observers := a.takeObservers()
	a.mu.Unlock()

	a.teardown()
	for _, o := range observers {
		a.notify(o.observer.Complete)
	}
	a.inspect(core.InspectStop, nil, nil, &snap)
	a.log.Debug("actor done")
	if a.parent != nil {
		a.parent.deliver(NewEvent(PrefixDoneActor+a.id, snap.Output), a)
	}
}

// fail moves the actor to error status and stops it.
func (a *Actor) fail(err error) {
	a.mu.Lock()
	if a.state == lifecycleStopped {
		a.mu.Unlock()
		return
	}
	a.state = lifecycleStopped
	snap := a.snapshot
	snap.Status = StatusError
	snap.Error = err
	a.snapshot = snap
	observers := a.takeObservers()
	a.mu.Unlock()

	a.log.WithError(err).Error("actor failed")
	a.teardown()
	for _, o := range observers {
		a.notify(func() { o.observer.Error(err) })
	}
	a.inspect(core.InspectState, nil, nil, &snap)
	a.inspect(core.InspectStop, nil, nil, &snap)
	if a.parent != nil {
		a.parent.deliver(NewEvent(PrefixError+a.id, err), a)
	}
}

func (a *Actor) stopInternal() {
	a.mu.Lock()
	switch {
	case a.state == lifecycleStopped:
		a.mu.Unlock()
		return
	case a.state == lifecycleCreated:
		a.state = lifecycleStopped
		a.snapshot.Status = StatusStopped
		a.mu.Unlock()
		return
	case a.processing:
		// the goroutine draining the mailbox stops the actor once the
		// current step is over
		a.stopRequested = true
		a.mu.Unlock()
		return
	}
	a.state = lifecycleStopped
	a.mu.Unlock()
	a.shutdown()
}

// shutdown finishes a stop requested by the parent or the host.
func (a *Actor) shutdown() {
	a.teardown()

	a.mu.Lock()
	snap := a.snapshot
	if snap.Status == StatusActive || snap.Status == StatusNotStarted {
		snap.Status = StatusStopped
	}
	snap.Children = nil
	a.snapshot = snap
	observers := a.takeObservers()
	a.mu.Unlock()

	for _, o := range observers {
		a.notify(func() { o.observer.Next(snap) })
		a.notify(o.observer.Complete)
	}
	a.inspect(core.InspectStop, nil, nil, &snap)
	a.log.Debug("actor stopped")
}

// teardown cancels timers, stops children depth-first, releases the logic
// and the system registration.
func (a *Actor) teardown() {
	a.mu.Lock()
	timers := a.timers
	a.timers = make(map[string]timerEntry)
	children := a.orderedChildren()
	a.children = make(map[string]*Actor)
	a.childOrder = nil
	a.mailbox = nil
	a.mu.Unlock()

	for _, t := range timers {
		t.timer.Stop()
	}
	for i := len(children) - 1; i >= 0; i-- {
		children[i].stopInternal()
	}
	a.rt.stop(a)
	if a.systemID != "" {
		a.system.unregister(a.systemID, a)
	}
	if a.parent != nil {
		a.parent.removeChild(a)
	}
}

// takeObservers must be called with mu held.
func (a *Actor) takeObservers() []observerEntry {
	out := a.observers
	a.observers = nil
	return out
}

// Child returns the child with the given id.
func (a *Actor) Child(id string) (*Actor, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.children[id]
	return c, ok
}

// Children returns the live children in creation order.
func (a *Actor) Children() []*Actor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderedChildren()
}

// orderedChildren must be called with mu held.
func (a *Actor) orderedChildren() []*Actor {
	out := make([]*Actor, 0, len(a.childOrder))
	for _, id := range a.childOrder {
		out = append(out, a.children[id])
	}
	return out
}

// childMap must be called with mu held.
func (a *Actor) childMap() map[string]*Actor {
	if len(a.children) == 0 {
		return nil
	}
	out := make(map[string]*Actor, len(a.children))
	for id, c := range a.children {
		out[id] = c
	}
	return out
}

func (a *Actor) addChild(c *Actor) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != lifecycleRunning {
		return ErrNotRunning
	}
	if _, exists := a.children[c.id]; exists {
		return core.Errorf(core.CodeActionExecution, a.id, "child %q already exists", c.id)
	}
	a.children[c.id] = c
	a.childOrder = append(a.childOrder, c.id)
	return nil
}

func (a *Actor) removeChild(c *Actor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.children[c.id] != c {
		return
	}
	delete(a.children, c.id)
	for i, id := range a.childOrder {
		if id == c.id {
			a.childOrder = append(a.childOrder[:i], a.childOrder[i+1:]...)
			break
		}
	}
}

func (a *Actor) stopChild(id string) {
	if c, ok := a.Child(id); ok {
		c.stopInternal()
	}
}

// Spawn creates and starts a child actor whose lifetime is independent of
// the parent's states. It ends when the child finishes, when a StopChild
// action names it, or when the parent stops.
func (a *Actor) Spawn(logic Logic, opts ...ActorOption) (*Actor, error) {
	child, _, err := a.spawnChild(logic, "", nil, opts...)
	return child, err
}

// spawnChild reports whether the child got as far as starting its logic;
// failures after that point were already delivered to a as error events.
func (a *Actor) spawnChild(logic Logic, src string, def *core.InvokeDef, opts ...ActorOption) (*Actor, bool, error) {
	o := defaultActorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.src = src
	o.fill(a)
	child := newActor(logic, a, a.system, o)
	child.invoked = def
	if err := a.addChild(child); err != nil {
		return nil, false, err
	}
	if err := child.Start(); err != nil {
		a.removeChild(child)
		if errors.Is(err, ErrDuplicateSystemID) {
			return nil, false, err
		}
		return child, true, err
	}
	return child, true, nil
}

func (a *Actor) inspect(typ string, ev *Event, source *Actor, snap *Snapshot) {
	if a.system.inspector == nil {
		return
	}
	rec := InspectionEvent{
		Type:      typ,
		ActorID:   a.id,
		SessionID: a.sessionID,
		SystemID:  a.systemID,
		Event:     ev,
	}
	if a.parent != nil {
		rec.ParentSessionID = a.parent.sessionID
	}
	if source != nil {
		rec.SourceSessionID = source.sessionID
	}
	if snap != nil {
		rec.Snapshot = snap.summary()
	}
	a.system.inspect(rec)
}
