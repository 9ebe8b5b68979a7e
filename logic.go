package actorx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comalice/actorx/clock"
	"github.com/comalice/actorx/internal/extensibility"
)

// Logic is the behavior an Actor runs: a *Machine, or one of the logics
// built by FromPromise, FromTransition, FromEventSource and FromCallback.
type Logic interface {
	// Kind names the logic family, e.g. "machine" or "promise".
	Kind() string
	newRuntime() logicRuntime
}

// logicRuntime is the per-actor state of a Logic. All methods except
// persist run on the goroutine draining the actor's mailbox.
type logicRuntime interface {
	start(a *Actor, restore *PersistedSnapshot) (Snapshot, error)
	// receive reports whether the snapshot changed. A returned error moves
	// the actor to error status.
	receive(a *Actor, ev Event) (Snapshot, bool, error)
	stop(a *Actor)
	persist(snap Snapshot, ps *PersistedSnapshot)
}

// Internal events, delivered through the actor's own mailbox.
const (
	eventPromiseResolve = "actorx.promise.resolve"
	eventPromiseReject  = "actorx.promise.reject"
	eventSourceNext     = "actorx.source.next"
	eventSourceDone     = "actorx.source.done"
)

// selfOnly reports whether t is an internal event that only the actor itself
// may deliver to its own mailbox.
func selfOnly(t string) bool {
	switch t {
	case eventPromiseResolve, eventPromiseReject, eventSourceNext, eventSourceDone:
		return true
	}
	return false
}

// restoredTerminal returns the snapshot of a persisted terminal actor.
func restoredTerminal(ps *PersistedSnapshot) (Snapshot, bool) {
	if ps == nil {
		return Snapshot{}, false
	}
	switch ps.Status {
	case StatusDone:
		return Snapshot{Status: StatusDone, Value: ps.Value, Output: ps.Output}, true
	case StatusError:
		return Snapshot{Status: StatusError, Value: ps.Value, Error: errors.New(ps.Error)}, true
	}
	return Snapshot{}, false
}

// PromiseFunc is asynchronous work. ctx is cancelled when the actor stops.
type PromiseFunc func(ctx context.Context, input any) (any, error)

type promiseLogic struct{ fn PromiseFunc }

// FromPromise runs fn once on its own goroutine. The actor is done with the
// result as output, or fails with the returned error.
func FromPromise(fn PromiseFunc) Logic {
	return &promiseLogic{fn: fn}
}

func (*promiseLogic) Kind() string { return "promise" }

func (l *promiseLogic) newRuntime() logicRuntime { return &promiseRuntime{fn: l.fn} }

type promiseRuntime struct {
	fn     PromiseFunc
	cancel context.CancelFunc
}

func (r *promiseRuntime) start(a *Actor, restore *PersistedSnapshot) (Snapshot, error) {
	if snap, ok := restoredTerminal(restore); ok {
		return snap, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		out, err := r.call(ctx, a.input)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			a.deliver(NewEvent(eventPromiseReject, err), a)
			return
		}
		a.deliver(NewEvent(eventPromiseResolve, out), a)
	}()
	return Snapshot{Status: StatusActive}, nil
}

func (r *promiseRuntime) call(ctx context.Context, input any) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("promise panicked: %v", p)
		}
	}()
	return r.fn(ctx, input)
}

func (r *promiseRuntime) receive(_ *Actor, ev Event) (Snapshot, bool, error) {
	switch ev.Type {
	case eventPromiseResolve:
		return Snapshot{Status: StatusDone, Output: ev.Data}, true, nil
	case eventPromiseReject:
		err, _ := ev.Data.(error)
		if err == nil {
			err = fmt.Errorf("promise rejected: %v", ev.Data)
		}
		return Snapshot{Status: StatusActive}, false, err
	}
	return Snapshot{Status: StatusActive}, false, nil
}

func (r *promiseRuntime) stop(*Actor) {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *promiseRuntime) persist(snap Snapshot, ps *PersistedSnapshot) {
	ps.Output = snap.Output
}

type transitionLogic[S any] struct {
	fn      func(state S, ev Event) (S, error)
	initial func(input any) S
}

// FromTransition builds a reducer logic: every event maps the current state
// to the next one. The state is the snapshot Value. initial may be nil for
// the zero value of S.
func FromTransition[S any](fn func(state S, ev Event) (S, error), initial func(input any) S) Logic {
	return &transitionLogic[S]{fn: fn, initial: initial}
}

func (*transitionLogic[S]) Kind() string { return "transition" }

func (l *transitionLogic[S]) newRuntime() logicRuntime { return &transitionRuntime[S]{logic: l} }

type transitionRuntime[S any] struct {
	logic *transitionLogic[S]
	state S
}

func (r *transitionRuntime[S]) start(a *Actor, restore *PersistedSnapshot) (Snapshot, error) {
	if restore != nil {
		s, err := decodeState[S](restore.Value)
		if err != nil {
			return Snapshot{}, fmt.Errorf("restore transition state: %w", err)
		}
		r.state = s
		return Snapshot{Status: StatusActive, Value: s}, nil
	}
	if r.logic.initial != nil {
		r.state = r.logic.initial(a.input)
	}
	return Snapshot{Status: StatusActive, Value: r.state}, nil
}

// decodeState accepts the state as is, or as the generic form a persister
// decoded it into.
func decodeState[S any](v any) (S, error) {
	if s, ok := v.(S); ok {
		return s, nil
	}
	var s S
	if v == nil {
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(raw, &s)
	return s, err
}

func (r *transitionRuntime[S]) receive(_ *Actor, ev Event) (snap Snapshot, changed bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transition panicked on %s: %v", ev.Type, p)
		}
	}()
	next, err := r.logic.fn(r.state, ev)
	if err != nil {
		return Snapshot{Status: StatusActive, Value: r.state}, false, err
	}
	r.state = next
	return Snapshot{Status: StatusActive, Value: next}, true, nil
}

func (r *transitionRuntime[S]) stop(*Actor) {}

func (r *transitionRuntime[S]) persist(snap Snapshot, ps *PersistedSnapshot) {
	ps.Value = snap.Value
}

// EventSource produces events until its channel is closed.
type EventSource = extensibility.EventSource

// NewChannelEventSource wraps ch as an EventSource.
func NewChannelEventSource(ch chan Event) EventSource {
	return extensibility.NewChannelEventSource(ch)
}

// NewIntervalEventSource emits eventType every d on clk until stopped.
func NewIntervalEventSource(clk clock.Clock, eventType string, data any, d time.Duration) EventSource {
	return extensibility.NewIntervalEventSource(clk, eventType, data, d)
}

type eventSourceLogic struct {
	fn func(ctx context.Context, input any) EventSource
}

// FromEventSource forwards every event of the source to the parent actor
// and keeps the last one as the snapshot Value. The actor is done when the
// source closes its channel.
func FromEventSource(fn func(ctx context.Context, input any) EventSource) Logic {
	return &eventSourceLogic{fn: fn}
}

func (*eventSourceLogic) Kind() string { return "eventSource" }

func (l *eventSourceLogic) newRuntime() logicRuntime { return &eventSourceRuntime{fn: l.fn} }

type eventSourceRuntime struct {
	fn     func(ctx context.Context, input any) EventSource
	cancel context.CancelFunc
	source EventSource
}

func (r *eventSourceRuntime) start(a *Actor, restore *PersistedSnapshot) (snap Snapshot, err error) {
	if snap, ok := restoredTerminal(restore); ok {
		return snap, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	defer func() {
		if p := recover(); p != nil {
			cancel()
			r.source = nil
			snap, err = Snapshot{}, fmt.Errorf("event source constructor panicked: %v", p)
		}
	}()
	r.source = r.fn(ctx, a.input)
	if r.source == nil {
		cancel()
		return Snapshot{}, errors.New("event source constructor returned nil")
	}
	events := r.source.Events()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					a.deliver(NewEvent(eventSourceDone, nil), a)
					return
				}
				a.deliver(NewEvent(eventSourceNext, ev), a)
			}
		}
	}()
	return Snapshot{Status: StatusActive}, nil
}

func (r *eventSourceRuntime) receive(a *Actor, ev Event) (Snapshot, bool, error) {
	switch ev.Type {
	case eventSourceNext:
		inner, _ := ev.Data.(Event)
		if a.parent != nil {
			a.parent.deliver(inner, a)
		}
		return Snapshot{Status: StatusActive, Value: inner}, true, nil
	case eventSourceDone:
		snap := a.GetSnapshot()
		snap.Status = StatusDone
		return snap, true, nil
	}
	return a.GetSnapshot(), false, nil
}

func (r *eventSourceRuntime) stop(*Actor) {
	if r.cancel != nil {
		r.cancel()
	}
	if r.source == nil {
		return
	}
	if s, ok := r.source.(extensibility.StoppableEventSource); ok {
		s.Stop()
	}
}

func (r *eventSourceRuntime) persist(Snapshot, *PersistedSnapshot) {}

// CallbackScope is handed to a callback logic.
type CallbackScope struct {
	Input any

	actor    *Actor
	receiver func(Event)
}

// SendBack sends ev to the parent actor.
func (s *CallbackScope) SendBack(ev Event) {
	if s.actor.parent != nil {
		s.actor.parent.deliver(ev, s.actor)
	}
}

// Receive registers fn for events sent to the callback actor.
func (s *CallbackScope) Receive(fn func(Event)) {
	s.receiver = fn
}

type callbackLogic struct {
	fn func(scope *CallbackScope) (cleanup func())
}

// FromCallback runs fn when the actor starts. fn may talk to the parent
// through the scope and returns a cleanup function run on stop.
func FromCallback(fn func(scope *CallbackScope) (cleanup func())) Logic {
	return &callbackLogic{fn: fn}
}

func (*callbackLogic) Kind() string { return "callback" }

func (l *callbackLogic) newRuntime() logicRuntime { return &callbackRuntime{fn: l.fn} }

type callbackRuntime struct {
	fn      func(scope *CallbackScope) (cleanup func())
	scope   *CallbackScope
	cleanup func()
}

func (r *callbackRuntime) start(a *Actor, _ *PersistedSnapshot) (snap Snapshot, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("callback panicked: %v", p)
		}
	}()
	r.scope = &CallbackScope{Input: a.input, actor: a}
	r.cleanup = r.fn(r.scope)
	return Snapshot{Status: StatusActive}, nil
}

func (r *callbackRuntime) receive(_ *Actor, ev Event) (snap Snapshot, changed bool, err error) {
	snap = Snapshot{Status: StatusActive}
	if r.scope == nil || r.scope.receiver == nil {
		return snap, false, nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("callback receiver panicked on %s: %v", ev.Type, p)
		}
	}()
	r.scope.receiver(ev)
	return snap, false, nil
}

func (r *callbackRuntime) stop(a *Actor) {
	if r.cleanup == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			a.log.WithField("panic", p).Error("callback cleanup panicked")
		}
	}()
	r.cleanup()
}

func (r *callbackRuntime) persist(Snapshot, *PersistedSnapshot) {}
