package actorx

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx/internal/core"
)

// Assign merges the context patch returned by fn. Assignments are applied
// while the step is resolved, so later actions of the same step see them.
func Assign(fn func(ctx Context, ev Event) Context) Action {
	return core.AssignAction{Fn: func(ctx Context, ev Event) (Context, error) {
		return fn(ctx, ev), nil
	}}
}

// AssignKey sets a single context key.
func AssignKey(key string, fn func(ctx Context, ev Event) any) Action {
	return core.AssignAction{Fn: func(ctx Context, ev Event) (Context, error) {
		return Context{key: fn(ctx, ev)}, nil
	}}
}

// Raise queues ev as an internal event. Internal events are processed
// before the step settles, ahead of any external event.
func Raise(ev Event) Action {
	return core.RaiseAction{Fn: func(Context, Event) (Event, error) { return ev, nil }}
}

// RaiseFunc raises the event computed by fn.
func RaiseFunc(fn func(ctx Context, ev Event) Event) Action {
	return core.RaiseAction{Fn: func(ctx Context, ev Event) (Event, error) { return fn(ctx, ev), nil }}
}

// Do is a named side effect. A returned error moves the actor to error
// status.
func Do(name string, fn func(ctx Context, ev Event) error) Action {
	return core.ExecAction{Name: name, Fn: fn}
}

// Cancel disarms the delayed send or delayed transition with the given id.
func Cancel(id string) Action {
	return core.CancelAction{ID: id}
}

// SendOption configures a send action.
type SendOption func(*sendAction)

// WithDelay delivers the event after d on the system clock.
func WithDelay(d time.Duration) SendOption {
	return func(s *sendAction) { s.delay = d }
}

// WithSendID names a delayed send so Cancel can disarm it.
func WithSendID(id string) SendOption {
	return func(s *sendAction) { s.id = id }
}

type sendKind string

const (
	sendToTarget sendKind = "sendTo"
	sendToParent sendKind = "sendParent"
	forwardTo    sendKind = "forward"
)

type sendAction struct {
	kind   sendKind
	target func(ctx Context, ev Event) string
	event  func(ctx Context, ev Event) Event
	delay  time.Duration
	id     string
}

func (s sendAction) Type() string { return "actorx." + string(s.kind) }

// SendTo sends an event to another actor. target is a child id or system id
// (string) or a func(Context, Event) string; event is an Event or a
// func(Context, Event) Event.
func SendTo(target any, event any, opts ...SendOption) Action {
	s := sendAction{kind: sendToTarget, target: targetFn(target), event: eventFn(event)}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// SendParent sends an event to the parent actor.
func SendParent(event any, opts ...SendOption) Action {
	s := sendAction{kind: sendToParent, event: eventFn(event)}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Forward re-sends the current event to target.
func Forward(target any) Action {
	return sendAction{kind: forwardTo, target: targetFn(target), event: func(_ Context, ev Event) Event { return ev }}
}

func targetFn(v any) func(Context, Event) string {
	switch t := v.(type) {
	case string:
		return func(Context, Event) string { return t }
	case func(Context, Event) string:
		return t
	}
	return nil
}

func eventFn(v any) func(Context, Event) Event {
	switch e := v.(type) {
	case Event:
		return func(Context, Event) Event { return e }
	case string:
		return func(Context, Event) Event { return NewEvent(e, nil) }
	case func(Context, Event) Event:
		return e
	}
	return nil
}

func (s sendAction) exec(a *Actor, x core.Executable) error {
	if s.event == nil || (s.kind != sendToParent && s.target == nil) {
		return core.Errorf(core.CodeActionExecution, x.Node, "%s: unsupported target or event", s.Type())
	}
	ev := s.event(x.Context, x.Event)
	var target string
	if s.target != nil {
		target = s.target(x.Context, x.Event)
	}
	deliver := func() {
		to := a.parent
		if s.kind != sendToParent {
			to, _ = a.lookup(target)
		}
		if to == nil {
			a.log.WithFields(logrus.Fields{"event": ev.Type, "target": target}).Warn("send dropped: no such actor")
			return
		}
		to.deliver(ev, a)
	}
	if s.delay > 0 || s.id != "" {
		id := s.id
		if id == "" {
			id = generateID()
		}
		a.schedule(id, s.delay, mail{event: ev, fire: deliver})
		return nil
	}
	deliver()
	return nil
}

type spawnAction struct {
	src  any
	opts []ActorOption
}

func (spawnAction) Type() string { return "actorx.spawn" }

// Spawn starts a child actor from a Logic or a name registered in
// Implementations.Actors. Use WithID to address the child later.
func Spawn(src any, opts ...ActorOption) Action {
	return spawnAction{src: src, opts: opts}
}

func (s spawnAction) exec(a *Actor, x core.Executable) error {
	m, ok := a.logic.(*Machine)
	if !ok {
		return core.Errorf(core.CodeActionExecution, x.Node, "spawn outside a machine")
	}
	logic, src, err := m.resolveLogic(s.src)
	if err != nil {
		return core.Wrap(core.CodeActionExecution, x.Node, err)
	}
	_, started, err := a.spawnChild(logic, src, nil, s.opts...)
	if err != nil && !started {
		a.log.WithError(err).Warn("spawn failed")
		var o actorOptions
		for _, opt := range s.opts {
			opt(&o)
		}
		a.deliver(NewEvent(PrefixError+o.id, err), nil)
	}
	return nil
}

type stopChildAction struct {
	id func(Context, Event) string
}

func (stopChildAction) Type() string { return "actorx.stopChild" }

// StopChild stops a spawned or invoked child by id.
func StopChild(id any) Action {
	return stopChildAction{id: targetFn(id)}
}

func (s stopChildAction) exec(a *Actor, x core.Executable) error {
	if s.id == nil {
		return core.Errorf(core.CodeActionExecution, x.Node, "stopChild: unsupported id")
	}
	a.stopChild(s.id(x.Context, x.Event))
	return nil
}

type logAction struct {
	msg func(Context, Event) string
}

func (logAction) Type() string { return "actorx.log" }

// Log writes msg (a string or a func(Context, Event) string) to the actor
// logger at info level.
func Log(msg any) Action {
	switch m := msg.(type) {
	case string:
		return logAction{msg: func(Context, Event) string { return m }}
	case func(Context, Event) string:
		return logAction{msg: m}
	}
	return logAction{msg: func(Context, Event) string { return fmt.Sprint(msg) }}
}

func (l logAction) exec(a *Actor, x core.Executable) error {
	a.log.WithField("event", x.Event.Type).Info(l.msg(x.Context, x.Event))
	return nil
}
