package core

import (
	"fmt"
	"time"

	"github.com/comalice/actorx/internal/primitives"
)

// Action is anything that can appear in an entry, exit or transition action
// list. Assign and raise actions are applied by the resolver itself; every
// other action is handed back to the runtime as an Executable.
type Action interface {
	Type() string
}

// Guard decides whether a transition candidate is enabled.
type Guard interface {
	Check(args GuardArgs) (bool, error)
}

// GuardArgs is what a guard sees.
type GuardArgs struct {
	Context primitives.Context
	Event   primitives.Event
	// In reports whether the state node with the given id is active.
	In func(id string) bool
}

// GuardFunc adapts a plain predicate to Guard.
type GuardFunc func(ctx primitives.Context, ev primitives.Event) bool

// Check implements Guard.
func (f GuardFunc) Check(args GuardArgs) (bool, error) {
	return f(args.Context, args.Event), nil
}

// GuardFuncArgs adapts a function over the full guard arguments to Guard.
type GuardFuncArgs func(args GuardArgs) (bool, error)

// Check implements Guard.
func (f GuardFuncArgs) Check(args GuardArgs) (bool, error) { return f(args) }

// DelayFunc computes a delay from the context at the time a state is entered.
type DelayFunc func(ctx primitives.Context, ev primitives.Event) time.Duration

// OutputFunc computes a done output.
type OutputFunc func(ctx primitives.Context, ev primitives.Event) any

// InputFunc maps the invoking context and event to a child's input.
type InputFunc func(ctx primitives.Context, ev primitives.Event) any

// AssignAction patches the context. Later actions in the same step observe
// the patched context.
type AssignAction struct {
	Fn func(ctx primitives.Context, ev primitives.Event) (primitives.Context, error)
}

func (AssignAction) Type() string { return "actorx.assign" }

// RaiseAction queues an internal event, processed before the next external one.
type RaiseAction struct {
	Fn func(ctx primitives.Context, ev primitives.Event) (primitives.Event, error)
}

func (RaiseAction) Type() string { return "actorx.raise" }

// ExecAction is a side effect on the outside world.
type ExecAction struct {
	Name string
	Fn   func(ctx primitives.Context, ev primitives.Event) error
}

func (a ExecAction) Type() string {
	if a.Name != "" {
		return a.Name
	}
	return "actorx.exec"
}

// ScheduleAction arms a timer that delivers Event to the actor after Delay.
type ScheduleAction struct {
	ID    string
	Delay time.Duration
	Event primitives.Event
}

func (ScheduleAction) Type() string { return "actorx.schedule" }

// CancelAction disarms the timer with the given id.
type CancelAction struct {
	ID string
}

func (CancelAction) Type() string { return "actorx.cancel" }

// InvokeAction starts the invoked actor described by Def.
type InvokeAction struct {
	Def   *InvokeDef
	Input any
}

func (InvokeAction) Type() string { return "actorx.invoke" }

// StopInvokeAction stops the invoked actor with the given id.
type StopInvokeAction struct {
	ID string
}

func (StopInvokeAction) Type() string { return "actorx.stopInvoke" }

// Executable is an action captured with the context and event it must run
// with. The runtime executes them in order after a macrostep is resolved.
type Executable struct {
	Action  Action
	Context primitives.Context
	Event   primitives.Event
	// Node is the state node whose entry, exit or transition produced it.
	Node string
}

// ActionCall is handed to an ActionRunner for one executable.
type ActionCall struct {
	Executable
	// ActorID identifies the executing actor in logs.
	ActorID string
	// Do performs the action.
	Do func() error
}

// ActionRunner executes side-effect actions on behalf of an actor. Runners
// can wrap execution with logging, timing or policy.
type ActionRunner interface {
	Run(call ActionCall) error
}

// ActionName returns a readable label for logs and inspection.
func ActionName(a Action) string {
	if a == nil {
		return "<nil>"
	}
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return a.Type()
}
