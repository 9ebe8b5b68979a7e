package actorx

import (
	"errors"
	"time"

	"github.com/comalice/actorx/clock"
	"github.com/comalice/actorx/internal/core"
)

// actorAction is implemented by actions that need the executing actor, such
// as sends and spawns.
type actorAction interface {
	Action
	exec(a *Actor, x core.Executable) error
}

// execute runs the side effects of one step in order. The first failing
// action aborts the rest.
func (a *Actor) execute(execs []core.Executable) error {
	for _, x := range execs {
		if err := a.run(x); err != nil {
			return err
		}
	}
	return nil
}

func (a *Actor) run(x core.Executable) error {
	switch act := x.Action.(type) {
	case core.ScheduleAction:
		a.schedule(act.ID, act.Delay, mail{event: act.Event})
		return nil
	case core.CancelAction:
		a.cancel(act.ID)
		return nil
	case core.InvokeAction:
		a.startInvoke(act.Def, act.Input, nil)
		return nil
	case core.StopInvokeAction:
		a.stopChild(act.ID)
		return nil
	}

	call := core.ActionCall{Executable: x, ActorID: a.id}
	switch act := x.Action.(type) {
	case core.ExecAction:
		if act.Fn == nil {
			return nil
		}
		call.Do = func() error { return act.Fn(x.Context, x.Event) }
	case actorAction:
		call.Do = func() error { return act.exec(a, x) }
	default:
		return core.Errorf(core.CodeActionExecution, x.Node, "unsupported action %s", core.ActionName(x.Action))
	}
	return a.runner.Run(call)
}

// startInvoke starts an invoked child. Failures that happen before the child
// runs are reported to a as error.platform.<id>; later ones are reported by
// the child itself.
func (a *Actor) startInvoke(def *core.InvokeDef, input any, restore *PersistedSnapshot) {
	m, ok := a.logic.(*Machine)
	if !ok {
		return
	}
	logic, src, err := m.resolveLogic(def.Src)
	if err == nil {
		opts := []ActorOption{WithID(def.ID), WithInput(input)}
		if def.SystemID != "" {
			opts = append(opts, WithSystemID(def.SystemID))
		}
		if restore != nil {
			opts = append(opts, WithSnapshot(*restore))
		}
		var started bool
		_, started, err = a.spawnChild(logic, src, def, opts...)
		if started {
			return
		}
	}
	if err != nil {
		a.log.WithError(err).WithField("invoke", def.ID).Warn("invoke failed")
		a.deliver(NewEvent(PrefixError+def.ID, err), nil)
	}
}

type timerEntry struct {
	timer clock.Timer
	gen   uint64
}

// schedule arms a timer under id, replacing any timer with the same id.
// When it fires, m is queued in the mailbox. The timer entry stays until the
// mail is dequeued, so cancelling or replacing the timer in between drops it.
func (a *Actor) schedule(id string, d time.Duration, m mail) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != lifecycleRunning {
		return
	}
	if old, ok := a.timers[id]; ok {
		old.timer.Stop()
	}
	a.timerGen++
	m.timer, m.gen = id, a.timerGen
	t := a.system.clock.AfterFunc(d, func() {
		a.mu.Lock()
		cur, ok := a.timers[id]
		a.mu.Unlock()
		if !ok || cur.gen != m.gen {
			return
		}
		a.enqueue(m)
	})
	a.timers[id] = timerEntry{timer: t, gen: m.gen}
}

func (a *Actor) cancel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.timers[id]; ok {
		e.timer.Stop()
		delete(a.timers, id)
	}
}

// PendingTimers returns the ids of the armed timers.
func (a *Actor) PendingTimers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.timers))
	for id := range a.timers {
		out = append(out, id)
	}
	return out
}

// lookup resolves a send target: a child id first, then a system id.
func (a *Actor) lookup(target string) (*Actor, error) {
	if c, ok := a.Child(target); ok {
		return c, nil
	}
	if r, ok := a.system.Get(target); ok {
		return r, nil
	}
	return nil, errors.New("no actor " + target)
}
