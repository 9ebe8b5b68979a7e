package actorx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorx"
)

func TestToggle(t *testing.T) {
	a := startActor(t, toggleMachine(t))
	assert.Equal(t, "inactive", a.GetSnapshot().Value)

	a.Send(actorx.NewEvent("toggle", nil))
	assert.Equal(t, "active", a.GetSnapshot().Value)

	a.Send(actorx.NewEvent("toggle", nil))
	assert.Equal(t, "inactive", a.GetSnapshot().Value)
}

func TestCounter(t *testing.T) {
	inc := actorx.AssignKey("count", func(ctx actorx.Context, ev actorx.Event) any {
		by, _ := ev.Get("by")
		return ctx["count"].(int) + by.(int)
	})
	m := define(t, actorx.MachineConfig{
		ID:      "counter",
		Initial: "counting",
		Context: actorx.Context{"count": 0},
		States: []*actorx.StateConfig{
			{ID: "counting", On: map[string]actorx.TransitionList{"inc": do(inc)}},
		},
	})
	a := startActor(t, m)

	a.Send(actorx.NewEvent("inc", map[string]any{"by": 1}))
	a.Send(actorx.NewEvent("inc", map[string]any{"by": 2}))

	assert.Equal(t, actorx.Context{"count": 3}, a.GetSnapshot().Context)
}

func TestInvokedPromiseDone(t *testing.T) {
	double := actorx.FromPromise(func(_ context.Context, input any) (any, error) {
		return input.(int) * 2, nil
	})
	m := define(t, actorx.MachineConfig{
		ID:      "fetch",
		Initial: "loading",
		Context: actorx.Context{"n": 21},
		States: []*actorx.StateConfig{
			{
				ID: "loading",
				Invoke: []actorx.InvokeConfig{{
					ID:  "double",
					Src: double,
					Input: func(ctx actorx.Context, _ actorx.Event) any {
						return ctx["n"]
					},
					OnDone: goTo("success", actorx.AssignKey("result", func(_ actorx.Context, ev actorx.Event) any {
						return ev.Data
					})),
				}},
			},
			{ID: "success", Type: actorx.Final},
		},
	})
	a := startActor(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := actorx.WaitFor(ctx, a, func(s actorx.Snapshot) bool { return s.Status == actorx.StatusDone })
	require.NoError(t, err)
	assert.Equal(t, "success", snap.Value)
	assert.Equal(t, 42, snap.Context["result"])
}

func TestInvokedPromiseError(t *testing.T) {
	boom := errors.New("boom")
	failing := actorx.FromPromise(func(context.Context, any) (any, error) { return nil, boom })
	m := define(t, actorx.MachineConfig{
		ID:      "fetch",
		Initial: "loading",
		States: []*actorx.StateConfig{
			{
				ID: "loading",
				Invoke: []actorx.InvokeConfig{{
					ID:  "load",
					Src: failing,
					OnError: goTo("failed", actorx.AssignKey("err", func(_ actorx.Context, ev actorx.Event) any {
						return ev.Data
					})),
				}},
			},
			{ID: "failed"},
		},
	})
	a := startActor(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := actorx.WaitFor(ctx, a, func(s actorx.Snapshot) bool { return s.Matches("failed") })
	require.NoError(t, err)
	assert.Equal(t, actorx.StatusActive, snap.Status, "the parent handles the child's failure")
	assert.ErrorIs(t, snap.Context["err"].(error), boom)
}

func TestDelayedTransition(t *testing.T) {
	clk := manualClock()
	a := startActor(t, timedMachine(t), actorx.WithClock(clk))

	a.Send(actorx.NewEvent("toggle", nil))
	require.Equal(t, "active", a.GetSnapshot().Value)

	clk.Advance(1999 * time.Millisecond)
	assert.Equal(t, "active", a.GetSnapshot().Value)

	clk.Advance(time.Millisecond)
	assert.Equal(t, "inactive", a.GetSnapshot().Value)
}

func TestDelayedTransitionCancelledOnExit(t *testing.T) {
	clk := manualClock()
	a := startActor(t, timedMachine(t), actorx.WithClock(clk))

	a.Send(actorx.NewEvent("toggle", nil))
	clk.Advance(time.Second)
	a.Send(actorx.NewEvent("toggle", nil))
	require.Equal(t, "inactive", a.GetSnapshot().Value)
	assert.Empty(t, a.PendingTimers())

	var seen []any
	a.SubscribeFunc(func(s actorx.Snapshot) { seen = append(seen, s.Value) })
	clk.Advance(2 * time.Second)
	assert.Equal(t, []any{"inactive"}, seen, "only the immediate snapshot on subscribe")
	assert.Zero(t, clk.Pending())
}

func TestDelayedTransitionRearmedOnReentry(t *testing.T) {
	clk := manualClock()
	a := startActor(t, timedMachine(t), actorx.WithClock(clk))

	a.Send(actorx.NewEvent("toggle", nil))
	clk.Advance(1500 * time.Millisecond)
	a.Send(actorx.NewEvent("toggle", nil))
	a.Send(actorx.NewEvent("toggle", nil))

	clk.Advance(1500 * time.Millisecond)
	assert.Equal(t, "active", a.GetSnapshot().Value, "the first timer must not fire after re-entry")
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, "inactive", a.GetSnapshot().Value)
}

func TestTimerFiredDuringExitIsDropped(t *testing.T) {
	clk := &heldClock{}
	fireTimers := actorx.Do("fireTimers", func(actorx.Context, actorx.Event) error {
		clk.release()
		return nil
	})
	m := define(t, actorx.MachineConfig{
		ID:      "timed",
		Initial: "inactive",
		States: []*actorx.StateConfig{
			{ID: "inactive", On: map[string]actorx.TransitionList{"toggle": goTo("active")}},
			{
				ID:   "active",
				Exit: []actorx.ActionRef{fireTimers},
				On: map[string]actorx.TransitionList{
					"restart": {{Target: actorx.Targets{"active"}, Reenter: true}},
				},
				After: []actorx.DelayedTransitionConfig{
					{Delay: "2000", TransitionConfig: actorx.TransitionConfig{Target: actorx.Targets{"inactive"}}},
				},
			},
		},
	})
	a := startActor(t, m, actorx.WithClock(clk))

	a.Send(actorx.NewEvent("toggle", nil))
	a.Send(actorx.NewEvent("restart", nil))
	assert.Equal(t, "active", a.GetSnapshot().Value, "the timer of the exited state fired mid-step")
	assert.Len(t, a.PendingTimers(), 1)
}

func TestDelayedSendFiredBeforeCancelIsDropped(t *testing.T) {
	clk := &heldClock{}
	fireTimers := actorx.Do("fireTimers", func(actorx.Context, actorx.Event) error {
		clk.release()
		return nil
	})
	m := define(t, actorx.MachineConfig{
		ID:      "alarm",
		Initial: "idle",
		States: []*actorx.StateConfig{
			{ID: "idle", On: map[string]actorx.TransitionList{
				"arm":    do(actorx.SendTo("self", "ring", actorx.WithDelay(time.Second), actorx.WithSendID("bell"))),
				"disarm": do(fireTimers, actorx.Cancel("bell")),
				"ring":   goTo("ringing"),
			}},
			{ID: "ringing"},
		},
	})
	a := startActor(t, m, actorx.WithClock(clk), actorx.WithSystemID("self"))

	a.Send(actorx.NewEvent("arm", nil))
	a.Send(actorx.NewEvent("disarm", nil))
	assert.Equal(t, "idle", a.GetSnapshot().Value)
	assert.Empty(t, a.PendingTimers())
}

func TestStopDuringStepFinishesAfterStep(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	block := actorx.Do("block", func(actorx.Context, actorx.Event) error {
		close(entered)
		<-release
		return nil
	})
	m := define(t, actorx.MachineConfig{
		ID:      "slow",
		Initial: "idle",
		States: []*actorx.StateConfig{
			{ID: "idle", On: map[string]actorx.TransitionList{"work": goTo("busy", block)}},
			{ID: "busy"},
		},
	})
	a := startActor(t, m)

	done := make(chan struct{})
	go func() {
		a.Send(actorx.NewEvent("work", nil))
		close(done)
	}()
	<-entered
	a.Stop()
	assert.Equal(t, actorx.StatusActive, a.GetSnapshot().Status, "stop waits for the running step")

	close(release)
	<-done
	snap := a.GetSnapshot()
	assert.Equal(t, actorx.StatusStopped, snap.Status)
	assert.Equal(t, "busy", snap.Value)
}

func TestStartIsIdempotent(t *testing.T) {
	log, _ := quietLogger()
	a := actorx.CreateActor(toggleMachine(t), actorx.WithLogger(log))
	var emitted int
	a.SubscribeFunc(func(actorx.Snapshot) { emitted++ })

	require.NoError(t, a.Start())
	require.NoError(t, a.Start())
	defer a.Stop()

	assert.Equal(t, 1, emitted)
}

func TestSnapshotBeforeStart(t *testing.T) {
	a := actorx.CreateActor(toggleMachine(t))
	snap := a.GetSnapshot()
	assert.Equal(t, actorx.StatusNotStarted, snap.Status)
	assert.False(t, snap.Started())
	assert.False(t, snap.Matches("inactive"))
}

func TestEventsOutsideRunningAreDropped(t *testing.T) {
	log, hook := quietLogger()
	a := actorx.CreateActor(toggleMachine(t), actorx.WithLogger(log))

	a.Send(actorx.NewEvent("toggle", nil))
	require.NoError(t, a.Start())
	assert.Equal(t, "inactive", a.GetSnapshot().Value, "event sent before start is dropped")

	a.Stop()
	a.Send(actorx.NewEvent("toggle", nil))
	assert.Equal(t, actorx.StatusStopped, a.GetSnapshot().Status)
	assert.Equal(t, "inactive", a.GetSnapshot().Value)

	var dropped int
	for _, e := range hook.AllEntries() {
		if e.Message == "event dropped: actor is not running" {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestMailboxIsFIFO(t *testing.T) {
	var a *actorx.Actor
	var order []string
	record := actorx.Do("record", func(_ actorx.Context, ev actorx.Event) error {
		order = append(order, ev.Type)
		return nil
	})
	sendMore := actorx.Do("sendMore", func(actorx.Context, actorx.Event) error {
		a.Send(actorx.NewEvent("second", nil))
		a.Send(actorx.NewEvent("third", nil))
		return nil
	})
	m := define(t, actorx.MachineConfig{
		ID:      "fifo",
		Initial: "idle",
		States: []*actorx.StateConfig{{
			ID: "idle",
			On: map[string]actorx.TransitionList{
				"first":  do(record, sendMore),
				"second": do(record),
				"third":  do(record),
			},
		}},
	})
	a = startActor(t, m)

	a.Send(actorx.NewEvent("first", nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestStopNotifiesAndClearsObservers(t *testing.T) {
	log, _ := quietLogger()
	a := actorx.CreateActor(toggleMachine(t), actorx.WithLogger(log))
	require.NoError(t, a.Start())

	var statuses []actorx.Status
	var completed int
	a.Subscribe(actorx.ObserverFuncs{
		NextFn:     func(s actorx.Snapshot) { statuses = append(statuses, s.Status) },
		CompleteFn: func() { completed++ },
	})

	a.Stop()
	a.Stop()
	assert.Equal(t, []actorx.Status{actorx.StatusActive, actorx.StatusStopped}, statuses)
	assert.Equal(t, 1, completed)

	var late int
	a.Subscribe(actorx.ObserverFuncs{CompleteFn: func() { late++ }})
	assert.Equal(t, 1, late, "subscribing to a stopped actor completes immediately")
}

func TestUnsubscribe(t *testing.T) {
	a := startActor(t, toggleMachine(t))
	var seen int
	sub := a.SubscribeFunc(func(actorx.Snapshot) { seen++ })
	sub.Unsubscribe()
	sub.Unsubscribe()

	a.Send(actorx.NewEvent("toggle", nil))
	assert.Equal(t, 1, seen)
}

func TestUnchangedStepEmitsNothing(t *testing.T) {
	a := startActor(t, toggleMachine(t))
	var seen int
	a.SubscribeFunc(func(actorx.Snapshot) { seen++ })

	a.Send(actorx.NewEvent("unknown", nil))
	assert.Equal(t, 1, seen)
}

func TestActionErrorMovesToErrorStatus(t *testing.T) {
	boom := errors.New("boom")
	m := define(t, actorx.MachineConfig{
		ID:      "failing",
		Initial: "idle",
		States: []*actorx.StateConfig{
			{ID: "idle", On: map[string]actorx.TransitionList{"go": goTo("next", actorx.Do("explode", func(actorx.Context, actorx.Event) error {
				return boom
			}))}},
			{ID: "next"},
		},
	})
	a := startActor(t, m)
	child, err := a.Spawn(toggleMachine(t), actorx.WithID("child"))
	require.NoError(t, err)

	var got error
	a.Subscribe(actorx.ObserverFuncs{ErrorFn: func(err error) { got = err }})
	a.Send(actorx.NewEvent("go", nil))

	snap := a.GetSnapshot()
	assert.Equal(t, actorx.StatusError, snap.Status)
	assert.ErrorIs(t, got, actorx.ErrActionExecution)
	assert.ErrorIs(t, got, boom)
	assert.Equal(t, "ACTION_EXECUTION", actorx.ErrorCode(snap.Error))
	assert.Equal(t, actorx.StatusStopped, child.GetSnapshot().Status, "children are stopped with their parent")
}

func TestActionPanicIsRecovered(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "panicky",
		Initial: "idle",
		States: []*actorx.StateConfig{{
			ID: "idle",
			On: map[string]actorx.TransitionList{"go": do(actorx.Do("panic", func(actorx.Context, actorx.Event) error {
				panic("kaboom")
			}))},
		}},
	})
	a := startActor(t, m)
	a.Send(actorx.NewEvent("go", nil))
	assert.ErrorIs(t, a.GetSnapshot().Error, actorx.ErrActionExecution)
}

func TestGuardErrorMovesToErrorStatus(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "guarded",
		Initial: "idle",
		States: []*actorx.StateConfig{
			{ID: "idle", On: map[string]actorx.TransitionList{"go": {{
				Target: actorx.Targets{"next"},
				Guard: actorx.GuardFuncArgs(func(actorx.GuardArgs) (bool, error) {
					return false, errors.New("unavailable")
				}),
			}}}},
			{ID: "next"},
		},
	})
	a := startActor(t, m)
	a.Send(actorx.NewEvent("go", nil))
	assert.ErrorIs(t, a.GetSnapshot().Error, actorx.ErrGuardEvaluation)
}

func TestEventlessLoopIsRuntimeFault(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "loop",
		Initial: "a",
		States: []*actorx.StateConfig{
			{ID: "a", Always: goTo("b")},
			{ID: "b", Always: goTo("a")},
		},
	}, actorx.WithMaxMicrosteps(20))
	log, _ := quietLogger()
	a := actorx.CreateActor(m, actorx.WithLogger(log))

	err := a.Start()
	assert.ErrorIs(t, err, actorx.ErrRuntimeFault)
	assert.Equal(t, actorx.StatusError, a.GetSnapshot().Status)
}

func TestEventlessTransitionOnStart(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "always",
		Initial: "a",
		States: []*actorx.StateConfig{
			{ID: "a", Always: goTo("b")},
			{ID: "b"},
		},
	})
	a := startActor(t, m)
	assert.Equal(t, "b", a.GetSnapshot().Value)
}

func TestNonRootStopIsIgnored(t *testing.T) {
	log, hook := quietLogger()
	a := actorx.CreateActor(toggleMachine(t), actorx.WithLogger(log))
	require.NoError(t, a.Start())
	defer a.Stop()

	child, err := a.Spawn(toggleMachine(t), actorx.WithID("child"))
	require.NoError(t, err)

	child.Stop()
	assert.Equal(t, actorx.StatusActive, child.GetSnapshot().Status)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "child", hook.LastEntry().Data["actor"])

	a.Stop()
	assert.Equal(t, actorx.StatusStopped, child.GetSnapshot().Status)
}

func TestMachineDoneOutput(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "job",
		Initial: "working",
		Context: actorx.Context{"items": 3},
		States: []*actorx.StateConfig{
			{ID: "working", On: map[string]actorx.TransitionList{"finish": goTo("done")}},
			{ID: "done", Type: actorx.Final, Output: func(ctx actorx.Context) any { return ctx["items"] }},
		},
	})
	a := startActor(t, m)
	future := actorx.ToPromise(a)

	a.Send(actorx.NewEvent("finish", nil))
	out, err := future.Result()
	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, actorx.StatusDone, a.GetSnapshot().Status)

	again, err := actorx.ToPromise(a).Result()
	require.NoError(t, err, "terminal actors settle immediately")
	assert.Equal(t, 3, again)
}

func TestToPromiseRejectsOnStop(t *testing.T) {
	log, _ := quietLogger()
	a := actorx.CreateActor(toggleMachine(t), actorx.WithLogger(log))
	require.NoError(t, a.Start())
	future := actorx.ToPromise(a)
	a.Stop()

	<-future.Done()
	_, err := future.Result()
	assert.ErrorIs(t, err, actorx.ErrActorStopped)
}

func TestWaitForTimeout(t *testing.T) {
	a := startActor(t, toggleMachine(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := actorx.WaitFor(ctx, a, func(s actorx.Snapshot) bool { return s.Matches("active") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "inactive", snap.Value)
}

func TestWaitForAlreadySatisfied(t *testing.T) {
	a := startActor(t, toggleMachine(t))
	snap, err := actorx.WaitFor(context.Background(), a, func(s actorx.Snapshot) bool { return s.Matches("inactive") })
	require.NoError(t, err)
	assert.Equal(t, "inactive", snap.Value)
}
