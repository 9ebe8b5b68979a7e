package actorx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/clock"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func goTo(target string, actions ...actorx.ActionRef) actorx.TransitionList {
	return actorx.TransitionList{{Target: actorx.Targets{target}, Actions: actions}}
}

func do(actions ...actorx.ActionRef) actorx.TransitionList {
	return actorx.TransitionList{{Actions: actions}}
}

func define(t *testing.T, cfg actorx.MachineConfig, opts ...actorx.MachineOption) *actorx.Machine {
	t.Helper()
	m, err := actorx.DefineMachine(cfg, opts...)
	require.NoError(t, err)
	return m
}

// quietLogger captures log entries instead of printing them.
func quietLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func startActor(t *testing.T, logic actorx.Logic, opts ...actorx.ActorOption) *actorx.Actor {
	t.Helper()
	log, _ := quietLogger()
	opts = append([]actorx.ActorOption{actorx.WithLogger(log)}, opts...)
	a := actorx.CreateActor(logic, opts...)
	require.NoError(t, a.Start())
	t.Cleanup(a.Stop)
	return a
}

func toggleMachine(t *testing.T) *actorx.Machine {
	return define(t, actorx.MachineConfig{
		ID:      "toggle",
		Initial: "inactive",
		States: []*actorx.StateConfig{
			{ID: "inactive", On: map[string]actorx.TransitionList{"toggle": goTo("active")}},
			{ID: "active", On: map[string]actorx.TransitionList{"toggle": goTo("inactive")}},
		},
	})
}

// timedMachine leaves active on its own after two seconds.
func timedMachine(t *testing.T) *actorx.Machine {
	return define(t, actorx.MachineConfig{
		ID:      "timed",
		Initial: "inactive",
		States: []*actorx.StateConfig{
			{ID: "inactive", On: map[string]actorx.TransitionList{"toggle": goTo("active")}},
			{
				ID: "active",
				On: map[string]actorx.TransitionList{"toggle": goTo("inactive")},
				After: []actorx.DelayedTransitionConfig{
					{Delay: "2000", TransitionConfig: actorx.TransitionConfig{Target: actorx.Targets{"inactive"}}},
				},
			},
		},
	})
}

func manualClock() *clock.Manual {
	return clock.NewManual(epoch)
}

// heldClock keeps timer callbacks until release runs them, whatever their
// delay.
type heldClock struct {
	mu      sync.Mutex
	pending []func()
}

type heldTimer struct{}

func (heldTimer) Stop() bool { return true }

func (c *heldClock) Now() time.Time { return epoch }

func (c *heldClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, f)
	return heldTimer{}
}

// release runs every held callback, even ones whose timer was stopped.
func (c *heldClock) release() {
	c.mu.Lock()
	fns := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range fns {
		f()
	}
}
