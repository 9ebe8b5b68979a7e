package testutil

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/clock"
)

// Epoch is the start time of every Harness clock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness runs an actor on a manual clock with captured logs and a snapshot
// recorder. The actor is stopped when the test ends.
type Harness struct {
	t testing.TB

	Actor    *actorx.Actor
	Clock    *clock.Manual
	Recorder *Recorder
	Logs     *test.Hook
}

// NewHarness creates and starts an actor for logic. opts are applied after
// the harness clock and logger, so they can override them.
func NewHarness(t testing.TB, logic actorx.Logic, opts ...actorx.ActorOption) *Harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	clk := clock.NewManual(Epoch)

	opts = append([]actorx.ActorOption{
		actorx.WithClock(clk),
		actorx.WithLogger(logrus.NewEntry(logger)),
	}, opts...)
	a := actorx.CreateActor(logic, opts...)
	rec := Record(a)
	require.NoError(t, a.Start())
	t.Cleanup(a.Stop)

	return &Harness{t: t, Actor: a, Clock: clk, Recorder: rec, Logs: hook}
}

// Send delivers an event and returns the snapshot after it settled.
func (h *Harness) Send(eventType string, data any) actorx.Snapshot {
	h.Actor.Send(actorx.NewEvent(eventType, data))
	return h.Actor.GetSnapshot()
}

// Advance moves the clock forward, firing due timers.
func (h *Harness) Advance(d time.Duration) actorx.Snapshot {
	h.Clock.Advance(d)
	return h.Actor.GetSnapshot()
}

// Snapshot returns the current snapshot.
func (h *Harness) Snapshot() actorx.Snapshot { return h.Actor.GetSnapshot() }

// RequireState fails the test unless the node with the given id is active.
func (h *Harness) RequireState(id string) {
	h.t.Helper()
	snap := h.Actor.GetSnapshot()
	require.Truef(h.t, snap.Matches(id), "state %q is not active, value is %v", id, snap.Value)
}

// RequireStatus fails the test unless the actor has the given status.
func (h *Harness) RequireStatus(status actorx.Status) {
	h.t.Helper()
	require.Equal(h.t, status, h.Actor.GetSnapshot().Status)
}

// Logged reports whether a log entry with the given message was written.
func (h *Harness) Logged(msg string) bool {
	for _, e := range h.Logs.AllEntries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}
