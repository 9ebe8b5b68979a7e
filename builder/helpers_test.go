package builder_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/builder"
	"github.com/comalice/actorx/clock"
)

func start(t *testing.T, cfg actorx.MachineConfig, opts ...actorx.ActorOption) *actorx.Actor {
	t.Helper()
	m, err := actorx.DefineMachine(cfg)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts = append([]actorx.ActorOption{actorx.WithLogger(logrus.NewEntry(logger))}, opts...)
	a := actorx.CreateActor(m, opts...)
	require.NoError(t, a.Start())
	t.Cleanup(a.Stop)
	return a
}

func TestMachineFirstStateIsInitial(t *testing.T) {
	cfg := builder.Machine("toggle",
		builder.State("inactive", builder.On("toggle", "active")),
		builder.State("active", builder.On("toggle", "inactive")),
	)
	assert.Equal(t, "inactive", cfg.Initial)
	require.NoError(t, cfg.Validate())

	a := start(t, cfg)
	a.Send(actorx.NewEvent("toggle", nil))
	assert.Equal(t, "active", a.GetSnapshot().Value)
}

func TestCompositeAndGuards(t *testing.T) {
	cfg := builder.Machine("door",
		builder.Composite("closed",
			builder.State("unlocked", builder.On("lock", "locked")),
			builder.State("locked",
				builder.Tags("secure"),
				builder.On("unlock", "unlocked", builder.WithGuard("event.code == 1234")),
			),
		),
	)
	cfg.States[0].AddTransition("open", actorx.TransitionConfig{Target: actorx.Targets{"open"}})
	cfg.States = append(cfg.States, builder.State("open", builder.On("close", "closed")))

	a := start(t, cfg)
	assert.Equal(t, map[string]any{"closed": "unlocked"}, a.GetSnapshot().Value)

	a.Send(actorx.NewEvent("lock", nil))
	assert.True(t, a.GetSnapshot().HasTag("secure"))

	a.Send(actorx.NewEvent("unlock", map[string]any{"code": 1}))
	assert.True(t, a.GetSnapshot().Matches("closed.locked"))

	a.Send(actorx.NewEvent("unlock", map[string]any{"code": 1234}))
	assert.True(t, a.GetSnapshot().Matches("closed.unlocked"))
}

func TestEntryExitAndTransitionActions(t *testing.T) {
	var trace []string
	record := func(name string) actorx.ActionRef {
		return actorx.Do(name, func(actorx.Context, actorx.Event) error {
			trace = append(trace, name)
			return nil
		})
	}
	cfg := builder.Machine("m",
		builder.State("a",
			builder.OnExit(record("exit a")),
			builder.On("go", "b", builder.WithAction(record("go"))),
		),
		builder.State("b", builder.OnEntry(record("enter b"))),
	)
	a := start(t, cfg)
	a.Send(actorx.NewEvent("go", nil))
	assert.Equal(t, []string{"exit a", "go", "enter b"}, trace)
}

func TestReenterSelfTransition(t *testing.T) {
	var entries int
	enter := actorx.Do("count", func(actorx.Context, actorx.Event) error {
		entries++
		return nil
	})
	cfg := builder.Machine("m",
		builder.State("a",
			builder.OnEntry(enter),
			builder.On("stay", "a"),
			builder.On("restart", "a", builder.Reenter()),
		),
	)
	a := start(t, cfg)
	a.Send(actorx.NewEvent("stay", nil))
	assert.Equal(t, 1, entries)
	a.Send(actorx.NewEvent("restart", nil))
	assert.Equal(t, 2, entries)
}

func TestParallelAndOnDone(t *testing.T) {
	jobs := builder.Parallel("jobs",
		builder.Composite("a", builder.State("pending", builder.On("a.ok", "done")), builder.Final("done")),
		builder.Composite("b", builder.State("pending", builder.On("b.ok", "done")), builder.Final("done")),
	)
	builder.OnDone("finished")(jobs)
	cfg := builder.Machine("upload", jobs, builder.Final("finished", builder.Output("uploaded")))

	a := start(t, cfg)
	a.Send(actorx.NewEvent("a.ok", nil))
	assert.True(t, a.GetSnapshot().Matches("jobs.a.done"))
	assert.Equal(t, actorx.StatusActive, a.GetSnapshot().Status)
	a.Send(actorx.NewEvent("b.ok", nil))

	snap := a.GetSnapshot()
	assert.Equal(t, actorx.StatusDone, snap.Status)
	assert.Equal(t, "uploaded", snap.Output)
}

func TestAfterAndAlways(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := builder.Machine("light",
		builder.State("green", builder.After(time.Second, "yellow")),
		builder.State("yellow", builder.Always("red")),
		builder.State("red", builder.Meta("stop", true)),
	)
	a := start(t, cfg, actorx.WithClock(clk))
	clk.Advance(time.Second)

	snap := a.GetSnapshot()
	assert.Equal(t, "red", snap.Value)
	assert.Equal(t, map[string]map[string]any{"red": {"stop": true}}, snap.Meta())
}

func TestHistoryState(t *testing.T) {
	cfg := builder.Machine("player",
		builder.State("playing",
			builder.Children(
				builder.State("normal", builder.On("ff", "fast")),
				builder.State("fast"),
				builder.HistoryState("hist", actorx.Shallow),
			),
			builder.On("pause", "paused"),
		),
		builder.State("paused", builder.On("resume", "playing.hist")),
	)
	a := start(t, cfg)
	a.Send(actorx.NewEvent("ff", nil))
	a.Send(actorx.NewEvent("pause", nil))
	a.Send(actorx.NewEvent("resume", nil))
	assert.Equal(t, map[string]any{"playing": "fast"}, a.GetSnapshot().Value)
}

func TestInitialOverride(t *testing.T) {
	s := builder.State("p",
		builder.Children(builder.State("x"), builder.State("y")),
		builder.Initial("y"),
	)
	assert.Equal(t, "y", s.Initial)
	assert.Len(t, s.Children, 2)
}
