package actorx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorx"
)

func TestDefineMachineRejectsInvalidModels(t *testing.T) {
	tests := []struct {
		name string
		cfg  actorx.MachineConfig
		opts []actorx.MachineOption
	}{
		{"no states", actorx.MachineConfig{ID: "m"}, nil},
		{"unknown target", actorx.MachineConfig{ID: "m", Initial: "a", States: []*actorx.StateConfig{
			{ID: "a", On: map[string]actorx.TransitionList{"go": goTo("nowhere")}},
		}}, nil},
		{"unknown action", actorx.MachineConfig{ID: "m", Initial: "a", States: []*actorx.StateConfig{
			{ID: "a", Entry: []actorx.ActionRef{"missing"}},
		}}, nil},
		{"unknown guard", actorx.MachineConfig{ID: "m", Initial: "a", States: []*actorx.StateConfig{
			{ID: "a", On: map[string]actorx.TransitionList{"go": {{Guard: "isReady"}}}},
		}}, nil},
		{"unknown actor", actorx.MachineConfig{ID: "m", Initial: "a", States: []*actorx.StateConfig{
			{ID: "a", Invoke: []actorx.InvokeConfig{{ID: "x", Src: "fetcher"}}},
		}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := actorx.DefineMachine(tt.cfg, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, actorx.ErrInvalidModel)
			assert.Equal(t, "INVALID_MODEL", actorx.ErrorCode(err))
		})
	}
}

func TestMustDefineMachinePanics(t *testing.T) {
	assert.Panics(t, func() { actorx.MustDefineMachine(actorx.MachineConfig{ID: "m"}) })
}

func TestProvideOverridesImplementations(t *testing.T) {
	var calls []string
	named := func(tag string) actorx.Action {
		return actorx.Do(tag, func(actorx.Context, actorx.Event) error {
			calls = append(calls, tag)
			return nil
		})
	}
	m := define(t, actorx.MachineConfig{
		ID:      "m",
		Initial: "a",
		States: []*actorx.StateConfig{{
			ID: "a",
			On: map[string]actorx.TransitionList{"ping": {{Actions: []actorx.ActionRef{"notify"}, Guard: "allowed"}}},
		}},
	}, actorx.WithImplementations(actorx.Implementations{
		Actions: map[string]actorx.Action{"notify": named("original")},
		Guards:  map[string]actorx.Guard{"allowed": actorx.GuardFunc(func(actorx.Context, actorx.Event) bool { return true })},
	}))

	provided, err := m.Provide(actorx.Implementations{
		Actions: map[string]actorx.Action{"notify": named("provided")},
	})
	require.NoError(t, err)
	assert.Equal(t, m.Version(), provided.Version())

	startActor(t, m).Send(actorx.NewEvent("ping", nil))
	startActor(t, provided).Send(actorx.NewEvent("ping", nil))
	assert.Equal(t, []string{"original", "provided"}, calls)
}

func TestPureTransition(t *testing.T) {
	var sideEffects int
	m := define(t, actorx.MachineConfig{
		ID:      "counter",
		Initial: "idle",
		Context: actorx.Context{"count": 0},
		States: []*actorx.StateConfig{
			{ID: "idle", On: map[string]actorx.TransitionList{
				"inc": goTo("counting",
					actorx.AssignKey("count", func(ctx actorx.Context, _ actorx.Event) any { return ctx["count"].(int) + 1 }),
					actorx.Do("effect", func(actorx.Context, actorx.Event) error {
						sideEffects++
						return nil
					}),
				),
			}},
			{ID: "counting"},
		},
	})

	s0, err := m.InitialSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "idle", s0.Value)
	assert.True(t, s0.Can(actorx.NewEvent("inc", nil)))
	assert.False(t, s0.Can(actorx.NewEvent("dec", nil)))

	s1, err := m.Transition(s0, actorx.NewEvent("inc", nil))
	require.NoError(t, err)
	assert.Equal(t, "counting", s1.Value)
	assert.Equal(t, 1, s1.Context["count"])
	assert.Equal(t, 0, s0.Context["count"], "the source snapshot is untouched")
	assert.Zero(t, sideEffects)

	other := toggleMachine(t)
	_, err = other.Transition(s1, actorx.NewEvent("toggle", nil))
	assert.Error(t, err)
}

func TestContextFromInput(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "greeter",
		Initial: "idle",
		ContextFunc: func(input any) actorx.Context {
			return actorx.Context{"name": input}
		},
		States: []*actorx.StateConfig{{ID: "idle"}},
	})
	a := startActor(t, m, actorx.WithInput("ada"))
	assert.Equal(t, "ada", a.GetSnapshot().Context["name"])
}

func TestSnapshotQueries(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "player",
		Initial: "playing",
		Meta:    map[string]any{"owner": "ui"},
		States: []*actorx.StateConfig{
			{
				ID:      "playing",
				Initial: "normal",
				Tags:    []string{"busy"},
				Children: []*actorx.StateConfig{
					{ID: "normal", Tags: []string{"audible"}, Meta: map[string]any{"speed": 1}, On: map[string]actorx.TransitionList{"ff": goTo("fast")}},
					{ID: "fast"},
				},
				On: map[string]actorx.TransitionList{"stop": goTo("stopped")},
			},
			{ID: "stopped", Type: actorx.Final},
		},
	})
	a := startActor(t, m)
	snap := a.GetSnapshot()

	assert.Equal(t, map[string]any{"playing": "normal"}, snap.Value)
	assert.Equal(t, []string{"playing", "playing.normal"}, snap.StateIDs())
	assert.True(t, snap.Matches("playing"))
	assert.True(t, snap.Matches("playing.normal"))
	assert.False(t, snap.Matches("playing.fast"))
	assert.Equal(t, []string{"audible", "busy"}, snap.Tags)
	assert.True(t, snap.HasTag("busy"))
	assert.Equal(t, map[string]map[string]any{
		"player":         {"owner": "ui"},
		"playing.normal": {"speed": 1},
	}, snap.Meta())

	a.Send(actorx.NewEvent("stop", nil))
	done := a.GetSnapshot()
	assert.Equal(t, actorx.StatusDone, done.Status)
	assert.False(t, done.Can(actorx.NewEvent("ff", nil)), "a done machine accepts nothing")
}

func TestGuardCombinators(t *testing.T) {
	positive := func(ctx actorx.Context, _ actorx.Event) bool { return ctx["n"].(int) > 0 }
	m := define(t, actorx.MachineConfig{
		ID:      "gate",
		Initial: "closed",
		Context: actorx.Context{"n": 5},
		States: []*actorx.StateConfig{
			{ID: "closed", On: map[string]actorx.TransitionList{
				"both":   {{Target: actorx.Targets{"open"}, Guard: actorx.And(positive, "n < 10")}},
				"either": {{Target: actorx.Targets{"open"}, Guard: actorx.Or("n > 10", actorx.Expr("event.force == true"))}},
				"never":  {{Target: actorx.Targets{"open"}, Guard: actorx.Not(positive)}},
				"inside": {{Target: actorx.Targets{"open"}, Guard: actorx.StateIn("closed")}},
			}},
			{ID: "open", On: map[string]actorx.TransitionList{"close": goTo("closed")}},
		},
	})
	s0, err := m.InitialSnapshot(nil)
	require.NoError(t, err)

	assert.True(t, s0.Can(actorx.NewEvent("both", nil)))
	assert.False(t, s0.Can(actorx.NewEvent("either", map[string]any{"force": false})))
	assert.True(t, s0.Can(actorx.NewEvent("either", map[string]any{"force": true})))
	assert.False(t, s0.Can(actorx.NewEvent("never", nil)))
	assert.True(t, s0.Can(actorx.NewEvent("inside", nil)))
}

func TestMalformedExpressionGuardFails(t *testing.T) {
	m := define(t, actorx.MachineConfig{
		ID:      "m",
		Initial: "a",
		States: []*actorx.StateConfig{
			{ID: "a", On: map[string]actorx.TransitionList{"go": {{Target: actorx.Targets{"b"}, Guard: actorx.Expr("count")}}}},
			{ID: "b"},
		},
	})
	s0, err := m.InitialSnapshot(nil)
	require.NoError(t, err)
	_, err = m.Transition(s0, actorx.NewEvent("go", nil))
	assert.ErrorIs(t, err, actorx.ErrGuardEvaluation)
}
