// Package benchmarks measures transition cost, event throughput, memory
// footprint and tick processing.
package benchmarks

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/builder"
)

// GenFlatConfig creates a flat machine with n atomic states cycling via "tick" events.
func GenFlatConfig(n int) actorx.MachineConfig {
	if n < 1 {
		n = 1
	}
	states := make([]*actorx.StateConfig, n)
	for i := range n {
		states[i] = builder.State(fmt.Sprintf("s%d", i), builder.On("tick", fmt.Sprintf("s%d", (i+1)%n)))
	}
	return builder.Machine(fmt.Sprintf("flat_%d", n), states...)
}

// GenDeepConfig creates a hierarchy depth levels deep whose innermost pair
// of leaves flips on "tick".
func GenDeepConfig(depth int) actorx.MachineConfig {
	if depth < 1 {
		depth = 1
	}
	node := builder.Composite(fmt.Sprintf("c%d", depth-1),
		builder.State("leaf1", builder.On("tick", "leaf2")),
		builder.State("leaf2", builder.On("tick", "leaf1")),
	)
	for i := depth - 2; i >= 0; i-- {
		node = builder.Composite(fmt.Sprintf("c%d", i), node)
	}
	return builder.Machine(fmt.Sprintf("deep_%d", depth), node)
}

// GenWideTransitions creates one main state with numTransitions guarded
// "tick" candidates. Only the last guard passes, so every event evaluates
// them all.
func GenWideTransitions(numTransitions int) actorx.MachineConfig {
	if numTransitions < 1 {
		numTransitions = 1
	}
	main := builder.State("main")
	states := []*actorx.StateConfig{main}
	for i := range numTransitions {
		target := fmt.Sprintf("target%d", i)
		pass := i == numTransitions-1
		builder.On("tick", target, builder.WithGuard(actorx.GuardFunc(func(actorx.Context, actorx.Event) bool {
			return pass
		})))(main)
		states = append(states, builder.State(target, builder.On("tick", "main")))
	}
	return builder.Machine(fmt.Sprintf("wide_%d", numTransitions), states...)
}

// MustMachine compiles cfg or fails the benchmark.
func MustMachine(b testing.TB, cfg actorx.MachineConfig) *actorx.Machine {
	b.Helper()
	m, err := actorx.DefineMachine(cfg)
	if err != nil {
		b.Fatal(err)
	}
	return m
}

// StartActor starts a silent actor for logic.
func StartActor(b testing.TB, logic actorx.Logic, opts ...actorx.ActorOption) *actorx.Actor {
	b.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts = append([]actorx.ActorOption{actorx.WithLogger(logrus.NewEntry(logger))}, opts...)
	a := actorx.CreateActor(logic, opts...)
	if err := a.Start(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(a.Stop)
	return a
}

// GenSnapshotYAML returns the YAML form of a persisted snapshot after one
// "tick" on a flat machine of numStates, or a deep one when hierarchical.
func GenSnapshotYAML(b testing.TB, numStates int, hierarchical bool) []byte {
	b.Helper()
	cfg := GenFlatConfig(numStates)
	if hierarchical {
		cfg = GenDeepConfig(5)
	}
	a := StartActor(b, MustMachine(b, cfg))
	a.Send(actorx.NewEvent("tick", nil))
	data, err := yaml.Marshal(a.PersistedSnapshot())
	if err != nil {
		b.Fatal(err)
	}
	return data
}
