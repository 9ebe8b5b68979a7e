package benchmarks

import (
	"testing"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/builder"
)

func benchmarkSend(b *testing.B, cfg actorx.MachineConfig) {
	a := StartActor(b, MustMachine(b, cfg))
	e := actorx.NewEvent("tick", nil)
	b.ResetTimer()
	b.ReportAllocs()
	for b.Loop() {
		a.Send(e)
	}
	b.StopTimer()
	if status := a.GetSnapshot().Status; status != actorx.StatusActive {
		b.Fatalf("actor ended in status %s", status)
	}
}

func BenchmarkSimpleTransition(b *testing.B) {
	benchmarkSend(b, builder.Machine("simple", builder.State("idle", builder.On("tick", "idle"))))
}

func BenchmarkHierarchicalTransition(b *testing.B) {
	benchmarkSend(b, GenDeepConfig(1))
}

func BenchmarkDeepTransition(b *testing.B) {
	benchmarkSend(b, GenDeepConfig(10))
}

func BenchmarkParallelTransition(b *testing.B) {
	region := func(id string) *actorx.StateConfig {
		return builder.Composite(id,
			builder.State("off", builder.On("tick", "on")),
			builder.State("on", builder.On("tick", "off")),
		)
	}
	benchmarkSend(b, builder.ParallelMachine("par", region("r1"), region("r2"), region("r3"), region("r4")))
}

func BenchmarkGuardedTransition(b *testing.B) {
	benchmarkSend(b, GenWideTransitions(16))
}

func BenchmarkExpressionGuard(b *testing.B) {
	cfg := builder.Machine("expr", builder.State("idle",
		builder.On("tick", "idle", builder.WithGuard("event.n >= 0")),
	))
	a := StartActor(b, MustMachine(b, cfg))
	e := actorx.NewEvent("tick", map[string]any{"n": 1})
	b.ReportAllocs()
	for b.Loop() {
		a.Send(e)
	}
}

func BenchmarkPureTransition(b *testing.B) {
	m := MustMachine(b, GenFlatConfig(10))
	snap, err := m.InitialSnapshot(nil)
	if err != nil {
		b.Fatal(err)
	}
	e := actorx.NewEvent("tick", nil)
	b.ReportAllocs()
	for b.Loop() {
		if snap, err = m.Transition(snap, e); err != nil {
			b.Fatal(err)
		}
	}
}
