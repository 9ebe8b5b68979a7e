package benchmarks

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/builder"
	"github.com/comalice/actorx/realtime"
)

func newTickRuntime(b *testing.B, maxEvents int) *realtime.Runtime {
	b.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := MustMachine(b, builder.Machine("flip",
		builder.State("a", builder.On("flip", "b")),
		builder.State("b", builder.On("flip", "a")),
	))
	rt := realtime.NewRuntime(m, realtime.Config{
		TickRate:         time.Millisecond,
		MaxEventsPerTick: maxEvents,
		Logger:           logrus.NewEntry(logger),
	})
	if err := rt.StartManual(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(rt.Stop)
	return rt
}

// BenchmarkRealtimeTickProcessing measures one tick delivering a batch.
func BenchmarkRealtimeTickProcessing(b *testing.B) {
	for _, batch := range []int{1, 10, 100, 1000} {
		b.Run(fmt.Sprintf("batch=%d", batch), func(b *testing.B) {
			rt := newTickRuntime(b, batch)
			e := actorx.NewEvent("flip", nil)
			b.ReportAllocs()
			for b.Loop() {
				for j := range batch {
					if err := rt.SendEventWithPriority(e, j%3); err != nil {
						b.Fatal(err)
					}
				}
				rt.Step()
			}
			b.ReportMetric(float64(batch), "events/tick")
		})
	}
}

// BenchmarkRealtimeQueueCapacity measures enqueueing up to backpressure.
func BenchmarkRealtimeQueueCapacity(b *testing.B) {
	const capacity = 10000
	rt := newTickRuntime(b, capacity)
	e := actorx.NewEvent("flip", nil)
	b.ReportAllocs()
	for b.Loop() {
		n := 0
		for rt.SendEvent(e) == nil {
			n++
		}
		if n != capacity {
			b.Fatalf("accepted %d events, want %d", n, capacity)
		}
		rt.Step()
	}
}
