package realtime

import (
	"fmt"

	"github.com/comalice/actorx"
)

// Step runs one tick synchronously and returns the settled snapshot.
func (rt *Runtime) Step() actorx.Snapshot {
	rt.stepMu.Lock()
	defer rt.stepMu.Unlock()

	events := rt.collectEvents()
	sortEvents(events)

	func() {
		defer func() {
			if r := recover(); r != nil {
				rt.log.WithField("panic", fmt.Sprint(r)).Error("tick panicked")
			}
		}()
		for _, ev := range events {
			rt.actor.Send(ev.Event)
		}
		rt.clock.Advance(rt.tickRate)
	}()

	snap := rt.actor.GetSnapshot()
	rt.mu.Lock()
	rt.tickNum++
	tick, hook := rt.tickNum, rt.onTick
	rt.mu.Unlock()

	if hook != nil {
		hook(tick, events, snap)
	}
	return snap
}

// StepN runs n ticks.
func (rt *Runtime) StepN(n int) actorx.Snapshot {
	var snap actorx.Snapshot
	for range n {
		snap = rt.Step()
	}
	return snap
}

// collectEvents atomically retrieves and clears the event batch.
func (rt *Runtime) collectEvents() []EventWithMeta {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	events := rt.eventBatch
	rt.eventBatch = make([]EventWithMeta, 0, rt.maxEvents)
	return events
}
