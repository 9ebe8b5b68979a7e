// Package actorx is a statechart interpreter and actor runtime.
//
// A machine is described declaratively with MachineConfig (in Go, through
// the builder package, or in YAML through the loader package) and compiled
// with DefineMachine. CreateActor wraps any Logic (a machine, a promise, a
// transition function, an event source or a callback) in an Actor that owns
// a FIFO mailbox, processes one event at a time, and emits a Snapshot to its
// observers after every settled step.
//
//	machine, err := actorx.DefineMachine(actorx.MachineConfig{
//	    ID:      "toggle",
//	    Initial: "inactive",
//	    States: []*actorx.StateConfig{
//	        {ID: "inactive", On: map[string]actorx.TransitionList{"toggle": {{Target: actorx.Targets{"active"}}}}},
//	        {ID: "active", On: map[string]actorx.TransitionList{"toggle": {{Target: actorx.Targets{"inactive"}}}}},
//	    },
//	})
//	actor := actorx.CreateActor(machine)
//	actor.Start()
//	actor.Send(actorx.NewEvent("toggle", nil))
//	actor.GetSnapshot().Value // "active"
//
// Processing is synchronous: Send drains the mailbox on the calling goroutine
// unless another goroutine is already draining it. Timers, promise results
// and child notifications are delivered through the same mailbox, so they
// never race an in-flight step.
package actorx
