// Package realtime drives an actor on fixed ticks.
//
// Events sent to a Runtime are batched and delivered at tick boundaries in a
// deterministic order: higher priority first, then submission order. Time
// inside the actor is a manual clock advanced by exactly one tick rate per
// tick, so delayed transitions fire on tick boundaries and a recorded event
// log replays to identical snapshots.
//
//	rt := realtime.NewRuntime(machine, realtime.Config{TickRate: 16667 * time.Microsecond})
//	rt.Start(ctx)
//	rt.SendEvent(actorx.NewEvent("jump", nil))
//
// Start runs the tick loop on a wall-clock ticker. Tests and replays call
// Step instead, which runs one tick synchronously.
//
// Each tick:
//  1. collects the queued events
//  2. sorts them by priority, then sequence number
//  3. delivers them to the actor in that order
//  4. advances the actor clock by the tick rate, firing due timers
package realtime
