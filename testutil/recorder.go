// Package testutil drives actors deterministically in tests.
package testutil

import (
	"sync"

	"github.com/comalice/actorx"
)

// Recorder keeps every snapshot an actor emits, in order.
type Recorder struct {
	mu        sync.Mutex
	snapshots []actorx.Snapshot
	err       error
	completed bool
	sub       *actorx.Subscription
}

// Record subscribes a new Recorder to a. A started actor's current snapshot
// is recorded first.
func Record(a *actorx.Actor) *Recorder {
	r := &Recorder{}
	r.sub = a.Subscribe(r)
	return r
}

// Next implements actorx.Observer.
func (r *Recorder) Next(s actorx.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

// Error implements actorx.Observer.
func (r *Recorder) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Complete implements actorx.Observer.
func (r *Recorder) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
}

// Stop unsubscribes; recorded snapshots are kept.
func (r *Recorder) Stop() {
	if r.sub != nil {
		r.sub.Unsubscribe()
	}
}

// Snapshots returns a copy of the recorded snapshots.
func (r *Recorder) Snapshots() []actorx.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actorx.Snapshot(nil), r.snapshots...)
}

// Values returns the state value of each recorded snapshot.
func (r *Recorder) Values() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.snapshots))
	for i, s := range r.snapshots {
		out[i] = s.Value
	}
	return out
}

// Last returns the most recent snapshot. ok is false when none was recorded.
func (r *Recorder) Last() (actorx.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return actorx.Snapshot{}, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}

// Len returns the number of recorded snapshots.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// Err returns the error the actor failed with, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Completed reports whether the actor completed.
func (r *Recorder) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}
