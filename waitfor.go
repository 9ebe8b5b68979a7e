package actorx

import (
	"context"
	"fmt"
	"sync"
)

// WaitFor blocks until pred accepts a snapshot of a, the actor terminates,
// or ctx is done.
func WaitFor(ctx context.Context, a *Actor, pred func(Snapshot) bool) (Snapshot, error) {
	matched := make(chan Snapshot, 1)
	ended := make(chan error, 1)
	sub := a.Subscribe(ObserverFuncs{
		NextFn: func(s Snapshot) {
			if pred(s) {
				select {
				case matched <- s:
				default:
				}
			}
		},
		ErrorFn: func(err error) {
			select {
			case ended <- err:
			default:
			}
		},
		CompleteFn: func() {
			select {
			case ended <- ErrActorStopped:
			default:
			}
		},
	})
	defer sub.Unsubscribe()

	if s := a.GetSnapshot(); s.Started() && pred(s) {
		return s, nil
	}
	select {
	case s := <-matched:
		return s, nil
	case err := <-ended:
		select {
		case s := <-matched:
			return s, nil
		default:
		}
		return a.GetSnapshot(), fmt.Errorf("wait for %s: %w", a.id, err)
	case <-ctx.Done():
		return a.GetSnapshot(), fmt.Errorf("wait for %s: %w", a.id, ctx.Err())
	}
}

// Future is the eventual output of an actor.
type Future struct {
	once   sync.Once
	done   chan struct{}
	output any
	err    error
}

// ToPromise settles with the output when a is done, with its error when it
// fails, and with ErrActorStopped when it is stopped first.
func ToPromise(a *Actor) *Future {
	f := &Future{done: make(chan struct{})}
	a.Subscribe(ObserverFuncs{
		ErrorFn: func(err error) { f.settle(nil, err) },
		CompleteFn: func() {
			s := a.GetSnapshot()
			if s.Status == StatusDone {
				f.settle(s.Output, nil)
				return
			}
			f.settle(nil, ErrActorStopped)
		},
	})
	return f
}

func (f *Future) settle(out any, err error) {
	f.once.Do(func() {
		f.output, f.err = out, err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result blocks until the future settles.
func (f *Future) Result() (any, error) {
	<-f.done
	return f.output, f.err
}

// Await is Result bounded by ctx.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.output, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
