package actorx

import "sync"

// Observer receives an actor's snapshots. Error and Complete are terminal;
// at most one of them is called, once.
type Observer interface {
	Next(Snapshot)
	Error(error)
	Complete()
}

// ObserverFuncs adapts functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	NextFn     func(Snapshot)
	ErrorFn    func(error)
	CompleteFn func()
}

func (o ObserverFuncs) Next(s Snapshot) {
	if o.NextFn != nil {
		o.NextFn(s)
	}
}

func (o ObserverFuncs) Error(err error) {
	if o.ErrorFn != nil {
		o.ErrorFn(err)
	}
}

func (o ObserverFuncs) Complete() {
	if o.CompleteFn != nil {
		o.CompleteFn()
	}
}

type observerEntry struct {
	id       int
	observer Observer
}

// Subscription cancels an observer registration.
type Subscription struct {
	once sync.Once
	fn   func()
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.fn == nil {
		return
	}
	s.once.Do(s.fn)
}

// Subscribe registers o. A running actor immediately delivers its current
// snapshot to o; a terminated one immediately calls Error or Complete.
func (a *Actor) Subscribe(o Observer) *Subscription {
	a.mu.Lock()
	if a.state == lifecycleStopped {
		snap := a.snapshot
		a.mu.Unlock()
		if snap.Status == StatusError {
			a.notify(func() { o.Error(snap.Error) })
		} else {
			a.notify(o.Complete)
		}
		return &Subscription{}
	}
	a.nextObserver++
	id := a.nextObserver
	a.observers = append(a.observers, observerEntry{id: id, observer: o})
	snap := a.snapshot
	running := a.state == lifecycleRunning && snap.Started()
	a.mu.Unlock()

	if running {
		a.notify(func() { o.Next(snap) })
	}
	return &Subscription{fn: func() { a.unsubscribe(id) }}
}

// SubscribeFunc subscribes fn to snapshots only.
func (a *Actor) SubscribeFunc(fn func(Snapshot)) *Subscription {
	return a.Subscribe(ObserverFuncs{NextFn: fn})
}

func (a *Actor) unsubscribe(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range a.observers {
		if e.id == id {
			a.observers = append(a.observers[:i:i], a.observers[i+1:]...)
			return
		}
	}
}
