package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/clock"
)

// ErrQueueFull is returned by SendEvent when the tick batch is at capacity.
var ErrQueueFull = errors.New("event queue full")

// Epoch is the actor clock's time at tick zero.
var Epoch = time.Unix(0, 0).UTC()

// Config configures the tick runtime.
type Config struct {
	TickRate         time.Duration // default 60 Hz
	MaxEventsPerTick int           // default 1000
	Logger           *logrus.Entry
}

// Runtime delivers events to an actor in fixed ticks.
type Runtime struct {
	actor    *actorx.Actor
	clock    *clock.Manual
	tickRate time.Duration
	log      *logrus.Entry

	mu          sync.Mutex
	eventBatch  []EventWithMeta
	maxEvents   int
	sequenceNum uint64
	tickNum     uint64
	onTick      func(tick uint64, delivered []EventWithMeta, snap actorx.Snapshot)

	stepMu  sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRuntime creates the actor for logic on a manual clock. opts are passed
// to actorx.CreateActor; a WithClock option is overridden.
func NewRuntime(logic actorx.Logic, cfg Config, opts ...actorx.ActorOption) *Runtime {
	if cfg.MaxEventsPerTick == 0 {
		cfg.MaxEventsPerTick = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	clk := clock.NewManual(Epoch)
	opts = append(append([]actorx.ActorOption{actorx.WithLogger(cfg.Logger)}, opts...), actorx.WithClock(clk))
	return &Runtime{
		actor:      actorx.CreateActor(logic, opts...),
		clock:      clk,
		tickRate:   cfg.TickRate,
		log:        cfg.Logger.WithField("component", "realtime"),
		eventBatch: make([]EventWithMeta, 0, cfg.MaxEventsPerTick),
		maxEvents:  cfg.MaxEventsPerTick,
	}
}

// Actor returns the driven actor.
func (rt *Runtime) Actor() *actorx.Actor { return rt.actor }

// Snapshot returns the actor's current snapshot.
func (rt *Runtime) Snapshot() actorx.Snapshot { return rt.actor.GetSnapshot() }

// OnTick registers fn to run after every tick with the delivered events and
// the settled snapshot. It must be set before Start.
func (rt *Runtime) OnTick(fn func(tick uint64, delivered []EventWithMeta, snap actorx.Snapshot)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onTick = fn
}

// Start starts the actor and the wall-clock tick loop. The loop stops when
// ctx is done or Stop is called.
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.actor.Start(); err != nil {
		return err
	}
	ctx, rt.cancel = context.WithCancel(ctx)
	rt.stopped = make(chan struct{})
	go rt.tickLoop(ctx, time.NewTicker(rt.tickRate))
	return nil
}

// StartManual starts the actor without a tick loop; ticks run through Step.
func (rt *Runtime) StartManual() error {
	return rt.actor.Start()
}

// Stop ends the tick loop and stops the actor.
func (rt *Runtime) Stop() {
	if rt.cancel != nil {
		rt.cancel()
		<-rt.stopped
	}
	rt.actor.Stop()
}

func (rt *Runtime) tickLoop(ctx context.Context, ticker *time.Ticker) {
	defer close(rt.stopped)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.Step()
		}
	}
}

// SendEvent queues an event for the next tick.
func (rt *Runtime) SendEvent(event actorx.Event) error {
	return rt.SendEventWithPriority(event, 0)
}

// SendEventWithPriority queues an event; higher priorities are delivered
// first within a tick.
func (rt *Runtime) SendEventWithPriority(event actorx.Event, priority int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.eventBatch) >= rt.maxEvents {
		return ErrQueueFull
	}
	rt.eventBatch = append(rt.eventBatch, EventWithMeta{
		Event:       event,
		SequenceNum: rt.sequenceNum,
		Priority:    priority,
		Tick:        rt.tickNum,
	})
	rt.sequenceNum++
	return nil
}

// TickNumber returns the number of completed ticks.
func (rt *Runtime) TickNumber() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.tickNum
}

// Elapsed returns the actor clock's time since tick zero.
func (rt *Runtime) Elapsed() time.Duration {
	return rt.clock.Now().Sub(Epoch)
}
