package extensibility

import (
	"sync"
	"time"

	"github.com/comalice/actorx/clock"
	"github.com/comalice/actorx/internal/primitives"
)

// EventSource is a stream of events. The stream ends when the channel is
// closed.
type EventSource interface {
	Events() <-chan primitives.Event
}

// StoppableEventSource is an EventSource that can be told to stop producing.
type StoppableEventSource interface {
	EventSource
	Stop()
}

// ChannelEventSource is an EventSource backed by a Go channel.
type ChannelEventSource struct {
	ch chan primitives.Event
}

// NewChannelEventSource creates a new ChannelEventSource with the given channel.
// The channel should be buffered if backpressure handling is needed.
func NewChannelEventSource(ch chan primitives.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch}
}

// Events returns the receive-only channel for events.
func (s *ChannelEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// IntervalEventSource emits the same event every period of its clock.
// Emissions are dropped while the buffer is full.
type IntervalEventSource struct {
	clock     clock.Clock
	eventType string
	data      any
	every     time.Duration

	mu      sync.Mutex
	ch      chan primitives.Event
	timer   clock.Timer
	stopped bool
}

// NewIntervalEventSource starts emitting eventType every d.
func NewIntervalEventSource(clk clock.Clock, eventType string, data any, d time.Duration) *IntervalEventSource {
	if clk == nil {
		clk = clock.New()
	}
	s := &IntervalEventSource{
		clock:     clk,
		eventType: eventType,
		data:      data,
		every:     d,
		ch:        make(chan primitives.Event, 10),
	}
	s.mu.Lock()
	s.arm()
	s.mu.Unlock()
	return s
}

// arm must be called with mu held.
func (s *IntervalEventSource) arm() {
	s.timer = s.clock.AfterFunc(s.every, s.tick)
}

func (s *IntervalEventSource) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	select {
	case s.ch <- primitives.NewEvent(s.eventType, s.data):
	default:
		// drop if full
	}
	s.arm()
}

// Events returns the event channel.
func (s *IntervalEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// Stop cancels the pending tick and closes the channel. It is idempotent.
func (s *IntervalEventSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.ch)
}
