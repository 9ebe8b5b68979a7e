package extensibility

import (
	"testing"
	"time"

	"github.com/comalice/actorx/clock"
	"github.com/comalice/actorx/internal/primitives"
)

func TestChannelEventSource(t *testing.T) {
	ch := make(chan primitives.Event, 1)
	s := NewChannelEventSource(ch)
	ch <- primitives.NewEvent("ping", nil)
	if ev := <-s.Events(); ev.Type != "ping" {
		t.Errorf("wrong event: %v", ev.Type)
	}
}

func TestIntervalEventSource(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := NewIntervalEventSource(clk, "tick", "data", time.Second)

	clk.Advance(500 * time.Millisecond)
	select {
	case ev := <-s.Events():
		t.Fatalf("early event %v", ev.Type)
	default:
	}

	clk.Advance(2500 * time.Millisecond)
	for i := 0; i < 3; i++ {
		select {
		case ev := <-s.Events():
			if ev.Type != "tick" || ev.Data != "data" {
				t.Errorf("wrong event: %v %v", ev.Type, ev.Data)
			}
		default:
			t.Fatalf("expected event %d", i+1)
		}
	}
}

func TestIntervalEventSource_Stop(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := NewIntervalEventSource(clk, "tick", nil, time.Second)
	s.Stop()
	s.Stop()
	if clk.Pending() != 0 {
		t.Errorf("timer still armed")
	}
	clk.Advance(time.Minute)
	if _, ok := <-s.Events(); ok {
		t.Error("channel should be closed")
	}
}

func TestIntervalEventSource_DropsWhenFull(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := NewIntervalEventSource(clk, "tick", nil, time.Second)
	defer s.Stop()
	clk.Advance(20 * time.Second)
	if got := len(s.Events()); got != 10 {
		t.Errorf("buffered %d events, want 10", got)
	}
}
