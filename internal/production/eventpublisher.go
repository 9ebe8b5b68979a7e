package production

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx/internal/core"
)

// ChannelPublisher forwards inspection events to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	mu     sync.Mutex
	ch     chan<- core.InspectionEvent
	closed bool
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- core.InspectionEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, ev core.InspectionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil // Non-blocking drop
	}
}

func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// LogrusPublisher writes inspection events as structured log entries.
type LogrusPublisher struct {
	log   *logrus.Entry
	level logrus.Level
}

// NewLogrusPublisher logs events through logger at level.
func NewLogrusPublisher(logger *logrus.Entry, level logrus.Level) *LogrusPublisher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogrusPublisher{log: logger, level: level}
}

func (p *LogrusPublisher) Publish(_ context.Context, ev core.InspectionEvent) error {
	fields := logrus.Fields{
		"inspection": ev.ID,
		"actor":      ev.ActorID,
		"session":    ev.SessionID,
	}
	if ev.SystemID != "" {
		fields["system_id"] = ev.SystemID
	}
	if ev.ParentSessionID != "" {
		fields["parent_session"] = ev.ParentSessionID
	}
	if ev.Event != nil {
		fields["event"] = ev.Event.Type
	}
	if ev.Snapshot != nil {
		fields["status"] = ev.Snapshot.Status
		fields["value"] = ev.Snapshot.Value
	}
	p.log.WithFields(fields).Log(p.level, ev.Type)
	return nil
}

func (p *LogrusPublisher) Close() error { return nil }

// RecordingPublisher keeps inspection events in memory. With a positive
// limit only the most recent limit events are kept.
type RecordingPublisher struct {
	mu     sync.Mutex
	limit  int
	events []core.InspectionEvent
}

// NewRecordingPublisher creates a RecordingPublisher; limit <= 0 keeps all.
func NewRecordingPublisher(limit int) *RecordingPublisher {
	return &RecordingPublisher{limit: limit}
}

func (p *RecordingPublisher) Publish(_ context.Context, ev core.InspectionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	if p.limit > 0 && len(p.events) > p.limit {
		p.events = append([]core.InspectionEvent(nil), p.events[len(p.events)-p.limit:]...)
	}
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Events returns a copy of the recorded events in publish order.
func (p *RecordingPublisher) Events() []core.InspectionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.InspectionEvent(nil), p.events...)
}

// Types returns the recorded event types in publish order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// MultiPublisher fans out to several publishers. The first error wins but
// every publisher is called.
type MultiPublisher []core.Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev core.InspectionEvent) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiPublisher) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
