package realtime

import (
	"sort"

	"github.com/comalice/actorx"
)

// EventWithMeta adds sequencing metadata for deterministic ordering.
type EventWithMeta struct {
	Event       actorx.Event
	SequenceNum uint64
	Priority    int
	Tick        uint64 // tick the event was queued in
}

// sortEvents orders events: higher priority first, then FIFO.
func sortEvents(events []EventWithMeta) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Priority != events[j].Priority {
			return events[i].Priority > events[j].Priority
		}
		return events[i].SequenceNum < events[j].SequenceNum
	})
}
