package primitives

// Event is the unit of input to an actor.
//
// Type is the discriminant used for transition lookup. Data carries the
// payload; map payloads can be read with Get. Events are values: consumers
// must not modify Data after the event was sent.
//
// Example:
//
//	ev := NewEvent("inc", map[string]any{"by": 2})
//	by, _ := ev.Get("by")
type Event struct {
	Type string `json:"type" yaml:"type"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// Reserved event types and prefixes produced by the runtime.
const (
	EventInit       = "actorx.init"
	EventWildcard   = "*"
	PrefixDoneState = "done.state."
	PrefixDoneActor = "done.invoke."
	PrefixError     = "error.platform."
	PrefixSnapshot  = "actorx.snapshot."
	PrefixAfter     = "actorx.after."
)

// NewEvent creates and returns a new Event.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
	}
}

// Get returns a field of a map payload.
func (e Event) Get(key string) (any, bool) {
	switch d := e.Data.(type) {
	case map[string]any:
		v, ok := d[key]
		return v, ok
	case Context:
		v, ok := d[key]
		return v, ok
	}
	return nil, false
}
