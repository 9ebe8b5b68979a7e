package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/comalice/actorx"
)

// parseEvent reads an event flag: a bare type ("toggle") or a JSON object
// with a "type" field whose other fields become the payload
// ('{"type":"inc","by":2}').
func parseEvent(s string) (actorx.Event, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return actorx.Event{}, fmt.Errorf("empty event")
	}
	if !strings.HasPrefix(s, "{") {
		return actorx.NewEvent(s, nil), nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return actorx.Event{}, fmt.Errorf("event %s: %w", s, err)
	}
	typ, _ := payload["type"].(string)
	if typ == "" {
		return actorx.Event{}, fmt.Errorf("event %s: missing string field \"type\"", s)
	}
	delete(payload, "type")
	var data any
	if len(payload) > 0 {
		data = payload
	}
	return actorx.NewEvent(typ, data), nil
}

func parseEvents(flags []string) ([]actorx.Event, error) {
	out := make([]actorx.Event, 0, len(flags))
	for _, f := range flags {
		ev, err := parseEvent(f)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// SnapshotView is the serialisable form of a snapshot.
type SnapshotView struct {
	ID       string         `json:"id"`
	Status   actorx.Status  `json:"status"`
	Value    any            `json:"value"`
	StateIDs []string       `json:"stateIds,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Output   any            `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Children []string       `json:"children,omitempty"`
}

func viewOf(id string, snap actorx.Snapshot) SnapshotView {
	v := SnapshotView{
		ID:       id,
		Status:   snap.Status,
		Value:    snap.Value,
		StateIDs: snap.StateIDs(),
		Output:   snap.Output,
		Tags:     snap.Tags,
	}
	if snap.Context != nil {
		v.Context = snap.Context.Snapshot()
	}
	if snap.Error != nil {
		v.Error = snap.Error.Error()
	}
	for child := range snap.Children {
		v.Children = append(v.Children, child)
	}
	slices.Sort(v.Children)
	return v
}

// compact renders a state value on one line.
func compact(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
