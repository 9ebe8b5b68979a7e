package core

import "maps"

// History tracks history configurations for shallow and deep history states.
// Shallow: remembers the direct children of the parent that were active.
// Deep: remembers every active leaf below the parent.
//
// Entries are keyed by history state id and hold node ids. A History is a
// value: the resolver clones it before recording, so earlier snapshots keep
// what they saw.
type History struct {
	entries map[string][]string
}

// NewHistory creates an empty History.
func NewHistory() History {
	return History{entries: map[string][]string{}}
}

// HistoryFrom rebuilds a History from persisted entries.
func HistoryFrom(entries map[string][]string) History {
	h := NewHistory()
	for k, v := range entries {
		h.entries[k] = append([]string(nil), v...)
	}
	return h
}

// RecordExit records what was active when the parent of historyID was exited.
func (h *History) RecordExit(historyID string, nodes []string) {
	if h.entries == nil {
		h.entries = map[string][]string{}
	}
	h.entries[historyID] = append([]string(nil), nodes...)
}

// Restore returns the recorded node ids for a history state, if available.
func (h History) Restore(historyID string) ([]string, bool) {
	nodes, ok := h.entries[historyID]
	if !ok || len(nodes) == 0 {
		return nil, false
	}
	return nodes, true
}

// Clear removes recorded history for the given history state ID.
func (h *History) Clear(historyID string) {
	delete(h.entries, historyID)
}

// Clone returns an independent copy.
func (h History) Clone() History {
	out := History{entries: make(map[string][]string, len(h.entries))}
	maps.Copy(out.entries, h.entries)
	return out
}

// Entries returns a copy of the recorded entries, for persistence.
func (h History) Entries() map[string][]string {
	if len(h.entries) == 0 {
		return nil
	}
	out := make(map[string][]string, len(h.entries))
	for k, v := range h.entries {
		out[k] = append([]string(nil), v...)
	}
	return out
}
