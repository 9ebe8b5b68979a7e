package primitives

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ComputeVersion computes a deterministic version for a MachineConfig.
// Priority: user-provided config.Version, else the first 8 bytes of a SHA256
// over the structural shape (ids, types, initial states, events, targets).
// Action and guard implementations do not contribute, so the same definition
// yields the same version across processes.
func ComputeVersion(config *MachineConfig) string {
	if config.Version != "" {
		return config.Version
	}

	var b strings.Builder
	writeShape(&b, config.Root())
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash[:8])
}

func writeShape(b *strings.Builder, s *StateConfig) {
	fmt.Fprintf(b, "(%s:%s:%s:%s", s.ID, s.EffectiveType(), s.Initial, s.History)
	events := make([]string, 0, len(s.On))
	for ev := range s.On {
		events = append(events, ev)
	}
	sort.Strings(events)
	for _, ev := range events {
		for _, tc := range s.On[ev] {
			fmt.Fprintf(b, "[%s>%s]", ev, strings.Join(tc.Target, ","))
		}
	}
	for _, tc := range s.Always {
		fmt.Fprintf(b, "[always>%s]", strings.Join(tc.Target, ","))
	}
	for _, d := range s.After {
		fmt.Fprintf(b, "[after %s>%s]", d.Key(), strings.Join(d.Target, ","))
	}
	for _, child := range s.Children {
		writeShape(b, child)
	}
	b.WriteString(")")
}
