package core

import (
	"context"
	"errors"
	"time"

	"github.com/comalice/actorx/internal/primitives"
)

// ErrNotFound is returned by persisters for unknown keys.
var ErrNotFound = errors.New("snapshot not found")

// PersistedSnapshot is the serializable form of an actor and its children.
// Feeding it back into a new actor resumes at the recorded configuration
// without running entry actions again.
type PersistedSnapshot struct {
	ActorID   string                        `json:"actorId" yaml:"actorId"`
	Logic     string                        `json:"logic" yaml:"logic"`
	MachineID string                        `json:"machineId,omitempty" yaml:"machineId,omitempty"`
	Version   string                        `json:"version,omitempty" yaml:"version,omitempty"`
	Status    Status                        `json:"status" yaml:"status"`
	States    []string                      `json:"states,omitempty" yaml:"states,omitempty"`
	Context   map[string]any                `json:"context,omitempty" yaml:"context,omitempty"`
	History   map[string][]string           `json:"history,omitempty" yaml:"history,omitempty"`
	Value     any                           `json:"value,omitempty" yaml:"value,omitempty"`
	Output    any                           `json:"output,omitempty" yaml:"output,omitempty"`
	Error     string                        `json:"error,omitempty" yaml:"error,omitempty"`
	Src       string                        `json:"src,omitempty" yaml:"src,omitempty"`
	SystemID  string                        `json:"systemId,omitempty" yaml:"systemId,omitempty"`
	Children  map[string]*PersistedSnapshot `json:"children,omitempty" yaml:"children,omitempty"`
	Timestamp time.Time                     `json:"timestamp" yaml:"timestamp"`
}

// Persister stores persisted snapshots under a key.
type Persister interface {
	Save(ctx context.Context, key string, snapshot PersistedSnapshot) error
	Load(ctx context.Context, key string) (PersistedSnapshot, error)
}

// Inspection event types.
const (
	InspectRegister = "actor.register"
	InspectStop     = "actor.stop"
	InspectState    = "actor.state"
	InspectEvent    = "actor.event"
)

// SnapshotSummary is the serializable part of a snapshot sent to inspectors.
type SnapshotSummary struct {
	Status  Status         `json:"status" yaml:"status"`
	Value   any            `json:"value,omitempty" yaml:"value,omitempty"`
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	Output  any            `json:"output,omitempty" yaml:"output,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// InspectionEvent is one record of the inspection side channel. It is pure
// observation and never feeds back into the engine.
type InspectionEvent struct {
	ID              string            `json:"id" yaml:"id"`
	Type            string            `json:"type" yaml:"type"`
	ActorID         string            `json:"actorId" yaml:"actorId"`
	SessionID       string            `json:"sessionId" yaml:"sessionId"`
	ParentSessionID string            `json:"parentSessionId,omitempty" yaml:"parentSessionId,omitempty"`
	SourceSessionID string            `json:"sourceSessionId,omitempty" yaml:"sourceSessionId,omitempty"`
	SystemID        string            `json:"systemId,omitempty" yaml:"systemId,omitempty"`
	Event           *primitives.Event `json:"event,omitempty" yaml:"event,omitempty"`
	Snapshot        *SnapshotSummary  `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Timestamp       time.Time         `json:"timestamp" yaml:"timestamp"`
}

// Publisher receives inspection events.
type Publisher interface {
	Publish(ctx context.Context, ev InspectionEvent) error
	Close() error
}

// Visualizer renders a model, highlighting the given active node ids.
type Visualizer interface {
	ExportDOT(model *Model, active []string) string
	ExportJSON(config primitives.MachineConfig) ([]byte, error)
}
