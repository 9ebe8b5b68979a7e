package actorx

import (
	"github.com/comalice/actorx/internal/core"
	"github.com/comalice/actorx/internal/primitives"
)

// Declarative machine definition types.
type (
	Event                   = primitives.Event
	Context                 = primitives.Context
	MachineConfig           = primitives.MachineConfig
	StateConfig             = primitives.StateConfig
	TransitionConfig        = primitives.TransitionConfig
	TransitionList          = primitives.TransitionList
	Targets                 = primitives.Targets
	DelayedTransitionConfig = primitives.DelayedTransitionConfig
	InvokeConfig            = primitives.InvokeConfig
	StateType               = primitives.StateType
	HistoryType             = primitives.HistoryType
	ActionRef               = primitives.ActionRef
	GuardRef                = primitives.GuardRef
)

// Runtime contract types.
type (
	Status            = core.Status
	Action            = core.Action
	Guard             = core.Guard
	GuardArgs         = core.GuardArgs
	GuardFunc         = core.GuardFunc
	GuardFuncArgs     = core.GuardFuncArgs
	DelayFunc         = core.DelayFunc
	ActionRunner      = core.ActionRunner
	ActionCall        = core.ActionCall
	PersistedSnapshot = core.PersistedSnapshot
	Persister         = core.Persister
	InspectionEvent   = core.InspectionEvent
	Publisher         = core.Publisher
)

const (
	Atomic   = primitives.Atomic
	Compound = primitives.Compound
	Parallel = primitives.Parallel
	Final    = primitives.Final
	History  = primitives.History

	Shallow = primitives.Shallow
	Deep    = primitives.Deep
)

const (
	StatusActive  = core.StatusActive
	StatusDone    = core.StatusDone
	StatusError   = core.StatusError
	StatusStopped = core.StatusStopped
	// StatusNotStarted marks the snapshot of an actor that was never started.
	StatusNotStarted Status = "not-started"
)

// Reserved event types and prefixes.
const (
	EventInit       = primitives.EventInit
	EventWildcard   = primitives.EventWildcard
	PrefixDoneState = primitives.PrefixDoneState
	PrefixDoneActor = primitives.PrefixDoneActor
	PrefixError     = primitives.PrefixError
	PrefixSnapshot  = primitives.PrefixSnapshot
	PrefixAfter     = primitives.PrefixAfter
)

// NewEvent builds an event.
func NewEvent(eventType string, data any) Event {
	return primitives.NewEvent(eventType, data)
}
