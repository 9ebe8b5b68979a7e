package actorx

import (
	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx/clock"
	"github.com/comalice/actorx/internal/extensibility"
)

// ActorOption configures an actor created with CreateActor.
type ActorOption func(*actorOptions)

type actorOptions struct {
	id        string
	systemID  string
	input     any
	snapshot  *PersistedSnapshot
	clock     clock.Clock
	logger    *logrus.Entry
	inspector Publisher
	runner    ActionRunner
	src       string
}

func defaultActorOptions() actorOptions {
	return actorOptions{}
}

// WithID sets the actor id. Root actors default to the logic id, children to
// their invoke id or a generated id.
func WithID(id string) ActorOption {
	return func(o *actorOptions) { o.id = id }
}

// WithSystemID registers the actor in its system under id.
func WithSystemID(id string) ActorOption {
	return func(o *actorOptions) { o.systemID = id }
}

// WithInput passes input to the logic. Machines receive it in their context
// function and as the data of the init event.
func WithInput(input any) ActorOption {
	return func(o *actorOptions) { o.input = input }
}

// WithSnapshot resumes the actor from a persisted snapshot instead of
// entering the initial state. Entry actions of restored states do not run.
func WithSnapshot(s PersistedSnapshot) ActorOption {
	return func(o *actorOptions) { o.snapshot = &s }
}

// WithClock sets the clock used for delayed transitions and delayed sends.
// Children inherit the system clock.
func WithClock(c clock.Clock) ActorOption {
	return func(o *actorOptions) { o.clock = c }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l *logrus.Entry) ActorOption {
	return func(o *actorOptions) { o.logger = l }
}

// WithInspector receives the inspection stream of the whole system.
func WithInspector(p Publisher) ActorOption {
	return func(o *actorOptions) { o.inspector = p }
}

// WithActionRunner sets the runner that executes side-effect actions.
func WithActionRunner(r ActionRunner) ActorOption {
	return func(o *actorOptions) { o.runner = r }
}

func (o *actorOptions) fill(parent *Actor) {
	if parent != nil {
		if o.clock == nil {
			o.clock = parent.system.clock
		}
		if o.runner == nil {
			o.runner = parent.runner
		}
		if o.logger == nil {
			o.logger = parent.system.log
		}
		return
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.runner == nil {
		o.runner = &extensibility.DefaultActionRunner{}
	}
	if o.logger == nil {
		o.logger = logrus.NewEntry(logrus.StandardLogger())
	}
}
