package actorx

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx/clock"
	"github.com/comalice/actorx/internal/core"
)

// System is the tree of actors rooted at one CreateActor call. It holds the
// system id registry, the shared clock and the inspection stream.
type System struct {
	registry  *core.Registry[*Actor]
	clock     clock.Clock
	log       *logrus.Entry
	inspector Publisher
	root      *Actor
}

func newSystem(o actorOptions) *System {
	return &System{
		registry:  core.NewRegistry[*Actor](),
		clock:     o.clock,
		log:       o.logger,
		inspector: o.inspector,
	}
}

// Get returns the running actor registered under systemID.
func (s *System) Get(systemID string) (*Actor, bool) {
	return s.registry.Lookup(systemID)
}

// SystemIDs returns the registered system ids, sorted.
func (s *System) SystemIDs() []string {
	return s.registry.Keys()
}

// Root returns the root actor.
func (s *System) Root() *Actor { return s.root }

// Clock returns the clock shared by every actor of the system.
func (s *System) Clock() clock.Clock { return s.clock }

func (s *System) register(id string, a *Actor) error {
	return s.registry.Register(id, a)
}

func (s *System) unregister(id string, a *Actor) {
	s.registry.Unregister(id, func(v *Actor) bool { return v == a })
}

func (s *System) inspect(ev InspectionEvent) {
	ev.ID = ulid.Make().String()
	ev.Timestamp = s.clock.Now()
	if err := s.inspector.Publish(context.Background(), ev); err != nil {
		s.log.WithError(err).WithField("type", ev.Type).Debug("inspection event not published")
	}
}
