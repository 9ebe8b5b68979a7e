package actorx

import (
	"context"
	"fmt"
)

// PersistedSnapshot captures the actor and, recursively, its invoked and
// named spawned children. Children spawned from an inline Logic cannot be
// looked up again on restore and are left out.
func (a *Actor) PersistedSnapshot() PersistedSnapshot {
	a.mu.Lock()
	snap := a.snapshot
	children := a.orderedChildren()
	a.mu.Unlock()

	ps := PersistedSnapshot{
		ActorID:   a.id,
		Logic:     a.logic.Kind(),
		Status:    snap.Status,
		Src:       a.src,
		SystemID:  a.systemID,
		Timestamp: a.system.clock.Now(),
	}
	if snap.Error != nil {
		ps.Error = snap.Error.Error()
	}
	a.rt.persist(snap, &ps)
	for _, c := range children {
		if c.invoked == nil && c.src == "" {
			continue
		}
		if ps.Children == nil {
			ps.Children = make(map[string]*PersistedSnapshot)
		}
		cps := c.PersistedSnapshot()
		ps.Children[c.id] = &cps
	}
	return ps
}

// Persist saves the actor's persisted snapshot under key.
func Persist(ctx context.Context, a *Actor, p Persister, key string) error {
	if err := p.Save(ctx, key, a.PersistedSnapshot()); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// Resume loads the snapshot stored under key and creates an actor that will
// continue from it once started.
func Resume(ctx context.Context, logic Logic, p Persister, key string, opts ...ActorOption) (*Actor, error) {
	ps, err := p.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", key, err)
	}
	return CreateActor(logic, append(opts, WithSnapshot(ps))...), nil
}
