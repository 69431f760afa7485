package system

import (
	"time"

	"github.com/gridforge/server/internal/core/ecs"
	coresys "github.com/gridforge/server/internal/core/system"
	"github.com/gridforge/server/internal/geom"
	"github.com/gridforge/server/internal/world"
	"go.uber.org/zap"
)

// ContactPair is a coarse world-AABB overlap between two collider entities
// on the same map. Pair order is normalized (A < B).
type ContactPair struct {
	A, B ecs.EntityID
}

// BroadphaseSystem scans collider entities each tick and generates contact
// pairs. Colliders parented to a grid pick up the grid body's translation
// and rotation through the transform chain, so moving a grid moves every
// body riding on it.
type BroadphaseSystem struct {
	mgr *world.Manager
	log *zap.Logger

	contacts []ContactPair
	scratch  []colliderEntry
}

type colliderEntry struct {
	id    ecs.EntityID
	mapID world.MapID
	box   geom.AABB
}

func NewBroadphaseSystem(mgr *world.Manager, log *zap.Logger) *BroadphaseSystem {
	return &BroadphaseSystem{mgr: mgr, log: log}
}

func (s *BroadphaseSystem) Phase() coresys.Phase { return coresys.PhaseBroadphase }

func (s *BroadphaseSystem) Update(dt time.Duration) {
	s.Scan()
}

// Scan recomputes the contact set. Exposed separately so hosts and tests can
// run a broadphase pass outside the tick loop.
func (s *BroadphaseSystem) Scan() {
	s.contacts = s.contacts[:0]
	s.scratch = s.scratch[:0]

	em := s.mgr.Entities()
	em.Colliders.Each(func(id ecs.EntityID, c *world.Collider) {
		xf := em.WorldTransform(id)
		local := geom.AABB{Min: geom.Vec2{X: -c.Half.X, Y: -c.Half.Y}, Max: c.Half}
		s.scratch = append(s.scratch, colliderEntry{
			id:    id,
			mapID: s.mgr.MapOf(id),
			box:   xf.TransformAABB(local),
		})
	})

	for i := 0; i < len(s.scratch); i++ {
		for j := i + 1; j < len(s.scratch); j++ {
			a, b := s.scratch[i], s.scratch[j]
			if a.mapID != b.mapID {
				continue
			}
			if !a.box.Intersects(b.box) {
				continue
			}
			p := ContactPair{A: a.id, B: b.id}
			if p.B < p.A {
				p.A, p.B = p.B, p.A
			}
			s.contacts = append(s.contacts, p)
		}
	}
}

// Contacts returns the pairs found by the last scan. Valid until the next
// Update/Scan call.
func (s *BroadphaseSystem) Contacts() []ContactPair {
	return s.contacts
}
