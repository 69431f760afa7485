package world

import (
	"github.com/gridforge/server/internal/core/ecs"
	"github.com/gridforge/server/internal/geom"
	"go.uber.org/zap"
)

// Transform places an entity relative to its parent. Entities with a zero
// Parent are in the world frame directly.
type Transform struct {
	Parent ecs.EntityID
	Local  geom.Transform
}

// Collider gives an entity a half-extent box for broadphase scans.
type Collider struct {
	Half geom.Vec2
}

// MapRoot marks an entity as the root of a map's coordinate space. Orphan
// entities carrying this marker (e.g. loaded from a snapshot before the
// registry recreates the map) are rebound instead of duplicated.
type MapRoot struct {
	MapID MapID
}

// GridRoot marks an entity as the backing body of a grid.
type GridRoot struct {
	GridID GridID
}

// EntityManager is the entity lifecycle and transform provider for the map
// and grid registries: generational entities with lifecycle stages, the
// typed component stores the spatial core needs, and world-pose composition
// along parent chains.
type EntityManager struct {
	ecs *ecs.World
	log *zap.Logger

	Transforms *ecs.PtrComponentStore[Transform]
	Colliders  *ecs.PtrComponentStore[Collider]
	MapRoots   *ecs.PtrComponentStore[MapRoot]
	GridRoots  *ecs.PtrComponentStore[GridRoot]
}

func NewEntityManager(log *zap.Logger) *EntityManager {
	em := &EntityManager{
		ecs:        ecs.NewWorld(),
		log:        log,
		Transforms: ecs.NewPtrComponentStore[Transform](),
		Colliders:  ecs.NewPtrComponentStore[Collider](),
		MapRoots:   ecs.NewPtrComponentStore[MapRoot](),
		GridRoots:  ecs.NewPtrComponentStore[GridRoot](),
	}
	em.ecs.Registry().Register(em.Transforms)
	em.ecs.Registry().Register(em.Colliders)
	em.ecs.Registry().Register(em.MapRoots)
	em.ecs.Registry().Register(em.GridRoots)
	return em
}

// CreateEntity allocates an uninitialized entity with an identity transform.
func (em *EntityManager) CreateEntity() ecs.EntityID {
	id := em.ecs.CreateEntity()
	em.Transforms.Set(id, &Transform{})
	return id
}

// Spawn creates an initialized entity parented under parent at the given
// local pose. A zero parent spawns in the world frame.
func (em *EntityManager) Spawn(parent ecs.EntityID, local geom.Transform) ecs.EntityID {
	id := em.CreateEntity()
	em.Transforms.Set(id, &Transform{Parent: parent, Local: local})
	em.ecs.SetStage(id, ecs.StageInitialized)
	return id
}

func (em *EntityManager) Alive(id ecs.EntityID) bool      { return em.ecs.Alive(id) }
func (em *EntityManager) Stage(id ecs.EntityID) ecs.Stage { return em.ecs.Stage(id) }
func (em *EntityManager) SetStage(id ecs.EntityID, s ecs.Stage) {
	em.ecs.SetStage(id, s)
}

// OnDestroy registers a deletion observer; see ecs.World.OnDestroy.
func (em *EntityManager) OnDestroy(fn func(ecs.EntityID)) {
	em.ecs.OnDestroy(fn)
}

// DeleteEntity destroys an entity immediately. Idempotent for stale and
// mid-deletion references.
func (em *EntityManager) DeleteEntity(id ecs.EntityID) {
	em.ecs.DeleteEntity(id)
}

// MarkForDestruction queues an entity for end-of-tick deletion.
func (em *EntityManager) MarkForDestruction(id ecs.EntityID) {
	em.ecs.MarkForDestruction(id)
}

// FlushDeferred deletes all queued entities (cleanup phase).
func (em *EntityManager) FlushDeferred() {
	em.ecs.FlushDestroyQueue()
}

// AttachParent reparents child, keeping its local pose fields as given.
func (em *EntityManager) AttachParent(child, parent ecs.EntityID, local geom.Transform) {
	em.Transforms.Set(child, &Transform{Parent: parent, Local: local})
}

// SetLocalPose updates an entity's pose relative to its current parent.
func (em *EntityManager) SetLocalPose(id ecs.EntityID, pose geom.Transform) {
	if tf, ok := em.Transforms.Get(id); ok {
		tf.Local = pose
		return
	}
	em.Transforms.Set(id, &Transform{Local: pose})
}

// WorldTransform composes an entity's pose through its parent chain. A bound
// on chain length guards against accidental parent cycles.
func (em *EntityManager) WorldTransform(id ecs.EntityID) geom.Transform {
	var chain [32]ecs.EntityID
	n := 0
	for cur := id; !cur.IsZero() && n < len(chain); {
		tf, ok := em.Transforms.Get(cur)
		if !ok {
			break
		}
		chain[n] = cur
		n++
		cur = tf.Parent
	}
	out := geom.Transform{}
	for i := n - 1; i >= 0; i-- {
		tf, _ := em.Transforms.Get(chain[i])
		out = out.Compose(tf.Local)
	}
	return out
}

// IsDescendant reports whether id sits under ancestor in the transform tree.
func (em *EntityManager) IsDescendant(id, ancestor ecs.EntityID) bool {
	for n := 0; n < 32; n++ {
		tf, ok := em.Transforms.Get(id)
		if !ok || tf.Parent.IsZero() {
			return false
		}
		if tf.Parent == ancestor {
			return true
		}
		id = tf.Parent
	}
	return false
}

// findOrphanMapRoot returns entities that self-declare as root of mapID and
// are not past their initialized stage.
func (em *EntityManager) findOrphanMapRoot(mapID MapID) []ecs.EntityID {
	return em.MapRoots.Find(func(c *MapRoot) bool { return c.MapID == mapID })
}

// findOrphanGridRoot returns entities that self-declare as backing gridID.
func (em *EntityManager) findOrphanGridRoot(gridID GridID) []ecs.EntityID {
	return em.GridRoots.Find(func(c *GridRoot) bool { return c.GridID == gridID })
}
