package ecs

// World is the top-level ECS container: the entity pool, the component
// registry, a deferred destruction queue, and destroy hooks that let
// higher-level registries observe entity deletion before component data
// is released.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	destroyHooks []func(EntityID)
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

func (w *World) Stage(id EntityID) Stage {
	return w.pool.Stage(id)
}

func (w *World) SetStage(id EntityID, s Stage) {
	w.pool.SetStage(id, s)
}

// OnDestroy registers a hook invoked for every entity deletion, after the
// entity enters StageTerminating but before its components are removed.
// Hooks run in registration order on the deleting goroutine.
func (w *World) OnDestroy(fn func(EntityID)) {
	w.destroyHooks = append(w.destroyHooks, fn)
}

// DeleteEntity destroys an entity immediately. Safe to call with stale or
// already-terminating references; those are no-ops, which keeps mutual
// deletion cascades from recursing.
func (w *World) DeleteEntity(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	if w.pool.Stage(id) >= StageTerminating {
		return
	}
	w.pool.SetStage(id, StageTerminating)
	for _, fn := range w.destroyHooks {
		fn(id)
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue deletes all queued entities. Called by CleanupSystem at
// the end of each tick.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.DeleteEntity(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
