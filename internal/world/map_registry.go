package world

import (
	"fmt"

	"github.com/gridforge/server/internal/core/ecs"
	"github.com/gridforge/server/internal/core/event"
	"go.uber.org/zap"
)

// CreateMap allocates the next free map ID and registers it.
func (m *Manager) CreateMap() (MapID, error) {
	return m.createMap(m.nextMapID)
}

// CreateMapWithID registers a map under an explicitly supplied ID, used by
// snapshot restore to reproduce previously-assigned identities.
func (m *Manager) CreateMapWithID(id MapID) error {
	_, err := m.createMap(id)
	return err
}

func (m *Manager) createMap(id MapID) (MapID, error) {
	if _, exists := m.maps[id]; exists {
		return 0, fmt.Errorf("create map %d: %w", id, ErrDuplicateID)
	}
	rec := &mapRecord{
		id:          id,
		createdTick: m.currentTick(),
		grids:       make(map[GridID]*Grid),
	}
	if id != Nullspace {
		ent, err := m.bindMapRoot(id)
		if err != nil {
			return 0, err
		}
		rec.entity = ent
	}
	m.maps[id] = rec
	if id >= m.nextMapID {
		m.nextMapID = id + 1
	}
	m.log.Debug("map created",
		zap.Uint32("map_id", uint32(id)),
		zap.Uint64("tick", rec.createdTick))
	event.Publish(m.bus, MapCreatedEvent{MapID: id})
	return id, nil
}

// bindMapRoot reuses an orphan entity that already declares itself root of
// this map (typical after a snapshot load recreated entities first), or
// creates a fresh one. Two self-declared candidates for the same map is a
// corrupt state and surfaces as a duplicate rather than a silent pick.
func (m *Manager) bindMapRoot(id MapID) (ecs.EntityID, error) {
	cands := m.entities.findOrphanMapRoot(id)
	switch len(cands) {
	case 0:
		ent := m.entities.CreateEntity()
		m.entities.MapRoots.Set(ent, &MapRoot{MapID: id})
		m.entities.SetStage(ent, ecs.StageInitialized)
		return ent, nil
	case 1:
		m.entities.SetStage(cands[0], ecs.StageInitialized)
		return cands[0], nil
	default:
		return 0, fmt.Errorf("create map %d: %d entities claim its root: %w",
			id, len(cands), ErrDuplicateID)
	}
}

// DeleteMap removes a map, its grids, and its root entity. Nullspace cannot
// be deleted through this path.
func (m *Manager) DeleteMap(id MapID) error {
	if id == Nullspace {
		return fmt.Errorf("delete map: nullspace: %w", ErrInvalidOperation)
	}
	rec, ok := m.maps[id]
	if !ok {
		return fmt.Errorf("delete map %d: %w", id, ErrNotFound)
	}
	m.removeMap(rec, true)
	return nil
}

// removeMap cascades grid deletion, unregisters the record, optionally
// deletes the root entity, then announces removal. The record leaves the
// table before the entity dies so the destroy hook cannot re-enter.
func (m *Manager) removeMap(rec *mapRecord, deleteEntity bool) {
	gridIDs := make([]GridID, 0, len(rec.grids))
	for id := range rec.grids {
		gridIDs = append(gridIDs, id)
	}
	for _, id := range gridIDs {
		if g, ok := rec.grids[id]; ok {
			m.removeGrid(g)
		}
	}
	delete(m.maps, rec.id)
	if deleteEntity && !rec.entity.IsZero() &&
		m.entities.Stage(rec.entity) <= ecs.StageInitialized {
		m.entities.DeleteEntity(rec.entity)
	}
	m.log.Debug("map removed", zap.Uint32("map_id", uint32(rec.id)))
	event.Publish(m.bus, MapRemovedEvent{MapID: rec.id})
}

// Restart tears down every map including nullspace and recreates an empty
// nullspace. ID counters are not reset: identities are never reused within
// a process lifetime.
func (m *Manager) Restart() {
	ids := m.AllMapIDs()
	for _, id := range ids {
		if rec, ok := m.maps[id]; ok {
			m.removeMap(rec, true)
		}
	}
	m.maps[Nullspace] = &mapRecord{id: Nullspace, grids: make(map[GridID]*Grid)}
	m.log.Info("map registry restarted")
}

func (m *Manager) MapExists(id MapID) bool {
	_, ok := m.maps[id]
	return ok
}

// AllMapIDs returns the active map IDs in unspecified order.
func (m *Manager) AllMapIDs() []MapID {
	out := make([]MapID, 0, len(m.maps))
	for id := range m.maps {
		out = append(out, id)
	}
	return out
}

// MapCreatedTick returns the logical tick recorded when the map was created.
func (m *Manager) MapCreatedTick(id MapID) (uint64, error) {
	rec, ok := m.maps[id]
	if !ok {
		return 0, fmt.Errorf("map %d: %w", id, ErrNotFound)
	}
	return rec.createdTick, nil
}

// GetMapEntity returns the map's root entity. Nullspace reports a zero
// entity without error.
func (m *Manager) GetMapEntity(id MapID) (ecs.EntityID, error) {
	rec, ok := m.maps[id]
	if !ok {
		return 0, fmt.Errorf("map %d: %w", id, ErrNotFound)
	}
	return rec.entity, nil
}

// SetMapEntity rebinds a map's coordinate space onto a different root
// entity, deleting the previous root. The candidate must not already serve
// another map and must not live inside the old root's subtree, where the
// swap would destroy it as a side effect.
func (m *Manager) SetMapEntity(id MapID, ent ecs.EntityID) error {
	rec, ok := m.maps[id]
	if !ok {
		return fmt.Errorf("set map entity: map %d: %w", id, ErrNotFound)
	}
	if mr, has := m.entities.MapRoots.Get(ent); has && mr.MapID != id {
		return fmt.Errorf("set map entity: entity is root of map %d: %w",
			mr.MapID, ErrInvalidOperation)
	}
	old := rec.entity
	if !old.IsZero() && old != ent {
		if m.entities.IsDescendant(ent, old) {
			return fmt.Errorf("set map entity: candidate is inside the doomed subtree: %w",
				ErrInvalidOperation)
		}
	}
	m.entities.MapRoots.Set(ent, &MapRoot{MapID: id})
	m.entities.SetStage(ent, ecs.StageInitialized)
	rec.entity = ent
	if !old.IsZero() && old != ent {
		m.entities.DeleteEntity(old)
	}
	return nil
}
