package world

import (
	"fmt"

	"github.com/gridforge/server/internal/core/ecs"
	"github.com/gridforge/server/internal/core/event"
	"github.com/gridforge/server/internal/geom"
	"go.uber.org/zap"
)

// GridOptions tunes grid creation. The zero value allocates the next free
// ID, uses the registry's default chunk size, and binds a backing entity.
type GridOptions struct {
	ID         GridID // 0 = allocate
	ChunkSize  int    // 0 = registry default
	Entityless bool   // no backing entity, identity world transform
}

// CreateGrid registers a grid under a map and, unless Entityless, binds it
// to a backing entity attached beneath the map's root.
func (m *Manager) CreateGrid(mapID MapID, opts GridOptions) (*Grid, error) {
	rec, ok := m.maps[mapID]
	if !ok {
		return nil, fmt.Errorf("create grid: map %d: %w", mapID, ErrNotFound)
	}
	id := opts.ID
	if id == 0 {
		id = m.nextGridID
	}
	if _, taken := m.grids[id]; taken {
		return nil, fmt.Errorf("create grid %d: %w", id, ErrDuplicateID)
	}
	size := opts.ChunkSize
	if size <= 0 {
		size = m.defaultChunkSize
	}

	var ent ecs.EntityID
	if !opts.Entityless {
		var err error
		ent, err = m.bindGridRoot(id, rec.entity)
		if err != nil {
			return nil, err
		}
	}

	g := newGrid(id, mapID, size, ent, m.isSolid)
	m.grids[id] = g
	rec.grids[id] = g
	if id >= m.nextGridID {
		m.nextGridID = id + 1
	}
	m.log.Debug("grid created",
		zap.Uint32("grid_id", uint32(id)),
		zap.Uint32("map_id", uint32(mapID)),
		zap.Int("chunk_size", size))
	event.Publish(m.bus, GridCreatedEvent{MapID: mapID, GridID: id})
	return g, nil
}

// bindGridRoot mirrors bindMapRoot: reuse the single orphan entity that
// self-declares this grid index, create one otherwise, and treat multiple
// claimants as a duplicate-ID failure.
func (m *Manager) bindGridRoot(id GridID, mapRoot ecs.EntityID) (ecs.EntityID, error) {
	cands := m.entities.findOrphanGridRoot(id)
	switch len(cands) {
	case 0:
		ent := m.entities.CreateEntity()
		m.entities.GridRoots.Set(ent, &GridRoot{GridID: id})
		if !mapRoot.IsZero() {
			m.entities.AttachParent(ent, mapRoot, geom.Transform{})
		}
		m.entities.SetStage(ent, ecs.StageInitialized)
		return ent, nil
	case 1:
		m.entities.SetStage(cands[0], ecs.StageInitialized)
		return cands[0], nil
	default:
		return 0, fmt.Errorf("create grid %d: %d entities claim its body: %w",
			id, len(cands), ErrDuplicateID)
	}
}

// DeleteGrid removes a grid. Deliberately idempotent: deletion is reachable
// both from an explicit call and from the backing entity's own teardown, and
// either may arrive while the other is mid-flight.
func (m *Manager) DeleteGrid(id GridID) {
	g, ok := m.grids[id]
	if !ok {
		return
	}
	m.removeGrid(g)
}

func (m *Manager) removeGrid(g *Grid) {
	if g.deleting {
		return
	}
	g.deleting = true
	// Delete the backing entity only if it has not progressed past the
	// initialized stage; a terminating entity is the one that called us.
	if !g.entity.IsZero() && m.entities.Alive(g.entity) &&
		m.entities.Stage(g.entity) <= ecs.StageInitialized {
		m.entities.DeleteEntity(g.entity)
	}
	g.chunks = nil // release tile storage and fixtures
	delete(m.grids, g.id)
	if rec, ok := m.maps[g.mapID]; ok {
		delete(rec.grids, g.id)
	}
	m.log.Debug("grid removed",
		zap.Uint32("grid_id", uint32(g.id)),
		zap.Uint32("map_id", uint32(g.mapID)))
	event.Publish(m.bus, GridRemovedEvent{MapID: g.mapID, GridID: g.id})
}

// GetGrid returns a grid or ErrNotFound.
func (m *Manager) GetGrid(id GridID) (*Grid, error) {
	g, ok := m.grids[id]
	if !ok {
		return nil, fmt.Errorf("grid %d: %w", id, ErrNotFound)
	}
	return g, nil
}

func (m *Manager) TryGetGrid(id GridID) (*Grid, bool) {
	g, ok := m.grids[id]
	return g, ok
}

func (m *Manager) GridExists(id GridID) bool {
	_, ok := m.grids[id]
	return ok
}

// AllGrids returns every registered grid in unspecified order.
func (m *Manager) AllGrids() []*Grid {
	out := make([]*Grid, 0, len(m.grids))
	for _, g := range m.grids {
		out = append(out, g)
	}
	return out
}

// GridsOfMap returns the grids parented to a map, in unspecified order.
func (m *Manager) GridsOfMap(mapID MapID) []*Grid {
	rec, ok := m.maps[mapID]
	if !ok {
		return nil
	}
	out := make([]*Grid, 0, len(rec.grids))
	for _, g := range rec.grids {
		out = append(out, g)
	}
	return out
}

// IsGrid reports whether an entity backs a registered grid.
func (m *Manager) IsGrid(ent ecs.EntityID) (GridID, bool) {
	gr, ok := m.entities.GridRoots.Get(ent)
	if !ok {
		return 0, false
	}
	g, live := m.grids[gr.GridID]
	if !live || g.entity != ent {
		return 0, false
	}
	return gr.GridID, true
}

// IsMap reports whether an entity is a registered map's root.
func (m *Manager) IsMap(ent ecs.EntityID) (MapID, bool) {
	mr, ok := m.entities.MapRoots.Get(ent)
	if !ok {
		return 0, false
	}
	rec, live := m.maps[mr.MapID]
	if !live || rec.entity != ent {
		return 0, false
	}
	return mr.MapID, true
}
