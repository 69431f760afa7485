package world

import (
	"fmt"

	"github.com/gridforge/server/internal/core/ecs"
	"github.com/gridforge/server/internal/core/event"
	"github.com/gridforge/server/internal/data"
	"github.com/gridforge/server/internal/geom"
	"go.uber.org/zap"
)

// MapID identifies an independent coordinate space. ID 0 is nullspace: it
// always exists and is never deleted outside a restart.
type MapID uint32

// GridID identifies a grid. ID 0 is reserved invalid.
type GridID uint32

const Nullspace MapID = 0

// TickSource is the logical clock consulted at map creation for diagnostics
// and replication.
type TickSource interface {
	CurrentTick() uint64
}

type mapRecord struct {
	id          MapID
	entity      ecs.EntityID // zero for nullspace
	createdTick uint64
	grids       map[GridID]*Grid
}

// Manager owns the map and grid registries and answers spatial queries over
// them. All mutation and all queries happen on the single simulation
// goroutine, no locks. Hosts that parallelize scans must treat the
// registries as read-only for the duration and defer structural changes to
// tick boundaries.
type Manager struct {
	entities *EntityManager
	bus      *event.Bus
	tiles    *data.TileTable
	clock    TickSource
	log      *zap.Logger

	maps       map[MapID]*mapRecord
	grids      map[GridID]*Grid
	nextMapID  MapID
	nextGridID GridID

	// defaultChunkSize applies when grid creation does not specify one.
	// Seeded with DefaultChunkSize, overridable from server config.
	defaultChunkSize int

	// suppressTileEvents silences per-cell TileChangedEvents during bulk
	// loads; GridChangedEvents still fire.
	suppressTileEvents bool
}

// NewManager builds a registry with nullspace pre-created. clock may be nil,
// in which case creation ticks record as zero.
func NewManager(entities *EntityManager, bus *event.Bus, tiles *data.TileTable, clock TickSource, log *zap.Logger) *Manager {
	m := &Manager{
		entities:         entities,
		bus:              bus,
		tiles:            tiles,
		clock:            clock,
		log:              log,
		maps:             make(map[MapID]*mapRecord, 8),
		grids:            make(map[GridID]*Grid, 32),
		nextMapID:        1,
		nextGridID:       1,
		defaultChunkSize: DefaultChunkSize,
	}
	m.maps[Nullspace] = &mapRecord{id: Nullspace, grids: make(map[GridID]*Grid)}
	entities.OnDestroy(m.onEntityDestroyed)
	return m
}

func (m *Manager) Entities() *EntityManager { return m.entities }

func (m *Manager) currentTick() uint64 {
	if m.clock == nil {
		return 0
	}
	return m.clock.CurrentTick()
}

// SetSuppressTileEvents toggles per-cell event suppression for bulk loads.
func (m *Manager) SetSuppressTileEvents(v bool) { m.suppressTileEvents = v }

// SetDefaultChunkSize overrides the chunk size used when GridOptions does
// not specify one. Values below 1 are ignored.
func (m *Manager) SetDefaultChunkSize(size int) {
	if size > 0 {
		m.defaultChunkSize = size
	}
}

func (m *Manager) isSolid(typeID uint16) bool {
	if m.tiles == nil {
		// No prototype table: every non-empty tile collides.
		return typeID != 0
	}
	return m.tiles.IsSolid(typeID)
}

// onEntityDestroyed is the entity→registry half of the deletion cascade: a
// backing entity deleted by unrelated logic takes its orphaned grid or map
// record with it. The registry→entity direction is guarded by the grid's
// deleting flag and the entity's lifecycle stage, so the two directions
// never recurse into each other.
func (m *Manager) onEntityDestroyed(id ecs.EntityID) {
	if gr, ok := m.entities.GridRoots.Get(id); ok {
		if g, live := m.grids[gr.GridID]; live && g.entity == id {
			m.removeGrid(g)
		}
	}
	if mr, ok := m.entities.MapRoots.Get(id); ok {
		if rec, live := m.maps[mr.MapID]; live && rec.entity == id {
			m.removeMap(rec, false)
		}
	}
}

// SetTile writes one cell on a grid, creating or releasing chunks on demand
// and firing TileChanged plus a single-entry GridChanged.
func (m *Manager) SetTile(gridID GridID, x, y int, t Tile) error {
	g, ok := m.grids[gridID]
	if !ok {
		return fmt.Errorf("set tile: grid %d: %w", gridID, ErrNotFound)
	}
	old, changed := g.setTile(x, y, t)
	if !changed {
		return nil
	}
	ch := TileChange{X: x, Y: y, Old: old, New: t}
	if !m.suppressTileEvents {
		event.Publish(m.bus, TileChangedEvent{GridID: gridID, Change: ch})
	}
	event.Publish(m.bus, GridChangedEvent{GridID: gridID, Modified: []TileChange{ch}})
	return nil
}

// SetTiles applies a batch edit, firing per-cell TileChanged events and one
// aggregated GridChanged for the whole batch.
func (m *Manager) SetTiles(gridID GridID, writes []TileWrite) error {
	g, ok := m.grids[gridID]
	if !ok {
		return fmt.Errorf("set tiles: grid %d: %w", gridID, ErrNotFound)
	}
	changes := make([]TileChange, 0, len(writes))
	for _, w := range writes {
		old, changed := g.setTile(w.X, w.Y, w.Tile)
		if !changed {
			continue
		}
		ch := TileChange{X: w.X, Y: w.Y, Old: old, New: w.Tile}
		changes = append(changes, ch)
		if !m.suppressTileEvents {
			event.Publish(m.bus, TileChangedEvent{GridID: gridID, Change: ch})
		}
	}
	if len(changes) > 0 {
		event.Publish(m.bus, GridChangedEvent{GridID: gridID, Modified: changes})
	}
	return nil
}

// GridWorldTransform returns a grid's rigid-body pose in world space.
// Entityless grids sit at the world origin with no rotation.
func (m *Manager) GridWorldTransform(g *Grid) geom.Transform {
	if g.entity.IsZero() || !m.entities.Alive(g.entity) {
		return geom.Transform{}
	}
	return m.entities.WorldTransform(g.entity)
}
