package world

import (
	"fmt"
	"sort"
)

// Snapshot is the portable form of the registry's persistent state. The
// persistence layer stores it; restore replays it through explicit-ID
// creation so replicated identities survive a reload.
type Snapshot struct {
	Maps  []MapSnapshot
	Grids []GridSnapshot
}

type MapSnapshot struct {
	ID          MapID
	CreatedTick uint64
}

type GridSnapshot struct {
	ID        GridID
	MapID     MapID
	ChunkSize int
	Chunks    []ChunkSnapshot
}

type ChunkSnapshot struct {
	X, Y  int
	Cells []Tile
}

// ExportSnapshot captures all maps and grids. Nullspace is included so its
// grids round-trip, though the map itself is never re-created on restore.
func (m *Manager) ExportSnapshot() *Snapshot {
	snap := &Snapshot{}
	for id, rec := range m.maps {
		snap.Maps = append(snap.Maps, MapSnapshot{ID: id, CreatedTick: rec.createdTick})
	}
	for id, g := range m.grids {
		gs := GridSnapshot{ID: id, MapID: g.mapID, ChunkSize: g.chunkSize}
		for cc, c := range g.chunks {
			cells := make([]Tile, len(c.cells))
			copy(cells, c.cells)
			gs.Chunks = append(gs.Chunks, ChunkSnapshot{X: cc.X, Y: cc.Y, Cells: cells})
		}
		snap.Grids = append(snap.Grids, gs)
	}
	sort.Slice(snap.Maps, func(i, j int) bool { return snap.Maps[i].ID < snap.Maps[j].ID })
	sort.Slice(snap.Grids, func(i, j int) bool { return snap.Grids[i].ID < snap.Grids[j].ID })
	return snap
}

// RestoreSnapshot replays a snapshot into the registry with explicit IDs.
// Per-cell tile events are suppressed for the duration of the load.
func (m *Manager) RestoreSnapshot(snap *Snapshot) error {
	m.suppressTileEvents = true
	defer func() { m.suppressTileEvents = false }()

	for _, ms := range snap.Maps {
		if ms.ID == Nullspace {
			continue // always present
		}
		if m.MapExists(ms.ID) {
			continue
		}
		if err := m.CreateMapWithID(ms.ID); err != nil {
			return fmt.Errorf("restore map %d: %w", ms.ID, err)
		}
		// Keep the original creation tick for diagnostics.
		m.maps[ms.ID].createdTick = ms.CreatedTick
	}
	for _, gs := range snap.Grids {
		g, err := m.CreateGrid(gs.MapID, GridOptions{ID: gs.ID, ChunkSize: gs.ChunkSize})
		if err != nil {
			return fmt.Errorf("restore grid %d: %w", gs.ID, err)
		}
		size := g.ChunkSize()
		writes := make([]TileWrite, 0, size*size)
		for _, cs := range gs.Chunks {
			writes = writes[:0]
			for i, t := range cs.Cells {
				if t.IsEmpty() {
					continue
				}
				writes = append(writes, TileWrite{
					X:    cs.X*size + i%size,
					Y:    cs.Y*size + i/size,
					Tile: t,
				})
			}
			if err := m.SetTiles(gs.ID, writes); err != nil {
				return fmt.Errorf("restore grid %d chunk (%d,%d): %w", gs.ID, cs.X, cs.Y, err)
			}
		}
	}
	return nil
}
