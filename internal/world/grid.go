package world

import (
	"github.com/gridforge/server/internal/core/ecs"
	"github.com/gridforge/server/internal/geom"
)

// DefaultChunkSize is the tiles-per-chunk-edge used when neither the grid
// options nor the server config specify one.
const DefaultChunkSize = 16

// Grid is one movable, chunked tile surface inside a map. The registry owns
// the Grid exclusively; the backing entity is shared with the entity manager
// and the two lifetimes are stitched together by the deletion cascades in
// the registry.
type Grid struct {
	id        GridID
	mapID     MapID
	chunkSize int
	entity    ecs.EntityID

	chunks      map[ChunkCoord]*chunk
	localBounds geom.AABB
	boundsDirty bool

	// deleting breaks the grid→entity→grid deletion cycle: whichever side
	// initiates teardown flips it before touching the other side.
	deleting bool

	// dirty marks unsaved tile edits for the persistence system.
	dirty bool

	solid func(uint16) bool
}

func newGrid(id GridID, mapID MapID, chunkSize int, entity ecs.EntityID, solid func(uint16) bool) *Grid {
	return &Grid{
		id:        id,
		mapID:     mapID,
		chunkSize: chunkSize,
		entity:    entity,
		chunks:    make(map[ChunkCoord]*chunk),
		solid:     solid,
	}
}

func (g *Grid) ID() GridID           { return g.id }
func (g *Grid) MapID() MapID         { return g.mapID }
func (g *Grid) ChunkSize() int       { return g.chunkSize }
func (g *Grid) Entity() ecs.EntityID { return g.entity }
func (g *Grid) ChunkCount() int      { return len(g.chunks) }

// Dirty reports whether the grid has tile edits not yet persisted.
func (g *Grid) Dirty() bool { return g.dirty }
func (g *Grid) ClearDirty() { g.dirty = false }

// ChunkCoordFor maps a local tile coordinate to its owning chunk using
// arithmetic floor division, so negative coordinates land in negative
// chunks instead of truncating toward chunk (0,0).
func (g *Grid) ChunkCoordFor(x, y int) ChunkCoord {
	return ChunkCoord{
		X: geom.FloorDiv(x, g.chunkSize),
		Y: geom.FloorDiv(y, g.chunkSize),
	}
}

// TileAt returns the tile at a local coordinate. Coordinates in chunks that
// were never written return the empty tile; the lookup is total.
func (g *Grid) TileAt(x, y int) Tile {
	cc := g.ChunkCoordFor(x, y)
	c, ok := g.chunks[cc]
	if !ok {
		return EmptyTile
	}
	return c.cells[g.cellIndex(cc, x, y)]
}

func (g *Grid) cellIndex(cc ChunkCoord, x, y int) int {
	// Offsets are non-negative for any sign of x,y because cc is floored.
	ix := x - cc.X*g.chunkSize
	iy := y - cc.Y*g.chunkSize
	return iy*g.chunkSize + ix
}

// setTile writes one cell, creating or releasing the owning chunk as the
// occupancy changes. Returns the previous value and whether anything changed.
// Event emission is the registry's job.
func (g *Grid) setTile(x, y int, t Tile) (Tile, bool) {
	cc := g.ChunkCoordFor(x, y)
	c, ok := g.chunks[cc]
	if !ok {
		if t.IsEmpty() {
			return EmptyTile, false // clearing a cell that was never set
		}
		c = newChunk(g.chunkSize)
		g.chunks[cc] = c
	}
	idx := g.cellIndex(cc, x, y)
	old := c.cells[idx]
	if old == t {
		return old, false
	}
	c.cells[idx] = t

	switch {
	case old.IsEmpty() && !t.IsEmpty():
		c.nonEmpty++
	case !old.IsEmpty() && t.IsEmpty():
		c.nonEmpty--
	}
	if g.solid(old.TypeID) != g.solid(t.TypeID) {
		c.fixturesDirty = true
	}
	if c.nonEmpty == 0 {
		// Last occupied cell cleared: release the chunk and its fixtures.
		delete(g.chunks, cc)
	}
	g.boundsDirty = true
	g.dirty = true
	return old, true
}

// LocalBounds returns the grid-local box covering all allocated chunks.
// A grid with zero chunks reports a degenerate box at its origin.
func (g *Grid) LocalBounds() geom.AABB {
	if g.boundsDirty {
		g.localBounds = geom.AABB{}
		first := true
		for cc, c := range g.chunks {
			b := c.bounds(cc, g.chunkSize)
			if first {
				g.localBounds = b
				first = false
			} else {
				g.localBounds = g.localBounds.Union(b)
			}
		}
		g.boundsDirty = false
	}
	return g.localBounds
}

// chunkFixtures returns a chunk's collision boxes, rebuilding them if tile
// solidity changed since the last query.
func (g *Grid) chunkFixtures(cc ChunkCoord, c *chunk) []geom.AABB {
	if c.fixturesDirty {
		c.rebuildFixtures(cc, g.chunkSize, g.solid)
	}
	return c.fixtures
}

// hasCollision reports whether any chunk carries at least one fixture.
// Grids without collision skip the fine intersection pass entirely and fall
// back to origin containment.
func (g *Grid) hasCollision() bool {
	for cc, c := range g.chunks {
		if len(g.chunkFixtures(cc, c)) > 0 {
			return true
		}
	}
	return false
}
