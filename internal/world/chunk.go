package world

import "github.com/gridforge/server/internal/geom"

// ChunkCoord identifies a chunk inside its grid. Chunk (0,0) covers local
// tiles [0, chunkSize) on both axes; negative coordinates are valid.
type ChunkCoord struct {
	X, Y int
}

// chunk is a dense chunkSize² tile block plus its derived collision
// fixtures. Fixtures are rebuilt lazily: tile edits that change solidity
// only mark them dirty.
type chunk struct {
	cells         []Tile
	nonEmpty      int
	fixtures      []geom.AABB // grid-local solid boxes
	fixturesDirty bool
}

func newChunk(size int) *chunk {
	return &chunk{
		cells:         make([]Tile, size*size),
		fixturesDirty: true,
	}
}

// bounds returns the chunk's full grid-local box, used by the coarse
// query pass regardless of which cells are occupied.
func (c *chunk) bounds(coord ChunkCoord, size int) geom.AABB {
	ox := float64(coord.X * size)
	oy := float64(coord.Y * size)
	return geom.NewAABB(ox, oy, ox+float64(size), oy+float64(size))
}

// rebuildFixtures regenerates collision boxes from solid cells: one box per
// maximal horizontal run of solid tiles, in grid-local coordinates.
func (c *chunk) rebuildFixtures(coord ChunkCoord, size int, solid func(uint16) bool) {
	c.fixtures = c.fixtures[:0]
	ox := coord.X * size
	oy := coord.Y * size
	for y := 0; y < size; y++ {
		runStart := -1
		for x := 0; x <= size; x++ {
			isSolid := x < size && solid(c.cells[y*size+x].TypeID)
			if isSolid && runStart < 0 {
				runStart = x
			}
			if !isSolid && runStart >= 0 {
				c.fixtures = append(c.fixtures, geom.NewAABB(
					float64(ox+runStart), float64(oy+y),
					float64(ox+x), float64(oy+y+1),
				))
				runStart = -1
			}
		}
	}
	c.fixturesDirty = false
}
