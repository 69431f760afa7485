package world

import (
	"github.com/gridforge/server/internal/core/ecs"
	"github.com/gridforge/server/internal/geom"
)

// Spatial queries. All read-only: nothing here mutates registry state.

// TryFindGridAt returns a grid on the map whose tile under the world point
// is non-empty. Iteration order over candidates is unspecified; when grids
// overlap, which one wins is non-deterministic.
func (m *Manager) TryFindGridAt(mapID MapID, p geom.Vec2) (*Grid, bool) {
	rec, ok := m.maps[mapID]
	if !ok {
		return nil, false
	}
	for _, g := range rec.grids {
		local := m.GridWorldTransform(g).ApplyInverse(p)
		x := geom.FloorToInt(local.X)
		y := geom.FloorToInt(local.Y)
		cc := g.ChunkCoordFor(x, y)
		c, exists := g.chunks[cc]
		if !exists {
			continue
		}
		if !c.cells[g.cellIndex(cc, x, y)].IsEmpty() {
			return g, true
		}
	}
	return nil, false
}

// FindGridsIntersecting returns the map's grids whose collision overlaps the
// world-space region. With approx, a grid counts as soon as any chunk
// overlaps the region in grid-local space (an over-approximation); otherwise
// a fine pass tests each fixture's world-space box against the region.
// Grids without any collision are still reported when the region contains
// their world origin, so freshly created empty grids stay discoverable.
func (m *Manager) FindGridsIntersecting(mapID MapID, region geom.AABB, approx bool) []*Grid {
	rec, ok := m.maps[mapID]
	if !ok {
		return nil
	}
	var out []*Grid
	for _, g := range rec.grids {
		if m.gridIntersects(g, region, approx) {
			out = append(out, g)
		}
	}
	return out
}

// FindGridsIntersectingRotated reduces a rotated query box to its bounding
// AABB and runs the axis-aligned query with it.
func (m *Manager) FindGridsIntersectingRotated(mapID MapID, box geom.RotatedBox, approx bool) []*Grid {
	return m.FindGridsIntersecting(mapID, box.BoundingAABB(), approx)
}

func (m *Manager) gridIntersects(g *Grid, region geom.AABB, approx bool) bool {
	xf := m.GridWorldTransform(g)

	if !g.hasCollision() {
		// Empty-grid containment rule: a grid with no collision body is
		// reported iff the region contains its world origin.
		return region.Contains(xf.Pos)
	}

	local := xf.InverseAABB(region)
	if !local.Intersects(g.LocalBounds()) {
		return false
	}

	size := float64(g.chunkSize)
	minCX := geom.FloorToInt(local.Min.X / size)
	maxCX := geom.FloorToInt(local.Max.X / size)
	minCY := geom.FloorToInt(local.Min.Y / size)
	maxCY := geom.FloorToInt(local.Max.Y / size)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			cc := ChunkCoord{X: cx, Y: cy}
			c, ok := g.chunks[cc]
			if !ok {
				continue
			}
			if approx {
				return true
			}
			for _, f := range g.chunkFixtures(cc, c) {
				if xf.TransformAABB(f).Intersects(region) {
					return true
				}
			}
		}
	}
	return false
}

// MapOf resolves which map an entity inhabits by walking its transform
// parents until a grid body or map root is found. Unparented entities are
// in nullspace.
func (m *Manager) MapOf(ent ecs.EntityID) MapID {
	cur := ent
	for n := 0; n < 32 && !cur.IsZero(); n++ {
		if gid, ok := m.IsGrid(cur); ok {
			if g, live := m.grids[gid]; live {
				return g.mapID
			}
		}
		if mid, ok := m.IsMap(cur); ok {
			return mid
		}
		tf, ok := m.entities.Transforms.Get(cur)
		if !ok {
			break
		}
		cur = tf.Parent
	}
	return Nullspace
}
