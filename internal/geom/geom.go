package geom

import "math"

// Vec2 is a 2-D vector in world or grid-local space.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Rotate rotates v by angle radians about the origin.
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// AABB is an axis-aligned box. Zero value is a degenerate box at the origin.
type AABB struct {
	Min, Max Vec2
}

func NewAABB(x0, y0, x1, y1 float64) AABB {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return AABB{Min: Vec2{x0, y0}, Max: Vec2{x1, y1}}
}

// FromCenterHalf builds a box centered on c with the given half extents.
func FromCenterHalf(c, half Vec2) AABB {
	return AABB{Min: c.Sub(half), Max: c.Add(half)}
}

func (b AABB) Width() float64  { return b.Max.X - b.Min.X }
func (b AABB) Height() float64 { return b.Max.Y - b.Min.Y }

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

// Contains reports whether p lies inside the box, boundary inclusive.
func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: Vec2{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y)},
		Max: Vec2{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y)},
	}
}

func (b AABB) Translate(v Vec2) AABB {
	return AABB{Min: b.Min.Add(v), Max: b.Max.Add(v)}
}

// Transform is a rigid 2-D pose: rotation about the origin, then translation.
type Transform struct {
	Pos Vec2
	Rot float64 // radians
}

// Apply maps a local point into the parent frame.
func (t Transform) Apply(p Vec2) Vec2 {
	return p.Rotate(t.Rot).Add(t.Pos)
}

// ApplyInverse maps a parent-frame point into the local frame. Uses the
// analytic inverse (negated rotation), which is stable over [0, 2π).
func (t Transform) ApplyInverse(p Vec2) Vec2 {
	return p.Sub(t.Pos).Rotate(-t.Rot)
}

// Compose returns the transform equivalent to applying child, then t.
func (t Transform) Compose(child Transform) Transform {
	return Transform{Pos: t.Apply(child.Pos), Rot: t.Rot + child.Rot}
}

// TransformAABB returns the tightest axis-aligned box enclosing b mapped
// through t. Rotation can grow the box; it never shrinks below the input.
func (t Transform) TransformAABB(b AABB) AABB {
	return encloseCorners(t.Apply, b)
}

// InverseAABB returns the tightest axis-aligned box in the local frame
// enclosing the parent-frame box b.
func (t Transform) InverseAABB(b AABB) AABB {
	return encloseCorners(t.ApplyInverse, b)
}

func encloseCorners(f func(Vec2) Vec2, b AABB) AABB {
	p0 := f(b.Min)
	out := AABB{Min: p0, Max: p0}
	for _, c := range [3]Vec2{{b.Max.X, b.Min.Y}, b.Max, {b.Min.X, b.Max.Y}} {
		p := f(c)
		out.Min.X = math.Min(out.Min.X, p.X)
		out.Min.Y = math.Min(out.Min.Y, p.Y)
		out.Max.X = math.Max(out.Max.X, p.X)
		out.Max.Y = math.Max(out.Max.Y, p.Y)
	}
	return out
}

// RotatedBox is a box rotated about its center.
type RotatedBox struct {
	Center Vec2
	Half   Vec2
	Rot    float64
}

// BoundingAABB returns the axis-aligned box enclosing the rotated box.
func (r RotatedBox) BoundingAABB() AABB {
	local := AABB{Min: Vec2{-r.Half.X, -r.Half.Y}, Max: r.Half}
	return Transform{Pos: r.Center, Rot: r.Rot}.TransformAABB(local)
}

// FloorDiv divides toward negative infinity, so -1/16 maps to cell -1
// rather than cell 0.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorToInt floors a float coordinate to its containing integer cell.
func FloorToInt(v float64) int {
	return int(math.Floor(v))
}
