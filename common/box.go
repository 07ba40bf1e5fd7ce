package common

import (
	"math"

	"github.com/chewxy/math32"
)

// Intersection classifies a volume against another volume.
type Intersection int

const (
	// Outside means the tested volume does not touch the reference volume.
	Outside Intersection = iota
	// Intersects means the tested volume partially overlaps the reference volume.
	Intersects
	// Inside means the tested volume is fully contained by the reference volume.
	Inside
)

func (i Intersection) String() string {
	switch i {
	case Outside:
		return "outside"
	case Intersects:
		return "intersects"
	case Inside:
		return "inside"
	default:
		return "unknown"
	}
}

// LargeValue bounds "infinite" boxes such as a directional light's volume.
// Finite so plane tests never produce NaN from 0 × Inf.
const LargeValue float32 = 100000000

// Box is an axis-aligned bounding box. A box whose Min exceeds its Max on any axis is undefined (empty).
type Box struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns an undefined box that acts as the identity for Merge.
func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// NewBox builds a box from explicit min and max corners.
func NewBox(min, max Vec3) Box {
	return Box{Min: min, Max: max}
}

// BoxFromCenter builds a box from a center point and half-extents.
func BoxFromCenter(center, halfSize Vec3) Box {
	return Box{Min: center.Sub(halfSize), Max: center.Add(halfSize)}
}

// BoxFromPoints returns the tightest box enclosing the given points.
func BoxFromPoints(points ...Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.MergePoint(p)
	}
	return b
}

// LargeBox returns the box used for volumes without finite bounds.
func LargeBox() Box {
	return Box{Min: Vec3{-LargeValue, -LargeValue, -LargeValue}, Max: Vec3{LargeValue, LargeValue, LargeValue}}
}

// Defined reports whether b encloses a (possibly zero-size) volume.
func (b Box) Defined() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Center returns the midpoint of b.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of b along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// HalfSize returns half the extent of b along each axis.
func (b Box) HalfSize() Vec3 {
	return b.Size().Scale(0.5)
}

// Merge returns the smallest box enclosing both b and o. Undefined boxes are ignored.
func (b Box) Merge(o Box) Box {
	if !o.Defined() {
		return b
	}
	if !b.Defined() {
		return o
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// MergePoint returns the smallest box enclosing b and p.
func (b Box) MergePoint(p Vec3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Clip returns the intersection of b and o, or an undefined box when they do not overlap.
func (b Box) Clip(o Box) Box {
	r := Box{Min: b.Min.Max(o.Min), Max: b.Max.Min(o.Max)}
	if !r.Defined() {
		return EmptyBox()
	}
	return r
}

// ContainsPoint reports whether p lies inside or on the surface of b.
func (b Box) ContainsPoint(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// IsInside classifies o against b.
//
// Parameters:
//   - o: the box to test
//
// Returns:
//   - Intersection: Inside when o is fully enclosed by b, Intersects on partial overlap, Outside otherwise
func (b Box) IsInside(o Box) Intersection {
	if o.Max[0] < b.Min[0] || o.Min[0] > b.Max[0] ||
		o.Max[1] < b.Min[1] || o.Min[1] > b.Max[1] ||
		o.Max[2] < b.Min[2] || o.Min[2] > b.Max[2] {
		return Outside
	}
	if o.Min[0] < b.Min[0] || o.Max[0] > b.Max[0] ||
		o.Min[1] < b.Min[1] || o.Max[1] > b.Max[1] ||
		o.Min[2] < b.Min[2] || o.Max[2] > b.Max[2] {
		return Intersects
	}
	return Inside
}

// Intersects reports whether b and o overlap at all.
func (b Box) Intersects(o Box) bool {
	return b.IsInside(o) != Outside
}

// IsInsideSphere classifies the sphere s against b.
func (b Box) IsInsideSphere(s Sphere) Intersection {
	distSquared := float32(0)
	for i := range 3 {
		if s.Center[i] < b.Min[i] {
			d := s.Center[i] - b.Min[i]
			distSquared += d * d
		} else if s.Center[i] > b.Max[i] {
			d := s.Center[i] - b.Max[i]
			distSquared += d * d
		}
	}
	if distSquared >= s.Radius*s.Radius {
		return Outside
	}
	for i := range 3 {
		if s.Center[i]-s.Radius < b.Min[i] || s.Center[i]+s.Radius > b.Max[i] {
			return Intersects
		}
	}
	return Inside
}

// Transformed returns the axis-aligned box enclosing b after transformation by m.
func (b Box) Transformed(m Mat4) Box {
	if !b.Defined() {
		return b
	}
	center := m.TransformPoint(b.Center())
	edge := b.HalfSize()
	newEdge := Vec3{
		math32.Abs(m[0])*edge[0] + math32.Abs(m[4])*edge[1] + math32.Abs(m[8])*edge[2],
		math32.Abs(m[1])*edge[0] + math32.Abs(m[5])*edge[1] + math32.Abs(m[9])*edge[2],
		math32.Abs(m[2])*edge[0] + math32.Abs(m[6])*edge[1] + math32.Abs(m[10])*edge[2],
	}
	return BoxFromCenter(center, newEdge)
}

// Corners returns the eight corner points of b.
func (b Box) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
	}
}

// RayDistance returns the distance along r at which it enters b, using the slab method.
//
// Parameters:
//   - r: the ray to test; its direction must be normalized
//
// Returns:
//   - float32: distance to the entry point (0 if the origin is inside)
//   - bool: false if the ray misses the box
func (b Box) RayDistance(r Ray) (float32, bool) {
	if b.ContainsPoint(r.Origin) {
		return 0, true
	}
	tMin := float32(math.Inf(-1))
	tMax := float32(math.Inf(1))
	for i := range 3 {
		if r.Direction[i] == 0 {
			if r.Origin[i] < b.Min[i] || r.Origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / r.Direction[i]
		t1 := (b.Min[i] - r.Origin[i]) * inv
		t2 := (b.Max[i] - r.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if tMax < 0 {
		return 0, false
	}
	return tMin, true
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// Box returns the axis-aligned box enclosing s.
func (s Sphere) Box() Box {
	r := Vec3{s.Radius, s.Radius, s.Radius}
	return Box{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// Ray is a half-line with a normalized direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// NewRay builds a ray and normalizes its direction.
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalized()}
}

// Point returns the point at distance t along r.
func (r Ray) Point(t float32) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}
