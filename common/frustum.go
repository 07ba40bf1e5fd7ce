package common

import (
	"github.com/chewxy/math32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// NewPlaneFromPoints builds the plane through three points with a normal of (b-a) x (c-a).
func NewPlaneFromPoints(a, b, c Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalized()
	return Plane{Normal: n, Distance: -n.Dot(a)}
}

// SignedDistance returns the distance of p from the plane, positive on the normal side.
func (p Plane) SignedDistance(v Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

// Flipped returns the plane facing the opposite direction.
func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Negate(), Distance: -p.Distance}
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
// Vertices holds the corner points: near plane first (left-bottom, right-bottom,
// right-top, left-top), then the far plane in the same order.
type Frustum struct {
	Planes   [6]Plane // Left, Right, Bottom, Top, Near, Far
	Vertices [8]Vec3
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// PlaneMaskAll has one bit set for each frustum plane.
const PlaneMaskAll uint8 = 0x3f

// PlaneMaskOutside is returned by IsInsideMasked when the tested box is outside.
const PlaneMaskOutside uint8 = 0xff

// vertex triples defining each plane, indexed like Planes
var frustumPlaneVertices = [6][3]int{
	FrustumLeft:   {0, 3, 7},
	FrustumRight:  {1, 2, 6},
	FrustumBottom: {0, 1, 5},
	FrustumTop:    {3, 2, 6},
	FrustumNear:   {0, 1, 2},
	FrustumFar:    {4, 5, 6},
}

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix and map depth to [0, 1].
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes and world-space corners
func ExtractFrustumFromMatrix(viewProj Mat4) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row
	row := func(r int) Vec4 {
		return Vec4{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	set := func(i int, v Vec4) {
		f.Planes[i] = Plane{Normal: Vec3{v[0], v[1], v[2]}, Distance: v[3]}
	}

	set(FrustumLeft, Vec4{r3[0] + r0[0], r3[1] + r0[1], r3[2] + r0[2], r3[3] + r0[3]})
	set(FrustumRight, Vec4{r3[0] - r0[0], r3[1] - r0[1], r3[2] - r0[2], r3[3] - r0[3]})
	set(FrustumBottom, Vec4{r3[0] + r1[0], r3[1] + r1[1], r3[2] + r1[2], r3[3] + r1[3]})
	set(FrustumTop, Vec4{r3[0] - r1[0], r3[1] - r1[1], r3[2] - r1[2], r3[3] - r1[3]})
	// depth range is [0, 1] so the near plane is row2 alone
	set(FrustumNear, r2)
	set(FrustumFar, Vec4{r3[0] - r2[0], r3[1] - r2[1], r3[2] - r2[2], r3[3] - r2[3]})

	// Normalize all planes
	for i := range f.Planes {
		f.normalizePlane(i)
	}

	if inv, ok := viewProj.Inverse(); ok {
		ndc := [8]Vec3{
			{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0},
			{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		}
		for i, p := range ndc {
			f.Vertices[i] = inv.ProjectPoint(p)
		}
	}

	return f
}

// NewFrustumFromVertices builds a frustum from its eight corners, ordered as in Frustum.Vertices.
// Plane normals are oriented towards the frustum's center.
func NewFrustumFromVertices(vertices [8]Vec3) Frustum {
	f := Frustum{Vertices: vertices}
	f.updatePlanes()
	return f
}

func (f *Frustum) updatePlanes() {
	center := Vec3Zero
	for _, v := range f.Vertices {
		center = center.Add(v)
	}
	center = center.Scale(1.0 / 8)
	for i, tri := range frustumPlaneVertices {
		p := NewPlaneFromPoints(f.Vertices[tri[0]], f.Vertices[tri[1]], f.Vertices[tri[2]])
		if p.SignedDistance(center) < 0 {
			p = p.Flipped()
		}
		f.Planes[i] = p
	}
}

// Transformed returns the frustum with its corners transformed by m and its planes rebuilt.
func (f Frustum) Transformed(m Mat4) Frustum {
	var verts [8]Vec3
	for i, v := range f.Vertices {
		verts[i] = m.TransformPoint(v)
	}
	return NewFrustumFromVertices(verts)
}

// Box returns the axis-aligned box enclosing the frustum's corners.
func (f Frustum) Box() Box {
	return BoxFromPoints(f.Vertices[:]...)
}

// IsInsideBox classifies box against the frustum.
//
// Parameters:
//   - box: the box to test
//
// Returns:
//   - Intersection: Outside, Intersects or Inside
func (f Frustum) IsInsideBox(box Box) Intersection {
	mask := f.IsInsideMasked(box, PlaneMaskAll)
	switch mask {
	case PlaneMaskOutside:
		return Outside
	case 0:
		return Inside
	default:
		return Intersects
	}
}

// IsInsideBoxFast reports Outside or Inside only, skipping the fully-inside classification.
func (f Frustum) IsInsideBoxFast(box Box) Intersection {
	return f.IsInsideMaskedFast(box, PlaneMaskAll)
}

// IsInsideMasked tests box against the planes whose bits are set in planeMask.
// Planes the box lies fully inside are cleared from the returned mask so that
// children of an already-tested volume can skip them.
//
// Parameters:
//   - box: the box to test
//   - planeMask: bit i set means plane i still needs testing
//
// Returns:
//   - uint8: the narrowed mask, or PlaneMaskOutside if the box is outside any plane
func (f Frustum) IsInsideMasked(box Box, planeMask uint8) uint8 {
	if planeMask == 0 {
		return 0
	}
	center := box.Center()
	edge := box.HalfSize()
	for i := range f.Planes {
		bit := uint8(1) << i
		if planeMask&bit == 0 {
			continue
		}
		p := f.Planes[i]
		dist := p.SignedDistance(center)
		absDist := math32.Abs(p.Normal[0])*edge[0] + math32.Abs(p.Normal[1])*edge[1] + math32.Abs(p.Normal[2])*edge[2]
		if dist < -absDist {
			return PlaneMaskOutside
		}
		if dist >= absDist {
			planeMask &^= bit
		}
	}
	return planeMask
}

// IsInsideMaskedFast is IsInsideMasked without mask narrowing; it returns Outside or Inside.
func (f Frustum) IsInsideMaskedFast(box Box, planeMask uint8) Intersection {
	if planeMask == 0 {
		return Inside
	}
	center := box.Center()
	edge := box.HalfSize()
	for i := range f.Planes {
		if planeMask&(1<<i) == 0 {
			continue
		}
		p := f.Planes[i]
		dist := p.SignedDistance(center)
		absDist := math32.Abs(p.Normal[0])*edge[0] + math32.Abs(p.Normal[1])*edge[1] + math32.Abs(p.Normal[2])*edge[2]
		if dist < -absDist {
			return Outside
		}
	}
	return Inside
}

// IsInsideSphere classifies the sphere s against the frustum.
func (f Frustum) IsInsideSphere(s Sphere) Intersection {
	allInside := true
	for _, p := range f.Planes {
		dist := p.SignedDistance(s.Center)
		if dist < -s.Radius {
			return Outside
		}
		if dist < s.Radius {
			allInside = false
		}
	}
	if allInside {
		return Inside
	}
	return Intersects
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := p.Normal.Length()

	if length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Scale(invLen)
		p.Distance *= invLen
	}
}
