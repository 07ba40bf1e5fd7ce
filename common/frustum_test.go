package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViewProj() Mat4 {
	var proj, view Mat4
	Perspective(proj[:], math32.Pi/2, 1, 1, 100)
	LookAt(view[:], Vec3{0, 0, 10}, Vec3{}, Vec3Up)
	return proj.Mul(view)
}

func TestExtractFrustumFromMatrix(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())

	assert.Equal(t, Inside, f.IsInsideBox(NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1})))
	assert.Equal(t, Outside, f.IsInsideBox(NewBox(Vec3{-1, -1, 20}, Vec3{1, 1, 30})))
	assert.Equal(t, Outside, f.IsInsideBox(NewBox(Vec3{-1, -1, -200}, Vec3{1, 1, -150})))
	assert.Equal(t, Intersects, f.IsInsideBox(NewBox(Vec3{-1, -1, 8}, Vec3{1, 1, 12})))

	// near plane sits 1 unit in front of the eye
	assert.InDelta(t, 9, f.Vertices[0][2], 1e-3)
	assert.InDelta(t, -90, f.Vertices[4][2], 1e-2)
}

func TestFrustumFromVerticesMatchesExtracted(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())
	g := NewFrustumFromVertices(f.Vertices)

	for i := range f.Planes {
		assert.InDelta(t, f.Planes[i].Normal.Dot(g.Planes[i].Normal), 1, 1e-3, "plane %d", i)
		assert.InDelta(t, f.Planes[i].Distance, g.Planes[i].Distance, 1e-2, "plane %d", i)
	}
}

func TestFrustumIsInsideMaskedNarrows(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())

	mask := f.IsInsideMasked(NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1}), PlaneMaskAll)
	assert.Zero(t, mask)

	mask = f.IsInsideMasked(NewBox(Vec3{-1, -1, 8}, Vec3{1, 1, 12}), PlaneMaskAll)
	require.NotEqual(t, PlaneMaskOutside, mask)
	assert.NotZero(t, mask&(1<<FrustumNear))
	assert.Zero(t, mask&(1<<FrustumFar))

	// planes cleared from the mask are not re-tested
	assert.Zero(t, f.IsInsideMasked(NewBox(Vec3{-1, -1, 500}, Vec3{1, 1, 600}), 0))
	assert.Equal(t, PlaneMaskOutside, f.IsInsideMasked(NewBox(Vec3{-1, -1, 500}, Vec3{1, 1, 600}), PlaneMaskAll))
}

func TestFrustumTransformed(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())
	var m Mat4
	BuildModelMatrix(m[:], 100, 0, 0, 0, 0, 0, 1, 1, 1)
	moved := f.Transformed(m)

	assert.Equal(t, Outside, moved.IsInsideBox(NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1})))
	assert.Equal(t, Inside, moved.IsInsideBox(NewBox(Vec3{99, -1, -1}, Vec3{101, 1, 1})))
}

func TestFrustumIsInsideSphere(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())
	assert.Equal(t, Inside, f.IsInsideSphere(Sphere{Radius: 1}))
	assert.Equal(t, Outside, f.IsInsideSphere(Sphere{Center: Vec3{0, 0, 50}, Radius: 1}))
}

func TestDirectionToEulerRoundTrip(t *testing.T) {
	dir := Vec3{1, -1, -2}.Normalized()
	pitch, yaw := DirectionToEuler(dir)
	var m Mat4
	BuildModelMatrix(m[:], 0, 0, 0, pitch, yaw, 0, 1, 1, 1)
	got := m.TransformDir(Vec3Forward)
	for i := range 3 {
		assert.InDelta(t, dir[i], got[i], 1e-5)
	}
}
