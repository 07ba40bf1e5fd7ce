package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxMergeIgnoresUndefined(t *testing.T) {
	b := EmptyBox()
	assert.False(t, b.Defined())

	b = b.Merge(NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1}))
	require.True(t, b.Defined())
	b = b.Merge(EmptyBox())
	assert.Equal(t, Vec3{-1, -1, -1}, b.Min)
	assert.Equal(t, Vec3{1, 1, 1}, b.Max)
}

func TestBoxIsInside(t *testing.T) {
	outer := NewBox(Vec3{-2, -2, -2}, Vec3{2, 2, 2})
	tests := []struct {
		name string
		box  Box
		want Intersection
	}{
		{"inside", NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1}), Inside},
		{"straddles", NewBox(Vec3{1, 1, 1}, Vec3{3, 3, 3}), Intersects},
		{"outside", NewBox(Vec3{3, 3, 3}, Vec3{4, 4, 4}), Outside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outer.IsInside(tt.box))
		})
	}
}

func TestBoxClip(t *testing.T) {
	a := NewBox(Vec3{0, 0, 0}, Vec3{2, 2, 2})
	c := a.Clip(NewBox(Vec3{1, 1, 1}, Vec3{3, 3, 3}))
	assert.Equal(t, NewBox(Vec3{1, 1, 1}, Vec3{2, 2, 2}), c)

	empty := a.Clip(NewBox(Vec3{5, 5, 5}, Vec3{6, 6, 6}))
	assert.False(t, empty.Defined())
}

func TestBoxTransformed(t *testing.T) {
	var m Mat4
	BuildModelMatrix(m[:], 10, 0, 0, 0, 0, 0, 2, 2, 2)
	b := NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1}).Transformed(m)
	assert.InDelta(t, 8, b.Min[0], 1e-5)
	assert.InDelta(t, 12, b.Max[0], 1e-5)
	assert.InDelta(t, -2, b.Min[1], 1e-5)
}

func TestBoxIsInsideSphere(t *testing.T) {
	b := NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1})
	assert.Equal(t, Inside, b.IsInsideSphere(Sphere{Radius: 0.5}))
	assert.Equal(t, Intersects, b.IsInsideSphere(Sphere{Center: Vec3{1.5, 0, 0}, Radius: 1}))
	assert.Equal(t, Outside, b.IsInsideSphere(Sphere{Center: Vec3{5, 0, 0}, Radius: 1}))
}

func TestBoxRayDistance(t *testing.T) {
	b := NewBox(Vec3{-1, -1, -1}, Vec3{1, 1, 1})

	d, ok := b.RayDistance(NewRay(Vec3{0, 0, 10}, Vec3{0, 0, -1}))
	require.True(t, ok)
	assert.InDelta(t, 9, d, 1e-5)

	_, ok = b.RayDistance(NewRay(Vec3{5, 0, 10}, Vec3{0, 0, -1}))
	assert.False(t, ok)

	_, ok = b.RayDistance(NewRay(Vec3{0, 0, 10}, Vec3{0, 0, 1}))
	assert.False(t, ok)

	d, ok = b.RayDistance(NewRay(Vec3{}, Vec3{1, 0, 0}))
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestRectOverlaps(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	assert.True(t, a.Overlaps(NewRect(5, 5, 10, 10)))
	assert.False(t, a.Overlaps(NewRect(10, 0, 10, 10)))
	assert.Equal(t, 100, a.Area())
}
