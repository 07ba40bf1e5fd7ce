package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxGeometry(t *testing.T) {
	g := NewBoxGeometry("cube", common.Vec3{0.5, 0.5, 0.5}, [4]float32{1, 1, 1, 1})
	assert.Len(t, g.Vertices, 24)
	assert.Equal(t, 36, g.IndexCount())
	assert.Equal(t, common.NewBox(common.Vec3{-0.5, -0.5, -0.5}, common.Vec3{0.5, 0.5, 0.5}), g.BoundingBox)
	assert.Len(t, g.VertexData(), 24*g.VertexStride())
	assert.False(t, g.Skinned())
}

func TestModelLodLookup(t *testing.T) {
	m := NewBoxModel("cube", common.Vec3{1, 1, 1}, 50, 100)
	require.Equal(t, 1, m.NumGeometries())
	assert.Len(t, m.LodGeometries(0), 3)
	assert.Equal(t, float32(100), m.Geometry(0, 10).LodDistance)
	assert.Nil(t, m.Geometry(1, 0))
	assert.True(t, m.BoundingBox().Defined())
}

func TestSkinMatricesAtBindPose(t *testing.T) {
	s := NewTwoBoneSkeleton(1)
	mats := s.SkinMatrices(nil, nil)
	require.Len(t, mats, 2)
	for _, m := range mats {
		for i, v := range common.Identity4() {
			assert.InDelta(t, v, m[i], 1e-5)
		}
	}
}

func TestSkinnedBoxGeometry(t *testing.T) {
	g := NewSkinnedBoxGeometry("skin", common.Vec3{1, 1, 1}, [4]float32{1, 1, 1, 1})
	assert.True(t, g.Skinned())
	var v GPUSkinnedVertex
	assert.Equal(t, 80, v.Size())
	assert.Len(t, v.Marshal(), 80)
}
