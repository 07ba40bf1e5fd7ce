package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
)

func TestAreaAllocatorPacksWithoutOverlap(t *testing.T) {
	a := NewAreaAllocator(1024, 1024)
	var rects []common.Rect
	sizes := []int{512, 256, 256, 512, 128, 128, 256, 64, 64, 128}
	for _, s := range sizes {
		r, ok := a.Allocate(s, s)
		require.True(t, ok, "size %d", s)
		assert.Equal(t, s, r.Width())
		assert.True(t, common.NewRect(0, 0, 1024, 1024).Contains(r))
		for _, other := range rects {
			assert.False(t, r.Overlaps(other), "%v overlaps %v", r, other)
		}
		rects = append(rects, r)
	}
}

func TestAreaAllocatorFull(t *testing.T) {
	a := NewAreaAllocator(512, 512)
	for range 4 {
		_, ok := a.Allocate(256, 256)
		require.True(t, ok)
	}
	_, ok := a.Allocate(1, 1)
	assert.False(t, ok)

	a.Reset(512, 512)
	r, ok := a.Allocate(512, 512)
	require.True(t, ok)
	assert.Equal(t, common.NewRect(0, 0, 512, 512), r)

	_, ok = a.Allocate(0, 16)
	assert.False(t, ok)
}

func TestAreaAllocatorSpecific(t *testing.T) {
	a := NewAreaAllocator(1024, 1024)
	want := common.NewRect(512, 256, 256, 256)
	require.True(t, a.AllocateSpecific(want))
	assert.False(t, a.AllocateSpecific(common.NewRect(600, 300, 16, 16)), "overlaps the reserved rectangle")
	assert.False(t, a.AllocateSpecific(common.NewRect(1000, 0, 64, 64)), "leaves the area")
	assert.True(t, a.AllocateSpecific(common.NewRect(0, 0, 512, 1024)))

	r, ok := a.Allocate(256, 256)
	require.True(t, ok)
	assert.False(t, r.Overlaps(want))
}

func TestMapAllocateReusesAndHalves(t *testing.T) {
	m := NewMap(LocalMap, 1024, 1024)

	first, ok := m.Allocate(512, 512, common.Rect{})
	require.True(t, ok)

	m.Clear()
	require.True(t, m.allocator.AllocateSpecific(common.NewRect(768, 768, 256, 256)))
	reused, ok := m.Allocate(512, 512, first)
	require.True(t, ok)
	assert.Equal(t, first, reused, "a free previous rectangle is reused")

	m.Clear()
	require.True(t, m.allocator.AllocateSpecific(first))
	moved, ok := m.Allocate(512, 512, first)
	require.True(t, ok)
	assert.False(t, moved.Overlaps(first))

	m.Clear()
	big, ok := m.Allocate(1024, 1024, common.Rect{})
	require.True(t, ok)
	assert.Equal(t, 1024, big.Width())

	_, ok = m.Allocate(1024, 1024, common.Rect{})
	assert.False(t, ok, "no room left after three halvings")

	m.Clear()
	_, ok = m.Allocate(1024, 512, common.Rect{})
	require.True(t, ok)
	halved, ok := m.Allocate(1024, 1024, common.Rect{})
	require.True(t, ok)
	assert.Equal(t, 512, halved.Width())
	assert.Equal(t, 512, halved.Height())
}

func TestMapQueuesAndTextures(t *testing.T) {
	dev := gpu.NewRecorder()
	m := NewMap(DirectionalMap, 2048, 1024)
	require.NoError(t, m.CreateTextures(dev))
	assert.Equal(t, 2, dev.NumTextures())
	assert.NotEqual(t, m.Texture(), m.StaticTexture())

	sun := light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true))
	views := sun.ShadowViews()
	for _, v := range views {
		m.AddView(v)
	}
	assert.True(t, m.Used())
	assert.Equal(t, 0, views[0].ShadowQueue)
	assert.Equal(t, 1, views[0].StaticQueue)
	assert.Equal(t, 2, views[1].ShadowQueue)
	assert.Equal(t, 3, views[1].StaticQueue)
	assert.True(t, m.Queue(views[1].StaticQueue).Empty())

	m.Clear()
	assert.False(t, m.Used())

	m.ReleaseTextures(dev)
	assert.Zero(t, dev.NumTextures())
	assert.Equal(t, gpu.NoTexture, m.Texture())
}

func TestMapReuse(t *testing.T) {
	m := NewMap(LocalMap, 1024, 1024)
	rect := common.NewRect(512, 0, 512, 512)

	assert.False(t, m.Reuse(common.Rect{}))
	require.True(t, m.Reuse(rect))
	assert.False(t, m.Reuse(rect), "a reserved rectangle cannot be taken twice")

	next, ok := m.Allocate(512, 512, common.Rect{})
	require.True(t, ok)
	assert.False(t, next.Overlaps(rect))

	m.Clear()
	assert.True(t, m.Reuse(rect))
	assert.False(t, m.Reuse(common.NewRect(768, 768, 512, 512)), "out of bounds")
}
