package cluster

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
)

type fixedOwner struct {
	m common.Mat4
}

func (o *fixedOwner) WorldMatrix() *common.Mat4 {
	return &o.m
}

func placedLight(t light.LightType, pos common.Vec3, opts ...light.LightBuilderOption) light.Light {
	l := light.NewLight(t, opts...)
	o := &fixedOwner{}
	common.BuildModelMatrix(o.m[:], pos[0], pos[1], pos[2], 0, 0, 0, 1, 1, 1)
	l.DrawableBase().SetOwner(o)
	return l
}

func cullAll(g *Grid) {
	var wg sync.WaitGroup
	for z := range NumClustersZ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.CullSlice(z)
		}()
	}
	wg.Wait()
}

func TestSliceDepth(t *testing.T) {
	near, far := SliceDepth(0, 0.1, 100)
	assert.InDelta(t, 0.1, near, 1e-6)
	assert.InDelta(t, 1.5625, far, 1e-4)

	near, far = SliceDepth(7, 0.1, 100)
	assert.InDelta(t, 76.5625, near, 1e-3)
	assert.InDelta(t, 100, far, 1e-4)

	for z := 1; z < NumClustersZ; z++ {
		_, prevFar := SliceDepth(z-1, 0.1, 100)
		n, _ := SliceDepth(z, 0.1, 100)
		assert.InDelta(t, prevFar, n, 1e-4, "slice %d", z)
	}
}

func TestDefineFrustaCachesByProjection(t *testing.T) {
	cam := camera.NewCamera(camera.WithFar(100))
	g := NewGrid()

	assert.True(t, g.DefineFrusta(cam))
	assert.False(t, g.DefineFrusta(cam))

	cam.SetFar(200)
	assert.True(t, g.DefineFrusta(cam))

	other := camera.NewCamera(camera.WithFar(200))
	assert.True(t, g.DefineFrusta(other))
}

func TestClusterFrustaTileTheView(t *testing.T) {
	cam := camera.NewCamera(camera.WithFar(100))
	g := NewGrid()
	g.DefineFrusta(cam)

	center := g.Box(8, 3, 5)
	near, far := SliceDepth(5, cam.Near(), cam.Far())
	assert.InDelta(t, -far, center.Min[2], 1e-3)
	assert.InDelta(t, -near, center.Max[2], 1e-3)
	assert.InDelta(t, 0, center.Min[0], 1e-3)
	assert.InDelta(t, 0, center.Min[1], 1e-3)

	// neighbours share a face
	left := g.Box(7, 3, 5)
	assert.InDelta(t, center.Min[0], left.Max[0], 1e-3)

	p := common.Vec3{0.5, 0.5, -45}
	assert.NotEqual(t, common.Outside, g.Frustum(8, 3, 5).IsInsideSphere(common.Sphere{Center: p}))
	assert.Equal(t, common.Outside, g.Frustum(0, 0, 5).IsInsideSphere(common.Sphere{Center: p}))
}

func TestOrthographicClustersAreBoxes(t *testing.T) {
	cam := camera.NewCamera(camera.WithOrthographic(16), camera.WithFar(100))
	g := NewGrid()
	g.DefineFrusta(cam)

	near := g.Box(0, 0, 7)
	assert.InDelta(t, -8, near.Min[0], 1e-3)
	assert.InDelta(t, -7, near.Max[0], 1e-3)
	assert.InDelta(t, 8, near.Max[1], 1e-3)
	assert.InDelta(t, 6, near.Min[1], 1e-3)
}

func TestPointLightAssignment(t *testing.T) {
	cam := camera.NewCamera(camera.WithFar(100))
	g := NewGrid()
	g.DefineFrusta(cam)

	lights := []light.Light{
		placedLight(light.LightTypePoint, common.Vec3{0.01, 0.01, -50}, light.WithRange(0.5)),
	}
	g.Prepare(lights, cam.ViewMatrix())
	cullAll(g)

	assert.Equal(t, []uint8{1}, g.Lights(8, 3, 5))
	assert.Empty(t, g.Lights(8, 3, 0))
	assert.Empty(t, g.Lights(0, 0, 5))
	assert.Empty(t, g.Lights(8, 3, 7))
	assert.Zero(t, g.Overflow())
	assert.Len(t, g.Bytes(), NumClusters*MaxLightsPerCluster)
}

func TestSpotLightAssignment(t *testing.T) {
	cam := camera.NewCamera(camera.WithFar(100))
	g := NewGrid()
	g.DefineFrusta(cam)

	spot := placedLight(light.LightTypeSpot, common.Vec3{0, 0, 0}, light.WithRange(20))
	point := placedLight(light.LightTypePoint, common.Vec3{0.01, 0.01, -50}, light.WithRange(0.5))
	g.Prepare([]light.Light{point, spot}, cam.ViewMatrix())
	cullAll(g)

	assert.Equal(t, []uint8{2}, g.Lights(8, 3, 3))
	assert.Equal(t, []uint8{1}, g.Lights(8, 3, 5))
	assert.Empty(t, g.Lights(8, 3, 7))
}

func TestClusterOverflowDropsExcessLights(t *testing.T) {
	cam := camera.NewCamera(camera.WithFar(100))
	g := NewGrid()
	g.DefineFrusta(cam)

	lights := make([]light.Light, 20)
	for i := range lights {
		lights[i] = placedLight(light.LightTypePoint, common.Vec3{0.01, 0.01, -50}, light.WithRange(0.5))
	}
	g.Prepare(lights, cam.ViewMatrix())
	cullAll(g)

	cell := g.Lights(8, 3, 5)
	require.Len(t, cell, MaxLightsPerCluster)
	for i, idx := range cell {
		assert.Equal(t, uint8(i+1), idx)
	}
	assert.Positive(t, g.Overflow())

	// the next frame starts clean
	g.Prepare(nil, cam.ViewMatrix())
	cullAll(g)
	assert.Empty(t, g.Lights(8, 3, 5))
	assert.Zero(t, g.Overflow())
}
