package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

type fixedOwner struct {
	m common.Mat4
}

func (o *fixedOwner) WorldMatrix() *common.Mat4 {
	return &o.m
}

func ownerAt(pos common.Vec3) *fixedOwner {
	o := &fixedOwner{}
	common.BuildModelMatrix(o.m[:], pos[0], pos[1], pos[2], 0, 0, 0, 1, 1, 1)
	return o
}

func TestShadowViewCounts(t *testing.T) {
	cases := []struct {
		lightType LightType
		views     int
		w, h      int
	}{
		{LightTypeDirectional, 2, 1024, 512},
		{LightTypePoint, 6, 1536, 1024},
		{LightTypeSpot, 1, 512, 512},
	}
	for _, tc := range cases {
		t.Run(tc.lightType.String(), func(t *testing.T) {
			l := NewLight(tc.lightType)
			assert.Equal(t, tc.views, l.NumShadowViews())
			assert.Len(t, l.ShadowViews(), tc.views)
			w, h := l.TotalShadowMapSize(512)
			assert.Equal(t, tc.w, w)
			assert.Equal(t, tc.h, h)
			assert.True(t, l.Flags().Has(drawable.FlagLight))
		})
	}
}

func TestLightBounds(t *testing.T) {
	point := NewLight(LightTypePoint, WithRange(5))
	point.DrawableBase().SetOwner(ownerAt(common.Vec3{10, 0, 0}))
	box := point.WorldBoundingBox()
	assert.InDelta(t, 5, box.Min[0], 1e-5)
	assert.InDelta(t, 15, box.Max[0], 1e-5)

	point.SetRange(2)
	assert.InDelta(t, 8, point.WorldBoundingBox().Min[0], 1e-5)

	sun := NewLight(LightTypeDirectional)
	assert.Equal(t, common.LargeBox(), sun.WorldBoundingBox())

	spot := NewLight(LightTypeSpot, WithRange(10), WithSpotCone(20, 30))
	spotBox := spot.WorldBoundingBox()
	assert.InDelta(t, -10, spotBox.Min[2], 1e-5)
	assert.InDelta(t, 0, spotBox.Max[2], 1e-5)
	assert.Equal(t, common.Inside, spot.WorldFrustum().IsInsideSphere(common.Sphere{Center: common.Vec3{0, 0, -5}, Radius: 0.5}))
}

func TestBrightness(t *testing.T) {
	dim := NewLight(LightTypeDirectional, WithColor(0.2, 0.2, 0.2))
	bright := NewLight(LightTypeDirectional, WithColor(1, 0.5, 0), WithIntensity(2))
	assert.InDelta(t, 0.2, dim.Brightness(), 1e-6)
	assert.InDelta(t, 1, bright.Brightness(), 1e-6)
}

func TestSetupSpotShadowView(t *testing.T) {
	spot := NewLight(LightTypeSpot, WithRange(20), WithCastsShadows(true))
	main := camera.NewCamera()

	assert.False(t, spot.SetupShadowView(0, main, nil), "no atlas rect assigned")

	rect := common.NewRect(512, 0, 512, 512)
	spot.SetShadowMap(0, rect, 1024, 1024)
	require.True(t, spot.SetupShadowView(0, main, nil))

	view := spot.ShadowViews()[0]
	assert.Equal(t, rect, view.Viewport)
	uv := view.ShadowMatrix.ProjectPoint(common.Vec3{0, 0, -5})
	assert.InDelta(t, 0.75, uv[0], 1e-4)
	assert.InDelta(t, 0.25, uv[1], 1e-4)
	assert.Equal(t, common.Inside, view.Camera.WorldFrustum().IsInsideSphere(common.Sphere{Center: common.Vec3{0, 0, -5}, Radius: 0.5}))
}

func TestSetupPointShadowViews(t *testing.T) {
	point := NewLight(LightTypePoint, WithRange(10), WithCastsShadows(true))
	point.SetShadowMap(0, common.NewRect(0, 0, 768, 512), 1024, 1024)

	main := camera.NewCamera()
	seen := map[common.Rect]bool{}
	for i := 0; i < point.NumShadowViews(); i++ {
		require.True(t, point.SetupShadowView(i, main, nil))
		vp := point.ShadowViews()[i].Viewport
		assert.Equal(t, 256, vp.Width())
		assert.True(t, common.NewRect(0, 0, 768, 512).Contains(vp))
		seen[vp] = true
	}
	assert.Len(t, seen, 6)

	// the +X face sees a point on the +X axis
	face := point.ShadowViews()[0].Camera
	assert.NotEqual(t, common.Outside, face.WorldFrustum().IsInsideSphere(common.Sphere{Center: common.Vec3{5, 0, 0}, Radius: 0.1}))
}

func TestSetupDirectionalShadowView(t *testing.T) {
	sun := NewLight(LightTypeDirectional, WithCastsShadows(true), WithShadowSplits(10, 40))
	o := &fixedOwner{}
	common.BuildModelMatrix(o.m[:], 0, 0, 0, -1.2, 0.3, 0, 1, 1, 1)
	sun.DrawableBase().SetOwner(o)
	sun.SetShadowMap(0, common.NewRect(0, 0, 2048, 1024), 2048, 1024)

	main := camera.NewCamera(camera.WithFar(100))
	geometry := common.NewBox(common.Vec3{-5, -1, -30}, common.Vec3{5, 1, -2})

	require.True(t, sun.SetupShadowView(0, main, &geometry))
	require.True(t, sun.SetupShadowView(1, main, &geometry))
	first, second := sun.ShadowViews()[0], sun.ShadowViews()[1]
	assert.Equal(t, common.NewRect(0, 0, 1024, 1024), first.Viewport)
	assert.Equal(t, common.NewRect(1024, 0, 1024, 1024), second.Viewport)
	assert.True(t, first.Camera.Orthographic())

	// geometry inside the first cascade lies in the shadow frustum
	assert.NotEqual(t, common.Outside, first.Camera.WorldFrustum().IsInsideSphere(common.Sphere{Center: common.Vec3{0, 0, -5}, Radius: 0.5}))

	// the second cascade starts at 10 but this geometry ends at depth 8
	far := common.NewBox(common.Vec3{-1, -1, -8}, common.Vec3{1, 1, -2})
	assert.False(t, sun.SetupShadowView(1, main, &far), "no geometry in the second cascade")
	assert.True(t, sun.ShadowViews()[1].Skipped())

	empty := common.EmptyBox()
	assert.False(t, sun.SetupShadowView(0, main, &empty))
}

func TestDecideRenderMode(t *testing.T) {
	v := newShadowView(NewLight(LightTypeSpot), 0)
	v.Viewport = common.NewRect(0, 0, 256, 256)
	v.ShadowMatrix = common.Identity4()

	statics := CasterSummary{NumStatic: 3}
	assert.Equal(t, RenderStaticLightStoreStatic, v.DecideRenderMode(1, true, statics))
	assert.Equal(t, uint32(1), v.CacheFrame())
	assert.Equal(t, RenderStaticLightCached, v.DecideRenderMode(2, true, statics))

	withDynamic := CasterSummary{NumStatic: 3, HasDynamic: true}
	assert.Equal(t, RenderStaticLightRestoreStatic, v.DecideRenderMode(3, true, withDynamic))
	assert.Equal(t, RenderStaticLightRestoreStatic, v.DecideRenderMode(4, true, statics), "stale dynamic shadows are erased once")
	assert.Equal(t, RenderStaticLightCached, v.DecideRenderMode(5, true, statics))

	assert.Equal(t, RenderStaticLightStoreStatic, v.DecideRenderMode(6, true, CasterSummary{NumStatic: 4}))
	v.Viewport = common.NewRect(256, 0, 256, 256)
	assert.Equal(t, RenderStaticLightStoreStatic, v.DecideRenderMode(7, true, CasterSummary{NumStatic: 4}))
	assert.Equal(t, RenderStaticLightStoreStatic, v.DecideRenderMode(8, true, CasterSummary{NumStatic: 4, StaticMoved: true}))

	assert.Equal(t, RenderDynamicLight, v.DecideRenderMode(9, false, statics))
	assert.Equal(t, RenderStaticLightStoreStatic, v.DecideRenderMode(10, true, statics), "cache is rebuilt after dynamic use")
}

func TestMarshalLightBuffer(t *testing.T) {
	point := NewLight(LightTypePoint, WithRange(4), WithColor(1, 0, 0), WithIntensity(2))
	buf := MarshalLightBuffer(nil, []Light{point})
	require.Len(t, buf, 2*160)
	assert.Equal(t, make([]byte, 160), buf[:160], "slot 0 is empty without a directional light")

	d := ToGPULightData(point)
	assert.InDelta(t, 0.25, d.Position[3], 1e-6)
	assert.Equal(t, common.Vec4{2, 0, 0, 0}, d.Color)
	assert.Equal(t, float32(NoShadowMap), d.ShadowParameters[3])
	assert.Equal(t, d.Marshal(), buf[160:])

	many := make([]Light, MaxLights+10)
	for i := range many {
		many[i] = point
	}
	assert.Len(t, MarshalLightBuffer(point, many), (MaxLights+1)*160)
}
