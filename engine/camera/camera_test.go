package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraFrustumContainsTarget(t *testing.T) {
	c := NewCamera(WithPosition(common.Vec3{0, 0, 10}), WithNear(1), WithFar(100))
	f := c.WorldFrustum()

	assert.Equal(t, common.Inside, f.IsInsideBox(common.NewBox(common.Vec3{-1, -1, -1}, common.Vec3{1, 1, 1})))
	assert.Equal(t, common.Outside, f.IsInsideBox(common.NewBox(common.Vec3{-1, -1, 11}, common.Vec3{1, 1, 12})))
}

func TestCameraViewDepthRange(t *testing.T) {
	c := NewCamera(WithPosition(common.Vec3{0, 0, 10}))
	minZ, maxZ := c.ViewDepthRange(common.NewBox(common.Vec3{-1, -1, -1}, common.Vec3{1, 1, 1}))
	assert.InDelta(t, 9, minZ, 1e-4)
	assert.InDelta(t, 11, maxZ, 1e-4)
}

func TestCameraSplitFrustum(t *testing.T) {
	c := NewCamera(WithPosition(common.Vec3{}), WithNear(1), WithFar(100))
	split := c.WorldSplitFrustum(10, 20)

	assert.Equal(t, common.Outside, split.IsInsideBox(common.NewBox(common.Vec3{-0.1, -0.1, -5.1}, common.Vec3{0.1, 0.1, -5})))
	assert.Equal(t, common.Inside, split.IsInsideBox(common.NewBox(common.Vec3{-0.1, -0.1, -15.1}, common.Vec3{0.1, 0.1, -15})))
	assert.Equal(t, common.Outside, split.IsInsideBox(common.NewBox(common.Vec3{-0.1, -0.1, -30.1}, common.Vec3{0.1, 0.1, -30})))
}

func TestCameraProjectionVersion(t *testing.T) {
	c := NewCamera()
	v := c.ProjectionVersion()

	c.SetTransform(common.Vec3{1, 2, 3}, common.Vec3{0, 0, -1})
	assert.Equal(t, v, c.ProjectionVersion(), "moving the camera keeps the projection")

	c.SetFov(1.2)
	assert.Greater(t, c.ProjectionVersion(), v)
}

func TestOrthographicDistance(t *testing.T) {
	c := NewCamera(WithOrthographic(10), WithPosition(common.Vec3{0, 0, 10}))
	require.True(t, c.Orthographic())
	assert.InDelta(t, 10, c.Distance(common.Vec3{5, 0, 0}), 1e-4)

	f := c.WorldFrustum()
	assert.Equal(t, common.Inside, f.IsInsideBox(common.NewBox(common.Vec3{-1, -1, -1}, common.Vec3{1, 1, 1})))
	assert.Equal(t, common.Outside, f.IsInsideBox(common.NewBox(common.Vec3{20, -1, -1}, common.Vec3{22, 1, 1})))
}

func TestScreenRayThroughCenter(t *testing.T) {
	c := NewCamera(WithPosition(common.Vec3{0, 0, 10}))
	r := c.ScreenRay(0.5, 0.5)
	assert.InDelta(t, -1, r.Direction[2], 1e-4)
	assert.InDelta(t, 0, r.Origin[0], 1e-4)
}

func TestOrbitControllerDrivesCamera(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(10), WithElevation(0), WithTarget(common.Vec3{}))
	c := NewCamera(WithController(ctrl))

	assert.InDelta(t, 10, c.Position()[2], 1e-4)
	assert.InDelta(t, -1, c.Direction()[2], 1e-4)

	ctrl.Zoom(1.0 / 3)
	c.Update()
	assert.InDelta(t, 5, c.Position()[2], 1e-4)
	assert.InDelta(t, 5, ctrl.Radius(), 1e-4)
}

func TestOrbitControllerLimits(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(10), WithRadiusLimits(5, 20), WithZoomSpeed(1), WithElevation(0))

	ctrl.Zoom(100)
	assert.Equal(t, float32(5), ctrl.Radius())
	ctrl.Zoom(-100)
	assert.Equal(t, float32(20), ctrl.Radius())

	ctrl.Orbit(0, 10)
	assert.Less(t, ctrl.Position()[1], float32(20), "elevation stops short of the pole")
	assert.Greater(t, ctrl.Position()[1], float32(19.9))

	ctrl.SetTarget(common.Vec3{5, 0, 0})
	assert.InDelta(t, 20, ctrl.Position().Sub(ctrl.Target()).Length(), 1e-3)
}

func TestOrbitControllerAzimuth(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(10), WithElevation(0))
	assert.InDelta(t, 10, ctrl.Position()[2], 1e-4)

	ctrl.Orbit(math32.Pi/2, 0)
	p := ctrl.Position()
	assert.InDelta(t, 10, p[0], 1e-4)
	assert.InDelta(t, 0, p[2], 1e-4)
}
