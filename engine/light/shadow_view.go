package light

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
)

// RenderMode is the cache decision for one shadow view in one frame.
type RenderMode int

const (
	// RenderDynamicLight clears the viewport and renders every caster.
	RenderDynamicLight RenderMode = iota
	// RenderStaticLightStoreStatic renders static casters, copies the result to the
	// static cache texture, then renders dynamic casters on top.
	RenderStaticLightStoreStatic
	// RenderStaticLightRestoreStatic copies the cached static depth back and renders
	// dynamic casters only.
	RenderStaticLightRestoreStatic
	// RenderStaticLightCached leaves last frame's shadow map untouched.
	RenderStaticLightCached
)

func (m RenderMode) String() string {
	switch m {
	case RenderDynamicLight:
		return "dynamic"
	case RenderStaticLightStoreStatic:
		return "store-static"
	case RenderStaticLightRestoreStatic:
		return "restore-static"
	case RenderStaticLightCached:
		return "cached"
	default:
		return "unknown"
	}
}

// CasterSummary describes the shadow casters found for one view this frame.
type CasterSummary struct {
	// NumStatic counts casters flagged static.
	NumStatic int
	// HasDynamic is set when at least one non-static caster contributes.
	HasDynamic bool
	// StaticMoved is set when a static caster was reinserted since the cache was stored.
	StaticMoved bool
}

// ShadowView is one render of a light into its shadow atlas rectangle: a directional
// cascade, a point light cube face, or a spot light cone. Views persist on their light
// so the cache state survives between frames.
type ShadowView struct {
	Light Light
	Index int

	Camera       camera.Camera
	Viewport     common.Rect
	ShadowMatrix common.Mat4
	RenderMode   RenderMode

	// ShadowQueue and StaticQueue index the batch queues of the owning shadow map.
	ShadowQueue int
	StaticQueue int

	lastViewport         common.Rect
	lastShadowMatrix     common.Mat4
	lastNumStaticCasters int
	lastDynamicCasters   bool
	cacheFrame           uint32
	cacheValid           bool
}

func newShadowView(l Light, index int) *ShadowView {
	return &ShadowView{
		Light:       l,
		Index:       index,
		Camera:      camera.NewCamera(),
		ShadowQueue: -1,
		StaticQueue: -1,
	}
}

// Skipped reports whether SetupShadowView rejected the view this frame.
func (v *ShadowView) Skipped() bool {
	return v.Viewport.IsZero()
}

// CacheFrame returns the frame the static cache was last stored in.
func (v *ShadowView) CacheFrame() uint32 {
	return v.cacheFrame
}

// InvalidateCache forces the next static render to store the cache again.
func (v *ShadowView) InvalidateCache() {
	v.cacheValid = false
}

// DecideRenderMode compares this frame's viewport, shadow matrix and casters with the
// values stored last frame and picks the render mode. Only static lights are cached.
//
// Parameters:
//   - frameNumber: the current frame
//   - staticLight: whether the light is static
//   - casters: the caster summary for this view
//
// Returns:
//   - RenderMode: the chosen mode, also stored in v.RenderMode
func (v *ShadowView) DecideRenderMode(frameNumber uint32, staticLight bool, casters CasterSummary) RenderMode {
	switch {
	case !staticLight:
		v.RenderMode = RenderDynamicLight
		v.cacheValid = false
	case !v.cacheValid ||
		v.Viewport != v.lastViewport ||
		v.ShadowMatrix != v.lastShadowMatrix ||
		casters.NumStatic != v.lastNumStaticCasters ||
		casters.StaticMoved:
		v.RenderMode = RenderStaticLightStoreStatic
		v.cacheValid = true
		v.cacheFrame = frameNumber
	case casters.HasDynamic || v.lastDynamicCasters:
		v.RenderMode = RenderStaticLightRestoreStatic
	default:
		v.RenderMode = RenderStaticLightCached
	}

	v.lastViewport = v.Viewport
	v.lastShadowMatrix = v.ShadowMatrix
	v.lastNumStaticCasters = casters.NumStatic
	v.lastDynamicCasters = casters.HasDynamic
	return v.RenderMode
}

var cubeFaces = [6]struct{ dir, up common.Vec3 }{
	{common.Vec3{1, 0, 0}, common.Vec3Up},
	{common.Vec3{-1, 0, 0}, common.Vec3Up},
	{common.Vec3{0, 1, 0}, common.Vec3{0, 0, 1}},
	{common.Vec3{0, -1, 0}, common.Vec3{0, 0, -1}},
	{common.Vec3{0, 0, 1}, common.Vec3Up},
	{common.Vec3{0, 0, -1}, common.Vec3Up},
}

func (l *lightImpl) SetupShadowView(viewIndex int, mainCamera camera.Camera, geometryBounds *common.Box) bool {
	views := l.ShadowViews()
	if viewIndex < 0 || viewIndex >= len(views) {
		return false
	}
	view := views[viewIndex]
	view.Viewport = common.Rect{}
	if l.shadowRect.IsZero() {
		return false
	}

	var ok bool
	switch l.lightType {
	case LightTypeDirectional:
		ok = l.setupDirectionalView(view, mainCamera, geometryBounds)
	case LightTypePoint:
		ok = l.setupPointView(view)
	case LightTypeSpot:
		ok = l.setupSpotView(view)
	}
	if !ok {
		view.Viewport = common.Rect{}
		return false
	}

	view.ShadowMatrix = l.atlasMatrix(view.Viewport).Mul(view.Camera.ViewProjectionMatrix())
	return true
}

// setupDirectionalView fits an orthographic camera around the part of the cascade's
// frustum slab that contains visible geometry. The camera is pulled back towards the
// light by the main camera's far distance so casters between the light and the slab
// are inside the shadow frustum.
func (l *lightImpl) setupDirectionalView(view *ShadowView, mainCamera camera.Camera, geometryBounds *common.Box) bool {
	size := l.shadowRect.Height()
	view.Viewport = common.NewRect(l.shadowRect.Left+view.Index*size, l.shadowRect.Top, size, size)

	splitStart := mainCamera.Near()
	if view.Index > 0 {
		splitStart = math32.Max(splitStart, l.shadowSplits[view.Index-1])
	}
	splitEnd := math32.Min(mainCamera.Far(), l.shadowSplits[view.Index])
	if geometryBounds != nil {
		if !geometryBounds.Defined() {
			return false
		}
		minZ, maxZ := mainCamera.ViewDepthRange(*geometryBounds)
		splitStart = math32.Max(splitStart, minZ)
		splitEnd = math32.Min(splitEnd, maxZ)
	}
	if splitEnd <= splitStart {
		return false
	}

	dir := l.Direction()
	var lightView common.Mat4
	common.LookAt(lightView[:], common.Vec3Zero, dir, common.Vec3Up)

	box := mainCamera.WorldSplitFrustum(splitStart, splitEnd).Transformed(lightView).Box()
	if geometryBounds != nil {
		box = box.Clip(geometryBounds.Transformed(lightView))
		if !box.Defined() {
			return false
		}
	}

	extent := box.Size()
	viewSize := math32.Max(math32.Max(extent[0], extent[1]), minShadowViewSize)
	viewSize = math32.Ceil(viewSize/shadowViewQuantize) * shadowViewQuantize
	texel := viewSize / float32(size)
	viewSize += 2 * texel

	center := box.Center()
	cx := math32.Floor(center[0]/texel) * texel
	cy := math32.Floor(center[1]/texel) * texel

	extrusion := mainCamera.Far()
	lightWorld, _ := lightView.Inverse()
	pos := lightWorld.TransformPoint(common.Vec3{cx, cy, box.Max[2] + extrusion})

	cam := view.Camera
	cam.SetOrthographic(true)
	cam.SetAspect(1)
	cam.SetOrthoSize(viewSize)
	cam.SetNear(0)
	cam.SetFar(extrusion + box.Max[2] - box.Min[2])
	cam.SetUp(common.Vec3Up)
	cam.SetTransform(pos, dir)
	return true
}

func (l *lightImpl) setupPointView(view *ShadowView) bool {
	size := l.shadowRect.Height() / 2
	view.Viewport = common.NewRect(l.shadowRect.Left+(view.Index%3)*size, l.shadowRect.Top+(view.Index/3)*size, size, size)

	face := cubeFaces[view.Index]
	cam := view.Camera
	cam.SetOrthographic(false)
	cam.SetFov(math32.Pi / 2)
	cam.SetAspect(1)
	cam.SetNear(l.shadowNear())
	cam.SetFar(l.lightRange)
	cam.SetUp(face.up)
	cam.SetTransform(l.Position(), face.dir)
	return true
}

func (l *lightImpl) setupSpotView(view *ShadowView) bool {
	view.Viewport = l.shadowRect

	cam := view.Camera
	cam.SetOrthographic(false)
	cam.SetFov(l.SpotFov())
	cam.SetAspect(1)
	cam.SetNear(l.shadowNear())
	cam.SetFar(l.lightRange)
	cam.SetUp(common.Vec3Up)
	cam.SetTransform(l.Position(), l.Direction())
	return true
}

// atlasMatrix maps clip space of a view into texture coordinates of its atlas viewport.
func (l *lightImpl) atlasMatrix(viewport common.Rect) common.Mat4 {
	aw := float32(max(l.atlasWidth, 1))
	ah := float32(max(l.atlasHeight, 1))
	sx := 0.5 * float32(viewport.Width()) / aw
	sy := 0.5 * float32(viewport.Height()) / ah

	m := common.Identity4()
	m[0] = sx
	m[5] = -sy
	m[12] = sx + float32(viewport.Left)/aw
	m[13] = sy + float32(viewport.Top)/ah
	return m
}
