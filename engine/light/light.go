package light

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun. Only one directional light is
	// rendered per view: the brightest one.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable range. Shadows use six cube faces.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with both distance and angle from the cone axis.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

// NoShadowMap is the shadow map index of a light that has no atlas space this frame.
const NoShadowMap = -1

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	drawable.Base

	lightType     LightType
	color         common.Vec3
	intensity     float32
	lightRange    float32
	innerDeg      float32
	outerDeg      float32
	innerCone     float32 // stored as cos(angle in radians)
	outerCone     float32 // stored as cos(angle in radians)
	shadowMapSize int
	shadowSplits  [2]float32
	depthBias     float32
	slopeBias     float32

	shadowMapIndex int
	shadowRect     common.Rect
	atlasWidth     int
	atlasHeight    int
	shadowViews    []*ShadowView
}

// Light defines the interface for a light source in the scene.
//
// Lights are drawables: they live in the octree, are found by frustum culling, and
// take their position and direction from the owning scene object's world transform
// (the object's -Z axis is the light direction). Type-specific properties return
// zero values when not applicable.
type Light interface {
	drawable.Drawable

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional lights.
	//
	// Returns:
	//   - common.Vec3: the world position
	Position() common.Vec3

	// Direction returns the normalized world direction of the light.
	// Meaningless for point lights.
	//
	// Returns:
	//   - common.Vec3: normalized direction
	Direction() common.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - common.Vec3: color as (r, g, b)
	Color() common.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Brightness returns the average of the color channels scaled by intensity.
	// Used to pick the main directional light.
	//
	// Returns:
	//   - float32: the brightness
	Brightness() float32

	// Range returns the maximum attenuation distance for point and spot lights.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// InnerCone returns the cosine of the inner cone half-angle for spot lights.
	//
	// Returns:
	//   - float32: cos(inner half-angle)
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// SpotFov returns the full cone angle in radians, used as the shadow camera field of view.
	//
	// Returns:
	//   - float32: twice the outer half-angle
	SpotFov() float32

	// CastsShadows returns whether this light is eligible for shadow map generation.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadows() bool

	// ShadowMapSize returns the requested size of one shadow view in texels.
	//
	// Returns:
	//   - int: the per-view size
	ShadowMapSize() int

	// ShadowSplits returns the far distances of the two directional cascades.
	//
	// Returns:
	//   - [2]float32: split distances from the camera
	ShadowSplits() [2]float32

	// DepthBias returns the constant and slope-scaled depth bias used when rendering shadows.
	//
	// Returns:
	//   - constant: the constant bias
	//   - slope: the slope-scaled bias
	DepthBias() (constant, slope float32)

	// NumShadowViews returns how many shadow views the light renders: 2 cascades for
	// directional, 6 cube faces for point and 1 for spot lights.
	//
	// Returns:
	//   - int: number of views
	NumShadowViews() int

	// TotalShadowMapSize returns the atlas area the light requests at the given per-view size.
	//
	// Parameters:
	//   - viewSize: per-view size in texels
	//
	// Returns:
	//   - width: total width in texels
	//   - height: total height in texels
	TotalShadowMapSize(viewSize int) (width, height int)

	// ShadowMapIndex returns the atlas index assigned this frame, or NoShadowMap.
	//
	// Returns:
	//   - int: atlas index
	ShadowMapIndex() int

	// ShadowRect returns the atlas rectangle assigned to the light.
	//
	// Returns:
	//   - common.Rect: the rectangle, zero when unassigned
	ShadowRect() common.Rect

	// SetShadowMap assigns an atlas rectangle to the light.
	//
	// Parameters:
	//   - index: atlas index
	//   - rect: the allocated rectangle
	//   - atlasWidth, atlasHeight: atlas dimensions, used for the shadow matrices
	SetShadowMap(index int, rect common.Rect, atlasWidth, atlasHeight int)

	// ClearShadowMap removes the atlas assignment; the light renders unshadowed.
	ClearShadowMap()

	// ShadowViews returns the light's shadow views, created on first use.
	//
	// Returns:
	//   - []*ShadowView: NumShadowViews views
	ShadowViews() []*ShadowView

	// SetupShadowView positions the shadow camera for one view and computes its viewport
	// and shadow matrix.
	//
	// Parameters:
	//   - viewIndex: the view to set up
	//   - mainCamera: the view camera
	//   - geometryBounds: optional world bounds of visible geometry used to focus directional cascades
	//
	// Returns:
	//   - bool: false when the view has nothing to render this frame
	SetupShadowView(viewIndex int, mainCamera camera.Camera, geometryBounds *common.Box) bool

	// WorldSphere returns the point light's influence sphere.
	//
	// Returns:
	//   - common.Sphere: center and range
	WorldSphere() common.Sphere

	// WorldFrustum returns the spot light's cone volume as a frustum.
	//
	// Returns:
	//   - common.Frustum: the world-space frustum
	WorldFrustum() common.Frustum

	// SetType changes the light type.
	//
	// Parameters:
	//   - lightType: the new type
	SetType(lightType LightType)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetRange sets the maximum attenuation distance.
	//
	// Parameters:
	//   - lightRange: the range value
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	// Angles are specified in degrees and stored internally as cosines.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetCastsShadows sets whether the light is eligible for shadow mapping.
	//
	// Parameters:
	//   - castsShadows: true to enable shadow casting
	SetCastsShadows(castsShadows bool)

	// SetShadowMapSize sets the requested per-view shadow map size.
	//
	// Parameters:
	//   - size: texels, rounded up to a power of two
	SetShadowMapSize(size int)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create (directional, point, or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:      lightType,
		color:          common.Vec3{1, 1, 1},
		intensity:      1.0,
		lightRange:     10.0,
		shadowMapSize:  DefaultShadowMapSize,
		shadowSplits:   DefaultShadowSplits,
		depthBias:      DefaultShadowBias,
		slopeBias:      DefaultShadowSlopeBias,
		shadowMapIndex: NoShadowMap,
	}
	l.setCone(25, 35)
	if lightType == LightTypeDirectional {
		l.shadowMapSize = DefaultDirectionalShadowMapSize
	}
	l.Base.Init(l, drawable.FlagLight)
	for _, opt := range opts {
		opt(l)
	}
	l.updateBounds()
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() common.Vec3 {
	return l.WorldPosition()
}

func (l *lightImpl) Direction() common.Vec3 {
	return l.WorldTransform().TransformDir(common.Vec3Forward).Normalized()
}

func (l *lightImpl) Color() common.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Brightness() float32 {
	return l.color.Average() * l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) SpotFov() float32 {
	return 2 * l.outerDeg * math32.Pi / 180
}

func (l *lightImpl) CastsShadows() bool {
	return l.Flags().Has(drawable.FlagCastShadows)
}

func (l *lightImpl) ShadowMapSize() int {
	return l.shadowMapSize
}

func (l *lightImpl) ShadowSplits() [2]float32 {
	return l.shadowSplits
}

func (l *lightImpl) DepthBias() (constant, slope float32) {
	return l.depthBias, l.slopeBias
}

func (l *lightImpl) NumShadowViews() int {
	switch l.lightType {
	case LightTypeDirectional:
		return 2
	case LightTypePoint:
		return 6
	default:
		return 1
	}
}

func (l *lightImpl) TotalShadowMapSize(viewSize int) (width, height int) {
	switch l.lightType {
	case LightTypeDirectional:
		return viewSize * 2, viewSize
	case LightTypePoint:
		return viewSize * 3, viewSize * 2
	default:
		return viewSize, viewSize
	}
}

func (l *lightImpl) ShadowMapIndex() int {
	return l.shadowMapIndex
}

func (l *lightImpl) ShadowRect() common.Rect {
	return l.shadowRect
}

func (l *lightImpl) SetShadowMap(index int, rect common.Rect, atlasWidth, atlasHeight int) {
	l.shadowMapIndex = index
	l.shadowRect = rect
	l.atlasWidth = atlasWidth
	l.atlasHeight = atlasHeight
}

func (l *lightImpl) ClearShadowMap() {
	l.shadowMapIndex = NoShadowMap
	l.shadowRect = common.Rect{}
}

func (l *lightImpl) ShadowViews() []*ShadowView {
	n := l.NumShadowViews()
	if len(l.shadowViews) != n {
		l.shadowViews = make([]*ShadowView, n)
		for i := range l.shadowViews {
			l.shadowViews[i] = newShadowView(l, i)
		}
	}
	return l.shadowViews
}

func (l *lightImpl) WorldSphere() common.Sphere {
	return common.Sphere{Center: l.Position(), Radius: l.lightRange}
}

func (l *lightImpl) WorldFrustum() common.Frustum {
	var view, proj common.Mat4
	pos := l.Position()
	common.LookAt(view[:], pos, pos.Add(l.Direction()), common.Vec3Up)
	common.Perspective(proj[:], l.SpotFov(), 1, l.shadowNear(), l.lightRange)
	return common.ExtractFrustumFromMatrix(proj.Mul(view))
}

func (l *lightImpl) SetType(lightType LightType) {
	l.lightType = lightType
	l.updateBounds()
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = common.Vec3{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = math32.Max(lightRange, 0)
	l.updateBounds()
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.setCone(innerDeg, outerDeg)
	l.updateBounds()
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.SetFlag(drawable.FlagCastShadows, castsShadows)
}

func (l *lightImpl) SetShadowMapSize(size int) {
	l.shadowMapSize = nextPowerOfTwo(size)
}

// OnPrepareRender measures directional lights at distance zero so they are never
// culled by a draw distance.
func (l *lightImpl) OnPrepareRender(frameNumber uint32, cam camera.Camera) bool {
	if l.lightType == LightTypeDirectional {
		l.SetDistance(0)
		l.SetLastFrameNumber(frameNumber)
		return true
	}
	return l.Base.OnPrepareRender(frameNumber, cam)
}

func (l *lightImpl) setCone(innerDeg, outerDeg float32) {
	outerDeg = common.Clamp(outerDeg, 0.5, 89)
	innerDeg = common.Clamp(innerDeg, 0, outerDeg)
	l.innerDeg, l.outerDeg = innerDeg, outerDeg
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

// updateBounds refreshes the local bounding box after a type, range or cone change.
func (l *lightImpl) updateBounds() {
	switch l.lightType {
	case LightTypeDirectional:
		l.SetInfiniteBoundingBox()
	case LightTypePoint:
		r := l.lightRange
		l.SetLocalBoundingBox(common.NewBox(common.Vec3{-r, -r, -r}, common.Vec3{r, r, r}))
	case LightTypeSpot:
		r := l.lightRange
		h := r * math32.Tan(l.outerDeg*math32.Pi/180)
		l.SetLocalBoundingBox(common.NewBox(common.Vec3{-h, -h, -r}, common.Vec3{h, h, 0}))
	}
}

func (l *lightImpl) shadowNear() float32 {
	return math32.Max(l.lightRange*0.01, 0.01)
}

func cosDeg(deg float32) float32 {
	return math32.Cos(deg * math32.Pi / 180)
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
