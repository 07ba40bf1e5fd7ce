package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/chewxy/math32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position  common.Vec3
	direction common.Vec3
	up        common.Vec3

	fov          float32
	aspect       float32
	near         float32
	far          float32
	orthographic bool
	orthoSize    float32

	viewMatrix              common.Mat4
	worldMatrix             common.Mat4
	projectionMatrix        common.Mat4
	viewProjectionMatrix    common.Mat4
	inverseProjectionMatrix common.Mat4
	frustum                 common.Frustum
	projectionVersion       uint64

	controller Controller
}

// Camera is a view into the scene. It holds the position, orientation and projection
// settings and caches the derived matrices and the world-space frustum.
// All methods are safe for concurrent use.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - common.Vec3: the camera position
	Position() common.Vec3

	// Direction returns the normalized world-space look direction.
	//
	// Returns:
	//   - common.Vec3: the look direction
	Direction() common.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - common.Vec3: the up vector
	Up() common.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Orthographic reports whether the camera uses an orthographic projection.
	//
	// Returns:
	//   - bool: true for orthographic, false for perspective
	Orthographic() bool

	// OrthoSize returns the vertical extent of the orthographic view volume.
	//
	// Returns:
	//   - float32: view height in world units
	OrthoSize() float32

	// ViewMatrix returns the world-to-view matrix.
	//
	// Returns:
	//   - common.Mat4: the view matrix
	ViewMatrix() common.Mat4

	// WorldMatrix returns the view-to-world matrix (inverse of the view matrix).
	//
	// Returns:
	//   - common.Mat4: the camera's world transform
	WorldMatrix() common.Mat4

	// ProjectionMatrix returns the projection matrix mapping depth to [0, 1].
	//
	// Returns:
	//   - common.Mat4: the projection matrix
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns Projection * View.
	//
	// Returns:
	//   - common.Mat4: the combined view-projection matrix
	ViewProjectionMatrix() common.Mat4

	// InverseProjectionMatrix returns the inverse of the projection matrix.
	// Used to reconstruct view-space cluster frusta from normalized device coordinates.
	//
	// Returns:
	//   - common.Mat4: the inverse projection matrix
	InverseProjectionMatrix() common.Mat4

	// ProjectionVersion increases every time the projection matrix changes.
	//
	// Returns:
	//   - uint64: the projection version
	ProjectionVersion() uint64

	// WorldFrustum returns the world-space view frustum.
	//
	// Returns:
	//   - common.Frustum: the frustum
	WorldFrustum() common.Frustum

	// WorldSplitFrustum returns the world-space frustum between two view depths.
	//
	// Parameters:
	//   - nearSplit: depth of the slab's near face, clamped to Near()
	//   - farSplit: depth of the slab's far face, clamped to Far()
	//
	// Returns:
	//   - common.Frustum: the partial frustum
	WorldSplitFrustum(nearSplit, farSplit float32) common.Frustum

	// Distance returns the camera distance used for sorting and LOD. Perspective cameras
	// use euclidean distance, orthographic cameras use view depth.
	//
	// Parameters:
	//   - worldPos: the world-space point
	//
	// Returns:
	//   - float32: the distance
	Distance(worldPos common.Vec3) float32

	// ViewDepthRange returns the minimum and maximum view depth covered by a world-space box.
	//
	// Parameters:
	//   - box: the world-space box
	//
	// Returns:
	//   - minZ, maxZ: depth along the view direction
	ViewDepthRange(box common.Box) (minZ, maxZ float32)

	// ScreenRay returns the world-space ray through a normalized screen position.
	//
	// Parameters:
	//   - x, y: screen position in [0, 1], origin at the top-left
	//
	// Returns:
	//   - common.Ray: the ray starting on the near plane
	ScreenRay(x, y float32) common.Ray

	// Controller returns the attached Controller, or nil.
	//
	// Returns:
	//   - Controller: the attached controller or nil
	Controller() Controller

	// Update reads position and target from the attached controller and recomputes matrices.
	// If no controller is attached, this method does nothing.
	Update()

	// SetTransform places the camera and points it along direction.
	//
	// Parameters:
	//   - position: world-space position
	//   - direction: look direction, need not be normalized
	SetTransform(position, direction common.Vec3)

	// LookAt points the camera at a world-space target.
	//
	// Parameters:
	//   - target: the point to look at
	LookAt(target common.Vec3)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up common.Vec3)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetOrthographic switches between orthographic and perspective projection.
	//
	// Parameters:
	//   - enable: true for orthographic
	SetOrthographic(enable bool)

	// SetOrthoSize sets the vertical extent of the orthographic view volume.
	//
	// Parameters:
	//   - size: view height in world units
	SetOrthoSize(size float32)

	// SetController attaches a Controller to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl Controller)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at the origin looking down -Z with a 45 degree perspective projection.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		direction: common.Vec3Forward,
		up:        common.Vec3Up,
		fov:       45.0 * (math32.Pi / 180.0), // radians
		aspect:    1.0,
		near:      0.1,
		far:       1000.0,
		orthoSize: 20.0,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.readController()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Direction() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Orthographic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orthographic
}

func (c *cameraImpl) OrthoSize() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orthoSize
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) WorldMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldMatrix
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) ProjectionVersion() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionVersion
}

func (c *cameraImpl) WorldFrustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum
}

func (c *cameraImpl) WorldSplitFrustum(nearSplit, farSplit float32) common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()

	nearSplit = max(nearSplit, c.near)
	farSplit = min(farSplit, c.far)
	if farSplit <= nearSplit {
		farSplit = nearSplit + 0.001
	}

	var proj common.Mat4
	c.buildProjection(proj[:], nearSplit, farSplit)
	return common.ExtractFrustumFromMatrix(proj.Mul(c.viewMatrix))
}

func (c *cameraImpl) Distance(worldPos common.Vec3) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.orthographic {
		return worldPos.DistanceTo(c.position)
	}
	return math32.Abs(c.viewMatrix.TransformPoint(worldPos)[2])
}

func (c *cameraImpl) ViewDepthRange(box common.Box) (minZ, maxZ float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	viewBox := box.Transformed(c.viewMatrix)
	// view space looks down -Z
	return -viewBox.Max[2], -viewBox.Min[2]
}

func (c *cameraImpl) ScreenRay(x, y float32) common.Ray {
	c.mu.Lock()
	defer c.mu.Unlock()

	inv, ok := c.viewProjectionMatrix.Inverse()
	if !ok {
		return common.NewRay(c.position, c.direction)
	}
	ndcX := x*2 - 1
	ndcY := 1 - y*2
	near := inv.ProjectPoint(common.Vec3{ndcX, ndcY, 0})
	far := inv.ProjectPoint(common.Vec3{ndcX, ndcY, 1})
	return common.NewRay(near, far.Sub(near))
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.readController()
	c.updateMatrices()
}

func (c *cameraImpl) SetTransform(position, direction common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	if d := direction.Normalized(); d != common.Vec3Zero {
		c.direction = d
	}
	c.updateMatrices()
}

func (c *cameraImpl) LookAt(target common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := target.Sub(c.position).Normalized(); d != common.Vec3Zero {
		c.direction = d
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetOrthographic(enable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthographic = enable
	c.updateMatrices()
}

func (c *cameraImpl) SetOrthoSize(size float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthoSize = size
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// readController copies position and look direction from the controller.
// Caller must hold the mutex.
func (c *cameraImpl) readController() {
	c.position = c.controller.Position()
	if d := c.controller.Target().Sub(c.position).Normalized(); d != common.Vec3Zero {
		c.direction = d
	}
}

func (c *cameraImpl) buildProjection(out []float32, near, far float32) {
	if c.orthographic {
		h := c.orthoSize * 0.5
		w := h * c.aspect
		common.Ortho(out, -w, w, -h, h, near, far)
		return
	}
	common.Perspective(out, c.fov, c.aspect, near, far)
}

// updateMatrices recalculates the view, projection, view-projection and inverse projection
// matrices plus the world frustum. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.position, c.position.Add(c.direction), c.up)
	if inv, ok := c.viewMatrix.Inverse(); ok {
		c.worldMatrix = inv
	}

	var proj common.Mat4
	c.buildProjection(proj[:], c.near, c.far)
	if proj != c.projectionMatrix {
		c.projectionMatrix = proj
		c.inverseProjectionMatrix, _ = proj.Inverse()
		c.projectionVersion++
	}

	c.viewProjectionMatrix = c.projectionMatrix.Mul(c.viewMatrix)
	c.frustum = common.ExtractFrustumFromMatrix(c.viewProjectionMatrix)
}
