package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

type gameObject struct {
	id        uint64
	name      string
	enabled   atomic.Bool
	static    bool
	drawables []drawable.Drawable

	mu            *sync.Mutex
	position      common.Vec3
	rotation      common.Vec3
	scale         common.Vec3
	rotationSpeed common.Vec3
	velocity      common.Vec3
	worldMatrix   common.Mat4
}

// GameObject is a scene node: a transform shared by the drawables attached to it
// (static models, skinned models, lights). Changing the transform dirties the
// drawables' world bounding boxes and queues them for octree reinsertion.
type GameObject interface {
	drawable.Transformer

	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Name returns the object's name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Static reports whether the object is marked as never moving.
	//
	// Returns:
	//   - bool: true if static
	Static() bool

	// Position returns the world-space position.
	//
	// Returns:
	//   - common.Vec3: position
	Position() common.Vec3

	// Rotation returns the Euler rotation in radians (applied Y, X, Z).
	//
	// Returns:
	//   - common.Vec3: rotation angles
	Rotation() common.Vec3

	// Scale returns the scale factors.
	//
	// Returns:
	//   - common.Vec3: scale
	Scale() common.Vec3

	// RotationSpeed returns the rotation applied per second by Update.
	//
	// Returns:
	//   - common.Vec3: radians per second around each axis
	RotationSpeed() common.Vec3

	// Velocity returns the translation applied per second by Update.
	//
	// Returns:
	//   - common.Vec3: units per second
	Velocity() common.Vec3

	// WorldDirection returns the direction the object's -Z axis points to in world space.
	//
	// Returns:
	//   - common.Vec3: the normalized forward direction
	WorldDirection() common.Vec3

	// Drawables returns the attached drawables.
	//
	// Returns:
	//   - []drawable.Drawable: the drawables
	Drawables() []drawable.Drawable

	// AddDrawable attaches a drawable to this object's transform.
	//
	// Parameters:
	//   - d: the drawable to attach
	AddDrawable(d drawable.Drawable)

	// Update advances rotation speed and velocity by dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - bool: true if the transform changed
	Update(dt float32) bool

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetStatic marks the object and its drawables as static.
	//
	// Parameters:
	//   - static: true if the object never moves
	SetStatic(static bool)

	// SetPosition sets the world-space position.
	//
	// Parameters:
	//   - position: the new position
	SetPosition(position common.Vec3)

	// SetRotation sets the Euler rotation in radians.
	//
	// Parameters:
	//   - rotation: rotation angles
	SetRotation(rotation common.Vec3)

	// SetDirection rotates the object so that its -Z axis points along direction.
	//
	// Parameters:
	//   - direction: the forward direction, need not be normalized
	SetDirection(direction common.Vec3)

	// SetScale sets the scale factors.
	//
	// Parameters:
	//   - scale: the scale
	SetScale(scale common.Vec3)

	// SetTransform sets position, rotation and scale at once.
	//
	// Parameters:
	//   - position: the new position
	//   - rotation: rotation angles
	//   - scale: the scale
	SetTransform(position, rotation, scale common.Vec3)

	// SetRotationSpeed sets the rotation applied per second by Update.
	//
	// Parameters:
	//   - speed: radians per second around each axis
	SetRotationSpeed(speed common.Vec3)

	// SetVelocity sets the translation applied per second by Update.
	//
	// Parameters:
	//   - velocity: units per second
	SetVelocity(velocity common.Vec3)
}

var _ GameObject = &gameObject{}

var objectIDs atomic.Uint64

// NewGameObject creates a GameObject at the origin with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the new object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		id:    objectIDs.Add(1),
		mu:    &sync.Mutex{},
		scale: common.Vec3One,
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	obj.mu.Lock()
	obj.updateWorldMatrix()
	obj.mu.Unlock()
	for _, d := range obj.drawables {
		obj.attach(d)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Static() bool {
	return g.static
}

func (g *gameObject) Position() common.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Rotation() common.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) Scale() common.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) RotationSpeed() common.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed
}

func (g *gameObject) Velocity() common.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.velocity
}

func (g *gameObject) WorldMatrix() *common.Mat4 {
	return &g.worldMatrix
}

func (g *gameObject) WorldDirection() common.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.worldMatrix.TransformDir(common.Vec3Forward).Normalized()
}

func (g *gameObject) Drawables() []drawable.Drawable {
	return g.drawables
}

func (g *gameObject) AddDrawable(d drawable.Drawable) {
	g.drawables = append(g.drawables, d)
	g.attach(d)
}

func (g *gameObject) attach(d drawable.Drawable) {
	b := d.DrawableBase()
	b.SetFlag(drawable.FlagStatic, g.static)
	b.SetOwner(g)
}

func (g *gameObject) Update(dt float32) bool {
	g.mu.Lock()
	if g.rotationSpeed == common.Vec3Zero && g.velocity == common.Vec3Zero {
		g.mu.Unlock()
		return false
	}
	g.rotation = g.rotation.Add(g.rotationSpeed.Scale(dt))
	g.position = g.position.Add(g.velocity.Scale(dt))
	g.updateWorldMatrix()
	g.mu.Unlock()

	g.notifyDrawables()
	return true
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetStatic(static bool) {
	g.static = static
	for _, d := range g.drawables {
		d.DrawableBase().SetFlag(drawable.FlagStatic, static)
	}
}

func (g *gameObject) SetPosition(position common.Vec3) {
	g.mu.Lock()
	g.position = position
	g.updateWorldMatrix()
	g.mu.Unlock()
	g.notifyDrawables()
}

func (g *gameObject) SetRotation(rotation common.Vec3) {
	g.mu.Lock()
	g.rotation = rotation
	g.updateWorldMatrix()
	g.mu.Unlock()
	g.notifyDrawables()
}

func (g *gameObject) SetDirection(direction common.Vec3) {
	pitch, yaw := common.DirectionToEuler(direction)
	g.SetRotation(common.Vec3{pitch, yaw, 0})
}

func (g *gameObject) SetScale(scale common.Vec3) {
	g.mu.Lock()
	g.scale = scale
	g.updateWorldMatrix()
	g.mu.Unlock()
	g.notifyDrawables()
}

func (g *gameObject) SetTransform(position, rotation, scale common.Vec3) {
	g.mu.Lock()
	g.position, g.rotation, g.scale = position, rotation, scale
	g.updateWorldMatrix()
	g.mu.Unlock()
	g.notifyDrawables()
}

func (g *gameObject) SetRotationSpeed(speed common.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = speed
}

func (g *gameObject) SetVelocity(velocity common.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.velocity = velocity
}

// updateWorldMatrix rebuilds the world matrix. Caller must hold the mutex.
func (g *gameObject) updateWorldMatrix() {
	common.BuildModelMatrix(g.worldMatrix[:],
		g.position[0], g.position[1], g.position[2],
		g.rotation[0], g.rotation[1], g.rotation[2],
		g.scale[0], g.scale[1], g.scale[2],
	)
}

func (g *gameObject) notifyDrawables() {
	for _, d := range g.drawables {
		d.DrawableBase().OnTransformChanged()
	}
}
