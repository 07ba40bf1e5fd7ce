package game_object

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithName sets the name of the GameObject.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the name
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithStatic marks the GameObject as never moving.
//
// Parameters:
//   - static: true for static objects
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Static state
func WithStatic(static bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.static = static
	}
}

// WithPosition sets the initial position of the GameObject.
//
// Parameters:
//   - position: world-space position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(position common.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = position
	}
}

// WithRotation sets the initial Euler rotation of the GameObject.
//
// Parameters:
//   - rotation: rotation angles in radians
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation
func WithRotation(rotation common.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotation = rotation
	}
}

// WithDirection rotates the GameObject so that its -Z axis points along direction.
//
// Parameters:
//   - direction: the forward direction
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation
func WithDirection(direction common.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		pitch, yaw := common.DirectionToEuler(direction)
		obj.rotation = common.Vec3{pitch, yaw, 0}
	}
}

// WithScale sets the initial scale of the GameObject.
//
// Parameters:
//   - scale: scale factors
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the scale
func WithScale(scale common.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = scale
	}
}

// WithRotationSpeed sets the rotation applied per second by Update.
//
// Parameters:
//   - speed: radians per second around each axis
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation speed
func WithRotationSpeed(speed common.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotationSpeed = speed
	}
}

// WithVelocity sets the translation applied per second by Update.
//
// Parameters:
//   - velocity: units per second
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the velocity
func WithVelocity(velocity common.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.velocity = velocity
	}
}

// WithDrawables attaches drawables to the GameObject.
//
// Parameters:
//   - drawables: static models, skinned models or lights
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach drawables
func WithDrawables(drawables ...drawable.Drawable) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.drawables = append(obj.drawables, drawables...)
	}
}
