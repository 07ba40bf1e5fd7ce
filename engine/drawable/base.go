package drawable

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
)

// NoOctant is the octant handle of a drawable that is not inserted.
const NoOctant int32 = -1

var identity = common.Identity4()

var drawableIDs atomic.Uint64

// Base carries the state every drawable shares: flags, the lazily recomputed world
// bounding box, and the octree bookkeeping. Embed it in concrete drawables.
type Base struct {
	self  Drawable
	id    uint64
	flags atomic.Uint32

	owner Transformer

	boxMu     sync.Mutex
	localBox  common.Box
	worldBox  common.Box
	infinite  bool
	boxDirty  atomic.Bool
	updater   Updater
	updaterMu sync.Mutex

	octant          atomic.Int32
	lastFrameNumber atomic.Uint32
	lastMoveFrame   atomic.Uint32

	distance    float32
	maxDistance float32
}

// Init prepares the base. self is the concrete drawable embedding it, reported to the octree.
//
// Parameters:
//   - self: the embedding drawable
//   - flags: initial flags
func (b *Base) Init(self Drawable, flags Flags) {
	b.self = self
	b.id = drawableIDs.Add(1)
	b.flags.Store(uint32(flags))
	b.localBox = common.EmptyBox()
	b.worldBox = common.EmptyBox()
	b.octant.Store(NoOctant)
	b.boxDirty.Store(true)
}

func (b *Base) DrawableBase() *Base {
	return b
}

// ID returns a process-unique drawable identifier.
func (b *Base) ID() uint64 {
	return b.id
}

func (b *Base) Flags() Flags {
	return Flags(b.flags.Load())
}

// SetFlag sets or clears the bits of mask.
func (b *Base) SetFlag(mask Flags, enable bool) {
	if enable {
		b.flags.Or(uint32(mask))
	} else {
		b.flags.And(^uint32(mask))
	}
}

// TrySetFlag sets mask and reports whether it was previously clear.
func (b *Base) TrySetFlag(mask Flags) bool {
	old := b.flags.Or(uint32(mask))
	return Flags(old)&mask == 0
}

// Owner returns the transform owner, or nil.
func (b *Base) Owner() Transformer {
	return b.owner
}

// SetOwner attaches the drawable to a transform owner.
func (b *Base) SetOwner(owner Transformer) {
	b.owner = owner
	b.OnTransformChanged()
}

// WorldTransform returns the owner's world matrix, or identity when detached.
func (b *Base) WorldTransform() *common.Mat4 {
	if b.owner == nil {
		return &identity
	}
	return b.owner.WorldMatrix()
}

// WorldPosition returns the translation of the world transform.
func (b *Base) WorldPosition() common.Vec3 {
	return b.WorldTransform().Translation()
}

// SetLocalBoundingBox sets the bounds in the owner's local space.
func (b *Base) SetLocalBoundingBox(box common.Box) {
	b.boxMu.Lock()
	b.localBox = box
	b.infinite = false
	b.boxMu.Unlock()
	b.OnTransformChanged()
}

// SetInfiniteBoundingBox makes the world box common.LargeBox regardless of transform.
func (b *Base) SetInfiniteBoundingBox() {
	b.boxMu.Lock()
	b.infinite = true
	b.boxMu.Unlock()
	b.OnTransformChanged()
}

func (b *Base) WorldBoundingBox() common.Box {
	if !b.boxDirty.Load() {
		b.boxMu.Lock()
		defer b.boxMu.Unlock()
		return b.worldBox
	}

	b.boxMu.Lock()
	defer b.boxMu.Unlock()
	if b.boxDirty.Load() {
		switch {
		case b.infinite:
			b.worldBox = common.LargeBox()
		case !b.localBox.Defined():
			b.worldBox = common.EmptyBox()
		default:
			b.worldBox = b.localBox.Transformed(*b.WorldTransform())
		}
		b.boxDirty.Store(false)
	}
	return b.worldBox
}

// OnTransformChanged dirties the world box and asks the octree to re-check the drawable.
func (b *Base) OnTransformChanged() {
	b.boxDirty.Store(true)

	b.updaterMu.Lock()
	u := b.updater
	b.updaterMu.Unlock()
	if u != nil && b.self != nil {
		u.QueueUpdate(b.self)
	}
}

// SetUpdater is called by the octree on insertion and removal.
func (b *Base) SetUpdater(u Updater) {
	b.updaterMu.Lock()
	b.updater = u
	b.updaterMu.Unlock()
}

// Octant returns the handle of the octant holding the drawable, or NoOctant.
func (b *Base) Octant() int32 {
	return b.octant.Load()
}

// SetOctant is called by the octree only.
func (b *Base) SetOctant(id int32) {
	b.octant.Store(id)
}

// LastFrameNumber returns the last frame the drawable was found visible in.
func (b *Base) LastFrameNumber() uint32 {
	return b.lastFrameNumber.Load()
}

// SetLastFrameNumber records that the drawable was visible in frameNumber.
func (b *Base) SetLastFrameNumber(frameNumber uint32) {
	b.lastFrameNumber.Store(frameNumber)
}

// InView reports whether the drawable was found visible in frameNumber.
func (b *Base) InView(frameNumber uint32) bool {
	return b.lastFrameNumber.Load() == frameNumber
}

// LastMoveFrame returns the frame in which the octree last processed a bounds change.
func (b *Base) LastMoveFrame() uint32 {
	return b.lastMoveFrame.Load()
}

// SetLastMoveFrame is called by the octree when it processes a queued update.
func (b *Base) SetLastMoveFrame(frameNumber uint32) {
	b.lastMoveFrame.Store(frameNumber)
}

// Distance returns the camera distance computed by the last OnPrepareRender.
func (b *Base) Distance() float32 {
	return b.distance
}

// SetDistance overrides the camera distance.
func (b *Base) SetDistance(d float32) {
	b.distance = d
}

// MaxDistance returns the draw distance limit, 0 meaning unlimited.
func (b *Base) MaxDistance() float32 {
	return b.maxDistance
}

// SetMaxDistance sets the draw distance limit, 0 meaning unlimited.
func (b *Base) SetMaxDistance(d float32) {
	b.maxDistance = d
}

// OnPrepareRender records the camera distance and the visible frame and applies the draw distance limit.
func (b *Base) OnPrepareRender(frameNumber uint32, cam camera.Camera) bool {
	b.distance = cam.Distance(b.WorldBoundingBox().Center())
	if b.maxDistance > 0 && b.distance > b.maxDistance {
		return false
	}
	b.lastFrameNumber.Store(frameNumber)
	return true
}

func (b *Base) OnOctreeUpdate(frameNumber uint32) {}
