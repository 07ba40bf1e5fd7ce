package octree

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

// NumOctants is the number of children of an octant.
const NumOctants = 8

// NoOctant is the handle of a missing octant.
const NoOctant = drawable.NoOctant

// OcclusionQueryInterval is the time in seconds between repeated occlusion queries of
// an octant that is already visible.
const OcclusionQueryInterval float32 = 0.133333

// Visibility is an octant's occlusion state.
type Visibility int32

const (
	// VisibilityOutsideFrustum is set while the octant is frustum culled. Query results are ignored.
	VisibilityOutsideFrustum Visibility = iota
	// VisibilityOccluded means the last query found the octant hidden. It is not rendered, only re-queried.
	VisibilityOccluded
	// VisibilityOccludedUnknown means the parent became visible; the octant is queried and its
	// children descended into, but nothing is rendered this frame.
	VisibilityOccludedUnknown
	// VisibilityVisibleUnknown means the octant is rendered and queried again.
	VisibilityVisibleUnknown
	// VisibilityVisible means the last query found the octant visible.
	VisibilityVisible
)

func (v Visibility) String() string {
	switch v {
	case VisibilityOutsideFrustum:
		return "outside-frustum"
	case VisibilityOccluded:
		return "occluded"
	case VisibilityOccludedUnknown:
		return "occluded-unknown"
	case VisibilityVisibleUnknown:
		return "visible-unknown"
	case VisibilityVisible:
		return "visible"
	default:
		return "unknown"
	}
}

// Octant is one cell of the loose octree. Its fitting box is the cell expanded by its
// half size in every direction; a drawable fits when its world box lies inside it.
// The culling box bounds the actual contents and is kept current by FinishUpdate.
//
// Structure (children, drawables, boxes) is only mutated by the orchestrating goroutine.
// Visibility and the pending query are updated by the task that visits the octant.
type Octant struct {
	id          int32
	parent      int32
	children    [NumOctants]int32
	numChildren int
	childIndex  int
	level       int

	center     common.Vec3
	halfSize   common.Vec3
	fittingBox common.Box
	cullingBox common.Box

	drawables    []drawable.Drawable
	numLights    int
	cullingDirty bool
	sortDirty    bool

	visibility atomic.Int32
	queryID    atomic.Uint32
	queryTimer float32
}

func (o *Octant) initialize(id, parent int32, box common.Box, level, childIndex int) {
	o.id = id
	o.parent = parent
	for i := range o.children {
		o.children[i] = NoOctant
	}
	o.numChildren = 0
	o.childIndex = childIndex
	o.level = level
	o.center = box.Center()
	o.halfSize = box.HalfSize()
	o.fittingBox = common.NewBox(box.Min.Sub(o.halfSize), box.Max.Add(o.halfSize))
	o.cullingBox = common.NewBox(o.center, o.center)
	o.drawables = o.drawables[:0]
	o.numLights = 0
	o.cullingDirty = true
	o.sortDirty = false
	o.visibility.Store(int32(VisibilityVisibleUnknown))
	o.queryID.Store(0)
	o.queryTimer = rand.Float32() * OcclusionQueryInterval
}

// ID returns the octant's handle.
func (o *Octant) ID() int32 { return o.id }

// Parent returns the parent handle, NoOctant for the root.
func (o *Octant) Parent() int32 { return o.parent }

// Child returns the child handle at index, or NoOctant.
func (o *Octant) Child(index int) int32 { return o.children[index] }

// NumChildren returns the number of existing children.
func (o *Octant) NumChildren() int { return o.numChildren }

// HasChildren reports whether the octant has at least one child.
func (o *Octant) HasChildren() bool { return o.numChildren > 0 }

// Level returns the subdivision level; 1 is the deepest level.
func (o *Octant) Level() int { return o.level }

// Center returns the cell center.
func (o *Octant) Center() common.Vec3 { return o.center }

// HalfSize returns half the cell size.
func (o *Octant) HalfSize() common.Vec3 { return o.halfSize }

// FittingBox returns the loose insertion bounds.
func (o *Octant) FittingBox() common.Box { return o.fittingBox }

// CullingBox returns the bounds of the contained drawables and child culling boxes,
// clipped to the fitting box.
func (o *Octant) CullingBox() common.Box { return o.cullingBox }

// Drawables returns the contained drawables, lights first.
func (o *Octant) Drawables() []drawable.Drawable { return o.drawables }

// Lights returns the contained light drawables.
func (o *Octant) Lights() []drawable.Drawable { return o.drawables[:o.numLights] }

// Geometries returns the contained non-light drawables.
func (o *Octant) Geometries() []drawable.Drawable { return o.drawables[o.numLights:] }

// Visibility returns the occlusion state.
func (o *Octant) Visibility() Visibility { return Visibility(o.visibility.Load()) }

// OcclusionQueryID returns the pending query id, 0 when none is pending.
func (o *Octant) OcclusionQueryID() uint32 { return o.queryID.Load() }

// SetOcclusionQueryID records the query issued for the octant.
func (o *Octant) SetOcclusionQueryID(id uint32) { o.queryID.Store(id) }

// QueryTimer returns the time accumulated towards the next staggered query.
func (o *Octant) QueryTimer() float32 { return o.queryTimer }

// CheckNewOcclusionQuery reports whether a new query should be issued this frame.
// Visible octants are re-queried on a staggered timer; other states are queried
// whenever no query is pending. Only the task visiting the octant may call it.
//
// Parameters:
//   - frameTime: the previous frame's duration in seconds
//
// Returns:
//   - bool: true if a query should be issued
func (o *Octant) CheckNewOcclusionQuery(frameTime float32) bool {
	if o.Visibility() != VisibilityVisible {
		return o.queryID.Load() == 0
	}
	o.queryTimer += frameTime
	if o.queryID.Load() != 0 {
		return false
	}
	if o.queryTimer >= OcclusionQueryInterval {
		for o.queryTimer >= OcclusionQueryInterval {
			o.queryTimer -= OcclusionQueryInterval
		}
		return true
	}
	return false
}

// childIndexOf returns the child slot whose cell contains position.
func (o *Octant) childIndexOf(position common.Vec3) int {
	index := 0
	if position[0] >= o.center[0] {
		index |= 1
	}
	if position[1] >= o.center[1] {
		index |= 2
	}
	if position[2] >= o.center[2] {
		index |= 4
	}
	return index
}

// fitBoundingBox reports whether box should be stored in this octant rather than a child:
// at the deepest level, when the box is at least half the octant size on some axis, or
// when the box reaches into the outer quarter of the fitting box where no child could hold it.
func (o *Octant) fitBoundingBox(box common.Box, boxSize common.Vec3) bool {
	if o.level <= 1 || boxSize[0] >= o.halfSize[0] || boxSize[1] >= o.halfSize[1] || boxSize[2] >= o.halfSize[2] {
		return true
	}
	quarter := o.halfSize.Scale(0.5)
	for i := 0; i < 3; i++ {
		if box.Min[i] <= o.fittingBox.Min[i]+quarter[i] || box.Max[i] >= o.fittingBox.Max[i]-quarter[i] {
			return true
		}
	}
	return false
}
