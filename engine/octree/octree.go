package octree

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

const (
	// DefaultSize is the default half extent of the root octant.
	DefaultSize float32 = 1000
	// DefaultLevels is the default number of subdivision levels.
	DefaultLevels = 8
	// MaxLevels caps the subdivision depth.
	MaxLevels = 16

	// minUpdateChunk is the smallest number of drawables checked by one update task.
	minUpdateChunk = 16
)

// octreeImpl is the implementation of the Octree interface.
type octreeImpl struct {
	workQueue work_queue.WorkQueue
	log       *logger.Logger

	octants     []*Octant
	freeOctants []int32
	numOctants  int

	updateMu    sync.Mutex
	updateQueue []drawable.Drawable
	spareQueue  []drawable.Drawable

	frameNumber    uint32
	reinsertQueues [][]drawable.Drawable
	updateTasks    []work_queue.Task
	updateLatch    work_queue.Latch
	updating       bool

	initialBox    common.Box
	initialLevels int
}

// Octree is a loose octree of drawables with deferred, threaded reinsertion.
//
// Drawables added or moved are queued; Update checks the queue on the work queue's
// workers and FinishUpdate performs the actual reinsertion on the calling goroutine.
// Structural changes, queries during PrepareView and Update/FinishUpdate must not
// overlap: mutate between frames, query while preparing views.
type Octree interface {
	drawable.Updater

	// Root returns the root octant.
	//
	// Returns:
	//   - *Octant: the root
	Root() *Octant

	// Octant resolves an octant handle.
	//
	// Parameters:
	//   - id: the handle
	//
	// Returns:
	//   - *Octant: the octant, or nil for NoOctant and freed handles
	Octant(id int32) *Octant

	// NumOctants returns the number of live octants including the root.
	//
	// Returns:
	//   - int: octant count
	NumOctants() int

	// Resize rebuilds the tree with new bounds and depth. Every resident drawable is queued
	// for reinsertion and reappears after the next Update and FinishUpdate.
	//
	// Parameters:
	//   - box: the root bounds
	//   - levels: number of subdivision levels, clamped to [1, MaxLevels]
	Resize(box common.Box, levels int)

	// AddDrawable queues a drawable for insertion by the next Update/FinishUpdate.
	//
	// Parameters:
	//   - d: the drawable
	AddDrawable(d drawable.Drawable)

	// InsertDrawable inserts a drawable immediately on the calling goroutine.
	//
	// Parameters:
	//   - d: the drawable
	InsertDrawable(d drawable.Drawable)

	// RemoveDrawable removes a drawable from the tree and from the pending update queue.
	//
	// Parameters:
	//   - d: the drawable
	RemoveDrawable(d drawable.Drawable)

	// Update starts checking queued drawables on the work queue.
	//
	// Parameters:
	//   - frameNumber: the current frame, passed to OnOctreeUpdate callbacks
	Update(frameNumber uint32)

	// FinishUpdate waits for the update tasks, reinserts the drawables that left their
	// octants and refreshes culling boxes and drawable order.
	FinishUpdate()

	// NumPendingUpdates returns the number of drawables queued for the next Update.
	//
	// Returns:
	//   - int: queue length
	NumPendingUpdates() int

	// SetVisibility sets an octant's occlusion state, optionally for its whole subtree.
	//
	// Parameters:
	//   - id: the octant
	//   - visibility: the new state
	//   - pushToChildren: also set every descendant
	SetVisibility(id int32, visibility Visibility, pushToChildren bool)

	// OnOcclusionQueryResult applies a finished occlusion query. Results for octants
	// outside the frustum are ignored. Becoming visible marks occluded children for
	// re-testing and every ancestor visible; becoming occluded marks a visible parent
	// for re-testing.
	//
	// Parameters:
	//   - id: the queried octant
	//   - visible: whether any sample passed
	OnOcclusionQueryResult(id int32, visible bool)

	// FindDrawables appends drawables whose flags contain mask and whose world box
	// intersects box.
	//
	// Parameters:
	//   - out: destination slice
	//   - box: the query volume
	//   - mask: required flags
	//
	// Returns:
	//   - []drawable.Drawable: out with the results appended
	FindDrawables(out []drawable.Drawable, box common.Box, mask drawable.Flags) []drawable.Drawable

	// FindDrawablesInSphere appends drawables intersecting a sphere.
	//
	// Parameters:
	//   - out: destination slice
	//   - sphere: the query volume
	//   - mask: required flags
	//
	// Returns:
	//   - []drawable.Drawable: out with the results appended
	FindDrawablesInSphere(out []drawable.Drawable, sphere common.Sphere, mask drawable.Flags) []drawable.Drawable

	// FindDrawablesInFrustum appends drawables intersecting a frustum. Planes an octant is
	// fully inside of are not tested again for its descendants.
	//
	// Parameters:
	//   - out: destination slice
	//   - frustum: the query volume
	//   - mask: required flags
	//
	// Returns:
	//   - []drawable.Drawable: out with the results appended
	FindDrawablesInFrustum(out []drawable.Drawable, frustum common.Frustum, mask drawable.Flags) []drawable.Drawable

	// Raycast returns every drawable hit by the ray, sorted by distance.
	//
	// Parameters:
	//   - ray: the world-space ray
	//   - maxDistance: hits further away are ignored
	//   - mask: required flags
	//
	// Returns:
	//   - []RaycastResult: hits ordered nearest first
	Raycast(ray common.Ray, maxDistance float32, mask drawable.Flags) []RaycastResult

	// RaycastSingle returns the closest drawable hit by the ray.
	//
	// Parameters:
	//   - ray: the world-space ray
	//   - maxDistance: hits further away are ignored
	//   - mask: required flags
	//
	// Returns:
	//   - RaycastResult: the hit
	//   - bool: false if nothing was hit
	RaycastSingle(ray common.Ray, maxDistance float32, mask drawable.Flags) (RaycastResult, bool)
}

var (
	_ Octree           = &octreeImpl{}
	_ drawable.Updater = &octreeImpl{}
)

// NewOctree creates an empty octree driven by workQueue.
//
// Parameters:
//   - workQueue: runs the threaded update tasks
//   - options: builder options
//
// Returns:
//   - Octree: the octree
func NewOctree(workQueue work_queue.WorkQueue, options ...OctreeBuilderOption) Octree {
	size := common.Vec3{DefaultSize, DefaultSize, DefaultSize}
	o := &octreeImpl{
		workQueue:     workQueue,
		initialBox:    common.NewBox(size.Negate(), size),
		initialLevels: DefaultLevels,
	}
	for _, opt := range options {
		opt(o)
	}
	o.initRoot(o.initialBox, o.initialLevels)
	return o
}

func (o *octreeImpl) initRoot(box common.Box, levels int) {
	levels = max(1, min(levels, MaxLevels))
	o.octants = o.octants[:0]
	o.freeOctants = o.freeOctants[:0]
	root := &Octant{}
	root.initialize(0, NoOctant, box, levels, 0)
	o.octants = append(o.octants, root)
	o.numOctants = 1
}

func (o *octreeImpl) Root() *Octant {
	return o.octants[0]
}

func (o *octreeImpl) Octant(id int32) *Octant {
	if id < 0 || int(id) >= len(o.octants) {
		return nil
	}
	if oct := o.octants[id]; oct.id == id {
		return oct
	}
	return nil
}

func (o *octreeImpl) NumOctants() int {
	return o.numOctants
}

func (o *octreeImpl) Resize(box common.Box, levels int) {
	if o.updating {
		panic("octree: resize during update")
	}
	var all []drawable.Drawable
	all = o.collectAll(all, o.Root())
	for _, d := range all {
		b := d.DrawableBase()
		b.SetOctant(NoOctant)
		b.SetFlag(drawable.FlagReinsertQueued, false)
	}

	o.initRoot(box, levels)
	o.log.Debug("octree resized", "min", box.Min, "max", box.Max, "levels", o.Root().level, "drawables", len(all))

	for _, d := range all {
		o.QueueUpdate(d)
	}
}

func (o *octreeImpl) collectAll(out []drawable.Drawable, oct *Octant) []drawable.Drawable {
	out = append(out, oct.drawables...)
	for _, c := range oct.children {
		if c != NoOctant {
			out = o.collectAll(out, o.octants[c])
		}
	}
	return out
}

func (o *octreeImpl) AddDrawable(d drawable.Drawable) {
	d.DrawableBase().SetUpdater(o)
	o.QueueUpdate(d)
}

func (o *octreeImpl) InsertDrawable(d drawable.Drawable) {
	b := d.DrawableBase()
	b.SetUpdater(o)
	o.reinsert(d)
	b.SetFlag(drawable.FlagReinsertQueued, false)
	o.refreshDirtyOctants()
}

func (o *octreeImpl) RemoveDrawable(d drawable.Drawable) {
	b := d.DrawableBase()
	b.SetUpdater(nil)

	o.updateMu.Lock()
	if b.Flags().Has(drawable.FlagReinsertQueued) {
		for i, q := range o.updateQueue {
			if q == d {
				o.updateQueue[i] = nil
			}
		}
		b.SetFlag(drawable.FlagReinsertQueued, false)
	}
	o.updateMu.Unlock()

	if oct := o.Octant(b.Octant()); oct != nil {
		o.removeFromOctant(d, oct)
		o.refreshDirtyOctants()
	}
}

// QueueUpdate records that d's bounds changed. Safe for concurrent use.
func (o *octreeImpl) QueueUpdate(d drawable.Drawable) {
	b := d.DrawableBase()
	if !b.TrySetFlag(drawable.FlagReinsertQueued) {
		return
	}
	o.updateMu.Lock()
	if oct := o.Octant(b.Octant()); oct != nil {
		o.markCullingBoxDirty(oct)
	}
	o.updateQueue = append(o.updateQueue, d)
	o.updateMu.Unlock()
}

func (o *octreeImpl) NumPendingUpdates() int {
	o.updateMu.Lock()
	defer o.updateMu.Unlock()
	return len(o.updateQueue)
}

func (o *octreeImpl) Update(frameNumber uint32) {
	if o.updating {
		panic("octree: update started twice")
	}
	o.updating = true
	o.frameNumber = frameNumber

	o.updateMu.Lock()
	queue := o.updateQueue
	o.updateQueue = o.spareQueue[:0]
	o.spareQueue = queue
	o.updateMu.Unlock()

	threads := o.workQueue.NumThreads()
	if len(o.reinsertQueues) < threads {
		o.reinsertQueues = append(o.reinsertQueues, make([][]drawable.Drawable, threads-len(o.reinsertQueues))...)
	}
	for i := range o.reinsertQueues {
		o.reinsertQueues[i] = o.reinsertQueues[i][:0]
	}
	if len(queue) == 0 {
		return
	}

	chunk := max(minUpdateChunk, len(queue)/(threads*4))
	o.updateTasks = o.updateTasks[:0]
	for start := 0; start < len(queue); start += chunk {
		part := queue[start:min(start+chunk, len(queue))]
		o.updateTasks = append(o.updateTasks, work_queue.NewFuncTask(func(threadIndex int) {
			o.checkReinsert(part, threadIndex)
			o.updateLatch.CountDown()
		}))
	}
	o.updateLatch.Reset(len(o.updateTasks))
	o.workQueue.QueueTasks(o.updateTasks)
}

// checkReinsert runs on a worker. It reads drawable and octant boxes and appends the
// drawables that left their octant to the queue owned by threadIndex.
func (o *octreeImpl) checkReinsert(part []drawable.Drawable, threadIndex int) {
	queue := o.reinsertQueues[threadIndex]
	for _, d := range part {
		if d == nil {
			continue
		}
		b := d.DrawableBase()
		if b.Flags().Has(drawable.FlagOctreeUpdateCall) {
			d.OnOctreeUpdate(o.frameNumber)
		}
		b.SetLastMoveFrame(o.frameNumber)

		box := d.WorldBoundingBox()
		oct := o.Octant(b.Octant())
		if oct == nil || oct.fittingBox.IsInside(box) != common.Inside {
			queue = append(queue, d)
		} else {
			b.SetFlag(drawable.FlagReinsertQueued, false)
		}
	}
	o.reinsertQueues[threadIndex] = queue
}

func (o *octreeImpl) FinishUpdate() {
	if !o.updating {
		return
	}
	o.updateLatch.Await(o.workQueue)

	for i, queue := range o.reinsertQueues {
		for _, d := range queue {
			o.reinsert(d)
			d.DrawableBase().SetFlag(drawable.FlagReinsertQueued, false)
		}
		o.reinsertQueues[i] = queue[:0]
	}
	clear(o.spareQueue)
	o.spareQueue = o.spareQueue[:0]
	o.updating = false

	o.refreshDirtyOctants()
}

// reinsert walks down from the root to the deepest octant that should hold d.
// The new octant gains d before the old one loses it, so removing the last drawable
// of a branch cannot delete the branch d is moving into.
func (o *octreeImpl) reinsert(d drawable.Drawable) {
	b := d.DrawableBase()
	box := d.WorldBoundingBox()
	boxSize := box.Size()
	oldOctant := o.Octant(b.Octant())

	oct := o.Root()
	for {
		var insertHere bool
		if oct.id == 0 {
			insertHere = oct.fittingBox.IsInside(box) != common.Inside || oct.fitBoundingBox(box, boxSize)
		} else {
			insertHere = oct.fitBoundingBox(box, boxSize)
		}
		if insertHere {
			if oct != oldOctant {
				o.addToOctant(d, oct)
				if oldOctant != nil {
					o.removeFromOctant(d, oldOctant)
				}
			}
			return
		}
		oct = o.createChild(oct, oct.childIndexOf(box.Center()))
	}
}

func (o *octreeImpl) addToOctant(d drawable.Drawable, oct *Octant) {
	oct.drawables = append(oct.drawables, d)
	oct.sortDirty = true
	d.DrawableBase().SetOctant(oct.id)
	o.markCullingBoxDirty(oct)
}

// removeFromOctant drops d from oct. The handle is only cleared when it still points at
// oct, since reinsert has already moved it to the new octant.
func (o *octreeImpl) removeFromOctant(d drawable.Drawable, oct *Octant) {
	if b := d.DrawableBase(); b.Octant() == oct.id {
		b.SetOctant(NoOctant)
	}
	o.markCullingBoxDirty(oct)

	if i := slices.Index(oct.drawables, d); i >= 0 {
		last := len(oct.drawables) - 1
		oct.drawables[i] = oct.drawables[last]
		oct.drawables[last] = nil
		oct.drawables = oct.drawables[:last]
		oct.sortDirty = true
	}

	for len(oct.drawables) == 0 && oct.numChildren == 0 && oct.parent != NoOctant {
		parent := o.octants[oct.parent]
		o.deleteChild(parent, oct.childIndex)
		oct = parent
	}
}

func (o *octreeImpl) createChild(oct *Octant, index int) *Octant {
	if c := oct.children[index]; c != NoOctant {
		return o.octants[c]
	}

	newMin := oct.fittingBox.Min.Add(oct.halfSize)
	newMax := oct.fittingBox.Max.Sub(oct.halfSize)
	for axis, bit := range [3]int{1, 2, 4} {
		if index&bit != 0 {
			newMin[axis] = oct.center[axis]
		} else {
			newMax[axis] = oct.center[axis]
		}
	}

	var child *Octant
	var id int32
	if n := len(o.freeOctants); n > 0 {
		id = o.freeOctants[n-1]
		o.freeOctants = o.freeOctants[:n-1]
		child = o.octants[id]
	} else {
		id = int32(len(o.octants))
		child = &Octant{}
		o.octants = append(o.octants, child)
	}
	child.initialize(id, oct.id, common.NewBox(newMin, newMax), oct.level-1, index)
	oct.children[index] = id
	oct.numChildren++
	o.numOctants++
	return child
}

func (o *octreeImpl) deleteChild(oct *Octant, index int) {
	id := oct.children[index]
	if id == NoOctant {
		return
	}
	oct.children[index] = NoOctant
	oct.numChildren--
	o.markCullingBoxDirty(oct)

	child := o.octants[id]
	child.id = NoOctant
	child.drawables = child.drawables[:0]
	child.queryID.Store(0)
	o.freeOctants = append(o.freeOctants, id)
	o.numOctants--
}

func (o *octreeImpl) markCullingBoxDirty(oct *Octant) {
	for oct != nil && !oct.cullingDirty {
		oct.cullingDirty = true
		oct = o.Octant(oct.parent)
	}
}

// refreshDirtyOctants recomputes dirty culling boxes bottom-up and moves lights to the
// front of every octant whose drawable list changed.
func (o *octreeImpl) refreshDirtyOctants() {
	o.refreshOctant(o.Root())
}

func (o *octreeImpl) refreshOctant(oct *Octant) {
	if oct.sortDirty {
		slices.SortStableFunc(oct.drawables, func(a, b drawable.Drawable) int {
			return lightOrder(a) - lightOrder(b)
		})
		oct.numLights = 0
		for _, d := range oct.drawables {
			if !d.Flags().Has(drawable.FlagLight) {
				break
			}
			oct.numLights++
		}
		oct.sortDirty = false
	}
	if !oct.cullingDirty {
		return
	}

	box := common.EmptyBox()
	for _, d := range oct.drawables {
		box = box.Merge(d.WorldBoundingBox())
	}
	for _, c := range oct.children {
		if c == NoOctant {
			continue
		}
		child := o.octants[c]
		o.refreshOctant(child)
		box = box.Merge(child.cullingBox)
	}
	if !box.Defined() {
		box = common.NewBox(oct.center, oct.center)
	}
	oct.cullingBox = box.Clip(oct.fittingBox)
	oct.cullingDirty = false
}

func lightOrder(d drawable.Drawable) int {
	if d.Flags().Has(drawable.FlagLight) {
		return 0
	}
	return 1
}

func (o *octreeImpl) SetVisibility(id int32, visibility Visibility, pushToChildren bool) {
	oct := o.Octant(id)
	if oct == nil {
		return
	}
	oct.visibility.Store(int32(visibility))
	if pushToChildren {
		o.pushVisibilityToChildren(oct, visibility)
	}
}

func (o *octreeImpl) pushVisibilityToChildren(oct *Octant, visibility Visibility) {
	for _, c := range oct.children {
		if c == NoOctant {
			continue
		}
		child := o.octants[c]
		child.visibility.Store(int32(visibility))
		if child.numChildren > 0 {
			o.pushVisibilityToChildren(child, visibility)
		}
	}
}

func (o *octreeImpl) OnOcclusionQueryResult(id int32, visible bool) {
	oct := o.Octant(id)
	if oct == nil {
		return
	}
	oct.queryID.Store(0)

	last := oct.Visibility()
	if last == VisibilityOutsideFrustum {
		return
	}
	next := VisibilityOccluded
	if visible {
		next = VisibilityVisible
	}
	oct.visibility.Store(int32(next))

	parent := o.Octant(oct.parent)
	switch {
	case next == VisibilityVisible && last <= VisibilityOccludedUnknown:
		o.pushVisibilityToChildren(oct, VisibilityOccludedUnknown)
	case next == VisibilityOccluded && last != VisibilityOccluded && parent != nil && parent.Visibility() == VisibilityVisible:
		parent.visibility.Store(int32(VisibilityVisibleUnknown))
	}

	if next == VisibilityVisible {
		for p := parent; p != nil && p.Visibility() != VisibilityVisible; p = o.Octant(p.parent) {
			p.visibility.Store(int32(VisibilityVisible))
		}
	}
}
