package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/octree"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

// drawablesPerBatchTask is how many geometry drawables a branch accumulates before it
// hands them to a batch collection task.
const drawablesPerBatchTask = 128

// collectOctantsTask walks one root-level branch of the octree.
type collectOctantsTask struct {
	work_queue.TaskBase
	r      *viewRenderer
	octant *octree.Octant
	result int
}

func (t *collectOctantsTask) Complete(threadIndex int) {
	t.r.collectOctantsWork(t)
}

// collectBatchesTask turns a run of collected octants into batches.
type collectBatchesTask struct {
	work_queue.TaskBase
	r       *viewRenderer
	octants []collectedOctant
}

func (t *collectBatchesTask) Complete(threadIndex int) {
	t.r.collectBatchesWork(t.octants, threadIndex)
}

func (r *viewRenderer) PrepareView(sc scene.Scene, cam camera.Camera, drawShadows, useOcclusion bool, frameTime float32) {
	if sc == nil || cam == nil {
		return
	}

	r.prepareStart = time.Now()
	r.prepareCount++
	r.scene = sc
	r.octree = sc.Octree()
	r.camera = cam
	r.frustum = cam.WorldFrustum()
	r.viewMatrix = cam.ViewMatrix()
	r.ambientColor = sc.AmbientColor()
	r.frameNumber = sc.FrameNumber()
	r.frameTime = frameTime
	r.drawShadows = drawShadows && r.shadowMaps[0] != nil
	r.uploaded = false
	r.queriesIssued = 0
	r.stats = Stats{Frame: r.frameNumber}

	wasUsingOcclusion := r.useOcclusion
	r.useOcclusion = useOcclusion && r.device.SupportsOcclusionQueries()
	if r.useOcclusion {
		r.checkOcclusionQueries()
	} else if wasUsingOcclusion {
		r.octree.SetVisibility(r.octree.Root().ID(), octree.VisibilityVisibleUnknown, true)
		clear(r.pendingQueries)
	}

	r.resetView()
	r.clusters.DefineFrusta(cam)

	r.collectRootLevelOctants()
	if len(r.rootLevelOctants) == 0 {
		r.clusters.Prepare(nil, r.viewMatrix)
		r.finishPrepare()
		return
	}

	n := len(r.rootLevelOctants)
	for len(r.octantResults) < n {
		r.octantResults = append(r.octantResults, octantResult{})
	}
	for i := len(r.collectOctantsTasks); i < n; i++ {
		r.collectOctantsTasks = append(r.collectOctantsTasks, &collectOctantsTask{r: r, result: i})
	}
	threads := r.workQueue.NumThreads()
	for len(r.threadResults) < threads {
		r.threadResults = append(r.threadResults, threadResult{})
	}
	for i := range r.threadResults {
		r.threadResults[i].clear()
	}
	for i := range r.octantResults {
		r.octantResults[i].clear()
	}

	tasks := make([]work_queue.Task, n)
	for i, oct := range r.rootLevelOctants {
		t := r.collectOctantsTasks[i]
		t.octant = oct
		tasks[i] = t
		r.workQueue.AddDependency(r.processLightsTask, t)
	}
	r.workQueue.AddDependency(r.processShadowCasterTask, r.processLightsTask)
	r.workQueue.AddDependency(r.processShadowCasterTask, r.batchesReadyTask)

	r.batchLatch.Reset(n)
	r.workQueue.QueueTasks(tasks)

	// Batches can be sorted as soon as every branch and its batch tasks are done, while
	// lights and shadow casters are still being processed.
	r.batchLatch.Await(r.workQueue)
	r.sortMainBatches()
	r.workQueue.QueueTask(r.batchesReadyTask)

	r.workQueue.Complete()
	r.finishPrepare()
}

// resetView forgets the previous frame's collected state.
func (r *viewRenderer) resetView() {
	r.opaque.Clear()
	r.alpha.Clear()
	r.instances.Reset()
	r.dirLight = nil
	clear(r.lights)
	r.lights = r.lights[:0]
	r.geometryBounds = common.EmptyBox()
	r.minZ = maxFloat
	r.maxZ = 0
	r.lightMask = 0
	for i := range r.shadowModes {
		r.shadowModes[i].Store(0)
	}
	r.shadowFailed = 0
	for _, m := range r.shadowMaps {
		if m != nil {
			m.Clear()
		}
	}
}

func (r *viewRenderer) collectRootLevelOctants() {
	clear(r.rootLevelOctants)
	r.rootLevelOctants = r.rootLevelOctants[:0]

	root := r.octree.Root()
	if len(root.Drawables()) > 0 {
		r.rootLevelOctants = append(r.rootLevelOctants, root)
	}
	for i := range octree.NumOctants {
		if id := root.Child(i); id != octree.NoOctant {
			r.rootLevelOctants = append(r.rootLevelOctants, r.octree.Octant(id))
		}
	}
}

func (r *viewRenderer) collectOctantsWork(t *collectOctantsTask) {
	result := &r.octantResults[t.result]
	root := t.octant == r.octree.Root()
	r.collectOctants(t.octant, result, common.PlaneMaskAll, !root)

	if result.taskOctantIdx < len(result.octants) {
		r.queueBatchTask(result)
	}
	r.batchLatch.CountDown()
}

// collectOctants tests an octant against the view frustum and the occlusion state,
// gathers its lights and records it for batch collection.
func (r *viewRenderer) collectOctants(oct *octree.Octant, result *octantResult, planeMask uint8, recurse bool) {
	if planeMask != 0 {
		planeMask = r.frustum.IsInsideMasked(oct.CullingBox(), planeMask)
		if planeMask == common.PlaneMaskOutside {
			if oct.Visibility() != octree.VisibilityOutsideFrustum {
				r.octree.SetVisibility(oct.ID(), octree.VisibilityOutsideFrustum, true)
			}
			return
		}
	}

	if r.useOcclusion {
		switch oct.Visibility() {
		case octree.VisibilityOutsideFrustum:
			r.octree.SetVisibility(oct.ID(), octree.VisibilityVisibleUnknown, false)
			if oct.CheckNewOcclusionQuery(r.frameTime) {
				result.occlusionQueries = append(result.occlusionQueries, oct)
			}
		case octree.VisibilityOccluded:
			if oct.CheckNewOcclusionQuery(r.frameTime) {
				result.occlusionQueries = append(result.occlusionQueries, oct)
			}
			return
		case octree.VisibilityOccludedUnknown:
			// the parent was occluded: test this octant, descend, but draw nothing yet
			if oct.CheckNewOcclusionQuery(r.frameTime) {
				result.occlusionQueries = append(result.occlusionQueries, oct)
			}
			if recurse {
				r.collectChildren(oct, result, planeMask)
			}
			return
		case octree.VisibilityVisibleUnknown:
			if oct.CheckNewOcclusionQuery(r.frameTime) {
				result.occlusionQueries = append(result.occlusionQueries, oct)
			}
		case octree.VisibilityVisible:
			parent := r.octree.Octant(oct.Parent())
			if (len(oct.Drawables()) > 0 || (parent != nil && parent.Visibility() != octree.VisibilityVisible)) &&
				oct.CheckNewOcclusionQuery(r.frameTime) {
				result.occlusionQueries = append(result.occlusionQueries, oct)
			}
		}
	} else {
		r.octree.SetVisibility(oct.ID(), octree.VisibilityVisibleUnknown, false)
	}

	for _, d := range oct.Lights() {
		l, ok := d.(light.Light)
		if !ok {
			continue
		}
		if l.Type() != light.LightTypeDirectional && planeMask != 0 &&
			r.frustum.IsInsideMaskedFast(l.WorldBoundingBox(), planeMask) == common.Outside {
			continue
		}
		if l.OnPrepareRender(r.frameNumber, r.camera) {
			result.lights = append(result.lights, l)
		}
	}

	if geometries := oct.Geometries(); len(geometries) > 0 {
		result.octants = append(result.octants, collectedOctant{octant: oct, planeMask: planeMask})
		result.drawableAcc += len(geometries)
		if result.drawableAcc >= drawablesPerBatchTask {
			r.queueBatchTask(result)
		}
	}

	if recurse {
		r.collectChildren(oct, result, planeMask)
	}
}

func (r *viewRenderer) collectChildren(oct *octree.Octant, result *octantResult, planeMask uint8) {
	if !oct.HasChildren() {
		return
	}
	for i := range octree.NumOctants {
		if id := oct.Child(i); id != octree.NoOctant {
			r.collectOctants(r.octree.Octant(id), result, planeMask, true)
		}
	}
}

// queueBatchTask hands the octants collected since the last batch task to a new task.
func (r *viewRenderer) queueBatchTask(result *octantResult) {
	if result.batchTaskIdx == len(result.batchTasks) {
		result.batchTasks = append(result.batchTasks, &collectBatchesTask{r: r})
	}
	t := result.batchTasks[result.batchTaskIdx]
	result.batchTaskIdx++
	t.octants = result.octants[result.taskOctantIdx:len(result.octants):len(result.octants)]
	result.taskOctantIdx = len(result.octants)
	result.drawableAcc = 0

	r.batchLatch.Add(1)
	r.workQueue.QueueTask(t)
}

func (r *viewRenderer) collectBatchesWork(octants []collectedOctant, threadIndex int) {
	res := &r.threadResults[threadIndex]
	for _, co := range octants {
		for _, d := range co.octant.Geometries() {
			if co.planeMask != 0 && r.frustum.IsInsideMaskedFast(d.WorldBoundingBox(), co.planeMask) == common.Outside {
				continue
			}
			geom, ok := d.(drawable.GeometryDrawable)
			if !ok || !d.OnPrepareRender(r.frameNumber, r.camera) {
				continue
			}

			box := d.WorldBoundingBox()
			res.geometryBounds = res.geometryBounds.Merge(box)
			viewBox := box.Transformed(r.viewMatrix)
			res.minZ = min(res.minZ, -viewBox.Max[2])
			res.maxZ = max(res.maxZ, -viewBox.Min[2])

			distance := d.DrawableBase().Distance()
			payload := batchPayload(geom)
			for i, sb := range geom.Batches() {
				if sb.Geometry == nil || sb.Material == nil {
					continue
				}
				b := batch.Batch{
					Geometry:  sb.Geometry,
					GeomIndex: i,
					Flags:     d.Flags(),
					Distance:  distance,
					Payload:   payload,
				}
				if pass := sb.Material.Pass(material.PassOpaque); pass != nil {
					b.Pass = pass
					pass.SortKey.Record(r.frameNumber, distance)
					sb.Geometry.SortKey.Record(r.frameNumber, distance)
					res.opaque = append(res.opaque, b)
				} else if pass := sb.Material.Pass(material.PassAlpha); pass != nil {
					b.Pass = pass
					res.alpha = append(res.alpha, b)
				}
			}
		}
	}
	r.batchLatch.CountDown()
}

// batchPayload returns a static payload referencing the drawable's world transform, or a
// complex payload for drawables that push per-draw state.
func batchPayload(d drawable.GeometryDrawable) batch.Payload {
	if d.Flags().Has(drawable.FlagSkinned) {
		return batch.Complex{Drawable: d}
	}
	return batch.Static{Transform: d.DrawableBase().WorldTransform()}
}

// pickDirLight returns the brightest directional light among the collected lights.
func pickDirLight(results []octantResult) light.Light {
	var best light.Light
	var bestBrightness float32
	for i := range results {
		for _, l := range results[i].lights {
			if l.Type() != light.LightTypeDirectional {
				continue
			}
			if b := l.Brightness(); best == nil || b > bestBrightness {
				best = l
				bestBrightness = b
			}
		}
	}
	return best
}

// sortMainBatches merges the per-thread results and sorts the opaque and alpha queues.
// It runs on the orchestrating goroutine while light processing may still be running.
func (r *viewRenderer) sortMainBatches() {
	for i := range r.threadResults {
		res := &r.threadResults[i]
		r.geometryBounds = r.geometryBounds.Merge(res.geometryBounds)
		r.minZ = min(r.minZ, res.minZ)
		r.maxZ = max(r.maxZ, res.maxZ)
		r.opaque.Append(res.opaque)
		r.alpha.Append(res.alpha)
	}
	if r.minZ > r.maxZ {
		r.minZ, r.maxZ = 0, 0
	}

	results := r.octantResults[:len(r.rootLevelOctants)]
	if dir := pickDirLight(results); dir != nil {
		r.lightMask |= batch.LightMaskDirectional
		if r.drawShadows && dir.CastsShadows() {
			r.lightMask |= batch.LightMaskDirectionalShadow
		}
	}
	for i := range results {
		for _, l := range results[i].lights {
			if l.Type() != light.LightTypeDirectional {
				r.lightMask |= batch.LightMaskClustered
				break
			}
		}
	}

	for i := range r.opaque.Batches {
		r.opaque.Batches[i].LightMask = r.lightMask
	}
	for i := range r.alpha.Batches {
		r.alpha.Batches[i].LightMask = r.lightMask
	}

	r.opaque.Sort(batch.SortStateDistance, r.instances)
	r.alpha.Sort(batch.SortDistance, nil)
}

// checkOcclusionQueries applies the results of the queries issued last frame.
func (r *viewRenderer) checkOcclusionQueries() {
	r.device.ReadOcclusionResults(func(id uint32, visible bool) {
		octantID, ok := r.pendingQueries[id]
		if !ok {
			return
		}
		delete(r.pendingQueries, id)
		// the octant may have been deleted and its handle reused since the query was issued
		if oct := r.octree.Octant(octantID); oct == nil || oct.OcclusionQueryID() != id {
			return
		}
		r.octree.OnOcclusionQueryResult(octantID, visible)
	})
}

func (r *viewRenderer) finishPrepare() {
	r.stats.RootOctants = len(r.rootLevelOctants)
	r.stats.Lights = len(r.lights)
	r.stats.DirLight = r.dirLight != nil
	r.stats.Opaque = r.opaque.Len()
	r.stats.Alpha = r.alpha.Len()
	r.stats.Instances = r.instances.Len()
	r.stats.InstanceOverflow = r.instances.Dropped()
	r.stats.ClusterOverflow = r.clusters.Overflow()
	for i := range r.shadowModes {
		r.stats.ShadowViews[i] = int(r.shadowModes[i].Load())
	}
	r.stats.ShadowFailed = r.shadowFailed
	r.stats.PrepareTime = time.Since(r.prepareStart)

	if r.stats.ClusterOverflow > 0 {
		r.log.Debug("light clusters overflowed", "frame", r.frameNumber, "dropped", r.stats.ClusterOverflow)
	}
	if r.stats.InstanceOverflow > 0 {
		r.log.Warn("instance buffer full, drawing batches individually", "frame", r.frameNumber, "batches", r.stats.InstanceOverflow)
	}
}
