package renderer

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/shadow"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

const shadowCasterMask = drawable.FlagGeometry | drawable.FlagCastShadows

// collectShadowCastersTask queries the octree for the casters of one point or spot light.
type collectShadowCastersTask struct {
	work_queue.TaskBase
	r       *viewRenderer
	light   light.Light
	casters []drawable.Drawable
}

func (t *collectShadowCastersTask) Complete(threadIndex int) {
	t.casters = t.casters[:0]
	switch t.light.Type() {
	case light.LightTypeSpot:
		t.casters = t.r.octree.FindDrawablesInFrustum(t.casters, t.light.WorldFrustum(), shadowCasterMask)
	case light.LightTypePoint:
		t.casters = t.r.octree.FindDrawablesInSphere(t.casters, t.light.WorldSphere(), shadowCasterMask)
	}
}

// collectShadowBatchesTask fills the batch queues of one directional cascade, or of every
// view of one point or spot light.
type collectShadowBatchesTask struct {
	work_queue.TaskBase
	r         *viewRenderer
	light     light.Light
	viewIndex int
	casters   *collectShadowCastersTask
	found     []drawable.Drawable
}

func (t *collectShadowBatchesTask) Complete(threadIndex int) {
	t.r.collectShadowBatchesWork(t)
}

// processLightsWork merges the collected lights, picks the directional light, sorts the
// local lights by distance and allocates shadow map space.
func (r *viewRenderer) processLightsWork(int) {
	results := r.octantResults[:len(r.rootLevelOctants)]
	r.dirLight = pickDirLight(results)
	for i := range results {
		for _, l := range results[i].lights {
			if l.Type() != light.LightTypeDirectional {
				r.lights = append(r.lights, l)
			}
		}
	}
	slices.SortStableFunc(r.lights, func(a, b light.Light) int {
		return cmp.Compare(a.DrawableBase().Distance(), b.DrawableBase().Distance())
	})
	if len(r.lights) > light.MaxLights {
		clear(r.lights[light.MaxLights:])
		r.lights = r.lights[:light.MaxLights]
	}

	r.numCasterTasks = 0
	if !r.drawShadows {
		if r.dirLight != nil {
			r.dirLight.ClearShadowMap()
		}
		for _, l := range r.lights {
			l.ClearShadowMap()
		}
		clear(r.shadowedLights)
		return
	}

	r.allocateShadowMaps()
	for _, l := range r.lights {
		if l.ShadowRect().IsZero() || !hasActiveView(l) {
			continue
		}
		if r.numCasterTasks == len(r.casterTasks) {
			r.casterTasks = append(r.casterTasks, &collectShadowCastersTask{r: r})
		}
		t := r.casterTasks[r.numCasterTasks]
		r.numCasterTasks++
		t.light = l
		r.workQueue.AddDependency(r.processShadowCasterTask, t)
		r.workQueue.QueueTask(t)
	}
}

func hasActiveView(l light.Light) bool {
	for _, v := range l.ShadowViews() {
		if !v.Skipped() {
			return true
		}
	}
	return false
}

// allocateShadowMaps reserves atlas rectangles. Lights that held a rectangle last frame
// get it back first so their static caches stay valid; the rest are packed afterwards.
func (r *viewRenderer) allocateShadowMaps() {
	if dir := r.dirLight; dir != nil {
		if dir.CastsShadows() {
			m := r.shadowMaps[shadow.DirectionalMap]
			rect := common.NewRect(0, 0, m.Width(), m.Height())
			r.continueShadow(dir)
			m.Reuse(rect)
			dir.SetShadowMap(m.Index(), rect, m.Width(), m.Height())
			for _, v := range dir.ShadowViews() {
				m.AddView(v)
			}
		} else {
			dir.ClearShadowMap()
		}
	}

	m := r.shadowMaps[shadow.LocalMap]
	r.shadowPending = r.shadowPending[:0]
	for _, l := range r.lights {
		if !l.CastsShadows() {
			l.ClearShadowMap()
			continue
		}
		continuous := r.continueShadow(l)
		w, h := l.TotalShadowMapSize(l.ShadowMapSize())
		prev := l.ShadowRect()
		if continuous && l.ShadowMapIndex() == shadow.LocalMap && prev.Width() == w && prev.Height() == h && m.Reuse(prev) {
			r.assignShadowRect(l, m, prev)
			continue
		}
		r.shadowPending = append(r.shadowPending, l)
	}
	for _, l := range r.shadowPending {
		w, h := l.TotalShadowMapSize(l.ShadowMapSize())
		rect, ok := m.Allocate(w, h, common.Rect{})
		if !ok {
			l.ClearShadowMap()
			delete(r.shadowedLights, l)
			r.shadowFailed++
			continue
		}
		r.assignShadowRect(l, m, rect)
	}
	clear(r.shadowPending)

	for l, n := range r.shadowedLights {
		if n != r.prepareCount {
			delete(r.shadowedLights, l)
		}
	}
}

// continueShadow marks a light as shadowed this frame and reports whether it was shadowed
// in the previous prepare too. A gap invalidates its static caches: another light may
// have rendered over its rectangle meanwhile.
func (r *viewRenderer) continueShadow(l light.Light) bool {
	last, ok := r.shadowedLights[l]
	continuous := ok && last == r.prepareCount-1
	if !continuous {
		for _, v := range l.ShadowViews() {
			v.InvalidateCache()
		}
	}
	r.shadowedLights[l] = r.prepareCount
	return continuous
}

func (r *viewRenderer) assignShadowRect(l light.Light, m *shadow.Map, rect common.Rect) {
	l.SetShadowMap(m.Index(), rect, m.Width(), m.Height())
	for i, v := range l.ShadowViews() {
		if l.SetupShadowView(i, r.camera, nil) {
			m.AddView(v)
		}
	}
}

// processShadowCastersWork runs once the lights are processed and the main batches are
// sorted. It queues shadow batch collection per light and the light cluster culling.
func (r *viewRenderer) processShadowCastersWork(int) {
	r.numShadowTasks = 0
	if r.drawShadows {
		if dir := r.dirLight; dir != nil && !dir.ShadowRect().IsZero() {
			for i := range dir.ShadowViews() {
				r.nextShadowTask(dir, i, nil)
			}
			r.shadowMaps[shadow.DirectionalMap].PendingViews.Reset(r.numShadowTasks)
		}
		for _, ct := range r.casterTasks[:r.numCasterTasks] {
			r.nextShadowTask(ct.light, -1, ct)
		}
		r.shadowMaps[shadow.LocalMap].PendingViews.Reset(r.numCasterTasks)
		for _, t := range r.shadowTasks[:r.numShadowTasks] {
			r.workQueue.QueueTask(t)
		}
	}

	r.clusters.Prepare(r.lights, r.viewMatrix)
	for _, t := range r.cullTasks {
		r.workQueue.QueueTask(t)
	}
}

func (r *viewRenderer) nextShadowTask(l light.Light, viewIndex int, casters *collectShadowCastersTask) {
	if r.numShadowTasks == len(r.shadowTasks) {
		r.shadowTasks = append(r.shadowTasks, &collectShadowBatchesTask{r: r})
	}
	t := r.shadowTasks[r.numShadowTasks]
	r.numShadowTasks++
	t.light = l
	t.viewIndex = viewIndex
	t.casters = casters
}

func (r *viewRenderer) collectShadowBatchesWork(t *collectShadowBatchesTask) {
	l := t.light
	m := r.shadowMaps[l.ShadowMapIndex()]
	views := l.ShadowViews()

	if l.Type() == light.LightTypeDirectional {
		view := views[t.viewIndex]
		if l.SetupShadowView(t.viewIndex, r.camera, &r.geometryBounds) {
			splits := l.ShadowSplits()
			splitMin := r.camera.Near()
			if t.viewIndex > 0 {
				splitMin = max(splitMin, splits[t.viewIndex-1])
			}
			splitMax := min(r.camera.Far(), splits[t.viewIndex])
			t.found = r.octree.FindDrawablesInFrustum(t.found[:0], view.Camera.WorldFrustum(), shadowCasterMask)
			r.collectViewBatches(view, m, t.found, false, max(splitMin, r.minZ), min(splitMax, r.maxZ))
			clear(t.found)
		}
	} else {
		staticLight := l.Flags().Has(drawable.FlagStatic)
		for _, view := range views {
			if !view.Skipped() {
				r.collectViewBatches(view, m, t.casters.casters, staticLight, r.minZ, r.maxZ)
			}
		}
		clear(t.casters.casters)
	}

	if m.PendingViews.CountDown() {
		m.SortQueues()
	}
}

// collectViewBatches adds the shadow batches of one view and decides its render mode.
// Static casters of static lights go to the static queue so they can be cached.
func (r *viewRenderer) collectViewBatches(view *light.ShadowView, m *shadow.Map, casters []drawable.Drawable, staticLight bool, viewMinZ, viewMaxZ float32) {
	l := view.Light
	directional := l.Type() == light.LightTypeDirectional
	dynamicQueue := m.Queue(view.ShadowQueue)
	staticQueue := m.Queue(view.StaticQueue)
	viewFrustum := view.Camera.WorldFrustum()

	// casters outside the main view only matter when their shadow can reach visible geometry
	hasGeometry := r.geometryBounds.Defined() && viewMaxZ > viewMinZ
	var lightView common.Mat4
	var extrusion common.Frustum
	var extrusionBox common.Box
	if hasGeometry {
		lightView = view.Camera.ViewMatrix()
		extrusion = r.camera.WorldSplitFrustum(viewMinZ, viewMaxZ).Transformed(lightView)
		extrusionBox = extrusion.Box()
	}

	var summary light.CasterSummary
	for _, d := range casters {
		box := d.WorldBoundingBox()
		if l.Type() == light.LightTypePoint && viewFrustum.IsInsideBoxFast(box) == common.Outside {
			continue
		}

		base := d.DrawableBase()
		if !base.InView(r.frameNumber) {
			if !staticLight {
				if !hasGeometry || !castsIntoView(box, lightView, extrusion, extrusionBox, directional) {
					continue
				}
			}
			if md := base.MaxDistance(); md > 0 && r.camera.Distance(box.Center()) > md {
				continue
			}
		}

		geom, ok := d.(drawable.GeometryDrawable)
		if !ok {
			continue
		}
		static := d.Flags().Has(drawable.FlagStatic)
		queue := dynamicQueue
		if staticLight && static {
			queue = staticQueue
		}

		added := false
		payload := batchPayload(geom)
		for i, sb := range geom.Batches() {
			if sb.Geometry == nil || sb.Material == nil {
				continue
			}
			pass := sb.Material.Pass(material.PassShadow)
			if pass == nil {
				continue
			}
			queue.Add(batch.Batch{
				Pass:      pass,
				Geometry:  sb.Geometry,
				GeomIndex: i,
				Flags:     d.Flags(),
				Payload:   payload,
			})
			added = true
		}
		if !added {
			continue
		}
		if static {
			summary.NumStatic++
			if base.LastMoveFrame() > view.CacheFrame() {
				summary.StaticMoved = true
			}
		} else {
			summary.HasDynamic = true
		}
	}

	mode := view.DecideRenderMode(r.frameNumber, staticLight, summary)
	r.shadowModes[mode].Add(1)
}

// castsIntoView reports whether the shadow of a caster outside the main view can fall on
// the visible part of the view. The caster box is moved to light view space and extruded
// away from the light, then tested against the main view frustum in the same space.
func castsIntoView(box common.Box, lightView common.Mat4, frustum common.Frustum, frustumBox common.Box, directional bool) bool {
	lb := box.Transformed(lightView)
	if directional {
		// the light looks down -Z
		lb.Min[2] = min(lb.Min[2], frustumBox.Min[2])
	} else {
		center := lb.Center()
		depth := -center[2]
		farDepth := -frustumBox.Min[2]
		if depth > 0 && farDepth > depth {
			scale := farDepth / depth
			lb = lb.Merge(common.BoxFromCenter(center.Scale(scale), lb.HalfSize().Scale(scale)))
		}
	}
	return frustum.IsInsideBoxFast(lb) != common.Outside
}
