package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/shadow"
)

func (r *viewRenderer) Render() error {
	if err := r.device.BeginFrame(); err != nil {
		return err
	}
	r.stats.Draws = 0
	r.stats.InstancedDraws = 0
	r.queriesIssued = 0

	r.upload()
	r.RenderShadowMaps()
	r.RenderOpaque()
	r.RenderAlpha()
	r.RenderOcclusionQueries()
	return r.device.EndFrame()
}

// upload writes the per-view uniforms, lights, clusters and instance transforms once per
// prepared view. Instances are laid out as the opaque queue's followed by each shadow map's.
func (r *viewRenderer) upload() {
	if r.uploaded {
		return
	}
	r.uploaded = true

	uniforms := r.perViewUniforms()
	r.device.WriteBuffer(gpu.BufferPerView, uniforms.Marshal())
	r.device.WriteBuffer(gpu.BufferLights, light.MarshalLightBuffer(r.dirLight, r.lights))
	r.device.WriteBuffer(gpu.BufferClusters, r.clusters.Bytes())

	instances := append(r.instanceScratch[:0], r.instances.Transforms()...)
	for i, m := range r.shadowMaps {
		r.mapInstanceBase[i] = len(instances)
		if m != nil {
			instances = append(instances, m.Instances().Transforms()...)
		}
	}
	r.instanceScratch = instances
	if len(instances) > 0 {
		r.device.WriteBuffer(gpu.BufferInstances, common.SliceToBytes(instances))
	}
}

func (r *viewRenderer) RenderShadowMaps() {
	if !r.drawShadows {
		return
	}
	r.upload()
	for i, m := range r.shadowMaps {
		if m == nil || !m.Used() {
			continue
		}
		for _, v := range m.Views() {
			if !v.Skipped() {
				r.renderShadowView(m, v, r.mapInstanceBase[i])
			}
		}
	}
}

// renderShadowView renders one view according to its render mode. Store and restore copy
// the view's rectangle between the atlas and its static cache outside of any pass.
func (r *viewRenderer) renderShadowView(m *shadow.Map, v *light.ShadowView, instanceBase int) {
	constant, slope := v.Light.DepthBias()
	pass := gpu.ShadowPass{
		Viewport:       v.Viewport,
		ViewProjection: v.Camera.ViewProjectionMatrix(),
		DepthBias:      constant,
		SlopeBias:      slope,
	}
	dynamicQueue := m.Queue(v.ShadowQueue)
	staticQueue := m.Queue(v.StaticQueue)

	switch v.RenderMode {
	case light.RenderDynamicLight:
		pass.Clear = true
		r.device.BeginShadowPass(m.Texture(), pass)
		r.drawQueue(staticQueue, instanceBase)
		r.drawQueue(dynamicQueue, instanceBase)
		r.device.EndPass()

	case light.RenderStaticLightStoreStatic:
		pass.Clear = true
		r.device.BeginShadowPass(m.Texture(), pass)
		r.drawQueue(staticQueue, instanceBase)
		r.device.EndPass()
		r.device.CopyDepth(m.Texture(), m.StaticTexture(), v.Viewport)
		if !dynamicQueue.Empty() {
			pass.Clear = false
			r.device.BeginShadowPass(m.Texture(), pass)
			r.drawQueue(dynamicQueue, instanceBase)
			r.device.EndPass()
		}

	case light.RenderStaticLightRestoreStatic:
		r.device.CopyDepth(m.StaticTexture(), m.Texture(), v.Viewport)
		if !dynamicQueue.Empty() {
			r.device.BeginShadowPass(m.Texture(), pass)
			r.drawQueue(dynamicQueue, instanceBase)
			r.device.EndPass()
		}

	case light.RenderStaticLightCached:
	}
}

func (r *viewRenderer) RenderOpaque() {
	r.upload()
	r.device.BeginMainPass(true, r.clearColor, r.shadowTextures())
	r.drawQueue(&r.opaque, 0)
	r.device.EndPass()
}

func (r *viewRenderer) RenderAlpha() {
	if r.alpha.Empty() {
		return
	}
	r.upload()
	r.device.BeginMainPass(false, r.clearColor, r.shadowTextures())
	r.drawQueue(&r.alpha, 0)
	r.device.EndPass()
}

// RenderOcclusionQueries draws the boxes of the octants collected for testing. Octants
// whose box the camera is inside, with a margin for the near plane, are visible without a
// query.
func (r *viewRenderer) RenderOcclusionQueries() {
	if !r.useOcclusion {
		return
	}

	cameraPosition := r.camera.Position()
	margin := 2 * r.camera.Near()
	started := false
	for i := range r.octantResults[:len(r.rootLevelOctants)] {
		for _, oct := range r.octantResults[i].occlusionQueries {
			box := oct.CullingBox()
			expanded := common.NewBox(
				box.Min.Sub(common.Vec3{margin, margin, margin}),
				box.Max.Add(common.Vec3{margin, margin, margin}),
			)
			if expanded.ContainsPoint(cameraPosition) {
				r.octree.OnOcclusionQueryResult(oct.ID(), true)
				continue
			}

			if !started {
				r.device.BeginMainPass(false, r.clearColor, nil)
				started = true
			}
			id := r.device.DrawOcclusionBox(box)
			if id == 0 {
				r.octree.OnOcclusionQueryResult(oct.ID(), true)
				continue
			}
			oct.SetOcclusionQueryID(id)
			r.pendingQueries[id] = oct.ID()
			r.queriesIssued++
		}
	}
	if started {
		r.device.EndPass()
	}
	r.stats.OcclusionQueries = r.queriesIssued
}

func (r *viewRenderer) shadowTextures() []gpu.TextureHandle {
	if !r.drawShadows {
		return nil
	}
	textures := make([]gpu.TextureHandle, 0, shadow.NumMaps)
	for _, m := range r.shadowMaps {
		textures = append(textures, m.Texture())
	}
	return textures
}

// drawQueue issues the draw calls of a queue. Complex batches push their per-draw state
// right before their draw.
func (r *viewRenderer) drawQueue(q *batch.Queue, instanceBase int) {
	q.Each(func(_ int, b *batch.Batch) {
		if c, ok := b.Payload.(batch.Complex); ok {
			c.Drawable.OnRender(r.device, b.GeomIndex)
		}
		r.device.Draw(b, instanceBase)
		r.stats.Draws++
		if _, ok := b.Payload.(batch.Instanced); ok {
			r.stats.InstancedDraws++
		}
	})
}
