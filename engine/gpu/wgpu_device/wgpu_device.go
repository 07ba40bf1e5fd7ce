package wgpu_device

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/cluster"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

const (
	// DefaultInstanceCapacity matches the renderer's main instance buffer plus two shadow maps.
	DefaultInstanceCapacity = 3 * batch.DefaultInstanceCapacity
	// DefaultPipelineCacheSize bounds the number of live render pipelines.
	DefaultPipelineCacheSize = 64

	// maxStaticDraws is the number of per-draw transforms of static and complex batches per frame.
	maxStaticDraws = 32768
	// maxDraws is the number of draw parameter slots per frame.
	maxDraws = 32768
	// maxBones is the number of skinning matrices per frame.
	maxBones = 16384
	// drawSlotSize is the dynamic uniform offset alignment.
	drawSlotSize = 256
	// meshCacheSize bounds the number of geometries with live vertex and index buffers.
	meshCacheSize = 4096

	perViewSize = 512
	matrixSize  = 64
	depthFormat = wgpu.TextureFormatDepth24Plus
)

var errNoSurface = errors.New("wgpu_device: no surface")

// Device is the cogentcore/webgpu implementation of gpu.Device. Occlusion queries are not
// supported: SupportsOcclusionQueries is false and the renderer leaves every octant visible.
type Device interface {
	gpu.Device

	// Adapter returns the adapter the device was created on.
	//
	// Returns:
	//   - *wgpu.Adapter: the adapter
	Adapter() *wgpu.Adapter
}

// drawParams is the per-draw uniform slot read through a dynamic offset.
type drawParams struct {
	ViewProjection common.Mat4
	Material       material.GPUMaterialParams
	BoneBase       uint32
	_pad           [3]uint32
}

type depthTexture struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	copyGroup *wgpu.BindGroup
	width     int
	height    int
}

type meshBuffers struct {
	vertex *wgpu.Buffer
	index  *wgpu.Buffer
	count  uint32
}

type wgpuDeviceImpl struct {
	log *logger.Logger

	instance      *wgpu.Instance
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surface       *wgpu.Surface
	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	forceFallback bool
	width         int
	height        int

	depth     *wgpu.Texture
	depthView *wgpu.TextureView

	instanceCapacity  int
	pipelineCacheSize int
	pipelines         *lru.Cache[pipelineKey, *wgpu.RenderPipeline]
	meshes            *lru.Cache[*model.Geometry, *meshBuffers]

	frameGroupLayout  *wgpu.BindGroupLayout
	shadowGroupLayout *wgpu.BindGroupLayout
	emptyGroupLayout  *wgpu.BindGroupLayout
	drawGroupLayout   *wgpu.BindGroupLayout
	copyGroupLayout   *wgpu.BindGroupLayout
	forwardLayout     *wgpu.PipelineLayout
	shadowLayout      *wgpu.PipelineLayout
	copyPipeline      *wgpu.RenderPipeline
	clearPipeline     *wgpu.RenderPipeline

	buffers    [gpu.NumBufferKinds]*wgpu.Buffer
	transforms *wgpu.Buffer
	drawBuffer *wgpu.Buffer
	boneBuffer *wgpu.Buffer
	sampler    *wgpu.Sampler

	frameGroup   *wgpu.BindGroup
	emptyGroup   *wgpu.BindGroup
	drawGroup    *wgpu.BindGroup
	shadowGroups map[[2]gpu.TextureHandle]*wgpu.BindGroup

	textures    map[gpu.TextureHandle]*depthTexture
	nextTexture gpu.TextureHandle
	fallback    gpu.TextureHandle

	// frame state
	encoder        *wgpu.CommandEncoder
	pass           *wgpu.RenderPassEncoder
	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView
	shadowPass     bool
	shadow         gpu.ShadowPass
	statics        []common.Mat4
	draws          []drawParams
	bones          []common.Mat4
	boneBase       uint32
	dropped        int
}

var _ Device = &wgpuDeviceImpl{}

// NewDevice creates a WebGPU device rendering to the surface described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread, as surfaces require.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, typically from window.Window.GetSurfaceDescriptor
//   - width: initial surface width in pixels
//   - height: initial surface height in pixels
//   - options: functional options to configure the device
//
// Returns:
//   - Device: the device
//   - error: adapter, device or resource creation failure
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDeviceImpl{
		presentMode:       wgpu.PresentModeImmediate,
		instanceCapacity:  DefaultInstanceCapacity,
		pipelineCacheSize: DefaultPipelineCacheSize,
		textures:          make(map[gpu.TextureHandle]*depthTexture),
		shadowGroups:      make(map[[2]gpu.TextureHandle]*wgpu.BindGroup),
	}
	for _, option := range options {
		option(d)
	}

	var err error
	d.pipelines, err = lru.NewWithEvict(d.pipelineCacheSize, func(_ pipelineKey, p *wgpu.RenderPipeline) {
		p.Release()
	})
	if err != nil {
		return nil, err
	}
	d.meshes, err = lru.NewWithEvict(meshCacheSize, func(_ *model.Geometry, m *meshBuffers) {
		m.vertex.Release()
		m.index.Release()
	})
	if err != nil {
		return nil, err
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)
	d.adapter, err = d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu_device: request adapter: %w", err)
	}

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 4
	d.device, err = d.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-render device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu_device: request device: %w", err)
	}
	d.queue = d.device.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return nil, errNoSurface
	}
	d.surfaceFormat = capabilities.Formats[0]

	if err := d.createResources(); err != nil {
		d.Release()
		return nil, fmt.Errorf("wgpu_device: create resources: %w", err)
	}
	d.Resize(width, height)
	d.log.Info("wgpu device created", "format", d.surfaceFormat, "width", width, "height", height)
	return d, nil
}

func (d *wgpuDeviceImpl) createResources() error {
	var err error
	if d.frameGroupLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "frame",
		Entries: []wgpu.BindGroupLayoutEntry{
			bufferEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, wgpu.BufferBindingTypeUniform, false),
			bufferEntry(1, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeReadOnlyStorage, false),
			bufferEntry(2, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeReadOnlyStorage, false),
			bufferEntry(3, wgpu.ShaderStageVertex, wgpu.BufferBindingTypeReadOnlyStorage, false),
		},
	}); err != nil {
		return err
	}
	if d.shadowGroupLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "shadow maps",
		Entries: []wgpu.BindGroupLayoutEntry{
			depthEntry(0),
			depthEntry(1),
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
			},
		},
	}); err != nil {
		return err
	}
	if d.emptyGroupLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: "empty"}); err != nil {
		return err
	}
	if d.drawGroupLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "draw",
		Entries: []wgpu.BindGroupLayoutEntry{
			bufferEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, wgpu.BufferBindingTypeUniform, true),
			bufferEntry(1, wgpu.ShaderStageVertex, wgpu.BufferBindingTypeReadOnlyStorage, false),
		},
	}); err != nil {
		return err
	}
	if d.copyGroupLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "copy depth",
		Entries: []wgpu.BindGroupLayoutEntry{depthEntry(0)},
	}); err != nil {
		return err
	}

	if d.forwardLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "forward",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.frameGroupLayout, d.shadowGroupLayout, d.drawGroupLayout},
	}); err != nil {
		return err
	}
	if d.shadowLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "shadow",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.frameGroupLayout, d.emptyGroupLayout, d.drawGroupLayout},
	}); err != nil {
		return err
	}

	sizes := [gpu.NumBufferKinds]int{
		gpu.BufferPerView:   perViewSize,
		gpu.BufferLights:    (light.MaxLights + 1) * (&light.GPULightData{}).Size(),
		gpu.BufferClusters:  cluster.NumClusters * cluster.MaxLightsPerCluster,
		gpu.BufferInstances: 0,
	}
	for kind, size := range sizes {
		if size == 0 {
			continue
		}
		usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		if gpu.BufferKind(kind) == gpu.BufferPerView {
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		}
		if d.buffers[kind], err = d.createBuffer(gpu.BufferKind(kind).String(), size, usage); err != nil {
			return err
		}
	}
	if d.transforms, err = d.createBuffer("transforms", (d.instanceCapacity+maxStaticDraws)*matrixSize, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	d.buffers[gpu.BufferInstances] = d.transforms
	if d.drawBuffer, err = d.createBuffer("draw parameters", maxDraws*drawSlotSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	if d.boneBuffer, err = d.createBuffer("bones", maxBones*matrixSize, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}

	if d.sampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "shadow comparison",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLessEqual,
		MaxAnisotropy: 1,
	}); err != nil {
		return err
	}

	if d.frameGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "frame",
		Layout: d.frameGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: d.buffers[gpu.BufferPerView], Size: wgpu.WholeSize},
			{Binding: 1, Buffer: d.buffers[gpu.BufferLights], Size: wgpu.WholeSize},
			{Binding: 2, Buffer: d.buffers[gpu.BufferClusters], Size: wgpu.WholeSize},
			{Binding: 3, Buffer: d.transforms, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return err
	}
	if d.emptyGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Label: "empty", Layout: d.emptyGroupLayout}); err != nil {
		return err
	}
	if d.drawGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "draw",
		Layout: d.drawGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: d.drawBuffer, Size: drawSlotSize},
			{Binding: 1, Buffer: d.boneBuffer, Size: wgpu.WholeSize},
		},
	}); err != nil {
		return err
	}

	if d.fallback, err = d.CreateDepthTexture("fallback shadow map", 1, 1); err != nil {
		return err
	}
	if err := d.createCopyPipeline(); err != nil {
		return err
	}
	return d.createClearPipeline()
}

func bufferEntry(binding uint32, visibility wgpu.ShaderStage, kind wgpu.BufferBindingType, dynamic bool) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:             kind,
			HasDynamicOffset: dynamic,
		},
	}
}

func depthEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeDepth,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

func (d *wgpuDeviceImpl) createBuffer(label string, size int, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: usage,
	})
}

// createClearPipeline builds the pipeline that resets a rectangle of a depth texture to 1.
func (d *wgpuDeviceImpl) createClearPipeline() error {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "clear depth",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: clearDepthShader,
		},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{Label: "clear depth"})
	if err != nil {
		return err
	}
	d.clearPipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:    "clear depth",
		Layout:   layout,
		Vertex:   wgpu.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{Module: module, EntryPoint: "fs_main"},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	return err
}

const clearDepthShader = `
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
	let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
	return vec4<f32>(uv * 2.0 - 1.0, 1.0, 1.0);
}

@fragment
fn fs_main() -> @builtin(frag_depth) f32 {
	return 1.0;
}
`

func (d *wgpuDeviceImpl) Name() string {
	return "wgpu"
}

func (d *wgpuDeviceImpl) Adapter() *wgpu.Adapter {
	return d.adapter
}

func (d *wgpuDeviceImpl) SupportsOcclusionQueries() bool {
	return false
}

func (d *wgpuDeviceImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.width, d.height = width, height

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if d.depthView != nil {
		d.depthView.Release()
		d.depth.Release()
	}
	depth, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "main depth",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		d.log.Error("main depth texture creation failed", "error", err)
		return
	}
	d.depth = depth
	if d.depthView, err = depth.CreateView(nil); err != nil {
		d.log.Error("main depth view creation failed", "error", err)
	}
}

func (d *wgpuDeviceImpl) Size() (int, int) {
	return d.width, d.height
}

func (d *wgpuDeviceImpl) CreateDepthTexture(label string, width, height int) (gpu.TextureHandle, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return gpu.NoTexture, fmt.Errorf("wgpu_device: create depth texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return gpu.NoTexture, fmt.Errorf("wgpu_device: create depth view %q: %w", label, err)
	}
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  d.copyGroupLayout,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, TextureView: view}},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return gpu.NoTexture, fmt.Errorf("wgpu_device: create copy group %q: %w", label, err)
	}

	d.nextTexture++
	d.textures[d.nextTexture] = &depthTexture{texture: tex, view: view, copyGroup: group, width: width, height: height}
	return d.nextTexture, nil
}

func (d *wgpuDeviceImpl) ReleaseTexture(handle gpu.TextureHandle) {
	t, ok := d.textures[handle]
	if !ok {
		return
	}
	for key, group := range d.shadowGroups {
		if key[0] == handle || key[1] == handle {
			group.Release()
			delete(d.shadowGroups, key)
		}
	}
	t.copyGroup.Release()
	t.view.Release()
	t.texture.Release()
	delete(d.textures, handle)
}

func (d *wgpuDeviceImpl) WriteBuffer(kind gpu.BufferKind, data []byte) {
	buf := d.buffers[kind]
	if buf == nil || len(data) == 0 {
		return
	}
	limit := int(buf.GetSize())
	if kind == gpu.BufferInstances {
		limit = d.instanceCapacity * matrixSize
	}
	if len(data) > limit {
		d.log.Warn("buffer write truncated", "buffer", kind.String(), "size", len(data), "capacity", limit)
		data = data[:limit]
	}
	d.queue.WriteBuffer(buf, 0, data)
}

func (d *wgpuDeviceImpl) BeginFrame() error {
	if d.surfaceTexture != nil {
		return fmt.Errorf("%w: previous frame not presented", gpu.ErrDeviceLost)
	}
	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	}

	d.surfaceTexture = surfaceTexture
	d.surfaceView = view
	d.encoder = encoder
	d.statics = d.statics[:0]
	d.draws = d.draws[:0]
	d.bones = d.bones[:0]
	d.dropped = 0
	return nil
}

// BeginShadowPass loads the atlas and restricts rendering to the view's rectangle. A clear
// resets only that rectangle: clearing the attachment would erase cached views.
func (d *wgpuDeviceImpl) BeginShadowPass(target gpu.TextureHandle, pass gpu.ShadowPass) {
	t, ok := d.textures[target]
	if !ok || d.encoder == nil {
		return
	}
	d.pass = d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            t.view,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	d.shadowPass = true
	d.shadow = pass
	setRegion(d.pass, pass.Viewport)

	if pass.Clear {
		d.pass.SetPipeline(d.clearPipeline)
		d.pass.Draw(3, 1, 0, 0)
	}
	d.pass.SetBindGroup(0, d.frameGroup, nil)
	d.pass.SetBindGroup(1, d.emptyGroup, nil)
}

func setRegion(pass *wgpu.RenderPassEncoder, r common.Rect) {
	pass.SetViewport(float32(r.Left), float32(r.Top), float32(r.Width()), float32(r.Height()), 0, 1)
	pass.SetScissorRect(uint32(r.Left), uint32(r.Top), uint32(r.Width()), uint32(r.Height()))
}

// CopyDepth renders the source rectangle into the destination with a depth-writing
// fullscreen triangle.
func (d *wgpuDeviceImpl) CopyDepth(src, dst gpu.TextureHandle, region common.Rect) {
	if d.pass != nil {
		d.log.Error("depth copy inside a pass ignored")
		return
	}
	s, okSrc := d.textures[src]
	t, okDst := d.textures[dst]
	if !okSrc || !okDst || d.encoder == nil || region.IsZero() {
		return
	}
	pass := d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            t.view,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	setRegion(pass, region)
	pass.SetPipeline(d.copyPipeline)
	pass.SetBindGroup(0, s.copyGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()
}

func (d *wgpuDeviceImpl) BeginMainPass(clear bool, clearColor [4]float32, shadowMaps []gpu.TextureHandle) {
	if d.encoder == nil {
		return
	}
	loadOp := wgpu.LoadOpLoad
	if clear {
		loadOp = wgpu.LoadOpClear
	}
	d.pass = d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    d.surfaceView,
			LoadOp:  loadOp,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(clearColor[0]), G: float64(clearColor[1]), B: float64(clearColor[2]), A: float64(clearColor[3]),
			},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	d.shadowPass = false
	d.pass.SetBindGroup(0, d.frameGroup, nil)
	if group := d.shadowMapGroup(shadowMaps); group != nil {
		d.pass.SetBindGroup(1, group, nil)
	}
}

// shadowMapGroup returns the bind group sampling the given atlases, substituting a 1×1
// texture for missing ones.
func (d *wgpuDeviceImpl) shadowMapGroup(maps []gpu.TextureHandle) *wgpu.BindGroup {
	key := [2]gpu.TextureHandle{d.fallback, d.fallback}
	for i := range min(len(maps), 2) {
		if _, ok := d.textures[maps[i]]; ok {
			key[i] = maps[i]
		}
	}
	if group, ok := d.shadowGroups[key]; ok {
		return group
	}
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "shadow maps",
		Layout: d.shadowGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: d.textures[key[0]].view},
			{Binding: 1, TextureView: d.textures[key[1]].view},
			{Binding: 2, Sampler: d.sampler},
		},
	})
	if err != nil {
		d.log.Error("shadow map bind group creation failed", "error", err)
		return nil
	}
	d.shadowGroups[key] = group
	return group
}

func (d *wgpuDeviceImpl) SetSkinMatrices(matrices []common.Mat4) {
	if len(d.bones)+len(matrices) > maxBones {
		d.boneBase = 0
		d.dropped++
		return
	}
	d.boneBase = uint32(len(d.bones))
	d.bones = append(d.bones, matrices...)
}

func (d *wgpuDeviceImpl) Draw(b *batch.Batch, instanceBase int) {
	if d.pass == nil || b.Geometry == nil || b.Pass == nil || len(d.draws) >= maxDraws {
		d.dropped++
		return
	}

	var firstInstance, count uint32
	switch p := b.Payload.(type) {
	case batch.Instanced:
		if instanceBase+p.Start+p.Count > d.instanceCapacity {
			d.dropped++
			return
		}
		firstInstance, count = uint32(instanceBase+p.Start), uint32(p.Count)
	case batch.Static:
		if !d.pushStatic(p.Transform) {
			return
		}
		firstInstance, count = uint32(d.instanceCapacity+len(d.statics)-1), 1
	case batch.Complex:
		if !d.pushStatic(p.Drawable.DrawableBase().WorldTransform()) {
			return
		}
		firstInstance, count = uint32(d.instanceCapacity+len(d.statics)-1), 1
	default:
		return
	}

	mesh, err := d.mesh(b.Geometry)
	if err != nil {
		d.log.Error("mesh upload failed", "geometry", b.Geometry.Name, "error", err)
		return
	}
	pipeline, err := d.pipeline(keyFor(b, d.shadowPass, d.shadow.DepthBias, d.shadow.SlopeBias))
	if err != nil {
		d.log.Error("pipeline unavailable", "error", err)
		return
	}

	params := drawParams{BoneBase: d.boneBase}
	if d.shadowPass {
		params.ViewProjection = d.shadow.ViewProjection
	}
	if m := b.Pass.Material(); m != nil {
		params.Material = material.NewGPUMaterialParams(m)
	}
	slot := uint32(len(d.draws))
	d.draws = append(d.draws, params)

	d.pass.SetPipeline(pipeline)
	d.pass.SetBindGroup(2, d.drawGroup, []uint32{slot * drawSlotSize})
	d.pass.SetVertexBuffer(0, mesh.vertex, 0, wgpu.WholeSize)
	d.pass.SetIndexBuffer(mesh.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.pass.DrawIndexed(mesh.count, count, 0, 0, firstInstance)
}

func (d *wgpuDeviceImpl) pushStatic(m *common.Mat4) bool {
	if m == nil || len(d.statics) >= maxStaticDraws {
		d.dropped++
		return false
	}
	d.statics = append(d.statics, *m)
	return true
}

// mesh returns the GPU buffers of a geometry, uploading them on first use.
func (d *wgpuDeviceImpl) mesh(g *model.Geometry) (*meshBuffers, error) {
	if m, ok := d.meshes.Get(g); ok {
		return m, nil
	}
	vertices := g.VertexData()
	indices := g.IndexData()
	vb, err := d.createBuffer(g.Name+" vertices", len(vertices), wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	ib, err := d.createBuffer(g.Name+" indices", len(indices), wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
	if err != nil {
		vb.Release()
		return nil, err
	}
	d.queue.WriteBuffer(vb, 0, vertices)
	d.queue.WriteBuffer(ib, 0, indices)
	m := &meshBuffers{vertex: vb, index: ib, count: uint32(g.IndexCount())}
	d.meshes.Add(g, m)
	return m, nil
}

func (d *wgpuDeviceImpl) DrawOcclusionBox(common.Box) uint32 {
	return 0
}

func (d *wgpuDeviceImpl) EndPass() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass.Release()
	d.pass = nil
	d.shadowPass = false
}

// EndFrame uploads the per-draw data gathered while recording, submits and presents.
func (d *wgpuDeviceImpl) EndFrame() error {
	if d.encoder == nil {
		return nil
	}
	if d.pass != nil {
		d.log.Error("frame ended inside a pass")
		d.EndPass()
	}
	defer d.releaseFrame()

	if len(d.statics) > 0 {
		d.queue.WriteBuffer(d.transforms, uint64(d.instanceCapacity*matrixSize), common.SliceToBytes(d.statics))
	}
	if len(d.draws) > 0 {
		d.queue.WriteBuffer(d.drawBuffer, 0, packDrawParams(d.draws))
	}
	if len(d.bones) > 0 {
		d.queue.WriteBuffer(d.boneBuffer, 0, common.SliceToBytes(d.bones))
	}
	if d.dropped > 0 {
		d.log.Warn("draws dropped", "count", d.dropped)
	}

	commands, err := d.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	}
	d.queue.Submit(commands)
	commands.Release()
	d.surface.Present()
	return nil
}

// packDrawParams lays the draw parameters out at the dynamic offset stride.
func packDrawParams(draws []drawParams) []byte {
	out := make([]byte, len(draws)*drawSlotSize)
	size := int(unsafe.Sizeof(drawParams{}))
	for i := range draws {
		copy(out[i*drawSlotSize:i*drawSlotSize+size], common.StructToBytes(&draws[i]))
	}
	return out
}

func (d *wgpuDeviceImpl) releaseFrame() {
	d.encoder.Release()
	d.encoder = nil
	if d.surfaceView != nil {
		d.surfaceView.Release()
		d.surfaceView = nil
	}
	if d.surfaceTexture != nil {
		d.surfaceTexture.Release()
		d.surfaceTexture = nil
	}
}

func (d *wgpuDeviceImpl) ReadOcclusionResults(func(id uint32, visible bool)) {}

func (d *wgpuDeviceImpl) Release() {
	if d.pipelines != nil {
		d.pipelines.Purge()
	}
	if d.meshes != nil {
		d.meshes.Purge()
	}
	for handle := range d.textures {
		d.ReleaseTexture(handle)
	}
	for _, p := range []*wgpu.RenderPipeline{d.copyPipeline, d.clearPipeline} {
		if p != nil {
			p.Release()
		}
	}
	for _, g := range []*wgpu.BindGroup{d.frameGroup, d.emptyGroup, d.drawGroup} {
		if g != nil {
			g.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{d.buffers[gpu.BufferPerView], d.buffers[gpu.BufferLights], d.buffers[gpu.BufferClusters], d.transforms, d.drawBuffer, d.boneBuffer} {
		if b != nil {
			b.Release()
		}
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depth.Release()
	}
	if d.sampler != nil {
		d.sampler.Release()
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
}
