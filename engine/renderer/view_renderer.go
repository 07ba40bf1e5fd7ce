package renderer

import (
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/cluster"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/octree"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/shadow"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

// ViewRenderer prepares one camera view of a scene per frame and submits it to a GPU device.
//
// PrepareView walks the scene's octree on the work queue and produces the sorted opaque,
// alpha and shadow batch queues plus the light cluster grid. The Render methods then issue
// the draw calls. Every method must be called from the goroutine orchestrating the frame;
// the device is only touched from that goroutine.
type ViewRenderer interface {
	// SetupShadowMaps (re)creates the directional and local light shadow atlases. Every
	// light's shadow rectangle and static cache are invalidated.
	//
	// Parameters:
	//   - dirLightSize: size of one directional cascade; the atlas holds two side by side
	//   - lightAtlasSize: width and height of the atlas shared by point and spot lights
	//
	// Returns:
	//   - error: texture creation failure
	SetupShadowMaps(dirLightSize, lightAtlasSize int) error

	// PrepareView collects, processes and sorts everything needed to render the view.
	//
	// Parameters:
	//   - sc: the scene to render
	//   - cam: the view camera
	//   - drawShadows: render shadow maps for shadow casting lights
	//   - useOcclusion: use hardware occlusion queries to skip hidden octants
	//   - frameTime: duration of the previous frame in seconds, used to stagger queries
	PrepareView(sc scene.Scene, cam camera.Camera, drawShadows, useOcclusion bool, frameTime float32)

	// RenderShadowMaps renders the shadow views prepared by PrepareView into their atlases.
	RenderShadowMaps()

	// RenderOpaque clears the framebuffer and draws the opaque queue.
	RenderOpaque()

	// RenderAlpha draws the alpha queue back to front.
	RenderAlpha()

	// RenderOcclusionQueries draws the bounding boxes of the octants that requested a
	// visibility test. Results are read by the next PrepareView.
	RenderOcclusionQueries()

	// Render runs a complete device frame: shadow maps, opaque, alpha and occlusion queries.
	//
	// Returns:
	//   - error: device failure at frame begin or end
	Render() error

	// FrameNumber returns the frame number of the last PrepareView.
	//
	// Returns:
	//   - uint32: the frame number
	FrameNumber() uint32

	// RootLevelOctants returns the octants whose branches were collected by separate tasks.
	//
	// Returns:
	//   - []*octree.Octant: the root (if it holds drawables) and its children
	RootLevelOctants() []*octree.Octant

	// OpaqueQueue returns the sorted opaque batches.
	//
	// Returns:
	//   - *batch.Queue: the queue, valid until the next PrepareView
	OpaqueQueue() *batch.Queue

	// AlphaQueue returns the back-to-front sorted alpha batches.
	//
	// Returns:
	//   - *batch.Queue: the queue, valid until the next PrepareView
	AlphaQueue() *batch.Queue

	// Instances returns the instance transforms of the opaque queue.
	//
	// Returns:
	//   - *batch.InstanceBuffer: the buffer
	Instances() *batch.InstanceBuffer

	// DirLight returns the directional light of the view, or nil.
	//
	// Returns:
	//   - light.Light: the brightest directional light in view
	DirLight() light.Light

	// Lights returns the local lights of the view, nearest first, at most light.MaxLights.
	//
	// Returns:
	//   - []light.Light: the lights in light buffer order
	Lights() []light.Light

	// ShadowMap returns a shadow atlas.
	//
	// Parameters:
	//   - index: shadow.DirectionalMap or shadow.LocalMap
	//
	// Returns:
	//   - *shadow.Map: the atlas, nil before SetupShadowMaps
	ShadowMap(index int) *shadow.Map

	// Clusters returns the light cluster grid of the view.
	//
	// Returns:
	//   - *cluster.Grid: the grid
	Clusters() *cluster.Grid

	// Stats returns the statistics of the last prepared and rendered frame.
	//
	// Returns:
	//   - Stats: the frame statistics
	Stats() Stats

	// Release frees the renderer's GPU resources.
	Release()
}

// octantResult collects one root-level branch: its lights and the octants holding geometry.
type octantResult struct {
	lights           []light.Light
	octants          []collectedOctant
	occlusionQueries []*octree.Octant
	drawableAcc      int
	taskOctantIdx    int
	batchTasks       []*collectBatchesTask
	batchTaskIdx     int
}

func (r *octantResult) clear() {
	clear(r.lights)
	r.lights = r.lights[:0]
	r.octants = r.octants[:0]
	clear(r.occlusionQueries)
	r.occlusionQueries = r.occlusionQueries[:0]
	r.drawableAcc = 0
	r.taskOctantIdx = 0
	r.batchTaskIdx = 0
}

// collectedOctant is an octant with geometry and the frustum planes it still intersects.
type collectedOctant struct {
	octant    *octree.Octant
	planeMask uint8
}

// threadResult holds the batch collection output of one thread index.
type threadResult struct {
	minZ           float32
	maxZ           float32
	geometryBounds common.Box
	opaque         []batch.Batch
	alpha          []batch.Batch
}

func (r *threadResult) clear() {
	r.minZ = maxFloat
	r.maxZ = 0
	r.geometryBounds = common.EmptyBox()
	clear(r.opaque)
	r.opaque = r.opaque[:0]
	clear(r.alpha)
	r.alpha = r.alpha[:0]
}

const maxFloat float32 = 3.4e38

// viewRenderer is the implementation of the ViewRenderer interface.
type viewRenderer struct {
	device    gpu.Device
	workQueue work_queue.WorkQueue
	log       *logger.Logger

	clearColor       [4]float32
	instanceCapacity int

	// per-frame view state, written on the orchestrating goroutine before tasks start
	scene        scene.Scene
	octree       octree.Octree
	camera       camera.Camera
	frustum      common.Frustum
	viewMatrix   common.Mat4
	ambientColor [3]float32
	frameNumber  uint32
	frameTime    float32
	drawShadows  bool
	useOcclusion bool
	prepareCount uint64
	prepareStart time.Time

	rootLevelOctants []*octree.Octant
	octantResults    []octantResult
	threadResults    []threadResult

	// merged on the orchestrating goroutine by sortMainBatches
	minZ           float32
	maxZ           float32
	geometryBounds common.Box
	lightMask      batch.LightMask
	opaque         batch.Queue
	alpha          batch.Queue
	instances      *batch.InstanceBuffer

	// written by processLightsWork
	dirLight       light.Light
	lights         []light.Light
	shadowPending  []light.Light
	casterTasks    []*collectShadowCastersTask
	numCasterTasks int

	// light rectangles and caches valid for the current atlases, with the prepare
	// count they were last allocated in
	shadowedLights map[light.Light]uint64

	shadowMaps     [shadow.NumMaps]*shadow.Map
	shadowTasks    []*collectShadowBatchesTask
	numShadowTasks int
	shadowModes    [4]atomic.Int32
	shadowFailed   int

	clusters   *cluster.Grid
	cullTasks  [cluster.NumClustersZ]*work_queue.FuncTask
	batchLatch work_queue.Latch

	collectOctantsTasks     []*collectOctantsTask
	processLightsTask       *work_queue.FuncTask
	batchesReadyTask        *work_queue.FuncTask
	processShadowCasterTask *work_queue.FuncTask

	pendingQueries map[uint32]int32
	queriesIssued  int

	uploaded        bool
	instanceScratch []common.Mat4
	mapInstanceBase [shadow.NumMaps]int
	stats           Stats
}

var _ ViewRenderer = &viewRenderer{}

// NewViewRenderer creates a renderer submitting to device and preparing views on workQueue.
//
// Parameters:
//   - device: the GPU device (must not be nil)
//   - workQueue: the task scheduler (must not be nil)
//   - options: builder options
//
// Returns:
//   - ViewRenderer: the renderer
func NewViewRenderer(device gpu.Device, workQueue work_queue.WorkQueue, options ...ViewRendererBuilderOption) ViewRenderer {
	if device == nil {
		panic("renderer: NewViewRenderer requires a non-nil Device")
	}
	if workQueue == nil {
		panic("renderer: NewViewRenderer requires a non-nil WorkQueue")
	}
	r := &viewRenderer{
		device:           device,
		workQueue:        workQueue,
		clearColor:       [4]float32{0, 0, 0, 1},
		instanceCapacity: batch.DefaultInstanceCapacity,
		shadowedLights:   make(map[light.Light]uint64),
		pendingQueries:   make(map[uint32]int32),
	}
	for _, opt := range options {
		opt(r)
	}

	r.instances = batch.NewInstanceBuffer(r.instanceCapacity)
	r.clusters = cluster.NewGrid(cluster.WithLogger(r.log))
	r.processLightsTask = work_queue.NewFuncTask(r.processLightsWork)
	r.batchesReadyTask = work_queue.NewFuncTask(func(int) {})
	r.processShadowCasterTask = work_queue.NewFuncTask(r.processShadowCastersWork)
	for z := range r.cullTasks {
		r.cullTasks[z] = work_queue.NewFuncTask(func(int) { r.clusters.CullSlice(z) })
	}
	return r
}

func (r *viewRenderer) SetupShadowMaps(dirLightSize, lightAtlasSize int) error {
	if dirLightSize <= 0 || lightAtlasSize <= 0 {
		return errInvalidShadowMapSize
	}
	sizes := [shadow.NumMaps][2]int{
		shadow.DirectionalMap: {dirLightSize * 2, dirLightSize},
		shadow.LocalMap:       {lightAtlasSize, lightAtlasSize},
	}
	for i, m := range r.shadowMaps {
		if m != nil {
			m.ReleaseTextures(r.device)
		}
		m = shadow.NewMap(i, sizes[i][0], sizes[i][1])
		if err := m.CreateTextures(r.device); err != nil {
			return err
		}
		r.shadowMaps[i] = m
	}
	clear(r.shadowedLights)
	r.log.Debug("shadow maps created", "directional", sizes[0], "local", sizes[1])
	return nil
}

func (r *viewRenderer) FrameNumber() uint32 {
	return r.frameNumber
}

func (r *viewRenderer) RootLevelOctants() []*octree.Octant {
	return r.rootLevelOctants
}

func (r *viewRenderer) OpaqueQueue() *batch.Queue {
	return &r.opaque
}

func (r *viewRenderer) AlphaQueue() *batch.Queue {
	return &r.alpha
}

func (r *viewRenderer) Instances() *batch.InstanceBuffer {
	return r.instances
}

func (r *viewRenderer) DirLight() light.Light {
	return r.dirLight
}

func (r *viewRenderer) Lights() []light.Light {
	return r.lights
}

func (r *viewRenderer) ShadowMap(index int) *shadow.Map {
	if index < 0 || index >= shadow.NumMaps {
		return nil
	}
	return r.shadowMaps[index]
}

func (r *viewRenderer) Clusters() *cluster.Grid {
	return r.clusters
}

func (r *viewRenderer) Stats() Stats {
	return r.stats
}

func (r *viewRenderer) Release() {
	for i, m := range r.shadowMaps {
		if m != nil {
			m.ReleaseTextures(r.device)
			r.shadowMaps[i] = nil
		}
	}
	clear(r.shadowedLights)
	clear(r.pendingQueries)
}
