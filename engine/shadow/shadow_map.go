package shadow

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

const (
	// DirectionalMap is the index of the atlas holding the directional light cascades.
	DirectionalMap = 0
	// LocalMap is the index of the atlas shared by point and spot lights.
	LocalMap = 1
	// NumMaps is the number of shadow atlases.
	NumMaps = 2

	// MaxSizeReductions is how many times a request is halved before the light goes unshadowed.
	MaxSizeReductions = 3
)

// Map is one shadow atlas: a depth texture, its static cache copy, the rectangle allocator,
// the views rendered into it this frame and their batch queues.
type Map struct {
	index     int
	width     int
	height    int
	texture   gpu.TextureHandle
	static    gpu.TextureHandle
	allocator *AreaAllocator

	views     []*light.ShadowView
	queues    []batch.Queue
	numQueues int
	instances *batch.InstanceBuffer

	// PendingViews counts views whose batches are still being collected. The task
	// that releases it sorts the map's queues.
	PendingViews work_queue.Latch
}

// NewMap creates an atlas without GPU textures.
//
// Parameters:
//   - index: DirectionalMap or LocalMap
//   - width: atlas width in texels
//   - height: atlas height in texels
//
// Returns:
//   - *Map: the atlas
func NewMap(index, width, height int) *Map {
	return &Map{
		index:     index,
		width:     width,
		height:    height,
		allocator: NewAreaAllocator(width, height),
		instances: batch.NewInstanceBuffer(0),
	}
}

// CreateTextures allocates the atlas and static cache depth textures on dev.
//
// Parameters:
//   - dev: the device
//
// Returns:
//   - error: texture creation failure
func (m *Map) CreateTextures(dev gpu.Device) error {
	m.ReleaseTextures(dev)
	tex, err := dev.CreateDepthTexture(fmt.Sprintf("shadow atlas %d", m.index), m.width, m.height)
	if err != nil {
		return fmt.Errorf("shadow: create atlas %d: %w", m.index, err)
	}
	static, err := dev.CreateDepthTexture(fmt.Sprintf("shadow static cache %d", m.index), m.width, m.height)
	if err != nil {
		dev.ReleaseTexture(tex)
		return fmt.Errorf("shadow: create static cache %d: %w", m.index, err)
	}
	m.texture = tex
	m.static = static
	return nil
}

// ReleaseTextures frees the GPU textures.
func (m *Map) ReleaseTextures(dev gpu.Device) {
	if m.texture != gpu.NoTexture {
		dev.ReleaseTexture(m.texture)
		m.texture = gpu.NoTexture
	}
	if m.static != gpu.NoTexture {
		dev.ReleaseTexture(m.static)
		m.static = gpu.NoTexture
	}
}

// Index returns DirectionalMap or LocalMap.
func (m *Map) Index() int { return m.index }

// Width returns the atlas width.
func (m *Map) Width() int { return m.width }

// Height returns the atlas height.
func (m *Map) Height() int { return m.height }

// Texture returns the atlas depth texture.
func (m *Map) Texture() gpu.TextureHandle { return m.texture }

// StaticTexture returns the depth texture caching static casters.
func (m *Map) StaticTexture() gpu.TextureHandle { return m.static }

// Clear frees every rectangle and forgets this frame's views.
func (m *Map) Clear() {
	m.allocator.Reset(m.width, m.height)
	clear(m.views)
	m.views = m.views[:0]
	for i := range m.numQueues {
		m.queues[i].Clear()
	}
	m.numQueues = 0
	m.instances.Reset()
	m.PendingViews.Reset(0)
}

// Allocate reserves a rectangle for a light. The previous rectangle is reused when it has
// the requested size and is still free; otherwise the request is packed anew, halving it
// up to MaxSizeReductions times.
//
// Parameters:
//   - width: requested width
//   - height: requested height
//   - previous: the light's rectangle from last frame, or the zero Rect
//
// Returns:
//   - common.Rect: the reserved rectangle
//   - bool: false if the light cannot be shadowed this frame
func (m *Map) Allocate(width, height int, previous common.Rect) (common.Rect, bool) {
	if !previous.IsZero() && previous.Width() == width && previous.Height() == height && m.allocator.AllocateSpecific(previous) {
		return previous, true
	}
	for range MaxSizeReductions + 1 {
		if rect, ok := m.allocator.Allocate(width, height); ok {
			return rect, true
		}
		width /= 2
		height /= 2
	}
	return common.Rect{}, false
}

// Reuse reserves exactly the given rectangle if it lies inside the atlas and is free.
// Lights keeping their rectangle between frames keep their static cache valid.
//
// Parameters:
//   - rect: the rectangle the light held last frame
//
// Returns:
//   - bool: true if the rectangle was reserved
func (m *Map) Reuse(rect common.Rect) bool {
	if rect.IsZero() {
		return false
	}
	return m.allocator.AllocateSpecific(rect)
}

// AddView registers a view rendered into the atlas this frame and assigns its queues.
func (m *Map) AddView(v *light.ShadowView) {
	v.ShadowQueue = m.nextQueue()
	v.StaticQueue = m.nextQueue()
	m.views = append(m.views, v)
}

func (m *Map) nextQueue() int {
	if m.numQueues == len(m.queues) {
		m.queues = append(m.queues, batch.Queue{})
	}
	m.queues[m.numQueues].Clear()
	m.numQueues++
	return m.numQueues - 1
}

// Views returns the views added this frame.
func (m *Map) Views() []*light.ShadowView { return m.views }

// Used reports whether any view renders into the atlas this frame.
func (m *Map) Used() bool { return len(m.views) > 0 }

// Queue returns a batch queue by index.
func (m *Map) Queue(index int) *batch.Queue { return &m.queues[index] }

// Instances returns the instance transforms written by SortQueues.
func (m *Map) Instances() *batch.InstanceBuffer { return m.instances }

// SortQueues sorts every queue of the frame by state and collapses static runs into
// instanced batches. Instance ranges index the map's own instance buffer.
func (m *Map) SortQueues() {
	m.instances.Reset()
	for i := range m.numQueues {
		m.queues[i].Sort(batch.SortState, m.instances)
	}
}
