package gpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

// ErrDeviceLost is returned when the device or its surface can no longer be used.
var ErrDeviceLost = errors.New("gpu: device lost")

// TextureHandle names a texture created by a Device.
type TextureHandle uint32

// NoTexture is the zero handle.
const NoTexture TextureHandle = 0

// BufferKind selects one of the per-frame data buffers bound to every draw.
type BufferKind int

const (
	// BufferPerView holds the per-view uniforms.
	BufferPerView BufferKind = iota
	// BufferLights holds the light array, index 0 being the directional light.
	BufferLights
	// BufferClusters holds the cluster light index grid.
	BufferClusters
	// BufferInstances holds the transforms of instanced batches.
	BufferInstances
	// NumBufferKinds is the number of buffer kinds.
	NumBufferKinds
)

func (k BufferKind) String() string {
	switch k {
	case BufferPerView:
		return "per-view"
	case BufferLights:
		return "lights"
	case BufferClusters:
		return "clusters"
	case BufferInstances:
		return "instances"
	default:
		return "unknown"
	}
}

// ShadowPass describes one depth-only render into a shadow atlas rectangle.
type ShadowPass struct {
	Viewport       common.Rect
	ViewProjection common.Mat4
	DepthBias      float32
	SlopeBias      float32
	Clear          bool
}

// Device is the GPU contract used by the view renderer. It is only called from the
// goroutine driving the frame. Passes do not nest: every Begin*Pass is closed by EndPass
// before the next pass or copy starts.
type Device interface {
	drawable.ShaderParams

	// Name identifies the backend.
	//
	// Returns:
	//   - string: the backend name
	Name() string

	// SupportsOcclusionQueries reports whether DrawOcclusionBox returns real query ids.
	//
	// Returns:
	//   - bool: true when occlusion queries are available
	SupportsOcclusionQueries() bool

	// Resize changes the size of the render target.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	Resize(width, height int)

	// Size returns the size of the render target.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// CreateDepthTexture creates a sampleable depth texture usable as a shadow atlas.
	//
	// Parameters:
	//   - label: debug label
	//   - width: width in texels
	//   - height: height in texels
	//
	// Returns:
	//   - TextureHandle: the texture
	//   - error: creation failure
	CreateDepthTexture(label string, width, height int) (TextureHandle, error)

	// ReleaseTexture frees a texture. Unknown handles are ignored.
	//
	// Parameters:
	//   - handle: the texture
	ReleaseTexture(handle TextureHandle)

	// WriteBuffer replaces the contents of a per-frame buffer, growing it when needed.
	//
	// Parameters:
	//   - kind: the buffer
	//   - data: the new contents
	WriteBuffer(kind BufferKind, data []byte)

	// BeginFrame starts recording a frame.
	//
	// Returns:
	//   - error: ErrDeviceLost wrapped with the cause when the target is unavailable
	BeginFrame() error

	// BeginShadowPass starts a depth-only pass into a rectangle of target.
	//
	// Parameters:
	//   - target: the shadow atlas
	//   - pass: viewport, matrix, bias and clear flag
	BeginShadowPass(target TextureHandle, pass ShadowPass)

	// CopyDepth copies a rectangle of depth between two textures of equal size.
	//
	// Parameters:
	//   - src: source texture
	//   - dst: destination texture
	//   - region: the rectangle, identical in both textures
	CopyDepth(src, dst TextureHandle, region common.Rect)

	// BeginMainPass starts the forward pass on the render target.
	//
	// Parameters:
	//   - clear: whether to clear color and depth
	//   - clearColor: the clear color
	//   - shadowMaps: the atlases sampled by lit passes
	BeginMainPass(clear bool, clearColor [4]float32, shadowMaps []TextureHandle)

	// Draw issues one batch in the current pass. Instanced batches read their transforms
	// from BufferInstances starting at instanceBase plus the batch's own start.
	//
	// Parameters:
	//   - b: the batch
	//   - instanceBase: offset of the batch's instance buffer region
	Draw(b *batch.Batch, instanceBase int)

	// DrawOcclusionBox draws a box without color or depth writes inside an occlusion query.
	//
	// Parameters:
	//   - box: the world-space box
	//
	// Returns:
	//   - uint32: the query id, 0 when queries are unsupported
	DrawOcclusionBox(box common.Box) uint32

	// EndPass ends the current pass.
	EndPass()

	// EndFrame submits and presents the frame.
	//
	// Returns:
	//   - error: ErrDeviceLost wrapped with the cause on submission failure
	EndFrame() error

	// ReadOcclusionResults reports the queries that completed since the last call.
	//
	// Parameters:
	//   - fn: receives each query id and whether any sample passed
	ReadOcclusionResults(fn func(id uint32, visible bool))

	// Release frees every GPU resource.
	Release()
}
