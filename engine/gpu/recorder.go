package gpu

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

// CommandKind identifies a recorded device call.
type CommandKind int

const (
	CmdBeginFrame CommandKind = iota
	CmdWriteBuffer
	CmdBeginShadowPass
	CmdCopyDepth
	CmdBeginMainPass
	CmdDraw
	CmdSkinMatrices
	CmdOcclusionBox
	CmdEndPass
	CmdEndFrame
)

func (k CommandKind) String() string {
	switch k {
	case CmdBeginFrame:
		return "begin-frame"
	case CmdWriteBuffer:
		return "write-buffer"
	case CmdBeginShadowPass:
		return "begin-shadow-pass"
	case CmdCopyDepth:
		return "copy-depth"
	case CmdBeginMainPass:
		return "begin-main-pass"
	case CmdDraw:
		return "draw"
	case CmdSkinMatrices:
		return "skin-matrices"
	case CmdOcclusionBox:
		return "occlusion-box"
	case CmdEndPass:
		return "end-pass"
	case CmdEndFrame:
		return "end-frame"
	default:
		return "unknown"
	}
}

// Command is one recorded device call. Only the fields of its kind are set.
type Command struct {
	Kind CommandKind

	Target TextureHandle
	Source TextureHandle
	Region common.Rect
	Shadow ShadowPass
	Clear  bool

	Batch        batch.Batch
	InstanceBase int
	Instances    int

	Buffer BufferKind
	Size   int

	QueryID uint32
	Box     common.Box
}

type pendingQuery struct {
	id  uint32
	box common.Box
}

// Recorder is an in-memory Device. It keeps the commands of the current frame, the last
// contents of every buffer and resolves occlusion queries on the following read, which
// lets the renderer run headless.
type Recorder struct {
	mu sync.Mutex

	log        *logger.Logger
	width      int
	height     int
	occlusion  bool
	visible    func(box common.Box) bool
	frameError error

	commands    []Command
	buffers     [NumBufferKinds][]byte
	textures    map[TextureHandle]common.Rect
	nextTexture TextureHandle
	nextQuery   uint32
	pending     []pendingQuery
	inPass      bool
	frames      int
	drawCalls   int
}

var _ Device = &Recorder{}

// NewRecorder creates a recording device.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Recorder: the device
func NewRecorder(options ...RecorderBuilderOption) *Recorder {
	r := &Recorder{
		width:     1280,
		height:    720,
		occlusion: true,
		visible:   func(common.Box) bool { return true },
		textures:  make(map[TextureHandle]common.Rect),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Recorder) Name() string {
	return "recorder"
}

func (r *Recorder) SupportsOcclusionQueries() bool {
	return r.occlusion
}

func (r *Recorder) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width = width
	r.height = height
}

func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *Recorder) CreateDepthTexture(label string, width, height int) (TextureHandle, error) {
	if width <= 0 || height <= 0 {
		return NoTexture, fmt.Errorf("gpu: texture %q has invalid size %dx%d", label, width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTexture++
	r.textures[r.nextTexture] = common.NewRect(0, 0, width, height)
	r.log.Debug("depth texture created", "label", label, "handle", r.nextTexture, "width", width, "height", height)
	return r.nextTexture, nil
}

func (r *Recorder) ReleaseTexture(handle TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.textures, handle)
}

func (r *Recorder) WriteBuffer(kind BufferKind, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers[kind] = append(r.buffers[kind][:0], data...)
	r.record(Command{Kind: CmdWriteBuffer, Buffer: kind, Size: len(data)})
}

func (r *Recorder) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frameError != nil {
		return fmt.Errorf("%w: %w", ErrDeviceLost, r.frameError)
	}
	clear(r.commands)
	r.commands = r.commands[:0]
	r.drawCalls = 0
	r.record(Command{Kind: CmdBeginFrame})
	return nil
}

func (r *Recorder) BeginShadowPass(target TextureHandle, pass ShadowPass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginPass()
	r.record(Command{Kind: CmdBeginShadowPass, Target: target, Shadow: pass, Region: pass.Viewport, Clear: pass.Clear})
}

func (r *Recorder) CopyDepth(src, dst TextureHandle, region common.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inPass {
		panic("gpu: copy inside a pass")
	}
	r.record(Command{Kind: CmdCopyDepth, Source: src, Target: dst, Region: region})
}

func (r *Recorder) BeginMainPass(clear bool, clearColor [4]float32, shadowMaps []TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginPass()
	r.record(Command{Kind: CmdBeginMainPass, Clear: clear})
}

func (r *Recorder) Draw(b *batch.Batch, instanceBase int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requirePass()
	r.drawCalls++
	r.record(Command{Kind: CmdDraw, Batch: *b, InstanceBase: instanceBase, Instances: b.InstanceCount()})
}

func (r *Recorder) SetSkinMatrices(matrices []common.Mat4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Command{Kind: CmdSkinMatrices, Size: len(matrices)})
}

func (r *Recorder) DrawOcclusionBox(box common.Box) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requirePass()
	if !r.occlusion {
		return 0
	}
	r.nextQuery++
	if r.nextQuery == 0 {
		r.nextQuery = 1
	}
	r.pending = append(r.pending, pendingQuery{id: r.nextQuery, box: box})
	r.record(Command{Kind: CmdOcclusionBox, QueryID: r.nextQuery, Box: box})
	return r.nextQuery
}

func (r *Recorder) EndPass() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requirePass()
	r.inPass = false
	r.record(Command{Kind: CmdEndPass})
}

func (r *Recorder) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inPass {
		panic("gpu: frame ended inside a pass")
	}
	r.frames++
	r.record(Command{Kind: CmdEndFrame})
	return nil
}

func (r *Recorder) ReadOcclusionResults(fn func(id uint32, visible bool)) {
	r.mu.Lock()
	pending := slices.Clone(r.pending)
	r.pending = r.pending[:0]
	visible := r.visible
	r.mu.Unlock()

	for _, q := range pending {
		fn(q.id, visible(q.box))
	}
}

func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.textures)
	r.pending = nil
}

func (r *Recorder) record(c Command) {
	r.commands = append(r.commands, c)
}

func (r *Recorder) beginPass() {
	if r.inPass {
		panic("gpu: pass started inside a pass")
	}
	r.inPass = true
}

func (r *Recorder) requirePass() {
	if !r.inPass {
		panic("gpu: draw outside a pass")
	}
}

// Commands returns a copy of the commands recorded since the last BeginFrame.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// CommandsOf returns the recorded commands of one kind.
func (r *Recorder) CommandsOf(kind CommandKind) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Command
	for _, c := range r.commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// DrawCalls returns the number of draws recorded since the last BeginFrame.
func (r *Recorder) DrawCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawCalls
}

// Frames returns the number of completed frames.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Buffer returns the last data written to a buffer.
func (r *Recorder) Buffer(kind BufferKind) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.buffers[kind])
}

// NumTextures returns the number of live textures.
func (r *Recorder) NumTextures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}

// SetVisibility replaces the function deciding occlusion query results.
func (r *Recorder) SetVisibility(fn func(box common.Box) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = fn
}

// SetFrameError makes BeginFrame fail with err until it is reset with nil.
func (r *Recorder) SetFrameError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameError = err
}
