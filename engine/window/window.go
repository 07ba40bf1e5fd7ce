package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

// Window is a desktop window providing a WebGPU surface and viewer input.
// Events are delivered from PollEvents on the goroutine that created the window.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback sets the function called when a key is pressed or released.
	// Escape is handled by the window and closes it.
	//
	// Parameters:
	//   - callback: function receiving the key and whether it is now held
	SetKeyCallback(callback func(key Key, pressed bool))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in)
	SetScrollCallback(callback func(delta float32))

	// SetDragCallback sets the callback for cursor motion while the left or middle
	// button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels
	SetDragCallback(callback func(dx, dy float32))

	// SetTitle replaces the title bar text.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// SurfaceDescriptor returns the platform surface description for wgpu.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, nil if the window was closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Size returns the framebuffer size in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	Size() (int, int)

	// IsRunning reports whether the window is open.
	//
	// Returns:
	//   - bool: false once the user or Close closed the window
	IsRunning() bool

	// PollEvents dispatches pending events without blocking.
	//
	// Returns:
	//   - bool: whether the window is still running
	PollEvents() bool

	// Close destroys the window.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error
}

type engineWindow struct {
	log *logger.Logger

	title     string
	width     int
	height    int
	minWidth  int
	minHeight int

	internalWindow *glfwWindow
	drag           dragState

	onResize func(width, height int)
	onKey    func(key Key, pressed bool)
	onScroll func(delta float32)
	onDrag   func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window. Must be called from the main goroutine.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window
//   - error: platform initialization failure
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-render",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 200,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	w.log.Info("window created", "title", w.title, "width", w.width, "height", w.height)
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key Key, pressed bool)) {
	w.onKey = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) PollEvents() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

// resized records a framebuffer size change and forwards it when both sides are usable.
func (w *engineWindow) resized(width, height int) {
	if width <= 0 || height <= 0 {
		// minimized
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// dragState turns absolute cursor positions into deltas while a button is held.
type dragState struct {
	held  int
	valid bool
	x, y  float64
}

func (d *dragState) press() {
	d.held++
	d.valid = false
}

func (d *dragState) release() {
	d.held = max(d.held-1, 0)
}

// move returns the motion since the previous position, reporting false when no button
// is held or this is the first position after a press.
func (d *dragState) move(x, y float64) (float32, float32, bool) {
	if d.held == 0 {
		return 0, 0, false
	}
	dx, dy, ok := float32(x-d.x), float32(y-d.y), d.valid
	d.x, d.y, d.valid = x, y, true
	return dx, dy, ok
}
