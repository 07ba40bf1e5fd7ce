package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// Window is the part of a desktop window the engine drives. window.Window satisfies it.
type Window interface {
	SetResizeCallback(callback func(width, height int))
	PollEvents() bool
}

// windowPollInterval is how often window events are polled while the frame loop runs.
const windowPollInterval = 2 * time.Millisecond

// Engine runs the frame loop: tick, scene update, view preparation and rendering, one
// frame at a time on a dedicated goroutine while the calling goroutine pumps window events.
type Engine interface {
	// Scene returns the rendered scene.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Renderer returns the view renderer.
	//
	// Returns:
	//   - renderer.ViewRenderer: the renderer
	Renderer() renderer.ViewRenderer

	// Camera returns the view camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// SetTickCallback registers the function called at the start of every frame, before
	// the scene update. Use it for game logic and camera movement.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called after every rendered frame, while the
	// prepared view is still valid.
	//
	// Parameters:
	//   - callback: function receiving the renderer
	SetFrameCallback(callback func(vr renderer.ViewRenderer))

	// SetRenderOptions toggles shadows and occlusion culling from the next frame on.
	// Safe to call from any goroutine.
	//
	// Parameters:
	//   - drawShadows: render shadow maps
	//   - useOcclusion: use hardware occlusion queries
	SetRenderOptions(drawShadows, useOcclusion bool)

	// RenderOptions returns the current shadow and occlusion toggles.
	//
	// Returns:
	//   - bool: drawShadows
	//   - bool: useOcclusion
	RenderOptions() (bool, bool)

	// SetRenderFrameLimit sets an optional frame rate cap. Pass 0 to uncap.
	//
	// Parameters:
	//   - fps: maximum frames per second
	SetRenderFrameLimit(fps float64)

	// Frames returns the number of frames rendered so far.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Run blocks until the window closes, the frame limit is reached, Quit is called or
	// ctx is cancelled. Window events are polled on the calling goroutine.
	//
	// Parameters:
	//   - ctx: cancels the run
	//
	// Returns:
	//   - error: a render failure or a recovered panic from the frame loop
	Run(ctx context.Context) error

	// Quit stops the frame loop after the current frame. Safe to call multiple times.
	Quit()
}

type engine struct {
	log      *logger.Logger
	scene    scene.Scene
	renderer renderer.ViewRenderer
	camera   camera.Camera
	device   gpu.Device
	window   Window
	profiler *profiler.Profiler

	drawShadows  atomic.Bool
	useOcclusion atomic.Bool
	// pendingSize packs the latest framebuffer size as width<<32 | height, 0 when unchanged.
	pendingSize atomic.Uint64
	frameLimit  atomic.Int64
	frames      atomic.Uint64

	maxFrames uint64
	fixedStep float32

	tickCallback  func(deltaTime float32)
	frameCallback func(vr renderer.ViewRenderer)

	quit     chan struct{}
	quitOnce sync.Once
}

var _ Engine = &engine{}

// NewEngine creates an engine rendering sc through vr from cam.
//
// Parameters:
//   - sc: the scene, updated once per frame
//   - vr: the view renderer
//   - cam: the view camera
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(sc scene.Scene, vr renderer.ViewRenderer, cam camera.Camera, options ...EngineBuilderOption) Engine {
	if sc == nil || vr == nil || cam == nil {
		panic("engine: scene, renderer and camera are required")
	}
	e := &engine{
		scene:    sc,
		renderer: vr,
		camera:   cam,
		quit:     make(chan struct{}),
	}
	e.drawShadows.Store(true)
	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if width > 0 && height > 0 {
				e.pendingSize.Store(uint64(width)<<32 | uint64(uint32(height)))
			}
		})
	}
	return e
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Renderer() renderer.ViewRenderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetFrameCallback(callback func(vr renderer.ViewRenderer)) {
	e.frameCallback = callback
}

func (e *engine) SetRenderOptions(drawShadows, useOcclusion bool) {
	e.drawShadows.Store(drawShadows)
	e.useOcclusion.Store(useOcclusion)
	e.log.Info("render options changed", "drawShadows", drawShadows, "useOcclusion", useOcclusion)
}

func (e *engine) RenderOptions() (bool, bool) {
	return e.drawShadows.Load(), e.useOcclusion.Load()
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.frameLimit.Store(int64(frameDuration(fps)))
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

// Quit closes the quit channel once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

func (e *engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.frameLoop(ctx)
	})
	if e.window != nil {
		e.pollWindow(ctx)
	}
	return g.Wait()
}

// pollWindow pumps window events until the window closes or the frame loop stops.
func (e *engine) pollWindow(ctx context.Context) {
	ticker := time.NewTicker(windowPollInterval)
	defer ticker.Stop()
	for {
		if !e.window.PollEvents() {
			e.log.Info("window closed, stopping")
			e.Quit()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case <-ticker.C:
		}
	}
}

// frameLoop renders frames until stopped. A panic inside a frame is recovered, logged and
// returned as an error so the process can shut down cleanly.
func (e *engine) frameLoop(ctx context.Context) (err error) {
	defer e.Quit()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("frame loop recovered from panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("engine: frame loop panic: %v", r)
		}
	}()

	lastFrame := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quit:
			return nil
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(lastFrame).Seconds())
		if e.fixedStep > 0 {
			dt = e.fixedStep
		}
		lastFrame = start

		if err := e.frame(dt); err != nil {
			e.log.Error("frame failed", "frame", e.frames.Load(), "error", err)
			return err
		}
		if e.maxFrames > 0 && e.frames.Load() >= e.maxFrames {
			e.log.Info("frame limit reached", "frames", e.maxFrames)
			return nil
		}

		if limit := time.Duration(e.frameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frame runs one complete frame.
func (e *engine) frame(dt float32) error {
	if size := e.pendingSize.Swap(0); size != 0 {
		width, height := int(size>>32), int(uint32(size))
		if e.device != nil {
			e.device.Resize(width, height)
		}
		e.camera.SetAspect(float32(width) / float32(height))
		e.log.Debug("resized", "width", width, "height", height)
	}

	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
	e.scene.Update(dt)
	e.renderer.PrepareView(e.scene, e.camera, e.drawShadows.Load(), e.useOcclusion.Load(), dt)
	if err := e.renderer.Render(); err != nil {
		return fmt.Errorf("engine: render: %w", err)
	}
	e.frames.Add(1)

	if e.frameCallback != nil {
		e.frameCallback(e.renderer)
	}
	if e.profiler != nil {
		e.profiler.Tick()
	}
	return nil
}
