package main

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/capture"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

const (
	orbitSensitivity = 0.005
	keyOrbitStep     = 0.05
)

// titledWindow defers title changes to PollEvents, which runs on the main thread.
type titledWindow struct {
	window.Window
	title atomic.Pointer[string]
}

func (w *titledWindow) setTitle(title string) {
	w.title.Store(&title)
}

func (w *titledWindow) PollEvents() bool {
	if t := w.title.Swap(nil); t != nil {
		w.Window.SetTitle(*t)
	}
	return w.Window.PollEvents()
}

// controls maps input to engine settings and camera motion and writes captures.
type controls struct {
	log     *logger.Logger
	engine  engine.Engine
	orbit   camera.Controller
	capture config.CaptureConfig

	captureNext atomic.Bool
	pickNext    atomic.Bool
}

func newControls(e engine.Engine, orbit camera.Controller, cc config.CaptureConfig, log *logger.Logger) *controls {
	return &controls{log: log, engine: e, orbit: orbit, capture: cc}
}

func (c *controls) bind(w window.Window) {
	w.SetKeyCallback(c.key)
	w.SetScrollCallback(func(delta float32) {
		c.orbit.Zoom(delta)
	})
	w.SetDragCallback(func(dx, dy float32) {
		c.orbit.Orbit(-dx*orbitSensitivity, dy*orbitSensitivity)
	})
}

func (c *controls) key(k window.Key, pressed bool) {
	if !pressed {
		return
	}
	shadows, occlusion := c.engine.RenderOptions()
	switch k {
	case window.KeyF1:
		c.engine.SetRenderOptions(!shadows, occlusion)
		c.log.Info("shadows toggled", "enabled", !shadows)
	case window.KeyF2:
		c.engine.SetRenderOptions(shadows, !occlusion)
		c.log.Info("occlusion toggled", "enabled", !occlusion)
	case window.KeyF12:
		c.captureNext.Store(true)
	case window.KeyP:
		c.pickNext.Store(true)
	case window.KeyA:
		c.orbit.Orbit(-keyOrbitStep, 0)
	case window.KeyD:
		c.orbit.Orbit(keyOrbitStep, 0)
	case window.KeyW:
		c.orbit.Orbit(0, keyOrbitStep)
	case window.KeyS:
		c.orbit.Orbit(0, -keyOrbitStep)
	case window.KeyQ:
		c.orbit.Zoom(-1)
	case window.KeyE:
		c.orbit.Zoom(1)
	}
}

// afterFrame runs requested picks and writes a capture when the configured frame is
// reached or one was requested. It runs on the frame goroutine, between octree updates.
func (c *controls) afterFrame(name string, vr renderer.ViewRenderer) {
	if c.pickNext.Swap(false) {
		c.pick()
	}
	frame := c.engine.Frames()
	scheduled := c.capture.Path != "" && frame == uint64(max(c.capture.Frame, 1))
	if !c.captureNext.Swap(false) && !scheduled {
		return
	}
	path := c.capture.Path
	if path == "" || !scheduled {
		path = fmt.Sprintf("%s-%d.oxycap", name, frame)
	}
	if err := capture.FromView(name, vr).WriteFile(path); err != nil {
		c.log.Error("capture failed", "path", path, "error", err)
		return
	}
	c.log.Info("frame captured", "path", path, "frame", frame)
}

// pick logs the nearest geometry under the screen center.
func (c *controls) pick() {
	ray := c.engine.Camera().ScreenRay(0.5, 0.5)
	hit, ok := c.engine.Scene().Octree().RaycastSingle(ray, c.engine.Camera().Far(), drawable.FlagGeometry)
	if !ok {
		c.log.Info("pick: nothing under the cursor")
		return
	}
	c.log.Info("pick", "id", hit.Drawable.DrawableBase().ID(), "distance", hit.Distance, "position", hit.Position)
}
