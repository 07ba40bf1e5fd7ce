package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

type harness struct {
	dev *gpu.Recorder
	sc  scene.Scene
	vr  renderer.ViewRenderer
	cam camera.Camera
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	wq := work_queue.NewWorkQueue(work_queue.WithWorkers(2))
	h := &harness{
		dev: gpu.NewRecorder(gpu.WithSize(640, 480)),
		sc:  scene.NewScene("engine", wq, scene.WithComputeWorkers(1)),
		cam: camera.NewCamera(camera.WithPosition(common.Vec3{0, 0, 10}), camera.WithAspect(1)),
	}
	h.vr = renderer.NewViewRenderer(h.dev, wq)
	h.sc.Add(game_object.NewGameObject(
		game_object.WithDrawables(game_object.NewStaticModel(model.NewBoxModel("cube", common.Vec3{0.5, 0.5, 0.5}))),
	))
	t.Cleanup(func() {
		h.vr.Release()
		h.sc.Close()
		wq.Close()
	})
	return h
}

// fakeWindow reports a resize on its first poll and closes after a number of polls.
type fakeWindow struct {
	onResize func(width, height int)
	polls    atomic.Int32
	closeAt  int32
}

func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *fakeWindow) PollEvents() bool {
	n := w.polls.Add(1)
	if n == 1 && w.onResize != nil {
		w.onResize(800, 400)
	}
	return w.closeAt == 0 || n < w.closeAt
}

func TestNewEnginePanicsWithoutScene(t *testing.T) {
	h := newHarness(t)
	assert.Panics(t, func() { NewEngine(nil, h.vr, h.cam) })
	assert.Panics(t, func() { NewEngine(h.sc, nil, h.cam) })
	assert.Panics(t, func() { NewEngine(h.sc, h.vr, nil) })
}

func TestRunHeadlessFrameLimit(t *testing.T) {
	h := newHarness(t)
	var ticks, rendered int
	e := NewEngine(h.sc, h.vr, h.cam, WithMaxFrames(5), WithFixedTimeStep(0.01))
	e.SetTickCallback(func(dt float32) {
		assert.Equal(t, float32(0.01), dt)
		ticks++
	})
	e.SetFrameCallback(func(vr renderer.ViewRenderer) {
		rendered++
		assert.Equal(t, 1, vr.OpaqueQueue().Len())
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(5), e.Frames())
	assert.Equal(t, 5, ticks)
	assert.Equal(t, 5, rendered)
	assert.Equal(t, 5, h.dev.Frames())
	assert.Equal(t, uint32(5), h.sc.FrameNumber())
}

func TestRunReturnsRenderError(t *testing.T) {
	h := newHarness(t)
	h.dev.SetFrameError(errors.New("surface lost"))
	e := NewEngine(h.sc, h.vr, h.cam)

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)
	assert.Zero(t, e.Frames())
}

func TestRunRecoversPanic(t *testing.T) {
	h := newHarness(t)
	e := NewEngine(h.sc, h.vr, h.cam)
	e.SetTickCallback(func(float32) { panic("boom") })

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestQuitAndCancel(t *testing.T) {
	h := newHarness(t)
	e := NewEngine(h.sc, h.vr, h.cam, WithRenderFrameLimit(500))
	e.SetFrameCallback(func(renderer.ViewRenderer) {
		if e.Frames() == 3 {
			e.Quit()
		}
	})
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.Frames())
	e.Quit()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	e2 := NewEngine(h.sc, h.vr, h.cam, WithRenderFrameLimit(200))
	require.NoError(t, e2.Run(ctx))
}

func TestWindowResizeAndClose(t *testing.T) {
	h := newHarness(t)
	w := &fakeWindow{closeAt: 50}
	e := NewEngine(h.sc, h.vr, h.cam, WithWindow(w), WithDevice(h.dev), WithRenderFrameLimit(1000))

	require.NoError(t, e.Run(context.Background()))
	assert.GreaterOrEqual(t, w.polls.Load(), int32(50))
	width, height := h.dev.Size()
	if e.(*engine).pendingSize.Load() == 0 {
		assert.Equal(t, 800, width)
		assert.Equal(t, 400, height)
		assert.InDelta(t, 2, h.cam.Aspect(), 1e-6)
	}
}

func TestRenderOptions(t *testing.T) {
	h := newHarness(t)
	e := NewEngine(h.sc, h.vr, h.cam)
	shadows, occlusion := e.RenderOptions()
	assert.True(t, shadows)
	assert.False(t, occlusion)

	e.SetRenderOptions(false, true)
	shadows, occlusion = e.RenderOptions()
	assert.False(t, shadows)
	assert.True(t, occlusion)

	e2 := NewEngine(h.sc, h.vr, h.cam, WithRenderOptions(false, false))
	shadows, _ = e2.RenderOptions()
	assert.False(t, shadows)
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Zero(t, frameDuration(-5))
	assert.Equal(t, 10*time.Millisecond, frameDuration(100))
}
