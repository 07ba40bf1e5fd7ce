package engine

import (
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger for lifecycle and failure messages.
//
// Parameters:
//   - l: the logger, may be nil
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *logger.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.log = l
	}
}

// WithWindow sets the window whose events are pumped by Run. Without a window the engine
// runs headless.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice sets the device resized when the window framebuffer changes size.
//
// Parameters:
//   - d: the device the renderer draws with
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d gpu.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithProfiler ticks p once per rendered frame.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithRenderOptions sets the initial shadow and occlusion toggles. Shadows default to on
// and occlusion to off.
//
// Parameters:
//   - drawShadows: render shadow maps
//   - useOcclusion: use hardware occlusion queries
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderOptions(drawShadows, useOcclusion bool) EngineBuilderOption {
	return func(e *engine) {
		e.drawShadows.Store(drawShadows)
		e.useOcclusion.Store(useOcclusion)
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit.Store(int64(frameDuration(fps)))
	}
}

// WithMaxFrames stops Run after n frames. Zero runs until stopped.
//
// Parameters:
//   - n: the number of frames
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithFixedTimeStep makes every frame advance by dt instead of the measured wall time.
//
// Parameters:
//   - dt: seconds per frame, ignored when not positive
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFixedTimeStep(dt float32) EngineBuilderOption {
	return func(e *engine) {
		if dt > 0 {
			e.fixedStep = dt
		}
	}
}
