package wgpu_device

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

// DeviceBuilderOption is a functional option for configuring the wgpu Device.
// Use the With* functions to create options.
type DeviceBuilderOption func(*wgpuDeviceImpl)

// WithLogger sets the logger used for device errors and pipeline creation.
//
// Parameters:
//   - l: the logger, may be nil
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLogger(l *logger.Logger) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.log = l
	}
}

// WithVSync selects FIFO presentation instead of the default immediate mode.
//
// Parameters:
//   - enabled: true to wait for vertical blank
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		if enabled {
			d.presentMode = wgpu.PresentModeFifo
		} else {
			d.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithInstanceCapacity sets how many instance transforms the instance region of the
// transform buffer holds. It should match the renderer's instance capacity plus the
// instances of both shadow maps.
//
// Parameters:
//   - n: the number of transforms
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithInstanceCapacity(n int) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		if n > 0 {
			d.instanceCapacity = n
		}
	}
}

// WithPipelineCacheSize bounds the number of cached render pipelines.
//
// Parameters:
//   - n: the cache size
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithPipelineCacheSize(n int) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		if n > 0 {
			d.pipelineCacheSize = n
		}
	}
}

// WithFallbackAdapter forces the software adapter.
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithFallbackAdapter() DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.forceFallback = true
	}
}
