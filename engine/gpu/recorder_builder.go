package gpu

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

// RecorderBuilderOption is a functional option for configuring a Recorder.
type RecorderBuilderOption func(*Recorder)

// WithSize sets the render target size.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - RecorderBuilderOption: option function to apply
func WithSize(width, height int) RecorderBuilderOption {
	return func(r *Recorder) {
		r.width = width
		r.height = height
	}
}

// WithOcclusionQueries enables or disables occlusion query support.
//
// Parameters:
//   - enabled: whether queries are supported
//
// Returns:
//   - RecorderBuilderOption: option function to apply
func WithOcclusionQueries(enabled bool) RecorderBuilderOption {
	return func(r *Recorder) {
		r.occlusion = enabled
	}
}

// WithVisibility sets the function deciding occlusion query results.
//
// Parameters:
//   - fn: returns whether a queried box is visible
//
// Returns:
//   - RecorderBuilderOption: option function to apply
func WithVisibility(fn func(box common.Box) bool) RecorderBuilderOption {
	return func(r *Recorder) {
		r.visible = fn
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RecorderBuilderOption: option function to apply
func WithLogger(l *logger.Logger) RecorderBuilderOption {
	return func(r *Recorder) {
		r.log = l
	}
}
