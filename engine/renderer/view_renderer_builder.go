package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

var errInvalidShadowMapSize = errors.New("renderer: shadow map sizes must be positive")

// ViewRendererBuilderOption is a functional option applied to a view renderer during construction via NewViewRenderer.
type ViewRendererBuilderOption func(*viewRenderer)

// WithLogger sets the logger used for frame diagnostics.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ViewRendererBuilderOption: a function that applies the logger option to a view renderer
func WithLogger(l *logger.Logger) ViewRendererBuilderOption {
	return func(r *viewRenderer) {
		r.log = l
	}
}

// WithInstanceCapacity sets the number of instance transforms the opaque queue may use per frame.
// Runs that do not fit are drawn as individual static batches.
//
// Parameters:
//   - capacity: the per-frame instance capacity
//
// Returns:
//   - ViewRendererBuilderOption: a function that applies the capacity option to a view renderer
func WithInstanceCapacity(capacity int) ViewRendererBuilderOption {
	return func(r *viewRenderer) {
		if capacity > 0 {
			r.instanceCapacity = capacity
		}
	}
}

// WithClearColor sets the color the opaque pass clears the framebuffer to.
//
// Parameters:
//   - color: RGBA clear color
//
// Returns:
//   - ViewRendererBuilderOption: a function that applies the clear color option to a view renderer
func WithClearColor(color [4]float32) ViewRendererBuilderOption {
	return func(r *viewRenderer) {
		r.clearColor = color
	}
}
