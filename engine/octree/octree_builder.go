package octree

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

// OctreeBuilderOption is a functional option for configuring an Octree during construction.
type OctreeBuilderOption func(*octreeImpl)

// WithBounds sets the root octant bounds.
//
// Parameters:
//   - box: the world-space bounds
//
// Returns:
//   - OctreeBuilderOption: functional option to set the bounds
func WithBounds(box common.Box) OctreeBuilderOption {
	return func(o *octreeImpl) {
		o.initialBox = box
	}
}

// WithLevels sets the number of subdivision levels.
//
// Parameters:
//   - levels: subdivision depth, clamped to [1, MaxLevels]
//
// Returns:
//   - OctreeBuilderOption: functional option to set the depth
func WithLevels(levels int) OctreeBuilderOption {
	return func(o *octreeImpl) {
		o.initialLevels = levels
	}
}

// WithLogger sets the logger for structural events.
//
// Parameters:
//   - l: the logger, may be nil
//
// Returns:
//   - OctreeBuilderOption: functional option to set the logger
func WithLogger(l *logger.Logger) OctreeBuilderOption {
	return func(o *octreeImpl) {
		o.log = l
	}
}
