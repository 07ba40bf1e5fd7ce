package cluster

import "github.com/Carmen-Shannon/oxy-render/engine/logger"

// GridBuilderOption is a functional option for configuring a Grid.
type GridBuilderOption func(*Grid)

// WithLogger sets the logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - GridBuilderOption: option function to apply
func WithLogger(l *logger.Logger) GridBuilderOption {
	return func(g *Grid) {
		g.log = l
	}
}
