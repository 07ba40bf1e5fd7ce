package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
// Use the With* functions to create options.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger samples are written to.
//
// Parameters:
//   - l: the logger, may be nil to only keep the last sample
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(l *logger.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.log = l
	}
}

// WithInterval sets how often a sample is taken.
//
// Parameters:
//   - d: the interval, ignored when not positive
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithRendererStats adds the statistics of the last rendered frame to every sample.
//
// Parameters:
//   - fn: returns the current statistics, typically ViewRenderer.Stats
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithRendererStats(fn func() renderer.Stats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = fn
	}
}
