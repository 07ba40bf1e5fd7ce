package profiler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	calls := 0
	p := NewProfiler(
		WithInterval(time.Second),
		WithRendererStats(func() renderer.Stats {
			calls++
			return renderer.Stats{Frame: 42, Draws: 7}
		}),
	)
	p.cpuPercent = func() (float64, error) { return 12.5, nil }
	start := p.lastTime

	for i := 1; i < 30; i++ {
		require.False(t, p.tick(start.Add(time.Duration(i)*10*time.Millisecond)))
	}
	assert.Zero(t, calls)

	require.True(t, p.tick(start.Add(1500*time.Millisecond)))
	s := p.Last()
	assert.InDelta(t, 20, s.FPS, 1e-9)
	assert.Equal(t, 12.5, s.CPUPercent)
	assert.Equal(t, uint32(42), s.Render.Frame)
	assert.Equal(t, 7, s.Render.Draws)
	assert.Positive(t, s.SysMB)
	assert.Equal(t, 1, calls)

	assert.False(t, p.tick(start.Add(1600*time.Millisecond)), "the interval restarts")
}

func TestCPUUnavailable(t *testing.T) {
	p := NewProfiler(WithInterval(time.Millisecond))
	p.cpuPercent = func() (float64, error) { return 0, errors.New("unsupported") }
	require.True(t, p.tick(p.lastTime.Add(time.Second)))
	assert.Equal(t, float64(-1), p.Last().CPUPercent)
	assert.Zero(t, p.Last().Render)
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
}
