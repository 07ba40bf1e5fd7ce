package renderer

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/light"
)

// Stats summarizes one prepared and rendered view.
type Stats struct {
	Frame            uint32
	RootOctants      int
	Lights           int
	DirLight         bool
	Opaque           int
	Alpha            int
	Draws            int
	InstancedDraws   int
	Instances        int
	InstanceOverflow int
	ClusterOverflow  int
	OcclusionQueries int

	// ShadowViews counts the views prepared this frame per light.RenderMode.
	ShadowViews  [4]int
	ShadowFailed int

	PrepareTime time.Duration
}

// LogValue groups the statistics into one structured log attribute.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("frame", s.Frame),
		slog.Int("rootOctants", s.RootOctants),
		slog.Int("lights", s.Lights),
		slog.Bool("dirLight", s.DirLight),
		slog.Int("opaque", s.Opaque),
		slog.Int("alpha", s.Alpha),
		slog.Int("draws", s.Draws),
		slog.Int("instancedDraws", s.InstancedDraws),
		slog.Int("instances", s.Instances),
		slog.Int("occlusionQueries", s.OcclusionQueries),
		slog.Group("shadowViews",
			slog.Int(light.RenderDynamicLight.String(), s.ShadowViews[light.RenderDynamicLight]),
			slog.Int(light.RenderStaticLightStoreStatic.String(), s.ShadowViews[light.RenderStaticLightStoreStatic]),
			slog.Int(light.RenderStaticLightRestoreStatic.String(), s.ShadowViews[light.RenderStaticLightRestoreStatic]),
			slog.Int(light.RenderStaticLightCached.String(), s.ShadowViews[light.RenderStaticLightCached]),
		),
		slog.Duration("prepare", s.PrepareTime),
	)
}

var _ slog.LogValuer = Stats{}
