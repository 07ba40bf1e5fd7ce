package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Load for files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// MaxWorkers caps the task scheduler's worker count.
const MaxWorkers = 8

// WindowConfig describes the output window.
type WindowConfig struct {
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`
}

// RendererConfig holds view renderer settings.
type RendererConfig struct {
	DrawShadows      bool    `toml:"draw_shadows" yaml:"draw_shadows"`
	UseOcclusion     bool    `toml:"use_occlusion" yaml:"use_occlusion"`
	DirShadowMapSize int     `toml:"dir_shadow_map_size" yaml:"dir_shadow_map_size"`
	LightAtlasSize   int     `toml:"light_atlas_size" yaml:"light_atlas_size"`
	InstanceCapacity int     `toml:"instance_capacity" yaml:"instance_capacity"`
	ShadowDepthBias  float32 `toml:"shadow_depth_bias" yaml:"shadow_depth_bias"`
	ShadowSlopeBias  float32 `toml:"shadow_slope_bias" yaml:"shadow_slope_bias"`
}

// SceneConfig controls the demo scene and the octree bounds.
type SceneConfig struct {
	OctreeSize     float32 `toml:"octree_size" yaml:"octree_size"`
	OctreeLevels   int     `toml:"octree_levels" yaml:"octree_levels"`
	Cubes          int     `toml:"cubes" yaml:"cubes"`
	Lights         int     `toml:"lights" yaml:"lights"`
	ComputeWorkers int     `toml:"compute_workers" yaml:"compute_workers"`
}

// ProfilerConfig controls periodic statistics logging.
type ProfilerConfig struct {
	Enabled  bool    `toml:"enabled" yaml:"enabled"`
	Interval float64 `toml:"interval" yaml:"interval"` // seconds
}

// CaptureConfig selects a frame to dump to disk.
type CaptureConfig struct {
	Path  string `toml:"path" yaml:"path"`
	Frame int    `toml:"frame" yaml:"frame"`
}

// Config is the complete render configuration.
type Config struct {
	Workers  int            `toml:"workers" yaml:"workers"`
	LogLevel string         `toml:"log_level" yaml:"log_level"`
	LogDir   string         `toml:"log_dir" yaml:"log_dir"`
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Scene    SceneConfig    `toml:"scene" yaml:"scene"`
	Profiler ProfilerConfig `toml:"profiler" yaml:"profiler"`
	Capture  CaptureConfig  `toml:"capture" yaml:"capture"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: default settings
func Default() Config {
	return Config{
		Workers:  max(runtime.NumCPU()-1, 1),
		LogLevel: "info",
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "oxy-render",
		},
		Renderer: RendererConfig{
			DrawShadows:      true,
			UseOcclusion:     true,
			DirShadowMapSize: 2048,
			LightAtlasSize:   4096,
			InstanceCapacity: 65536,
			ShadowDepthBias:  0.001,
			ShadowSlopeBias:  1.5,
		},
		Scene: SceneConfig{
			OctreeSize:     1000,
			OctreeLevels:   8,
			Cubes:          10000,
			Lights:         64,
			ComputeWorkers: max(runtime.NumCPU()-1, 1),
		},
		Profiler: ProfilerConfig{
			Enabled:  true,
			Interval: 1,
		},
	}
}

// Load reads a configuration file, choosing the decoder from its extension.
// Fields absent from the file keep their Default values.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - Config: the validated configuration
//   - error: ErrUnsupportedFormat, or a wrapped read/decode error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses data in the format named by ext (".toml", ".yaml" or ".yml").
//
// Parameters:
//   - data: the raw file contents
//   - ext: the file extension including the dot
//
// Returns:
//   - Config: the validated configuration
//   - error: ErrUnsupportedFormat, or a wrapped decode error
func Decode(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate clamps out-of-range values in place.
func (c *Config) Validate() {
	c.Workers = min(max(c.Workers, 0), MaxWorkers)
	c.Window.Width = max(c.Window.Width, 1)
	c.Window.Height = max(c.Window.Height, 1)
	c.Renderer.DirShadowMapSize = clampPow2(c.Renderer.DirShadowMapSize, 256, 8192)
	c.Renderer.LightAtlasSize = clampPow2(c.Renderer.LightAtlasSize, 256, 8192)
	c.Renderer.InstanceCapacity = max(c.Renderer.InstanceCapacity, 1024)
	if c.Scene.OctreeSize <= 0 {
		c.Scene.OctreeSize = Default().Scene.OctreeSize
	}
	c.Scene.OctreeLevels = min(max(c.Scene.OctreeLevels, 1), 16)
	c.Scene.Cubes = max(c.Scene.Cubes, 0)
	c.Scene.Lights = min(max(c.Scene.Lights, 0), 255)
	c.Scene.ComputeWorkers = max(c.Scene.ComputeWorkers, 1)
	if c.Profiler.Interval <= 0 {
		c.Profiler.Interval = 1
	}
}

// clampPow2 rounds v down to a power of two within [lo, hi].
func clampPow2(v, lo, hi int) int {
	v = min(max(v, lo), hi)
	p := lo
	for p*2 <= v {
		p *= 2
	}
	return p
}
