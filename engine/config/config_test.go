package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTOML(t *testing.T) {
	data := []byte(`
workers = 4

[renderer]
draw_shadows = false
light_atlas_size = 3000

[scene]
cubes = 12
`)
	cfg, err := Decode(data, ".toml")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.Renderer.DrawShadows)
	assert.Equal(t, 2048, cfg.Renderer.LightAtlasSize)
	assert.Equal(t, 12, cfg.Scene.Cubes)
	// untouched fields keep defaults
	assert.Equal(t, Default().Renderer.DirShadowMapSize, cfg.Renderer.DirShadowMapSize)
}

func TestDecodeYAML(t *testing.T) {
	data := []byte("workers: 64\nrenderer:\n  use_occlusion: false\nscene:\n  lights: 1000\n")
	cfg, err := Decode(data, ".yml")
	require.NoError(t, err)
	assert.Equal(t, MaxWorkers, cfg.Workers)
	assert.False(t, cfg.Renderer.UseOcclusion)
	assert.Equal(t, 255, cfg.Scene.Lights)
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode([]byte("{}"), ".json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 16)
	require.NoError(t, Watch(ctx, path, nil, func(c Config) { got <- c }))
	require.NoError(t, os.WriteFile(path, []byte("workers = 3\n"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			// a truncated intermediate write may decode first
			if c.Workers == 3 {
				return
			}
		case <-timeout:
			t.Fatal("no reload observed")
		}
	}
}
