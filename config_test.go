package gizmo

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/gizmo/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gizmo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, core.Viewport{Width: 800, Height: 600}, cfg.Viewport)
	assert.Equal(t, float32(0.5), cfg.SamplingDensity)
	assert.Equal(t, 10, cfg.SampleSize)
	assert.Equal(t, float32(50), cfg.MaxDragDelta)
	assert.Equal(t, color.RGBA{R: 255, G: 255, A: 255}, color.RGBA(cfg.Colors.Highlight))
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"empty viewport":  func(c *Config) { c.Viewport.Height = 0 },
		"zero scale":      func(c *Config) { c.Scale = 0 },
		"no sample":       func(c *Config) { c.SampleSize = 0 },
		"negative delta":  func(c *Config) { c.MaxDragDelta = -1 },
		"zero scale step": func(c *Config) { c.ScaleStep = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
viewport:
  width: 1024
  height: 768
auto_register_input: false
sampling_density: 0.25
colors:
  highlight: "#ff8000"
debug: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, core.Viewport{Width: 1024, Height: 768}, cfg.Viewport)
	assert.False(t, cfg.AutoRegisterInput)
	assert.Equal(t, float32(0.25), cfg.SamplingDensity)
	assert.True(t, cfg.Debug)
	assert.Equal(t, Color{R: 255, G: 128, A: 255}, cfg.Colors.Highlight)
	assert.Equal(t, DefaultPalette().X, cfg.Colors.X, "unset keys keep their defaults")
	assert.Equal(t, 10, cfg.SampleSize)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "colors:\n  x: \"#12\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, "sample_size: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, "viewport: [1, 2\n"))
	assert.Error(t, err)
}

func TestColorYAML(t *testing.T) {
	out, err := yaml.Marshal(DefaultPalette())
	require.NoError(t, err)
	assert.Contains(t, string(out), "#ff0000")

	var p Palette
	require.NoError(t, yaml.Unmarshal(out, &p))
	assert.Equal(t, DefaultPalette(), p)
}
