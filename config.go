package gizmo

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/drag"
)

var ErrInvalidConfig = errors.New("gizmo: invalid config")

const (
	DefaultScale           float32 = 1
	DefaultSamplingDensity float32 = 0.5
	DefaultSampleSize              = 10
)

// Color is an opaque RGB display colour, written as "#rrggbb" in YAML.
type Color color.RGBA

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func (c Color) MarshalYAML() (any, error) { return c.String(), nil }

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return fmt.Errorf("%w: colour %q is not #rrggbb", ErrInvalidConfig, s)
	}
	*c = Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
	return nil
}

// Palette holds the display colours. It is copied into the manipulator at
// construction and never changes afterwards.
type Palette struct {
	X         Color `yaml:"x"`
	Y         Color `yaml:"y"`
	Z         Color `yaml:"z"`
	Highlight Color `yaml:"highlight"`
}

func DefaultPalette() Palette {
	return Palette{
		X:         Color{R: 255, A: 255},
		Y:         Color{G: 255, A: 255},
		Z:         Color{B: 255, A: 255},
		Highlight: Color{R: 255, G: 255, A: 255},
	}
}

// axes returns the per-axis display colours with the highlighted axis, if
// any, replaced.
func (p Palette) axes(highlight core.Axis) [3]color.RGBA {
	c := [3]color.RGBA{color.RGBA(p.X), color.RGBA(p.Y), color.RGBA(p.Z)}
	if i := highlight.Index(); i >= 0 {
		c[i] = color.RGBA(p.Highlight)
	}
	return c
}

type Config struct {
	Viewport core.Viewport `yaml:"viewport"`
	// AutoRegisterInput subscribes the manipulator to its InputSource on
	// construction.
	AutoRegisterInput bool `yaml:"auto_register_input"`
	// Scale is the on-screen handle size multiplier.
	Scale float32 `yaml:"scale"`
	// SamplingDensity is the picking buffer resolution relative to the
	// viewport. Values outside (0,1] fall back to 1.
	SamplingDensity float32 `yaml:"sampling_density"`
	SampleSize      int     `yaml:"sample_size"`
	MaxDragDelta    float32 `yaml:"max_drag_delta"`
	ScaleStep       float32 `yaml:"scale_step"`
	Colors          Palette `yaml:"colors"`
	// Debug enables debug logging when no logger is supplied.
	Debug bool `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Viewport:          core.Viewport{Width: 800, Height: 600},
		AutoRegisterInput: true,
		Scale:             DefaultScale,
		SamplingDensity:   DefaultSamplingDensity,
		SampleSize:        DefaultSampleSize,
		MaxDragDelta:      drag.DefaultMaxDelta,
		ScaleStep:         drag.DefaultScaleStep,
		Colors:            DefaultPalette(),
	}
}

func (c Config) Validate() error {
	switch {
	case !c.Viewport.Valid():
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidConfig, c.Viewport.Width, c.Viewport.Height)
	case !(c.Scale > 0) || math.IsInf(float64(c.Scale), 0):
		return fmt.Errorf("%w: scale %v", ErrInvalidConfig, c.Scale)
	case c.SampleSize < 1:
		return fmt.Errorf("%w: sample size %d", ErrInvalidConfig, c.SampleSize)
	case !(c.MaxDragDelta > 0):
		return fmt.Errorf("%w: max drag delta %v", ErrInvalidConfig, c.MaxDragDelta)
	case math.IsNaN(float64(c.ScaleStep)) || c.ScaleStep == 0:
		return fmt.Errorf("%w: scale step %v", ErrInvalidConfig, c.ScaleStep)
	}
	return nil
}

func (c Config) dragConfig() drag.Config {
	return drag.Config{MaxDelta: c.MaxDragDelta, ScaleStep: c.ScaleStep}
}

// LoadConfig reads a YAML config on top of DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("gizmo: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("gizmo: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
