// Command gizmo-snapshot renders the manipulator headlessly with the software
// backend, optionally after a scripted drag, and writes the frame as a PNG.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo"
	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/picking"
	"github.com/gekko3d/gizmo/soft"
)

var (
	background = color.RGBA{R: 32, G: 34, B: 40, A: 255}
	cubeColor  = color.RGBA{R: 160, G: 160, B: 170, A: 255}
)

func main() {
	out := flag.String("out", "gizmo.png", "Output PNG path")
	configPath := flag.String("config", "gizmo.yaml", "Path to the manipulator config")
	modeName := flag.String("mode", "translate", "translate, rotate or scale")
	axisName := flag.String("axis", "x", "Handle to drag: x, y or z")
	amount := flag.Float64("amount", 0, "Drag distance: world units for translate and scale, pixels for rotate")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(*out, *configPath, *modeName, *axisName, float32(*amount), *debug); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out, configPath, modeName, axisName string, amount float32, debug bool) error {
	cfg, err := gizmo.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Debug = cfg.Debug || debug
	cfg.AutoRegisterInput = false
	log := gizmo.NewDefaultLogger("snapshot", cfg.Debug)

	mode, err := core.ParseMode(modeName)
	if err != nil {
		return err
	}
	axis, err := parseAxis(axisName)
	if err != nil {
		return err
	}

	backend := soft.NewBackend()
	m, err := gizmo.New(backend, cfg, gizmo.WithLogger(gizmo.NewDefaultLogger("gizmo", cfg.Debug)))
	if err != nil {
		return err
	}
	defer m.Close()
	m.SetMode(mode)

	cam := core.NewPerspectiveCamera(mgl32.Vec3{0, 300, 500}, mgl32.Vec3{}, 50, cfg.Viewport.Aspect(), 1, 10000)
	if err := m.UpdateCamera(cam); err != nil {
		return err
	}

	if amount != 0 {
		if err := scriptedDrag(m, cam, cfg.Scale, axis, amount); err != nil {
			return err
		}
		log.Infof("dragged %v %v by %g: translate %v scale %v rotation %v",
			mode, axis, amount, m.Translate(), m.Scale(), m.Rotation())
	}

	fb := soft.NewFramebuffer(cfg.Viewport.Width, cfg.Viewport.Height)
	fb.Fill(background)
	mvp := cam.ProjectionMatrix().Mul4(cam.ViewMatrix()).Mul4(m.Transform())
	if err := backend.RenderMesh(fb, core.Cube(40), mvp, cubeColor); err != nil {
		return err
	}
	if err := m.Draw(fb); err != nil {
		return err
	}
	if err := fb.SavePNG(out); err != nil {
		return err
	}
	log.Infof("wrote %s", out)
	return nil
}

// scriptedDrag presses on the handle of axis and drags it in steps small
// enough to stay under the per-frame delta limit.
func scriptedDrag(m *gizmo.Manipulator, cam core.Camera, size float32, axis core.Axis, amount float32) error {
	scale := picking.ScreenScale(m.Translate(), cam.EyePoint(), size)

	var start mgl32.Vec3
	if m.Mode() == core.Rotate {
		// Halfway between the two other axes, away from the ring crossings.
		side := mgl32.Vec3{1, 1, 1}.Sub(axis.Unit()).Normalize()
		start = m.Translate().Add(side.Mul(core.RingRadius * scale))
	} else {
		start = m.Translate().Add(axis.Unit().Mul(core.AxisLength * scale * 0.9))
	}

	vp := m.Viewport()
	x, y, ok := core.Project(cam, start, vp)
	if !ok {
		return fmt.Errorf("handle %v is behind the camera", axis)
	}
	press := gizmo.PointerEvent{X: float64(x), Y: float64(y)}
	m.OnPointerMove(press)
	m.OnPointerDown(press)
	if got := m.SelectedAxis(); got != axis {
		m.OnPointerUp(press)
		return fmt.Errorf("pressed %v handle, picked %v", axis, got)
	}

	const steps = 20
	last := press
	for i := 1; i <= steps; i++ {
		f := amount * float32(i) / steps
		if m.Mode() == core.Rotate {
			last = gizmo.PointerEvent{X: press.X + float64(f), Y: press.Y}
		} else {
			x, y, ok := core.Project(cam, start.Add(axis.Unit().Mul(f)), vp)
			if !ok {
				break
			}
			last = gizmo.PointerEvent{X: float64(x), Y: float64(y)}
		}
		m.OnPointerDrag(last)
	}
	m.OnPointerUp(last)
	return nil
}

func parseAxis(s string) (core.Axis, error) {
	for _, a := range core.Axes {
		if a.String() == s {
			return a, nil
		}
	}
	return core.AxisNone, fmt.Errorf("unknown axis %q", s)
}
