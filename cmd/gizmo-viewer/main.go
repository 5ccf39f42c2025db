package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo"
	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/gpu"
)

const orbitSpeed = 0.005

func init() {
	runtime.LockOSThread()
}

// viewer routes pointer events either to the camera, while Alt is held, or to
// the manipulator.
type viewer struct {
	win *glfw.Window
	m   *gizmo.Manipulator
	cam *core.PerspectiveCamera
	log gizmo.Logger

	orbiting    bool
	lastX       float64
	lastY       float64
	cameraDirty bool
}

func (v *viewer) altHeld() bool {
	return v.win.GetKey(glfw.KeyLeftAlt) == glfw.Press || v.win.GetKey(glfw.KeyRightAlt) == glfw.Press
}

func (v *viewer) OnPointerDown(e gizmo.PointerEvent) {
	if v.altHeld() {
		v.orbiting = true
		v.lastX, v.lastY = e.X, e.Y
		return
	}
	v.m.OnPointerDown(e)
}

func (v *viewer) OnPointerUp(e gizmo.PointerEvent) {
	if v.orbiting {
		v.orbiting = false
		return
	}
	v.m.OnPointerUp(e)
}

func (v *viewer) OnPointerMove(e gizmo.PointerEvent) { v.m.OnPointerMove(e) }

func (v *viewer) OnPointerDrag(e gizmo.PointerEvent) {
	if !v.orbiting {
		v.m.OnPointerDrag(e)
		return
	}
	dx, dy := e.X-v.lastX, e.Y-v.lastY
	v.lastX, v.lastY = e.X, e.Y
	v.cam.Orbit(-float32(dx)*orbitSpeed, -float32(dy)*orbitSpeed)
	v.cameraDirty = true
}

func (v *viewer) OnResize(width, height int) {
	v.m.OnResize(width, height)
	v.cam.Aspect = float32(width) / float32(height)
	v.cameraDirty = true
}

func (v *viewer) onKey(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.Key1:
		v.m.SetMode(core.Translate)
	case glfw.Key2:
		v.m.SetMode(core.Rotate)
	case glfw.Key3:
		v.m.SetMode(core.Scale)
	case glfw.KeyR:
		v.m.SetTransform(mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	case glfw.KeyEscape:
		w.SetShouldClose(true)
		return
	default:
		return
	}
	v.log.Infof("mode %v, transform %v", v.m.Mode(), v.m.Transform())
	v.cameraDirty = true
}

func main() {
	configPath := flag.String("config", "gizmo.yaml", "Path to the manipulator config")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(*configPath, *debug); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool) error {
	cfg, err := gizmo.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Debug = cfg.Debug || debug
	cfg.AutoRegisterInput = false
	log := gizmo.NewDefaultLogger("viewer", cfg.Debug)

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Viewport.Width, cfg.Viewport.Height, "Gizmo", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))
	defer surface.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	defer adapter.Release()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	defer device.Release()

	fbWidth, fbHeight := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfaceCfg := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(fbWidth),
		Height:      uint32(fbHeight),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, surfaceCfg)

	backend, err := gpu.NewBackend(device)
	if err != nil {
		return err
	}
	defer backend.Release()

	screen, err := backend.NewSurfaceTarget(surfaceCfg.Format, fbWidth, fbHeight)
	if err != nil {
		return err
	}
	defer screen.Release()

	m, err := gizmo.New(backend, cfg, gizmo.WithLogger(gizmo.NewDefaultLogger("gizmo", cfg.Debug)))
	if err != nil {
		return err
	}
	defer m.Close()

	cam := core.NewPerspectiveCamera(mgl32.Vec3{0, 300, 500}, mgl32.Vec3{}, 50, cfg.Viewport.Aspect(), 1, 10000)
	v := &viewer{win: window, m: m, cam: cam, log: log, cameraDirty: true}

	unsubscribe := gizmo.NewGLFWInput(window).Subscribe(v)
	defer unsubscribe()
	window.SetKeyCallback(v.onKey)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		surfaceCfg.Width, surfaceCfg.Height = uint32(width), uint32(height)
		surface.Configure(adapter, device, surfaceCfg)
		if err := screen.Resize(width, height); err != nil {
			log.Errorf("resize: %v", err)
		}
	})

	cube := core.Cube(40)
	log.Infof("keys: 1 translate, 2 rotate, 3 scale, R reset, Alt+drag orbit")

	for !window.ShouldClose() {
		glfw.PollEvents()

		// Dragging changes the transform, which moves the handles.
		if v.cameraDirty || m.Dragging() {
			if err := m.UpdateCamera(cam); err != nil {
				return err
			}
			v.cameraDirty = false
		}

		if err := frame(surface, screen, backend, m, cam, cube); err != nil {
			log.Errorf("frame: %v", err)
		}
	}
	return nil
}

func frame(surface *wgpu.Surface, screen *gpu.Target, backend *gpu.Backend, m *gizmo.Manipulator, cam core.Camera, cube []mgl32.Vec3) error {
	tex, err := surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("get current texture: %w", err)
	}
	defer tex.Release()

	view, err := tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	defer view.Release()
	screen.SetView(view)

	if err := screen.Clear(); err != nil {
		return err
	}
	mvp := cam.ProjectionMatrix().Mul4(cam.ViewMatrix()).Mul4(m.Transform())
	if err := backend.RenderMesh(screen, cube, mvp, color.RGBA{R: 160, G: 160, B: 170, A: 255}); err != nil {
		return err
	}
	if err := m.Draw(screen); err != nil {
		return err
	}
	surface.Present()
	return nil
}
