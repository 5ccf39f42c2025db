// Package gizmo is an on-screen transform manipulator: axis handles that
// translate, rotate or scale a target when dragged.
//
// The hovered axis is found by colour-ID picking on an off-screen buffer that
// is re-rendered on every camera update. Pointer drags are converted into
// constrained updates of a Transform through ray/plane intersection or a
// constrained arcball.
package gizmo

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/drag"
	"github.com/gekko3d/gizmo/picking"
)

var ErrNoCamera = errors.New("gizmo: no camera")

type Option func(*Manipulator)

func WithLogger(l Logger) Option {
	return func(m *Manipulator) { m.log = l }
}

// WithInputSource sets where pointer events come from when
// Config.AutoRegisterInput is on.
func WithInputSource(src InputSource) Option {
	return func(m *Manipulator) { m.input = src }
}

// WithRenderer sets the renderer used by Draw. It defaults to the backend.
func WithRenderer(r picking.HandleRenderer) Option {
	return func(m *Manipulator) { m.display = r }
}

// Manipulator owns the transform being edited and routes pointer events into
// axis selection and drags. It is not safe for concurrent use.
type Manipulator struct {
	id  uuid.UUID
	cfg Config
	log Logger

	display     picking.HandleRenderer
	input       InputSource
	unsubscribe func()

	viewport core.Viewport
	mode     core.Mode
	selected core.Axis
	cam      core.Camera

	tr       *core.Transform
	buf      *picking.Buffer
	resolver *picking.Resolver
	drag     *drag.Controller
}

func New(backend picking.Backend, cfg Config, opts ...Option) (*Manipulator, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manipulator{
		id:       uuid.New(),
		cfg:      cfg,
		display:  backend,
		viewport: cfg.Viewport,
		mode:     core.Translate,
		tr:       core.NewTransform(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		if cfg.Debug {
			m.log = NewDefaultLogger("gizmo "+m.id.String()[:8], true)
		} else {
			m.log = NewNopLogger()
		}
	}
	if m.display == nil {
		m.display = backend
	}

	buf, err := picking.New(backend, cfg.Viewport, cfg.SamplingDensity, cfg.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("gizmo: create picking buffer: %w", err)
	}
	m.buf = buf
	m.resolver = picking.NewResolver(buf)
	m.drag = drag.NewController(m.tr, cfg.dragConfig())

	if cfg.AutoRegisterInput {
		if m.input != nil {
			m.unsubscribe = m.input.Subscribe(m)
		} else {
			m.log.Warnf("auto input registration requested without an input source")
		}
	}

	size := buf.Size()
	m.log.Infof("created %s: viewport %dx%d, picking buffer %dx%d, sample %d",
		m.id, cfg.Viewport.Width, cfg.Viewport.Height, size.X, size.Y, cfg.SampleSize)
	return m, nil
}

// Close detaches the manipulator from its input source.
func (m *Manipulator) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Manipulator) ID() uuid.UUID           { return m.id }
func (m *Manipulator) Mode() core.Mode         { return m.mode }
func (m *Manipulator) SelectedAxis() core.Axis { return m.selected }
func (m *Manipulator) Dragging() bool          { return m.drag.Dragging() }
func (m *Manipulator) Viewport() core.Viewport { return m.viewport }

// PickingBuffer exposes the cached picking buffer, mainly for debugging views.
func (m *Manipulator) PickingBuffer() *picking.Buffer { return m.buf }

// SetMode switches the handle set. The picking buffer picks it up on the next
// camera update.
func (m *Manipulator) SetMode(mode core.Mode) {
	if !mode.Valid() {
		m.log.Warnf("ignoring unknown mode %d", mode)
		return
	}
	if m.drag.Dragging() {
		m.drag.End()
	}
	m.mode = mode
	m.log.Debugf("mode %s", mode)
}

func (m *Manipulator) SetTranslate(v mgl32.Vec3)  { m.tr.SetTranslate(v) }
func (m *Manipulator) SetRotate(q mgl32.Quat)     { m.tr.SetRotate(q) }
func (m *Manipulator) SetScale(v mgl32.Vec3)      { m.tr.SetScale(v) }
func (m *Manipulator) SetMatrix(mat mgl32.Mat4)   { m.tr.SetMatrix(mat) }
func (m *Manipulator) Transform() mgl32.Mat4      { return m.tr.Matrix() }
func (m *Manipulator) Translate() mgl32.Vec3      { return m.tr.Translate() }
func (m *Manipulator) Rotation() mgl32.Quat       { return m.tr.Rotation() }
func (m *Manipulator) Scale() mgl32.Vec3          { return m.tr.Scale() }
func (m *Manipulator) UnscaledMatrix() mgl32.Mat4 { return m.tr.UnscaledMatrix() }

func (m *Manipulator) SetTransform(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	m.tr.SetTransform(position, rotation, scale)
}

// UpdateCamera stores the camera and re-renders the picking buffer from it.
func (m *Manipulator) UpdateCamera(cam core.Camera) error {
	if cam == nil {
		return ErrNoCamera
	}
	m.cam = cam
	m.drag.SetView(cam.ViewMatrix())

	if err := m.buf.Render(m.pass(nil)); err != nil {
		return fmt.Errorf("gizmo: render picking buffer: %w", err)
	}
	return nil
}

// Draw renders the handles with the display colours. The selected axis, or
// the axis being dragged, is highlighted.
func (m *Manipulator) Draw(dst picking.Target) error {
	if m.cam == nil {
		return ErrNoCamera
	}
	highlight := m.selected
	if m.drag.Dragging() {
		highlight = m.drag.Axis()
	}
	colors := m.cfg.Colors.axes(highlight)
	if err := m.display.RenderHandles(dst, m.pass(&colors)); err != nil {
		return fmt.Errorf("gizmo: draw handles: %w", err)
	}
	return nil
}

// pass builds the handle pass for the current camera. Nil colors leaves them
// to the picking buffer.
func (m *Manipulator) pass(colors *[3]color.RGBA) picking.HandlePass {
	p := picking.HandlePass{
		Mode:       m.mode,
		View:       m.cam.ViewMatrix(),
		Projection: m.cam.ProjectionMatrix(),
		Model:      picking.HandleModel(m.tr.UnscaledMatrix(), m.screenScale()),
		DepthTest:  true,
	}
	if colors != nil {
		p.Colors = *colors
	}
	return p
}

func (m *Manipulator) screenScale() float32 {
	return picking.ScreenScale(m.tr.Translate(), m.cam.EyePoint(), m.cfg.Scale)
}

func (m *Manipulator) OnPointerMove(e PointerEvent) {
	if m.drag.Dragging() {
		return
	}
	m.selected = m.resolve(e)
}

func (m *Manipulator) OnPointerDown(e PointerEvent) {
	m.selected = m.resolve(e)
	if m.mode == core.Rotate {
		m.placeArcball()
	}
	m.drag.Begin(m.mode, m.selected, m.pointer(e))
	m.log.Debugf("drag begin: %s along %s", m.mode, m.selected)
}

func (m *Manipulator) OnPointerDrag(e PointerEvent) {
	if !m.drag.Dragging() {
		return
	}
	switch m.drag.Drag(m.pointer(e)) {
	case drag.Rejected:
		m.log.Debugf("drag frame rejected at (%.1f, %.1f): delta over %v", e.X, e.Y, m.cfg.MaxDragDelta)
	case drag.Applied:
		if m.log.DebugEnabled() {
			m.log.Debugf("transform: position %v scale %v", m.tr.Translate(), m.tr.Scale())
		}
	}
}

func (m *Manipulator) OnPointerUp(e PointerEvent) {
	if m.drag.Dragging() {
		m.log.Debugf("drag end")
	}
	m.drag.End()
}

// OnResize updates the logical viewport. The picking buffer keeps the size
// it was created with.
func (m *Manipulator) OnResize(width, height int) {
	vp := core.Viewport{Width: width, Height: height}
	if !vp.Valid() {
		return
	}
	m.viewport = vp
	m.log.Debugf("viewport %dx%d", width, height)
}

// resolve returns the axis under a window position.
func (m *Manipulator) resolve(e PointerEvent) core.Axis {
	x, y := m.buf.ToBuffer(float32(e.X), float32(e.Y), m.viewport)
	axis, err := m.resolver.Resolve(x, y)
	if err != nil {
		m.log.Warnf("resolve axis at (%d, %d): %v", x, y, err)
		return core.AxisNone
	}
	return axis
}

func (m *Manipulator) pointer(e PointerEvent) drag.Pointer {
	p := drag.Pointer{Screen: mgl32.Vec2{float32(e.X), float32(e.Y)}}
	if m.cam != nil {
		p.Ray = core.PointerRay(m.cam, p.Screen.X(), p.Screen.Y(), m.viewport)
	}
	return p
}

// placeArcball centres the rotation sphere on the projected manipulator,
// sized to the projected rotation rings.
func (m *Manipulator) placeArcball() {
	w, h := float32(m.viewport.Width), float32(m.viewport.Height)
	center := mgl32.Vec2{w / 2, h / 2}
	radius := min(w, h) / 2
	if m.cam == nil {
		m.drag.SetArcballWindow(center, radius)
		return
	}

	pos := m.tr.Translate()
	x, y, ok := core.Project(m.cam, pos, m.viewport)
	if ok {
		center = mgl32.Vec2{x, y}
		view := m.cam.ViewMatrix()
		right := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
		edge := pos.Add(right.Mul(core.RingRadius * m.screenScale()))
		if ex, ey, ok := core.Project(m.cam, edge, m.viewport); ok {
			if r := (mgl32.Vec2{ex, ey}).Sub(center).Len(); r > 1 && !math.IsNaN(float64(r)) {
				radius = r
			}
		}
	}
	m.drag.SetArcballWindow(center, radius)
}
