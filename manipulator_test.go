package gizmo

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/picking"
	"github.com/gekko3d/gizmo/soft"
)

func testCamera(vp core.Viewport) *core.PerspectiveCamera {
	return core.NewPerspectiveCamera(mgl32.Vec3{0, 300, 500}, mgl32.Vec3{}, 50, vp.Aspect(), 1, 10000)
}

func newTestManipulator(t *testing.T) (*Manipulator, *core.PerspectiveCamera) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AutoRegisterInput = false
	m, err := New(soft.NewBackend(), cfg)
	require.NoError(t, err)
	cam := testCamera(cfg.Viewport)
	require.NoError(t, m.UpdateCamera(cam))
	return m, cam
}

// screenAt projects a world point into the manipulator's current viewport.
func screenAt(t *testing.T, m *Manipulator, cam core.Camera, world mgl32.Vec3) PointerEvent {
	t.Helper()
	x, y, ok := core.Project(cam, world, m.Viewport())
	require.True(t, ok)
	return PointerEvent{X: float64(x), Y: float64(y)}
}

// handlePoint is a point on the axis' translate handle, near the tip.
func handlePoint(m *Manipulator, cam core.Camera, axis core.Axis) mgl32.Vec3 {
	scale := picking.ScreenScale(m.Translate(), cam.EyePoint(), m.cfg.Scale)
	return m.Translate().Add(axis.Unit().Mul(core.AxisLength * scale * 0.9))
}

func TestNewValidatesInput(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.Viewport = core.Viewport{}
	_, err = New(soft.NewBackend(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	boom := errors.New("out of memory")
	_, err = New(failingBackend{Backend: soft.NewBackend(), err: boom}, DefaultConfig())
	assert.ErrorIs(t, err, boom)
}

func TestNewDefaults(t *testing.T) {
	m, _ := newTestManipulator(t)

	assert.Equal(t, core.Translate, m.Mode())
	assert.Equal(t, core.AxisNone, m.SelectedAxis())
	assert.Equal(t, mgl32.Ident4(), m.Transform())
	assert.NotEqual(t, m.ID(), mustNew(t).ID())
	assert.Equal(t, image.Pt(400, 300), m.PickingBuffer().Size())
}

func TestHoverSelectsAxis(t *testing.T) {
	m, cam := newTestManipulator(t)

	for _, axis := range core.Axes {
		m.OnPointerMove(screenAt(t, m, cam, handlePoint(m, cam, axis)))
		assert.Equal(t, axis, m.SelectedAxis())
	}

	m.OnPointerMove(PointerEvent{X: 3, Y: 3})
	assert.Equal(t, core.AxisNone, m.SelectedAxis())
}

func TestTranslateDragEndToEnd(t *testing.T) {
	m, cam := newTestManipulator(t)
	start := handlePoint(m, cam, core.AxisX)

	down := screenAt(t, m, cam, start)
	m.OnPointerMove(down)
	require.Equal(t, core.AxisX, m.SelectedAxis())
	require.Positive(t, m.resolver.Last()[0], "pixel under the pointer is pick red")

	m.OnPointerDown(down)
	require.True(t, m.Dragging())
	m.OnPointerDrag(screenAt(t, m, cam, start.Add(mgl32.Vec3{10, 0, 0})))
	m.OnPointerUp(down)

	got := m.Translate()
	assert.InDelta(t, 10, got.X(), 0.05)
	assert.Zero(t, got.Y())
	assert.Zero(t, got.Z())
	assert.False(t, m.Dragging())
}

func TestPointerDownResolvesWithoutHover(t *testing.T) {
	m, cam := newTestManipulator(t)
	start := handlePoint(m, cam, core.AxisZ)

	m.OnPointerDown(screenAt(t, m, cam, start))
	assert.Equal(t, core.AxisZ, m.SelectedAxis())
	m.OnPointerDrag(screenAt(t, m, cam, start.Add(mgl32.Vec3{0, 0, 5})))

	assert.InDelta(t, 5, m.Translate().Z(), 0.05)
}

func TestDragOnBackgroundIsInert(t *testing.T) {
	m, _ := newTestManipulator(t)

	m.OnPointerDown(PointerEvent{X: 5, Y: 5})
	assert.True(t, m.Dragging())
	m.OnPointerDrag(PointerEvent{X: 200, Y: 100})
	m.OnPointerUp(PointerEvent{X: 200, Y: 100})

	assert.Equal(t, mgl32.Ident4(), m.Transform())
}

func TestOverLargeDragIsIgnored(t *testing.T) {
	m, cam := newTestManipulator(t)
	start := handlePoint(m, cam, core.AxisX)

	m.OnPointerDown(screenAt(t, m, cam, start))
	m.OnPointerDrag(screenAt(t, m, cam, start.Add(mgl32.Vec3{100, 0, 0})))

	assert.Equal(t, mgl32.Vec3{}, m.Translate())
}

func TestScaleDrag(t *testing.T) {
	m, cam := newTestManipulator(t)
	m.SetMode(core.Scale)
	require.NoError(t, m.UpdateCamera(cam))
	start := handlePoint(m, cam, core.AxisX)

	m.OnPointerDown(screenAt(t, m, cam, start))
	require.Equal(t, core.AxisX, m.SelectedAxis())
	m.OnPointerDrag(screenAt(t, m, cam, start.Add(mgl32.Vec3{20, 0, 0})))

	s := m.Scale()
	assert.InDelta(t, 1.2, s.X(), 1e-3)
	assert.Equal(t, float32(1), s.Y())
	assert.Equal(t, float32(1), s.Z())
	assert.Equal(t, mgl32.Vec3{}, m.Translate())
}

func TestRotateDragAboutPickedRing(t *testing.T) {
	m, cam := newTestManipulator(t)
	m.SetMode(core.Rotate)
	require.NoError(t, m.UpdateCamera(cam))

	// A point on the Y ring away from where the other rings cross it.
	r := core.RingRadius * picking.ScreenScale(m.Translate(), cam.EyePoint(), m.cfg.Scale)
	onRing := mgl32.Vec3{r * 0.7071, 0, r * 0.7071}
	down := screenAt(t, m, cam, onRing)

	m.OnPointerDown(down)
	require.Equal(t, core.AxisY, m.SelectedAxis(), "counts %v", m.resolver.Last())
	m.OnPointerDrag(PointerEvent{X: down.X + 40, Y: down.Y})
	m.OnPointerUp(PointerEvent{X: down.X + 40, Y: down.Y})

	q := m.Rotation()
	assert.InDelta(t, 1, q.Len(), 1e-5)
	y := q.Rotate(mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 1, y.Y(), 1e-4, "rotation stays about Y")
	x := q.Rotate(mgl32.Vec3{1, 0, 0})
	assert.Less(t, x.X(), float32(0.9999), "orientation changed")
}

func TestSetMatrixEndToEnd(t *testing.T) {
	m, _ := newTestManipulator(t)
	mat := mgl32.Translate3D(4, 5, 6).Mul4(mgl32.Scale3D(2, 1, 1))

	m.SetMatrix(mat)

	s := m.Scale()
	assert.InDelta(t, 2, s.X(), 1e-5)
	assert.InDelta(t, 1, s.Y(), 1e-5)
	assert.InDelta(t, 1, s.Z(), 1e-5)
	assert.Equal(t, mat.Col(3).Vec3(), m.Translate())
	assert.Equal(t, mat, m.Transform())
}

func TestResizeKeepsPickingBuffer(t *testing.T) {
	m, cam := newTestManipulator(t)
	before := m.PickingBuffer().Size()

	m.OnResize(1600, 1200)
	m.OnResize(0, 0)

	assert.Equal(t, core.Viewport{Width: 1600, Height: 1200}, m.Viewport())
	assert.Equal(t, before, m.PickingBuffer().Size())

	// Window coordinates are rescaled onto the unchanged buffer.
	m.OnPointerMove(screenAt(t, m, cam, handlePoint(m, cam, core.AxisY)))
	assert.Equal(t, core.AxisY, m.SelectedAxis())
}

func TestDrawHighlightsSelectedAxis(t *testing.T) {
	m, cam := newTestManipulator(t)
	fb := soft.NewFramebuffer(800, 600)
	m.OnPointerMove(screenAt(t, m, cam, handlePoint(m, cam, core.AxisX)))
	require.Equal(t, core.AxisX, m.SelectedAxis())

	require.NoError(t, m.Draw(fb))

	seen := map[color.RGBA]int{}
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			seen[fb.At(x, y)]++
		}
	}
	palette := DefaultPalette()
	assert.Positive(t, seen[color.RGBA(palette.Highlight)])
	assert.Zero(t, seen[color.RGBA(palette.X)])
	assert.Positive(t, seen[color.RGBA(palette.Y)])
	assert.Positive(t, seen[color.RGBA(palette.Z)])
}

func TestDrawNeedsCamera(t *testing.T) {
	m := mustNew(t)
	assert.ErrorIs(t, m.Draw(soft.NewFramebuffer(8, 8)), ErrNoCamera)
	assert.ErrorIs(t, m.UpdateCamera(nil), ErrNoCamera)
}

func TestDisplayRenderer(t *testing.T) {
	rec := &recordingRenderer{}
	cfg := DefaultConfig()
	cfg.AutoRegisterInput = false
	m, err := New(soft.NewBackend(), cfg, WithRenderer(rec))
	require.NoError(t, err)
	require.NoError(t, m.UpdateCamera(testCamera(cfg.Viewport)))
	m.SetMode(core.Rotate)

	require.NoError(t, m.Draw(nil))
	require.Len(t, rec.passes, 1)
	assert.Equal(t, core.Rotate, rec.passes[0].Mode)
	assert.True(t, rec.passes[0].DepthTest)
	assert.Equal(t, color.RGBA(cfg.Colors.X), rec.passes[0].Colors[0])
}

func TestAutoRegisterInput(t *testing.T) {
	src := &fakeInput{}
	cfg := DefaultConfig()

	m, err := New(soft.NewBackend(), cfg, WithInputSource(src))
	require.NoError(t, err)
	assert.Equal(t, []PointerHandler{m}, src.handlers)

	m.Close()
	m.Close()
	assert.Empty(t, src.handlers)

	cfg.AutoRegisterInput = false
	_, err = New(soft.NewBackend(), cfg, WithInputSource(src))
	require.NoError(t, err)
	assert.Empty(t, src.handlers)
}

func TestSetModeIgnoresUnknown(t *testing.T) {
	m := mustNew(t)
	m.SetMode(core.Mode(42))
	assert.Equal(t, core.Translate, m.Mode())
}

func mustNew(t *testing.T) *Manipulator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AutoRegisterInput = false
	m, err := New(soft.NewBackend(), cfg)
	require.NoError(t, err)
	return m
}

type failingBackend struct {
	*soft.Backend
	err error
}

func (b failingBackend) NewTarget(width, height int) (picking.Target, error) {
	return nil, b.err
}

type recordingRenderer struct {
	passes []picking.HandlePass
}

func (r *recordingRenderer) RenderHandles(dst picking.Target, pass picking.HandlePass) error {
	r.passes = append(r.passes, pass)
	return nil
}

type fakeInput struct {
	handlers []PointerHandler
}

func (f *fakeInput) Subscribe(h PointerHandler) func() {
	f.handlers = append(f.handlers, h)
	return func() {
		for i, x := range f.handlers {
			if x == h {
				f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
				return
			}
		}
	}
}
