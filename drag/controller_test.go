package drag

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gizmo/core"
)

// down returns a pointer whose ray falls straight onto the y=0 plane at (x, 0, z).
func down(x, z float32) Pointer {
	return Pointer{Ray: core.Ray{Origin: mgl32.Vec3{x, 10, z}, Direction: mgl32.Vec3{0, -1, 0}}}
}

func assertVec3(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDeltaf(t, want[i], got[i], 1e-4, "want %v, got %v %v", want, got, msgAndArgs)
	}
}

func screen(x, y float32) Pointer {
	return Pointer{Screen: mgl32.Vec2{x, y}}
}

func newController() (*Controller, *core.Transform) {
	tr := core.NewTransform()
	return NewController(tr, DefaultConfig()), tr
}

func TestTranslateAlongSelectedAxis(t *testing.T) {
	c, tr := newController()

	c.Begin(core.Translate, core.AxisX, down(0, 0))
	require.True(t, c.Dragging())
	anchor, ok := c.Anchor()
	require.True(t, ok)
	assertVec3(t, mgl32.Vec3{}, anchor)

	assert.Equal(t, Applied, c.Drag(down(3, 0)))
	assertVec3(t, mgl32.Vec3{3, 0, 0}, tr.Translate(), "got %v", tr.Translate())
}

func TestTranslateProjectsOffAxisMotion(t *testing.T) {
	c, tr := newController()

	c.Begin(core.Translate, core.AxisX, down(0, 0))
	assert.Equal(t, Applied, c.Drag(down(2, 7)))

	assertVec3(t, mgl32.Vec3{2, 0, 0}, tr.Translate(), "got %v", tr.Translate())
}

func TestDeltaOnOtherAxisIsNoOp(t *testing.T) {
	c, tr := newController()
	c.Begin(core.Translate, core.AxisY, Pointer{})

	assert.Equal(t, Skipped, c.ApplyDelta(mgl32.Vec3{3, 0, 0}))
	assert.Equal(t, mgl32.Vec3{}, tr.Translate())
}

func TestDragIsIncremental(t *testing.T) {
	c, tr := newController()

	c.Begin(core.Translate, core.AxisX, down(0, 0))
	c.Drag(down(2, 0))
	c.Drag(down(4, 0))
	c.Drag(down(3, 0))

	assert.InDelta(t, 3, tr.Translate().X(), 1e-5)
}

func TestOverLargeDeltaIsRejected(t *testing.T) {
	c, tr := newController()

	c.Begin(core.Translate, core.AxisX, down(0, 0))
	assert.Equal(t, Rejected, c.Drag(down(60, 0)))
	assert.Equal(t, mgl32.Vec3{}, tr.Translate())

	// The anchor followed the glitch, so small motion from there applies.
	assert.Equal(t, Applied, c.Drag(down(61, 0)))
	assert.InDelta(t, 1, tr.Translate().X(), 1e-5)
}

func TestParallelRayIsSkipped(t *testing.T) {
	c, tr := newController()
	c.Begin(core.Translate, core.AxisX, down(0, 0))

	parallel := Pointer{Ray: core.Ray{Origin: mgl32.Vec3{0, 1, 0}, Direction: mgl32.Vec3{1, 0, 0}}}
	assert.Equal(t, Skipped, c.Drag(parallel))

	anchor, _ := c.Anchor()
	assertVec3(t, mgl32.Vec3{}, anchor, "anchor is kept")
	assert.Equal(t, mgl32.Vec3{}, tr.Translate())
}

func TestMissedAnchorIsRecordedOnFirstHit(t *testing.T) {
	c, tr := newController()
	up := Pointer{Ray: core.Ray{Origin: mgl32.Vec3{0, 10, 0}, Direction: mgl32.Vec3{0, 1, 0}}}

	c.Begin(core.Translate, core.AxisX, up)
	_, ok := c.Anchor()
	require.False(t, ok)

	assert.Equal(t, Skipped, c.Drag(down(5, 0)))
	assert.Equal(t, Applied, c.Drag(down(6, 0)))
	assert.InDelta(t, 1, tr.Translate().X(), 1e-5)
}

func TestNoAxisDragIsInert(t *testing.T) {
	c, tr := newController()

	c.Begin(core.Scale, core.AxisNone, down(0, 0))
	assert.True(t, c.Dragging())
	assert.Equal(t, Inert, c.Drag(down(3, 0)))
	assert.Equal(t, Inert, c.ApplyDelta(mgl32.Vec3{3, 0, 0}))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Scale())
}

func TestScaleStep(t *testing.T) {
	c, tr := newController()

	c.Begin(core.Scale, core.AxisZ, Pointer{})
	assert.Equal(t, Applied, c.ApplyDelta(mgl32.Vec3{0, 0, 10}))

	assertVec3(t, mgl32.Vec3{1, 1, 1.1}, tr.Scale(), "got %v", tr.Scale())
	assert.Equal(t, mgl32.Vec3{}, tr.Translate())
}

func TestTranslateFollowsLocalFrame(t *testing.T) {
	c, tr := newController()
	tr.SetRotate(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}))

	c.Begin(core.Translate, core.AxisX, Pointer{})
	assert.Equal(t, Applied, c.ApplyDelta(mgl32.Vec3{1, 5, 0}))

	assertVec3(t, mgl32.Vec3{0, 5, 0}, tr.Translate(), "got %v", tr.Translate())
}

func TestAnchorPlaneContainsAxis(t *testing.T) {
	c, _ := newController()
	ray := core.Ray{Origin: mgl32.Vec3{5, 5, 5}, Direction: mgl32.Vec3{-1, -1, -1}.Normalize()}

	normals := map[core.Axis]mgl32.Vec3{}
	for _, a := range core.Axes {
		c.Begin(core.Translate, a, Pointer{Ray: ray})
		p := c.Plane()
		assert.InDelta(t, 0, p.Normal.Dot(a.Unit()), 1e-6, "plane for %s contains the axis", a)
		normals[a] = p.Normal
		c.End()
	}
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, normals[core.AxisX])
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, normals[core.AxisY])
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, normals[core.AxisZ])
}

func TestAnchorPlaneFallback(t *testing.T) {
	c, _ := newController()
	// A ray running inside the y=0 plane cannot hit the X axis' preferred plane.
	grazing := core.Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}}

	c.Begin(core.Translate, core.AxisX, Pointer{Ray: grazing})

	assert.Equal(t, mgl32.Vec3{0, 0, 1}, c.Plane().Normal)
	_, ok := c.Anchor()
	assert.True(t, ok)
}

func TestConstrainedRotation(t *testing.T) {
	c, tr := newController()
	c.SetView(mgl32.Ident4())
	c.SetArcballWindow(mgl32.Vec2{400, 300}, 200)

	c.Begin(core.Rotate, core.AxisZ, screen(500, 300))
	assert.Equal(t, Applied, c.Drag(screen(400, 200)))

	q := tr.Rotation()
	assert.InDelta(t, 1, q.Len(), 1e-5)
	assertVec3(t, mgl32.Vec3{0, 0, 1}, q.Rotate(mgl32.Vec3{0, 0, 1}), "constraint axis is invariant")
	assertVec3(t, mgl32.Vec3{0, 1, 0}, q.Rotate(mgl32.Vec3{1, 0, 0}), "quarter turn, got %v", q.Rotate(mgl32.Vec3{1, 0, 0}))
}

func TestConstrainedRotationUsesLocalAxis(t *testing.T) {
	c, tr := newController()
	tr.SetRotate(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	c.SetArcballWindow(mgl32.Vec2{400, 300}, 200)
	localX := tr.LocalAxis(core.AxisX)

	c.Begin(core.Rotate, core.AxisX, screen(400, 250))
	c.Drag(screen(470, 320))
	c.Drag(screen(300, 380))

	assertVec3(t, localX, tr.LocalAxis(core.AxisX))
}

func TestFreeRotationWithoutAxis(t *testing.T) {
	c, tr := newController()
	c.SetArcballWindow(mgl32.Vec2{400, 300}, 200)

	c.Begin(core.Rotate, core.AxisNone, screen(400, 300))
	assert.Equal(t, Applied, c.Drag(screen(450, 260)))
	assert.Equal(t, Skipped, c.Drag(screen(450, 260)), "no motion")

	assert.NotEqual(t, mgl32.QuatIdent(), tr.Rotation())
	assert.InDelta(t, 1, tr.Rotation().Len(), 1e-5)
}

func TestEndReturnsToIdle(t *testing.T) {
	c, tr := newController()
	c.Begin(core.Translate, core.AxisX, down(0, 0))
	c.End()

	assert.Equal(t, Idle, c.State())
	assert.Equal(t, core.AxisNone, c.Axis())
	assert.Equal(t, Inert, c.Drag(down(3, 0)))
	assert.Equal(t, mgl32.Vec3{}, tr.Translate())
}
