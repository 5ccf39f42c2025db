package drag

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Arcball maps pointer motion onto a virtual sphere centred on the
// manipulator's screen position. With a constraint axis the sphere points are
// projected onto the plane perpendicular to it, so every increment is a
// rotation about that axis.
type Arcball struct {
	center mgl32.Vec2
	radius float32
	view   mgl32.Mat3 // world to view rotation

	constraint mgl32.Vec3 // world space, zero when free
	last       mgl32.Vec3 // view space
}

// SetWindow places the sphere on screen. Window pixels, origin top-left.
func (a *Arcball) SetWindow(center mgl32.Vec2, radius float32) {
	a.center = center
	a.radius = max(radius, 1)
}

func (a *Arcball) SetView(view mgl32.Mat4) {
	a.view = view.Mat3()
}

// SetConstraint limits rotation to a world-space axis.
func (a *Arcball) SetConstraint(axis mgl32.Vec3) {
	if axis.Len() < 1e-6 {
		a.constraint = mgl32.Vec3{}
		return
	}
	a.constraint = axis.Normalize()
}

func (a *Arcball) ClearConstraint() { a.constraint = mgl32.Vec3{} }

func (a *Arcball) Constrained() bool { return a.constraint != (mgl32.Vec3{}) }

// Begin anchors the sphere at pointer p.
func (a *Arcball) Begin(p mgl32.Vec2) {
	a.last = a.sphere(p)
}

// Drag returns the world-space rotation from the previous pointer position
// to p and makes p the new anchor.
func (a *Arcball) Drag(p mgl32.Vec2) mgl32.Quat {
	to := a.sphere(p)
	from := a.last
	a.last = to

	cross := from.Cross(to)
	dot := from.Dot(to)

	var axisView mgl32.Vec3
	var angle float64
	if a.Constrained() {
		axisView = a.viewAxis()
		angle = math.Atan2(float64(axisView.Dot(cross)), float64(dot))
	} else {
		l := cross.Len()
		if l < 1e-7 {
			return mgl32.QuatIdent()
		}
		axisView = cross.Mul(1 / l)
		angle = math.Atan2(float64(l), float64(dot))
	}
	if math.Abs(angle) < 1e-7 || math.IsNaN(angle) {
		return mgl32.QuatIdent()
	}

	axisWorld := a.view.Transpose().Mul3x1(axisView)
	return mgl32.QuatRotate(float32(angle), axisWorld.Normalize())
}

func (a *Arcball) viewAxis() mgl32.Vec3 {
	return a.view.Mul3x1(a.constraint).Normalize()
}

// sphere maps a pointer position to a view-space point on the unit sphere,
// projected onto the constraint plane when there is one.
func (a *Arcball) sphere(p mgl32.Vec2) mgl32.Vec3 {
	x := (p.X() - a.center.X()) / a.radius
	y := (a.center.Y() - p.Y()) / a.radius

	v := mgl32.Vec3{x, y, 0}
	if mag := x*x + y*y; mag > 1 {
		v = v.Mul(1 / float32(math.Sqrt(float64(mag))))
	} else {
		v[2] = float32(math.Sqrt(float64(1 - mag)))
	}

	if !a.Constrained() {
		return v
	}

	axis := a.viewAxis()
	onPlane := v.Sub(axis.Mul(axis.Dot(v)))
	if l := onPlane.Len(); l > 1e-6 {
		return onPlane.Mul(1 / l)
	}
	// Pointer straight down the axis: any perpendicular will do.
	perp := axis.Cross(mgl32.Vec3{0, 0, 1})
	if perp.Len() < 1e-6 {
		perp = axis.Cross(mgl32.Vec3{1, 0, 0})
	}
	return perp.Normalize()
}
