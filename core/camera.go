package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is what the manipulator needs from the host's camera.
type Camera interface {
	ProjectionMatrix() mgl32.Mat4
	ViewMatrix() mgl32.Mat4
	EyePoint() mgl32.Vec3
	// GenerateRay returns a world-space ray through the normalized screen
	// point (u, v). u runs left to right and v bottom to top, both in [0,1].
	GenerateRay(u, v, aspect float32) Ray
}

// PerspectiveCamera is a look-at camera with a symmetric frustum.
type PerspectiveCamera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3

	FOV    float32 // vertical, radians
	Aspect float32
	Near   float32
	Far    float32
}

func NewPerspectiveCamera(eye, target mgl32.Vec3, fovDeg, aspect, near, far float32) *PerspectiveCamera {
	return &PerspectiveCamera{
		Eye:    eye,
		Target: target,
		Up:     mgl32.Vec3{0, 1, 0},
		FOV:    mgl32.DegToRad(fovDeg),
		Aspect: aspect,
		Near:   near,
		Far:    far,
	}
}

func (c *PerspectiveCamera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

func (c *PerspectiveCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

func (c *PerspectiveCamera) EyePoint() mgl32.Vec3 { return c.Eye }

// Forward returns the unit view direction.
func (c *PerspectiveCamera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

func (c *PerspectiveCamera) basis() (forward, right, up mgl32.Vec3) {
	forward = c.Forward()
	right = forward.Cross(c.Up)
	if right.Len() < 1e-6 {
		// Looking straight along Up.
		right = forward.Cross(mgl32.Vec3{0, 0, 1})
	}
	right = right.Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

func (c *PerspectiveCamera) GenerateRay(u, v, aspect float32) Ray {
	forward, right, up := c.basis()
	tanHalf := float32(math.Tan(float64(c.FOV) / 2))

	x := (2*u - 1) * tanHalf * aspect
	y := (2*v - 1) * tanHalf
	dir := forward.Add(right.Mul(x)).Add(up.Mul(y)).Normalize()

	return Ray{Origin: c.Eye, Direction: dir}
}

// Orbit rotates the eye around the target by yaw (about Up) and pitch
// (about the camera's right axis), both in radians.
func (c *PerspectiveCamera) Orbit(yaw, pitch float32) {
	offset := c.Eye.Sub(c.Target)
	_, right, _ := c.basis()

	q := mgl32.QuatRotate(yaw, c.Up.Normalize()).Mul(mgl32.QuatRotate(pitch, right))
	rotated := q.Rotate(offset)

	// Refuse to flip over the pole.
	if math.Abs(float64(rotated.Normalize().Dot(c.Up.Normalize()))) > 0.995 {
		rotated = mgl32.QuatRotate(yaw, c.Up.Normalize()).Rotate(offset)
	}
	c.Eye = c.Target.Add(rotated)
}

// Project maps a world point to window pixels with the origin at the top-left.
// ok is false for points behind the eye.
func Project(cam Camera, world mgl32.Vec3, vp Viewport) (x, y float32, ok bool) {
	clip := cam.ProjectionMatrix().Mul4(cam.ViewMatrix()).Mul4x1(world.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = (ndc.X() + 1) * 0.5 * float32(vp.Width)
	y = (1 - ndc.Y()) * 0.5 * float32(vp.Height)
	return x, y, true
}

// PointerRay builds the camera ray through a window pixel, using the
// logical viewport to normalize it.
func PointerRay(cam Camera, x, y float32, vp Viewport) Ray {
	w, h := float32(vp.Width), float32(vp.Height)
	if w <= 0 || h <= 0 {
		return cam.GenerateRay(0.5, 0.5, 1)
	}
	return cam.GenerateRay(x/w, 1-y/h, w/h)
}
