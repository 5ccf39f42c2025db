package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// parallelEpsilon bounds |dot(dir, normal)| below which a ray is treated
// as parallel to a plane.
const parallelEpsilon = 1e-6

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

type Plane struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// Facing returns |cos| of the angle between the ray and the plane normal.
// Zero means the ray runs inside or parallel to the plane.
func (p Plane) Facing(r Ray) float32 {
	dl := r.Direction.Len()
	nl := p.Normal.Len()
	if dl == 0 || nl == 0 {
		return 0
	}
	return float32(math.Abs(float64(r.Direction.Dot(p.Normal) / (dl * nl))))
}

// Intersect returns where r hits p. It fails when the ray is parallel to the
// plane or the hit lies behind the ray origin.
func (p Plane) Intersect(r Ray) (mgl32.Vec3, bool) {
	denom := r.Direction.Dot(p.Normal)
	if math.Abs(float64(denom)) < parallelEpsilon {
		return mgl32.Vec3{}, false
	}
	t := p.Point.Sub(r.Origin).Dot(p.Normal) / denom
	if t < 0 || isBad(t) {
		return mgl32.Vec3{}, false
	}
	return r.At(t), true
}
