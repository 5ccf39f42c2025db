package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// degenerateColumn is the basis column length below which decomposition
// treats an axis as collapsed.
const degenerateColumn = 1e-6

// Transform owns the manipulator's position, orientation and scale together
// with the two matrices derived from them.
//
//	unscaled = T(position) * R(orientation)
//	full     = unscaled * S(scale)
//
// The matrices are recomposed on every mutation so they never drift apart.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	unscaled mgl32.Mat4
	full     mgl32.Mat4
}

func NewTransform() *Transform {
	t := &Transform{
		position: mgl32.Vec3{0, 0, 0},
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
	}
	t.compose()
	return t
}

func (t *Transform) Translate() mgl32.Vec3 { return t.position }
func (t *Transform) Rotation() mgl32.Quat  { return t.rotation }
func (t *Transform) Scale() mgl32.Vec3     { return t.scale }

// Matrix returns the full object-to-world matrix.
func (t *Transform) Matrix() mgl32.Mat4 { return t.full }

// UnscaledMatrix returns position and orientation only. Handles are placed
// with it so a non-uniform object scale never distorts them.
func (t *Transform) UnscaledMatrix() mgl32.Mat4 { return t.unscaled }

func (t *Transform) SetTranslate(v mgl32.Vec3) {
	t.position = v
	t.compose()
}

func (t *Transform) SetRotate(q mgl32.Quat) {
	t.rotation = normalizeQuat(q)
	t.compose()
}

func (t *Transform) SetScale(v mgl32.Vec3) {
	t.scale = v
	t.compose()
}

// SetTransform replaces all three components before recomposing once.
func (t *Transform) SetTransform(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	t.position = position
	t.rotation = normalizeQuat(rotation)
	t.scale = scale
	t.compose()
}

// SetMatrix imposes an external matrix. The matrix is kept verbatim as the
// full transform and decomposed so the components stay in sync. Shear cannot
// be represented and is approximated.
func (t *Transform) SetMatrix(m mgl32.Mat4) {
	t.position, t.rotation, t.scale = Decompose(m, t.scale)
	t.unscaled = mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z()).Mul4(t.rotation.Mat4())
	t.full = m
}

// RotateAbout composes an incremental rotation of angle radians about a
// world-space axis onto the current orientation.
func (t *Transform) RotateAbout(axis mgl32.Vec3, angle float32) {
	if axis.Len() < degenerateColumn || angle == 0 {
		return
	}
	t.ApplyRotation(mgl32.QuatRotate(angle, axis.Normalize()))
}

// ApplyRotation left-multiplies delta onto the orientation and renormalizes.
func (t *Transform) ApplyRotation(delta mgl32.Quat) {
	t.rotation = normalizeQuat(delta.Mul(t.rotation))
	t.compose()
}

// LocalAxis returns the world-space direction of one of the manipulator's
// local axes. AxisNone yields the zero vector.
func (t *Transform) LocalAxis(a Axis) mgl32.Vec3 {
	if !a.Valid() {
		return mgl32.Vec3{}
	}
	return t.rotation.Rotate(a.Unit())
}

// Inverse returns the world-to-object matrix built from the components.
// inv(M) = inv(S) * inv(R) * inv(T)
func (t *Transform) Inverse() mgl32.Mat4 {
	invScale := mgl32.Scale3D(safeInv(t.scale.X()), safeInv(t.scale.Y()), safeInv(t.scale.Z()))
	invRotate := t.rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.position.X(), -t.position.Y(), -t.position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

func (t *Transform) compose() {
	translate := mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z())
	t.unscaled = translate.Mul4(t.rotation.Mat4())
	t.full = t.unscaled.Mul4(mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z()))
}

// Decompose splits m into translation, rotation and scale. prior supplies
// the scale used for columns too short to normalize.
func Decompose(m mgl32.Mat4, prior mgl32.Vec3) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	position := m.Col(3).Vec3()

	var cols [3]mgl32.Vec3
	var scale mgl32.Vec3
	var degenerate [3]bool
	for i := 0; i < 3; i++ {
		c := m.Col(i).Vec3()
		l := c.Len()
		if l < degenerateColumn || isBad(l) {
			degenerate[i] = true
			s := prior[i]
			if s == 0 || isBad(s) {
				s = 1
			}
			scale[i] = s
			continue
		}
		scale[i] = l
		cols[i] = c.Mul(1 / l)
	}

	rebuildBasis(&cols, degenerate)

	basis := mgl32.Mat3FromCols(cols[0], cols[1], cols[2])
	if basis.Det() < 0 {
		// Mirrored basis: fold the reflection into the X scale so the
		// remaining rotation is proper.
		cols[0] = cols[0].Mul(-1)
		scale[0] = -scale[0]
		basis = mgl32.Mat3FromCols(cols[0], cols[1], cols[2])
	}

	q := mgl32.Mat4ToQuat(basis.Mat4())
	return position, normalizeQuat(q), scale
}

// rebuildBasis fills collapsed columns from the surviving ones. With fewer
// than two usable columns the missing ones fall back to the world axes.
func rebuildBasis(cols *[3]mgl32.Vec3, degenerate [3]bool) {
	n := 0
	for _, d := range degenerate {
		if d {
			n++
		}
	}
	switch {
	case n == 0:
		return
	case n == 1:
		for i, d := range degenerate {
			if d {
				a, b := cols[(i+1)%3], cols[(i+2)%3]
				c := a.Cross(b)
				if c.Len() < degenerateColumn {
					c = Axis(i + 1).Unit()
				}
				cols[i] = c.Normalize()
			}
		}
	default:
		for i, d := range degenerate {
			if d {
				cols[i] = Axis(i + 1).Unit()
			}
		}
	}
}

func normalizeQuat(q mgl32.Quat) mgl32.Quat {
	l := q.Len()
	if l < degenerateColumn || isBad(l) {
		return mgl32.QuatIdent()
	}
	return q.Scale(1 / l)
}

func safeInv(v float32) float32 {
	if math.Abs(float64(v)) < degenerateColumn {
		return 0
	}
	return 1 / v
}

func isBad(f float32) bool {
	return math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)
}
