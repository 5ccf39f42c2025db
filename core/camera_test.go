package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCamera() *PerspectiveCamera {
	return NewPerspectiveCamera(mgl32.Vec3{0, 300, 500}, mgl32.Vec3{}, 50, 800.0/600.0, 1, 10000)
}

func TestPointerRayPassesThroughProjectedPoint(t *testing.T) {
	cam := sampleCamera()
	vp := Viewport{Width: 800, Height: 600}

	for _, p := range []mgl32.Vec3{{0, 0, 0}, {25, 0, 0}, {-40, 10, 30}, {5, 60, -20}} {
		x, y, ok := Project(cam, p, vp)
		require.True(t, ok)

		ray := PointerRay(cam, x, y, vp)
		// Distance from p to the ray.
		toP := p.Sub(ray.Origin)
		along := ray.Direction.Mul(toP.Dot(ray.Direction))
		assert.InDeltaf(t, 0, toP.Sub(along).Len(), 1e-2, "point %v", p)
	}
}

func TestGenerateRayCenterLooksAtTarget(t *testing.T) {
	cam := sampleCamera()
	ray := cam.GenerateRay(0.5, 0.5, cam.Aspect)

	assertVec3(t, cam.Forward(), ray.Direction)
	assert.Equal(t, cam.Eye, ray.Origin)
}

func TestProjectBehindEye(t *testing.T) {
	cam := sampleCamera()
	_, _, ok := Project(cam, mgl32.Vec3{0, 600, 1000}, Viewport{800, 600})
	assert.False(t, ok)
}

func TestOrbitKeepsDistance(t *testing.T) {
	cam := sampleCamera()
	before := cam.Eye.Sub(cam.Target).Len()

	cam.Orbit(0.4, -0.2)

	assert.InDelta(t, before, cam.Eye.Sub(cam.Target).Len(), 1e-2)
	assert.NotEqual(t, mgl32.Vec3{0, 300, 500}, cam.Eye)
}

func TestPlaneIntersect(t *testing.T) {
	plane := Plane{Point: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 1, 0}}

	hit, ok := plane.Intersect(Ray{Origin: mgl32.Vec3{3, 10, 0}, Direction: mgl32.Vec3{0, -1, 0}})
	require.True(t, ok)
	assertVec3(t, mgl32.Vec3{3, 0, 0}, hit)

	_, ok = plane.Intersect(Ray{Origin: mgl32.Vec3{0, 10, 0}, Direction: mgl32.Vec3{1, 0, 0}})
	assert.False(t, ok, "parallel ray")

	_, ok = plane.Intersect(Ray{Origin: mgl32.Vec3{0, 10, 0}, Direction: mgl32.Vec3{0, 1, 0}})
	assert.False(t, ok, "plane behind the origin")
}

func TestHandleMeshesPointAlongTheirAxis(t *testing.T) {
	for _, mode := range []Mode{Translate, Scale} {
		meshes := HandleMeshes(mode)
		for i, m := range meshes {
			require.Equal(t, Axes[i], m.Axis)
			require.NotEmpty(t, m.Triangles)
			require.Zero(t, len(m.Triangles)%3)

			var reach float32
			for _, v := range m.Triangles {
				if d := v.Dot(m.Axis.Unit()); d > reach {
					reach = d
				}
			}
			assert.GreaterOrEqualf(t, reach, AxisLength, "%s %s handle is too short", mode, m.Axis)
		}
	}

	for _, m := range HandleMeshes(Rotate) {
		for _, v := range m.Triangles {
			// Rings lie around their axis.
			assert.LessOrEqual(t, v.Dot(m.Axis.Unit()), RingHeight/2+1e-4)
		}
	}
}

func TestAxisAndModeStrings(t *testing.T) {
	assert.Equal(t, "x", AxisX.String())
	assert.Equal(t, "none", AxisNone.String())
	assert.Equal(t, -1, AxisNone.Index())
	assert.Equal(t, 2, AxisZ.Index())
	assert.Equal(t, "rotate", Rotate.String())
	assert.False(t, Mode(7).Valid())

	m, err := ParseMode("scale")
	require.NoError(t, err)
	assert.Equal(t, Scale, m)
	_, err = ParseMode("shear")
	assert.Error(t, err)
}
