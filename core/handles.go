package core

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Handle dimensions in manipulator units, before the screen-size scale.
const (
	AxisLength  float32 = 30
	HeadLength  float32 = 6
	HeadRadius  float32 = 1.5
	ShaftRadius float32 = 0.5
	RingRadius  float32 = 30
	RingHeight  float32 = 2
	CubeSize    float32 = 3

	coneSlices = 12
	ringSlices = 30
)

// HandleMesh is the triangle list (three vertices per triangle) of one
// axis handle in local space.
type HandleMesh struct {
	Axis      Axis
	Triangles []mgl32.Vec3
}

var (
	meshOnce  sync.Once
	meshCache map[Mode][3]HandleMesh
)

// HandleMeshes returns the handles drawn for mode, ordered X, Y, Z. The
// slices are shared and must not be modified.
func HandleMeshes(mode Mode) [3]HandleMesh {
	meshOnce.Do(func() {
		meshCache = map[Mode][3]HandleMesh{
			Translate: buildHandles(arrowShape()),
			Rotate:    buildHandles(ringShape()),
			Scale:     buildHandles(scaleShape()),
		}
	})
	return meshCache[mode]
}

// buildHandles maps a shape built along +X onto each axis with a cyclic
// permutation, which keeps the winding of every triangle.
func buildHandles(canonical []mgl32.Vec3) [3]HandleMesh {
	var out [3]HandleMesh
	for i, a := range Axes {
		tris := make([]mgl32.Vec3, len(canonical))
		for j, v := range canonical {
			tris[j] = permute(v, i)
		}
		out[i] = HandleMesh{Axis: a, Triangles: tris}
	}
	return out
}

func permute(v mgl32.Vec3, shift int) mgl32.Vec3 {
	switch shift {
	case 1:
		return mgl32.Vec3{v[2], v[0], v[1]}
	case 2:
		return mgl32.Vec3{v[1], v[2], v[0]}
	}
	return v
}

func arrowShape() []mgl32.Vec3 {
	shaftEnd := AxisLength - HeadLength
	tris := box(mgl32.Vec3{0, -ShaftRadius, -ShaftRadius}, mgl32.Vec3{shaftEnd, ShaftRadius, ShaftRadius})
	return append(tris, cone(shaftEnd, AxisLength, HeadRadius, coneSlices)...)
}

func scaleShape() []mgl32.Vec3 {
	h := CubeSize / 2
	tris := box(mgl32.Vec3{0, -ShaftRadius, -ShaftRadius}, mgl32.Vec3{AxisLength - h, ShaftRadius, ShaftRadius})
	return append(tris, box(mgl32.Vec3{AxisLength - h, -h, -h}, mgl32.Vec3{AxisLength + h, h, h})...)
}

// ringShape is an open cylinder band around +X, lying in the YZ plane.
func ringShape() []mgl32.Vec3 {
	h := RingHeight / 2
	tris := make([]mgl32.Vec3, 0, ringSlices*6)
	for i := 0; i < ringSlices; i++ {
		c1, s1 := circle(i, ringSlices)
		c2, s2 := circle(i+1, ringSlices)
		p1 := mgl32.Vec3{-h, RingRadius * c1, RingRadius * s1}
		p2 := mgl32.Vec3{-h, RingRadius * c2, RingRadius * s2}
		p3 := mgl32.Vec3{h, RingRadius * c2, RingRadius * s2}
		p4 := mgl32.Vec3{h, RingRadius * c1, RingRadius * s1}
		tris = append(tris, p1, p2, p3, p1, p3, p4)
	}
	return tris
}

// Cube returns the triangles of an axis-aligned cube centred on the origin.
func Cube(half float32) []mgl32.Vec3 {
	return box(mgl32.Vec3{-half, -half, -half}, mgl32.Vec3{half, half, half})
}

func cone(base, tip, radius float32, slices int) []mgl32.Vec3 {
	apex := mgl32.Vec3{tip, 0, 0}
	center := mgl32.Vec3{base, 0, 0}
	tris := make([]mgl32.Vec3, 0, slices*6)
	for i := 0; i < slices; i++ {
		c1, s1 := circle(i, slices)
		c2, s2 := circle(i+1, slices)
		p1 := mgl32.Vec3{base, radius * c1, radius * s1}
		p2 := mgl32.Vec3{base, radius * c2, radius * s2}
		tris = append(tris, p1, p2, apex, p2, p1, center)
	}
	return tris
}

func box(min, max mgl32.Vec3) []mgl32.Vec3 {
	c := [8]mgl32.Vec3{
		{min[0], min[1], min[2]}, {max[0], min[1], min[2]},
		{max[0], max[1], min[2]}, {min[0], max[1], min[2]},
		{min[0], min[1], max[2]}, {max[0], min[1], max[2]},
		{max[0], max[1], max[2]}, {min[0], max[1], max[2]},
	}
	faces := [6][4]int{
		{0, 3, 2, 1}, // -z
		{4, 5, 6, 7}, // +z
		{0, 1, 5, 4}, // -y
		{3, 7, 6, 2}, // +y
		{0, 4, 7, 3}, // -x
		{1, 2, 6, 5}, // +x
	}
	tris := make([]mgl32.Vec3, 0, 36)
	for _, f := range faces {
		tris = append(tris, c[f[0]], c[f[1]], c[f[2]], c[f[0]], c[f[2]], c[f[3]])
	}
	return tris
}

func circle(i, n int) (float32, float32) {
	a := 2 * math.Pi * float64(i%n) / float64(n)
	return float32(math.Cos(a)), float32(math.Sin(a))
}
