package soft

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/picking"
)

// minW drops triangles with a vertex at or behind the eye plane.
const minW = 1e-5

type screenVertex struct {
	X, Y, Z float32
}

// Backend is the CPU picking.Backend.
type Backend struct{}

func NewBackend() *Backend { return &Backend{} }

func (b *Backend) NewTarget(width, height int) (picking.Target, error) {
	return NewFramebuffer(width, height), nil
}

// RenderHandles rasterizes the pass's handle meshes with flat colours. There
// is no blending, lighting or antialiasing, so every covered pixel carries
// exactly the handle colour. Depth is tested among the handles only, so they
// overlay whatever the target already holds.
func (b *Backend) RenderHandles(dst picking.Target, pass picking.HandlePass) error {
	fb, ok := dst.(*Framebuffer)
	if !ok {
		return ErrForeignTarget
	}
	fb.clearDepth()
	mvp := pass.Projection.Mul4(pass.View).Mul4(pass.Model)
	for i, mesh := range core.HandleMeshes(pass.Mode) {
		tris := mesh.Triangles
		for j := 0; j+2 < len(tris); j += 3 {
			fb.drawTriangle(mvp, tris[j], tris[j+1], tris[j+2], pass.Colors[i], pass.DepthTest)
		}
	}
	return nil
}

// RenderMesh rasterizes an arbitrary triangle list with one flat colour and
// depth testing, for host geometry drawn under the handles.
func (b *Backend) RenderMesh(dst picking.Target, tris []mgl32.Vec3, mvp mgl32.Mat4, col color.RGBA) error {
	fb, ok := dst.(*Framebuffer)
	if !ok {
		return ErrForeignTarget
	}
	for j := 0; j+2 < len(tris); j += 3 {
		fb.drawTriangle(mvp, tris[j], tris[j+1], tris[j+2], col, true)
	}
	return nil
}

func (fb *Framebuffer) drawTriangle(mvp mgl32.Mat4, a, b, c mgl32.Vec3, col color.RGBA, depthTest bool) {
	size := fb.Size()
	w, h := float32(size.X), float32(size.Y)

	var sv [3]screenVertex
	for i, p := range [3]mgl32.Vec3{a, b, c} {
		clip := mvp.Mul4x1(p.Vec4(1))
		if clip.W() <= minW {
			return
		}
		sv[i] = screenVertex{
			X: (clip.X()/clip.W() + 1) * 0.5 * w,
			Y: (1 - clip.Y()/clip.W()) * 0.5 * h,
			Z: clip.Z() / clip.W(),
		}
	}

	area := edge(sv[0], sv[1], sv[2].X, sv[2].Y)
	if area == 0 {
		return
	}

	minX := clampInt(floor(min(sv[0].X, sv[1].X, sv[2].X)), 0, size.X-1)
	maxX := clampInt(ceil(max(sv[0].X, sv[1].X, sv[2].X)), 0, size.X-1)
	minY := clampInt(floor(min(sv[0].Y, sv[1].Y, sv[2].Y)), 0, size.Y-1)
	maxY := clampInt(ceil(max(sv[0].Y, sv[1].Y, sv[2].Y)), 0, size.Y-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5

			// Both windings are drawn: the sign of area normalizes the weights.
			w0 := edge(sv[1], sv[2], px, py) / area
			w1 := edge(sv[2], sv[0], px, py) / area
			w2 := edge(sv[0], sv[1], px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*sv[0].Z + w1*sv[1].Z + w2*sv[2].Z
			if z < -1 || z > 1 {
				continue
			}
			fb.plot(x, y, z, col, depthTest)
		}
	}
}

func edge(a, b screenVertex, px, py float32) float32 {
	return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
}

func floor(f float32) int { return int(math.Floor(float64(f))) }
func ceil(f float32) int  { return int(math.Ceil(float64(f))) }

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
