package picking

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo/core"
)

// ReferenceDistance is the camera distance at which the handles are drawn
// at their nominal size.
const ReferenceDistance float32 = 200

var ErrInvalidSize = errors.New("picking: invalid buffer size")

// Buffer is the picking render target plus the tiny sampling target used to
// read pixels back around the cursor. Its capacity is fixed at creation.
type Buffer struct {
	main     Target
	sample   Target
	renderer HandleRenderer
	density  float32
}

// New sizes the main target as density times the viewport and the sampling
// target as sampleSize squared.
func New(backend Backend, vp core.Viewport, density float32, sampleSize int) (*Buffer, error) {
	if !vp.Valid() {
		return nil, fmt.Errorf("viewport %dx%d: %w", vp.Width, vp.Height, ErrInvalidSize)
	}
	if sampleSize <= 0 {
		return nil, fmt.Errorf("sample size %d: %w", sampleSize, ErrInvalidSize)
	}
	if density <= 0 || density > 1 {
		density = 1
	}

	w := max(1, int(float32(vp.Width)*density))
	h := max(1, int(float32(vp.Height)*density))

	main, err := backend.NewTarget(w, h)
	if err != nil {
		return nil, fmt.Errorf("create picking target: %w", err)
	}
	sample, err := backend.NewTarget(sampleSize, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("create sampling target: %w", err)
	}

	return &Buffer{main: main, sample: sample, renderer: backend, density: density}, nil
}

func (b *Buffer) Size() image.Point       { return b.main.Size() }
func (b *Buffer) SampleSize() image.Point { return b.sample.Size() }
func (b *Buffer) Density() float32        { return b.density }

// Main exposes the picking target, for debugging views.
func (b *Buffer) Main() Target { return b.main }

// Render regenerates the buffer content. The pass colours are replaced by
// the pick colours and depth testing is forced on.
func (b *Buffer) Render(pass HandlePass) error {
	if err := b.main.Clear(); err != nil {
		return fmt.Errorf("clear picking target: %w", err)
	}
	pass.Colors = PickColors()
	pass.DepthTest = true
	if err := b.renderer.RenderHandles(b.main, pass); err != nil {
		return fmt.Errorf("render picking handles: %w", err)
	}
	return nil
}

// ToBuffer maps a window pixel to a buffer pixel through the logical
// viewport, which may differ from the size the buffer was created with.
func (b *Buffer) ToBuffer(x, y float32, vp core.Viewport) (int, int) {
	size := b.main.Size()
	if !vp.Valid() {
		return -1, -1
	}
	bx := x / float32(vp.Width) * float32(size.X)
	by := y / float32(vp.Height) * float32(size.Y)
	return int(bx), int(by)
}

// ScreenScale returns the factor that keeps the handles at a constant
// apparent size regardless of camera distance.
func ScreenScale(position, eye mgl32.Vec3, size float32) float32 {
	return size * position.Sub(eye).Len() / ReferenceDistance
}

// HandleModel places the handle meshes at the unscaled transform with a
// uniform screen-size scale.
func HandleModel(unscaled mgl32.Mat4, scale float32) mgl32.Mat4 {
	return unscaled.Mul4(mgl32.Scale3D(scale, scale, scale))
}
