// Package picking implements colour-ID picking for the manipulator's handles.
//
// The handles are drawn into an off-screen target, one flat colour per axis.
// Resolving the hovered axis copies a small neighbourhood around the cursor
// into a tiny sampling target and reads only that back to the CPU.
package picking

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo/core"
)

// Target is an RGBA8 render target. Pixel (0,0) is the top-left corner.
type Target interface {
	Size() image.Point
	// Clear resets every pixel to transparent black and the depth to far.
	Clear() error
	// CopyTo copies the src area of this target onto the whole of dst,
	// stretching with nearest filtering when sizes differ. The parts of src
	// outside this target leave dst untouched.
	CopyTo(dst Target, src image.Rectangle) error
	// ReadPixels fills buf with the target's RGBA rows, top row first.
	// len(buf) must be Size().X * Size().Y * 4.
	ReadPixels(buf []byte) error
}

// HandlePass describes one draw of the handles of a single mode.
type HandlePass struct {
	Mode       core.Mode
	View       mgl32.Mat4
	Projection mgl32.Mat4
	// Model places the handle meshes: the unscaled transform times the
	// screen-size scale.
	Model mgl32.Mat4
	// Colors holds the flat colour of the X, Y and Z handle.
	Colors    [3]color.RGBA
	DepthTest bool
}

// HandleRenderer draws handle geometry. It is the boundary to whatever
// graphics API the host uses.
type HandleRenderer interface {
	RenderHandles(dst Target, pass HandlePass) error
}

// Backend creates targets and draws into them.
type Backend interface {
	NewTarget(width, height int) (Target, error)
	HandleRenderer
}

// Pick colours packed as 0xRRGGBB.
const (
	PickRed   uint32 = 0xff0000
	PickGreen uint32 = 0x00ff00
	PickBlue  uint32 = 0x0000ff
)

// PickColors returns the fixed colour assignment used in the picking
// target, ordered X, Y, Z.
func PickColors() [3]color.RGBA {
	return [3]color.RGBA{
		{R: 0xff, A: 0xff},
		{G: 0xff, A: 0xff},
		{B: 0xff, A: 0xff},
	}
}

// Pack folds the colour channels into one 24-bit value. Alpha is ignored.
func Pack(r, g, b uint8) uint32 {
	return uint32(b) | uint32(g)<<8 | uint32(r)<<16
}
