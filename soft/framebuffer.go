// Package soft renders the manipulator's handles on the CPU. It backs
// headless hosts and tests, and follows the same contract as the GPU backend.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"

	"github.com/gekko3d/gizmo/picking"
)

var ErrForeignTarget = errors.New("soft: target belongs to another backend")

// Framebuffer is an RGBA colour buffer with a depth buffer.
type Framebuffer struct {
	img   *image.RGBA
	depth []float32
}

func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		depth: make([]float32, width*height),
	}
	fb.clearDepth()
	return fb
}

func (fb *Framebuffer) Size() image.Point { return fb.img.Rect.Size() }

// Image exposes the colour buffer. It aliases the framebuffer's memory.
func (fb *Framebuffer) Image() *image.RGBA { return fb.img }

func (fb *Framebuffer) Clear() error {
	clear(fb.img.Pix)
	fb.clearDepth()
	return nil
}

// Fill paints every pixel with c and resets the depth.
func (fb *Framebuffer) Fill(c color.RGBA) {
	draw.Draw(fb.img, fb.img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	fb.clearDepth()
}

func (fb *Framebuffer) clearDepth() {
	n := len(fb.depth)
	if n == 0 {
		return
	}
	fb.depth[0] = math.MaxFloat32
	for i := 1; i < n; i *= 2 {
		copy(fb.depth[i:], fb.depth[:i])
	}
}

func (fb *Framebuffer) CopyTo(dst picking.Target, src image.Rectangle) error {
	d, ok := dst.(*Framebuffer)
	if !ok {
		return ErrForeignTarget
	}
	if src.Empty() {
		return nil
	}

	clip := src.Intersect(fb.img.Rect)
	if clip.Empty() {
		return nil
	}

	// Map the clipped source area onto the matching part of dst.
	ds := d.Size()
	dr := image.Rect(
		(clip.Min.X-src.Min.X)*ds.X/src.Dx(),
		(clip.Min.Y-src.Min.Y)*ds.Y/src.Dy(),
		(clip.Max.X-src.Min.X)*ds.X/src.Dx(),
		(clip.Max.Y-src.Min.Y)*ds.Y/src.Dy(),
	)
	draw.NearestNeighbor.Scale(d.img, dr, fb.img, clip, draw.Src, nil)
	return nil
}

func (fb *Framebuffer) ReadPixels(buf []byte) error {
	if len(buf) != len(fb.img.Pix) {
		return fmt.Errorf("soft: read buffer is %d bytes, want %d", len(buf), len(fb.img.Pix))
	}
	copy(buf, fb.img.Pix)
	return nil
}

// At returns the colour at (x, y), transparent black outside the buffer.
func (fb *Framebuffer) At(x, y int) color.RGBA {
	if !image.Pt(x, y).In(fb.img.Rect) {
		return color.RGBA{}
	}
	return fb.img.RGBAAt(x, y)
}

// SavePNG writes the colour buffer to path.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, fb.img)
}

func (fb *Framebuffer) plot(x, y int, z float32, c color.RGBA, depthTest bool) {
	i := y*fb.img.Rect.Dx() + x
	if depthTest {
		if z >= fb.depth[i] {
			return
		}
		fb.depth[i] = z
	}
	fb.img.SetRGBA(x, y, c)
}
