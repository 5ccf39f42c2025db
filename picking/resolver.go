package picking

import (
	"fmt"
	"image"

	"github.com/gekko3d/gizmo/core"
)

// Counts is the number of exact pick-colour matches per axis, X, Y, Z.
type Counts [3]int

func (c Counts) Total() int { return c[0] + c[1] + c[2] }

// Winner returns the axis with a strict plurality. Ties and empty
// neighbourhoods give AxisNone.
func (c Counts) Winner() core.Axis {
	best, bestN, tied := core.AxisNone, 0, false
	for i, n := range c {
		switch {
		case n > bestN:
			best, bestN, tied = core.Axes[i], n, false
		case n == bestN && n > 0:
			tied = true
		}
	}
	if tied {
		return core.AxisNone
	}
	return best
}

// Tally counts pick colours in RGBA pixel data. Matching is exact on the
// packed RGB value: the handles are flat and unlit, so anything else is
// background or a blended edge.
func Tally(rgba []byte) Counts {
	var c Counts
	for i := 0; i+3 < len(rgba); i += 4 {
		switch Pack(rgba[i], rgba[i+1], rgba[i+2]) {
		case PickRed:
			c[0]++
		case PickGreen:
			c[1]++
		case PickBlue:
			c[2]++
		}
	}
	return c
}

// Resolver finds the axis under the cursor from a Buffer.
type Resolver struct {
	buf    *Buffer
	pixels []byte
	last   Counts
}

func NewResolver(buf *Buffer) *Resolver {
	s := buf.SampleSize()
	return &Resolver{buf: buf, pixels: make([]byte, s.X*s.Y*4)}
}

// Resolve votes on the axis around buffer pixel (x, y). Only the sampling
// target is read back.
func (r *Resolver) Resolve(x, y int) (core.Axis, error) {
	s := r.buf.SampleSize()
	area := image.Rect(x-s.X/2, y-s.Y/2, x-s.X/2+s.X, y-s.Y/2+s.Y)

	if err := r.buf.sample.Clear(); err != nil {
		return core.AxisNone, fmt.Errorf("clear sampling target: %w", err)
	}
	if err := r.buf.main.CopyTo(r.buf.sample, area); err != nil {
		return core.AxisNone, fmt.Errorf("copy cursor area %v: %w", area, err)
	}
	if err := r.buf.sample.ReadPixels(r.pixels); err != nil {
		return core.AxisNone, fmt.Errorf("read sampling target: %w", err)
	}

	r.last = Tally(r.pixels)
	return r.last.Winner(), nil
}

// Last returns the counts of the most recent Resolve.
func (r *Resolver) Last() Counts { return r.last }

// ReadbackSize is the number of bytes each Resolve transfers to the CPU.
func (r *Resolver) ReadbackSize() int { return len(r.pixels) }
