package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mode is the manipulator's interaction mode.
type Mode int

const (
	Translate Mode = iota
	Rotate
	Scale
)

func (m Mode) String() string {
	switch m {
	case Translate:
		return "translate"
	case Rotate:
		return "rotate"
	case Scale:
		return "scale"
	}
	return "unknown"
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m := Translate; m <= Scale; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("core: unknown mode %q", s)
}

// Valid reports whether m is one of the three modes.
func (m Mode) Valid() bool { return m >= Translate && m <= Scale }

// Axis identifies a handle. AxisNone is the common "nothing hovered" value,
// not an error.
type Axis int

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

// Axes lists the three real axes in X, Y, Z order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "none"
}

func (a Axis) Valid() bool { return a >= AxisX && a <= AxisZ }

// Index returns 0, 1 or 2 for X, Y, Z and -1 for AxisNone.
func (a Axis) Index() int {
	if !a.Valid() {
		return -1
	}
	return int(a) - 1
}

// Unit returns the axis direction in local space.
func (a Axis) Unit() mgl32.Vec3 {
	switch a {
	case AxisX:
		return mgl32.Vec3{1, 0, 0}
	case AxisY:
		return mgl32.Vec3{0, 1, 0}
	case AxisZ:
		return mgl32.Vec3{0, 0, 1}
	}
	return mgl32.Vec3{}
}

// Viewport is the logical window rectangle in pixels.
type Viewport struct {
	Width  int
	Height int
}

func (v Viewport) Valid() bool { return v.Width > 0 && v.Height > 0 }

func (v Viewport) Aspect() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}
