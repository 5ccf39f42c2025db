package gizmo

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// PointerEvent is a pointer position in window pixels, origin top-left.
type PointerEvent struct {
	X, Y float64
}

// PointerHandler receives the pointer events of one window. Move is hover
// motion with no button held, Drag is motion with the primary button held.
type PointerHandler interface {
	OnPointerDown(e PointerEvent)
	OnPointerUp(e PointerEvent)
	OnPointerMove(e PointerEvent)
	OnPointerDrag(e PointerEvent)
	OnResize(width, height int)
}

// InputSource delivers pointer events to subscribed handlers.
type InputSource interface {
	Subscribe(h PointerHandler) (unsubscribe func())
}

// pointerRouter turns raw cursor and button callbacks into PointerHandler
// calls.
type pointerRouter struct {
	h    PointerHandler
	down bool
	x, y float64
}

func (r *pointerRouter) cursor(x, y float64) {
	r.x, r.y = x, y
	e := PointerEvent{X: x, Y: y}
	if r.down {
		r.h.OnPointerDrag(e)
		return
	}
	r.h.OnPointerMove(e)
}

func (r *pointerRouter) button(pressed bool) {
	e := PointerEvent{X: r.x, Y: r.y}
	switch {
	case pressed && !r.down:
		r.down = true
		r.h.OnPointerDown(e)
	case !pressed && r.down:
		r.down = false
		r.h.OnPointerUp(e)
	}
}

func (r *pointerRouter) resize(width, height int) {
	if width <= 0 || height <= 0 {
		// Minimized.
		return
	}
	r.h.OnResize(width, height)
}

// GLFWInput adapts a GLFW window. Each subscription installs the window's
// cursor, mouse button and size callbacks and chains to the ones that were
// there before. Unsubscribing puts the previous callbacks back.
type GLFWInput struct {
	win *glfw.Window
}

func NewGLFWInput(win *glfw.Window) *GLFWInput {
	return &GLFWInput{win: win}
}

func (in *GLFWInput) Subscribe(h PointerHandler) func() {
	r := &pointerRouter{h: h}
	r.x, r.y = in.win.GetCursorPos()

	var (
		prevCursor glfw.CursorPosCallback
		prevButton glfw.MouseButtonCallback
		prevSize   glfw.SizeCallback
	)
	prevCursor = in.win.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if prevCursor != nil {
			prevCursor(w, x, y)
		}
		r.cursor(x, y)
	})
	prevButton = in.win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if prevButton != nil {
			prevButton(w, button, action, mods)
		}
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			r.button(true)
		case glfw.Release:
			r.button(false)
		}
	})
	prevSize = in.win.SetSizeCallback(func(w *glfw.Window, width, height int) {
		if prevSize != nil {
			prevSize(w, width, height)
		}
		r.resize(width, height)
	})

	return func() {
		in.win.SetCursorPosCallback(prevCursor)
		in.win.SetMouseButtonCallback(prevButton)
		in.win.SetSizeCallback(prevSize)
	}
}
