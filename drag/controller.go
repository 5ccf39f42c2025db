// Package drag turns pointer motion into constrained transform updates.
package drag

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo/core"
)

const (
	DefaultMaxDelta  float32 = 50
	DefaultScaleStep float32 = 0.01

	// minFacing is the |cos| between the pointer ray and the anchor plane
	// normal below which the alternate plane is used.
	minFacing float32 = 1e-3
)

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Outcome reports what a drag frame did.
type Outcome int

const (
	// Applied means the transform changed.
	Applied Outcome = iota
	// Inert means there is no axis to project onto, or no drag in progress.
	Inert
	// Skipped means the ray missed the anchor plane, the first anchor was
	// just recorded, or the motion had no component along the axis.
	Skipped
	// Rejected means the delta exceeded MaxDelta and was dropped. The
	// anchor still moves to the new hit so the next frame starts clean.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Inert:
		return "inert"
	case Skipped:
		return "skipped"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

type Config struct {
	// MaxDelta is the largest per-frame world-space delta accepted before
	// the frame is treated as an intersection glitch.
	MaxDelta float32
	// ScaleStep converts a world-space delta along an axis into a scale
	// increment.
	ScaleStep float32
}

func DefaultConfig() Config {
	return Config{MaxDelta: DefaultMaxDelta, ScaleStep: DefaultScaleStep}
}

// Pointer is one pointer sample: its window position and the camera ray
// through it.
type Pointer struct {
	Screen mgl32.Vec2
	Ray    core.Ray
}

// Controller is the Idle/Dragging state machine acting on a Transform.
// Deltas are incremental: every applied frame moves the anchor.
type Controller struct {
	cfg Config
	tr  *core.Transform

	state State
	mode  core.Mode
	axis  core.Axis

	dir       mgl32.Vec3 // world-space drag axis
	plane     core.Plane
	anchor    mgl32.Vec3
	hasAnchor bool

	arcball Arcball
}

func NewController(tr *core.Transform, cfg Config) *Controller {
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = DefaultMaxDelta
	}
	if cfg.ScaleStep == 0 {
		cfg.ScaleStep = DefaultScaleStep
	}
	c := &Controller{cfg: cfg, tr: tr}
	c.arcball.SetView(mgl32.Ident4())
	c.arcball.SetWindow(mgl32.Vec2{}, 1)
	return c
}

func (c *Controller) State() State      { return c.state }
func (c *Controller) Dragging() bool    { return c.state == Dragging }
func (c *Controller) Axis() core.Axis   { return c.axis }
func (c *Controller) Mode() core.Mode   { return c.mode }
func (c *Controller) Plane() core.Plane { return c.plane }

// Anchor returns the last recorded intersection, if any.
func (c *Controller) Anchor() (mgl32.Vec3, bool) { return c.anchor, c.hasAnchor }

// SetView gives the arcball the camera's view matrix.
func (c *Controller) SetView(view mgl32.Mat4) { c.arcball.SetView(view) }

// SetArcballWindow places the rotation sphere on screen.
func (c *Controller) SetArcballWindow(center mgl32.Vec2, radius float32) {
	c.arcball.SetWindow(center, radius)
}

// Begin starts a drag. The state always becomes Dragging, even when there is
// no axis and the drag is therefore inert.
func (c *Controller) Begin(mode core.Mode, axis core.Axis, p Pointer) {
	c.state = Dragging
	c.mode = mode
	c.axis = axis
	c.hasAnchor = false
	c.dir = c.tr.LocalAxis(axis)

	if mode == core.Rotate {
		if axis.Valid() {
			c.arcball.SetConstraint(c.dir)
		} else {
			c.arcball.ClearConstraint()
		}
		c.arcball.Begin(p.Screen)
		return
	}

	if !axis.Valid() {
		return
	}
	c.plane = c.anchorPlane(axis, p.Ray)
	if hit, ok := c.plane.Intersect(p.Ray); ok {
		c.anchor = hit
		c.hasAnchor = true
	}
}

// Drag processes one pointer sample while dragging.
func (c *Controller) Drag(p Pointer) Outcome {
	if c.state != Dragging {
		return Inert
	}

	if c.mode == core.Rotate {
		q := c.arcball.Drag(p.Screen)
		if q == mgl32.QuatIdent() {
			return Skipped
		}
		c.tr.ApplyRotation(q)
		return Applied
	}

	if !c.axis.Valid() {
		return Inert
	}

	hit, ok := c.plane.Intersect(p.Ray)
	if !ok {
		return Skipped
	}
	if !c.hasAnchor {
		c.anchor = hit
		c.hasAnchor = true
		return Skipped
	}

	delta := hit.Sub(c.anchor)
	c.anchor = hit
	if delta.Len() > c.cfg.MaxDelta {
		return Rejected
	}
	return c.apply(delta)
}

// ApplyDelta feeds a world-space delta directly, bypassing the plane
// intersection. It follows the same projection and rejection rules as Drag.
func (c *Controller) ApplyDelta(delta mgl32.Vec3) Outcome {
	if c.state != Dragging || c.mode == core.Rotate || !c.axis.Valid() {
		return Inert
	}
	if delta.Len() > c.cfg.MaxDelta {
		return Rejected
	}
	return c.apply(delta)
}

// End returns to Idle. Nothing is restored.
func (c *Controller) End() {
	c.state = Idle
	c.axis = core.AxisNone
	c.hasAnchor = false
}

func (c *Controller) apply(delta mgl32.Vec3) Outcome {
	amount := delta.Dot(c.dir)
	if amount == 0 {
		return Skipped
	}

	switch c.mode {
	case core.Translate:
		c.tr.SetTranslate(c.tr.Translate().Add(c.dir.Mul(amount)))
	case core.Scale:
		s := c.tr.Scale()
		s[c.axis.Index()] += amount * c.cfg.ScaleStep
		c.tr.SetScale(s)
	default:
		return Inert
	}
	return Applied
}

// anchorPlane returns a plane through the manipulator that contains the drag
// axis. Each axis has a preferred normal, X uses local Y, Y uses local Z and
// Z uses local Y, with the remaining perpendicular axis as the fallback
// when the ray grazes the preferred plane.
func (c *Controller) anchorPlane(axis core.Axis, ray core.Ray) core.Plane {
	var preferred, alternate core.Axis
	switch axis {
	case core.AxisX:
		preferred, alternate = core.AxisY, core.AxisZ
	case core.AxisY:
		preferred, alternate = core.AxisZ, core.AxisX
	default:
		preferred, alternate = core.AxisY, core.AxisX
	}

	origin := c.tr.Translate()
	plane := core.Plane{Point: origin, Normal: c.tr.LocalAxis(preferred)}
	if plane.Facing(ray) < minFacing {
		alt := core.Plane{Point: origin, Normal: c.tr.LocalAxis(alternate)}
		if alt.Facing(ray) > plane.Facing(ray) {
			return alt
		}
	}
	return plane
}
