package sim

import "math"

// PenThresholdUs separates pen-down from pen-up pulse widths.
const PenThresholdUs = 1300

// Point is a position on the paper in millimetres.
type Point struct {
	X, Y float64
}

// Geometry describes the wheels.
type Geometry struct {
	WheelDiameter float64 // mm
	WheelBase     float64 // mm, between wheel contact points
	StepsPerRev   int
}

// DefaultGeometry matches the unit conversions in the driver.
var DefaultGeometry = Geometry{WheelDiameter: 50.5, WheelBase: 77.2, StepsPerRev: 4096}

// MMPerStep returns the wheel travel of one step.
func (g Geometry) MMPerStep() float64 {
	return math.Pi * g.WheelDiameter / float64(g.StepsPerRev)
}

// Tracker integrates the robot pose from wheel steps and keeps the
// pen-down trace. Positive right-wheel steps and negative left-wheel steps
// drive forward. Heading is in radians, counter-clockwise from +X.
//
// The driver moves the left wheel then the right wheel on every control
// tick, so a left delta is held until the matching right delta arrives
// and both are integrated as one differential-drive update.
type Tracker struct {
	geo     Geometry
	step    float64
	traceMM float64

	pos     Point
	heading float64
	pen     bool

	pendingLeft float64
	pending     bool

	strokes [][]Point
	drawn   float64
}

// NewTracker starts at the origin facing +X, pen up. A trace point is
// recorded every traceMM of pen-down travel.
func NewTracker(geo Geometry, traceMM float64) *Tracker {
	return &Tracker{geo: geo, step: geo.MMPerStep(), traceMM: traceMM}
}

// LeftStep records delta steps of the left wheel for the current tick.
func (t *Tracker) LeftStep(delta int) {
	// a second left delta means the right wheel did not move last tick
	t.flush()
	t.pendingLeft = -float64(delta) * t.step
	t.pending = true
}

// RightStep applies delta steps of the right wheel together with any
// pending left delta.
func (t *Tracker) RightStep(delta int) {
	left := t.pendingLeft
	t.pendingLeft, t.pending = 0, false
	t.integrate(left, float64(delta)*t.step)
}

func (t *Tracker) flush() {
	if !t.pending {
		return
	}
	left := t.pendingLeft
	t.pendingLeft, t.pending = 0, false
	t.integrate(left, 0)
}

// integrate moves the wheels by dl and dr mm of forward travel.
func (t *Tracker) integrate(dl, dr float64) {
	d := (dl + dr) / 2
	dTheta := (dr - dl) / t.geo.WheelBase
	mid := t.heading + dTheta/2
	t.pos.X += d * math.Cos(mid)
	t.pos.Y += d * math.Sin(mid)
	t.heading = math.Remainder(t.heading+dTheta, 2*math.Pi)
	if t.pen {
		t.drawn += (math.Abs(dl) + math.Abs(dr)) / 2
		if t.drawn >= t.traceMM {
			t.record()
		}
	}
}

// Pen follows the servo pulse width; zero leaves the state unchanged.
func (t *Tracker) Pen(pulseUs uint16) {
	if pulseUs == 0 {
		return
	}
	t.flush()
	down := pulseUs > PenThresholdUs
	if down == t.pen {
		return
	}
	if down {
		t.strokes = append(t.strokes, []Point{t.pos})
	} else {
		t.record()
	}
	t.pen = down
	t.drawn = 0
}

func (t *Tracker) record() {
	n := len(t.strokes) - 1
	if n < 0 {
		return
	}
	stroke := t.strokes[n]
	if stroke[len(stroke)-1] != t.pos {
		t.strokes[n] = append(stroke, t.pos)
	}
	t.drawn = 0
}

// Position returns the body centre.
func (t *Tracker) Position() Point {
	t.flush()
	return t.pos
}

// Heading returns the body heading in radians in (-π, π].
func (t *Tracker) Heading() float64 {
	t.flush()
	return t.heading
}

// PenDown reports the tracked pen state.
func (t *Tracker) PenDown() bool { return t.pen }

// Strokes returns the pen-down polylines, closing the open one at the
// current position.
func (t *Tracker) Strokes() [][]Point {
	t.flush()
	if t.pen {
		t.record()
	}
	out := make([][]Point, len(t.strokes))
	for i, s := range t.strokes {
		out[i] = append([]Point(nil), s...)
	}
	return out
}
