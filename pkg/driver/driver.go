// Package driver is the motion kernel of the plotter: it converts physical
// units into virtual steps, runs the acceleration-limited move loop that
// splits one virtual axis across both wheels, sequences the pen and plays
// stored drawings with cooperative cancellation.
//
// A Driver is owned by a single control goroutine. Nothing in this package
// blocks other than busy-waiting on the tick source.
package driver

import (
	"io"

	"penbot/pkg/calibration"
	"penbot/pkg/clock"
	"penbot/pkg/errors"
	"penbot/pkg/log"
	"penbot/pkg/motion"
)

// Stepper is a wheel motor advanced in signed half-steps.
type Stepper interface {
	Init()
	Off()
	Move(delta int8)
}

// Servo is the pen actuator.
type Servo interface {
	Init()
	Off()
	Set(pulseUs uint16)
}

// Interrupted is the cancellation predicate polled once per loop tick.
// Returning true stops motion at once.
type Interrupted func() bool

// Hardware bundles the ports the kernel drives.
type Hardware struct {
	Clock clock.Source
	Left  Stepper
	Right Stepper
	Servo Servo
}

// DefaultPenSettleUs is the time allowed for the pen to seat after the
// servo is commanded.
const DefaultPenSettleUs = 200000

// Options tune driver policy. The zero value matches the stock robot.
type Options struct {
	// LiftPenWhenRotating raises a lowered pen for the duration of every
	// rotation and lowers it again afterwards.
	LiftPenWhenRotating bool

	// PenSettleUs overrides DefaultPenSettleUs when non-zero.
	PenSettleUs uint32

	Logger   *log.Logger
	Observer Observer
}

// Driver executes motion commands against Hardware.
type Driver struct {
	hw   Hardware
	cal  calibration.Data
	opts Options
	log  *log.Logger
	obs  Observer

	left, right motion.Channel
	angleBias   int32 // Q8.8 steps carried between rotations
	pen         bool
	state       PlayState
}

// New creates a driver with an owned copy of cal.
func New(hw Hardware, cal calibration.Data, opts Options) (*Driver, error) {
	switch {
	case hw.Clock == nil:
		return nil, errors.New(errors.ErrInvalidHardware, "driver needs a tick source")
	case hw.Left == nil || hw.Right == nil:
		return nil, errors.New(errors.ErrInvalidHardware, "driver needs both steppers")
	case hw.Servo == nil:
		return nil, errors.New(errors.ErrInvalidHardware, "driver needs a pen servo")
	}
	if opts.PenSettleUs == 0 {
		opts.PenSettleUs = DefaultPenSettleUs
	}
	d := &Driver{
		hw:   hw,
		cal:  cal,
		opts: opts,
		log:  opts.Logger,
		obs:  opts.Observer,
	}
	if d.log == nil {
		d.log = log.GetLogger("driver")
	}
	if d.obs == nil {
		d.obs = NopObserver{}
	}
	d.log.WithFields(log.Fields{
		"angle_offset": cal.AngleOffset,
		"left":         cal.LeftFraction,
		"right":        cal.RightFraction,
		"pen_down":     cal.PenDown,
		"pen_up":       cal.PenUp,
	}).Debug("calibration loaded")
	return d, nil
}

// NewFromStorage block-copies the calibration record at offset and creates
// a driver with it. Records that fail validation, including erased
// storage, are rejected.
func NewFromStorage(hw Hardware, storage io.ReaderAt, offset int64, opts Options) (*Driver, error) {
	cal, err := calibration.Load(storage, offset)
	if err != nil {
		return nil, err
	}
	if err := cal.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCalibration, "stored calibration record").SetContext("offset", offset)
	}
	return New(hw, cal, opts)
}

// Init brings up all actuators and raises the pen.
func (d *Driver) Init() {
	d.hw.Clock.Init()
	d.hw.Left.Init()
	d.hw.Right.Init()
	d.hw.Servo.Init()
	d.Pen(false)
}

// Off de-energises both steppers and the servo.
func (d *Driver) Off() {
	d.hw.Left.Off()
	d.hw.Right.Off()
	d.hw.Servo.Off()
}

// Pen moves the pen and waits for it to settle.
func (d *Driver) Pen(down bool) {
	if down {
		d.hw.Servo.Set(d.cal.PenDown)
	} else {
		d.hw.Servo.Set(d.cal.PenUp)
	}
	d.pen = down
	d.obs.PenChanged(down)
	d.DelayUs(d.opts.PenSettleUs)
}

// PenDown reports the last commanded pen state.
func (d *Driver) PenDown() bool { return d.pen }

// DelayUs busy-waits on the tick source.
func (d *Driver) DelayUs(us uint32) {
	clock.DelayUs(d.hw.Clock, us)
}

// CalibrationData returns the driver's calibration copy.
func (d *Driver) CalibrationData() calibration.Data { return d.cal }

// AngleBias returns the carried rotation bias in 1/256 steps.
func (d *Driver) AngleBias() int32 { return d.angleBias }

// State returns the player state of the current or last drawing.
func (d *Driver) State() PlayState { return d.state }

// ForwardSteps drives straight for steps virtual steps, backwards when
// negative. The left wheel is mounted mirrored, so its fraction is negated.
func (d *Driver) ForwardSteps(interrupted Interrupted, steps int16) bool {
	sign, n := split(int32(steps))
	return d.move(MoveForward, interrupted,
		int16(-sign)*d.cal.LeftFraction, int16(sign)*d.cal.RightFraction, n)
}

// RotateSteps turns in place by steps virtual steps plus the accumulated
// calibration bias; positive turns clockwise seen from above.
func (d *Driver) RotateSteps(interrupted Interrupted, steps int16) bool {
	d.angleBias += int32(d.cal.AngleOffset)
	total := int32(steps) + d.angleBias/256
	d.angleBias %= 256
	sign, n := split(total)

	lift := d.opts.LiftPenWhenRotating && d.pen
	if lift {
		d.Pen(false)
	}
	ok := d.move(MoveRotate, interrupted,
		int16(-sign)*d.cal.LeftFraction, int16(-sign)*d.cal.RightFraction, n)
	if lift {
		d.Pen(true)
	}
	return ok
}

// Forward drives um micrometres, up to about half a metre per call.
func (d *Driver) Forward(interrupted Interrupted, um int32) bool {
	return d.ForwardSteps(interrupted, ForwardStepsFor(um))
}

// Rotate turns by the given angle in arc minutes. The sub-step part of the
// conversion is dropped on every call.
//
// TODO: carry the conversion remainder between calls like angleBias does,
// once the calibration routine can measure the residual drift.
func (d *Driver) Rotate(interrupted Interrupted, minutes int16) bool {
	return d.RotateSteps(interrupted, RotateStepsFor(minutes))
}

// ForwardStepsFor converts micrometres to virtual steps, rounding to
// nearest for positive distances (50.5 mm wheel, 4096 steps per turn).
func ForwardStepsFor(um int32) int16 {
	return int16((int64(um)*4096 + 79325) / 158650)
}

// RotateStepsFor converts arc minutes of body rotation to virtual steps
// (77.2 mm wheel separation).
func RotateStepsFor(minutes int16) int16 {
	return int16(int32(minutes) * 10000 / 34496)
}

func split(v int32) (sign int32, n uint16) {
	if v < 0 {
		return -1, uint16(-v)
	}
	return 1, uint16(v)
}

// move runs the profile over n virtual steps, feeding both wheels through
// their allocator channels. It returns false as soon as interrupted does;
// motion already issued stays issued.
func (d *Driver) move(kind MoveKind, interrupted Interrupted, leftFraction, rightFraction int16, n uint16) bool {
	var (
		w     motion.Profile
		s     uint16
		ticks uint64
	)
	d.left.Restart()
	d.right.Restart()
	start := d.hw.Clock.GetTime()
	for s < n {
		end := d.hw.Clock.GetTime()
		dt := clock.Elapsed(start, end)
		a := int64(motion.MaxAcceleration)
		if w.Braking(n - s) {
			a = -a
		}
		s = uint16(int32(s) + int32(w.Update(dt, a)))
		start = end
		ticks += uint64(dt)

		d.hw.Left.Move(int8(d.left.Advance(s, leftFraction)))
		d.hw.Right.Move(int8(d.right.Advance(s, rightFraction)))

		if interrupted() {
			d.finishMove(kind, n, ticks, false)
			// the next command starts from rest with no carried fraction
			d.left.Reset()
			d.right.Reset()
			return false
		}
	}
	d.finishMove(kind, n, ticks, true)
	return true
}

func (d *Driver) finishMove(kind MoveKind, n uint16, ticks uint64, completed bool) {
	d.obs.MoveFinished(MoveResult{
		Kind:      kind,
		Steps:     n,
		Left:      d.left.Position(),
		Right:     d.right.Position(),
		Ticks:     ticks,
		Completed: completed,
	})
}
