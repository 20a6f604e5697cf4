package sim

import (
	"penbot/pkg/clock"
	"penbot/pkg/config"
	"penbot/pkg/driver"
	"penbot/pkg/servo"
)

// CoilsPerStepper is the winding count of the simulated 28BYJ-48 motors.
const CoilsPerStepper = 4

// Robot is a complete set of virtual hardware with a pose tracker wired to
// the wheels and the pen servo.
type Robot struct {
	Clock     *clock.Virtual
	Left      *Stepper
	Right     *Stepper
	Timer     *Timer
	Channel   *Channel
	Subsystem *servo.Subsystem
	Servo     *servo.Servo
	Tracker   *Tracker
}

// NewRobot builds a robot from simulator settings. periodUs is the servo
// frame period.
func NewRobot(cfg config.SimConfig, periodUs uint16) (*Robot, error) {
	left, err := NewStepper(CoilsPerStepper)
	if err != nil {
		return nil, err
	}
	right, err := NewStepper(CoilsPerStepper)
	if err != nil {
		return nil, err
	}
	r := &Robot{
		Clock:   clock.NewVirtual(cfg.TicksPerRead),
		Left:    left,
		Right:   right,
		Timer:   &Timer{},
		Channel: &Channel{},
		Tracker: NewTracker(Geometry{
			WheelDiameter: cfg.WheelDiameter,
			WheelBase:     cfg.WheelBase,
			StepsPerRev:   cfg.StepsPerRev,
		}, cfg.TraceStepMM),
	}
	r.Subsystem = servo.NewSubsystem(r.Timer, periodUs)
	r.Servo = servo.New(r.Subsystem, r.Channel, r.Clock)
	left.OnStep(r.Tracker.LeftStep)
	right.OnStep(r.Tracker.RightStep)
	r.Channel.OnWidth(r.Tracker.Pen)
	return r, nil
}

// Hardware returns the driver ports backed by this robot. The servo
// subsystem is initialised here since the driver only knows the servo.
func (r *Robot) Hardware() driver.Hardware {
	r.Subsystem.Init()
	return driver.Hardware{
		Clock: r.Clock,
		Left:  r.Left,
		Right: r.Right,
		Servo: r.Servo,
	}
}

// Elapsed returns the simulated run time in seconds.
func (r *Robot) Elapsed() float64 { return r.Clock.Seconds() }
