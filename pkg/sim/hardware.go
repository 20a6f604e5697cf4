// Package sim provides virtual plotter hardware: recording coils and
// steppers, a recording PWM servo, and a dead-reckoning pose tracker fed
// by the wheel steps.
package sim

import (
	"penbot/pkg/stepper"
)

// Coil records the state of one winding.
type Coil struct {
	configured bool
	on         bool
	switches   int
}

func (c *Coil) ConfigureOutput() { c.configured = true }

func (c *Coil) Set(on bool) {
	if on != c.on {
		c.switches++
	}
	c.on = on
}

// On reports whether the winding is energised.
func (c *Coil) On() bool { return c.on }

// Switches counts level changes since creation.
func (c *Coil) Switches() int { return c.switches }

// Stepper is a commutating stepper over recording coils that counts the
// steps it is given.
type Stepper struct {
	motor   *stepper.Stepper
	coils   []*Coil
	steps   int64
	travel  int64
	powered bool
	onStep  func(delta int)
}

// NewStepper creates a stepper with n coils.
func NewStepper(n int) (*Stepper, error) {
	coils := make([]*Coil, n)
	outs := make([]stepper.Coil, n)
	for i := range coils {
		coils[i] = &Coil{}
		outs[i] = coils[i]
	}
	motor, err := stepper.New(outs...)
	if err != nil {
		return nil, err
	}
	return &Stepper{motor: motor, coils: coils}, nil
}

// OnStep registers fn to receive every non-zero step delta.
func (s *Stepper) OnStep(fn func(delta int)) { s.onStep = fn }

func (s *Stepper) Init() {
	s.motor.Init()
	s.powered = false
}

func (s *Stepper) Off() {
	s.motor.Off()
	s.powered = false
}

func (s *Stepper) Move(delta int8) {
	s.motor.Move(delta)
	s.powered = true
	if delta == 0 {
		return
	}
	s.steps += int64(delta)
	if delta < 0 {
		s.travel -= int64(delta)
	} else {
		s.travel += int64(delta)
	}
	if s.onStep != nil {
		s.onStep(int(delta))
	}
}

// Steps returns the net signed step count.
func (s *Stepper) Steps() int64 { return s.steps }

// Travel returns the total number of steps in either direction.
func (s *Stepper) Travel() int64 { return s.travel }

// Powered reports whether the coils have been driven since the last Off.
func (s *Stepper) Powered() bool { return s.powered }

// Phase returns the commutation phase.
func (s *Stepper) Phase() int { return s.motor.Phase() }

// Energized returns the coil states in winding order.
func (s *Stepper) Energized() []bool {
	out := make([]bool, len(s.coils))
	for i, c := range s.coils {
		out[i] = c.On()
	}
	return out
}

// Timer records the shared PWM time base.
type Timer struct {
	PeriodUs uint16
	Running  bool
	Starts   int
}

func (t *Timer) Configure(periodUs uint16) { t.PeriodUs = periodUs }

func (t *Timer) Start() {
	t.Running = true
	t.Starts++
}

func (t *Timer) Stop() { t.Running = false }

// Channel records one PWM output.
type Channel struct {
	Configured bool
	Enabled    bool
	Width      uint16
	Writes     int
	onWidth    func(uint16)
}

// OnWidth registers fn to receive every pulse width written.
func (c *Channel) OnWidth(fn func(pulseUs uint16)) { c.onWidth = fn }

func (c *Channel) ConfigureOutput() { c.Configured = true }

func (c *Channel) Enable() { c.Enabled = true }

func (c *Channel) Disable() { c.Enabled = false }

func (c *Channel) SetWidth(pulseUs uint16) {
	c.Width = pulseUs
	c.Writes++
	if c.onWidth != nil {
		c.onWidth(pulseUs)
	}
}
