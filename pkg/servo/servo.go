// Package servo drives hobby servos from a shared PWM timer. One timer
// serves every servo channel and runs only while at least one servo is
// active.
package servo

import (
	"penbot/pkg/clock"
)

// DefaultPeriodUs is the standard 50 Hz servo frame.
const DefaultPeriodUs = 20000

// Timer is the PWM time base shared by all channels.
type Timer interface {
	Configure(periodUs uint16)
	Start()
	Stop()
}

// Channel is one compare output of the shared timer.
type Channel interface {
	ConfigureOutput()
	Enable()
	Disable()
	SetWidth(pulseUs uint16)
}

// Subsystem reference-counts running servos so the shared timer stops
// when the last one is switched off.
type Subsystem struct {
	timer    Timer
	periodUs uint16
	running  int
}

// NewSubsystem wraps timer with the given frame period. A zero period
// selects DefaultPeriodUs.
func NewSubsystem(timer Timer, periodUs uint16) *Subsystem {
	if periodUs == 0 {
		periodUs = DefaultPeriodUs
	}
	return &Subsystem{timer: timer, periodUs: periodUs}
}

// Init programs the frame period with the timer stopped.
func (s *Subsystem) Init() {
	s.running = 0
	s.timer.Configure(s.periodUs)
}

// PeriodUs returns the frame period.
func (s *Subsystem) PeriodUs() uint16 { return s.periodUs }

// Running returns the number of active servos.
func (s *Subsystem) Running() int { return s.running }

func (s *Subsystem) on() {
	if s.running == 0 {
		s.timer.Start()
	}
	s.running++
}

func (s *Subsystem) off() {
	if s.running == 0 {
		return
	}
	s.running--
	if s.running == 0 {
		s.timer.Stop()
	}
}

// Servo is a single pulse-width controlled servo.
type Servo struct {
	sub     *Subsystem
	ch      Channel
	clk     clock.Source
	running bool
	width   uint16
}

// New creates a servo on ch. clk times the final zero-width frame in Off.
func New(sub *Subsystem, ch Channel, clk clock.Source) *Servo {
	return &Servo{sub: sub, ch: ch, clk: clk}
}

// Init configures the output pin and leaves the servo unpowered.
func (s *Servo) Init() {
	s.ch.ConfigureOutput()
	s.running = false
	s.width = 0
}

// Set starts the servo if needed and commands a pulse width.
func (s *Servo) Set(pulseUs uint16) {
	if !s.running {
		s.running = true
		s.sub.on()
		s.ch.Enable()
	}
	s.width = pulseUs
	s.ch.SetWidth(pulseUs)
}

// Off emits one full frame with no pulse so the servo sees a clean end of
// signal, then releases the channel and the shared timer.
func (s *Servo) Off() {
	if !s.running {
		return
	}
	s.running = false
	s.width = 0
	s.ch.SetWidth(0)
	clock.DelayUs(s.clk, uint32(s.sub.periodUs))
	s.ch.Disable()
	s.sub.off()
}

// Running reports whether the servo is being driven.
func (s *Servo) Running() bool { return s.running }

// Width returns the last commanded pulse width, zero when off.
func (s *Servo) Width() uint16 { return s.width }
