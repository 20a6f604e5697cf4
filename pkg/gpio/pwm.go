package gpio

import "github.com/stianeikeland/go-rpio/v4"

// pwmClockHz gives one PWM count per microsecond, so pulse widths and
// periods are written to the range registers unscaled.
const pwmClockHz = 1_000_000

// pwmChannel maps a BCM pin to its hardware PWM channel.
func pwmChannel(pin int) (int, bool) {
	switch pin {
	case 12, 18:
		return 0, true
	case 13, 19:
		return 1, true
	}
	return 0, false
}

// PWMTimer is the PWM clock shared by both hardware channels.
type PWMTimer struct {
	periodUs uint16
	started  bool
}

func (t *PWMTimer) Configure(periodUs uint16) {
	t.periodUs = periodUs
}

func (t *PWMTimer) Start() {
	rpio.StartPwm()
	t.started = true
}

func (t *PWMTimer) Stop() {
	rpio.StopPwm()
	t.started = false
}

// PWMChannel is one hardware PWM output in mark-space mode.
type PWMChannel struct {
	pin     rpio.Pin
	timer   *PWMTimer
	enabled bool
}

func (c *PWMChannel) ConfigureOutput() {
	c.pin.Pwm()
	c.pin.Freq(pwmClockHz)
	c.write(0)
}

func (c *PWMChannel) Enable() {
	c.enabled = true
}

func (c *PWMChannel) Disable() {
	c.enabled = false
	c.write(0)
}

func (c *PWMChannel) SetWidth(pulseUs uint16) {
	if !c.enabled {
		return
	}
	c.write(pulseUs)
}

func (c *PWMChannel) write(pulseUs uint16) {
	period := uint32(c.timer.periodUs)
	if period == 0 {
		return
	}
	c.pin.DutyCycleWithPwmMode(uint32(pulseUs), period, rpio.MarkSpace)
}
