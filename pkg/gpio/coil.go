package gpio

import "github.com/stianeikeland/go-rpio/v4"

// Coil is one stepper winding driven through a GPIO output.
type Coil struct {
	pin    rpio.Pin
	invert bool
}

func (c *Coil) ConfigureOutput() {
	c.pin.Output()
	c.pin.Write(level(false, c.invert))
}

func (c *Coil) Set(on bool) {
	c.pin.Write(level(on, c.invert))
}
