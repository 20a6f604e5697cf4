package motion

// FractionShift is the binary point of a wheel fraction: a fraction of
// 1<<FractionShift moves the wheel one step per virtual step.
const FractionShift = 14

const remainderMask = 1<<FractionShift - 1

// Channel tracks one wheel's share of a virtual-step move. Position counts
// whole wheel steps since the move started; the remainder carries the
// fractional part and survives between moves.
type Channel struct {
	position  int32
	remainder uint16
}

// Advance converts cumulative virtual steps s into wheel steps using the
// signed fraction and returns the delta since the previous call.
func (c *Channel) Advance(s uint16, fraction int16) int16 {
	p := int32(s)*int32(fraction) + int32(c.remainder)
	c.remainder = uint16(p & remainderMask)
	p >>= FractionShift
	ret := p - c.position
	c.position = p
	return int16(ret)
}

// Restart zeroes the per-move position and keeps the remainder.
func (c *Channel) Restart() {
	c.position = 0
}

// Reset discards both position and remainder.
func (c *Channel) Reset() {
	c.position = 0
	c.remainder = 0
}

// Position returns the wheel steps emitted since Restart.
func (c *Channel) Position() int32 { return c.position }

// Remainder returns the carried fractional part.
func (c *Channel) Remainder() uint16 { return c.remainder }
