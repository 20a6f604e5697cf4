// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package motion implements the fixed-point trapezoidal velocity profile and
// the fractional step allocator shared by both wheels.
package motion

import "penbot/pkg/clock"

// Position and velocity carry 48 fractional bits: one whole step is
// 1<<FractionBits.
const (
	FractionBits = 48
	OneStep      = int64(1) << FractionBits
	halfStep     = int64(1) << (FractionBits - 1)

	// MaxVelocity is 750 steps/s expressed per tick.
	MaxVelocity = (750 << FractionBits) / clock.TickFrequency

	// MaxAcceleration reaches MaxVelocity in 100 ms.
	MaxAcceleration = MaxVelocity / (clock.TickFrequency / 10)
)

// Profile is the kinematic state of one virtual wheel. The zero value is at
// rest with no accumulated sub-step position.
type Profile struct {
	pos int64
	vel int64
}

// Velocity returns the current velocity in fixed-point steps per tick.
func (p *Profile) Velocity() int64 { return p.vel }

// Position returns the sub-step position in fixed-point steps.
func (p *Profile) Position() int64 { return p.pos }

// Update integrates acceleration a over dt ticks with the trapezoid rule,
// clamping the velocity to ±MaxVelocity. It reports whether the position
// crossed half a step forward (+1), backward (-1) or neither (0); the
// crossed step is subtracted so the position stays near zero.
//
// A single call can emit at most one step, so callers sample often enough
// that one update never covers more than a step.
func (p *Profile) Update(dt uint16, a int64) int8 {
	v := p.vel + a*int64(dt)
	if v > MaxVelocity {
		v = MaxVelocity
	} else if v < -MaxVelocity {
		v = -MaxVelocity
	}
	p.pos += (p.vel + v) * int64(dt) / 2
	p.vel = v
	switch {
	case p.pos > halfStep:
		p.pos -= OneStep
		return 1
	case p.pos < -halfStep:
		p.pos += OneStep
		return -1
	}
	return 0
}

// Braking reports whether decelerating at MaxAcceleration from the current
// velocity needs at least remaining steps.
func (p *Profile) Braking(remaining uint16) bool {
	return ((p.vel/(2*MaxAcceleration))*p.vel)>>FractionBits >= int64(remaining)
}
