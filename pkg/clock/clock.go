// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package clock provides the 16-bit free-running tick sources the motion
// kernel runs against, and the busy-wait delay built on top of them.
package clock

const (
	// TickFrequency is the tick rate of every Source, in Hz.
	TickFrequency = 16_000_000

	// TicksPerMicrosecond converts microsecond delays into ticks.
	TicksPerMicrosecond = TickFrequency / 1_000_000

	// Period is the number of ticks after which GetTime wraps.
	Period = 1 << 16
)

// Source is a free-running 16-bit tick counter.
//
// Callers must sample it at least once per Period ticks; elapsed time is
// computed with wraparound subtraction and is only meaningful below that.
type Source interface {
	Init()
	GetTime() uint16
}

// Elapsed returns the number of ticks from begin to end modulo 2^16.
func Elapsed(begin, end uint16) uint16 {
	return end - begin
}

// DelayUs spins on src until at least us microseconds have passed.
func DelayUs(src Source, us uint32) {
	t := us * TicksPerMicrosecond
	begin := src.GetTime()
	for {
		end := src.GetTime()
		delta := uint32(Elapsed(begin, end))
		if delta > t {
			return
		}
		t -= delta
		begin = end
	}
}
