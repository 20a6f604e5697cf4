//go:build unix

package clock

import (
	"golang.org/x/sys/unix"
)

// Monotonic derives ticks from CLOCK_MONOTONIC so that a hosted controller
// sees the same 16 MHz, 16-bit counter the firmware timer provides.
type Monotonic struct {
	origin int64
}

// NewMonotonic returns an initialised Monotonic source.
func NewMonotonic() *Monotonic {
	m := &Monotonic{}
	m.Init()
	return m
}

// Init latches the current monotonic time as tick zero.
func (m *Monotonic) Init() {
	m.origin = monotonicNanos()
}

// GetTime implements Source.
func (m *Monotonic) GetTime() uint16 {
	ns := monotonicNanos() - m.origin
	return uint16(ns * TicksPerMicrosecond / 1000)
}

func monotonicNanos() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is mandatory on every supported unix
		panic("clock: CLOCK_MONOTONIC unavailable: " + err.Error())
	}
	return ts.Nano()
}
