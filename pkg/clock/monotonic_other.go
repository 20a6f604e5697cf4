//go:build !unix

package clock

import "time"

// Monotonic derives ticks from the runtime monotonic clock on platforms
// without clock_gettime.
type Monotonic struct {
	origin time.Time
}

// NewMonotonic returns an initialised Monotonic source.
func NewMonotonic() *Monotonic {
	m := &Monotonic{}
	m.Init()
	return m
}

func (m *Monotonic) Init() {
	m.origin = time.Now()
}

// GetTime implements Source.
func (m *Monotonic) GetTime() uint16 {
	ns := time.Since(m.origin).Nanoseconds()
	return uint16(ns * TicksPerMicrosecond / 1000)
}
