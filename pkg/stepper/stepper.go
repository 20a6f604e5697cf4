// Package stepper drives unipolar stepper motors in half-step mode.
package stepper

import (
	"penbot/pkg/errors"
)

// Coil is a single digital output energising one motor winding.
type Coil interface {
	ConfigureOutput()
	Set(on bool)
}

// Stepper sequences N coils through 2N half-step phases.
type Stepper struct {
	coils []Coil
	phase int
}

// New creates a stepper over the given coils in winding order.
func New(coils ...Coil) (*Stepper, error) {
	if len(coils) < 2 {
		return nil, errors.New(errors.ErrInvalidHardware, "stepper needs at least two coils").
			SetContext("coils", len(coils))
	}
	return &Stepper{coils: coils}, nil
}

// Period returns the number of half-step phases in one electrical cycle.
func (s *Stepper) Period() int {
	return 2 * len(s.coils)
}

// Phase returns the current commutation phase in [0, Period).
func (s *Stepper) Phase() int {
	return s.phase
}

// Init configures every coil as an output and leaves them off.
func (s *Stepper) Init() {
	for _, c := range s.coils {
		c.ConfigureOutput()
		c.Set(false)
	}
}

// Off de-energises every coil without changing the phase.
func (s *Stepper) Off() {
	for _, c := range s.coils {
		c.Set(false)
	}
}

// Move advances the commutation by delta half-steps and energises the
// coils for the new phase. A zero delta re-asserts the current phase.
func (s *Stepper) Move(delta int8) {
	period := s.Period()
	s.phase = mod(s.phase+int(delta), period)
	for i, c := range s.coils {
		c.Set(Energized(s.phase, i, period))
	}
}

// Energized reports whether coil is on at phase in a half-step cycle of the
// given period. Even phases drive a single coil, odd phases drive two
// adjacent coils.
func Energized(phase, coil, period int) bool {
	return mod(phase-2*coil+1, period) < 3
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
