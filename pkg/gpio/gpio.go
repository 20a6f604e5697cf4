// Raspberry Pi GPIO backend for the plotter actuators
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package gpio binds the stepper coils, the pen servo and the safety
// inputs to Broadcom GPIO through go-rpio. Nothing here runs in tests
// that touch hardware; the pin logic sits behind small helpers.
package gpio

import (
	"strconv"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"penbot/pkg/config"
	"penbot/pkg/errors"
	"penbot/pkg/log"
	"penbot/pkg/servo"
	"penbot/pkg/stepper"
)

// Board owns the memory-mapped GPIO block for the life of the process.
type Board struct {
	mu     sync.Mutex
	log    *log.Logger
	closed bool
}

// Open maps the GPIO registers. It fails off a Pi or without access to
// /dev/gpiomem.
func Open(logger *log.Logger) (*Board, error) {
	if logger == nil {
		logger = log.GetLogger("gpio")
	}
	if err := rpio.Open(); err != nil {
		return nil, errors.HardwareInitError("gpio", err)
	}
	logger.Info("GPIO registers mapped")
	return &Board{log: logger}, nil
}

// Close stops PWM and unmaps the registers.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	rpio.StopPwm()
	if err := rpio.Close(); err != nil {
		return errors.Wrap(err, errors.ErrHardwareInit, "gpio close")
	}
	return nil
}

// Coils returns one coil output per pin, in winding order.
func (b *Board) Coils(pins []config.Pin) []stepper.Coil {
	coils := make([]stepper.Coil, len(pins))
	for i, p := range pins {
		coils[i] = &Coil{pin: rpio.Pin(p.Number), invert: p.Invert}
	}
	b.log.Debug("coils on %v", pins)
	return coils
}

// Stepper builds a commutating stepper over pins.
func (b *Board) Stepper(pins []config.Pin) (*stepper.Stepper, error) {
	return stepper.New(b.Coils(pins)...)
}

// Servo builds the shared PWM timer and one channel on pin, which must be
// a hardware PWM pin.
func (b *Board) Servo(pin config.Pin, periodUs uint16) (servo.Timer, servo.Channel, error) {
	if _, ok := pwmChannel(pin.Number); !ok {
		return nil, nil, errors.HardwareInitError("servo",
			errors.New(errors.ErrInvalidHardware, "gpio"+strconv.Itoa(pin.Number)+" has no hardware PWM"))
	}
	timer := &PWMTimer{}
	ch := &PWMChannel{pin: rpio.Pin(pin.Number), timer: timer}
	return timer, ch, nil
}

// Input returns a sensor on pin with the configured bias.
func (b *Board) Input(pin config.Pin) *Input {
	in := &Input{pin: rpio.Pin(pin.Number), invert: pin.Invert}
	in.pin.Input()
	in.pin.Pull(pullMode(pin.Pull))
	return in
}

func pullMode(p config.Pull) rpio.Pull {
	switch p {
	case config.PullUp:
		return rpio.PullUp
	case config.PullDown:
		return rpio.PullDown
	}
	return rpio.PullOff
}

// level maps a logical state to the pin level for an optionally inverted
// pin.
func level(on, invert bool) rpio.State {
	if on != invert {
		return rpio.High
	}
	return rpio.Low
}
