package config

import (
	"math"
	"time"

	"penbot/pkg/calibration"
)

// PlotterConfig is the typed view of a plotter configuration file.
type PlotterConfig struct {
	Calibration CalibrationConfig
	Driver      DriverConfig
	Left        StepperConfig
	Right       StepperConfig
	Servo       ServoConfig
	Power       PowerConfig
	Sim         SimConfig
	Metrics     ServerConfig
	Status      ServerConfig
}

// CalibrationConfig either carries the record inline or points at an
// EEPROM image holding it.
type CalibrationConfig struct {
	Data         calibration.Data
	EEPROMPath   string
	EEPROMOffset int64
}

// FromEEPROM reports whether the record must be read from EEPROMPath.
func (c CalibrationConfig) FromEEPROM() bool { return c.EEPROMPath != "" }

type DriverConfig struct {
	LiftPenWhenRotating bool
	PenSettleUs         uint32
}

type StepperConfig struct {
	CoilPins []Pin
}

type ServoConfig struct {
	Pin      Pin
	HasPin   bool
	PeriodUs uint16
}

type PowerConfig struct {
	MaxConsecutiveFailures int
	PowerGoodPin           *Pin
	StopPin                *Pin
	PollInterval           time.Duration
}

// SimConfig tunes the virtual hardware.
type SimConfig struct {
	TicksPerRead  uint16
	TraceStepMM   float64
	WheelDiameter float64 // mm
	WheelBase     float64 // mm
	StepsPerRev   int
}

type ServerConfig struct {
	Address string
}

// DefaultPlotterConfig returns the settings used for absent options.
func DefaultPlotterConfig() PlotterConfig {
	return PlotterConfig{
		Calibration: CalibrationConfig{Data: calibration.Default},
		Driver:      DriverConfig{PenSettleUs: 200000},
		Servo:       ServoConfig{PeriodUs: 20000},
		Power: PowerConfig{
			MaxConsecutiveFailures: 2,
			PollInterval:           time.Millisecond,
		},
		Sim: SimConfig{
			TicksPerRead:  1000,
			TraceStepMM:   2,
			WheelDiameter: 50.5,
			WheelBase:     77.2,
			StepsPerRev:   4096,
		},
	}
}

// LoadPlotter reads path and builds a PlotterConfig, rejecting unknown
// sections and options.
func LoadPlotter(path string) (PlotterConfig, error) {
	c, err := Load(path)
	if err != nil {
		return PlotterConfig{}, err
	}
	pc, err := ParsePlotter(c)
	if err != nil {
		return PlotterConfig{}, err
	}
	if err := c.CheckUnused(); err != nil {
		return PlotterConfig{}, err
	}
	return pc, nil
}

// ParsePlotter builds a PlotterConfig from c. Missing sections keep their
// defaults.
func ParsePlotter(c *Config) (PlotterConfig, error) {
	pc := DefaultPlotterConfig()
	steps := []func(*Config, *PlotterConfig) error{
		parseCalibration,
		parseDriver,
		parseSteppers,
		parseServo,
		parsePower,
		parseSim,
		parseServers,
	}
	for _, step := range steps {
		if err := step(c, &pc); err != nil {
			return PlotterConfig{}, err
		}
	}
	return pc, nil
}

func parseCalibration(c *Config, pc *PlotterConfig) error {
	sec := c.GetSectionOptional("calibration")
	if sec == nil {
		return nil
	}
	if sec.HasOption("eeprom") {
		path, err := sec.Get("eeprom")
		if err != nil {
			return err
		}
		off, err := sec.GetIntRange("eeprom_offset", 0, math.MaxInt32, 0)
		if err != nil {
			return err
		}
		pc.Calibration.EEPROMPath = path
		pc.Calibration.EEPROMOffset = int64(off)
		return nil
	}
	d := &pc.Calibration.Data
	var err error
	if d.AngleOffset, err = getInt16(sec, "angle_offset", d.AngleOffset); err != nil {
		return err
	}
	if d.LeftFraction, err = getInt16(sec, "left_fraction", d.LeftFraction); err != nil {
		return err
	}
	if d.RightFraction, err = getInt16(sec, "right_fraction", d.RightFraction); err != nil {
		return err
	}
	if d.PenDown, err = getUint16(sec, "pen_down", d.PenDown); err != nil {
		return err
	}
	if d.PenUp, err = getUint16(sec, "pen_up", d.PenUp); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return WrapError("calibration", "", err)
	}
	return nil
}

func parseDriver(c *Config, pc *PlotterConfig) error {
	sec := c.GetSectionOptional("driver")
	if sec == nil {
		return nil
	}
	lift, err := sec.GetBool("lift_pen_when_rotating", pc.Driver.LiftPenWhenRotating)
	if err != nil {
		return err
	}
	settle, err := sec.GetIntRange("pen_settle_ms", 1, 5000, int(pc.Driver.PenSettleUs/1000))
	if err != nil {
		return err
	}
	pc.Driver.LiftPenWhenRotating = lift
	pc.Driver.PenSettleUs = uint32(settle) * 1000
	return nil
}

func parseSteppers(c *Config, pc *PlotterConfig) error {
	for _, sec := range c.GetPrefixSections("stepper ") {
		var target *StepperConfig
		switch sec.Suffix() {
		case "left":
			target = &pc.Left
		case "right":
			target = &pc.Right
		default:
			return NewConfigError(sec.GetName(), "", "stepper must be 'left' or 'right'")
		}
		pins, err := sec.GetPinList("coil_pins")
		if err != nil {
			return err
		}
		if len(pins) < 2 {
			return ErrInvalidValue(sec.GetName(), "coil_pins", sec.options["coil_pins"], "at least two pins")
		}
		target.CoilPins = pins
	}
	return nil
}

func parseServo(c *Config, pc *PlotterConfig) error {
	sec := c.GetSectionOptional("servo")
	if sec == nil {
		return nil
	}
	if sec.HasOption("pin") {
		pin, err := sec.GetPin("pin")
		if err != nil {
			return err
		}
		pc.Servo.Pin, pc.Servo.HasPin = pin, true
	}
	period, err := sec.GetIntRange("period_us", 2500, math.MaxUint16, int(pc.Servo.PeriodUs))
	if err != nil {
		return err
	}
	pc.Servo.PeriodUs = uint16(period)
	return nil
}

func parsePower(c *Config, pc *PlotterConfig) error {
	sec := c.GetSectionOptional("power")
	if sec == nil {
		return nil
	}
	n, err := sec.GetIntRange("max_consecutive_failures", 1, 1000, pc.Power.MaxConsecutiveFailures)
	if err != nil {
		return err
	}
	poll, err := sec.GetDuration("poll_interval", pc.Power.PollInterval)
	if err != nil {
		return err
	}
	pc.Power.MaxConsecutiveFailures = n
	pc.Power.PollInterval = poll
	for option, dst := range map[string]**Pin{"power_good_pin": &pc.Power.PowerGoodPin, "stop_pin": &pc.Power.StopPin} {
		if !sec.HasOption(option) {
			continue
		}
		pin, err := sec.GetPin(option)
		if err != nil {
			return err
		}
		*dst = &pin
	}
	return nil
}

func parseSim(c *Config, pc *PlotterConfig) error {
	sec := c.GetSectionOptional("sim")
	if sec == nil {
		return nil
	}
	ticks, err := sec.GetIntRange("ticks_per_read", 1, 60000, int(pc.Sim.TicksPerRead))
	if err != nil {
		return err
	}
	trace, err := sec.GetFloat("trace_step_mm", pc.Sim.TraceStepMM)
	if err != nil {
		return err
	}
	diameter, err := sec.GetFloat("wheel_diameter", pc.Sim.WheelDiameter)
	if err != nil {
		return err
	}
	base, err := sec.GetFloat("wheel_base", pc.Sim.WheelBase)
	if err != nil {
		return err
	}
	spr, err := sec.GetIntRange("steps_per_rev", 1, 1<<20, pc.Sim.StepsPerRev)
	if err != nil {
		return err
	}
	if diameter <= 0 || base <= 0 || trace <= 0 {
		return NewConfigError("sim", "", "geometry values must be positive")
	}
	pc.Sim = SimConfig{
		TicksPerRead:  uint16(ticks),
		TraceStepMM:   trace,
		WheelDiameter: diameter,
		WheelBase:     base,
		StepsPerRev:   spr,
	}
	return nil
}

func parseServers(c *Config, pc *PlotterConfig) error {
	for name, dst := range map[string]*ServerConfig{"metrics": &pc.Metrics, "status": &pc.Status} {
		sec := c.GetSectionOptional(name)
		if sec == nil {
			continue
		}
		addr, err := sec.Get("address")
		if err != nil {
			return err
		}
		dst.Address = addr
	}
	return nil
}

func getInt16(sec *Section, option string, fallback int16) (int16, error) {
	v, err := sec.GetIntRange(option, math.MinInt16, math.MaxInt16, int(fallback))
	return int16(v), err
}

func getUint16(sec *Section, option string, fallback uint16) (uint16, error) {
	v, err := sec.GetIntRange(option, 0, math.MaxUint16, int(fallback))
	return uint16(v), err
}
