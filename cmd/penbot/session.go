package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"penbot/pkg/clock"
	"penbot/pkg/config"
	"penbot/pkg/driver"
	"penbot/pkg/errors"
	"penbot/pkg/gpio"
	"penbot/pkg/log"
	"penbot/pkg/metrics"
	"penbot/pkg/nvram"
	"penbot/pkg/safety"
	"penbot/pkg/servo"
	"penbot/pkg/sim"
	"penbot/pkg/status"
)

const (
	backendSim  = "sim"
	backendRPIO = "rpio"
)

// session is one run of the plotter: configuration, hardware, the safety
// monitor and the optional servers around a driver.
type session struct {
	cfg     config.PlotterConfig
	log     *log.Logger
	mon     *safety.Monitor
	drv     *driver.Driver
	metrics *metrics.PlotterMetrics

	robot      *sim.Robot
	board      *gpio.Board
	stopPoller func()
	render     string

	ctx      context.Context
	cancel   context.CancelFunc
	release  func()
	shutdown []func(context.Context) error
	closers  []func() error
}

func setupLogger(o globalOptions) (*log.Logger, func() error, error) {
	logger := log.New("penbot")
	log.ConfigureFromEnv(logger)
	if o.logLevel != "" {
		logger.SetLevel(log.ParseLevel(o.logLevel))
	}
	if o.logFormat != "" {
		logger.SetFormat(log.ParseFormat(o.logFormat))
	}
	log.SetDefaultLogger(logger)
	if o.logFile == "" {
		return logger, func() error { return nil }, nil
	}
	fw, err := log.Tee(logger, log.RotationConfig{Filename: o.logFile})
	if err != nil {
		return nil, nil, err
	}
	return logger, fw.Close, nil
}

func loadConfig(path string) (config.PlotterConfig, error) {
	if path == "" {
		return config.DefaultPlotterConfig(), nil
	}
	cfg, err := config.LoadPlotter(path)
	if ce, ok := config.AsConfigError(err); ok {
		return cfg, ce.HostError().SetFile(path)
	}
	return cfg, err
}

// openSession brings up everything a motion command needs. The returned
// session must be closed.
func openSession(parent context.Context, o globalOptions) (_ *session, err error) {
	logger, closeLog, err := setupLogger(o)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		closeLog()
		return nil, err
	}

	s := &session{cfg: cfg, log: logger, render: o.render, closers: []func() error{closeLog}}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.ctx, s.cancel = signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	s.mon = safety.New(safety.Config{MaxFailures: cfg.Power.MaxConsecutiveFailures})
	s.release = s.mon.StopOnDone(s.ctx)
	s.mon.OnTrip(func(reason safety.Reason, detail string) {
		logger.WithFields(log.Fields{"reason": reason, "detail": detail}).Warn("safety monitor tripped")
	})

	s.metrics = metrics.NewPlotterMetrics()
	s.mon.OnTrip(s.metrics.SafetyTripped)
	observers := driver.Observers{s.metrics}

	if addr := firstNonEmpty(o.metricsAddr, cfg.Metrics.Address); addr != "" {
		srv := metrics.NewServer(s.metrics, addr)
		if _, err := srv.Start(); err != nil {
			return nil, errors.HardwareInitError("metrics server", err)
		}
		logger.Info("metrics on http://%s/metrics", srv.Addr())
		s.shutdown = append(s.shutdown, srv.Shutdown)
	}
	if addr := firstNonEmpty(o.statusAddr, cfg.Status.Address); addr != "" {
		hub := status.New(status.Config{Addr: addr, Safety: s.mon, Logger: logger.WithPrefix("status")})
		if _, err := hub.Start(); err != nil {
			return nil, errors.HardwareInitError("status server", err)
		}
		s.shutdown = append(s.shutdown, hub.Shutdown)
		observers = append(observers, hub)
	}

	hw, err := s.openHardware(o.backend)
	if err != nil {
		return nil, err
	}

	dopts := driver.Options{
		LiftPenWhenRotating: cfg.Driver.LiftPenWhenRotating,
		PenSettleUs:         cfg.Driver.PenSettleUs,
		Logger:              logger.WithPrefix("driver"),
		Observer:            observers,
	}
	if cfg.Calibration.FromEEPROM() {
		s.drv, err = driverFromEEPROM(hw, cfg.Calibration, dopts)
	} else {
		s.drv, err = driver.New(hw, cfg.Calibration.Data, dopts)
	}
	if err != nil {
		return nil, err
	}
	s.drv.Init()
	logger.WithFields(log.Fields{"backend": o.backend, "calibration": s.drv.CalibrationData().String()}).Info("plotter ready")
	return s, nil
}

// driverFromEEPROM copies the calibration record out of the EEPROM image;
// the image is not kept open.
func driverFromEEPROM(hw driver.Hardware, cal config.CalibrationConfig, o driver.Options) (*driver.Driver, error) {
	img, err := nvram.OpenFile(cal.EEPROMPath, 0)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return driver.NewFromStorage(hw, img, cal.EEPROMOffset, o)
}

func (s *session) openHardware(backend string) (driver.Hardware, error) {
	switch backend {
	case backendSim:
		robot, err := sim.NewRobot(s.cfg.Sim, s.cfg.Servo.PeriodUs)
		if err != nil {
			return driver.Hardware{}, err
		}
		s.robot = robot
		return robot.Hardware(), nil
	case backendRPIO:
		return s.openBoard()
	}
	return driver.Hardware{}, errors.New(errors.ErrInvalidHardware, fmt.Sprintf("unknown backend %q", backend))
}

func (s *session) openBoard() (driver.Hardware, error) {
	cfg := s.cfg
	if len(cfg.Left.CoilPins) == 0 || len(cfg.Right.CoilPins) == 0 {
		return driver.Hardware{}, errors.New(errors.ErrInvalidHardware, "[stepper left] and [stepper right] coil_pins are required")
	}
	if !cfg.Servo.HasPin {
		return driver.Hardware{}, errors.New(errors.ErrInvalidHardware, "[servo] pin is required")
	}
	board, err := gpio.Open(s.log.WithPrefix("gpio"))
	if err != nil {
		return driver.Hardware{}, err
	}
	s.board = board

	left, err := board.Stepper(cfg.Left.CoilPins)
	if err != nil {
		return driver.Hardware{}, err
	}
	right, err := board.Stepper(cfg.Right.CoilPins)
	if err != nil {
		return driver.Hardware{}, err
	}
	timer, ch, err := board.Servo(cfg.Servo.Pin, cfg.Servo.PeriodUs)
	if err != nil {
		return driver.Hardware{}, err
	}
	clk := clock.NewMonotonic()
	sub := servo.NewSubsystem(timer, cfg.Servo.PeriodUs)
	sub.Init()

	var power, stop gpio.Sensor
	if cfg.Power.PowerGoodPin != nil {
		power = board.Input(*cfg.Power.PowerGoodPin)
	}
	if cfg.Power.StopPin != nil {
		stop = board.Input(*cfg.Power.StopPin)
	}
	if power != nil || stop != nil {
		s.stopPoller = gpio.NewPoller(s.mon, power, stop, cfg.Power.PollInterval).Start(s.ctx)
	}

	return driver.Hardware{
		Clock: clk,
		Left:  left,
		Right: right,
		Servo: servo.New(sub, ch, clk),
	}, nil
}

// interrupted is the cancellation predicate for motion commands.
func (s *session) interrupted() driver.Interrupted {
	return s.mon.Interrupted
}

// check turns a false command result into an error naming the cause.
func (s *session) check(op string, ok bool) error {
	if ok {
		return nil
	}
	st := s.mon.GetStatus()
	return errors.InterruptedError(op, st.Reason).SetContext("detail", st.Detail)
}

// Close renders the sim trace if requested and releases everything.
func (s *session) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.release != nil {
		s.release()
	}
	if s.metrics != nil {
		if snap := s.metrics.DrawingTime.GetSnapshot(nil); snap.Count > 0 {
			s.log.WithFields(log.Fields{
				"drawings": snap.Count,
				"seconds":  fmt.Sprintf("%.1f", snap.Sum),
			}).Info("session finished")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, fn := range s.shutdown {
		keep(fn(ctx))
	}
	if s.robot != nil {
		s.log.WithFields(log.Fields{
			"seconds":     fmt.Sprintf("%.1f", s.robot.Elapsed()),
			"left_steps":  s.robot.Left.Travel(),
			"right_steps": s.robot.Right.Travel(),
		}).Info("simulation finished")
		if s.render != "" {
			err := sim.RenderFile(s.render, s.robot.Tracker.Strokes(), sim.RenderOptions{Title: "penbot"})
			if err != nil {
				s.log.WithError(err).Warn("pen trace not rendered")
			} else {
				s.log.Info("pen trace written to %s", s.render)
			}
			keep(err)
		}
	}
	// the poller reads pins, which must stay mapped until it has exited
	if s.stopPoller != nil {
		s.stopPoller()
	}
	if s.board != nil {
		keep(s.board.Close())
	}
	if s.cancel != nil {
		s.cancel()
	}
	for _, fn := range s.closers {
		keep(fn())
	}
	return first
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
