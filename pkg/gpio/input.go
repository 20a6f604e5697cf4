package gpio

import (
	"context"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"penbot/pkg/log"
	"penbot/pkg/safety"
)

// Sensor is a digital input read as a logical level.
type Sensor interface {
	Active() bool
}

// Input is a GPIO pin read through its configured polarity.
type Input struct {
	pin    rpio.Pin
	invert bool
}

func (in *Input) Active() bool {
	return (in.pin.Read() == rpio.High) != in.invert
}

// Poller samples the power-good and stop inputs into a safety monitor.
// Either sensor may be nil.
type Poller struct {
	mon      *safety.Monitor
	power    Sensor
	stop     Sensor
	interval time.Duration
	log      *log.Logger
	stopped  bool
}

func NewPoller(mon *safety.Monitor, power, stop Sensor, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Poller{
		mon:      mon,
		power:    power,
		stop:     stop,
		interval: interval,
		log:      log.GetLogger("gpio"),
	}
}

// Poll takes one sample of each sensor.
func (p *Poller) Poll() {
	if p.power != nil {
		p.mon.SetPowerGood(p.power.Active())
	}
	if p.stop != nil && p.stop.Active() {
		if !p.stopped {
			p.log.Warn("stop button pressed")
			p.stopped = true
		}
		p.mon.RequestStop(safety.ReasonUserStop)
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Start runs the poller on its own goroutine. The returned stop function
// cancels it and returns only after the last sample has been taken, so the
// board can be closed safely afterwards.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
