// Package safety turns asynchronous power and stop signals into the
// cooperative cancellation predicate polled by the motion loop.
package safety

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the monitor's run state.
type State int

const (
	// StateRunning allows motion.
	StateRunning State = iota

	// StateTripped means the predicate has fired and keeps firing until Reset.
	StateTripped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTripped:
		return "tripped"
	default:
		return "unknown"
	}
}

// Reason describes why motion was interrupted.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonPowerLoss Reason = "power_loss"
	ReasonUserStop  Reason = "user_stop"
	ReasonCanceled  Reason = "canceled"
)

// DefaultMaxFailures is the number of consecutive power-bad polls tolerated
// before the monitor trips.
const DefaultMaxFailures = 2

// Monitor owns the two environment flags and the consecutive-failure
// counter. SetPowerGood and RequestStop may be called from any goroutine
// (interrupt handlers, pollers, signal handlers); Interrupted must only be
// called from the control loop.
type Monitor struct {
	powerGood atomic.Bool
	stop      atomic.Bool
	reason    atomic.Value // Reason of a pending stop request

	maxFailures int
	failures    int // control loop only

	mu        sync.RWMutex
	state     State
	tripped   Reason
	trippedAt time.Time
	detail    string
	onTrip    []func(reason Reason, detail string)
}

// Config holds monitor settings.
type Config struct {
	// MaxFailures is the number of consecutive failed power checks
	// tolerated; the next one trips. Zero selects DefaultMaxFailures.
	MaxFailures int
}

// New creates a Monitor with power reported good.
func New(cfg Config) *Monitor {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	m := &Monitor{maxFailures: cfg.MaxFailures}
	m.powerGood.Store(true)
	return m
}

// SetPowerGood records the latest power supervisor reading.
func (m *Monitor) SetPowerGood(ok bool) {
	m.powerGood.Store(ok)
}

// PowerGood returns the latest power supervisor reading.
func (m *Monitor) PowerGood() bool {
	return m.powerGood.Load()
}

// RequestStop asks the control loop to stop at its next poll.
func (m *Monitor) RequestStop(reason Reason) {
	if reason == ReasonNone {
		reason = ReasonUserStop
	}
	m.reason.Store(reason)
	m.stop.Store(true)
}

// OnTrip registers a callback run on the control loop when the monitor
// trips. Callbacks must not block.
func (m *Monitor) OnTrip(fn func(reason Reason, detail string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTrip = append(m.onTrip, fn)
}

// Interrupted is the cancellation predicate. A stop request trips at once;
// power loss trips only after more than MaxFailures consecutive bad
// readings. Once tripped it stays true until Reset.
func (m *Monitor) Interrupted() bool {
	if m.stop.Load() {
		reason, _ := m.reason.Load().(Reason)
		m.trip(reason, "stop requested")
		return true
	}
	if m.failures > m.maxFailures {
		return true
	}
	if !m.powerGood.Load() {
		m.failures++
	} else {
		m.failures = 0
	}
	if m.failures > m.maxFailures {
		m.trip(ReasonPowerLoss, fmt.Sprintf("%d consecutive power failures", m.failures))
		return true
	}
	return false
}

// Predicate returns Interrupted as a plain function value.
func (m *Monitor) Predicate() func() bool {
	return m.Interrupted
}

func (m *Monitor) trip(reason Reason, detail string) {
	m.mu.Lock()
	if m.state == StateTripped {
		m.mu.Unlock()
		return
	}
	m.state = StateTripped
	m.tripped = reason
	m.trippedAt = time.Now()
	m.detail = detail
	callbacks := make([]func(Reason, string), len(m.onTrip))
	copy(callbacks, m.onTrip)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(reason, detail)
	}
}

// Reset clears a trip and the failure counter so the next command can run.
// Power is not assumed good; the next reading decides.
func (m *Monitor) Reset() {
	m.stop.Store(false)
	m.failures = 0
	m.mu.Lock()
	m.state = StateRunning
	m.tripped = ReasonNone
	m.trippedAt = time.Time{}
	m.detail = ""
	m.mu.Unlock()
}

// StopOnDone requests a stop with ReasonCanceled once ctx is done. The
// returned function releases the watcher.
func (m *Monitor) StopOnDone(ctx context.Context) (release func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			m.RequestStop(ReasonCanceled)
		case <-done:
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Any combines predicates; the result is true as soon as one is.
func Any(preds ...func() bool) func() bool {
	return func() bool {
		for _, p := range preds {
			if p() {
				return true
			}
		}
		return false
	}
}

// Never is a predicate that never cancels.
func Never() bool { return false }

// Status is a snapshot for reporting.
type Status struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	TrippedAt time.Time `json:"tripped_at,omitempty"`
	PowerGood bool      `json:"power_good"`
}

// GetStatus returns the current status.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		State:     m.state.String(),
		Reason:    string(m.tripped),
		Detail:    m.detail,
		TrippedAt: m.trippedAt,
		PowerGood: m.powerGood.Load(),
	}
}

// GetState returns the run state.
func (m *Monitor) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
