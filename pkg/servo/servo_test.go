package servo

import (
	"testing"

	"penbot/pkg/clock"
)

type fakeTimer struct {
	period  uint16
	started int
	stopped int
	running bool
}

func (t *fakeTimer) Configure(p uint16) { t.period = p }
func (t *fakeTimer) Start()             { t.started++; t.running = true }
func (t *fakeTimer) Stop()              { t.stopped++; t.running = false }

type fakeChannel struct {
	configured bool
	enabled    bool
	widths     []uint16
}

func (c *fakeChannel) ConfigureOutput()  { c.configured = true }
func (c *fakeChannel) Enable()           { c.enabled = true }
func (c *fakeChannel) Disable()          { c.enabled = false }
func (c *fakeChannel) SetWidth(w uint16) { c.widths = append(c.widths, w) }

func TestSubsystemDefaultPeriod(t *testing.T) {
	tm := &fakeTimer{}
	sub := NewSubsystem(tm, 0)
	sub.Init()
	if tm.period != DefaultPeriodUs {
		t.Errorf("period = %d", tm.period)
	}
}

func TestSharedTimerRefcount(t *testing.T) {
	tm := &fakeTimer{}
	sub := NewSubsystem(tm, 20000)
	sub.Init()
	clk := clock.NewVirtual(500)
	a := New(sub, &fakeChannel{}, clk)
	b := New(sub, &fakeChannel{}, clk)
	a.Init()
	b.Init()

	a.Set(1000)
	b.Set(1500)
	a.Set(1200)
	if tm.started != 1 || sub.Running() != 2 {
		t.Fatalf("started=%d running=%d", tm.started, sub.Running())
	}
	a.Off()
	if !tm.running {
		t.Fatal("timer stopped while b still active")
	}
	b.Off()
	if tm.running || tm.stopped != 1 {
		t.Errorf("timer running=%v stopped=%d", tm.running, tm.stopped)
	}
	b.Off()
	if sub.Running() != 0 || tm.stopped != 1 {
		t.Error("double Off changed refcount")
	}
}

func TestOffSendsEmptyFrame(t *testing.T) {
	tm := &fakeTimer{}
	sub := NewSubsystem(tm, 20000)
	sub.Init()
	clk := clock.NewVirtual(1000)
	ch := &fakeChannel{}
	s := New(sub, ch, clk)
	s.Init()
	s.Set(1400)
	if !ch.enabled || s.Width() != 1400 {
		t.Fatal("Set did not enable the channel")
	}
	before := clk.Ticks()
	s.Off()
	if got := ch.widths[len(ch.widths)-1]; got != 0 {
		t.Errorf("last width = %d, want 0", got)
	}
	if ch.enabled || s.Running() {
		t.Error("channel still enabled")
	}
	if elapsed := clk.Ticks() - before; elapsed < 20000*clock.TicksPerMicrosecond {
		t.Errorf("Off waited %d ticks, want a full frame", elapsed)
	}
}
