package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"penbot/pkg/driver"
	"penbot/pkg/drawing"
	"penbot/pkg/safety"
)

func TestPlotterMetricsObserve(t *testing.T) {
	m := NewPlotterMetrics()
	id := uuid.New()
	m.DrawingStarted(driver.DrawingInfo{ID: id, Segments: 2})
	if m.Drawing.Get(nil) != 1 {
		t.Error("drawing gauge not raised")
	}
	m.SegmentStarted(id, 0, drawing.Segment{Len: 10, Pen: true})
	m.PenChanged(true)
	m.MoveFinished(driver.MoveResult{Kind: driver.MoveForward, Steps: 100, Left: -100, Right: 100, Ticks: 16_000_000, Completed: true})
	m.MoveFinished(driver.MoveResult{Kind: driver.MoveRotate, Steps: 50, Left: -20, Right: -20, Ticks: 800_000})
	m.PenChanged(false)
	m.DrawingFinished(driver.DrawingResult{State: driver.Aborted, Duration: 3 * time.Second})
	m.SafetyTripped(safety.ReasonPowerLoss, "3 consecutive power failures")

	checks := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"left steps", m.WheelSteps.Get(Labels{"wheel": "left"}), 120},
		{"right steps", m.WheelSteps.Get(Labels{"wheel": "right"}), 120},
		{"completed forward", m.Moves.Get(Labels{"kind": "forward", "outcome": "completed"}), 1},
		{"interrupted rotate", m.Moves.Get(Labels{"kind": "rotate", "outcome": "interrupted"}), 1},
		{"segments", m.Segments.Get(nil), 1},
		{"pen down", m.PenToggles.Get(Labels{"position": "down"}), 1},
		{"aborted", m.Drawings.Get(Labels{"state": "aborted"}), 1},
		{"power trips", m.SafetyTrips.Get(Labels{"reason": "power_loss"}), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if m.PenDown.Get(nil) != 0 || m.Drawing.Get(nil) != 0 {
		t.Error("gauges not lowered")
	}
	if snap := m.MoveDuration.GetSnapshot(Labels{"kind": "forward"}); snap.Sum != 1 {
		t.Errorf("forward move duration = %v s, want 1", snap.Sum)
	}
	out := m.Gather()
	for _, name := range []string{"penbot_wheel_steps_total", "penbot_drawing_duration_seconds_count 1", `penbot_safety_trips_total{reason="power_loss"} 1`} {
		if !strings.Contains(out, name) {
			t.Errorf("Gather missing %q", name)
		}
	}
}
