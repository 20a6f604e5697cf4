// Plotter metrics
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"github.com/google/uuid"

	"penbot/pkg/clock"
	"penbot/pkg/drawing"
	"penbot/pkg/driver"
	"penbot/pkg/safety"
)

// PlotterMetrics records driver activity. It implements driver.Observer;
// all methods run on the control goroutine while Gather may run on the
// HTTP server.
type PlotterMetrics struct {
	registry *Registry

	WheelSteps   *Counter
	Moves        *Counter
	MoveDuration *Histogram
	Segments     *Counter
	Drawings     *Counter
	DrawingTime  *Histogram
	Drawing      *Gauge
	PenToggles   *Counter
	PenDown      *Gauge
	SafetyTrips  *Counter
}

var _ driver.Observer = (*PlotterMetrics)(nil)

// NewPlotterMetrics registers the plotter metrics in a new registry.
func NewPlotterMetrics() *PlotterMetrics {
	m := &PlotterMetrics{
		registry:     NewRegistry(),
		WheelSteps:   NewCounter("penbot_wheel_steps_total", "Physical steps issued per wheel"),
		Moves:        NewCounter("penbot_moves_total", "Motion commands by kind and outcome"),
		MoveDuration: NewHistogram("penbot_move_duration_seconds", "Tick time spent per motion command", ExponentialBuckets(0.05, 2, 8)),
		Segments:     NewCounter("penbot_segments_total", "Drawing segments started"),
		Drawings:     NewCounter("penbot_drawings_total", "Drawings finished by outcome"),
		DrawingTime:  NewHistogram("penbot_drawing_duration_seconds", "Wall time per drawing", ExponentialBuckets(1, 2, 12)),
		Drawing:      NewGauge("penbot_drawing_active", "1 while a drawing is playing"),
		PenToggles:   NewCounter("penbot_pen_moves_total", "Pen servo commands by position"),
		PenDown:      NewGauge("penbot_pen_down", "1 while the pen is down"),
		SafetyTrips:  NewCounter("penbot_safety_trips_total", "Cancellations by reason"),
	}
	m.registry.MustRegister(m.WheelSteps, m.Moves, m.MoveDuration, m.Segments,
		m.Drawings, m.DrawingTime, m.Drawing, m.PenToggles, m.PenDown, m.SafetyTrips)
	return m
}

// Registry returns the registry holding the plotter metrics.
func (m *PlotterMetrics) Registry() *Registry { return m.registry }

// Gather renders the plotter metrics.
func (m *PlotterMetrics) Gather() string { return m.registry.Gather() }

func (m *PlotterMetrics) DrawingStarted(driver.DrawingInfo) {
	m.Drawing.Inc(nil)
}

func (m *PlotterMetrics) SegmentStarted(uuid.UUID, uint16, drawing.Segment) {
	m.Segments.Inc(nil)
}

func (m *PlotterMetrics) PenChanged(down bool) {
	if down {
		m.PenToggles.Inc(Labels{"position": "down"})
		m.PenDown.Set(nil, 1)
		return
	}
	m.PenToggles.Inc(Labels{"position": "up"})
	m.PenDown.Set(nil, 0)
}

func (m *PlotterMetrics) MoveFinished(r driver.MoveResult) {
	outcome := "completed"
	if !r.Completed {
		outcome = "interrupted"
	}
	m.Moves.Inc(Labels{"kind": r.Kind.String(), "outcome": outcome})
	m.WheelSteps.Add(Labels{"wheel": "left"}, abs(r.Left))
	m.WheelSteps.Add(Labels{"wheel": "right"}, abs(r.Right))
	m.MoveDuration.Observe(Labels{"kind": r.Kind.String()}, float64(r.Ticks)/clock.TickFrequency)
}

func (m *PlotterMetrics) DrawingFinished(r driver.DrawingResult) {
	m.Drawing.Dec(nil)
	m.Drawings.Inc(Labels{"state": r.State.String()})
	m.DrawingTime.ObserveDuration(nil, r.Duration)
}

// SafetyTripped counts a safety monitor trip; pass it to
// safety.Monitor.OnTrip.
func (m *PlotterMetrics) SafetyTripped(reason safety.Reason, _ string) {
	m.SafetyTrips.Inc(Labels{"reason": string(reason)})
}

func abs(v int32) uint64 {
	if v < 0 {
		return uint64(-int64(v))
	}
	return uint64(v)
}
