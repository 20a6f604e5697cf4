package driver

import (
	"time"

	"github.com/google/uuid"

	"penbot/pkg/drawing"
)

// MoveKind distinguishes straight moves from in-place rotations.
type MoveKind int

const (
	MoveForward MoveKind = iota
	MoveRotate
)

func (k MoveKind) String() string {
	if k == MoveRotate {
		return "rotate"
	}
	return "forward"
}

// MoveResult describes one finished or aborted move.
type MoveResult struct {
	Kind MoveKind
	// Steps is the requested virtual distance.
	Steps uint16
	// Left and Right are the signed physical steps issued to each wheel.
	Left, Right int32
	// Ticks is the tick-source time spent in the move loop.
	Ticks     uint64
	Completed bool
}

// DrawingInfo identifies a drawing being played.
type DrawingInfo struct {
	ID       uuid.UUID
	Name     string
	Segments uint16
	Started  time.Time
}

// DrawingResult is reported when a drawing ends either way.
type DrawingResult struct {
	DrawingInfo
	// Drawn is the number of segments fully executed.
	Drawn    uint16
	State    PlayState
	Duration time.Duration
}

// Observer receives driver events on the control goroutine. Implementations
// must return quickly; MoveFinished is called between ticks.
type Observer interface {
	DrawingStarted(info DrawingInfo)
	SegmentStarted(id uuid.UUID, index uint16, seg drawing.Segment)
	PenChanged(down bool)
	MoveFinished(m MoveResult)
	DrawingFinished(r DrawingResult)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) DrawingStarted(DrawingInfo)                        {}
func (NopObserver) SegmentStarted(uuid.UUID, uint16, drawing.Segment) {}
func (NopObserver) PenChanged(bool)                                   {}
func (NopObserver) MoveFinished(MoveResult)                           {}
func (NopObserver) DrawingFinished(DrawingResult)                     {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) DrawingStarted(info DrawingInfo) {
	for _, x := range o {
		x.DrawingStarted(info)
	}
}

func (o Observers) SegmentStarted(id uuid.UUID, index uint16, seg drawing.Segment) {
	for _, x := range o {
		x.SegmentStarted(id, index, seg)
	}
}

func (o Observers) PenChanged(down bool) {
	for _, x := range o {
		x.PenChanged(down)
	}
}

func (o Observers) MoveFinished(m MoveResult) {
	for _, x := range o {
		x.MoveFinished(m)
	}
}

func (o Observers) DrawingFinished(r DrawingResult) {
	for _, x := range o {
		x.DrawingFinished(r)
	}
}
