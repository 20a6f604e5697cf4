package driver

import (
	"time"

	"github.com/google/uuid"

	"penbot/pkg/drawing"
	"penbot/pkg/log"
)

// PlayState is the state of the drawing player.
type PlayState int

const (
	Idle PlayState = iota
	Playing
	Aborted
	Completed
)

func (s PlayState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Aborted:
		return "aborted"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

// DrawImage plays every segment of img: set the pen if it changed, rotate,
// then move. It stops at the first interrupted motion. Either way the pen
// ends up and every actuator is off. The result is true only if all
// segments were executed.
func (d *Driver) DrawImage(interrupted Interrupted, img drawing.Image) bool {
	info := DrawingInfo{
		ID:       uuid.New(),
		Segments: img.Count(),
		Started:  time.Now(),
	}
	if named, ok := img.(drawing.Named); ok {
		info.Name = named.Name
	}
	logger := d.log.With(log.Fields{"drawing": info.ID.String()})
	logger.WithFields(log.Fields{"name": info.Name, "segments": info.Segments}).Info("drawing started")
	d.state = Playing
	d.obs.DrawingStarted(info)

	n := img.Count()
	var (
		pen bool
		i   uint16
	)
	for i = 0; i < n; i++ {
		seg := img.At(i)
		d.obs.SegmentStarted(info.ID, i, seg)
		if logger.Enabled(log.DEBUG) {
			logger.WithField("index", i).Debugf("segment %v", seg)
		}
		if i == 0 || pen != seg.Pen {
			d.Pen(seg.Pen)
			pen = seg.Pen
		}
		if !d.RotateSteps(interrupted, seg.Angle) {
			break
		}
		if !d.ForwardSteps(interrupted, seg.Len) {
			break
		}
	}
	d.Pen(false)
	d.Off()

	d.state = Completed
	if i < n {
		d.state = Aborted
	}
	result := DrawingResult{
		DrawingInfo: info,
		Drawn:       i,
		State:       d.state,
		Duration:    time.Since(info.Started),
	}
	entry := logger.WithFields(log.Fields{"drawn": i, "segments": n, "duration": result.Duration})
	if d.state == Aborted {
		entry.Warn("drawing aborted")
	} else {
		entry.Info("drawing completed")
	}
	d.obs.DrawingFinished(result)
	return d.state == Completed
}

// TestDrive raises the pen and drives 100 × 300 mm straight. Actuators are
// switched off on both outcomes.
func (d *Driver) TestDrive(interrupted Interrupted) bool {
	d.Pen(false)
	// Off runs on interruption too, so an aborted drive never leaves the
	// coils energised.
	defer d.Off()
	for i := 0; i < 100; i++ {
		if !d.Forward(interrupted, 300000) {
			d.log.WithField("leg", i).Warn("test drive interrupted")
			return false
		}
	}
	return true
}

// Calibration draws a 200 mm line, turns 180° and three further full
// turns, then draws a second 200 mm line; the two lines reveal wheel ratio
// and rotation bias errors. Only the first line, the half turn and the
// second line contribute to the result; the outcome of the three full
// turns is logged but not reported.
func (d *Driver) Calibration(interrupted Interrupted) bool {
	d.Pen(true)
	ok := d.Forward(interrupted, 200000)
	d.Pen(false)
	ok = ok && d.Rotate(interrupted, 180*60)

	spins := d.Rotate(interrupted, 360*60) && d.Rotate(interrupted, 360*60) &&
		d.Rotate(interrupted, 360*60)
	if !spins {
		d.log.WithField("result", ok).Warn("calibration spins interrupted; result does not reflect it")
	}

	d.Pen(true)
	ok = ok && d.Forward(interrupted, 200000)
	d.Pen(false)
	d.Off()
	return ok
}
