// Package calibration holds the per-robot correction record: rotation bias,
// per-wheel gear-ratio fractions and servo pulse widths.
package calibration

import (
	"encoding/binary"
	"fmt"
	"io"

	"penbot/pkg/errors"
)

// RecordSize is the encoded size of Data in non-volatile storage.
const RecordSize = 10

// UnitFraction is a gear ratio of exactly 1.0 in Q14.
const UnitFraction = 1 << 14

// Data is the calibration record. AngleOffset is Q8.8 steps added to every
// rotation, the fractions are Q14 wheel ratios, pen widths are in µs.
type Data struct {
	AngleOffset   int16
	LeftFraction  int16
	RightFraction int16
	PenDown       uint16
	PenUp         uint16
}

// Default is the record for an uncalibrated robot.
var Default = Data{
	AngleOffset:   256,
	LeftFraction:  UnitFraction,
	RightFraction: UnitFraction,
	PenDown:       1400,
	PenUp:         800,
}

// Decode parses the little-endian record layout from b.
func Decode(b []byte) (Data, error) {
	if len(b) < RecordSize {
		return Data{}, errors.CalibrationError(fmt.Sprintf("record needs %d bytes, have %d", RecordSize, len(b)))
	}
	le := binary.LittleEndian
	return Data{
		AngleOffset:   int16(le.Uint16(b[0:])),
		LeftFraction:  int16(le.Uint16(b[2:])),
		RightFraction: int16(le.Uint16(b[4:])),
		PenDown:       le.Uint16(b[6:]),
		PenUp:         le.Uint16(b[8:]),
	}, nil
}

// Encode returns the RecordSize-byte storage form of d.
func (d Data) Encode() []byte {
	b := make([]byte, RecordSize)
	le := binary.LittleEndian
	le.PutUint16(b[0:], uint16(d.AngleOffset))
	le.PutUint16(b[2:], uint16(d.LeftFraction))
	le.PutUint16(b[4:], uint16(d.RightFraction))
	le.PutUint16(b[6:], d.PenDown)
	le.PutUint16(b[8:], d.PenUp)
	return b
}

// Servo pulse widths above MaxPulseUs are rejected; hobby servos take
// roughly 500 to 2500 µs.
const MaxPulseUs = 3000

// Validate rejects records that cannot drive the robot. A wheel fraction
// below half a unit in magnitude would barely move the wheel, and an erased
// EEPROM cell (0xFFFF) decodes to a fraction of -1 and a pulse width far
// beyond any servo.
func (d Data) Validate() error {
	switch {
	case abs(d.LeftFraction) < UnitFraction/2 || abs(d.RightFraction) < UnitFraction/2:
		return errors.CalibrationError(fmt.Sprintf("wheel fraction magnitude must be at least %d", UnitFraction/2)).
			SetContext("left", d.LeftFraction).SetContext("right", d.RightFraction)
	case d.PenDown == 0 || d.PenUp == 0:
		return errors.CalibrationError("pen pulse width must be non-zero").
			SetContext("down", d.PenDown).SetContext("up", d.PenUp)
	case d.PenDown > MaxPulseUs || d.PenUp > MaxPulseUs:
		return errors.CalibrationError(fmt.Sprintf("pen pulse width must be at most %d µs", MaxPulseUs)).
			SetContext("down", d.PenDown).SetContext("up", d.PenUp)
	}
	return nil
}

func abs(v int16) int32 {
	if v < 0 {
		return -int32(v)
	}
	return int32(v)
}

// Load block-copies one record from storage at offset.
func Load(r io.ReaderAt, offset int64) (Data, error) {
	buf := make([]byte, RecordSize)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return Data{}, errors.StorageError("read calibration", err).SetContext("offset", offset)
	}
	return Decode(buf)
}

// Store writes d to storage at offset.
func Store(w io.WriterAt, offset int64, d Data) error {
	if _, err := w.WriteAt(d.Encode(), offset); err != nil {
		return errors.StorageError("write calibration", err).SetContext("offset", offset)
	}
	return nil
}
