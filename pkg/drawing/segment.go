// Package drawing holds stored drawings: the packed segment format, the
// read-only image abstraction the player iterates, the blob container and
// an importer for generated C image headers.
package drawing

import (
	"encoding/binary"
	"fmt"

	"penbot/pkg/errors"
)

// SegmentSize is the encoded size of one Segment in bytes.
const SegmentSize = 4

// Angle limits of the 15-bit two's-complement turn field.
const (
	MinAngle = -(1 << 14)
	MaxAngle = 1<<14 - 1
)

const (
	angleMask = 1<<15 - 1
	penBit    = 1 << 15
)

// Segment is one (turn, move, pen) directive. Angle is applied first, then
// Len, with the pen in the given state for the move.
type Segment struct {
	Len   int16
	Angle int16
	Pen   bool
}

func (s Segment) String() string {
	pen := "up"
	if s.Pen {
		pen = "down"
	}
	return fmt.Sprintf("{len=%d angle=%d pen=%s}", s.Len, s.Angle, pen)
}

// Validate checks that Angle fits the 15-bit field.
func (s Segment) Validate() error {
	if s.Angle < MinAngle || s.Angle > MaxAngle {
		return errors.New(errors.ErrImageRange, fmt.Sprintf("angle %d outside [%d, %d]", s.Angle, MinAngle, MaxAngle)).
			SetContext("angle", s.Angle)
	}
	return nil
}

// PackWord encodes angle in bits 0-14 and pen in bit 15. Angles outside the
// 15-bit range are truncated to their low bits.
func PackWord(angle int16, pen bool) uint16 {
	w := uint16(angle) & angleMask
	if pen {
		w |= penBit
	}
	return w
}

// UnpackWord is the inverse of PackWord, sign-extending the angle.
func UnpackWord(w uint16) (angle int16, pen bool) {
	// shift the sign bit of the 15-bit field into bit 15, then back
	angle = int16(w<<1) >> 1
	return angle, w&penBit != 0
}

// Encode writes the 4-byte little-endian form of s into b.
func (s Segment) Encode(b []byte) {
	_ = b[SegmentSize-1]
	binary.LittleEndian.PutUint16(b[0:], uint16(s.Len))
	binary.LittleEndian.PutUint16(b[2:], PackWord(s.Angle, s.Pen))
}

// DecodeSegment reads a Segment from the first four bytes of b.
func DecodeSegment(b []byte) Segment {
	_ = b[SegmentSize-1]
	angle, pen := UnpackWord(binary.LittleEndian.Uint16(b[2:]))
	return Segment{
		Len:   int16(binary.LittleEndian.Uint16(b[0:])),
		Angle: angle,
		Pen:   pen,
	}
}
