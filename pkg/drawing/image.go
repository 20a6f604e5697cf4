package drawing

// Image is an ordered, read-only sequence of segments. Implementations
// validate their storage up front so that At never fails for
// 0 <= i < Count().
type Image interface {
	Count() uint16
	At(i uint16) Segment
}

// Slice is an in-memory Image.
type Slice []Segment

func (s Slice) Count() uint16       { return uint16(len(s)) }
func (s Slice) At(i uint16) Segment { return s[i] }

// Named attaches a display name to an Image.
type Named struct {
	Image
	Name string
}

// Segments copies every segment of img into a Slice.
func Segments(img Image) Slice {
	out := make(Slice, img.Count())
	for i := range out {
		out[i] = img.At(uint16(i))
	}
	return out
}
