package drawing

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"penbot/pkg/errors"
)

// BlobHeaderSize is the size of the count/offset header in front of the
// segment array.
const BlobHeaderSize = 4

// Blob is an Image stored as a binary container: a little-endian uint16
// segment count, a uint16 byte offset to the segment array, then the
// packed 4-byte segments.
type Blob struct {
	data   []byte
	count  uint16
	offset uint16
}

// ParseBlob validates data and returns an Image reading segments from it.
// The slice is retained, not copied.
func ParseBlob(data []byte) (*Blob, error) {
	if len(data) < BlobHeaderSize {
		return nil, errors.ImageFormatError(fmt.Sprintf("blob of %d bytes has no header", len(data)))
	}
	count := binary.LittleEndian.Uint16(data[0:])
	offset := binary.LittleEndian.Uint16(data[2:])
	if offset < BlobHeaderSize {
		return nil, errors.ImageFormatError(fmt.Sprintf("segment offset %d overlaps header", offset))
	}
	end := int(offset) + int(count)*SegmentSize
	if end > len(data) {
		return nil, errors.ImageFormatError(fmt.Sprintf("%d segments at offset %d need %d bytes, have %d",
			count, offset, end, len(data))).
			SetContext("count", count)
	}
	return &Blob{data: data, count: count, offset: offset}, nil
}

// ReadBlob loads and validates a blob from r.
func ReadBlob(r io.Reader) (*Blob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrImageFormat, "read blob")
	}
	return ParseBlob(data)
}

// LoadBlob reads a blob file.
func LoadBlob(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrImageFormat, "read blob").SetFile(path)
	}
	b, err := ParseBlob(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrImageFormat, "invalid blob").SetFile(path)
	}
	return b, nil
}

func (b *Blob) Count() uint16 { return b.count }

// At decodes segment i. It panics if i is out of range, like slice indexing.
func (b *Blob) At(i uint16) Segment {
	if i >= b.count {
		panic(errors.ImageRangeError(int(i), int(b.count)))
	}
	off := int(b.offset) + int(i)*SegmentSize
	return DecodeSegment(b.data[off : off+SegmentSize])
}

// EncodeBlob serializes img with the segment array directly after the
// header.
func EncodeBlob(img Image) ([]byte, error) {
	n := img.Count()
	out := make([]byte, BlobHeaderSize+int(n)*SegmentSize)
	binary.LittleEndian.PutUint16(out[0:], n)
	binary.LittleEndian.PutUint16(out[2:], BlobHeaderSize)
	for i := uint16(0); i < n; i++ {
		s := img.At(i)
		if err := s.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.ErrImageRange, fmt.Sprintf("segment %d", i))
		}
		s.Encode(out[BlobHeaderSize+int(i)*SegmentSize:])
	}
	return out, nil
}

// WriteBlob encodes img to w.
func WriteBlob(w io.Writer, img Image) error {
	data, err := EncodeBlob(img)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
