// Package nvram provides byte-addressable non-volatile storage: an
// in-memory image for tests and simulation, and a memory-mapped file that
// stands in for the controller's EEPROM on a host.
package nvram

import (
	"io"

	"penbot/pkg/errors"
)

// Storage is a fixed-size, byte-addressable store.
type Storage interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
}

// Memory is a Storage backed by a byte slice. Erased cells read as 0xFF,
// like an unprogrammed EEPROM.
type Memory struct {
	data []byte
}

// NewMemory creates an erased store of size bytes.
func NewMemory(size int) *Memory {
	m := &Memory{data: make([]byte, size)}
	erase(m.data)
	return m
}

// NewMemoryFrom wraps an existing image without copying it.
func NewMemoryFrom(data []byte) *Memory {
	return &Memory{data: data}
}

func (m *Memory) Size() int64 { return int64(len(m.data)) }

// Bytes returns the backing image.
func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	return readAt(m.data, p, off)
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	return writeAt(m.data, p, off)
}

func erase(b []byte) {
	for i := range b {
		b[i] = 0xFF
	}
}

func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.StorageError("read", errNegativeOffset)
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func writeAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.StorageError("write", errNegativeOffset)
	}
	if off+int64(len(p)) > int64(len(data)) {
		return 0, errors.StorageError("write", io.ErrShortWrite).
			SetContext("offset", off).SetContext("size", len(data))
	}
	return copy(data[off:], p), nil
}

var errNegativeOffset = errors.New(errors.ErrStorage, "negative offset")
