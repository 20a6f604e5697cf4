//go:build unix

package nvram

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"penbot/pkg/errors"
)

// File is a Storage backed by a shared memory mapping of an EEPROM image
// file. Writes land in the page cache immediately and reach disk on Sync
// or Close.
type File struct {
	mu   sync.Mutex
	path string
	data []byte
}

// OpenFile maps path, creating and erasing it to size bytes if it does not
// exist. An existing file keeps its size; size only applies on creation.
func OpenFile(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.StorageError("open", err).SetFile(path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.StorageError("stat", err).SetFile(path)
	}
	fresh := info.Size() == 0
	if fresh {
		if size <= 0 {
			return nil, errors.New(errors.ErrStorage, "cannot create empty image").SetFile(path)
		}
		if err := f.Truncate(int64(size)); err != nil {
			return nil, errors.StorageError("truncate", err).SetFile(path)
		}
	} else {
		size = int(info.Size())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.StorageError("mmap", err).SetFile(path)
	}
	if fresh {
		erase(data)
	}
	return &File{path: path, data: data}, nil
}

func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data))
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return 0, errors.StorageError("read", os.ErrClosed)
	}
	return readAt(f.data, p, off)
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return 0, errors.StorageError("write", os.ErrClosed)
	}
	return writeAt(f.data, p, off)
}

// Sync flushes the mapping to the backing file.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil
	}
	if err := unix.Msync(f.data, unix.MS_SYNC); err != nil {
		return errors.StorageError("msync", err).SetFile(f.path)
	}
	return nil
}

// Close syncs and unmaps the file.
func (f *File) Close() error {
	if err := f.Sync(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil
	}
	err := unix.Munmap(f.data)
	f.data = nil
	if err != nil {
		return errors.StorageError("munmap", err).SetFile(f.path)
	}
	return nil
}
