package simdisk

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// SectorSize is the sector size the controller exposes.
const SectorSize = 512

// Image is the backing store of a simulated disk.
type Image interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
	Size() int64
	Close() error
}

// MemImage is an [Image] held entirely in memory.
type MemImage struct {
	sync.RWMutex
	data []byte
}

// NewMemImage returns a zeroed in-memory image of the given number of
// sectors.
func NewMemImage(sectors int) *MemImage {
	return &MemImage{
		data: make([]byte, sectors*SectorSize),
	}
}

// ReadAt implements [io.ReaderAt].
func (m *MemImage) ReadAt(p []byte, off int64) (int, error) {
	m.RLock()
	defer m.RUnlock()

	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("(memimage-read) offset %d: %w", off, ErrOutOfBounds)
	}

	return copy(p, m.data[off:]), nil
}

// WriteAt implements [io.WriterAt].
func (m *MemImage) WriteAt(p []byte, off int64) (int, error) {
	m.Lock()
	defer m.Unlock()

	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("(memimage-write) offset %d: %w", off, ErrOutOfBounds)
	}

	return copy(m.data[off:], p), nil
}

// Sync is a no-op for memory images.
func (*MemImage) Sync() error {
	return nil
}

// Size returns the image size in bytes.
func (m *MemImage) Size() int64 {
	m.RLock()
	defer m.RUnlock()

	return int64(len(m.data))
}

// Close is a no-op for memory images.
func (*MemImage) Close() error {
	return nil
}

type osProvider interface {
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
}

type unixProvider interface {
	Pread(fd int, p []byte, offset int64) (int, error)
	Pwrite(fd int, p []byte, offset int64) (int, error)
	Fsync(fd int) error
	Flock(fd int, how int) error
	Ftruncate(fd int, length int64) error
}

// FileImage is an [Image] backed by a host file. The file is held under an
// exclusive advisory lock for the lifetime of the image.
type FileImage struct {
	file    *os.File
	fd      int
	size    int64
	UnixOps unixProvider
}

// OpenFileImage opens (creating if needed) the image at path. A file
// smaller than sectors is grown; a larger one keeps its size.
func OpenFileImage(path string, sectors int, osOps osProvider, unixOps unixProvider) (*FileImage, error) {
	if sectors <= 0 {
		return nil, fmt.Errorf("(fileimage-open) %w", ErrImageTooSmall)
	}

	f, err := osOps.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("(fileimage-open) failed to open: %w", err)
	}

	fd := int(f.Fd()) //nolint:gosec

	if err := unixOps.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("(fileimage-open) %s: %w", path, ErrImageLocked)
		}

		return nil, fmt.Errorf("(fileimage-open) failed to lock: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("(fileimage-open) failed to stat: %w", err)
	}

	size := info.Size()
	if want := int64(sectors) * SectorSize; size < want {
		if err := unixOps.Ftruncate(fd, want); err != nil {
			f.Close()

			return nil, fmt.Errorf("(fileimage-open) failed to grow: %w", err)
		}
		size = want
	}

	return &FileImage{
		file:    f,
		fd:      fd,
		size:    size,
		UnixOps: unixOps,
	}, nil
}

// ReadAt implements [io.ReaderAt] with pread.
func (fi *FileImage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > fi.size {
		return 0, fmt.Errorf("(fileimage-read) offset %d: %w", off, ErrOutOfBounds)
	}

	n, err := fi.UnixOps.Pread(fi.fd, p, off)
	if err != nil {
		return n, fmt.Errorf("(fileimage-read) %w", err)
	}
	if n != len(p) {
		return n, fmt.Errorf("(fileimage-read) %d/%d bytes: %w", n, len(p), ErrShortIO)
	}

	return n, nil
}

// WriteAt implements [io.WriterAt] with pwrite.
func (fi *FileImage) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > fi.size {
		return 0, fmt.Errorf("(fileimage-write) offset %d: %w", off, ErrOutOfBounds)
	}

	n, err := fi.UnixOps.Pwrite(fi.fd, p, off)
	if err != nil {
		return n, fmt.Errorf("(fileimage-write) %w", err)
	}
	if n != len(p) {
		return n, fmt.Errorf("(fileimage-write) %d/%d bytes: %w", n, len(p), ErrShortIO)
	}

	return n, nil
}

// Sync flushes the image to stable storage.
func (fi *FileImage) Sync() error {
	if err := fi.UnixOps.Fsync(fi.fd); err != nil {
		return fmt.Errorf("(fileimage-sync) %w", err)
	}

	return nil
}

// Size returns the image size in bytes.
func (fi *FileImage) Size() int64 {
	return fi.size
}

// Close releases the lock and closes the file.
func (fi *FileImage) Close() error {
	_ = fi.UnixOps.Flock(fi.fd, unix.LOCK_UN)

	if err := fi.file.Close(); err != nil {
		return fmt.Errorf("(fileimage-close) %w", err)
	}

	return nil
}
