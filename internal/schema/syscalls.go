package schema

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS is an implementation wrapping operating system functions.
type OS struct{}

// OpenFile wraps around [os.OpenFile].
func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat wraps around [os.Stat].
func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Unix is an implementation wrapping Unix operating system functions.
type Unix struct{}

// Pread wraps around [unix.Pread].
func (*Unix) Pread(fd int, p []byte, offset int64) (int, error) {
	return unix.Pread(fd, p, offset)
}

// Pwrite wraps around [unix.Pwrite].
func (*Unix) Pwrite(fd int, p []byte, offset int64) (int, error) {
	return unix.Pwrite(fd, p, offset)
}

// Fsync wraps around [unix.Fsync].
func (*Unix) Fsync(fd int) error {
	return unix.Fsync(fd)
}

// Flock wraps around [unix.Flock].
func (*Unix) Flock(fd int, how int) error {
	return unix.Flock(fd, how)
}

// Ftruncate wraps around [unix.Ftruncate].
func (*Unix) Ftruncate(fd int, length int64) error {
	return unix.Ftruncate(fd, length)
}
