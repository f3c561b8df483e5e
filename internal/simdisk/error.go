package simdisk

import "errors"

var (
	// ErrImageTooSmall is returned when an image cannot hold a single
	// sector.
	ErrImageTooSmall = errors.New("image smaller than one sector")

	// ErrOutOfBounds is returned for accesses past the end of an image.
	ErrOutOfBounds = errors.New("access past end of image")

	// ErrImageLocked is returned when another process holds the image.
	ErrImageLocked = errors.New("image is locked by another process")

	// ErrShortIO is returned when the host transferred fewer bytes than
	// requested.
	ErrShortIO = errors.New("short read or write on image")
)
