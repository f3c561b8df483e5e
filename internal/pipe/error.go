package pipe

import "errors"

var (
	// ErrNoSpace is returned when every pipe slot is in use.
	ErrNoSpace = errors.New("no free pipe slot")

	// ErrNotFound is returned when an identifier does not name a matching
	// endpoint of a created pipe.
	ErrNotFound = errors.New("pipe not found")

	// ErrFull is returned when a write does not fit the remaining capacity.
	// Nothing is written in that case.
	ErrFull = errors.New("pipe is full")

	// ErrClosed is returned when operating on a closed endpoint.
	ErrClosed = errors.New("pipe is closed")
)
