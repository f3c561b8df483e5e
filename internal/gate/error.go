package gate

import "errors"

var (
	// ErrInvalidName is returned for empty names and names that do not fit
	// the on-disk name field.
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFound is returned when no active file carries the name.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidLength is returned for truncation lengths outside of
	// (0, size] and for writes that do not fit a 32-bit size field.
	ErrInvalidLength = errors.New("invalid length")

	// ErrPermission is returned when permission enforcement is enabled and
	// the file's permission byte forbids the operation.
	ErrPermission = errors.New("permission denied")

	// ErrPipeTarget is returned when a file-only operation names a pipe.
	ErrPipeTarget = errors.New("operation not supported on pipes")

	// ErrDigestMismatch is returned when renamed content does not hash to
	// the content that was read from the old name.
	ErrDigestMismatch = errors.New("content digest mismatch after copy")
)
