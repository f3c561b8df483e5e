package main

import "errors"

var (
	// ErrReadOnly is returned for every write attempted by the inspector.
	ErrReadOnly = errors.New("inspector opened the image read-only")

	// ErrNotAnImage occurs when the given path cannot hold a filesystem.
	ErrNotAnImage = errors.New("not a disk image")
)
