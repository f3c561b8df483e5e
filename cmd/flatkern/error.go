package main

import "errors"

var (
	// ErrNoDisk occurs when the disk controller does not answer IDENTIFY.
	// The filesystem cannot be mounted and the kernel does not boot.
	ErrNoDisk = errors.New("no usable disk")

	// ErrNoFilesystem occurs when the filesystem could neither be loaded nor
	// formatted.
	ErrNoFilesystem = errors.New("filesystem unavailable")
)
