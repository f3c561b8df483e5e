package storage

import "errors"

var (
	// ErrNotReady is returned by every operation before the filesystem was
	// formatted or loaded.
	ErrNotReady = errors.New("filesystem not initialized")

	// ErrFormat is returned when formatting a fresh filesystem failed. The
	// handler stays unready and the kernel cannot continue.
	ErrFormat = errors.New("failed to format filesystem")

	// ErrNoFilesystem is returned by [Handler.Load] when the disk does not
	// carry a filesystem.
	ErrNoFilesystem = errors.New("no filesystem on disk")

	// ErrCorruptSuperblock is returned when a superblock carries the magic
	// but describes an impossible geometry.
	ErrCorruptSuperblock = errors.New("superblock geometry is invalid")

	// ErrPersistTable is returned when writing the file table stopped at a
	// sector, leaving the on-disk table partially updated.
	ErrPersistTable = errors.New("failed to persist file table")

	// ErrPersistSuperblock is returned when the superblock sector could not
	// be written.
	ErrPersistSuperblock = errors.New("failed to persist superblock")

	// ErrReadBlock is returned when the superblock could not be read, or
	// when a data or table sector could not be read and the read policy
	// surfaces failures.
	ErrReadBlock = errors.New("failed to read block")

	// ErrWriteBlock is returned when a data sector could not be written.
	ErrWriteBlock = errors.New("failed to write block")

	// ErrNoFreeSlot is returned when every file table entry is active.
	ErrNoFreeSlot = errors.New("no free file table slot")

	// ErrNoSpace is returned when a file would extend past the data region.
	ErrNoSpace = errors.New("not enough free blocks in data region")

	// ErrInvalidGeometry is returned for configurations that cannot hold a
	// superblock, a file table and at least one data block.
	ErrInvalidGeometry = errors.New("invalid filesystem geometry")
)
