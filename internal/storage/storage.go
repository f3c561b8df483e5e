// Package storage implements the flat filesystem on top of a sector device:
// the superblock in sector 0, a fixed-capacity file table mirrored to the
// sectors after it, and a bump allocator for the data region.
//
// The [Handler] owns all of this state. It is not safe for concurrent use;
// callers serialize access (the syscall dispatcher does).
package storage

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/desertwitch/flatkern/internal/ata"
)

// ReadPolicy decides what happens when a sector read fails.
type ReadPolicy int

const (
	// ReadPolicySurface returns the device error to the caller.
	ReadPolicySurface ReadPolicy = iota

	// ReadPolicyZeroFill substitutes a zeroed block and only logs the
	// failure, so a failing disk yields zero-filled reads.
	ReadPolicyZeroFill
)

func (p ReadPolicy) String() string {
	if p == ReadPolicyZeroFill {
		return "zerofill"
	}

	return "surface"
}

type blockProvider interface {
	ReadSector(lba uint32) (ata.Sector, error)
	WriteSector(lba uint32, data ata.Sector) error
}

// Options configure a [Handler]. The geometry is only used when a fresh
// filesystem is formatted; an existing one keeps its own.
type Options struct {
	TotalBlocks uint32
	Entries     uint32
	ReadPolicy  ReadPolicy
}

// DefaultOptions returns the compatibility geometry.
func DefaultOptions() Options {
	return Options{
		TotalBlocks: DefaultTotalBlocks,
		Entries:     DefaultEntries,
		ReadPolicy:  ReadPolicySurface,
	}
}

// Handler is the principal implementation of the storage layer.
type Handler struct {
	BlockOps blockProvider

	opts   Options
	sb     Superblock
	table  []FileEntry
	cursor uint32
	ready  bool
}

// NewHandler returns a pointer to a new [Handler]. The filesystem is not
// usable before [Handler.FormatIfAbsent] succeeded.
func NewHandler(blockOps blockProvider, opts Options) (*Handler, error) {
	if opts.Entries == 0 || opts.TotalBlocks <= tableSectors(opts.Entries)+1 {
		return nil, fmt.Errorf("(storage) %d blocks, %d entries: %w", opts.TotalBlocks, opts.Entries, ErrInvalidGeometry)
	}

	return &Handler{
		BlockOps: blockOps,
		opts:     opts,
	}, nil
}

// Ready reports whether the filesystem was loaded or formatted.
func (h *Handler) Ready() bool {
	return h.ready
}

// Superblock returns a copy of the in-memory superblock.
func (h *Handler) Superblock() Superblock {
	return h.sb
}

// ReadPolicy returns the configured read-failure policy.
func (h *Handler) ReadPolicy() ReadPolicy {
	return h.opts.ReadPolicy
}

// FormatIfAbsent loads the filesystem from disk, formatting a fresh one when
// sector 0 does not carry the magic. Any error leaves the handler unready.
func (h *Handler) FormatIfAbsent() error {
	h.ready = false

	raw, err := h.readSuperblock()
	if err != nil {
		return fmt.Errorf("(storage-init) %w", err)
	}

	sb := decodeSuperblock(raw)
	if sb.Magic == Magic {
		return h.load(sb)
	}

	slog.Info("No valid filesystem found, creating new filesystem...",
		"magic", fmt.Sprintf("%#04x", sb.Magic),
	)

	return h.format()
}

// Load loads an existing filesystem without ever writing to the disk.
// It returns [ErrNoFilesystem] when sector 0 does not carry the magic.
func (h *Handler) Load() error {
	h.ready = false

	raw, err := h.readSuperblock()
	if err != nil {
		return fmt.Errorf("(storage-load) %w", err)
	}

	sb := decodeSuperblock(raw)
	if sb.Magic != Magic {
		return fmt.Errorf("(storage-load) magic %#04x: %w", sb.Magic, ErrNoFilesystem)
	}

	return h.load(sb)
}

// readSuperblock reads sector 0. A failure is always surfaced, even under
// [ReadPolicyZeroFill], since a zeroed superblock would trigger a format.
func (h *Handler) readSuperblock() (ata.Sector, error) {
	raw, err := h.BlockOps.ReadSector(0)
	if err != nil {
		return ata.Sector{}, fmt.Errorf("failed to read superblock: %w: %w", ErrReadBlock, err)
	}

	return raw, nil
}

// Reformat discards the filesystem on disk and formats a fresh one.
func (h *Handler) Reformat() error {
	h.ready = false

	if err := h.BlockOps.WriteSector(0, ata.Sector{}); err != nil {
		return fmt.Errorf("(storage-reformat) failed to clear superblock: %w", err)
	}

	return h.format()
}

func (h *Handler) load(sb Superblock) error {
	if !sb.valid() {
		return fmt.Errorf("(storage-load) %+v: %w", sb, ErrCorruptSuperblock)
	}

	if sb.TotalBlocks != h.opts.TotalBlocks || sb.FileTableLength != h.opts.Entries {
		slog.Warn("On-disk geometry differs from configuration, using on-disk geometry",
			"totalBlocks", sb.TotalBlocks,
			"entries", sb.FileTableLength,
		)
	}

	stream := make([]byte, 0, sb.TableSectors()*BlockSize)
	for i := range sb.TableSectors() {
		block, err := h.readBlock(sb.FileTableStart + i)
		if err != nil {
			return fmt.Errorf("(storage-load) table sector %d: %w", i, err)
		}
		stream = append(stream, block[:]...)
	}

	h.sb = sb
	h.table = decodeTable(stream, sb.FileTableLength)
	h.RecomputeCursor()
	h.ready = true

	slog.Info("Valid filesystem found, loaded.",
		"entries", sb.FileTableLength,
		"active", len(h.ActiveEntries()),
		"dataStart", sb.DataStart,
		"nextFreeBlock", h.cursor,
	)

	return nil
}

func (h *Handler) format() error {
	sb := newSuperblock(h.opts.TotalBlocks, h.opts.Entries)

	if err := h.BlockOps.WriteSector(0, encodeSuperblock(sb)); err != nil {
		return fmt.Errorf("(storage-format) superblock: %w: %w", ErrFormat, err)
	}

	h.sb = sb
	h.table = make([]FileEntry, sb.FileTableLength)
	h.cursor = 0

	if err := h.PersistTable(); err != nil {
		return fmt.Errorf("(storage-format) %w: %w", ErrFormat, err)
	}

	h.ready = true

	slog.Info("Filesystem initialized successfully.",
		"totalBlocks", sb.TotalBlocks,
		"entries", sb.FileTableLength,
		"dataStart", sb.DataStart,
	)

	return nil
}

// PersistTable writes the whole in-memory table back to disk, sector by
// sector. The first failing sector aborts the loop; sectors before it are
// already updated on disk.
func (h *Handler) PersistTable() error {
	stream := encodeTable(h.table)

	for i := range h.sb.TableSectors() {
		var sector ata.Sector
		copy(sector[:], stream[i*BlockSize:])

		if err := h.BlockOps.WriteSector(h.sb.FileTableStart+i, sector); err != nil {
			slog.Error("Failed writing file table sector",
				"sector", i,
				"err", err,
			)

			return fmt.Errorf("(storage-persist-table) sector %d: %w: %w", i, ErrPersistTable, err)
		}
	}

	return nil
}

// PersistSuperblock rewrites sector 0 from the in-memory superblock.
func (h *Handler) PersistSuperblock() error {
	if err := h.BlockOps.WriteSector(0, encodeSuperblock(h.sb)); err != nil {
		return fmt.Errorf("(storage-persist-superblock) %w: %w", ErrPersistSuperblock, err)
	}

	return nil
}

// LogBlockZero dumps the head of sector 0 at debug level.
func (h *Handler) LogBlockZero() {
	raw, err := h.BlockOps.ReadSector(0)
	if err != nil {
		slog.Debug("Block 0 unreadable", "err", err)

		return
	}

	slog.Debug("Block 0 dump", "head", hex.EncodeToString(raw[:64]))
}
