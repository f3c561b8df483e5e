package storage

import (
	"fmt"
	"log/slog"

	"github.com/desertwitch/flatkern/internal/ata"
)

// WriteBlocks writes data into the data region starting at block start, in
// whole blocks with the final block zero padded. The first failing block
// aborts the write; blocks before it stay written.
func (h *Handler) WriteBlocks(start uint32, data []byte) error {
	if !h.ready {
		return ErrNotReady
	}

	needed := blocksFor(uint32(len(data))) //nolint:gosec

	for i := range needed {
		var sector ata.Sector
		copy(sector[:], data[i*BlockSize:])

		lba := h.sb.DataStart + start + i
		if err := h.BlockOps.WriteSector(lba, sector); err != nil {
			return fmt.Errorf("(storage-write) block %d: %w: %w", start+i, ErrWriteBlock, err)
		}

		slog.Debug("Wrote block", "lba", lba)
	}

	return nil
}

// ReadBlocks reads length bytes from the data region starting at block
// start. Under [ReadPolicySurface] a failing block aborts the read and the
// bytes read so far are returned alongside the error.
func (h *Handler) ReadBlocks(start uint32, length uint32) ([]byte, error) {
	if !h.ready {
		return nil, ErrNotReady
	}

	out := make([]byte, 0, length)

	for i := uint32(0); uint32(len(out)) < length; i++ { //nolint:gosec
		block, err := h.readBlock(h.sb.DataStart + start + i)
		if err != nil {
			return out, fmt.Errorf("(storage-read) block %d: %w", start+i, err)
		}

		chunk := min(length-uint32(len(out)), BlockSize) //nolint:gosec
		out = append(out, block[:chunk]...)
	}

	return out, nil
}

// readBlock applies the read policy to a single sector read.
func (h *Handler) readBlock(lba uint32) (ata.Sector, error) {
	block, err := h.BlockOps.ReadSector(lba)
	if err == nil {
		return block, nil
	}

	if h.opts.ReadPolicy == ReadPolicyZeroFill {
		slog.Warn("Failed reading block, substituting zeros",
			"lba", lba,
			"err", err,
		)

		return ata.Sector{}, nil
	}

	return ata.Sector{}, fmt.Errorf("%w: %w", ErrReadBlock, err)
}
