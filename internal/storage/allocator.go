package storage

import (
	"fmt"
	"log/slog"
)

// RecomputeCursor derives the next free block from the table: the highest
// end offset over all active entries. Holes below it are never reused.
func (h *Handler) RecomputeCursor() uint32 {
	var cursor uint32

	for _, e := range h.table {
		if !e.Active {
			continue
		}
		if end := e.End(); end > cursor {
			cursor = end
		}
	}

	h.cursor = cursor

	return cursor
}

// Cursor returns the current next-free-block (the high-water mark),
// relative to the start of the data region.
func (h *Handler) Cursor() uint32 {
	return h.cursor
}

// FreeBlocks returns the number of blocks above the high-water mark.
func (h *Handler) FreeBlocks() uint32 {
	return h.sb.DataBlocks() - min(h.cursor, h.sb.DataBlocks())
}

// Place decides where size bytes for a file are written. An existing file
// keeps its start block when the new content fits its old block range, or
// when it is the last file before the high-water mark and may grow in place.
// Everything else is placed at the high-water mark.
func (h *Handler) Place(existing *FileEntry, size uint32) (uint32, error) {
	if !h.ready {
		return 0, ErrNotReady
	}

	needed := blocksFor(size)
	start := h.cursor

	if existing != nil && existing.Active {
		if needed <= existing.Blocks() || existing.End() >= h.cursor {
			start = existing.StartBlock
		} else {
			slog.Debug("Relocating grown file to high-water mark",
				"name", existing.Name,
				"from", existing.StartBlock,
				"to", h.cursor,
			)
		}
	}

	if uint64(start)+uint64(needed) > uint64(h.sb.DataBlocks()) {
		return 0, fmt.Errorf("(storage-place) %d blocks at %d of %d: %w", needed, start, h.sb.DataBlocks(), ErrNoSpace)
	}

	return start, nil
}
