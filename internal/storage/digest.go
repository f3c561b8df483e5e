package storage

import (
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest returns the BLAKE3 hash of the stored content of an entry, limited
// to its recorded size.
func (h *Handler) Digest(e FileEntry) ([32]byte, error) {
	data, err := h.ReadBlocks(e.StartBlock, e.Size)
	if err != nil {
		return [32]byte{}, fmt.Errorf("(storage-digest) %s: %w", e.Name, err)
	}

	return blake3.Sum256(data), nil
}
