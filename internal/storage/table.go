package storage

// Find returns the active entry with exactly the given name. The returned
// pointer refers to the in-memory table.
func (h *Handler) Find(name string) (*FileEntry, bool) {
	for i := range h.table {
		if h.table[i].Active && h.table[i].Name == name {
			return &h.table[i], true
		}
	}

	return nil, false
}

// FreeSlot returns the first inactive entry of the table.
func (h *Handler) FreeSlot() (*FileEntry, error) {
	for i := range h.table {
		if !h.table[i].Active {
			return &h.table[i], nil
		}
	}

	return nil, ErrNoFreeSlot
}

// Clear deactivates an entry in memory. The caller persists the table.
func (h *Handler) Clear(e *FileEntry) {
	*e = FileEntry{}
}

// Entries returns a copy of the whole table.
func (h *Handler) Entries() []FileEntry {
	out := make([]FileEntry, len(h.table))
	copy(out, h.table)

	return out
}

// ActiveEntries returns copies of all active entries in table order.
func (h *Handler) ActiveEntries() []FileEntry {
	var out []FileEntry

	for _, e := range h.table {
		if e.Active {
			out = append(out, e)
		}
	}

	return out
}

// Snapshot is a point-in-time copy of the filesystem metadata.
type Snapshot struct {
	Superblock Superblock
	Cursor     uint32
	Files      []FileEntry
}

// Snapshot returns copies of the superblock, the cursor and all active
// entries.
func (h *Handler) Snapshot() Snapshot {
	return Snapshot{
		Superblock: h.sb,
		Cursor:     h.cursor,
		Files:      h.ActiveEntries(),
	}
}
