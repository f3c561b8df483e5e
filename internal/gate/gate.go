// Package gate implements the unified I/O surface shared by files and
// pipes. Every name is resolved once into a [Target] and the operation is
// routed to the storage layer or the pipe pool accordingly.
package gate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/zeebo/blake3"
)

// RenameMode selects how [Handler.Rename] transfers content.
type RenameMode int

const (
	// RenameModeFull transfers the whole file and keeps its permissions.
	RenameModeFull RenameMode = iota

	// RenameModeCompat moves at most 12 bytes of content and writes the
	// new name with default permissions, matching on-disk results of
	// earlier kernels.
	RenameModeCompat
)

// CompatRenameBuffer is the transfer size of [RenameModeCompat].
const CompatRenameBuffer = 12

func (m RenameMode) String() string {
	if m == RenameModeCompat {
		return "compat"
	}

	return "full"
}

type fileProvider interface {
	Find(name string) (*storage.FileEntry, bool)
	FreeSlot() (*storage.FileEntry, error)
	Clear(e *storage.FileEntry)
	Place(existing *storage.FileEntry, size uint32) (uint32, error)
	WriteBlocks(start uint32, data []byte) error
	ReadBlocks(start uint32, length uint32) ([]byte, error)
	Digest(e storage.FileEntry) ([32]byte, error)
	RecomputeCursor() uint32
	PersistTable() error
	PersistSuperblock() error
}

type pipeProvider interface {
	Create() (readID int, writeID int, err error)
	Write(id int, data []byte) error
	Read(id int, maxLen int) ([]byte, error)
	Close(id int) error
}

// Options configure a [Handler].
type Options struct {
	RenameMode         RenameMode
	EnforcePermissions bool
}

// Handler is the principal implementation of the I/O gate.
type Handler struct {
	FileOps fileProvider
	PipeOps pipeProvider

	opts Options
}

// NewHandler returns a pointer to a new [Handler].
func NewHandler(fileOps fileProvider, pipeOps pipeProvider, opts Options) *Handler {
	return &Handler{
		FileOps: fileOps,
		PipeOps: pipeOps,
		opts:    opts,
	}
}

// Write stores data under name. A pipe target receives the bytes as one
// all-or-nothing append. A file target is overwritten when it exists,
// otherwise the first free table slot is claimed. Block writes that
// succeeded before a failure are not rolled back, but the entry is only
// updated once all blocks are written.
func (h *Handler) Write(name string, data []byte, perms storage.Perm) error {
	target, err := Resolve(name)
	if err != nil {
		return err
	}

	switch t := target.(type) {
	case PipeTarget:
		if err := h.PipeOps.Write(t.ID, data); err != nil {
			return fmt.Errorf("(gate-write) %s: %w", t, err)
		}

		return nil

	case FileTarget:
		return h.writeFile(t.Name, data, perms)
	}

	return nil
}

func (h *Handler) writeFile(name string, data []byte, perms storage.Perm) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("(gate-write) %s: %d bytes: %w", name, len(data), ErrInvalidLength)
	}
	size := uint32(len(data)) //nolint:gosec

	slot, found := h.FileOps.Find(name)
	if found && h.opts.EnforcePermissions && slot.Permissions&storage.PermWrite == 0 {
		return fmt.Errorf("(gate-write) %s: %w", name, ErrPermission)
	}

	var existing *storage.FileEntry
	if found {
		existing = slot
	} else {
		free, err := h.FileOps.FreeSlot()
		if err != nil {
			return fmt.Errorf("(gate-write) %s: %w", name, err)
		}
		slot = free
	}

	start, err := h.FileOps.Place(existing, size)
	if err != nil {
		return fmt.Errorf("(gate-write) %s: %w", name, err)
	}

	if err := h.FileOps.WriteBlocks(start, data); err != nil {
		slog.Warn("Failed to write file data, entry left unchanged",
			"name", name,
			"start", start,
			"err", err,
		)

		return fmt.Errorf("(gate-write) %s: %w", name, err)
	}

	prev := *slot
	*slot = storage.FileEntry{
		Name:        name,
		StartBlock:  start,
		Size:        size,
		Active:      true,
		Permissions: perms,
	}
	h.FileOps.RecomputeCursor()

	if err := h.persist(slot, prev); err != nil {
		return fmt.Errorf("(gate-write) %s: %w", name, err)
	}

	slog.Debug("Wrote file",
		"name", name,
		"size", size,
		"start", start,
		"overwrite", found,
	)

	return nil
}

// Read returns up to maxLen bytes from name. A pipe target returns what is
// buffered, possibly nothing. A file target returns min(size, maxLen)
// bytes; on a failing block the bytes read so far are returned with the
// error.
func (h *Handler) Read(name string, maxLen uint32) ([]byte, error) {
	target, err := Resolve(name)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case PipeTarget:
		data, err := h.PipeOps.Read(t.ID, int(min(maxLen, math.MaxInt32)))
		if err != nil {
			return nil, fmt.Errorf("(gate-read) %s: %w", t, err)
		}

		return data, nil

	case FileTarget:
		return h.readFile(t.Name, maxLen)
	}

	return nil, nil
}

func (h *Handler) readFile(name string, maxLen uint32) ([]byte, error) {
	e, found := h.FileOps.Find(name)
	if !found {
		return nil, fmt.Errorf("(gate-read) %s: %w", name, ErrNotFound)
	}

	if h.opts.EnforcePermissions && e.Permissions&storage.PermRead == 0 {
		return nil, fmt.Errorf("(gate-read) %s: %w", name, ErrPermission)
	}

	data, err := h.FileOps.ReadBlocks(e.StartBlock, min(e.Size, maxLen))
	if err != nil {
		return data, fmt.Errorf("(gate-read) %s: %w", name, err)
	}

	return data, nil
}

// Unlink deactivates a file and reclaims trailing space.
func (h *Handler) Unlink(name string) error {
	e, err := h.findFile("gate-unlink", name)
	if err != nil {
		return err
	}

	prev := *e
	h.FileOps.Clear(e)
	h.FileOps.RecomputeCursor()

	if err := h.persist(e, prev); err != nil {
		return fmt.Errorf("(gate-unlink) %s: %w", name, err)
	}

	if err := h.FileOps.PersistSuperblock(); err != nil {
		return fmt.Errorf("(gate-unlink) %s: %w", name, err)
	}

	slog.Debug("Unlinked file", "name", name)

	return nil
}

// Rename moves a file by reading the old name, writing the new name and
// unlinking the old name, in that order. A failure between the steps can
// leave both names present.
func (h *Handler) Rename(oldName, newName string) error {
	old, err := h.findFile("gate-rename", oldName)
	if err != nil {
		return err
	}

	newTarget, err := Resolve(newName)
	if err != nil {
		return err
	}
	if _, ok := newTarget.(FileTarget); !ok {
		return fmt.Errorf("(gate-rename) %s: %w", newTarget, ErrPipeTarget)
	}

	if oldName == newName {
		return nil
	}

	length, perms := old.Size, old.Permissions
	if h.opts.RenameMode == RenameModeCompat {
		length, perms = min(length, CompatRenameBuffer), storage.DefaultPerms
	}

	data, err := h.FileOps.ReadBlocks(old.StartBlock, length)
	if err != nil {
		return fmt.Errorf("(gate-rename) %s: %w", oldName, err)
	}

	if err := h.writeFile(newName, data, perms); err != nil {
		return fmt.Errorf("(gate-rename) %s -> %s: %w", oldName, newName, err)
	}

	if h.opts.RenameMode == RenameModeFull {
		if err := h.verify(newName, data); err != nil {
			return fmt.Errorf("(gate-rename) %s -> %s: %w", oldName, newName, err)
		}
	}

	if err := h.Unlink(oldName); err != nil {
		return fmt.Errorf("(gate-rename) %s -> %s: %w", oldName, newName, err)
	}

	slog.Debug("Renamed file",
		"from", oldName,
		"to", newName,
		"mode", h.opts.RenameMode,
	)

	return nil
}

// verify re-reads a freshly written file and compares its digest against
// the content that was meant to be written.
func (h *Handler) verify(name string, want []byte) error {
	e, found := h.FileOps.Find(name)
	if !found {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	got, err := h.FileOps.Digest(*e)
	if err != nil {
		return err
	}

	if got != blake3.Sum256(want) {
		return fmt.Errorf("%s: %w", name, ErrDigestMismatch)
	}

	return nil
}

// persist writes the file table after e was changed from prev. On failure
// e is restored so that memory keeps matching the table on disk.
func (h *Handler) persist(e *storage.FileEntry, prev storage.FileEntry) error {
	if err := h.FileOps.PersistTable(); err != nil {
		*e = prev
		h.FileOps.RecomputeCursor()

		return err
	}

	return nil
}

// Truncate shrinks the recorded size of a file. The blocks past the new
// size are neither rewritten nor zeroed.
func (h *Handler) Truncate(name string, length int64) error {
	e, err := h.findFile("gate-truncate", name)
	if err != nil {
		return err
	}

	if length <= 0 || length > int64(e.Size) {
		return fmt.Errorf("(gate-truncate) %s: %d of %d: %w", name, length, e.Size, ErrInvalidLength)
	}

	prev := *e
	e.Size = uint32(length) //nolint:gosec
	h.FileOps.RecomputeCursor()

	if err := h.persist(e, prev); err != nil {
		return fmt.Errorf("(gate-truncate) %s: %w", name, err)
	}

	return nil
}

// Chmod replaces the permission byte of a file.
func (h *Handler) Chmod(name string, perms storage.Perm) error {
	e, err := h.findFile("gate-chmod", name)
	if err != nil {
		return err
	}

	prev := *e
	e.Permissions = perms

	if err := h.persist(e, prev); err != nil {
		return fmt.Errorf("(gate-chmod) %s: %w", name, err)
	}

	return nil
}

// Stat returns a copy of the entry of a file.
func (h *Handler) Stat(name string) (storage.FileEntry, error) {
	e, err := h.findFile("gate-stat", name)
	if err != nil {
		return storage.FileEntry{}, err
	}

	return *e, nil
}

// Pipe creates a pipe and returns its read and write identifiers.
func (h *Handler) Pipe() (readID int, writeID int, err error) {
	readID, writeID, err = h.PipeOps.Create()
	if err != nil {
		return 0, 0, fmt.Errorf("(gate-pipe) %w", err)
	}

	return readID, writeID, nil
}

// Close releases a pipe endpoint.
func (h *Handler) Close(id int) error {
	if err := h.PipeOps.Close(id); err != nil {
		return fmt.Errorf("(gate-close) %w", err)
	}

	return nil
}

// findFile resolves name to an active file entry, rejecting pipe targets.
func (h *Handler) findFile(op string, name string) (*storage.FileEntry, error) {
	target, err := Resolve(name)
	if err != nil {
		return nil, err
	}

	t, ok := target.(FileTarget)
	if !ok {
		return nil, fmt.Errorf("(%s) %s: %w", op, target, ErrPipeTarget)
	}

	e, found := h.FileOps.Find(t.Name)
	if !found {
		return nil, fmt.Errorf("(%s) %s: %w", op, t.Name, ErrNotFound)
	}

	return e, nil
}
