package machine

import (
	"bytes"
	"fmt"
	"sync"
)

// Memory is the flat physical memory shared by the kernel and all tasks.
// There is no virtual memory: an address is an offset into one byte slice.
// Task data is bump-allocated from an arena that starts at a fixed base.
type Memory struct {
	sync.RWMutex
	data      []byte
	arenaBase uint32
	next      uint32
}

// NewMemory returns a pointer to a new zeroed [Memory] of size bytes, with
// its allocation arena starting at arenaBase.
func NewMemory(size int, arenaBase uint32) *Memory {
	return &Memory{
		data:      make([]byte, size),
		arenaBase: arenaBase,
		next:      arenaBase,
	}
}

// Size returns the size of the memory in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

func (m *Memory) check(addr uint32, n uint64) error {
	if uint64(addr)+n > uint64(len(m.data)) {
		return fmt.Errorf("(memory) %#x+%d: %w", addr, n, ErrOutOfBounds)
	}

	return nil
}

// Check reports whether the n bytes at addr lie within memory.
func (m *Memory) Check(addr uint32, n uint32) error {
	m.RLock()
	defer m.RUnlock()

	return m.check(addr, uint64(n))
}

// ReadBytes returns a copy of n bytes at addr.
func (m *Memory) ReadBytes(addr uint32, n uint32) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if err := m.check(addr, uint64(n)); err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, m.data[addr:])

	return out, nil
}

// WriteBytes copies data to addr.
func (m *Memory) WriteBytes(addr uint32, data []byte) error {
	m.Lock()
	defer m.Unlock()

	if err := m.check(addr, uint64(len(data))); err != nil {
		return err
	}

	copy(m.data[addr:], data)

	return nil
}

// CString reads a NUL-terminated string at addr, stopping after limit bytes
// when no terminator was found.
func (m *Memory) CString(addr uint32, limit int) (string, error) {
	m.RLock()
	defer m.RUnlock()

	if err := m.check(addr, 1); err != nil {
		return "", err
	}

	rest := m.data[addr:]
	window := rest[:min(len(rest), limit)]

	if i := bytes.IndexByte(window, 0); i >= 0 {
		return string(window[:i]), nil
	}

	if len(window) == len(rest) {
		return "", fmt.Errorf("(memory) unterminated string at %#x: %w", addr, ErrOutOfBounds)
	}

	return string(window), nil
}

// Alloc reserves n zeroed bytes from the arena, 4-byte aligned.
func (m *Memory) Alloc(n uint32) (uint32, error) {
	m.Lock()
	defer m.Unlock()

	addr := m.next
	end := (uint64(addr) + uint64(n) + 3) &^ 3

	if end > uint64(len(m.data)) {
		return 0, fmt.Errorf("(memory) %d bytes at %#x: %w", n, addr, ErrArenaExhausted)
	}

	clear(m.data[addr : uint64(addr)+uint64(n)])
	m.next = uint32(end) //nolint:gosec

	return addr, nil
}

// AllocCString copies s with a terminating NUL into the arena.
func (m *Memory) AllocCString(s string) (uint32, error) {
	addr, err := m.Alloc(uint32(len(s) + 1)) //nolint:gosec
	if err != nil {
		return 0, err
	}

	if err := m.WriteBytes(addr, append([]byte(s), 0)); err != nil {
		return 0, err
	}

	return addr, nil
}

// ArenaUsed returns the number of arena bytes handed out so far.
func (m *Memory) ArenaUsed() uint32 {
	m.RLock()
	defer m.RUnlock()

	return m.next - m.arenaBase
}
