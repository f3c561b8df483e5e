// Package pipe implements the kernel's fixed pool of in-memory byte pipes.
//
// Every pipe is a ring buffer with a read and a write endpoint. Endpoints
// are named by integer identifiers: the read end of slot i is FirstID+2*i,
// its write end is one above. Reads and writes never block.
package pipe

import (
	"fmt"
	"log/slog"
	"sync"
)

const (
	// FirstID is the identifier of the read end of the first slot.
	FirstID = 1000

	// DefaultPipes is the default size of the pool.
	DefaultPipes = 8

	// DefaultCapacity is the default ring buffer size in bytes.
	DefaultCapacity = 512
)

// Options configure a [Pool].
type Options struct {
	Pipes    int
	Capacity int
}

// DefaultOptions returns the compatibility pool geometry.
func DefaultOptions() Options {
	return Options{
		Pipes:    DefaultPipes,
		Capacity: DefaultCapacity,
	}
}

type slot struct {
	buf       []byte
	head      int
	tail      int
	used      int
	readable  bool
	writable  bool
	readOpen  bool
	writeOpen bool
	refCount  int
	created   bool
}

// Status is a point-in-time copy of a single pipe's state.
type Status struct {
	ReadID   int
	WriteID  int
	Used     int
	Capacity int
	Readable bool
	Writable bool
	RefCount int
}

// Pool is the fixed-size table of pipes.
type Pool struct {
	sync.RWMutex
	slots []slot
	cap   int
}

// NewPool returns a pointer to a new [Pool].
func NewPool(opts Options) *Pool {
	return &Pool{
		slots: make([]slot, max(opts.Pipes, 0)),
		cap:   max(opts.Capacity, 1),
	}
}

// IsID reports whether id falls into the identifier space of the pool.
func (p *Pool) IsID(id int) bool {
	return id >= FirstID && id < FirstID+2*len(p.slots)
}

// Create claims the first slot without open endpoints and returns its read
// and write identifiers.
func (p *Pool) Create() (readID int, writeID int, err error) {
	p.Lock()
	defer p.Unlock()

	for i := range p.slots {
		s := &p.slots[i]
		if s.refCount != 0 {
			continue
		}

		if s.buf == nil {
			s.buf = make([]byte, p.cap)
		}

		s.head, s.tail, s.used = 0, 0, 0
		s.readable, s.writable = true, true
		s.readOpen, s.writeOpen = true, true
		s.refCount = 2
		s.created = true

		readID = FirstID + 2*i
		writeID = readID + 1

		slog.Debug("Created pipe", "readID", readID, "writeID", writeID)

		return readID, writeID, nil
	}

	return 0, 0, ErrNoSpace
}

// lookup resolves id to a created slot, requiring the given endpoint kind.
func (p *Pool) lookup(id int, wantWrite bool) (*slot, error) {
	if !p.IsID(id) {
		return nil, fmt.Errorf("(pipe) %d: %w", id, ErrNotFound)
	}

	isWrite := (id-FirstID)%2 == 1
	s := &p.slots[(id-FirstID)/2]

	if !s.created || isWrite != wantWrite {
		return nil, fmt.Errorf("(pipe) %d: %w", id, ErrNotFound)
	}

	return s, nil
}

// Write appends data to the pipe behind a write identifier. The write is
// all-or-nothing: when data does not fit, nothing is written.
func (p *Pool) Write(id int, data []byte) error {
	p.Lock()
	defer p.Unlock()

	s, err := p.lookup(id, true)
	if err != nil {
		return err
	}

	if !s.writable || !s.readOpen || s.refCount == 0 {
		return fmt.Errorf("(pipe-write) %d: %w", id, ErrClosed)
	}

	if len(data) > len(s.buf)-s.used {
		return fmt.Errorf("(pipe-write) %d: %d bytes, %d free: %w", id, len(data), len(s.buf)-s.used, ErrFull)
	}

	for _, b := range data {
		s.buf[s.tail] = b
		s.tail = (s.tail + 1) % len(s.buf)
	}
	s.used += len(data)

	return nil
}

// Read removes up to maxLen bytes from the pipe behind a read identifier.
// An empty pipe yields zero bytes. Once the pipe is drained and its write
// end is closed, the read end stops being readable.
func (p *Pool) Read(id int, maxLen int) ([]byte, error) {
	p.Lock()
	defer p.Unlock()

	s, err := p.lookup(id, false)
	if err != nil {
		return nil, err
	}

	if !s.readable || s.refCount == 0 {
		return nil, fmt.Errorf("(pipe-read) %d: %w", id, ErrClosed)
	}

	n := min(s.used, max(maxLen, 0))
	out := make([]byte, n)

	for i := range out {
		out[i] = s.buf[s.head]
		s.head = (s.head + 1) % len(s.buf)
	}
	s.used -= n

	if s.used == 0 && !s.writable {
		s.readable = false
	}

	return out, nil
}

// Close releases one endpoint. A slot becomes reusable once both of its
// endpoints are closed. Closing the read end makes further writes fail;
// closing the write end lets the reader drain what is buffered.
func (p *Pool) Close(id int) error {
	p.Lock()
	defer p.Unlock()

	if !p.IsID(id) {
		return fmt.Errorf("(pipe-close) %d: %w", id, ErrNotFound)
	}

	isWrite := (id-FirstID)%2 == 1

	s, err := p.lookup(id, isWrite)
	if err != nil {
		return err
	}

	if isWrite {
		if !s.writeOpen {
			return fmt.Errorf("(pipe-close) %d: %w", id, ErrClosed)
		}
		s.writeOpen = false
		s.writable = false
	} else {
		if !s.readOpen {
			return fmt.Errorf("(pipe-close) %d: %w", id, ErrClosed)
		}
		s.readOpen = false
		s.readable = false
	}

	s.refCount--

	slog.Debug("Closed pipe endpoint", "id", id, "refCount", s.refCount)

	return nil
}

// Snapshot returns the state of every pipe that was ever created.
func (p *Pool) Snapshot() []Status {
	p.RLock()
	defer p.RUnlock()

	var out []Status

	for i, s := range p.slots {
		if !s.created {
			continue
		}
		out = append(out, Status{
			ReadID:   FirstID + 2*i,
			WriteID:  FirstID + 2*i + 1,
			Used:     s.used,
			Capacity: len(s.buf),
			Readable: s.readable,
			Writable: s.writable,
			RefCount: s.refCount,
		})
	}

	return out
}
