// Package syscall implements the system call dispatcher behind the
// software interrupt gate. It decodes the trapped registers, calls into the
// I/O gate, the scheduler or the keyboard and writes the result back into
// the trapped accumulator.
package syscall

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/desertwitch/flatkern/internal/schema"
	"github.com/desertwitch/flatkern/internal/storage"
)

type ioProvider interface {
	Write(name string, data []byte, perms storage.Perm) error
	Read(name string, maxLen uint32) ([]byte, error)
	Unlink(name string) error
	Rename(oldName, newName string) error
	Truncate(name string, length int64) error
	Chmod(name string, perms storage.Perm) error
	Pipe() (readID int, writeID int, err error)
	Close(id int) error
}

type taskProvider interface {
	Current() int
	Capture(regs schema.Registers)
	Exit() schema.Outcome
	Yield() schema.Outcome
	Kill(id int) (schema.Outcome, error)
}

type memoryProvider interface {
	Check(addr uint32, n uint32) error
	CString(addr uint32, limit int) (string, error)
	ReadBytes(addr uint32, n uint32) ([]byte, error)
	WriteBytes(addr uint32, data []byte) error
}

type keyboardProvider interface {
	GetChar(ctx context.Context) (byte, error)
}

// Dispatcher is the principal implementation of the system call layer.
//
// Dispatch is serialized by the embedded mutex: the file table, the pipe
// pool and the task pool are only ever touched by one dispatch at a time.
type Dispatcher struct {
	sync.Mutex
	IOOps       ioProvider
	TaskOps     taskProvider
	MemoryOps   memoryProvider
	KeyboardOps keyboardProvider
}

// NewDispatcher returns a pointer to a new [Dispatcher].
func NewDispatcher(ioOps ioProvider, taskOps taskProvider, memOps memoryProvider, kbdOps keyboardProvider) *Dispatcher {
	return &Dispatcher{
		IOOps:       ioOps,
		TaskOps:     taskOps,
		MemoryOps:   memOps,
		KeyboardOps: kbdOps,
	}
}

// Dispatch handles one trapped system call. The calling task's registers
// are captured before anything else runs. The result is stored in EAX of
// regs and the returned outcome tells the interrupt layer how to continue.
// Only getchar waits on ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, regs *schema.Registers) schema.Outcome {
	d.Lock()
	defer d.Unlock()

	d.TaskOps.Capture(*regs)

	code := Code(regs.EAX)

	slog.Debug("Syscall",
		"task", d.TaskOps.Current(),
		"code", code,
		"ebx", regs.EBX,
		"ecx", regs.ECX,
		"edx", regs.EDX,
	)

	switch code {
	case SysExit:
		regs.SetResult(ResultOK)

		return d.TaskOps.Exit()

	case SysWrite:
		regs.SetResult(d.write(regs.EBX, regs.ECX, regs.EDX))

	case SysRead:
		regs.SetResult(d.read(regs.EBX, regs.ECX, regs.EDX))

	case SysUnlink:
		regs.SetResult(d.withName(regs.EBX, d.IOOps.Unlink))

	case SysRename:
		regs.SetResult(d.rename(regs.EBX, regs.ECX))

	case SysTruncate:
		length := int64(int32(regs.ECX)) //nolint:gosec
		regs.SetResult(d.withName(regs.EBX, func(name string) error {
			return d.IOOps.Truncate(name, length)
		}))

	case SysChmod:
		perms := storage.Perm(regs.ECX & 0xFF) //nolint:gosec
		regs.SetResult(d.withName(regs.EBX, func(name string) error {
			return d.IOOps.Chmod(name, perms)
		}))

	case SysPipe:
		regs.SetResult(d.pipe(regs.EBX))

	case SysYield:
		regs.SetResult(ResultOK)

		return d.TaskOps.Yield()

	case SysGetChar:
		c, err := d.KeyboardOps.GetChar(ctx)
		if err != nil {
			slog.Warn("Failed to read from keyboard", "err", err)
			regs.SetResult(ResultFailed)

			break
		}
		regs.SetResult(int32(c))

	case SysKill:
		outcome, err := d.TaskOps.Kill(int(int32(regs.EBX))) //nolint:gosec
		if err != nil {
			slog.Warn("Failed to kill task", "err", err)
			regs.SetResult(ResultFailed)

			return schema.ResumeOutcome()
		}
		regs.SetResult(ResultOK)

		return outcome

	case SysClose:
		regs.SetResult(statusResult(d.IOOps.Close(int(int32(regs.EBX))))) //nolint:gosec

	default:
		slog.Warn("Unknown syscall", "code", code, "task", d.TaskOps.Current())
		regs.SetResult(ResultFailed)
	}

	return schema.ResumeOutcome()
}

// Inspect runs fn while holding the dispatch lock, unless a dispatch is in
// flight. It reports whether fn ran.
func (d *Dispatcher) Inspect(fn func()) bool {
	if !d.TryLock() {
		return false
	}
	defer d.Unlock()

	fn()

	return true
}

func (d *Dispatcher) name(addr uint32) (string, bool) {
	name, err := d.MemoryOps.CString(addr, storage.MaxNameLen)
	if err != nil {
		slog.Warn("Failed to fetch name from task memory",
			"addr", addr,
			"err", err,
		)

		return "", false
	}

	return name, true
}

func (d *Dispatcher) withName(addr uint32, fn func(name string) error) int32 {
	name, ok := d.name(addr)
	if !ok {
		return ResultFailed
	}

	if err := fn(name); err != nil {
		slog.Debug("Syscall failed", "name", name, "err", err)

		return ResultFailed
	}

	return ResultOK
}

func (d *Dispatcher) write(nameAddr, dataAddr, size uint32) int32 {
	name, ok := d.name(nameAddr)
	if !ok {
		return ResultFailed
	}

	data, err := d.MemoryOps.ReadBytes(dataAddr, size)
	if err != nil {
		slog.Warn("Failed to fetch write data from task memory",
			"addr", dataAddr,
			"size", size,
			"err", err,
		)

		return ResultFailed
	}

	if err := d.IOOps.Write(name, data, storage.DefaultPerms); err != nil {
		slog.Debug("Write failed", "name", name, "err", err)

		return writeResult(err)
	}

	return ResultOK
}

func (d *Dispatcher) read(nameAddr, bufAddr, maxLen uint32) int32 {
	name, ok := d.name(nameAddr)
	if !ok {
		return ResultFailed
	}

	if err := d.MemoryOps.Check(bufAddr, maxLen); err != nil {
		slog.Warn("Read buffer outside task memory",
			"addr", bufAddr,
			"size", maxLen,
			"err", err,
		)

		return ResultFailed
	}

	data, readErr := d.IOOps.Read(name, maxLen)

	if len(data) > 0 {
		if err := d.MemoryOps.WriteBytes(bufAddr, data); err != nil {
			slog.Warn("Failed to copy read data to task memory",
				"addr", bufAddr,
				"size", len(data),
				"err", err,
			)

			return ResultFailed
		}
	}

	if readErr != nil {
		slog.Debug("Read failed", "name", name, "err", readErr)

		return readResult(readErr)
	}

	return int32(len(data)) //nolint:gosec
}

func (d *Dispatcher) rename(oldAddr, newAddr uint32) int32 {
	oldName, ok := d.name(oldAddr)
	if !ok {
		return ResultFailed
	}

	newName, ok := d.name(newAddr)
	if !ok {
		return ResultFailed
	}

	if err := d.IOOps.Rename(oldName, newName); err != nil {
		slog.Debug("Rename failed", "from", oldName, "to", newName, "err", err)

		return ResultFailed
	}

	return ResultOK
}

func (d *Dispatcher) pipe(outAddr uint32) int32 {
	readID, writeID, err := d.IOOps.Pipe()
	if err != nil {
		slog.Debug("Pipe failed", "err", err)

		return ResultFailed
	}

	var out [8]byte
	binary.LittleEndian.PutUint32(out[0:], uint32(readID))  //nolint:gosec
	binary.LittleEndian.PutUint32(out[4:], uint32(writeID)) //nolint:gosec

	if err := d.MemoryOps.WriteBytes(outAddr, out[:]); err != nil {
		slog.Warn("Failed to copy pipe identifiers to task memory",
			"addr", outAddr,
			"err", err,
		)
		_ = d.IOOps.Close(readID)
		_ = d.IOOps.Close(writeID)

		return ResultFailed
	}

	return ResultOK
}
