package syscall

import (
	"errors"
	"fmt"

	"github.com/desertwitch/flatkern/internal/gate"
	"github.com/desertwitch/flatkern/internal/pipe"
	"github.com/desertwitch/flatkern/internal/storage"
)

// Vector is the software interrupt used for system calls.
const Vector = 0x80

// Code is a system call number, passed in EAX.
type Code uint32

// System call numbers.
const (
	SysExit     Code = 1
	SysWrite    Code = 2
	SysRead     Code = 3
	SysUnlink   Code = 4
	SysRename   Code = 5
	SysTruncate Code = 6
	SysChmod    Code = 7
	SysPipe     Code = 8
	SysYield    Code = 9
	SysGetChar  Code = 10
	SysKill     Code = 11
	SysClose    Code = 12
)

var codeNames = map[Code]string{
	SysExit:     "exit",
	SysWrite:    "write",
	SysRead:     "read",
	SysUnlink:   "unlink",
	SysRename:   "rename",
	SysTruncate: "truncate",
	SysChmod:    "chmod",
	SysPipe:     "pipe",
	SysYield:    "sched_yield",
	SysGetChar:  "getchar",
	SysKill:     "kill",
	SysClose:    "close",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return fmt.Sprintf("unknown(%d)", uint32(c))
}

// Result codes returned to tasks in EAX.
const (
	ResultOK     int32 = 0
	ResultFailed int32 = -1

	WritePipeNotFound int32 = -2
	WritePipeFull     int32 = -3
	WriteNoFreeSlot   int32 = -4
	WriteDevice       int32 = -5
	WriteNoSpace      int32 = -6

	ReadNotFound     int32 = -1
	ReadDevice       int32 = -2
	ReadPipeClosed   int32 = -5
	ReadPipeNotFound int32 = -6
)

func isDeviceError(err error) bool {
	return errors.Is(err, storage.ErrWriteBlock) ||
		errors.Is(err, storage.ErrReadBlock) ||
		errors.Is(err, storage.ErrPersistTable) ||
		errors.Is(err, storage.ErrPersistSuperblock)
}

// writeResult maps an error of [gate.Handler.Write] to its result code.
func writeResult(err error) int32 {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, pipe.ErrNotFound):
		return WritePipeNotFound
	case errors.Is(err, pipe.ErrFull):
		return WritePipeFull
	case errors.Is(err, storage.ErrNoFreeSlot):
		return WriteNoFreeSlot
	case isDeviceError(err):
		return WriteDevice
	case errors.Is(err, storage.ErrNoSpace):
		return WriteNoSpace
	default:
		return ResultFailed
	}
}

// readResult maps an error of [gate.Handler.Read] to its result code.
func readResult(err error) int32 {
	switch {
	case errors.Is(err, gate.ErrNotFound):
		return ReadNotFound
	case isDeviceError(err):
		return ReadDevice
	case errors.Is(err, pipe.ErrClosed):
		return ReadPipeClosed
	case errors.Is(err, pipe.ErrNotFound):
		return ReadPipeNotFound
	default:
		return ResultFailed
	}
}

// statusResult maps the errors of all other calls to 0 or -1.
func statusResult(err error) int32 {
	if err != nil {
		return ResultFailed
	}

	return ResultOK
}
