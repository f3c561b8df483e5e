package main

import (
	"log/slog"

	"github.com/desertwitch/flatkern/internal/machine"
	"github.com/desertwitch/flatkern/internal/syscall"
)

// InitEntry is the load address of the init program.
const InitEntry uint32 = 0x00400000

const (
	initFile    = "hello"
	initMessage = "Hello, kernel!\n"
	initBuffer  = 12
)

// initProgram is the first user task. It stores a greeting in a file, reads
// it back into a buffer one byte shorter than the file and exits.
func initProgram(c *machine.Context) {
	name := c.CString(initFile)
	msg := c.CString(initMessage)

	if res := c.Syscall(uint32(syscall.SysWrite), name, msg, uint32(len(initMessage))); res != syscall.ResultOK {
		slog.Warn("init: write failed", "file", initFile, "result", res)
	}

	buf := c.Alloc(initBuffer)

	n := c.Syscall(uint32(syscall.SysRead), name, buf, initBuffer-1)
	if n < 0 {
		slog.Warn("init: read failed", "file", initFile, "result", n)
	} else {
		slog.Info("init: read back", "file", initFile, "bytes", n, "data", string(c.Load(buf, uint32(n)))) //nolint:gosec
	}

	c.Syscall(uint32(syscall.SysExit), 0, 0, 0)
}
