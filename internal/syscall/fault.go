package syscall

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/desertwitch/flatkern/internal/schema"
)

// Exception vectors reported by [Dispatcher.Fault].
const (
	VectorGeneralProtection = 13
	VectorPageFault         = 14
)

// Fault reports a processor exception raised by the current task and halts
// the machine. Faults are never recovered.
func (d *Dispatcher) Fault(_ context.Context, regs *schema.Registers) schema.Outcome {
	d.Lock()
	defer d.Unlock()

	d.TaskOps.Capture(*regs)

	var reason string

	switch regs.IntNo {
	case VectorPageFault:
		reason = fmt.Sprintf("unhandled page fault at %#x", regs.CR2)
	case VectorGeneralProtection:
		reason = "unhandled general protection fault"
	default:
		reason = fmt.Sprintf("unhandled exception %d", regs.IntNo)
	}

	slog.Error("Task faulted, halting",
		"task", d.TaskOps.Current(),
		"vector", regs.IntNo,
		"errCode", fmt.Sprintf("%#x", regs.ErrCode),
		"cr2", fmt.Sprintf("%#x", regs.CR2),
		"eip", fmt.Sprintf("%#x", regs.EIP),
	)

	return schema.HaltOutcome(reason)
}
