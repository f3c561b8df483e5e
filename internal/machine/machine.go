// Package machine simulates the single-core processor the kernel runs on.
//
// User programs are Go functions loaded at entry addresses. Entering a task
// starts its program on a fresh goroutine; only that goroutine runs until it
// traps back into the kernel through [Context.Syscall] or a fault. The
// kernel side, every registered interrupt handler, runs on the goroutine
// that called [Machine.Run]. A switch to another task abandons the trapping
// goroutine, so the privilege transition never returns to its caller.
package machine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/desertwitch/flatkern/internal/schema"
)

// Interrupt vectors raised by the machine.
const (
	VectorGeneralProtection = 13
	VectorPageFault         = 14
	VectorSyscall           = 0x80
)

const (
	// DefaultMemorySize is the default size of physical memory.
	DefaultMemorySize = 8 << 20

	// DefaultArenaBase is the default start of the task data arena.
	DefaultArenaBase uint32 = 0x00500000

	// DefaultExitCode is the system call issued when a program returns.
	DefaultExitCode uint32 = 1
)

// InterruptHandler handles one interrupt. It may modify regs, which are
// handed back to the trapping task when the outcome is [schema.Resume].
type InterruptHandler func(ctx context.Context, regs *schema.Registers) schema.Outcome

// Program is the body of a user task.
type Program func(c *Context)

// Options configure a [Machine].
type Options struct {
	MemorySize int
	ArenaBase  uint32
	ExitCode   uint32
}

// DefaultOptions returns the default machine configuration.
func DefaultOptions() Options {
	return Options{
		MemorySize: DefaultMemorySize,
		ArenaBase:  DefaultArenaBase,
		ExitCode:   DefaultExitCode,
	}
}

// Stats are the machine's event counters.
type Stats struct {
	Traps    int64
	Switches int64
	Faults   int64
}

type trap struct {
	regs     schema.Registers
	reply    chan schema.Registers
	abandon  chan struct{}
	returned bool
}

// Machine is the simulated processor.
type Machine struct {
	sync.RWMutex
	opts     Options
	mem      *Memory
	handlers map[uint8]InterruptHandler
	programs map[uint32]Program

	traps   chan *trap
	stopped chan struct{}
	wg      sync.WaitGroup

	haltReason string

	trapCount   atomic.Int64
	switchCount atomic.Int64
	faultCount  atomic.Int64
}

// NewMachine returns a pointer to a new [Machine].
func NewMachine(opts Options) *Machine {
	return &Machine{
		opts:     opts,
		mem:      NewMemory(opts.MemorySize, opts.ArenaBase),
		handlers: make(map[uint8]InterruptHandler),
		programs: make(map[uint32]Program),
		traps:    make(chan *trap),
		stopped:  make(chan struct{}),
	}
}

// Memory returns the physical memory of the machine.
func (m *Machine) Memory() *Memory {
	return m.mem
}

// RegisterInterruptHandler installs h for vector n, replacing any previous
// handler.
func (m *Machine) RegisterInterruptHandler(n uint8, h InterruptHandler) {
	m.Lock()
	defer m.Unlock()

	m.handlers[n] = h
}

// Load places a program at an entry address.
func (m *Machine) Load(entry uint32, p Program) {
	m.Lock()
	defer m.Unlock()

	m.programs[entry] = p
}

// HaltReason returns why the machine halted, empty while running.
func (m *Machine) HaltReason() string {
	m.RLock()
	defer m.RUnlock()

	return m.haltReason
}

// Stats returns a copy of the event counters.
func (m *Machine) Stats() Stats {
	return Stats{
		Traps:    m.trapCount.Load(),
		Switches: m.switchCount.Load(),
		Faults:   m.faultCount.Load(),
	}
}

// Run applies start, normally the entry into the first task, and then
// serves traps until an outcome halts the machine or ctx is canceled. A
// machine runs once.
func (m *Machine) Run(ctx context.Context, start schema.Outcome) error {
	defer m.wg.Wait()
	defer close(m.stopped)

	outcome := start

	var pending *trap

	for {
		switch outcome.Kind {
		case schema.Resume:
			if pending == nil {
				outcome = schema.HaltOutcome(ErrNoTrap.Error())

				continue
			}
			pending.reply <- pending.regs

		case schema.Switch:
			if pending != nil {
				close(pending.abandon)
			}

			if err := m.enter(outcome); err != nil {
				slog.Error("Failed to enter task",
					"task", outcome.Task,
					"frame", outcome.Frame,
					"err", err,
				)
				regs := schema.Registers{
					IntNo:   VectorGeneralProtection,
					EIP:     outcome.Frame.EIP,
					CS:      outcome.Frame.CS,
					EFlags:  outcome.Frame.EFlags,
					UserESP: outcome.Frame.ESP,
					SS:      outcome.Frame.SS,
				}
				m.faultCount.Add(1)
				pending = nil
				outcome = m.interrupt(ctx, &regs)

				continue
			}

		case schema.Halt:
			if pending != nil {
				close(pending.abandon)
			}

			m.Lock()
			m.haltReason = outcome.Reason
			m.Unlock()

			slog.Info("Machine halted", "reason", outcome.Reason)

			return nil
		}

		pending = nil

		select {
		case <-ctx.Done():
			return fmt.Errorf("(machine) %w", ctx.Err())

		case t := <-m.traps:
			if t.returned {
				outcome = schema.HaltOutcome("task returned past its exit")

				continue
			}

			m.trapCount.Add(1)
			pending = t
			outcome = m.interrupt(ctx, &t.regs)
		}
	}
}

func (m *Machine) interrupt(ctx context.Context, regs *schema.Registers) schema.Outcome {
	m.RLock()
	h, ok := m.handlers[uint8(regs.IntNo)] //nolint:gosec
	m.RUnlock()

	if !ok {
		slog.Error("Unhandled interrupt", "vector", regs.IntNo, "eip", fmt.Sprintf("%#x", regs.EIP))

		return schema.HaltOutcome(fmt.Sprintf("unhandled interrupt %d", regs.IntNo))
	}

	return h(ctx, regs)
}

// enter starts the program at the frame's entry point on a new goroutine.
func (m *Machine) enter(outcome schema.Outcome) error {
	m.RLock()
	p, ok := m.programs[outcome.Frame.EIP]
	m.RUnlock()

	if !ok {
		return fmt.Errorf("(machine-enter) %#x: %w", outcome.Frame.EIP, ErrNoProgram)
	}

	c := &Context{
		m:       m,
		task:    outcome.Task,
		frame:   outcome.Frame,
		abandon: make(chan struct{}),
	}

	m.switchCount.Add(1)
	m.wg.Add(1)

	go m.execute(c, p)

	return nil
}

func (m *Machine) execute(c *Context, p Program) {
	defer m.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			m.fault(c, r)
		}
	}()

	p(c)

	c.Syscall(m.opts.ExitCode, 0, 0, 0)
	c.send(&trap{returned: true})
}

// fault raises the exception matching a task panic on the kernel side.
func (m *Machine) fault(c *Context, r any) {
	m.faultCount.Add(1)

	regs := c.registers()

	if pf, ok := r.(pageFault); ok {
		regs.IntNo = VectorPageFault
		regs.ErrCode = pf.errCode()
		regs.CR2 = pf.addr
	} else {
		regs.IntNo = VectorGeneralProtection
		slog.Debug("Task panicked", "task", c.task, "panic", r)
	}

	c.trap(regs)

	c.Syscall(m.opts.ExitCode, 0, 0, 0)
	c.send(&trap{returned: true})
}

// Context is the view of the machine given to a running task.
type Context struct {
	m       *Machine
	task    int
	frame   schema.IRetFrame
	abandon chan struct{}
}

// Task returns the scheduler's identifier of the running task.
func (c *Context) Task() int {
	return c.task
}

// Frame returns the frame the task was entered with.
func (c *Context) Frame() schema.IRetFrame {
	return c.frame
}

// Memory returns the physical memory.
func (c *Context) Memory() *Memory {
	return c.m.mem
}

// Syscall traps into the kernel through the system call vector and returns
// the result left in EAX. It does not return when the kernel switches away
// from the task.
func (c *Context) Syscall(code, ebx, ecx, edx uint32) int32 {
	regs := c.registers()
	regs.IntNo = VectorSyscall
	regs.EAX = code
	regs.EBX = ebx
	regs.ECX = ecx
	regs.EDX = edx

	out := c.trap(regs)

	return out.Result()
}

func (c *Context) registers() schema.Registers {
	return schema.Registers{
		DS:      c.frame.SS,
		ESP:     c.frame.ESP,
		EIP:     c.frame.EIP,
		CS:      c.frame.CS,
		EFlags:  c.frame.EFlags,
		UserESP: c.frame.ESP,
		SS:      c.frame.SS,
	}
}

func (c *Context) trap(regs schema.Registers) schema.Registers {
	t := &trap{
		regs:    regs,
		reply:   make(chan schema.Registers, 1),
		abandon: c.abandon,
	}

	c.send(t)

	select {
	case out := <-t.reply:
		return out
	case <-c.abandon:
	case <-c.m.stopped:
	}

	runtime.Goexit()

	return schema.Registers{}
}

func (c *Context) send(t *trap) {
	select {
	case c.m.traps <- t:
	case <-c.m.stopped:
		runtime.Goexit()
	}
}

// pageFault is raised by accesses outside of physical memory.
type pageFault struct {
	addr  uint32
	write bool
}

func (f pageFault) errCode() uint32 {
	code := uint32(0x4)
	if f.write {
		code |= 0x2
	}

	return code
}

// Load reads n bytes at addr. An access outside of memory faults the task.
func (c *Context) Load(addr uint32, n uint32) []byte {
	b, err := c.m.mem.ReadBytes(addr, n)
	if err != nil {
		panic(pageFault{addr: addr})
	}

	return b
}

// Store writes data at addr. An access outside of memory faults the task.
func (c *Context) Store(addr uint32, data []byte) {
	if err := c.m.mem.WriteBytes(addr, data); err != nil {
		panic(pageFault{addr: addr, write: true})
	}
}

// Alloc reserves n bytes of task data. Running out of arena faults the
// task.
func (c *Context) Alloc(n uint32) uint32 {
	addr, err := c.m.mem.Alloc(n)
	if err != nil {
		panic(err)
	}

	return addr
}

// CString places s in task data and returns its address.
func (c *Context) CString(s string) uint32 {
	addr, err := c.m.mem.AllocCString(s)
	if err != nil {
		panic(err)
	}

	return addr
}
