package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/desertwitch/flatkern/internal/ata"
	"github.com/desertwitch/flatkern/internal/configuration"
	"github.com/desertwitch/flatkern/internal/gate"
	"github.com/desertwitch/flatkern/internal/keyboard"
	"github.com/desertwitch/flatkern/internal/machine"
	"github.com/desertwitch/flatkern/internal/pipe"
	"github.com/desertwitch/flatkern/internal/sched"
	"github.com/desertwitch/flatkern/internal/simdisk"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/desertwitch/flatkern/internal/syscall"
	"github.com/desertwitch/flatkern/internal/ui"
)

const (
	keyboardBuffer = 64
	keyboardWait   = 10 * time.Millisecond
)

// Kernel wires the subsystems of the simulated machine together.
type Kernel struct {
	ctrl       *simdisk.Controller
	fs         *storage.Handler
	pipes      *pipe.Pool
	tasks      *sched.Scheduler
	dispatcher *syscall.Dispatcher
	machine    *machine.Machine

	Keyboard *machine.KeyboardPort
}

// NewKernel performs the boot sequence up to the point where the first
// task can be entered: probe the disk, mount or format the filesystem and
// install the interrupt handlers.
func NewKernel(cfg configuration.Config, image simdisk.Image, diskOpts simdisk.Options) (*Kernel, error) {
	ctrl := simdisk.NewController(image, diskOpts)
	disk := ata.NewHandler(ctrl, cfg.ATAOptions())

	info, err := disk.Identify()
	if err != nil {
		return nil, fmt.Errorf("(kernel) %w: %w", ErrNoDisk, err)
	}

	slog.Info("Disk found",
		"model", info.Model,
		"serial", info.Serial,
		"sectors", info.LBA28Blocks,
	)

	fs, err := storage.NewHandler(disk, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("(kernel) %w: %w", ErrNoFilesystem, err)
	}

	if err := fs.FormatIfAbsent(); err != nil {
		return nil, fmt.Errorf("(kernel) %w: %w", ErrNoFilesystem, err)
	}

	fs.LogBlockZero()

	pipes := pipe.NewPool(cfg.PipeOptions())
	tasks := sched.NewScheduler(cfg.SchedOptions())
	io := gate.NewHandler(fs, pipes, cfg.GateOptions())

	m := machine.NewMachine(machine.DefaultOptions())
	kbd := machine.NewKeyboardPort(keyboardBuffer, keyboardWait)

	dispatcher := syscall.NewDispatcher(io, tasks, m.Memory(), keyboard.NewHandler(kbd))

	m.RegisterInterruptHandler(syscall.Vector, dispatcher.Dispatch)
	m.RegisterInterruptHandler(syscall.VectorGeneralProtection, dispatcher.Fault)
	m.RegisterInterruptHandler(syscall.VectorPageFault, dispatcher.Fault)

	m.Load(InitEntry, initProgram)

	return &Kernel{
		ctrl:       ctrl,
		fs:         fs,
		pipes:      pipes,
		tasks:      tasks,
		dispatcher: dispatcher,
		machine:    m,
		Keyboard:   kbd,
	}, nil
}

// Run creates the init task, enters it and serves the machine until it
// halts or ctx is canceled.
func (k *Kernel) Run(ctx context.Context) error {
	id, err := k.tasks.Create(InitEntry)
	if err != nil {
		return fmt.Errorf("(kernel) failed to create init: %w", err)
	}

	start, err := k.tasks.Start(id)
	if err != nil {
		return fmt.Errorf("(kernel) failed to start init: %w", err)
	}

	slog.Info("Entering init", "task", id, "frame", start.Frame)

	if err := k.machine.Run(ctx, start); err != nil {
		return fmt.Errorf("(kernel) %w", err)
	}

	return nil
}

// HaltReason returns why the machine halted, empty while running.
func (k *Kernel) HaltReason() string {
	return k.machine.HaltReason()
}

// Snapshot implements the monitor's view of the kernel. It reports false
// while a system call is being dispatched.
func (k *Kernel) Snapshot() (ui.Snapshot, bool) {
	var s ui.Snapshot

	ok := k.dispatcher.Inspect(func() {
		s.Tasks = k.tasks.Snapshot()
		s.Storage = k.fs.Snapshot()
		s.Pipes = k.pipes.Snapshot()
	})
	if !ok {
		return s, false
	}

	s.Disk = k.ctrl.Stats()
	s.Machine = k.machine.Stats()
	s.HaltReason = k.machine.HaltReason()

	return s, true
}
