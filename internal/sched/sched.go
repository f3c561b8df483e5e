// Package sched implements the cooperative round-robin task scheduler.
//
// The scheduler is a state machine over a fixed pool of task slots. It never
// transfers control itself: operations that give up the processor return a
// [schema.Outcome] of kind [schema.Switch] carrying the interrupt-return
// frame to enter, or [schema.Halt] when nothing is left to run. Applying the
// outcome is the interrupt layer's job.
package sched

import (
	"fmt"
	"log/slog"

	"github.com/desertwitch/flatkern/internal/schema"
)

const (
	// DefaultTasks is the default size of the task pool.
	DefaultTasks = 4

	// DefaultStackSize is the default per-task stack size in bytes.
	DefaultStackSize = 4096

	// DefaultStackBase is the default address of the first task stack.
	DefaultStackBase uint32 = 0x00200000

	haltNoTasks = "no tasks left"
)

// Options configure a [Scheduler].
type Options struct {
	Tasks     int
	StackSize int
	StackBase uint32
}

// DefaultOptions returns the compatibility pool geometry.
func DefaultOptions() Options {
	return Options{
		Tasks:     DefaultTasks,
		StackSize: DefaultStackSize,
		StackBase: DefaultStackBase,
	}
}

// Task is one slot of the task pool.
type Task struct {
	ID     int
	Entry  uint32
	Active bool
	Stack  []byte

	// Saved is the register snapshot taken when the task last trapped into
	// the kernel.
	Saved    schema.Registers
	HasSaved bool
}

// StackTop returns the initial stack pointer of the task.
func (t *Task) StackTop(base uint32) uint32 {
	size := uint32(len(t.Stack)) //nolint:gosec

	return base + uint32(t.ID+1)*size //nolint:gosec
}

// Status is a point-in-time copy of a task slot.
type Status struct {
	ID      int
	Entry   uint32
	Active  bool
	Current bool
	Saved   schema.Registers
}

// Scheduler owns the task pool and the index of the current task.
type Scheduler struct {
	tasks   []Task
	current int
	base    uint32
}

// NewScheduler returns a pointer to a new [Scheduler] with all slots
// inactive.
func NewScheduler(opts Options) *Scheduler {
	s := &Scheduler{
		tasks: make([]Task, max(opts.Tasks, 1)),
		base:  opts.StackBase,
	}

	for i := range s.tasks {
		s.tasks[i] = Task{
			ID:    i,
			Stack: make([]byte, max(opts.StackSize, 16)),
		}
	}

	return s
}

// Create claims the first inactive slot for a task starting at entry. Its
// stack is zeroed.
func (s *Scheduler) Create(entry uint32) (int, error) {
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Active {
			continue
		}

		clear(t.Stack)
		t.Entry = entry
		t.Active = true
		t.Saved = schema.Registers{}
		t.HasSaved = false

		slog.Info("Task created",
			"task", i,
			"entry", fmt.Sprintf("%#x", entry),
		)

		return i, nil
	}

	return -1, ErrNoFreeTask
}

// Current returns the index of the current task.
func (s *Scheduler) Current() int {
	return s.current
}

// Task returns a copy of a task slot.
func (s *Scheduler) Task(id int) (Task, error) {
	if !s.valid(id) {
		return Task{}, fmt.Errorf("(sched) %d: %w", id, ErrInvalidTask)
	}

	return s.tasks[id], nil
}

// Start makes an active task current and returns the transition that
// enters it. It is used for the first entry from the kernel.
func (s *Scheduler) Start(id int) (schema.Outcome, error) {
	if !s.valid(id) {
		return schema.Outcome{}, fmt.Errorf("(sched-start) %d: %w", id, ErrInvalidTask)
	}

	if !s.tasks[id].Active {
		return schema.Outcome{}, fmt.Errorf("(sched-start) %d: %w", id, ErrInactiveTask)
	}

	s.current = id

	return s.enter(id), nil
}

// Yield picks the next active task after the current one, wrapping around
// the pool. The current task itself is picked last, which re-enters it at
// its entry point. Without any active task the result is a halt.
func (s *Scheduler) Yield() schema.Outcome {
	n := len(s.tasks)

	for i := 1; i <= n; i++ {
		next := (s.current + i) % n
		if s.tasks[next].Active {
			s.current = next

			return s.enter(next)
		}
	}

	slog.Info("No tasks left. Halting.")

	return schema.HaltOutcome(haltNoTasks)
}

// Kill deactivates a task. Killing the current task yields to a successor;
// otherwise the caller resumes.
func (s *Scheduler) Kill(id int) (schema.Outcome, error) {
	if !s.valid(id) {
		return schema.ResumeOutcome(), fmt.Errorf("(sched-kill) %d: %w", id, ErrInvalidTask)
	}

	s.tasks[id].Active = false

	slog.Info("Task killed", "task", id)

	if id == s.current {
		return s.Yield(), nil
	}

	return schema.ResumeOutcome(), nil
}

// Exit kills the current task.
func (s *Scheduler) Exit() schema.Outcome {
	outcome, _ := s.Kill(s.current)

	return outcome
}

// Capture stores the register snapshot of the current task at trap entry.
func (s *Scheduler) Capture(regs schema.Registers) {
	if !s.valid(s.current) {
		return
	}

	s.tasks[s.current].Saved = regs
	s.tasks[s.current].HasSaved = true
}

// Snapshot returns the state of all task slots.
func (s *Scheduler) Snapshot() []Status {
	out := make([]Status, len(s.tasks))

	for i, t := range s.tasks {
		out[i] = Status{
			ID:      t.ID,
			Entry:   t.Entry,
			Active:  t.Active,
			Current: i == s.current,
			Saved:   t.Saved,
		}
	}

	return out
}

// enter builds the privilege transition into a task: user segment
// selectors, the top of its private stack and its entry point.
func (s *Scheduler) enter(id int) schema.Outcome {
	t := &s.tasks[id]

	frame := schema.IRetFrame{
		SS:     schema.UserDataSelector,
		ESP:    t.StackTop(s.base),
		EFlags: schema.FlagsReserved | schema.FlagsInterruptEnable,
		CS:     schema.UserCodeSelector,
		EIP:    t.Entry,
	}

	slog.Debug("Switching to task", "task", id, "frame", frame)

	return schema.Outcome{Kind: schema.Switch, Task: id, Frame: frame}
}

func (s *Scheduler) valid(id int) bool {
	return id >= 0 && id < len(s.tasks)
}
