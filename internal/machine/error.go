package machine

import "errors"

var (
	// ErrOutOfBounds is returned for accesses past the end of memory.
	ErrOutOfBounds = errors.New("address out of bounds")

	// ErrArenaExhausted is returned when the task data arena is full.
	ErrArenaExhausted = errors.New("memory arena exhausted")

	// ErrNoProgram is returned when no program is loaded at an entry point.
	ErrNoProgram = errors.New("no program at entry point")

	// ErrUnknownKey is returned when a character has no scancode.
	ErrUnknownKey = errors.New("no scancode for character")

	// ErrNoTrap is returned when a handler resumes without a trapped task.
	ErrNoTrap = errors.New("resume without a trapped task")
)
