package sched

import "errors"

var (
	// ErrNoFreeTask is returned when every task slot is active.
	ErrNoFreeTask = errors.New("no free task slot")

	// ErrInvalidTask is returned for task identifiers outside of the pool.
	ErrInvalidTask = errors.New("invalid task id")

	// ErrInactiveTask is returned when starting a task that is not active.
	ErrInactiveTask = errors.New("task is not active")
)
