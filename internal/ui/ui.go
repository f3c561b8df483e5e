// Package ui implements a command-line machine monitor using [tea].
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/flatkern/internal/machine"
	"github.com/desertwitch/flatkern/internal/pipe"
	"github.com/desertwitch/flatkern/internal/sched"
	"github.com/desertwitch/flatkern/internal/simdisk"
	"github.com/desertwitch/flatkern/internal/storage"
)

// Snapshot is a consistent view of the kernel state at one point in time.
type Snapshot struct {
	Tasks      []sched.Status
	Storage    storage.Snapshot
	Pipes      []pipe.Status
	Disk       simdisk.Stats
	Machine    machine.Stats
	HaltReason string
}

type snapshotProvider interface {
	// Snapshot returns the current kernel state, or false when the state
	// is being modified and cannot be read right now.
	Snapshot() (Snapshot, bool)
}

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	source  snapshotProvider
	program *tea.Program

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler].
func NewHandler(ctx context.Context, cancel context.CancelFunc, source snapshotProvider) *Handler {
	handler := &Handler{
		source: source,
	}

	model := NewTeaModel(handler, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}
