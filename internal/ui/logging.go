package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

const logBufferSize = 1000

// LogMsg is a regular string containing a log message. It is typed for
// identification as [tea.Msg] within a [tea.Program].
type LogMsg string

type messageSender interface {
	Send(msg tea.Msg)
}

// TeaLogWriter is an implementation of an [io.Writer], for use inside a
// [slog.Handler], that sends any logs to a [tea.Program] as [tea.Msg].
// Write never blocks; lines are dropped and counted once the buffer is full.
type TeaLogWriter struct {
	program  messageSender
	doneChan chan struct{}
	logChan  chan LogMsg
	dropped  atomic.Int64
}

// NewTeaLogWriter returns a pointer to a new [TeaLogWriter]. It also starts the
// internal log processing function, which should eventually be stopped e.g.
// with a deferred [TeaLogWriter.Stop] call.
func NewTeaLogWriter(program messageSender) *TeaLogWriter {
	wr := &TeaLogWriter{
		program:  program,
		doneChan: make(chan struct{}),
		logChan:  make(chan LogMsg, logBufferSize),
	}

	go wr.processLogs()

	return wr
}

// Stop destroys the [TeaLogWriter] and stops any log message processing.
// Late logs are discarded after calling this method.
func (wr *TeaLogWriter) Stop() {
	close(wr.doneChan)
}

// Dropped returns the number of log lines discarded because the buffer was
// full.
func (wr *TeaLogWriter) Dropped() int64 {
	return wr.dropped.Load()
}

func (wr *TeaLogWriter) processLogs() {
	for {
		select {
		case <-wr.doneChan:
			return
		case msg := <-wr.logChan:
			wr.program.Send(msg)
		}
	}
}

// Write receives a log line from e.g. a [slog.Handler] and queues it for the
// [tea.Program].
func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	select {
	case <-wr.doneChan:
	case wr.logChan <- LogMsg(p):
	default:
		wr.dropped.Add(1)
	}

	return len(p), nil
}
