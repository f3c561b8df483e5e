package main

import (
	"context"
	"log/slog"
	"os"
	"runtime/pprof"
)

// CPUProfiler writes a CPU profile of the kernel run to a file until it is
// stopped.
//
//nolint:containedctx
type CPUProfiler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// NewCPUProfiler starts profiling into path. An empty path disables the
// profiler, but [CPUProfiler.Stop] must still be called.
func NewCPUProfiler(ctx context.Context, path string) *CPUProfiler {
	cprof := &CPUProfiler{doneChan: make(chan struct{})}
	cprof.ctx, cprof.cancel = context.WithCancel(ctx)

	ready := make(chan struct{})
	go cprof.profile(path, ready)
	<-ready

	return cprof
}

func (cprof *CPUProfiler) profile(path string, ready chan<- struct{}) {
	defer close(cprof.doneChan)

	if path == "" {
		close(ready)

		return
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Error("Could not create cpu profile", "path", path, "err", err)
		close(ready)

		return
	}
	defer f.Close()

	err = pprof.StartCPUProfile(f)
	close(ready)

	if err != nil {
		slog.Error("Could not start cpu profile", "err", err)

		return
	}
	defer pprof.StopCPUProfile()

	<-cprof.ctx.Done()
}

// Stop ends profiling and waits for the profile to be written.
func (cprof *CPUProfiler) Stop() {
	cprof.cancel()
	<-cprof.doneChan
}
