// Command flatkern boots the simulated machine: it mounts (or formats) the
// flat filesystem on a disk image and runs the init program on top of the
// system call layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"

	"github.com/desertwitch/flatkern/internal/configuration"
	"github.com/desertwitch/flatkern/internal/schema"
	"github.com/desertwitch/flatkern/internal/simdisk"
	"github.com/desertwitch/flatkern/internal/ui"
	"github.com/lmittmann/tint"
	"golang.org/x/sys/unix"
)

const (
	stackTraceBufMax = 1 << 24

	handlerConsole = "console"
	handlerSerial  = "serial"
	handlerUI      = "ui"
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	configFile = flag.String("config", configuration.DefaultFile, "configuration file")
	diskImage  = flag.String("disk", "", "disk image (overrides "+configuration.KeyDiskImage+"; empty for an in-memory disk)")
	uiEnabled  = flag.Bool("ui", false, "show the machine monitor")
	debug      = flag.Bool("debug", false, "log at debug level")
	typeKeys   = flag.String("type", "", "text queued on the keyboard before boot")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func logLevel() slog.Level {
	if *debug {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

func consoleHandler(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      logLevel(),
		TimeFormat: time.Kitchen,
	})
}

// setupSerial opens the serial log, which receives every record at debug
// level without colors.
func setupSerial(logs *SlogManager, path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("(main) failed to open serial log: %w", err)
	}

	logs.AddHandler(handlerSerial, tint.NewHandler(f, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}))

	return func() {
		logs.RemoveHandler(handlerSerial)
		f.Close()
	}, nil
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, unix.SIGTERM, unix.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, unix.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func openImage(cfg configuration.Config) (simdisk.Image, error) {
	sectors := int(cfg.TotalBlocks)

	if cfg.DiskImage == "" {
		slog.Info("Using in-memory disk", "sectors", sectors)

		return simdisk.NewMemImage(sectors), nil
	}

	img, err := simdisk.OpenFileImage(cfg.DiskImage, sectors, &schema.OS{}, &schema.Unix{})
	if err != nil {
		return nil, fmt.Errorf("(main) %w", err)
	}

	slog.Info("Using disk image", "path", cfg.DiskImage, "bytes", img.Size())

	return img, nil
}

// startUI runs the monitor, which replaces the console log until it exits.
func startUI(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, logs *SlogManager, kernel *Kernel) {
	uiHandler := ui.NewHandler(ctx, cancel, kernel)

	logs.RemoveHandler(handlerConsole)
	logs.AddHandler(handlerUI, tint.NewHandler(uiHandler.LogWriter, &tint.Options{
		Level:      logLevel(),
		TimeFormat: time.Kitchen,
	}))

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			logs.RemoveHandler(handlerUI)
			logs.AddHandler(handlerConsole, consoleHandler(os.Stdout))
		}()

		if err := uiHandler.Launch(); err != nil {
			slog.Error("UI failure: falling back to terminal.", "err", err)
		}
	}()

	ticker := time.NewTicker(10 * time.Millisecond) //nolint:mnd
	defer ticker.Stop()

	for !uiHandler.Ready.Load() && !uiHandler.Failed.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	flag.Parse()

	logs := NewSlogManager()
	logs.AddHandler(handlerConsole, consoleHandler(os.Stdout))
	slog.SetDefault(slog.New(logs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandlers(cancel)

	cpuProfiler := NewCPUProfiler(ctx, *cpuprofile)
	defer cpuProfiler.Stop()

	cfg, err := configuration.NewHandler(&configuration.GodotenvProvider{}).Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration.", "file", *configFile, "err", err)
		ExitCode = 1

		return
	}

	if *diskImage != "" {
		cfg.DiskImage = *diskImage
	}

	closeSerial, err := setupSerial(logs, cfg.SerialLog)
	if err != nil {
		slog.Error("Failed to set up serial log.", "err", err)
		ExitCode = 1

		return
	}
	defer closeSerial()

	slog.Info("flatkern booting", "version", Version)

	image, err := openImage(cfg)
	if err != nil {
		slog.Error("Failed to open disk image.", "err", err)
		ExitCode = 1

		return
	}
	defer func() {
		if err := image.Sync(); err != nil {
			slog.Warn("Failed to sync disk image.", "err", err)
		}
		image.Close()
	}()

	kernel, err := NewKernel(cfg, image, simdisk.Options{})
	if err != nil {
		slog.Error("Kernel boot failed, halting.", "err", err)
		ExitCode = 1

		return
	}

	if *typeKeys != "" {
		if err := kernel.Keyboard.Type(*typeKeys); err != nil {
			slog.Warn("Failed to queue keyboard input.", "err", err)
		}
	}

	var wg sync.WaitGroup

	if *uiEnabled {
		startUI(ctx, cancel, &wg, logs, kernel)
	}

	if err := kernel.Run(ctx); err != nil {
		slog.Error("Kernel stopped.", "err", err)
		ExitCode = 1
	} else {
		slog.Info("Kernel halted.", "reason", kernel.HaltReason())
	}

	wg.Wait()
}
