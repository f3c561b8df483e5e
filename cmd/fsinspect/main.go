// Command fsinspect prints the superblock and file table of a flatkern disk
// image without modifying it.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/desertwitch/flatkern/internal/ata"
	"github.com/desertwitch/flatkern/internal/schema"
	"github.com/desertwitch/flatkern/internal/simdisk"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/lmittmann/tint"
)

//nolint:gochecknoglobals
var (
	digests   = flag.Bool("digests", false, "hash the content of every file")
	wholeHash = flag.Bool("image-digest", false, "hash the complete image")
	debug     = flag.Bool("debug", false, "log at debug level")
)

func setupLogging() {
	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func run(path string) error {
	osProvider := &schema.OS{}

	info, err := osProvider.Stat(path)
	if err != nil {
		return fmt.Errorf("(fsinspect) %w", err)
	}

	if !info.Mode().IsRegular() || info.Size() < simdisk.SectorSize {
		return fmt.Errorf("(fsinspect) %s: %w", path, ErrNotAnImage)
	}

	sectors := int(info.Size() / simdisk.SectorSize)

	img, err := simdisk.OpenFileImage(path, sectors, osProvider, &schema.Unix{})
	if err != nil {
		return fmt.Errorf("(fsinspect) %w", err)
	}
	defer img.Close()

	disk := ata.NewHandler(simdisk.NewController(img, simdisk.Options{}), ata.DefaultOptions())

	fs, err := storage.NewHandler(readOnlyDevice{SectorOps: disk}, storage.DefaultOptions())
	if err != nil {
		return fmt.Errorf("(fsinspect) %w", err)
	}

	if err := fs.Load(); err != nil {
		return fmt.Errorf("(fsinspect) %w", err)
	}

	if *wholeHash {
		sum, err := imageDigest(img)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Image BLAKE3: %s\n", sum)
	}

	return render(os.Stdout, fs, *digests)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <image>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	setupLogging()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2) //nolint:mnd
	}

	if err := run(flag.Arg(0)); err != nil {
		slog.Error("Failed to inspect image.", "err", err)
		os.Exit(1)
	}
}
