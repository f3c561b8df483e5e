package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/desertwitch/flatkern/internal/configuration"
	"github.com/desertwitch/flatkern/internal/simdisk"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() configuration.Config {
	cfg := configuration.Defaults()
	cfg.TotalBlocks = 256
	cfg.FileEntries = 16
	cfg.BusyPolls = 200
	cfg.DataPolls = 200

	return cfg
}

// TestKernel_Success_InitProgram tests a full boot running the init
// program until the machine halts.
func TestKernel_Success_InitProgram(t *testing.T) {
	t.Parallel()

	image := simdisk.NewMemImage(256)

	kernel, err := NewKernel(testConfig(), image, simdisk.Options{})
	require.NoError(t, err)

	require.NoError(t, kernel.Run(t.Context()))
	assert.Equal(t, "no tasks left", kernel.HaltReason())

	entry, found := kernel.fs.Find(initFile)
	require.True(t, found)
	assert.Equal(t, uint32(len(initMessage)), entry.Size)
	assert.Equal(t, storage.DefaultPerms, entry.Permissions)

	content, err := kernel.fs.ReadBlocks(entry.StartBlock, entry.Size)
	require.NoError(t, err)
	assert.Equal(t, initMessage, string(content))

	snapshot, ok := kernel.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int64(3), snapshot.Machine.Traps)
	assert.Equal(t, "no tasks left", snapshot.HaltReason)
	assert.Len(t, snapshot.Storage.Files, 1)
	assert.False(t, snapshot.Tasks[0].Active)
	assert.Positive(t, snapshot.Disk.Writes)
}

// TestKernel_Success_Reboot tests that a second boot mounts the existing
// filesystem and the init program overwrites its file in place.
func TestKernel_Success_Reboot(t *testing.T) {
	t.Parallel()

	image := simdisk.NewMemImage(256)

	for range 2 {
		kernel, err := NewKernel(testConfig(), image, simdisk.Options{})
		require.NoError(t, err)
		require.NoError(t, kernel.Run(t.Context()))

		snapshot, ok := kernel.Snapshot()
		require.True(t, ok)
		require.Len(t, snapshot.Storage.Files, 1)
		assert.Zero(t, snapshot.Storage.Files[0].StartBlock)
	}
}

// TestKernel_Fail_NoDisk tests that a missing drive stops the boot.
func TestKernel_Fail_NoDisk(t *testing.T) {
	t.Parallel()

	_, err := NewKernel(testConfig(), simdisk.NewMemImage(256), simdisk.Options{NoDrive: true})
	require.ErrorIs(t, err, ErrNoDisk)
}

// TestKernel_Fail_Canceled tests that a canceled context stops the run.
func TestKernel_Fail_Canceled(t *testing.T) {
	t.Parallel()

	kernel, err := NewKernel(testConfig(), simdisk.NewMemImage(256), simdisk.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err = kernel.Run(ctx)
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}
}

// TestSlogManager tests fan-out and handler replacement.
func TestSlogManager(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer

	logs := NewSlogManager()
	logs.AddHandler("first", slog.NewTextHandler(&first, nil))
	logs.AddHandler("second", slog.NewTextHandler(&second, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger := slog.New(logs).With("task", 1).WithGroup("io")

	logger.Info("info line", "name", "hello")
	logger.Warn("warn line")

	assert.Contains(t, first.String(), "info line")
	assert.Contains(t, first.String(), "task=1")
	assert.Contains(t, first.String(), "io.name=hello")
	assert.NotContains(t, second.String(), "info line")
	assert.Contains(t, second.String(), "warn line")

	logs.RemoveHandler("first")
	assert.False(t, logs.Enabled(t.Context(), slog.LevelInfo))

	slog.New(logs).Warn("after removal")
	assert.Equal(t, 1, strings.Count(first.String(), "warn line"))
	assert.NotContains(t, first.String(), "after removal")
	assert.Contains(t, second.String(), "after removal")
}
