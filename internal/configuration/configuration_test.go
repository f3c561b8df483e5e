package configuration

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertwitch/flatkern/internal/gate"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroken = errors.New("broken reader")

type failingProvider struct{}

func (failingProvider) Read(_ ...string) (map[string]string, error) {
	return nil, errBroken
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// TestLoad_Success_MissingFile tests that a missing file yields the
// defaults.
func TestLoad_Success_MissingFile(t *testing.T) {
	t.Parallel()

	h := NewHandler(&GodotenvProvider{})

	cfg, err := h.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, uint32(4096), cfg.TotalBlocks)
	assert.Equal(t, uint32(1024), cfg.FileEntries)
	assert.Equal(t, 8, cfg.MaxPipes)
	assert.Equal(t, 512, cfg.PipeCapacity)
	assert.Equal(t, 4, cfg.MaxTasks)
	assert.Equal(t, 4096, cfg.StackSize)
	assert.Empty(t, cfg.DiskImage)
}

// TestLoad_Success_AllKeys tests a file that sets every key.
func TestLoad_Success_AllKeys(t *testing.T) {
	t.Parallel()

	path := writeEnv(t, `
# kernel settings
FLATKERN_DISK_IMAGE=/tmp/disk.img
FLATKERN_SERIAL_LOG=/tmp/serial.log
FLATKERN_TOTAL_BLOCKS=2048
FLATKERN_FILE_ENTRIES=64
FLATKERN_MAX_PIPES=2
FLATKERN_PIPE_CAPACITY=128
FLATKERN_MAX_TASKS=3
FLATKERN_STACK_SIZE=8192
FLATKERN_RENAME_MODE=compat
FLATKERN_READ_FAILURE=ZeroFill
FLATKERN_ENFORCE_PERMS=true
FLATKERN_ATA_BSY_POLLS=10
FLATKERN_ATA_DRQ_POLLS=20
`)

	cfg, err := NewHandler(&GodotenvProvider{}).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/disk.img", cfg.DiskImage)
	assert.Equal(t, "/tmp/serial.log", cfg.SerialLog)

	assert.Equal(t, storage.Options{TotalBlocks: 2048, Entries: 64, ReadPolicy: storage.ReadPolicyZeroFill}, cfg.StorageOptions())
	assert.Equal(t, 2, cfg.PipeOptions().Pipes)
	assert.Equal(t, 128, cfg.PipeOptions().Capacity)
	assert.Equal(t, 3, cfg.SchedOptions().Tasks)
	assert.Equal(t, 8192, cfg.SchedOptions().StackSize)
	assert.Equal(t, gate.Options{RenameMode: gate.RenameModeCompat, EnforcePermissions: true}, cfg.GateOptions())
	assert.Equal(t, 10, cfg.ATAOptions().BusyPolls)
	assert.Equal(t, 20, cfg.ATAOptions().DataPolls)
}

// TestLoad_Fail_InvalidValues_Table tests that invalid values are reported
// by key and fall back to the default.
func TestLoad_Fail_InvalidValues_Table(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		line  string
		check func(t *testing.T, cfg Config)
	}{
		{"TotalBlocksText", "FLATKERN_TOTAL_BLOCKS=many", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.Equal(t, uint32(storage.DefaultTotalBlocks), cfg.TotalBlocks)
		}},
		{"TotalBlocksOverflow", "FLATKERN_TOTAL_BLOCKS=99999999999", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.Equal(t, uint32(storage.DefaultTotalBlocks), cfg.TotalBlocks)
		}},
		{"EntriesZero", "FLATKERN_FILE_ENTRIES=0", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.Equal(t, uint32(storage.DefaultEntries), cfg.FileEntries)
		}},
		{"NegativePipes", "FLATKERN_MAX_PIPES=-1", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.Equal(t, 8, cfg.MaxPipes)
		}},
		{"RenameMode", "FLATKERN_RENAME_MODE=partial", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.Equal(t, gate.RenameModeFull, cfg.RenameMode)
		}},
		{"ReadFailure", "FLATKERN_READ_FAILURE=ignore", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.Equal(t, storage.ReadPolicySurface, cfg.ReadFailure)
		}},
		{"EnforcePerms", "FLATKERN_ENFORCE_PERMS=maybe", func(t *testing.T, cfg Config) {
			t.Helper()
			assert.False(t, cfg.EnforcePerms)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := NewHandler(&GodotenvProvider{}).Load(writeEnv(t, tc.line+"\n"))
			require.ErrorIs(t, err, ErrInvalidValue)
			tc.check(t, cfg)
		})
	}
}

// TestLoad_Fail_MultipleErrors tests that all invalid keys are reported.
func TestLoad_Fail_MultipleErrors(t *testing.T) {
	t.Parallel()

	path := writeEnv(t, "FLATKERN_MAX_TASKS=x\nFLATKERN_STACK_SIZE=y\nFLATKERN_MAX_PIPES=4\n")

	cfg, err := NewHandler(&GodotenvProvider{}).Load(path)
	require.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), KeyMaxTasks)
	assert.Contains(t, err.Error(), KeyStackSize)
	assert.Equal(t, 4, cfg.MaxPipes, "valid keys are still applied")
}

// TestLoad_Fail_Reader tests that reader failures other than a missing
// file are returned.
func TestLoad_Fail_Reader(t *testing.T) {
	t.Parallel()

	cfg, err := NewHandler(failingProvider{}).Load("any.env")
	require.ErrorIs(t, err, ErrReadConfig)
	require.ErrorIs(t, err, errBroken)
	assert.Equal(t, Defaults(), cfg)
}

// TestGodotenvProvider_Read tests merging of several files and the error
// for a missing one.
func TestGodotenvProvider_Read(t *testing.T) {
	t.Parallel()

	base := writeEnv(t, "FLATKERN_MAX_TASKS=2\nFLATKERN_MAX_PIPES=3\n")
	override := filepath.Join(t.TempDir(), "override.env")
	require.NoError(t, os.WriteFile(override, []byte("FLATKERN_MAX_TASKS=6\n"), 0o600))

	p := &GodotenvProvider{}

	data, err := p.Read(base, override)
	require.NoError(t, err)
	assert.Equal(t, "6", data[KeyMaxTasks])
	assert.Equal(t, "3", data[KeyMaxPipes])

	_, err = p.Read(filepath.Join(t.TempDir(), "absent.env"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "absent.env")
}
