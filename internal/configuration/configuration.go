// Package configuration loads the kernel configuration from Unix-type
// environment files.
package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/desertwitch/flatkern/internal/ata"
	"github.com/desertwitch/flatkern/internal/gate"
	"github.com/desertwitch/flatkern/internal/pipe"
	"github.com/desertwitch/flatkern/internal/sched"
	"github.com/desertwitch/flatkern/internal/storage"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "flatkern.env"

// Configuration keys.
const (
	KeyDiskImage    = "FLATKERN_DISK_IMAGE"
	KeyTotalBlocks  = "FLATKERN_TOTAL_BLOCKS"
	KeyFileEntries  = "FLATKERN_FILE_ENTRIES"
	KeyMaxPipes     = "FLATKERN_MAX_PIPES"
	KeyPipeCapacity = "FLATKERN_PIPE_CAPACITY"
	KeyMaxTasks     = "FLATKERN_MAX_TASKS"
	KeyStackSize    = "FLATKERN_STACK_SIZE"
	KeyRenameMode   = "FLATKERN_RENAME_MODE"
	KeyReadFailure  = "FLATKERN_READ_FAILURE"
	KeyEnforcePerms = "FLATKERN_ENFORCE_PERMS"
	KeyBusyPolls    = "FLATKERN_ATA_BSY_POLLS"
	KeyDataPolls    = "FLATKERN_ATA_DRQ_POLLS"
	KeySerialLog    = "FLATKERN_SERIAL_LOG"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Config is the complete kernel configuration.
type Config struct {
	DiskImage string
	SerialLog string

	TotalBlocks  uint32
	FileEntries  uint32
	MaxPipes     int
	PipeCapacity int
	MaxTasks     int
	StackSize    int

	RenameMode   gate.RenameMode
	ReadFailure  storage.ReadPolicy
	EnforcePerms bool

	BusyPolls int
	DataPolls int
}

// Defaults returns the configuration used for absent keys. An empty
// DiskImage means an in-memory disk.
func Defaults() Config {
	ataOpts := ata.DefaultOptions()
	pipeOpts := pipe.DefaultOptions()
	schedOpts := sched.DefaultOptions()

	return Config{
		TotalBlocks:  storage.DefaultTotalBlocks,
		FileEntries:  storage.DefaultEntries,
		MaxPipes:     pipeOpts.Pipes,
		PipeCapacity: pipeOpts.Capacity,
		MaxTasks:     schedOpts.Tasks,
		StackSize:    schedOpts.StackSize,
		RenameMode:   gate.RenameModeFull,
		ReadFailure:  storage.ReadPolicySurface,
		BusyPolls:    ataOpts.BusyPolls,
		DataPolls:    ataOpts.DataPolls,
	}
}

// StorageOptions returns the options for the storage layer.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		TotalBlocks: c.TotalBlocks,
		Entries:     c.FileEntries,
		ReadPolicy:  c.ReadFailure,
	}
}

// ATAOptions returns the options for the disk driver.
func (c Config) ATAOptions() ata.Options {
	opts := ata.DefaultOptions()
	opts.BusyPolls = c.BusyPolls
	opts.DataPolls = c.DataPolls

	return opts
}

// PipeOptions returns the options for the pipe pool.
func (c Config) PipeOptions() pipe.Options {
	return pipe.Options{Pipes: c.MaxPipes, Capacity: c.PipeCapacity}
}

// SchedOptions returns the options for the task pool.
func (c Config) SchedOptions() sched.Options {
	opts := sched.DefaultOptions()
	opts.Tasks = c.MaxTasks
	opts.StackSize = c.StackSize

	return opts
}

// GateOptions returns the options for the I/O gate.
func (c Config) GateOptions() gate.Options {
	return gate.Options{RenameMode: c.RenameMode, EnforcePermissions: c.EnforcePerms}
}

// Handler is the principal implementation of the configuration loader.
type Handler struct {
	GenericConfigReader genericConfigProvider
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(genericConfigReader genericConfigProvider) *Handler {
	return &Handler{
		GenericConfigReader: genericConfigReader,
	}
}

// Load reads the given configuration file over the [Defaults]. A missing
// file is not an error and yields the defaults. Every invalid key is
// reported in the returned error.
func (h *Handler) Load(filename string) (Config, error) {
	cfg := Defaults()

	envMap, err := h.GenericConfigReader.Read(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Skipped configuration file (does not exist)", "file", filename)

			return cfg, nil
		}

		return cfg, fmt.Errorf("(config) %s: %w: %w", filename, ErrReadConfig, err)
	}

	var errs []error

	cfg.DiskImage = mapKeyToString(envMap, KeyDiskImage, cfg.DiskImage)
	cfg.SerialLog = mapKeyToString(envMap, KeySerialLog, cfg.SerialLog)

	cfg.TotalBlocks = mapKeyToUint32(envMap, KeyTotalBlocks, cfg.TotalBlocks, &errs)
	cfg.FileEntries = mapKeyToUint32(envMap, KeyFileEntries, cfg.FileEntries, &errs)
	cfg.MaxPipes = mapKeyToInt(envMap, KeyMaxPipes, cfg.MaxPipes, &errs)
	cfg.PipeCapacity = mapKeyToInt(envMap, KeyPipeCapacity, cfg.PipeCapacity, &errs)
	cfg.MaxTasks = mapKeyToInt(envMap, KeyMaxTasks, cfg.MaxTasks, &errs)
	cfg.StackSize = mapKeyToInt(envMap, KeyStackSize, cfg.StackSize, &errs)
	cfg.BusyPolls = mapKeyToInt(envMap, KeyBusyPolls, cfg.BusyPolls, &errs)
	cfg.DataPolls = mapKeyToInt(envMap, KeyDataPolls, cfg.DataPolls, &errs)
	cfg.EnforcePerms = mapKeyToBool(envMap, KeyEnforcePerms, cfg.EnforcePerms, &errs)

	switch v := strings.ToLower(mapKeyToString(envMap, KeyRenameMode, "")); v {
	case "":
	case "full":
		cfg.RenameMode = gate.RenameModeFull
	case "compat":
		cfg.RenameMode = gate.RenameModeCompat
	default:
		errs = append(errs, fmt.Errorf("(config) %s=%q: %w", KeyRenameMode, v, ErrInvalidValue))
	}

	switch v := strings.ToLower(mapKeyToString(envMap, KeyReadFailure, "")); v {
	case "":
	case "surface":
		cfg.ReadFailure = storage.ReadPolicySurface
	case "zerofill":
		cfg.ReadFailure = storage.ReadPolicyZeroFill
	default:
		errs = append(errs, fmt.Errorf("(config) %s=%q: %w", KeyReadFailure, v, ErrInvalidValue))
	}

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}

	return cfg, nil
}

func mapKeyToString(envMap map[string]string, key string, def string) string {
	if value, exists := envMap[key]; exists && value != "" {
		return value
	}

	return def
}

func mapKeyToInt(envMap map[string]string, key string, def int, errs *[]error) int {
	value := mapKeyToString(envMap, key, "")
	if value == "" {
		return def
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue <= 0 {
		*errs = append(*errs, fmt.Errorf("(config) %s=%q: %w", key, value, ErrInvalidValue))

		return def
	}

	return intValue
}

func mapKeyToUint32(envMap map[string]string, key string, def uint32, errs *[]error) uint32 {
	value := mapKeyToString(envMap, key, "")
	if value == "" {
		return def
	}

	intValue, err := strconv.ParseUint(value, 10, 32)
	if err != nil || intValue == 0 {
		*errs = append(*errs, fmt.Errorf("(config) %s=%q: %w", key, value, ErrInvalidValue))

		return def
	}

	return uint32(intValue)
}

func mapKeyToBool(envMap map[string]string, key string, def bool, errs *[]error) bool {
	value := mapKeyToString(envMap, key, "")
	if value == "" {
		return def
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("(config) %s=%q: %w", key, value, ErrInvalidValue))

		return def
	}

	return boolValue
}
