// Package ata implements a polling PIO driver for the primary ATA channel.
//
// All transfers are single 512-byte sectors in 28-bit LBA mode. Every wait on
// the controller is a bounded busy loop over the status register; a timeout
// is an ordinary error for the caller and never a panic.
package ata

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
)

// SectorSize is the only transfer unit of the driver.
const SectorSize = 512

const (
	wordsPerSector = SectorSize / 2
	maxLBA         = 0x0FFFFFFF
)

// Primary channel task-file registers.
const (
	RegData        uint16 = 0x1F0
	RegError       uint16 = 0x1F1
	RegSectorCount uint16 = 0x1F2
	RegLBALow      uint16 = 0x1F3
	RegLBAMid      uint16 = 0x1F4
	RegLBAHigh     uint16 = 0x1F5
	RegDrive       uint16 = 0x1F6
	RegCommand     uint16 = 0x1F7
	RegStatus      uint16 = 0x1F7
	RegControl     uint16 = 0x3F6
)

// Status register bits.
const (
	StatusErr  uint8 = 0x01
	StatusDRQ  uint8 = 0x08
	StatusBusy uint8 = 0x80
)

// Commands understood by the controller.
const (
	CmdReadSectors  uint8 = 0x20
	CmdWriteSectors uint8 = 0x30
	CmdCacheFlush   uint8 = 0xE7
	CmdIdentify     uint8 = 0xEC
)

const (
	driveSelectLBA   uint8 = 0xE0
	driveSelectCHS   uint8 = 0xA0
	defaultBusyPolls       = 50000
	defaultDataPolls       = 100000
	defaultSelectWait      = 1000
)

// Sector is one raw disk sector.
type Sector [SectorSize]byte

type portProvider interface {
	Inb(port uint16) uint8
	Outb(port uint16, val uint8)
	Inw(port uint16) uint16
	Outw(port uint16, val uint16)
}

// Options bound the polling loops of a [Handler].
type Options struct {
	// BusyPolls is the number of status reads waiting for BSY to clear.
	BusyPolls int

	// DataPolls is the number of status reads waiting for DRQ to set.
	DataPolls int

	// SelectWait is the number of status reads spent settling after a
	// drive select before a read command.
	SelectWait int
}

// DefaultOptions returns the default polling bounds.
func DefaultOptions() Options {
	return Options{
		BusyPolls:  defaultBusyPolls,
		DataPolls:  defaultDataPolls,
		SelectWait: defaultSelectWait,
	}
}

// DriveInfo holds the parts of the IDENTIFY data the kernel cares about.
type DriveInfo struct {
	Model       string
	Serial      string
	LBA28Blocks uint32
}

// Handler is the principal implementation of the ATA driver.
type Handler struct {
	PortOps portProvider
	opts    Options
}

// NewHandler returns a pointer to a new [Handler]. Non-positive option
// values are replaced with their defaults.
func NewHandler(portOps portProvider, opts Options) *Handler {
	def := DefaultOptions()

	if opts.BusyPolls <= 0 {
		opts.BusyPolls = def.BusyPolls
	}
	if opts.DataPolls <= 0 {
		opts.DataPolls = def.DataPolls
	}
	if opts.SelectWait < 0 {
		opts.SelectWait = def.SelectWait
	}

	return &Handler{
		PortOps: portOps,
		opts:    opts,
	}
}

// Identify checks that an ATA drive is present on the primary channel and
// returns the relevant parts of its IDENTIFY data.
func (h *Handler) Identify() (DriveInfo, error) {
	h.PortOps.Outb(RegDrive, driveSelectCHS)
	h.PortOps.Outb(RegSectorCount, 0)
	h.PortOps.Outb(RegLBALow, 0)
	h.PortOps.Outb(RegLBAMid, 0)
	h.PortOps.Outb(RegLBAHigh, 0)
	h.PortOps.Outb(RegCommand, CmdIdentify)

	if status := h.PortOps.Inb(RegStatus); status == 0 {
		return DriveInfo{}, fmt.Errorf("(ata-identify) %w", ErrNoDrive)
	}

	if err := h.waitBusyClear(); err != nil {
		return DriveInfo{}, fmt.Errorf("(ata-identify) %w", err)
	}

	if h.PortOps.Inb(RegLBAMid) != 0 || h.PortOps.Inb(RegLBAHigh) != 0 {
		return DriveInfo{}, fmt.Errorf("(ata-identify) %w", ErrNotATA)
	}

	if err := h.waitDataRequest(); err != nil {
		return DriveInfo{}, fmt.Errorf("(ata-identify) %w", err)
	}

	var words [wordsPerSector]uint16
	for i := range words {
		words[i] = h.PortOps.Inw(RegData)
	}

	info := DriveInfo{
		Serial:      identifyString(words[10:20]),
		Model:       identifyString(words[27:47]),
		LBA28Blocks: uint32(words[60]) | uint32(words[61])<<16,
	}

	slog.Debug("ATA drive identified",
		"model", info.Model,
		"serial", info.Serial,
		"blocks", info.LBA28Blocks,
	)

	return info, nil
}

// ReadSector reads the sector at lba.
func (h *Handler) ReadSector(lba uint32) (Sector, error) {
	var sector Sector

	if lba > maxLBA {
		return sector, fmt.Errorf("(ata-read) lba %d: %w", lba, ErrLBAOutOfRange)
	}

	if err := h.waitBusyClear(); err != nil {
		return sector, fmt.Errorf("(ata-read) lba %d: initial: %w", lba, err)
	}

	h.selectLBA(lba)

	for range h.opts.SelectWait {
		h.PortOps.Inb(RegStatus)
	}

	h.programLBA(lba)
	h.PortOps.Outb(RegCommand, CmdReadSectors)

	if err := h.waitDataRequest(); err != nil {
		return sector, fmt.Errorf("(ata-read) lba %d: %w", lba, err)
	}

	for i := range wordsPerSector {
		binary.LittleEndian.PutUint16(sector[i*2:], h.PortOps.Inw(RegData))
	}

	return sector, nil
}

// WriteSector writes data to the sector at lba. The cache flush issued
// afterwards is fire-and-forget: a flush timeout is logged, not returned.
func (h *Handler) WriteSector(lba uint32, data Sector) error {
	if lba > maxLBA {
		return fmt.Errorf("(ata-write) lba %d: %w", lba, ErrLBAOutOfRange)
	}

	if err := h.waitBusyClear(); err != nil {
		return fmt.Errorf("(ata-write) lba %d: initial: %w", lba, err)
	}

	h.selectLBA(lba)
	h.programLBA(lba)
	h.PortOps.Outb(RegCommand, CmdWriteSectors)

	if err := h.waitDataRequest(); err != nil {
		return fmt.Errorf("(ata-write) lba %d: %w", lba, err)
	}

	for i := range wordsPerSector {
		h.PortOps.Outw(RegData, binary.LittleEndian.Uint16(data[i*2:]))
	}

	h.PortOps.Outb(RegCommand, CmdCacheFlush)
	if err := h.waitBusyClear(); err != nil {
		slog.Warn("Cache flush did not complete",
			"lba", lba,
			"err", err,
		)
	}

	return nil
}

func (h *Handler) selectLBA(lba uint32) {
	h.PortOps.Outb(RegDrive, driveSelectLBA|uint8((lba>>24)&0x0F))
}

func (h *Handler) programLBA(lba uint32) {
	h.PortOps.Outb(RegSectorCount, 1)
	h.PortOps.Outb(RegLBALow, uint8(lba&0xFF))
	h.PortOps.Outb(RegLBAMid, uint8((lba>>8)&0xFF))
	h.PortOps.Outb(RegLBAHigh, uint8((lba>>16)&0xFF))
}

func (h *Handler) waitBusyClear() error {
	var status uint8

	for i := range h.opts.BusyPolls {
		status = h.PortOps.Inb(RegStatus)
		if status&StatusBusy == 0 {
			slog.Debug("BSY cleared", "polls", i)

			return nil
		}
	}

	slog.Debug("BSY clear timeout", "status", fmt.Sprintf("%#02x", status))

	return ErrBusyTimeout
}

func (h *Handler) waitDataRequest() error {
	var status uint8

	for i := range h.opts.DataPolls {
		status = h.PortOps.Inb(RegStatus)
		if status&StatusBusy != 0 {
			continue
		}
		if status&StatusErr != 0 {
			return fmt.Errorf("%w: status %#02x, error %#02x", ErrDeviceFault, status, h.PortOps.Inb(RegError))
		}
		if status&StatusDRQ != 0 {
			slog.Debug("DRQ set", "polls", i)

			return nil
		}
	}

	slog.Debug("DRQ set timeout", "status", fmt.Sprintf("%#02x", status))

	return ErrDataRequestTimeout
}

// identifyString decodes an IDENTIFY text field, which stores two
// characters per word with the first character in the high byte.
func identifyString(words []uint16) string {
	var b strings.Builder

	for _, w := range words {
		b.WriteByte(byte(w >> 8))
		b.WriteByte(byte(w))
	}

	return strings.TrimRight(b.String(), " \x00")
}
