package ata

import "errors"

var (
	// ErrBusyTimeout is returned when the controller does not clear its BSY
	// flag within the configured number of status polls.
	ErrBusyTimeout = errors.New("timeout waiting for BSY to clear")

	// ErrDataRequestTimeout is returned when the controller does not raise
	// DRQ within the configured number of status polls.
	ErrDataRequestTimeout = errors.New("timeout waiting for DRQ to set")

	// ErrDeviceFault is returned when the controller reports ERR while a
	// command is in flight.
	ErrDeviceFault = errors.New("controller reported an error")

	// ErrNoDrive is returned by IDENTIFY when no drive answers on the
	// channel (floating bus, status reads zero).
	ErrNoDrive = errors.New("no drive detected")

	// ErrNotATA is returned by IDENTIFY when the drive answers with a
	// packet-device (ATAPI) signature.
	ErrNotATA = errors.New("not an ATA drive")

	// ErrLBAOutOfRange is returned for addresses not expressible in 28-bit
	// LBA mode.
	ErrLBAOutOfRange = errors.New("lba out of 28-bit range")
)
