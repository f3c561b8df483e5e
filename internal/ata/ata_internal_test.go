package ata

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestIdentify_Fail_NoDrive tests that a floating bus is detected before
// any polling happens.
func TestIdentify_Fail_NoDrive(t *testing.T) {
	t.Parallel()

	portProv := newMockPortProvider(t)
	handler := NewHandler(portProv, DefaultOptions())

	portProv.EXPECT().Outb(RegDrive, driveSelectCHS).Return().Once()
	portProv.EXPECT().Outb(mock.Anything, uint8(0)).Return().Times(4)
	portProv.EXPECT().Outb(RegCommand, CmdIdentify).Return().Once()
	portProv.EXPECT().Inb(RegStatus).Return(0).Once()

	_, err := handler.Identify()

	require.ErrorIs(t, err, ErrNoDrive, "a zero status should mean no drive")
}

// TestWaitBusyClear_Fail_Timeout tests that the busy loop is bounded by the
// configured number of polls.
func TestWaitBusyClear_Fail_Timeout(t *testing.T) {
	t.Parallel()

	portProv := newMockPortProvider(t)
	handler := NewHandler(portProv, Options{BusyPolls: 7, DataPolls: 7})

	portProv.EXPECT().Inb(RegStatus).Return(StatusBusy).Times(7)

	err := handler.waitBusyClear()

	require.ErrorIs(t, err, ErrBusyTimeout, "should time out after the poll bound")
}

// TestWaitDataRequest_Fail_DeviceError tests that ERR raised during a
// command is reported as a device fault.
func TestWaitDataRequest_Fail_DeviceError(t *testing.T) {
	t.Parallel()

	portProv := newMockPortProvider(t)
	handler := NewHandler(portProv, DefaultOptions())

	portProv.EXPECT().Inb(RegStatus).Return(StatusBusy).Twice()
	portProv.EXPECT().Inb(RegStatus).Return(StatusErr).Once()
	portProv.EXPECT().Inb(RegError).Return(0x04).Once()

	err := handler.waitDataRequest()

	require.ErrorIs(t, err, ErrDeviceFault, "ERR should be a device fault")
}

// TestWriteSector_Success_RegisterSequence tests the exact programming of
// the task-file registers for a write.
func TestWriteSector_Success_RegisterSequence(t *testing.T) {
	t.Parallel()

	portProv := newMockPortProvider(t)
	handler := NewHandler(portProv, DefaultOptions())

	lba := uint32(0x0A123456)
	var written []uint16

	portProv.EXPECT().Inb(RegStatus).Return(StatusDRQ)
	portProv.EXPECT().Outb(RegDrive, uint8(0xEA)).Return().Once()
	portProv.EXPECT().Outb(RegSectorCount, uint8(1)).Return().Once()
	portProv.EXPECT().Outb(RegLBALow, uint8(0x56)).Return().Once()
	portProv.EXPECT().Outb(RegLBAMid, uint8(0x34)).Return().Once()
	portProv.EXPECT().Outb(RegLBAHigh, uint8(0x12)).Return().Once()
	portProv.EXPECT().Outb(RegCommand, CmdWriteSectors).Return().Once()
	portProv.EXPECT().Outw(RegData, mock.Anything).Run(func(_ uint16, val uint16) {
		written = append(written, val)
	}).Return().Times(wordsPerSector)
	portProv.EXPECT().Outb(RegCommand, CmdCacheFlush).Return().Once()

	var data Sector
	data[0] = 0x34
	data[1] = 0x12
	data[SectorSize-1] = 0xFF

	err := handler.WriteSector(lba, data)

	require.NoError(t, err)
	require.Len(t, written, wordsPerSector)
	require.Equal(t, uint16(0x1234), written[0], "words should be little-endian")
	require.Equal(t, uint16(0xFF00), written[wordsPerSector-1])
}

// TestIdentifyString_Success tests decoding of byte-swapped IDENTIFY text.
func TestIdentifyString_Success(t *testing.T) {
	t.Parallel()

	words := []uint16{'F'<<8 | 'L', 'A'<<8 | 'T', ' '<<8 | ' '}

	require.Equal(t, "FLAT", identifyString(words))
}
