// Package simdisk simulates an ATA controller on the primary channel. It
// answers the same port reads and writes as real hardware, so the ata
// driver runs unchanged against it, and it can be made to misbehave for
// testing the driver's timeout handling.
package simdisk

import (
	"encoding/binary"
	"log/slog"
	"sync"
)

// Port numbers of the primary channel.
const (
	portData        uint16 = 0x1F0
	portError       uint16 = 0x1F1
	portSectorCount uint16 = 0x1F2
	portLBALow      uint16 = 0x1F3
	portLBAMid      uint16 = 0x1F4
	portLBAHigh     uint16 = 0x1F5
	portDrive       uint16 = 0x1F6
	portCommand     uint16 = 0x1F7
)

const (
	statusErr   uint8 = 0x01
	statusDRQ   uint8 = 0x08
	statusReady uint8 = 0x40
	statusBusy  uint8 = 0x80

	errAbort    uint8 = 0x04
	errIDNF     uint8 = 0x10
	errUncorrec uint8 = 0x40

	cmdRead     uint8 = 0x20
	cmdWrite    uint8 = 0x30
	cmdFlush    uint8 = 0xE7
	cmdIdentify uint8 = 0xEC

	wordsPerSector = SectorSize / 2
)

type transfer int

const (
	transferNone transfer = iota
	transferIn
	transferOut
)

// Options configure a [Controller].
type Options struct {
	// BusyLatency is the number of status reads reporting BSY after each
	// command before the controller settles.
	BusyLatency int

	// FlushLatency is the number of status reads reporting BSY after a
	// cache flush. It may exceed the driver's poll bound to simulate a
	// flush that does not complete in time.
	FlushLatency int

	// NoDrive makes the channel float: every status read returns zero.
	NoDrive bool

	// Packet makes the drive answer IDENTIFY with an ATAPI signature.
	Packet bool

	// Model and Serial are reported by IDENTIFY.
	Model  string
	Serial string
}

// Stats counts completed operations.
type Stats struct {
	Reads   int
	Writes  int
	Flushes int
}

// Controller is a simulated ATA controller over an [Image].
type Controller struct {
	sync.Mutex

	img  Image
	opts Options

	count, lbaLow, lbaMid, lbaHigh, drive uint8

	status  uint8
	errReg  uint8
	busy    int
	stalled bool

	stallReads  bool
	stallWrites bool

	mode   transfer
	target uint32
	buf    [wordsPerSector]uint16
	pos    int

	stats Stats
}

// NewController returns a pointer to a new [Controller] over img.
func NewController(img Image, opts Options) *Controller {
	if opts.Model == "" {
		opts.Model = "FLATKERN SIMULATED DISK"
	}
	if opts.Serial == "" {
		opts.Serial = "SIM0000001"
	}

	return &Controller{
		img:    img,
		opts:   opts,
		status: statusReady,
	}
}

// StallReads makes subsequent read commands hang with BSY set until
// cleared again.
func (c *Controller) StallReads(stall bool) {
	c.Lock()
	defer c.Unlock()

	c.stallReads = stall
	if !c.stallReads && !c.stallWrites {
		c.unstall()
	}
}

// StallWrites makes subsequent write commands hang with BSY set until
// cleared again.
func (c *Controller) StallWrites(stall bool) {
	c.Lock()
	defer c.Unlock()

	c.stallWrites = stall
	if !c.stallReads && !c.stallWrites {
		c.unstall()
	}
}

// Stats returns a copy of the operation counters.
func (c *Controller) Stats() Stats {
	c.Lock()
	defer c.Unlock()

	return c.stats
}

// Image returns the backing image.
func (c *Controller) Image() Image {
	return c.img
}

func (c *Controller) unstall() {
	if c.stalled {
		c.stalled = false
		c.mode = transferNone
		c.status = statusReady
	}
}

// Inb reads a byte register.
func (c *Controller) Inb(port uint16) uint8 {
	c.Lock()
	defer c.Unlock()

	if c.opts.NoDrive {
		return 0
	}

	switch port {
	case portCommand:
		if c.stalled {
			return statusBusy
		}
		if c.busy > 0 {
			c.busy--

			return statusBusy
		}

		return c.status
	case portError:
		return c.errReg
	case portSectorCount:
		return c.count
	case portLBALow:
		return c.lbaLow
	case portLBAMid:
		return c.lbaMid
	case portLBAHigh:
		return c.lbaHigh
	case portDrive:
		return c.drive
	default:
		return 0xFF //nolint:mnd
	}
}

// Outb writes a byte register.
func (c *Controller) Outb(port uint16, val uint8) {
	c.Lock()
	defer c.Unlock()

	if c.opts.NoDrive {
		return
	}

	switch port {
	case portSectorCount:
		c.count = val
	case portLBALow:
		c.lbaLow = val
	case portLBAMid:
		c.lbaMid = val
	case portLBAHigh:
		c.lbaHigh = val
	case portDrive:
		c.drive = val
	case portCommand:
		c.command(val)
	}
}

// Inw reads a data word. Outside a read transfer the bus reads zero.
func (c *Controller) Inw(port uint16) uint16 {
	c.Lock()
	defer c.Unlock()

	if port != portData || c.mode != transferIn || c.stalled {
		return 0
	}

	w := c.buf[c.pos]
	c.pos++

	if c.pos == wordsPerSector {
		c.mode = transferNone
		c.status = statusReady
	}

	return w
}

// Outw writes a data word. Outside a write transfer the word is dropped.
func (c *Controller) Outw(port uint16, val uint16) {
	c.Lock()
	defer c.Unlock()

	if port != portData || c.mode != transferOut || c.stalled {
		return
	}

	c.buf[c.pos] = val
	c.pos++

	if c.pos == wordsPerSector {
		c.mode = transferNone
		c.commitWrite()
	}
}

func (c *Controller) lba() uint32 {
	return uint32(c.drive&0x0F)<<24 | uint32(c.lbaHigh)<<16 | uint32(c.lbaMid)<<8 | uint32(c.lbaLow)
}

func (c *Controller) inRange(lba uint32) bool {
	return (int64(lba)+1)*SectorSize <= c.img.Size()
}

func (c *Controller) fail(reason uint8) {
	c.mode = transferNone
	c.status = statusReady | statusErr
	c.errReg = reason
}

func (c *Controller) command(cmd uint8) {
	c.errReg = 0
	c.pos = 0
	c.busy = c.opts.BusyLatency

	switch cmd {
	case cmdRead:
		c.startRead()
	case cmdWrite:
		c.startWrite()
	case cmdFlush:
		c.mode = transferNone
		if err := c.img.Sync(); err != nil {
			slog.Debug("Simulated flush failed", "err", err)
			c.fail(errAbort)

			return
		}
		c.stats.Flushes++
		c.busy = c.opts.FlushLatency
		c.status = statusReady
	case cmdIdentify:
		c.identify()
	default:
		c.fail(errAbort)
	}
}

func (c *Controller) startRead() {
	lba := c.lba()

	if c.stallReads {
		c.stalled = true
		c.mode = transferIn

		return
	}

	if !c.inRange(lba) {
		c.fail(errIDNF)

		return
	}

	var raw [SectorSize]byte
	if _, err := c.img.ReadAt(raw[:], int64(lba)*SectorSize); err != nil {
		slog.Debug("Simulated read failed", "lba", lba, "err", err)
		c.fail(errUncorrec)

		return
	}

	for i := range c.buf {
		c.buf[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}

	c.target = lba
	c.mode = transferIn
	c.status = statusReady | statusDRQ
	c.stats.Reads++
}

func (c *Controller) startWrite() {
	lba := c.lba()

	if c.stallWrites {
		c.stalled = true
		c.mode = transferOut

		return
	}

	if !c.inRange(lba) {
		c.fail(errIDNF)

		return
	}

	c.target = lba
	c.mode = transferOut
	c.status = statusReady | statusDRQ
}

func (c *Controller) commitWrite() {
	var raw [SectorSize]byte
	for i, w := range c.buf {
		binary.LittleEndian.PutUint16(raw[i*2:], w)
	}

	if _, err := c.img.WriteAt(raw[:], int64(c.target)*SectorSize); err != nil {
		slog.Debug("Simulated write failed", "lba", c.target, "err", err)
		c.fail(errUncorrec)

		return
	}

	c.status = statusReady
	c.stats.Writes++
}

func (c *Controller) identify() {
	if c.opts.Packet {
		c.lbaMid = 0x14
		c.lbaHigh = 0xEB
		c.mode = transferNone
		c.status = statusReady

		return
	}

	c.lbaMid = 0
	c.lbaHigh = 0
	c.buf = [wordsPerSector]uint16{}

	putIdentifyString(c.buf[10:20], c.opts.Serial)
	putIdentifyString(c.buf[27:47], c.opts.Model)

	sectors := uint32(c.img.Size() / SectorSize) //nolint:gosec
	c.buf[60] = uint16(sectors)
	c.buf[61] = uint16(sectors >> 16)

	c.mode = transferIn
	c.status = statusReady | statusDRQ
}

// putIdentifyString stores s space padded, two characters per word with the
// first character in the high byte.
func putIdentifyString(words []uint16, s string) {
	b := make([]byte, len(words)*2)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)

	for i := range words {
		words[i] = uint16(b[i*2])<<8 | uint16(b[i*2+1])
	}
}
