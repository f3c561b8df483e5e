package storage

import (
	"bytes"
	"encoding/binary"

	"github.com/desertwitch/flatkern/internal/ata"
)

const (
	// BlockSize is the filesystem block size, equal to one sector.
	BlockSize = ata.SectorSize

	// Magic identifies a formatted disk ("SF" little-endian).
	Magic uint16 = 0x5346

	// MaxNameLen is the size of the on-disk name field including its
	// terminating NUL.
	MaxNameLen = 32

	// EntrySize is the packed on-disk size of a [FileEntry].
	EntrySize = 44

	// SuperblockSize is the packed on-disk size of a [Superblock].
	SuperblockSize = 20

	// DefaultTotalBlocks is the disk size assumed when formatting.
	DefaultTotalBlocks = 4096

	// DefaultEntries is the file table capacity used when formatting.
	DefaultEntries = 1024

	tableStart = 1
)

// Perm is the permission byte of a file.
type Perm uint8

// Permission bits, independently settable.
const (
	PermRead  Perm = 0x01
	PermWrite Perm = 0x02
	PermExec  Perm = 0x04

	DefaultPerms = PermRead | PermWrite
)

func (p Perm) String() string {
	b := []byte("---")
	if p&PermRead != 0 {
		b[0] = 'r'
	}
	if p&PermWrite != 0 {
		b[1] = 'w'
	}
	if p&PermExec != 0 {
		b[2] = 'x'
	}

	return string(b)
}

// Superblock describes the filesystem geometry. It lives in sector 0.
type Superblock struct {
	Magic           uint16
	TotalBlocks     uint32
	FileTableStart  uint32
	FileTableLength uint32
	DataStart       uint32
}

// DataBlocks returns the number of blocks in the data region.
func (sb Superblock) DataBlocks() uint32 {
	if sb.DataStart >= sb.TotalBlocks {
		return 0
	}

	return sb.TotalBlocks - sb.DataStart
}

// TableSectors returns the number of sectors holding the file table.
func (sb Superblock) TableSectors() uint32 {
	return tableSectors(sb.FileTableLength)
}

// FileEntry is one slot of the file table.
type FileEntry struct {
	Name        string
	StartBlock  uint32
	Size        uint32
	Active      bool
	Permissions Perm
}

// Blocks returns the number of data blocks covered by the entry.
func (e FileEntry) Blocks() uint32 {
	return blocksFor(e.Size)
}

// End returns the first block after the entry's data.
func (e FileEntry) End() uint32 {
	return e.StartBlock + e.Blocks()
}

func blocksFor(size uint32) uint32 {
	return uint32((uint64(size) + BlockSize - 1) / BlockSize)
}

func tableSectors(entries uint32) uint32 {
	return uint32((uint64(entries)*EntrySize + BlockSize - 1) / BlockSize)
}

// newSuperblock computes a fresh geometry. The data region starts right
// after the table; this value is stored and never recomputed on load.
func newSuperblock(totalBlocks, entries uint32) Superblock {
	return Superblock{
		Magic:           Magic,
		TotalBlocks:     totalBlocks,
		FileTableStart:  tableStart,
		FileTableLength: entries,
		DataStart:       tableSectors(entries) + 1,
	}
}

func (sb Superblock) valid() bool {
	return sb.FileTableStart >= 1 &&
		sb.FileTableLength > 0 &&
		sb.DataStart >= sb.FileTableStart+sb.TableSectors() &&
		sb.DataStart < sb.TotalBlocks
}

// encodeSuperblock lays the superblock out with C alignment: the 16-bit
// magic is followed by two bytes of padding.
func encodeSuperblock(sb Superblock) ata.Sector {
	var s ata.Sector

	binary.LittleEndian.PutUint16(s[0:], sb.Magic)
	binary.LittleEndian.PutUint32(s[4:], sb.TotalBlocks)
	binary.LittleEndian.PutUint32(s[8:], sb.FileTableStart)
	binary.LittleEndian.PutUint32(s[12:], sb.FileTableLength)
	binary.LittleEndian.PutUint32(s[16:], sb.DataStart)

	return s
}

func decodeSuperblock(s ata.Sector) Superblock {
	return Superblock{
		Magic:           binary.LittleEndian.Uint16(s[0:]),
		TotalBlocks:     binary.LittleEndian.Uint32(s[4:]),
		FileTableStart:  binary.LittleEndian.Uint32(s[8:]),
		FileTableLength: binary.LittleEndian.Uint32(s[12:]),
		DataStart:       binary.LittleEndian.Uint32(s[16:]),
	}
}

func encodeEntry(b []byte, e FileEntry) {
	clear(b[:EntrySize])

	copy(b[:MaxNameLen-1], e.Name)
	binary.LittleEndian.PutUint32(b[32:], e.StartBlock)
	binary.LittleEndian.PutUint32(b[36:], e.Size)
	if e.Active {
		b[40] = 1
	}
	b[41] = byte(e.Permissions)
}

func decodeEntry(b []byte) FileEntry {
	name := b[:MaxNameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	} else {
		name = name[:MaxNameLen-1]
	}

	return FileEntry{
		Name:        string(name),
		StartBlock:  binary.LittleEndian.Uint32(b[32:]),
		Size:        binary.LittleEndian.Uint32(b[36:]),
		Active:      b[40] != 0,
		Permissions: Perm(b[41]),
	}
}

// encodeTable serializes the entries as one contiguous stream, padded with
// zeros to a whole number of sectors.
func encodeTable(entries []FileEntry) []byte {
	n := uint32(len(entries)) //nolint:gosec
	stream := make([]byte, tableSectors(n)*BlockSize)

	for i, e := range entries {
		encodeEntry(stream[i*EntrySize:], e)
	}

	return stream
}

func decodeTable(stream []byte, entries uint32) []FileEntry {
	table := make([]FileEntry, entries)

	for i := range table {
		table[i] = decodeEntry(stream[i*EntrySize:])
	}

	return table
}
