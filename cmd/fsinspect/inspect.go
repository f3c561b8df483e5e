package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertwitch/flatkern/internal/ata"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
)

//nolint:gochecknoglobals
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)

type sectorProvider interface {
	ReadSector(lba uint32) (ata.Sector, error)
}

// readOnlyDevice hands reads through to the driver and refuses writes.
type readOnlyDevice struct {
	SectorOps sectorProvider
}

func (d readOnlyDevice) ReadSector(lba uint32) (ata.Sector, error) {
	return d.SectorOps.ReadSector(lba)
}

func (readOnlyDevice) WriteSector(lba uint32, _ ata.Sector) error {
	return fmt.Errorf("(fsinspect) sector %d: %w", lba, ErrReadOnly)
}

type imageReader interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
}

// imageDigest hashes the complete image.
func imageDigest(img imageReader) (string, error) {
	h := blake3.New()

	if _, err := io.Copy(h, io.NewSectionReader(img, 0, img.Size())); err != nil {
		return "", fmt.Errorf("(fsinspect-digest) %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// render writes the superblock summary and the file table of fs to w.
// With digests set, the content of every file is read and hashed.
func render(w io.Writer, fs *storage.Handler, digests bool) error {
	snap := fs.Snapshot()
	sb := snap.Superblock

	used := uint64(snap.Cursor) * storage.BlockSize
	total := uint64(sb.DataBlocks()) * storage.BlockSize

	summary := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return cellStyle.Bold(true)
			}

			return cellStyle
		}).
		Rows(
			[]string{"Magic", fmt.Sprintf("%#04x", sb.Magic)},
			[]string{"Total blocks", fmt.Sprintf("%d (%s)", sb.TotalBlocks, humanize.IBytes(uint64(sb.TotalBlocks)*storage.BlockSize))},
			[]string{"File table", fmt.Sprintf("%d entries in sectors %d-%d", sb.FileTableLength, sb.FileTableStart, sb.FileTableStart+sb.TableSectors()-1)},
			[]string{"Data start", strconv.FormatUint(uint64(sb.DataStart), 10)},
			[]string{"Cursor", strconv.FormatUint(uint64(snap.Cursor), 10)},
			[]string{"Data used", fmt.Sprintf("%s of %s", humanize.IBytes(used), humanize.IBytes(total))},
			[]string{"Files", strconv.Itoa(len(snap.Files))},
		)

	if _, err := fmt.Fprintln(w, summary.Render()); err != nil {
		return fmt.Errorf("(fsinspect-render) %w", err)
	}

	if len(snap.Files) == 0 {
		return nil
	}

	headers := []string{"Name", "Size", "Start", "Blocks", "Perms"}
	if digests {
		headers = append(headers, "BLAKE3")
	}

	files := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})

	for _, e := range snap.Files {
		row := []string{
			e.Name,
			humanize.IBytes(uint64(e.Size)),
			strconv.FormatUint(uint64(e.StartBlock), 10),
			strconv.FormatUint(uint64(e.Blocks()), 10),
			e.Permissions.String(),
		}

		if digests {
			sum, err := fs.Digest(e)
			if err != nil {
				slog.Warn("Failed to digest file", "name", e.Name, "err", err)
				row = append(row, "unreadable")
			} else {
				row = append(row, hex.EncodeToString(sum[:]))
			}
		}

		files.Row(row...)
	}

	if _, err := fmt.Fprintln(w, files.Render()); err != nil {
		return fmt.Errorf("(fsinspect-render) %w", err)
	}

	return nil
}
