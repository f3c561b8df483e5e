package main

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/desertwitch/flatkern/internal/ata"
	"github.com/desertwitch/flatkern/internal/simdisk"
	"github.com/desertwitch/flatkern/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func formattedImage(t *testing.T, files map[string]string) *simdisk.MemImage {
	t.Helper()

	img := simdisk.NewMemImage(128)
	disk := ata.NewHandler(simdisk.NewController(img, simdisk.Options{}), ata.DefaultOptions())

	fs, err := storage.NewHandler(disk, storage.Options{TotalBlocks: 128, Entries: 8})
	require.NoError(t, err)
	require.NoError(t, fs.FormatIfAbsent())

	for name, content := range files {
		start, err := fs.Place(nil, uint32(len(content))) //nolint:gosec
		require.NoError(t, err)
		require.NoError(t, fs.WriteBlocks(start, []byte(content)))

		slot, err := fs.FreeSlot()
		require.NoError(t, err)
		*slot = storage.FileEntry{Name: name, StartBlock: start, Size: uint32(len(content)), Active: true, Permissions: storage.DefaultPerms} //nolint:gosec
		fs.RecomputeCursor()
	}
	require.NoError(t, fs.PersistTable())

	return img
}

func loadReadOnly(t *testing.T, img *simdisk.MemImage) *storage.Handler {
	t.Helper()

	disk := ata.NewHandler(simdisk.NewController(img, simdisk.Options{}), ata.DefaultOptions())

	fs, err := storage.NewHandler(readOnlyDevice{SectorOps: disk}, storage.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, fs.Load())

	return fs
}

// TestRender_Success tests the rendered summary and file table.
func TestRender_Success(t *testing.T) {
	t.Parallel()

	img := formattedImage(t, map[string]string{"hello": "Hello, kernel!\n"})
	fs := loadReadOnly(t, img)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, fs, true))

	sum := blake3.Sum256([]byte("Hello, kernel!\n"))
	out := buf.String()

	assert.Contains(t, out, "0x5346")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "15 B")
	assert.Contains(t, out, "rw-")
	assert.Contains(t, out, hex.EncodeToString(sum[:]))
}

// TestRender_Success_Empty tests an image without files.
func TestRender_Success_Empty(t *testing.T) {
	t.Parallel()

	fs := loadReadOnly(t, formattedImage(t, nil))

	var buf bytes.Buffer
	require.NoError(t, render(&buf, fs, false))
	assert.Contains(t, buf.String(), "Files")
	assert.NotContains(t, buf.String(), "BLAKE3")
}

// TestReadOnlyDevice_Fail_Write tests that the inspector never writes.
func TestReadOnlyDevice_Fail_Write(t *testing.T) {
	t.Parallel()

	img := simdisk.NewMemImage(8)
	disk := ata.NewHandler(simdisk.NewController(img, simdisk.Options{}), ata.DefaultOptions())

	fs, err := storage.NewHandler(readOnlyDevice{SectorOps: disk}, storage.Options{TotalBlocks: 8, Entries: 4})
	require.NoError(t, err)

	require.ErrorIs(t, fs.Load(), storage.ErrNoFilesystem)
	require.ErrorIs(t, fs.FormatIfAbsent(), ErrReadOnly)
}

// TestImageDigest_Success tests hashing of the complete image.
func TestImageDigest_Success(t *testing.T) {
	t.Parallel()

	img := simdisk.NewMemImage(2)

	got, err := imageDigest(img)
	require.NoError(t, err)

	want := blake3.Sum256(make([]byte, 2*simdisk.SectorSize))
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}
