package simdisk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/desertwitch/flatkern/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemImage_Success tests reads and writes within bounds.
func TestMemImage_Success(t *testing.T) {
	t.Parallel()

	img := NewMemImage(2)
	require.Equal(t, int64(1024), img.Size())

	n, err := img.WriteAt([]byte("abc"), 510)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 3)
	_, err = img.ReadAt(buf, 510)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))
}

// TestMemImage_Fail_OutOfBounds tests rejection of accesses past the end.
func TestMemImage_Fail_OutOfBounds(t *testing.T) {
	t.Parallel()

	img := NewMemImage(1)

	_, err := img.WriteAt([]byte("ab"), 511)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = img.ReadAt(make([]byte, 1), -1)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

// TestFileImage_Success tests persistence of a host-file image across
// reopen.
func TestFileImage_Success(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "disk.img")

	img, err := OpenFileImage(path, 8, &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	assert.Equal(t, int64(8*SectorSize), img.Size())

	_, err = img.WriteAt([]byte("persist"), 3*SectorSize)
	require.NoError(t, err)
	require.NoError(t, img.Sync())
	require.NoError(t, img.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8*SectorSize), info.Size())

	img, err = OpenFileImage(path, 4, &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, int64(8*SectorSize), img.Size(), "a larger image should keep its size")

	buf := make([]byte, 7)
	_, err = img.ReadAt(buf, 3*SectorSize)
	require.NoError(t, err)
	assert.Equal(t, "persist", string(buf))
}

// TestFileImage_Fail_Locked tests that an image cannot be opened twice.
func TestFileImage_Fail_Locked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "disk.img")

	img, err := OpenFileImage(path, 1, &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer img.Close()

	_, err = OpenFileImage(path, 1, &schema.OS{}, &schema.Unix{})
	require.ErrorIs(t, err, ErrImageLocked)
}

// TestFileImage_Fail_Size tests rejection of empty images.
func TestFileImage_Fail_Size(t *testing.T) {
	t.Parallel()

	_, err := OpenFileImage(filepath.Join(t.TempDir(), "x.img"), 0, &schema.OS{}, &schema.Unix{})
	require.ErrorIs(t, err, ErrImageTooSmall)
}
