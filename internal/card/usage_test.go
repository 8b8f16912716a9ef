package card

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	c := openTestCard(t, 4<<20)
	mp := c.MountPoint()
	writeFile(t, filepath.Join(mp, "a"), 1<<20)
	writeFile(t, filepath.Join(mp, ".hidden", "b"), 512<<10)

	size, err := c.Size(Bytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(4<<20), size)

	used, err := c.Used(Kilobytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1536), used)

	free, err := c.Free(Bytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(4<<20-1536<<10), free)

	free, err = c.Free(Megabytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), free)
}

func TestFreeNeverNegative(t *testing.T) {
	c := openTestCard(t, 1024)
	writeFile(t, filepath.Join(c.MountPoint(), "big"), 4096)

	free, err := c.Free(Bytes)
	require.NoError(t, err)
	assert.Zero(t, free)
}

func TestTreeSizeMissingDir(t *testing.T) {
	total, err := treeSize(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Zero(t, total)
}
