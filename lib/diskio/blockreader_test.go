package diskio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/diskio"
)

func TestBlockReaderCaches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	data := make([]byte, 0x10000)
	for i := range data {
		data[i] = byte(i)
	}
	r := diskio.NewBlockReader(4)
	r.AddDevice("dev0", diskio.NewMemFile("dev0", data))

	got, err := r.ReadAt(ctx, "dev0", 0x100, 0x10)
	require.NoError(t, err)
	assert.Equal(t, data[0x100:0x110], got)
	assert.Equal(t, 1, r.CacheLen())

	// second read of the same block is served from cache and returns the
	// identical bytes
	got2, err := r.ReadAt(ctx, "dev0", 0x100, 0x10)
	require.NoError(t, err)
	assert.Equal(t, got, got2)
	assert.Equal(t, 1, r.CacheLen())
}

func TestBlockReaderUnknownDevice(t *testing.T) {
	t.Parallel()
	r := diskio.NewBlockReader(4)
	_, err := r.ReadAt(context.Background(), "missing", 0, 8)
	assert.Error(t, err)
}
