package btrfsitem

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
)

func encodeChunkBody(numStripes uint16, extra int) []byte {
	le := binary.LittleEndian
	buf := make([]byte, chunkHeaderSize+int(numStripes)*chunkStripeSize+extra)
	le.PutUint64(buf[0x00:], 0x400000) // size
	le.PutUint16(buf[0x2c:], numStripes)
	for i := 0; i < int(numStripes); i++ {
		s := buf[chunkHeaderSize+i*chunkStripeSize:]
		le.PutUint64(s[0x00:], 1)
		le.PutUint64(s[0x08:], uint64(i)*0x1000)
	}
	return buf
}

func TestDecodeChunkRejectsZeroStripes(t *testing.T) {
	t.Parallel()
	_, err := decodeChunk(encodeChunkBody(0, 0))
	assert.Error(t, err)
}

func TestDecodeChunkExactAcceptsExactLength(t *testing.T) {
	t.Parallel()
	c, err := decodeChunkExact(encodeChunkBody(2, 0))
	require.NoError(t, err)
	assert.Len(t, c.Stripes, 2)
}

func TestDecodeChunkExactRejectsTrailingGarbage(t *testing.T) {
	t.Parallel()
	_, err := decodeChunkExact(encodeChunkBody(2, 8))
	assert.Error(t, err)
}

func TestDecodeDispatchesChunkItemThroughExactDecoder(t *testing.T) {
	t.Parallel()
	item := Decode(btrfsprim.Key{ItemType: btrfsprim.CHUNK_ITEM}, encodeChunkBody(1, 4))
	_, ok := item.(Malformed)
	assert.True(t, ok, "trailing bytes past the declared stripe count must be rejected")
}
