package btrfsitem_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfssum"
)

func encodeDirEntry(t *testing.T, loc btrfsprim.Key, transID int64, typ btrfsitem.FileType, name, data []byte) []byte {
	t.Helper()
	buf := make([]byte, 0x1e+len(name)+len(data))
	le := binary.LittleEndian
	le.PutUint64(buf[0x0:], uint64(loc.ObjectID))
	buf[0x8] = byte(loc.ItemType)
	le.PutUint64(buf[0x9:], loc.Offset)
	le.PutUint64(buf[0x11:], uint64(transID))
	le.PutUint16(buf[0x19:], uint16(len(data)))
	le.PutUint16(buf[0x1b:], uint16(len(name)))
	buf[0x1d] = byte(typ)
	copy(buf[0x1e:], name)
	copy(buf[0x1e+len(name):], data)
	return buf
}

func TestDecodeDirEntryChain(t *testing.T) {
	t.Parallel()
	loc := btrfsprim.Key{ObjectID: 257, ItemType: btrfsprim.INODE_ITEM, Offset: 0}
	e1 := encodeDirEntry(t, loc, 7, btrfsitem.FT_REG_FILE, []byte("foo"), nil)
	e2 := encodeDirEntry(t, loc, 7, btrfsitem.FT_DIR, []byte("bar"), nil)

	item := btrfsitem.Decode(btrfsprim.Key{ItemType: btrfsprim.DIR_ITEM}, append(e1, e2...))
	list, ok := item.(btrfsitem.DirList)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "foo", string(list[0].Name))
	assert.Equal(t, btrfsitem.FT_REG_FILE, list[0].Type)
	assert.Equal(t, "bar", string(list[1].Name))
	assert.Equal(t, btrfsitem.FT_DIR, list[1].Type)
}

func TestNameHashIsNotPlainCRC(t *testing.T) {
	t.Parallel()
	h := btrfsitem.NameHash([]byte("lost+found"))
	assert.NotEqual(t, uint64(0), h)
	// NameHash inverts a seed=1 CRC-32C, so it must never collapse to the
	// plain CRC32C(0, ...) of the same bytes.
	assert.NotEqual(t, uint64(btrfssum.Sum(0, []byte("lost+found"))), h)
}

func TestDecodeUnknownItemType(t *testing.T) {
	t.Parallel()
	item := btrfsitem.Decode(btrfsprim.Key{ItemType: 123}, []byte{1, 2, 3})
	unk, ok := item.(btrfsitem.Unknown)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, unk.Data)
}
