package btrfstree_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfssum"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

const nodeSize = 0x1000

func encodeTestLeaf(t *testing.T, addr btrfsvol.LogicalAddr, owner btrfsprim.ObjID, gen btrfsprim.Generation, key btrfsprim.Key, body []byte) []byte {
	t.Helper()
	buf := make([]byte, nodeSize)
	le := binary.LittleEndian
	le.PutUint64(buf[0x30:], uint64(addr))
	le.PutUint64(buf[0x50:], uint64(gen))
	le.PutUint64(buf[0x58:], uint64(owner))
	le.PutUint32(buf[0x60:], 1) // NumItems
	buf[0x64] = 0               // Level=0 (leaf)

	itemHdr := buf[0x65:]
	le.PutUint64(itemHdr[0x0:], uint64(key.ObjectID))
	itemHdr[0x8] = byte(key.ItemType)
	le.PutUint64(itemHdr[0x9:], key.Offset)
	dataOffset := nodeSize - 0x65 - 0x19 - len(body)
	le.PutUint32(itemHdr[0x11:], uint32(dataOffset))
	le.PutUint32(itemHdr[0x15:], uint32(len(body)))
	copy(buf[0x65+dataOffset:], body)

	sum := btrfssum.Sum(0, buf[0x20:nodeSize])
	le.PutUint32(buf[0x0:], sum)
	return buf
}

func TestReadNodeLeaf(t *testing.T) {
	t.Parallel()
	key := btrfsprim.Key{ObjectID: 257, ItemType: btrfsprim.INODE_ITEM, Offset: 0}
	body := make([]byte, 0xa0)
	binary.LittleEndian.PutUint64(body[0x10:], 4096) // Size

	raw := encodeTestLeaf(t, 0x10000, btrfsprim.FS_TREE_OBJECTID, 7, key, body)

	node, err := btrfstree.ReadNode(raw, nodeSize, btrfstree.NodeExpectations{LAddr: 0x10000})
	require.NoError(t, err)
	require.Len(t, node.LeafItems, 1)
	assert.Equal(t, key, node.LeafItems[0].Key)
	inode, ok := node.LeafItems[0].Body.(btrfsitem.Inode)
	require.True(t, ok)
	assert.Equal(t, int64(4096), inode.Size)
}

func TestReadNodeBadChecksum(t *testing.T) {
	t.Parallel()
	key := btrfsprim.Key{ObjectID: 257, ItemType: btrfsprim.INODE_ITEM, Offset: 0}
	raw := encodeTestLeaf(t, 0x10000, btrfsprim.FS_TREE_OBJECTID, 7, key, make([]byte, 0xa0))
	raw[0x20] ^= 0xff // corrupt a body byte without fixing up the checksum

	_, err := btrfstree.ReadNode(raw, nodeSize, btrfstree.NodeExpectations{LAddr: 0x10000})
	assert.True(t, errors.Is(err, btrfstree.ErrBadChecksum))
}

func TestReadNodeWrongExpectedGeneration(t *testing.T) {
	t.Parallel()
	key := btrfsprim.Key{ObjectID: 257, ItemType: btrfsprim.INODE_ITEM, Offset: 0}
	raw := encodeTestLeaf(t, 0x10000, btrfsprim.FS_TREE_OBJECTID, 7, key, make([]byte, 0xa0))

	wantGen := btrfsprim.Generation(99)
	_, err := btrfstree.ReadNode(raw, nodeSize, btrfstree.NodeExpectations{LAddr: 0x10000, Generation: &wantGen})
	assert.Error(t, err)
}
