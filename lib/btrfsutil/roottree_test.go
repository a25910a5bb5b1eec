package btrfsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
)

func TestGetTreeRootAddrFindsMatchingRootItem(t *testing.T) {
	t.Parallel()
	v := newVolume(nil, "")
	v.roots = []btrfstree.LeafItem{
		{
			Key:  btrfsprim.Key{ObjectID: 257, ItemType: btrfsprim.ROOT_ITEM},
			Body: btrfsitem.Root{ByteNr: 0x5000, Level: 0},
		},
	}

	addr, level, err := v.getTreeRootAddr(257)
	require.NoError(t, err)
	assert.EqualValues(t, 0x5000, addr)
	assert.Equal(t, uint8(0), level)

	_, _, err = v.getTreeRootAddr(999)
	assert.ErrorIs(t, err, ENOTREE)
}

func TestResolveDefaultSubvolumeTakesFirstChainedEntry(t *testing.T) {
	t.Parallel()
	v := newVolume(nil, "")
	v.roots = []btrfstree.LeafItem{
		{
			Key: btrfsprim.Key{ObjectID: btrfsprim.ROOT_TREE_DIR_OBJECTID, ItemType: btrfsprim.DIR_ITEM},
			Body: btrfsitem.DirList{
				{Name: []byte("default"), Location: btrfsprim.Key{ObjectID: 257}},
			},
		},
	}

	v.resolveDefaultSubvolume()
	assert.Equal(t, btrfsprim.ObjID(257), v.defaultSubvol)
}

func TestResolveDefaultSubvolumeIgnoresEntryName(t *testing.T) {
	t.Parallel()
	// spec.md names no filter: the first chained entry of the first
	// matching DIR_ITEM leaf wins regardless of its name.
	v := newVolume(nil, "")
	v.roots = []btrfstree.LeafItem{
		{
			Key: btrfsprim.Key{ObjectID: btrfsprim.ROOT_TREE_DIR_OBJECTID, ItemType: btrfsprim.DIR_ITEM},
			Body: btrfsitem.DirList{
				{Name: []byte("not-default"), Location: btrfsprim.Key{ObjectID: 300}},
				{Name: []byte("default"), Location: btrfsprim.Key{ObjectID: 257}},
			},
		},
	}

	v.resolveDefaultSubvolume()
	assert.Equal(t, btrfsprim.ObjID(300), v.defaultSubvol)
}

func TestResolveDefaultSubvolumeFallsBackWhenAbsent(t *testing.T) {
	t.Parallel()
	v := newVolume(nil, "")
	v.resolveDefaultSubvolume()
	assert.Equal(t, btrfsprim.FS_TREE_OBJECTID, v.defaultSubvol)
}
