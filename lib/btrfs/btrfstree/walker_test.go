package btrfstree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

type fakeSource map[btrfsvol.LogicalAddr]btrfstree.Node

func (f fakeSource) ReadNode(_ context.Context, addr btrfsvol.LogicalAddr, exp btrfstree.NodeExpectations) (btrfstree.Node, error) {
	node, ok := f[addr]
	if !ok {
		return btrfstree.Node{}, assert.AnError
	}
	if exp.Owner != nil && node.Header.Owner != *exp.Owner {
		return btrfstree.Node{}, assert.AnError
	}
	return node, nil
}

func key(objID btrfsprim.ObjID) btrfsprim.Key {
	return btrfsprim.Key{ObjectID: objID, ItemType: btrfsprim.INODE_ITEM}
}

func buildTestTree() (fakeSource, btrfsvol.LogicalAddr) {
	src := fakeSource{}
	owner := btrfsprim.FS_TREE_OBJECTID

	leafA := btrfstree.Node{
		Header:    btrfstree.NodeHeader{Owner: owner, Level: 0},
		LeafItems: []btrfstree.LeafItem{{Key: key(100)}, {Key: key(200)}},
	}
	leafB := btrfstree.Node{
		Header:    btrfstree.NodeHeader{Owner: owner, Level: 0},
		LeafItems: []btrfstree.LeafItem{{Key: key(300)}, {Key: key(400)}},
	}
	src[1] = leafA
	src[2] = leafB

	root := btrfstree.Node{
		Header: btrfstree.NodeHeader{Owner: owner, Level: 1},
		KeyPointers: []btrfstree.KeyPointer{
			{Key: key(100), BlockPtr: 1},
			{Key: key(300), BlockPtr: 2},
		},
	}
	src[3] = root
	return src, 3
}

func TestWalkVisitsInKeyOrder(t *testing.T) {
	t.Parallel()
	src, root := buildTestTree()
	owner := btrfsprim.FS_TREE_OBJECTID

	var got []btrfsprim.ObjID
	err := btrfstree.Walk(context.Background(), src, &owner, root, func(k btrfsprim.Key, _ btrfstree.LeafItem) bool {
		got = append(got, k.ObjectID)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []btrfsprim.ObjID{100, 200, 300, 400}, got)
}

func TestWalkShortCircuitStopsImmediately(t *testing.T) {
	t.Parallel()
	src, root := buildTestTree()
	owner := btrfsprim.FS_TREE_OBJECTID

	var got []btrfsprim.ObjID
	err := btrfstree.Walk(context.Background(), src, &owner, root, func(k btrfsprim.Key, _ btrfstree.LeafItem) bool {
		got = append(got, k.ObjectID)
		return k.ObjectID == 200
	})
	require.NoError(t, err)
	assert.Equal(t, []btrfsprim.ObjID{100, 200}, got)
}

func TestWalkRejectsWrongOwner(t *testing.T) {
	t.Parallel()
	src, root := buildTestTree()
	wrongOwner := btrfsprim.ObjID(999)

	err := btrfstree.Walk(context.Background(), src, &wrongOwner, root, func(btrfsprim.Key, btrfstree.LeafItem) bool {
		t.Fatal("handler should not be called")
		return false
	})
	assert.Error(t, err)
}
