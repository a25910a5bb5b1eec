package btrfsutil

import (
	"context"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// RootOpKind selects which operation applyRootOp performs for each leaf
// item visited while walking the root tree.
type RootOpKind int

const (
	RootOpLoad RootOpKind = iota
	RootOpDump
)

// RootOp is the tagged operation passed to the root-tree walk. Load just
// caches every leaf; the resulting cache answers getTreeRootAddr and the
// default-subvolume lookup without re-walking the tree.
type RootOp struct {
	Kind RootOpKind
	Dump []btrfstree.LeafItem
}

func applyRootOp(op *RootOp, v *Volume) btrfstree.LeafHandler {
	return func(key btrfsprim.Key, item btrfstree.LeafItem) bool {
		switch op.Kind {
		case RootOpDump:
			op.Dump = append(op.Dump, item)
		case RootOpLoad:
			v.roots = append(v.roots, item)
		}
		return false
	}
}

// loadRootTree caches every leaf of the root tree, then resolves the
// default subvolume from it.
func (v *Volume) loadRootTree(ctx context.Context) error {
	v.roots = nil
	owner := btrfsprim.ROOT_TREE_OBJECTID
	op := &RootOp{Kind: RootOpLoad}
	if err := btrfstree.Walk(ctx, v, &owner, v.super.RootTree, applyRootOp(op, v)); err != nil {
		return fmt.Errorf("btrfsutil: load root tree: %w", err)
	}
	v.state = stateRootLoaded
	v.resolveDefaultSubvolume()
	return nil
}

// resolveDefaultSubvolume scans the cached root tree for a DIR_ITEM keyed
// under ROOT_TREE_DIR; the first chained entry of the first such leaf
// names the default subvolume, overriding the FS_TREE fallback set at
// Volume construction.
func (v *Volume) resolveDefaultSubvolume() {
	for _, leaf := range v.roots {
		if leaf.Key.ObjectID != btrfsprim.ROOT_TREE_DIR_OBJECTID || leaf.Key.ItemType != btrfsprim.DIR_ITEM {
			continue
		}
		entries, ok := leaf.Body.(btrfsitem.DirList)
		if !ok || len(entries) == 0 {
			continue
		}
		v.defaultSubvol = entries[0].Location.ObjectID
		return
	}
}

// getTreeRootAddr finds the ROOT_ITEM naming treeID and returns the
// logical address and level of that tree's root node.
func (v *Volume) getTreeRootAddr(treeID btrfsprim.ObjID) (btrfsvol.LogicalAddr, uint8, error) {
	for _, leaf := range v.roots {
		if leaf.Key.ItemType != btrfsprim.ROOT_ITEM || leaf.Key.ObjectID != treeID {
			continue
		}
		root, ok := leaf.Body.(btrfsitem.Root)
		if !ok {
			continue
		}
		return root.ByteNr, root.Level, nil
	}
	return 0, 0, fmt.Errorf("btrfsutil: tree %v: %w", treeID, ENOTREE)
}

// DumpRootTree returns every leaf item of the root tree, in key order.
func (v *Volume) DumpRootTree(ctx context.Context) ([]btrfstree.LeafItem, error) {
	if err := v.requireState(stateRootLoaded); err != nil {
		return nil, err
	}
	owner := btrfsprim.ROOT_TREE_OBJECTID
	op := &RootOp{Kind: RootOpDump}
	if err := btrfstree.Walk(ctx, v, &owner, v.super.RootTree, applyRootOp(op, v)); err != nil {
		return nil, fmt.Errorf("btrfsutil: dump root tree: %w", err)
	}
	return op.Dump, nil
}
