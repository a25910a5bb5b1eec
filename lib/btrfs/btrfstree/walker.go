package btrfstree

import (
	"context"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// NodeSource is whatever can load a node by logical address. A Volume
// satisfies this once it has a block reader and chunk manager to resolve
// through.
type NodeSource interface {
	ReadNode(ctx context.Context, addr btrfsvol.LogicalAddr, exp NodeExpectations) (Node, error)
}

// LeafHandler is invoked once per leaf item, in key order. Returning
// shortCircuit=true aborts the remainder of the walk immediately: no
// further leaf item in this node, nor any later sibling or descendant
// node, is visited.
type LeafHandler func(key btrfsprim.Key, item LeafItem) (shortCircuit bool)

// Walk performs a depth-first descent of the tree rooted at addr,
// invoking handle once per leaf item in canonical key order.
//
// If owner is non-nil, every node visited (leaf and internal) must claim
// owner as its header's Owner field, or the walk fails. The chunk-tree
// and root-tree walks pass their own tree ID here; the FS-tree walk
// passes nil, since resolving some items (e.g. shared extents) can
// require following pointers into nodes owned by other trees.
func Walk(ctx context.Context, src NodeSource, owner *btrfsprim.ObjID, addr btrfsvol.LogicalAddr, handle LeafHandler) error {
	_, err := walk(ctx, src, owner, addr, handle)
	return err
}

func walk(ctx context.Context, src NodeSource, owner *btrfsprim.ObjID, addr btrfsvol.LogicalAddr, handle LeafHandler) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	node, err := src.ReadNode(ctx, addr, NodeExpectations{LAddr: addr, Owner: owner})
	if err != nil {
		return false, fmt.Errorf("btrfstree: walk: node at %v: %w", addr, err)
	}

	if node.Header.Level == 0 {
		for _, item := range node.LeafItems {
			if handle(item.Key, item) {
				return true, nil
			}
		}
		return false, nil
	}

	for _, kp := range node.KeyPointers {
		shortCircuit, err := walk(ctx, src, owner, kp.BlockPtr, handle)
		if err != nil {
			return false, err
		}
		if shortCircuit {
			return true, nil
		}
	}
	return false, nil
}
