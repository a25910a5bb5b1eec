package btrfsutil

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
)

// ChunkOpKind selects which operation applyChunkOp performs for each leaf
// item visited while walking the chunk tree.
type ChunkOpKind int

const (
	ChunkOpLoad ChunkOpKind = iota
	ChunkOpDump
)

// ChunkOp is the tagged operation passed to the chunk-tree walk: Load
// populates Volume.chunks and Volume.devItems as a side effect, Dump
// collects every item it sees for pretty-printing.
type ChunkOp struct {
	Kind ChunkOpKind
	Dump []btrfstree.LeafItem
	Err  error
}

const keySize = 0x11

func decodeKeyAt(dat []byte) btrfsprim.Key {
	le := binary.LittleEndian
	return btrfsprim.Key{
		ObjectID: btrfsprim.ObjID(le.Uint64(dat[0x0:])),
		ItemType: btrfsprim.ItemType(dat[0x8]),
		Offset:   le.Uint64(dat[0x9:]),
	}
}

// bootstrapChunks parses the superblock's embedded system chunk array: a
// packed sequence of (Key, Chunk) records used to resolve enough of the
// chunk tree's own address before the real chunk tree can be read.
func bootstrapChunks(sb btrfstree.Superblock) ([]btrfsitem.Chunk, []btrfsprim.Key, error) {
	dat := sb.SysChunkArray[:sb.SysChunkArraySize]
	var chunks []btrfsitem.Chunk
	var keys []btrfsprim.Key
	for len(dat) > 0 {
		if len(dat) < keySize {
			return nil, nil, fmt.Errorf("btrfsutil: system chunk array: truncated key")
		}
		key := decodeKeyAt(dat)
		if key.ObjectID != btrfsprim.FIRST_CHUNK_TREE_OBJECTID || key.ItemType != btrfsprim.CHUNK_ITEM {
			return nil, nil, fmt.Errorf("btrfsutil: system chunk array: unexpected key %v", key)
		}
		chunk, n, err := btrfsitem.DecodeChunkAt(dat[keySize:])
		if err != nil {
			return nil, nil, fmt.Errorf("btrfsutil: system chunk array: %w", err)
		}
		chunks = append(chunks, chunk)
		keys = append(keys, key)
		dat = dat[keySize+n:]
	}
	return chunks, keys, nil
}

// bootstrapChunkManager loads the superblock's system chunk array as the
// chunk manager's initial contents, enough to resolve the real chunk
// tree's root address.
func (v *Volume) bootstrapChunkManager() error {
	chunks, keys, err := bootstrapChunks(v.super)
	if err != nil {
		return err
	}
	for i, c := range chunks {
		v.chunks.Insert(c.AsVolChunk(keys[i]))
	}
	v.state = stateChunksBootstrapped
	return nil
}

func applyChunkOp(op *ChunkOp, v *Volume) btrfstree.LeafHandler {
	return func(key btrfsprim.Key, item btrfstree.LeafItem) bool {
		switch op.Kind {
		case ChunkOpDump:
			op.Dump = append(op.Dump, item)
		case ChunkOpLoad:
			switch body := item.Body.(type) {
			case btrfsitem.Dev:
				v.devItems = append(v.devItems, body)
			case btrfsitem.Chunk:
				if key.ObjectID != btrfsprim.FIRST_CHUNK_TREE_OBJECTID {
					op.Err = fmt.Errorf("btrfsutil: chunk tree: unexpected key %v", key)
					return true
				}
				v.chunks.Insert(body.AsVolChunk(key))
			}
		}
		return false
	}
}

// loadChunkTree replaces the bootstrap chunk set with the contents of the
// real chunk tree, and collects every DEV_ITEM it finds along the way.
func (v *Volume) loadChunkTree(ctx context.Context) error {
	v.chunks.Reset()
	v.devItems = nil
	owner := btrfsprim.CHUNK_TREE_OBJECTID
	op := &ChunkOp{Kind: ChunkOpLoad}
	if err := btrfstree.Walk(ctx, v, &owner, v.super.ChunkTree, applyChunkOp(op, v)); err != nil {
		return fmt.Errorf("btrfsutil: load chunk tree: %w", err)
	}
	if op.Err != nil {
		return fmt.Errorf("btrfsutil: load chunk tree: %w", op.Err)
	}
	v.state = stateChunksLoaded
	return nil
}

// DumpChunkTree returns every leaf item of the chunk tree, in key order.
func (v *Volume) DumpChunkTree(ctx context.Context) ([]btrfstree.LeafItem, error) {
	if err := v.requireState(stateChunksLoaded); err != nil {
		return nil, err
	}
	owner := btrfsprim.CHUNK_TREE_OBJECTID
	op := &ChunkOp{Kind: ChunkOpDump}
	if err := btrfstree.Walk(ctx, v, &owner, v.super.ChunkTree, applyChunkOp(op, v)); err != nil {
		return nil, fmt.Errorf("btrfsutil: dump chunk tree: %w", err)
	}
	return op.Dump, nil
}
