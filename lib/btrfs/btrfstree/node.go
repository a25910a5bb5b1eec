package btrfstree

import (
	"encoding/binary"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfssum"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// NodeHeader is the fixed-size header shared by every b-tree node,
// whether it is a leaf (Level == 0) or an internal node.
type NodeHeader struct {
	Checksum      [32]byte
	FSUUID        btrfsprim.UUID
	Addr          btrfsvol.LogicalAddr // this node's own logical address
	Flags         uint64
	ChunkTreeUUID btrfsprim.UUID
	Generation    btrfsprim.Generation
	Owner         btrfsprim.ObjID // tree ID this node belongs to
	NumItems      uint32
	Level         uint8
}

// NodeHeaderSize is the size, in bytes, of the encoded NodeHeader.
const NodeHeaderSize = 0x65

// LeafItem is one entry of a leaf node: a key and the decoded item body it
// points to.
type LeafItem struct {
	Key  btrfsprim.Key
	Body btrfsitem.Item
}

// KeyPointer is one entry of an internal node: a key and the address of
// the child node that owns every item with a key >= this one (and < the
// next sibling key pointer's key).
type KeyPointer struct {
	Key        btrfsprim.Key
	BlockPtr   btrfsvol.LogicalAddr
	Generation btrfsprim.Generation
}

// Node is a fully decoded b-tree node: its header plus either leaf items
// (Level == 0) or internal key pointers.
type Node struct {
	Header       NodeHeader
	LeafItems    []LeafItem
	KeyPointers  []KeyPointer
}

// NodeExpectations constrains what ReadNode will accept, derived from the
// context the node is being read in (the address it was read at, and, if
// reached via a parent's KeyPointer, what that pointer promised).
type NodeExpectations struct {
	LAddr      btrfsvol.LogicalAddr
	Generation *btrfsprim.Generation
	Owner      *btrfsprim.ObjID
}

func decodeKey(dat []byte) btrfsprim.Key {
	le := binary.LittleEndian
	return btrfsprim.Key{
		ObjectID: btrfsprim.ObjID(le.Uint64(dat[0x0:])),
		ItemType: btrfsprim.ItemType(dat[0x8]),
		Offset:   le.Uint64(dat[0x9:]),
	}
}

func decodeNodeHeader(dat []byte) NodeHeader {
	le := binary.LittleEndian
	var h NodeHeader
	copy(h.Checksum[:], dat[0x0:0x20])
	copy(h.FSUUID[:], dat[0x20:0x30])
	h.Addr = btrfsvol.LogicalAddr(le.Uint64(dat[0x30:]))
	h.Flags = le.Uint64(dat[0x38:]) & 0x00ff_ffff_ffff_ffff // low 7 bytes; the 8th is backref_rev
	copy(h.ChunkTreeUUID[:], dat[0x40:0x50])
	h.Generation = btrfsprim.Generation(le.Uint64(dat[0x50:]))
	h.Owner = btrfsprim.ObjID(le.Uint64(dat[0x58:]))
	h.NumItems = le.Uint32(dat[0x60:])
	h.Level = dat[0x64]
	return h
}

// ReadNode decodes and validates the node at nodeSize bytes starting at
// dat[0]. It verifies the magic-equivalent CRC-32C checksum and checks
// dat against exp; a checksum mismatch is always an error (node decode
// failure is fatal: a reader has no redundant copy of tree data to fall
// back to).
func ReadNode(dat []byte, nodeSize uint32, exp NodeExpectations) (Node, error) {
	if uint32(len(dat)) < nodeSize {
		return Node{}, fmt.Errorf("btrfstree: node: need %d bytes, got %d: %w", nodeSize, len(dat), ErrIO)
	}
	dat = dat[:nodeSize]

	got := btrfssum.Sum(0, dat[0x20:nodeSize])
	want := binary.LittleEndian.Uint32(dat[:4])
	if got != want {
		return Node{}, fmt.Errorf("btrfstree: node at %v: computed %#08x, on-disk %#08x: %w",
			exp.LAddr, got, want, ErrBadChecksum)
	}

	header := decodeNodeHeader(dat)
	if header.Addr != exp.LAddr {
		return Node{}, fmt.Errorf("btrfstree: node read at %v claims address %v", exp.LAddr, header.Addr)
	}
	if exp.Generation != nil && header.Generation != *exp.Generation {
		return Node{}, fmt.Errorf("btrfstree: node at %v: expected generation %v, got %v",
			exp.LAddr, *exp.Generation, header.Generation)
	}
	if exp.Owner != nil && header.Owner != *exp.Owner {
		return Node{}, fmt.Errorf("btrfstree: node at %v: expected owner %v, got %v",
			exp.LAddr, *exp.Owner, header.Owner)
	}

	node := Node{Header: header}
	body := dat[NodeHeaderSize:]
	if header.Level == 0 {
		items, err := decodeLeafItems(body, header.NumItems, dat)
		if err != nil {
			return Node{}, fmt.Errorf("btrfstree: node at %v: %w", exp.LAddr, err)
		}
		node.LeafItems = items
	} else {
		ptrs, err := decodeKeyPointers(body, header.NumItems)
		if err != nil {
			return Node{}, fmt.Errorf("btrfstree: node at %v: %w", exp.LAddr, err)
		}
		node.KeyPointers = ptrs
	}
	return node, nil
}

const itemHeaderSize = 0x19
const keyPointerSize = 0x21

func decodeLeafItems(itemHeaders []byte, numItems uint32, fullNode []byte) ([]LeafItem, error) {
	items := make([]LeafItem, numItems)
	le := binary.LittleEndian
	for i := range items {
		off := i * itemHeaderSize
		if off+itemHeaderSize > len(itemHeaders) {
			return nil, fmt.Errorf("item %d: header out of bounds", i)
		}
		hdr := itemHeaders[off:]
		key := decodeKey(hdr)
		dataOffset := le.Uint32(hdr[0x11:])
		dataSize := le.Uint32(hdr[0x15:])
		start := NodeHeaderSize + int(dataOffset)
		end := start + int(dataSize)
		if start < 0 || end > len(fullNode) || start > end {
			return nil, fmt.Errorf("item %d: body out of bounds", i)
		}
		items[i] = LeafItem{
			Key:  key,
			Body: btrfsitem.Decode(key, fullNode[start:end]),
		}
	}
	return items, nil
}

func decodeKeyPointers(dat []byte, numItems uint32) ([]KeyPointer, error) {
	ptrs := make([]KeyPointer, numItems)
	le := binary.LittleEndian
	for i := range ptrs {
		off := i * keyPointerSize
		if off+keyPointerSize > len(dat) {
			return nil, fmt.Errorf("key pointer %d: out of bounds", i)
		}
		kp := dat[off:]
		ptrs[i] = KeyPointer{
			Key:        decodeKey(kp),
			BlockPtr:   btrfsvol.LogicalAddr(le.Uint64(kp[0x11:])),
			Generation: btrfsprim.Generation(le.Uint64(kp[0x19:])),
		}
	}
	return ptrs, nil
}
