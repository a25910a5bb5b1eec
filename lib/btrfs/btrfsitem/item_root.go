package btrfsitem

import (
	"encoding/binary"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
	"go.btrfsro.dev/btrfsro/lib/fmtutil"
)

// Root defines one of the filesystem's trees (a subvolume, or a snapshot
// of one). Every tree except ROOT_TREE, CHUNK_TREE, TREE_LOG, and
// BLOCK_GROUP_TREE (which are addressed directly from the superblock) has
// a Root describing it.
//
//	key.objectid = tree ID
//	key.offset   = 0, or the transaction ID the snapshot was taken at
type Root struct { // ROOT_ITEM=132
	Inode        Inode
	Generation   btrfsprim.Generation
	RootDirID    btrfsprim.ObjID
	ByteNr       btrfsvol.LogicalAddr // address of this tree's root node
	BytesUsed    int64
	LastSnapshot int64
	Flags        RootFlags
	Refs         int32
	Level        uint8
	UUID         btrfsprim.UUID
	ParentUUID   btrfsprim.UUID
	ReceivedUUID btrfsprim.UUID
	CTime        btrfsprim.Time
	OTime        btrfsprim.Time
}

func (Root) isItem() {}

const rootItemSize = 0x1b7

func decodeRoot(dat []byte) (Root, error) {
	if err := needBytes(dat, rootItemSize); err != nil {
		return Root{}, err
	}
	le := binary.LittleEndian
	var o Root
	inode, err := decodeInode(dat[0x000:0x0a0])
	if err != nil {
		return Root{}, err
	}
	o.Inode = inode
	o.Generation = btrfsprim.Generation(le.Uint64(dat[0x0a0:]))
	o.RootDirID = btrfsprim.ObjID(le.Uint64(dat[0x0a8:]))
	o.ByteNr = btrfsvol.LogicalAddr(le.Uint64(dat[0x0b0:]))
	// 0x0b8 ByteLimit: always 0, unused
	o.BytesUsed = int64(le.Uint64(dat[0x0c0:]))
	o.LastSnapshot = int64(le.Uint64(dat[0x0c8:]))
	o.Flags = RootFlags(le.Uint64(dat[0x0d0:]))
	o.Refs = int32(le.Uint32(dat[0x0d8:]))
	// 0x0dc..0x0ed DropProgress Key, 0x0ed DropLevel: unused by a read-only reader
	o.Level = dat[0x0ee]
	// 0x0ef GenerationV2 duplicates Generation once it has been written by a
	// newer kernel; a read-only reader has no reason to prefer it.
	copy(o.UUID[:], dat[0x0f7:0x107])
	copy(o.ParentUUID[:], dat[0x107:0x117])
	copy(o.ReceivedUUID[:], dat[0x117:0x127])
	o.CTime = decodeTime(dat[0x147:])
	o.OTime = decodeTime(dat[0x153:])
	return o, nil
}

type RootFlags uint64

const (
	ROOT_SUBVOL_RDONLY RootFlags = 1 << iota
)

var rootFlagNames = []string{"SUBVOL_RDONLY"}

func (f RootFlags) Has(req RootFlags) bool { return f&req == req }
func (f RootFlags) String() string         { return fmtutil.BitfieldString(f, rootFlagNames, fmtutil.HexLower) }
