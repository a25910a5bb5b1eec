package btrfsitem

import (
	"encoding/binary"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/fmtutil"
)

// Inode is a file/dir/whatever in the filesystem.
//
//	key.objectid = inode number
//	key.offset   = 0
type Inode struct { // INODE_ITEM=1
	Generation btrfsprim.Generation
	TransID    int64
	Size       int64 // stat
	NumBytes   int64 // allocated bytes, may differ from Size if there are holes
	BlockGroup btrfsprim.ObjID
	NLink      int32
	UID        int32
	GID        int32
	Mode       uint32
	RDev       int64
	Flags      InodeFlags
	Sequence   int64
	ATime      btrfsprim.Time
	CTime      btrfsprim.Time
	MTime      btrfsprim.Time
	OTime      btrfsprim.Time
}

func (Inode) isItem() {}

const inodeItemSize = 0xa0

func decodeInode(dat []byte) (Inode, error) {
	if err := needBytes(dat, inodeItemSize); err != nil {
		return Inode{}, err
	}
	le := binary.LittleEndian
	var o Inode
	o.Generation = btrfsprim.Generation(le.Uint64(dat[0x00:]))
	o.TransID = int64(le.Uint64(dat[0x08:]))
	o.Size = int64(le.Uint64(dat[0x10:]))
	o.NumBytes = int64(le.Uint64(dat[0x18:]))
	o.BlockGroup = btrfsprim.ObjID(le.Uint64(dat[0x20:]))
	o.NLink = int32(le.Uint32(dat[0x28:]))
	o.UID = int32(le.Uint32(dat[0x2c:]))
	o.GID = int32(le.Uint32(dat[0x30:]))
	o.Mode = le.Uint32(dat[0x34:])
	o.RDev = int64(le.Uint64(dat[0x38:]))
	o.Flags = InodeFlags(le.Uint64(dat[0x40:]))
	o.Sequence = int64(le.Uint64(dat[0x48:]))
	// 0x50..0x70 reserved
	o.ATime = decodeTime(dat[0x70:])
	o.CTime = decodeTime(dat[0x7c:])
	o.MTime = decodeTime(dat[0x88:])
	o.OTime = decodeTime(dat[0x94:])
	return o, nil
}

func decodeTime(dat []byte) btrfsprim.Time {
	le := binary.LittleEndian
	return btrfsprim.Time{
		Sec:  int64(le.Uint64(dat[0x0:])),
		NSec: le.Uint32(dat[0x8:]),
	}
}

type InodeFlags uint64

const (
	INODE_NODATASUM InodeFlags = 1 << iota
	INODE_NODATACOW
	INODE_READONLY
	INODE_NOCOMPRESS
	INODE_PREALLOC
	INODE_SYNC
	INODE_IMMUTABLE
	INODE_APPEND
	INODE_NODUMP
	INODE_NOATIME
	INODE_DIRSYNC
	INODE_COMPRESS
)

var inodeFlagNames = []string{
	"NODATASUM", "NODATACOW", "READONLY", "NOCOMPRESS", "PREALLOC",
	"SYNC", "IMMUTABLE", "APPEND", "NODUMP", "NOATIME", "DIRSYNC", "COMPRESS",
}

func (f InodeFlags) Has(req InodeFlags) bool { return f&req == req }
func (f InodeFlags) String() string {
	return fmtutil.BitfieldString(f, inodeFlagNames, fmtutil.HexLower)
}
