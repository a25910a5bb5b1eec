package btrfsitem

import (
	"encoding/binary"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
)

// RootRef links a subvolume to the directory entry that names it.
// ROOT_REF lives in the parent's key (key.objectid = parent tree ID,
// key.offset = child tree ID); ROOT_BACKREF is the same layout keyed the
// other way around (key.objectid = child tree ID, key.offset = parent
// tree ID).
type RootRef struct { // ROOT_REF=156 ROOT_BACKREF=144
	DirID    btrfsprim.ObjID // inode, within the other tree, that contains the dirent
	Sequence int64
	Name     []byte
}

func (RootRef) isItem() {}

const rootRefHeaderSize = 0x12

func decodeRootRef(dat []byte) (RootRef, error) {
	if err := needBytes(dat, rootRefHeaderSize); err != nil {
		return RootRef{}, err
	}
	le := binary.LittleEndian
	var o RootRef
	o.DirID = btrfsprim.ObjID(le.Uint64(dat[0x00:]))
	o.Sequence = int64(le.Uint64(dat[0x08:]))
	nameLen := le.Uint16(dat[0x10:])
	if err := needBytes(dat, rootRefHeaderSize+int(nameLen)); err != nil {
		return RootRef{}, err
	}
	o.Name = append([]byte(nil), dat[rootRefHeaderSize:rootRefHeaderSize+int(nameLen)]...)
	return o, nil
}
