package btrfsitem

import (
	"encoding/binary"
	"fmt"
)

// InodeRef names the parent-directory link(s) for a hardlinked inode.
//
//	key.objectid = inode number of the file
//	key.offset   = inode number of the parent directory
type InodeRef struct { // INODE_REF=12
	Index int64
	Name  []byte
}

func (InodeRef) isItem() {}

func decodeInodeRef(dat []byte) (InodeRef, error) {
	if err := needBytes(dat, 0xa); err != nil {
		return InodeRef{}, err
	}
	le := binary.LittleEndian
	var o InodeRef
	o.Index = int64(le.Uint64(dat[0x0:]))
	nameLen := le.Uint16(dat[0x8:])
	if nameLen > MaxNameLen {
		return InodeRef{}, fmt.Errorf("name length %d exceeds maximum %d", nameLen, MaxNameLen)
	}
	if err := needBytes(dat, 0xa+int(nameLen)); err != nil {
		return InodeRef{}, err
	}
	o.Name = append([]byte(nil), dat[0xa:0xa+int(nameLen)]...)
	return o, nil
}
