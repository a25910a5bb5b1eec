package btrfsitem

import (
	"encoding/binary"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfssum"
)

const MaxNameLen = 255

// NameHash computes the directory-entry name hash used as the Offset field
// of DIR_ITEM and XATTR_ITEM keys. It reuses the CRC-32C primitive with
// seed 1 and inverts the result; it is not the same value as
// btrfssum.Sum(0, name).
func NameHash(name []byte) uint64 {
	return uint64(^btrfssum.Sum(1, name))
}

// DirEntry is one entry of a DIR_ITEM, DIR_INDEX, or XATTR_ITEM. On disk,
// multiple DirEntry records with colliding NameHash offsets are packed
// back-to-back in one item body; decodeDirEntry splits that item body
// back into the individual entries.
//
//	key.objectid = inode of the directory containing this entry
//	key.offset   = NameHash(name) for DIR_ITEM/XATTR_ITEM; index (starting
//	               at 2, after "." and "..") for DIR_INDEX
type DirEntry struct { // DIR_ITEM=84 DIR_INDEX=96 XATTR_ITEM=24
	Location btrfsprim.Key
	TransID  int64
	Type     FileType
	Data     []byte // xattr value; empty for DIR_ITEM/DIR_INDEX
	Name     []byte
}

// DirList is the decoded item body: the chain of DirEntry records packed
// into one leaf item.
type DirList []DirEntry

func (DirList) isItem() {}

const dirEntryHeaderSize = 0x1e

func decodeDirEntry(dat []byte) (DirList, error) {
	var entries DirList
	for len(dat) > 0 {
		if err := needBytes(dat, dirEntryHeaderSize); err != nil {
			return nil, err
		}
		le := binary.LittleEndian
		var e DirEntry
		e.Location = btrfsprim.Key{
			ObjectID: btrfsprim.ObjID(le.Uint64(dat[0x0:])),
			ItemType: btrfsprim.ItemType(dat[0x8]),
			Offset:   le.Uint64(dat[0x9:]),
		}
		e.TransID = int64(le.Uint64(dat[0x11:]))
		dataLen := le.Uint16(dat[0x19:])
		nameLen := le.Uint16(dat[0x1b:])
		e.Type = FileType(dat[0x1d])
		if nameLen > MaxNameLen {
			return nil, fmt.Errorf("maximum name length is %d, but got %d", MaxNameLen, nameLen)
		}
		total := dirEntryHeaderSize + int(nameLen) + int(dataLen)
		if err := needBytes(dat, total); err != nil {
			return nil, err
		}
		e.Name = append([]byte(nil), dat[dirEntryHeaderSize:dirEntryHeaderSize+int(nameLen)]...)
		e.Data = append([]byte(nil), dat[dirEntryHeaderSize+int(nameLen):total]...)
		entries = append(entries, e)
		dat = dat[total:]
	}
	return entries, nil
}

type FileType uint8

const (
	FT_UNKNOWN FileType = iota
	FT_REG_FILE
	FT_DIR
	FT_CHRDEV
	FT_BLKDEV
	FT_FIFO
	FT_SOCK
	FT_SYMLINK
	FT_XATTR

	ftMax
)

var fileTypeNames = []string{
	"UNKNOWN", "FILE", "DIR", "CHRDEV", "BLKDEV", "FIFO", "SOCK", "SYMLINK", "XATTR",
}

func (ft FileType) String() string {
	if ft < ftMax {
		return fileTypeNames[ft]
	}
	return fmt.Sprintf("DIR_ITEM.%d", uint8(ft))
}
