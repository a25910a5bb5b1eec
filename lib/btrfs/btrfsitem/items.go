// Package btrfsitem decodes the body of a single b-tree leaf item into a
// typed Go value, keyed off of the item's Key.ItemType.
package btrfsitem

import (
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
)

// Item is the decoded body of a leaf item. Concrete types are Inode,
// InodeRef, DirList, FileExtent, Root, RootRef, Dev, Chunk, Unknown for
// anything this reader doesn't recognize, and Malformed for a known type
// that failed to decode.
type Item interface {
	isItem()
}

// Unknown wraps the raw bytes of an item whose type this reader does not
// decode (extent-tree bookkeeping, quota groups, free-space cache, and
// similar allocator-internal records are out of scope).
type Unknown struct {
	Type btrfsprim.ItemType
	Data []byte
}

func (Unknown) isItem() {}

// Malformed wraps an item that matched a known type but failed to decode,
// along with the error explaining why. Dump/walk operations surface these
// rather than aborting.
type Malformed struct {
	Type btrfsprim.ItemType
	Data []byte
	Err  error
}

func (Malformed) isItem() {}

func (m Malformed) Error() string { return m.Err.Error() }

// Decode parses the body of a leaf item according to key.ItemType.
func Decode(key btrfsprim.Key, data []byte) Item {
	var item Item
	var err error
	switch key.ItemType {
	case btrfsprim.INODE_ITEM:
		item, err = decodeInode(data)
	case btrfsprim.INODE_REF:
		item, err = decodeInodeRef(data)
	case btrfsprim.XATTR_ITEM, btrfsprim.DIR_ITEM, btrfsprim.DIR_INDEX:
		item, err = decodeDirEntry(data)
	case btrfsprim.EXTENT_DATA:
		item, err = decodeFileExtent(data)
	case btrfsprim.ROOT_ITEM:
		item, err = decodeRoot(data)
	case btrfsprim.ROOT_BACKREF, btrfsprim.ROOT_REF:
		item, err = decodeRootRef(data)
	case btrfsprim.DEV_ITEM:
		item, err = decodeDev(data)
	case btrfsprim.CHUNK_ITEM:
		item, err = decodeChunkExact(data)
	default:
		return Unknown{Type: key.ItemType, Data: data}
	}
	if err != nil {
		return Malformed{Type: key.ItemType, Data: data, Err: fmt.Errorf("btrfsitem: decode %v: %w", key.ItemType, err)}
	}
	return item
}

func needBytes(dat []byte, n int) error {
	if len(dat) < n {
		return fmt.Errorf("need at least %d bytes, only have %d", n, len(dat))
	}
	return nil
}
