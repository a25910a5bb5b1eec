// Package btrfsprim holds the primitive identifiers and value types that
// appear throughout the on-disk format: object IDs, item types, keys,
// generations, timestamps, and UUIDs.
package btrfsprim

import "fmt"

// ObjID is the first field of a Key. Its meaning depends on which tree it
// is found in.
type ObjID uint64

const maxUint64pp = 0x1_00000000_00000000

const (
	ROOT_TREE_OBJECTID        ObjID = 1
	EXTENT_TREE_OBJECTID      ObjID = 2
	CHUNK_TREE_OBJECTID       ObjID = 3
	DEV_TREE_OBJECTID         ObjID = 4
	FS_TREE_OBJECTID          ObjID = 5
	ROOT_TREE_DIR_OBJECTID    ObjID = 6
	CSUM_TREE_OBJECTID        ObjID = 7
	QUOTA_TREE_OBJECTID       ObjID = 8
	UUID_TREE_OBJECTID        ObjID = 9
	FREE_SPACE_TREE_OBJECTID  ObjID = 10
	BLOCK_GROUP_TREE_OBJECTID ObjID = 11

	TREE_LOG_OBJECTID ObjID = maxUint64pp - 6

	FIRST_FREE_OBJECTID ObjID = 256
	LAST_FREE_OBJECTID  ObjID = maxUint64pp - 256

	DEV_ITEMS_OBJECTID        ObjID = 1
	FIRST_CHUNK_TREE_OBJECTID ObjID = 256
)

var wellKnownTreeNames = map[ObjID]string{
	ROOT_TREE_OBJECTID:        "ROOT_TREE",
	EXTENT_TREE_OBJECTID:      "EXTENT_TREE",
	CHUNK_TREE_OBJECTID:       "CHUNK_TREE",
	DEV_TREE_OBJECTID:         "DEV_TREE",
	FS_TREE_OBJECTID:          "FS_TREE",
	ROOT_TREE_DIR_OBJECTID:    "ROOT_TREE_DIR",
	CSUM_TREE_OBJECTID:        "CSUM_TREE",
	QUOTA_TREE_OBJECTID:       "QUOTA_TREE",
	UUID_TREE_OBJECTID:        "UUID_TREE",
	FREE_SPACE_TREE_OBJECTID:  "FREE_SPACE_TREE",
	BLOCK_GROUP_TREE_OBJECTID: "BLOCK_GROUP_TREE",
	TREE_LOG_OBJECTID:         "TREE_LOG",
}

func (id ObjID) String() string {
	if name, ok := wellKnownTreeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("%d", uint64(id))
}
