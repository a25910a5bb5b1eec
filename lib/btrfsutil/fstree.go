package btrfsutil

import (
	"bytes"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
)

// FsOpKind selects which of the four FS-tree queries applyFsOp answers.
type FsOpKind int

const (
	FsOpDumpTree FsOpKind = iota
	FsOpNameToID
	FsOpGetFilePkg
	FsOpDirList
)

// GET_FILE_PKG completion bits: Needed starts as the OR of whichever of
// these apply and must reach zero for the package to be considered
// resolved. pkgNeedParentName is omitted for the root dir, which has no
// parent; pkgNeedExtent is cleared early for directories, which have no
// EXTENT_DATA items of their own.
const (
	pkgNeedInode      = 1 << 0
	pkgNeedParentName = 1 << 1
	pkgNeedExtent     = 1 << 2
)

// POSIX inode type bits, tested against btrfsitem.Inode.Mode.
const (
	modeTypeMask = 0o170000
	modeDir      = 0o040000
)

// FileExtentEntry pairs one EXTENT_DATA item with the key it was stored
// at, so the offset of the extent within its file survives alongside
// the payload.
type FileExtentEntry struct {
	Key  btrfsprim.Key
	Data btrfsitem.FileExtent
}

// FilePkg bundles everything known about one directory entry: its
// INODE_ITEM, the (parent, name) pair recovered from the DIR_ITEM chain
// that references it, and, for GET_FILE_PKG, its EXTENT_DATA items in
// key order. DIR_LIST reuses the same shape for each entry it returns,
// including the synthesized "." and ".." entries.
type FilePkg struct {
	ObjectID  btrfsprim.ObjID
	Inode     btrfsitem.Inode
	HaveInode bool
	ParentID  btrfsprim.ObjID
	Name      []byte
	HaveName  bool
	Hidden    bool
	Extents   []FileExtentEntry
}

// FsOp is the tagged operation passed to the FS-tree walk. Only the
// fields relevant to Kind are meaningful; the rest carry the query's
// inputs and, by the time the walk returns, its outputs.
type FsOp struct {
	Kind FsOpKind

	// NAME_TO_ID input
	ParentID btrfsprim.ObjID
	Name     []byte

	// GET_FILE_PKG / DIR_LIST input. For DIR_LIST, Entries should already
	// hold the seeded "." entry (absent for the root dir) before the walk
	// begins.
	Target  btrfsprim.ObjID
	Entries []FilePkg

	// Needed tracks completion. For GET_FILE_PKG it's a bitmask of the
	// pkgNeed* bits still outstanding, seeded by the caller before the
	// walk; the package is only resolved once it reaches zero. For
	// DIR_LIST it's a plain counter: every appended entry other than ".."
	// increments it, every INODE_ITEM that backfills an entry decrements
	// it, and the listing is only resolved once it reaches zero.
	Needed int

	// outputs
	ResultID btrfsprim.ObjID
	Found    bool // NAME_TO_ID only
	Pkg      FilePkg
	Dump     []btrfstree.LeafItem

	// DIR_LIST scratch: the most recently seen INODE_ITEM, kept cached
	// only while no entry past the seed has been placed yet. If a DIR_ITEM
	// chain later reveals that this directory's parent is the grandparent
	// of Target, this cached inode becomes ".."'s inode.
	temp     btrfsitem.Inode
	haveTemp bool
}

func isHiddenName(name []byte) bool {
	return len(name) > 0 && name[0] == '.' && !bytes.Equal(name, []byte(".")) && !bytes.Equal(name, []byte(".."))
}

// truncatedName limits a DIR_ITEM's name to 255 bytes, the same ceiling
// the on-disk format itself enforces on name length, and returns a copy
// safe to retain past the life of the leaf's backing buffer.
func truncatedName(name []byte) []byte {
	if len(name) > 255 {
		name = name[:255]
	}
	return append([]byte(nil), name...)
}

func applyFsOp(op *FsOp) btrfstree.LeafHandler {
	return func(key btrfsprim.Key, item btrfstree.LeafItem) bool {
		switch op.Kind {
		case FsOpDumpTree:
			op.Dump = append(op.Dump, item)
			return false

		case FsOpNameToID:
			if key.ObjectID != op.ParentID {
				return key.ObjectID > op.ParentID
			}
			if key.ItemType != btrfsprim.DIR_ITEM || key.Offset != btrfsitem.NameHash(op.Name) {
				return false
			}
			entries, ok := item.Body.(btrfsitem.DirList)
			if !ok {
				return false
			}
			for _, e := range entries {
				if bytes.Equal(e.Name, op.Name) {
					op.ResultID = e.Location.ObjectID
					op.Found = true
					return true
				}
			}
			return false

		case FsOpGetFilePkg:
			// A DIR_ITEM chain naming Target lives under the parent's own
			// key, which in practice (object IDs are handed out in
			// creation order, and a directory always predates its
			// children) never exceeds Target. It's safe to stop once
			// key.ObjectID has passed it.
			if key.ObjectID > op.Target {
				return true
			}
			switch body := item.Body.(type) {
			case btrfsitem.Inode:
				if key.ObjectID != op.Target {
					return false
				}
				op.Pkg.Inode = body
				op.Pkg.HaveInode = true
				op.Needed &^= pkgNeedInode
				if body.Mode&modeTypeMask == modeDir {
					op.Needed &^= pkgNeedExtent
				}
			case btrfsitem.DirList:
				if key.ItemType != btrfsprim.DIR_ITEM {
					return false
				}
				for _, e := range body {
					if e.Location.ObjectID == op.Target {
						op.Pkg.ParentID = key.ObjectID
						op.Pkg.Name = truncatedName(e.Name)
						op.Pkg.HaveName = true
						op.Needed &^= pkgNeedParentName
					}
				}
			case btrfsitem.FileExtent:
				if key.ObjectID != op.Target || key.ItemType != btrfsprim.EXTENT_DATA {
					return false
				}
				op.Pkg.Extents = append(op.Pkg.Extents, FileExtentEntry{Key: key, Data: body})
				op.Needed &^= pkgNeedExtent
			}
			return false

		case FsOpDirList:
			// No short-circuit: a matching ".." DIR_ITEM may live at any
			// objectID, so the whole tree has to be scanned.
			switch body := item.Body.(type) {
			case btrfsitem.Inode:
				seedLen := 0
				if op.Target != btrfsprim.FIRST_FREE_OBJECTID {
					seedLen = 1
				}
				if len(op.Entries) <= seedLen {
					// nothing past the seed has been placed yet; this
					// inode might turn out to be ".."'s
					op.temp = body
					op.haveTemp = true
				}
				for i := range op.Entries {
					if op.Entries[i].ObjectID == key.ObjectID {
						op.Entries[i].Inode = body
						op.Entries[i].HaveInode = true
						op.Needed--
						// keep scanning: hard links to the same inode
						// may reuse it across several entries
					}
				}
			case btrfsitem.DirList:
				if key.ItemType != btrfsprim.DIR_ITEM {
					return false
				}
				for _, e := range body {
					if key.ObjectID == op.Target {
						op.Entries = append(op.Entries, FilePkg{
							ObjectID: e.Location.ObjectID,
							ParentID: key.ObjectID,
							Name:     truncatedName(e.Name),
							HaveName: true,
						})
						op.Needed++
					}
					if op.Target != btrfsprim.FIRST_FREE_OBJECTID && e.Location.ObjectID == op.Target {
						if len(op.Entries) > 0 {
							op.Entries[0].ParentID = key.ObjectID
						}
						dotdot := FilePkg{
							ObjectID: key.ObjectID,
							Name:     []byte(".."),
							HaveName: true,
						}
						if op.haveTemp {
							dotdot.Inode = op.temp
							dotdot.HaveInode = true
						}
						// ".." is never counted: by tree order, the
						// directory whose DIR_ITEM produces it has
						// already had its own INODE_ITEM visited (and
						// cached into temp) earlier in this same walk.
						op.Entries = append(op.Entries, dotdot)
					}
				}
			}
			return false
		}
		return false
	}
}
