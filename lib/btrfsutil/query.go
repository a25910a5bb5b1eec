package btrfsutil

import (
	"context"
	"fmt"
	"sort"

	"github.com/datawire/dlib/dlog"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
	"go.btrfsro.dev/btrfsro/lib/diskio"
)

// Mount opens every device in devicePaths, locates the filesystem's
// superblock on the first one, bootstraps the chunk manager, and loads
// the chunk and root trees. On success the returned Volume is ready to
// answer queries; on any failure along the way, the partially-opened
// devices are closed before the error is returned.
func Mount(ctx context.Context, devicePaths []string, cacheSize int) (*Volume, error) {
	if len(devicePaths) == 0 {
		return nil, fmt.Errorf("btrfsutil: mount: no devices given")
	}
	if len(devicePaths) > 1 {
		dlog.Infof(ctx, "btrfsutil: mount: %d devices given, only %q will be read; multi-device striping is not reconstructed", len(devicePaths), devicePaths[0])
	}

	reader := diskio.NewBlockReader(cacheSize)
	for _, path := range devicePaths {
		f, err := diskio.OpenOSFile(path)
		if err != nil {
			reader.Close()
			return nil, fmt.Errorf("btrfsutil: mount: open %q: %w", path, err)
		}
		reader.AddDevice(path, f)
	}

	v := newVolume(reader, devicePaths[0])

	sb, err := btrfstree.LocateSuperblock(ctx, reader, v.primaryDev)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("btrfsutil: mount: %w", err)
	}
	v.super = sb
	v.devNames[sb.DevItem.DevID] = v.primaryDev
	v.state = stateSBLoaded

	if err := v.bootstrapChunkManager(); err != nil {
		reader.Close()
		return nil, fmt.Errorf("btrfsutil: mount: %w", err)
	}
	if err := v.loadChunkTree(ctx); err != nil {
		reader.Close()
		return nil, fmt.Errorf("btrfsutil: mount: %w", err)
	}
	for _, dev := range v.devItems {
		if _, ok := v.devNames[dev.DevID]; !ok {
			dlog.Infof(ctx, "btrfsutil: mount: device id %d (%v) not attached", dev.DevID, dev.DevUUID)
		}
	}
	if err := v.loadRootTree(ctx); err != nil {
		reader.Close()
		return nil, fmt.Errorf("btrfsutil: mount: %w", err)
	}

	v.state = stateReady
	return v, nil
}

// Unmount closes every device backing v. The Volume must not be used
// afterward.
func (v *Volume) Unmount() error {
	return v.Close()
}

func (v *Volume) walkFsTree(ctx context.Context, tree btrfsprim.ObjID, handle btrfstree.LeafHandler) error {
	addr, _, err := v.getTreeRootAddr(tree)
	if err != nil {
		return err
	}
	return btrfstree.Walk(ctx, v, nil, addr, handle)
}

// NameToID resolves one path component: the object ID of the directory
// entry named name inside the directory parentID, within tree.
func (v *Volume) NameToID(ctx context.Context, tree btrfsprim.ObjID, parentID btrfsprim.ObjID, name []byte) (btrfsprim.ObjID, error) {
	if err := v.requireState(stateReady); err != nil {
		return 0, err
	}
	op := &FsOp{Kind: FsOpNameToID, ParentID: parentID, Name: name}
	if err := v.walkFsTree(ctx, tree, applyFsOp(op)); err != nil {
		return 0, fmt.Errorf("btrfsutil: name_to_id: %w", err)
	}
	if !op.Found {
		return 0, fmt.Errorf("btrfsutil: name_to_id: %q in %v: %w", name, parentID, ENOENT)
	}
	return op.ResultID, nil
}

// GetFilePkg gathers the INODE_ITEM, (parent, name), and EXTENT_DATA
// records for one object ID within tree.
func (v *Volume) GetFilePkg(ctx context.Context, tree btrfsprim.ObjID, objectID btrfsprim.ObjID) (FilePkg, error) {
	if err := v.requireState(stateReady); err != nil {
		return FilePkg{}, err
	}
	op := &FsOp{Kind: FsOpGetFilePkg, Target: objectID, Needed: pkgNeedInode | pkgNeedExtent}
	if objectID != btrfsprim.FIRST_FREE_OBJECTID {
		op.Needed |= pkgNeedParentName
	}
	op.Pkg.ObjectID = objectID
	if err := v.walkFsTree(ctx, tree, applyFsOp(op)); err != nil {
		return FilePkg{}, fmt.Errorf("btrfsutil: get_file_pkg: %w", err)
	}
	if op.Needed != 0 {
		return FilePkg{}, fmt.Errorf("btrfsutil: get_file_pkg: %v: %w", objectID, ENOENT)
	}
	op.Pkg.Hidden = isHiddenName(op.Pkg.Name)
	return op.Pkg, nil
}

// DirList lists the directory entries of objectID within tree, with
// synthesized "." and ".." entries included, except for the subvolume
// root (btrfsprim.FIRST_FREE_OBJECTID), which gets neither.
func (v *Volume) DirList(ctx context.Context, tree btrfsprim.ObjID, objectID btrfsprim.ObjID) ([]FilePkg, error) {
	if err := v.requireState(stateReady); err != nil {
		return nil, err
	}
	op := &FsOp{Kind: FsOpDirList, Target: objectID}
	if objectID != btrfsprim.FIRST_FREE_OBJECTID {
		op.Entries = append(op.Entries, FilePkg{ObjectID: objectID, Name: []byte("."), HaveName: true})
		op.Needed++
	}
	if err := v.walkFsTree(ctx, tree, applyFsOp(op)); err != nil {
		return nil, fmt.Errorf("btrfsutil: dir_list: %w", err)
	}
	if op.Needed != 0 {
		return nil, fmt.Errorf("btrfsutil: dir_list: %v: %w", objectID, ENOENT)
	}
	for i := range op.Entries {
		op.Entries[i].Hidden = isHiddenName(op.Entries[i].Name)
	}
	return op.Entries, nil
}

// DumpTree returns every leaf item of the named tree, in key order.
// Besides subvolume trees, tree may be ROOT_TREE_OBJECTID or
// CHUNK_TREE_OBJECTID to dump those respectively.
func (v *Volume) DumpTree(ctx context.Context, tree btrfsprim.ObjID) ([]btrfstree.LeafItem, error) {
	if err := v.requireState(stateReady); err != nil {
		return nil, err
	}
	switch tree {
	case btrfsprim.ROOT_TREE_OBJECTID:
		return v.DumpRootTree(ctx)
	case btrfsprim.CHUNK_TREE_OBJECTID:
		return v.DumpChunkTree(ctx)
	}
	op := &FsOp{Kind: FsOpDumpTree}
	if err := v.walkFsTree(ctx, tree, applyFsOp(op)); err != nil {
		return nil, fmt.Errorf("btrfsutil: dump_tree: %w", err)
	}
	return op.Dump, nil
}

// ListSubvolumes returns every tree ID this volume's root tree names a
// ROOT_ITEM for, sorted ascending.
func (v *Volume) ListSubvolumes(ctx context.Context) ([]btrfsprim.ObjID, error) {
	if err := v.requireState(stateReady); err != nil {
		return nil, err
	}
	seen := make(map[btrfsprim.ObjID]bool)
	var ids []btrfsprim.ObjID
	for _, leaf := range v.roots {
		if leaf.Key.ItemType != btrfsprim.ROOT_ITEM {
			continue
		}
		if !seen[leaf.Key.ObjectID] {
			seen[leaf.Key.ObjectID] = true
			ids = append(ids, leaf.Key.ObjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
