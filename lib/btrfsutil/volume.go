package btrfsutil

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfstree"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
	"go.btrfsro.dev/btrfsro/lib/diskio"
)

// mountState tracks how far Mount has gotten, so that queries issued too
// early fail with ENOTREADY instead of on a nil or half-built field.
type mountState int

const (
	stateClosed mountState = iota
	stateSBLoaded
	stateChunksBootstrapped
	stateChunksLoaded
	stateRootLoaded
	stateReady
)

// Volume is a mounted, read-only view of one btrfs filesystem. It owns
// the block reader, the superblock it chose, the chunk manager used to
// resolve logical addresses, the root-tree cache, and the default
// subvolume. A Volume progresses through mountState exactly once, via
// Mount; queries are only valid once it reaches stateReady.
type Volume struct {
	reader     *diskio.BlockReader
	primaryDev string
	devNames   map[btrfsvol.DeviceID]string

	super  btrfstree.Superblock
	chunks *btrfsvol.ChunkManager

	devItems []btrfsitem.Dev
	roots    []btrfstree.LeafItem // cached leaves of the root tree

	defaultSubvol btrfsprim.ObjID
	state         mountState
}

// newVolume constructs an unmounted Volume around an already-populated
// block reader. primary names the device LocateSuperblock should read the
// superblock copies from.
func newVolume(r *diskio.BlockReader, primary string) *Volume {
	return &Volume{
		reader:     r,
		primaryDev: primary,
		devNames:   make(map[btrfsvol.DeviceID]string),
		chunks:     btrfsvol.NewChunkManager(),
		defaultSubvol: btrfsprim.FS_TREE_OBJECTID,
	}
}

func (v *Volume) requireState(min mountState) error {
	if v.state < min {
		return ENOTREADY
	}
	return nil
}

// deviceName resolves a stripe's DeviceID to a registered device name.
// Multi-device volumes are a non-goal beyond this fallback: any DeviceID
// with no registered device maps to the primary device, whatever other
// devices are registered, and the fallback is logged at Debug. The read
// is then issued once against the primary device.
func (v *Volume) deviceName(ctx context.Context, id btrfsvol.DeviceID) string {
	if name, ok := v.devNames[id]; ok {
		return name
	}
	dlog.Debugf(ctx, "btrfsutil: device id %d not attached, falling back to primary device %q", id, v.primaryDev)
	return v.primaryDev
}

// ReadNode implements btrfstree.NodeSource by resolving addr through the
// chunk manager and reading the superblock's node size worth of bytes off
// of whichever device the resolved stripe names.
func (v *Volume) ReadNode(ctx context.Context, addr btrfsvol.LogicalAddr, exp btrfstree.NodeExpectations) (btrfstree.Node, error) {
	paddr, err := v.chunks.Resolve(addr, btrfsvol.AddrDelta(v.super.NodeSize))
	if err != nil {
		return btrfstree.Node{}, err
	}
	dev := v.deviceName(ctx, paddr.Dev)
	raw, err := v.reader.ReadAt(ctx, dev, int64(paddr.Addr), int(v.super.NodeSize))
	if err != nil {
		return btrfstree.Node{}, fmt.Errorf("%w: %v", btrfstree.ErrIO, err)
	}
	return btrfstree.ReadNode(raw, v.super.NodeSize, exp)
}

// Superblock returns the superblock Mount selected.
func (v *Volume) Superblock() btrfstree.Superblock { return v.super }

// DefaultSubvolume returns the tree ID Mount resolved as the filesystem's
// default subvolume.
func (v *Volume) DefaultSubvolume() btrfsprim.ObjID { return v.defaultSubvol }

// Close releases the underlying devices. The Volume must not be used
// afterward.
func (v *Volume) Close() error {
	v.state = stateClosed
	return v.reader.Close()
}
