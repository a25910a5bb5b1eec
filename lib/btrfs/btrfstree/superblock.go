// Package btrfstree implements the on-disk b-tree format: the superblock
// that anchors everything else (C4), the node/leaf/internal layout and its
// CRC-validated loader (C5), and a recursive-descent tree walker (C6).
package btrfstree

import (
	"encoding/binary"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsitem"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfssum"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// SuperblockMagic is the 8-byte magic value every valid superblock copy
// must begin its magic field with.
const SuperblockMagic = "_BHRfS_M"

// SuperblockSize is the on-disk size of one superblock copy, including its
// trailing padding.
const SuperblockSize = 0x1000

// SuperblockOffsets lists the four fixed physical offsets superblock
// copies may be found at. Not every device has all four; devices smaller
// than a later offset simply don't have that copy.
var SuperblockOffsets = [4]btrfsvol.PhysicalAddr{
	0x00_0001_0000,
	0x00_0400_0000,
	0x40_0000_0000,
	0x4000_0000_0000,
}

// Superblock is the decoded fixed-size header that anchors a btrfs
// filesystem: it names the root of the root tree and the chunk tree, and
// embeds a bootstrap copy of the system chunks needed to resolve the
// chunk tree's own root address.
type Superblock struct {
	Checksum   [32]byte
	FSUUID     btrfsprim.UUID
	Self       btrfsvol.PhysicalAddr
	Flags      uint64
	Magic      [8]byte
	Generation btrfsprim.Generation

	RootTree btrfsvol.LogicalAddr
	ChunkTree btrfsvol.LogicalAddr
	LogTree  btrfsvol.LogicalAddr

	TotalBytes uint64
	BytesUsed  uint64

	RootDirObjectID btrfsprim.ObjID
	NumDevices      uint64

	SectorSize         uint32
	NodeSize           uint32
	LeafSize           uint32
	StripeSize         uint32
	SysChunkArraySize  uint32
	ChunkRootGeneration btrfsprim.Generation

	CompatFlags    uint64
	CompatROFlags  uint64
	IncompatFlags  IncompatFlags
	ChecksumType   uint16

	RootLevel  uint8
	ChunkLevel uint8
	LogLevel   uint8

	DevItem btrfsitem.Dev

	Label string

	NumGlobalRoots uint64

	// SysChunkArray is the raw bytes of the embedded (Key, Chunk) pairs
	// used to bootstrap enough of the chunk tree to read the real one.
	SysChunkArray [0x800]byte
}

type IncompatFlags uint64

const (
	INCOMPAT_MIXED_BACKREF IncompatFlags = 1 << iota
	INCOMPAT_DEFAULT_SUBVOL
	INCOMPAT_MIXED_GROUPS
	INCOMPAT_COMPRESS_LZO
	INCOMPAT_COMPRESS_ZSTD
	INCOMPAT_BIG_METADATA
	INCOMPAT_EXTENDED_IREF
	INCOMPAT_RAID56
	INCOMPAT_SKINNY_METADATA
	INCOMPAT_NO_HOLES
	INCOMPAT_METADATA_UUID
	INCOMPAT_RAID1C34
	INCOMPAT_ZONED
)

func (f IncompatFlags) Has(req IncompatFlags) bool { return f&req == req }

// DecodeSuperblock parses one SuperblockSize-byte superblock copy. It does
// not validate the checksum or magic; callers should call ValidateMagic
// and ValidateChecksum (or use LocateSuperblock, which does both across
// all candidate offsets).
func DecodeSuperblock(dat []byte) (Superblock, error) {
	if len(dat) < SuperblockSize {
		return Superblock{}, fmt.Errorf("btrfstree: superblock: need %d bytes, got %d", SuperblockSize, len(dat))
	}
	le := binary.LittleEndian
	var sb Superblock
	copy(sb.Checksum[:], dat[0x0:0x20])
	copy(sb.FSUUID[:], dat[0x20:0x30])
	sb.Self = btrfsvol.PhysicalAddr(le.Uint64(dat[0x30:]))
	sb.Flags = le.Uint64(dat[0x38:])
	copy(sb.Magic[:], dat[0x40:0x48])
	sb.Generation = btrfsprim.Generation(le.Uint64(dat[0x48:]))
	sb.RootTree = btrfsvol.LogicalAddr(le.Uint64(dat[0x50:]))
	sb.ChunkTree = btrfsvol.LogicalAddr(le.Uint64(dat[0x58:]))
	sb.LogTree = btrfsvol.LogicalAddr(le.Uint64(dat[0x60:]))
	// 0x68 log_root_transid: unused by a read-only reader
	sb.TotalBytes = le.Uint64(dat[0x70:])
	sb.BytesUsed = le.Uint64(dat[0x78:])
	sb.RootDirObjectID = btrfsprim.ObjID(le.Uint64(dat[0x80:]))
	sb.NumDevices = le.Uint64(dat[0x88:])
	sb.SectorSize = le.Uint32(dat[0x90:])
	sb.NodeSize = le.Uint32(dat[0x94:])
	sb.LeafSize = le.Uint32(dat[0x98:])
	sb.StripeSize = le.Uint32(dat[0x9c:])
	sb.SysChunkArraySize = le.Uint32(dat[0xa0:])
	sb.ChunkRootGeneration = btrfsprim.Generation(le.Uint64(dat[0xa4:]))
	// 0xac compat_flags, 0xb4 compat_ro_flags, 0xbc incompat_flags
	sb.CompatFlags = le.Uint64(dat[0xac:])
	sb.CompatROFlags = le.Uint64(dat[0xb4:])
	sb.IncompatFlags = IncompatFlags(le.Uint64(dat[0xbc:]))
	sb.ChecksumType = le.Uint16(dat[0xc4:])
	sb.RootLevel = dat[0xc6]
	sb.ChunkLevel = dat[0xc7]
	sb.LogLevel = dat[0xc8]
	devItem, err := decodeDevItemAt(dat[0xc9:0xc9+0x62])
	if err != nil {
		return Superblock{}, fmt.Errorf("btrfstree: superblock: dev_item: %w", err)
	}
	sb.DevItem = devItem
	labelBytes := dat[0x12b : 0x12b+0x100]
	if nul := indexByte(labelBytes, 0); nul >= 0 {
		labelBytes = labelBytes[:nul]
	}
	sb.Label = string(labelBytes)
	// 0x22b cache_generation, 0x233 uuid_tree_generation, 0x23b metadata_uuid
	sb.NumGlobalRoots = le.Uint64(dat[0x24b:])
	copy(sb.SysChunkArray[:], dat[0x32b:0x32b+0x800])
	return sb, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func decodeDevItemAt(dat []byte) (btrfsitem.Dev, error) {
	item := btrfsitem.Decode(btrfsprim.Key{ItemType: btrfsprim.DEV_ITEM}, dat)
	dev, ok := item.(btrfsitem.Dev)
	if !ok {
		return btrfsitem.Dev{}, fmt.Errorf("malformed embedded dev_item")
	}
	return dev, nil
}

// ValidateMagic reports whether the decoded magic field matches the
// expected btrfs signature.
func (sb Superblock) ValidateMagic() error {
	if string(sb.Magic[:]) != SuperblockMagic {
		return fmt.Errorf("%w: got %q", ErrBadMagic, sb.Magic[:])
	}
	return nil
}

// ValidateChecksum recomputes the CRC-32C over the raw bytes (as read by
// DecodeSuperblock) and compares it against the embedded checksum.
func ValidateChecksum(raw []byte, sb Superblock) error {
	if len(raw) < SuperblockSize {
		return fmt.Errorf("btrfstree: superblock: short buffer")
	}
	got := btrfssum.Sum(0, raw[0x20:SuperblockSize])
	want := binary.LittleEndian.Uint32(sb.Checksum[:4])
	if got != want {
		return fmt.Errorf("%w: computed %#08x, on-disk %#08x", ErrBadChecksum, got, want)
	}
	return nil
}
