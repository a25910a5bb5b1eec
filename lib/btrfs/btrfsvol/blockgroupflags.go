package btrfsvol

import "go.btrfsro.dev/btrfsro/lib/fmtutil"

// BlockGroupFlags records a chunk's data/metadata/system classification and
// its RAID profile. This implementation never reconstructs RAID-striped
// data; the flags are kept only for presentation in dump output.
type BlockGroupFlags uint64

const (
	BLOCK_GROUP_DATA     BlockGroupFlags = 1 << 0
	BLOCK_GROUP_SYSTEM   BlockGroupFlags = 1 << 1
	BLOCK_GROUP_METADATA BlockGroupFlags = 1 << 2

	BLOCK_GROUP_RAID0  BlockGroupFlags = 1 << 3
	BLOCK_GROUP_RAID1  BlockGroupFlags = 1 << 4
	BLOCK_GROUP_DUP    BlockGroupFlags = 1 << 5
	BLOCK_GROUP_RAID10 BlockGroupFlags = 1 << 6
	BLOCK_GROUP_RAID5  BlockGroupFlags = 1 << 7
	BLOCK_GROUP_RAID6  BlockGroupFlags = 1 << 8
	BLOCK_GROUP_RAID1C3 BlockGroupFlags = 1 << 9
	BLOCK_GROUP_RAID1C4 BlockGroupFlags = 1 << 10
)

var blockGroupFlagNames = []string{
	"DATA",
	"SYSTEM",
	"METADATA",
	"RAID0",
	"RAID1",
	"DUP",
	"RAID10",
	"RAID5",
	"RAID6",
	"RAID1C3",
	"RAID1C4",
}

func (f BlockGroupFlags) Has(req BlockGroupFlags) bool { return f&req == req }

func (f BlockGroupFlags) String() string {
	return fmtutil.BitfieldString(f, blockGroupFlagNames, fmtutil.HexLower)
}
