package btrfsitem

import (
	"encoding/binary"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// Dev describes one member device of the filesystem.
//
//	key.objectid = DEV_ITEMS_OBJECTID
//	key.offset   = device ID (starting at 1)
type Dev struct { // DEV_ITEM=216
	DevID          btrfsvol.DeviceID
	NumBytes       uint64
	NumBytesUsed   uint64
	IOOptimalAlign uint32
	IOOptimalWidth uint32
	IOMinSize      uint32
	Type           uint64
	Generation     btrfsprim.Generation
	DevUUID        btrfsprim.UUID
	FSUUID         btrfsprim.UUID
}

func (Dev) isItem() {}

const devItemSize = 0x62

func decodeDev(dat []byte) (Dev, error) {
	if err := needBytes(dat, devItemSize); err != nil {
		return Dev{}, err
	}
	le := binary.LittleEndian
	var o Dev
	o.DevID = btrfsvol.DeviceID(le.Uint64(dat[0x00:]))
	o.NumBytes = le.Uint64(dat[0x08:])
	o.NumBytesUsed = le.Uint64(dat[0x10:])
	o.IOOptimalAlign = le.Uint32(dat[0x18:])
	o.IOOptimalWidth = le.Uint32(dat[0x1c:])
	o.IOMinSize = le.Uint32(dat[0x20:])
	o.Type = le.Uint64(dat[0x24:])
	o.Generation = btrfsprim.Generation(le.Uint64(dat[0x2c:]))
	// 0x34 StartOffset, 0x3c DevGroup, 0x40 SeekSpeed, 0x41 Bandwidth: unused
	copy(o.DevUUID[:], dat[0x42:0x52])
	copy(o.FSUUID[:], dat[0x52:0x62])
	return o, nil
}
