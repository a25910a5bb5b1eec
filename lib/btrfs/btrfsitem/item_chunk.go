package btrfsitem

import (
	"encoding/binary"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// Chunk maps a range of logical addresses to one or more device stripes.
//
//	key.objectid = FIRST_CHUNK_TREE_OBJECTID
//	key.offset   = logical address of the start of the chunk
type Chunk struct { // CHUNK_ITEM=228
	Size       btrfsvol.AddrDelta
	Owner      btrfsprim.ObjID // always EXTENT_TREE_OBJECTID
	StripeLen  uint64
	Type       btrfsvol.BlockGroupFlags
	IOMinSize  uint32
	NumStripes uint16
	SubStripes uint16
	Stripes    []ChunkStripe
}

func (Chunk) isItem() {}

type ChunkStripe struct {
	DeviceID   btrfsvol.DeviceID
	Offset     btrfsvol.PhysicalAddr
	DeviceUUID btrfsprim.UUID
}

const chunkHeaderSize = 0x30
const chunkStripeSize = 0x20

func decodeChunk(dat []byte) (Chunk, error) {
	if err := needBytes(dat, chunkHeaderSize); err != nil {
		return Chunk{}, err
	}
	le := binary.LittleEndian
	var o Chunk
	o.Size = btrfsvol.AddrDelta(le.Uint64(dat[0x00:]))
	o.Owner = btrfsprim.ObjID(le.Uint64(dat[0x08:]))
	o.StripeLen = le.Uint64(dat[0x10:])
	o.Type = btrfsvol.BlockGroupFlags(le.Uint64(dat[0x18:]))
	// 0x20 IOOptimalAlign, 0x24 IOOptimalWidth: unused by a read-only reader
	o.IOMinSize = le.Uint32(dat[0x28:])
	o.NumStripes = le.Uint16(dat[0x2c:])
	o.SubStripes = le.Uint16(dat[0x2e:])
	if o.NumStripes < 1 {
		return Chunk{}, fmt.Errorf("chunk has %d stripes, need at least 1", o.NumStripes)
	}

	rest := dat[chunkHeaderSize:]
	o.Stripes = make([]ChunkStripe, o.NumStripes)
	for i := range o.Stripes {
		off := i * chunkStripeSize
		if err := needBytes(rest, off+chunkStripeSize); err != nil {
			return Chunk{}, err
		}
		s := rest[off:]
		o.Stripes[i] = ChunkStripe{
			DeviceID: btrfsvol.DeviceID(le.Uint64(s[0x00:])),
			Offset:   btrfsvol.PhysicalAddr(le.Uint64(s[0x08:])),
		}
		copy(o.Stripes[i].DeviceUUID[:], s[0x10:0x20])
	}
	return o, nil
}

// decodeChunkExact decodes a CHUNK_ITEM leaf item's body, which (unlike
// the superblock's packed system chunk array) is bounded to exactly one
// record: trailing bytes past the declared stripe count are rejected
// rather than silently ignored.
func decodeChunkExact(dat []byte) (Chunk, error) {
	c, err := decodeChunk(dat)
	if err != nil {
		return Chunk{}, err
	}
	want := chunkHeaderSize + int(c.NumStripes)*chunkStripeSize
	if len(dat) != want {
		return Chunk{}, fmt.Errorf("chunk item is %d bytes, expected exactly %d", len(dat), want)
	}
	return c, nil
}

// DecodeChunkAt decodes one Chunk from the front of dat and reports how
// many bytes it consumed. It exists for the superblock's embedded system
// chunk array, which packs (Key, Chunk) records back-to-back with no
// separate length field.
func DecodeChunkAt(dat []byte) (Chunk, int, error) {
	c, err := decodeChunk(dat)
	if err != nil {
		return Chunk{}, 0, err
	}
	return c, chunkHeaderSize + len(c.Stripes)*chunkStripeSize, nil
}

// AsVolChunk converts the decoded item into the btrfsvol.Chunk shape the
// chunk manager indexes, anchoring it at the logical address carried by
// the item's key (the item body itself only records the chunk's length).
func (o Chunk) AsVolChunk(key btrfsprim.Key) btrfsvol.Chunk {
	stripes := make([]btrfsvol.Stripe, len(o.Stripes))
	for i, s := range o.Stripes {
		stripes[i] = btrfsvol.Stripe{
			DeviceID:   s.DeviceID,
			Offset:     s.Offset,
			DeviceUUID: s.DeviceUUID,
		}
	}
	return btrfsvol.Chunk{
		LogicalAddr: btrfsvol.LogicalAddr(key.Offset),
		Size:        o.Size,
		Type:        o.Type,
		Stripes:     stripes,
	}
}
