package btrfsitem

import (
	"encoding/binary"
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsvol"
)

// FileExtent records one byte range of a regular file's contents.
//
//	key.objectid = inode
//	key.offset   = byte offset within the file
type FileExtent struct { // EXTENT_DATA=108
	Generation  btrfsprim.Generation
	RAMBytes    int64
	Compression CompressionType
	Encryption  uint8
	Type        FileExtentType

	// BodyInline is populated when Type == FILE_EXTENT_INLINE.
	BodyInline []byte
	// BodyExtent is populated when Type == FILE_EXTENT_REG or
	// FILE_EXTENT_PREALLOC.
	BodyExtent FileExtentExtent
}

func (FileExtent) isItem() {}

type FileExtentExtent struct {
	DiskByteNr   btrfsvol.LogicalAddr
	DiskNumBytes btrfsvol.AddrDelta
	Offset       btrfsvol.AddrDelta
	NumBytes     int64
}

const fileExtentHeaderSize = 0x15
const fileExtentExtentSize = 0x20

func decodeFileExtent(dat []byte) (FileExtent, error) {
	if err := needBytes(dat, fileExtentHeaderSize); err != nil {
		return FileExtent{}, err
	}
	le := binary.LittleEndian
	var o FileExtent
	o.Generation = btrfsprim.Generation(le.Uint64(dat[0x00:]))
	o.RAMBytes = int64(le.Uint64(dat[0x08:]))
	o.Compression = CompressionType(dat[0x10])
	o.Encryption = dat[0x11]
	// 0x12..0x14 reserved encoding field
	o.Type = FileExtentType(dat[0x14])
	rest := dat[fileExtentHeaderSize:]
	switch o.Type {
	case FILE_EXTENT_INLINE:
		o.BodyInline = append([]byte(nil), rest...)
	case FILE_EXTENT_REG, FILE_EXTENT_PREALLOC:
		if err := needBytes(rest, fileExtentExtentSize); err != nil {
			return FileExtent{}, err
		}
		o.BodyExtent = FileExtentExtent{
			DiskByteNr:   btrfsvol.LogicalAddr(le.Uint64(rest[0x00:])),
			DiskNumBytes: btrfsvol.AddrDelta(le.Uint64(rest[0x08:])),
			Offset:       btrfsvol.AddrDelta(le.Uint64(rest[0x10:])),
			NumBytes:     int64(le.Uint64(rest[0x18:])),
		}
	default:
		return FileExtent{}, fmt.Errorf("unknown file extent type %v", o.Type)
	}
	return o, nil
}

// Size reports the decompressed length of this extent's data.
func (o FileExtent) Size() (int64, error) {
	switch o.Type {
	case FILE_EXTENT_INLINE:
		return int64(len(o.BodyInline)), nil
	case FILE_EXTENT_REG, FILE_EXTENT_PREALLOC:
		return o.BodyExtent.NumBytes, nil
	default:
		return 0, fmt.Errorf("unknown file extent type %v", o.Type)
	}
}

type FileExtentType uint8

const (
	FILE_EXTENT_INLINE FileExtentType = iota
	FILE_EXTENT_REG
	FILE_EXTENT_PREALLOC
)

var fileExtentTypeNames = []string{"inline", "regular", "prealloc"}

func (fet FileExtentType) String() string {
	name := "unknown"
	if int(fet) < len(fileExtentTypeNames) {
		name = fileExtentTypeNames[fet]
	}
	return fmt.Sprintf("%d (%s)", fet, name)
}

type CompressionType uint8

const (
	COMPRESS_NONE CompressionType = iota
	COMPRESS_ZLIB
	COMPRESS_LZO
	COMPRESS_ZSTD
)

var compressionTypeNames = []string{"none", "zlib", "lzo", "zstd"}

func (ct CompressionType) String() string {
	name := "unknown"
	if int(ct) < len(compressionTypeNames) {
		name = compressionTypeNames[ct]
	}
	return fmt.Sprintf("%d (%s)", ct, name)
}
