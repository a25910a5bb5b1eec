package btrfstree

import "errors"

// ErrBadMagic is returned when a superblock or node's magic field doesn't
// match the expected btrfs signature.
var ErrBadMagic = errors.New("EBADMAGIC: bad magic")

// ErrBadChecksum is returned when a superblock or node's embedded CRC-32C
// doesn't match the checksum recomputed over its bytes.
var ErrBadChecksum = errors.New("EBADCRC: bad checksum")

// ErrIO is returned when reading the underlying device fails.
var ErrIO = errors.New("EIO: I/O error")
