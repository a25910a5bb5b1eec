// Package btrfssum implements the checksum primitive used to validate
// b-tree nodes and the superblock: CRC-32C (Castagnoli).
package btrfssum

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CSumSize is the width, in bytes, of the checksum field embedded in the
// superblock and in every node header.
const CSumSize = 4

// Sum computes the CRC-32C checksum of data, seeded with seed. Nodes and
// the superblock are checksummed with seed 0; directory-entry name hashing
// (see btrfsitem.NameHash) reuses this primitive with a different seed and
// a final bitwise inversion.
func Sum(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, castagnoliTable, data)
}
