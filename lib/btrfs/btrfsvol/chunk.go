package btrfsvol

import (
	"fmt"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
)

// Chunk is one mapping between a run of logical addresses and a device
// stripe. Only a single stripe (stripe 0) is ever consulted; DUP and RAID
// profiles are recognized (BlockGroupFlags) but never reconstructed from
// their redundant copies.
type Chunk struct {
	LogicalAddr LogicalAddr
	Size        AddrDelta
	Type        BlockGroupFlags
	Stripes     []Stripe
}

// Stripe is one device-relative leg of a Chunk.
type Stripe struct {
	DeviceID   DeviceID
	Offset     PhysicalAddr
	DeviceUUID btrfsprim.UUID
}

func (c Chunk) end() LogicalAddr { return c.LogicalAddr.Add(c.Size) }

// ChunkManager resolves logical addresses to physical ones using the set
// of known chunks. It is populated in two phases: first from the
// superblock's embedded system chunk array, then wholesale-replaced by the
// contents of the full chunk tree once it has been read.
type ChunkManager struct {
	chunks []Chunk // kept sorted by LogicalAddr
}

func NewChunkManager() *ChunkManager {
	return &ChunkManager{}
}

// Insert adds or replaces the chunk covering this logical range.
func (m *ChunkManager) Insert(c Chunk) {
	for i, old := range m.chunks {
		if old.LogicalAddr == c.LogicalAddr {
			m.chunks[i] = c
			return
		}
	}
	i := 0
	for i < len(m.chunks) && m.chunks[i].LogicalAddr < c.LogicalAddr {
		i++
	}
	m.chunks = append(m.chunks, Chunk{})
	copy(m.chunks[i+1:], m.chunks[i:])
	m.chunks[i] = c
}

// Reset discards every previously-known chunk, used when the bootstrap
// chunk set (from the superblock) is superseded by the real chunk tree.
func (m *ChunkManager) Reset() {
	m.chunks = nil
}

// Len reports how many chunks are currently known.
func (m *ChunkManager) Len() int { return len(m.chunks) }

// All returns every known chunk, sorted by logical address.
func (m *ChunkManager) All() []Chunk { return m.chunks }

// Resolve maps the range [laddr, laddr+length) to a physical address on a
// device, using stripe 0 of whichever chunk's range fully contains it. A
// range straddling two chunks' boundary fails ENOMAP rather than silently
// resolving against whichever chunk owns laddr.
func (m *ChunkManager) Resolve(laddr LogicalAddr, length AddrDelta) (QualifiedPhysicalAddr, error) {
	for _, c := range m.chunks {
		if laddr < c.LogicalAddr || laddr >= c.end() {
			continue
		}
		if laddr.Add(length) > c.end() {
			return QualifiedPhysicalAddr{}, fmt.Errorf("%w: [%v,+%v) straddles chunk at %v (len %v)", ENOMAP, laddr, length, c.LogicalAddr, c.Size)
		}
		if len(c.Stripes) == 0 {
			return QualifiedPhysicalAddr{}, fmt.Errorf("chunk at %v has no stripes", c.LogicalAddr)
		}
		stripe := c.Stripes[0]
		delta := laddr.Sub(c.LogicalAddr)
		return QualifiedPhysicalAddr{
			Dev:  stripe.DeviceID,
			Addr: stripe.Offset.Add(delta),
		}, nil
	}
	return QualifiedPhysicalAddr{}, fmt.Errorf("%w: no chunk maps logical address %v", ENOMAP, laddr)
}

// ENOMAP is returned by Resolve when no known chunk covers the requested
// logical address.
var ENOMAP = fmt.Errorf("no chunk mapping")
