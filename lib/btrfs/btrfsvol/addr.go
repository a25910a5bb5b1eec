// Package btrfsvol translates between logical addresses (as used by b-tree
// pointers and item bodies) and physical addresses on a particular device,
// via the chunk tree.
package btrfsvol

import "fmt"

// LogicalAddr is a byte offset into the filesystem's single logical address
// space, the address space that b-tree node and extent pointers are
// expressed in.
type LogicalAddr int64

// PhysicalAddr is a byte offset into one particular device.
type PhysicalAddr int64

// AddrDelta is a signed distance between two addresses, or a length.
type AddrDelta int64

func (a LogicalAddr) String() string  { return formatAddr(int64(a)) }
func (a PhysicalAddr) String() string { return formatAddr(int64(a)) }
func (a AddrDelta) String() string    { return formatAddr(int64(a)) }

func formatAddr(a int64) string {
	return fmt.Sprintf("%#014x", uint64(a))
}

func (a LogicalAddr) Add(d AddrDelta) LogicalAddr { return a + LogicalAddr(d) }
func (a LogicalAddr) Sub(b LogicalAddr) AddrDelta  { return AddrDelta(a - b) }

func (a PhysicalAddr) Add(d AddrDelta) PhysicalAddr { return a + PhysicalAddr(d) }
func (a PhysicalAddr) Sub(b PhysicalAddr) AddrDelta  { return AddrDelta(a - b) }

// DeviceID identifies one member device of the filesystem.
type DeviceID uint64

// QualifiedPhysicalAddr names a physical address on a specific device.
type QualifiedPhysicalAddr struct {
	Dev  DeviceID
	Addr PhysicalAddr
}

func (a QualifiedPhysicalAddr) Add(d AddrDelta) QualifiedPhysicalAddr {
	a.Addr += PhysicalAddr(d)
	return a
}

func (a QualifiedPhysicalAddr) String() string {
	return fmt.Sprintf("dev=%d+%v", a.Dev, a.Addr)
}
