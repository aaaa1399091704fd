package vmm

import "unsafe"

// pageLevels is the number of page-table levels SV39 defines: the root
// table (selected by VPN[2]), the level-1 table (VPN[1]) and the level-0
// table (VPN[0]).
const pageLevels = 3

// entriesPerTable is PageSize / 8: a table occupies exactly one 4KiB page.
const entriesPerTable = 512

// vpnBits is the width, in bits, of each VPN field.
const vpnBits = 9

// levelShift[i] is the number of low-order bits of a virtual address that a
// leaf entry found at level i still needs resolved from the physical frame
// plus those bits of the virtual address (i.e. the total offset width for a
// leaf at that level: 12 for a 4KiB page, 21 for a 2MiB page, 30 for a 1GiB
// page).
var levelShift = [pageLevels]uint{30, 21, 12}

// Table is a single SV39 page table: 512 page-aligned 8-byte entries.
type Table [entriesPerTable]pageTableEntry

// tableAt overlays a Table on top of a physical address. Before paging is
// enabled physical addresses are directly addressable, so this is a plain
// pointer cast; it is also how the engine reaches intermediate tables it
// has itself allocated through the PMM, which hands back physical
// addresses.
func tableAt(physAddr uintptr) *Table {
	return (*Table)(unsafe.Pointer(physAddr))
}

// vpn extracts the VPN field that selects an entry in the level-th table
// for virtual address va. Level 0 is the root table (VPN[2]), level 1 is
// the level-1 table (VPN[1]), level 2 is the level-0 table (VPN[0]) — the
// same bit positions levelShift already records for leaf-offset
// reconstruction, since VPN[2]/VPN[1]/VPN[0] sit at exactly the 30/21/12
// bit boundaries a leaf at that level would otherwise need resolved from
// the virtual address.
func vpn(va uintptr, level int) uintptr {
	return (va >> levelShift[level]) & (1<<vpnBits - 1)
}
