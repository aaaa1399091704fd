package vmm

import "rvos/kernel"

// ErrInvalidMapping is returned by Unmap and VirtToPhys when va is not
// currently mapped.
var ErrInvalidMapping = kernel.NewError("vmm", kernel.ErrPagingInvalidAddress)

// Unmap clears the leaf entry for va, returning the physical address it
// used to map. Intermediate tables are left in place; this revision does
// not reclaim page-table pages.
func Unmap(root *Table, va uintptr) (uintptr, *kernel.Error) {
	table := root
	for level := 0; level < pageLevels-1; level++ {
		pte := &table[vpn(va, level)]
		if !pte.HasFlags(FlagValid) || pte.isLeaf() {
			return 0, ErrInvalidMapping
		}
		table = tableAt(pte.Frame().Address())
	}

	leaf := &table[vpn(va, pageLevels-1)]
	if !leaf.HasFlags(FlagValid) {
		return 0, ErrInvalidMapping
	}

	pa := leaf.Frame().Address()
	leaf.ClearFlags(FlagValid)
	return pa, nil
}
