package vmm

import "rvos/kernel"

// VirtToPhys walks root top-down for virtual address va, stopping at the
// first leaf entry it encounters and reconstructing the physical address
// from that leaf's frame plus the low-order bits of va the leaf's level
// doesn't resolve (12 bits for a 4KiB leaf, 21 for 2MiB, 30 for 1GiB). It
// fails with ErrInvalidMapping if any intermediate entry along the way has
// V=0.
func VirtToPhys(root *Table, va uintptr) (uintptr, *kernel.Error) {
	table := root
	for level := 0; level < pageLevels; level++ {
		pte := &table[vpn(va, level)]
		if !pte.HasFlags(FlagValid) {
			return 0, ErrInvalidMapping
		}
		if pte.isLeaf() {
			offsetMask := uintptr(1)<<levelShift[level] - 1
			return pte.Frame().Address() + (va & offsetMask), nil
		}
		table = tableAt(pte.Frame().Address())
	}

	return 0, ErrInvalidMapping
}
