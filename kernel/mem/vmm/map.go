package vmm

import (
	"rvos/kernel"
	"rvos/kernel/mem"
	"rvos/kernel/mem/pmm"
)

// PageType selects the SV39 mapping granule requested from Map.
type PageType uint8

// Supported and declared-but-unsupported SV39 page types. Only Page4KiB is
// implemented at this revision; Page2MiB and Page1GiB map to the level-1
// and root tables respectively and are accepted as valid inputs (so callers
// get ErrNotImplemented rather than ErrPagingInvalidType) but are not wired
// up to an intermediate-table walk.
const (
	Page4KiB PageType = iota
	Page2MiB
	Page1GiB
)

var pageTypeSize = [...]mem.Size{
	Page4KiB: mem.PageSize,
	Page2MiB: 2 * mem.Mb,
	Page1GiB: 1 * mem.Gb,
}

// FrameAllocatorFn allocates and zero-fills a single physical page,
// returning its physical base address. Map uses it to materialize
// intermediate page tables on demand.
type FrameAllocatorFn func() (uintptr, *kernel.Error)

// Map establishes a mapping from virtual address va to physical address pa
// in root, walking/allocating intermediate tables as needed via allocFn.
// Both addresses must be aligned to the page size implied by pageType.
// Only Page4KiB is implemented; other page types fail with
// ErrNotImplemented. Map fails with ErrPagingMappingExists if the target
// leaf (or an intermediate entry it needs to descend through) is already a
// valid leaf.
func Map(root *Table, va, pa uintptr, flags PageTableEntryFlag, pageType PageType, allocFn FrameAllocatorFn) *kernel.Error {
	if pageType > Page1GiB {
		return kernel.NewError("vmm", kernel.ErrPagingInvalidType)
	}
	if pageType != Page4KiB {
		return kernel.NewError("vmm", kernel.ErrNotImplemented)
	}

	align := uintptr(pageTypeSize[pageType])
	if !mem.IsAligned(va, align) || !mem.IsAligned(pa, align) {
		return kernel.NewError("vmm", kernel.ErrPagingUnalignedAddress)
	}

	table := root
	for level := 0; level < pageLevels-1; level++ {
		pte := &table[vpn(va, level)]

		switch {
		case pte.isLeaf():
			return kernel.NewError("vmm", kernel.ErrPagingMappingExists)
		case !pte.HasFlags(FlagValid):
			pageAddr, err := allocFn()
			if err != nil {
				return kernel.Push(err, "vmm", kernel.ErrPagingSetupTable)
			}
			mem.Memset(pageAddr, 0, mem.PageSize)

			*pte = 0
			pte.SetFrame(pmm.FrameFromAddress(pageAddr))
			pte.SetFlags(FlagValid)
		}

		table = tableAt(pte.Frame().Address())
	}

	leaf := &table[vpn(va, pageLevels-1)]
	if leaf.HasFlags(FlagValid) {
		return kernel.NewError("vmm", kernel.ErrPagingMappingExists)
	}

	*leaf = 0
	leaf.SetFrame(pmm.FrameFromAddress(pa))
	leaf.SetFlags(FlagValid | flags)
	return nil
}
