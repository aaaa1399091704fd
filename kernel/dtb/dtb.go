package dtb

import (
	"reflect"
	"unsafe"

	"rvos/kernel"
	"rvos/kernel/mem"
	"rvos/kernel/mem/bump"
	"rvos/kernel/mem/pmm"
	"rvos/kernel/mem/vmm"
)

// arenaPages is the number of pages reserved for the bump arena backing
// every name, string and typed property payload copied out of the blob.
const arenaPages = 32

// Parse identity-maps the flattened device tree at physical address
// dtbBase into root one page at a time, validates its header, and runs
// both parser passes over it, returning the resulting tree. Scratch memory
// for the parser's bump arena is drawn from p.
func Parse(root *vmm.Table, p *pmm.PMM, dtbBase uintptr) (*Tree, *kernel.Error) {
	pageSize := uintptr(mem.PageSize)
	alignedBase := mem.AlignDown(dtbBase, pageSize)
	allocFn := func() (uintptr, *kernel.Error) { return p.Alloc(mem.PageSize) }

	if err := vmm.Map(root, alignedBase, alignedBase, vmm.FlagRead, vmm.Page4KiB, allocFn); err != nil {
		return nil, kernel.Push(err, "dtb", kernel.ErrDTBMappingFailed)
	}
	vmm.FlushMapping()

	hdr, err := parseHeader(byteSliceAt(dtbBase, headerSize))
	if err != nil {
		return nil, err
	}

	for pa := alignedBase + pageSize; pa < dtbBase+uintptr(hdr.totalSize); pa += pageSize {
		if err := vmm.Map(root, pa, pa, vmm.FlagRead, vmm.Page4KiB, allocFn); err != nil {
			return nil, kernel.Push(err, "dtb", kernel.ErrDTBMappingFailed)
		}
	}
	vmm.FlushMapping()

	arenaBase, aerr := p.Alloc(mem.Size(arenaPages) * mem.PageSize)
	if aerr != nil {
		return nil, kernel.Push(aerr, "dtb", kernel.ErrDTBRewriteFailed)
	}
	arena := bump.New(byteSliceAt(arenaBase, uintptr(arenaPages)*pageSize))

	blob := byteSliceAt(dtbBase, uintptr(hdr.totalSize))
	return parseBlob(blob, hdr, arena)
}

// parseBlob runs both parser passes over an already-accessible flattened
// device tree blob. It has no dependency on the PMM or page tables, which
// keeps it directly testable against an in-memory constructed blob.
func parseBlob(blob []byte, hdr *header, arena *bump.Arena) (*Tree, *kernel.Error) {
	reserved := parseReservedMemory(blob, hdr.offMemRsvMap)

	structEnd := hdr.offStruct + hdr.sizeStruct
	stringsEnd := hdr.offStrings + hdr.sizeStrings
	if structEnd > uint32(len(blob)) || stringsEnd > uint32(len(blob)) {
		return nil, kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
	}

	structBlock := blob[hdr.offStruct:structEnd]
	stringsBlock := blob[hdr.offStrings:stringsEnd]

	root, err := parseStruct(structBlock, stringsBlock, arena)
	if err != nil {
		return nil, err
	}

	if err := rewrite(root); err != nil {
		return nil, err
	}

	return &Tree{Root: root, ReservedMemory: reserved}, nil
}

// Teardown unmaps the DTB's pages now that parsing is complete and, via
// RemoveRegion, excludes every reserved-memory entry the blob declared
// from p's allocable pool.
func Teardown(root *vmm.Table, p *pmm.PMM, dtbBase uintptr, totalSize uintptr, tree *Tree) *kernel.Error {
	pageSize := uintptr(mem.PageSize)
	alignedBase := mem.AlignDown(dtbBase, pageSize)

	for pa := alignedBase; pa < dtbBase+totalSize; pa += pageSize {
		if _, err := vmm.Unmap(root, pa); err != nil {
			return err
		}
	}

	for _, rr := range tree.ReservedMemory {
		if err := p.RemoveRegion(rr.Address, mem.Size(rr.Size)); err != nil {
			return err
		}
	}
	return nil
}

// byteSliceAt overlays a []byte of the given size on top of addr without
// allocating, mirroring pmm's helper of the same shape.
func byteSliceAt(addr uintptr, size uintptr) []byte {
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: addr,
		Len:  int(size),
		Cap:  int(size),
	}))
}
