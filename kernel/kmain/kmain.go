// Package kmain wires the bring-up sequence together: it initializes the
// PMM from the compile-time early heap, identity-maps the running kernel
// image and stack through the SV39 engine, hands control to the CSR facade
// to enable paging, and finally runs the DTB parser.
package kmain

import (
	"unsafe"

	"rvos/kernel"
	"rvos/kernel/dtb"
	"rvos/kernel/hal"
	"rvos/kernel/kfmt/early"
	"rvos/kernel/mem"
	"rvos/kernel/mem/pmm"
	"rvos/kernel/mem/vmm"
)

// earlyHeapPages is the size, in pages, of the PMM's first region: memory
// the linker script reserves specifically for the allocator to bootstrap
// from, before any firmware-described memory map is available.
const earlyHeapPages = 128

// satpModeSv39 is the value the MODE field of satp must carry to select
// SV39 paging, per the privileged ISA specification.
const satpModeSv39 = uint64(8) << 60

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// pmmInstance is the kernel's single physical memory manager, initialized
// once by Kmain and referenced by every subsystem that allocates physical
// pages thereafter.
var pmmInstance *pmm.PMM

// Kmain is the kernel entry point the boot assembly hands off to. It is invoked
// once, on the boot hart, after entry code has set up a minimal stack, and
// is not expected to return; dtbBaseAddr is the physical address firmware
// left the flattened device tree at.
//
//go:noinline
func Kmain(dtbBaseAddr uintptr) {
	var err *kernel.Error

	pmmInstance, err = pmm.Initialize()
	if err != nil {
		kernel.Panic(err)
	}

	earlyHeapSize := mem.Size(earlyHeapPages) * mem.PageSize
	if err = pmmInstance.AddRegion(kernel.HEAP_START, earlyHeapSize); err != nil {
		kernel.Panic(err)
	}

	root := vmm.RootTable()
	allocFn := func() (uintptr, *kernel.Error) { return pmmInstance.Alloc(mem.PageSize) }

	identityMapRange(root, kernel.TEXT_START, kernel.TEXT_END, vmm.FlagRead|vmm.FlagExecute, allocFn)
	identityMapRange(root, kernel.RODATA_START, kernel.RODATA_END, vmm.FlagRead, allocFn)
	identityMapRange(root, kernel.DATA_START, kernel.DATA_END, vmm.FlagRead|vmm.FlagWrite, allocFn)
	identityMapRange(root, kernel.BSS_START, kernel.BSS_END, vmm.FlagRead|vmm.FlagWrite, allocFn)
	identityMapRange(root, kernel.STACK_START, kernel.STACK_END, vmm.FlagRead|vmm.FlagWrite, allocFn)

	enablePaging(root)

	tree, err := dtb.Parse(root, pmmInstance, dtbBaseAddr)
	if err != nil {
		kernel.Panic(err)
	}

	early.Printf("device tree parsed: %d reserved region(s)\n", len(tree.ReservedMemory))

	// Use kernel.Panic instead of panic to prevent the compiler from
	// treating kernel.Panic as dead-code and eliminating it.
	kernel.Panic(errKmainReturned)
}

// identityMapRange installs a va==pa mapping for every page in [start,
// end), rounding the boundaries out to whole pages first. A mapping
// failure is fatal: there is no fallback bring-up path if the kernel's own
// image cannot be mapped.
func identityMapRange(root *vmm.Table, start, end uintptr, flags vmm.PageTableEntryFlag, allocFn vmm.FrameAllocatorFn) {
	pageSize := uintptr(mem.PageSize)
	base := mem.AlignDown(start, pageSize)
	limit := mem.AlignUp(end, pageSize)

	for pa := base; pa < limit; pa += pageSize {
		if err := vmm.Map(root, pa, pa, flags, vmm.Page4KiB, allocFn); err != nil {
			kernel.Panic(err)
		}
	}
}

// enablePaging writes satp to point at root with SV39 selected and fences
// the address space, handing control of when this actually takes effect to
// the CSR facade the entry code injected.
func enablePaging(root *vmm.Table) {
	if hal.ActiveCSR == nil {
		kernel.Panic(&kernel.Error{Module: "kmain", Message: "no CSR facade installed"})
	}

	rootPPN := uint64(uintptr(unsafe.Pointer(root)) >> mem.PageShift)
	hal.ActiveCSR.WriteSatp(satpModeSv39 | rootPPN)
	vmm.FlushMapping()
}
