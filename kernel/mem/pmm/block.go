package pmm

import "rvos/kernel/mem"

// block is a PMM free-block descriptor. It describes a page-aligned,
// page-multiple interval of physical memory but never lives inside that
// interval — descriptors are drawn from a dedicated slab allocator so that
// managed regions may be read-only or device memory.
type block struct {
	base uintptr
	size mem.Size
	next *block
}
