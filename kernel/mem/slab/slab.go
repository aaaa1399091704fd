// Package slab implements a fixed-block allocator with no coalescing. An
// Allocator is bootstrapped from caller-supplied buffers (via Grow); it
// never requests memory on its own, which makes it suitable for seeding the
// very first allocator in the bring-up path before any other memory manager
// exists.
package slab

import (
	"unsafe"

	"rvos/kernel"
)

// region is the header slab.Grow writes at the start of every buffer it is
// given. It is followed immediately in memory by the blocks it describes.
type region struct {
	next   *region
	total  uint64
	free   uint64
	blocks uintptr // head of this region's free list, or 0
}

var regionSize = unsafe.Sizeof(region{})

// Allocator hands out fixed-size blocks carved out of regions donated via
// Grow. The zero value is not usable; construct with Init.
type Allocator struct {
	blockSize uintptr
	regions   *region
	total     uint64
	free      uint64
}

// Init creates an allocator for blocks of at least blockSize bytes. The
// effective block size is rounded up to the machine pointer size so that the
// free-list link threaded through unused blocks always fits.
func Init(blockSize uintptr) *Allocator {
	if ptrSize := unsafe.Sizeof(uintptr(0)); blockSize < ptrSize {
		blockSize = ptrSize
	}

	return &Allocator{blockSize: blockSize}
}

// BlockSize returns the effective (rounded up) block size for this
// allocator.
func (a *Allocator) BlockSize() uintptr {
	return a.blockSize
}

// minRegionLen is the smallest buffer length from which at least one block
// can be carved: a region header plus a single block.
func (a *Allocator) minRegionLen() uintptr {
	return regionSize + a.blockSize
}

// Grow donates buf to the allocator. A region header is written at the
// start of buf and the remainder is carved into equal blocks threaded into
// a singly-linked free list whose links live inside the unused blocks
// themselves.
func (a *Allocator) Grow(buf []byte) *kernel.Error {
	if len(buf) == 0 {
		return kernel.NewError("slab", kernel.ErrNullArgument)
	}
	if uintptr(len(buf)) < a.minRegionLen() {
		return kernel.NewError("slab", kernel.ErrSlabRegionTooSmall)
	}

	base := uintptr(unsafe.Pointer(&buf[0]))
	r := (*region)(unsafe.Pointer(base))

	dataStart := base + regionSize
	avail := uintptr(len(buf)) - regionSize
	blockCount := uint64(avail / a.blockSize)

	r.total = blockCount
	r.free = blockCount
	r.blocks = dataStart

	addr := dataStart
	for i := uint64(0); i < blockCount; i++ {
		var next uintptr
		if i+1 < blockCount {
			next = addr + a.blockSize
		}
		blockNext(addr, next)
		addr += a.blockSize
	}

	r.next = a.regions
	a.regions = r
	a.total += blockCount
	a.free += blockCount
	return nil
}

// Alloc unlinks and returns the first free block of the first region that
// has one, or nil if the allocator has no free blocks left. Alloc never
// returns an error; callers must check for a nil result.
func (a *Allocator) Alloc() unsafe.Pointer {
	if a.free == 0 {
		return nil
	}

	r := a.regions
	for r != nil && r.free == 0 {
		r = r.next
	}
	if r == nil {
		return nil
	}

	block := r.blocks
	r.blocks = blockNextOf(block)
	r.free--
	a.free--
	return unsafe.Pointer(block)
}

// Free returns block, previously obtained from Alloc, to the region that
// owns it. It fails with ErrSlabForeignBlock if no region donated via Grow
// contains block's address.
//
// The bounds check below uses the region's data start (the header is not
// part of the addressable block range), rather than the region header's own
// address, so that a block can never be mistaken as foreign or as belonging
// to the wrong region when regions are adjacent in memory.
func (a *Allocator) Free(block unsafe.Pointer) *kernel.Error {
	if block == nil {
		return kernel.NewError("slab", kernel.ErrNullArgument)
	}

	addr := uintptr(block)
	for r := a.regions; r != nil; r = r.next {
		dataStart := uintptr(unsafe.Pointer(r)) + regionSize
		dataEnd := dataStart + uintptr(r.total)*a.blockSize
		if addr < dataStart || addr >= dataEnd {
			continue
		}

		blockNext(addr, r.blocks)
		r.blocks = addr
		r.free++
		a.free++
		return nil
	}

	return kernel.NewError("slab", kernel.ErrSlabForeignBlock)
}

// FreeCount returns the aggregate number of free blocks across all regions.
func (a *Allocator) FreeCount() uint64 {
	return a.free
}

// Total returns the aggregate number of blocks across all regions, free or
// allocated.
func (a *Allocator) Total() uint64 {
	return a.total
}

// blockNext writes the free-list link stored at the start of the block at
// addr.
func blockNext(addr, next uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = next
}

// blockNextOf reads the free-list link stored at the start of the block at
// addr.
func blockNextOf(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}
