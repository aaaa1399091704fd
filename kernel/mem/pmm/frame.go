// Package pmm manages aligned, page-sized regions of physical memory using a
// first-fit allocator whose block descriptors are themselves drawn from a
// self-hosted slab allocator.
package pmm

import (
	"math"

	"rvos/kernel/mem"
)

// Frame describes a physical memory page index.
type Frame uint64

// InvalidFrame is returned by allocators that fail to reserve a frame.
const InvalidFrame = Frame(math.MaxUint64)

// Valid reports whether f identifies a real frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the page this Frame identifies.
func (f Frame) Address() uintptr {
	return uintptr(f) << mem.PageShift
}

// FrameFromAddress returns the Frame containing physAddr, rounding down to
// the enclosing page if physAddr is not itself page-aligned.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> mem.PageShift)
}
