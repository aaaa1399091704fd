package pmm

import (
	"reflect"
	"unsafe"

	"rvos/kernel"
	"rvos/kernel/mem"
	"rvos/kernel/mem/slab"
)

const (
	// initialDescriptorCount is the number of block descriptors the
	// statically reserved seed buffer is sized for.
	initialDescriptorCount = 64

	// slabLowWaterMark is the free-descriptor threshold below which
	// AllocAligned replenishes the descriptor slab before attempting the
	// caller's allocation. It must leave enough headroom for the handful
	// of descriptors a single split (and the refill's own page fetch) can
	// consume, or the replenishment itself could starve.
	slabLowWaterMark = 16
)

// blockDescriptorSize is the size of this package's block descriptor. It is
// a compile-time constant since block has no variable-length fields.
const blockDescriptorSize = unsafe.Sizeof(block{})

// descriptorSeedBuf is the statically reserved buffer used to grow the slab
// allocator that supplies this package's block descriptors. It is sized
// generously above initialDescriptorCount descriptors to leave headroom for
// the slab region header.
var descriptorSeedBuf [64 + initialDescriptorCount*blockDescriptorSize]byte

// PMM is a first-fit physical memory manager. It tracks up to maxRegions
// physical address intervals, each with its own free-block list, and draws
// its block descriptors from a self-hosted slab allocator. AddRegion
// rejects an interval contained in an already managed region; a partial
// overlap is not rejected.
type PMM struct {
	slab        *slab.Allocator
	regions     [maxRegions]region
	regionCount int
	total       mem.Size
	free        mem.Size
}

// Initialize constructs a PMM with an empty region list and a
// freshly-grown block descriptor slab.
func Initialize() (*PMM, *kernel.Error) {
	p := &PMM{slab: slab.Init(blockDescriptorSize)}
	if err := p.slab.Grow(descriptorSeedBuf[:]); err != nil {
		return nil, kernel.Push(err, "pmm", kernel.ErrPMMInit)
	}
	return p, nil
}

// TotalMem returns the aggregate size, in bytes, of every region the PMM
// manages.
func (p *PMM) TotalMem() mem.Size {
	return p.total
}

// FreeMem returns the aggregate size, in bytes, of unallocated memory across
// every managed region.
func (p *PMM) FreeMem() mem.Size {
	return p.free
}

// Alloc is equivalent to AllocAligned(size, mem.PageSize).
func (p *PMM) Alloc(size mem.Size) (uintptr, *kernel.Error) {
	return p.AllocAligned(size, uintptr(mem.PageSize))
}

// AllocAligned reserves a zero-filled, page-multiple-sized interval of
// physical memory aligned to alignment, which must be a power of two no
// smaller than the base page size. Regions are scanned in insertion order
// and, within a region, free blocks in free-list order: the first block
// that can satisfy the request is used (first-fit).
func (p *PMM) AllocAligned(size mem.Size, alignment uintptr) (uintptr, *kernel.Error) {
	if !mem.IsPowerOfTwo(alignment) || alignment < uintptr(mem.PageSize) {
		return 0, kernel.NewError("pmm", kernel.ErrPMMBadAlignment)
	}

	if p.slab.FreeCount() < slabLowWaterMark {
		if err := p.refillDescriptorSlab(); err != nil {
			return 0, err
		}
	}

	return p.allocAlignedLocked(size, alignment)
}

// refillDescriptorSlab grows the descriptor slab by one freshly allocated
// page. It fetches that page through allocAlignedLocked rather than
// AllocAligned, so it never re-enters the low-water check that called it
// (which would recurse without end).
func (p *PMM) refillDescriptorSlab() *kernel.Error {
	pageAddr, err := p.allocAlignedLocked(mem.PageSize, uintptr(mem.PageSize))
	if err != nil {
		return kernel.Push(err, "pmm", kernel.ErrPMMSlabAllocFailed)
	}

	if err := p.slab.Grow(byteSliceAt(pageAddr, uintptr(mem.PageSize))); err != nil {
		return kernel.Push(err, "pmm", kernel.ErrPMMSlabAllocFailed)
	}
	return nil
}

func (p *PMM) allocAlignedLocked(size mem.Size, alignment uintptr) (uintptr, *kernel.Error) {
	size = mem.Size(mem.AlignUp(uintptr(size), uintptr(mem.PageSize)))
	if p.free < size {
		return 0, kernel.NewError("pmm", kernel.ErrPMMOutOfMemory)
	}

	for i := 0; i < p.regionCount; i++ {
		r := &p.regions[i]

		var prev *block
		for b := r.blocks; b != nil; b = b.next {
			alignedBase := mem.AlignUp(b.base, alignment)
			if alignedBase+uintptr(size) <= b.base+uintptr(b.size) {
				if err := p.carveBlock(r, b, prev, alignedBase, size); err != nil {
					return 0, err
				}
				r.free -= size
				p.free -= size
				mem.Memset(alignedBase, 0, size)
				return alignedBase, nil
			}
			prev = b
		}
	}

	return 0, kernel.NewError("pmm", kernel.ErrPMMOutOfMemory)
}

// Free returns a previously allocated [ptr, ptr+size) interval to the
// region that owns it, coalescing it with adjacent free blocks so repeated
// alloc/free cycles do not fragment a region's free list. size must match
// the size originally passed to Alloc/AllocAligned (the PMM does not track
// outstanding allocation sizes on the caller's behalf).
func (p *PMM) Free(ptr uintptr, size mem.Size) *kernel.Error {
	size = mem.Size(mem.AlignUp(uintptr(size), uintptr(mem.PageSize)))

	r := p.regionContaining(ptr, size)
	if r == nil {
		return kernel.NewError("pmm", kernel.ErrPMMRegionNotManaged)
	}

	var prev *block
	cur := r.blocks
	for cur != nil && cur.base < ptr {
		prev = cur
		cur = cur.next
	}

	if cur != nil && ptr+uintptr(size) == cur.base {
		cur.base = ptr
		cur.size += size
	} else {
		nb, err := p.newBlock(ptr, size)
		if err != nil {
			return err
		}
		nb.next = cur
		if prev == nil {
			r.blocks = nb
		} else {
			prev.next = nb
		}
		cur = nb
	}

	if prev != nil && prev.base+uintptr(prev.size) == cur.base {
		prev.size += cur.size
		prev.next = cur.next
		p.freeBlockDescriptor(cur)
	}

	r.free += size
	p.free += size
	return nil
}

// carveBlock removes the interval [cutBase, cutBase+cutSize) from the free
// block blk, whose free-list predecessor is prev (nil if blk heads r's
// list). Depending on how much of blk lies before/after the cut, blk is
// shrunk, shifted, replaced by two remnants, or unlinked entirely.
func (p *PMM) carveBlock(r *region, blk, prev *block, cutBase uintptr, cutSize mem.Size) *kernel.Error {
	precedingSize := mem.Size(cutBase - blk.base)
	trailingBase := cutBase + uintptr(cutSize)
	trailingSize := blk.size - precedingSize - cutSize

	switch {
	case precedingSize > 0 && trailingSize > 0:
		tail, err := p.newBlock(trailingBase, trailingSize)
		if err != nil {
			return err
		}
		blk.size = precedingSize
		tail.next = blk.next
		blk.next = tail
	case precedingSize > 0:
		blk.size = precedingSize
	case trailingSize > 0:
		blk.base = trailingBase
		blk.size = trailingSize
	default:
		if prev == nil {
			r.blocks = blk.next
		} else {
			prev.next = blk.next
		}
		p.freeBlockDescriptor(blk)
	}
	return nil
}

func (p *PMM) newBlock(base uintptr, size mem.Size) (*block, *kernel.Error) {
	raw := p.slab.Alloc()
	if raw == nil {
		return nil, kernel.NewError("pmm", kernel.ErrPMMSlabAllocFailed)
	}
	b := (*block)(raw)
	b.base = base
	b.size = size
	b.next = nil
	return b, nil
}

func (p *PMM) freeBlockDescriptor(b *block) {
	b.next = nil
	_ = p.slab.Free(unsafe.Pointer(b))
}

// byteSliceAt overlays a []byte of the given size on top of addr without
// allocating, mirroring mem.Memset's use of reflect.SliceHeader.
func byteSliceAt(addr uintptr, size uintptr) []byte {
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: addr,
		Len:  int(size),
		Cap:  int(size),
	}))
}
