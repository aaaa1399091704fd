package pmm

import (
	"rvos/kernel"
	"rvos/kernel/mem"
)

// maxRegions bounds the number of disjoint physical memory regions the PMM
// can track at once.
const maxRegions = 16

// region is a contiguous physical-address interval managed by the PMM.
type region struct {
	base   uintptr
	size   mem.Size
	free   mem.Size
	blocks *block // head of this region's free-block list
}

// contains reports whether [base, base+size) lies entirely inside r.
func (r *region) contains(base uintptr, size mem.Size) bool {
	return base >= r.base && mem.Size(base-r.base)+size <= r.size
}

// AddRegion registers [base, base+size) with the PMM as available for
// allocation. base is rounded up and size rounded down to page multiples;
// the aligned interval becomes a single free block covering the region.
func (p *PMM) AddRegion(base uintptr, size mem.Size) *kernel.Error {
	pageSize := uintptr(mem.PageSize)

	alignedBase := mem.AlignUp(base, pageSize)
	end := mem.AlignDown(base+uintptr(size), pageSize)
	if alignedBase >= end {
		return kernel.NewError("pmm", kernel.ErrPMMAddRegionTooSmall)
	}
	alignedSize := mem.Size(end - alignedBase)

	if p.regionCount >= maxRegions {
		return kernel.NewError("pmm", kernel.ErrPMMRegionListFull)
	}
	for i := 0; i < p.regionCount; i++ {
		if p.regions[i].contains(alignedBase, alignedSize) {
			return kernel.NewError("pmm", kernel.ErrPMMAddManagedRegion)
		}
	}

	blk, err := p.newBlock(alignedBase, alignedSize)
	if err != nil {
		return err
	}

	p.regions[p.regionCount] = region{
		base:   alignedBase,
		size:   alignedSize,
		free:   alignedSize,
		blocks: blk,
	}
	p.regionCount++
	p.total += alignedSize
	p.free += alignedSize
	return nil
}

// RemoveRegion excludes [base, base+size) from the allocable pool. base is
// rounded down and size rounded up to page multiples. If the aligned
// interval matches an entire region exactly and that region is entirely
// free, the region itself is dropped. Otherwise the enclosing region's free
// blocks are split around the interval, which is then permanently excluded
// from that region's free list (the region's nominal base/size bookkeeping
// is left unchanged — the interval remains "managed" in the sense that
// AddRegion will still refuse to re-add it, it is simply never handed out).
func (p *PMM) RemoveRegion(base uintptr, size mem.Size) *kernel.Error {
	pageSize := uintptr(mem.PageSize)

	alignedBase := mem.AlignDown(base, pageSize)
	end := mem.AlignUp(base+uintptr(size), pageSize)
	alignedSize := mem.Size(end - alignedBase)

	for i := 0; i < p.regionCount; i++ {
		r := &p.regions[i]
		if alignedBase != r.base || alignedSize != r.size {
			continue
		}
		if r.free != r.size {
			return kernel.NewError("pmm", kernel.ErrPMMRegionAllocatedFrom)
		}

		for b := r.blocks; b != nil; {
			next := b.next
			p.freeBlockDescriptor(b)
			b = next
		}
		p.total -= r.size
		p.free -= r.free
		copy(p.regions[i:p.regionCount-1], p.regions[i+1:p.regionCount])
		p.regionCount--
		return nil
	}

	r := p.regionContaining(alignedBase, alignedSize)
	if r == nil {
		return kernel.NewError("pmm", kernel.ErrPMMRegionNotManaged)
	}

	var prev *block
	for b := r.blocks; b != nil; b = b.next {
		if b.base <= alignedBase && alignedBase+uintptr(alignedSize) <= b.base+uintptr(b.size) {
			if err := p.carveBlock(r, b, prev, alignedBase, alignedSize); err != nil {
				return err
			}
			r.free -= alignedSize
			p.free -= alignedSize
			return nil
		}
		prev = b
	}

	return kernel.NewError("pmm", kernel.ErrPMMRegionAllocatedFrom)
}

// regionContaining returns the region whose declared interval fully
// contains [base, base+size), or nil.
func (p *PMM) regionContaining(base uintptr, size mem.Size) *region {
	for i := 0; i < p.regionCount; i++ {
		if p.regions[i].contains(base, size) {
			return &p.regions[i]
		}
	}
	return nil
}
