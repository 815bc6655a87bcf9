package slab

import "errors"

var (
	// ErrNilHandle is the panic value for deallocating a nil handle.
	ErrNilHandle = errors.New("slab: nil handle")

	// ErrMisaligned is the panic value for deallocating an in-region address
	// that does not start a slot.
	ErrMisaligned = errors.New("slab: handle does not start a slot")

	// ErrSlotSize is the panic value for a slot size that cannot hold the free-list link.
	ErrSlotSize = errors.New("slab: invalid slot size")

	// ErrRegionSize is the panic value for a region that holds no slot or too many slots.
	ErrRegionSize = errors.New("slab: invalid region size")

	// ErrFallback wraps a failure of the fallback allocator.
	ErrFallback = errors.New("slab: fallback allocation failed")

	// ErrFreeListCycle indicates a slot that appears twice on the free list.
	ErrFreeListCycle = errors.New("slab: free list cycle")

	// ErrFreeListCorrupt indicates a link that points outside the region.
	ErrFreeListCorrupt = errors.New("slab: free list corrupt")

	// ErrCountMismatch indicates the free list length disagrees with the counters.
	ErrCountMismatch = errors.New("slab: free count mismatch")

	// ErrPoisonDamaged indicates a free slot was written after it was freed.
	ErrPoisonDamaged = errors.New("slab: free slot poison damaged")
)
