package slab

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Verify walks the free list and checks it against the counters and the
// poison pattern. It returns the set of free slot indices.
//
// Verify must not run concurrently with Allocate or Deallocate on the class.
func (c *Class) Verify() (*roaring.Bitmap, error) {
	free := roaring.New()

	link := linkOf(c.head.Load())
	for link != nilLink {
		if link > c.slotCount {
			return free, fmt.Errorf("%w: link %d beyond %d slots", ErrFreeListCorrupt, link, c.slotCount)
		}
		i := link - 1
		if !free.CheckedAdd(i) {
			return free, fmt.Errorf("%w: slot %d reached twice", ErrFreeListCycle, i)
		}
		if at := firstDamaged(c.slot(i)); at >= 0 {
			return free, fmt.Errorf("%w: slot %d byte %d", ErrPoisonDamaged, i, at)
		}
		link = c.linkWord(i).Load()
	}

	if got, want := free.GetCardinality(), uint64(c.NumFree()); got != want { //nolint:gosec // NumFree >= 0
		return free, fmt.Errorf("%w: %d slots on free list, counters say %d", ErrCountMismatch, got, want)
	}
	return free, nil
}

// firstDamaged returns the offset of the first padding byte of a free slot
// that no longer holds DeallocScrubByte, or -1.
func firstDamaged(b []byte) int {
	for i := LinkSize; i < len(b); i++ {
		if b[i] != DeallocScrubByte {
			return i
		}
	}
	return -1
}
