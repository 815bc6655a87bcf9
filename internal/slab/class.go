package slab

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/slabkit/internal/conv"
	"github.com/hupe1980/slabkit/internal/mem"
	"github.com/hupe1980/slabkit/internal/preempt"
)

const (
	// AllocScrubByte fills every slot handed out from the free list.
	AllocScrubByte byte = 0xab
	// DeallocScrubByte poisons every slot returned to the free list.
	DeallocScrubByte byte = 0xbc

	// LinkSize is the size of the free-list link stored in a free slot.
	LinkSize = 4
	// Alignment is the granularity of slot sizes; it keeps every link word aligned.
	Alignment = 8
	// MinSlotSize is the smallest slot that holds a link plus padding.
	MinSlotSize = 8
	// MaxSlots is the most slots one class can index with a 32-bit link.
	MaxSlots = math.MaxUint32 - 1
)

// Fallback is the general-purpose allocator behind a class.
type Fallback interface {
	// Alloc returns size bytes, or an error if it cannot.
	Alloc(size int) ([]byte, error)
	// Free releases memory previously returned by Alloc.
	Free(b []byte)
}

// Option configures a Class.
type Option func(*Class)

// WithGuard sets the section that brackets free-list pops and pushes.
func WithGuard(g preempt.Guard) Option {
	return func(c *Class) {
		if g != nil {
			c.guard = g
		}
	}
}

// WithFallback sets the allocator used when the free list is empty.
func WithFallback(f Fallback) Option {
	return func(c *Class) {
		if f != nil {
			c.fallback = f
		}
	}
}

// Class is a pool of identically sized slots over one region.
type Class struct {
	slotSize  int
	slotCount uint32
	region    []byte
	start     uintptr
	end       uintptr

	head           atomic.Uint64
	live           atomic.Int64
	fallbackAllocs atomic.Uint64
	fallbackFrees  atomic.Uint64

	guard    preempt.Guard
	fallback Fallback
}

// ValidateSlotSize reports whether slotSize can hold the free-list link.
func ValidateSlotSize(slotSize int) error {
	if slotSize < MinSlotSize || slotSize%Alignment != 0 {
		return fmt.Errorf("%w: %d (need a multiple of %d, at least %d)", ErrSlotSize, slotSize, Alignment, MinSlotSize)
	}
	return nil
}

// New builds a class of slotSize slots over region. Every slot starts on the
// free list, poisoned with DeallocScrubByte. Bytes past the last whole slot
// are left unused.
//
// New panics if slotSize is invalid or region holds no slot; these are
// configuration errors, checked by callers beforehand.
func New(slotSize int, region []byte, opts ...Option) *Class {
	if err := ValidateSlotSize(slotSize); err != nil {
		panic(err)
	}
	count, err := conv.IntToUint32(len(region) / slotSize)
	if err != nil || count == 0 || count > MaxSlots {
		panic(fmt.Errorf("%w: %d bytes for %d-byte slots", ErrRegionSize, len(region), slotSize))
	}

	used := int(count) * slotSize
	c := &Class{
		slotSize:  slotSize,
		slotCount: count,
		region:    region[:used:used],
		guard:     preempt.Pin{},
		fallback:  heapFallback{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.start = uintptr(unsafe.Pointer(&c.region[0])) //nolint:gosec // address range only
	c.end = c.start + uintptr(used)

	// Slot i links to slot i-1; the last slot is the head.
	for i := uint32(0); i < count; i++ {
		scrub(c.slot(i), DeallocScrubByte)
		c.linkWord(i).Store(i)
	}
	c.head.Store(pack(0, count))

	return c
}

// Allocate hands out one slot scrubbed with AllocScrubByte. If the free list
// is empty it returns slotSize bytes from the fallback instead; the only error
// is a fallback failure.
func (c *Class) Allocate() ([]byte, error) {
	i, ok := c.pop()
	if !ok {
		b, err := c.fallback.Alloc(c.slotSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %d-byte class: %w", ErrFallback, c.slotSize, err)
		}
		c.fallbackAllocs.Add(1)
		return b, nil
	}

	c.live.Add(1)
	b := c.slot(i)
	scrub(b, AllocScrubByte)
	return b, nil
}

// Deallocate returns b to the class. Memory outside the region came from the
// fallback and is forwarded there. It panics on a nil handle and on an
// in-region address that does not start a slot.
func (c *Class) Deallocate(b []byte) {
	p := unsafe.SliceData(b)
	if p == nil {
		panic(fmt.Errorf("%w: %d-byte class", ErrNilHandle, c.slotSize))
	}

	addr := uintptr(unsafe.Pointer(p)) //nolint:gosec // address range only
	if addr < c.start || addr >= c.end {
		c.fallbackFrees.Add(1)
		c.fallback.Free(b)
		return
	}

	off := addr - c.start
	if off%uintptr(c.slotSize) != 0 {
		panic(fmt.Errorf("%w: offset %d in %d-byte class", ErrMisaligned, off, c.slotSize))
	}

	i := uint32(off / uintptr(c.slotSize)) //nolint:gosec // off < end-start, which fits the slot count
	scrub(c.slot(i), DeallocScrubByte)
	c.push(i)
	c.live.Add(-1)
}

// Check reports whether Deallocate would panic on b, without touching the
// free list. Memory outside the region passes.
func (c *Class) Check(b []byte) error {
	p := unsafe.SliceData(b)
	if p == nil {
		return fmt.Errorf("%w: %d-byte class", ErrNilHandle, c.slotSize)
	}
	addr := uintptr(unsafe.Pointer(p)) //nolint:gosec // address range only
	if addr < c.start || addr >= c.end {
		return nil
	}
	if off := addr - c.start; off%uintptr(c.slotSize) != 0 {
		return fmt.Errorf("%w: offset %d in %d-byte class", ErrMisaligned, off, c.slotSize)
	}
	return nil
}

// Contains reports whether b starts inside the class region.
func (c *Class) Contains(b []byte) bool {
	p := unsafe.SliceData(b)
	if p == nil {
		return false
	}
	addr := uintptr(unsafe.Pointer(p)) //nolint:gosec // address range only
	return addr >= c.start && addr < c.end
}

// SlotSize returns the slot size in bytes.
func (c *Class) SlotSize() int { return c.slotSize }

// SlotCount returns the number of slots in the region.
func (c *Class) SlotCount() int { return int(c.slotCount) }

// RegionSize returns the bytes covered by slots.
func (c *Class) RegionSize() int { return len(c.region) }

// NumAllocated returns the number of slots handed out. The value is advisory.
func (c *Class) NumAllocated() int {
	n := c.live.Load()
	switch {
	case n < 0:
		return 0
	case n > int64(c.slotCount):
		return int(c.slotCount)
	}
	return int(n)
}

// NumFree returns SlotCount() - NumAllocated(). The value is advisory.
func (c *Class) NumFree() int {
	return int(c.slotCount) - c.NumAllocated()
}

// FallbackAllocs returns how many allocations the fallback served.
func (c *Class) FallbackAllocs() uint64 { return c.fallbackAllocs.Load() }

// FallbackFrees returns how many frees were forwarded to the fallback.
func (c *Class) FallbackFrees() uint64 { return c.fallbackFrees.Load() }

// Region returns the class region. It is only meaningful to read while no
// Allocate or Deallocate is in flight, and must not be written.
func (c *Class) Region() []byte { return c.region }

func (c *Class) String() string {
	return fmt.Sprintf("slab.Class{slot: %d, slots: %d, allocated: %d, fallback: %d}",
		c.slotSize, c.slotCount, c.NumAllocated(), c.FallbackAllocs())
}

// heapFallback serves a class built without an explicit fallback.
type heapFallback struct{}

func (heapFallback) Alloc(size int) ([]byte, error) { return mem.AllocAlignedTo(size, Alignment), nil }

func (heapFallback) Free([]byte) {}
