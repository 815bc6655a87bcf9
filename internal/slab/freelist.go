package slab

import (
	"sync/atomic"
	"unsafe"
)

// nilLink terminates the free list.
const nilLink uint32 = 0

// The head packs a modification tag above the link of the first free slot.
func pack(tag, link uint32) uint64 { return uint64(tag)<<32 | uint64(link) }

func tagOf(head uint64) uint32 { return uint32(head >> 32) }

func linkOf(head uint64) uint32 { return uint32(head) }

// linkWord is the free view of slot i: its first LinkSize bytes as an atomic word.
func (c *Class) linkWord(i uint32) *atomic.Uint32 {
	off := int(i) * c.slotSize
	return (*atomic.Uint32)(unsafe.Pointer(&c.region[off])) //nolint:gosec // slot offsets are multiples of Alignment
}

// slot is the allocated view of slot i.
func (c *Class) slot(i uint32) []byte {
	off := int(i) * c.slotSize
	end := off + c.slotSize
	return c.region[off:end:end]
}

// pop detaches the first free slot.
func (c *Class) pop() (uint32, bool) {
	c.guard.Enter()
	defer c.guard.Leave()

	old := c.head.Load()
	for {
		link := linkOf(old)
		if link == nilLink {
			return 0, false
		}
		// If another pop wins first, this slot may already belong to a caller
		// and next may be garbage. The tag has moved on, so the swap fails.
		next := c.linkWord(link - 1).Load()
		if c.head.CompareAndSwap(old, pack(tagOf(old)+1, next)) {
			return link - 1, true
		}
		old = c.head.Load()
	}
}

// push puts slot i back on the free list.
func (c *Class) push(i uint32) {
	c.guard.Enter()
	defer c.guard.Leave()

	w := c.linkWord(i)
	for {
		old := c.head.Load()
		w.Store(linkOf(old))
		if c.head.CompareAndSwap(old, pack(tagOf(old)+1, i+1)) {
			return
		}
	}
}

// scrub overwrites the whole slot with pattern. The link word is stored
// atomically because a stale pop may read it concurrently.
func scrub(b []byte, pattern byte) {
	(*atomic.Uint32)(unsafe.Pointer(&b[0])).Store(patternWord(pattern)) //nolint:gosec // slot start is aligned
	fill(b[LinkSize:], pattern)
}

func patternWord(p byte) uint32 {
	return uint32(p) * 0x01010101
}

func fill(b []byte, p byte) {
	if len(b) == 0 {
		return
	}
	b[0] = p
	for n := 1; n < len(b); n *= 2 {
		copy(b[n:], b[:n])
	}
}
