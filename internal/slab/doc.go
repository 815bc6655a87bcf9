// Package slab implements a single fixed-slot-size pool with a lock-free free list.
//
// A Class owns one contiguous region, cut into equal slots at construction.
// Free slots are chained through their first LinkSize bytes; the chain head is
// a packed 64-bit word (tag<<32 | link) updated only by compare-and-swap.
//
// # Slot views
//
// A slot is viewed one of two ways, never both at once:
//
//	free:      [ link uint32 | padding (DeallocScrubByte) ... ]
//	allocated: [ caller bytes ....................................... ]
//
// The free view is reached only through an explicit cast to *atomic.Uint32 at
// the class level and is never exposed to callers. Links are slot index + 1;
// zero is the end of the chain.
//
// # Concurrency
//
// Allocate and Deallocate are safe for concurrent use from any number of
// goroutines. Every pop and push runs inside a preempt.Guard section, which
// keeps the caller on its thread for the few instructions between reading the
// head and swapping it; it is not a lock. The tag in the head is bumped by
// every successful swap, so a pop that read a stale head (and possibly a
// garbage successor from a slot that has since been handed out) always fails
// its swap and retries.
//
// Free-list order is an internal detail. The only guarantee is exclusivity: a
// free slot is handed to at most one Allocate call.
//
// # Degradation
//
// When the list is empty, Allocate returns memory from the Fallback instead.
// Deallocate recognizes such memory by address range and forwards it back.
package slab
