// Package slabkit provides a fixed-size-class (slab) memory allocator for
// high-frequency, small, uniformly sized allocations.
//
// An Allocator pre-reserves one contiguous region per size class, splits it
// into equal slots and keeps the free slots on a lock-free list. Requests are
// routed to the smallest class that fits. When a class runs out of slots the
// request is served by a fallback allocator instead, so allocation never fails
// merely because a pool is exhausted.
//
// # Quick Start
//
//	a, err := slabkit.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b := a.Alloc(48)     // 64-byte class; len(b) == 48, cap(b) == 64
//	// ... use b ...
//	a.Dealloc(b, 48)     // same size as Alloc
//
// # Size Classes
//
// DefaultClasses mirrors a small-object kernel heap:
//
//	16 B slots over 128 KiB
//	32 B slots over 128 KiB
//	64 B slots over 512 KiB
//	128 B slots over 512 KiB
//
// Slot sizes must be multiples of 8 and at least 8 bytes. Use WithClasses to
// configure others.
//
// # Fatal Errors
//
// Alloc and Dealloc treat caller bugs as fatal. They panic with an error
// wrapping ErrNilHandle, ErrMisaligned, ErrInvalidSize, ErrSizeTooLarge or
// ErrFallbackFailed after logging it, so recovered values work with errors.Is.
// Configuration mistakes are reported by New as a *ConfigError.
//
// # Memory Hygiene
//
// Every slot handed out is filled with AllocScrubByte and every returned slot
// with DeallocScrubByte. Verify walks the free lists while the allocator is
// quiescent and reports free slots whose poison was overwritten.
package slabkit
