// Package mem provides memory allocation utilities.
package mem

import (
	"unsafe"
)

// Alignment is the default byte alignment (one cache line).
const Alignment = 64

// AllocAligned allocates a zeroed byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
func AllocAligned(size int) []byte {
	return AllocAlignedTo(size, Alignment)
}

// AllocAlignedTo allocates a zeroed byte slice of the given size whose first
// byte sits on an align boundary. align must be a power of two.
//
// The slice is capped at size (len == cap), so a caller can recover the
// requested size from cap() and cannot grow into the alignment slack.
// The underlying array is kept alive by the returned slice.
func AllocAlignedTo(size, align int) []byte {
	if size <= 0 {
		return nil
	}
	if align <= 1 {
		return make([]byte, size)
	}

	// Allocate size + alignment to ensure we can find an aligned offset
	// We need enough space to shift the start pointer up to align-1 bytes
	buf := make([]byte, size+align)

	// Calculate the offset to the first aligned byte
	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	mask := uintptr(align - 1)
	offset := (uintptr(align) - (addr & mask)) & mask

	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// IsAligned reports whether b starts on an align boundary.
func IsAligned(b []byte, align int) bool {
	p := unsafe.SliceData(b)
	if p == nil || align <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(p))&uintptr(align-1) == 0 //nolint:gosec // address inspection only
}
