// Package mmap provides anonymous, off-heap memory mappings.
//
// Mappings created here are invisible to the Go garbage collector and never
// move, which makes them a stable backing store for address-range checks.
//
// # Usage
//
//	m, err := mmap.MapAnon(1 << 20)
//	if err != nil {
//	    return err
//	}
//	buf := m.Bytes() // read-write, zero-filled, page aligned
//
// MapAnon() creates read-write anonymous mappings (MAP_ANON|MAP_PRIVATE on Unix,
// VirtualAlloc on Windows). Pages are committed lazily by the kernel on first touch.
package mmap
