// Package arena provides a permanent bump allocator for boot-time reservations.
//
// Memory handed out by an Arena is never returned: there is no Free, no Reset,
// and no per-reservation release. This matches the life cycle of slab regions,
// which are reserved once at start-up and live as long as the process.
//
// # Features
//
//   - Off-heap chunks via anonymous mmap (no GC scanning, stable addresses)
//   - Heap-backed chunks where anonymous mappings are unavailable
//   - Lock-free CAS bump within the current chunk
//   - Oversized reservations get a dedicated chunk, so nothing is wasted
//
// # Safety
//
// Reserve returns errors instead of panicking. Whether a failed reservation is
// fatal is the caller's decision.
package arena
