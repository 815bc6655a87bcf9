// Package preempt provides the scoped "do not migrate me" section that brackets
// every free-list pop and push.
//
// # Not a lock
//
// A Guard protects only the continuity of the calling goroutine: while inside
// Enter/Leave it stays on its current OS thread, so the read-head, read-next,
// compare-and-swap sequence is not split across a thread migration. A Guard
// never excludes other goroutines. Any number of goroutines on other threads
// may run the same free-list protocol at the same time, and must be allowed
// to; wrapping a Guard around a mutex would serialize the allocator and is
// never needed for correctness, which comes from the compare-and-swap alone.
//
// # Implementations
//
//   - Pin: runtime.LockOSThread / runtime.UnlockOSThread (default)
//   - Noop: no-op, for callers that already run on a locked thread
package preempt
