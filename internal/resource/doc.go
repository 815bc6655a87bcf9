// Package resource implements the Controller that governs memory outside the
// slab pools.
//
// The Controller provides two independent facilities:
//
//   - Memory: track and optionally cap bytes handed out by the fallback
//     allocator (non-blocking, fail-fast)
//   - Notices: rate-limit degradation warnings so an exhausted pool under
//     load does not flood the log
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MB fallback budget
//	})
//
//	if err := rc.AcquireMemory(128); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides what is fatal
//	}
//	defer rc.ReleaseMemory(128)
//
// # Notice Limiting
//
// A token bucket with burst 1 admits one notice per NoticeInterval:
//
//	rc := resource.NewController(resource.Config{NoticeInterval: time.Second})
//	if rc.AllowNotice() {
//	    logger.Warn("pool exhausted", "suppressed", rc.Suppressed())
//	}
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource
