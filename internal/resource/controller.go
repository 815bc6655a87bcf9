package resource

import (
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for fallback memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// NoticeInterval is the minimum spacing between degradation notices.
	// If 0, every notice is allowed.
	NoticeInterval time.Duration
}

// Controller governs memory that bypasses the slab pools.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64
	peak    atomic.Int64

	// Notices
	noticeLimiter *rate.Limiter // nil if unlimited
	suppressed    atomic.Uint64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg: cfg,
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.NoticeInterval > 0 {
		c.noticeLimiter = rate.NewLimiter(rate.Every(cfg.NoticeInterval), 1)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - the fallback path must not wait.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	used := c.memUsed.Add(bytes)
	for {
		p := c.peak.Load()
		if used <= p || c.peak.CompareAndSwap(p, used) {
			break
		}
	}
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// PeakMemoryUsage returns the highest memory usage observed.
func (c *Controller) PeakMemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.peak.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AllowNotice reports whether a degradation notice may be emitted now.
// Denied notices are counted and can be read with Suppressed.
func (c *Controller) AllowNotice() bool {
	if c == nil || c.noticeLimiter == nil {
		return true
	}
	if c.noticeLimiter.AllowN(time.Now(), 1) {
		return true
	}
	c.suppressed.Add(1)
	return false
}

// Suppressed returns the number of notices denied by AllowNotice and resets it.
func (c *Controller) Suppressed() uint64 {
	if c == nil {
		return 0
	}
	return c.suppressed.Swap(0)
}
