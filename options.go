package slabkit

import (
	"time"

	"github.com/hupe1980/slabkit/internal/preempt"
)

// ClassConfig describes one size class.
type ClassConfig struct {
	// SlotSize is the size of every slot in bytes. It must be a multiple of 8
	// and at least 8.
	SlotSize int
	// RegionSize is the memory reserved for the class in bytes. Bytes past the
	// last whole slot stay unused.
	RegionSize int
}

// Slots returns the number of slots the class holds.
func (c ClassConfig) Slots() int {
	if c.SlotSize <= 0 {
		return 0
	}
	return c.RegionSize / c.SlotSize
}

const (
	// DefaultNoticeInterval is the minimum spacing of fallback warnings.
	DefaultNoticeInterval = time.Second
	// DefaultChunkSize is the reservation granularity of the default Reserver.
	DefaultChunkSize = 1 << 20
)

// DefaultClasses returns the default size classes.
func DefaultClasses() []ClassConfig {
	return []ClassConfig{
		{SlotSize: 16, RegionSize: 128 << 10},
		{SlotSize: 32, RegionSize: 128 << 10},
		{SlotSize: 64, RegionSize: 512 << 10},
		{SlotSize: 128, RegionSize: 512 << 10},
	}
}

// Guard brackets every free-list operation. The default pins the calling
// goroutine to its OS thread for the few instructions of a push or pop.
// A Guard is not a lock.
type Guard = preempt.Guard

// NoopGuard returns a Guard that does nothing.
func NoopGuard() Guard { return preempt.Noop{} }

type options struct {
	classes          []ClassConfig
	reserver         Reserver
	fallback         FallbackAllocator
	fallbackLimit    int64
	logger           *Logger
	metricsCollector MetricsCollector
	guard            Guard
	noticeInterval   time.Duration
}

func defaultOptions() options {
	return options{
		classes:          DefaultClasses(),
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		guard:            preempt.Pin{},
		noticeInterval:   DefaultNoticeInterval,
	}
}

// Option configures New.
type Option func(*options)

// WithClasses replaces the size classes. Order does not matter; New sorts
// them by slot size.
func WithClasses(classes ...ClassConfig) Option {
	return func(o *options) {
		o.classes = append([]ClassConfig(nil), classes...)
	}
}

// WithReserver configures where class regions come from.
//
// If nil is passed, an anonymous-mapping ArenaReserver is used.
func WithReserver(r Reserver) Option {
	return func(o *options) {
		o.reserver = r
	}
}

// WithFallback configures the allocator behind exhausted classes.
//
// If nil is passed, a HeapFallback is used. A custom fallback ignores
// WithFallbackLimit.
func WithFallback(f FallbackAllocator) Option {
	return func(o *options) {
		o.fallback = f
	}
}

// WithFallbackLimit caps the bytes the default HeapFallback may hold at once.
// 0 means unlimited. Exceeding the cap makes Alloc fail fatally.
func WithFallbackLimit(bytes int64) Option {
	return func(o *options) {
		o.fallbackLimit = bytes
	}
}

// WithLogger configures the logger. Pass nil to disable logging.
//
// Example:
//
//	a, _ := slabkit.New(slabkit.WithLogger(slabkit.NewTextLogger(slog.LevelDebug)))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &slabkit.BasicMetricsCollector{}
//	a, _ := slabkit.New(slabkit.WithMetricsCollector(metrics))
//	// ... later
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithGuard replaces the section that brackets free-list operations.
// If nil is passed, the OS-thread pin is used.
func WithGuard(g Guard) Option {
	return func(o *options) {
		if g == nil {
			g = preempt.Pin{}
		}
		o.guard = g
	}
}

// WithNoticeInterval sets the minimum spacing of fallback warnings.
// 0 logs every degraded allocation.
func WithNoticeInterval(d time.Duration) Option {
	return func(o *options) {
		o.noticeInterval = d
	}
}
