package slabkit

import (
	"sync/atomic"
)

// MetricsCollector defines an interface for collecting allocator metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// package slabmetrics provides one.
//
// Both methods run on the allocation hot path and must not block.
type MetricsCollector interface {
	// RecordAlloc is called after each successful Alloc.
	// fallback reports whether the fallback allocator served the request.
	RecordAlloc(slotSize int, fallback bool)

	// RecordDealloc is called after each successful Dealloc.
	// fallback reports whether the memory went back to the fallback allocator.
	RecordDealloc(slotSize int, fallback bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, bool)   {}
func (NoopMetricsCollector) RecordDealloc(int, bool) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount           atomic.Int64
	DeallocCount         atomic.Int64
	FallbackAllocCount   atomic.Int64
	FallbackDeallocCount atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(_ int, fallback bool) {
	b.AllocCount.Add(1)
	if fallback {
		b.FallbackAllocCount.Add(1)
	}
}

// RecordDealloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDealloc(_ int, fallback bool) {
	b.DeallocCount.Add(1)
	if fallback {
		b.FallbackDeallocCount.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:           b.AllocCount.Load(),
		DeallocCount:         b.DeallocCount.Load(),
		FallbackAllocCount:   b.FallbackAllocCount.Load(),
		FallbackDeallocCount: b.FallbackDeallocCount.Load(),
		Outstanding:          b.AllocCount.Load() - b.DeallocCount.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount           int64
	DeallocCount         int64
	FallbackAllocCount   int64
	FallbackDeallocCount int64
	Outstanding          int64
}
