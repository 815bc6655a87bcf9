package slabkit

import (
	"fmt"

	"github.com/hupe1980/slabkit/internal/mem"
	"github.com/hupe1980/slabkit/internal/resource"
	"github.com/hupe1980/slabkit/internal/slab"
)

// FallbackAllocator serves requests that no class pool can.
//
// Free receives exactly the slices Alloc returned, with their original
// capacity.
type FallbackAllocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte)
}

// HeapFallback allocates from the Go heap. With a limit it tracks the bytes
// it has handed out and refuses requests beyond it.
type HeapFallback struct {
	ctrl *resource.Controller
}

// NewHeapFallback returns a heap fallback holding at most limit bytes at once.
// A limit of 0 disables the cap.
func NewHeapFallback(limit int64) *HeapFallback {
	return &HeapFallback{
		ctrl: resource.NewController(resource.Config{MemoryLimitBytes: limit}),
	}
}

// Alloc implements FallbackAllocator.
func (h *HeapFallback) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if err := h.ctrl.AcquireMemory(int64(size)); err != nil {
		return nil, fmt.Errorf("%w: %d bytes in use, %d requested: %w",
			ErrFallbackLimit, h.ctrl.MemoryUsage(), size, err)
	}
	return mem.AllocAlignedTo(size, slab.Alignment), nil
}

// Free implements FallbackAllocator. The memory itself is left to the garbage
// collector.
func (h *HeapFallback) Free(b []byte) {
	h.ctrl.ReleaseMemory(int64(cap(b)))
}

// InUse returns the bytes currently handed out.
func (h *HeapFallback) InUse() int64 { return h.ctrl.MemoryUsage() }

// Peak returns the most bytes ever handed out at once.
func (h *HeapFallback) Peak() int64 { return h.ctrl.PeakMemoryUsage() }

// Limit returns the configured cap, 0 if unlimited.
func (h *HeapFallback) Limit() int64 { return h.ctrl.MemoryLimit() }

// classFallback connects one class to the shared fallback and reports
// degradation.
type classFallback struct {
	a        *Allocator
	slotSize int
}

func (f *classFallback) Alloc(size int) ([]byte, error) {
	b, err := f.a.fallback.Alloc(size)
	if err != nil {
		return nil, err
	}
	if f.a.notices.AllowNotice() {
		f.a.logger.LogFallback(f.slotSize, f.a.notices.Suppressed())
	}
	return b, nil
}

func (f *classFallback) Free(b []byte) {
	f.a.fallback.Free(b)
}

var (
	_ FallbackAllocator = (*HeapFallback)(nil)
	_ slab.Fallback     = (*classFallback)(nil)
)
