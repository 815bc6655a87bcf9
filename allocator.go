package slabkit

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"unsafe"

	"github.com/hupe1980/slabkit/internal/dump"
	"github.com/hupe1980/slabkit/internal/mem"
	"github.com/hupe1980/slabkit/internal/resource"
	"github.com/hupe1980/slabkit/internal/slab"
)

const (
	// AllocScrubByte fills every slot handed out by Alloc.
	AllocScrubByte = slab.AllocScrubByte
	// DeallocScrubByte poisons every slot returned by Dealloc.
	DeallocScrubByte = slab.DeallocScrubByte
)

// Compression selects the block compression of Dump.
type Compression = dump.Compression

const (
	CompressionNone = dump.CompressionNone
	CompressionLZ4  = dump.CompressionLZ4
	CompressionZSTD = dump.CompressionZSTD
)

// ClassStats is a snapshot of one size class.
type ClassStats struct {
	SlotSize       int
	SlotCount      int
	Allocated      int
	Free           int
	RegionBytes    int
	FallbackAllocs uint64
	FallbackFrees  uint64
}

// Allocator routes requests to size classes. It is safe for concurrent use.
//
// An Allocator owns its class regions for the life of the process; there is
// no Close.
type Allocator struct {
	classes  []*slab.Class // ascending slot size
	sizes    []int
	configs  []ClassConfig
	fallback FallbackAllocator
	logger   *Logger
	metrics  MetricsCollector
	notices  *resource.Controller
}

// New reserves and links every class.
func New(optFns ...Option) (*Allocator, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	configs, err := validate(&opts)
	if err != nil {
		return nil, err
	}

	if opts.reserver == nil {
		opts.reserver = NewArenaReserver(DefaultChunkSize)
	}
	if opts.fallback == nil {
		opts.fallback = NewHeapFallback(opts.fallbackLimit)
	}

	a := &Allocator{
		configs:  configs,
		fallback: opts.fallback,
		logger:   opts.logger,
		metrics:  opts.metricsCollector,
		notices:  resource.NewController(resource.Config{NoticeInterval: opts.noticeInterval}),
	}

	for _, cfg := range configs {
		region, err := opts.reserver.ReservePermanent(cfg.RegionSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %d-byte class, %d bytes: %w", ErrReserveFailed, cfg.SlotSize, cfg.RegionSize, err)
		}
		if len(region) < cfg.RegionSize {
			return nil, fmt.Errorf("%w: %d-byte class: got %d of %d bytes", ErrReserveFailed, cfg.SlotSize, len(region), cfg.RegionSize)
		}
		if !mem.IsAligned(region, slab.Alignment) {
			return nil, fmt.Errorf("%w: %d-byte class: region not %d-byte aligned", ErrReserveFailed, cfg.SlotSize, slab.Alignment)
		}

		cls := slab.New(cfg.SlotSize, region[:cfg.RegionSize],
			slab.WithGuard(opts.guard),
			slab.WithFallback(&classFallback{a: a, slotSize: cfg.SlotSize}),
		)
		a.classes = append(a.classes, cls)
		a.sizes = append(a.sizes, cfg.SlotSize)
		a.logger.LogClassInit(cls.SlotSize(), cls.SlotCount(), cls.RegionSize())
	}

	return a, nil
}

// MustNew is like New but panics if the allocator cannot be built.
func MustNew(optFns ...Option) *Allocator {
	a, err := New(optFns...)
	if err != nil {
		panic(err)
	}
	return a
}

func validate(o *options) ([]ClassConfig, error) {
	if len(o.classes) == 0 {
		return nil, &ConfigError{Field: "classes", Reason: "at least one class is required"}
	}
	if o.fallbackLimit < 0 {
		return nil, &ConfigError{Field: "fallback limit", Value: o.fallbackLimit, Reason: "must not be negative"}
	}
	if o.noticeInterval < 0 {
		return nil, &ConfigError{Field: "notice interval", Value: o.noticeInterval, Reason: "must not be negative"}
	}

	configs := slices.Clone(o.classes)
	slices.SortFunc(configs, func(x, y ClassConfig) int { return x.SlotSize - y.SlotSize })

	for i, cfg := range configs {
		if err := slab.ValidateSlotSize(cfg.SlotSize); err != nil {
			return nil, &ConfigError{Field: "slot size", Value: cfg.SlotSize, Reason: "must be a multiple of 8 and at least 8", cause: err}
		}
		if i > 0 && configs[i-1].SlotSize == cfg.SlotSize {
			return nil, &ConfigError{Field: "slot size", Value: cfg.SlotSize, Reason: "duplicate class"}
		}
		if cfg.RegionSize < cfg.SlotSize {
			return nil, &ConfigError{Field: "region size", Value: cfg.RegionSize, Reason: fmt.Sprintf("must hold at least one %d-byte slot", cfg.SlotSize)}
		}
		if uint64(cfg.Slots()) > slab.MaxSlots {
			return nil, &ConfigError{Field: "region size", Value: cfg.RegionSize, Reason: fmt.Sprintf("exceeds %d slots", uint64(slab.MaxSlots))}
		}
	}
	return configs, nil
}

// classIndex returns the index of the smallest class that fits size, or -1.
func (a *Allocator) classIndex(size int) int {
	i := sort.SearchInts(a.sizes, size)
	if i == len(a.sizes) {
		return -1
	}
	return i
}

func (a *Allocator) classFor(op string, size int) *slab.Class {
	if size < 0 {
		a.fatal(op, fmt.Errorf("%w: %d", ErrInvalidSize, size))
	}
	i := a.classIndex(size)
	if i < 0 {
		a.fatal(op, fmt.Errorf("%w: %d > %d", ErrSizeTooLarge, size, a.sizes[len(a.sizes)-1]))
	}
	return a.classes[i]
}

// Alloc returns memory for size bytes from the smallest class that fits.
// len is size and cap is the class slot size. The contents are
// AllocScrubByte.
//
// Alloc panics if size is negative, larger than the largest class, or if an
// exhausted class cannot be served by the fallback allocator.
func (a *Allocator) Alloc(size int) []byte {
	cls := a.classFor("alloc", size)

	b, err := cls.Allocate()
	if err != nil {
		a.fatal("alloc", fmt.Errorf("%w: %w", ErrFallbackFailed, err))
	}

	a.metrics.RecordAlloc(cls.SlotSize(), !cls.Contains(b))
	return b[:size]
}

// Dealloc returns b, obtained from Alloc(size), to its class. size must be the
// size passed to Alloc.
//
// Dealloc panics on a nil b, on a size Alloc would have rejected, and on an
// address inside a class region that does not start a slot.
func (a *Allocator) Dealloc(b []byte, size int) {
	if unsafe.SliceData(b) == nil {
		a.fatal("dealloc", fmt.Errorf("%w: size %d", ErrNilHandle, size))
	}
	cls := a.classFor("dealloc", size)
	if err := cls.Check(b); err != nil {
		a.fatal("dealloc", err)
	}

	fallback := !cls.Contains(b)
	cls.Deallocate(b)
	a.metrics.RecordDealloc(cls.SlotSize(), fallback)
}

func (a *Allocator) fatal(op string, err error) {
	a.logger.LogFatal(op, err)
	panic(err)
}

// ForEachClass calls fn for every class in ascending slot size order.
// The counts are advisory while allocations are in flight.
func (a *Allocator) ForEachClass(fn func(slotSize, allocated, free int)) {
	for _, cls := range a.classes {
		allocated := cls.NumAllocated()
		fn(cls.SlotSize(), allocated, cls.SlotCount()-allocated)
	}
}

// Stats returns a snapshot of every class in ascending slot size order.
func (a *Allocator) Stats() []ClassStats {
	stats := make([]ClassStats, 0, len(a.classes))
	for _, cls := range a.classes {
		allocated := cls.NumAllocated()
		stats = append(stats, ClassStats{
			SlotSize:       cls.SlotSize(),
			SlotCount:      cls.SlotCount(),
			Allocated:      allocated,
			Free:           cls.SlotCount() - allocated,
			RegionBytes:    cls.RegionSize(),
			FallbackAllocs: cls.FallbackAllocs(),
			FallbackFrees:  cls.FallbackFrees(),
		})
	}
	return stats
}

// Classes returns the class configuration in ascending slot size order.
func (a *Allocator) Classes() []ClassConfig {
	return slices.Clone(a.configs)
}

// Fallback returns the allocator behind exhausted classes.
func (a *Allocator) Fallback() FallbackAllocator { return a.fallback }

// Verify checks the free list of every class against its counters and the
// poison pattern. It must not run concurrently with Alloc or Dealloc.
func (a *Allocator) Verify() error {
	var errs []error
	for _, cls := range a.classes {
		free, err := cls.Verify()
		a.logger.LogVerify(cls.SlotSize(), int(free.GetCardinality()), err) //nolint:gosec // bounded by the slot count
		if err != nil {
			errs = append(errs, fmt.Errorf("%d-byte class: %w", cls.SlotSize(), err))
		}
	}
	return errors.Join(errs...)
}

// Dump writes an image of every class region to w. Like Verify, it must not
// run concurrently with Alloc or Dealloc.
func (a *Allocator) Dump(w io.Writer, c Compression) error {
	images := make([]slab.Image, 0, len(a.classes))
	for _, cls := range a.classes {
		images = append(images, cls.Image())
	}
	return dump.Write(w, images, c)
}
