package arena

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/slabkit/internal/conv"
	"github.com/hupe1980/slabkit/internal/mem"
	"github.com/hupe1980/slabkit/internal/mmap"
)

var (
	// ErrInvalidSize is returned when a reservation size is not positive.
	ErrInvalidSize = errors.New("arena: reservation size must be positive")
	// ErrMaxChunksExceeded is returned when the arena exceeds the maximum number of chunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
)

const (
	// DefaultChunkSize is the default size of a chunk (1MB).
	DefaultChunkSize = 1024 * 1024
	// DefaultAlignment is the default reservation alignment (one cache line).
	DefaultAlignment = 64
	// MaxChunks limits the number of chunks to prevent runaway reservations.
	MaxChunks = 4096
)

// Stats tracks arena memory usage metrics.
//
// Note on semantics:
//   - BytesMapped: total memory obtained for chunks (mmap or heap)
//   - BytesReserved: bytes handed out to callers (before alignment)
//   - BytesWasted: padding added for alignment
//   - Chunks: number of chunks held
//   - Reservations: number of successful Reserve calls
type Stats struct {
	BytesMapped   uint64
	BytesReserved uint64
	BytesWasted   uint64
	Chunks        uint64
	Reservations  uint64
}

type atomicStats struct {
	BytesMapped   atomic.Uint64
	BytesReserved atomic.Uint64
	BytesWasted   atomic.Uint64
	Chunks        atomic.Uint64
	Reservations  atomic.Uint64
}

type chunk struct {
	data    []byte
	mapping *mmap.Mapping // Holds the off-heap mapping (nil for heap chunks)
	offset  atomic.Int64  // MUST be atomic - accessed concurrently without locks
}

// Arena is a permanent bump allocator.
type Arena struct {
	chunkSize  int
	alignment  int
	heapChunks bool
	advice     mmap.AccessPattern

	mu      sync.Mutex
	chunks  []*chunk // append-only, protected by mu
	current atomic.Pointer[chunk]
	stats   atomicStats
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithHeapChunks backs the arena with Go heap memory instead of anonymous mappings.
func WithHeapChunks() Option {
	return func(a *Arena) {
		a.heapChunks = true
	}
}

// WithAdvice applies an access pattern hint to every mapped chunk.
// Heap chunks ignore it.
func WithAdvice(p mmap.AccessPattern) Option {
	return func(a *Arena) {
		a.advice = p
	}
}

// WithAlignment sets the alignment of every reservation. It is rounded up to a
// power of two; values <= 0 keep DefaultAlignment.
func WithAlignment(align int) Option {
	return func(a *Arena) {
		if align > 0 {
			a.alignment = 1 << bits.Len(uint(align-1)) //nolint:gosec // align > 0
		}
	}
}

// New creates a new Arena with the given chunk size.
// No memory is obtained until the first reservation.
func New(chunkSize int, opts ...Option) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	a := &Arena{
		chunkSize: chunkSize,
		alignment: DefaultAlignment,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Reserve hands out size bytes of zeroed memory that are never reclaimed.
// The returned slice has len == cap == size and starts on the arena alignment.
// Reserve is safe for concurrent use.
func (a *Arena) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	mask := a.alignment - 1
	alignedSize := (size + mask) & ^mask

	// Oversized reservations get a chunk of their own and leave the
	// current chunk untouched.
	if alignedSize > a.chunkSize {
		a.mu.Lock()
		defer a.mu.Unlock()

		c, err := a.newChunkLocked(alignedSize)
		if err != nil {
			return nil, err
		}
		c.offset.Store(int64(alignedSize))
		a.account(size, alignedSize)
		return c.data[:size:size], nil
	}

	for {
		curr := a.current.Load()
		if curr != nil {
			if data, ok := a.tryReserveInChunk(curr, size, alignedSize); ok {
				return data, nil
			}
		}

		// Current chunk is full (or missing). Only one goroutine maps a new one.
		a.mu.Lock()
		// Double check under lock
		if a.current.Load() != curr {
			a.mu.Unlock()
			continue
		}

		c, err := a.newChunkLocked(a.chunkSize)
		if err != nil {
			a.mu.Unlock()
			return nil, err
		}
		a.current.Store(c)
		a.mu.Unlock()
	}
}

func (a *Arena) tryReserveInChunk(curr *chunk, size, alignedSize int) ([]byte, bool) {
	for {
		oldOffset := curr.offset.Load()
		newOffset := oldOffset + int64(alignedSize)

		if newOffset > int64(len(curr.data)) {
			return nil, false
		}

		if curr.offset.CompareAndSwap(oldOffset, newOffset) {
			a.account(size, alignedSize)
			end := oldOffset + int64(size)
			return curr.data[oldOffset:end:end], true
		}
	}
}

func (a *Arena) account(size, alignedSize int) {
	sizeU64, _ := conv.IntToUint64(size)
	a.stats.BytesReserved.Add(sizeU64)
	wastedU64, _ := conv.IntToUint64(alignedSize - size)
	a.stats.BytesWasted.Add(wastedU64)
	a.stats.Reservations.Add(1)
}

func (a *Arena) newChunkLocked(size int) (*chunk, error) {
	if len(a.chunks) >= MaxChunks {
		return nil, ErrMaxChunksExceeded
	}

	c := &chunk{}
	if !a.heapChunks {
		mapping, err := mmap.MapAnon(size)
		switch {
		case err == nil:
			c.data = mapping.Bytes()
			c.mapping = mapping
			if a.advice != mmap.AccessDefault {
				// Advisory only.
				_ = mapping.Advise(a.advice)
			}
		case errors.Is(err, mmap.ErrUnsupported):
			// Platform without anonymous mappings: degrade to heap chunks for good.
			a.heapChunks = true
		default:
			return nil, fmt.Errorf("arena: failed to map chunk: %w", err)
		}
	}
	if c.data == nil {
		c.data = mem.AllocAlignedTo(size, a.alignment)
	}

	a.chunks = append(a.chunks, c)

	sizeU64, _ := conv.IntToUint64(size)
	a.stats.BytesMapped.Add(sizeU64)
	a.stats.Chunks.Add(1)

	return c, nil
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		BytesMapped:   a.stats.BytesMapped.Load(),
		BytesReserved: a.stats.BytesReserved.Load(),
		BytesWasted:   a.stats.BytesWasted.Load(),
		Chunks:        a.stats.Chunks.Load(),
		Reservations:  a.stats.Reservations.Load(),
	}
}

// Usage returns the share of mapped memory handed out, in percent.
func (a *Arena) Usage() float64 {
	stats := a.Stats()
	if stats.BytesMapped == 0 {
		return 0
	}
	return float64(stats.BytesReserved) / float64(stats.BytesMapped) * 100
}

func (a *Arena) String() string {
	stats := a.Stats()
	return fmt.Sprintf(
		"Arena{chunks: %d, mapped: %.2f MB, reserved: %.2f MB, wasted: %.2f KB, usage: %.1f%%, reservations: %d}",
		stats.Chunks,
		float64(stats.BytesMapped)/(1024*1024),
		float64(stats.BytesReserved)/(1024*1024),
		float64(stats.BytesWasted)/1024,
		a.Usage(),
		stats.Reservations,
	)
}
