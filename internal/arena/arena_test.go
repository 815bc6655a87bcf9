package arena

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"unsafe"

	"github.com/hupe1980/slabkit/internal/mmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func TestArena_New(t *testing.T) {
	t.Run("default chunk size", func(t *testing.T) {
		a := New(0)
		assert.Equal(t, DefaultChunkSize, a.chunkSize)
		assert.Equal(t, DefaultAlignment, a.alignment)
		assert.Nil(t, a.current.Load(), "chunks are mapped lazily")
	})

	t.Run("alignment rounded to power of two", func(t *testing.T) {
		a := New(4096, WithAlignment(24))
		assert.Equal(t, 32, a.alignment)
	})
}

func TestArena_Reserve(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"mmap", nil},
		{"heap", []Option{WithHeapChunks()}},
		{"mmap advised", []Option{WithAdvice(mmap.AccessRandom)}},
		{"heap advised", []Option{WithHeapChunks(), WithAdvice(mmap.AccessWillNeed)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := New(4096, tc.opts...)

			buf, err := a.Reserve(100)
			require.NoError(t, err)
			assert.Len(t, buf, 100)
			assert.Equal(t, 100, cap(buf))
			assert.Zero(t, addr(buf)%DefaultAlignment)
			for i := range buf {
				require.Zero(t, buf[i], "byte %d not zero", i)
			}

			next, err := a.Reserve(10)
			require.NoError(t, err)
			assert.Zero(t, addr(next)%DefaultAlignment)
			assert.GreaterOrEqual(t, addr(next), addr(buf)+100, "reservations must not overlap")
		})
	}
}

func TestArena_ReserveInvalidSize(t *testing.T) {
	a := New(4096)

	_, err := a.Reserve(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = a.Reserve(-5)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestArena_Oversized(t *testing.T) {
	a := New(4096, WithHeapChunks())

	small, err := a.Reserve(64)
	require.NoError(t, err)

	big, err := a.Reserve(3 * 4096)
	require.NoError(t, err)
	assert.Len(t, big, 3*4096)

	// The current chunk keeps serving small reservations.
	again, err := a.Reserve(64)
	require.NoError(t, err)
	assert.Equal(t, addr(small)+64, addr(again))

	stats := a.Stats()
	assert.Equal(t, uint64(2), stats.Chunks)
	assert.Equal(t, uint64(3), stats.Reservations)
	assert.Equal(t, uint64(64+3*4096+64), stats.BytesReserved)
}

func TestArena_Stats(t *testing.T) {
	a := New(1024, WithHeapChunks())

	_, err := a.Reserve(100) // padded to 128
	require.NoError(t, err)

	stats := a.Stats()
	assert.Equal(t, uint64(1024), stats.BytesMapped)
	assert.Equal(t, uint64(100), stats.BytesReserved)
	assert.Equal(t, uint64(28), stats.BytesWasted)
	assert.Equal(t, uint64(1), stats.Chunks)
	assert.InDelta(t, 100.0/1024*100, a.Usage(), 0.001)
	assert.Contains(t, a.String(), "reservations: 1")
}

func TestArena_ChunkRollover(t *testing.T) {
	a := New(256, WithHeapChunks())

	for i := 0; i < 10; i++ {
		_, err := a.Reserve(64)
		require.NoError(t, err)
	}

	// 4 reservations of 64 fit per 256-byte chunk.
	assert.Equal(t, uint64(3), a.Stats().Chunks)
}

func TestArena_Concurrent(t *testing.T) {
	a := New(4096)

	const goroutines = 8
	const perGoroutine = 200

	var mu sync.Mutex
	var starts []uintptr

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uintptr, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				buf, err := a.Reserve(48)
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, addr(buf))
			}
			mu.Lock()
			starts = append(starts, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, starts, goroutines*perGoroutine)
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	for i := 1; i < len(starts); i++ {
		require.GreaterOrEqual(t, starts[i]-starts[i-1], uintptr(48), "overlapping reservations at %d", i)
	}
}

func BenchmarkArena_Reserve(b *testing.B) {
	for _, size := range []int{16, 128, 1024} {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			a := New(DefaultChunkSize, WithHeapChunks())
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := a.Reserve(size); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
