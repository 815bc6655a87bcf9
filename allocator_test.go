package slabkit

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/slabkit/internal/dump"
	"github.com/hupe1980/slabkit/testutil"
)

func newTestAllocator(t testing.TB, opts ...Option) *Allocator {
	t.Helper()
	a, err := New(append([]Option{WithReserver(NewHeapReserver(0))}, opts...)...)
	require.NoError(t, err)
	return a
}

func requirePanicIs(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic wrapping %v", target)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, target)
	}()
	fn()
}

type failingReserver struct{ short, skewed bool }

func (r failingReserver) ReservePermanent(size int) ([]byte, error) {
	if r.short {
		return make([]byte, size/2), nil
	}
	if r.skewed {
		return make([]byte, size+8)[1 : size+1], nil
	}
	return nil, errors.New("out of address space")
}

func bufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNew_Defaults(t *testing.T) {
	a := newTestAllocator(t)

	assert.Equal(t, DefaultClasses(), a.Classes())

	stats := a.Stats()
	require.Len(t, stats, 4)
	for i, want := range []struct{ slot, slots int }{{16, 8192}, {32, 4096}, {64, 8192}, {128, 4096}} {
		assert.Equal(t, want.slot, stats[i].SlotSize)
		assert.Equal(t, want.slots, stats[i].SlotCount)
		assert.Equal(t, want.slots, stats[i].Free)
		assert.Zero(t, stats[i].Allocated)
	}
	require.NoError(t, a.Verify())
}

func TestNew_MappedReserver(t *testing.T) {
	r := NewArenaReserver(0)
	a, err := New(WithReserver(r))
	require.NoError(t, err)

	b := a.Alloc(100)
	assert.Equal(t, 128, cap(b))
	a.Dealloc(b, 100)

	assert.Equal(t, uint64(4), r.Stats().Reservations)
}

func TestNew_SortsClasses(t *testing.T) {
	a := newTestAllocator(t, WithClasses(
		ClassConfig{SlotSize: 64, RegionSize: 4096},
		ClassConfig{SlotSize: 8, RegionSize: 1024},
	))

	var sizes []int
	a.ForEachClass(func(slotSize, _, _ int) { sizes = append(sizes, slotSize) })
	assert.Equal(t, []int{8, 64}, sizes)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		field string
	}{
		{"NoClasses", []Option{WithClasses()}, "classes"},
		{"SlotTooSmall", []Option{WithClasses(ClassConfig{SlotSize: 4, RegionSize: 1024})}, "slot size"},
		{"SlotUnaligned", []Option{WithClasses(ClassConfig{SlotSize: 12, RegionSize: 1024})}, "slot size"},
		{"Duplicate", []Option{WithClasses(ClassConfig{16, 1024}, ClassConfig{16, 2048})}, "slot size"},
		{"RegionTooSmall", []Option{WithClasses(ClassConfig{SlotSize: 64, RegionSize: 32})}, "region size"},
		{"NegativeLimit", []Option{WithFallbackLimit(-1)}, "fallback limit"},
		{"NegativeInterval", []Option{WithNoticeInterval(-time.Second)}, "notice interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			require.ErrorIs(t, err, ErrInvalidConfig)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestNew_ReserveFailed(t *testing.T) {
	_, err := New(WithReserver(failingReserver{}))
	assert.ErrorIs(t, err, ErrReserveFailed)

	_, err = New(WithReserver(failingReserver{short: true}))
	assert.ErrorIs(t, err, ErrReserveFailed)

	_, err = New(WithReserver(failingReserver{skewed: true}))
	assert.ErrorIs(t, err, ErrReserveFailed)
}

func TestMustNew(t *testing.T) {
	requirePanicIs(t, ErrInvalidConfig, func() { MustNew(WithClasses()) })
	assert.NotNil(t, MustNew(WithReserver(NewHeapReserver(0))))
}

func TestAlloc_BoundarySizing(t *testing.T) {
	a := newTestAllocator(t)

	tests := []struct {
		size int
		slot int
	}{
		{0, 16},
		{1, 16},
		{16, 16},
		{17, 32},
		{33, 64},
		{64, 64},
		{65, 128},
		{128, 128},
	}

	for _, tt := range tests {
		b := a.Alloc(tt.size)
		assert.Len(t, b, tt.size, "size=%d", tt.size)
		assert.Equal(t, tt.slot, cap(b), "size=%d", tt.size)
		a.Dealloc(b, tt.size)
	}

	requirePanicIs(t, ErrSizeTooLarge, func() { a.Alloc(129) })
	requirePanicIs(t, ErrInvalidSize, func() { a.Alloc(-1) })
}

func TestAlloc_RoundTripScrub(t *testing.T) {
	a := newTestAllocator(t)

	b := a.Alloc(32)
	assert.True(t, testutil.AllBytes(b[:cap(b)], AllocScrubByte))
	copy(b, "some caller data")

	a.Dealloc(b, 32)
	assert.True(t, testutil.AllBytes(b[4:cap(b)], DeallocScrubByte), "freed slot is poisoned")

	again := a.Alloc(32)
	assert.True(t, testutil.AllBytes(again, AllocScrubByte))
	a.Dealloc(again, 32)

	assert.NotEqual(t, AllocScrubByte, DeallocScrubByte)
}

func TestDealloc_Nil(t *testing.T) {
	a := newTestAllocator(t)

	for _, size := range []int{-1, 0, 16, 64, 128, 4096} {
		requirePanicIs(t, ErrNilHandle, func() { a.Dealloc(nil, size) })
	}
}

func TestDealloc_Misaligned(t *testing.T) {
	a := newTestAllocator(t)

	b := a.Alloc(64)
	requirePanicIs(t, ErrMisaligned, func() { a.Dealloc(b[8:], 56) })
	a.Dealloc(b, 64)
}

func TestDealloc_InvalidSize(t *testing.T) {
	a := newTestAllocator(t)

	b := a.Alloc(16)
	requirePanicIs(t, ErrSizeTooLarge, func() { a.Dealloc(b, 129) })
	requirePanicIs(t, ErrInvalidSize, func() { a.Dealloc(b, -5) })
	a.Dealloc(b, 16)
}

func TestFatal_Logged(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAllocator(t, WithLogger(bufferLogger(&buf)))

	requirePanicIs(t, ErrSizeTooLarge, func() { a.Alloc(1 << 20) })
	assert.Contains(t, buf.String(), "fatal allocator error")
	assert.Contains(t, buf.String(), "op=alloc")
}

func TestForEachClass(t *testing.T) {
	a := newTestAllocator(t, WithClasses(
		ClassConfig{SlotSize: 16, RegionSize: 160},
		ClassConfig{SlotSize: 32, RegionSize: 320},
	))

	b1 := a.Alloc(10)
	b2 := a.Alloc(20)
	b3 := a.Alloc(30)

	type row struct{ slot, allocated, free int }
	var rows []row
	a.ForEachClass(func(slotSize, allocated, free int) {
		rows = append(rows, row{slotSize, allocated, free})
	})
	assert.Equal(t, []row{{16, 1, 9}, {32, 2, 8}}, rows)

	a.Dealloc(b1, 10)
	a.Dealloc(b2, 20)
	a.Dealloc(b3, 30)
	for _, s := range a.Stats() {
		assert.Zero(t, s.Allocated)
		assert.Equal(t, s.SlotCount, s.Allocated+s.Free)
	}
}

func TestExhaustion_Fallback(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	fb := NewHeapFallback(0)
	a := newTestAllocator(t,
		WithClasses(ClassConfig{SlotSize: 16, RegionSize: 64}),
		WithFallback(fb),
		WithMetricsCollector(metrics),
	)

	held := make([][]byte, 0, 5)
	for i := 0; i < 5; i++ {
		held = append(held, a.Alloc(16))
	}
	assert.True(t, testutil.Distinct(held))

	st := a.Stats()[0]
	assert.Equal(t, 4, st.Allocated)
	assert.Equal(t, uint64(1), st.FallbackAllocs)
	assert.Equal(t, int64(16), fb.InUse())
	assert.Equal(t, int64(1), metrics.GetStats().FallbackAllocCount)

	for _, b := range held {
		a.Dealloc(b, 16)
	}

	st = a.Stats()[0]
	assert.Zero(t, st.Allocated)
	assert.Equal(t, uint64(1), st.FallbackFrees)
	assert.Zero(t, fb.InUse())
	assert.Equal(t, int64(16), fb.Peak())

	ms := metrics.GetStats()
	assert.Equal(t, int64(5), ms.AllocCount)
	assert.Equal(t, int64(5), ms.DeallocCount)
	assert.Equal(t, int64(1), ms.FallbackDeallocCount)
	assert.Zero(t, ms.Outstanding)
	require.NoError(t, a.Verify())
}

func TestExhaustion_FallbackLimit(t *testing.T) {
	a := newTestAllocator(t,
		WithClasses(ClassConfig{SlotSize: 32, RegionSize: 32}),
		WithFallbackLimit(32),
	)

	_ = a.Alloc(32)
	spill := a.Alloc(32)

	requirePanicIs(t, ErrFallbackFailed, func() { a.Alloc(32) })
	requirePanicIs(t, ErrFallbackLimit, func() { a.Alloc(32) })

	a.Dealloc(spill, 32)
	b := a.Alloc(32)
	a.Dealloc(b, 32)

	hf, ok := a.Fallback().(*HeapFallback)
	require.True(t, ok)
	assert.Equal(t, int64(32), hf.Limit())
}

func TestExhaustion_NoticesRateLimited(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAllocator(t,
		WithClasses(ClassConfig{SlotSize: 16, RegionSize: 16}),
		WithLogger(bufferLogger(&buf)),
		WithNoticeInterval(time.Hour),
	)

	for i := 0; i < 4; i++ {
		_ = a.Alloc(16)
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "using fallback allocator"))
}

func TestConcurrent_Exclusivity(t *testing.T) {
	const n = 128
	a := newTestAllocator(t, WithClasses(ClassConfig{SlotSize: 64, RegionSize: 64 * n}))

	handles := make([][]byte, n)
	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			<-start
			handles[i] = a.Alloc(64)
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.True(t, testutil.Distinct(handles))
	st := a.Stats()[0]
	assert.Equal(t, n, st.Allocated)
	assert.Zero(t, st.FallbackAllocs)

	extra := a.Alloc(64)
	assert.Equal(t, uint64(1), a.Stats()[0].FallbackAllocs)
	assert.True(t, testutil.Distinct(append(handles, extra)))
}

func TestConcurrent_Churn(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	a := newTestAllocator(t,
		WithClasses(
			ClassConfig{SlotSize: 16, RegionSize: 16 * 32},
			ClassConfig{SlotSize: 64, RegionSize: 64 * 32},
			ClassConfig{SlotSize: 128, RegionSize: 128 * 32},
		),
		WithMetricsCollector(metrics),
	)

	type held struct {
		b    []byte
		size int
	}

	var g errgroup.Group
	var mu sync.Mutex
	var failures []string
	for w := 0; w < 8; w++ {
		w := w
		g.Go(func() error {
			rng := testutil.NewRNG(int64(w))
			var live []held
			for i := 0; i < 4000; i++ {
				if len(live) < 16 && rng.Intn(2) == 0 {
					size := rng.RequestSize(128, 1.1)
					b := a.Alloc(size)
					if size > 4 {
						b[4] = byte(w)
					}
					live = append(live, held{b, size})
					continue
				}
				if len(live) == 0 {
					continue
				}
				h := live[len(live)-1]
				live = live[:len(live)-1]
				if h.size > 4 && h.b[4] != byte(w) {
					mu.Lock()
					failures = append(failures, "slot shared between workers")
					mu.Unlock()
				}
				a.Dealloc(h.b, h.size)
			}
			for _, h := range live {
				a.Dealloc(h.b, h.size)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Empty(t, failures)
	assert.Zero(t, metrics.GetStats().Outstanding)
	for _, s := range a.Stats() {
		assert.Zero(t, s.Allocated)
		assert.Equal(t, s.FallbackAllocs, s.FallbackFrees)
	}
	require.NoError(t, a.Verify())
}

func TestVerify_WriteAfterFree(t *testing.T) {
	a := newTestAllocator(t)

	b := a.Alloc(64)
	a.Dealloc(b, 64)
	b[10] = 0 // stale reference

	err := a.Verify()
	assert.ErrorIs(t, err, ErrPoisonDamaged)
	assert.Contains(t, err.Error(), "64-byte class")
}

func TestDump(t *testing.T) {
	a := newTestAllocator(t, WithClasses(
		ClassConfig{SlotSize: 16, RegionSize: 1024},
		ClassConfig{SlotSize: 32, RegionSize: 1024},
	))
	b := a.Alloc(20)
	copy(b, "hello")

	var buf bytes.Buffer
	require.NoError(t, a.Dump(&buf, CompressionZSTD))

	d, err := dump.Read(&buf)
	require.NoError(t, err)
	require.Len(t, d.Classes, 2)
	assert.Equal(t, 1, d.Classes[1].Allocated)

	cl := dump.Classify(d.Classes[1])
	assert.Equal(t, 1, cl.Live)
	assert.Equal(t, 31, cl.Poisoned)
}

func BenchmarkAllocator_AllocDealloc(b *testing.B) {
	a := newTestAllocator(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s := a.Alloc(48)
		a.Dealloc(s, 48)
	}
}

func BenchmarkAllocator_Parallel(b *testing.B) {
	a := newTestAllocator(b)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s := a.Alloc(100)
			a.Dealloc(s, 100)
		}
	})
}
