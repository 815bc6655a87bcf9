package testutil

import (
	"math"
	"math/rand"
	"sync"
	"unsafe"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// RequestSize returns an allocation request size in [1, maxSize].
// Small sizes are favored the way real allocation traffic is.
func (r *RNG) RequestSize(maxSize int, s float64) int {
	return r.Zipf(maxSize, s) + 1
}

// RequestSizes generates n request sizes with RequestSize.
func (r *RNG) RequestSizes(n, maxSize int, s float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sizes := make([]int, n)
	for i := 0; i < n; i++ {
		sizes[i] = r.zipfLocked(maxSize, s) + 1
	}

	return sizes
}

// AllBytes reports whether every byte of b equals v.
func AllBytes(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

// Distinct reports whether no two non-empty handles share a start address.
func Distinct(handles [][]byte) bool {
	seen := make(map[uintptr]struct{}, len(handles))
	for _, h := range handles {
		if len(h) == 0 {
			continue
		}
		p := uintptr(unsafe.Pointer(unsafe.SliceData(h))) //nolint:gosec // identity only
		if _, ok := seen[p]; ok {
			return false
		}
		seen[p] = struct{}{}
	}
	return true
}
