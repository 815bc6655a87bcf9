package slabkit

import (
	"errors"
	"fmt"

	"github.com/hupe1980/slabkit/internal/slab"
)

var (
	// ErrInvalidConfig is wrapped by every *ConfigError.
	ErrInvalidConfig = errors.New("slabkit: invalid configuration")
	// ErrReserveFailed is returned by New when a class region cannot be reserved.
	ErrReserveFailed = errors.New("slabkit: region reservation failed")

	// ErrInvalidSize is the panic value for a negative request size.
	ErrInvalidSize = errors.New("slabkit: invalid size")
	// ErrSizeTooLarge is the panic value for a size above the largest class.
	ErrSizeTooLarge = errors.New("slabkit: size exceeds largest class")
	// ErrFallbackFailed is the panic value when an exhausted class cannot be
	// served by the fallback allocator.
	ErrFallbackFailed = errors.New("slabkit: fallback allocation failed")
	// ErrFallbackLimit is returned by HeapFallback when its byte budget is spent.
	ErrFallbackLimit = errors.New("slabkit: fallback budget exhausted")

	// ErrNilHandle is the panic value for deallocating a nil handle.
	ErrNilHandle = slab.ErrNilHandle
	// ErrMisaligned is the panic value for deallocating an address inside a
	// class region that does not start a slot.
	ErrMisaligned = slab.ErrMisaligned

	// ErrFreeListCycle is reported by Verify when a free list loops.
	ErrFreeListCycle = slab.ErrFreeListCycle
	// ErrFreeListCorrupt is reported by Verify when a link leaves the region.
	ErrFreeListCorrupt = slab.ErrFreeListCorrupt
	// ErrCountMismatch is reported by Verify when the free list disagrees
	// with the allocation counters.
	ErrCountMismatch = slab.ErrCountMismatch
	// ErrPoisonDamaged is reported by Verify when a free slot was written.
	ErrPoisonDamaged = slab.ErrPoisonDamaged
)

// ConfigError describes a rejected option.
//
// It matches ErrInvalidConfig with errors.Is. The underlying error (if any)
// can be accessed via errors.Unwrap.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("slabkit: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("slabkit: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

func (e *ConfigError) Unwrap() error { return e.cause }
