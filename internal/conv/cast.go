package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("conv: integer overflow")

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint32 (negative)", ErrOverflow, v)
	}
	// On 64-bit systems, int can exceed uint32 max; on 32-bit, this is always false
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint32 (too large)", ErrOverflow, v)
	}
	return uint32(v), nil
}

// IntToUint64 converts int to uint64 safely.
func IntToUint64(v int) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint64 (negative)", ErrOverflow, v)
	}
	return uint64(v), nil
}

// Int64ToUint64 converts int64 to uint64 safely. Advisory counters may be
// observed mid-update, so negative values are clamped instead of rejected.
func Int64ToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d cannot be converted to int (too large)", ErrOverflow, v)
	}
	return int(v), nil
}

// Uint32ToInt converts uint32 to int safely.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d cannot be converted to int (too large)", ErrOverflow, v)
	}
	return int(v), nil
}
