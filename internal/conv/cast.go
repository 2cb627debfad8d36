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
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit uint32", ErrOverflow, v)
	}
	return uint32(v), nil
}

// Int64ToInt converts int64 to int safely.
func Int64ToInt(v int64) (int, error) {
	if v > math.MaxInt || v < math.MinInt {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrOverflow, v)
	}
	return int(v), nil
}

// FeatureIndex validates a 1-based feature index parsed from text and
// returns its 0-based position.
func FeatureIndex(v int64) (int, error) {
	if v < 1 {
		return 0, fmt.Errorf("conv: feature index %d must be >= 1", v)
	}
	i, err := Int64ToInt(v - 1)
	if err != nil {
		return 0, err
	}
	return i, nil
}
