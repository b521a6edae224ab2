package cpu

import "math"

// integer is the set of element types integer kernels read and write.
type integer interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32
}

// limits returns the representable range of T.
func limits[T integer]() (lo, hi int64) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 0, math.MaxUint8
	case int8:
		return math.MinInt8, math.MaxInt8
	case uint16:
		return 0, math.MaxUint16
	case int16:
		return math.MinInt16, math.MaxInt16
	case uint32:
		return 0, math.MaxUint32
	default:
		return math.MinInt32, math.MaxInt32
	}
}

// saturate clamps v to [lo, hi] and converts it to T.
func saturate[T integer](v, lo, hi int64) T {
	return T(min(max(v, lo), hi))
}

// applyScale divides an accumulated sum by scale the way vector units do:
// multiply by the float32 reciprocal and truncate toward zero.
func applyScale(sum int64, scale uint32, inv float32) int64 {
	if scale == 1 {
		return sum
	}
	return int64(float32(sum) * inv)
}
