package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// CheckPow2 returns PowerOfTwoError, annotated with the name of the value that was tested,
// if number is not a power of two. Zero is rejected as well, since it cannot serve as an alignment.
func CheckPow2[T constraints.Unsigned](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two.
// The second return value is false if rounding up would overflow T.
func AlignUp[T constraints.Unsigned](value T, alignment T) (T, bool) {
	mask := alignment - 1
	if value&mask == 0 {
		return value, true
	}

	aligned := (value + mask) &^ mask
	if aligned < value {
		return 0, false
	}

	return aligned, true
}

// AlignDown rounds value down to the previous multiple of alignment, which must be a power of two.
func AlignDown[T constraints.Unsigned](value T, alignment T) T {
	return value &^ (alignment - 1)
}

// IsAligned reports whether value is a multiple of alignment, which must be a power of two.
func IsAligned[T constraints.Unsigned](value T, alignment T) bool {
	return value&(alignment-1) == 0
}

// AddOverflows reports whether base+length wraps around the range of T.
func AddOverflows[T constraints.Unsigned](base, length T) bool {
	return base+length < base
}
