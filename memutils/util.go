package memutils

import (
	"math"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// Alignment is the byte alignment of every payload and every block header in the heap
const Alignment = 16

type Number interface {
	constraints.Integer
}

func CheckPow2[T Number](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two
func AlignUp[T Number](value T, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}

// IsAligned returns true if value is a multiple of alignment
func IsAligned[T Number](value T, alignment T) bool {
	return value&(alignment-1) == 0
}

// AlignSize rounds a requested allocation size up to Alignment. It returns false if the
// rounded size would not fit in an int.
func AlignSize(size int) (int, bool) {
	if size > math.MaxInt-(Alignment-1) {
		return 0, false
	}

	return AlignUp(size, Alignment), true
}

// CheckedMul multiplies count by elemSize, reporting an overflow before performing the multiplication.
// Negative operands are rejected with ErrInvalidSize.
func CheckedMul(count, elemSize int) (int, error) {
	if count < 0 || elemSize < 0 {
		return 0, cerrors.Wrapf(ErrInvalidSize, "count %d, element size %d", count, elemSize)
	}

	if elemSize != 0 && count > math.MaxInt/elemSize {
		return 0, cerrors.Wrapf(ErrOutOfMemory, "%d elements of %d bytes overflows the addressable size", count, elemSize)
	}

	return count * elemSize, nil
}
