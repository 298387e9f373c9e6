package dalloc

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/memutils"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slog"
)

// Element is the set of types that may be stored in allocator memory through the typed helpers.
// None of them contain pointers.
type Element interface {
	constraints.Integer | constraints.Float
}

func viewAs[T Element](payload []byte, count int) []T {
	if payload == nil {
		return nil
	}

	var zero T
	capacity := cap(payload) / int(unsafe.Sizeof(zero))
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(payload))), capacity)[:count]
}

// ReserveSlice reserves room for count elements of type T and returns it as a []T. It returns nil
// if count is not positive or the reservation fails. The slice's contents are unspecified. Release
// it with ReleaseSlice.
func ReserveSlice[T Element](a *Allocator, count int) []T {
	var zero T
	size, err := memutils.CheckedMul(count, int(unsafe.Sizeof(zero)))
	if err != nil {
		a.logger.Warn("    ReserveSlice FAILED", slog.Any("error", err))
		return nil
	}

	return viewAs[T](a.Reserve(size), count)
}

// ZeroReserveSlice returns a zero-filled []T with room for count elements.
// It has the same error behavior as Allocator.ZeroReserve.
func ZeroReserveSlice[T Element](a *Allocator, count int) ([]T, error) {
	var zero T
	payload, err := a.ZeroReserve(count, int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reserve a slice of %d %T", count, zero)
	}

	return viewAs[T](payload, count), nil
}

// ReleaseSlice releases a slice obtained from ReserveSlice or ZeroReserveSlice
func ReleaseSlice[T Element](a *Allocator, s []T) {
	if cap(s) == 0 {
		return
	}

	var zero T
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), cap(s)*int(unsafe.Sizeof(zero)))
	a.Release(bytes)
}
