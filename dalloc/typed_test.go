package dalloc

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkalloc/memutils"
)

func TestZeroReserveSlice(t *testing.T) {
	allocator, _ := readyAllocator(t, 4096)

	dirty := allocator.Reserve(32)
	fill(dirty, 0xff)
	allocator.Release(dirty)

	ints, err := ZeroReserveSlice[int32](allocator, 5)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 0, 0, 0, 0}, ints)
	require.Equal(t, 8, cap(ints))

	for i := range ints {
		ints[i] = int32(i * 10)
	}
	require.Equal(t, []int32{0, 10, 20, 30, 40}, ints)

	ReleaseSlice(allocator, ints)
	require.Zero(t, allocator.Statistics().AllocationCount)
}

func TestZeroReserveSliceOverflow(t *testing.T) {
	allocator, _ := readyAllocator(t, 4096)

	_, err := ZeroReserveSlice[uint16](allocator, math.MaxInt/2+1)
	require.True(t, errors.Is(err, memutils.ErrOutOfMemory))
}

func TestReserveSlice(t *testing.T) {
	allocator, _ := readyAllocator(t, 4096)

	floats := ReserveSlice[float64](allocator, 3)
	require.Len(t, floats, 3)
	require.Equal(t, 4, cap(floats))
	floats[2] = 1.5

	require.Nil(t, ReserveSlice[float64](allocator, 0))
	require.Nil(t, ReserveSlice[float64](allocator, -1))
	require.Nil(t, ReserveSlice[uint8](allocator, 8192))

	ReleaseSlice(allocator, floats)
	ReleaseSlice[int64](allocator, nil)
	require.Zero(t, allocator.Statistics().AllocationCount)
}
