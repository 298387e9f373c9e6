package memutils

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestAlignSize(t *testing.T) {
	for size, expected := range map[int]int{0: 0, 1: 16, 15: 16, 16: 16, 17: 32, 100: 112} {
		aligned, ok := AlignSize(size)
		require.True(t, ok)
		require.Equal(t, expected, aligned)
	}

	_, ok := AlignSize(math.MaxInt - 3)
	require.False(t, ok)
}

func TestCheckedMul(t *testing.T) {
	product, err := CheckedMul(5, 4)
	require.NoError(t, err)
	require.Equal(t, 20, product)

	product, err = CheckedMul(math.MaxInt, 0)
	require.NoError(t, err)
	require.Zero(t, product)

	_, err = CheckedMul(math.MaxInt/2+1, 2)
	require.True(t, errors.Is(err, ErrOutOfMemory))

	_, err = CheckedMul(-1, 4)
	require.True(t, errors.Is(err, ErrInvalidSize))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, CheckPow2(4096, "pageSize"))
	require.True(t, errors.Is(CheckPow2(24, "pageSize"), PowerOfTwoError))
	require.Error(t, CheckPow2(0, "pageSize"))
}

func TestDetailedStatisticsAdd(t *testing.T) {
	var total, part DetailedStatistics
	total.Clear()
	part.Clear()

	part.AddAllocation(32)
	part.AddAllocation(64)
	part.AddFreeRegion(16)
	part.HeapBytes = 208
	part.HeaderBytes = 96

	total.AddDetailedStatistics(&part)
	require.Equal(t, 2, total.AllocationCount)
	require.Equal(t, 96, total.AllocationBytes)
	require.Equal(t, 32, total.AllocationSizeMin)
	require.Equal(t, 64, total.AllocationSizeMax)
	require.Equal(t, 1, total.FreeRegionCount)
	require.Equal(t, 16, total.FreeBytes())
}
