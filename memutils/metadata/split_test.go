package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkalloc/memutils/metadata"
)

func TestSplitFreeBlock(t *testing.T) {
	list, brk := newTestList(t, 4096)

	a := appendBlock(t, list, brk, 256)
	list.MarkFree(a)

	require.True(t, list.CanSplit(a, 32))
	require.True(t, list.Split(a, 32))

	require.False(t, list.IsFree(a))
	require.Equal(t, 32, list.Size(a))

	remainder := list.Next(a)
	require.Equal(t, metadata.BlockHandle(64), remainder)
	require.True(t, list.IsFree(remainder))
	require.Equal(t, 256-32-metadata.HeaderSize, list.Size(remainder))
	require.Equal(t, remainder, list.Tail())
	require.Equal(t, metadata.NoBlock, list.Next(remainder))

	require.Equal(t, 2, list.BlockCount())
	require.Equal(t, 1, list.AllocationCount())
	require.Equal(t, 32, list.AllocationBytes())
	require.Equal(t, 1, list.Counters().Splits)
	require.Equal(t, list.End(), brk.Size())
	require.NoError(t, list.Validate())
}

func TestSplitInheritsSuccessor(t *testing.T) {
	list, brk := newTestList(t, 4096)

	a := appendBlock(t, list, brk, 128)
	b := appendBlock(t, list, brk, 16)

	// In-use blocks can be split too, as when a block shrinks
	require.True(t, list.Split(a, 48))

	remainder := list.Next(a)
	require.Equal(t, b, list.Next(remainder))
	require.Equal(t, b, list.Tail())
	require.Equal(t, 128-48-metadata.HeaderSize, list.Size(remainder))
	require.Equal(t, 64, list.AllocationBytes())
	require.NoError(t, list.Validate())
}

func TestSplitThreshold(t *testing.T) {
	list, brk := newTestList(t, 4096)

	a := appendBlock(t, list, brk, 80)
	list.MarkFree(a)

	// 80 is not strictly greater than 32 + HeaderSize + 16
	require.False(t, list.CanSplit(a, 32))
	require.False(t, list.Split(a, 32))
	require.True(t, list.IsFree(a))
	require.Equal(t, 80, list.Size(a))
	require.Equal(t, 1, list.BlockCount())

	require.True(t, list.CanSplit(a, 16))
	require.True(t, list.Split(a, 16))
	require.Equal(t, 32, list.Size(list.Next(a)))
	require.NoError(t, list.Validate())
}

func TestSplitRejectsUnalignedSize(t *testing.T) {
	list, brk := newTestList(t, 4096)
	a := appendBlock(t, list, brk, 256)

	require.Panics(t, func() {
		list.Split(a, 24)
	})
}
