//go:build unix

package heap_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkalloc/memutils"
	"github.com/vkngwrapper/brkalloc/memutils/heap"
	"golang.org/x/sys/unix"
)

func TestMmapBreakCommitsPagesAsItGrows(t *testing.T) {
	pageSize := unix.Getpagesize()

	brk, err := heap.NewMmapBreak(4 * pageSize)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, brk.Close())
	}()

	require.Equal(t, 4*pageSize, brk.Capacity())

	old, err := brk.Grow(32)
	require.NoError(t, err)
	require.Equal(t, 0, old)

	mem := brk.Memory()
	mem[0] = 0xAB
	mem[31] = 0xCD
	require.Equal(t, byte(0xAB), mem[0])

	// Straddle a page boundary
	old, err = brk.Grow(pageSize)
	require.NoError(t, err)
	require.Equal(t, 32, old)
	mem[pageSize+16] = 0xEF
	require.Equal(t, byte(0xEF), mem[pageSize+16])

	_, err = brk.Grow(4 * pageSize)
	require.True(t, errors.Is(err, memutils.ErrOutOfMemory))
	require.Equal(t, pageSize+32, brk.Size())
}

func TestMmapBreakClose(t *testing.T) {
	brk, err := heap.NewMmapBreak(1)
	require.NoError(t, err)
	require.NoError(t, brk.Close())
	require.NoError(t, brk.Close())

	_, err = brk.Grow(16)
	require.Error(t, err)
}
