package dalloc

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkalloc/memutils/heap"
	"github.com/vkngwrapper/brkalloc/memutils/metadata"
	"go.uber.org/mock/gomock"
)

func fill(payload []byte, value byte) {
	for i := range payload {
		payload[i] = value
	}
}

func TestResizeNilReserves(t *testing.T) {
	allocator, _ := readyAllocator(t, 4096)

	payload := allocator.Resize(nil, 40)
	require.Len(t, payload, 40)
	require.Equal(t, 1, allocator.Statistics().AllocationCount)
}

func TestResizeToZeroReleases(t *testing.T) {
	allocator, _ := readyAllocator(t, 4096)

	payload := allocator.Reserve(40)
	require.Nil(t, allocator.Resize(payload, 0))
	require.Zero(t, allocator.Statistics().AllocationCount)
}

func TestResizeShrinkThenMerge(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, brk, inner := readyCountingAllocator(t, ctrl, 4096)
	brk.EXPECT().Grow(gomock.Any()).DoAndReturn(inner.Grow).Times(2)

	payload := allocator.Reserve(128)
	fill(payload, 7)
	allocator.Release(allocator.Reserve(32))

	shrunk := allocator.Resize(payload, 32)
	require.Equal(t, address(payload), address(shrunk))
	require.Len(t, shrunk, 32)
	require.Equal(t, 32, cap(shrunk))
	require.Equal(t, bytes.Repeat([]byte{7}, 32), shrunk)

	// The split remainder absorbed the free barrier block behind it
	stats := allocator.Statistics()
	require.Equal(t, 2, stats.BlockCount)

	next := allocator.Reserve(64)
	require.Equal(t, address(shrunk)+uintptr(32+metadata.HeaderSize), address(next))
	require.NoError(t, allocator.Validate())
}

func TestResizeShrinkKeepsBlockTooSmallToSplit(t *testing.T) {
	allocator, brk := readyAllocator(t, 4096)

	payload := allocator.Reserve(64)
	heapSize := brk.Size()

	// Not enough excess to carve off a block
	shrunk := allocator.Resize(payload, 40)
	require.Equal(t, address(payload), address(shrunk))
	require.Len(t, shrunk, 40)
	require.Equal(t, 64, cap(shrunk))
	require.Equal(t, 1, allocator.Statistics().BlockCount)
	require.Equal(t, heapSize, brk.Size())

	// The block already holds the request
	grown := allocator.Resize(shrunk, 64)
	require.Equal(t, address(payload), address(grown))
	require.Len(t, grown, 64)
}

func TestResizeGrowInPlace(t *testing.T) {
	allocator, brk := readyAllocator(t, 4096)

	payload := allocator.Reserve(32)
	fill(payload, 3)
	neighbor := allocator.Reserve(64)
	barrier := allocator.Reserve(16)
	require.NotNil(t, barrier)
	allocator.Release(neighbor)
	heapSize := brk.Size()

	grown := allocator.Resize(payload, 96)
	require.Equal(t, address(payload), address(grown))
	require.Len(t, grown, 96)
	require.Equal(t, 32+metadata.HeaderSize+64, cap(grown))
	require.Equal(t, bytes.Repeat([]byte{3}, 32), grown[:32])
	require.Equal(t, heapSize, brk.Size())
	require.Equal(t, 2, allocator.Statistics().BlockCount)
	require.NoError(t, allocator.Validate())
}

func TestResizeRelocates(t *testing.T) {
	allocator, _ := readyAllocator(t, 1<<16)

	payload := allocator.Reserve(32)
	fill(payload, 9)
	barrier := allocator.Reserve(16)
	require.NotNil(t, barrier)

	relocated := allocator.Resize(payload, 2048)
	require.NotNil(t, relocated)
	require.NotEqual(t, address(payload), address(relocated))
	require.Len(t, relocated, 2048)
	require.Equal(t, bytes.Repeat([]byte{9}, 32), relocated[:32])

	// The original block was released
	stats := allocator.Statistics()
	require.Equal(t, 2, stats.AllocationCount)
	reused := allocator.Reserve(32)
	require.Equal(t, address(payload), address(reused))
	require.NoError(t, allocator.Validate())
}

func TestResizeRelocationFailureKeepsOriginal(t *testing.T) {
	allocator, brk := readyAllocator(t, 256)

	payload := allocator.Reserve(32)
	fill(payload, 5)
	require.NotNil(t, allocator.Reserve(16))

	before := allocator.BuildStatsString(true)
	heapSize := brk.Size()

	require.Nil(t, allocator.Resize(payload, 1024))
	require.Equal(t, before, allocator.BuildStatsString(true))
	require.Equal(t, heapSize, brk.Size())
	require.Equal(t, bytes.Repeat([]byte{5}, 32), payload)

	allocator.Release(payload)
	require.NoError(t, allocator.Validate())
}

func TestResizeRelocationDoesNotDeadlock(t *testing.T) {
	allocator, err := New(nil, CreateOptions{MaxHeapSize: 1 << 20})
	require.NoError(t, err)

	done := make(chan []byte)
	go func() {
		payload := allocator.Reserve(16)
		allocator.Reserve(16)
		done <- allocator.Resize(payload, 4096)
	}()

	select {
	case relocated := <-done:
		require.Len(t, relocated, 4096)
	case <-time.After(10 * time.Second):
		t.Fatal("resize did not return")
	}
}

func TestConcurrentStress(t *testing.T) {
	const goroutines = 10
	const iterations = 100

	brk, err := heap.NewDefault(64 << 20)
	require.NoError(t, err)

	allocator, err := New(nil, CreateOptions{Break: brk})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(marker byte) {
			defer wg.Done()

			for i := 0; i < iterations; i++ {
				payload := allocator.Reserve(64)
				if !assert.NotNil(t, payload) {
					return
				}
				fill(payload, marker)

				resized := allocator.Resize(payload, 2048)
				if !assert.NotNil(t, resized) {
					allocator.Release(payload)
					return
				}

				assert.Equal(t, bytes.Repeat([]byte{marker}, 64), resized[:64])
				fill(resized, marker)
				assert.Equal(t, bytes.Repeat([]byte{marker}, 2048), resized)

				allocator.Release(resized)
			}
		}(byte(g + 1))
	}
	wg.Wait()

	require.NoError(t, allocator.Validate())
	require.Zero(t, allocator.Statistics().AllocationCount)
}
