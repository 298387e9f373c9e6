package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/brkalloc/memutils"
)

var _ memutils.Validatable = &BlockList{}

// Validate performs internal consistency checks on the list: headers are in strictly increasing,
// contiguous address order, sizes are aligned, the chain ends at the tail without revisiting any
// header, the cached counts agree with the headers, and no two neighboring blocks are both free.
// It walks every header, so it is as slow as a full placement search.
func (l *BlockList) Validate() error {
	if (l.head == NoBlock) != (l.tail == NoBlock) {
		return errors.Errorf("list head (%d) and tail (%d) disagree about whether the list is empty", l.head, l.tail)
	}

	if l.head != NoBlock && int(l.head) != l.start {
		return errors.Errorf("the first block should be at offset %d, but instead it is at offset %d", l.start, l.head)
	}

	visited := swiss.NewMap[BlockHandle, int](uint32(l.blockCount + 1))

	var blockCount, allocCount, allocBytes int
	prev := NoBlock
	prevFree := false
	expectedOffset := l.start

	for block := l.head; block != NoBlock; block = l.Next(block) {
		if ordinal, seen := visited.Get(block); seen {
			return errors.Errorf("block at offset %d was reached twice, first as block %d and again as block %d", block, ordinal, blockCount)
		}
		visited.Put(block, blockCount)

		if int(block) != expectedOffset {
			return errors.Errorf("block at offset %d does not begin where the previous block ends (%d)", block, expectedOffset)
		}

		if int(block)+HeaderSize > l.brk.Size() {
			return errors.Errorf("header at offset %d extends past the heap break at %d", block, l.brk.Size())
		}

		h := l.header(block)
		if h.free > 1 {
			return errors.Errorf("block at offset %d has an invalid free flag %d", block, h.free)
		}

		size := int(h.size)
		if size < 0 || !memutils.IsAligned(size, memutils.Alignment) {
			return errors.Errorf("block at offset %d has an invalid size %d", block, size)
		}

		expectedOffset = l.end(block)
		if expectedOffset > l.brk.Size() {
			return errors.Errorf("block at offset %d with size %d extends past the heap break at %d", block, size, l.brk.Size())
		}

		if h.isFree() {
			if prev != NoBlock && prevFree {
				return errors.Errorf("free blocks at offsets %d and %d are adjacent but were not merged", prev, block)
			}
		} else {
			allocCount++
			allocBytes += size
		}

		blockCount++
		prev = block
		prevFree = h.isFree()
	}

	if prev != l.tail {
		return errors.Errorf("the last block in the chain is at offset %d, but the tail is at offset %d", prev, l.tail)
	}

	if blockCount != l.blockCount {
		return errors.Errorf("the block count of the list is %d, but the chain only contains %d blocks", l.blockCount, blockCount)
	}

	if allocCount != l.allocCount {
		return errors.Errorf("the allocation count of the list is %d, but the in-use blocks only added up to %d", l.allocCount, allocCount)
	}

	if allocBytes != l.allocBytes {
		return errors.Errorf("the allocated size of the list is %d, but the in-use blocks only added up to %d", l.allocBytes, allocBytes)
	}

	return nil
}
