package metadata

import (
	"fmt"

	"github.com/vkngwrapper/brkalloc/memutils"
)

// CanSplit returns true if carving size bytes out of the block would leave a remainder large enough
// to be a usable free block of its own
func (l *BlockList) CanSplit(block BlockHandle, size int) bool {
	return l.Size(block) > size+minSplitRemainder
}

// Split shrinks the block to exactly size bytes and marks it in use, turning the excess into a new
// free block that directly follows it. Splitting only happens when CanSplit is true; otherwise
// the block is left untouched and Split returns false. size must be aligned to memutils.Alignment.
func (l *BlockList) Split(block BlockHandle, size int) bool {
	if size < 0 || !memutils.IsAligned(size, memutils.Alignment) {
		panic(fmt.Sprintf("cannot split block at offset %d to unaligned size %d", block, size))
	}

	if !l.CanSplit(block, size) {
		return false
	}

	l.MarkTaken(block)

	h := l.header(block)
	oldSize := int(h.size)

	remainder := BlockHandle(l.PayloadOffset(block) + size)
	remainderHeader := l.header(remainder)
	*remainderHeader = blockHeader{
		size: uint64(oldSize - size - HeaderSize),
		free: 1,
		next: h.next,
	}

	h.size = uint64(size)
	h.next = remainder
	if l.tail == block {
		l.tail = remainder
	}

	l.allocBytes -= oldSize - size
	l.blockCount++
	l.counters.Splits++

	return true
}
