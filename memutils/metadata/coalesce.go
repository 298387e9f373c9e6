package metadata

import "fmt"

// Coalesce merges every run of consecutive free blocks into a single free block, in one pass over
// the list. It returns the number of blocks that were absorbed.
func (l *BlockList) Coalesce() int {
	merged := 0

	block := l.head
	for block != NoBlock {
		next := l.Next(block)
		if next != NoBlock && l.IsFree(block) && l.IsFree(next) {
			l.MergeNext(block)
			merged++

			// The grown block may now border another free block
			continue
		}

		block = next
	}

	return merged
}

// MergeNext absorbs the block that follows the provided block, which must be free, into the
// provided block. The absorbed header and payload become part of the provided block's payload.
// The provided block keeps its free/in-use state. It returns false if there is no free successor.
func (l *BlockList) MergeNext(block BlockHandle) bool {
	h := l.header(block)
	next := h.next
	if next == NoBlock {
		return false
	}

	nextHeader := l.header(next)
	if !nextHeader.isFree() {
		return false
	}

	if l.end(block) != int(next) {
		panic(fmt.Sprintf("cannot merge block at offset %d with non-adjacent block at offset %d", block, next))
	}

	absorbed := uint64(HeaderSize) + nextHeader.size
	h.size += absorbed
	h.next = nextHeader.next
	if l.tail == next {
		l.tail = block
	}

	if !h.isFree() {
		l.allocBytes += int(absorbed)
	}
	l.blockCount--
	l.counters.Merges++

	return true
}
