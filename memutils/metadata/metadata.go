package metadata

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/memutils"
	"github.com/vkngwrapper/brkalloc/memutils/heap"
)

// Counters tracks how often the block list has changed shape. It is diagnostic only.
type Counters struct {
	// Appends is the number of blocks created by growing the heap
	Appends int
	// Splits is the number of blocks created by splitting a larger block
	Splits int
	// Merges is the number of blocks absorbed into their predecessor
	Merges int
}

// BlockList is the chain of block headers that spans a heap region. Headers live inside the region
// itself, each immediately in front of the payload it describes, and are linked in address order
// from head to tail. Because the region is only ever extended at the break, two headers that are
// adjacent in the list are also adjacent in memory: a header's offset plus HeaderSize plus its size
// is the offset of its successor.
//
// BlockList is not safe for concurrent use. Consumers must provide their own synchronization.
type BlockList struct {
	brk  heap.Break
	mem  []byte
	base uintptr
	// start is the break offset at which the list took ownership of the region
	start int

	head BlockHandle
	tail BlockHandle

	blockCount int
	allocCount int
	allocBytes int

	counters Counters
}

// NewBlockList creates an empty BlockList over the provided heap region. The list takes ownership of
// all memory in the region from the current break onward; the region must not be grown by anything else.
func NewBlockList(brk heap.Break) *BlockList {
	l := &BlockList{}
	l.Init(brk)
	return l
}

// Init must be called before the BlockList is used if it was not created with NewBlockList
func (l *BlockList) Init(brk heap.Break) {
	mem := brk.Memory()
	if len(mem) > 0 && !memutils.IsAligned(uintptr(unsafe.Pointer(unsafe.SliceData(mem))), memutils.Alignment) {
		panic("heap region is not aligned to memutils.Alignment")
	}

	l.brk = brk
	l.mem = mem
	l.base = uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	l.start = brk.Size()
	l.head = NoBlock
	l.tail = NoBlock
	l.blockCount = 0
	l.allocCount = 0
	l.allocBytes = 0
	l.counters = Counters{}
}

// Head returns the first block in the list, or NoBlock if the list is empty
func (l *BlockList) Head() BlockHandle { return l.head }

// Tail returns the last block in the list, or NoBlock if the list is empty
func (l *BlockList) Tail() BlockHandle { return l.tail }

// IsEmpty returns true if the list contains no in-use blocks
func (l *BlockList) IsEmpty() bool { return l.allocCount == 0 }

// BlockCount returns the number of headers in the list, free or in use
func (l *BlockList) BlockCount() int { return l.blockCount }

// AllocationCount returns the number of blocks currently in use
func (l *BlockList) AllocationCount() int { return l.allocCount }

// AllocationBytes returns the payload capacity of all blocks currently in use
func (l *BlockList) AllocationBytes() int { return l.allocBytes }

// Counters returns the number of appends, splits and merges the list has performed
func (l *BlockList) Counters() Counters { return l.counters }

func (l *BlockList) header(block BlockHandle) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(&l.mem[block]))
}

// Size returns the payload capacity of a block in bytes
func (l *BlockList) Size(block BlockHandle) int {
	return int(l.header(block).size)
}

// IsFree returns true if the block is not in use
func (l *BlockList) IsFree(block BlockHandle) bool {
	return l.header(block).isFree()
}

// Next returns the block that follows the provided block, or NoBlock if it is the tail
func (l *BlockList) Next(block BlockHandle) BlockHandle {
	return l.header(block).next
}

// PayloadOffset returns the offset in the heap region of the first payload byte of the block
func (l *BlockList) PayloadOffset(block BlockHandle) int {
	return int(block) + HeaderSize
}

// Payload returns a slice over the block's payload with the requested length and a capacity equal
// to the block's size
func (l *BlockList) Payload(block BlockHandle, length int) []byte {
	size := l.Size(block)
	if length > size {
		panic(fmt.Sprintf("requested payload length %d for a block of size %d", length, size))
	}

	start := l.PayloadOffset(block)
	return l.mem[start : start+length : start+size]
}

// HandleForPayload recovers the block whose payload begins at the first element of the provided
// slice. The slice must be one that was previously returned from Payload; only its data pointer is
// examined. An error wrapping memutils.ErrBadPointer is returned when the pointer could not
// belong to any block in the region.
func (l *BlockList) HandleForPayload(payload []byte) (BlockHandle, error) {
	if cap(payload) == 0 {
		return NoBlock, errors.Wrap(memutils.ErrBadPointer, "payload has no capacity")
	}

	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(payload)))
	if ptr < l.base+uintptr(HeaderSize) || ptr >= l.base+uintptr(l.brk.Size()) {
		return NoBlock, errors.Wrapf(memutils.ErrBadPointer, "address %#x is outside the heap region", ptr)
	}

	offset := ptr - l.base
	if !memutils.IsAligned(offset, memutils.Alignment) {
		return NoBlock, errors.Wrapf(memutils.ErrBadPointer, "payload offset %d is not aligned", offset)
	}

	return BlockHandle(offset) - BlockHandle(HeaderSize), nil
}

// Append initializes a new in-use block at offset, which must be the end of the last block in the
// list, and links it in as the new tail. The caller is responsible for having grown the heap break
// by HeaderSize + size bytes.
func (l *BlockList) Append(offset int, size int) BlockHandle {
	if !memutils.IsAligned(size, memutils.Alignment) {
		panic(fmt.Sprintf("appended block size %d is not aligned", size))
	}
	if offset+HeaderSize+size > l.brk.Size() {
		panic(fmt.Sprintf("appended block at offset %d with size %d extends past the heap break at %d", offset, size, l.brk.Size()))
	}

	block := BlockHandle(offset)
	if l.tail == NoBlock && offset != l.start {
		panic(fmt.Sprintf("first block at offset %d does not begin at the start of the list's region (%d)", offset, l.start))
	}
	if l.tail != NoBlock && l.end(l.tail) != offset {
		panic(fmt.Sprintf("appended block at offset %d is not adjacent to the tail block ending at %d", offset, l.end(l.tail)))
	}

	h := l.header(block)
	*h = blockHeader{
		size: uint64(size),
		next: NoBlock,
	}

	if l.head == NoBlock {
		l.head = block
	} else {
		l.header(l.tail).next = block
	}
	l.tail = block

	l.blockCount++
	l.allocCount++
	l.allocBytes += size
	l.counters.Appends++

	return block
}

// MarkTaken flags a free block as in use. It does nothing if the block is already in use.
func (l *BlockList) MarkTaken(block BlockHandle) {
	h := l.header(block)
	if !h.isFree() {
		return
	}

	h.free = 0
	l.allocCount++
	l.allocBytes += int(h.size)
}

// MarkFree flags an in-use block as free. It does nothing if the block is already free. Adjacent free
// blocks are not merged; call Coalesce for that.
func (l *BlockList) MarkFree(block BlockHandle) {
	h := l.header(block)
	if h.isFree() {
		return
	}

	h.free = 1
	l.allocCount--
	l.allocBytes -= int(h.size)
}

// end returns the offset of the first byte after the block's payload
func (l *BlockList) end(block BlockHandle) int {
	return int(block) + HeaderSize + l.Size(block)
}

// Start returns the offset in the heap region at which the list's first block is placed
func (l *BlockList) Start() int { return l.start }

// End returns the offset of the first byte after the last block in the list
func (l *BlockList) End() int {
	if l.tail == NoBlock {
		return l.start
	}

	return l.end(l.tail)
}
