package metadata

import (
	"math"
	"unsafe"

	"github.com/vkngwrapper/brkalloc/memutils"
)

// BlockHandle identifies a block by the offset of its header within the heap region
type BlockHandle uint64

const (
	// NoBlock is the BlockHandle value used for "no successor" and "not found"
	NoBlock BlockHandle = math.MaxUint64
)

// blockHeader is the bookkeeping record written into the heap immediately before each payload.
// It holds no Go pointers: the successor is recorded as an offset.
type blockHeader struct {
	size uint64
	free uint32
	_    uint32
	next BlockHandle
	_    uint64
}

// HeaderSize is the number of bytes each block header occupies in front of its payload
const HeaderSize = int(unsafe.Sizeof(blockHeader{}))

// HeaderSize must keep payloads aligned
var _ = [1]struct{}{}[HeaderSize%memutils.Alignment]

// minSplitRemainder is how much larger than a request a block must be before the excess is
// carved off into its own free block
const minSplitRemainder = HeaderSize + memutils.Alignment

func (h *blockHeader) isFree() bool {
	return h.free != 0
}
