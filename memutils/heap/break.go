// Package heap provides the monotonic heap-growth primitive that block lists are built on top of.
//
// A Break owns a single contiguous region of memory that is reserved up front. Only the prefix
// of the region below the current break is usable, and the break only ever moves forward: memory
// is never handed back. Because the region never moves, offsets into it (and slices that view it)
// stay valid for the lifetime of the Break.
package heap

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/memutils"
)

//go:generate mockgen -source break.go -destination ./mocks/break.go

// Break is a heap region that can only grow
type Break interface {
	// Memory returns a slice over the entire reserved region. Only the first Size() bytes
	// may be read or written. The returned slice is the same for the lifetime of the Break,
	// and its first byte is aligned to memutils.Alignment.
	Memory() []byte
	// Size returns the current break: the number of bytes of the region that have been grown into
	Size() int
	// Capacity returns the number of bytes that were reserved and that the break may grow into
	Capacity() int
	// Grow moves the break forward by increment bytes and returns the previous break, which is the
	// offset of the first new byte. When the region cannot satisfy the request, Grow returns an error
	// wrapping memutils.ErrOutOfMemory and the break does not move.
	Grow(increment int) (int, error)
}

// CheckAlignment returns an error if the region provided by the Break does not begin on a
// memutils.Alignment boundary
func CheckAlignment(b Break) error {
	mem := b.Memory()
	if len(mem) == 0 {
		return nil
	}

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	if !memutils.IsAligned(addr, memutils.Alignment) {
		return errors.Newf("heap region at %#x is not aligned to %d bytes", addr, memutils.Alignment)
	}

	return nil
}
