package heap

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/memutils"
)

// SliceBreak is a Break backed by a single Go byte slice. The full capacity is allocated when the
// SliceBreak is created.
type SliceBreak struct {
	mem []byte
	brk int
}

var _ Break = &SliceBreak{}

// NewSliceBreak creates a SliceBreak that can grow up to capacity bytes. capacity is rounded up to
// memutils.Alignment.
func NewSliceBreak(capacity int) (*SliceBreak, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "heap capacity %d", capacity)
	}

	aligned, ok := memutils.AlignSize(capacity)
	if !ok || aligned > math.MaxInt-memutils.Alignment {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory, "heap capacity %d", capacity)
	}

	backing := make([]byte, aligned+memutils.Alignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(backing)))
	pad := int(memutils.AlignUp(addr, memutils.Alignment) - addr)

	return &SliceBreak{
		mem: backing[pad : pad+aligned : pad+aligned],
	}, nil
}

func (b *SliceBreak) Memory() []byte { return b.mem }

func (b *SliceBreak) Size() int { return b.brk }

func (b *SliceBreak) Capacity() int { return len(b.mem) }

func (b *SliceBreak) Grow(increment int) (int, error) {
	if increment < 0 {
		return 0, errors.Wrapf(memutils.ErrInvalidSize, "break increment %d", increment)
	}

	if increment > len(b.mem)-b.brk {
		return 0, errors.Wrapf(memutils.ErrOutOfMemory, "growing break by %d bytes would exceed capacity of %d bytes (%d in use)", increment, len(b.mem), b.brk)
	}

	old := b.brk
	b.brk += increment
	return old, nil
}
