//go:build unix

package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/memutils"
	"golang.org/x/sys/unix"
)

// DefaultMaxSize is the size of the address range reserved by NewDefault. Reserved pages are
// inaccessible until the break grows into them, so only touched pages cost memory.
const DefaultMaxSize = 1 << 30

// MmapBreak is a Break backed by an anonymous memory mapping. The whole range is reserved with no
// access permissions; pages are made readable and writable as the break grows past them.
type MmapBreak struct {
	mem       []byte
	brk       int
	committed int
	pageSize  int
}

var _ Break = &MmapBreak{}

// NewDefault creates the platform's preferred Break, reserving capacity bytes
func NewDefault(capacity int) (Break, error) {
	return NewMmapBreak(capacity)
}

// NewMmapBreak reserves capacity bytes of address space, rounded up to the system page size
func NewMmapBreak(capacity int) (*MmapBreak, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "heap capacity %d", capacity)
	}

	pageSize := unix.Getpagesize()
	memutils.DebugCheckPow2(pageSize, "pageSize")

	capacity = memutils.AlignUp(capacity, pageSize)
	mem, err := unix.Mmap(-1, 0, capacity, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "reserving %d bytes for the heap", capacity)
	}

	return &MmapBreak{
		mem:      mem,
		pageSize: pageSize,
	}, nil
}

func (b *MmapBreak) Memory() []byte { return b.mem }

func (b *MmapBreak) Size() int { return b.brk }

func (b *MmapBreak) Capacity() int { return len(b.mem) }

func (b *MmapBreak) Grow(increment int) (int, error) {
	if b.mem == nil {
		return 0, errors.New("heap region has been unmapped")
	}

	if increment < 0 {
		return 0, errors.Wrapf(memutils.ErrInvalidSize, "break increment %d", increment)
	}

	if increment > len(b.mem)-b.brk {
		return 0, errors.Wrapf(memutils.ErrOutOfMemory, "growing break by %d bytes would exceed capacity of %d bytes (%d in use)", increment, len(b.mem), b.brk)
	}

	newBrk := b.brk + increment
	if newBrk > b.committed {
		newCommitted := memutils.AlignUp(newBrk, b.pageSize)
		err := unix.Mprotect(b.mem[b.committed:newCommitted], unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "committing heap pages %d-%d", b.committed, newCommitted), memutils.ErrOutOfMemory)
		}
		b.committed = newCommitted
	}

	old := b.brk
	b.brk = newBrk
	return old, nil
}

// Close unmaps the region. Any slice into the region must not be used afterward.
func (b *MmapBreak) Close() error {
	if b.mem == nil {
		return nil
	}

	err := unix.Munmap(b.mem)
	b.mem = nil
	b.brk = 0
	b.committed = 0
	return err
}
