package dalloc

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/dalloc/internal/utils"
	"github.com/vkngwrapper/brkalloc/memutils"
	"github.com/vkngwrapper/brkalloc/memutils/heap"
	"github.com/vkngwrapper/brkalloc/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Allocator hands out blocks of memory from a single heap region that only ever grows. Block
// headers are stored inside the region directly in front of each payload. Released blocks are
// merged with their free neighbors immediately and reused on a first-fit basis; the heap is only
// grown when no free block is large enough.
//
// Every method is safe for concurrent use unless the allocator was created with
// CreateExternallySynchronized. Each call holds the allocator's lock for its full duration.
//
// Payloads are returned as byte slices whose length is the requested size and whose capacity is
// the size of the block behind them. Releasing or resizing a payload invalidates every slice that
// shares its memory. The memory is not scanned by the garbage collector, so it must not be used to
// hold Go pointers.
type Allocator struct {
	mutex       utils.OptionalMutex
	logger      *slog.Logger
	createFlags CreateFlags

	brk  heap.Break
	list *metadata.BlockList
}

// Reserve returns a payload of size bytes, or nil if size is not positive or the heap could not grow
// far enough to satisfy the request. The payload's contents are unspecified.
func (a *Allocator) Reserve(size int) []byte {
	a.logger.Debug("Allocator::Reserve", slog.Int("Size", size))

	a.lock()
	defer a.mutex.Unlock()

	payload, err := a.reserveLocked(size)
	if err != nil {
		a.logger.Warn("    Allocator::Reserve FAILED", slog.Int("Size", size), slog.Any("error", err))
		return nil
	}

	memutils.DebugValidate(a.list)
	return payload
}

// lock acquires the allocator's mutex. It panics if the allocator has been destroyed.
func (a *Allocator) lock() {
	a.mutex.Lock()
	if a.list == nil {
		a.mutex.Unlock()
		panic("attempted to use an allocator after it was destroyed")
	}
}

// reserveLocked must only be called while the allocator's mutex is held
func (a *Allocator) reserveLocked(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size %d", size)
	}
	if size == 0 {
		return nil, nil
	}

	aligned, ok := memutils.AlignSize(size)
	if !ok || aligned > math.MaxInt-metadata.HeaderSize {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory, "size %d", size)
	}

	block, found := a.list.FindFit(aligned)
	if !found && a.list.Coalesce() > 0 {
		block, found = a.list.FindFit(aligned)
	}

	if found {
		if !a.list.Split(block, aligned) {
			a.list.MarkTaken(block)
		}

		return a.list.Payload(block, size), nil
	}

	offset, err := a.brk.Grow(metadata.HeaderSize + aligned)
	if err != nil {
		return nil, err
	}

	block = a.list.Append(offset, aligned)
	return a.list.Payload(block, size), nil
}

// Release returns a payload to the allocator. The block is merged with any free neighbors right away.
// Releasing a nil or zero-capacity slice does nothing. The payload must have been returned from this
// allocator and not yet released; a slice that does not point into this allocator's heap causes a panic.
func (a *Allocator) Release(payload []byte) {
	a.logger.Debug("Allocator::Release", slog.Int("Size", cap(payload)))

	if cap(payload) == 0 {
		return
	}

	a.lock()
	defer a.mutex.Unlock()

	a.releaseLocked(a.blockForPayload(payload))

	memutils.DebugValidate(a.list)
}

// releaseLocked must only be called while the allocator's mutex is held
func (a *Allocator) releaseLocked(block metadata.BlockHandle) {
	a.list.MarkFree(block)
	a.list.Coalesce()
}

func (a *Allocator) blockForPayload(payload []byte) metadata.BlockHandle {
	block, err := a.list.HandleForPayload(payload)
	if err != nil {
		panic(fmt.Sprintf("attempted to use memory that was not reserved from this allocator: %+v", err))
	}

	return block
}

// ZeroReserve returns a zero-filled payload large enough for count elements of elemSize bytes each.
// If count*elemSize would overflow, an error wrapping memutils.ErrOutOfMemory is returned before any
// memory is reserved. Negative arguments produce an error wrapping memutils.ErrInvalidSize. If the
// product is 0, ZeroReserve returns nil with no error.
func (a *Allocator) ZeroReserve(count, elemSize int) ([]byte, error) {
	a.logger.Debug("Allocator::ZeroReserve", slog.Int("Count", count), slog.Int("ElementSize", elemSize))

	size, err := memutils.CheckedMul(count, elemSize)
	if err != nil {
		return nil, err
	}

	if size == 0 {
		return nil, nil
	}

	a.lock()
	defer a.mutex.Unlock()

	payload, err := a.reserveLocked(size)
	if err != nil {
		a.logger.Warn("    Allocator::ZeroReserve FAILED", slog.Int("Size", size), slog.Any("error", err))
		return nil, errors.Wrapf(err, "failed to reserve %d elements of %d bytes", count, elemSize)
	}

	clear(payload[:cap(payload)])

	memutils.DebugValidate(a.list)
	return payload, nil
}

// Resize changes the size of a payload and returns the resized payload. A nil payload behaves like
// Reserve(newSize); a newSize of 0 or less releases the payload and returns nil.
//
// When the block behind the payload already holds newSize bytes, its excess is split off into a free
// block if there is enough of it. Otherwise, if the block that follows is free and large enough,
// it is absorbed. In both cases the returned slice shares the original payload's address. Failing
// those, a new block is reserved, the contents are copied over, and the original is released. If
// that reservation fails, nil is returned and the original payload remains valid and unchanged.
func (a *Allocator) Resize(payload []byte, newSize int) []byte {
	a.logger.Debug("Allocator::Resize", slog.Int("Size", cap(payload)), slog.Int("NewSize", newSize))

	if cap(payload) == 0 {
		return a.Reserve(newSize)
	}

	if newSize <= 0 {
		a.Release(payload)
		return nil
	}

	a.lock()
	defer a.mutex.Unlock()

	resized, err := a.resizeLocked(a.blockForPayload(payload), newSize)
	if err != nil {
		a.logger.Warn("    Allocator::Resize FAILED", slog.Int("NewSize", newSize), slog.Any("error", err))
		return nil
	}

	memutils.DebugValidate(a.list)
	return resized
}

// resizeLocked must only be called while the allocator's mutex is held
func (a *Allocator) resizeLocked(block metadata.BlockHandle, newSize int) ([]byte, error) {
	aligned, ok := memutils.AlignSize(newSize)
	if !ok {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory, "size %d", newSize)
	}

	size := a.list.Size(block)

	// Shrink. A block that already holds newSize is kept even when its excess is too small to split.
	if size >= aligned {
		if size >= aligned+metadata.HeaderSize+memutils.Alignment && a.list.Split(block, aligned) {
			a.list.MergeNext(a.list.Next(block))
		}

		return a.list.Payload(block, newSize), nil
	}

	// Grow in place
	next := a.list.Next(block)
	if next != metadata.NoBlock && a.list.IsFree(next) && size+metadata.HeaderSize+a.list.Size(next) >= aligned {
		a.list.MergeNext(block)
		return a.list.Payload(block, newSize), nil
	}

	// Relocate
	resized, err := a.reserveLocked(newSize)
	if err != nil {
		return nil, err
	}

	copy(resized, a.list.Payload(block, size))
	a.releaseLocked(block)

	return resized, nil
}

// UsableSize returns the number of bytes available behind a payload, which is the capacity of the
// block it was carved from. It returns 0 for a nil or zero-capacity slice.
func (a *Allocator) UsableSize(payload []byte) int {
	a.logger.Debug("Allocator::UsableSize")

	if cap(payload) == 0 {
		return 0
	}

	a.lock()
	defer a.mutex.Unlock()

	return a.list.Size(a.blockForPayload(payload))
}

// Validate performs internal consistency checks on the allocator's block list
func (a *Allocator) Validate() error {
	a.lock()
	defer a.mutex.Unlock()

	err := a.list.Validate()
	if err != nil {
		return errors.Wrap(err, "allocator block list is corrupt")
	}

	return nil
}
