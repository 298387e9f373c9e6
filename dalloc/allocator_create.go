package dalloc

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkalloc/dalloc/internal/utils"
	"github.com/vkngwrapper/brkalloc/memutils"
	"github.com/vkngwrapper/brkalloc/memutils/heap"
	"github.com/vkngwrapper/brkalloc/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// MaxHeapSize is the number of bytes of address space reserved for the allocator's heap. The
	// heap can never grow past this size. If it is left at 0, heap.DefaultMaxSize is used.
	// It is ignored when Break is provided.
	MaxHeapSize int

	// Break is an optional heap region for the allocator to manage. When it is nil, the allocator
	// reserves its own region with heap.NewDefault. The allocator assumes that nothing else will grow
	// the provided region after it is handed over.
	Break heap.Break
}

// New creates a new Allocator
//
// logger - The logger that allocator activity is reported to. If it is nil, log output is discarded.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	brk := options.Break
	if brk == nil {
		maxHeapSize := options.MaxHeapSize
		if maxHeapSize == 0 {
			maxHeapSize = heap.DefaultMaxSize
		}

		if maxHeapSize < 0 {
			return nil, errors.Wrapf(memutils.ErrInvalidSize, "MaxHeapSize is %d", maxHeapSize)
		}

		var err error
		brk, err = heap.NewDefault(maxHeapSize)
		if err != nil {
			return nil, errors.Wrap(err, "failed to reserve the allocator heap")
		}
	}

	err := heap.CheckAlignment(brk)
	if err != nil {
		return nil, err
	}

	allocator := &Allocator{
		mutex:       utils.OptionalMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
		logger:      logger,
		createFlags: options.Flags,
		brk:         brk,
		list:        metadata.NewBlockList(brk),
	}

	logger.Debug("Allocator::New",
		slog.String("Flags", options.Flags.String()),
		slog.Int("Capacity", brk.Capacity()),
	)

	return allocator, nil
}

// Destroy tears down the allocator. If any blocks are still reserved, each is logged as unreleased
// memory and an error is returned without tearing anything down. Otherwise the heap region is
// released if the Break supports it (implements io.Closer). Any later call that needs the heap panics.
func (a *Allocator) Destroy() error {
	a.logger.Debug("Allocator::Destroy")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.list == nil {
		return errors.New("allocator has already been destroyed")
	}

	if !a.list.IsEmpty() {
		err := a.list.VisitAllRegions(func(handle metadata.BlockHandle, offset int, size int, free bool) error {
			if free {
				return nil
			}

			a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unreleased block",
				slog.Int("offset", offset),
				slog.Int("size", size),
			)
			return nil
		})
		if err != nil {
			a.logger.LogAttrs(context.Background(),
				slog.LevelError,
				"[UNRELEASED MEMORY] error while iterating unreleased memory",
				slog.Any("error", err))
		}

		return errors.Newf("%d blocks were not released before the destruction of this allocator!", a.list.AllocationCount())
	}

	a.list = nil

	closer, canClose := a.brk.(io.Closer)
	if canClose {
		err := closer.Close()
		if err != nil {
			return errors.Wrap(err, "failed to release the allocator heap")
		}
	}

	return nil
}
