package dalloc

import (
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	defaultOnce      sync.Once
	defaultAllocator *Allocator
	defaultErr       error
)

func init() {
	initDefault()
}

func initDefault() {
	defaultOnce.Do(func() {
		defaultAllocator, defaultErr = New(nil, CreateOptions{})
	})
}

// Default returns the process-wide allocator used by the package-level functions. It is created
// before main runs, with default options and no logging. If it could not be created, Default
// returns nil and DefaultErr reports why.
func Default() *Allocator {
	initDefault()
	return defaultAllocator
}

// DefaultErr returns the error that prevented the process-wide allocator from being created, if any
func DefaultErr() error {
	initDefault()
	return defaultErr
}

// Reserve calls Reserve on the process-wide allocator. It returns nil if the allocator is unavailable.
func Reserve(size int) []byte {
	allocator := Default()
	if allocator == nil {
		return nil
	}

	return allocator.Reserve(size)
}

// Release calls Release on the process-wide allocator
func Release(payload []byte) {
	allocator := Default()
	if allocator == nil {
		return
	}

	allocator.Release(payload)
}

// ZeroReserve calls ZeroReserve on the process-wide allocator
func ZeroReserve(count, elemSize int) ([]byte, error) {
	allocator := Default()
	if allocator == nil {
		return nil, errors.Wrap(defaultErr, "the default allocator is unavailable")
	}

	return allocator.ZeroReserve(count, elemSize)
}

// Resize calls Resize on the process-wide allocator. It returns nil if the allocator is unavailable.
func Resize(payload []byte, newSize int) []byte {
	allocator := Default()
	if allocator == nil {
		return nil
	}

	return allocator.Resize(payload, newSize)
}
