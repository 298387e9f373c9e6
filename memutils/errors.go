package memutils

import "github.com/pkg/errors"

// ErrOutOfMemory is returned when the heap break refuses to grow or when a requested size cannot be
// represented without overflowing
var ErrOutOfMemory error = errors.New("out of memory")

// ErrInvalidSize is returned when a negative size or element count is passed to an allocation method
var ErrInvalidSize error = errors.New("invalid allocation size")

// ErrBadPointer is returned when a payload does not map to a block within the managed heap region
var ErrBadPointer error = errors.New("payload does not belong to this heap")

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")
