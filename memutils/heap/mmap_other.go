//go:build !unix

package heap

// DefaultMaxSize is the capacity used by NewDefault. Without address-space reservation the full
// capacity is allocated up front, so it is kept smaller than on unix systems.
const DefaultMaxSize = 64 << 20

// NewDefault creates the platform's preferred Break, reserving capacity bytes
func NewDefault(capacity int) (Break, error) {
	return NewSliceBreak(capacity)
}
