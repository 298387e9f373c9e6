package dalloc

import (
	"fmt"
	"strings"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that this allocator will not be synchronized internally.
	// The consumer must guarantee it is used from only one goroutine at a time or is synchronized by
	// some other mechanism, but performance may improve because the internal mutex is not used.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagNames = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, known := createFlagNames[bit]
		if !known {
			name = fmt.Sprintf("UnknownFlag(%#x)", int32(bit))
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}
