package dalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "None", CreateFlags(0).String())
	require.Equal(t, "CreateExternallySynchronized", CreateExternallySynchronized.String())
	require.Equal(t, "CreateExternallySynchronized|UnknownFlag(0x4)", (CreateExternallySynchronized | 4).String())
}
