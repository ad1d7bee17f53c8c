package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMangleFunc(t *testing.T) {
	require.Equal(t, "add", MangleFunc("add", nil))
	require.Equal(t, "add_int", MangleFunc("add", []Type{TInt}))
	require.Equal(t, "pair_int_float", MangleFunc("pair", []Type{TInt, TFloat}))
	require.Equal(t, "get_opt_string", MangleFunc("get", []Type{Optional{Elem: TStr}}))
}

func TestMangleMethod(t *testing.T) {
	require.Equal(t, "Point_norm", MangleMethod("Point", "norm"))
}

func TestSpecKeyMatchesMangledName(t *testing.T) {
	// The cache key doubles as the emitted symbol, so lookups and
	// definitions can never drift apart.
	require.Equal(t, MangleFunc("add", []Type{TFloat}), SpecKey("add", []Type{TFloat}))
}
