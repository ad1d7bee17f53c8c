package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsHeap(t *testing.T) {
	heap := []Type{TStr, TMatrix, TIntMat, TCMat}
	for _, typ := range heap {
		require.True(t, IsHeap(typ), "%s should be heap-managed", typ)
	}
	value := []Type{TInt, TFloat, TComplex, TAtom, TNil, TErr, TVoid,
		Tuple{Elems: []Type{TInt, TStr}},
		Optional{Elem: TStr},
		Closure{Params: []Type{TInt}, Results: []Type{TInt}},
		Struct{Name: "Point"},
	}
	for _, typ := range value {
		require.False(t, IsHeap(typ), "%s should not be heap-managed", typ)
	}
}

func TestTypeEqual(t *testing.T) {
	require.True(t, TypeEqual(TInt, TInt))
	require.False(t, TypeEqual(TInt, TFloat))
	require.True(t, TypeEqual(Optional{Elem: TInt}, Optional{Elem: TInt}))
	require.False(t, TypeEqual(Optional{Elem: TInt}, Optional{Elem: TFloat}))
	require.True(t, TypeEqual(
		Tuple{Elems: []Type{TInt, TStr}},
		Tuple{Elems: []Type{TInt, TStr}},
	))
	require.False(t, TypeEqual(
		Tuple{Elems: []Type{TInt, TStr}},
		Tuple{Elems: []Type{TInt}},
	))
	require.True(t, TypeEqual(Struct{Name: "A"}, Struct{Name: "A"}))
	require.False(t, TypeEqual(Struct{Name: "A"}, Struct{Name: "B"}))
	require.True(t, TypeEqual(
		Closure{Params: []Type{TInt}, Results: []Type{TFloat}},
		Closure{Params: []Type{TInt}, Results: []Type{TFloat}},
	))
}

func TestTypeStrings(t *testing.T) {
	require.Equal(t, "Int", TInt.String())
	require.Equal(t, "Float", TFloat.String())
	require.Equal(t, "String", TStr.String())
	require.Equal(t, "(Int, Float)", Tuple{Elems: []Type{TInt, TFloat}}.String())
	require.Equal(t, "Int?", Optional{Elem: TInt}.String())
}
