package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func TestSqrtPromotesIntArgument(t *testing.T) {
	ir, errs := compileProgram(t,
		varDecl("n", intLit(2)),
		varDecl("x", call("sqrt", id("n"))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "sitofp i64")
	require.Contains(t, ir, "@brix_sqrt")
}

func TestTrigBuiltins(t *testing.T) {
	ir, errs := compileProgram(t,
		varDecl("a", call("sin", floatLit(1.0))),
		varDecl("b", call("cos", floatLit(1.0))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_sin")
	require.Contains(t, ir, "@brix_cos")
}

func TestMatrixTranspose(t *testing.T) {
	arr := &ast.ArrayInit{Token: tk(token.LBRACK, "["), ElemName: "float", Dims: []ast.Expression{intLit(2), intLit(3)}}
	ir, errs := compileProgram(t,
		varDecl("m", arr),
		varDecl("mt", call("transpose", id("m"))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_mat_transpose")
}

func TestMatrixStats(t *testing.T) {
	arr := &ast.ArrayInit{Token: tk(token.LBRACK, "["), ElemName: "float", Dims: []ast.Expression{intLit(4)}}
	ir, errs := compileProgram(t,
		varDecl("m", arr),
		varDecl("mu", call("mean", id("m"))),
		varDecl("sd", call("stddev", id("m"))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_mean")
	require.Contains(t, ir, "@brix_stddev")
}

func TestLenNonStringRejected(t *testing.T) {
	_, errs := compileProgram(t,
		varDecl("n", call("len", intLit(3))),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrTypeMismatch, errs[0].Kind)
}

func TestLenString(t *testing.T) {
	ir, errs := compileProgram(t,
		varDecl("n", call("len", strLit("four"))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_str_len")
}
