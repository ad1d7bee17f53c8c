package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func closureLit(params []*ast.Param, retTypes []string, captured []string, body *ast.BlockStatement) *ast.ClosureLiteral {
	rts := make([]*ast.TypeExpr, len(retTypes))
	for i, rt := range retTypes {
		rts[i] = typExpr(rt)
	}
	return &ast.ClosureLiteral{
		Token:        tk(token.FN, "fn"),
		Params:       params,
		ReturnTypes:  rts,
		Body:         body,
		CapturedVars: captured,
	}
}

func TestClosureEnvCreation(t *testing.T) {
	cl := closureLit(
		[]*ast.Param{param("x", "int")}, []string{"int"},
		[]string{"n"},
		block(ret(infix(token.SYM_ADD, id("x"), id("n")))),
	)
	ir, errs := compileProgram(t,
		varDecl("n", intLit(10)),
		varDecl("f", cl),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_env_new(i64 1)")
	require.Contains(t, ir, "define private i64 @closure_0")
}

func TestClosureCapturesAreSnapshots(t *testing.T) {
	cl := closureLit(
		nil, []string{"int"},
		[]string{"n"},
		block(ret(id("n"))),
	)
	ir, errs := compileProgram(t,
		varDecl("n", intLit(1)),
		varDecl("f", cl),
		assign(id("n"), intLit(2)),
	)
	require.Empty(t, errs)
	// The capture is loaded once at creation and stored into the env slot.
	require.Contains(t, ir, "@brix_env_new")
	require.Contains(t, ir, "getelementptr")
}

func TestClosureHeapCaptureRetained(t *testing.T) {
	cl := closureLit(
		nil, []string{"int"},
		[]string{"s"},
		block(ret(call("len", id("s")))),
	)
	ir, errs := compileProgram(t,
		varDecl("s", strLit("hi")),
		varDecl("f", cl),
	)
	require.Empty(t, errs)
	// The env slot holds its own count on the captured string.
	require.Contains(t, ir, "@brix_retain")
}

func TestClosureIndirectCall(t *testing.T) {
	cl := closureLit(
		[]*ast.Param{param("x", "int")}, []string{"int"},
		nil,
		block(ret(infix(token.SYM_MUL, id("x"), intLit(2)))),
	)
	ir, errs := compileProgram(t,
		varDecl("f", cl),
		varDecl("y", call("f", intLit(21))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "extractvalue")
	// The env pointer rides along as the hidden first argument.
	require.Equal(t, 1, strings.Count(ir, "define private i64 @closure_0"))
}

func TestClosureUndefinedCapture(t *testing.T) {
	cl := closureLit(nil, []string{"int"}, []string{"ghost"}, block(ret(intLit(0))))
	_, errs := compileProgram(t, varDecl("f", cl))
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrUndefined, errs[0].Kind)
}

func TestClosureMultipleCaptureSlots(t *testing.T) {
	cl := closureLit(
		nil, []string{"int"},
		[]string{"a", "b"},
		block(ret(infix(token.SYM_ADD, id("a"), id("b")))),
	)
	ir, errs := compileProgram(t,
		varDecl("a", intLit(1)),
		varDecl("b", intLit(2)),
		varDecl("f", cl),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_env_new(i64 2)")
}

func TestTestStatementRegistersBody(t *testing.T) {
	ts := &ast.TestStatement{
		Token: tk(token.TEST, "test"),
		Name:  "addition works",
		Body:  block(exprStmt(call("print", infix(token.SYM_ADD, intLit(1), intLit(2))))),
	}
	ir, errs := compileProgram(t, ts)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_test_register")
	require.Contains(t, ir, "define private void @test_body_0")
	require.Contains(t, ir, `c"addition works\00"`)
}

func TestTestStatementCapturesTopLevelVars(t *testing.T) {
	ts := &ast.TestStatement{
		Token:        tk(token.TEST, "test"),
		Name:         "uses globals",
		Body:         block(exprStmt(call("print", id("x")))),
		CapturedVars: []string{"x"},
	}
	ir, errs := compileProgram(t,
		varDecl("x", intLit(7)),
		ts,
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_env_new(i64 1)")
	require.Contains(t, ir, "@brix_test_register")
}
