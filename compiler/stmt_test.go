package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func TestIfStatement(t *testing.T) {
	ifStmt := &ast.IfStatement{
		Token: tk(token.IF, "if"),
		Cond:  infix(token.SYM_LSS, id("x"), intLit(10)),
		Then:  block(assign(id("x"), intLit(10))),
	}
	ir, errs := compileProgram(t,
		varDecl("x", intLit(1)),
		ifStmt,
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "if_then")
	require.Contains(t, ir, "if_cont")
	require.NotContains(t, ir, "if_else")
}

func TestIfElseStatement(t *testing.T) {
	ifStmt := &ast.IfStatement{
		Token: tk(token.IF, "if"),
		Cond:  id("x"),
		Then:  block(assign(id("x"), intLit(1))),
		Else:  block(assign(id("x"), intLit(2))),
	}
	ir, errs := compileProgram(t,
		varDecl("x", intLit(0)),
		ifStmt,
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "if_then")
	require.Contains(t, ir, "if_else")
	require.Contains(t, ir, "icmp ne i64")
}

func TestNonIntConditionRejected(t *testing.T) {
	ifStmt := &ast.IfStatement{
		Token: tk(token.IF, "if"),
		Cond:  floatLit(1.0),
		Then:  block(),
	}
	_, errs := compileProgram(t, ifStmt)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrTypeMismatch, errs[0].Kind)
}

func TestWhileStatement(t *testing.T) {
	loop := &ast.WhileStatement{
		Token: tk(token.WHILE, "while"),
		Cond:  infix(token.SYM_LSS, id("i"), intLit(10)),
		Body:  block(assign(id("i"), infix(token.SYM_ADD, id("i"), intLit(1)))),
	}
	ir, errs := compileProgram(t,
		varDecl("i", intLit(0)),
		loop,
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "while_cond")
	require.Contains(t, ir, "while_body")
	require.Contains(t, ir, "while_end")
}

func TestForRangeStatement(t *testing.T) {
	loop := &ast.ForStatement{
		Token: tk(token.FOR, "for"),
		Iter:  id("i"),
		Range: &ast.RangeLiteral{Token: tk(token.RANGE, ".."), Start: intLit(0), Stop: intLit(10), Step: id("s")},
		Body:  block(exprStmt(call("print", id("i")))),
	}
	ir, errs := compileProgram(t,
		varDecl("s", intLit(2)),
		loop,
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "for_cond")
	require.Contains(t, ir, "for_body")
	// Direction test handles negative steps.
	require.Contains(t, ir, "select i1")
}

func TestForIteratorReadOnly(t *testing.T) {
	loop := &ast.ForStatement{
		Token: tk(token.FOR, "for"),
		Iter:  id("i"),
		Range: &ast.RangeLiteral{Token: tk(token.RANGE, ".."), Start: intLit(0), Stop: intLit(3)},
		Body:  block(assign(id("i"), intLit(99))),
	}
	_, errs := compileProgram(t, loop)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrInvalidOp, errs[0].Kind)
}

func TestRedeclareInSameScope(t *testing.T) {
	_, errs := compileProgram(t,
		varDecl("x", intLit(1)),
		varDecl("x", intLit(2)),
	)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Msg, "redeclared")
}

func TestShadowingInInnerBlock(t *testing.T) {
	ifStmt := &ast.IfStatement{
		Token: tk(token.IF, "if"),
		Cond:  id("x"),
		Then:  block(varDecl("y", intLit(2))),
	}
	ir, errs := compileProgram(t,
		varDecl("x", intLit(1)),
		ifStmt,
	)
	require.Empty(t, errs)
	require.NotEmpty(t, ir)
}

func TestVarFromNilRejected(t *testing.T) {
	nl := &ast.NilLiteral{Token: tk(token.NIL, "nil")}
	_, errs := compileProgram(t, varDecl("x", nl))
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrInvalidOp, errs[0].Kind)
	require.Contains(t, errs[0].Msg, "nil")
}

func TestDestructureTuple(t *testing.T) {
	fn := fnDecl("pair", nil, nil, []string{"int", "float"},
		block(ret(intLit(1), floatLit(2.0))),
	)
	ir, errs := compileProgram(t,
		fn,
		destructure(call("pair"), "a", "b"),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "extractvalue")
	require.Contains(t, ir, "{ i64, double }")
}

func TestDestructureArityMismatch(t *testing.T) {
	fn := fnDecl("pair", nil, nil, []string{"int", "float"},
		block(ret(intLit(1), floatLit(2.0))),
	)
	_, errs := compileProgram(t,
		fn,
		destructure(call("pair"), "a", "b", "c"),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrTypeMismatch, errs[0].Kind)
}

func TestDestructureNonTuple(t *testing.T) {
	_, errs := compileProgram(t,
		destructure(intLit(1), "a", "b"),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrTypeMismatch, errs[0].Kind)
}

func TestReturnArityMismatch(t *testing.T) {
	fn := fnDecl("one", nil, nil, []string{"int"},
		block(ret(intLit(1), intLit(2))),
	)
	_, errs := compileProgram(t, fn)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrTypeMismatch, errs[0].Kind)
}

func TestReturnWidensToDeclaredType(t *testing.T) {
	fn := fnDecl("f", nil, nil, []string{"float"},
		block(
			varDecl("n", intLit(1)),
			ret(id("n")),
		),
	)
	ir, errs := compileProgram(t,
		fn,
		varDecl("x", call("f")),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "define double @f")
	require.Contains(t, ir, "sitofp i64")
}

func TestStatementsAfterReturnNotEmitted(t *testing.T) {
	fn := fnDecl("f", nil, nil, []string{"int"},
		block(
			ret(intLit(1)),
			varDecl("dead", intLit(2)),
		),
	)
	ir, errs := compileProgram(t,
		fn,
		varDecl("x", call("f")),
	)
	require.Empty(t, errs)
	// The block ended at the return; nothing lands after it.
	require.NotContains(t, ir, "dead")
}

func TestMissingReturnPanics(t *testing.T) {
	fn := fnDecl("f", nil, nil, []string{"int"}, block())
	ir, errs := compileProgram(t, fn)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_panic")
	require.Contains(t, ir, "unreachable")
}

func TestDeclarationInsideBlockRejected(t *testing.T) {
	inner := fnDecl("g", nil, nil, nil, block())
	fn := fnDecl("f", nil, nil, nil, block(inner))
	_, errs := compileProgram(t, fn)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrInvalidOp, errs[0].Kind)
	require.Contains(t, errs[0].Msg, "top level")
}

func TestIndexAssignment(t *testing.T) {
	arr := &ast.ArrayInit{Token: tk(token.LBRACK, "["), ElemName: "float", Dims: []ast.Expression{intLit(2), intLit(2)}}
	idx := &ast.IndexExpression{Token: tk(token.LBRACK, "["), Left: id("m"), Indices: []ast.Expression{intLit(0), intLit(1)}}
	ir, errs := compileProgram(t,
		varDecl("m", arr),
		assign(idx, floatLit(3.5)),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_mat_set")
}

func TestImplicitMainEmitted(t *testing.T) {
	ir, errs := compileProgram(t, varDecl("x", intLit(1)))
	require.Empty(t, errs)
	require.Contains(t, ir, "define i32 @main()")
	require.Contains(t, ir, "ret i32 0")
}

func TestPrintBuiltinFormats(t *testing.T) {
	ir, errs := compileProgram(t,
		exprStmt(call("print", intLit(42), floatLit(1.5), strLit("ok"))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@printf")
	require.Contains(t, ir, "%ld")
	require.Contains(t, ir, "%g")
	require.Contains(t, ir, "%s")
	require.Equal(t, 1, strings.Count(ir, "call i32 (ptr, ...) @printf"))
}
