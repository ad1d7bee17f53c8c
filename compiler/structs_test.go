package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func pointStruct() *ast.StructStatement {
	return &ast.StructStatement{
		Token: tk(token.STRUCT, "struct"),
		Name:  id("Point"),
		Fields: []*ast.FieldDef{
			{Name: id("x"), Type: typExpr("float")},
			{Name: id("y"), Type: typExpr("float")},
		},
	}
}

func pointLit(fields ...*ast.FieldInit) *ast.StructLiteral {
	return &ast.StructLiteral{Token: tk(token.IDENT, "Point"), Name: "Point", Fields: fields}
}

func TestStructNamedType(t *testing.T) {
	ir, errs := compileProgram(t,
		pointStruct(),
		varDecl("p", pointLit(
			&ast.FieldInit{Name: id("x"), Value: floatLit(1.0)},
			&ast.FieldInit{Name: id("y"), Value: floatLit(2.0)},
		)),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "%Point = type { double, double }")
}

func TestStructLiteralOmittedFieldsZeroed(t *testing.T) {
	// A non-constant field keeps the aggregate from folding so the
	// insertvalue chain is visible.
	ir, errs := compileProgram(t,
		pointStruct(),
		varDecl("f", floatLit(3.0)),
		varDecl("p", pointLit(&ast.FieldInit{Name: id("x"), Value: id("f")})),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "insertvalue %Point")
	require.Contains(t, ir, "double 0")
}

func TestStructFieldDefault(t *testing.T) {
	st := &ast.StructStatement{
		Token: tk(token.STRUCT, "struct"),
		Name:  id("Conn"),
		Fields: []*ast.FieldDef{
			{Name: id("port"), Type: typExpr("int"), Default: intLit(8080)},
		},
	}
	ir, errs := compileProgram(t,
		st,
		varDecl("c", &ast.StructLiteral{Token: tk(token.IDENT, "Conn"), Name: "Conn"}),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "i64 8080")
}

func TestStructUnknownFieldRejected(t *testing.T) {
	_, errs := compileProgram(t,
		pointStruct(),
		varDecl("p", pointLit(&ast.FieldInit{Name: id("z"), Value: floatLit(1.0)})),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrUndefined, errs[0].Kind)
}

func TestStructDuplicateFieldRejected(t *testing.T) {
	_, errs := compileProgram(t,
		pointStruct(),
		varDecl("p", pointLit(
			&ast.FieldInit{Name: id("x"), Value: floatLit(1.0)},
			&ast.FieldInit{Name: id("x"), Value: floatLit(2.0)},
		)),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrInvalidOp, errs[0].Kind)
}

func TestStructFieldAccess(t *testing.T) {
	ir, errs := compileProgram(t,
		pointStruct(),
		varDecl("p", pointLit(&ast.FieldInit{Name: id("x"), Value: floatLit(1.0)})),
		varDecl("v", fieldOf(id("p"), "x")),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "getelementptr inbounds %Point")
}

func TestStructFieldAssignment(t *testing.T) {
	ir, errs := compileProgram(t,
		pointStruct(),
		varDecl("p", pointLit(&ast.FieldInit{Name: id("x"), Value: floatLit(1.0)})),
		varDecl("v", floatLit(9.0)),
		assign(fieldOf(id("p"), "y"), id("v")),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "getelementptr inbounds %Point")
	require.Contains(t, ir, "store double %")
}

func TestStructEquality(t *testing.T) {
	ir, errs := compileProgram(t,
		pointStruct(),
		varDecl("p", pointLit(&ast.FieldInit{Name: id("x"), Value: floatLit(1.0)})),
		varDecl("q", pointLit(&ast.FieldInit{Name: id("x"), Value: floatLit(1.0)})),
		varDecl("same", infix(token.SYM_EQL, id("p"), id("q"))),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "fcmp oeq double")
	require.Contains(t, ir, "and i1")
}

func TestMethodMangledAndReceiverByAddress(t *testing.T) {
	scale := &ast.MethodStatement{
		Token:    tk(token.FN, "fn"),
		Receiver: param("p", "Point"),
		Name:     id("norm"),
		ReturnTypes: []*ast.TypeExpr{
			typExpr("float"),
		},
		Body: block(ret(infix(token.SYM_ADD,
			infix(token.SYM_MUL, fieldOf(id("p"), "x"), fieldOf(id("p"), "x")),
			infix(token.SYM_MUL, fieldOf(id("p"), "y"), fieldOf(id("p"), "y")),
		))),
	}
	ir, errs := compileProgram(t,
		pointStruct(),
		scale,
		varDecl("p", pointLit(&ast.FieldInit{Name: id("x"), Value: floatLit(3.0)})),
		varDecl("n", methodCall(id("p"), "norm")),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "define double @Point_norm(ptr")
	require.Contains(t, ir, "call double @Point_norm")
}

func TestMethodOnUnknownStructRejected(t *testing.T) {
	m := &ast.MethodStatement{
		Token:    tk(token.FN, "fn"),
		Receiver: param("g", "Ghost"),
		Name:     id("boo"),
		Body:     block(),
	}
	_, errs := compileProgram(t, m)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrUndefined, errs[0].Kind)
}

func TestNestedStructZeroValue(t *testing.T) {
	inner := pointStruct()
	outer := &ast.StructStatement{
		Token: tk(token.STRUCT, "struct"),
		Name:  id("Segment"),
		Fields: []*ast.FieldDef{
			{Name: id("a"), Type: typExpr("Point")},
			{Name: id("b"), Type: typExpr("Point")},
		},
	}
	ir, errs := compileProgram(t,
		inner,
		outer,
		varDecl("s", &ast.StructLiteral{Token: tk(token.IDENT, "Segment"), Name: "Segment"}),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "%Segment = type { %Point, %Point }")
}

func TestHeapFieldRetainedByLiteral(t *testing.T) {
	st := &ast.StructStatement{
		Token: tk(token.STRUCT, "struct"),
		Name:  id("Named"),
		Fields: []*ast.FieldDef{
			{Name: id("name"), Type: typExpr("string")},
		},
	}
	ir, errs := compileProgram(t,
		st,
		varDecl("s", strLit("bob")),
		varDecl("n", &ast.StructLiteral{
			Token: tk(token.IDENT, "Named"), Name: "Named",
			Fields: []*ast.FieldInit{{Name: id("name"), Value: id("s")}},
		}),
	)
	require.Empty(t, errs)
	// The aggregate takes its own count on the borrowed string.
	require.Contains(t, ir, "@brix_retain")
}
