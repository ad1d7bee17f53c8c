package compiler

import (
	"fmt"
	"testing"

	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

// Tests build ASTs directly; the front end lives upstream of this package.

func tk(tt token.TokenType, lit string) token.Token {
	return token.Token{FileName: "test.bx", Type: tt, Literal: lit, Line: 1, Column: 1}
}

func id(name string) *ast.Identifier {
	return &ast.Identifier{Token: tk(token.IDENT, name), Value: name}
}

func intLit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Token: tk(token.INT, fmt.Sprint(v)), Value: v}
}

func floatLit(v float64) *ast.FloatLiteral {
	return &ast.FloatLiteral{Token: tk(token.FLOAT, fmt.Sprint(v)), Value: v}
}

func strLit(s string) *ast.StringLiteral {
	return &ast.StringLiteral{Token: tk(token.STRING, s), Value: s}
}

func atomLit(name string) *ast.AtomLiteral {
	return &ast.AtomLiteral{Token: tk(token.ATOM, ":"+name), Name: name}
}

func infix(op string, l, r ast.Expression) *ast.InfixExpression {
	return &ast.InfixExpression{Token: tk(token.ILLEGAL, op), Left: l, Operator: op, Right: r}
}

func prefix(op string, r ast.Expression) *ast.PrefixExpression {
	return &ast.PrefixExpression{Token: tk(token.ILLEGAL, op), Operator: op, Right: r}
}

func ternary(cond, then, els ast.Expression) *ast.TernaryExpression {
	return &ast.TernaryExpression{Token: tk(token.QUEST, "?"), Cond: cond, Then: then, Else: els}
}

func varDecl(name string, v ast.Expression) *ast.VarStatement {
	return &ast.VarStatement{
		Token:  tk(token.VAR, "var"),
		Names:  []*ast.Identifier{id(name)},
		Values: []ast.Expression{v},
	}
}

func destructure(v ast.Expression, names ...string) *ast.VarStatement {
	ids := make([]*ast.Identifier, len(names))
	for i, n := range names {
		ids[i] = id(n)
	}
	return &ast.VarStatement{
		Token:       tk(token.VAR, "var"),
		Names:       ids,
		Values:      []ast.Expression{v},
		Destructure: true,
	}
}

func assign(target ast.Expression, v ast.Expression) *ast.AssignStatement {
	return &ast.AssignStatement{Token: tk(token.ASSIGN, ":="), Target: target, Value: v}
}

func exprStmt(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Token: e.Tok(), Expression: e}
}

func block(stmts ...ast.Statement) *ast.BlockStatement {
	return &ast.BlockStatement{Token: tk(token.LBRACE, "{"), Statements: stmts}
}

func ret(vals ...ast.Expression) *ast.ReturnStatement {
	return &ast.ReturnStatement{Token: tk(token.RETURN, "return"), Values: vals}
}

func typExpr(name string) *ast.TypeExpr {
	return &ast.TypeExpr{Token: tk(token.IDENT, name), Name: name}
}

func param(name, typ string) *ast.Param {
	return &ast.Param{Name: id(name), Type: typExpr(typ)}
}

func fnDecl(name string, typeParams []string, params []*ast.Param, retTypes []string, body *ast.BlockStatement) *ast.FuncStatement {
	rts := make([]*ast.TypeExpr, len(retTypes))
	for i, rt := range retTypes {
		rts[i] = typExpr(rt)
	}
	return &ast.FuncStatement{
		Token:       tk(token.FN, "fn"),
		Name:        id(name),
		TypeParams:  typeParams,
		Params:      params,
		ReturnTypes: rts,
		Body:        body,
	}
}

func call(name string, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Token: tk(token.LPAREN, "("), Function: id(name), Arguments: args}
}

func callTyped(name string, typeArgs []string, args ...ast.Expression) *ast.CallExpression {
	tas := make([]*ast.TypeExpr, len(typeArgs))
	for i, ta := range typeArgs {
		tas[i] = typExpr(ta)
	}
	return &ast.CallExpression{Token: tk(token.LPAREN, "("), Function: id(name), TypeArgs: tas, Arguments: args}
}

func methodCall(recv ast.Expression, name string, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Token: tk(token.LPAREN, "("), Receiver: recv, Function: id(name), Arguments: args}
}

func fieldOf(left ast.Expression, name string) *ast.FieldExpression {
	return &ast.FieldExpression{Token: tk(token.PERIOD, "."), Left: left, Field: id(name)}
}

func litPat(v ast.Expression) *ast.LiteralPattern {
	return &ast.LiteralPattern{Token: v.Tok(), Value: v}
}

func wildPat() *ast.WildcardPattern {
	return &ast.WildcardPattern{Token: tk(token.WILDCARD, "_")}
}

func bindPat(name string) *ast.BindingPattern {
	return &ast.BindingPattern{Token: tk(token.IDENT, name), Name: id(name)}
}

func arm(body ast.Expression, pats ...ast.Pattern) *ast.MatchArm {
	return &ast.MatchArm{Patterns: pats, Body: body}
}

func guardedArm(body, guard ast.Expression, pats ...ast.Pattern) *ast.MatchArm {
	return &ast.MatchArm{Patterns: pats, Guard: guard, Body: body}
}

func match(scrut ast.Expression, arms ...*ast.MatchArm) *ast.MatchExpression {
	return &ast.MatchExpression{Token: tk(token.MATCH, "match"), Scrutinee: scrut, Arms: arms}
}

// compileProgram lowers the statements and returns the IR text and any
// compile errors. The IR is empty when errors occurred.
func compileProgram(t *testing.T, stmts ...ast.Statement) (string, []*token.CompileError) {
	t.Helper()
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	c := NewCompiler(ctx, t.Name())
	defer c.Dispose()
	c.Compile(&ast.Program{Statements: stmts})
	return c.GenerateIR(), c.Errors
}
