package ast

import (
	"bytes"
	"strings"

	"github.com/brix-lang/brix/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) Tok() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Tok()
	}
	return token.Token{Type: token.EOF}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// TypeExpr is a syntactic type reference as the parser produces it:
// a builtin name (int, float, string, matrix, intmatrix, complex, cmatrix,
// atom, void), a struct name, or a generic type-parameter name. Optional
// wraps the named type in an optional/union-with-nil.
type TypeExpr struct {
	Token    token.Token
	Name     string
	Optional bool
}

func (te *TypeExpr) Tok() token.Token { return te.Token }
func (te *TypeExpr) String() string {
	if te.Optional {
		return te.Name + "?"
	}
	return te.Name
}

// Param is one function/method/closure parameter.
type Param struct {
	Name *Identifier
	Type *TypeExpr
}

func (p *Param) String() string { return p.Name.Value + " " + p.Type.String() }

func printExprs(a []Expression) string {
	parts := make([]string, len(a))
	for i, e := range a {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Statements

// VarStatement declares one or more new variables:
//
//	var x := expr
//	var {a, b} := f()   (Destructure=true, single tuple-valued Value)
type VarStatement struct {
	Token       token.Token // the `var` token
	Names       []*Identifier
	Values      []Expression
	Destructure bool
}

func (vs *VarStatement) statementNode()   {}
func (vs *VarStatement) Tok() token.Token { return vs.Token }
func (vs *VarStatement) String() string {
	var out bytes.Buffer
	out.WriteString("var ")
	if vs.Destructure {
		out.WriteString("{")
	}
	names := make([]string, len(vs.Names))
	for i, n := range vs.Names {
		names[i] = n.Value
	}
	out.WriteString(strings.Join(names, ", "))
	if vs.Destructure {
		out.WriteString("}")
	}
	out.WriteString(" := ")
	out.WriteString(printExprs(vs.Values))
	return out.String()
}

// AssignStatement reassigns an existing storage location. Target is an
// identifier, a field access, or an index expression.
type AssignStatement struct {
	Token  token.Token // the := token
	Target Expression
	Value  Expression
}

func (as *AssignStatement) statementNode()   {}
func (as *AssignStatement) Tok() token.Token { return as.Token }
func (as *AssignStatement) String() string {
	return as.Target.String() + " := " + as.Value.String()
}

type BlockStatement struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()   {}
func (bs *BlockStatement) Tok() token.Token { return bs.Token }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

type IfStatement struct {
	Token token.Token // the `if` token
	Cond  Expression
	Then  *BlockStatement
	Else  Statement // nil, *BlockStatement, or *IfStatement
}

func (is *IfStatement) statementNode()   {}
func (is *IfStatement) Tok() token.Token { return is.Token }
func (is *IfStatement) String() string {
	out := "if " + is.Cond.String() + " { " + is.Then.String() + " }"
	if is.Else != nil {
		out += " else { " + is.Else.String() + " }"
	}
	return out
}

type WhileStatement struct {
	Token token.Token // the `while` token
	Cond  Expression
	Body  *BlockStatement
}

func (ws *WhileStatement) statementNode()   {}
func (ws *WhileStatement) Tok() token.Token { return ws.Token }
func (ws *WhileStatement) String() string {
	return "while " + ws.Cond.String() + " { " + ws.Body.String() + " }"
}

// ForStatement iterates an integer range: for i in a..b { }.
// The range literal is valid only in this position.
type ForStatement struct {
	Token token.Token // the `for` token
	Iter  *Identifier
	Range *RangeLiteral
	Body  *BlockStatement
}

func (fs *ForStatement) statementNode()   {}
func (fs *ForStatement) Tok() token.Token { return fs.Token }
func (fs *ForStatement) String() string {
	return "for " + fs.Iter.Value + " in " + fs.Range.String() + " { " + fs.Body.String() + " }"
}

type ReturnStatement struct {
	Token  token.Token // the `return` token
	Values []Expression
}

func (rs *ReturnStatement) statementNode()   {}
func (rs *ReturnStatement) Tok() token.Token { return rs.Token }
func (rs *ReturnStatement) String() string {
	return "return " + printExprs(rs.Values)
}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()   {}
func (es *ExpressionStatement) Tok() token.Token { return es.Token }
func (es *ExpressionStatement) String() string   { return es.Expression.String() }

// FuncStatement declares a top-level function. TypeParams is non-empty for
// generic functions; generic bodies are compiled per specialization.
type FuncStatement struct {
	Token       token.Token // the `fn` token
	Name        *Identifier
	TypeParams  []string
	Params      []*Param
	ReturnTypes []*TypeExpr
	Body        *BlockStatement
}

func (fs *FuncStatement) statementNode()   {}
func (fs *FuncStatement) Tok() token.Token { return fs.Token }
func (fs *FuncStatement) String() string {
	var out bytes.Buffer
	out.WriteString("fn " + fs.Name.Value)
	if len(fs.TypeParams) > 0 {
		out.WriteString("<" + strings.Join(fs.TypeParams, ", ") + ">")
	}
	params := make([]string, len(fs.Params))
	for i, p := range fs.Params {
		params[i] = p.String()
	}
	out.WriteString("(" + strings.Join(params, ", ") + ")")
	return out.String()
}

// FieldDef is one struct field: name, type, and an optional default
// expression evaluated at literal sites that omit the field.
type FieldDef struct {
	Name    *Identifier
	Type    *TypeExpr
	Default Expression // nil if no default
}

type StructStatement struct {
	Token  token.Token // the `struct` token
	Name   *Identifier
	Fields []*FieldDef
}

func (ss *StructStatement) statementNode()   {}
func (ss *StructStatement) Tok() token.Token { return ss.Token }
func (ss *StructStatement) String() string   { return "struct " + ss.Name.Value }

// MethodStatement binds a method to one struct type through an explicit
// receiver parameter.
type MethodStatement struct {
	Token       token.Token // the `fn` token
	Receiver    *Param
	Name        *Identifier
	Params      []*Param
	ReturnTypes []*TypeExpr
	Body        *BlockStatement
}

func (ms *MethodStatement) statementNode()   {}
func (ms *MethodStatement) Tok() token.Token { return ms.Token }
func (ms *MethodStatement) String() string {
	return "fn (" + ms.Receiver.String() + ") " + ms.Name.Value
}

// TestStatement registers a named test body with the runtime test framework.
// Like closures, the body's capture set is computed by the closure-analysis
// pass before codegen.
type TestStatement struct {
	Token        token.Token // the `test` token
	Name         string
	Body         *BlockStatement
	CapturedVars []string
}

func (ts *TestStatement) statementNode()   {}
func (ts *TestStatement) Tok() token.Token { return ts.Token }
func (ts *TestStatement) String() string   { return "test \"" + ts.Name + "\"" }

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string   { return il.Token.Literal }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()  {}
func (fl *FloatLiteral) Tok() token.Token { return fl.Token }
func (fl *FloatLiteral) String() string   { return fl.Token.Literal }

// ImagLiteral is the imaginary component of a complex constant: 2.5i.
type ImagLiteral struct {
	Token token.Token
	Value float64
}

func (il *ImagLiteral) expressionNode()  {}
func (il *ImagLiteral) Tok() token.Token { return il.Token }
func (il *ImagLiteral) String() string   { return il.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()  {}
func (sl *StringLiteral) Tok() token.Token { return sl.Token }
func (sl *StringLiteral) String() string   { return "\"" + sl.Value + "\"" }

// AtomLiteral is an interned symbolic constant: :ok, :error.
type AtomLiteral struct {
	Token token.Token
	Name  string
}

func (al *AtomLiteral) expressionNode()  {}
func (al *AtomLiteral) Tok() token.Token { return al.Token }
func (al *AtomLiteral) String() string   { return ":" + al.Name }

type NilLiteral struct {
	Token token.Token
}

func (nl *NilLiteral) expressionNode()  {}
func (nl *NilLiteral) Tok() token.Token { return nl.Token }
func (nl *NilLiteral) String() string   { return "nil" }

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. !
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()  {}
func (pe *PrefixExpression) Tok() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()  {}
func (ie *InfixExpression) Tok() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

type TernaryExpression struct {
	Token token.Token // the ? token
	Cond  Expression
	Then  Expression
	Else  Expression
}

func (te *TernaryExpression) expressionNode()  {}
func (te *TernaryExpression) Tok() token.Token { return te.Token }
func (te *TernaryExpression) String() string {
	return "(" + te.Cond.String() + " ? " + te.Then.String() + " : " + te.Else.String() + ")"
}

// RangeLiteral is only valid as a for-loop iterable.
type RangeLiteral struct {
	Token token.Token // the .. token
	Start Expression
	Stop  Expression
	Step  Expression // nil means step 1
}

func (rl *RangeLiteral) expressionNode()  {}
func (rl *RangeLiteral) Tok() token.Token { return rl.Token }
func (rl *RangeLiteral) String() string {
	out := rl.Start.String() + ".." + rl.Stop.String()
	if rl.Step != nil {
		out += ".." + rl.Step.String()
	}
	return out
}

// ArrayInit is the static array-initializer sugar int[n] / float[n,m].
// ElemName is "int" or "float".
type ArrayInit struct {
	Token    token.Token
	ElemName string
	Dims     []Expression
}

func (ai *ArrayInit) expressionNode()  {}
func (ai *ArrayInit) Tok() token.Token { return ai.Token }
func (ai *ArrayInit) String() string {
	return ai.ElemName + "[" + printExprs(ai.Dims) + "]"
}

// IndexExpression reads one matrix element: m[i] or m[i, j].
type IndexExpression struct {
	Token   token.Token // the [ token
	Left    Expression
	Indices []Expression
}

func (ix *IndexExpression) expressionNode()  {}
func (ix *IndexExpression) Tok() token.Token { return ix.Token }
func (ix *IndexExpression) String() string {
	return ix.Left.String() + "[" + printExprs(ix.Indices) + "]"
}

// FieldExpression reads a struct field: p.name.
type FieldExpression struct {
	Token token.Token // the . token
	Left  Expression
	Field *Identifier
}

func (fe *FieldExpression) expressionNode()  {}
func (fe *FieldExpression) Tok() token.Token { return fe.Token }
func (fe *FieldExpression) String() string {
	return fe.Left.String() + "." + fe.Field.Value
}

// CallExpression covers free-function calls, builtin calls, generic calls
// (TypeArgs non-empty for explicit instantiation), method calls (Receiver
// non-nil), and closure calls (Function resolves to a closure-typed
// variable).
type CallExpression struct {
	Token     token.Token // the ( token
	Receiver  Expression  // nil for free functions
	Function  *Identifier
	TypeArgs  []*TypeExpr
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()  {}
func (ce *CallExpression) Tok() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	var out bytes.Buffer
	if ce.Receiver != nil {
		out.WriteString(ce.Receiver.String() + ".")
	}
	out.WriteString(ce.Function.Value)
	if len(ce.TypeArgs) > 0 {
		targs := make([]string, len(ce.TypeArgs))
		for i, ta := range ce.TypeArgs {
			targs[i] = ta.String()
		}
		out.WriteString("<" + strings.Join(targs, ", ") + ">")
	}
	out.WriteString("(" + printExprs(ce.Arguments) + ")")
	return out.String()
}

// ClosureLiteral carries the capture set computed by the external
// closure-analysis pass: an ordered, deduplicated, sorted list of outer
// names referenced by the body and not shadowed by the parameters.
// Codegen treats CapturedVars as read-only input.
type ClosureLiteral struct {
	Token        token.Token // the `fn` token
	Params       []*Param
	ReturnTypes  []*TypeExpr
	Body         *BlockStatement
	CapturedVars []string
}

func (cl *ClosureLiteral) expressionNode()  {}
func (cl *ClosureLiteral) Tok() token.Token { return cl.Token }
func (cl *ClosureLiteral) String() string {
	params := make([]string, len(cl.Params))
	for i, p := range cl.Params {
		params[i] = p.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") { " + cl.Body.String() + " }"
}

// Patterns

type Pattern interface {
	Node
	patternNode()
}

// LiteralPattern matches by equality against a literal expression
// (integer, float, string, or atom).
type LiteralPattern struct {
	Token token.Token
	Value Expression
}

func (lp *LiteralPattern) patternNode()     {}
func (lp *LiteralPattern) Tok() token.Token { return lp.Token }
func (lp *LiteralPattern) String() string   { return lp.Value.String() }

type WildcardPattern struct {
	Token token.Token // the _ token
}

func (wp *WildcardPattern) patternNode()     {}
func (wp *WildcardPattern) Tok() token.Token { return wp.Token }
func (wp *WildcardPattern) String() string   { return "_" }

// BindingPattern always matches and binds the scrutinee under Name, visible
// only within the arm's guard and body.
type BindingPattern struct {
	Token token.Token
	Name  *Identifier
}

func (bp *BindingPattern) patternNode()     {}
func (bp *BindingPattern) Tok() token.Token { return bp.Token }
func (bp *BindingPattern) String() string   { return bp.Name.Value }

// MatchArm is one arm: alternatives (or-pattern), an optional guard, and
// the arm body expression.
type MatchArm struct {
	Patterns []Pattern
	Guard    Expression // nil if no guard
	Body     Expression
}

func (ma *MatchArm) String() string {
	pats := make([]string, len(ma.Patterns))
	for i, p := range ma.Patterns {
		pats[i] = p.String()
	}
	out := strings.Join(pats, " | ")
	if ma.Guard != nil {
		out += " if " + ma.Guard.String()
	}
	return out + " -> " + ma.Body.String()
}

type MatchExpression struct {
	Token     token.Token // the `match` token
	Scrutinee Expression
	Arms      []*MatchArm
}

func (me *MatchExpression) expressionNode()  {}
func (me *MatchExpression) Tok() token.Token { return me.Token }
func (me *MatchExpression) String() string {
	var out bytes.Buffer
	out.WriteString("match " + me.Scrutinee.String() + " { ")
	for _, arm := range me.Arms {
		out.WriteString(arm.String() + "; ")
	}
	out.WriteString("}")
	return out.String()
}

// FieldInit is one explicitly supplied field in a struct literal.
type FieldInit struct {
	Name  *Identifier
	Value Expression
}

type StructLiteral struct {
	Token  token.Token // the struct name token
	Name   string
	Fields []*FieldInit
}

func (sl *StructLiteral) expressionNode()  {}
func (sl *StructLiteral) Tok() token.Token { return sl.Token }
func (sl *StructLiteral) String() string {
	fields := make([]string, len(sl.Fields))
	for i, f := range sl.Fields {
		fields[i] = f.Name.Value + ": " + f.Value.String()
	}
	return sl.Name + "{" + strings.Join(fields, ", ") + "}"
}
