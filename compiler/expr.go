package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func (c *Compiler) compileExpr(expr ast.Expression) (*Value, *token.CompileError) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return &Value{V: c.ConstI64(e.Value), Type: TInt}, nil
	case *ast.FloatLiteral:
		return &Value{V: c.ConstF64(e.Value), Type: TFloat}, nil
	case *ast.ImagLiteral:
		return &Value{V: c.constComplex(c.ConstF64(0), c.ConstF64(e.Value)), Type: TComplex}, nil
	case *ast.StringLiteral:
		return c.compileStringLiteral(e)
	case *ast.AtomLiteral:
		return c.compileAtomLiteral(e)
	case *ast.NilLiteral:
		return &Value{V: llvm.ConstInt(c.Context.Int1Type(), 0, false), Type: TNil}, nil
	case *ast.Identifier:
		return c.compileIdentifier(e)
	case *ast.PrefixExpression:
		return c.compilePrefixExpr(e)
	case *ast.InfixExpression:
		return c.compileInfixExpr(e)
	case *ast.TernaryExpression:
		return c.compileTernaryExpr(e)
	case *ast.RangeLiteral:
		// Ranges only iterate for loops; a range is not a value.
		return nil, c.errorf(e.Tok(), token.ErrInvalidOp, "range expression is only valid as a for-loop iterable")
	case *ast.ArrayInit:
		return c.compileArrayInit(e)
	case *ast.IndexExpression:
		return c.compileIndexExpr(e)
	case *ast.FieldExpression:
		return c.compileFieldExpr(e)
	case *ast.CallExpression:
		return c.compileCallExpr(e)
	case *ast.ClosureLiteral:
		return c.compileClosureLiteral(e)
	case *ast.MatchExpression:
		return c.compileMatchExpr(e)
	case *ast.StructLiteral:
		return c.compileStructLiteral(e)
	default:
		return nil, c.errorf(expr.Tok(), token.ErrInvalidOp, "unsupported expression %T", expr)
	}
}

// compileStringLiteral copies the static bytes into a fresh heap string.
// The result is owned; the static global stays immutable.
func (c *Compiler) compileStringLiteral(sl *ast.StringLiteral) (*Value, *token.CompileError) {
	fnType, fn := c.GetCFunc(STR_NEW)
	static := c.constCString(sl.Value)
	heap := c.builder.CreateCall(fnType, fn, []llvm.Value{static}, "str_tmp")
	return &Value{V: heap, Type: TStr, Owned: true}, nil
}

// compileAtomLiteral interns the atom's name and yields its stable id.
func (c *Compiler) compileAtomLiteral(al *ast.AtomLiteral) (*Value, *token.CompileError) {
	fnType, fn := c.GetCFunc(ATOM_INTERN)
	id := c.builder.CreateCall(fnType, fn, []llvm.Value{c.constCString(al.Name)}, "atom_tmp")
	return &Value{V: id, Type: TAtom}, nil
}

func (c *Compiler) compileIdentifier(ident *ast.Identifier) (*Value, *token.CompileError) {
	sym, ok := Get(c.Scopes, ident.Value)
	if !ok {
		return nil, c.errorf(ident.Tok(), token.ErrUndefined, "identifier %s is not defined", ident.Value)
	}
	v := c.createLoad(sym.Ptr, sym.Type, ident.Value)
	return &Value{V: v, Type: sym.Type}, nil
}

func (c *Compiler) compilePrefixExpr(pe *ast.PrefixExpression) (*Value, *token.CompileError) {
	right, cerr := c.compileExpr(pe.Right)
	if cerr != nil {
		return nil, cerr
	}
	if right == nil {
		return nil, c.errorf(pe.Tok(), token.ErrMissingValue, "operand of %s produced no value", pe.Operator)
	}

	switch pe.Operator {
	case token.SYM_SUB:
		switch right.Type.Kind() {
		case IntKind:
			return &Value{V: c.builder.CreateNeg(right.V, "neg_tmp"), Type: TInt}, nil
		case FloatKind:
			return &Value{V: c.builder.CreateFNeg(right.V, "fneg_tmp"), Type: TFloat}, nil
		case ComplexKind:
			re := c.builder.CreateExtractValue(right.V, 0, "re")
			im := c.builder.CreateExtractValue(right.V, 1, "im")
			neg := c.constComplex(c.builder.CreateFNeg(re, "neg_re"), c.builder.CreateFNeg(im, "neg_im"))
			return &Value{V: neg, Type: TComplex}, nil
		}
		return nil, c.errorf(pe.Tok(), token.ErrTypeMismatch, "operator - is not defined for %s", right.Type)
	case token.SYM_NOT:
		if right.Type.Kind() != IntKind {
			return nil, c.errorf(pe.Tok(), token.ErrTypeMismatch, "operator ! requires Int, found %s", right.Type)
		}
		isZero := c.builder.CreateICmp(llvm.IntEQ, right.V, c.ConstI64(0), "not_tmp")
		return &Value{V: c.boolToInt(isZero), Type: TInt}, nil
	}
	return nil, c.errorf(pe.Tok(), token.ErrInvalidOp, "unknown prefix operator %s", pe.Operator)
}

func (c *Compiler) compileInfixExpr(ie *ast.InfixExpression) (*Value, *token.CompileError) {
	if ie.Operator == token.SYM_LAND || ie.Operator == token.SYM_LOR {
		return c.compileShortCircuit(ie)
	}

	left, cerr := c.compileExpr(ie.Left)
	if cerr != nil {
		return nil, cerr
	}
	right, cerr := c.compileExpr(ie.Right)
	if cerr != nil {
		return nil, cerr
	}
	if left == nil || right == nil {
		return nil, c.errorf(ie.Tok(), token.ErrMissingValue, "operand of %s produced no value", ie.Operator)
	}

	if ie.Operator == token.SYM_EXP {
		return c.compileExponent(ie, left, right)
	}

	common, castL, castR, err := Promote(ie.Operator, left.Type, right.Type)
	if err != nil {
		return nil, c.errorf(ie.Tok(), token.ErrTypeMismatch, "%s", err.Error())
	}
	lv := c.applyCast(left, castL)
	rv := c.applyCast(right, castR)

	var res *Value
	if common.Kind() == StructKind {
		res, cerr = c.structEq(common.(Struct), lv.V, rv.V, ie.Operator == token.SYM_NEQ)
		if cerr != nil {
			return nil, cerr
		}
	} else {
		fn, ok := binOps[opKey{Operator: ie.Operator, Operand: common.Kind()}]
		if !ok {
			return nil, c.errorf(ie.Tok(), token.ErrInvalidOp, "operator %s is not defined for %s", ie.Operator, common)
		}
		res = fn(c, lv.V, rv.V)
	}

	// Owned operand temporaries were consumed by value; drop them now.
	c.releaseTemp(left)
	c.releaseTemp(right)
	return res, nil
}

// compileShortCircuit lowers && and || with branching so the right-hand
// side only evaluates when it can still decide the result. The result is a
// normalized 0/1 Int.
func (c *Compiler) compileShortCircuit(ie *ast.InfixExpression) (*Value, *token.CompileError) {
	left, cerr := c.compileExpr(ie.Left)
	if cerr != nil {
		return nil, cerr
	}
	if left.Type.Kind() != IntKind {
		return nil, c.errorf(ie.Tok(), token.ErrTypeMismatch, "logical %s requires Int operands, found %s", ie.Operator, left.Type)
	}

	cond := c.condValue(left.V)
	var rhsBlock, shortBlock, contBlock llvm.BasicBlock
	var shortVal llvm.Value
	if ie.Operator == token.SYM_LAND {
		rhsBlock, shortBlock, contBlock = c.createIfElseCont(cond, "and_rhs", "and_short", "and_cont")
		shortVal = c.ConstI64(0)
	} else {
		shortBlock, rhsBlock, contBlock = c.createIfElseCont(cond, "or_short", "or_rhs", "or_cont")
		shortVal = c.ConstI64(1)
	}

	c.builder.SetInsertPointAtEnd(rhsBlock)
	right, cerr := c.compileExpr(ie.Right)
	if cerr != nil {
		return nil, cerr
	}
	if right.Type.Kind() != IntKind {
		return nil, c.errorf(ie.Tok(), token.ErrTypeMismatch, "logical %s requires Int operands, found %s", ie.Operator, right.Type)
	}
	rhsNorm := c.boolToInt(c.condValue(right.V))
	rhsEnd := c.builder.GetInsertBlock()
	c.builder.CreateBr(contBlock)

	c.builder.SetInsertPointAtEnd(shortBlock)
	c.builder.CreateBr(contBlock)

	c.builder.SetInsertPointAtEnd(contBlock)
	phi := c.builder.CreatePHI(c.Context.Int64Type(), "logic_tmp")
	phi.AddIncoming([]llvm.Value{rhsNorm, shortVal}, []llvm.BasicBlock{rhsEnd, shortBlock})
	return &Value{V: phi, Type: TInt}, nil
}

// compileExponent lowers **. An Int base with a small constant Int exponent
// unrolls to multiplies and stays Int; everything else goes to the runtime
// pow over doubles.
func (c *Compiler) compileExponent(ie *ast.InfixExpression, left, right *Value) (*Value, *token.CompileError) {
	lk, rk := left.Type.Kind(), right.Type.Kind()
	if lk == ComplexKind || rk == ComplexKind {
		return nil, c.errorf(ie.Tok(), token.ErrInvalidOp, "operator ** is not defined for Complex")
	}
	if (lk != IntKind && lk != FloatKind) || (rk != IntKind && rk != FloatKind) {
		return nil, c.errorf(ie.Tok(), token.ErrTypeMismatch, "operator ** is not defined for %s and %s", left.Type, right.Type)
	}

	if lk == IntKind && rk == IntKind {
		if lit, ok := ie.Right.(*ast.IntegerLiteral); ok && lit.Value >= 0 && lit.Value <= 8 {
			if lit.Value == 0 {
				return &Value{V: c.ConstI64(1), Type: TInt}, nil
			}
			acc := left.V
			for i := int64(1); i < lit.Value; i++ {
				acc = c.builder.CreateMul(acc, left.V, "pow_tmp")
			}
			return &Value{V: acc, Type: TInt}, nil
		}
	}

	lf := left.V
	if lk == IntKind {
		lf = c.intToFloat(lf)
	}
	rf := right.V
	if rk == IntKind {
		rf = c.intToFloat(rf)
	}
	fnType, fn := c.GetCFunc(POW)
	res := c.builder.CreateCall(fnType, fn, []llvm.Value{lf, rf}, "pow_tmp")
	return &Value{V: res, Type: TFloat}, nil
}

func (c *Compiler) compileTernaryExpr(te *ast.TernaryExpression) (*Value, *token.CompileError) {
	cond, cerr := c.compileExpr(te.Cond)
	if cerr != nil {
		return nil, cerr
	}
	if cond.Type.Kind() != IntKind {
		return nil, c.errorf(te.Tok(), token.ErrTypeMismatch, "condition must be Int, found %s", cond.Type)
	}

	ifBlock, elseBlock, contBlock := c.createIfElseCont(c.condValue(cond.V), "tern_then", "tern_else", "tern_cont")

	c.builder.SetInsertPointAtEnd(ifBlock)
	thenVal, cerr := c.compileExpr(te.Then)
	if cerr != nil {
		return nil, cerr
	}
	thenEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(elseBlock)
	elseVal, cerr := c.compileExpr(te.Else)
	if cerr != nil {
		return nil, cerr
	}
	elseEnd := c.builder.GetInsertBlock()

	merged, castL, castR, err := PromoteMerge(thenVal.Type, elseVal.Type)
	if err != nil {
		return nil, c.errorf(te.Tok(), token.ErrTypeMismatch, "%s", err.Error())
	}

	return c.mergeArms(te.Tok(), merged, thenVal, castL, thenEnd, elseVal, castR, elseEnd, contBlock)
}

// mergeArms finishes a two-way value merge: widens each arm in its own
// block, claims ownership so the phi result is uniformly owned for heap
// types, then joins through the phi.
func (c *Compiler) mergeArms(tok token.Token, merged Type, thenVal *Value, castL Cast, thenEnd llvm.BasicBlock, elseVal *Value, castR Cast, elseEnd llvm.BasicBlock, contBlock llvm.BasicBlock) (*Value, *token.CompileError) {
	c.builder.SetInsertPointAtEnd(thenEnd)
	tv, cerr := c.finishMergeArm(tok, thenVal, castL, merged)
	if cerr != nil {
		return nil, cerr
	}
	c.builder.CreateBr(contBlock)

	c.builder.SetInsertPointAtEnd(elseEnd)
	ev, cerr := c.finishMergeArm(tok, elseVal, castR, merged)
	if cerr != nil {
		return nil, cerr
	}
	c.builder.CreateBr(contBlock)

	c.builder.SetInsertPointAtEnd(contBlock)
	phi := c.builder.CreatePHI(c.mapToLLVMType(merged), "merge_tmp")
	phi.AddIncoming([]llvm.Value{tv.V, ev.V}, []llvm.BasicBlock{thenEnd, elseEnd})
	return &Value{V: phi, Type: merged, Owned: IsHeap(merged)}, nil
}

func (c *Compiler) finishMergeArm(tok token.Token, val *Value, cast Cast, merged Type) (*Value, *token.CompileError) {
	v := c.applyCast(val, cast)
	if merged.Kind() == OptionalKind && v.Type.Kind() != OptionalKind {
		adjusted, cerr := c.widenTo(tok, v, merged)
		if cerr != nil {
			return nil, cerr
		}
		v = adjusted
	}
	return c.claimForMerge(v), nil
}

// compileArrayInit lowers int[n] / float[n, m] zero-initializers. A single
// dimension builds a 1 x n row.
func (c *Compiler) compileArrayInit(ai *ast.ArrayInit) (*Value, *token.CompileError) {
	if len(ai.Dims) == 0 || len(ai.Dims) > 2 {
		return nil, c.errorf(ai.Tok(), token.ErrInvalidOp, "array initializer takes one or two dimensions, found %d", len(ai.Dims))
	}

	dims := make([]llvm.Value, 0, 2)
	for _, d := range ai.Dims {
		dv, cerr := c.compileExpr(d)
		if cerr != nil {
			return nil, cerr
		}
		if dv.Type.Kind() != IntKind {
			return nil, c.errorf(d.Tok(), token.ErrTypeMismatch, "array dimension must be Int, found %s", dv.Type)
		}
		dims = append(dims, dv.V)
	}
	rows, cols := c.ConstI64(1), dims[0]
	if len(dims) == 2 {
		rows, cols = dims[0], dims[1]
	}

	var fname string
	var resType Type
	switch ai.ElemName {
	case "int":
		fname, resType = IMAT_ZEROS, TIntMat
	case "float":
		fname, resType = MAT_ZEROS, TMatrix
	default:
		return nil, c.errorf(ai.Tok(), token.ErrInvalidOp, "array element type must be int or float, found %s", ai.ElemName)
	}
	fnType, fn := c.GetCFunc(fname)
	mat := c.builder.CreateCall(fnType, fn, []llvm.Value{rows, cols}, "mat_tmp")
	return &Value{V: mat, Type: resType, Owned: true}, nil
}

// matIndices normalizes 1-D and 2-D index lists to a (row, col) pair.
func (c *Compiler) matIndices(ix *ast.IndexExpression) (llvm.Value, llvm.Value, *token.CompileError) {
	if len(ix.Indices) == 0 || len(ix.Indices) > 2 {
		return llvm.Value{}, llvm.Value{}, c.errorf(ix.Tok(), token.ErrInvalidOp, "indexing takes one or two indices, found %d", len(ix.Indices))
	}
	vals := make([]llvm.Value, 0, 2)
	for _, e := range ix.Indices {
		iv, cerr := c.compileExpr(e)
		if cerr != nil {
			return llvm.Value{}, llvm.Value{}, cerr
		}
		if iv.Type.Kind() != IntKind {
			return llvm.Value{}, llvm.Value{}, c.errorf(e.Tok(), token.ErrTypeMismatch, "index must be Int, found %s", iv.Type)
		}
		vals = append(vals, iv.V)
	}
	if len(vals) == 1 {
		return c.ConstI64(0), vals[0], nil
	}
	return vals[0], vals[1], nil
}

func (c *Compiler) compileIndexExpr(ix *ast.IndexExpression) (*Value, *token.CompileError) {
	left, cerr := c.compileExpr(ix.Left)
	if cerr != nil {
		return nil, cerr
	}

	var fname string
	var elem Type
	switch left.Type.Kind() {
	case MatrixKind:
		fname, elem = MAT_GET, TFloat
	case IntMatrixKind:
		fname, elem = IMAT_GET, TInt
	default:
		return nil, c.errorf(ix.Tok(), token.ErrInvalidOp, "type %s is not indexable", left.Type)
	}

	row, col, cerr := c.matIndices(ix)
	if cerr != nil {
		return nil, cerr
	}
	fnType, fn := c.GetCFunc(fname)
	v := c.builder.CreateCall(fnType, fn, []llvm.Value{left.V, row, col}, "idx_tmp")
	c.releaseTemp(left)
	return &Value{V: v, Type: elem}, nil
}
