package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

// compileStructLiteral builds a struct aggregate in declaration field
// order. Omitted fields take their declared default, or the zero value of
// their type when no default exists.
func (c *Compiler) compileStructLiteral(sl *ast.StructLiteral) (*Value, *token.CompileError) {
	def, ok := c.Structs[sl.Name]
	if !ok {
		return nil, c.errorf(sl.Tok(), token.ErrUndefined, "struct %s is not defined", sl.Name)
	}

	supplied := make(map[string]ast.Expression, len(sl.Fields))
	for _, fi := range sl.Fields {
		if def.FieldIndex(fi.Name.Value) < 0 {
			return nil, c.errorf(fi.Name.Tok(), token.ErrUndefined, "struct %s has no field %s", sl.Name, fi.Name.Value)
		}
		if _, dup := supplied[fi.Name.Value]; dup {
			return nil, c.errorf(fi.Name.Tok(), token.ErrInvalidOp, "field %s initialized twice", fi.Name.Value)
		}
		supplied[fi.Name.Value] = fi.Value
	}

	agg := llvm.Undef(def.LLVMType)
	for i, fd := range def.Fields {
		ft := def.FieldTypes[i]
		var fv *Value
		var cerr *token.CompileError
		switch {
		case supplied[fd.Name.Value] != nil:
			fv, cerr = c.compileExpr(supplied[fd.Name.Value])
		case fd.Default != nil:
			fv, cerr = c.compileExpr(fd.Default)
		default:
			fv = c.makeZeroValue(ft)
		}
		if cerr != nil {
			return nil, cerr
		}
		w, cerr := c.widenTo(sl.Tok(), fv, ft)
		if cerr != nil {
			return nil, cerr
		}
		// The aggregate keeps its own count on heap fields. An owned
		// field expression transfers its count in.
		if IsHeap(ft) && !fv.Owned {
			c.emitRetain(w.V)
		}
		agg = c.builder.CreateInsertValue(agg, w.V, i, fd.Name.Value)
	}
	return &Value{V: agg, Type: Struct{Name: sl.Name}}, nil
}

// makeZeroValue builds the zero of a type: numeric zeros, empty optional,
// null heap reference, recursively zeroed struct.
func (c *Compiler) makeZeroValue(t Type) *Value {
	switch t.Kind() {
	case IntKind, AtomKind:
		return &Value{V: c.ConstI64(0), Type: t}
	case FloatKind:
		return &Value{V: c.ConstF64(0), Type: t}
	case ComplexKind:
		return &Value{V: llvm.ConstNull(c.complexType()), Type: t}
	case StrKind, MatrixKind, IntMatrixKind, ComplexMatrixKind:
		return &Value{V: c.nullPtr(), Type: t}
	case OptionalKind:
		return c.makeNone(t.(Optional))
	case StructKind:
		def := c.Structs[t.(Struct).Name]
		agg := llvm.Undef(def.LLVMType)
		for i, ft := range def.FieldTypes {
			agg = c.builder.CreateInsertValue(agg, c.makeZeroValue(ft).V, i, "zero_field")
		}
		return &Value{V: agg, Type: t}
	case ClosureKind:
		return &Value{V: llvm.ConstNull(c.closureValueType()), Type: t}
	default:
		panic("no zero value for " + t.String())
	}
}

// compileFieldAddr resolves p.f to the field's storage address inside p's
// slot. Nested fields chain GEPs through compileAddr.
func (c *Compiler) compileFieldAddr(fe *ast.FieldExpression) (llvm.Value, Type, *token.CompileError) {
	baseAddr, baseType, cerr := c.compileAddr(fe.Left)
	if cerr != nil {
		return llvm.Value{}, nil, cerr
	}
	if baseType.Kind() != StructKind {
		return llvm.Value{}, nil, c.errorf(fe.Tok(), token.ErrInvalidOp, "type %s has no fields", baseType)
	}
	def := c.Structs[baseType.(Struct).Name]
	idx := def.FieldIndex(fe.Field.Value)
	if idx < 0 {
		return llvm.Value{}, nil, c.errorf(fe.Field.Tok(), token.ErrUndefined, "struct %s has no field %s", def.Name, fe.Field.Value)
	}
	gep := c.builder.CreateStructGEP(def.LLVMType, baseAddr, idx, fe.Field.Value)
	return gep, def.FieldTypes[idx], nil
}

func (c *Compiler) compileFieldExpr(fe *ast.FieldExpression) (*Value, *token.CompileError) {
	addr, ft, cerr := c.compileFieldAddr(fe)
	if cerr != nil {
		return nil, cerr
	}
	v := c.createLoad(addr, ft, fe.Field.Value)
	return &Value{V: v, Type: ft}, nil
}

// compileFieldAssign stores through a field address with the usual
// release-old, claim-new discipline on heap fields.
func (c *Compiler) compileFieldAssign(as *ast.AssignStatement, fe *ast.FieldExpression) *token.CompileError {
	addr, ft, cerr := c.compileFieldAddr(fe)
	if cerr != nil {
		return cerr
	}
	val, cerr := c.compileExpr(as.Value)
	if cerr != nil {
		return cerr
	}
	w, cerr := c.widenTo(as.Tok(), val, ft)
	if cerr != nil {
		return cerr
	}

	if IsHeap(ft) {
		old := c.createLoad(addr, ft, "old")
		if !val.Owned {
			c.emitRetain(w.V)
		}
		c.emitRelease(old)
	}
	c.createStore(w.V, addr, ft)
	return nil
}

// structEq compares two struct aggregates field by field. All fields must
// themselves support equality.
func (c *Compiler) structEq(st Struct, l, r llvm.Value, negate bool) (*Value, *token.CompileError) {
	def := c.Structs[st.Name]
	acc := llvm.ConstInt(c.Context.Int1Type(), 1, false)

	for i, ft := range def.FieldTypes {
		lf := c.builder.CreateExtractValue(l, i, "field_l")
		rf := c.builder.CreateExtractValue(r, i, "field_r")

		var fieldEq llvm.Value
		if ft.Kind() == StructKind {
			nested, cerr := c.structEq(ft.(Struct), lf, rf, false)
			if cerr != nil {
				return nil, cerr
			}
			fieldEq = c.condValue(nested.V)
		} else {
			eq, ok := binOps[opKey{Operator: token.SYM_EQL, Operand: ft.Kind()}]
			if !ok {
				return nil, &token.CompileError{Kind: token.ErrInvalidOp, Msg: "field type " + ft.String() + " does not support equality"}
			}
			fieldEq = c.condValue(eq(c, lf, rf).V)
		}
		acc = c.builder.CreateAnd(acc, fieldEq, "struct_eq")
	}

	if negate {
		acc = c.builder.CreateXor(acc, llvm.ConstInt(c.Context.Int1Type(), 1, false), "struct_neq")
	}
	return &Value{V: c.boolToInt(acc), Type: TInt}, nil
}
