package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/token"
)

// opKey selects an operator implementation. Operands reach the table
// already promoted to a single kind, so one kind is enough.
type opKey struct {
	Operator string
	Operand  Kind
}

// opFunc emits the instruction(s) for one binary operator over two values
// of the key's kind and returns the result.
type opFunc func(c *Compiler, left, right llvm.Value) *Value

// icmpOp emits an integer comparison and widens the i1 to the Int carrier.
func icmpOp(pred llvm.IntPredicate, name string) opFunc {
	return func(c *Compiler, left, right llvm.Value) *Value {
		cmp := c.builder.CreateICmp(pred, left, right, name)
		return &Value{V: c.boolToInt(cmp), Type: TInt}
	}
}

// fcmpOp emits a float comparison and widens the i1 to the Int carrier.
func fcmpOp(pred llvm.FloatPredicate, name string) opFunc {
	return func(c *Compiler, left, right llvm.Value) *Value {
		cmp := c.builder.CreateFCmp(pred, left, right, name)
		return &Value{V: c.boolToInt(cmp), Type: TInt}
	}
}

// runtimeBinOp calls a runtime helper of shape (i8*, i8*) -> i8*. The
// result is a fresh heap reference the caller owns.
func runtimeBinOp(fname string, resType Type) opFunc {
	return func(c *Compiler, left, right llvm.Value) *Value {
		fnType, fn := c.GetCFunc(fname)
		res := c.builder.CreateCall(fnType, fn, []llvm.Value{left, right}, "bin_tmp")
		return &Value{V: res, Type: resType, Owned: true}
	}
}

// runtimeEqOp calls an (i8*, i8*) -> i64 equality helper; negate inverts
// the result for != without a second helper.
func runtimeEqOp(fname string, negate bool) opFunc {
	return func(c *Compiler, left, right llvm.Value) *Value {
		fnType, fn := c.GetCFunc(fname)
		res := c.builder.CreateCall(fnType, fn, []llvm.Value{left, right}, "eq_tmp")
		if negate {
			res = c.builder.CreateXor(res, c.ConstI64(1), "neq_tmp")
		}
		return &Value{V: res, Type: TInt}
	}
}

// complexBinOp calls a runtime helper over two {re, im} aggregates.
func complexBinOp(fname string) opFunc {
	return func(c *Compiler, left, right llvm.Value) *Value {
		fnType, fn := c.GetCFunc(fname)
		res := c.builder.CreateCall(fnType, fn, []llvm.Value{left, right}, "cbin_tmp")
		return &Value{V: res, Type: TComplex}
	}
}

// strCmpOp compares strings through the runtime's three-way compare.
func strCmpOp(pred llvm.IntPredicate, name string) opFunc {
	return func(c *Compiler, left, right llvm.Value) *Value {
		fnType, fn := c.GetCFunc(STR_CMP)
		ord := c.builder.CreateCall(fnType, fn, []llvm.Value{left, right}, "strcmp_tmp")
		cmp := c.builder.CreateICmp(pred, ord, c.ConstI64(0), name)
		return &Value{V: c.boolToInt(cmp), Type: TInt}
	}
}

var binOps = map[opKey]opFunc{
	// Int arithmetic. Division truncates toward zero (sdiv).
	{token.SYM_ADD, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateAdd(l, r, "add_tmp"), Type: TInt}
	},
	{token.SYM_SUB, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateSub(l, r, "sub_tmp"), Type: TInt}
	},
	{token.SYM_MUL, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateMul(l, r, "mul_tmp"), Type: TInt}
	},
	{token.SYM_QUO, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateSDiv(l, r, "div_tmp"), Type: TInt}
	},
	{token.SYM_REM, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateSRem(l, r, "rem_tmp"), Type: TInt}
	},

	// Int bitwise.
	{token.SYM_AND, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateAnd(l, r, "and_tmp"), Type: TInt}
	},
	{token.SYM_OR, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateOr(l, r, "or_tmp"), Type: TInt}
	},
	{token.SYM_XOR, IntKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateXor(l, r, "xor_tmp"), Type: TInt}
	},

	// Int comparisons.
	{token.SYM_EQL, IntKind}: icmpOp(llvm.IntEQ, "eq_tmp"),
	{token.SYM_NEQ, IntKind}: icmpOp(llvm.IntNE, "neq_tmp"),
	{token.SYM_LSS, IntKind}: icmpOp(llvm.IntSLT, "lt_tmp"),
	{token.SYM_GTR, IntKind}: icmpOp(llvm.IntSGT, "gt_tmp"),
	{token.SYM_LEQ, IntKind}: icmpOp(llvm.IntSLE, "le_tmp"),
	{token.SYM_GEQ, IntKind}: icmpOp(llvm.IntSGE, "ge_tmp"),

	// Float arithmetic.
	{token.SYM_ADD, FloatKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateFAdd(l, r, "fadd_tmp"), Type: TFloat}
	},
	{token.SYM_SUB, FloatKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateFSub(l, r, "fsub_tmp"), Type: TFloat}
	},
	{token.SYM_MUL, FloatKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateFMul(l, r, "fmul_tmp"), Type: TFloat}
	},
	{token.SYM_QUO, FloatKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateFDiv(l, r, "fdiv_tmp"), Type: TFloat}
	},
	{token.SYM_REM, FloatKind}: func(c *Compiler, l, r llvm.Value) *Value {
		return &Value{V: c.builder.CreateFRem(l, r, "frem_tmp"), Type: TFloat}
	},

	// Float comparisons (ordered).
	{token.SYM_EQL, FloatKind}: fcmpOp(llvm.FloatOEQ, "feq_tmp"),
	{token.SYM_NEQ, FloatKind}: fcmpOp(llvm.FloatONE, "fneq_tmp"),
	{token.SYM_LSS, FloatKind}: fcmpOp(llvm.FloatOLT, "flt_tmp"),
	{token.SYM_GTR, FloatKind}: fcmpOp(llvm.FloatOGT, "fgt_tmp"),
	{token.SYM_LEQ, FloatKind}: fcmpOp(llvm.FloatOLE, "fle_tmp"),
	{token.SYM_GEQ, FloatKind}: fcmpOp(llvm.FloatOGE, "fge_tmp"),

	// Complex arithmetic and equality go through the runtime.
	{token.SYM_ADD, ComplexKind}: complexBinOp(COMPLEX_ADD),
	{token.SYM_SUB, ComplexKind}: complexBinOp(COMPLEX_SUB),
	{token.SYM_MUL, ComplexKind}: complexBinOp(COMPLEX_MUL),
	{token.SYM_QUO, ComplexKind}: complexBinOp(COMPLEX_DIV),
	{token.SYM_EQL, ComplexKind}: runtimeEqOp(COMPLEX_EQ, false),
	{token.SYM_NEQ, ComplexKind}: runtimeEqOp(COMPLEX_EQ, true),

	// Strings: concatenation plus lexicographic comparison.
	{token.SYM_ADD, StrKind}: runtimeBinOp(STR_CONCAT, TStr),
	{token.SYM_EQL, StrKind}: strCmpOp(llvm.IntEQ, "streq_tmp"),
	{token.SYM_NEQ, StrKind}: strCmpOp(llvm.IntNE, "strneq_tmp"),
	{token.SYM_LSS, StrKind}: strCmpOp(llvm.IntSLT, "strlt_tmp"),
	{token.SYM_GTR, StrKind}: strCmpOp(llvm.IntSGT, "strgt_tmp"),
	{token.SYM_LEQ, StrKind}: strCmpOp(llvm.IntSLE, "strle_tmp"),
	{token.SYM_GEQ, StrKind}: strCmpOp(llvm.IntSGE, "strge_tmp"),

	// Atoms compare by interned identifier.
	{token.SYM_EQL, AtomKind}: icmpOp(llvm.IntEQ, "atom_eq_tmp"),
	{token.SYM_NEQ, AtomKind}: icmpOp(llvm.IntNE, "atom_neq_tmp"),

	// Matrix arithmetic allocates a fresh result matrix.
	{token.SYM_ADD, MatrixKind}: runtimeBinOp(MAT_ADD, TMatrix),
	{token.SYM_SUB, MatrixKind}: runtimeBinOp(MAT_SUB, TMatrix),
	{token.SYM_MUL, MatrixKind}: runtimeBinOp(MAT_MUL, TMatrix),
	{token.SYM_EQL, MatrixKind}: runtimeEqOp(MAT_EQ, false),
	{token.SYM_NEQ, MatrixKind}: runtimeEqOp(MAT_EQ, true),

	{token.SYM_ADD, IntMatrixKind}: runtimeBinOp(IMAT_ADD, TIntMat),
	{token.SYM_SUB, IntMatrixKind}: runtimeBinOp(IMAT_SUB, TIntMat),
	{token.SYM_MUL, IntMatrixKind}: runtimeBinOp(IMAT_MUL, TIntMat),
	{token.SYM_EQL, IntMatrixKind}: runtimeEqOp(IMAT_EQ, false),
	{token.SYM_NEQ, IntMatrixKind}: runtimeEqOp(IMAT_EQ, true),

	{token.SYM_ADD, ComplexMatrixKind}: runtimeBinOp(CMAT_ADD, TCMat),
	{token.SYM_SUB, ComplexMatrixKind}: runtimeBinOp(CMAT_SUB, TCMat),
	{token.SYM_MUL, ComplexMatrixKind}: runtimeBinOp(CMAT_MUL, TCMat),
	{token.SYM_EQL, ComplexMatrixKind}: runtimeEqOp(CMAT_EQ, false),
	{token.SYM_NEQ, ComplexMatrixKind}: runtimeEqOp(CMAT_EQ, true),
}
