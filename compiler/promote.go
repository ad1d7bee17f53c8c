package compiler

import (
	"fmt"

	"github.com/brix-lang/brix/token"
)

// Cast names the widening conversion one operand needs before an operation.
type Cast int

const (
	CastNone Cast = iota
	CastIntToFloat
	CastIntToComplex
	CastFloatToComplex
	CastIntToStr
	CastFloatToStr
)

func isArith(op string) bool {
	switch op {
	case token.SYM_ADD, token.SYM_SUB, token.SYM_MUL, token.SYM_QUO, token.SYM_REM, token.SYM_EXP:
		return true
	}
	return false
}

func isBitwise(op string) bool {
	switch op {
	case token.SYM_AND, token.SYM_OR, token.SYM_XOR:
		return true
	}
	return false
}

func isComparison(op string) bool {
	switch op {
	case token.SYM_EQL, token.SYM_NEQ, token.SYM_LSS, token.SYM_GTR, token.SYM_LEQ, token.SYM_GEQ:
		return true
	}
	return false
}

func isLogical(op string) bool {
	return op == token.SYM_LAND || op == token.SYM_LOR
}

// Promote resolves the operand type both sides of a binary operation must
// share, and the widening cast each side needs to reach it. It fails when
// the promotion rules do not reconcile the pair for the given operator.
func Promote(op string, left, right Type) (Type, Cast, Cast, error) {
	if isBitwise(op) {
		// Bitwise operators require both operands to be exactly Int.
		if left.Kind() == IntKind && right.Kind() == IntKind {
			return TInt, CastNone, CastNone, nil
		}
		return nil, CastNone, CastNone, fmt.Errorf("bitwise %s requires Int operands, found %s and %s", op, left, right)
	}

	if isLogical(op) {
		if left.Kind() == IntKind && right.Kind() == IntKind {
			return TInt, CastNone, CastNone, nil
		}
		return nil, CastNone, CastNone, fmt.Errorf("logical %s requires Int operands, found %s and %s", op, left, right)
	}

	lk, rk := left.Kind(), right.Kind()
	switch {
	case lk == IntKind && rk == IntKind:
		return TInt, CastNone, CastNone, nil
	case lk == FloatKind && rk == FloatKind:
		return TFloat, CastNone, CastNone, nil
	case lk == IntKind && rk == FloatKind:
		return TFloat, CastIntToFloat, CastNone, nil
	case lk == FloatKind && rk == IntKind:
		return TFloat, CastNone, CastIntToFloat, nil
	case lk == ComplexKind && rk == ComplexKind:
		return TComplex, CastNone, CastNone, nil
	case lk == ComplexKind && rk == IntKind:
		return TComplex, CastNone, CastIntToComplex, nil
	case lk == ComplexKind && rk == FloatKind:
		return TComplex, CastNone, CastFloatToComplex, nil
	case lk == IntKind && rk == ComplexKind:
		return TComplex, CastIntToComplex, CastNone, nil
	case lk == FloatKind && rk == ComplexKind:
		return TComplex, CastFloatToComplex, CastNone, nil
	case lk == StrKind && rk == StrKind:
		// Concatenation and comparison only; arithmetic on strings is rejected.
		if op == token.SYM_ADD || isComparison(op) {
			return TStr, CastNone, CastNone, nil
		}
		return nil, CastNone, CastNone, fmt.Errorf("operator %s is not defined for String operands", op)
	case lk == AtomKind && rk == AtomKind:
		if op == token.SYM_EQL || op == token.SYM_NEQ {
			return TAtom, CastNone, CastNone, nil
		}
		return nil, CastNone, CastNone, fmt.Errorf("operator %s is not defined for Atom operands", op)
	case lk == MatrixKind && rk == MatrixKind:
		if isArith(op) || op == token.SYM_EQL || op == token.SYM_NEQ {
			return TMatrix, CastNone, CastNone, nil
		}
	case lk == IntMatrixKind && rk == IntMatrixKind:
		if isArith(op) || op == token.SYM_EQL || op == token.SYM_NEQ {
			return TIntMat, CastNone, CastNone, nil
		}
	case lk == ComplexMatrixKind && rk == ComplexMatrixKind:
		if isArith(op) || op == token.SYM_EQL || op == token.SYM_NEQ {
			return TCMat, CastNone, CastNone, nil
		}
	case lk == StructKind && rk == StructKind && TypeEqual(left, right):
		if op == token.SYM_EQL || op == token.SYM_NEQ {
			return left, CastNone, CastNone, nil
		}
	}
	return nil, CastNone, CastNone, fmt.Errorf("operator %s is not defined for %s and %s", op, left, right)
}

// PromoteMerge resolves the common type two control-flow arms must merge to
// (ternary and match). The narrower numeric side widens (Int -> Float,
// Int/Float -> Complex); a String on either side forces the Int or Float
// side to String through a runtime conversion. Identical types merge as-is.
func PromoteMerge(a, b Type) (Type, Cast, Cast, error) {
	if TypeEqual(a, b) {
		return a, CastNone, CastNone, nil
	}
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak == IntKind && bk == FloatKind:
		return TFloat, CastIntToFloat, CastNone, nil
	case ak == FloatKind && bk == IntKind:
		return TFloat, CastNone, CastIntToFloat, nil
	case ak == IntKind && bk == ComplexKind:
		return TComplex, CastIntToComplex, CastNone, nil
	case ak == ComplexKind && bk == IntKind:
		return TComplex, CastNone, CastIntToComplex, nil
	case ak == FloatKind && bk == ComplexKind:
		return TComplex, CastFloatToComplex, CastNone, nil
	case ak == ComplexKind && bk == FloatKind:
		return TComplex, CastNone, CastFloatToComplex, nil
	case ak == StrKind && bk == IntKind:
		return TStr, CastNone, CastIntToStr, nil
	case ak == IntKind && bk == StrKind:
		return TStr, CastIntToStr, CastNone, nil
	case ak == StrKind && bk == FloatKind:
		return TStr, CastNone, CastFloatToStr, nil
	case ak == FloatKind && bk == StrKind:
		return TStr, CastFloatToStr, CastNone, nil
	case ak == NilKind && bk == OptionalKind:
		return b, CastNone, CastNone, nil
	case ak == OptionalKind && bk == NilKind:
		return a, CastNone, CastNone, nil
	case ak == NilKind:
		return Optional{Elem: b}, CastNone, CastNone, nil
	case bk == NilKind:
		return Optional{Elem: a}, CastNone, CastNone, nil
	}
	return nil, CastNone, CastNone, fmt.Errorf("branch types %s and %s have no common type", a, b)
}
