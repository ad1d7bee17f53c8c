package compiler

import (
	"fmt"
	"strings"
)

type Kind int

const (
	IntKind Kind = iota
	FloatKind
	StrKind
	MatrixKind
	IntMatrixKind
	ComplexKind
	ComplexMatrixKind
	TupleKind
	OptionalKind
	AtomKind
	NilKind
	ErrKind
	VoidKind
	ClosureKind
	StructKind
	TypeParamKind
)

// Type is the interface for all types in Brix. The set of kinds is closed;
// every consumer switches exhaustively so a new variant is a compile-time
// checklist, not a runtime surprise.
type Type interface {
	String() string
	Kind() Kind
	Mangle() string
}

// Singletons for the payload-free types. Value-typed, comparable, safe as
// map keys.
var (
	TInt     Type = Int{}
	TFloat   Type = Float{}
	TStr     Type = Str{}
	TMatrix  Type = Matrix{}
	TIntMat  Type = IntMatrix{}
	TComplex Type = Complex{}
	TCMat    Type = ComplexMatrix{}
	TAtom    Type = Atom{}
	TNil     Type = Nil{}
	TErr     Type = Err{}
	TVoid    Type = Void{}
)

type Int struct{}

func (Int) Kind() Kind     { return IntKind }
func (Int) String() string { return "Int" }
func (Int) Mangle() string { return "int" }

type Float struct{}

func (Float) Kind() Kind     { return FloatKind }
func (Float) String() string { return "Float" }
func (Float) Mangle() string { return "float" }

type Str struct{}

func (Str) Kind() Kind     { return StrKind }
func (Str) String() string { return "String" }
func (Str) Mangle() string { return "string" }

// Matrix is a ref-counted runtime matrix of doubles.
type Matrix struct{}

func (Matrix) Kind() Kind     { return MatrixKind }
func (Matrix) String() string { return "Matrix" }
func (Matrix) Mangle() string { return "matrix" }

// IntMatrix is a ref-counted runtime matrix of 64-bit integers.
type IntMatrix struct{}

func (IntMatrix) Kind() Kind     { return IntMatrixKind }
func (IntMatrix) String() string { return "IntMatrix" }
func (IntMatrix) Mangle() string { return "intmatrix" }

type Complex struct{}

func (Complex) Kind() Kind     { return ComplexKind }
func (Complex) String() string { return "Complex" }
func (Complex) Mangle() string { return "complex" }

type ComplexMatrix struct{}

func (ComplexMatrix) Kind() Kind     { return ComplexMatrixKind }
func (ComplexMatrix) String() string { return "ComplexMatrix" }
func (ComplexMatrix) Mangle() string { return "cmatrix" }

// Tuple carries the ordered element types of a multi-value result.
type Tuple struct {
	Elems []Type
}

func (t Tuple) Kind() Kind { return TupleKind }
func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t Tuple) Mangle() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Mangle()
	}
	return "tup_" + strings.Join(parts, "_")
}

// Optional is a union of Elem with nil.
type Optional struct {
	Elem Type
}

func (o Optional) Kind() Kind     { return OptionalKind }
func (o Optional) String() string { return o.Elem.String() + "?" }
func (o Optional) Mangle() string { return "opt_" + o.Elem.Mangle() }

// Atom is an interned symbolic constant; carrier is the runtime's stable
// integer identifier.
type Atom struct{}

func (Atom) Kind() Kind     { return AtomKind }
func (Atom) String() string { return "Atom" }
func (Atom) Mangle() string { return "atom" }

type Nil struct{}

func (Nil) Kind() Kind     { return NilKind }
func (Nil) String() string { return "Nil" }
func (Nil) Mangle() string { return "nil" }

type Err struct{}

func (Err) Kind() Kind     { return ErrKind }
func (Err) String() string { return "Error" }
func (Err) Mangle() string { return "error" }

type Void struct{}

func (Void) Kind() Kind     { return VoidKind }
func (Void) String() string { return "Void" }
func (Void) Mangle() string { return "void" }

// Closure is the static type of a closure value: a (function pointer,
// environment pointer) pair with the given signature.
type Closure struct {
	Params  []Type
	Results []Type
}

func (c Closure) Kind() Kind { return ClosureKind }
func (c Closure) String() string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.String()
	}
	results := make([]string, len(c.Results))
	for i, r := range c.Results {
		results[i] = r.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") -> (" + strings.Join(results, ", ") + ")"
}
func (c Closure) Mangle() string {
	parts := make([]string, 0, len(c.Params)+len(c.Results))
	for _, p := range c.Params {
		parts = append(parts, p.Mangle())
	}
	for _, r := range c.Results {
		parts = append(parts, "r"+r.Mangle())
	}
	return "fn_" + strings.Join(parts, "_")
}

// Struct is a registered struct type referenced by name. Layout lives in
// the compiler's struct registry.
type Struct struct {
	Name string
}

func (s Struct) Kind() Kind     { return StructKind }
func (s Struct) String() string { return s.Name }
func (s Struct) Mangle() string { return "s" + s.Name }

// TypeParam exists only inside generic templates; it never reaches emitted
// code (monomorphization substitutes it away).
type TypeParam struct {
	Name string
}

func (tp TypeParam) Kind() Kind     { return TypeParamKind }
func (tp TypeParam) String() string { return tp.Name }
func (tp TypeParam) Mangle() string { return "tp" + tp.Name }

// IsHeap reports whether t is a reference-counted heap value. The
// classification is total: every kind is listed, and every retain/release
// site goes through it.
func IsHeap(t Type) bool {
	switch t.Kind() {
	case StrKind, MatrixKind, IntMatrixKind, ComplexMatrixKind:
		return true
	case IntKind, FloatKind, ComplexKind, AtomKind,
		TupleKind, OptionalKind, NilKind, ErrKind, VoidKind,
		ClosureKind, StructKind, TypeParamKind:
		return false
	default:
		panic(fmt.Sprintf("IsHeap: unhandled kind %v", t.Kind()))
	}
}

// TypeEqual performs structural equality on types with a dispatcher by Kind.
func TypeEqual(a, b Type) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	cmp := typeComparer(a.Kind())
	return cmp(a, b)
}

func typeComparer(k Kind) func(a, b Type) bool {
	switch k {
	case IntKind, FloatKind, StrKind, MatrixKind, IntMatrixKind,
		ComplexKind, ComplexMatrixKind, AtomKind, NilKind, ErrKind, VoidKind:
		return eqTag
	case TupleKind:
		return eqTuple
	case OptionalKind:
		return eqOptional
	case ClosureKind:
		return eqClosure
	case StructKind:
		return eqStruct
	case TypeParamKind:
		return eqTypeParam
	default:
		return func(a, b Type) bool { panic(fmt.Sprintf("TypeEqual: unhandled kind %v", k)) }
	}
}

// eqTag covers payload-free types: same kind implies equal.
func eqTag(a, b Type) bool { return true }

func eqTuple(a, b Type) bool {
	return equalTypeSlices(a.(Tuple).Elems, b.(Tuple).Elems)
}

func eqOptional(a, b Type) bool {
	return TypeEqual(a.(Optional).Elem, b.(Optional).Elem)
}

func eqClosure(a, b Type) bool {
	ac := a.(Closure)
	bc := b.(Closure)
	return equalTypeSlices(ac.Params, bc.Params) && equalTypeSlices(ac.Results, bc.Results)
}

func eqStruct(a, b Type) bool {
	return a.(Struct).Name == b.(Struct).Name
}

func eqTypeParam(a, b Type) bool {
	return a.(TypeParam).Name == b.(TypeParam).Name
}

func equalTypeSlices(xs, ys []Type) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !TypeEqual(xs[i], ys[i]) {
			return false
		}
	}
	return true
}

func typesStr(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
