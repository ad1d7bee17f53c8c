package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/token"
)

// Value is one lowered expression result. Owned reports whether the value
// is a freshly constructed heap reference whose count the expression
// already holds; ownership transfers to whoever stores or returns it.
// Non-heap values carry Owned=false and never touch the ref counter.
type Value struct {
	V     llvm.Value
	Type  Type
	Owned bool
}

func (c *Compiler) emitRetain(v llvm.Value) {
	fnType, fn := c.GetCFunc(RETAIN)
	c.builder.CreateCall(fnType, fn, []llvm.Value{v}, "")
}

func (c *Compiler) emitRelease(v llvm.Value) {
	fnType, fn := c.GetCFunc(RELEASE)
	c.builder.CreateCall(fnType, fn, []llvm.Value{v}, "")
}

// addCleanup registers a heap-typed slot for release on every exit path of
// the current function.
func (c *Compiler) addCleanup(sym *Symbol) {
	f := c.curFn()
	f.cleanup = append(f.cleanup, sym)
}

// emitCleanup releases every registered heap slot of the current function.
// Slots are null-seeded at declaration and release tolerates null, so the
// emission is correct on paths that never reached a declaration.
func (c *Compiler) emitCleanup() {
	f := c.curFn()
	for i := len(f.cleanup) - 1; i >= 0; i-- {
		sym := f.cleanup[i]
		v := c.createLoad(sym.Ptr, sym.Type, "cleanup")
		c.emitRelease(v)
	}
}

// declareVar is the single entry point for binding a fresh name. Heap
// values are retained unless the expression already owns its reference;
// either way the slot ends the statement holding exactly one count.
func (c *Compiler) declareVar(name string, val *Value, readOnly bool) *Symbol {
	ty := c.mapToLLVMType(val.Type)

	var alloca llvm.Value
	if IsHeap(val.Type) {
		// Null-seeded in the entry block so an exit on a path that never
		// reached this declaration releases null.
		alloca = c.createHeapSlot(ty, name, val.Type)
	} else {
		alloca = c.createEntryBlockAlloca(ty, name)
	}
	sym := &Symbol{Ptr: alloca, Type: val.Type, ReadOnly: readOnly}

	if IsHeap(val.Type) {
		if !val.Owned {
			c.emitRetain(val.V)
		}
		// A declaration inside a loop body re-enters with the slot still
		// holding last iteration's reference. The seed is null and release
		// tolerates null, so first entry releases null.
		if c.loopDepth > 0 {
			old := c.createLoad(alloca, val.Type, "old")
			c.emitRelease(old)
		}
		c.addCleanup(sym)
	}
	c.createStore(val.V, alloca, val.Type)
	Put(c.Scopes, name, sym)
	return sym
}

// assignVar is the single entry point for reassigning an existing slot:
// release the old reference, claim the new one, store. The retain-new,
// release-old order is load-first here, so self-assignment stays safe.
func (c *Compiler) assignVar(tok token.Token, sym *Symbol, val *Value) *token.CompileError {
	if sym.ReadOnly {
		return c.errorf(tok, token.ErrInvalidOp, "cannot reassign read-only binding")
	}
	if !TypeEqual(sym.Type, val.Type) {
		adjusted, cerr := c.widenTo(tok, val, sym.Type)
		if cerr != nil {
			return c.errorf(tok, token.ErrTypeMismatch, "cannot assign %s to variable of type %s", val.Type, sym.Type)
		}
		val = adjusted
	}

	if IsHeap(sym.Type) {
		old := c.createLoad(sym.Ptr, sym.Type, "old")
		// The slot always takes a fresh count; an owned temporary gives
		// its count back after the store. Loading the old value first
		// keeps self-assignment safe.
		c.emitRetain(val.V)
		c.emitRelease(old)
		c.createStore(val.V, sym.Ptr, sym.Type)
		if val.Owned {
			c.emitRelease(val.V)
		}
		return nil
	}
	c.createStore(val.V, sym.Ptr, sym.Type)
	return nil
}

// releaseTemp drops an owned temporary whose value was consumed by-value
// (or discarded) rather than stored. No-op for borrowed or non-heap values.
func (c *Compiler) releaseTemp(val *Value) {
	if val == nil || !val.Owned || !IsHeap(val.Type) {
		return
	}
	c.emitRelease(val.V)
}

// claimForMerge makes an arm value safe to flow through a phi whose result
// is treated as owned: borrowed heap values gain a count here.
func (c *Compiler) claimForMerge(val *Value) *Value {
	if IsHeap(val.Type) && !val.Owned {
		c.emitRetain(val.V)
		return &Value{V: val.V, Type: val.Type, Owned: true}
	}
	return val
}

// widenTo applies the numeric widenings Promote knows about to coerce val
// to want. Used for assignment into an already-typed slot and for argument
// passing; fails on anything that is not a pure widening.
func (c *Compiler) widenTo(tok token.Token, val *Value, want Type) (*Value, *token.CompileError) {
	if TypeEqual(val.Type, want) {
		return val, nil
	}
	switch {
	case val.Type.Kind() == IntKind && want.Kind() == FloatKind:
		return &Value{V: c.intToFloat(val.V), Type: TFloat}, nil
	case val.Type.Kind() == IntKind && want.Kind() == ComplexKind:
		return &Value{V: c.constComplex(c.intToFloat(val.V), c.ConstF64(0)), Type: TComplex}, nil
	case val.Type.Kind() == FloatKind && want.Kind() == ComplexKind:
		return &Value{V: c.constComplex(val.V, c.ConstF64(0)), Type: TComplex}, nil
	case val.Type.Kind() == NilKind && want.Kind() == OptionalKind:
		return c.makeNone(want.(Optional)), nil
	case want.Kind() == OptionalKind && TypeEqual(val.Type, want.(Optional).Elem):
		return c.makeSome(want.(Optional), val), nil
	}
	return nil, c.errorf(tok, token.ErrTypeMismatch, "cannot convert %s to %s", val.Type, want)
}

func (c *Compiler) intToFloat(v llvm.Value) llvm.Value {
	return c.builder.CreateSIToFP(v, c.Context.DoubleType(), "casttmp")
}

// applyCast widens one operand per a Promote decision.
func (c *Compiler) applyCast(val *Value, cast Cast) *Value {
	switch cast {
	case CastNone:
		return val
	case CastIntToFloat:
		return &Value{V: c.intToFloat(val.V), Type: TFloat, Owned: val.Owned}
	case CastIntToComplex:
		return &Value{V: c.constComplex(c.intToFloat(val.V), c.ConstF64(0)), Type: TComplex, Owned: val.Owned}
	case CastFloatToComplex:
		return &Value{V: c.constComplex(val.V, c.ConstF64(0)), Type: TComplex, Owned: val.Owned}
	case CastIntToStr:
		return c.numToStr(val.V, INT_TO_STR)
	case CastFloatToStr:
		return c.numToStr(val.V, FLOAT_TO_STR)
	default:
		panic("unknown cast")
	}
}

// numToStr renders a numeric value as a fresh runtime string. The result
// carries its own count like any other construction.
func (c *Compiler) numToStr(v llvm.Value, fname string) *Value {
	fnType, fn := c.GetCFunc(fname)
	s := c.builder.CreateCall(fnType, fn, []llvm.Value{v}, "str_tmp")
	return &Value{V: s, Type: TStr, Owned: true}
}

// makeNone builds the empty optional aggregate {false, undef}.
func (c *Compiler) makeNone(opt Optional) *Value {
	agg := llvm.Undef(c.mapToLLVMType(opt))
	agg = c.builder.CreateInsertValue(agg, llvm.ConstInt(c.Context.Int1Type(), 0, false), 0, "none_tag")
	return &Value{V: agg, Type: opt}
}

// makeSome wraps a payload in an optional aggregate {true, payload}. An
// owned payload stays owned through the wrapper.
func (c *Compiler) makeSome(opt Optional, payload *Value) *Value {
	agg := llvm.Undef(c.mapToLLVMType(opt))
	agg = c.builder.CreateInsertValue(agg, llvm.ConstInt(c.Context.Int1Type(), 1, false), 0, "some_tag")
	agg = c.builder.CreateInsertValue(agg, payload.V, 1, "some_payload")
	return &Value{V: agg, Type: opt, Owned: payload.Owned}
}
