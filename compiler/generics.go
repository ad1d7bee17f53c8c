package compiler

import (
	"github.com/brix-lang/brix/token"
)

// specialize compiles (or fetches) the monomorphized form of a generic
// function for the given concrete type arguments. Specializing the same
// (name, typeArgs) pair twice is a cache hit; the body compiles once.
func (c *Compiler) specialize(tok token.Token, name string, typeArgs []Type) (*CompiledFunc, *token.CompileError) {
	template, ok := c.Generics[name]
	if !ok {
		return nil, c.errorf(tok, token.ErrUndefined, "generic function %s is not defined", name)
	}
	if len(typeArgs) != len(template.TypeParams) {
		return nil, c.errorf(tok, token.ErrTypeMismatch, "%s takes %d type arguments, found %d", name, len(template.TypeParams), len(typeArgs))
	}
	for _, ta := range typeArgs {
		if ta.Kind() == TypeParamKind || ta.Kind() == VoidKind || ta.Kind() == NilKind {
			return nil, c.errorf(tok, token.ErrInvalidOp, "%s is not a valid type argument", ta)
		}
	}

	key := SpecKey(name, typeArgs)
	if cf, hit := c.FuncCache[key]; hit {
		return cf, nil
	}

	subst := make(map[string]Type, len(template.TypeParams))
	for i, tp := range template.TypeParams {
		subst[tp] = typeArgs[i]
	}

	cf := c.compileFunc(template, key, subst)
	if cf == nil {
		return nil, c.errorf(tok, token.ErrEmit, "specialization %s failed to compile", key)
	}
	return cf, nil
}

// specializeFromArgs infers type arguments from call-site argument types.
// The first occurrence of a type parameter binds it; later occurrences of
// the same parameter may only widen the binding numerically (so add(1, 2.5)
// lands on the Float specialization). Anything else is a mismatch.
func (c *Compiler) specializeFromArgs(tok token.Token, name string, argTypes []Type) (*CompiledFunc, *token.CompileError) {
	template := c.Generics[name]
	if len(argTypes) != len(template.Params) {
		return nil, c.errorf(tok, token.ErrTypeMismatch, "%s takes %d arguments, found %d", name, len(template.Params), len(argTypes))
	}

	bindings := make(map[string]Type, len(template.TypeParams))
	isParam := make(map[string]bool, len(template.TypeParams))
	for _, tp := range template.TypeParams {
		isParam[tp] = true
	}

	for i, p := range template.Params {
		if !isParam[p.Type.Name] || p.Type.Optional {
			continue
		}
		at := argTypes[i]
		if at.Kind() == NilKind || at.Kind() == VoidKind {
			return nil, c.errorf(tok, token.ErrTypeMismatch, "cannot infer %s from %s", p.Type.Name, at)
		}
		bound, seen := bindings[p.Type.Name]
		if !seen {
			bindings[p.Type.Name] = at
			continue
		}
		if TypeEqual(bound, at) {
			continue
		}
		// Inference widens along the numeric lattice only; a merge that
		// crosses heap class (Int against String) is a conflict, not a
		// widening.
		widened, _, _, err := PromoteMerge(bound, at)
		if err != nil || IsHeap(widened) != IsHeap(bound) || IsHeap(widened) != IsHeap(at) {
			return nil, c.errorf(tok, token.ErrTypeMismatch, "conflicting types for %s: %s and %s", p.Type.Name, bound, at)
		}
		bindings[p.Type.Name] = widened
	}

	typeArgs := make([]Type, len(template.TypeParams))
	for i, tp := range template.TypeParams {
		bound, ok := bindings[tp]
		if !ok {
			return nil, c.errorf(tok, token.ErrTypeMismatch, "cannot infer type argument %s for %s", tp, name)
		}
		typeArgs[i] = bound
	}
	return c.specialize(tok, name, typeArgs)
}
