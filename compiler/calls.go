package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func (c *Compiler) compileCallExpr(ce *ast.CallExpression) (*Value, *token.CompileError) {
	if ce.Receiver != nil {
		return c.compileMethodCall(ce)
	}

	name := ce.Function.Value

	if len(ce.TypeArgs) > 0 {
		typeArgs := make([]Type, len(ce.TypeArgs))
		for i, ta := range ce.TypeArgs {
			t, cerr := c.resolveTypeExpr(ta, nil)
			if cerr != nil {
				return nil, cerr
			}
			typeArgs[i] = t
		}
		cf, cerr := c.specialize(ce.Tok(), name, typeArgs)
		if cerr != nil {
			return nil, cerr
		}
		args, cerr := c.compileArgs(ce.Arguments)
		if cerr != nil {
			return nil, cerr
		}
		return c.callDirect(ce.Tok(), cf, args)
	}

	if val, handled, cerr := c.compileBuiltin(ce); handled {
		return val, cerr
	}

	if _, ok := c.Funcs[name]; ok {
		cf, cached := c.FuncCache[name]
		if !cached {
			return nil, c.errorf(ce.Tok(), token.ErrMissingValue, "function %s was not compiled", name)
		}
		args, cerr := c.compileArgs(ce.Arguments)
		if cerr != nil {
			return nil, cerr
		}
		return c.callDirect(ce.Tok(), cf, args)
	}

	if _, ok := c.Generics[name]; ok {
		args, cerr := c.compileArgs(ce.Arguments)
		if cerr != nil {
			return nil, cerr
		}
		argTypes := make([]Type, len(args))
		for i, a := range args {
			argTypes[i] = a.Type
		}
		cf, cerr := c.specializeFromArgs(ce.Tok(), name, argTypes)
		if cerr != nil {
			return nil, cerr
		}
		return c.callDirect(ce.Tok(), cf, args)
	}

	if sym, ok := Get(c.Scopes, name); ok {
		if sym.Type.Kind() != ClosureKind {
			return nil, c.errorf(ce.Tok(), token.ErrInvalidOp, "%s of type %s is not callable", name, sym.Type)
		}
		return c.compileClosureCall(ce, sym)
	}

	return nil, c.errorf(ce.Tok(), token.ErrUndefined, "function %s is not defined", name)
}

func (c *Compiler) compileArgs(exprs []ast.Expression) ([]*Value, *token.CompileError) {
	args := make([]*Value, len(exprs))
	for i, e := range exprs {
		v, cerr := c.compileExpr(e)
		if cerr != nil {
			return nil, cerr
		}
		if v == nil || v.Type.Kind() == VoidKind {
			return nil, c.errorf(e.Tok(), token.ErrMissingValue, "argument produced no value")
		}
		args[i] = v
	}
	return args, nil
}

// callDirect emits a call to a compiled function. Arguments widen to the
// parameter types; heap arguments pass borrowed (the callee retains what it
// keeps), so owned temporaries are dropped right after the call.
func (c *Compiler) callDirect(tok token.Token, cf *CompiledFunc, args []*Value) (*Value, *token.CompileError) {
	if len(args) != len(cf.Params) {
		return nil, c.errorf(tok, token.ErrTypeMismatch, "wrong number of arguments: want %d, found %d", len(cf.Params), len(args))
	}
	llvmArgs := make([]llvm.Value, len(args))
	for i, a := range args {
		w, cerr := c.widenTo(tok, a, cf.Params[i])
		if cerr != nil {
			return nil, cerr
		}
		llvmArgs[i] = w.V
	}

	callName := "call_tmp"
	if len(cf.Results) == 0 {
		callName = ""
	}
	res := c.builder.CreateCall(cf.FnType, cf.Fn, llvmArgs, callName)
	for _, a := range args {
		c.releaseTemp(a)
	}

	rt := resultType(cf.Results)
	if rt.Kind() == VoidKind {
		return &Value{Type: TVoid}, nil
	}
	// Returned heap references arrive with a count the caller owns.
	return &Value{V: res, Type: rt, Owned: true}, nil
}

func (c *Compiler) compileMethodCall(ce *ast.CallExpression) (*Value, *token.CompileError) {
	recvAddr, recvType, cerr := c.compileAddr(ce.Receiver)
	if cerr != nil {
		return nil, cerr
	}
	if recvType.Kind() != StructKind {
		return nil, c.errorf(ce.Tok(), token.ErrInvalidOp, "type %s has no methods", recvType)
	}
	structName := recvType.(Struct).Name
	mangled := MangleMethod(structName, ce.Function.Value)
	cf, ok := c.FuncCache[mangled]
	if !ok {
		return nil, c.errorf(ce.Tok(), token.ErrUndefined, "type %s has no method %s", recvType, ce.Function.Value)
	}

	args, cerr := c.compileArgs(ce.Arguments)
	if cerr != nil {
		return nil, cerr
	}
	if len(args) != len(cf.Params)-1 {
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "wrong number of arguments: want %d, found %d", len(cf.Params)-1, len(args))
	}

	llvmArgs := make([]llvm.Value, 0, len(args)+1)
	llvmArgs = append(llvmArgs, recvAddr)
	for i, a := range args {
		w, werr := c.widenTo(ce.Tok(), a, cf.Params[i+1])
		if werr != nil {
			return nil, werr
		}
		llvmArgs = append(llvmArgs, w.V)
	}

	callName := "call_tmp"
	if len(cf.Results) == 0 {
		callName = ""
	}
	res := c.builder.CreateCall(cf.FnType, cf.Fn, llvmArgs, callName)
	for _, a := range args {
		c.releaseTemp(a)
	}

	rt := resultType(cf.Results)
	if rt.Kind() == VoidKind {
		return &Value{Type: TVoid}, nil
	}
	return &Value{V: res, Type: rt, Owned: true}, nil
}

// compileAddr resolves an expression to a storage address. Identifiers and
// field accesses are addressable directly; any other expression is spilled
// to a temporary slot.
func (c *Compiler) compileAddr(expr ast.Expression) (llvm.Value, Type, *token.CompileError) {
	switch e := expr.(type) {
	case *ast.Identifier:
		sym, ok := Get(c.Scopes, e.Value)
		if !ok {
			return llvm.Value{}, nil, c.errorf(e.Tok(), token.ErrUndefined, "identifier %s is not defined", e.Value)
		}
		return sym.Ptr, sym.Type, nil
	case *ast.FieldExpression:
		return c.compileFieldAddr(e)
	default:
		v, cerr := c.compileExpr(expr)
		if cerr != nil {
			return llvm.Value{}, nil, cerr
		}
		alloca := c.createEntryBlockAlloca(c.mapToLLVMType(v.Type), c.tmpName("spill"))
		c.createStore(v.V, alloca, v.Type)
		return alloca, v.Type, nil
	}
}

// compileClosureCall calls through a closure value: the environment pointer
// travels as a hidden first argument.
func (c *Compiler) compileClosureCall(ce *ast.CallExpression, sym *Symbol) (*Value, *token.CompileError) {
	ct := sym.Type.(Closure)
	args, cerr := c.compileArgs(ce.Arguments)
	if cerr != nil {
		return nil, cerr
	}
	if len(args) != len(ct.Params) {
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "wrong number of arguments: want %d, found %d", len(ct.Params), len(args))
	}

	pair := c.createLoad(sym.Ptr, sym.Type, ce.Function.Value)
	fnPtr := c.builder.CreateExtractValue(pair, 0, "closure_fn")
	envPtr := c.builder.CreateExtractValue(pair, 1, "closure_env")

	fnType := c.closureFnType(ct)
	typedFn := c.builder.CreateBitCast(fnPtr, llvm.PointerType(fnType, 0), "closure_fn_cast")

	llvmArgs := make([]llvm.Value, 0, len(args)+1)
	llvmArgs = append(llvmArgs, envPtr)
	for i, a := range args {
		w, werr := c.widenTo(ce.Tok(), a, ct.Params[i])
		if werr != nil {
			return nil, werr
		}
		llvmArgs = append(llvmArgs, w.V)
	}

	callName := "call_tmp"
	if len(ct.Results) == 0 {
		callName = ""
	}
	res := c.builder.CreateCall(fnType, typedFn, llvmArgs, callName)
	for _, a := range args {
		c.releaseTemp(a)
	}

	rt := resultType(ct.Results)
	if rt.Kind() == VoidKind {
		return &Value{Type: TVoid}, nil
	}
	return &Value{V: res, Type: rt, Owned: true}, nil
}

// closureFnType is the LLVM signature of a closure's code: the i8*
// environment record first, then the declared parameters.
func (c *Compiler) closureFnType(ct Closure) llvm.Type {
	params := make([]llvm.Type, 0, len(ct.Params)+1)
	params = append(params, llvm.PointerType(c.Context.Int8Type(), 0))
	for _, p := range ct.Params {
		params = append(params, c.mapToLLVMType(p))
	}
	var ret llvm.Type
	switch len(ct.Results) {
	case 0:
		ret = c.Context.VoidType()
	case 1:
		ret = c.mapToLLVMType(ct.Results[0])
	default:
		ret = c.mapToLLVMType(Tuple{Elems: ct.Results})
	}
	return llvm.FunctionType(ret, params, false)
}
