package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

// capture is one environment slot: the outer symbol it snapshots and its
// position in the record.
type capture struct {
	name string
	typ  Type
	slot int
}

// compileClosureLiteral lowers a closure to a (code, environment) pair.
// The capture set arrives precomputed on the literal; codegen fills one
// 8-byte environment slot per captured name, once, at creation. The body
// reads captures through the slots, so it sees creation-time snapshots and
// its writes land in the environment, not the enclosing frame.
func (c *Compiler) compileClosureLiteral(cl *ast.ClosureLiteral) (*Value, *token.CompileError) {
	params := make([]Type, len(cl.Params))
	paramNames := make([]string, len(cl.Params))
	for i, p := range cl.Params {
		pt, cerr := c.resolveTypeExpr(p.Type, nil)
		if cerr != nil {
			return nil, cerr
		}
		params[i] = pt
		paramNames[i] = p.Name.Value
	}
	results := make([]Type, 0, len(cl.ReturnTypes))
	for _, rt := range cl.ReturnTypes {
		t, cerr := c.resolveTypeExpr(rt, nil)
		if cerr != nil {
			return nil, cerr
		}
		if t.Kind() == VoidKind {
			continue
		}
		results = append(results, t)
	}
	ct := Closure{Params: params, Results: results}

	captures := make([]capture, len(cl.CapturedVars))
	for i, name := range cl.CapturedVars {
		sym, ok := Get(c.Scopes, name)
		if !ok {
			return nil, c.errorf(cl.Tok(), token.ErrUndefined, "captured variable %s is not defined", name)
		}
		captures[i] = capture{name: name, typ: sym.Type, slot: i}
	}

	env := c.buildEnv(captures)

	fnName := c.tmpName("closure")
	fnType := c.closureFnType(ct)
	fn := llvm.AddFunction(c.Module, fnName, fnType)
	fn.SetLinkage(llvm.PrivateLinkage)

	cf := &CompiledFunc{Fn: fn, FnType: fnType, Params: params, Results: results}
	c.compileEnvBody(cf, fnName, paramNames, captures, cl.Body)

	fnPtr := c.builder.CreateBitCast(fn, llvm.PointerType(c.Context.Int8Type(), 0), "closure_fn_ptr")
	pair := llvm.Undef(c.closureValueType())
	pair = c.builder.CreateInsertValue(pair, fnPtr, 0, "closure_pair")
	pair = c.builder.CreateInsertValue(pair, env, 1, "closure_pair")
	return &Value{V: pair, Type: ct}, nil
}

// buildEnv allocates the environment record and fills its slots from the
// current scope. Heap captures gain a count the environment holds.
func (c *Compiler) buildEnv(captures []capture) llvm.Value {
	fnType, fn := c.GetCFunc(ENV_NEW)
	env := c.builder.CreateCall(fnType, fn, []llvm.Value{c.ConstI64(int64(len(captures)))}, "env_tmp")

	for _, cap := range captures {
		sym, _ := Get(c.Scopes, cap.name)
		v := c.createLoad(sym.Ptr, sym.Type, cap.name)
		if IsHeap(sym.Type) {
			c.emitRetain(v)
		}
		slot := c.envSlotPtr(env, cap.slot, cap.typ, cap.name)
		c.createStore(v, slot, sym.Type)
	}
	return env
}

// envSlotPtr addresses one 8-byte environment slot as a pointer to the
// capture's carrier type.
func (c *Compiler) envSlotPtr(env llvm.Value, slot int, t Type, name string) llvm.Value {
	i8 := c.Context.Int8Type()
	raw := c.builder.CreateGEP(i8, env, []llvm.Value{c.ConstI64(int64(slot) * 8)}, name+"_slot_raw")
	return c.builder.CreateBitCast(raw, llvm.PointerType(c.mapToLLVMType(t), 0), name+"_slot")
}

// compileEnvBody compiles a function whose first parameter is an
// environment record: captures bind through their slots, parameters get
// their own allocas, and the rest follows ordinary body compilation.
func (c *Compiler) compileEnvBody(cf *CompiledFunc, name string, paramNames []string, captures []capture, body *ast.BlockStatement) {
	savedBlock := c.builder.GetInsertBlock()
	savedScopes := c.Scopes
	savedLoopDepth := c.loopDepth
	c.loopDepth = 0

	entry := c.Context.AddBasicBlock(cf.Fn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	c.fnStack = append(c.fnStack, fnState{fn: cf.Fn, name: name, results: cf.Results})
	c.Scopes = []Scope[*Symbol]{NewScope[*Symbol](FuncScope)}

	envParam := cf.Fn.Param(0)
	for _, cap := range captures {
		slot := c.envSlotPtr(envParam, cap.slot, cap.typ, cap.name)
		Put(c.Scopes, cap.name, &Symbol{Ptr: slot, Type: cap.typ})
	}

	for i, pname := range paramNames {
		pt := cf.Params[i]
		alloca := c.createEntryBlockAlloca(c.mapToLLVMType(pt), pname)
		c.createStore(cf.Fn.Param(i+1), alloca, pt)
		sym := &Symbol{Ptr: alloca, Type: pt, ReadOnly: true}
		if IsHeap(pt) {
			c.emitRetain(cf.Fn.Param(i + 1))
			c.addCleanup(sym)
		}
		Put(c.Scopes, pname, sym)
	}

	for _, stmt := range body.Statements {
		if c.blockTerminated() {
			break
		}
		if cerr := c.compileStmt(stmt); cerr != nil {
			c.Errors = append(c.Errors, cerr)
		}
	}

	if !c.blockTerminated() {
		if len(cf.Results) == 0 {
			c.emitCleanup()
			c.builder.CreateRetVoid()
		} else {
			c.emitPanic("missing return in " + name)
		}
	}

	c.fnStack = c.fnStack[:len(c.fnStack)-1]
	c.Scopes = savedScopes
	c.loopDepth = savedLoopDepth
	if !savedBlock.IsNil() {
		c.builder.SetInsertPointAtEnd(savedBlock)
	}
}

// compileTestStatement registers a named test with the runtime harness.
// The body compiles as a capture-carrying nullary function; the harness
// invokes it with its environment after main wiring completes.
func (c *Compiler) compileTestStatement(ts *ast.TestStatement) *token.CompileError {
	captures := make([]capture, len(ts.CapturedVars))
	for i, name := range ts.CapturedVars {
		sym, ok := Get(c.Scopes, name)
		if !ok {
			return c.errorf(ts.Tok(), token.ErrUndefined, "captured variable %s is not defined", name)
		}
		captures[i] = capture{name: name, typ: sym.Type, slot: i}
	}

	env := c.buildEnv(captures)

	fnName := c.tmpName("test_body")
	i8Ptr := llvm.PointerType(c.Context.Int8Type(), 0)
	fnType := llvm.FunctionType(c.Context.VoidType(), []llvm.Type{i8Ptr}, false)
	fn := llvm.AddFunction(c.Module, fnName, fnType)
	fn.SetLinkage(llvm.PrivateLinkage)

	cf := &CompiledFunc{Fn: fn, FnType: fnType}
	c.compileEnvBody(cf, fnName, nil, captures, ts.Body)

	regType, reg := c.GetCFunc(TEST_REGISTER)
	fnPtr := c.builder.CreateBitCast(fn, i8Ptr, "test_fn_ptr")
	c.builder.CreateCall(regType, reg, []llvm.Value{c.constCString(ts.Name), fnPtr, env}, "")
	return nil
}
