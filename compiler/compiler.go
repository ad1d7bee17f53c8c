package compiler

import (
	"fmt"

	"fortio.org/safecast"
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

// Symbol is one named storage location. Every variable is alloca-backed;
// reads load through Ptr, writes store through it. ReadOnly marks bindings
// that reject reassignment (loop iterators, match bindings, parameters).
type Symbol struct {
	Ptr      llvm.Value
	Type     Type
	ReadOnly bool
}

// CompiledFunc is one emitted function: concrete (possibly mangled) symbol,
// its LLVM handle, and the concrete signature calls are checked against.
type CompiledFunc struct {
	Fn      llvm.Value
	FnType  llvm.Type
	Params  []Type
	Results []Type
}

// StructDef is the layout record for one registered struct: field order is
// declaration order and fixes the LLVM aggregate layout.
type StructDef struct {
	Name       string
	Fields     []*ast.FieldDef
	FieldTypes []Type
	LLVMType   llvm.Type
}

// FieldIndex returns the positional index of a field, or -1.
func (sd *StructDef) FieldIndex(name string) int {
	for i, f := range sd.Fields {
		if f.Name.Value == name {
			return i
		}
	}
	return -1
}

// fnState is the per-function compilation state. Compiling a nested
// function (closure bodies, test bodies, specializations triggered
// mid-expression) pushes a fresh frame and restores the old one after.
type fnState struct {
	fn      llvm.Value
	name    string
	results []Type
	// cleanup lists the heap-typed allocas to release on every exit path.
	// Slots are null-seeded at entry so early returns release safely.
	cleanup []*Symbol
}

type Compiler struct {
	Scopes  []Scope[*Symbol]
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder

	// Declaration registries filled by the first pass over the program.
	Funcs    map[string]*ast.FuncStatement   // concrete free functions
	Generics map[string]*ast.FuncStatement   // generic templates, by name
	Methods  map[string]*ast.MethodStatement // by mangled Struct_method name
	Structs  map[string]*StructDef

	// FuncCache maps emitted symbol name to its compiled form. Generic
	// specializations land here under their mangled name; re-requesting an
	// existing specialization is a cache hit, not a second body.
	FuncCache map[string]*CompiledFunc

	Errors []*token.CompileError

	fnStack []fnState
	// loopDepth counts enclosing loop bodies in the function being
	// compiled; heap declarations inside a loop release the slot's prior
	// iteration reference before storing.
	loopDepth  int
	tmpCounter int
	strCounter int
}

func NewCompiler(ctx llvm.Context, moduleName string) *Compiler {
	module := ctx.NewModule(moduleName)
	builder := ctx.NewBuilder()

	return &Compiler{
		Scopes:    []Scope[*Symbol]{NewScope[*Symbol](FuncScope)},
		Context:   ctx,
		Module:    module,
		builder:   builder,
		Funcs:     make(map[string]*ast.FuncStatement),
		Generics:  make(map[string]*ast.FuncStatement),
		Methods:   make(map[string]*ast.MethodStatement),
		Structs:   make(map[string]*StructDef),
		FuncCache: make(map[string]*CompiledFunc),
		Errors:    []*token.CompileError{},
	}
}

func (c *Compiler) Dispose() {
	c.builder.Dispose()
}

func (c *Compiler) errorf(tok token.Token, kind token.ErrKind, format string, args ...any) *token.CompileError {
	return &token.CompileError{
		Kind:  kind,
		Token: tok,
		Msg:   fmt.Sprintf(format, args...),
	}
}

func (c *Compiler) tmpName(prefix string) string {
	name := fmt.Sprintf("%s_%d", prefix, c.tmpCounter)
	c.tmpCounter++
	return name
}

func (c *Compiler) curFn() *fnState {
	return &c.fnStack[len(c.fnStack)-1]
}

// complexType is the {re, im} pair of doubles complex values travel as.
func (c *Compiler) complexType() llvm.Type {
	f64 := c.Context.DoubleType()
	return llvm.StructType([]llvm.Type{f64, f64}, false)
}

// closureValueType is the {fn ptr, env ptr} pair a closure value travels as.
func (c *Compiler) closureValueType() llvm.Type {
	i8Ptr := llvm.PointerType(c.Context.Int8Type(), 0)
	return llvm.StructType([]llvm.Type{i8Ptr, i8Ptr}, false)
}

func (c *Compiler) mapToLLVMType(t Type) llvm.Type {
	switch t.Kind() {
	case IntKind, AtomKind:
		// Atoms travel as the runtime's interned identifier.
		return c.Context.Int64Type()
	case NilKind:
		// A bare nil has no payload; it only exists on its way into an
		// optional merge.
		return c.Context.Int1Type()
	case FloatKind:
		return c.Context.DoubleType()
	case ComplexKind:
		return c.complexType()
	case StrKind, MatrixKind, IntMatrixKind, ComplexMatrixKind:
		// Heap values are opaque pointers into the C runtime.
		return llvm.PointerType(c.Context.Int8Type(), 0)
	case TupleKind:
		tup := t.(Tuple)
		elems := make([]llvm.Type, len(tup.Elems))
		for i, e := range tup.Elems {
			elems[i] = c.mapToLLVMType(e)
		}
		return llvm.StructType(elems, false)
	case OptionalKind:
		opt := t.(Optional)
		return llvm.StructType([]llvm.Type{c.Context.Int1Type(), c.mapToLLVMType(opt.Elem)}, false)
	case ClosureKind:
		return c.closureValueType()
	case StructKind:
		def, ok := c.Structs[t.(Struct).Name]
		if !ok {
			panic("unregistered struct type: " + t.String())
		}
		return def.LLVMType
	default:
		panic("unknown type in mapToLLVMType: " + t.String())
	}
}

func (c *Compiler) ConstI64(v int64) llvm.Value {
	u, err := safecast.Conv[uint64](v)
	if err != nil {
		// Negative constants go through the unsigned constructor bit-exact.
		return llvm.ConstInt(c.Context.Int64Type(), uint64(v), true)
	}
	return llvm.ConstInt(c.Context.Int64Type(), u, false)
}

func (c *Compiler) ConstF64(v float64) llvm.Value {
	return llvm.ConstFloat(c.Context.DoubleType(), v)
}

// constComplex builds a {re, im} aggregate from two double values.
func (c *Compiler) constComplex(re, im llvm.Value) llvm.Value {
	agg := llvm.Undef(c.complexType())
	agg = c.builder.CreateInsertValue(agg, re, 0, "re")
	agg = c.builder.CreateInsertValue(agg, im, 1, "im")
	return agg
}

func (c *Compiler) nullPtr() llvm.Value {
	return llvm.ConstPointerNull(llvm.PointerType(c.Context.Int8Type(), 0))
}

func setInstAlignment(inst llvm.Value, t Type) {
	switch t.Kind() {
	case IntKind, FloatKind, AtomKind,
		StrKind, MatrixKind, IntMatrixKind, ComplexMatrixKind,
		ComplexKind, TupleKind, OptionalKind, ClosureKind, StructKind:
		inst.SetAlignment(8)
	case NilKind:
		inst.SetAlignment(1)
	default:
		panic("unsupported type for alignment: " + t.String())
	}
}

// createStore creates an LLVM store and sets its alignment.
func (c *Compiler) createStore(val llvm.Value, ptr llvm.Value, valType Type) llvm.Value {
	inst := c.builder.CreateStore(val, ptr)
	setInstAlignment(inst, valType)
	return inst
}

// createLoad creates an LLVM load and sets its alignment.
func (c *Compiler) createLoad(ptr llvm.Value, elemType Type, name string) llvm.Value {
	inst := c.builder.CreateLoad(c.mapToLLVMType(elemType), ptr, name)
	setInstAlignment(inst, elemType)
	return inst
}

// createEntryBlockAlloca places an alloca in the entry block of the current
// function so the slot dominates every use.
func (c *Compiler) createEntryBlockAlloca(ty llvm.Type, name string) llvm.Value {
	current := c.builder.GetInsertBlock()
	fn := current.Parent()
	entry := fn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}

	alloca := c.builder.CreateAlloca(ty, name)
	c.builder.SetInsertPointAtEnd(current)
	return alloca
}

// createHeapSlot is createEntryBlockAlloca plus a null seed emitted next to
// the alloca. Cleanup runs on every exit path, including paths that never
// reached the declaration, so the slot must never hold garbage.
func (c *Compiler) createHeapSlot(ty llvm.Type, name string, slotType Type) llvm.Value {
	current := c.builder.GetInsertBlock()
	fn := current.Parent()
	entry := fn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}

	alloca := c.builder.CreateAlloca(ty, name)
	c.createStore(c.nullPtr(), alloca, slotType)
	c.builder.SetInsertPointAtEnd(current)
	return alloca
}

// createIfElseCont emits a conditional branch and creates if/else/cont
// blocks in the current function.
func (c *Compiler) createIfElseCont(cond llvm.Value, ifName, elseName, contName string) (llvm.BasicBlock, llvm.BasicBlock, llvm.BasicBlock) {
	fn := c.builder.GetInsertBlock().Parent()
	ifBlock := c.Context.AddBasicBlock(fn, ifName)
	elseBlock := c.Context.AddBasicBlock(fn, elseName)
	contBlock := c.Context.AddBasicBlock(fn, contName)
	c.builder.CreateCondBr(cond, ifBlock, elseBlock)
	return ifBlock, elseBlock, contBlock
}

// createIfCont emits a conditional branch and creates if/cont blocks.
func (c *Compiler) createIfCont(cond llvm.Value, ifName, contName string) (llvm.BasicBlock, llvm.BasicBlock) {
	fn := c.builder.GetInsertBlock().Parent()
	ifBlock := c.Context.AddBasicBlock(fn, ifName)
	contBlock := c.Context.AddBasicBlock(fn, contName)
	c.builder.CreateCondBr(cond, ifBlock, contBlock)
	return ifBlock, contBlock
}

// condValue truthiness-tests an Int: icmp ne 0, yielding the i1 branches
// consume. Conditions must be Int-typed; callers reject everything else.
func (c *Compiler) condValue(v llvm.Value) llvm.Value {
	return c.builder.CreateICmp(llvm.IntNE, v, c.ConstI64(0), "cond")
}

// boolToInt widens a comparison's i1 back to the language's Int carrier.
func (c *Compiler) boolToInt(b llvm.Value) llvm.Value {
	return c.builder.CreateZExt(b, c.Context.Int64Type(), "booltmp")
}

func (c *Compiler) createGlobalString(name, value string, linkage llvm.Linkage) llvm.Value {
	strConst := llvm.ConstString(value, true)
	arrType := llvm.ArrayType(c.Context.Int8Type(), len(value)+1)

	global := llvm.AddGlobal(c.Module, arrType, name)
	global.SetInitializer(strConst)
	global.SetLinkage(linkage)
	global.SetUnnamedAddr(true)
	global.SetGlobalConstant(true)
	return global
}

// constCString emits a private global for a literal and returns the i8*
// pointer to its first byte.
func (c *Compiler) constCString(value string) llvm.Value {
	globalName := fmt.Sprintf("static_str_%d", c.strCounter)
	c.strCounter++
	global := c.createGlobalString(globalName, value, llvm.PrivateLinkage)
	zero := c.ConstI64(0)
	arrType := llvm.ArrayType(c.Context.Int8Type(), len(value)+1)
	return c.builder.CreateGEP(arrType, global, []llvm.Value{zero, zero}, "static_str_ptr")
}

// resolveTypeExpr maps a syntactic type reference to a semantic type.
// subst carries the active type-parameter bindings; nil outside generics.
func (c *Compiler) resolveTypeExpr(te *ast.TypeExpr, subst map[string]Type) (Type, *token.CompileError) {
	var base Type
	switch te.Name {
	case "int":
		base = TInt
	case "float":
		base = TFloat
	case "string":
		base = TStr
	case "matrix":
		base = TMatrix
	case "intmatrix":
		base = TIntMat
	case "complex":
		base = TComplex
	case "cmatrix":
		base = TCMat
	case "atom":
		base = TAtom
	case "void":
		base = TVoid
	default:
		if t, ok := subst[te.Name]; ok {
			base = t
		} else if _, ok := c.Structs[te.Name]; ok {
			base = Struct{Name: te.Name}
		} else {
			return nil, c.errorf(te.Token, token.ErrUndefined, "unknown type %s", te.Name)
		}
	}
	if te.Optional {
		if base.Kind() == VoidKind {
			return nil, c.errorf(te.Token, token.ErrInvalidOp, "void cannot be optional")
		}
		return Optional{Elem: base}, nil
	}
	return base, nil
}

// resultType collapses a signature's result list to the type one call
// expression produces: Void for none, the type itself for one, Tuple above.
func resultType(results []Type) Type {
	switch len(results) {
	case 0:
		return TVoid
	case 1:
		return results[0]
	default:
		return Tuple{Elems: results}
	}
}

// Compile lowers a closure-analyzed program to LLVM IR in three passes:
// registration of structs and signatures, function and method bodies, then
// the remaining top-level statements into an implicit main.
func (c *Compiler) Compile(program *ast.Program) {
	c.registerDecls(program)
	if len(c.Errors) > 0 {
		return
	}
	c.compileFuncBodies(program)
	c.compileTopLevel(program)
}

func (c *Compiler) registerDecls(program *ast.Program) {
	// Structs first: function signatures may reference them.
	for _, stmt := range program.Statements {
		ss, ok := stmt.(*ast.StructStatement)
		if !ok {
			continue
		}
		if _, exists := c.Structs[ss.Name.Value]; exists {
			c.Errors = append(c.Errors, c.errorf(ss.Tok(), token.ErrInvalidOp, "struct %s redeclared", ss.Name.Value))
			continue
		}
		c.Structs[ss.Name.Value] = &StructDef{Name: ss.Name.Value, Fields: ss.Fields}
	}

	// Create every named aggregate before resolving any field list so
	// struct-typed fields land on the one shared named type.
	for _, def := range c.Structs {
		def.LLVMType = c.Context.StructCreateNamed(def.Name)
	}
	for _, def := range c.Structs {
		fieldTypes := make([]Type, len(def.Fields))
		llvmFields := make([]llvm.Type, len(def.Fields))
		bad := false
		for i, f := range def.Fields {
			ft, cerr := c.resolveTypeExpr(f.Type, nil)
			if cerr != nil {
				c.Errors = append(c.Errors, cerr)
				bad = true
				continue
			}
			fieldTypes[i] = ft
			llvmFields[i] = c.mapToLLVMType(ft)
		}
		if bad {
			continue
		}
		def.FieldTypes = fieldTypes
		def.LLVMType.StructSetBody(llvmFields, false)
	}

	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.FuncStatement:
			if len(s.TypeParams) > 0 {
				if _, exists := c.Generics[s.Name.Value]; exists {
					c.Errors = append(c.Errors, c.errorf(s.Tok(), token.ErrInvalidOp, "function %s redeclared", s.Name.Value))
					continue
				}
				c.Generics[s.Name.Value] = s
				continue
			}
			if _, exists := c.Funcs[s.Name.Value]; exists {
				c.Errors = append(c.Errors, c.errorf(s.Tok(), token.ErrInvalidOp, "function %s redeclared", s.Name.Value))
				continue
			}
			c.Funcs[s.Name.Value] = s
		case *ast.MethodStatement:
			recvType, cerr := c.resolveTypeExpr(s.Receiver.Type, nil)
			if cerr != nil {
				c.Errors = append(c.Errors, cerr)
				continue
			}
			if recvType.Kind() != StructKind {
				c.Errors = append(c.Errors, c.errorf(s.Tok(), token.ErrInvalidOp, "method receiver must be a struct, found %s", recvType))
				continue
			}
			mangled := MangleMethod(recvType.(Struct).Name, s.Name.Value)
			if _, exists := c.Methods[mangled]; exists {
				c.Errors = append(c.Errors, c.errorf(s.Tok(), token.ErrInvalidOp, "method %s redeclared on %s", s.Name.Value, recvType))
				continue
			}
			c.Methods[mangled] = s
		}
	}
}

// pendingBody is a declared function awaiting body compilation. All
// signatures are declared before any body compiles so bodies can call
// forward.
type pendingBody struct {
	cf         *CompiledFunc
	name       string
	paramNames []string
	body       *ast.BlockStatement
	recvByAddr bool
}

func (c *Compiler) compileFuncBodies(program *ast.Program) {
	var pending []pendingBody
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.FuncStatement:
			if len(s.TypeParams) > 0 {
				// Generic templates compile lazily, per specialization.
				continue
			}
			if pb, ok := c.declareFuncStatement(s, s.Name.Value, nil); ok {
				pending = append(pending, pb)
			}
		case *ast.MethodStatement:
			if pb, ok := c.declareMethodStatement(s); ok {
				pending = append(pending, pb)
			}
		}
	}
	for _, pb := range pending {
		c.compileFuncBody(pb.cf, pb.name, pb.paramNames, pb.body, pb.recvByAddr)
	}
}

func (c *Compiler) compileTopLevel(program *ast.Program) {
	mainType := llvm.FunctionType(c.Context.Int32Type(), []llvm.Type{}, false)
	mainFunc := llvm.AddFunction(c.Module, "main", mainType)
	entry := c.Context.AddBasicBlock(mainFunc, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	c.fnStack = append(c.fnStack, fnState{fn: mainFunc, name: "main"})
	PushScope(&c.Scopes, FuncScope)

	for _, stmt := range program.Statements {
		switch stmt.(type) {
		case *ast.FuncStatement, *ast.MethodStatement, *ast.StructStatement:
			continue
		}
		// A top-level return ends main; nothing after it emits.
		if c.blockTerminated() {
			break
		}
		if cerr := c.compileStmt(stmt); cerr != nil {
			c.Errors = append(c.Errors, cerr)
		}
	}

	if !c.blockTerminated() {
		c.emitCleanup()
		c.builder.CreateRet(llvm.ConstInt(c.Context.Int32Type(), 0, false))
	}

	PopScope(&c.Scopes)
	c.fnStack = c.fnStack[:len(c.fnStack)-1]
}

// declareFunc emits the function declaration for a concrete signature and
// caches it under name. Multi-result functions return an LLVM struct.
func (c *Compiler) declareFunc(name string, params []Type, results []Type) *CompiledFunc {
	if cached, ok := c.FuncCache[name]; ok {
		return cached
	}

	paramTypes := make([]llvm.Type, len(params))
	for i, p := range params {
		paramTypes[i] = c.mapToLLVMType(p)
	}

	var retType llvm.Type
	switch len(results) {
	case 0:
		retType = c.Context.VoidType()
	case 1:
		retType = c.mapToLLVMType(results[0])
	default:
		retType = c.mapToLLVMType(Tuple{Elems: results})
	}

	fnType := llvm.FunctionType(retType, paramTypes, false)
	fn := llvm.AddFunction(c.Module, name, fnType)

	cf := &CompiledFunc{Fn: fn, FnType: fnType, Params: params, Results: results}
	c.FuncCache[name] = cf
	return cf
}

// declareFuncStatement resolves a function's signature and declares it
// under the given symbol name. subst carries type-parameter bindings when
// the statement is a generic template being specialized.
func (c *Compiler) declareFuncStatement(fs *ast.FuncStatement, symbolName string, subst map[string]Type) (pendingBody, bool) {
	params := make([]Type, len(fs.Params))
	for i, p := range fs.Params {
		pt, cerr := c.resolveTypeExpr(p.Type, subst)
		if cerr != nil {
			c.Errors = append(c.Errors, cerr)
			return pendingBody{}, false
		}
		params[i] = pt
	}
	results := make([]Type, 0, len(fs.ReturnTypes))
	for _, rt := range fs.ReturnTypes {
		t, cerr := c.resolveTypeExpr(rt, subst)
		if cerr != nil {
			c.Errors = append(c.Errors, cerr)
			return pendingBody{}, false
		}
		if t.Kind() == VoidKind {
			continue
		}
		results = append(results, t)
	}

	cf := c.declareFunc(symbolName, params, results)
	paramNames := make([]string, len(fs.Params))
	for i, p := range fs.Params {
		paramNames[i] = p.Name.Value
	}
	return pendingBody{cf: cf, name: symbolName, paramNames: paramNames, body: fs.Body}, true
}

// compileFunc declares and immediately compiles one concrete function.
// Generic specialization uses this path mid-expression.
func (c *Compiler) compileFunc(fs *ast.FuncStatement, symbolName string, subst map[string]Type) *CompiledFunc {
	pb, ok := c.declareFuncStatement(fs, symbolName, subst)
	if !ok {
		return nil
	}
	c.compileFuncBody(pb.cf, pb.name, pb.paramNames, pb.body, false)
	return pb.cf
}

func (c *Compiler) declareMethodStatement(ms *ast.MethodStatement) (pendingBody, bool) {
	recvType, cerr := c.resolveTypeExpr(ms.Receiver.Type, nil)
	if cerr != nil {
		// Already reported during registration.
		return pendingBody{}, false
	}
	structName := recvType.(Struct).Name
	mangled := MangleMethod(structName, ms.Name.Value)

	// Receiver travels by address as a hidden first parameter so field
	// stores through the receiver mutate the caller's value.
	params := make([]Type, 0, len(ms.Params)+1)
	params = append(params, recvType)
	paramNames := make([]string, 0, len(ms.Params)+1)
	paramNames = append(paramNames, ms.Receiver.Name.Value)
	for _, p := range ms.Params {
		pt, perr := c.resolveTypeExpr(p.Type, nil)
		if perr != nil {
			c.Errors = append(c.Errors, perr)
			return pendingBody{}, false
		}
		params = append(params, pt)
		paramNames = append(paramNames, p.Name.Value)
	}
	results := make([]Type, 0, len(ms.ReturnTypes))
	for _, rt := range ms.ReturnTypes {
		t, rerr := c.resolveTypeExpr(rt, nil)
		if rerr != nil {
			c.Errors = append(c.Errors, rerr)
			return pendingBody{}, false
		}
		if t.Kind() == VoidKind {
			continue
		}
		results = append(results, t)
	}

	// The receiver parameter is a pointer at the LLVM level.
	paramTypes := make([]llvm.Type, len(params))
	paramTypes[0] = llvm.PointerType(c.mapToLLVMType(recvType), 0)
	for i := 1; i < len(params); i++ {
		paramTypes[i] = c.mapToLLVMType(params[i])
	}
	var retType llvm.Type
	switch len(results) {
	case 0:
		retType = c.Context.VoidType()
	case 1:
		retType = c.mapToLLVMType(results[0])
	default:
		retType = c.mapToLLVMType(Tuple{Elems: results})
	}
	fnType := llvm.FunctionType(retType, paramTypes, false)
	fn := llvm.AddFunction(c.Module, mangled, fnType)
	cf := &CompiledFunc{Fn: fn, FnType: fnType, Params: params, Results: results}
	c.FuncCache[mangled] = cf

	return pendingBody{cf: cf, name: mangled, paramNames: paramNames, body: ms.Body, recvByAddr: true}, true
}

// compileFuncBody emits the body of an already-declared function. The
// builder's insert point is saved and restored so bodies can be compiled
// mid-expression (generic specialization, closures).
func (c *Compiler) compileFuncBody(cf *CompiledFunc, name string, paramNames []string, body *ast.BlockStatement, recvByAddr bool) {
	savedBlock := c.builder.GetInsertBlock()
	savedScopes := c.Scopes
	savedLoopDepth := c.loopDepth
	c.loopDepth = 0

	entry := c.Context.AddBasicBlock(cf.Fn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	c.fnStack = append(c.fnStack, fnState{fn: cf.Fn, name: name, results: cf.Results})
	c.Scopes = []Scope[*Symbol]{NewScope[*Symbol](FuncScope)}

	for i, pname := range paramNames {
		pt := cf.Params[i]
		if recvByAddr && i == 0 {
			// The receiver argument already is the storage address.
			Put(c.Scopes, pname, &Symbol{Ptr: cf.Fn.Param(0), Type: pt, ReadOnly: false})
			continue
		}
		alloca := c.createEntryBlockAlloca(c.mapToLLVMType(pt), pname)
		c.createStore(cf.Fn.Param(i), alloca, pt)
		// Callee-held heap parameters are retained for the duration of the
		// call and released with the rest of the frame.
		sym := &Symbol{Ptr: alloca, Type: pt, ReadOnly: true}
		if IsHeap(pt) {
			c.emitRetain(cf.Fn.Param(i))
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

	// Fallthrough off the end of a body: void functions return normally,
	// value-returning ones trap. A well-typed body returns on every path.
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

// emitPanic calls the runtime abort helper and marks the block unreachable.
func (c *Compiler) emitPanic(msg string) {
	fnType, fn := c.GetCFunc(PANIC)
	c.builder.CreateCall(fnType, fn, []llvm.Value{c.constCString(msg)}, "")
	c.builder.CreateUnreachable()
}

// GenerateIR renders the module. Nothing is emitted for a program that
// produced compile errors.
func (c *Compiler) GenerateIR() string {
	if len(c.Errors) > 0 {
		return ""
	}
	return c.Module.String()
}
