package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

func (c *Compiler) compileStmt(stmt ast.Statement) *token.CompileError {
	switch s := stmt.(type) {
	case *ast.VarStatement:
		return c.compileVarStatement(s)
	case *ast.AssignStatement:
		return c.compileAssignStatement(s)
	case *ast.BlockStatement:
		return c.compileBlock(s)
	case *ast.IfStatement:
		return c.compileIfStatement(s)
	case *ast.WhileStatement:
		return c.compileWhileStatement(s)
	case *ast.ForStatement:
		return c.compileForStatement(s)
	case *ast.ReturnStatement:
		return c.compileReturnStatement(s)
	case *ast.ExpressionStatement:
		val, cerr := c.compileExpr(s.Expression)
		if cerr != nil {
			return cerr
		}
		c.releaseDiscarded(val)
		return nil
	case *ast.TestStatement:
		return c.compileTestStatement(s)
	case *ast.FuncStatement, *ast.MethodStatement, *ast.StructStatement:
		return c.errorf(stmt.Tok(), token.ErrInvalidOp, "declarations are only valid at the top level")
	default:
		return c.errorf(stmt.Tok(), token.ErrInvalidOp, "unsupported statement %T", stmt)
	}
}

// releaseDiscarded drops an expression-statement result. Owned tuples get
// their heap elements released individually.
func (c *Compiler) releaseDiscarded(val *Value) {
	if val == nil || !val.Owned {
		return
	}
	if tup, ok := val.Type.(Tuple); ok {
		for i, et := range tup.Elems {
			if IsHeap(et) {
				elem := c.builder.CreateExtractValue(val.V, i, "discard")
				c.emitRelease(elem)
			}
		}
		return
	}
	c.releaseTemp(val)
}

func (c *Compiler) checkRedeclare(ident *ast.Identifier) *token.CompileError {
	if _, exists := c.Scopes[len(c.Scopes)-1].Elems[ident.Value]; exists {
		return c.errorf(ident.Tok(), token.ErrInvalidOp, "%s redeclared in this scope", ident.Value)
	}
	return nil
}

func (c *Compiler) compileVarStatement(vs *ast.VarStatement) *token.CompileError {
	if vs.Destructure {
		return c.compileDestructure(vs)
	}
	if len(vs.Names) != len(vs.Values) {
		return c.errorf(vs.Tok(), token.ErrTypeMismatch, "declaration of %d names from %d values", len(vs.Names), len(vs.Values))
	}
	for i, name := range vs.Names {
		if cerr := c.checkRedeclare(name); cerr != nil {
			return cerr
		}
		val, cerr := c.compileExpr(vs.Values[i])
		if cerr != nil {
			return cerr
		}
		if val == nil || val.Type.Kind() == VoidKind {
			return c.errorf(vs.Values[i].Tok(), token.ErrMissingValue, "expression produces no value to bind to %s", name.Value)
		}
		if val.Type.Kind() == NilKind {
			return c.errorf(vs.Values[i].Tok(), token.ErrInvalidOp, "cannot infer a type for %s from nil", name.Value)
		}
		c.declareVar(name.Value, val, false)
	}
	return nil
}

// compileDestructure unpacks one tuple-valued expression into several fresh
// names. The name count must equal the tuple arity.
func (c *Compiler) compileDestructure(vs *ast.VarStatement) *token.CompileError {
	if len(vs.Values) != 1 {
		return c.errorf(vs.Tok(), token.ErrInvalidOp, "destructuring takes exactly one expression, found %d", len(vs.Values))
	}
	val, cerr := c.compileExpr(vs.Values[0])
	if cerr != nil {
		return cerr
	}
	tup, ok := val.Type.(Tuple)
	if !ok {
		return c.errorf(vs.Tok(), token.ErrTypeMismatch, "cannot destructure %s: not a tuple", val.Type)
	}
	if len(vs.Names) != len(tup.Elems) {
		return c.errorf(vs.Tok(), token.ErrTypeMismatch, "destructuring %d names from a %d-element tuple", len(vs.Names), len(tup.Elems))
	}
	for i, name := range vs.Names {
		if cerr := c.checkRedeclare(name); cerr != nil {
			return cerr
		}
		elem := c.builder.CreateExtractValue(val.V, i, name.Value)
		c.declareVar(name.Value, &Value{V: elem, Type: tup.Elems[i], Owned: val.Owned}, false)
	}
	return nil
}

func (c *Compiler) compileAssignStatement(as *ast.AssignStatement) *token.CompileError {
	switch target := as.Target.(type) {
	case *ast.Identifier:
		sym, ok := Get(c.Scopes, target.Value)
		if !ok {
			return c.errorf(target.Tok(), token.ErrUndefined, "identifier %s is not defined", target.Value)
		}
		val, cerr := c.compileExpr(as.Value)
		if cerr != nil {
			return cerr
		}
		return c.assignVar(as.Tok(), sym, val)
	case *ast.FieldExpression:
		return c.compileFieldAssign(as, target)
	case *ast.IndexExpression:
		return c.compileIndexAssign(as, target)
	default:
		return c.errorf(as.Tok(), token.ErrInvalidOp, "cannot assign to %s", target.String())
	}
}

func (c *Compiler) compileIndexAssign(as *ast.AssignStatement, ix *ast.IndexExpression) *token.CompileError {
	left, cerr := c.compileExpr(ix.Left)
	if cerr != nil {
		return cerr
	}

	var fname string
	var elem Type
	switch left.Type.Kind() {
	case MatrixKind:
		fname, elem = MAT_SET, TFloat
	case IntMatrixKind:
		fname, elem = IMAT_SET, TInt
	default:
		return c.errorf(ix.Tok(), token.ErrInvalidOp, "type %s is not indexable", left.Type)
	}

	row, col, cerr := c.matIndices(ix)
	if cerr != nil {
		return cerr
	}
	val, cerr := c.compileExpr(as.Value)
	if cerr != nil {
		return cerr
	}
	w, cerr := c.widenTo(as.Tok(), val, elem)
	if cerr != nil {
		return cerr
	}

	fnType, fn := c.GetCFunc(fname)
	c.builder.CreateCall(fnType, fn, []llvm.Value{left.V, row, col, w.V}, "")
	c.releaseTemp(left)
	return nil
}

func (c *Compiler) compileBlock(bs *ast.BlockStatement) *token.CompileError {
	PushScope(&c.Scopes, BlockScope)
	defer PopScope(&c.Scopes)
	for _, stmt := range bs.Statements {
		// A return earlier in the block ends it; nothing after it emits.
		if c.blockTerminated() {
			break
		}
		if cerr := c.compileStmt(stmt); cerr != nil {
			return cerr
		}
	}
	return nil
}

// blockTerminated reports whether the current block already ends in a
// terminator instruction.
func (c *Compiler) blockTerminated() bool {
	last := c.builder.GetInsertBlock().LastInstruction()
	if last.IsNil() {
		return false
	}
	switch last.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.IndirectBr, llvm.Unreachable:
		return true
	}
	return false
}

// brIfOpen branches to dest unless the current block already terminated
// (a return inside the branch ends it first).
func (c *Compiler) brIfOpen(dest llvm.BasicBlock) {
	if !c.blockTerminated() {
		c.builder.CreateBr(dest)
	}
}

func (c *Compiler) compileCond(expr ast.Expression) (llvm.Value, *token.CompileError) {
	cond, cerr := c.compileExpr(expr)
	if cerr != nil {
		return llvm.Value{}, cerr
	}
	if cond.Type.Kind() != IntKind {
		return llvm.Value{}, c.errorf(expr.Tok(), token.ErrTypeMismatch, "condition must be Int, found %s", cond.Type)
	}
	return c.condValue(cond.V), nil
}

func (c *Compiler) compileIfStatement(is *ast.IfStatement) *token.CompileError {
	cond, cerr := c.compileCond(is.Cond)
	if cerr != nil {
		return cerr
	}

	if is.Else == nil {
		thenBlock, contBlock := c.createIfCont(cond, "if_then", "if_cont")
		c.builder.SetInsertPointAtEnd(thenBlock)
		if cerr := c.compileBlock(is.Then); cerr != nil {
			return cerr
		}
		c.brIfOpen(contBlock)
		c.builder.SetInsertPointAtEnd(contBlock)
		return nil
	}

	thenBlock, elseBlock, contBlock := c.createIfElseCont(cond, "if_then", "if_else", "if_cont")

	c.builder.SetInsertPointAtEnd(thenBlock)
	if cerr := c.compileBlock(is.Then); cerr != nil {
		return cerr
	}
	c.brIfOpen(contBlock)

	c.builder.SetInsertPointAtEnd(elseBlock)
	if cerr := c.compileStmt(is.Else); cerr != nil {
		return cerr
	}
	c.brIfOpen(contBlock)

	c.builder.SetInsertPointAtEnd(contBlock)
	return nil
}

func (c *Compiler) compileWhileStatement(ws *ast.WhileStatement) *token.CompileError {
	fn := c.builder.GetInsertBlock().Parent()
	condBlock := c.Context.AddBasicBlock(fn, "while_cond")
	bodyBlock := c.Context.AddBasicBlock(fn, "while_body")
	endBlock := c.Context.AddBasicBlock(fn, "while_end")

	c.builder.CreateBr(condBlock)

	c.builder.SetInsertPointAtEnd(condBlock)
	cond, cerr := c.compileCond(ws.Cond)
	if cerr != nil {
		return cerr
	}
	c.builder.CreateCondBr(cond, bodyBlock, endBlock)

	c.builder.SetInsertPointAtEnd(bodyBlock)
	c.loopDepth++
	if cerr := c.compileBlock(ws.Body); cerr != nil {
		c.loopDepth--
		return cerr
	}
	c.loopDepth--
	c.brIfOpen(condBlock)

	c.builder.SetInsertPointAtEnd(endBlock)
	return nil
}

// compileForStatement lowers `for i in start..stop` (optionally ..step).
// The loop runs while the iterator has not passed stop in the direction of
// the step; the iterator binding is read-only inside the body.
func (c *Compiler) compileForStatement(fs *ast.ForStatement) *token.CompileError {
	intOperand := func(e ast.Expression) (llvm.Value, *token.CompileError) {
		v, cerr := c.compileExpr(e)
		if cerr != nil {
			return llvm.Value{}, cerr
		}
		if v.Type.Kind() != IntKind {
			return llvm.Value{}, c.errorf(e.Tok(), token.ErrTypeMismatch, "range bound must be Int, found %s", v.Type)
		}
		return v.V, nil
	}

	start, cerr := intOperand(fs.Range.Start)
	if cerr != nil {
		return cerr
	}
	stop, cerr := intOperand(fs.Range.Stop)
	if cerr != nil {
		return cerr
	}
	step := c.ConstI64(1)
	if fs.Range.Step != nil {
		if step, cerr = intOperand(fs.Range.Step); cerr != nil {
			return cerr
		}
	}

	iterPtr := c.createEntryBlockAlloca(c.Context.Int64Type(), fs.Iter.Value)
	c.createStore(start, iterPtr, TInt)

	fn := c.builder.GetInsertBlock().Parent()
	condBlock := c.Context.AddBasicBlock(fn, "for_cond")
	bodyBlock := c.Context.AddBasicBlock(fn, "for_body")
	endBlock := c.Context.AddBasicBlock(fn, "for_end")

	c.builder.CreateBr(condBlock)

	// A negative step counts down, so the continue test flips with the
	// step's sign.
	c.builder.SetInsertPointAtEnd(condBlock)
	iter := c.createLoad(iterPtr, TInt, fs.Iter.Value)
	upCond := c.builder.CreateICmp(llvm.IntSLT, iter, stop, "for_up")
	downCond := c.builder.CreateICmp(llvm.IntSGT, iter, stop, "for_down")
	stepPos := c.builder.CreateICmp(llvm.IntSGT, step, c.ConstI64(0), "for_step_pos")
	cond := c.builder.CreateSelect(stepPos, upCond, downCond, "for_cond")
	c.builder.CreateCondBr(cond, bodyBlock, endBlock)

	c.builder.SetInsertPointAtEnd(bodyBlock)
	PushScope(&c.Scopes, BlockScope)
	Put(c.Scopes, fs.Iter.Value, &Symbol{Ptr: iterPtr, Type: TInt, ReadOnly: true})
	c.loopDepth++
	for _, stmt := range fs.Body.Statements {
		if c.blockTerminated() {
			break
		}
		if cerr := c.compileStmt(stmt); cerr != nil {
			c.loopDepth--
			PopScope(&c.Scopes)
			return cerr
		}
	}
	c.loopDepth--
	PopScope(&c.Scopes)

	if !c.blockTerminated() {
		next := c.builder.CreateAdd(c.createLoad(iterPtr, TInt, fs.Iter.Value), step, "for_next")
		c.createStore(next, iterPtr, TInt)
		c.builder.CreateBr(condBlock)
	}

	c.builder.SetInsertPointAtEnd(endBlock)
	return nil
}

func (c *Compiler) compileReturnStatement(rs *ast.ReturnStatement) *token.CompileError {
	f := c.curFn()

	if f.name == "main" {
		if len(rs.Values) != 0 {
			return c.errorf(rs.Tok(), token.ErrInvalidOp, "top-level return takes no values")
		}
		c.emitCleanup()
		c.builder.CreateRet(llvm.ConstInt(c.Context.Int32Type(), 0, false))
		return nil
	}

	if len(rs.Values) != len(f.results) {
		return c.errorf(rs.Tok(), token.ErrTypeMismatch, "returning %d values from a function with %d results", len(rs.Values), len(f.results))
	}

	vals := make([]*Value, len(rs.Values))
	for i, e := range rs.Values {
		v, cerr := c.compileExpr(e)
		if cerr != nil {
			return cerr
		}
		w, cerr := c.widenTo(rs.Tok(), v, f.results[i])
		if cerr != nil {
			return cerr
		}
		w.Owned = v.Owned
		vals[i] = w
	}

	// The returned reference must survive this frame's cleanup: borrowed
	// heap results gain a count that transfers to the caller.
	for _, v := range vals {
		if IsHeap(v.Type) && !v.Owned {
			c.emitRetain(v.V)
		}
	}
	c.emitCleanup()

	switch len(vals) {
	case 0:
		c.builder.CreateRetVoid()
	case 1:
		c.builder.CreateRet(vals[0].V)
	default:
		agg := llvm.Undef(c.mapToLLVMType(Tuple{Elems: f.results}))
		for i, v := range vals {
			agg = c.builder.CreateInsertValue(agg, v.V, i, "ret_tmp")
		}
		c.builder.CreateRet(agg)
	}
	return nil
}
