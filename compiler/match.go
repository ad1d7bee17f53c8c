package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

// armResult is one compiled arm body waiting for the merge: its value and
// the block the body ended in.
type armResult struct {
	val *Value
	end llvm.BasicBlock
}

// compileMatchExpr lowers a match to an arm cascade: each arm tests its
// patterns, runs its guard, and on success computes its body; a failed test
// falls through to the next arm. Arms check in source order and the first
// match wins, so an arm behind an unguarded wildcard never runs. A
// scrutinee no arm accepts aborts through the runtime panic.
func (c *Compiler) compileMatchExpr(me *ast.MatchExpression) (*Value, *token.CompileError) {
	scrut, cerr := c.compileExpr(me.Scrutinee)
	if cerr != nil {
		return nil, cerr
	}
	if scrut.Type.Kind() == VoidKind || scrut.Type.Kind() == NilKind {
		return nil, c.errorf(me.Tok(), token.ErrInvalidOp, "cannot match on %s", scrut.Type)
	}
	if len(me.Arms) == 0 {
		return nil, c.errorf(me.Tok(), token.ErrInvalidOp, "match needs at least one arm")
	}

	fn := c.builder.GetInsertBlock().Parent()
	contBlock := c.Context.AddBasicBlock(fn, "match_cont")

	var results []armResult
	for i, arm := range me.Arms {
		blockName := fmt.Sprintf("match_arm_%d", i+1)
		if i == len(me.Arms)-1 {
			blockName = "match_nomatch"
		}
		nextBlock := c.Context.AddBasicBlock(fn, blockName)

		res, cerr := c.compileMatchArm(me.Tok(), scrut, arm, nextBlock)
		if cerr != nil {
			return nil, cerr
		}
		results = append(results, res)
		c.builder.SetInsertPointAtEnd(nextBlock)
	}

	// No arm matched.
	c.emitPanic("match: no matching arm")

	// Fold the arm types to the merge type, then widen and claim each arm
	// in its own end block before joining.
	merged := results[0].val.Type
	for _, r := range results[1:] {
		m, _, _, err := PromoteMerge(merged, r.val.Type)
		if err != nil {
			return nil, c.errorf(me.Tok(), token.ErrTypeMismatch, "%s", err.Error())
		}
		merged = m
	}

	incomingVals := make([]llvm.Value, len(results))
	incomingBlocks := make([]llvm.BasicBlock, len(results))
	for i, r := range results {
		c.builder.SetInsertPointAtEnd(r.end)
		// Re-derive this arm's cast against the folded type; arms the
		// fold only reaches through optional wrapping carry no cast.
		cast := CastNone
		if _, ca, _, err := PromoteMerge(r.val.Type, merged); err == nil {
			cast = ca
		}
		claimed, cerr := c.finishMergeArm(me.Tok(), r.val, cast, merged)
		if cerr != nil {
			return nil, cerr
		}
		c.builder.CreateBr(contBlock)
		incomingVals[i] = claimed.V
		incomingBlocks[i] = r.end
	}

	c.builder.SetInsertPointAtEnd(contBlock)
	phi := c.builder.CreatePHI(c.mapToLLVMType(merged), "match_tmp")
	phi.AddIncoming(incomingVals, incomingBlocks)
	c.releaseTemp(scrut)
	return &Value{V: phi, Type: merged, Owned: IsHeap(merged)}, nil
}

// compileMatchArm emits one arm's tests, guard and body. On failure control
// transfers to nextBlock; on success the body runs and the arm's end block
// is left unterminated for the caller's merge.
func (c *Compiler) compileMatchArm(tok token.Token, scrut *Value, arm *ast.MatchArm, nextBlock llvm.BasicBlock) (armResult, *token.CompileError) {
	fn := c.builder.GetInsertBlock().Parent()
	bodyBlock := c.Context.AddBasicBlock(fn, "arm_body")

	PushScope(&c.Scopes, BlockScope)
	defer PopScope(&c.Scopes)

	if cerr := c.compileArmPatterns(scrut, arm.Patterns, bodyBlock, nextBlock); cerr != nil {
		return armResult{}, cerr
	}

	c.builder.SetInsertPointAtEnd(bodyBlock)
	if arm.Guard != nil {
		guard, cerr := c.compileCond(arm.Guard)
		if cerr != nil {
			return armResult{}, cerr
		}
		guardOk := c.Context.AddBasicBlock(fn, "arm_guard_ok")
		c.builder.CreateCondBr(guard, guardOk, nextBlock)
		c.builder.SetInsertPointAtEnd(guardOk)
	}

	val, cerr := c.compileExpr(arm.Body)
	if cerr != nil {
		return armResult{}, cerr
	}
	if val == nil || val.Type.Kind() == VoidKind {
		return armResult{}, c.errorf(tok, token.ErrMissingValue, "match arm produced no value")
	}
	return armResult{val: val, end: c.builder.GetInsertBlock()}, nil
}

// compileArmPatterns wires the or-pattern alternatives: any passing test
// enters the body. A binding pattern must be an arm's only pattern since it
// introduces a name the body reads.
func (c *Compiler) compileArmPatterns(scrut *Value, patterns []ast.Pattern, bodyBlock, nextBlock llvm.BasicBlock) *token.CompileError {
	if len(patterns) == 0 {
		return c.errorf(token.Token{}, token.ErrInvalidOp, "match arm has no pattern")
	}

	for _, p := range patterns {
		if bp, ok := p.(*ast.BindingPattern); ok {
			if len(patterns) > 1 {
				return c.errorf(bp.Tok(), token.ErrInvalidOp, "a binding pattern cannot have alternatives")
			}
			// The binding borrows the scrutinee; the match itself still
			// owns (and releases) the original reference.
			c.declareVar(bp.Name.Value, &Value{V: scrut.V, Type: scrut.Type}, true)
			c.builder.CreateBr(bodyBlock)
			return nil
		}
	}

	fn := c.builder.GetInsertBlock().Parent()
	for i, p := range patterns {
		last := i == len(patterns)-1
		switch pat := p.(type) {
		case *ast.WildcardPattern:
			c.builder.CreateBr(bodyBlock)
			return nil
		case *ast.LiteralPattern:
			cond, cerr := c.compilePatternTest(scrut, pat)
			if cerr != nil {
				return cerr
			}
			if last {
				c.builder.CreateCondBr(cond, bodyBlock, nextBlock)
			} else {
				alt := c.Context.AddBasicBlock(fn, "arm_alt")
				c.builder.CreateCondBr(cond, bodyBlock, alt)
				c.builder.SetInsertPointAtEnd(alt)
			}
		default:
			return c.errorf(p.Tok(), token.ErrInvalidOp, "unsupported pattern %T", p)
		}
	}
	return nil
}

// compilePatternTest compares the scrutinee against one literal pattern and
// yields the i1 match condition.
func (c *Compiler) compilePatternTest(scrut *Value, pat *ast.LiteralPattern) (llvm.Value, *token.CompileError) {
	lit, cerr := c.compileExpr(pat.Value)
	if cerr != nil {
		return llvm.Value{}, cerr
	}

	common, castL, castR, err := Promote(token.SYM_EQL, scrut.Type, lit.Type)
	if err != nil {
		return llvm.Value{}, c.errorf(pat.Tok(), token.ErrTypeMismatch, "pattern type %s does not match scrutinee type %s", lit.Type, scrut.Type)
	}
	lv := c.applyCast(scrut, castL)
	rv := c.applyCast(lit, castR)

	eq, ok := binOps[opKey{Operator: token.SYM_EQL, Operand: common.Kind()}]
	if !ok {
		return llvm.Value{}, c.errorf(pat.Tok(), token.ErrInvalidOp, "cannot match against %s", common)
	}
	res := eq(c, lv.V, rv.V)
	c.releaseTemp(lit)
	return c.condValue(res.V), nil
}
