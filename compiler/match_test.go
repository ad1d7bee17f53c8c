package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brix-lang/brix/token"
)

func TestMatchLiteralArms(t *testing.T) {
	m := match(id("x"),
		arm(intLit(10), litPat(intLit(1))),
		arm(intLit(20), litPat(intLit(2))),
		arm(intLit(0), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(2)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "arm_body")
	require.Contains(t, ir, "match_cont")
	require.Contains(t, ir, "phi i64")
	require.Contains(t, ir, "icmp eq i64")
}

func TestMatchWithoutWildcardPanics(t *testing.T) {
	m := match(id("x"),
		arm(intLit(10), litPat(intLit(1))),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(5)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "match_nomatch")
	require.Contains(t, ir, "@brix_panic")
	require.Contains(t, ir, "unreachable")
}

func TestMatchOrPattern(t *testing.T) {
	m := match(id("x"),
		arm(intLit(1), litPat(intLit(1)), litPat(intLit(2)), litPat(intLit(3))),
		arm(intLit(0), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(2)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	// Alternatives chain through fallthrough blocks into one body.
	require.Contains(t, ir, "arm_alt")
	require.Equal(t, 3, strings.Count(ir, "icmp eq i64"))
}

func TestMatchGuard(t *testing.T) {
	m := match(id("x"),
		guardedArm(id("n"), infix(token.SYM_GTR, id("n"), intLit(0)), bindPat("n")),
		arm(intLit(0), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(5)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "icmp sgt i64")
	// A failing guard falls through to the next arm's test, not the body.
	require.Contains(t, ir, "label %arm_guard_ok, label %match_arm_1")
}

func TestMatchBindingBorrowsScrutinee(t *testing.T) {
	m := match(id("s"),
		arm(call("len", id("v")), bindPat("v")),
	)
	ir, errs := compileProgram(t,
		varDecl("s", strLit("hi")),
		varDecl("n", m),
	)
	require.Empty(t, errs)
	// The binding is a view of the scrutinee, not a second count, so
	// exactly one release pairs with the literal's allocation.
	require.Contains(t, ir, "@brix_str_len")
	require.Equal(t,
		strings.Count(ir, "call ptr @brix_str_new"),
		strings.Count(ir, "call void @brix_release")-strings.Count(ir, "call void @brix_retain"))
}

func TestMatchArmsMerge(t *testing.T) {
	m := match(id("x"),
		arm(id("n"), litPat(intLit(0))),
		arm(floatLit(2.5), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(0)),
		varDecl("n", intLit(1)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	// Int and Float arms merge as Float.
	require.Contains(t, ir, "phi double")
	require.Contains(t, ir, "sitofp i64")
}

func TestMatchArmsMergeToString(t *testing.T) {
	m := match(id("x"),
		arm(strLit("one"), litPat(intLit(1))),
		arm(id("x"), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(1)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	// The Int arm converts through the runtime so the phi is uniformly
	// String.
	require.Contains(t, ir, "@brix_int_to_str")
	require.Contains(t, ir, "phi ptr")
}

func TestMatchHeapResultOwned(t *testing.T) {
	m := match(id("x"),
		arm(strLit("one"), litPat(intLit(1))),
		arm(strLit("other"), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(1)),
		varDecl("s", m),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "phi ptr")
	// The merged value carries a count; s releases it at exit.
	require.Contains(t, ir, "@brix_release")
}

func TestMatchArmsAfterWildcardShadowed(t *testing.T) {
	// Arms after a wildcard still compile; they are just unreachable.
	m := match(id("x"),
		arm(intLit(1), wildPat()),
		arm(intLit(2), litPat(intLit(7))),
	)
	ir, errs := compileProgram(t,
		varDecl("x", intLit(7)),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	// The shadowed arm's test is still present in the IR.
	require.Equal(t, 1, strings.Count(ir, "icmp eq i64"))
	// The wildcard branches straight to its body.
	require.Contains(t, ir, "match_arm_1")
}

func TestMatchBindingMustBeSolePattern(t *testing.T) {
	m := match(id("x"),
		arm(intLit(1), litPat(intLit(1)), bindPat("v")),
		arm(intLit(0), wildPat()),
	)
	_, errs := compileProgram(t,
		varDecl("x", intLit(1)),
		varDecl("y", m),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrInvalidOp, errs[0].Kind)
}

func TestMatchVoidArmRejected(t *testing.T) {
	fn := fnDecl("noop", nil, nil, nil, block())
	m := match(id("x"),
		arm(call("noop"), wildPat()),
	)
	_, errs := compileProgram(t,
		fn,
		varDecl("x", intLit(1)),
		varDecl("y", m),
	)
	require.NotEmpty(t, errs)
	require.Equal(t, token.ErrMissingValue, errs[0].Kind)
}

func TestMatchStringLiteralPattern(t *testing.T) {
	m := match(id("s"),
		arm(intLit(1), litPat(strLit("yes"))),
		arm(intLit(0), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("s", strLit("yes")),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_str_cmp")
}

func TestMatchAtomPattern(t *testing.T) {
	m := match(id("a"),
		arm(intLit(1), litPat(atomLit("ok"))),
		arm(intLit(0), wildPat()),
	)
	ir, errs := compileProgram(t,
		varDecl("a", atomLit("ok")),
		varDecl("y", m),
	)
	require.Empty(t, errs)
	require.Contains(t, ir, "@brix_atom_intern")
	require.Contains(t, ir, "icmp eq i64")
}
