package compiler

import (
	"strings"

	"tinygo.org/x/go-llvm"

	"github.com/brix-lang/brix/ast"
	"github.com/brix-lang/brix/token"
)

// unaryMathBuiltins map a builtin name to its runtime helper over doubles.
var unaryMathBuiltins = map[string]string{
	"sqrt": SQRT,
	"sin":  SIN,
	"cos":  COS,
	"log":  LOG,
	"exp":  EXP,
}

// matrixStatBuiltins reduce a Matrix to a Float.
var matrixStatBuiltins = map[string]string{
	"mean":   MAT_MEAN,
	"stddev": MAT_STDDEV,
}

// compileBuiltin lowers the built-in functions. The second result reports
// whether the name was a builtin at all; user functions shadow nothing
// here because builtin names are reserved.
func (c *Compiler) compileBuiltin(ce *ast.CallExpression) (*Value, bool, *token.CompileError) {
	name := ce.Function.Value

	if fname, ok := unaryMathBuiltins[name]; ok {
		v, cerr := c.builtinUnaryMath(ce, name, fname)
		return v, true, cerr
	}
	if fname, ok := matrixStatBuiltins[name]; ok {
		v, cerr := c.builtinMatrixStat(ce, name, fname)
		return v, true, cerr
	}

	switch name {
	case "print":
		v, cerr := c.builtinPrint(ce)
		return v, true, cerr
	case "len":
		v, cerr := c.builtinLen(ce)
		return v, true, cerr
	case "transpose":
		v, cerr := c.builtinMatrixUnary(ce, name, MAT_TRANSPOSE, TMatrix)
		return v, true, cerr
	case "eig":
		// Eigenvalues of a real matrix can be complex.
		v, cerr := c.builtinMatrixUnary(ce, name, MAT_EIG, TCMat)
		return v, true, cerr
	}
	return nil, false, nil
}

func (c *Compiler) builtinArg(ce *ast.CallExpression, name string) (*Value, *token.CompileError) {
	if len(ce.Arguments) != 1 {
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "%s takes one argument, found %d", name, len(ce.Arguments))
	}
	return c.compileExpr(ce.Arguments[0])
}

func (c *Compiler) builtinUnaryMath(ce *ast.CallExpression, name, fname string) (*Value, *token.CompileError) {
	arg, cerr := c.builtinArg(ce, name)
	if cerr != nil {
		return nil, cerr
	}
	var v llvm.Value
	switch arg.Type.Kind() {
	case IntKind:
		v = c.intToFloat(arg.V)
	case FloatKind:
		v = arg.V
	default:
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "%s requires Int or Float, found %s", name, arg.Type)
	}
	fnType, fn := c.GetCFunc(fname)
	res := c.builder.CreateCall(fnType, fn, []llvm.Value{v}, name+"_tmp")
	return &Value{V: res, Type: TFloat}, nil
}

func (c *Compiler) builtinMatrixStat(ce *ast.CallExpression, name, fname string) (*Value, *token.CompileError) {
	arg, cerr := c.builtinArg(ce, name)
	if cerr != nil {
		return nil, cerr
	}
	if arg.Type.Kind() != MatrixKind {
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "%s requires Matrix, found %s", name, arg.Type)
	}
	fnType, fn := c.GetCFunc(fname)
	res := c.builder.CreateCall(fnType, fn, []llvm.Value{arg.V}, name+"_tmp")
	c.releaseTemp(arg)
	return &Value{V: res, Type: TFloat}, nil
}

// builtinMatrixUnary covers the unary Matrix builtins; the result is a
// fresh matrix the caller owns.
func (c *Compiler) builtinMatrixUnary(ce *ast.CallExpression, name, fname string, result Type) (*Value, *token.CompileError) {
	arg, cerr := c.builtinArg(ce, name)
	if cerr != nil {
		return nil, cerr
	}
	if arg.Type.Kind() != MatrixKind {
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "%s requires Matrix, found %s", name, arg.Type)
	}
	fnType, fn := c.GetCFunc(fname)
	res := c.builder.CreateCall(fnType, fn, []llvm.Value{arg.V}, name+"_tmp")
	c.releaseTemp(arg)
	return &Value{V: res, Type: result, Owned: true}, nil
}

func (c *Compiler) builtinLen(ce *ast.CallExpression) (*Value, *token.CompileError) {
	arg, cerr := c.builtinArg(ce, "len")
	if cerr != nil {
		return nil, cerr
	}
	if arg.Type.Kind() != StrKind {
		return nil, c.errorf(ce.Tok(), token.ErrTypeMismatch, "len requires String, found %s", arg.Type)
	}
	fnType, fn := c.GetCFunc(STR_LEN)
	res := c.builder.CreateCall(fnType, fn, []llvm.Value{arg.V}, "len_tmp")
	c.releaseTemp(arg)
	return &Value{V: res, Type: TInt}, nil
}

// builtinPrint joins its arguments with spaces into one printf call.
// Runtime strings are NUL-terminated, so %s consumes them as-is.
func (c *Compiler) builtinPrint(ce *ast.CallExpression) (*Value, *token.CompileError) {
	var specs []string
	var printfArgs []llvm.Value
	var temps []*Value

	for _, argExpr := range ce.Arguments {
		arg, cerr := c.compileExpr(argExpr)
		if cerr != nil {
			return nil, cerr
		}
		temps = append(temps, arg)
		switch arg.Type.Kind() {
		case IntKind, AtomKind:
			specs = append(specs, "%ld")
			printfArgs = append(printfArgs, arg.V)
		case FloatKind:
			specs = append(specs, "%g")
			printfArgs = append(printfArgs, arg.V)
		case ComplexKind:
			specs = append(specs, "(%g+%gi)")
			printfArgs = append(printfArgs,
				c.builder.CreateExtractValue(arg.V, 0, "re"),
				c.builder.CreateExtractValue(arg.V, 1, "im"))
		case StrKind:
			specs = append(specs, "%s")
			printfArgs = append(printfArgs, arg.V)
		default:
			return nil, c.errorf(argExpr.Tok(), token.ErrTypeMismatch, "print cannot format %s", arg.Type)
		}
	}

	format := c.constCString(strings.Join(specs, " ") + "\n")
	fnType, fn := c.GetCFunc(PRINTF)
	args := append([]llvm.Value{format}, printfArgs...)
	c.builder.CreateCall(fnType, fn, args, "")

	for _, t := range temps {
		c.releaseTemp(t)
	}
	return &Value{Type: TVoid}, nil
}
