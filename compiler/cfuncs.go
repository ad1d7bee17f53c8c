package compiler

import "tinygo.org/x/go-llvm"

// Brix runtime ABI symbol names. The core only emits calls; the C runtime
// provides the definitions at link time.
//
// brix_release is null-tolerant: releasing a null pointer is a no-op. Heap
// variable slots are null-seeded at function entry so early-return cleanup
// is safe on every path.
const (
	STR_NEW      = "brix_str_new"
	STR_CONCAT   = "brix_str_concat"
	STR_CMP      = "brix_str_cmp"
	STR_LEN      = "brix_str_len"
	INT_TO_STR   = "brix_int_to_str"
	FLOAT_TO_STR = "brix_float_to_str"

	RETAIN  = "brix_retain"
	RELEASE = "brix_release"

	ATOM_INTERN = "brix_atom_intern"

	MAT_ZEROS  = "brix_mat_zeros"
	IMAT_ZEROS = "brix_imat_zeros"
	CMAT_ZEROS = "brix_cmat_zeros"

	MAT_GET  = "brix_mat_get"
	MAT_SET  = "brix_mat_set"
	IMAT_GET = "brix_imat_get"
	IMAT_SET = "brix_imat_set"

	MAT_ADD  = "brix_mat_add"
	MAT_SUB  = "brix_mat_sub"
	MAT_MUL  = "brix_mat_mul"
	MAT_EQ   = "brix_mat_eq"
	IMAT_ADD = "brix_imat_add"
	IMAT_SUB = "brix_imat_sub"
	IMAT_MUL = "brix_imat_mul"
	IMAT_EQ  = "brix_imat_eq"
	CMAT_ADD = "brix_cmat_add"
	CMAT_SUB = "brix_cmat_sub"
	CMAT_MUL = "brix_cmat_mul"
	CMAT_EQ  = "brix_cmat_eq"

	MAT_TRANSPOSE = "brix_mat_transpose"
	MAT_EIG       = "brix_mat_eig"
	MAT_MEAN      = "brix_mean"
	MAT_STDDEV    = "brix_stddev"

	POW  = "brix_pow"
	SQRT = "brix_sqrt"
	SIN  = "brix_sin"
	COS  = "brix_cos"
	LOG  = "brix_log"
	EXP  = "brix_exp"

	COMPLEX_ADD = "brix_complex_add"
	COMPLEX_SUB = "brix_complex_sub"
	COMPLEX_MUL = "brix_complex_mul"
	COMPLEX_DIV = "brix_complex_div"
	COMPLEX_EQ  = "brix_complex_eq"

	ENV_NEW = "brix_env_new"

	TEST_REGISTER = "brix_test_register"
	PANIC         = "brix_panic"
	PRINTF        = "printf"
)

// GetFnType returns the LLVM FunctionType for a Brix runtime helper.
func (c *Compiler) GetFnType(name string) llvm.Type {
	i8Ptr := llvm.PointerType(c.Context.Int8Type(), 0)
	i64 := c.Context.Int64Type()
	f64 := c.Context.DoubleType()
	cplx := c.complexType()
	void := c.Context.VoidType()

	switch name {
	case STR_NEW, MAT_TRANSPOSE, MAT_EIG:
		return llvm.FunctionType(i8Ptr, []llvm.Type{i8Ptr}, false)
	case STR_CONCAT, MAT_ADD, MAT_SUB, MAT_MUL,
		IMAT_ADD, IMAT_SUB, IMAT_MUL,
		CMAT_ADD, CMAT_SUB, CMAT_MUL:
		return llvm.FunctionType(i8Ptr, []llvm.Type{i8Ptr, i8Ptr}, false)
	case STR_CMP, MAT_EQ, IMAT_EQ, CMAT_EQ:
		return llvm.FunctionType(i64, []llvm.Type{i8Ptr, i8Ptr}, false)
	case STR_LEN:
		return llvm.FunctionType(i64, []llvm.Type{i8Ptr}, false)
	case INT_TO_STR:
		return llvm.FunctionType(i8Ptr, []llvm.Type{i64}, false)
	case FLOAT_TO_STR:
		return llvm.FunctionType(i8Ptr, []llvm.Type{f64}, false)
	case RETAIN, RELEASE, PANIC:
		return llvm.FunctionType(void, []llvm.Type{i8Ptr}, false)
	case ATOM_INTERN:
		return llvm.FunctionType(i64, []llvm.Type{i8Ptr}, false)
	case MAT_ZEROS, IMAT_ZEROS, CMAT_ZEROS:
		return llvm.FunctionType(i8Ptr, []llvm.Type{i64, i64}, false)
	case MAT_GET:
		return llvm.FunctionType(f64, []llvm.Type{i8Ptr, i64, i64}, false)
	case MAT_SET:
		return llvm.FunctionType(void, []llvm.Type{i8Ptr, i64, i64, f64}, false)
	case IMAT_GET:
		return llvm.FunctionType(i64, []llvm.Type{i8Ptr, i64, i64}, false)
	case IMAT_SET:
		return llvm.FunctionType(void, []llvm.Type{i8Ptr, i64, i64, i64}, false)
	case MAT_MEAN, MAT_STDDEV:
		return llvm.FunctionType(f64, []llvm.Type{i8Ptr}, false)
	case POW:
		return llvm.FunctionType(f64, []llvm.Type{f64, f64}, false)
	case SQRT, SIN, COS, LOG, EXP:
		return llvm.FunctionType(f64, []llvm.Type{f64}, false)
	case COMPLEX_ADD, COMPLEX_SUB, COMPLEX_MUL, COMPLEX_DIV:
		return llvm.FunctionType(cplx, []llvm.Type{cplx, cplx}, false)
	case COMPLEX_EQ:
		return llvm.FunctionType(i64, []llvm.Type{cplx, cplx}, false)
	case ENV_NEW:
		return llvm.FunctionType(i8Ptr, []llvm.Type{i64}, false)
	case TEST_REGISTER:
		return llvm.FunctionType(void, []llvm.Type{i8Ptr, i8Ptr, i8Ptr}, false)
	case PRINTF:
		return llvm.FunctionType(c.Context.Int32Type(), []llvm.Type{i8Ptr}, true)
	default:
		panic("unknown runtime function name: " + name)
	}
}

// GetCFunc declares the runtime helper in the module on first use and
// returns its type and value.
func (c *Compiler) GetCFunc(name string) (llvm.Type, llvm.Value) {
	fnType := c.GetFnType(name)
	fn := c.Module.NamedFunction(name)
	if fn.IsNil() {
		fn = llvm.AddFunction(c.Module, name, fnType)
	}
	return fnType, fn
}
