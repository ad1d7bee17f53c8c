package token

import "fmt"

// ErrKind classifies a compile error. Every error produced by the compiler
// carries exactly one kind; rendering and tests dispatch on it.
type ErrKind int

const (
	// ErrEmit is a backend instruction-emission failure. Always fatal to the
	// current compilation unit.
	ErrEmit ErrKind = iota
	// ErrTypeMismatch means promotion rules could not reconcile operand types.
	ErrTypeMismatch
	// ErrUndefined is an identifier used before declaration or out of scope.
	ErrUndefined
	// ErrInvalidOp is a construct used outside its only valid context
	// (e.g. a bare range expression).
	ErrInvalidOp
	// ErrMissingValue means a sub-compilation step that should have produced
	// a value produced none.
	ErrMissingValue
)

var errKindNames = map[ErrKind]string{
	ErrEmit:         "emission failure",
	ErrTypeMismatch: "type mismatch",
	ErrUndefined:    "undefined symbol",
	ErrInvalidOp:    "invalid operation",
	ErrMissingValue: "missing value",
}

func (k ErrKind) String() string {
	if s, ok := errKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("errkind(%d)", int(k))
}

// CompileError is the structured error value crossing the compiler's
// reporting boundary. Human rendering (source snippets, color) lives in the
// diag package; this type only carries position, kind and message.
type CompileError struct {
	Kind  ErrKind
	Token Token
	Msg   string
}

func (e *CompileError) Error() string {
	if e.Token.FileName == "" {
		return fmt.Sprintf("%d:%d: %s: %s", e.Token.Line, e.Token.Column, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Token.FileName, e.Token.Line, e.Token.Column, e.Kind, e.Msg)
}
