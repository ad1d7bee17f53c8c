package token

import "strconv"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	COMMENT

	literal_beg
	// Identifiers + literals
	IDENT  // add, foobar, x, y, ...
	INT    // 1343456
	FLOAT  // 123.45
	IMAG   // 123.45i
	STRING // "abc"
	ATOM   // :ok
	NIL    // nil
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // :=
	NOT    // !
	ADD    // +
	SUB    // -
	MUL    // *
	QUO    // /
	REM    // %
	EXP    // **
	AND    // &
	OR     // |
	XOR    // ^
	LAND   // &&
	LOR    // ||
	ARROW  // ->
	QUEST  // ?
	COLON  // :
	RANGE  // ..
	LPAREN // (
	LBRACK // [
	LBRACE // {
	COMMA  // ,
	PERIOD // .
	RPAREN // )
	RBRACK // ]
	RBRACE // }
	operator_end

	comparison_beg
	EQL // ==
	NEQ // !=
	LSS // <
	GTR // >
	LEQ // <=
	GEQ // >=
	comparison_end

	keyword_beg
	VAR
	FN
	STRUCT
	IF
	ELSE
	WHILE
	FOR
	IN
	RETURN
	MATCH
	TEST
	WILDCARD // _
	keyword_end

	NEWLINE
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	COMMENT: "COMMENT",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	IMAG:   "IMAG",
	STRING: "STRING",
	ATOM:   "ATOM",
	NIL:    "nil",

	ASSIGN: ":=",
	NOT:    "!",
	ADD:    "+",
	SUB:    "-",
	MUL:    "*",
	QUO:    "/",
	REM:    "%",
	EXP:    "**",
	AND:    "&",
	OR:     "|",
	XOR:    "^",
	LAND:   "&&",
	LOR:    "||",
	ARROW:  "->",
	QUEST:  "?",
	COLON:  ":",
	RANGE:  "..",

	LPAREN: "(",
	LBRACK: "[",
	LBRACE: "{",
	COMMA:  ",",
	PERIOD: ".",
	RPAREN: ")",
	RBRACK: "]",
	RBRACE: "}",

	EQL: "==",
	NEQ: "!=",
	LSS: "<",
	GTR: ">",
	LEQ: "<=",
	GEQ: ">=",

	VAR:      "var",
	FN:       "fn",
	STRUCT:   "struct",
	IF:       "if",
	ELSE:     "else",
	WHILE:    "while",
	FOR:      "for",
	IN:       "in",
	RETURN:   "return",
	MATCH:    "match",
	TEST:     "test",
	WILDCARD: "_",

	NEWLINE: "\n",
}

// Operator literals used as operator-table keys in the compiler.
const (
	SYM_ADD  = "+"
	SYM_SUB  = "-"
	SYM_MUL  = "*"
	SYM_QUO  = "/"
	SYM_REM  = "%"
	SYM_EXP  = "**"
	SYM_AND  = "&"
	SYM_OR   = "|"
	SYM_XOR  = "^"
	SYM_LAND = "&&"
	SYM_LOR  = "||"
	SYM_NOT  = "!"
	SYM_EQL  = "=="
	SYM_NEQ  = "!="
	SYM_LSS  = "<"
	SYM_GTR  = ">"
	SYM_LEQ  = "<="
	SYM_GEQ  = ">="
)

type Token struct {
	FileName string
	Type     TokenType
	Literal  string
	Line     int
	Column   int
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && t.Type < comparison_end
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}
