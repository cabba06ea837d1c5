// Package expr implements NIC's expression parser (spec.md §4.3): it turns a
// line of infix source into an ExpressionList, a linear form that keeps
// explicit open/close bracket counts and the trailing operator for each
// element instead of a nested AST, matching the way the original interpreter
// keeps expressions as a flat array of parsed tokens.
package expr

import "github.com/ukw100/nic/lang/symbols"

// Flag selects the parsing mode, controlling which token ends the
// expression.
type Flag int8

const (
	FlagNone Flag = iota
	FlagFunctionDefinition
	FlagAwaitCompareOperator
	FlagAwaitTo
	FlagAwaitStep
)

// ContentType discriminates the shape of one ExpressionContent entry.
type ContentType int8

const (
	ContentIntConst ContentType = iota
	ContentStrConst
	ContentVariable
	ContentArrayVariable
	ContentCall
)

// Status is the outcome of parsing one expression (spec.md §4.3).
type Status int8

const (
	NoError Status = iota
	Error
	NoCompareOperator
	CompareEqual
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	FunctionReturningVoid
)

// ExpressionContent is one element of an ExpressionList.
type ExpressionContent struct {
	Type             ContentType
	OpenBrackets     int
	CloseBrackets    int
	TrailingOperator rune // 0 if none

	Value int    // literal int value, string-const pool index, variable/function index
	Str   string // literal string text, only meaningful for ContentStrConst from a fresh literal

	FipSlot int // argument-block id (calls) or postfix slot (array index); -1 if unused

	// variable/array operand detail
	ArrKind symbols.ValueKind
	IsLocal bool
	IsBytePtr bool // bare byte-array name used without an index

	// call operand detail
	IsBuiltin     bool
	IsVoid        bool
	IsUndefined   bool
	UndefinedName string
}

// ExpressionList is the linear infix form produced by the parser.
type ExpressionList struct {
	Content []ExpressionContent
	Status  Status
}
