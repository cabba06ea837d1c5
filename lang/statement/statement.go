// Package statement defines NIC's flat, indexed statement array (spec.md §3
// "Statement" and §4.6): every control-flow and assignment form compiles
// down to one Statement, linked to its successor (or a branch target) by
// plain integer indices rather than a tree, so the executor in lang/machine
// is a simple cursor loop.
package statement

import "github.com/ukw100/nic/lang/symbols"

// Kind discriminates a Statement's payload shape.
type Kind int8

const (
	If Kind = iota
	EndIf
	While
	EndWhile
	For
	EndFor
	Loop
	EndLoop
	Repeat
	EndRepeat
	Break
	Continue
	Increment
	Call // shared by InternFn/ExternFn: assignment-or-bare-call
	Return
)

func (k Kind) String() string { return kindNames[k] }

var kindNames = [...]string{
	If: "if", EndIf: "endif", While: "while", EndWhile: "endwhile",
	For: "for", EndFor: "endfor", Loop: "loop", EndLoop: "endloop",
	Repeat: "repeat", EndRepeat: "endrepeat",
	Break: "break", Continue: "continue", Increment: "increment",
	Call: "call", Return: "return",
}

// CompareOp is a compare operator carried by If/While payloads, one of the
// expr.Status compare values re-expressed without importing lang/expr (the
// statement package sits below expr in the dependency graph).
type CompareOp int8

const (
	CmpEqual CompareOp = iota
	CmpNotEqual
	CmpLess
	CmpLessEqual
	CmpGreater
	CmpGreaterEqual
)

// AssignTarget names a write destination for a Call statement's result, or
// an Increment statement's operand.
type AssignTarget struct {
	VarID     int
	Kind      symbols.ValueKind
	IsLocal   bool
	IsArray   bool
	IndexSlot int // postfix slot evaluating the array index; -1 if scalar
}

// Statement is one entry of the compiled statement array.
type Statement struct {
	SourceLine int
	Kind       Kind
	Next       int // successor index; control-flow kinds may additionally branch

	// If / While
	LeftSlot, RightSlot int
	CompareOp           CompareOp
	FalseIdx            int // branch target when the compare is false

	// For
	IterVar     AssignTarget
	StartSlot   int
	StopSlot    int
	StepSlot    int // -1 if omitted (defaults to step 1 at runtime)
	EndForIdx   int

	// EndFor. StopCache/StepCache are carried through the IR but never
	// written at run time: lang/machine caches a loop's stop and step per
	// frame instead.
	ForIdx     int
	StopCache  int
	StepCache  int

	// Repeat / EndRepeat
	CountSlot   int
	RepeatIdx   int // EndRepeat -> matching Repeat
	EndRepeatIdx int // Repeat -> matching EndRepeat
	CountCache  int // never written at run time; lang/machine keeps the countdown per frame

	// Loop / EndLoop
	LoopIdx    int
	EndLoopIdx int

	// Increment
	IncTarget AssignTarget
	Step      int32

	// Call (InternFn/ExternFn)
	HasTarget bool
	Target    AssignTarget
	BodySlot  int // postfix slot evaluating the call expression

	// Return
	ValueSlot int // -1 for void return
}

// Program is the assembled statement array plus the index of the entry
// statement for each function (Funcs[i].FirstStatement already records this,
// duplicated here only for the designated top-level/main function).
type Program struct {
	Statements []Statement
	MainFunc   int
}
