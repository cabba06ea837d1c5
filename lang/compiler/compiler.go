// Package compiler drives NIC's line loop (spec.md §4.6): it reads one
// source line at a time, dispatches on the leading keyword, and assembles
// the flat statement array, resolving forward/backward jumps through a
// compile-time statement stack and break/continue fix-up stacks. It wires
// lang/expr's parser to lang/postfix's builder and lang/optimizer's passes
// through the two callback fields expr.Parser exposes, keeping this package
// the only one that knows about all of lang/expr, lang/postfix,
// lang/argblock and lang/symbols at once.
package compiler

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ukw100/nic/lang/argblock"
	"github.com/ukw100/nic/lang/builtins"
	"github.com/ukw100/nic/lang/diag"
	"github.com/ukw100/nic/lang/expr"
	"github.com/ukw100/nic/lang/lexer"
	"github.com/ukw100/nic/lang/optimizer"
	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/statement"
	"github.com/ukw100/nic/lang/strpool"
	"github.com/ukw100/nic/lang/symbols"
	"github.com/ukw100/nic/lang/token"
)

// Program is everything a compile produces, ready for lang/ir to serialise
// or lang/machine to execute directly.
type Program struct {
	Globals *symbols.Table
	Consts  *symbols.ConstTable
	Funcs   *symbols.FunctionTable
	Postfix *postfix.Pool
	Args    *argblock.Pool
	Strs    *strpool.Pool
	Stmts   []statement.Statement
	// Hints classifies each Postfix slot by id, populated once at lowering
	// time (spec.md §4.5); lang/ir writes it alongside the slot itself so
	// the interpreter need not re-run the optimiser at load time.
	Hints   []optimizer.Hint
	MainIdx int
}

type ifChain struct {
	openIf int // index of the still-open If statement, or -1 once in an else branch
	fixups []int
}

type loopCtx struct {
	startIdx       int
	breakFixups    []int
	continueFixups []int
}

// Compiler holds all compile-time state for one source file.
type Compiler struct {
	Globals *symbols.Table
	Consts  *symbols.ConstTable
	Funcs   *symbols.FunctionTable
	Postfix *postfix.Pool
	Args    *argblock.Pool
	Strs    *strpool.Pool
	Diags   diag.List

	stmts []statement.Statement

	locals *symbols.Table
	curFn  *symbols.Function

	ifStack   []ifChain
	loopStack []loopCtx

	hints []optimizer.Hint

	line int
}

// New returns an empty compiler.
func New() *Compiler {
	return &Compiler{
		Globals: symbols.NewTable(),
		Consts:  symbols.NewConstTable(),
		Funcs:   symbols.NewFunctionTable(),
		Postfix: postfix.NewPool(),
		Args:    argblock.NewPool(),
		Strs:    strpool.New(),
	}
}

// Compile compiles src (a whole program, one statement per line) and returns
// the assembled Program, or an error aggregating every fatal diagnostic.
func (c *Compiler) Compile(src string) (*Program, error) {
	scanner := bufio.NewScanner(strings.NewReader(src))
	for scanner.Scan() {
		c.line++
		c.compileLine(strings.TrimRight(scanner.Text(), "\r"))
	}

	if len(c.ifStack) > 0 || len(c.loopStack) > 0 {
		c.Diags.Errorf(c.line, "unterminated control-flow block at end of file")
	}
	if remaining := c.Funcs.RemainingUndefined(); len(remaining) > 0 {
		for _, name := range remaining {
			c.Diags.Errorf(c.line, "undefined function %q referenced but never declared", name)
		}
	}

	if err := c.Diags.Err(); err != nil {
		return nil, err
	}

	mainFn, ok := c.Funcs.Lookup("main")
	if !ok {
		return nil, fmt.Errorf("compiler: no main function declared")
	}

	return &Program{
		Globals: c.Globals, Consts: c.Consts, Funcs: c.Funcs,
		Postfix: c.Postfix, Args: c.Args, Strs: c.Strs,
		Stmts: c.stmts, Hints: c.hints, MainIdx: mainFn.FirstStatement,
	}, nil
}

func (c *Compiler) compileLine(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "//") {
		return
	}
	fields := strings.Fields(trimmed)
	kw := fields[0]

	switch kw {
	case "function":
		c.compileFunctionHeader(trimmed)
	case "endfunction":
		c.compileEndFunction()
	case "int", "byte", "string":
		c.compileDeclaration(trimmed, kw)
	case "const":
		c.compileConstDeclaration(trimmed)
	case "static":
		c.compileStaticDeclaration(trimmed)
	case "if":
		c.compileIf(trimmed)
	case "elseif":
		c.compileElseif(trimmed)
	case "else":
		c.compileElse()
	case "endif":
		c.compileEndif()
	case "while":
		c.compileWhile(trimmed)
	case "endwhile":
		c.compileEndWhile()
	case "for":
		c.compileFor(trimmed)
	case "endfor":
		c.compileEndFor()
	case "loop":
		c.compileLoop()
	case "endloop":
		c.compileEndLoop()
	case "repeat":
		c.compileRepeat(trimmed)
	case "endrepeat":
		c.compileEndRepeat()
	case "break":
		c.compileBreak()
	case "continue":
		c.compileContinue()
	case "return":
		c.compileReturn(trimmed)
	default:
		c.compileAssignOrCall(trimmed)
	}
}

func (c *Compiler) emit(s statement.Statement) int {
	s.SourceLine = c.line
	s.Next = len(c.stmts) + 1
	idx := len(c.stmts)
	c.stmts = append(c.stmts, s)
	return idx
}

// emitJump is emit's counterpart for the two statement kinds (EndWhile,
// EndLoop) whose successor is always an unconditional backward jump to the
// matching loop header rather than the next statement in program order.
func (c *Compiler) emitJump(s statement.Statement, next int) int {
	s.SourceLine = c.line
	s.Next = next
	idx := len(c.stmts)
	c.stmts = append(c.stmts, s)
	return idx
}

func (c *Compiler) here() int { return len(c.stmts) }

// popLoop pops the innermost open loop context, or an error if none is open.
func (c *Compiler) popLoop() (loopCtx, error) {
	if len(c.loopStack) == 0 {
		return loopCtx{}, fmt.Errorf("compiler: unmatched loop terminator")
	}
	top := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	return top, nil
}

// parseCompare parses "<expr> <cmp> <expr>" for if/elseif/while conditions.
func (c *Compiler) parseCompare(rest string) (leftSlot, rightSlot int, op statement.CompareOp, err error) {
	lx := lexer.New([]byte(rest))
	p := c.newParser(lx)

	leftList, err := p.Parse(expr.FlagAwaitCompareOperator)
	if err != nil {
		return 0, 0, 0, err
	}
	leftSlot, err = c.lowerExpressionList(leftList)
	if err != nil {
		return 0, 0, 0, err
	}

	rightList, err := p.Parse(expr.FlagNone)
	if err != nil {
		return 0, 0, 0, err
	}
	rightSlot, err = c.lowerExpressionList(rightList)
	if err != nil {
		return 0, 0, 0, err
	}

	return leftSlot, rightSlot, compareToStatementOp(leftList.Status), nil
}

// newParser returns an expr.Parser reading from lx, wired to this compiler's
// symbol tables and to lowerExpressionList/LowerArgs for recursive lowering.
func (c *Compiler) newParser(lx *lexer.Lexer) *expr.Parser {
	p := &expr.Parser{
		Lex:      lx,
		Globals:  c.Globals,
		Locals:   c.locals,
		Consts:   c.Consts,
		Builtins: builtins.Lookup,
		Funcs:    c.Funcs,
	}
	p.LowerExpr = func(inner *expr.Parser, flag expr.Flag) (int, expr.Status, error) {
		list, err := inner.Parse(flag)
		if err != nil {
			return 0, expr.Error, err
		}
		slot, err := c.lowerExpressionList(list)
		if err != nil {
			return 0, list.Status, err
		}
		return slot, list.Status, nil
	}
	p.LowerArgs = func(funcIndex int, builtin bool, argSlots []int) (int, error) {
		return c.Args.New(funcIndex, builtin, argSlots), nil
	}
	return p
}

// lowerExpressionList builds list into a fresh optimised postfix slot and
// records any as-yet-undefined function calls it contains so they can be
// patched once their function is declared (spec.md's "undefined function
// table").
func (c *Compiler) lowerExpressionList(list *expr.ExpressionList) (int, error) {
	pending := make(map[int]string) // argblock id -> name, for undefined calls in this list
	for _, content := range list.Content {
		if content.Type == expr.ContentCall && content.IsUndefined {
			pending[content.FipSlot] = content.UndefinedName
		}
	}

	slotID, err := postfix.Build(list, c.Postfix, c.Strs)
	if err != nil {
		return 0, err
	}
	hint, err := optimizer.Optimize(c.Postfix, slotID, c.Strs)
	if err != nil {
		return 0, err
	}
	if slotID != len(c.hints) {
		return 0, fmt.Errorf("compiler: postfix slot %d allocated out of order with hint table", slotID)
	}
	c.hints = append(c.hints, hint)

	if len(pending) > 0 {
		slot, err := c.Postfix.Get(slotID)
		if err != nil {
			return 0, err
		}
		for elemIdx, e := range slot {
			if e.Tag != postfix.UndefinedFn {
				continue
			}
			name, ok := pending[int(e.IndexSlot)]
			if !ok {
				continue
			}
			c.Funcs.RecordUndefined(name, slotID, elemIdx)
		}
	}

	return slotID, nil
}

// resolveForwardCalls patches every previously-recorded undefined-function
// reference to name now that it has a function index.
func (c *Compiler) resolveForwardCalls(name string, funcIndex int) {
	for _, ref := range c.Funcs.Resolve(name) {
		slot, err := c.Postfix.Get(ref.Slot)
		if err != nil {
			continue
		}
		slot[ref.Element].Tag = postfix.ExternFn
		slot[ref.Element].Value = int32(funcIndex)
		_ = c.Args.PatchFunc(int(slot[ref.Element].IndexSlot), funcIndex)
	}
}

// kindOf maps a declaration keyword to its symbols.ValueKind.
func kindOf(kw string) (symbols.ValueKind, bool) {
	switch kw {
	case "int":
		return symbols.Int, true
	case "byte":
		return symbols.Byte, true
	case "string":
		return symbols.Str, true
	default:
		return 0, false
	}
}

// table returns the declaration scope to use: locals when inside a function,
// globals at top level.
func (c *Compiler) table() *symbols.Table {
	if c.locals != nil {
		return c.locals
	}
	return c.Globals
}

func compareToStatementOp(st expr.Status) statement.CompareOp {
	switch st {
	case expr.CompareNotEqual:
		return statement.CmpNotEqual
	case expr.CompareLess:
		return statement.CmpLess
	case expr.CompareLessEqual:
		return statement.CmpLessEqual
	case expr.CompareGreater:
		return statement.CmpGreater
	case expr.CompareGreaterEqual:
		return statement.CmpGreaterEqual
	default:
		return statement.CmpEqual
	}
}

func parseArraySize(lx *lexer.Lexer, c *Compiler) (int, bool, error) {
	save := lx.Pos()
	tok, err := lx.Next(false)
	if err != nil {
		return 0, false, err
	}
	if tok.Kind != token.OpenSquare {
		lx.SetPos(save)
		return 0, false, nil
	}
	sizeTok, err := lx.Next(false)
	if err != nil {
		return 0, false, err
	}
	var size int
	switch sizeTok.Kind {
	case token.Int:
		size = sizeTok.IntValue
	case token.Identifier:
		v, ok := c.Consts.LookupInt(sizeTok.Text)
		if !ok {
			return 0, false, fmt.Errorf("compiler: %q is not a declared const int", sizeTok.Text)
		}
		size = v
	default:
		return 0, false, fmt.Errorf("compiler: expected array size")
	}
	closeTok, err := lx.Next(false)
	if err != nil || closeTok.Kind != token.CloseSquare {
		return 0, false, fmt.Errorf("compiler: expected ']' after array size")
	}
	return size, true, nil
}
