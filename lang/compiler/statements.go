package compiler

import (
	"fmt"
	"strings"

	"github.com/ukw100/nic/lang/expr"
	"github.com/ukw100/nic/lang/lexer"
	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/statement"
	"github.com/ukw100/nic/lang/symbols"
	"github.com/ukw100/nic/lang/token"
)

// compileFunctionHeader handles "function <kind|void> name(<kind> arg, ...)".
func (c *Compiler) compileFunctionHeader(line string) {
	if c.curFn != nil {
		c.Diags.Errorf(c.line, "nested function definitions are not allowed")
		return
	}

	rest := strings.TrimSpace(strings.TrimPrefix(line, "function"))
	lx := lexer.New([]byte(rest))

	kindTok, err := lx.Next(false)
	if err != nil || kindTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "malformed function header")
		return
	}
	isVoid := kindTok.Text == "void"
	var retKind symbols.ValueKind
	if !isVoid {
		k, ok := kindOf(kindTok.Text)
		if !ok {
			c.Diags.Errorf(c.line, "unknown return type %q", kindTok.Text)
			return
		}
		retKind = k
	}

	nameTok, err := lx.Next(false)
	if err != nil || nameTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "expected function name")
		return
	}
	name := nameTok.Text

	if openTok, err := lx.Next(false); err != nil || openTok.Kind != token.OpenBracket {
		c.Diags.Errorf(c.line, "expected '(' after function name")
		return
	}

	locals := symbols.NewTable()
	var argIDs []int
	var argKinds []symbols.ValueKind

	save := lx.Pos()
	if tok, err := lx.Next(false); err == nil && tok.Kind == token.CloseBracket {
		// no parameters
	} else {
		lx.SetPos(save)
		for {
			argKindTok, err := lx.Next(false)
			if err != nil || argKindTok.Kind != token.Identifier {
				c.Diags.Errorf(c.line, "expected parameter type")
				return
			}
			argKind, ok := kindOf(argKindTok.Text)
			if !ok {
				c.Diags.Errorf(c.line, "unknown parameter type %q", argKindTok.Text)
				return
			}
			argNameTok, err := lx.Next(false)
			if err != nil || argNameTok.Kind != token.Identifier {
				c.Diags.Errorf(c.line, "expected parameter name")
				return
			}

			size, isArray, err := parseArraySize(lx, c)
			if err != nil {
				c.Diags.Errorf(c.line, "%v", err)
				return
			}
			_ = isArray
			idx, err := locals.Declare(argNameTok.Text, argKind, size, false, 0)
			if err != nil {
				c.Diags.Errorf(c.line, "%v", err)
				return
			}
			argIDs = append(argIDs, idx)
			argKinds = append(argKinds, argKind)

			sep, err := lx.Next(false)
			if err != nil {
				c.Diags.Errorf(c.line, "malformed parameter list")
				return
			}
			if sep.Kind == token.Comma {
				continue
			}
			if sep.Kind == token.CloseBracket {
				break
			}
			c.Diags.Errorf(c.line, "expected ',' or ')' in parameter list")
			return
		}
	}

	fn := &symbols.Function{
		Name:           name,
		FirstStatement: c.here(),
		ReturnKind:     retKind,
		IsVoid:         isVoid,
		ArgVarIDs:      argIDs,
		ArgKinds:       argKinds,
		Locals:         locals,
	}
	idx, err := c.Funcs.Declare(fn)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	// every function gets a synthesised "function.<name>" const int holding
	// its index, so source can reference a function by name as a value
	// (spec.md's forward-call resolution patches this same index in).
	_ = c.Consts.DeclareInt("function."+name, idx)

	c.locals = locals
	c.curFn = fn
	c.resolveForwardCalls(name, idx)
}

// compileEndFunction closes the current function, inserting an implicit
// void return if the body fell off the end without one.
func (c *Compiler) compileEndFunction() {
	if c.curFn == nil {
		c.Diags.Errorf(c.line, "endfunction without a matching function")
		return
	}

	bodyEmpty := len(c.stmts) == c.curFn.FirstStatement
	endsInReturn := !bodyEmpty && c.stmts[len(c.stmts)-1].Kind == statement.Return

	switch {
	case c.curFn.IsVoid && !endsInReturn:
		c.emit(statement.Statement{Kind: statement.Return, ValueSlot: -1})
	case !c.curFn.IsVoid && !endsInReturn:
		c.Diags.Errorf(c.line, "function %q must end on a return statement", c.curFn.Name)
	}

	c.locals = nil
	c.curFn = nil
}

// compileDeclaration handles "int|byte|string name[size] [= expr]" both at
// top level (a global) and inside a function body (a local).
func (c *Compiler) compileDeclaration(line, kw string) {
	kind, _ := kindOf(kw)
	rest := strings.TrimSpace(line[len(kw):])
	lx := lexer.New([]byte(rest))

	nameTok, err := lx.Next(false)
	if err != nil || nameTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "expected a variable name after %q", kw)
		return
	}
	name := nameTok.Text

	size, isArray, err := parseArraySize(lx, c)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}

	save := lx.Pos()
	eqTok, terr := lx.Next(false)
	hasInit := terr == nil && eqTok.Kind == token.Equal
	if !hasInit {
		lx.SetPos(save)
	}
	if isArray && hasInit {
		c.Diags.Errorf(c.line, "array %q cannot carry an initialiser", name)
		return
	}

	isGlobal := c.locals == nil
	var initialInt int

	// A global's initial value is folded into the symbol table directly (the
	// IR's global-scalar section stores one value, not a statement); a
	// local's initialiser instead runs as an ordinary assignment statement
	// each time the enclosing function is entered.
	if hasInit && isGlobal {
		v, err := c.constInitializer(lx, name, kind)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
		initialInt = v
	}

	idx, err := c.table().Declare(name, kind, size, false, initialInt)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}

	if hasInit && !isGlobal {
		p := c.newParser(lx)
		list, err := p.Parse(expr.FlagNone)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
		slot, err := c.lowerExpressionList(list)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
		c.table().Vars[kind][idx].SetCount++
		target := statement.AssignTarget{VarID: idx, Kind: kind, IsLocal: true, IndexSlot: -1}
		c.emit(statement.Statement{Kind: statement.Call, HasTarget: true, Target: target, BodySlot: slot})
	}
}

// constInitializer lowers and optimises the remainder of lx as an expression
// and requires it to fold down to a single constant of the expected kind,
// returning the raw int value (a string-pool index for Str).
func (c *Compiler) constInitializer(lx *lexer.Lexer, name string, kind symbols.ValueKind) (int, error) {
	p := c.newParser(lx)
	list, err := p.Parse(expr.FlagNone)
	if err != nil {
		return 0, err
	}
	slot, err := c.lowerExpressionList(list)
	if err != nil {
		return 0, err
	}
	elems, err := c.Postfix.Get(slot)
	if err != nil {
		return 0, err
	}
	if len(elems) != 2 {
		return 0, fmt.Errorf("%q's initialiser must be a constant expression", name)
	}
	switch {
	case kind == symbols.Str && elems[0].Tag == postfix.StrConst:
		return int(elems[0].Value), nil
	case kind != symbols.Str && elems[0].Tag == postfix.IntConst:
		return int(elems[0].Value), nil
	default:
		return 0, fmt.Errorf("%q's initialiser has the wrong type", name)
	}
}

// compileConstDeclaration handles "const int|string name = literal".
func (c *Compiler) compileConstDeclaration(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "const"))
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		c.Diags.Errorf(c.line, "malformed const declaration")
		return
	}
	kw := fields[0]
	kind, ok := kindOf(kw)
	if !ok || kind == symbols.Byte {
		c.Diags.Errorf(c.line, "const must be declared int or string")
		return
	}

	lx := lexer.New([]byte(strings.TrimSpace(rest[len(kw):])))
	nameTok, err := lx.Next(false)
	if err != nil || nameTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "expected a const name")
		return
	}
	if eqTok, err := lx.Next(false); err != nil || eqTok.Kind != token.Equal {
		c.Diags.Errorf(c.line, "expected '=' in const declaration")
		return
	}

	if kind == symbols.Int {
		valTok, err := lx.Next(true)
		if err != nil || valTok.Kind != token.Int {
			c.Diags.Errorf(c.line, "const int %q requires an integer literal", nameTok.Text)
			return
		}
		if err := c.Consts.DeclareInt(nameTok.Text, valTok.IntValue); err != nil {
			c.Diags.Errorf(c.line, "%v", err)
		}
		return
	}

	valTok, err := lx.Next(false)
	if err != nil || valTok.Kind != token.String {
		c.Diags.Errorf(c.line, "const string %q requires a string literal", nameTok.Text)
		return
	}
	strIdx := c.Strs.NewSlot([]byte(valTok.Text))
	if err := c.Consts.DeclareStr(nameTok.Text, strIdx); err != nil {
		c.Diags.Errorf(c.line, "%v", err)
	}
}

// compileStaticDeclaration handles "static int|byte|string name [= expr]"
// inside a function body. The variable is declared as a plain global under
// its own unqualified name; the name is not qualified with the function's
// name. lang/expr finds it through its locals-then-globals lookup, so it is
// visible to the declaring function and to every function compiled after
// it, and it cannot share a name with another global.
func (c *Compiler) compileStaticDeclaration(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "static"))
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		c.Diags.Errorf(c.line, "malformed static declaration")
		return
	}
	kw := fields[0]
	kind, ok := kindOf(kw)
	if !ok {
		c.Diags.Errorf(c.line, "static requires a type keyword")
		return
	}

	lx := lexer.New([]byte(strings.TrimSpace(rest[len(kw):])))
	nameTok, err := lx.Next(false)
	if err != nil || nameTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "expected a variable name after static")
		return
	}
	name := nameTok.Text

	size, isArray, err := parseArraySize(lx, c)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}

	save := lx.Pos()
	eqTok, terr := lx.Next(false)
	hasInit := terr == nil && eqTok.Kind == token.Equal
	if !hasInit {
		lx.SetPos(save)
	}
	if isArray && hasInit {
		c.Diags.Errorf(c.line, "static array %q cannot carry an initialiser", name)
		return
	}

	var initialInt int
	if hasInit {
		v, err := c.constInitializer(lx, name, kind)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
		initialInt = v
	}

	if _, err := c.Globals.Declare(name, kind, size, false, initialInt); err != nil {
		c.Diags.Errorf(c.line, "%v", err)
	}
}

// compileIf handles "if <expr> <cmp> <expr>".
func (c *Compiler) compileIf(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "if"))
	leftSlot, rightSlot, op, err := c.parseCompare(rest)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	idx := c.emit(statement.Statement{Kind: statement.If, LeftSlot: leftSlot, RightSlot: rightSlot, CompareOp: op, FalseIdx: -1})
	c.ifStack = append(c.ifStack, ifChain{openIf: idx})
}

// compileElseif handles "elseif <expr> <cmp> <expr>" (spec.md §4.6's
// walk-and-replace rule: close the previous branch with a goto-end parked
// in a reused EndIf statement, then open a fresh If for this branch).
func (c *Compiler) compileElseif(line string) {
	if len(c.ifStack) == 0 {
		c.Diags.Errorf(c.line, "elseif without a matching if")
		return
	}
	top := &c.ifStack[len(c.ifStack)-1]
	if top.openIf < 0 {
		c.Diags.Errorf(c.line, "elseif after else")
		return
	}

	gotoIdx := c.emit(statement.Statement{Kind: statement.EndIf})
	top.fixups = append(top.fixups, gotoIdx)
	c.stmts[top.openIf].FalseIdx = c.here()

	rest := strings.TrimSpace(strings.TrimPrefix(line, "elseif"))
	leftSlot, rightSlot, op, err := c.parseCompare(rest)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	idx := c.emit(statement.Statement{Kind: statement.If, LeftSlot: leftSlot, RightSlot: rightSlot, CompareOp: op, FalseIdx: -1})
	top.openIf = idx
}

// compileElse handles a bare "else".
func (c *Compiler) compileElse() {
	if len(c.ifStack) == 0 {
		c.Diags.Errorf(c.line, "else without a matching if")
		return
	}
	top := &c.ifStack[len(c.ifStack)-1]
	if top.openIf < 0 {
		c.Diags.Errorf(c.line, "duplicate else")
		return
	}

	gotoIdx := c.emit(statement.Statement{Kind: statement.EndIf})
	top.fixups = append(top.fixups, gotoIdx)
	c.stmts[top.openIf].FalseIdx = c.here()
	top.openIf = -1
}

// compileEndif closes the chain, pointing every parked goto-end at this
// final EndIf statement.
func (c *Compiler) compileEndif() {
	if len(c.ifStack) == 0 {
		c.Diags.Errorf(c.line, "endif without a matching if")
		return
	}
	top := c.ifStack[len(c.ifStack)-1]
	c.ifStack = c.ifStack[:len(c.ifStack)-1]

	idx := c.here()
	if top.openIf >= 0 && c.stmts[top.openIf].FalseIdx < 0 {
		c.stmts[top.openIf].FalseIdx = idx
	}
	c.emit(statement.Statement{Kind: statement.EndIf})
	for _, f := range top.fixups {
		c.stmts[f].Next = idx
	}
}

// compileWhile handles "while <expr> <cmp> <expr>".
func (c *Compiler) compileWhile(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "while"))
	leftSlot, rightSlot, op, err := c.parseCompare(rest)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	idx := c.emit(statement.Statement{Kind: statement.While, LeftSlot: leftSlot, RightSlot: rightSlot, CompareOp: op, FalseIdx: -1})
	c.loopStack = append(c.loopStack, loopCtx{startIdx: idx})
}

// compileEndWhile closes a while loop: the EndWhile statement always jumps
// back to the While header to re-test the condition.
func (c *Compiler) compileEndWhile() {
	top, err := c.popLoop()
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	endIdx := c.emitJump(statement.Statement{Kind: statement.EndWhile}, top.startIdx)
	c.stmts[top.startIdx].FalseIdx = endIdx + 1
	for _, b := range top.breakFixups {
		c.stmts[b].Next = endIdx + 1
	}
	for _, cont := range top.continueFixups {
		c.stmts[cont].Next = top.startIdx
	}
}

// compileFor handles "for i = start to stop [step s]".
func (c *Compiler) compileFor(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "for"))
	lx := lexer.New([]byte(rest))

	nameTok, err := lx.Next(false)
	if err != nil || nameTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "expected an iterator variable after 'for'")
		return
	}
	if eqTok, err := lx.Next(false); err != nil || eqTok.Kind != token.Equal {
		c.Diags.Errorf(c.line, "expected '=' after the for-loop variable")
		return
	}

	var sc *symbols.Scalar
	var varID int
	var kind symbols.ValueKind
	var isLocal, ok bool
	if c.locals != nil {
		sc, varID, kind, ok = c.locals.LookupAnyKind(nameTok.Text)
		isLocal = ok
	}
	if !ok {
		sc, varID, kind, ok = c.Globals.LookupAnyKind(nameTok.Text)
	}
	if !ok {
		c.Diags.Errorf(c.line, "undeclared variable %q", nameTok.Text)
		return
	}
	if kind != symbols.Int || sc.Const || sc.IsArray {
		c.Diags.Errorf(c.line, "for-loop iterator %q must be a non-const int scalar", nameTok.Text)
		return
	}

	p := c.newParser(lx)
	startList, err := p.Parse(expr.FlagAwaitTo)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	startSlot, err := c.lowerExpressionList(startList)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}

	stopList, err := p.Parse(expr.FlagAwaitStep)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	stopSlot, err := c.lowerExpressionList(stopList)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}

	stepSlot := -1
	if !lx.AtEnd() {
		stepList, err := p.Parse(expr.FlagNone)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
		stepSlot, err = c.lowerExpressionList(stepList)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
	}

	sc.SetCount++
	forIdx := c.emit(statement.Statement{
		Kind:      statement.For,
		IterVar:   statement.AssignTarget{VarID: varID, Kind: kind, IsLocal: isLocal, IndexSlot: -1},
		StartSlot: startSlot, StopSlot: stopSlot, StepSlot: stepSlot,
	})
	c.loopStack = append(c.loopStack, loopCtx{startIdx: forIdx})
}

// compileEndFor closes a for loop. Unlike while/loop, EndFor's loop-back is
// conditional (direction-aware bound check at runtime), so its own Next
// keeps the ordinary fall-through default; the executor special-cases
// Kind==EndFor, branching to the Next of the For statement at ForIdx (the
// first body statement) instead of its own Next when the bound holds.
func (c *Compiler) compileEndFor() {
	top, err := c.popLoop()
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	endIdx := c.emit(statement.Statement{Kind: statement.EndFor, ForIdx: top.startIdx})
	c.stmts[top.startIdx].EndForIdx = endIdx
	for _, b := range top.breakFixups {
		c.stmts[b].Next = endIdx + 1
	}
	for _, cont := range top.continueFixups {
		// continue must still run the increment and bound recheck.
		c.stmts[cont].Next = endIdx
	}
}

// compileLoop handles the unconditional "loop ... endloop" form.
func (c *Compiler) compileLoop() {
	idx := c.emit(statement.Statement{Kind: statement.Loop})
	c.loopStack = append(c.loopStack, loopCtx{startIdx: idx})
}

// compileEndLoop closes an unconditional loop: EndLoop always jumps back.
func (c *Compiler) compileEndLoop() {
	top, err := c.popLoop()
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	endIdx := c.emitJump(statement.Statement{Kind: statement.EndLoop, LoopIdx: top.startIdx}, top.startIdx)
	c.stmts[top.startIdx].EndLoopIdx = endIdx
	for _, b := range top.breakFixups {
		c.stmts[b].Next = endIdx + 1
	}
	for _, cont := range top.continueFixups {
		c.stmts[cont].Next = top.startIdx + 1
	}
}

// compileRepeat handles "repeat <count-expr>".
func (c *Compiler) compileRepeat(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "repeat"))
	lx := lexer.New([]byte(rest))
	p := c.newParser(lx)
	list, err := p.Parse(expr.FlagNone)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	slot, err := c.lowerExpressionList(list)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	idx := c.emit(statement.Statement{Kind: statement.Repeat, CountSlot: slot})
	c.loopStack = append(c.loopStack, loopCtx{startIdx: idx})
}

// compileEndRepeat closes a repeat loop. Like EndFor, the loop-back is
// conditional on the runtime countdown, so Next stays the fall-through
// default and the executor special-cases Kind==EndRepeat.
func (c *Compiler) compileEndRepeat() {
	top, err := c.popLoop()
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	endIdx := c.emit(statement.Statement{Kind: statement.EndRepeat, RepeatIdx: top.startIdx})
	c.stmts[top.startIdx].EndRepeatIdx = endIdx
	for _, b := range top.breakFixups {
		c.stmts[b].Next = endIdx + 1
	}
	for _, cont := range top.continueFixups {
		c.stmts[cont].Next = endIdx
	}
}

func (c *Compiler) compileBreak() {
	if len(c.loopStack) == 0 {
		c.Diags.Errorf(c.line, "break outside of a loop")
		return
	}
	idx := c.emit(statement.Statement{Kind: statement.Break})
	top := &c.loopStack[len(c.loopStack)-1]
	top.breakFixups = append(top.breakFixups, idx)
}

func (c *Compiler) compileContinue() {
	if len(c.loopStack) == 0 {
		c.Diags.Errorf(c.line, "continue outside of a loop")
		return
	}
	idx := c.emit(statement.Statement{Kind: statement.Continue})
	top := &c.loopStack[len(c.loopStack)-1]
	top.continueFixups = append(top.continueFixups, idx)
}

// compileReturn handles "return" and "return <expr>".
func (c *Compiler) compileReturn(line string) {
	if c.curFn == nil {
		c.Diags.Errorf(c.line, "return outside of a function")
		return
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "return"))

	if rest == "" {
		if !c.curFn.IsVoid {
			c.Diags.Errorf(c.line, "function %q must return a value", c.curFn.Name)
			return
		}
		c.emit(statement.Statement{Kind: statement.Return, ValueSlot: -1})
		return
	}
	if c.curFn.IsVoid {
		c.Diags.Errorf(c.line, "void function %q cannot return a value", c.curFn.Name)
		return
	}

	lx := lexer.New([]byte(rest))
	p := c.newParser(lx)
	list, err := p.Parse(expr.FlagNone)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	slot, err := c.lowerExpressionList(list)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	c.emit(statement.Statement{Kind: statement.Return, ValueSlot: slot})
}

// compileAssignOrCall handles every statement not led by a keyword: a
// scalar/array assignment, or a bare (void- or value-discarding) call.
func (c *Compiler) compileAssignOrCall(line string) {
	lx := lexer.New([]byte(line))
	lineStart := lx.Pos()

	nameTok, err := lx.Next(false)
	if err != nil || nameTok.Kind != token.Identifier {
		c.Diags.Errorf(c.line, "expected an assignment or a function call")
		return
	}
	name := nameTok.Text

	var sc *symbols.Scalar
	var varID int
	var kind symbols.ValueKind
	var isLocal, ok bool
	if c.locals != nil {
		sc, varID, kind, ok = c.locals.LookupAnyKind(name)
		isLocal = ok
	}
	if !ok {
		sc, varID, kind, ok = c.Globals.LookupAnyKind(name)
	}

	if !ok {
		_, isConstInt := c.Consts.LookupInt(name)
		_, isConstStr := c.Consts.LookupStr(name)
		if isConstInt || isConstStr {
			c.Diags.Errorf(c.line, "cannot assign to const %q", name)
			return
		}
		// not a declared variable: the only legal bare statement left is a
		// function call.
		lx.SetPos(lineStart)
		c.compileBareCall(lx, name)
		return
	}

	indexSlot := -1
	save := lx.Pos()
	if tok, terr := lx.Next(false); terr == nil && tok.Kind == token.OpenSquare {
		if !sc.IsArray {
			c.Diags.Errorf(c.line, "%q is not an array", name)
			return
		}
		p := c.newParser(lx)
		slot, _, err := p.LowerExpr(p, expr.FlagNone)
		if err != nil {
			c.Diags.Errorf(c.line, "%v", err)
			return
		}
		closeTok, err := lx.Next(false)
		if err != nil || closeTok.Kind != token.CloseSquare {
			c.Diags.Errorf(c.line, "expected ']' after array index")
			return
		}
		indexSlot = slot
	} else {
		lx.SetPos(save)
		if sc.IsArray {
			c.Diags.Errorf(c.line, "%q is an array and requires an index", name)
			return
		}
	}

	eqTok, terr := lx.Next(false)
	if terr != nil || eqTok.Kind != token.Equal {
		c.Diags.Errorf(c.line, "statement has no effect")
		return
	}
	if sc.Const {
		c.Diags.Errorf(c.line, "cannot assign to const %q", name)
		return
	}

	p := c.newParser(lx)
	list, err := p.Parse(expr.FlagNone)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}

	sc.SetCount++
	target := statement.AssignTarget{VarID: varID, Kind: kind, IsLocal: isLocal, IsArray: sc.IsArray, IndexSlot: indexSlot}

	if !sc.IsArray {
		if step, isInc := incrementStep(isLocal, varID, kind, list); isInc {
			c.emit(statement.Statement{Kind: statement.Increment, IncTarget: target, Step: int32(step)})
			return
		}
	}

	slot, err := c.lowerExpressionList(list)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	c.emit(statement.Statement{Kind: statement.Call, HasTarget: true, Target: target, BodySlot: slot})
}

// compileBareCall handles a statement that is only legal as a function
// call, whose return value (if any) is discarded.
func (c *Compiler) compileBareCall(lx *lexer.Lexer, name string) {
	p := c.newParser(lx)
	list, err := p.Parse(expr.FlagNone)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	if len(list.Content) != 1 || list.Content[0].Type != expr.ContentCall {
		c.Diags.Errorf(c.line, "%q is not a declared variable, and the statement does not call a function", name)
		return
	}
	slot, err := c.lowerExpressionList(list)
	if err != nil {
		c.Diags.Errorf(c.line, "%v", err)
		return
	}
	c.emit(statement.Statement{Kind: statement.Call, HasTarget: false, BodySlot: slot})
}

// incrementStep recognises spec.md §4.6's increment peephole: "v = v + c",
// "v = v - c" or "v = c + v" for a matching int/byte scalar, returning the
// signed step to apply in place of a general assignment.
func incrementStep(targetIsLocal bool, targetVarID int, targetKind symbols.ValueKind, list *expr.ExpressionList) (int, bool) {
	if targetKind == symbols.Str {
		return 0, false
	}
	if len(list.Content) != 2 {
		return 0, false
	}
	a, b := list.Content[0], list.Content[1]
	if a.TrailingOperator != '+' && a.TrailingOperator != '-' {
		return 0, false
	}
	if a.OpenBrackets != 0 || a.CloseBrackets != 0 || b.OpenBrackets != 0 || b.CloseBrackets != 0 {
		return 0, false
	}

	isTarget := func(ct expr.ExpressionContent) bool {
		return ct.Type == expr.ContentVariable && ct.IsLocal == targetIsLocal &&
			ct.Value == targetVarID && ct.ArrKind == targetKind
	}

	switch {
	case isTarget(a) && b.Type == expr.ContentIntConst:
		if a.TrailingOperator == '-' {
			return -b.Value, true
		}
		return b.Value, true
	case a.Type == expr.ContentIntConst && a.TrailingOperator == '+' && isTarget(b):
		return a.Value, true
	default:
		return 0, false
	}
}
