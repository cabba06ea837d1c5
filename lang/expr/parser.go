package expr

import (
	"fmt"

	"github.com/ukw100/nic/lang/lexer"
	"github.com/ukw100/nic/lang/symbols"
	"github.com/ukw100/nic/lang/token"
)

// BuiltinLookup resolves a built-in function by name, returning its index,
// min/max arity and whether it returns void, or ok=false if not a built-in.
type BuiltinLookup func(name string) (index, min, max int, isVoid, ok bool)

// Parser turns one line of infix source into an ExpressionList. Lowering of
// nested sub-expressions (function arguments, array subscripts) into postfix
// slots and argument blocks is delegated to the callbacks below so this
// package has no dependency on lang/postfix or lang/argblock.
type Parser struct {
	Lex      *lexer.Lexer
	Globals  *symbols.Table
	Locals   *symbols.Table // nil when parsing at top level (outside any function)
	Consts   *symbols.ConstTable
	Builtins BuiltinLookup
	Funcs    *symbols.FunctionTable

	// LowerExpr recursively parses, builds and optimises a nested expression
	// (array index, one call argument) into a postfix slot, returning its id
	// and the parse status (used to detect void-function-as-argument).
	LowerExpr func(p *Parser, flag Flag) (slot int, status Status, err error)
	// LowerArgs bundles already-lowered argument postfix slots for a call
	// site into an argument block, returning its id. funcIndex is -1 for a
	// forward (not-yet-defined) reference; builtin selects which table
	// funcIndex addresses.
	LowerArgs func(funcIndex int, builtin bool, argSlots []int) (argBlock int, err error)
}

// Parse consumes tokens from p.Lex until the expression ends (either at the
// natural end of line/bracket nesting, or — for FlagAwaitCompareOperator /
// FlagAwaitTo / FlagAwaitStep — at the keyword/operator that mode expects).
func (p *Parser) Parse(flag Flag) (*ExpressionList, error) {
	list := &ExpressionList{}

	for {
		content, err := p.parseUnaryOperand(list)
		if err != nil {
			return nil, err
		}

		save := p.Lex.Pos()
		tok, terr := p.Lex.Next(false)
		if terr != nil {
			return nil, terr
		}

		if flag == FlagAwaitCompareOperator {
			if st, ok := compareStatus(tok); ok {
				list.Content = append(list.Content, content)
				list.Status = st
				return list, nil
			}
		}
		if flag == FlagAwaitTo && tok.Kind == token.Identifier && tok.Text == "to" {
			list.Content = append(list.Content, content)
			list.Status = NoError
			return list, nil
		}
		if flag == FlagAwaitStep && tok.Kind == token.Identifier && tok.Text == "step" {
			list.Content = append(list.Content, content)
			list.Status = NoError
			return list, nil
		}

		if tok.Kind == token.Operator {
			content.TrailingOperator = rune(tok.Text[0])
			list.Content = append(list.Content, content)
			continue
		}

		// anything else ends the expression; push the token back.
		p.Lex.SetPos(save)
		list.Content = append(list.Content, content)

		switch flag {
		case FlagAwaitCompareOperator:
			list.Status = NoCompareOperator
			return list, fmt.Errorf("expr: expected compare operator, got %s", tok.Kind)
		case FlagAwaitTo:
			return list, fmt.Errorf("expr: expected 'to' keyword")
		case FlagAwaitStep:
			// a step clause is optional; running off the end of the line is a
			// normal way for this mode to finish, not an error.
			if tok.Kind != token.Empty {
				return list, fmt.Errorf("expr: expected 'step' keyword")
			}
		}
		list.Status = NoError
		for _, c := range list.Content {
			if c.Type == ContentCall && c.IsVoid {
				list.Status = FunctionReturningVoid
			}
		}
		return list, nil
	}
}

// parseUnaryOperand parses one operand, including surrounding parentheses
// and an optional leading unary '-'/'~'. A unary operator is realised per
// spec.md §4.3 by synthesising an IntConst(0) element ahead of the operand
// and routing the operator as that synthetic element's trailing operator,
// i.e. "(0 - x)"; double unary ("--x", "~~x") is rejected.
func (p *Parser) parseUnaryOperand(list *ExpressionList) (ExpressionContent, error) {
	// depth counts the brackets this expression has opened and not yet
	// closed; a ')' beyond it belongs to an enclosing call.
	depth := 0
	for _, c := range list.Content {
		depth += c.OpenBrackets - c.CloseBrackets
	}
	openBrackets := 0
	for {
		save := p.Lex.Pos()
		tok, err := p.Lex.Next(false)
		if err != nil {
			return ExpressionContent{}, err
		}
		if tok.Kind == token.OpenBracket {
			openBrackets++
			continue
		}
		p.Lex.SetPos(save)
		break
	}

	unaryOp, err := p.peekUnaryOperator()
	if err != nil {
		return ExpressionContent{}, err
	}

	if unaryOp != 0 {
		zero := ExpressionContent{Type: ContentIntConst, FipSlot: -1, OpenBrackets: openBrackets + 1, TrailingOperator: unaryOp}
		list.Content = append(list.Content, zero)

		content, err := p.parseOperandAfterUnary()
		if err != nil {
			return ExpressionContent{}, err
		}
		content.CloseBrackets++
		content.CloseBrackets += p.consumeCloseBrackets(depth + openBrackets)
		return content, nil
	}

	content, err := p.parseOperandAfterUnary()
	if err != nil {
		return ExpressionContent{}, err
	}
	content.OpenBrackets += openBrackets
	content.CloseBrackets += p.consumeCloseBrackets(depth + openBrackets)
	return content, nil
}

// peekUnaryOperator consumes a leading '-' or '~' if present (and not part of
// a signed numeric literal, which the lexer already folds), rejecting a
// doubled unary operator.
func (p *Parser) peekUnaryOperator() (rune, error) {
	save := p.Lex.Pos()
	tok, err := p.Lex.Next(true)
	if err != nil {
		return 0, err
	}
	if tok.Kind != token.Operator || (tok.Text != "-" && tok.Text != "~") {
		p.Lex.SetPos(save)
		return 0, nil
	}

	save2 := p.Lex.Pos()
	tok2, err := p.Lex.Next(true)
	if err != nil {
		return 0, err
	}
	p.Lex.SetPos(save2)
	if tok2.Kind == token.Operator && (tok2.Text == "-" || tok2.Text == "~") {
		return 0, fmt.Errorf("expr: double unary operator %q%q is not allowed", tok.Text, tok2.Text)
	}
	return rune(tok.Text[0]), nil
}

// consumeCloseBrackets consumes at most limit ')' tokens, leaving any further
// one (such as the closing bracket of an enclosing call) for the caller.
func (p *Parser) consumeCloseBrackets(limit int) int {
	n := 0
	for n < limit {
		save := p.Lex.Pos()
		tok, err := p.Lex.Next(false)
		if err != nil || tok.Kind != token.CloseBracket {
			p.Lex.SetPos(save)
			return n
		}
		n++
	}
	return n
}

func compareStatus(tok token.Token) (Status, bool) {
	switch tok.Kind {
	case token.Equal:
		return CompareEqual, true
	case token.NotEqual:
		return CompareNotEqual, true
	case token.Less:
		return CompareLess, true
	case token.LessEqual:
		return CompareLessEqual, true
	case token.Greater:
		return CompareGreater, true
	case token.GreaterEqual:
		return CompareGreaterEqual, true
	default:
		return NoError, false
	}
}

// parseOperandAfterUnary parses an int/string literal, a further
// parenthesised sub-expression, a variable (scalar or array), or a function
// call — i.e. everything parseUnaryOperand delegates to once any leading
// unary operator and opening parens are consumed.
func (p *Parser) parseOperandAfterUnary() (ExpressionContent, error) {
	for {
		save := p.Lex.Pos()
		tok, err := p.Lex.Next(false)
		if err != nil {
			return ExpressionContent{}, err
		}
		if tok.Kind == token.OpenBracket {
			// nested parens around the operand; fold into the same operand by
			// looping (the matching close is consumed by consumeCloseBrackets
			// at the call site once we return).
			continue
		}
		p.Lex.SetPos(save)
		break
	}

	tok, err := p.Lex.Next(true)
	if err != nil {
		return ExpressionContent{}, err
	}

	switch tok.Kind {
	case token.Int:
		return ExpressionContent{Type: ContentIntConst, Value: tok.IntValue, FipSlot: -1}, nil
	case token.String:
		return ExpressionContent{Type: ContentStrConst, Str: tok.Text, Value: -1, FipSlot: -1}, nil
	case token.Identifier:
		return p.parseIdentifier(tok.Text)
	default:
		return ExpressionContent{}, fmt.Errorf("expr: unexpected token %s", tok.Kind)
	}
}

func (p *Parser) parseIdentifier(name string) (ExpressionContent, error) {
	if p.Consts != nil {
		if v, ok := p.Consts.LookupInt(name); ok {
			return ExpressionContent{Type: ContentIntConst, Value: v, FipSlot: -1}, nil
		}
		if slot, ok := p.Consts.LookupStr(name); ok {
			return ExpressionContent{Type: ContentStrConst, Value: slot, FipSlot: -1}, nil
		}
	}

	save := p.Lex.Pos()
	tok, err := p.Lex.Next(false)
	if err != nil {
		return ExpressionContent{}, err
	}
	switch tok.Kind {
	case token.OpenBracket:
		return p.parseCall(name)
	case token.OpenSquare:
		return p.parseArrayAccess(name)
	default:
		p.Lex.SetPos(save)
		return p.parsePlainVariable(name)
	}
}

func (p *Parser) parsePlainVariable(name string) (ExpressionContent, error) {
	lookup := func(tbl *symbols.Table, isLocal bool) (ExpressionContent, bool, error) {
		if tbl == nil {
			return ExpressionContent{}, false, nil
		}
		s, idx, kind, ok := tbl.LookupAnyKind(name)
		if !ok {
			return ExpressionContent{}, false, nil
		}
		s.UsedCount++
		if s.IsArray {
			if kind != symbols.Byte {
				return ExpressionContent{}, true, fmt.Errorf("expr: %q is an array and requires an index", name)
			}
			return ExpressionContent{Type: ContentVariable, Value: idx, FipSlot: -1, ArrKind: kind, IsLocal: isLocal, IsBytePtr: true}, true, nil
		}
		return ExpressionContent{Type: ContentVariable, Value: idx, FipSlot: -1, ArrKind: kind, IsLocal: isLocal}, true, nil
	}

	if c, found, err := lookup(p.Locals, true); found {
		return c, err
	}
	if c, found, err := lookup(p.Globals, false); found {
		return c, err
	}
	return ExpressionContent{}, fmt.Errorf("expr: undeclared variable %q", name)
}

func (p *Parser) parseArrayAccess(name string) (ExpressionContent, error) {
	idxSlot, _, err := p.LowerExpr(p, FlagNone)
	if err != nil {
		return ExpressionContent{}, err
	}
	tok, err := p.Lex.Next(false)
	if err != nil {
		return ExpressionContent{}, err
	}
	if tok.Kind != token.CloseSquare {
		return ExpressionContent{}, fmt.Errorf("expr: expected ']' after array index")
	}

	var s *symbols.Scalar
	var idx int
	var kind symbols.ValueKind
	var ok bool
	isLocal := false
	if p.Locals != nil {
		s, idx, kind, ok = p.Locals.LookupAnyKind(name)
		isLocal = ok
	}
	if !ok {
		s, idx, kind, ok = p.Globals.LookupAnyKind(name)
	}
	if !ok {
		return ExpressionContent{}, fmt.Errorf("expr: undeclared array %q", name)
	}
	if !s.IsArray {
		return ExpressionContent{}, fmt.Errorf("expr: %q is not an array", name)
	}
	s.UsedCount++
	return ExpressionContent{Type: ContentArrayVariable, Value: idx, FipSlot: idxSlot, ArrKind: kind, IsLocal: isLocal}, nil
}

func (p *Parser) parseCall(name string) (ExpressionContent, error) {
	var argSlots []int
	save := p.Lex.Pos()
	tok, err := p.Lex.Next(false)
	if err != nil {
		return ExpressionContent{}, err
	}
	if tok.Kind == token.CloseBracket {
		// no arguments
	} else {
		p.Lex.SetPos(save)
		for {
			slot, status, err := p.LowerExpr(p, FlagNone)
			if err != nil {
				return ExpressionContent{}, err
			}
			if status == FunctionReturningVoid {
				return ExpressionContent{}, fmt.Errorf("expr: cannot use void function's result as an argument of %q", name)
			}
			argSlots = append(argSlots, slot)

			tok, err = p.Lex.Next(false)
			if err != nil {
				return ExpressionContent{}, err
			}
			if tok.Kind == token.Comma {
				continue
			}
			if tok.Kind == token.CloseBracket {
				break
			}
			return ExpressionContent{}, fmt.Errorf("expr: expected ',' or ')' in argument list of %q", name)
		}
	}

	if p.Builtins != nil {
		if idx, min, max, isVoid, ok := p.Builtins(name); ok {
			if len(argSlots) < min || len(argSlots) > max {
				return ExpressionContent{}, fmt.Errorf("expr: %q expects between %d and %d arguments, got %d", name, min, max, len(argSlots))
			}
			ab, err := p.LowerArgs(idx, true, argSlots)
			if err != nil {
				return ExpressionContent{}, err
			}
			return ExpressionContent{Type: ContentCall, Value: idx, FipSlot: ab, IsBuiltin: true, IsVoid: isVoid}, nil
		}
	}

	if fn, ok := p.Funcs.Lookup(name); ok {
		if len(argSlots) != len(fn.ArgKinds) {
			return ExpressionContent{}, fmt.Errorf("expr: %q expects %d arguments, got %d", name, len(fn.ArgKinds), len(argSlots))
		}
		ab, err := p.LowerArgs(fn.Index, false, argSlots)
		if err != nil {
			return ExpressionContent{}, err
		}
		fn.UsedCount++
		return ExpressionContent{Type: ContentCall, Value: fn.Index, FipSlot: ab, IsVoid: fn.IsVoid}, nil
	}

	// forward reference: neither a built-in nor (yet) a defined function.
	ab, err := p.LowerArgs(-1, false, argSlots)
	if err != nil {
		return ExpressionContent{}, err
	}
	return ExpressionContent{Type: ContentCall, Value: -1, FipSlot: ab, IsUndefined: true, UndefinedName: name}, nil
}
