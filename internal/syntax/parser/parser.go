// Package parser implements the scopescript parser.
package parser

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/scanner"
	"go.followtheprocess.codes/scopespace/internal/syntax/token"
)

// ErrParse is a generic parsing error, details on the error are passed
// to the parsers [syntax.ErrorHandler] at the moment it occurs.
var ErrParse = errors.New("parse error")

// Parser is the scopescript parser.
//
// It reports the first syntax error it encounters and stops, the scanner may
// independently report a lexical error further on in the input.
type Parser struct {
	handler    syntax.ErrorHandler // The error handler
	scanner    *scanner.Scanner    // Scanner to generate tokens
	name       string              // Name of the file being parsed
	src        []byte              // Raw source text
	lineStarts []int               // Byte offset of the start of each line
	comments   []syntax.Comment    // Comments seen so far, in source order
	current    token.Token         // Current token under inspection
	next       token.Token         // Next token in the stream
	fnDepth    int                 // How many function bodies deep the parser is
	hadErrors  bool                // Whether we encountered parse errors
}

// New returns a new [Parser].
func New(name string, r io.Reader, handler syntax.ErrorHandler) (*Parser, error) {
	// Scripts are smol, it's okay to read the whole thing
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read from input: %w", err)
	}

	lineStarts := []int{0}
	for i, char := range src {
		if char == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	p := &Parser{
		handler:    handler,
		name:       name,
		src:        src,
		lineStarts: lineStarts,
		scanner:    scanner.New(name, src, handler),
	}

	// Read 2 tokens so current and next are set
	p.advance()
	p.advance()

	return p, nil
}

// Parse parses the input to completion returning a [syntax.Program] and any parsing
// errors encountered.
//
// The returned error will simply signify whether or not there were parse errors,
// the error handler passed to [New] should be preferred.
func (p *Parser) Parse() (syntax.Program, error) {
	program := syntax.Program{
		Name: p.name,
	}

	for !p.hadErrors {
		p.skipSeparators()
		if p.current.Kind == token.EOF {
			break
		}

		stmt := p.parseStatement()
		program.Statements = append(program.Statements, stmt)
		p.endStatement(false)
	}

	// Drain the scanner so its goroutine can exit
	for p.current.Kind != token.EOF {
		p.advance()
	}

	if p.hadErrors {
		return syntax.Program{}, ErrParse
	}

	program.Comments = p.comments

	return program, nil
}

// advance advances the parser by a single token, comments are recorded then skipped.
func (p *Parser) advance() {
	p.current = p.next
	p.next = p.scanner.Scan()
	for p.next.Kind == token.Comment {
		p.comment(p.next)
		p.next = p.scanner.Scan()
	}

	if p.next.Kind == token.Error {
		// The scanner has already reported it
		p.hadErrors = true
	}
}

// comment records a comment token. p.current is the last token before it, the zero
// token if the comment is the first thing in the file.
func (p *Parser) comment(tok token.Token) {
	pos := p.positionOf(tok)
	trailing := p.current.End > 0 && p.positionOf(p.current).Line == pos.Line

	p.comments = append(p.comments, syntax.Comment{
		At:       pos,
		Text:     strings.TrimRightFunc(string(p.src[tok.Start:tok.End]), unicode.IsSpace),
		Trailing: trailing,
	})
}

// expect asserts that the next token is one of the given kinds, emitting a syntax error if not.
//
// The parser is advanced only if the next token is of one of these kinds such that after returning
// p.current will be one of the kinds.
func (p *Parser) expect(kinds ...token.Kind) {
	switch len(kinds) {
	case 0:
		return
	case 1:
		if p.next.Kind != kinds[0] {
			p.errorAt(p.next, fmt.Sprintf("expected %s, got %s", kinds[0], p.next.Kind))
			return
		}
	default:
		if !slices.Contains(kinds, p.next.Kind) {
			p.errorAt(p.next, fmt.Sprintf("expected one of %v, got %s", kinds, p.next.Kind))
			return
		}
	}

	p.advance()
}

// skipSeparators advances past any newlines and semicolons.
func (p *Parser) skipSeparators() {
	for !p.hadErrors && (p.current.Kind == token.Newline || p.current.Kind == token.Semicolon) {
		p.advance()
	}
}

// endStatement checks that the statement just parsed is properly terminated and
// moves the parser on to the terminator.
func (p *Parser) endStatement(inBlock bool) {
	switch p.next.Kind {
	case token.Newline, token.Semicolon, token.EOF:
		p.advance()
	case token.RightBrace:
		if !inBlock {
			p.errorAt(p.next, "unexpected RightBrace outside of a block")
			return
		}
		p.advance()
	default:
		p.errorAt(p.next, fmt.Sprintf("expected newline or ';' after statement, got %s", p.next.Kind))
	}
}

// positionOf returns the position of tok in the input as a [syntax.Position].
func (p *Parser) positionOf(tok token.Token) syntax.Position {
	// The line is the last line that starts at or before the token
	index, found := slices.BinarySearch(p.lineStarts, tok.Start)
	if !found {
		index--
	}
	lineStart := p.lineStarts[index]

	// The column is therefore the number of bytes between the start of the line and the
	// token, +1 because editors columns start at 1. Applying this correction here means
	// you can click a syntax error in the terminal and be taken to a precise location
	startCol := 1 + tok.Start - lineStart
	endCol := max(1+tok.End-lineStart, startCol)

	return syntax.Position{
		Name:     p.name,
		Offset:   tok.Start,
		Line:     index + 1,
		StartCol: startCol,
		EndCol:   endCol,
	}
}

// position returns the position of the current token.
func (p *Parser) position() syntax.Position {
	return p.positionOf(p.current)
}

// errorAt reports a syntax error at the position of tok. Only the first error
// is passed to the handler.
func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.hadErrors {
		return
	}

	p.hadErrors = true

	if p.handler == nil {
		return
	}

	p.handler(p.positionOf(tok), msg)
}

// error reports a syntax error at the current token.
func (p *Parser) error(msg string) {
	p.errorAt(p.current, msg)
}

// errorf calls error with a formatted message.
func (p *Parser) errorf(format string, a ...any) {
	p.error(fmt.Sprintf(format, a...))
}

// text returns the chunk of source text described by the p.current token.
func (p *Parser) text() string {
	return string(p.src[p.current.Start:p.current.End])
}

// parseStatement parses a single statement starting at p.current, leaving p.current
// on the last token of the statement.
func (p *Parser) parseStatement() syntax.Stmt {
	switch p.current.Kind {
	case token.With:
		return p.parseWith()
	case token.Fn:
		return p.parseFn()
	case token.If:
		return p.parseIf()
	case token.Return:
		return p.parseReturn()
	case token.Del:
		return p.parseDel()
	case token.Raise:
		return p.parseRaise()
	default:
		return p.parseSimpleStatement()
	}
}

// parseSimpleStatement parses an assignment or an expression statement.
func (p *Parser) parseSimpleStatement() syntax.Stmt {
	start := p.position()
	expr := p.parseExpr(token.Lowest)

	if p.next.Kind != token.Eq {
		return &syntax.ExprStmt{X: expr}
	}

	switch expr.(type) {
	case *syntax.Ident, *syntax.AttrExpr, *syntax.IndexExpr:
	default:
		p.errorAt(p.next, "cannot assign to "+syntax.FormatExpr(expr))
		return &syntax.ExprStmt{X: expr}
	}

	p.advance() // '=' is now current
	p.advance() // Start of the value

	value := p.parseExpr(token.Lowest)

	return &syntax.AssignStmt{
		At:     start,
		Target: expr,
		Value:  value,
	}
}

// parseBlock parses a brace delimited block of statements, p.current must be the
// opening '{'. It returns with p.current on the closing '}'.
func (p *Parser) parseBlock() *syntax.Block {
	block := &syntax.Block{At: p.position()}
	if p.current.Kind != token.LeftBrace {
		p.errorf("expected %s, got %s", token.LeftBrace, p.current.Kind)
		return block
	}

	p.advance() // Consume the '{'

	for !p.hadErrors {
		p.skipSeparators()

		switch p.current.Kind {
		case token.RightBrace:
			block.Close = p.position()
			return block
		case token.EOF:
			p.errorf("unexpected EOF, expected %s", token.RightBrace)
			return block
		}

		stmt := p.parseStatement()
		block.Statements = append(block.Statements, stmt)

		if p.next.Kind == token.RightBrace {
			p.advance()
			block.Close = p.position()
			return block
		}

		p.endStatement(true)
	}

	return block
}

// parseWith parses a 'with scope as name { ... }' statement.
func (p *Parser) parseWith() *syntax.WithStmt {
	with := &syntax.WithStmt{At: p.position()}

	p.expect(token.Scope)
	p.expect(token.As)
	p.expect(token.Ident)
	with.Name = p.text()
	p.expect(token.LeftBrace)
	with.Body = p.parseBlock()

	return with
}

// parseFn parses a function declaration.
func (p *Parser) parseFn() *syntax.FnStmt {
	fn := &syntax.FnStmt{At: p.position()}

	p.expect(token.Ident)
	fn.Name = p.text()
	p.expect(token.LeftParen)

	if p.next.Kind == token.RightParen {
		p.advance()
	} else {
		for !p.hadErrors {
			p.expect(token.Ident)
			param := p.text()
			if slices.Contains(fn.Params, param) {
				p.errorf("duplicate parameter %s in declaration of %s", param, fn.Name)
				break
			}
			fn.Params = append(fn.Params, param)

			if p.next.Kind == token.Comma {
				p.advance()
				continue
			}

			p.expect(token.RightParen)
			break
		}
	}

	p.expect(token.LeftBrace)

	p.fnDepth++
	fn.Body = p.parseBlock()
	p.fnDepth--

	return fn
}

// parseIf parses an if statement, including any else or else if.
func (p *Parser) parseIf() *syntax.IfStmt {
	stmt := &syntax.IfStmt{At: p.position()}

	p.advance() // Consume the 'if'
	stmt.Cond = p.parseExpr(token.Lowest)
	p.expect(token.LeftBrace)
	stmt.Then = p.parseBlock()

	if p.next.Kind != token.Else {
		return stmt
	}

	p.advance() // 'else' is now current

	if p.next.Kind == token.If {
		p.advance()
		stmt.Else = p.parseIf()
		return stmt
	}

	p.expect(token.LeftBrace)
	stmt.Else = p.parseBlock()

	return stmt
}

// parseReturn parses a return statement.
func (p *Parser) parseReturn() *syntax.ReturnStmt {
	stmt := &syntax.ReturnStmt{At: p.position()}
	if p.fnDepth == 0 {
		p.error("return outside of a function")
		return stmt
	}

	switch p.next.Kind {
	case token.Newline, token.Semicolon, token.EOF, token.RightBrace:
		// Bare return
		return stmt
	}

	p.advance()
	stmt.Value = p.parseExpr(token.Lowest)

	return stmt
}

// parseDel parses a del statement.
func (p *Parser) parseDel() *syntax.DelStmt {
	stmt := &syntax.DelStmt{At: p.position()}
	p.expect(token.Ident)
	stmt.Name = p.text()
	return stmt
}

// parseRaise parses a raise statement.
func (p *Parser) parseRaise() *syntax.RaiseStmt {
	stmt := &syntax.RaiseStmt{At: p.position()}
	p.advance()
	stmt.Value = p.parseExpr(token.Lowest)
	return stmt
}

// parseExpr parses an expression whose binary operators all bind tighter than prec,
// starting at p.current and leaving p.current on its last token.
func (p *Parser) parseExpr(prec int) syntax.Expr {
	left := p.parseUnary()

	for !p.hadErrors && token.Precedence(p.next.Kind) > prec {
		p.advance() // The operator is now current
		op := p.current
		p.advance() // Start of the right hand operand

		right := p.parseExpr(token.Precedence(op.Kind))
		left = &syntax.BinaryExpr{
			At:    p.positionOf(op),
			Op:    op.Kind,
			Left:  left,
			Right: right,
		}
	}

	return left
}

// parseUnary parses a prefix operator expression.
func (p *Parser) parseUnary() syntax.Expr {
	switch p.current.Kind {
	case token.Minus, token.Bang:
		unary := &syntax.UnaryExpr{At: p.position(), Op: p.current.Kind}
		p.advance()
		unary.X = p.parseUnary()
		return unary
	default:
		return p.parsePostfix()
	}
}

// parsePostfix parses calls, attribute lookups and indexes.
func (p *Parser) parsePostfix() syntax.Expr {
	expr := p.parsePrimary()

	for !p.hadErrors {
		switch p.next.Kind {
		case token.LeftParen:
			p.advance()
			call := &syntax.CallExpr{At: p.position(), Fn: expr}
			call.Args = p.parseExprList(token.RightParen)
			expr = call
		case token.Dot:
			p.advance()
			p.expect(token.Ident)
			expr = &syntax.AttrExpr{At: p.position(), X: expr, Name: p.text()}
		case token.LeftBracket:
			p.advance()
			index := &syntax.IndexExpr{At: p.position(), X: expr}
			p.advance()
			index.Index = p.parseExpr(token.Lowest)
			p.expect(token.RightBracket)
			expr = index
		default:
			return expr
		}
	}

	return expr
}

// parseExprList parses a comma separated list of expressions, p.current must be the opening
// token. A trailing comma is allowed. It returns with p.current on closing.
func (p *Parser) parseExprList(closing token.Kind) []syntax.Expr {
	if p.next.Kind == closing {
		p.advance()
		return nil
	}

	var exprs []syntax.Expr
	for !p.hadErrors {
		p.advance()
		exprs = append(exprs, p.parseExpr(token.Lowest))

		if p.next.Kind != token.Comma {
			p.expect(closing)
			break
		}

		p.advance() // ',' is now current
		if p.next.Kind == closing {
			p.advance()
			break
		}
	}

	return exprs
}

// parsePrimary parses literals, names, list literals and parenthesised expressions.
func (p *Parser) parsePrimary() syntax.Expr {
	pos := p.position()

	switch p.current.Kind {
	case token.Int:
		value, err := strconv.ParseInt(p.text(), 10, 64)
		if err != nil {
			p.errorf("bad integer literal %s: out of range", p.text())
		}
		return &syntax.IntLit{At: pos, Value: value}
	case token.Float:
		value, err := strconv.ParseFloat(p.text(), 64)
		if err != nil {
			p.errorf("bad float literal %s: out of range", p.text())
		}
		return &syntax.FloatLit{At: pos, Value: value}
	case token.String:
		value, err := syntax.Unquote(p.text())
		if err != nil {
			p.errorf("bad string literal: %v", err)
		}
		return &syntax.StringLit{At: pos, Value: value}
	case token.True:
		return &syntax.BoolLit{At: pos, Value: true}
	case token.False:
		return &syntax.BoolLit{At: pos, Value: false}
	case token.Nil:
		return &syntax.NilLit{At: pos}
	case token.Ident:
		return &syntax.Ident{At: pos, Name: p.text()}
	case token.LeftBracket:
		return &syntax.ListLit{At: pos, Items: p.parseExprList(token.RightBracket)}
	case token.LeftParen:
		p.advance()
		expr := p.parseExpr(token.Lowest)
		p.expect(token.RightParen)
		return expr
	case token.Error:
		// Already reported by the scanner
		return &syntax.NilLit{At: pos}
	default:
		p.errorf("unexpected %s, expected an expression", p.current.Kind)
		return &syntax.NilLit{At: pos}
	}
}
