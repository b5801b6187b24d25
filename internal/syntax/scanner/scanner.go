// Package scanner implements the lexical scanner for scopescript files.
package scanner

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/token"
)

const (
	bufferSize = 32       // Benchmarking suggests this as the best token buffer size
	eof        = rune(-1) // eof signifies we have reached the end of the input
)

// bom is the UTF-8 byte order mark, skipped if present at the very start of the input.
var bom = []byte("\ufeff")

// scanFn represents the state of the scanner as a function that returns the next state.
type scanFn func(*Scanner) scanFn

// Scanner is the scopescript scanner.
type Scanner struct {
	handler   syntax.ErrorHandler // The error handler, if any
	tokens    chan token.Token    // Channel on which to emit scanned tokens
	name      string              // Name of the file
	src       []byte              // Raw source text
	start     int                 // The start position of the current token
	pos       int                 // Current scanner position in src (bytes, 0 indexed)
	line      int                 // Current line number (1 indexed)
	lineStart int                 // Offset at which the current line started
	depth     int                 // Nesting depth of '(' and '[', newlines are insignificant when > 0
	hadErrors bool                // Whether any syntax error was reported
	failed    bool                // Whether a token.Error has been emitted
}

// New returns a new [Scanner] that scans src.
//
// The scanner runs in its own goroutine, callers must call [Scanner.Scan] until it
// returns [token.EOF] to let it finish.
func New(name string, src []byte, handler syntax.ErrorHandler) *Scanner {
	s := &Scanner{
		handler: handler,
		tokens:  make(chan token.Token, bufferSize),
		name:    name,
		src:     src,
		line:    1,
	}

	if bytes.HasPrefix(src, bom) {
		s.pos = len(bom)
		s.start = s.pos
		s.lineStart = s.pos
	}

	// run terminates when the scanning state machine is finished and all the tokens
	// drained from s.tokens so no wg.Add needed here
	go s.run()
	return s
}

// Scan scans the input and returns the next token.
//
// Once the input is exhausted it returns [token.EOF] forever.
func (s *Scanner) Scan() token.Token {
	tok, ok := <-s.tokens
	if !ok {
		return token.Token{Kind: token.EOF, Start: len(s.src), End: len(s.src)}
	}
	return tok
}

// next returns, and consumes, the next character in the input or [eof].
func (s *Scanner) next() rune {
	if s.pos >= len(s.src) {
		return eof
	}

	char, width := utf8.DecodeRune(s.src[s.pos:])
	if char == utf8.RuneError && width <= 1 {
		s.errorf("invalid utf8 char: %U", char)
		// Advance to the end to prevent cascade errors
		s.pos = len(s.src)
		return eof
	}

	s.pos += width
	if char == '\n' {
		s.line++
		s.lineStart = s.pos
	}

	return char
}

// peek returns, but does not consume, the character after the current one or [eof].
func (s *Scanner) peek() rune {
	if s.pos >= len(s.src) {
		return eof
	}

	_, width := utf8.DecodeRune(s.src[s.pos:])

	peekPos := s.pos + width
	if peekPos >= len(s.src) {
		return eof
	}

	peekChar, _ := utf8.DecodeRune(s.src[peekPos:])

	return peekChar
}

// char returns the character the scanner is currently sat on or [eof].
func (s *Scanner) char() rune {
	if s.pos >= len(s.src) {
		return eof
	}
	char, _ := utf8.DecodeRune(s.src[s.pos:])
	return char
}

// skip ignores any characters for which the predicate returns true, stopping at the
// first one that returns false such that after it returns, s.char returns the
// first 'false' char.
//
// The scanner start position is brought up to the current position before returning, effectively
// ignoring everything it's travelled over in the meantime.
func (s *Scanner) skip(predicate func(r rune) bool) {
	for s.char() != eof && predicate(s.char()) {
		s.next()
	}
	s.start = s.pos
}

// emit passes a token over the tokens channel, using the scanner's internal
// state to populate position information.
func (s *Scanner) emit(kind token.Kind) {
	s.tokens <- token.Token{
		Kind:  kind,
		Start: s.start,
		End:   s.pos,
	}
	s.start = s.pos
}

// run starts the state machine for the scanner, it runs with each [scanFn] returning the next
// state until one returns nil (typically an error or eof), at which point the tokens channel
// is closed as a signal to the receiver that no more tokens will be sent.
func (s *Scanner) run() {
	for state := scanStart; state != nil; {
		state = state(s)
	}

	// Some errors (e.g. bad utf-8) are found mid token, make sure the receiver
	// still sees that the input was bad
	if s.hadErrors && !s.failed {
		s.emit(token.Error)
	}

	s.tokens <- token.Token{Kind: token.EOF, Start: s.pos, End: s.pos}
	close(s.tokens)
}

// error calculates the position information and arranges for s.handler to be called
// with the information.
func (s *Scanner) error(msg string) {
	s.hadErrors = true
	if s.handler == nil {
		return
	}

	// Column is the number of bytes between the last newline and the current position
	// +1 because columns are 1 indexed
	startCol := 1 + s.start - s.lineStart
	endCol := 1 + s.pos - s.lineStart

	// A token that spans lines (e.g. an unterminated string) reports from
	// the start of the current line
	if startCol < 1 {
		startCol = 1
	}
	endCol = max(endCol, startCol)

	position := syntax.Position{
		Name:     s.name,
		Offset:   s.start,
		Line:     s.line,
		StartCol: startCol,
		EndCol:   endCol,
	}

	s.handler(position, msg)
}

// errorf calls error with a formatted message.
func (s *Scanner) errorf(format string, a ...any) {
	s.error(fmt.Sprintf(format, a...))
}

// fail reports a syntax error, emits an [token.Error] and stops the state machine.
func (s *Scanner) fail(format string, a ...any) scanFn {
	s.errorf(format, a...)
	s.emit(token.Error)
	s.failed = true
	return nil
}

// scanStart is the initial state of the scanner.
func scanStart(s *Scanner) scanFn {
	s.skip(isLineSpace)

	char := s.char()
	switch char {
	case eof:
		return nil // Break the state machine
	case '\n':
		return scanNewline
	case '#':
		return scanComment
	case '/':
		if s.peek() == '/' {
			return scanComment
		}
		return scanOperator
	case '"':
		return scanString
	default:
		switch {
		case isDigit(char):
			return scanNumber
		case isAlpha(char) || char == '_':
			return scanIdent
		default:
			return scanOperator
		}
	}
}

// scanNewline scans a run of newlines (and any whitespace between them), emitting
// a single [token.Newline] unless inside brackets, where newlines are insignificant.
func scanNewline(s *Scanner) scanFn {
	s.next() // Consume the '\n'

	if s.depth > 0 {
		s.start = s.pos
		return scanStart
	}

	s.emit(token.Newline)
	s.skip(isSpace)
	return scanStart
}

// scanComment scans a '#' or '//' comment up to (but not including) the end of the line.
func scanComment(s *Scanner) scanFn {
	for s.char() != '\n' && s.char() != eof {
		s.next()
	}

	s.emit(token.Comment)
	return scanStart
}

// scanString scans a double quoted string literal. The emitted token includes the
// quotes, escapes are interpreted by [syntax.Unquote].
func scanString(s *Scanner) scanFn {
	s.next() // Consume the opening '"'

	for {
		switch char := s.char(); char {
		case eof, '\n':
			return s.fail("unterminated string literal")
		case '\\':
			s.next() // Consume the '\'
			if !isEscape(s.char()) {
				s.next()
				return s.fail("invalid escape sequence in string literal")
			}
			s.next()
		case '"':
			s.next() // Consume the closing '"'
			s.emit(token.String)
			return scanStart
		default:
			s.next()
		}
	}
}

// scanNumber scans an integer or float literal.
func scanNumber(s *Scanner) scanFn {
	for isDigit(s.char()) {
		s.next()
	}

	if s.char() != '.' {
		s.emit(token.Int)
		return scanStart
	}

	s.next() // Consume the '.'
	if !isDigit(s.char()) {
		return s.fail("bad number literal")
	}

	for isDigit(s.char()) {
		s.next()
	}

	s.emit(token.Float)
	return scanStart
}

// scanIdent scans an identifier or keyword.
func scanIdent(s *Scanner) scanFn {
	for isIdent(s.char()) {
		s.next()
	}

	kind, _ := token.Keyword(string(s.src[s.start:s.pos]))
	s.emit(kind)
	return scanStart
}

// scanOperator scans punctuation and operators.
func scanOperator(s *Scanner) scanFn {
	char := s.next()

	var kind token.Kind
	switch char {
	case '(':
		s.depth++
		kind = token.LeftParen
	case ')':
		s.depth = max(s.depth-1, 0)
		kind = token.RightParen
	case '[':
		s.depth++
		kind = token.LeftBracket
	case ']':
		s.depth = max(s.depth-1, 0)
		kind = token.RightBracket
	case '{':
		kind = token.LeftBrace
	case '}':
		kind = token.RightBrace
	case ',':
		kind = token.Comma
	case '.':
		kind = token.Dot
	case ';':
		kind = token.Semicolon
	case '+':
		kind = token.Plus
	case '-':
		kind = token.Minus
	case '*':
		kind = token.Star
	case '/':
		kind = token.Slash
	case '%':
		kind = token.Percent
	case '=':
		kind = s.either('=', token.EqEq, token.Eq)
	case '!':
		kind = s.either('=', token.BangEq, token.Bang)
	case '<':
		kind = s.either('=', token.LessEq, token.Less)
	case '>':
		kind = s.either('=', token.GreaterEq, token.Greater)
	case '&':
		if s.char() != '&' {
			return s.fail("unexpected character %q, did you mean %q?", "&", "&&")
		}
		s.next()
		kind = token.And
	case '|':
		if s.char() != '|' {
			return s.fail("unexpected character %q, did you mean %q?", "|", "||")
		}
		s.next()
		kind = token.Or
	case eof:
		return nil
	default:
		return s.fail("unexpected character %q", string(char))
	}

	s.emit(kind)
	return scanStart
}

// either consumes the next character and returns yes if it is want, otherwise it
// consumes nothing and returns no.
func (s *Scanner) either(want rune, yes, no token.Kind) token.Kind {
	if s.char() == want {
		s.next()
		return yes
	}
	return no
}

// isLineSpace reports whether r is a non line terminating whitespace character,
// imagine [unicode.IsSpace] but without '\n'.
func isLineSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}

// isSpace reports whether r is any whitespace character including newlines.
func isSpace(r rune) bool {
	return isLineSpace(r) || r == '\n'
}

// isAlpha reports whether r is an alpha character.
func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isIdent reports whether r is a valid identifier character.
func isIdent(r rune) bool {
	return isAlpha(r) || isDigit(r) || r == '_'
}

// isDigit reports whether r is a valid ASCII digit.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isEscape reports whether r may follow a '\' in a string literal.
func isEscape(r rune) bool {
	switch r {
	case 'n', 't', 'r', '"', '\\':
		return true
	default:
		return false
	}
}
