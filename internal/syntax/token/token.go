// Package token provides the set of lexical tokens for a scopescript file.
package token

import "fmt"

// Kind is the kind of a token.
type Kind int

const (
	EOF          Kind = iota // EOF
	Error                    // Error
	Comment                  // Comment
	Newline                  // Newline
	Ident                    // Ident
	Int                      // Int
	Float                    // Float
	String                   // String
	LeftParen                // LeftParen
	RightParen               // RightParen
	LeftBracket              // LeftBracket
	RightBracket             // RightBracket
	LeftBrace                // LeftBrace
	RightBrace               // RightBrace
	Comma                    // Comma
	Dot                      // Dot
	Semicolon                // Semicolon
	Eq                       // Eq
	EqEq                     // EqEq
	Bang                     // Bang
	BangEq                   // BangEq
	Less                     // Less
	LessEq                   // LessEq
	Greater                  // Greater
	GreaterEq                // GreaterEq
	Plus                     // Plus
	Minus                    // Minus
	Star                     // Star
	Slash                    // Slash
	Percent                  // Percent
	And                      // And
	Or                       // Or
	With                     // With
	Scope                    // Scope
	As                       // As
	Fn                       // Fn
	Return                   // Return
	Del                      // Del
	Raise                    // Raise
	If                       // If
	Else                     // Else
	True                     // True
	False                    // False
	Nil                      // Nil
)

var kindNames = [...]string{
	EOF:          "EOF",
	Error:        "Error",
	Comment:      "Comment",
	Newline:      "Newline",
	Ident:        "Ident",
	Int:          "Int",
	Float:        "Float",
	String:       "String",
	LeftParen:    "LeftParen",
	RightParen:   "RightParen",
	LeftBracket:  "LeftBracket",
	RightBracket: "RightBracket",
	LeftBrace:    "LeftBrace",
	RightBrace:   "RightBrace",
	Comma:        "Comma",
	Dot:          "Dot",
	Semicolon:    "Semicolon",
	Eq:           "Eq",
	EqEq:         "EqEq",
	Bang:         "Bang",
	BangEq:       "BangEq",
	Less:         "Less",
	LessEq:       "LessEq",
	Greater:      "Greater",
	GreaterEq:    "GreaterEq",
	Plus:         "Plus",
	Minus:        "Minus",
	Star:         "Star",
	Slash:        "Slash",
	Percent:      "Percent",
	And:          "And",
	Or:           "Or",
	With:         "With",
	Scope:        "Scope",
	As:           "As",
	Fn:           "Fn",
	Return:       "Return",
	Del:          "Del",
	Raise:        "Raise",
	If:           "If",
	Else:         "Else",
	True:         "True",
	False:        "False",
	Nil:          "Nil",
}

// String returns the name of the [Kind].
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Token is a lexical token in a scopescript file.
type Token struct {
	Kind  Kind // The kind of token this is
	Start int  // Byte offset from the start of the file to the start of this token
	End   int  // Byte offset from the start of the file to the end of this token
}

// String returns a string representation of a [Token].
func (t Token) String() string {
	return fmt.Sprintf("<Token::%s start=%d, end=%d>", t.Kind, t.Start, t.End)
}

var keywords = map[string]Kind{
	"with":   With,
	"scope":  Scope,
	"as":     As,
	"fn":     Fn,
	"return": Return,
	"del":    Del,
	"raise":  Raise,
	"if":     If,
	"else":   Else,
	"true":   True,
	"false":  False,
	"nil":    Nil,
}

// Keyword reports whether text is a reserved word, returning it's
// [Kind] and true if it is. Otherwise [Ident] and false are returned.
func Keyword(text string) (kind Kind, ok bool) {
	kind, ok = keywords[text]
	if !ok {
		return Ident, false
	}
	return kind, true
}

// IsKeyword reports whether the given kind is a reserved word.
func IsKeyword(kind Kind) bool {
	return kind >= With && kind <= Nil
}

// Keywords returns every reserved word, in no particular order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for word := range keywords {
		words = append(words, word)
	}
	return words
}

// Lowest is the binding power of anything that is not a binary operator.
const Lowest = 0

// Precedence returns the binding power of a binary operator, higher binds
// tighter. Non binary operators return [Lowest].
func Precedence(kind Kind) int {
	switch kind {
	case Or:
		return 1
	case And:
		return 2
	case EqEq, BangEq:
		return 3
	case Less, LessEq, Greater, GreaterEq:
		return 4
	case Plus, Minus:
		return 5
	case Star, Slash, Percent:
		return 6
	default:
		return Lowest
	}
}

var symbols = map[Kind]string{
	Eq:        "=",
	EqEq:      "==",
	Bang:      "!",
	BangEq:    "!=",
	Less:      "<",
	LessEq:    "<=",
	Greater:   ">",
	GreaterEq: ">=",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Slash:     "/",
	Percent:   "%",
	And:       "&&",
	Or:        "||",
}

// Symbol returns the source text of an operator kind e.g. "+" for [Plus], or
// the empty string if kind is not an operator.
func Symbol(kind Kind) string {
	return symbols[kind]
}
