package syntax

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.followtheprocess.codes/scopespace/internal/syntax/token"
)

const (
	indent      = "    " // One level of indentation
	unaryPrec   = 7      // Binding power of prefix operators
	postfixPrec = 8      // Binding power of calls, attributes and indexes
)

// String implements [fmt.Stringer] for a [Program], returning its canonical formatting.
//
// Comments are kept, each one either on its own line or trailing the code it
// followed. Blank lines the author left are not.
func (p Program) String() string {
	printer := &printer{comments: p.Comments}
	printer.stmts(p.Statements, 0, math.MaxInt)
	printer.ownLine(math.MaxInt, 0)
	return printer.String()
}

// FormatExpr returns the canonical source text of an expression.
func FormatExpr(expr Expr) string {
	builder := &strings.Builder{}
	writeExpr(builder, expr, token.Lowest)
	return builder.String()
}

// Quote returns s as a double quoted string literal, escaping only what the
// scanner knows how to unescape.
func Quote(s string) string {
	builder := &strings.Builder{}
	builder.WriteByte('"')
	for _, char := range s {
		switch char {
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		case '\n':
			builder.WriteString(`\n`)
		case '\t':
			builder.WriteString(`\t`)
		case '\r':
			builder.WriteString(`\r`)
		default:
			builder.WriteRune(char)
		}
	}
	builder.WriteByte('"')
	return builder.String()
}

// Unquote interprets a double quoted string literal as produced by the scanner, it is
// the inverse of [Quote].
func Unquote(text string) (string, error) {
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return "", fmt.Errorf("malformed string literal %s", text)
	}

	text = text[1 : len(text)-1]
	if !strings.ContainsRune(text, '\\') {
		return text, nil
	}

	builder := &strings.Builder{}
	escaped := false
	for _, char := range text {
		if !escaped {
			if char == '\\' {
				escaped = true
				continue
			}
			builder.WriteRune(char)
			continue
		}

		escaped = false
		switch char {
		case 'n':
			builder.WriteByte('\n')
		case 't':
			builder.WriteByte('\t')
		case 'r':
			builder.WriteByte('\r')
		case '"', '\\':
			builder.WriteRune(char)
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", char)
		}
	}

	if escaped {
		return "", errors.New("string literal ends in an escape")
	}

	return builder.String(), nil
}

// FormatFloat formats a float such that it always reads back as a float, i.e. it
// always has a decimal point.
func FormatFloat(f float64) string {
	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(text, ".NI") {
		// No '.', and not NaN or Inf
		text += ".0"
	}
	return text
}

// isBlockStmt reports whether a statement has a body, these get some vertical
// breathing room when formatted.
func isBlockStmt(stmt Stmt) bool {
	switch stmt.(type) {
	case *WithStmt, *FnStmt, *IfStmt:
		return true
	default:
		return false
	}
}

// printer writes statements along with the comments that sit between them.
type printer struct {
	strings.Builder

	comments []Comment // Comments not yet written, in source order
}

// ownLine writes every pending comment that starts before offset, each on its
// own line indented to depth.
func (p *printer) ownLine(offset, depth int) {
	for len(p.comments) > 0 && p.comments[0].At.Offset < offset {
		p.WriteString(strings.Repeat(indent, depth))
		p.WriteString(p.comments[0].Text)
		p.WriteByte('\n')
		p.comments = p.comments[1:]
	}
}

// trailing writes the next pending comment after the code on the current line,
// if it trailed code in the source and starts before offset.
func (p *printer) trailing(offset int) {
	if len(p.comments) == 0 {
		return
	}

	next := p.comments[0]
	if !next.Trailing || next.At.Offset >= offset {
		return
	}

	p.WriteByte(' ')
	p.WriteString(next.Text)
	p.comments = p.comments[1:]
}

// pending reports whether there are comments waiting to be written that start
// before offset.
func (p *printer) pending(offset int) bool {
	return len(p.comments) > 0 && p.comments[0].At.Offset < offset
}

// stmts writes stmts one per line at depth, end is the offset at which the
// enclosing block closes.
func (p *printer) stmts(stmts []Stmt, depth, end int) {
	for i, stmt := range stmts {
		if i > 0 && (isBlockStmt(stmt) || isBlockStmt(stmts[i-1])) {
			p.WriteByte('\n')
		}

		p.ownLine(stmt.Pos().Offset, depth)
		p.WriteString(strings.Repeat(indent, depth))
		p.stmt(stmt, depth)

		next := end
		if i < len(stmts)-1 {
			next = stmts[i+1].Pos().Offset
		}
		p.trailing(next)
		p.WriteByte('\n')
	}
}

// block writes a brace delimited block, the opening brace goes on the current
// line and the closing one is indented to depth.
func (p *printer) block(block *Block, depth int) {
	if block == nil {
		p.WriteString("{}")
		return
	}

	end := block.Close.Offset
	if len(block.Statements) == 0 && !p.pending(end) {
		p.WriteString("{}")
		return
	}

	p.WriteByte('{')

	first := end
	if len(block.Statements) > 0 {
		first = block.Statements[0].Pos().Offset
	}
	p.trailing(first)
	p.WriteByte('\n')

	p.stmts(block.Statements, depth+1, end)
	p.ownLine(end, depth+1)
	p.WriteString(strings.Repeat(indent, depth))
	p.WriteByte('}')
}

func (p *printer) stmt(stmt Stmt, depth int) {
	switch stmt := stmt.(type) {
	case *AssignStmt:
		writeExpr(&p.Builder, stmt.Target, token.Lowest)
		p.WriteString(" = ")
		writeExpr(&p.Builder, stmt.Value, token.Lowest)
	case *ExprStmt:
		writeExpr(&p.Builder, stmt.X, token.Lowest)
	case *WithStmt:
		p.WriteString("with scope as ")
		p.WriteString(stmt.Name)
		p.WriteByte(' ')
		p.block(stmt.Body, depth)
	case *FnStmt:
		p.WriteString("fn ")
		p.WriteString(stmt.Name)
		p.WriteByte('(')
		p.WriteString(strings.Join(stmt.Params, ", "))
		p.WriteString(") ")
		p.block(stmt.Body, depth)
	case *IfStmt:
		p.WriteString("if ")
		writeExpr(&p.Builder, stmt.Cond, token.Lowest)
		p.WriteByte(' ')
		p.block(stmt.Then, depth)
		switch otherwise := stmt.Else.(type) {
		case *Block:
			p.WriteString(" else ")
			p.block(otherwise, depth)
		case *IfStmt:
			p.WriteString(" else ")
			p.stmt(otherwise, depth)
		}
	case *ReturnStmt:
		p.WriteString("return")
		if stmt.Value != nil {
			p.WriteByte(' ')
			writeExpr(&p.Builder, stmt.Value, token.Lowest)
		}
	case *DelStmt:
		p.WriteString("del ")
		p.WriteString(stmt.Name)
	case *RaiseStmt:
		p.WriteString("raise ")
		writeExpr(&p.Builder, stmt.Value, token.Lowest)
	case *Block:
		p.block(stmt, depth)
	}
}

// writeExpr writes expr, wrapping it in parens if it binds less tightly than prec.
func writeExpr(builder *strings.Builder, expr Expr, prec int) {
	switch expr := expr.(type) {
	case *Ident:
		builder.WriteString(expr.Name)
	case *IntLit:
		builder.WriteString(strconv.FormatInt(expr.Value, 10))
	case *FloatLit:
		builder.WriteString(FormatFloat(expr.Value))
	case *StringLit:
		builder.WriteString(Quote(expr.Value))
	case *BoolLit:
		builder.WriteString(strconv.FormatBool(expr.Value))
	case *NilLit:
		builder.WriteString("nil")
	case *ListLit:
		builder.WriteByte('[')
		writeExprList(builder, expr.Items)
		builder.WriteByte(']')
	case *UnaryExpr:
		if prec > unaryPrec {
			builder.WriteByte('(')
			defer builder.WriteByte(')')
		}
		builder.WriteString(token.Symbol(expr.Op))
		writeExpr(builder, expr.X, unaryPrec)
	case *BinaryExpr:
		opPrec := token.Precedence(expr.Op)
		if opPrec < prec {
			builder.WriteByte('(')
			defer builder.WriteByte(')')
		}
		writeExpr(builder, expr.Left, opPrec)
		builder.WriteByte(' ')
		builder.WriteString(token.Symbol(expr.Op))
		builder.WriteByte(' ')
		// Operators are left associative so an equal precedence right operand
		// needs parens to keep its grouping
		writeExpr(builder, expr.Right, opPrec+1)
	case *CallExpr:
		writeExpr(builder, expr.Fn, postfixPrec)
		builder.WriteByte('(')
		writeExprList(builder, expr.Args)
		builder.WriteByte(')')
	case *AttrExpr:
		writeExpr(builder, expr.X, postfixPrec)
		builder.WriteByte('.')
		builder.WriteString(expr.Name)
	case *IndexExpr:
		writeExpr(builder, expr.X, postfixPrec)
		builder.WriteByte('[')
		writeExpr(builder, expr.Index, token.Lowest)
		builder.WriteByte(']')
	}
}

func writeExprList(builder *strings.Builder, exprs []Expr) {
	for i, expr := range exprs {
		if i > 0 {
			builder.WriteString(", ")
		}
		writeExpr(builder, expr, token.Lowest)
	}
}
