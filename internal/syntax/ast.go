package syntax

import "go.followtheprocess.codes/scopespace/internal/syntax/token"

// Node is any node in the scopescript syntax tree.
type Node interface {
	// Pos returns the position in the source at which the node starts.
	Pos() Position
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Program is a single scopescript file as parsed.
type Program struct {
	Name       string    // Name of the file, "<repl>" for REPL input
	Statements []Stmt    // The top level statements in source order
	Comments   []Comment // Every comment in the file, in source order
}

// Comment is a '#' or '//' comment. Comments are not statements, the formatter
// puts them back between statements by their offset.
type Comment struct {
	At       Position // Position of the comment marker
	Text     string   // The comment including its marker, trailing space removed
	Trailing bool     // Whether the comment follows code on the same line
}

// Block is a brace delimited run of statements.
//
// Blocks do not introduce a new scope, only function calls do.
type Block struct {
	At         Position // Position of the opening '{'
	Close      Position // Position of the closing '}'
	Statements []Stmt   // The statements inside the braces
}

// AssignStmt binds the value of an expression to a target.
//
// Target is one of [*Ident], [*AttrExpr] or [*IndexExpr].
type AssignStmt struct {
	At     Position // Position of the target
	Target Expr     // What is being assigned to
	Value  Expr     // The value being assigned
}

// ExprStmt is an expression evaluated for its side effects e.g. a function call.
type ExprStmt struct {
	X Expr // The expression
}

// WithStmt is the "with scope as name { ... }" statement, the bindings
// the body makes at the top level end up in a namespace bound to Name.
type WithStmt struct {
	At   Position // Position of the 'with' keyword
	Name string   // The name the namespace is bound to
	Body *Block   // The captured block
}

// FnStmt declares a named function.
type FnStmt struct {
	At     Position // Position of the 'fn' keyword
	Name   string   // Function name
	Params []string // Parameter names, in order
	Body   *Block   // Function body
}

// IfStmt is an if statement with an optional else.
type IfStmt struct {
	At   Position // Position of the 'if' keyword
	Cond Expr     // The condition
	Then *Block   // Run if Cond is truthy
	Else Stmt     // nil, a *Block or another *IfStmt (else if)
}

// ReturnStmt returns from the enclosing function.
type ReturnStmt struct {
	At    Position // Position of the 'return' keyword
	Value Expr     // The returned value, nil for a bare return
}

// DelStmt removes a binding from the current environment.
type DelStmt struct {
	At   Position // Position of the 'del' keyword
	Name string   // The name to unbind
}

// RaiseStmt aborts execution with an error.
type RaiseStmt struct {
	At    Position // Position of the 'raise' keyword
	Value Expr     // The error message
}

// Ident is a reference to a name.
type Ident struct {
	At   Position // Position of the name
	Name string   // The name itself
}

// IntLit is an integer literal.
type IntLit struct {
	At    Position
	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	At    Position
	Value float64
}

// StringLit is a string literal, Value has had its escapes interpreted.
type StringLit struct {
	At    Position
	Value string
}

// BoolLit is true or false.
type BoolLit struct {
	At    Position
	Value bool
}

// NilLit is nil.
type NilLit struct {
	At Position
}

// ListLit is a list literal e.g. [1, 2, 3].
type ListLit struct {
	At    Position // Position of the '['
	Items []Expr   // The list items
}

// UnaryExpr is a prefix operator applied to an operand.
type UnaryExpr struct {
	At Position   // Position of the operator
	Op token.Kind // token.Minus or token.Bang
	X  Expr       // The operand
}

// BinaryExpr is an infix operator applied to two operands.
type BinaryExpr struct {
	At    Position   // Position of the operator
	Op    token.Kind // The operator
	Left  Expr       // Left hand operand
	Right Expr       // Right hand operand
}

// CallExpr is a function or method call.
type CallExpr struct {
	At   Position // Position of the '('
	Fn   Expr     // The thing being called
	Args []Expr   // Arguments, in order
}

// AttrExpr is an attribute lookup e.g. ns.x or list.append.
type AttrExpr struct {
	At   Position // Position of the attribute name
	X    Expr     // The value whose attribute is being looked up
	Name string   // The attribute name
}

// IndexExpr is an index e.g. list[0].
type IndexExpr struct {
	At    Position // Position of the '['
	X     Expr     // The value being indexed
	Index Expr     // The index
}

func (b *Block) Pos() Position      { return b.At }
func (s *AssignStmt) Pos() Position { return s.At }
func (s *ExprStmt) Pos() Position   { return s.X.Pos() }
func (s *WithStmt) Pos() Position   { return s.At }
func (s *FnStmt) Pos() Position     { return s.At }
func (s *IfStmt) Pos() Position     { return s.At }
func (s *ReturnStmt) Pos() Position { return s.At }
func (s *DelStmt) Pos() Position    { return s.At }
func (s *RaiseStmt) Pos() Position  { return s.At }
func (e *Ident) Pos() Position      { return e.At }
func (e *IntLit) Pos() Position     { return e.At }
func (e *FloatLit) Pos() Position   { return e.At }
func (e *StringLit) Pos() Position  { return e.At }
func (e *BoolLit) Pos() Position    { return e.At }
func (e *NilLit) Pos() Position     { return e.At }
func (e *ListLit) Pos() Position    { return e.At }
func (e *UnaryExpr) Pos() Position  { return e.At }
func (e *BinaryExpr) Pos() Position { return e.At }
func (e *CallExpr) Pos() Position   { return e.At }
func (e *AttrExpr) Pos() Position   { return e.At }
func (e *IndexExpr) Pos() Position  { return e.At }

func (*Block) stmtNode()      {}
func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}
func (*WithStmt) stmtNode()   {}
func (*FnStmt) stmtNode()     {}
func (*IfStmt) stmtNode()     {}
func (*ReturnStmt) stmtNode() {}
func (*DelStmt) stmtNode()    {}
func (*RaiseStmt) stmtNode()  {}

func (*Ident) exprNode()      {}
func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NilLit) exprNode()     {}
func (*ListLit) exprNode()    {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}
func (*AttrExpr) exprNode()   {}
func (*IndexExpr) exprNode()  {}
