// Package eval implements the scopescript interpreter.
//
// It walks the syntax tree produced by the parser, keeping the top-level variables in an
// explicit global [Env] which also serves as the table for the interpreter's [scope.Space],
// a "with scope as name" statement opens a capture on that space for the duration of its block.
package eval

import (
	"errors"
	"fmt"
	"io"
	"math"

	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/scopespace/internal/scope"
	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/token"
)

// maxCallDepth is the deepest function calls may nest before the interpreter gives up.
const maxCallDepth = 512

// ErrRaised is wrapped by the [Error] returned when a script executes a raise statement.
var ErrRaised = errors.New("raised")

// Error is a runtime error in a scopescript program.
type Error struct {
	Err error           // The underlying cause, if any
	Msg string          // Human readable description
	Pos syntax.Position // Where in the source the error occurred
}

// Error implements the error interface for [Error].
func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// errorf returns a new [Error] at pos.
func errorf(pos syntax.Position, format string, a ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, a...)}
}

// errorAt attaches pos to err, unless it already has a position.
func errorAt(pos syntax.Position, err error) error {
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{Pos: pos, Msg: err.Error(), Err: err}
}

// Interpreter executes scopescript programs.
//
// Globals persist across calls to [Interpreter.Exec] so a REPL can feed it one
// input at a time.
type Interpreter struct {
	stdout   io.Writer           // Where print writes to
	logger   *log.Logger         // Debug logs
	builtins map[string]*Builtin // Builtin functions
	globals  *Env                // The top-level binding table
	space    *scope.Space[Value] // Scope captures on globals
	depth    int                 // Current function call depth
}

// New returns a new [Interpreter] with an empty global environment.
func New(stdout io.Writer, logger *log.Logger) *Interpreter {
	globals := NewEnv(nil)

	wrap := func(ns *scope.Namespace[Value]) Value {
		return NewNamespace(ns)
	}

	return &Interpreter{
		stdout:   stdout,
		logger:   logger.Prefixed("eval"),
		builtins: builtins(),
		globals:  globals,
		space:    scope.New[Value](globals, wrap, logger),
	}
}

// Globals returns the interpreter's global environment.
func (i *Interpreter) Globals() *Env {
	return i.globals
}

// Reset clears every global variable.
func (i *Interpreter) Reset() {
	for _, name := range i.globals.Names() {
		i.globals.Delete(name)
	}
}

// Exec executes a program against the global environment.
func (i *Interpreter) Exec(program syntax.Program) error {
	_, err := i.Eval(program)
	return err
}

// Eval executes a program against the global environment and returns the value
// of its final statement if that is an expression, otherwise [Nil].
func (i *Interpreter) Eval(program syntax.Program) (Value, error) {
	i.logger.Debug("Executing program", "name", program.Name, "statements", len(program.Statements))

	var result Value = Nil
	for _, stmt := range program.Statements {
		result = Nil

		if expr, ok := stmt.(*syntax.ExprStmt); ok {
			value, err := i.eval(expr.X, i.globals)
			if err != nil {
				return nil, err
			}
			result = value
			continue
		}

		if _, err := i.exec(stmt, i.globals); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// execBlock runs stmts in order, stopping at the first error or return.
func (i *Interpreter) execBlock(stmts []syntax.Stmt, env *Env) (Value, error) {
	for _, stmt := range stmts {
		ret, err := i.exec(stmt, env)
		if err != nil || ret != nil {
			return ret, err
		}
	}
	return nil, nil
}

// exec runs a single statement in env. If the statement caused a return, the returned
// value is non-nil.
func (i *Interpreter) exec(stmt syntax.Stmt, env *Env) (Value, error) {
	switch stmt := stmt.(type) {
	case *syntax.ExprStmt:
		_, err := i.eval(stmt.X, env)
		return nil, err
	case *syntax.AssignStmt:
		value, err := i.eval(stmt.Value, env)
		if err != nil {
			return nil, err
		}
		return nil, i.assign(stmt.Target, value, env)
	case *syntax.WithStmt:
		return nil, i.execWith(stmt, env)
	case *syntax.FnStmt:
		env.Set(stmt.Name, &Function{
			Name:   stmt.Name,
			Params: stmt.Params,
			Body:   stmt.Body,
			Env:    env,
		})
		return nil, nil
	case *syntax.IfStmt:
		cond, err := i.eval(stmt.Cond, env)
		if err != nil {
			return nil, err
		}

		if Truthy(cond) {
			return i.execBlock(stmt.Then.Statements, env)
		}

		if stmt.Else != nil {
			return i.exec(stmt.Else, env)
		}
		return nil, nil
	case *syntax.ReturnStmt:
		if stmt.Value == nil {
			return Nil, nil
		}
		return i.eval(stmt.Value, env)
	case *syntax.DelStmt:
		if _, ok := env.Get(stmt.Name); !ok {
			return nil, errorf(stmt.At, "name %s is not defined", stmt.Name)
		}
		env.Delete(stmt.Name)
		return nil, nil
	case *syntax.RaiseStmt:
		value, err := i.eval(stmt.Value, env)
		if err != nil {
			return nil, err
		}
		return nil, &Error{Pos: stmt.At, Msg: value.String(), Err: ErrRaised}
	case *syntax.Block:
		return i.execBlock(stmt.Statements, env)
	default:
		return nil, errorf(stmt.Pos(), "unhandled statement %T", stmt)
	}
}

// execWith runs the body of a "with scope as name" statement inside a capture on
// the interpreter's scope space. The capture is closed however the body exits.
func (i *Interpreter) execWith(stmt *syntax.WithStmt, env *Env) error {
	ns, err := i.space.Do(env, func(handle Value) error {
		env.Set(stmt.Name, handle)
		_, err := i.execBlock(stmt.Body.Statements, env)
		return err
	})

	if ns == nil {
		// Could not even open the capture
		return &Error{Pos: stmt.At, Msg: err.Error(), Err: err}
	}

	i.logger.Debug("Captured bindings", "namespace", stmt.Name, "names", ns.Names())

	return err
}

// assign binds value to the target of an assignment.
func (i *Interpreter) assign(target syntax.Expr, value Value, env *Env) error {
	switch target := target.(type) {
	case *syntax.Ident:
		env.Set(target.Name, value)
		return nil
	case *syntax.AttrExpr:
		x, err := i.eval(target.X, env)
		if err != nil {
			return err
		}

		ns, ok := x.(*Namespace)
		if !ok {
			return errorf(target.At, "cannot set attribute %s on %s", target.Name, x.Type())
		}

		ns.ns.Set(target.Name, value)
		return nil
	case *syntax.IndexExpr:
		x, err := i.eval(target.X, env)
		if err != nil {
			return err
		}

		list, ok := x.(*List)
		if !ok {
			return errorf(target.At, "%s does not support item assignment", x.Type())
		}

		index, err := i.eval(target.Index, env)
		if err != nil {
			return err
		}

		n, ok := index.(Int)
		if !ok {
			return errorf(target.At, "list index must be an int, got %s", index.Type())
		}

		resolved, err := resolveIndex(int(n), len(list.Items))
		if err != nil {
			return errorAt(target.At, err)
		}

		list.Items[resolved] = value
		return nil
	default:
		return errorf(target.Pos(), "cannot assign to %s", syntax.FormatExpr(target))
	}
}

// eval evaluates an expression in env.
func (i *Interpreter) eval(expr syntax.Expr, env *Env) (Value, error) {
	switch expr := expr.(type) {
	case *syntax.Ident:
		if value, ok := env.Lookup(expr.Name); ok {
			return value, nil
		}
		if builtin, ok := i.builtins[expr.Name]; ok {
			return builtin, nil
		}
		return nil, errorf(expr.At, "name %s is not defined", expr.Name)
	case *syntax.IntLit:
		return Int(expr.Value), nil
	case *syntax.FloatLit:
		return Float(expr.Value), nil
	case *syntax.StringLit:
		return String(expr.Value), nil
	case *syntax.BoolLit:
		return Bool(expr.Value), nil
	case *syntax.NilLit:
		return Nil, nil
	case *syntax.ListLit:
		items, err := i.evalAll(expr.Items, env)
		if err != nil {
			return nil, err
		}
		return &List{Items: items}, nil
	case *syntax.UnaryExpr:
		x, err := i.eval(expr.X, env)
		if err != nil {
			return nil, err
		}
		return unaryOp(expr, x)
	case *syntax.BinaryExpr:
		return i.evalBinary(expr, env)
	case *syntax.CallExpr:
		callee, err := i.eval(expr.Fn, env)
		if err != nil {
			return nil, err
		}

		args, err := i.evalAll(expr.Args, env)
		if err != nil {
			return nil, err
		}

		return i.call(expr.At, callee, args)
	case *syntax.AttrExpr:
		x, err := i.eval(expr.X, env)
		if err != nil {
			return nil, err
		}

		value, err := attribute(x, expr.Name)
		if err != nil {
			return nil, errorAt(expr.At, err)
		}
		return value, nil
	case *syntax.IndexExpr:
		x, err := i.eval(expr.X, env)
		if err != nil {
			return nil, err
		}

		index, err := i.eval(expr.Index, env)
		if err != nil {
			return nil, err
		}

		value, err := indexOf(x, index)
		if err != nil {
			return nil, errorAt(expr.At, err)
		}
		return value, nil
	default:
		return nil, errorf(expr.Pos(), "unhandled expression %T", expr)
	}
}

// evalAll evaluates exprs left to right.
func (i *Interpreter) evalAll(exprs []syntax.Expr, env *Env) ([]Value, error) {
	values := make([]Value, 0, len(exprs))
	for _, expr := range exprs {
		value, err := i.eval(expr, env)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// evalBinary evaluates a binary expression, && and || short circuit.
func (i *Interpreter) evalBinary(expr *syntax.BinaryExpr, env *Env) (Value, error) {
	left, err := i.eval(expr.Left, env)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case token.And:
		if !Truthy(left) {
			return Bool(false), nil
		}
	case token.Or:
		if Truthy(left) {
			return Bool(true), nil
		}
	}

	right, err := i.eval(expr.Right, env)
	if err != nil {
		return nil, err
	}

	if expr.Op == token.And || expr.Op == token.Or {
		return Bool(Truthy(right)), nil
	}

	value, err := binaryOp(expr.Op, left, right)
	if err != nil {
		return nil, errorAt(expr.At, err)
	}
	return value, nil
}

// call calls callee with args.
func (i *Interpreter) call(pos syntax.Position, callee Value, args []Value) (Value, error) {
	switch fn := callee.(type) {
	case *Builtin:
		value, err := fn.Fn(i, args)
		if err != nil {
			return nil, errorAt(pos, err)
		}
		return value, nil
	case *Method:
		value, err := fn.Fn(args)
		if err != nil {
			return nil, errorAt(pos, err)
		}
		return value, nil
	case *Function:
		if len(args) != len(fn.Params) {
			return nil, errorf(pos, "%s takes %d arguments, got %d", fn.Name, len(fn.Params), len(args))
		}

		if i.depth >= maxCallDepth {
			return nil, errorf(pos, "maximum call depth of %d exceeded calling %s", maxCallDepth, fn.Name)
		}

		local := NewEnv(fn.Env)
		for index, param := range fn.Params {
			local.Set(param, args[index])
		}

		i.depth++
		defer func() { i.depth-- }()

		ret, err := i.execBlock(fn.Body.Statements, local)
		if err != nil {
			return nil, err
		}

		if ret == nil {
			return Nil, nil
		}
		return ret, nil
	default:
		return nil, errorf(pos, "%s is not callable", callee.Type())
	}
}

// attribute looks up the attribute called name on x.
func attribute(x Value, name string) (Value, error) {
	switch x := x.(type) {
	case *Namespace:
		if value, ok := x.ns.Get(name); ok {
			return value, nil
		}
		return nil, fmt.Errorf("namespace has no attribute %s", name)
	case *List:
		if method, ok := listMethod(x, name); ok {
			return method, nil
		}
	}
	return nil, fmt.Errorf("%s has no attribute %s", x.Type(), name)
}

// indexOf returns x[index].
func indexOf(x, index Value) (Value, error) {
	n, ok := index.(Int)
	if !ok {
		return nil, fmt.Errorf("index must be an int, got %s", index.Type())
	}

	switch x := x.(type) {
	case *List:
		resolved, err := resolveIndex(int(n), len(x.Items))
		if err != nil {
			return nil, err
		}
		return x.Items[resolved], nil
	case String:
		runes := []rune(string(x))
		resolved, err := resolveIndex(int(n), len(runes))
		if err != nil {
			return nil, err
		}
		return String(runes[resolved]), nil
	default:
		return nil, fmt.Errorf("%s is not indexable", x.Type())
	}
}

// unaryOp applies a prefix operator.
func unaryOp(expr *syntax.UnaryExpr, x Value) (Value, error) {
	if expr.Op == token.Bang {
		return Bool(!Truthy(x)), nil
	}

	switch x := x.(type) {
	case Int:
		return -x, nil
	case Float:
		return -x, nil
	default:
		return nil, errorf(expr.At, "bad operand type for unary -: %s", x.Type())
	}
}

// binaryOp applies an infix operator other than && and ||.
func binaryOp(op token.Kind, left, right Value) (Value, error) {
	switch op {
	case token.EqEq:
		return Bool(Equal(left, right)), nil
	case token.BangEq:
		return Bool(!Equal(left, right)), nil
	}

	switch l := left.(type) {
	case Int:
		switch r := right.(type) {
		case Int:
			return intOp(op, l, r)
		case Float:
			return floatOp(op, Float(l), r)
		}
	case Float:
		switch r := right.(type) {
		case Int:
			return floatOp(op, l, Float(r))
		case Float:
			return floatOp(op, l, r)
		}
	case String:
		if r, ok := right.(String); ok {
			return stringOp(op, l, r)
		}
	case *List:
		if r, ok := right.(*List); ok && op == token.Plus {
			items := make([]Value, 0, len(l.Items)+len(r.Items))
			items = append(items, l.Items...)
			items = append(items, r.Items...)
			return &List{Items: items}, nil
		}
	}

	return nil, unsupported(op, left, right)
}

func unsupported(op token.Kind, left, right Value) error {
	return fmt.Errorf("unsupported operand types for %s: %s and %s", token.Symbol(op), left.Type(), right.Type())
}

// intOp applies an arithmetic or comparison operator to two ints, division truncates
// towards zero.
func intOp(op token.Kind, l, r Int) (Value, error) {
	switch op {
	case token.Plus:
		return l + r, nil
	case token.Minus:
		return l - r, nil
	case token.Star:
		return l * r, nil
	case token.Slash:
		if r == 0 {
			return nil, errors.New("division by zero")
		}
		return l / r, nil
	case token.Percent:
		if r == 0 {
			return nil, errors.New("modulo by zero")
		}
		return l % r, nil
	case token.Less:
		return Bool(l < r), nil
	case token.LessEq:
		return Bool(l <= r), nil
	case token.Greater:
		return Bool(l > r), nil
	case token.GreaterEq:
		return Bool(l >= r), nil
	default:
		return nil, unsupported(op, l, r)
	}
}

// floatOp applies an arithmetic or comparison operator to two floats.
func floatOp(op token.Kind, l, r Float) (Value, error) {
	switch op {
	case token.Plus:
		return l + r, nil
	case token.Minus:
		return l - r, nil
	case token.Star:
		return l * r, nil
	case token.Slash:
		if r == 0 {
			return nil, errors.New("division by zero")
		}
		return l / r, nil
	case token.Percent:
		if r == 0 {
			return nil, errors.New("modulo by zero")
		}
		return Float(math.Mod(float64(l), float64(r))), nil
	case token.Less:
		return Bool(l < r), nil
	case token.LessEq:
		return Bool(l <= r), nil
	case token.Greater:
		return Bool(l > r), nil
	case token.GreaterEq:
		return Bool(l >= r), nil
	default:
		return nil, unsupported(op, l, r)
	}
}

// stringOp applies concatenation or a comparison to two strings.
func stringOp(op token.Kind, l, r String) (Value, error) {
	switch op {
	case token.Plus:
		return l + r, nil
	case token.Less:
		return Bool(l < r), nil
	case token.LessEq:
		return Bool(l <= r), nil
	case token.Greater:
		return Bool(l > r), nil
	case token.GreaterEq:
		return Bool(l >= r), nil
	default:
		return nil, unsupported(op, l, r)
	}
}
