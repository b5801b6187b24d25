package eval

import (
	"slices"
	"strconv"
	"strings"

	"go.followtheprocess.codes/scopespace/internal/scope"
	"go.followtheprocess.codes/scopespace/internal/syntax"
)

// maxReprDepth is how deep nested lists and namespaces are printed before giving up,
// a list may contain itself.
const maxReprDepth = 16

// Value is a scopescript value.
//
// Every implementation must be comparable with ==, reference values (lists, functions,
// namespaces) are pointers so == is identity, which is what a scope uses to decide
// whether a name was rebound.
type Value interface {
	// Type returns the name of the value's type as reported by the type builtin.
	Type() string

	// String returns the value as print shows it.
	String() string
}

// Int is an integer.
type Int int64

// Float is a 64 bit floating point number.
type Float float64

// String is a string.
type String string

// Bool is true or false.
type Bool bool

// NilType is the type of [Nil].
type NilType struct{}

// Nil is the absence of a value, what functions without a return value return.
var Nil = NilType{}

// List is a mutable list of values.
type List struct {
	Items []Value
}

// Function is a user defined function along with the environment it was declared in.
type Function struct {
	Name   string        // Declared name
	Params []string      // Parameter names
	Body   *syntax.Block // Function body
	Env    *Env          // Environment the function was declared in
}

// Builtin is a function implemented in Go.
type Builtin struct {
	Name string
	Fn   func(interp *Interpreter, args []Value) (Value, error)
}

// Method is a builtin method bound to its receiver e.g. list.append.
type Method struct {
	Name     string
	Receiver Value
	Fn       func(args []Value) (Value, error)
}

// Namespace is the container a scope block moves its bindings into, its bindings are
// available as attributes.
type Namespace struct {
	ns *scope.Namespace[Value]
}

// NewNamespace wraps a [scope.Namespace] as a [Value].
func NewNamespace(ns *scope.Namespace[Value]) *Namespace {
	return &Namespace{ns: ns}
}

// Bindings returns the underlying bindings of the namespace.
func (n *Namespace) Bindings() *scope.Namespace[Value] {
	return n.ns
}

func (Int) Type() string        { return "int" }
func (Float) Type() string      { return "float" }
func (String) Type() string     { return "string" }
func (Bool) Type() string       { return "bool" }
func (NilType) Type() string    { return "nil" }
func (*List) Type() string      { return "list" }
func (*Function) Type() string  { return "fn" }
func (*Builtin) Type() string   { return "builtin" }
func (*Method) Type() string    { return "method" }
func (*Namespace) Type() string { return "namespace" }

func (i Int) String() string       { return strconv.FormatInt(int64(i), 10) }
func (f Float) String() string     { return syntax.FormatFloat(float64(f)) }
func (s String) String() string    { return string(s) }
func (b Bool) String() string      { return strconv.FormatBool(bool(b)) }
func (NilType) String() string     { return "nil" }
func (l *List) String() string     { return Repr(l) }
func (f *Function) String() string { return "<fn " + f.Name + ">" }
func (b *Builtin) String() string  { return "<builtin " + b.Name + ">" }
func (n *Namespace) String() string {
	return Repr(n)
}

func (m *Method) String() string {
	return "<method " + m.Name + " of " + m.Receiver.Type() + ">"
}

// Repr returns the source-like representation of a value, strings are quoted.
func Repr(value Value) string {
	builder := &strings.Builder{}
	writeRepr(builder, value, 0)
	return builder.String()
}

func writeRepr(builder *strings.Builder, value Value, depth int) {
	if depth > maxReprDepth {
		builder.WriteString("...")
		return
	}

	switch value := value.(type) {
	case String:
		builder.WriteString(syntax.Quote(string(value)))
	case *List:
		builder.WriteByte('[')
		for i, item := range value.Items {
			if i > 0 {
				builder.WriteString(", ")
			}
			writeRepr(builder, item, depth+1)
		}
		builder.WriteByte(']')
	case *Namespace:
		builder.WriteString("namespace(")
		first := true
		for name, item := range value.ns.All() {
			if !first {
				builder.WriteString(", ")
			}
			first = false
			builder.WriteString(name)
			builder.WriteByte('=')
			writeRepr(builder, item, depth+1)
		}
		builder.WriteByte(')')
	default:
		builder.WriteString(value.String())
	}
}

// Truthy reports whether a value counts as true in a condition.
func Truthy(value Value) bool {
	switch value := value.(type) {
	case NilType:
		return false
	case Bool:
		return bool(value)
	case Int:
		return value != 0
	case Float:
		return value != 0
	case String:
		return value != ""
	case *List:
		return len(value.Items) != 0
	default:
		return true
	}
}

// Equal reports whether two values are equal as the == operator sees them.
//
// Unlike the identity a scope uses, lists are compared element by element and ints
// compare equal to floats of the same value.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return a == b
		case Float:
			return Float(a) == b
		}
		return false
	case Float:
		switch b := b.(type) {
		case Int:
			return a == Float(b)
		case Float:
			return a == b
		}
		return false
	case *List:
		other, ok := b.(*List)
		if !ok {
			return false
		}
		if a == other {
			return true
		}
		return slices.EqualFunc(a.Items, other.Items, Equal)
	default:
		return a == b
	}
}
