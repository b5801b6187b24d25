package eval

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// builtins returns the builtin functions, keyed by name.
//
// Builtins live outside the global environment so they can never be captured by a
// scope or deleted, a global of the same name shadows them.
func builtins() map[string]*Builtin {
	all := []*Builtin{
		{Name: "print", Fn: builtinPrint},
		{Name: "len", Fn: builtinLen},
		{Name: "str", Fn: builtinStr},
		{Name: "type", Fn: builtinType},
		{Name: "names", Fn: builtinNames},
	}

	table := make(map[string]*Builtin, len(all))
	for _, builtin := range all {
		table[builtin.Name] = builtin
	}
	return table
}

// checkArgs returns an error if args is not exactly want long.
func checkArgs(name string, args []Value, want int) error {
	if len(args) == want {
		return nil
	}

	plural := "s"
	if want == 1 {
		plural = ""
	}
	return fmt.Errorf("%s takes exactly %d argument%s, got %d", name, want, plural, len(args))
}

// print writes its arguments to stdout separated by spaces.
func builtinPrint(interp *Interpreter, args []Value) (Value, error) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, arg.String())
	}

	if _, err := fmt.Fprintln(interp.stdout, strings.Join(parts, " ")); err != nil {
		return nil, fmt.Errorf("could not write output: %w", err)
	}

	return Nil, nil
}

// len returns the length of a string, list or namespace.
func builtinLen(_ *Interpreter, args []Value) (Value, error) {
	if err := checkArgs("len", args, 1); err != nil {
		return nil, err
	}

	switch arg := args[0].(type) {
	case String:
		return Int(utf8.RuneCountInString(string(arg))), nil
	case *List:
		return Int(len(arg.Items)), nil
	case *Namespace:
		return Int(arg.ns.Len()), nil
	default:
		return nil, fmt.Errorf("%s has no len", arg.Type())
	}
}

// str converts its argument to a string.
func builtinStr(_ *Interpreter, args []Value) (Value, error) {
	if err := checkArgs("str", args, 1); err != nil {
		return nil, err
	}
	return String(args[0].String()), nil
}

// type returns the name of the type of its argument.
func builtinType(_ *Interpreter, args []Value) (Value, error) {
	if err := checkArgs("type", args, 1); err != nil {
		return nil, err
	}
	return String(args[0].Type()), nil
}

// names returns the sorted names bound in a namespace or, with no arguments,
// the global environment.
func builtinNames(interp *Interpreter, args []Value) (Value, error) {
	var names []string
	switch len(args) {
	case 0:
		names = interp.globals.Names()
	case 1:
		ns, ok := args[0].(*Namespace)
		if !ok {
			return nil, fmt.Errorf("names expects a namespace, got %s", args[0].Type())
		}
		names = ns.ns.Names()
		slices.Sort(names)
	default:
		return nil, fmt.Errorf("names takes at most 1 argument, got %d", len(args))
	}

	items := make([]Value, 0, len(names))
	for _, name := range names {
		items = append(items, String(name))
	}
	return &List{Items: items}, nil
}

// listMethod returns the method called name bound to list.
func listMethod(list *List, name string) (*Method, bool) {
	var fn func(args []Value) (Value, error)

	switch name {
	case "append":
		fn = func(args []Value) (Value, error) {
			if err := checkArgs("append", args, 1); err != nil {
				return nil, err
			}
			list.Items = append(list.Items, args[0])
			return Nil, nil
		}
	case "extend":
		fn = func(args []Value) (Value, error) {
			if err := checkArgs("extend", args, 1); err != nil {
				return nil, err
			}
			other, ok := args[0].(*List)
			if !ok {
				return nil, fmt.Errorf("extend expects a list, got %s", args[0].Type())
			}
			// Clone first so extending a list with itself is well defined
			list.Items = append(list.Items, slices.Clone(other.Items)...)
			return Nil, nil
		}
	case "pop":
		fn = func(args []Value) (Value, error) {
			if len(list.Items) == 0 {
				return nil, errors.New("pop from empty list")
			}

			index := len(list.Items) - 1
			switch len(args) {
			case 0:
			case 1:
				i, ok := args[0].(Int)
				if !ok {
					return nil, fmt.Errorf("pop index must be an int, got %s", args[0].Type())
				}
				resolved, err := resolveIndex(int(i), len(list.Items))
				if err != nil {
					return nil, err
				}
				index = resolved
			default:
				return nil, fmt.Errorf("pop takes at most 1 argument, got %d", len(args))
			}

			item := list.Items[index]
			list.Items = slices.Delete(list.Items, index, index+1)
			return item, nil
		}
	default:
		return nil, false
	}

	return &Method{Name: name, Receiver: list, Fn: fn}, true
}

// resolveIndex converts a possibly negative index into an offset into a sequence
// of length n, negative indexes count back from the end.
func resolveIndex(index, n int) (int, error) {
	resolved := index
	if resolved < 0 {
		resolved += n
	}
	if resolved < 0 || resolved >= n {
		return 0, fmt.Errorf("index %d out of range for length %d", index, n)
	}
	return resolved, nil
}
