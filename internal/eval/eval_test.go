package eval_test

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/scopespace/internal/eval"
	"go.followtheprocess.codes/scopespace/internal/scope"
	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/parser"
	"go.followtheprocess.codes/test"
	"go.followtheprocess.codes/txtar"
	"go.uber.org/goleak"
)

var update = flag.Bool("update", false, "Update snapshots and testdata")

// TestScripts runs every script in testdata/scripts, comparing what it prints against
// stdout.txt and, if the archive has one, the error it fails with against error.txt.
func TestScripts(t *testing.T) {
	test.ColorEnabled(true) // Force colour in the diffs

	pattern := filepath.Join("testdata", "scripts", "*.txtar")
	files, err := filepath.Glob(pattern)
	test.Ok(t, err)

	for _, file := range files {
		name := filepath.Base(file)
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			archive, err := txtar.ParseFile(file)
			test.Ok(t, err)

			src, ok := archive.Read("src.scope")
			test.True(t, ok, test.Context("archive %s missing src.scope", name))

			wantStdout, ok := archive.Read("stdout.txt")
			test.True(t, ok, test.Context("archive %s missing stdout.txt", name))

			wantErr, expectErr := archive.Read("error.txt")

			program := parse(t, name, src)

			stdout := &bytes.Buffer{}
			interp := eval.New(stdout, log.New(io.Discard))

			err = interp.Exec(program)

			var gotErr string
			if err != nil {
				gotErr = err.Error() + "\n"
			}

			if *update {
				err := archive.Write("stdout.txt", stdout.String())
				test.Ok(t, err)

				if gotErr != "" {
					err = archive.Write("error.txt", gotErr)
					test.Ok(t, err)
				}

				err = txtar.DumpFile(file, archive)
				test.Ok(t, err)

				return
			}

			if expectErr {
				test.Err(t, err, test.Context("expected script to fail"))
				test.Diff(t, gotErr, wantErr)
			} else {
				test.Ok(t, err, test.Context("unexpected runtime error"))
			}

			test.Diff(t, stdout.String(), wantStdout)
		})
	}
}

func TestScopeInFunctionLeavesGlobalsUnchanged(t *testing.T) {
	src := `x = 1
fn f() {
    with scope as ns {
        x = 2
    }
}
f()
`
	interp := eval.New(io.Discard, log.New(io.Discard))

	err := interp.Exec(parse(t, "violation.scope", src))
	test.Err(t, err)
	test.True(t, errors.Is(err, scope.ErrScopeViolation), test.Context("wrong error: %v", err))

	var evalErr *eval.Error
	test.True(t, errors.As(err, &evalErr), test.Context("error was %T, not *eval.Error", err))
	test.Equal(t, evalErr.Pos.Line, 3)

	globals := interp.Globals()
	test.EqualFunc(t, globals.Names(), []string{"f", "x"}, slices.Equal)

	x, ok := globals.Get("x")
	test.True(t, ok)
	test.Equal(t, x, eval.Value(eval.Int(1)))
}

func TestNestedScopeIsRejected(t *testing.T) {
	src := `with scope as outer {
    a = 1
    with scope as inner {}
}
`
	interp := eval.New(io.Discard, log.New(io.Discard))

	err := interp.Exec(parse(t, "nested.scope", src))
	test.True(t, errors.Is(err, scope.ErrNested), test.Context("wrong error: %v", err))

	// The outer scope still closed, a is in the namespace not the globals
	_, ok := interp.Globals().Get("a")
	test.False(t, ok)

	outer, ok := interp.Globals().Get("outer")
	test.True(t, ok)
	test.Equal(t, outer.String(), "namespace(a=1)")
}

func TestRaiseClosesScope(t *testing.T) {
	src := `with scope as ns {
    a = 1
    raise "boom"
}
`
	interp := eval.New(io.Discard, log.New(io.Discard))

	err := interp.Exec(parse(t, "raise.scope", src))
	test.True(t, errors.Is(err, eval.ErrRaised), test.Context("wrong error: %v", err))

	// The error escaped after the capture had closed
	test.EqualFunc(t, interp.Globals().Names(), []string{"ns"}, slices.Equal)

	// And a new scope can be opened straight after
	err = interp.Exec(parse(t, "again.scope", "with scope as again { b = 2 }\n"))
	test.Ok(t, err)
	test.EqualFunc(t, interp.Globals().Names(), []string{"again", "ns"}, slices.Equal)
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string // Name of the test case
		src  string // Program source
		want string // Repr of the result
	}{
		{name: "int", src: "1 + 2", want: "3"},
		{name: "string", src: `"hello"`, want: `"hello"`},
		{name: "last statement", src: "x = 1\nx * 10", want: "10"},
		{name: "assignment", src: "x = 1", want: "nil"},
		{name: "list", src: `[1, 2.0, "three", nil, true]`, want: `[1, 2.0, "three", nil, true]`},
		{name: "function", src: "fn f() {}\nf", want: "<fn f>"},
		{name: "method", src: "[].append", want: "<method append of list>"},
		{name: "bare return", src: "fn f() { return }\nf()", want: "nil"},
		{name: "else if", src: "fn f(n) { if n < 0 { return -1 } else if n == 0 { return 0 } else { return 1 } }\n[f(-5), f(0), f(5)]", want: "[-1, 0, 1]"},
		{name: "self containing", src: "l = [1]\nl.append(l)\nlen(str(l)) > 0", want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp := eval.New(io.Discard, log.New(io.Discard))

			got, err := interp.Eval(parse(t, tt.name, tt.src))
			test.Ok(t, err)
			test.Equal(t, eval.Repr(got), tt.want)
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string // Name of the test case
		src  string // Program source
		want string // Expected error message
	}{
		{name: "divide by zero", src: "1 / 0", want: "test.scope:1:3-4: division by zero"},
		{name: "bad operands", src: `1 + "a"`, want: "test.scope:1:3-4: unsupported operand types for +: int and string"},
		{name: "not callable", src: "x = 1\nx()", want: "test.scope:2:2-3: int is not callable"},
		{name: "arity", src: "fn f(a) {}\nf()", want: "test.scope:2:2-3: f takes 1 arguments, got 0"},
		{name: "builtin arity", src: "len()", want: "test.scope:1:4-5: len takes exactly 1 argument, got 0"},
		{name: "index out of range", src: "[1][3]", want: "test.scope:1:4-5: index 3 out of range for length 1"},
		{name: "no attribute", src: "[].nope", want: "test.scope:1:4-8: list has no attribute nope"},
		{name: "del undefined", src: "del x", want: "test.scope:1:1-4: name x is not defined"},
		{name: "pop empty", src: "[].pop()", want: "test.scope:1:7-8: pop from empty list"},
		{name: "recursion", src: "fn f() { return f() }\nf()", want: "maximum call depth of 512 exceeded calling f"},
		{name: "set attribute", src: "x = 1\nx.y = 2", want: "test.scope:2:3-4: cannot set attribute y on int"},
		{name: "unary minus", src: `-"a"`, want: "test.scope:1:1-2: bad operand type for unary -: string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp := eval.New(io.Discard, log.New(io.Discard))

			err := interp.Exec(parse(t, "test.scope", tt.src))
			test.Err(t, err)
			test.True(
				t,
				strings.Contains(err.Error(), tt.want),
				test.Context("error %q does not contain %q", err.Error(), tt.want),
			)
		})
	}
}

func TestReset(t *testing.T) {
	interp := eval.New(io.Discard, log.New(io.Discard))

	err := interp.Exec(parse(t, "reset.scope", "x = 1\nwith scope as ns { y = 2 }\n"))
	test.Ok(t, err)
	test.Equal(t, interp.Globals().Len(), 2)

	interp.Reset()
	test.Equal(t, interp.Globals().Len(), 0)

	// Builtins survive a reset
	got, err := interp.Eval(parse(t, "reset.scope", "len([1, 2])"))
	test.Ok(t, err)
	test.Equal(t, got, eval.Value(eval.Int(2)))
}

func TestBuiltinsAreNotCaptured(t *testing.T) {
	src := "with scope as ns {\n    print = 1\n}\nprint(ns)\n"
	stdout := &bytes.Buffer{}
	interp := eval.New(stdout, log.New(io.Discard))

	err := interp.Exec(parse(t, "shadow.scope", src))
	test.Ok(t, err)

	// The shadowing global was captured, so the builtin is visible again
	test.Equal(t, stdout.String(), "namespace(print=1)\n")
}

func TestNaNGlobalNotCaptured(t *testing.T) {
	src := "with scope as ns {\n    y = 1\n}\nprint(ns)\n"
	stdout := &bytes.Buffer{}
	interp := eval.New(stdout, log.New(io.Discard))
	interp.Globals().Set("nan", eval.Float(math.NaN()))

	err := interp.Exec(parse(t, "nan.scope", src))
	test.Ok(t, err)

	// The block never touched nan so it stays out of the namespace
	test.Equal(t, stdout.String(), "namespace(y=1)\n")

	nan, ok := interp.Globals().Get("nan")
	test.True(t, ok)
	f, ok := nan.(eval.Float)
	test.True(t, ok, test.Context("nan is now %T", nan))
	test.True(t, math.IsNaN(float64(f)))
}

func TestEnv(t *testing.T) {
	globals := eval.NewEnv(nil)
	local := eval.NewEnv(globals)

	test.True(t, globals.TopLevel())
	test.False(t, local.TopLevel())

	globals.Set("x", eval.Int(1))
	local.Set("y", eval.Int(2))

	value, ok := local.Lookup("x")
	test.True(t, ok)
	test.Equal(t, value, eval.Value(eval.Int(1)))

	_, ok = local.Get("x")
	test.False(t, ok, test.Context("Get should not consult the parent"))

	_, ok = globals.Lookup("y")
	test.False(t, ok)

	globals.Delete("x")
	_, ok = local.Lookup("x")
	test.False(t, ok)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value eval.Value // Value under test
		want  bool       // Expected truthiness
	}{
		{value: eval.Nil, want: false},
		{value: eval.Bool(false), want: false},
		{value: eval.Bool(true), want: true},
		{value: eval.Int(0), want: false},
		{value: eval.Int(-1), want: true},
		{value: eval.Float(0), want: false},
		{value: eval.String(""), want: false},
		{value: eval.String("x"), want: true},
		{value: &eval.List{}, want: false},
		{value: &eval.List{Items: []eval.Value{eval.Nil}}, want: true},
	}

	for _, tt := range tests {
		t.Run(eval.Repr(tt.value), func(t *testing.T) {
			test.Equal(t, eval.Truthy(tt.value), tt.want)
		})
	}
}

// parse parses src, failing the test on any syntax error.
func parse(tb testing.TB, name, src string) syntax.Program {
	tb.Helper()

	p, err := parser.New(name, strings.NewReader(src), func(pos syntax.Position, msg string) {
		tb.Errorf("%s: %s", pos, msg)
	})
	test.Ok(tb, err)

	program, err := p.Parse()
	test.Ok(tb, err, test.Context("could not parse %s", name))

	return program
}
