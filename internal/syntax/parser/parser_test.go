package parser_test

import (
	"flag"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/parser"
	"go.followtheprocess.codes/test"
	"go.followtheprocess.codes/txtar"
	"go.uber.org/goleak"
)

var update = flag.Bool("update", false, "Update snapshots and testdata")

// TestValid is the primary parser test for valid syntax. It reads src scopescript from
// a txtar archive in testdata/valid, parses it to completion, formats the parsed program
// back to canonical source then generates a pretty diff if it doesn't match.
func TestValid(t *testing.T) {
	test.ColorEnabled(true) // Force colour in the diffs

	pattern := filepath.Join("testdata", "valid", "*.txtar")
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

			want, ok := archive.Read("want.scope")
			test.True(t, ok, test.Context("archive %s missing want.scope", name))

			parser, err := parser.New(name, strings.NewReader(src), testFailHandler(t))
			test.Ok(t, err)

			program, err := parser.Parse()
			test.Ok(t, err, test.Context("unexpected parse error"))
			test.Equal(t, program.Name, name)

			got := program.String()

			if *update {
				err := archive.Write("want.scope", got)
				test.Ok(t, err)

				err = txtar.DumpFile(file, archive)
				test.Ok(t, err)

				return
			}

			test.Diff(t, got, want)
		})
	}
}

// TestFormatStable checks that formatting is idempotent, parsing the canonical
// output and formatting it again must give back exactly the same text.
func TestFormatStable(t *testing.T) {
	pattern := filepath.Join("testdata", "valid", "*.txtar")
	files, err := filepath.Glob(pattern)
	test.Ok(t, err)

	for _, file := range files {
		name := filepath.Base(file)
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			archive, err := txtar.ParseFile(file)
			test.Ok(t, err)

			want, ok := archive.Read("want.scope")
			test.True(t, ok, test.Context("archive %s missing want.scope", name))

			parser, err := parser.New(name, strings.NewReader(want), testFailHandler(t))
			test.Ok(t, err)

			program, err := parser.Parse()
			test.Ok(t, err)

			test.Diff(t, program.String(), want)
		})
	}
}

// TestInvalid is the primary test for invalid syntax. It does much the same as TestValid
// but instead of failing tests if a syntax error is encountered, it fails if there are no syntax errors.
//
// Additionally, the errors are compared against a reference.
func TestInvalid(t *testing.T) {
	test.ColorEnabled(true) // Force colour in the diffs

	pattern := filepath.Join("testdata", "invalid", "*.txtar")
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

			want, ok := archive.Read("want.txt")
			test.True(t, ok, test.Context("archive %s missing want.txt", name))

			collector := &syntax.Collector{}

			parser, err := parser.New(name, strings.NewReader(src), collector.Handler())
			test.Ok(t, err)

			program, err := parser.Parse()
			test.Err(t, err, test.Context("Parse() failed to return an error given invalid syntax"))
			test.Equal(t, len(program.Statements), 0, test.Context("program should be empty on error"))

			var got strings.Builder
			for _, msg := range collector.Errors() {
				got.WriteString(msg)
				got.WriteByte('\n')
			}

			if *update {
				err := archive.Write("want.txt", got.String())
				test.Ok(t, err)

				err = txtar.DumpFile(file, archive)
				test.Ok(t, err)

				return
			}

			test.Diff(t, got.String(), want)
		})
	}
}

func TestEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)

	parser, err := parser.New("empty.scope", strings.NewReader("\n\n# nothing here\n"), testFailHandler(t))
	test.Ok(t, err)

	program, err := parser.Parse()
	test.Ok(t, err)

	test.Equal(t, len(program.Statements), 0)
	test.Equal(t, program.String(), "")
}

func TestStatementKinds(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := "with scope as ns {\n    x = 1\n}\nfn f() {}\ndel x\n"
	parser, err := parser.New("kinds.scope", strings.NewReader(src), testFailHandler(t))
	test.Ok(t, err)

	program, err := parser.Parse()
	test.Ok(t, err)
	test.Equal(t, len(program.Statements), 3)

	with, ok := program.Statements[0].(*syntax.WithStmt)
	test.True(t, ok, test.Context("first statement was %T, not *syntax.WithStmt", program.Statements[0]))
	test.Equal(t, with.Name, "ns")
	test.Equal(t, len(with.Body.Statements), 1)
	test.Equal(t, with.Pos().String(), "kinds.scope:1:1-5")

	fn, ok := program.Statements[1].(*syntax.FnStmt)
	test.True(t, ok, test.Context("second statement was %T, not *syntax.FnStmt", program.Statements[1]))
	test.Equal(t, fn.Name, "f")
	test.Equal(t, fn.Pos().Line, 4)

	del, ok := program.Statements[2].(*syntax.DelStmt)
	test.True(t, ok, test.Context("third statement was %T, not *syntax.DelStmt", program.Statements[2]))
	test.Equal(t, del.Name, "x")
}

func FuzzParser(f *testing.F) {
	// Get all the scopescript source from testdata for the corpus
	pattern := filepath.Join("testdata", "valid", "*.txtar")
	files, err := filepath.Glob(pattern)
	test.Ok(f, err)

	for _, file := range files {
		archive, err := txtar.ParseFile(file)
		test.Ok(f, err)

		src, ok := archive.Read("src.scope")
		test.True(f, ok, test.Context("file %s does not contain 'src.scope'", file))

		f.Add(src)
	}

	// Property: The parser never panics or loops indefinitely, fuzz by default
	// will catch both of these
	f.Fuzz(func(t *testing.T, src string) {
		// Note: no ErrorHandler installed, because if we let it report errors
		// it would kill the fuzz test straight away e.g. on the first invalid
		// utf-8 char
		parser, err := parser.New("fuzz", strings.NewReader(src), nil)
		test.Ok(t, err)

		program, err := parser.Parse()

		var zeroProgram syntax.Program

		// Property: If the parser returned an error, then program must be empty
		if err != nil {
			if !reflect.DeepEqual(program, zeroProgram) {
				t.Fatalf("\nnon zero syntax.Program returned when err != nil: %#v\n", program)
			}
		}
	})
}

// testFailHandler returns a [syntax.ErrorHandler] that handles scanning errors by failing
// the enclosing test.
func testFailHandler(tb testing.TB) syntax.ErrorHandler {
	tb.Helper()

	return func(pos syntax.Position, msg string) {
		tb.Fatalf("%s: %s", pos, msg)
	}
}
