package app_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.followtheprocess.codes/scopespace/internal/app"
	"go.followtheprocess.codes/scopespace/internal/scope"
	"go.followtheprocess.codes/test"
)

func TestCheck(t *testing.T) {
	good := filepath.Join("testdata", "check", "good.scope")
	bad := filepath.Join("testdata", "check", "bad.scope")
	unformatted := filepath.Join("testdata", "check", "unformatted.scope")
	commented := filepath.Join("testdata", "check", "commented.scope")

	t.Run("good", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Check([]string{good}, app.CheckOptions{})
		test.Ok(t, err)

		// Stderr should be empty
		test.Equal(t, stderr.String(), "")

		// Stdout should have the success message
		want := fmt.Sprintf("Success: %s is valid\n", good)
		test.Equal(t, stdout.String(), want)
	})

	t.Run("bad", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Check([]string{bad}, app.CheckOptions{})
		test.Err(t, err)

		got := stderr.String()

		// Replace \ with / on windows
		if runtime.GOOS == "windows" {
			got = strings.ReplaceAll(got, `\`, "/")
		}

		// Stderr should have the syntax error
		test.True(
			t,
			strings.Contains(got, "testdata/check/bad.scope:3:1: unexpected EOF, expected RightBrace"),
			test.Context("stderr was %q", got),
		)

		// Stdout should be empty
		test.Equal(t, stdout.String(), "")
	})

	t.Run("all files checked", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Check([]string{bad, good}, app.CheckOptions{})
		test.Err(t, err)

		// The good file after the bad one was still checked
		test.True(t, strings.Contains(stdout.String(), good))
		test.True(t, strings.Contains(err.Error(), "1 of 2 files failed"))
	})

	t.Run("strict", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Check([]string{unformatted}, app.CheckOptions{})
		test.Ok(t, err, test.Context("unformatted but valid files pass a normal check"))

		err = a.Check([]string{good, unformatted}, app.CheckOptions{Strict: true})
		test.Err(t, err)
		test.True(t, strings.Contains(stderr.String(), "is not canonically formatted"))
	})

	t.Run("strict with comments", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Check([]string{commented}, app.CheckOptions{Strict: true})
		test.Ok(t, err, test.Context("stderr was %q", stderr.String()))
		test.Equal(t, stderr.String(), "")
	})
}

func TestFmt(t *testing.T) {
	unformatted := filepath.Join("testdata", "check", "unformatted.scope")
	commented := filepath.Join("testdata", "check", "commented.scope")

	t.Run("stdout", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Fmt(unformatted, app.FmtOptions{})
		test.Ok(t, err)

		test.Equal(t, stderr.String(), "")
		test.Diff(t, stdout.String(), "x = 1\ny = 2\n")
	})

	t.Run("write", func(t *testing.T) {
		src, err := os.ReadFile(unformatted)
		test.Ok(t, err)

		file := filepath.Join(t.TempDir(), "unformatted.scope")
		test.Ok(t, os.WriteFile(file, src, 0o644))

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err = a.Fmt(file, app.FmtOptions{Write: true})
		test.Ok(t, err)

		got, err := os.ReadFile(file)
		test.Ok(t, err)
		test.Diff(t, string(got), "x = 1\ny = 2\n")

		// Running it again is a no-op
		stdout.Reset()
		err = a.Fmt(file, app.FmtOptions{Write: true})
		test.Ok(t, err)
		test.Equal(t, stdout.String(), "")
	})

	t.Run("keeps comments", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "comments.scope")
		test.Ok(t, os.WriteFile(file, []byte("# keep me\nx=1 // and me\n"), 0o644))

		a := app.New(&bytes.Buffer{}, &bytes.Buffer{}, false)

		err := a.Fmt(file, app.FmtOptions{Write: true})
		test.Ok(t, err)

		got, err := os.ReadFile(file)
		test.Ok(t, err)
		test.Diff(t, string(got), "# keep me\nx = 1 // and me\n")
	})

	t.Run("commented file unchanged", func(t *testing.T) {
		src, err := os.ReadFile(commented)
		test.Ok(t, err)

		stdout := &bytes.Buffer{}
		a := app.New(stdout, &bytes.Buffer{}, false)

		err = a.Fmt(commented, app.FmtOptions{})
		test.Ok(t, err)
		test.Diff(t, stdout.String(), string(src))
	})
}

func TestRun(t *testing.T) {
	good := filepath.Join("testdata", "check", "good.scope")

	t.Run("output", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Run(good, app.RunOptions{})
		test.Ok(t, err)

		test.Equal(t, stderr.String(), "")
		test.Diff(t, stdout.String(), "[1, 2, 3] namespace(x=[1, 2, 3, 4], y=10)\n")
	})

	t.Run("globals", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Run(good, app.RunOptions{Globals: true})
		test.Ok(t, err)

		want := `[1, 2, 3] namespace(x=[1, 2, 3, 4], y=10)
ns = namespace(x=[1, 2, 3, 4], y=10)
x = [1, 2, 3]
`
		test.Diff(t, stdout.String(), want)
	})

	t.Run("verbose", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, true)

		err := a.Run(good, app.RunOptions{Verbose: true})
		test.Ok(t, err)

		// Capture decisions are logged
		test.True(t, strings.Contains(stderr.String(), "Captured new binding"), test.Context("stderr was %q", stderr.String()))
	})

	t.Run("violation", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		a := app.New(stdout, stderr, false)

		err := a.Run(filepath.Join("testdata", "run", "violation.scope"), app.RunOptions{})
		test.Err(t, err)
		test.True(t, errors.Is(err, scope.ErrScopeViolation), test.Context("wrong error: %v", err))
	})

	t.Run("missing", func(t *testing.T) {
		a := app.New(&bytes.Buffer{}, &bytes.Buffer{}, false)

		err := a.Run(filepath.Join("testdata", "run", "missing.scope"), app.RunOptions{})
		test.True(t, errors.Is(err, os.ErrNotExist), test.Context("wrong error: %v", err))
	})
}

func TestPrintBinding(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	a := app.New(stdout, stderr, false)

	interp, err := a.Exec(filepath.Join("testdata", "check", "good.scope"))
	test.Ok(t, err)

	// Drop what the script printed
	stdout.Reset()

	ns, ok := interp.Globals().Get("ns")
	test.True(t, ok)

	err = a.PrintBinding("ns", ns)
	test.Ok(t, err)

	want := `ns = namespace(x=[1, 2, 3, 4], y=10)
    ns.x = [1, 2, 3, 4]
    ns.y = 10
`
	test.Diff(t, stdout.String(), want)

	stdout.Reset()

	x, ok := interp.Globals().Get("x")
	test.True(t, ok)

	err = a.PrintBinding("x", x)
	test.Ok(t, err)
	test.Equal(t, stdout.String(), "x = [1, 2, 3]\n")
}
