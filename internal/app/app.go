// Package app implements the actual functionality exposed via the CLI.
package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/scopespace/internal/eval"
	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/parser"
)

// Extension is the file extension of scopescript files.
const Extension = ".scope"

// ErrNotFormatted is returned by [App.Check] in strict mode when a file is valid
// but not in its canonical format.
var ErrNotFormatted = errors.New("not canonically formatted")

// App holds the state of the program.
type App struct {
	stdout io.Writer   // Normal program output is written here
	stderr io.Writer   // Logs and debug info
	logger *log.Logger // The logger
}

// New returns a new instance of [App].
//
// If debug is true, debug logs (e.g. every capture decision a scope makes) are
// written to stderr.
func New(stdout, stderr io.Writer, debug bool) App {
	level := log.LevelInfo
	if debug {
		level = log.LevelDebug
	}

	logger := log.New(stderr, log.WithLevel(level))

	return App{
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
}

// Logger returns the application's logger.
func (a App) Logger() *log.Logger {
	return a.logger
}

// Interpreter returns a new [eval.Interpreter] whose print output goes to stdout.
func (a App) Interpreter(stdout io.Writer) *eval.Interpreter {
	return eval.New(stdout, a.logger)
}

// CheckOptions are the flags passed to the `scopespace check` subcommand.
type CheckOptions struct {
	Strict bool // Also fail files that are not canonically formatted
}

// Check implements the `scopespace check` subcommand.
//
// Every file is checked, syntax errors are reported to stderr as they are found.
func (a App) Check(files []string, options CheckOptions) error {
	var failed []string
	for _, file := range files {
		if err := a.checkFile(file, options); err != nil {
			a.logger.Debug("Check failed", "file", file, "error", err)
			failed = append(failed, file)
		}
	}

	if len(failed) != 0 {
		return fmt.Errorf("%d of %d files failed the check: %v", len(failed), len(files), failed)
	}

	return nil
}

// checkFile checks a single file.
func (a App) checkFile(file string, options CheckOptions) error {
	src, program, err := a.parse(file)
	if err != nil {
		return err
	}

	if options.Strict && program.String() != string(src) {
		msg.Fwarn(a.stderr, "%s is not canonically formatted, run scopespace fmt --write %s", file, file)
		return fmt.Errorf("%s: %w", file, ErrNotFormatted)
	}

	msg.Fsuccess(a.stdout, "%s is valid", file)
	return nil
}

// FmtOptions are the flags passed to the `scopespace fmt` subcommand.
type FmtOptions struct {
	Write bool // Write the result back to the file instead of stdout
}

// Fmt implements the `scopespace fmt` subcommand.
func (a App) Fmt(file string, options FmtOptions) error {
	src, program, err := a.parse(file)
	if err != nil {
		return err
	}

	formatted := program.String()

	if !options.Write {
		_, err := io.WriteString(a.stdout, formatted)
		return err
	}

	if formatted == string(src) {
		a.logger.Debug("Already formatted", "file", file)
		return nil
	}

	info, err := os.Stat(file)
	if err != nil {
		return err
	}

	if err := os.WriteFile(file, []byte(formatted), info.Mode().Perm()); err != nil {
		return fmt.Errorf("could not write formatted %s: %w", file, err)
	}

	msg.Fsuccess(a.stdout, "Formatted %s", file)
	return nil
}

// RunOptions are the flags passed to the `scopespace run` subcommand.
type RunOptions struct {
	Globals bool // Print the top-level bindings once the script finishes
	Verbose bool // Enable debug logging
}

// Run implements the `scopespace run` subcommand.
func (a App) Run(file string, options RunOptions) error {
	interp, err := a.Exec(file)
	if err != nil {
		return err
	}

	if options.Globals {
		return a.PrintGlobals(interp.Globals())
	}

	return nil
}

// Exec parses and executes a script, returning the interpreter it ran in so the
// caller can look at the resulting globals.
func (a App) Exec(file string) (*eval.Interpreter, error) {
	_, program, err := a.parse(file)
	if err != nil {
		return nil, err
	}

	interp := a.Interpreter(a.stdout)
	if err := interp.Exec(program); err != nil {
		return nil, fmt.Errorf("%s failed: %w", file, err)
	}

	a.logger.Debug("Script finished", "file", file, "globals", interp.Globals().Len())

	return interp, nil
}

// PrintGlobals writes every binding in env to stdout, one per line, in name order.
func (a App) PrintGlobals(env *eval.Env) error {
	for _, name := range env.Names() {
		value, _ := env.Get(name)
		if _, err := fmt.Fprintf(a.stdout, "%s = %s\n", name, eval.Repr(value)); err != nil {
			return err
		}
	}
	return nil
}

// PrintBinding writes a single binding to stdout, a namespace is followed by
// each of the bindings it captured, indented, in the order they were captured.
func (a App) PrintBinding(name string, value eval.Value) error {
	if _, err := fmt.Fprintf(a.stdout, "%s = %s\n", name, eval.Repr(value)); err != nil {
		return err
	}

	ns, ok := value.(*eval.Namespace)
	if !ok {
		return nil
	}

	for attr, captured := range ns.Bindings().All() {
		if _, err := fmt.Fprintf(a.stdout, "    %s.%s = %s\n", name, attr, eval.Repr(captured)); err != nil {
			return err
		}
	}

	return nil
}

// parse reads and parses file, syntax errors are pretty printed to stderr.
func (a App) parse(file string) ([]byte, syntax.Program, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, syntax.Program{}, err
	}

	parser, err := parser.New(file, bytes.NewReader(src), syntax.PrettyConsoleHandler(a.stderr, src))
	if err != nil {
		return nil, syntax.Program{}, err
	}

	program, err := parser.Parse()
	if err != nil {
		return nil, syntax.Program{}, fmt.Errorf("%w: %s is not valid scopescript", err, file)
	}

	return src, program, nil
}
