// Package tui implements the terminal user interfaces: the REPL, picking a script to run
// and browsing the bindings a script leaves behind.
package tui

import (
	"errors"
	"fmt"
	"iter"

	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/scopespace/internal/app"
	"go.followtheprocess.codes/scopespace/internal/eval"
	"go.followtheprocess.codes/scopespace/internal/tui/components/filepicker"
	"go.followtheprocess.codes/scopespace/internal/tui/components/list"
	"go.followtheprocess.codes/scopespace/internal/tui/components/repl"
)

// ErrNoSelection is returned when the user quits a picker without choosing anything.
var ErrNoSelection = errors.New("nothing selected")

// REPL runs the interactive REPL, this is what happens when users call `scopespace`
// with no arguments.
func REPL(a app.App) error {
	model := repl.New(a.Interpreter)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("repl: %w", err)
	}

	return nil
}

// PickScript lets the user choose a script under dir, returning its path.
func PickScript(dir string) (string, error) {
	tm, err := tea.NewProgram(filepicker.New(dir, app.Extension)).Run()
	if err != nil {
		return "", err
	}

	final, ok := tm.(filepicker.Model)
	if !ok {
		return "", fmt.Errorf("tui error, final model was not as expected: %T", tm)
	}

	file := final.Selected()
	if file == "" {
		return "", ErrNoSelection
	}

	return file, nil
}

// Inspect runs file then lets the user browse the globals it left behind, the
// binding they pick is printed.
func Inspect(a app.App, file string) error {
	interp, err := a.Exec(file)
	if err != nil {
		return err
	}

	globals := interp.Globals()
	a.Logger().Debug("Inspecting globals", "file", file, "count", globals.Len())

	model := list.New("Globals in "+file, sorted(globals))

	tm, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	final, ok := tm.(list.Model)
	if !ok {
		return fmt.Errorf("tui error, list final model was not as expected: %T", tm)
	}

	binding, ok := final.Selected()
	if !ok {
		return nil
	}

	return a.PrintBinding(binding.Name, binding.Value)
}

// sorted yields the bindings in env in name order.
func sorted(env *eval.Env) iter.Seq2[string, eval.Value] {
	return func(yield func(string, eval.Value) bool) {
		for _, name := range env.Names() {
			value, _ := env.Get(name)
			if !yield(name, value) {
				return
			}
		}
	}
}
