// Package cmd implements scopespace's CLI.
package cmd

import (
	"io"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/scopespace/internal/app"
	"go.followtheprocess.codes/scopespace/internal/tui"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const long = `
scopespace runs scopescript, a small language built around one construct:

    with scope as ns {
        x = 1
    }

Every top-level variable the block creates or rebinds is captured into the
namespace 'ns' and the globals are put back exactly as they were before the
block ran.

With no arguments, scopespace starts an interactive REPL.
`

// Build returns the root scopespace CLI command.
func Build() (*cli.Command, error) {
	var debug bool
	return cli.New(
		"scopespace",
		cli.Short("Run and explore scopescript, where scopes capture the globals they touch"),
		cli.Long(long),
		cli.Allow(cli.NoArgs()),
		cli.Version(version),
		cli.Commit(commit),
		cli.BuildDate(date),
		cli.Flag(&debug, "debug", 'd', false, "Log every capture decision the REPL makes"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			// Logs would scribble over the alt screen so they are discarded
			// unless explicitly asked for
			stderr := io.Discard
			if debug {
				stderr = cmd.Stderr()
			}
			app := app.New(cmd.Stdout(), stderr, debug)
			return tui.REPL(app)
		}),
		cli.SubCommands(run, check, format, inspect),
	)
}

const runLong = `
Output from print goes to stdout. With '--verbose' every binding a scope
captures, and every global it restores, is logged to stderr.

If no file is given, an interactive picker chooses a script from the
current directory.
`

// run returns the run subcommand.
func run() (*cli.Command, error) {
	var options app.RunOptions
	return cli.New(
		"run",
		cli.Short("Run a scopescript file"),
		cli.Long(runLong),
		cli.Allow(cli.MaxArgs(1)),
		cli.Flag(&options.Globals, "globals", 'g', false, "Print the top-level bindings once the script finishes"),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Enable debug logging"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := app.New(cmd.Stdout(), cmd.Stderr(), options.Verbose)

			var file string
			if len(args) == 0 {
				picked, err := tui.PickScript(".")
				if err != nil {
					return err
				}
				file = picked
			} else {
				file = args[0]
			}

			return app.Run(file, options)
		}),
	)
}

// check returns the check subcommand.
func check() (*cli.Command, error) {
	var options app.CheckOptions
	return cli.New(
		"check",
		cli.Short("Check scopescript files for syntax errors"),
		cli.Allow(cli.MinArgs(1)),
		cli.Flag(&options.Strict, "strict", 's', false, "Also fail files that are not canonically formatted"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := app.New(cmd.Stdout(), cmd.Stderr(), false)
			return app.Check(args, options)
		}),
	)
}

// format returns the fmt subcommand.
func format() (*cli.Command, error) {
	var options app.FmtOptions
	return cli.New(
		"fmt",
		cli.Short("Print a scopescript file in its canonical format"),
		cli.RequiredArg("file", "Path of the script to format"),
		cli.Flag(&options.Write, "write", 'w', false, "Write the result back to the file instead of stdout"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := app.New(cmd.Stdout(), cmd.Stderr(), false)
			return app.Fmt(cmd.Arg("file"), options)
		}),
	)
}

// inspect returns the inspect subcommand.
func inspect() (*cli.Command, error) {
	var verbose bool
	return cli.New(
		"inspect",
		cli.Short("Run a scopescript file then browse the bindings it leaves behind"),
		cli.RequiredArg("file", "Path of the script to inspect"),
		cli.Flag(&verbose, "verbose", 'v', false, "Enable debug logging"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := app.New(cmd.Stdout(), cmd.Stderr(), verbose)
			return tui.Inspect(app, cmd.Arg("file"))
		}),
	)
}
