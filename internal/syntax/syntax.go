// Package syntax handles parsing raw scopescript source text into meaningful
// data structures and implements the tokeniser and parser as well as the
// canonical formatting of a parsed program.
package syntax

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"go.followtheprocess.codes/hue"
)

// An ErrorHandler may be provided to parts of the parsing pipeline. If a syntax error is encountered and
// a non-nil handler was provided, it is called with the position info and error message.
type ErrorHandler func(pos Position, msg string)

// Position is an arbitrary source file position including file, line
// and column information. It can also express a range of source via StartCol
// and EndCol, this is useful for error reporting.
//
// Position's without filenames are considered invalid, in the case of stdin
// the string "stdin" may be used, and the REPL uses "<repl>".
type Position struct {
	Name     string `json:"name,omitempty"`     // Filename
	Offset   int    `json:"offset,omitempty"`   // Byte offset of the position from the start of the file
	Line     int    `json:"line,omitempty"`     // Line number (1 indexed)
	StartCol int    `json:"startCol,omitempty"` // Start column (1 indexed)
	EndCol   int    `json:"endCol,omitempty"`   // End column (1 indexed), EndCol == StartCol when pointing to a single character
}

// IsValid reports whether the [Position] describes a valid source position.
//
// The rules are:
//
//   - At least Name, Line and StartCol must be set (and non zero)
//   - EndCol cannot be 0, it's only allowed values are StartCol or any number greater than StartCol
func (p Position) IsValid() bool {
	if p.Name == "" || p.Line < 1 || p.StartCol < 1 || p.EndCol < 1 || (p.EndCol >= 1 && p.EndCol < p.StartCol) {
		return false
	}
	return true
}

// String returns a string representation of a [Position].
//
// It is formatted such that most text editors/terminals will be able to support clicking on it
// and navigating to the position.
//
// Depending on which fields are set, the string returned will be different:
//
//   - "file:line:start-end": valid position pointing to a range of text on the line
//   - "file:line:start": valid position pointing to a single character on the line (EndCol == StartCol)
//
// At least Name, Line and StartCol must be present for a valid position, and Line and StarCol must be > 0. If not, an error
// string will be returned.
func (p Position) String() string {
	if !p.IsValid() {
		return fmt.Sprintf(
			"BadPosition: {Name: %q, Line: %d, StartCol: %d, EndCol: %d}",
			p.Name,
			p.Line,
			p.StartCol,
			p.EndCol,
		)
	}

	if p.StartCol == p.EndCol {
		// No range, just a single position
		return fmt.Sprintf("%s:%d:%d", p.Name, p.Line, p.StartCol)
	}

	return fmt.Sprintf("%s:%d:%d-%d", p.Name, p.Line, p.StartCol, p.EndCol)
}

// PrettyConsoleHandler returns a [ErrorHandler] that formats the syntax error for
// display on the terminal to a user, showing the offending line of src in context.
func PrettyConsoleHandler(w io.Writer, src []byte) ErrorHandler {
	var mu sync.Mutex
	return func(pos Position, msg string) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(w, "%s: %s\n\n", pos, msg)

		lines := bytes.Split(src, []byte("\n"))

		const contextLines = 3

		startLine := max(pos.Line-contextLines, 1)
		endLine := min(pos.Line+contextLines, len(lines))

		for i, line := range lines {
			i++ // Lines are 1 indexed
			if i < startLine || i > endLine {
				continue
			}

			margin := fmt.Sprintf("%d | ", i)
			fmt.Fprintf(w, "%s%s\n", margin, line)
			if i == pos.Line {
				hue.Red.Fprintf(
					w,
					"%s%s\n",
					strings.Repeat(" ", len(margin)+pos.StartCol-1),
					strings.Repeat("─", max(pos.EndCol-pos.StartCol, 1)),
				)
			}
		}

		fmt.Fprintln(w)
	}
}

// Collector gathers syntax errors rather than printing them, it is what the REPL
// uses to show errors inline.
//
// It is safe for concurrent use, the scanner reports errors from its own goroutine.
type Collector struct {
	errs []string   // Errors formatted as "position: message"
	mu   sync.Mutex // Guards errs
}

// Handler returns an [ErrorHandler] that records each error in the collector.
func (c *Collector) Handler() ErrorHandler {
	return func(pos Position, msg string) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.errs = append(c.errs, fmt.Sprintf("%s: %s", pos, msg))
	}
}

// Errors returns the collected errors, sorted so the output is deterministic.
func (c *Collector) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := slices.Clone(c.errs)
	slices.Sort(errs)
	return errs
}
