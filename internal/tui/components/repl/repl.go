// Package repl implements the interactive scopescript REPL as a bubbletea component.
package repl

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/scopespace/internal/eval"
	"go.followtheprocess.codes/scopespace/internal/syntax"
	"go.followtheprocess.codes/scopespace/internal/syntax/parser"
	"go.followtheprocess.codes/scopespace/internal/syntax/scanner"
	"go.followtheprocess.codes/scopespace/internal/syntax/token"
	"go.followtheprocess.codes/scopespace/internal/tui/theme"
)

const (
	name         = "repl"
	prompt       = "scope> "
	continuation = "  ...  "
	charLimit    = 1000
	inputPadding = 10
	commandWidth = 12
)

// entry is a single evaluated input and what came of it.
type entry struct {
	input  string // The source as entered, may span lines
	output string // Printed output and/or the repr of the result
	isErr  bool   // Whether output is an error
}

// Model is the REPL tea Model.
type Model struct {
	input      textinput.Model    // The line editor
	help       help.Model         // The keymap help bar
	interp     *eval.Interpreter  // Interpreter holding the session's globals
	stdout     *bytes.Buffer      // Where the interpreter prints to, drained after each input
	styles     theme.Styles       // Styles for rendering
	keys       keyMap             // The key bindings
	history    []entry            // Everything evaluated so far, oldest first
	commands   []string           // Previously entered inputs for up/down recall
	pending    []string           // Lines of an incomplete input waiting for closing braces
	historyIdx int                // Index into commands while recalling, -1 when not
	height     int                // Terminal height
	showHelp   bool               // Whether the help panel is shown
	showVars   bool               // Whether the globals panel is shown
	quitting   bool               // Whether the REPL is quitting
}

// New returns a new [Model], newInterpreter is called once to build the interpreter
// the session runs in, printing to the writer it's given.
func New(newInterpreter func(stdout io.Writer) *eval.Interpreter) Model {
	styles := theme.NewStyles(theme.CatpuccinMacchiato)

	input := textinput.New()
	input.Placeholder = "type a statement, or :help"
	input.Prompt = prompt
	input.PromptStyle = styles.Prompt
	input.CharLimit = charLimit
	input.Focus()

	stdout := &bytes.Buffer{}

	return Model{
		input:      input,
		help:       help.New(),
		interp:     newInterpreter(stdout),
		stdout:     stdout,
		styles:     styles,
		keys:       defaultKeys(),
		historyIdx: -1,
	}
}

// keyMap is the set of key bindings the REPL responds to, it implements
// [help.KeyMap] for the help bar.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Cancel key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous input")),
		Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next input")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "execute")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel input")),
		Clear:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Up, k.Down, k.Cancel, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Cancel},
		{k.Up, k.Down},
		{k.Clear, k.Quit},
	}
}

// Init helps implement [tea.Model] for [Model].
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update is part of implementing [tea.Model], it handles key presses and
// evaluates input once it is complete.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-inputPadding, 0)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.history = nil
			return m, nil

		case key.Matches(msg, m.keys.Cancel):
			m.pending = nil
			m.input.SetValue("")
			m.input.Prompt = prompt
			return m, nil

		case key.Matches(msg, m.keys.Up):
			m.recall(-1)
			return m, nil

		case key.Matches(msg, m.keys.Down):
			m.recall(1)
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the enter key.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.SetValue("")
	m.historyIdx = -1

	if len(m.pending) == 0 {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return m, nil
		}

		if strings.HasPrefix(trimmed, ":") {
			return m.command(trimmed)
		}
	}

	m.pending = append(m.pending, line)
	src := strings.Join(m.pending, "\n")

	if depth(src) > 0 {
		m.input.Prompt = continuation
		return m, nil
	}

	m.pending = nil
	m.input.Prompt = prompt
	m.commands = append(m.commands, src)

	output, isErr := m.evaluate(src)
	m.history = append(m.history, entry{input: src, output: output, isErr: isErr})

	return m, nil
}

// command runs one of the REPL's ':' commands.
func (m Model) command(input string) (tea.Model, tea.Cmd) {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":vars", ":v":
		m.showVars = !m.showVars
	case ":clear", ":c":
		m.history = nil
	case ":reset", ":r":
		m.interp.Reset()
		m.history = append(m.history, entry{input: input, output: "Environment reset"})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, entry{
			input:  input,
			output: fmt.Sprintf("unknown command %s, try :help", cmd),
			isErr:  true,
		})
	}

	return m, nil
}

// recall moves through previous inputs, direction is -1 for older and 1 for newer.
func (m *Model) recall(direction int) {
	if len(m.commands) == 0 || len(m.pending) != 0 {
		return
	}

	switch {
	case direction < 0 && m.historyIdx == -1:
		m.historyIdx = len(m.commands) - 1
	case direction < 0 && m.historyIdx > 0:
		m.historyIdx--
	case direction > 0 && m.historyIdx == -1:
		return
	case direction > 0 && m.historyIdx < len(m.commands)-1:
		m.historyIdx++
	case direction > 0:
		m.historyIdx = -1
		m.input.SetValue("")
		return
	}

	m.input.SetValue(oneLine(m.commands[m.historyIdx]))
	m.input.CursorEnd()
}

// oneLine joins a multi line input onto a single line with semicolons. Comments
// are dropped first, joined on one line they would swallow everything after them.
func oneLine(src string) string {
	s := scanner.New(name, []byte(src), nil)

	stripped := &strings.Builder{}
	last := 0
	for {
		tok := s.Scan()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.Comment {
			stripped.WriteString(src[last:tok.Start])
			last = tok.End
		}
	}
	stripped.WriteString(src[last:])

	var lines []string
	for line := range strings.Lines(stripped.String()) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "; ")
}

// evaluate parses and executes src in the session's interpreter, returning
// what to show the user and whether it is an error.
func (m Model) evaluate(src string) (string, bool) {
	collector := &syntax.Collector{}

	p, err := parser.New(name, strings.NewReader(src), collector.Handler())
	if err != nil {
		return err.Error(), true
	}

	program, err := p.Parse()
	if err != nil {
		if errs := collector.Errors(); len(errs) != 0 {
			return strings.Join(errs, "\n"), true
		}
		return err.Error(), true
	}

	m.stdout.Reset()
	value, err := m.interp.Eval(program)

	var parts []string
	if printed := strings.TrimSuffix(m.stdout.String(), "\n"); printed != "" {
		parts = append(parts, printed)
	}

	if err != nil {
		parts = append(parts, err.Error())
		return strings.Join(parts, "\n"), true
	}

	if value != eval.Nil {
		parts = append(parts, eval.Repr(value))
	}

	return strings.Join(parts, "\n"), false
}

// depth returns how many more '{' than '}' there are in src, a positive
// depth means the input is not finished.
func depth(src string) int {
	s := scanner.New(name, []byte(src), nil)

	n := 0
	for {
		tok := s.Scan()
		switch tok.Kind {
		case token.LeftBrace:
			n++
		case token.RightBrace:
			n--
		case token.EOF:
			return n
		}
	}
}

// View is the last part of implementing [tea.Model] and shows the model to the user.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var lines []string
	for _, e := range m.history {
		for i, line := range strings.Split(e.input, "\n") {
			p := prompt
			if i > 0 {
				p = continuation
			}
			lines = append(lines, m.styles.Prompt.Render(p)+m.styles.Muted.Render(line))
		}

		if e.output == "" {
			continue
		}

		style := m.styles.Result
		if e.isErr {
			style = m.styles.Error
		}
		lines = append(lines, strings.Split(style.Render(e.output), "\n")...)
	}

	for _, line := range m.pending {
		lines = append(lines, m.styles.Prompt.Render(continuation)+line)
	}

	var panels []string
	if m.showVars {
		panels = append(panels, m.varsView())
	}
	if m.showHelp {
		panels = append(panels, m.helpView())
	}

	footer := []string{m.input.View(), m.help.View(m.keys)}
	footerHeight := len(footer)
	for _, panel := range panels {
		footerHeight += strings.Count(panel, "\n") + 1
	}

	// Keep the most recent history on screen
	if m.height > 0 {
		room := max(m.height-footerHeight-1, 0)
		if len(lines) > room {
			lines = lines[len(lines)-room:]
		}
	}

	var s strings.Builder
	s.WriteString(m.styles.Header.Render("scopespace"))
	s.WriteByte('\n')
	for _, line := range lines {
		s.WriteString(line)
		s.WriteByte('\n')
	}
	for _, panel := range panels {
		s.WriteString(panel)
		s.WriteByte('\n')
	}
	s.WriteString(strings.Join(footer, "\n"))
	return s.String()
}

// varsView renders the globals panel.
func (m Model) varsView() string {
	globals := m.interp.Globals()

	var s strings.Builder
	s.WriteString(m.styles.Header.Render("Globals"))
	if globals.Len() == 0 {
		s.WriteString("\n" + m.styles.Muted.Render("no bindings"))
	}
	for _, name := range globals.Names() {
		value, _ := globals.Get(name)
		s.WriteString("\n" + m.styles.HelpKey.Render(name) + " = " + m.styles.HelpDesc.Render(eval.Repr(value)))
	}

	return m.styles.Panel.Render(s.String())
}

// helpView renders the commands panel.
func (m Model) helpView() string {
	commands := [][2]string{
		{":help, :h", "toggle this help"},
		{":vars, :v", "toggle the globals panel"},
		{":clear, :c", "clear the screen"},
		{":reset, :r", "delete every global"},
		{":quit, :q", "quit"},
	}

	var s strings.Builder
	s.WriteString(m.styles.Header.Render("Commands"))
	for _, command := range commands {
		fmt.Fprintf(&s, "\n%s%s", m.styles.HelpKey.Width(commandWidth).Render(command[0]), m.styles.HelpDesc.Render(command[1]))
	}
	s.WriteString("\n" + m.styles.Muted.Render("Inputs with unclosed braces continue on the next line"))

	return m.styles.Panel.Render(s.String())
}
