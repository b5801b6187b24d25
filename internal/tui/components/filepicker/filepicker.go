// Package filepicker implements the script picker `scopespace run` shows when it is
// not given a file.
package filepicker

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.followtheprocess.codes/scopespace/internal/tui/theme"
)

const (
	noticeTimeout = 2 * time.Second // How long a notice stays up
	chrome        = 4               // Lines of the view that are not the file list
)

// keys are the picker's key bindings, navigation is left to the bubbles filepicker.
type keys struct {
	nav  filepicker.KeyMap
	help key.Binding
	quit key.Binding
}

func newKeys() keys {
	nav := filepicker.DefaultKeyMap()
	nav.Select = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run"))
	nav.Open = key.NewBinding(key.WithKeys("l", "right", "enter"), key.WithHelp("→/l", "open dir"))
	nav.Back = key.NewBinding(key.WithKeys("h", "left", "backspace"), key.WithHelp("←/h", "parent dir"))

	return keys{
		nav:  nav,
		help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "cancel")),
	}
}

// ShortHelp implements [help.KeyMap].
func (k keys) ShortHelp() []key.Binding {
	return []key.Binding{k.nav.Select, k.nav.Open, k.nav.Back, k.help, k.quit}
}

// FullHelp implements [help.KeyMap].
func (k keys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nav.Up, k.nav.Down, k.nav.PageUp, k.nav.PageDown},
		{k.nav.GoToTop, k.nav.GoToLast},
		{k.nav.Select, k.nav.Open, k.nav.Back},
		{k.help, k.quit},
	}
}

// notice is a message shown above the file list until it expires.
type notice struct {
	text string
	id   int // Only an expired message carrying the same id clears it
}

// expired is sent once the notice with the given id has been up for [noticeTimeout].
type expired struct {
	id int
}

// Model is the script picker tea Model.
type Model struct {
	picker   filepicker.Model // The bubbles filepicker doing the browsing
	help     help.Model       // Renders the key help
	styles   theme.Styles     // Styles for the header and notices
	keys     keys             // The key bindings
	notice   notice           // The current notice, if any
	selected string           // Path of the chosen script, empty until one is chosen
	done     bool             // Whether the picker has finished
}

// New returns a new [Model] browsing from dir, only files with one of the given
// extensions can be picked.
func New(dir string, extensions ...string) Model {
	palette := theme.CatpuccinMacchiato
	styles := theme.NewStyles(palette)
	keys := newKeys()

	picker := filepicker.New()
	picker.CurrentDirectory = dir
	picker.AllowedTypes = extensions
	picker.KeyMap = keys.nav
	picker.AutoHeight = false
	picker.ShowPermissions = false
	picker.Cursor = "›"
	picker.Styles.Cursor = lipgloss.NewStyle().Foreground(palette.Mauve)
	picker.Styles.Selected = lipgloss.NewStyle().Foreground(palette.Mauve).Bold(true)
	picker.Styles.Directory = lipgloss.NewStyle().Foreground(palette.Blue)
	picker.Styles.File = lipgloss.NewStyle().Foreground(palette.Text)
	picker.Styles.DisabledFile = lipgloss.NewStyle().Foreground(palette.Overlay0)
	picker.Styles.EmptyDirectory = styles.Muted.PaddingLeft(2).SetString("No files here")

	h := help.New()
	h.Styles.ShortKey = styles.HelpKey
	h.Styles.ShortDesc = styles.HelpDesc
	h.Styles.FullKey = styles.HelpKey
	h.Styles.FullDesc = styles.HelpDesc

	return Model{
		picker: picker,
		help:   h,
		styles: styles,
		keys:   keys,
	}
}

// Selected returns the script that was picked, it is empty if the user cancelled.
func (m Model) Selected() string {
	return m.selected
}

// Init helps implement [tea.Model] for [Model], it reads the starting directory.
func (m Model) Init() tea.Cmd {
	return m.picker.Init()
}

// Update updates the UI in response to messages.
//
// Picking a script finishes the picker, picking any other file shows a notice.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.picker.SetHeight(max(msg.Height-chrome, 1))
		return m, nil
	case expired:
		if msg.id == m.notice.id {
			m.notice.text = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if picked, path := m.picker.DidSelectDisabledFile(msg); picked {
		var expire tea.Cmd
		m, expire = m.warn(fmt.Sprintf("%s is not a scopescript file", filepath.Base(path)))
		return m, tea.Batch(cmd, expire)
	}

	if picked, path := m.picker.DidSelectFile(msg); picked {
		m.selected = path
		m.done = true
		return m, tea.Quit
	}

	return m, cmd
}

// warn shows text as a notice, returning the command that later expires it.
func (m Model) warn(text string) (Model, tea.Cmd) {
	m.notice = notice{text: text, id: m.notice.id + 1}
	id := m.notice.id
	return m, tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return expired{id: id}
	})
}

// View renders the UI to the user.
func (m Model) View() string {
	if m.done {
		return ""
	}

	header := m.styles.Header.Render("Pick a script to run") + m.styles.Muted.Render(m.picker.CurrentDirectory)

	status := m.styles.Muted.Render("Scripts end in " + strings.Join(m.picker.AllowedTypes, ", "))
	if m.notice.text != "" {
		status = m.styles.Error.Render(m.notice.text)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		"",
		header,
		status,
		m.picker.View(),
		m.help.View(m.keys),
	)
}
