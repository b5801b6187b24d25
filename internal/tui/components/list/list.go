// Package list implements a bubbletea list component to browse the bindings
// a script left behind, namespaces can be opened to browse what they captured.
package list

import (
	"iter"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/scopespace/internal/eval"
)

// maxDescription is how much of a value's repr is shown under its name.
const maxDescription = 60

// Binding is a single name bound to a value, it implements [list.DefaultItem].
type Binding struct {
	Value eval.Value // The bound value
	Name  string     // The name it is bound to
}

// Title returns the binding's name.
func (b Binding) Title() string {
	return b.Name
}

// Description returns the type and a possibly truncated repr of the value.
func (b Binding) Description() string {
	repr := []rune(eval.Repr(b.Value))
	if len(repr) > maxDescription {
		repr = append(repr[:maxDescription-1], '…')
	}
	return b.Value.Type() + ": " + string(repr)
}

// FilterValue is what the list filters on, the name.
func (b Binding) FilterValue() string {
	return b.Name
}

// level is one list of bindings, there is one per opened namespace.
type level struct {
	title    string      // Title of the list
	bindings []list.Item // The bindings shown
	index    int         // Cursor position to restore when coming back to this level
}

// Model is the list tea Model.
type Model struct {
	l        list.Model  // The base list bubble
	back     key.Binding // Goes back up out of an opened namespace
	stack    []level     // Levels above the one being shown, the root first
	current  level       // The level being shown
	selected *Binding    // The binding that was picked, nil if none
}

// New returns a new [Model] listing bindings in the order given.
func New(title string, bindings iter.Seq2[string, eval.Value]) Model {
	current := level{title: title, bindings: items(bindings)}

	l := list.New(current.bindings, list.NewDefaultDelegate(), 0, 0)
	l.Title = title

	back := key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "back"))
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{back}
	}

	return Model{
		l:       l,
		back:    back,
		current: current,
	}
}

// items converts bindings into list items.
func items(bindings iter.Seq2[string, eval.Value]) []list.Item {
	var all []list.Item
	for name, value := range bindings {
		all = append(all, Binding{Name: name, Value: value})
	}
	return all
}

// Init helps implement [tea.Model] for [Model].
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI in response to messages.
//
// Enter on a namespace opens it, enter on anything else picks it and quits.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let the filter input have every key while the user is typing
		if m.l.FilterState() == list.Filtering {
			break
		}

		switch {
		case msg.String() == "ctrl+c", msg.String() == "q":
			return m, tea.Quit
		case msg.String() == "enter":
			return m.enter()
		case key.Matches(msg, m.back):
			m.pop()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd

	m.l, cmd = m.l.Update(msg)

	return m, cmd
}

// enter handles the enter key.
func (m Model) enter() (tea.Model, tea.Cmd) {
	binding, ok := m.l.SelectedItem().(Binding)
	if !ok {
		// Nothing to pick e.g. an empty namespace
		return m, nil
	}

	ns, ok := binding.Value.(*eval.Namespace)
	if !ok {
		m.selected = &binding
		return m, tea.Quit
	}

	m.current.index = m.l.Index()
	m.stack = append(m.stack, m.current)
	m.show(level{
		title:    m.current.title + "." + binding.Name,
		bindings: items(ns.Bindings().All()),
	})

	return m, nil
}

// pop goes back to the enclosing level, if there is one.
func (m *Model) pop() {
	if len(m.stack) == 0 {
		return
	}

	previous := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	m.show(previous)
}

// show makes lvl the level being shown.
func (m *Model) show(lvl level) {
	m.current = lvl
	m.l.ResetFilter()
	m.l.Title = lvl.title
	m.l.SetItems(lvl.bindings)
	m.l.Select(lvl.index)
}

// View renders the UI to the user.
func (m Model) View() string {
	return m.l.View()
}

// Selected returns the picked binding from the list, if any.
func (m Model) Selected() (Binding, bool) {
	if m.selected == nil {
		return Binding{}, false
	}
	return *m.selected, true
}

// Title returns the title of the level being shown.
func (m Model) Title() string {
	return m.current.title
}
