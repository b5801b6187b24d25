package list

import (
	"iter"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/scopespace/internal/eval"
	"go.followtheprocess.codes/scopespace/internal/scope"
	"go.followtheprocess.codes/test"
)

func TestBrowse(t *testing.T) {
	captured := scope.NewNamespace[eval.Value]()
	captured.Set("a", eval.Int(1))
	captured.Set("b", eval.String("two"))

	m := New("globals", ordered(
		"ns", eval.NewNamespace(captured),
		"x", eval.Int(42),
	))
	test.Equal(t, m.Title(), "globals")

	// Open the namespace
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	test.Equal(t, m.Title(), "globals.ns")
	test.Equal(t, len(m.l.Items()), 2)

	_, ok := m.Selected()
	test.False(t, ok, test.Context("opening a namespace should not pick it"))

	// And back out again
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	test.Equal(t, m.Title(), "globals")
	test.Equal(t, len(m.l.Items()), 2)

	// Backspace at the top does nothing
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	test.Equal(t, m.Title(), "globals")

	// Pick x
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	binding, ok := m.Selected()
	test.True(t, ok)
	test.Equal(t, binding.Name, "x")
	test.Equal(t, binding.Value, eval.Value(eval.Int(42)))
}

func TestEmptyNamespace(t *testing.T) {
	m := New("globals", ordered("ns", eval.NewNamespace(scope.NewNamespace[eval.Value]())))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	test.Equal(t, m.Title(), "globals.ns")

	// Nothing to pick
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_, ok := m.Selected()
	test.False(t, ok)
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name    string  // Name of the test case
		binding Binding // Binding under test
		want    string  // Expected description
	}{
		{
			name:    "int",
			binding: Binding{Name: "x", Value: eval.Int(1)},
			want:    "int: 1",
		},
		{
			name:    "string",
			binding: Binding{Name: "s", Value: eval.String("hello")},
			want:    `string: "hello"`,
		},
		{
			name: "truncated",
			binding: Binding{
				Name:  "long",
				Value: eval.String("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
			},
			want: `string: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa…`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.Equal(t, tt.binding.Description(), tt.want)
			test.Equal(t, tt.binding.FilterValue(), tt.binding.Name)
		})
	}
}

// ordered yields name, value pairs in the order given.
func ordered(pairs ...any) iter.Seq2[string, eval.Value] {
	return func(yield func(string, eval.Value) bool) {
		for i := 0; i+1 < len(pairs); i += 2 {
			if !yield(pairs[i].(string), pairs[i+1].(eval.Value)) {
				return
			}
		}
	}
}

func update(tb testing.TB, m Model, msg tea.Msg) Model {
	tb.Helper()
	model, _ := m.Update(msg)
	updated, ok := model.(Model)
	test.True(tb, ok, test.Context("Update returned %T, not Model", model))
	return updated
}
