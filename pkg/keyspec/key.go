// Package keyspec supplies the concrete KeyKind vocabulary recipe recipes
// are built against when the target input device is a terminal: bubbletea
// tea.KeyMsg values, normalized to Key via Bubbletea's own String() form.
package keyspec

import tea "github.com/charmbracelet/bubbletea"

// Key is a normalized keyboard key identifier, comparable and usable
// directly as the K type parameter of recipe.Input / recipe.Dispatcher.
// Its string form follows tea.KeyMsg.String(): "a", "ctrl+c", "alt+enter",
// "up", "esc", and so on.
type Key string

// FromKeyMsg normalizes a bubbletea key event into a Key.
func FromKeyMsg(msg tea.KeyMsg) Key {
	return Key(msg.String())
}

const (
	KeyEsc       Key = "esc"
	KeyEnter     Key = "enter"
	KeyTab       Key = "tab"
	KeySpace     Key = "space"
	KeyBackspace Key = "backspace"
	KeyUp        Key = "up"
	KeyDown      Key = "down"
	KeyLeft      Key = "left"
	KeyRight     Key = "right"
	KeyCtrlC     Key = "ctrl+c"
)

// Binding describes one recipe's shortcut for help-text generation: what
// keys trigger it, what it does, and whether it is currently applicable.
// It mirrors no runtime behavior of its own — the recipe.Dispatcher is
// the thing that actually matches input — this exists purely so a UI can
// render a consistent, auto-generated help line per registered recipe.
type Binding struct {
	Keys        []Key
	Description string
	Condition   func() bool
}

// Active reports whether this binding should currently appear in help text.
func (b Binding) Active() bool {
	return b.Condition == nil || b.Condition()
}

// HelpLine renders the binding as a single "keys - description" line,
// suitable for a status bar or help screen.
func (b Binding) HelpLine() string {
	line := ""
	for i, k := range b.Keys {
		if i > 0 {
			line += " "
		}
		line += string(k)
	}
	return line + " - " + b.Description
}
