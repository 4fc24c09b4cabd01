package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the strip's key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpText renders the bindings for the footer.
func (k keyMap) helpText() string {
	h := k.Quit.Help()
	return h.Key + " to " + h.Desc
}
