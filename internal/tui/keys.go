package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Yes     key.Binding
	No      key.Binding
	Confirm key.Binding
	Retry   key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "right"),
			key.WithHelp("y/→", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "left"),
			key.WithHelp("n/←", "no"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No, k.Confirm, k.Retry, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// forMode enables only the bindings that do something on the current screen.
func (k *keyMap) forMode(mode screenMode, inputEnabled bool) {
	answering := mode == modeQuestion && inputEnabled
	k.Yes.SetEnabled(answering)
	k.No.SetEnabled(answering)
	k.Confirm.SetEnabled(mode == modeSummary || mode == modeError)
	k.Retry.SetEnabled(mode == modeError)
}
