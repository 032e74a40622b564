package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Step key.Binding
	Jump key.Binding
	Run  key.Binding
	Help key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Step: key.NewBinding(
			key.WithKeys("s", " ", "right"),
			key.WithHelp("s/space", "step 1 cycle"),
		),
		Jump: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "step 10 cycles"),
		),
		Run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run to halt"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Step, k.Run, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Step, k.Jump, k.Run},
		{k.Help, k.Quit},
	}
}
