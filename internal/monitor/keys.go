package monitor

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start    key.Binding
	Stop     key.Binding
	ClearLog key.Binding
	Export   key.Binding
	Up       key.Binding
	Down     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Stop:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "stop")),
	ClearLog: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear log")),
	Export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "scroll log")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "scroll log")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Export, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop},
		{k.ClearLog, k.Export},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
