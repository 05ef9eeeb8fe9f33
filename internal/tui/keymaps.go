package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// Keymap defines the keys for the application.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Pause     key.Binding
	Resume    key.Binding
	PauseAll  key.Binding
	ResumeAll key.Binding
	Retry     key.Binding
	Cancel    key.Binding
	Back      key.Binding
	Confirm   key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Resume, k.Retry, k.Cancel, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Pause, k.Resume, k.PauseAll, k.ResumeAll},
		{k.Retry, k.Cancel},
		{k.Back, k.Confirm, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Resume:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		PauseAll:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pause all")),
		ResumeAll: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "resume all")),
		Retry:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "retry")),
		Cancel:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel")),
		Back:      key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("esc", "back")),
		Confirm:   key.NewBinding(key.WithKeys("enter", "y"), key.WithHelp("enter", "confirm")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
