package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	enter      key.Binding
	back       key.Binding
	pretrained key.Binding
	train      key.Binding
	retry      key.Binding
	piano      key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		down:       key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		pretrained: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pretrained")),
		train:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "train myself")),
		retry:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		piano:      key.NewBinding(key.WithKeys("a", "w", "s", "e", "d", "f", "t", "g", "y", "h", "u", "j"), key.WithHelp("a-j", "play")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.pretrained, k.train},
		{k.piano, k.retry, k.quit},
	}
}
