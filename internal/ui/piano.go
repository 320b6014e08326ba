package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PianoKey is one key of the virtual keyboard.
type PianoKey struct {
	Seed  int
	Key   string // keyboard key that presses it
	Black bool
}

// PianoLayout lists the keys in seed order: white keys on odd seeds along the home row,
// black keys on the row above. Like a real octave there is no black key between seeds 5 and 7.
var PianoLayout = []PianoKey{
	{Seed: 1, Key: "a"},
	{Seed: 2, Key: "w", Black: true},
	{Seed: 3, Key: "s"},
	{Seed: 4, Key: "e", Black: true},
	{Seed: 5, Key: "d"},
	{Seed: 7, Key: "f"},
	{Seed: 8, Key: "t", Black: true},
	{Seed: 9, Key: "g"},
	{Seed: 10, Key: "y", Black: true},
	{Seed: 11, Key: "h"},
	{Seed: 12, Key: "u", Black: true},
	{Seed: 13, Key: "j"},
}

// SeedForKey maps a keyboard key to its piano seed.
func SeedForKey(k string) (int, bool) {
	for _, pk := range PianoLayout {
		if pk.Key == k {
			return pk.Seed, true
		}
	}
	return 0, false
}

var (
	whiteKeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	blackKeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#222222")).Padding(0, 1)
	activeKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	disabledKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Padding(0, 1)
)

// RenderPiano draws the keyboard as two rows, black keys above white keys.
//
// active is highlighted; disabled greys every key out.
func RenderPiano(active int, disabled bool) string {
	var black, white []string
	for _, pk := range PianoLayout {
		label := pk.Key + ":" + strconv.Itoa(pk.Seed)
		style := whiteKeyStyle
		if pk.Black {
			style = blackKeyStyle
		}
		switch {
		case disabled:
			style = disabledKeyStyle
		case pk.Seed == active:
			style = activeKeyStyle
		}

		cell := style.Render(label)
		if pk.Black {
			black = append(black, cell)
		} else {
			white = append(white, cell)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		" "+strings.Join(black, " "),
		strings.Join(white, ""),
	)
}
