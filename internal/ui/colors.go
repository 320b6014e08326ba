package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// SeriesColors are cycled through by chart series index.
var SeriesColors = []lipgloss.Color{"#f5832c", "#94cf1f", "#214eff"}

// SeriesColor returns the chart color of series i.
func SeriesColor(i int) lipgloss.Color {
	return SeriesColors[i%len(SeriesColors)]
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// status styles a training status line by outcome.
func (p *Palette) status(s *TrainingSession) string {
	switch {
	case s.FatalError() != "" || s.streamErr != nil:
		return p.err.Render(s.Status())
	case s.Progress().Finished:
		return p.ok.Render(s.Status())
	default:
		return p.warn.Render(s.Status())
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
