package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/musegen/internal/tasks"
)

const chartMark = "•"

// RenderChart plots every series of p on a width x height character grid.
//
// Each series is drawn in [SeriesColor]; later series overwrite earlier ones where points collide.
// The y range is printed on the left and the legend below the plot.
func RenderChart(p tasks.AccumulatedProgress, width, height int) string {
	if p.PointCount() == 0 {
		return styles.help.Render("waiting for progress…")
	}
	width = max(width, 10)
	height = max(height, 3)

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range p.Series {
		for _, pt := range s.Points {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}

	grid := make([][]string, height)
	for r := range grid {
		grid[r] = make([]string, width)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}

	for i, s := range p.Series {
		mark := lipgloss.NewStyle().Foreground(SeriesColor(i)).Render(chartMark)
		for _, pt := range s.Points {
			col := scale(pt.X, minX, maxX, width)
			row := height - 1 - scale(pt.Y, minY, maxY, height)
			grid[row][col] = mark
		}
	}

	top := fmt.Sprintf("%.3g", maxY)
	bottom := fmt.Sprintf("%.3g", minY)
	gutter := max(len(top), len(bottom))

	var b strings.Builder
	if p.YLabel != "" {
		b.WriteString(styles.help.Render(p.YLabel) + "\n")
	}
	for r, cells := range grid {
		tick := ""
		switch r {
		case 0:
			tick = top
		case height - 1:
			tick = bottom
		}
		fmt.Fprintf(&b, "%*s │%s\n", gutter, tick, strings.Join(cells, ""))
	}
	fmt.Fprintf(&b, "%*s └%s\n", gutter, "", strings.Repeat("─", width))

	xAxis := fmt.Sprintf("%.3g", minX)
	right := fmt.Sprintf("%.3g", maxX)
	pad := max(width-len(xAxis)-len(right), 1)
	fmt.Fprintf(&b, "%*s  %s%s%s\n", gutter, "", xAxis, strings.Repeat(" ", pad), right)
	if p.XLabel != "" {
		fmt.Fprintf(&b, "%*s  %s\n", gutter, "", styles.help.Render(p.XLabel))
	}

	legend := make([]string, 0, len(p.Series))
	for i, name := range p.Legends() {
		if name == "" {
			name = fmt.Sprintf("series %d", i+1)
		}
		legend = append(legend, lipgloss.NewStyle().Foreground(SeriesColor(i)).Render(chartMark+" "+name))
	}
	b.WriteString(strings.Join(legend, "  "))

	return b.String()
}

// scale maps v from [lo, hi] onto a cell index in [0, n).
func scale(v, lo, hi float64, n int) int {
	if hi <= lo {
		return 0
	}
	idx := int(math.Round((v - lo) / (hi - lo) * float64(n-1)))
	return min(max(idx, 0), n-1)
}
