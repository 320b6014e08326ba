// package formatter renders training progress and sample history to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
	"github.com/desertthunder/musegen/internal/tasks"
)

// Format names accepted by [Render] and the --format flags.
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists every supported format.
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ChartExport is the data rendered for one training session.
type ChartExport struct {
	SessionID string                  `json:"session_id"`
	ModelName string                  `json:"model_name,omitempty"`
	Progress  models.TrainingProgress `json:"progress"`
	Samples   []*models.Sample        `json:"samples,omitempty"`
}

func (e *ChartExport) status() string {
	if e.Progress.Finished {
		return "finished"
	}
	return "in progress"
}

// ExportToCSV converts the chart to long-form CSV with columns: series, legend, x, y
func ExportToCSV(export *ChartExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"series", "legend", "x", "y"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, series := range export.Progress.ChartSeries {
		for _, pt := range series.Points {
			record := []string{strconv.Itoa(i), series.Legend, formatFloat(pt.X), formatFloat(pt.Y)}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts the chart to a Markdown document with one table row per point index
func ExportToMarkdown(export *ChartExport) ([]byte, error) {
	var buf bytes.Buffer
	acc := tasks.Replay(export.Progress)

	fmt.Fprintf(&buf, "# Training session %s\n\n", export.SessionID)
	if export.ModelName != "" {
		fmt.Fprintf(&buf, "**Model**: %s\n", export.ModelName)
	}
	fmt.Fprintf(&buf, "**Status**: %s\n", export.status())
	fmt.Fprintf(&buf, "**Points**: %d\n\n", acc.PointCount())

	if len(acc.Series) > 0 {
		buf.WriteString("## Progress\n\n")

		header := []string{label(acc.XLabel, "x")}
		for _, legend := range acc.Legends() {
			header = append(header, fmt.Sprintf("%s (%s)", legend, label(acc.YLabel, "y")))
		}
		fmt.Fprintf(&buf, "| %s |\n", strings.Join(header, " | "))
		fmt.Fprintf(&buf, "|%s\n", strings.Repeat(" --- |", len(header)))

		for _, row := range acc.Rows() {
			cells := []string{rowX(row)}
			for _, pt := range row {
				if pt == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, formatFloat(pt.Y))
			}
			fmt.Fprintf(&buf, "| %s |\n", strings.Join(cells, " | "))
		}
		buf.WriteString("\n")
	}

	if len(export.Samples) > 0 {
		buf.WriteString("## Samples\n\n")
		for _, s := range export.Samples {
			fmt.Fprintf(&buf, "- seed %d: [%s](%s) (%d bytes)\n", s.Seed(), s.Path(), s.Path(), s.SizeBytes())
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts the chart to plain text, one line per series
func ExportToText(export *ChartExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Session: %s\n", export.SessionID)
	if export.ModelName != "" {
		fmt.Fprintf(&buf, "Model: %s\n", export.ModelName)
	}
	fmt.Fprintf(&buf, "Status: %s\n", export.status())
	if export.Progress.XLabel != "" || export.Progress.YLabel != "" {
		fmt.Fprintf(&buf, "Axes: %s / %s\n", label(export.Progress.XLabel, "x"), label(export.Progress.YLabel, "y"))
	}
	buf.WriteString("\n")

	for _, series := range export.Progress.ChartSeries {
		points := make([]string, len(series.Points))
		for i, pt := range series.Points {
			points[i] = fmt.Sprintf("(%s, %s)", formatFloat(pt.X), formatFloat(pt.Y))
		}
		fmt.Fprintf(&buf, "%s: %s\n", label(series.Legend, "series"), strings.Join(points, " "))
	}

	if len(export.Samples) > 0 {
		fmt.Fprintf(&buf, "\nSamples: %d\n", len(export.Samples))
		for _, s := range export.Samples {
			fmt.Fprintf(&buf, "  seed %-2d %s\n", s.Seed(), s.Path())
		}
	}

	return buf.Bytes(), nil
}

// Render dispatches to the exporter for format.
func Render(export *ChartExport, format string) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ExportToText(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown, "md":
		return ExportToMarkdown(export)
	case FormatJSON:
		return shared.MarshalJSON(export, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return "csv"
	case FormatMarkdown, "md":
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// WriteExport renders export and writes it to path.
//
// Defaults to {session}_progress.{ext} as the filename.
func WriteExport(export *ChartExport, format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_progress.%s", export.SessionID, Extension(format))
	}

	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func label(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// rowX returns the x value of the first point present in row.
func rowX(row []*models.ChartPoint) string {
	for _, pt := range row {
		if pt != nil {
			return formatFloat(pt.X)
		}
	}
	return ""
}
