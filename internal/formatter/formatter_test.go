package formatter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
	th "github.com/desertthunder/musegen/internal/testing"
)

func sampleExport() *ChartExport {
	return &ChartExport{
		SessionID: "abc",
		ModelName: "LSTM",
		Progress: models.TrainingProgress{
			Finished: true,
			XLabel:   "Epoch",
			YLabel:   "Loss",
			ChartSeries: []models.ChartSeries{
				{Legend: "loss", Points: []models.ChartPoint{{X: 1, Y: 2.5}, {X: 2, Y: 1.25}}},
				{Legend: "val_loss", Points: []models.ChartPoint{{X: 1, Y: 2.8}}},
			},
		},
		Samples: []*models.Sample{
			models.NewSample("abc", 3, "samples/abc_3.mid", 42),
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		want := []string{
			"series,legend,x,y",
			"0,loss,1,2.5",
			"0,loss,2,1.25",
			"1,val_loss,1,2.8",
		}
		if len(lines) != len(want) {
			t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
			}
		}
	})

	t.Run("ExportToCSV Empty", func(t *testing.T) {
		data, err := ExportToCSV(&ChartExport{SessionID: "x"})
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "series,legend,x,y" {
			t.Errorf("expected headers only, got %q", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Training session abc",
			"**Model**: LSTM",
			"**Status**: finished",
			"**Points**: 3",
			"| Epoch | loss (Loss) | val_loss (Loss) |",
			"| 1 | 2.5 | 2.8 |",
			"| 2 | 1.25 |  |",
			"- seed 3: [samples/abc_3.mid](samples/abc_3.mid) (42 bytes)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown Without Series", func(t *testing.T) {
		data, err := ExportToMarkdown(&ChartExport{SessionID: "x"})
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)
		if strings.Contains(output, "## Progress") || strings.Contains(output, "## Samples") {
			t.Errorf("expected no sections, got:\n%s", output)
		}
		if !strings.Contains(output, "**Status**: in progress") {
			t.Errorf("expected in progress status, got:\n%s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"Session: abc",
			"Model: LSTM",
			"Axes: Epoch / Loss",
			"loss: (1, 2.5) (2, 1.25)",
			"val_loss: (1, 2.8)",
			"Samples: 1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("Dispatch", func(t *testing.T) {
		export := sampleExport()
		tests := []struct {
			format string
			prefix string
		}{
			{FormatText, "Session: abc"},
			{"", "Session: abc"},
			{FormatCSV, "series,legend,x,y"},
			{FormatMarkdown, "# Training session abc"},
			{"md", "# Training session abc"},
			{FormatJSON, "{"},
		}
		for _, tt := range tests {
			data, err := Render(export, tt.format)
			if err != nil {
				t.Errorf("Render(%q) failed: %v", tt.format, err)
				continue
			}
			if !strings.HasPrefix(string(data), tt.prefix) {
				t.Errorf("Render(%q): expected prefix %q, got %q", tt.format, tt.prefix, data)
			}
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := Render(sampleExport(), FormatJSON)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		var decoded struct {
			SessionID string `json:"session_id"`
			Progress  struct {
				ChartSeries []models.ChartSeries `json:"chart_series"`
			} `json:"progress"`
			Samples []struct {
				Seed int `json:"seed"`
			} `json:"samples"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.SessionID != "abc" || len(decoded.Progress.ChartSeries) != 2 || len(decoded.Samples) != 1 || decoded.Samples[0].Seed != 3 {
			t.Errorf("unexpected decoded export %+v", decoded)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := Render(sampleExport(), "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("Explicit Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		got, err := WriteExport(sampleExport(), FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if !strings.HasPrefix(th.MustReadFile(t, path), "series,legend,x,y") {
			t.Error("expected CSV content")
		}
	})

	t.Run("Default Path", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		got, err := WriteExport(sampleExport(), FormatMarkdown, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != "abc_progress.md" {
			t.Errorf("expected default filename, got %s", got)
		}
		th.AssertFileExists(t, filepath.Join(dir, got))
	})

	t.Run("Unknown Format Writes Nothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xml")
		if _, err := WriteExport(sampleExport(), "xml", path); err == nil {
			t.Fatal("expected error")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected no file")
		}
	})
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		FormatCSV:      "csv",
		FormatMarkdown: "md",
		"md":           "md",
		FormatJSON:     "json",
		FormatText:     "txt",
		"":             "txt",
	}
	for format, want := range tests {
		if got := Extension(format); got != want {
			t.Errorf("Extension(%q) = %q, want %q", format, got, want)
		}
	}
}
