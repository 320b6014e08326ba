package tasks

import (
	"github.com/desertthunder/musegen/internal/models"
)

// AccumulatedProgress is the merged chart state of a training session.
//
// Values are never modified after creation; [MergeProgress] always returns a new one.
type AccumulatedProgress struct {
	Finished bool
	XLabel   string
	YLabel   string
	Series   []models.ChartSeries
}

// MergeProgress folds one progress frame into prev and returns the new state.
//
// Fragment points are appended to the series at the same index. Series missing from the fragment keep their
// points, and new indexes extend the series list. Labels and the finished flag follow the latest frame.
// prev is left untouched.
func MergeProgress(prev AccumulatedProgress, msg models.TrainingProgress) AccumulatedProgress {
	n := max(len(prev.Series), len(msg.ChartSeries))
	series := make([]models.ChartSeries, n)

	for i := range n {
		var old models.ChartSeries
		if i < len(prev.Series) {
			old = prev.Series[i]
		}
		if i >= len(msg.ChartSeries) {
			series[i] = old
			continue
		}

		frag := msg.ChartSeries[i]
		points := make([]models.ChartPoint, 0, len(old.Points)+len(frag.Points))
		points = append(points, old.Points...)
		points = append(points, frag.Points...)

		legend := frag.Legend
		if legend == "" {
			legend = old.Legend
		}
		series[i] = models.ChartSeries{Legend: legend, Points: points}
	}

	return AccumulatedProgress{
		Finished: msg.Finished,
		XLabel:   msg.XLabel,
		YLabel:   msg.YLabel,
		Series:   series,
	}
}

// Replay merges msgs in order starting from an empty state.
func Replay(msgs ...models.TrainingProgress) AccumulatedProgress {
	var acc AccumulatedProgress
	for _, m := range msgs {
		acc = MergeProgress(acc, m)
	}
	return acc
}

// Legends returns the series names in index order.
func (p AccumulatedProgress) Legends() []string {
	out := make([]string, len(p.Series))
	for i, s := range p.Series {
		out[i] = s.Legend
	}
	return out
}

// PointCount returns the total number of points across all series.
func (p AccumulatedProgress) PointCount() int {
	n := 0
	for _, s := range p.Series {
		n += len(s.Points)
	}
	return n
}

// Rows transposes the series into one row per point index.
//
// Row i holds the i-th point of every series; a series shorter than the longest leaves nil at that position.
func (p AccumulatedProgress) Rows() [][]*models.ChartPoint {
	longest := 0
	for _, s := range p.Series {
		longest = max(longest, len(s.Points))
	}

	rows := make([][]*models.ChartPoint, longest)
	for i := range rows {
		row := make([]*models.ChartPoint, len(p.Series))
		for j, s := range p.Series {
			if i < len(s.Points) {
				pt := s.Points[i]
				row[j] = &pt
			}
		}
		rows[i] = row
	}
	return rows
}

// Progress returns the state in wire form, with each series holding its full history.
func (p AccumulatedProgress) Progress() models.TrainingProgress {
	series := make([]models.ChartSeries, len(p.Series))
	copy(series, p.Series)
	return models.TrainingProgress{
		Finished:    p.Finished,
		XLabel:      p.XLabel,
		YLabel:      p.YLabel,
		ChartSeries: series,
	}
}
