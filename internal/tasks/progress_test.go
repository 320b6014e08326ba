package tasks

import (
	"reflect"
	"testing"

	"github.com/desertthunder/musegen/internal/models"
)

func lossFrame(finished bool, pts ...models.ChartPoint) models.TrainingProgress {
	return models.TrainingProgress{
		Finished:    finished,
		XLabel:      "Epoch",
		YLabel:      "Loss",
		ChartSeries: []models.ChartSeries{{Legend: "loss", Points: pts}},
	}
}

func pt(x, y float64) models.ChartPoint { return models.ChartPoint{X: x, Y: y} }

func TestMergeProgress(t *testing.T) {
	t.Run("Three Loss Messages", func(t *testing.T) {
		acc := Replay(
			lossFrame(false, pt(0, 1.0)),
			lossFrame(false, pt(1, 0.8)),
			lossFrame(true, pt(2, 0.5)),
		)

		want := []models.ChartPoint{pt(0, 1.0), pt(1, 0.8), pt(2, 0.5)}
		if len(acc.Series) != 1 || !reflect.DeepEqual(acc.Series[0].Points, want) {
			t.Fatalf("expected %v, got %+v", want, acc.Series)
		}
		if !acc.Finished {
			t.Error("expected finished")
		}
		if acc.XLabel != "Epoch" || acc.YLabel != "Loss" {
			t.Errorf("unexpected labels %q/%q", acc.XLabel, acc.YLabel)
		}
	})

	t.Run("Does Not Mutate Previous State", func(t *testing.T) {
		first := MergeProgress(AccumulatedProgress{}, lossFrame(false, pt(0, 1)))
		snapshot := first.Series[0].Points[0]

		second := MergeProgress(first, lossFrame(false, pt(1, 2)))
		second.Series[0].Points[0] = pt(99, 99)

		if len(first.Series[0].Points) != 1 {
			t.Errorf("expected previous state to keep 1 point, got %d", len(first.Series[0].Points))
		}
		if first.Series[0].Points[0] != snapshot {
			t.Error("previous state was modified through the new state")
		}
	})

	t.Run("Monotonic And Append Only", func(t *testing.T) {
		frames := []models.TrainingProgress{
			{ChartSeries: []models.ChartSeries{{Legend: "loss", Points: []models.ChartPoint{pt(1, 3)}}}},
			{ChartSeries: []models.ChartSeries{
				{Legend: "loss", Points: []models.ChartPoint{pt(2, 2), pt(3, 1.5)}},
				{Legend: "val_loss", Points: []models.ChartPoint{pt(1, 3.2)}},
			}},
			{ChartSeries: []models.ChartSeries{{Legend: "loss"}}},
			{ChartSeries: []models.ChartSeries{
				{Legend: "loss", Points: []models.ChartPoint{pt(4, 1.2)}},
				{Legend: "val_loss", Points: []models.ChartPoint{pt(2, 2.8), pt(3, 2.1)}},
			}},
			{Finished: true, ChartSeries: []models.ChartSeries{}},
		}

		var acc AccumulatedProgress
		sums := map[int]int{}
		for n, f := range frames {
			prev := acc
			acc = MergeProgress(acc, f)

			for i, s := range f.ChartSeries {
				sums[i] += len(s.Points)
			}
			for i := range acc.Series {
				if len(acc.Series[i].Points) != sums[i] {
					t.Errorf("frame %d: series %d has %d points, want %d", n, i, len(acc.Series[i].Points), sums[i])
				}
				if i < len(prev.Series) {
					k := len(prev.Series[i].Points)
					if !reflect.DeepEqual(acc.Series[i].Points[:k], prev.Series[i].Points) {
						t.Errorf("frame %d: series %d prefix changed", n, i)
					}
				}
			}
			if len(acc.Series) < len(prev.Series) {
				t.Errorf("frame %d: series list shrank", n)
			}
		}

		if got := acc.Legends(); !reflect.DeepEqual(got, []string{"loss", "val_loss"}) {
			t.Errorf("unexpected legends %v", got)
		}
		if acc.PointCount() != 7 {
			t.Errorf("expected 7 points, got %d", acc.PointCount())
		}
		if !acc.Finished {
			t.Error("expected finished after the empty final frame")
		}
	})

	t.Run("New Series Extends Accumulator", func(t *testing.T) {
		acc := MergeProgress(AccumulatedProgress{}, models.TrainingProgress{
			ChartSeries: []models.ChartSeries{{}, {}, {Legend: "third", Points: []models.ChartPoint{pt(1, 1)}}},
		})
		if len(acc.Series) != 3 {
			t.Fatalf("expected 3 series, got %d", len(acc.Series))
		}
		if len(acc.Series[0].Points) != 0 || acc.Series[2].Legend != "third" {
			t.Errorf("unexpected series %+v", acc.Series)
		}
	})

	t.Run("Empty Legend Keeps Previous", func(t *testing.T) {
		acc := Replay(lossFrame(false, pt(1, 1)), models.TrainingProgress{
			ChartSeries: []models.ChartSeries{{Points: []models.ChartPoint{pt(2, 1)}}},
		})
		if acc.Series[0].Legend != "loss" {
			t.Errorf("expected legend to be kept, got %q", acc.Series[0].Legend)
		}
	})
}

func TestAccumulatedProgress(t *testing.T) {
	t.Run("Rows", func(t *testing.T) {
		acc := AccumulatedProgress{Series: []models.ChartSeries{
			{Legend: "loss", Points: []models.ChartPoint{pt(1, 3), pt(2, 2), pt(3, 1)}},
			{Legend: "val_loss", Points: []models.ChartPoint{pt(1, 4)}},
		}}

		rows := acc.Rows()
		if len(rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(rows))
		}
		if rows[0][1] == nil || *rows[0][1] != pt(1, 4) {
			t.Errorf("expected first val_loss point in row 0, got %v", rows[0][1])
		}
		if rows[2][0] == nil || *rows[2][0] != pt(3, 1) {
			t.Errorf("expected third loss point in row 2, got %v", rows[2][0])
		}
		if rows[1][1] != nil || rows[2][1] != nil {
			t.Error("expected gaps where val_loss has no points")
		}
	})

	t.Run("Rows Empty", func(t *testing.T) {
		if rows := (AccumulatedProgress{}).Rows(); len(rows) != 0 {
			t.Errorf("expected no rows, got %d", len(rows))
		}
	})

	t.Run("Progress Round Trip Through Replay", func(t *testing.T) {
		acc := Replay(lossFrame(false, pt(1, 2)), lossFrame(true, pt(2, 1)))
		restored := Replay(acc.Progress())
		if !reflect.DeepEqual(restored, acc) {
			t.Errorf("expected replayed snapshot to equal original\n got %+v\nwant %+v", restored, acc)
		}
	})
}
