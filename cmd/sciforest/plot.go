package main

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// plotLoss renders the per epoch training loss, and the validation score when
// one was recorded, as a line chart. The image format follows the extension
// of path.
func plotLoss(title string, steps, scores []float64, path string) error {
	if len(steps) == 0 {
		return errors.NewValueError("plotLoss", "estimator has no loss history")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())

	loss, err := plotter.NewLine(series(steps))
	if err != nil {
		return errors.Wrap(err, "plot loss")
	}
	loss.LineStyle.Width = vg.Points(2)
	p.Add(loss)
	p.Legend.Add("loss", loss)

	if len(scores) > 0 {
		score, err := plotter.NewLine(series(scores))
		if err != nil {
			return errors.Wrap(err, "plot score")
		}
		score.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(score)
		p.Legend.Add("score", score)
	}
	p.Legend.Top = true

	return errors.Wrapf(p.Save(8*vg.Inch, 5*vg.Inch, path), "save plot to %s", path)
}

func series(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	return pts
}
