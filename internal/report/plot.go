package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"gtfs-lateness/internal/lateness"
)

// WritePNGChart saves the lateness curve as a PNG. The x axis is the home
// departure time in hours since midnight.
func WritePNGChart(path, title string, curve lateness.Curve) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "leave home (hour)"
	p.Y.Label.Text = "p(late)"
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, 0, len(curve))
	for _, pt := range curve {
		pts = append(pts, plotter.XY{X: float64(pt.DepartureSec) / 3600, Y: pt.Probability})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(plotter.NewGrid(), line)
	p.Legend.Add("p(late)", line)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
