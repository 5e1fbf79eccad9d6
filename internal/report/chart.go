package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"gtfs-lateness/internal/gtfs"
	"gtfs-lateness/internal/lateness"
)

// WriteHTMLChart renders the lateness curve as a self-contained HTML page.
func WriteHTMLChart(path, title string, curve lateness.Curve) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("probability of missing the meeting, %d departure times", len(curve)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "leave home"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "p(late)", Min: 0, Max: 1}),
	)

	xs := make([]string, 0, len(curve))
	ys := make([]opts.LineData, 0, len(curve))
	for _, pt := range curve {
		xs = append(xs, gtfs.FormatClock(pt.DepartureSec))
		ys = append(ys, opts.LineData{Value: pt.Probability})
	}
	line.SetXAxis(xs).AddSeries("p(late)", ys)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := line.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
