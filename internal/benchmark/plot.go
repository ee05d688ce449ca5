package benchmark

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ImprovementPlot draws the cumulative average improvement per iteration.
func ImprovementPlot(r *Result) (*plot.Plot, error) {
	cum := CumulativeAverage(r.Improvements())
	pts := make(plotter.XYs, len(cum))
	for i, v := range cum {
		pts[i] = plotter.XY{X: float64(r.Iterations[i].Index), Y: v}
	}

	p := plot.New()
	p.Title.Text = "Cumulative improvement of density-based allocation over fixed-time"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Cumulative average improvement (%)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build improvement line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{G: 128, A: 255}
	p.Add(line)
	p.Legend.Add("cumulative avg improvement (%)", line)
	p.Legend.Top = true
	return p, nil
}

// SavePlot writes the improvement plot to path; the extension picks the
// format (png, svg, pdf).
func SavePlot(r *Result, path string) error {
	p, err := ImprovementPlot(r)
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// WritePlotPNG writes the improvement plot as PNG.
func WritePlotPNG(r *Result, w io.Writer) error {
	p, err := ImprovementPlot(r)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
