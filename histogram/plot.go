package histogram

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/go-imppg/imppg/ierr"
)

// WritePNG renders the histogram as a bar-chart PNG, matching the debug
// plot convention established in tonecurve.Curve.WritePNG.
func (h Histogram) WritePNG(path string, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "brightness histogram"
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "count"

	vals := make(plotter.Values, len(h.Bins))
	for i, c := range h.Bins {
		vals[i] = float64(c)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(1))
	if err != nil {
		return ierr.New(ierr.InvalidInput, "histogram.WritePNG", err)
	}
	p.Add(bars)

	if err := p.Save(width, height, path); err != nil {
		return ierr.New(ierr.IO, "histogram.WritePNG", err)
	}
	return nil
}
