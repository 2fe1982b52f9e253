package tonecurve

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/go-imppg/imppg/ierr"
)

// PlotSegments is num_tone_curve_draw_segments' default (spec §6); it is
// a UI-detail knob but also governs the density of the debug plot below.
const PlotSegments = 512

// WritePNG renders the curve as a PNG diagnostic plot, the same
// "render a chart for debugging" role gonum/plot fills for the teacher's
// probe tooling. This is never on the interactive or save path — it
// exists purely as an operator debug aid; no command in this repository
// calls it.
func (c *Curve) WritePNG(path string, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "tone curve"
	p.X.Label.Text = "input"
	p.Y.Label.Text = "output"

	pts := make(plotter.XYs, PlotSegments+1)
	for i := range pts {
		x := float64(i) / float64(PlotSegments)
		pts[i].X = x
		pts[i].Y = c.Precise(x)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return ierr.New(ierr.InvalidInput, "tonecurve.WritePNG", err)
	}
	p.Add(line)

	ctrl := make(plotter.XYs, len(c.points))
	for i, pt := range c.points {
		ctrl[i].X = pt.X
		ctrl[i].Y = pt.Y
	}
	scatter, err := plotter.NewScatter(ctrl)
	if err != nil {
		return ierr.New(ierr.InvalidInput, "tonecurve.WritePNG", err)
	}
	p.Add(scatter)

	if err := p.Save(width, height, path); err != nil {
		return ierr.New(ierr.IO, "tonecurve.WritePNG", err)
	}
	return nil
}
