package tonecurve

import (
	"gonum.org/v1/gonum/floats"

	"github.com/go-imppg/imppg/imgbuf"
)

// DefaultLUTSize is the default tone_curve_lut_size configuration value
// (spec §6).
const DefaultLUTSize = 1024

// RefreshLUT tabulates the curve over n uniform samples in [0,1] (spec
// §4.5); n must match the processing precision configured elsewhere
// (config.TonecurveLUTSize).
func (c *Curve) RefreshLUT(n int) {
	if n < 2 {
		n = DefaultLUTSize
	}
	xs := make([]float64, n)
	floats.Span(xs, 0, 1)
	lut := make([]float32, n)
	for i, x := range xs {
		lut[i] = float32(c.Precise(x))
	}
	c.lut = lut
}

// Approx indexes the LUT built by the last RefreshLUT call, used for the
// interactive preview fast path (spec §4.5 / GLOSSARY). If there is no
// current LUT (RefreshLUT never called, or the LUT discarded by a curve
// edit), Approx builds a default-size one.
func (c *Curve) Approx(x float64) float64 {
	if c.lut == nil {
		c.RefreshLUT(DefaultLUTSize)
	}
	n := len(c.lut)
	idx := int(x*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	} else if idx >= n {
		idx = n - 1
	}
	return float64(c.lut[idx])
}

// Apply maps every sample of p through the curve, using Approx for
// interactive preview or Precise for final save (spec §4.5).
func (c *Curve) Apply(p *imgbuf.FloatPlane, precise bool) *imgbuf.FloatPlane {
	out := imgbuf.NewFloatPlane(p.Width, p.Height)
	eval := c.Approx
	if precise {
		eval = c.Precise
	}
	for y := 0; y < p.Height; y++ {
		src := p.Row(y)
		dst := out.Row(y)
		for x, v := range src {
			dst[x] = float32(eval(float64(v)))
		}
	}
	return out
}
