// Package dsp holds the math kernels shared by the deconvolver, the
// unsharp-mask stage, and the alignment engine: separable Gaussian
// convolution (direct and Young–van Vliet recursive), a radix-2 2-D FFT
// with cross-power spectrum, and a Gauss–Newton circle fit.
package dsp

import (
	"math"

	"github.com/go-imppg/imppg/imgbuf"
)

// GaussianMethod selects the separable-convolution implementation (spec
// §4.2.1).
type GaussianMethod int

const (
	// Auto picks Standard for small sigma and YoungVanVliet for large
	// sigma, where the recursive filter's bounded error is acceptable
	// and its O(1)-per-pixel cost wins over the direct kernel's O(sigma)
	// cost.
	Auto GaussianMethod = iota
	Standard
	YoungVanVliet
)

// autoThreshold is the sigma above which Auto switches to the recursive
// filter; below it the direct kernel's radius is small enough that its
// extra accuracy costs little.
const autoThreshold = 3.0

// Gaussian applies separable Gaussian blur to p, returning a new plane.
// sigma must be > 0.
func Gaussian(p *imgbuf.FloatPlane, sigma float64, method GaussianMethod) *imgbuf.FloatPlane {
	if method == Auto {
		if sigma >= autoThreshold {
			method = YoungVanVliet
		} else {
			method = Standard
		}
	}
	if method == YoungVanVliet {
		return gaussianYvV(p, sigma)
	}
	return gaussianStandard(p, sigma)
}

// gaussianKernel returns a 1-D Gaussian kernel of radius ceil(3*sigma),
// normalized to sum 1.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func gaussianStandard(p *imgbuf.FloatPlane, sigma float64) *imgbuf.FloatPlane {
	k := gaussianKernel(sigma)
	radius := len(k) / 2

	// Horizontal pass.
	horiz := imgbuf.NewFloatPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		src := p.Row(y)
		dst := horiz.Row(y)
		for x := 0; x < p.Width; x++ {
			var acc float64
			for i := -radius; i <= radius; i++ {
				acc += float64(src[clampIdx(x+i, p.Width)]) * k[i+radius]
			}
			dst[x] = float32(acc)
		}
	}

	// Vertical pass.
	out := imgbuf.NewFloatPlane(p.Width, p.Height)
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			var acc float64
			for i := -radius; i <= radius; i++ {
				acc += float64(horiz.At(x, clampIdx(y+i, p.Height))) * k[i+radius]
			}
			out.Set(x, y, float32(acc))
		}
	}
	return out
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// yvvCoeffs derives the Young–van Vliet 3rd-order recursive-filter
// coefficients for a target sigma. See Young & van Vliet, "Recursive
// implementation of the Gaussian filter", Signal Processing 44 (1995).
func yvvCoeffs(sigma float64) (b1, b2, b3, B float64) {
	var q float64
	switch {
	case sigma >= 2.5:
		q = 0.98711*sigma - 0.96330
	case sigma >= 0.5:
		q = 3.97156 - 4.14554*math.Sqrt(1-0.26891*sigma)
	default:
		q = 0.1147705018520355
	}
	b0 := 1.57825 + 2.44413*q + 1.4281*q*q + 0.422205*q*q*q
	b1n := 2.44413*q + 2.85619*q*q + 1.26661*q*q*q
	b2n := -(1.4281*q*q + 1.26661*q*q*q)
	b3n := 0.422205 * q * q * q
	B = 1 - (b1n+b2n+b3n)/b0
	return b1n / b0, b2n / b0, b3n / b0, B
}

// yvv1D runs the forward-then-backward IIR over one line, writing into
// dst (which may be a different slice than src).
func yvv1D(src []float32, dst []float64, b1, b2, b3, B float64) {
	n := len(src)
	w := make([]float64, n)
	// Forward pass; replicate the first sample for the initial
	// boundary, the conventional IIR Gaussian boundary condition.
	w0 := float64(src[0])
	for i := 0; i < n; i++ {
		x := float64(src[i])
		wm1 := w0
		wm2 := w0
		wm3 := w0
		if i >= 1 {
			wm1 = w[i-1]
		}
		if i >= 2 {
			wm2 = w[i-2]
		}
		if i >= 3 {
			wm3 = w[i-3]
		}
		w[i] = B*x + (b1*wm1+b2*wm2+b3*wm3)
	}
	// Backward pass over w, replicating the last sample at the far
	// boundary.
	yN := w[n-1]
	for i := n - 1; i >= 0; i-- {
		x := w[i]
		yp1 := yN
		yp2 := yN
		yp3 := yN
		if i <= n-2 {
			yp1 = dst[i+1]
		}
		if i <= n-3 {
			yp2 = dst[i+2]
		}
		if i <= n-4 {
			yp3 = dst[i+3]
		}
		dst[i] = B*x + (b1*yp1 + b2*yp2 + b3*yp3)
	}
}

func gaussianYvV(p *imgbuf.FloatPlane, sigma float64) *imgbuf.FloatPlane {
	b1, b2, b3, B := yvvCoeffs(sigma)

	horiz := imgbuf.NewFloatPlane(p.Width, p.Height)
	line := make([]float64, p.Width)
	for y := 0; y < p.Height; y++ {
		yvv1D(p.Row(y), line, b1, b2, b3, B)
		dst := horiz.Row(y)
		for x, v := range line {
			dst[x] = float32(v)
		}
	}

	out := imgbuf.NewFloatPlane(p.Width, p.Height)
	col := make([]float32, p.Height)
	res := make([]float64, p.Height)
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			col[y] = horiz.At(x, y)
		}
		yvv1D(col, res, b1, b2, b3, B)
		for y, v := range res {
			out.Set(x, y, float32(v))
		}
	}
	// Residual boundary error is acceptable, but callers expect [0,1]
	// clamped output at the boundary they own (spec §4.2.1); the Gaussian
	// kernel itself does not clamp since it is also used internally by
	// L-R and unsharp masking on intermediates that may legitimately
	// exceed [0,1].
	return out
}
