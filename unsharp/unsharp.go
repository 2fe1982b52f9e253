// Package unsharp implements the standard and adaptive unsharp-mask stage
// (spec §4.4), run as a sequential list of passes.
package unsharp

import (
	"context"

	"github.com/go-imppg/imppg/dsp"
	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
)

// Params configures a single pass (spec §3).
type Params struct {
	Adaptive  bool
	Sigma     float64
	AmountMin float32 // only used when Adaptive.
	AmountMax float32
	Threshold float32 // only used when Adaptive.
	Width     float32 // only used when Adaptive.
}

// steeringSigma is the fixed sigma used for the adaptive steering
// brightness L, always computed from the original selection (spec §4.4).
const steeringSigma = 1.0

// IsNoOp reports whether a pass is a no-op per spec §3: non-adaptive with
// amountMax == 1, or adaptive with amountMin == amountMax == 1.
func (p Params) IsNoOp() bool {
	if !p.Adaptive {
		return p.AmountMax == 1
	}
	return p.AmountMin == 1 && p.AmountMax == 1
}

// Progress is called once per completed pass with its index and total.
type Progress func(passIndex, total int)

// RunPasses applies each pass sequentially: pass k consumes the output of
// pass k-1 (or rawSelection for k==0). rawSelection is also the fixed
// input to the adaptive steering brightness for every pass (spec §4.4).
func RunPasses(ctx context.Context, rawSelection *imgbuf.FloatPlane, passes []Params, progress Progress) (*imgbuf.FloatPlane, error) {
	if len(passes) == 0 {
		return nil, ierr.New(ierr.InvalidInput, "unsharp.RunPasses", nil)
	}
	current := rawSelection
	for i, p := range passes {
		select {
		case <-ctx.Done():
			return nil, ierr.New(ierr.Cancelled, "unsharp.RunPasses", ctx.Err())
		default:
		}
		next, err := runPass(current, rawSelection, p)
		if err != nil {
			return nil, err
		}
		current = next
		if progress != nil {
			progress(i+1, len(passes))
		}
	}
	return current, nil
}

func runPass(input, rawSelection *imgbuf.FloatPlane, p Params) (*imgbuf.FloatPlane, error) {
	if p.Sigma <= 0 {
		return nil, ierr.New(ierr.InvalidInput, "unsharp.runPass", nil)
	}
	if p.IsNoOp() {
		return input.Clone(), nil
	}

	blurred := dsp.Gaussian(input, p.Sigma, dsp.Auto)
	out := imgbuf.NewFloatPlane(input.Width, input.Height)

	if !p.Adaptive {
		a := p.AmountMax
		for y := 0; y < input.Height; y++ {
			inRow := input.Row(y)
			bRow := blurred.Row(y)
			outRow := out.Row(y)
			for x, v := range inRow {
				outRow[x] = clamp01(a*v + (1-a)*bRow[x])
			}
		}
		return out, nil
	}

	steering := dsp.Gaussian(rawSelection, steeringSigma, dsp.Auto)
	for y := 0; y < input.Height; y++ {
		inRow := input.Row(y)
		bRow := blurred.Row(y)
		lRow := steering.Row(y)
		outRow := out.Row(y)
		for x, v := range inRow {
			a := adaptiveAmount(lRow[x], p)
			outRow[x] = clamp01(a*v + (1-a)*bRow[x])
		}
	}
	return out, nil
}

// adaptiveAmount implements the piecewise amount function of spec §4.4:
// constant branches outside [t-w, t+w], and inside that band the unique
// cubic in L matching value and first derivative at both ends with an
// inflection at L=t. That cubic is exactly the smoothstep Hermite blend
// between amountMin and amountMax.
func adaptiveAmount(l float32, p Params) float32 {
	t, w := p.Threshold, p.Width
	switch {
	case l <= t-w:
		return p.AmountMin
	case l >= t+w:
		return p.AmountMax
	default:
		u := (l - (t - w)) / (2 * w)
		s := u * u * (3 - 2*u)
		return p.AmountMin + s*(p.AmountMax-p.AmountMin)
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
