package dsp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/go-imppg/imppg/ierr"
)

// Point2D is a 2-D sample point for circle fitting.
type Point2D struct{ X, Y float64 }

// Circle is the fit result (spec §4.2.3).
type Circle struct {
	CX, CY, R float64
}

const (
	circleFitMaxIter  = 50
	circleFitTol      = 1e-9
	circleFitDivergeN = 1e6
)

// FitCircleOptions configures FitCircle. A non-nil FixedRadius only fits
// the center; a non-nil InitialCenter seeds the iteration, otherwise the
// centroid of points is used (spec §4.2.3).
type FitCircleOptions struct {
	FixedRadius    *float64
	InitialCenter  *Point2D
}

// FitCircle fits (cx,cy,r) to points by Gauss–Newton minimization of the
// sum of squared residuals of the implicit circle equation. It fails if
// the Jacobian becomes singular or the iteration diverges.
func FitCircle(points []Point2D, opts FitCircleOptions) (Circle, error) {
	if len(points) < 3 {
		return Circle{}, ierr.New(ierr.NumericFailure, "dsp.FitCircle", errors.Errorf("need >= 3 points, got %d", len(points)))
	}

	cx, cy := 0.0, 0.0
	if opts.InitialCenter != nil {
		cx, cy = opts.InitialCenter.X, opts.InitialCenter.Y
	} else {
		for _, p := range points {
			cx += p.X
			cy += p.Y
		}
		cx /= float64(len(points))
		cy /= float64(len(points))
	}

	fixedR := opts.FixedRadius != nil
	r := 0.0
	if fixedR {
		r = *opts.FixedRadius
	} else {
		for _, p := range points {
			r += math.Hypot(p.X-cx, p.Y-cy)
		}
		r /= float64(len(points))
	}

	nparams := 3
	if fixedR {
		nparams = 2
	}
	n := len(points)

	for iter := 0; iter < circleFitMaxIter; iter++ {
		jac := mat.NewDense(n, nparams, nil)
		res := mat.NewVecDense(n, nil)
		for i, p := range points {
			dx, dy := p.X-cx, p.Y-cy
			d := math.Hypot(dx, dy)
			if d < 1e-12 {
				d = 1e-12
			}
			res.SetVec(i, d-r)
			jac.Set(i, 0, -dx/d)
			jac.Set(i, 1, -dy/d)
			if !fixedR {
				jac.Set(i, 2, -1)
			}
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), res)

		var delta mat.VecDense
		if err := delta.SolveVec(&jtj, &jtr); err != nil {
			return Circle{}, ierr.New(ierr.NumericFailure, "dsp.FitCircle", errors.Wrap(err, "singular Jacobian"))
		}

		cx -= delta.AtVec(0)
		cy -= delta.AtVec(1)
		if !fixedR {
			r -= delta.AtVec(2)
		}

		if math.IsNaN(cx) || math.IsNaN(cy) || math.Abs(cx) > circleFitDivergeN || math.Abs(cy) > circleFitDivergeN {
			return Circle{}, ierr.New(ierr.NumericFailure, "dsp.FitCircle", errors.New("iteration diverged"))
		}

		if mat.Norm(&delta, 2) < circleFitTol {
			break
		}
	}

	return Circle{CX: cx, CY: cy, R: r}, nil
}
