package align

import (
	"context"
	"math"

	"github.com/go-imppg/imppg/dsp"
	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
)

// stabAreaSize is the tracked square's side (spec §4.8.2 step 7); it is
// already a power of two, so tracking patches need no FFT padding.
const stabAreaSize = 128

// stabBorder is the border skipped when scoring gradient quality (spec
// §4.8.2 step 7).
const stabBorder = 3

// stabBlurSigma is the fixed blur applied to the first image before
// picking the stabilization area (spec §4.8.2 step 7).
const stabBlurSigma = 1.0

// PickStabilizationArea finds the stabBlurSigma-blurred first image's
// highest-gradient-quality stabAreaSize square within intersection,
// scoring by the sum of squared horizontal and vertical pixel
// differences over the square's interior (spec §4.8.2 step 7,
// align_proc.cpp's stabilization-area search).
func PickStabilizationArea(first *imgbuf.FloatPlane, intersection imgbuf.Rect) (imgbuf.Rect, error) {
	if intersection.W < stabAreaSize || intersection.H < stabAreaSize {
		return imgbuf.Rect{}, ierr.New(ierr.InvalidInput, "align.PickStabilizationArea", nil)
	}
	blurred := blurFunc(first, stabBlurSigma, dsp.Standard)

	best := imgbuf.Rect{}
	bestScore := -1.0
	for y := intersection.Y; y+stabAreaSize <= intersection.Y+intersection.H; y++ {
		for x := intersection.X; x+stabAreaSize <= intersection.X+intersection.W; x++ {
			score := gradientQuality(blurred, x, y)
			if score > bestScore {
				bestScore = score
				best = imgbuf.Rect{X: x, Y: y, W: stabAreaSize, H: stabAreaSize}
			}
		}
	}
	return best, nil
}

func gradientQuality(p *imgbuf.FloatPlane, x0, y0 int) float64 {
	var sum float64
	for y := y0 + stabBorder; y < y0+stabAreaSize-stabBorder; y++ {
		for x := x0 + stabBorder; x < x0+stabAreaSize-stabBorder; x++ {
			h := float64(p.At(x+1, y) - p.At(x, y))
			v := float64(p.At(x, y+1) - p.At(x, y))
			sum += h*h + v*v
		}
	}
	return sum
}

// extractPatch copies a stabAreaSize square at r out of p.
func extractPatch(p *imgbuf.FloatPlane, r imgbuf.Rect) (*imgbuf.FloatPlane, error) {
	view, err := p.SubView(r)
	if err != nil {
		return nil, err
	}
	return view.Clone(), nil
}

// TrackArea follows the stabilization area across images via
// phase-correlation of same-position patches, without a window function
// (the 128x128 patch is already power-of-two sized and comparatively
// uniform), returning one position per image relative to the first
// (spec §4.8.2 step 7).
func TrackArea(ctx context.Context, images []*imgbuf.FloatPlane, area imgbuf.Rect) ([]Vec, error) {
	positions := make([]Vec, len(images))
	prevPatch, err := extractPatch(images[0], area)
	if err != nil {
		return nil, err
	}
	prevFFT, err := dsp.FFT2Real(planeToGrid(prevPatch))
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(images); i++ {
		select {
		case <-ctx.Done():
			return nil, ierr.New(ierr.Cancelled, "align.TrackArea", ctx.Err())
		default:
		}
		patch, err := extractPatch(images[i], area)
		if err != nil {
			return nil, err
		}
		currFFT, err := dsp.FFT2Real(planeToGrid(patch))
		if err != nil {
			return nil, err
		}
		delta := recoverTranslation(prevFFT, currFFT, stabAreaSize, stabAreaSize, true)
		prev := positions[i-1]
		positions[i] = Vec{X: prev.X + delta.X, Y: prev.Y + delta.Y}
		prevFFT = currFFT
	}
	return positions, nil
}

// Stabilize returns a corrected copy of translations, adjusted with the tracked area's
// projection onto a fitted circular arc, applying the backwards-motion
// rule: projected points must not move behind the direction established
// by the first-to-last point's cross product (spec §4.8.2 step 7, ported
// from align_proc.cpp's LimbAlignment stabilization pass).
func Stabilize(translations []Vec, trackPositions []Vec) ([]Vec, error) {
	pts := make([]dsp.Point2D, len(trackPositions))
	for i, p := range trackPositions {
		pts[i] = dsp.Point2D{X: p.X, Y: p.Y}
	}
	track, err := dsp.FitCircle(pts, dsp.FitCircleOptions{})
	if err != nil {
		return nil, err
	}

	out := append([]Vec(nil), translations...)

	vFirstX, vFirstY := trackPositions[0].X-track.CX, trackPositions[0].Y-track.CY
	last := trackPositions[len(trackPositions)-1]
	vLastX, vLastY := last.X-track.CX, last.Y-track.CY
	firstLastCross := vFirstX*vLastY - vFirstY*vLastX

	var prevProj Vec
	for i, p := range trackPositions {
		dx, dy := p.X-track.CX, p.Y-track.CY
		length := math.Hypot(dx, dy)
		if length <= 1e-8 {
			continue
		}
		proj := Vec{
			X: track.R*dx/length + track.CX,
			Y: track.R*dy/length + track.CY,
		}
		if i >= 1 {
			crossProd := (prevProj.X-track.CX)*(p.Y-track.CY) - (prevProj.Y-track.CY)*(p.X-track.CX)
			if crossProd*firstLastCross < 0 {
				proj = prevProj
			}
		}
		out[i].X += proj.X - p.X
		out[i].Y += proj.Y - p.Y
		prevProj = proj
	}
	return out, nil
}
