package align

import (
	"context"
	"math"

	"github.com/go-imppg/imppg/dsp"
	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
)

// Vec is a 2-D translation vector in working-buffer pixels.
type Vec struct{ X, Y float64 }

// windowFunction precomputes the Nw x Nh Blackman window (spec §4.8.1
// step 2), ported from align_phasecorr.cpp's CalcWindowFunction: note the
// formula hands the squared radial distance (dist, not its square root)
// directly to the 1-D Blackman formula as 1 - dist, and exploits the
// window's four-fold symmetry.
func windowFunction(nw, nh int) *imgbuf.FloatPlane {
	const a0, a1, a2 = 7938.0 / 18608, 9240.0 / 18608, 1430.0 / 18608
	blackman := func(x float64) float64 {
		return a0 - a1*math.Cos(math.Pi*x) + a2*math.Cos(2*math.Pi*x)
	}
	out := imgbuf.NewFloatPlane(nw, nh)
	hw, hh := float64(nw)/2, float64(nh)/2
	for y := 0; y < nh/2; y++ {
		for x := 0; x < nw/2; x++ {
			dist := sq((float64(x)-hw)/hw) + sq((float64(y)-hh)/hh)
			var v float64
			if dist < 1 {
				v = blackman(1 - dist)
			}
			fv := float32(v)
			out.Set(x, y, fv)
			out.Set(nw-1-x, y, fv)
			out.Set(nw-1-x, nh-1-y, fv)
			out.Set(x, nh-1-y, fv)
		}
	}
	return out
}

func sq(v float64) float64 { return v * v }

// pasteCentered places src into a new nw x nh zero-padded plane, centered
// per spec §4.8.1 step 3 (and align_phasecorr.cpp: an untranslated image
// starts at ((Nw-w)/2, (Nh-h)/2)).
func pasteCentered(src *imgbuf.FloatPlane, nw, nh int) *imgbuf.FloatPlane {
	ox := float64((nw - src.Width) / 2)
	oy := float64((nh - src.Height) / 2)
	return imgbuf.ResizeAndTranslatePlane(src, nw, nh, ox, oy, true)
}

func planeToGrid(p *imgbuf.FloatPlane) [][]float64 {
	grid := make([][]float64, p.Height)
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		g := make([]float64, p.Width)
		for x, v := range row {
			g[x] = float64(v)
		}
		grid[y] = g
	}
	return grid
}

// recoverTranslation implements spec §4.8.1 steps 4-5, the
// DetermineImageTranslation/Foroosh–Zerubia–Berthod port from
// align_phasecorr.cpp.
func recoverTranslation(prevFFT, currFFT [][]complex128, nw, nh int, subpixel bool) Vec {
	cps := dsp.CrossPowerSpectrum(prevFFT, currFFT)
	cc := dsp.RealPart(dsp.IFFT2(cps))

	maxx, maxy, _ := dsp.ArgMax2D(cc)

	tx, ty := maxx, maxy
	if maxx >= nw/2 {
		tx = maxx - nw
	}
	if maxy >= nh/2 {
		ty = maxy - nh
	}

	var subdx, subdy float64
	if subpixel {
		clampw := func(k int) int { return ((k % nw) + nw) % nw }
		clamph := func(k int) int { return ((k % nh) + nh) % nh }

		ccXhi := cc[maxy][clampw(maxx+1)]
		ccXlo := cc[maxy][clampw(maxx-1)]
		ccYhi := cc[clamph(maxy+1)][maxx]
		ccYlo := cc[clamph(maxy-1)][maxx]
		ccPeak := cc[maxy][maxx]

		subdx = fzbOffset(ccXlo, ccXhi, ccPeak)
		subdy = fzbOffset(ccYlo, ccYhi, ccPeak)
	}

	return Vec{X: float64(tx) + subdx, Y: float64(ty) + subdy}
}

// fzbOffset ports the ccXhi/ccXlo branch of DetermineImageTranslation: two
// candidate roots of c/(c±peak) are tried per side, the first landing in
// (0,1) wins, and the winning side's sign is positive for "hi", negative
// for "lo".
func fzbOffset(lo, hi, peak float64) float64 {
	inRange := func(v float64) bool { return v > 0 && v < 1 }
	if hi > lo {
		if d1 := hi / (hi + peak); inRange(d1) {
			return d1
		}
		if d2 := hi / (hi - peak); inRange(d2) {
			return d2
		}
		return 0
	}
	if d1 := lo / (lo + peak); inRange(d1) {
		return -d1
	}
	if d2 := lo / (lo - peak); inRange(d2) {
		return -d2
	}
	return 0
}

// PhaseCorrelate determines, for an ordered sequence of images, the
// translation of every image relative to the first (spec §4.8.1). nw, nh
// is the padded working-buffer size used for every FFT.
func PhaseCorrelate(ctx context.Context, planes []*imgbuf.FloatPlane, subpixel bool, onProgress func(idx int, t Vec)) (translations []Vec, nw, nh int, err error) {
	if len(planes) == 0 {
		return nil, 0, 0, ierr.New(ierr.InvalidInput, "align.PhaseCorrelate", nil)
	}
	maxW, maxH := 0, 0
	for _, p := range planes {
		if p.Width > maxW {
			maxW = p.Width
		}
		if p.Height > maxH {
			maxH = p.Height
		}
	}
	nw, nh = dsp.NextPow2(maxW), dsp.NextPow2(maxH)
	win := windowFunction(nw, nh)

	fftOf := func(p *imgbuf.FloatPlane) ([][]complex128, error) {
		padded := pasteCentered(p, nw, nh)
		if err := padded.Multiply(win); err != nil {
			return nil, err
		}
		return dsp.FFT2Real(planeToGrid(padded))
	}

	prevFFT, err := fftOf(planes[0])
	if err != nil {
		return nil, 0, 0, err
	}

	translations = make([]Vec, len(planes))
	if onProgress != nil {
		onProgress(0, translations[0])
	}

	for i := 1; i < len(planes); i++ {
		select {
		case <-ctx.Done():
			return nil, 0, 0, ierr.New(ierr.Cancelled, "align.PhaseCorrelate", ctx.Err())
		default:
		}

		currFFT, err := fftOf(planes[i])
		if err != nil {
			return nil, 0, 0, err
		}
		delta := recoverTranslation(prevFFT, currFFT, nw, nh, subpixel)
		prev := translations[i-1]
		translations[i] = Vec{X: prev.X + delta.X, Y: prev.Y + delta.Y}
		if onProgress != nil {
			onProgress(i, translations[i])
		}
		prevFFT = currFFT
	}
	return translations, nw, nh, nil
}

// untranslatedOrigin returns the top-left corner, within the Nw x Nh
// working buffer, of image i before any translation is applied (spec
// §4.8.1's "an untranslated image starts at (Nw-w)/2, (Nh-h)/2").
func untranslatedOrigin(nw, nh, w, h int) (int, int) {
	return (nw - w) / 2, (nh - h) / 2
}

// BoundingBox computes the union (spec §4.8.1 step 6, PadToBoundingBox
// mode) of every image's placement in the Nw x Nh working buffer, given
// its translation relative to the first image. Coordinates are in the
// working buffer's space.
func BoundingBox(nw, nh int, sizes []imgbuf.Point, translations []Vec) imgbuf.Rect {
	ox0, oy0 := untranslatedOrigin(nw, nh, sizes[0].X, sizes[0].Y)
	minX, minY := ox0, oy0
	maxX, maxY := ox0+sizes[0].X-1, oy0+sizes[0].Y-1
	for i := 1; i < len(sizes); i++ {
		ox, oy := untranslatedOrigin(nw, nh, sizes[i].X, sizes[i].Y)
		itx, ity := int(math.Trunc(translations[i].X)), int(math.Trunc(translations[i].Y))
		x0, y0 := ox-itx, oy-ity
		if x0 < minX {
			minX = x0
		}
		if y0 < minY {
			minY = y0
		}
		if x1 := x0 + sizes[i].X - 1; x1 > maxX {
			maxX = x1
		}
		if y1 := y0 + sizes[i].Y - 1; y1 > maxY {
			maxY = y1
		}
	}
	return imgbuf.Rect{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
}

// Intersection computes the set-theoretic intersection (spec §4.8.1 step
// 6, CropToIntersection mode) of every image's placement.
func Intersection(nw, nh int, sizes []imgbuf.Point, translations []Vec) imgbuf.Rect {
	ox0, oy0 := untranslatedOrigin(nw, nh, sizes[0].X, sizes[0].Y)
	maxX0, maxY0 := ox0+sizes[0].X-1, oy0+sizes[0].Y-1
	x0, y0 := ox0, oy0
	x1, y1 := maxX0, maxY0
	for i := 1; i < len(sizes); i++ {
		ox, oy := untranslatedOrigin(nw, nh, sizes[i].X, sizes[i].Y)
		itx, ity := int(math.Trunc(translations[i].X)), int(math.Trunc(translations[i].Y))
		cx, cy := ox-itx, oy-ity
		if cx > x0 {
			x0 = cx
		}
		if cy > y0 {
			y0 = cy
		}
		if nx1 := cx + sizes[i].X - 1; nx1 < x1 {
			x1 = nx1
		}
		if ny1 := cy + sizes[i].Y - 1; ny1 < y1 {
			y1 = ny1
		}
	}
	return imgbuf.Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}
