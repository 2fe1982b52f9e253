package align

import (
	"math"

	"github.com/go-imppg/imppg/dsp"
	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
)

// numRays is the ray count cast from the centroid when searching for
// limb crossings (spec §4.8.2 step 1; align_proc.cpp's NUM_RAYS).
const numRays = 64

// diffSize is both the limb-crossing search window and the neighborhood
// radius used by the overexposure check (spec §4.8.2; align_disc.h's
// DIFF_SIZE).
const diffSize = 20

// maxAboveThresholdFraction is the ceiling on a limb point's "neighbors
// above threshold" fraction before it is considered spurious (spec
// §4.8.2 step 3).
const maxAboveThresholdFraction = 0.6

// steepnessDivisor is the fraction of the expected average steepness a
// candidate must clear to survive (spec §4.8.2 step 2: "1/3").
const steepnessDivisor = 3

// maxRadiusSpread is the largest allowed max(r)/min(r) across the
// sequence before the job is failed (spec §4.8.2 step 5).
const maxRadiusSpread = 1.5

// discBackgroundThreshold finds the brightness value separating the
// solar disc from the background via Otsu's between-class-variance
// maximization over an 8-bit histogram, and reports the mean brightness
// on each side (spec §4.8.2 step 1, "bimodal histogram analysis").
func discBackgroundThreshold(img *imgbuf.FloatPlane) (threshold float32, avgDisc, avgBkgrnd float64) {
	const n = 256
	h := histogramCompute8(img, n)

	var total uint64
	var sumAll float64
	for i, c := range h {
		total += c
		sumAll += float64(i) / float64(n-1) * float64(c)
	}
	if total == 0 {
		return 0, 0, 0
	}

	var sumB float64
	var wB uint64
	bestVar := -1.0
	bestT := 0
	for t := 0; t < n; t++ {
		wB += h[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) / float64(n-1) * float64(h[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			bestT = t
			avgDisc = mF
			avgBkgrnd = mB
		}
	}
	return float32(bestT) / float32(n-1), avgDisc, avgBkgrnd
}

func histogramCompute8(img *imgbuf.FloatPlane, n int) []uint64 {
	h := make([]uint64, n)
	for y := 0; y < img.Height; y++ {
		for _, v := range img.Row(y) {
			idx := int(v * float32(n-1))
			if idx < 0 {
				idx = 0
			} else if idx >= n {
				idx = n - 1
			}
			h[idx]++
		}
	}
	return h
}

// centroid computes the intensity-weighted centroid of img (spec §4.8.2
// step 1, CalcCentroid).
func centroid(img *imgbuf.FloatPlane) (cx, cy float64) {
	var sumW, sumX, sumY float64
	for y := 0; y < img.Height; y++ {
		row := img.Row(y)
		for x, v := range row {
			w := float64(v)
			sumW += w
			sumX += w * float64(x)
			sumY += w * float64(y)
		}
	}
	if sumW == 0 {
		return float64(img.Width) / 2, float64(img.Height) / 2
	}
	return sumX / sumW, sumY / sumW
}

// rayPoints walks a ray from origin in direction (dx,dy) (not necessarily
// unit length) one pixel at a time until it exits img's bounds (spec
// §4.8.2 step 1, GetRayPoints).
func rayPoints(img *imgbuf.FloatPlane, originX, originY, dx, dy float64) []dsp.Point2D {
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	ux, uy := dx/length, dy/length
	maxSteps := img.Width + img.Height
	pts := make([]dsp.Point2D, 0, maxSteps)
	for step := 0; step < maxSteps; step++ {
		x := originX + ux*float64(step)
		y := originY + uy*float64(step)
		if x < 0 || y < 0 || x >= float64(img.Width) || y >= float64(img.Height) {
			break
		}
		pts = append(pts, dsp.Point2D{X: x, Y: y})
	}
	return pts
}

// limbCrossing scans ray for the diffSize-wide window whose endpoints
// straddle threshold most steeply, returning the midpoint position and
// the window's total absolute variation as its steepness (spec §4.8.2
// step 1, FindLimbCrossing).
func limbCrossing(img *imgbuf.FloatPlane, ray []dsp.Point2D, threshold float32) (pt dsp.Point2D, steepness float64, found bool) {
	if len(ray) < diffSize {
		return dsp.Point2D{}, 0, false
	}
	sample := func(p dsp.Point2D) float32 {
		x, y := int(p.X), int(p.Y)
		if x < 0 {
			x = 0
		} else if x >= img.Width {
			x = img.Width - 1
		}
		if y < 0 {
			y = 0
		} else if y >= img.Height {
			y = img.Height - 1
		}
		return img.At(x, y)
	}

	bestSteepness := -1.0
	bestIdx := -1
	for i := 0; i+diffSize <= len(ray); i++ {
		lo := sample(ray[i])
		hi := sample(ray[i+diffSize-1])
		crosses := (lo <= threshold && hi > threshold) || (lo > threshold && hi <= threshold)
		if !crosses {
			continue
		}
		var sum float64
		for k := 0; k+1 < diffSize; k++ {
			a := sample(ray[i+k])
			b := sample(ray[i+k+1])
			d := float64(b - a)
			if d < 0 {
				d = -d
			}
			sum += d
		}
		if sum > bestSteepness {
			bestSteepness = sum
			bestIdx = i + diffSize/2
		}
	}
	if bestIdx < 0 {
		return dsp.Point2D{}, 0, false
	}
	return ray[bestIdx], bestSteepness, true
}

// countNeighborsAboveThreshold counts, within radius of p (circular
// neighborhood), how many sampled pixels exceed threshold out of the
// total sampled (spec §4.8.2 step 3, CountNeighborsAboveThreshold).
func countNeighborsAboveThreshold(img *imgbuf.FloatPlane, p dsp.Point2D, radius int, threshold float32) (numAbove, numTotal int) {
	minY := int(p.Y) - radius
	if minY < 0 {
		minY = 0
	}
	maxY := int(p.Y) + radius
	if maxY >= img.Height {
		maxY = img.Height - 1
	}
	minX := int(p.X) - radius
	if minX < 0 {
		minX = 0
	}
	maxX := int(p.X) + radius
	if maxX >= img.Width {
		maxX = img.Width - 1
	}
	r2 := float64(radius * radius)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)-p.X, float64(y)-p.Y
			if dx*dx+dy*dy > r2 {
				continue
			}
			numTotal++
			if img.At(x, y) > threshold {
				numAbove++
			}
		}
	}
	return
}

// limbCandidate is one ray's surviving limb point with its steepness.
type limbCandidate struct {
	pt        dsp.Point2D
	steepness float64
}

// findLimbPoints runs the full per-image candidate search and the two
// rejection passes of spec §4.8.2 steps 1-3.
func findLimbPoints(img *imgbuf.FloatPlane) ([]dsp.Point2D, error) {
	threshold, avgDisc, avgBkgrnd := discBackgroundThreshold(img)
	cx, cy := centroid(img)

	candidates := make([]limbCandidate, 0, numRays)
	for j := 0; j < numRays; j++ {
		angle := float64(j) * 2 * math.Pi / numRays
		dx, dy := math.Cos(angle), math.Sin(angle)
		ray := rayPoints(img, cx, cy, dx, dy)
		pt, steepness, ok := limbCrossing(img, ray, threshold)
		if ok {
			candidates = append(candidates, limbCandidate{pt, steepness})
		}
	}

	avgSteepness := diffSize * (avgDisc - avgBkgrnd)
	minSteepness := avgSteepness / steepnessDivisor

	var survivors []dsp.Point2D
	var fractions []float64
	numExceeding := 0
	for _, c := range candidates {
		if c.steepness < minSteepness {
			continue
		}
		above, total := countNeighborsAboveThreshold(img, c.pt, diffSize, threshold)
		var frac float64
		if total > 0 {
			frac = float64(above) / float64(total)
		}
		survivors = append(survivors, c.pt)
		fractions = append(fractions, frac)
		if frac > maxAboveThresholdFraction {
			numExceeding++
		}
	}

	if numExceeding < 3*len(survivors)/4 {
		filtered := survivors[:0]
		for i, p := range survivors {
			if fractions[i] <= maxAboveThresholdFraction {
				filtered = append(filtered, p)
			}
		}
		survivors = filtered
	}

	if len(survivors) < 3 {
		return nil, ierr.New(ierr.NumericFailure, "align.findLimbPoints", nil)
	}
	return survivors, nil
}

// DiscFit is one image's fitted limb circle, in that image's own pixel
// coordinates.
type DiscFit struct {
	CX, CY, R float64
}

// FindDiscs runs spec §4.8.2 steps 1-5 over every image: per-image limb
// point search, circle fit, the radius-spread sanity check, and the
// fixed-radius refit.
func FindDiscs(images []*imgbuf.FloatPlane, onRadius func(idx int, r float64)) ([]DiscFit, error) {
	fits := make([]DiscFit, len(images))
	minR, maxR := math.Inf(1), math.Inf(-1)
	allPoints := make([][]dsp.Point2D, len(images))

	for i, img := range images {
		points, err := findLimbPoints(img)
		if err != nil {
			return nil, err
		}
		allPoints[i] = points
		c, err := dsp.FitCircle(points, dsp.FitCircleOptions{})
		if err != nil {
			return nil, err
		}
		fits[i] = DiscFit{c.CX, c.CY, c.R}
		if c.R < minR {
			minR = c.R
		}
		if c.R > maxR {
			maxR = c.R
		}
		if onRadius != nil {
			onRadius(i, c.R)
		}
	}

	if minR <= 0 || maxR/minR > maxRadiusSpread {
		return nil, ierr.New(ierr.NumericFailure, "align.FindDiscs", nil)
	}

	var sumR float64
	for _, f := range fits {
		sumR += f.R
	}
	avgR := sumR / float64(len(fits))

	for i, points := range allPoints {
		c, err := dsp.FitCircle(points, dsp.FitCircleOptions{
			FixedRadius:   &avgR,
			InitialCenter: &dsp.Point2D{X: fits[i].CX, Y: fits[i].CY},
		})
		if err != nil {
			return nil, err
		}
		fits[i] = DiscFit{c.CX, c.CY, avgR}
	}
	return fits, nil
}

// LimbTranslations converts per-image disc centers into translations
// relative to the first image (spec §4.8.2 step 6).
func LimbTranslations(fits []DiscFit) []Vec {
	out := make([]Vec, len(fits))
	for i, f := range fits {
		out[i] = Vec{X: fits[0].CX - f.CX, Y: fits[0].CY - f.CY}
	}
	return out
}
