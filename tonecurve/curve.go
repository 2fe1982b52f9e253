// Package tonecurve implements the piecewise control-point tone curve
// with Catmull–Rom smoothing or gamma mode, its LUT fast path, and
// invert/stretch editing operations (spec §4.5).
package tonecurve

import (
	"math"
	"sort"

	"github.com/go-imppg/imppg/histogram"
	"github.com/go-imppg/imppg/ierr"
)

// Point is one control point in [0,1]^2.
type Point struct{ X, Y float64 }

// collisionEps is the minimum x-separation enforced between neighboring
// points; a colliding add/update nudges by this amount (spec §4.5).
const collisionEps = 1e-4

// Curve is an ordered list of control points plus smoothing/gamma state
// and a precomputed LUT.
type Curve struct {
	points    []Point
	smooth    bool
	gammaMode bool
	gamma     float64

	segments []catmullSeg // len(points)-1, valid when smooth && !gammaMode

	lut []float32
}

type catmullSeg struct{ a, b, c, d float64 }

// NewIdentity returns the two-point identity curve (0,0),(1,1), matching
// spec's testable property 7.
func NewIdentity() *Curve {
	return &Curve{
		points: []Point{{0, 0}, {1, 1}},
		gamma:  1,
	}
}

// Points returns a copy of the current control points, sorted by X.
func (c *Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// Smooth reports whether Catmull-Rom smoothing is active.
func (c *Curve) Smooth() bool { return c.smooth }

// GammaMode reports whether gamma mode overrides the control points.
func (c *Curve) GammaMode() bool { return c.gammaMode }

// Gamma returns the current gamma value.
func (c *Curve) Gamma() float64 { return c.gamma }

// SetSmooth toggles Catmull–Rom smoothing.
func (c *Curve) SetSmooth(smooth bool) {
	c.smooth = smooth
	c.invalidateSegments()
}

// SetGammaMode toggles gamma mode, which overrides the control points
// while active.
func (c *Curve) SetGammaMode(on bool) {
	c.gammaMode = on
}

// SetGamma sets the gamma value (gamma > 0).
func (c *Curve) SetGamma(gamma float64) error {
	if gamma <= 0 {
		return ierr.New(ierr.InvalidInput, "tonecurve.SetGamma", nil)
	}
	c.gamma = gamma
	return nil
}

// AddPoint inserts a new control point, nudging it by +/-collisionEps if
// it collides with an existing neighbor's x, and deactivates gamma mode
// (spec §4.5: "Gamma mode is deactivated whenever a user operation adds a
// new control point").
func (c *Curve) AddPoint(x, y float64) {
	c.gammaMode = false
	x = c.resolveCollision(x, -1)
	c.points = append(c.points, Point{x, y})
	sort.Slice(c.points, func(i, j int) bool { return c.points[i].X < c.points[j].X })
	c.invalidateSegments()
}

// UpdatePoint moves control point i to (x,y), nudging on collision.
func (c *Curve) UpdatePoint(i int, x, y float64) error {
	if i < 0 || i >= len(c.points) {
		return ierr.New(ierr.InvalidInput, "tonecurve.UpdatePoint", nil)
	}
	x = c.resolveCollision(x, i)
	c.points[i] = Point{x, y}
	sort.Slice(c.points, func(a, b int) bool { return c.points[a].X < c.points[b].X })
	c.invalidateSegments()
	return nil
}

// RemovePoint removes control point i; a no-op if fewer than two points
// would remain (spec §4.5).
func (c *Curve) RemovePoint(i int) {
	if len(c.points) <= 2 || i < 0 || i >= len(c.points) {
		return
	}
	c.points = append(c.points[:i], c.points[i+1:]...)
	c.invalidateSegments()
}

// resolveCollision nudges x away from any neighbor (other than
// excludeIdx) within collisionEps.
func (c *Curve) resolveCollision(x float64, excludeIdx int) float64 {
	for i, p := range c.points {
		if i == excludeIdx {
			continue
		}
		if math.Abs(p.X-x) < collisionEps {
			if x >= p.X {
				x = p.X + collisionEps
			} else {
				x = p.X - collisionEps
			}
		}
	}
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return x
}

// Invert reflects every control point's y to 1-y (spec §4.5).
func (c *Curve) Invert() {
	for i := range c.points {
		c.points[i].Y = 1 - c.points[i].Y
	}
	c.invalidateSegments()
}

// Stretch linearly remaps point X so that [h.Min, h.Max] maps to [0,1],
// clamped (spec §4.5).
func (c *Curve) Stretch(h histogram.Histogram) {
	span := h.Max - h.Min
	if span <= 0 {
		return
	}
	for i, p := range c.points {
		v := (p.X - h.Min) / span
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		c.points[i].X = v
	}
	sort.Slice(c.points, func(a, b int) bool { return c.points[a].X < c.points[b].X })
	c.invalidateSegments()
}

func (c *Curve) invalidateSegments() {
	c.segments = nil
	c.lut = nil
}

// ensureSegments lazily builds the Catmull–Rom per-segment coefficients
// with reflected endpoints (spec §4.5).
func (c *Curve) ensureSegments() {
	if c.segments != nil || len(c.points) < 2 {
		return
	}
	n := len(c.points)
	y := func(i int) float64 {
		switch {
		case i < 0:
			return 2*c.points[0].Y - c.points[1].Y
		case i >= n:
			return 2*c.points[n-1].Y - c.points[n-2].Y
		default:
			return c.points[i].Y
		}
	}
	segs := make([]catmullSeg, n-1)
	for i := 0; i < n-1; i++ {
		ym1, y0, y1, y2 := y(i-1), y(i), y(i+1), y(i+2)
		segs[i] = catmullSeg{
			a: y0,
			b: 0.5 * (y1 - ym1),
			c: ym1 - 2.5*y0 + 2*y1 - 0.5*y2,
			d: -0.5*ym1 + 1.5*y0 - 1.5*y1 + 0.5*y2,
		}
	}
	c.segments = segs
}

// Precise evaluates the curve directly (no LUT), used for final save
// (spec §4.5 / GLOSSARY).
func (c *Curve) Precise(x float64) float64 {
	if c.gammaMode {
		if x <= 0 {
			return 0
		}
		return math.Pow(x, 1/c.gamma)
	}
	if x <= c.points[0].X {
		return c.points[0].Y
	}
	last := len(c.points) - 1
	if x >= c.points[last].X {
		return c.points[last].Y
	}
	idx := sort.Search(len(c.points), func(i int) bool { return c.points[i].X > x }) - 1
	p0, p1 := c.points[idx], c.points[idx+1]
	t := (x - p0.X) / (p1.X - p0.X)
	if !c.smooth {
		return p0.Y + t*(p1.Y-p0.Y)
	}
	c.ensureSegments()
	s := c.segments[idx]
	return s.a + t*(s.b+t*(s.c+t*s.d))
}
