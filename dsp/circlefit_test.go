package dsp

import (
	"math"
	"testing"
)

func circlePoints(cx, cy, r float64, n int) []Point2D {
	pts := make([]Point2D, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point2D{X: cx + r*math.Cos(theta), Y: cy + r*math.Sin(theta)}
	}
	return pts
}

func TestFitCircleExactPoints(t *testing.T) {
	pts := circlePoints(50, -20, 100, 16)
	c, err := FitCircle(pts, FitCircleOptions{})
	if err != nil {
		t.Fatalf("FitCircle: %v", err)
	}
	if math.Abs(c.CX-50) > 1e-6 || math.Abs(c.CY-(-20)) > 1e-6 || math.Abs(c.R-100) > 1e-6 {
		t.Errorf("fit = %+v, want center (50,-20) radius 100", c)
	}
}

func TestFitCircleFixedRadius(t *testing.T) {
	pts := circlePoints(10, 10, 40, 12)
	r := 40.0
	c, err := FitCircle(pts, FitCircleOptions{FixedRadius: &r})
	if err != nil {
		t.Fatalf("FitCircle: %v", err)
	}
	if math.Abs(c.CX-10) > 1e-6 || math.Abs(c.CY-10) > 1e-6 {
		t.Errorf("fit = %+v, want center (10,10)", c)
	}
	if c.R != r {
		t.Errorf("R = %v, want fixed %v", c.R, r)
	}
}

func TestFitCircleTooFewPointsErrors(t *testing.T) {
	if _, err := FitCircle([]Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}}, FitCircleOptions{}); err == nil {
		t.Fatal("FitCircle: want error for fewer than 3 points")
	}
}
