package imgbuf

import "fmt"

// Point is an integer image-space coordinate.
type Point struct {
	X, Y int
}

// Rect is an axis-aligned, logical-coordinate rectangle: the selection
// primitive used throughout the pipeline (spec §3, "Selection").
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether r fully contains the other rectangle.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.W <= r.X+r.W &&
		other.Y+other.H <= r.Y+r.H
}

// Scaled returns r multiplied by factor, rounding toward the image origin.
// Used to derive the "scaled selection" at the current zoom level; the
// result is derived, never authoritative (spec §3).
func (r Rect) Scaled(factor float64) Rect {
	return Rect{
		X: int(float64(r.X) * factor),
		Y: int(float64(r.Y) * factor),
		W: int(float64(r.W) * factor),
		H: int(float64(r.H) * factor),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}
