package treemap

import "math"

// Size is the extent of a layout container in pixels.
type Size struct {
	W, H float64
}

// Rect is an axis-aligned rectangle. X grows right, Y grows down.
type Rect struct {
	X0, Y0 float64
	X1, Y1 float64
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical span of the rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns Width*Height, or 0 for inverted rectangles.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// CenterX returns the horizontal center point.
func (r Rect) CenterX() float64 { return (r.X0 + r.X1) / 2 }

// CenterY returns the vertical center point.
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }

// Empty reports whether the rectangle has no interior.
func (r Rect) Empty() bool { return !(r.X1 > r.X0 && r.Y1 > r.Y0) }

// Contains reports whether (x, y) lies inside r. The left and top edges are
// inclusive, the right and bottom edges exclusive, so a point on a shared
// edge belongs to exactly one of two touching rectangles.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Overlaps reports whether the interiors of r and o intersect.
func (r Rect) Overlaps(o Rect) bool {
	return math.Max(r.X0, o.X0) < math.Min(r.X1, o.X1) &&
		math.Max(r.Y0, o.Y0) < math.Min(r.Y1, o.Y1)
}

// Inset shrinks r by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X0: r.X0 + d, Y0: r.Y0 + d, X1: r.X1 - d, Y1: r.Y1 - d}
}

// Round snaps every coordinate to the nearest integer.
func (r Rect) Round() Rect {
	return Rect{X0: math.Round(r.X0), Y0: math.Round(r.Y0), X1: math.Round(r.X1), Y1: math.Round(r.Y1)}
}
