// Package geometry holds the rectangle math shared by the renderer and the extractor.
package geometry

import "math"

// Rect is an axis-aligned box in diagram coordinates. Y grows downward.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Offset returns r translated by dx, dy.
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Within reports whether a and b differ by at most tol.
func Within(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Extent accumulates the horizontal span of a set of rectangles.
// The zero value is empty.
type Extent struct {
	Min, Max float64
	n        int
}

// Add widens the extent to cover r.
func (e *Extent) Add(r Rect) {
	if e.n == 0 || r.X < e.Min {
		e.Min = r.X
	}
	if e.n == 0 || r.Right() > e.Max {
		e.Max = r.Right()
	}
	e.n++
}

// Empty reports whether nothing has been added.
func (e *Extent) Empty() bool { return e.n == 0 }

// Wrap returns a box spanning the extent plus pad on both sides, at the given
// vertical position. An empty extent yields a box of width minW at fallbackX.
func (e *Extent) Wrap(y, h, pad, fallbackX, minW float64) Rect {
	if e.Empty() {
		return Rect{X: fallbackX, Y: y, W: minW, H: h}
	}
	return Rect{X: e.Min - pad, Y: y, W: e.Max - e.Min + 2*pad, H: h}
}

// VerticalGap returns the distance from y to the band [top, bottom]; zero when
// y lies inside the band.
func VerticalGap(y, top, bottom float64) float64 {
	switch {
	case y < top:
		return top - y
	case y > bottom:
		return y - bottom
	}
	return 0
}
