package scene

import "math"

// Rect is an axis-aligned rectangle in scene units. Negative width or height
// is legal while a drag is in flight; Positive normalises.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// TopLeft returns the rectangle's origin as a point.
func (r Rect) TopLeft() Point {
	return Point{X: r.X, Y: r.Y}
}

// Translate returns r moved by delta.
func (r Rect) Translate(delta Point) Rect {
	return Rect{X: r.X + delta.X, Y: r.Y + delta.Y, W: r.W, H: r.H}
}

// Positive returns an equivalent rectangle with non-negative dimensions.
func (r Rect) Positive() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(at Point) bool {
	p := r.Positive()
	return at.X >= p.X && at.X <= p.X+p.W && at.Y >= p.Y && at.Y <= p.Y+p.H
}

// ContainsRect reports whether other lies entirely within r.
func (r Rect) ContainsRect(other Rect) bool {
	p := r.Positive()
	o := other.Positive()
	return o.X >= p.X && o.Y >= p.Y && o.X+o.W <= p.X+p.W && o.Y+o.H <= p.Y+p.H
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	p := r.Positive()
	o := other.Positive()
	return p.X < o.X+o.W && o.X < p.X+p.W && p.Y < o.Y+o.H && o.Y < p.Y+p.H
}

// Rounded returns r with every component rounded to the nearest whole tile.
// Width and height keep a minimum of one tile so sprites cannot snap away.
func (r Rect) Rounded() Rect {
	p := r.Positive()
	w := math.Round(p.W)
	if w < 1 {
		w = 1
	}
	h := math.Round(p.H)
	if h < 1 {
		h = 1
	}
	return Rect{X: math.Round(p.X), Y: math.Round(p.Y), W: w, H: h}
}
